// Package browser implements ports.BrowserManager on playwright and on the
// Chrome DevTools protocol.
package browser

import (
	"browser-pause-agent/internal/config"
	"browser-pause-agent/internal/ports"
	"fmt"
	"strings"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Config *config.Config
	Logger *zap.Logger
}

// New picks the driver named by BROWSER_DRIVER.
func New(params Params) (ports.BrowserManager, error) {
	switch strings.ToLower(params.Config.BrowserConfig.Driver) {
	case config.DriverPlaywright:
		return NewManager(params.Config, params.Logger), nil
	case config.DriverChromedp:
		return NewCDPManager(params.Config, params.Logger), nil
	default:
		return nil, fmt.Errorf("unsupported browser driver %q", params.Config.BrowserConfig.Driver)
	}
}
