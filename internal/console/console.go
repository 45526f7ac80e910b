package console

import (
	"browser-pause-agent/internal/config"
	"browser-pause-agent/internal/entity"
	"browser-pause-agent/internal/pause"
	"browser-pause-agent/internal/usecase"
	"browser-pause-agent/pkg/logg"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"text/tabwriter"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

const separator = "──────────────────────────────────────────────────"

var errExit = errors.New("exit")

// Interface is the interactive REPL. It shares its line reader with the
// console pause handler, so prompts raised during a task read the same stdin.
type Interface struct {
	config  *config.Config
	logger  *zap.Logger
	usecase *usecase.Service
	lines   *pause.LineReader
	out     io.Writer

	ctx    context.Context
	cancel context.CancelFunc

	stopOnce sync.Once
}

type Params struct {
	fx.In

	Config  *config.Config
	Logger  *zap.Logger
	Usecase *usecase.Service
	Lines   *pause.LineReader
	Output  io.Writer `name:"console_output" optional:"true"`
}

func NewInterface(params Params) *Interface {
	ctx, cancel := context.WithCancel(context.Background())

	out := params.Output
	if out == nil {
		out = os.Stdout
	}

	return &Interface{
		config:  params.Config,
		logger:  params.Logger.With(zap.String(logg.Layer, "Console")),
		usecase: params.Usecase,
		lines:   params.Lines,
		out:     out,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Start runs the REPL until exit, end of input or Stop.
func (i *Interface) Start() error {
	i.printBanner()
	i.printHelp()

	for {
		fmt.Fprint(i.out, "\n> ")

		line, err := i.lines.ReadLine(i.ctx)
		if err != nil {
			if errors.Is(err, pause.ErrInputClosed) || i.ctx.Err() != nil {
				return nil
			}

			return err
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}

		if err := i.handleCommand(input); err != nil {
			if errors.Is(err, errExit) {
				return nil
			}

			i.logger.Error("Command error", zap.Error(err))
			fmt.Fprintf(i.out, "Error: %v\n", err)
		}
	}
}

// Stop cancels the running task, including a pending pause prompt, and ends
// Start.
func (i *Interface) Stop() {
	i.stopOnce.Do(func() {
		i.logger.Info("Stopping console interface...")

		i.cancel()
		i.usecase.Agent.Stop()
		i.lines.Close()

		fmt.Fprintln(i.out, "👋 Goodbye!")
	})
}

func (i *Interface) handleCommand(input string) error {
	switch strings.ToLower(input) {
	case "help", "h":
		i.printHelp()

		return nil
	case "history":
		return i.printHistory()
	case "exit", "quit", "q":
		fmt.Fprintln(i.out, "Shutting down...")

		return errExit
	default:
		if _, err := i.RunTask(input); err != nil {
			i.logger.Debug("Task failed", zap.Error(err))
		}

		return nil
	}
}

// RunTask executes one task and prints its outcome.
func (i *Interface) RunTask(description string) (*entity.Task, error) {
	fmt.Fprintf(i.out, "\n🤖 Starting task: %s\n", description)
	fmt.Fprintln(i.out, separator)

	task, err := i.usecase.Agent.Execute(i.ctx, description)

	fmt.Fprintln(i.out, "\n"+separator)

	switch {
	case err != nil:
		fmt.Fprintf(i.out, "❌ Task failed: %v\n", err)

		return task, err
	case task.Status == entity.TaskStatusCompleted:
		fmt.Fprintf(i.out, "✅ Task completed successfully!\n\n")
		fmt.Fprintf(i.out, "Result: %s\n", task.Result)
		fmt.Fprintf(i.out, "Steps taken: %d, pauses: %d\n", len(task.Steps), task.Pauses)
	default:
		fmt.Fprintf(i.out, "❌ Task failed: %s\n", task.Error)
	}

	return task, nil
}

func (i *Interface) printHistory() error {
	if i.usecase.History == nil {
		fmt.Fprintln(i.out, "Pause history is disabled.")

		return nil
	}

	events, err := i.usecase.History.List(i.ctx)
	if err != nil {
		return fmt.Errorf("list pause history: %w", err)
	}

	if len(events) == 0 {
		fmt.Fprintln(i.out, "No pauses yet.")

		return nil
	}

	tw := tabwriter.NewWriter(i.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tRULE\tINPUT\tWAITED\tURL")

	for _, e := range events {
		fmt.Fprintf(tw, "%s\t%s\t%t\t%s\t%s\n",
			e.Timestamp.Format(time.TimeOnly), e.Rule, e.InputProvided, e.Waited.Round(time.Second), e.URL)
	}

	return tw.Flush()
}

func (i *Interface) printBanner() {
	fmt.Fprintln(i.out, `
╔═══════════════════════════════════════════════════════════╗
║                                                           ║
║                 🤖  AI Browser Agent  🌐                  ║
║                                                           ║
║   Browser automation that pauses when it needs a human    ║
║                                                           ║
╚═══════════════════════════════════════════════════════════╝`)
}

func (i *Interface) printHelp() {
	fmt.Fprintf(i.out, `
Available commands:
  help, h       - Show this help message
  history       - Show pauses of this session
  exit, quit, q - Exit the application

To start a task, simply type your request in natural language:
  Examples:
    - Log in to my bank and download the last statement
    - Find 3 AI engineer jobs on hh.ru
    - Order a burger from my favorite restaurant

The agent stops and asks you when it meets a login form, a captcha or
another checkpoint (%s).
`, strings.Join(i.config.PauseConfig.Conditions, ", "))
}
