package pause

import (
	"fmt"
	"sort"
	"strings"
)

// Builtin is a named condition that can be enabled from configuration.
type Builtin struct {
	Condition Condition
	Message   string
}

var builtins = map[string]Builtin{
	"password_field": {
		Condition: PasswordField,
		Message:   "Password field detected. Please enter your password:",
	},
	"password_field_strict": {
		Condition: DetectPasswordField,
		Message:   "Password field detected. Please enter your password:",
	},
	"login_page": {
		Condition: LoginPage,
		Message:   "Login page detected. You may need to enter credentials.",
	},
	"captcha": {
		Condition: Captcha,
		Message:   "CAPTCHA detected. Please solve it manually in the browser window.",
	},
	"payment_form": {
		Condition: PaymentForm,
		Message:   "Payment page detected. Please enter your payment details manually.",
	},
	"two_factor_auth": {
		Condition: TwoFactorAuth,
		Message:   "Two-factor authentication detected. Please enter the verification code:",
	},
	"personal_information_form": {
		Condition: PersonalInformationForm,
		Message:   "Personal information requested. Please provide it:",
	},
	"sensitive_page": {
		Condition: SensitivePageCondition,
		Message:   "Sensitive page detected. User input required.",
	},
}

func Lookup(name string) (Builtin, bool) {
	b, ok := builtins[strings.ToLower(strings.TrimSpace(name))]

	return b, ok
}

func BuiltinNames() []string {
	names := make([]string, 0, len(builtins))
	for name := range builtins {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// UseBuiltins registers the named built-in rules in order. Blank names are skipped.
func (h *Hook) UseBuiltins(names ...string) error {
	for _, raw := range names {
		name := strings.ToLower(strings.TrimSpace(raw))
		if name == "" {
			continue
		}

		b, ok := Lookup(name)
		if !ok {
			return fmt.Errorf("unknown pause condition %q (known: %s)", raw, strings.Join(BuiltinNames(), ", "))
		}

		h.AddCondition(name, b.Condition, b.Message)
	}

	return nil
}
