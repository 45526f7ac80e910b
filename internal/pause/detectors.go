package pause

import (
	"context"
	"strings"
)

var (
	passwordTypeIndicators = []string{`type="password"`, `type='password'`}

	passwordAttrIndicators = []string{
		`id="password"`, `id='password'`, `name="password"`, `name='password'`,
		`id="pwd"`, `id='pwd'`, `name="pwd"`, `name='pwd'`,
		`id="pass"`, `id='pass'`, `name="pass"`, `name='pass'`,
	}

	passwordLabelIndicators = []string{
		">Password<", ">password<", ">Pass<", ">pass<",
		">Enter password<", ">Enter your password<",
	}

	loginURLIndicators = []string{"login", "signin", "sign-in", "log-in", "auth"}

	paymentPageIndicators = []string{
		"payment", "checkout", "billing", "credit card", "creditcard",
		"card number", "cvv", "cvc", "expiration date",
	}

	paymentFormIndicators = []string{
		"credit card", "debit card", "card number", "cvv", "cvc",
		"expiration date", "expiry date", "billing address",
	}

	personalPageIndicators = []string{
		"address", "personal", "profile", "account details",
		"social security", "ssn", "date of birth", "birthdate",
	}

	personalFormIndicators = []string{
		"social security", "ssn", "date of birth", "birthdate",
		"passport", "driver's license", "drivers license",
		"identity verification", "government id",
	}

	twoFactorIndicators = []string{
		"two-factor", "two factor", "2fa", "verification code",
		"security code", "authenticate", "verification",
	}

	captchaIndicators = []string{
		"captcha", "recaptcha", "i'm not a robot", "im not a robot",
		"verify you're human", "verify youre human",
	}
)

// DetectPasswordField is a stricter PasswordField: besides the input type it
// looks for password-like ids, names and labels. Matching is case-sensitive.
func DetectPasswordField(ctx context.Context, page Page) (bool, error) {
	html, err := page.PageHTML(ctx)
	if err != nil {
		return false, err
	}

	return containsAny(html, passwordTypeIndicators...) ||
		containsAny(html, passwordAttrIndicators...) ||
		containsAny(html, passwordLabelIndicators...), nil
}

// PaymentForm fires on card and billing fields.
func PaymentForm(ctx context.Context, page Page) (bool, error) {
	return HTMLContains(paymentFormIndicators...)(ctx, page)
}

// TwoFactorAuth fires on verification-code pages, by URL or content.
func TwoFactorAuth(ctx context.Context, page Page) (bool, error) {
	return Any(URLContains(twoFactorIndicators...), HTMLContains(twoFactorIndicators...))(ctx, page)
}

func Captcha(ctx context.Context, page Page) (bool, error) {
	return HTMLContains(captchaIndicators...)(ctx, page)
}

// PersonalInformationForm fires on identity documents and similar fields.
func PersonalInformationForm(ctx context.Context, page Page) (bool, error) {
	return HTMLContains(personalFormIndicators...)(ctx, page)
}

type SensitivePage struct {
	LoginPage        bool `json:"login_page"`
	PaymentPage      bool `json:"payment_page"`
	PersonalInfoPage bool `json:"personal_info_page"`
	TwoFactorPage    bool `json:"two_factor_auth_page"`
}

// Any reports whether any flag is set.
func (s SensitivePage) Any() bool {
	return s.LoginPage || s.PaymentPage || s.PersonalInfoPage || s.TwoFactorPage
}

// DetectSensitivePage classifies the current page in one pass over URL and HTML.
func DetectSensitivePage(ctx context.Context, page Page) (SensitivePage, error) {
	url, err := page.CurrentURL(ctx)
	if err != nil {
		return SensitivePage{}, err
	}

	html, err := page.PageHTML(ctx)
	if err != nil {
		return SensitivePage{}, err
	}

	url = strings.ToLower(url)
	html = strings.ToLower(html)

	either := func(terms []string) bool {
		return containsAny(url, terms...) || containsAny(html, terms...)
	}

	return SensitivePage{
		LoginPage:        containsAny(url, loginURLIndicators...),
		PaymentPage:      either(paymentPageIndicators),
		PersonalInfoPage: either(personalPageIndicators),
		TwoFactorPage:    either(twoFactorIndicators),
	}, nil
}

// SensitivePageCondition fires when DetectSensitivePage flags anything.
func SensitivePageCondition(ctx context.Context, page Page) (bool, error) {
	result, err := DetectSensitivePage(ctx, page)
	if err != nil {
		return false, err
	}

	return result.Any(), nil
}
