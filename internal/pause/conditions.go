package pause

import (
	"context"
	"strings"
)

// PasswordField fires when the page renders a password input.
func PasswordField(ctx context.Context, page Page) (bool, error) {
	html, err := page.PageHTML(ctx)
	if err != nil {
		return false, err
	}

	return strings.Contains(html, `type="password"`), nil
}

// LoginPage fires when the URL looks like a sign-in page.
func LoginPage(ctx context.Context, page Page) (bool, error) {
	url, err := page.CurrentURL(ctx)
	if err != nil {
		return false, err
	}

	return containsAny(strings.ToLower(url), "login", "signin", "auth"), nil
}

// Custom wraps a user predicate.
func Custom(check func(ctx context.Context, page Page) (bool, error)) Condition {
	return func(ctx context.Context, page Page) (bool, error) {
		return check(ctx, page)
	}
}

// Any fires when at least one of conds fires. Errors short-circuit.
func Any(conds ...Condition) Condition {
	return func(ctx context.Context, page Page) (bool, error) {
		for _, cond := range conds {
			ok, err := cond(ctx, page)
			if err != nil || ok {
				return ok, err
			}
		}

		return false, nil
	}
}

// URLContains fires when the lower-cased URL contains one of terms.
func URLContains(terms ...string) Condition {
	return func(ctx context.Context, page Page) (bool, error) {
		url, err := page.CurrentURL(ctx)
		if err != nil {
			return false, err
		}

		return containsAny(strings.ToLower(url), terms...), nil
	}
}

// HTMLContains fires when the lower-cased HTML contains one of terms.
func HTMLContains(terms ...string) Condition {
	return func(ctx context.Context, page Page) (bool, error) {
		html, err := page.PageHTML(ctx)
		if err != nil {
			return false, err
		}

		return containsAny(strings.ToLower(html), terms...), nil
	}
}

func containsAny(s string, terms ...string) bool {
	for _, term := range terms {
		if strings.Contains(s, term) {
			return true
		}
	}

	return false
}
