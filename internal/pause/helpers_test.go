package pause

import (
	"context"
	"sync/atomic"
)

type fakePage struct {
	url       string
	html      string
	urlErr    error
	htmlErr   error
	htmlReads atomic.Int32
}

func (p *fakePage) CurrentURL(context.Context) (string, error) {
	return p.url, p.urlErr
}

func (p *fakePage) PageHTML(context.Context) (string, error) {
	p.htmlReads.Add(1)

	return p.html, p.htmlErr
}

// replyWith answers every pause with value and remembers the requests.
func replyWith(value string, seen *[]InputRequest) InputFunc {
	return func(_ context.Context, req InputRequest) (string, error) {
		if seen != nil {
			*seen = append(*seen, req)
		}

		return value, nil
	}
}

func constant(result bool, calls *int) Condition {
	return func(context.Context, Page) (bool, error) {
		if calls != nil {
			*calls++
		}

		return result, nil
	}
}
