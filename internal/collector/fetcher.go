package collector

import (
	"context"
	"errors"
	"fmt"
	"net/url"
)

var (
	// ErrFrameDetached is the only transient scrape failure; fetches that fail
	// with it are retried while attempts remain.
	ErrFrameDetached = errors.New("navigating frame was detached")
	// ErrUnparseablePrice means the price element held no usable number.
	ErrUnparseablePrice = errors.New("unparseable price")
)

// Browser opens scrape sessions. Each fetch attempt opens exactly one session.
type Browser interface {
	NewSession(ctx context.Context) (Session, error)
	Name() string
}

// Session renders the price page for one identifier and returns the raw
// price text. A session must be closed once the attempt is over.
type Session interface {
	ExtractPriceText(ctx context.Context, identifier string) (string, error)
	Close() error
}

// IsTransient reports whether err is worth another attempt.
func IsTransient(err error) bool {
	return errors.Is(err, ErrFrameDetached)
}

// PageURL fills template with the query-escaped identifier.
func PageURL(template, identifier string) string {
	return fmt.Sprintf(template, url.QueryEscape(identifier))
}
