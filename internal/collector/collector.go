package collector

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"pricewatch/internal/clock"
)

const (
	MaxAttempts           = 3
	RetryDelay            = 5 * time.Second
	DefaultAttemptTimeout = 2 * time.Minute
)

// FetchResult is the outcome of fetching one identifier. Err is nil on success.
type FetchResult struct {
	Identifier string
	Price      decimal.Decimal
	Attempts   int
	Err        error
}

// OK reports whether a price was obtained.
func (r FetchResult) OK() bool { return r.Err == nil }

// Fetcher wraps a Browser with the bounded retry policy.
type Fetcher struct {
	browser        Browser
	sleeper        clock.Sleeper
	attemptTimeout time.Duration
	logger         *zap.Logger
}

// NewFetcher creates a Fetcher. A non-positive attemptTimeout uses DefaultAttemptTimeout.
func NewFetcher(browser Browser, sleeper clock.Sleeper, attemptTimeout time.Duration, logger *zap.Logger) *Fetcher {
	if attemptTimeout <= 0 {
		attemptTimeout = DefaultAttemptTimeout
	}
	return &Fetcher{
		browser:        browser,
		sleeper:        sleeper,
		attemptTimeout: attemptTimeout,
		logger:         logger.With(zap.String("component", "fetcher"), zap.String("browser", browser.Name())),
	}
}

// Fetch tries up to MaxAttempts times. Only ErrFrameDetached is retried, after
// RetryDelay; any other error ends the fetch at once.
func (f *Fetcher) Fetch(ctx context.Context, identifier string) FetchResult {
	res := FetchResult{Identifier: identifier}
	log := f.logger.With(zap.String("domain", identifier))
	log.Info("checking price")

	for attempt := 1; attempt <= MaxAttempts; attempt++ {
		res.Attempts = attempt
		price, err := f.attempt(ctx, identifier)
		if err == nil {
			res.Price = price
			log.Info("price fetched", zap.String("price", price.StringFixed(2)), zap.Int("attempt", attempt))
			return res
		}

		log.Warn("attempt failed", zap.Int("attempt", attempt), zap.Error(err))
		if !IsTransient(err) || attempt == MaxAttempts {
			res.Err = fmt.Errorf("fetch %s after %d attempt(s): %w", identifier, attempt, err)
			log.Error("giving up", zap.Int("attempts", attempt), zap.Error(err))
			return res
		}

		log.Info("retrying", zap.Duration("delay", RetryDelay))
		if err := f.sleeper.Sleep(ctx, RetryDelay); err != nil {
			res.Err = fmt.Errorf("fetch %s: retry wait: %w", identifier, err)
			return res
		}
	}

	res.Err = fmt.Errorf("fetch %s: no attempts made", identifier)
	return res
}

// attempt runs one scrape under the per-attempt timeout. The session is closed
// before attempt returns, whatever the outcome.
func (f *Fetcher) attempt(ctx context.Context, identifier string) (decimal.Decimal, error) {
	actx, cancel := context.WithTimeout(ctx, f.attemptTimeout)
	defer cancel()

	sess, err := f.browser.NewSession(actx)
	if err != nil {
		return decimal.Zero, fmt.Errorf("open session: %w", err)
	}
	defer func() {
		if cerr := sess.Close(); cerr != nil {
			f.logger.Warn("close session", zap.String("domain", identifier), zap.Error(cerr))
		}
	}()

	text, err := sess.ExtractPriceText(actx, identifier)
	if err != nil {
		return decimal.Zero, err
	}
	return ParsePrice(text)
}
