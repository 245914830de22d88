// Package notifier delivers check results over a primary push channel and a
// secondary email alert channel. Each channel is optional and carries its own
// failure policy.
package notifier

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"pricewatch/internal/collector"
	"pricewatch/internal/model"
)

const (
	ChannelPush  = "push"
	ChannelEmail = "email"

	// RunErrorPriority is used for the final notification of a failed run.
	RunErrorPriority = 1
)

// PushSender delivers short status messages (Pushover, Telegram).
type PushSender interface {
	Send(ctx context.Context, title, message string, priority int) error
	Name() string
}

// AlertSender delivers price change alerts as HTML mail.
type AlertSender interface {
	Send(ctx context.Context, subject, htmlBody string) error
	Name() string
}

// Policy decides what a delivery failure means for the run.
type Policy string

const (
	// PolicyAbort surfaces the failure to the caller, ending the run.
	PolicyAbort Policy = "abort"
	// PolicyAbsorb logs the failure and carries on.
	PolicyAbsorb Policy = "absorb"
)

// NotifyResult describes one notify call on one channel.
type NotifyResult struct {
	Channel   string
	Delivered bool
	Skipped   bool // channel disabled
	Policy    Policy
	Err       error
}

// Fatal returns the delivery error if the channel policy says it must propagate.
func (r NotifyResult) Fatal() error {
	if r.Err != nil && r.Policy == PolicyAbort {
		return r.Err
	}
	return nil
}

// Options configures a Notifier. A nil sender disables its channel.
type Options struct {
	Push          PushSender
	PushPriority  int
	PushPolicy    Policy
	Alert         AlertSender
	AlertPolicy   Policy
	SubjectPrefix string
	PageURL       string // fmt template for the watched page, linked from alerts
}

// Notifier is built once from configuration and shared by the run.
type Notifier struct {
	opts   Options
	logger *zap.Logger
}

// New creates a Notifier. Empty policies default to abort for push and absorb for email.
func New(opts Options, logger *zap.Logger) *Notifier {
	if opts.PushPolicy == "" {
		opts.PushPolicy = PolicyAbort
	}
	if opts.AlertPolicy == "" {
		opts.AlertPolicy = PolicyAbsorb
	}
	return &Notifier{opts: opts, logger: logger.With(zap.String("component", "notifier"))}
}

// PushEnabled reports whether the push channel is configured.
func (n *Notifier) PushEnabled() bool { return n.opts.Push != nil }

// AlertEnabled reports whether the email channel is configured.
func (n *Notifier) AlertEnabled() bool { return n.opts.Alert != nil }

// NotifyCheck sends the status message for a successful check.
func (n *Notifier) NotifyCheck(ctx context.Context, identifier string, price decimal.Decimal, outcome model.CheckOutcome) NotifyResult {
	return n.push(ctx, TitleCheck, StatusMessage(identifier, price, outcome), n.opts.PushPriority)
}

// NotifyFetchFailure sends the error message for an identifier whose price could not be fetched.
func (n *Notifier) NotifyFetchFailure(ctx context.Context, identifier string) NotifyResult {
	return n.push(ctx, TitleError, FetchFailureMessage(identifier), n.opts.PushPriority)
}

// NotifyChange sends the email alert for a detected price change.
func (n *Notifier) NotifyChange(ctx context.Context, identifier string, oldPrice, newPrice decimal.Decimal) NotifyResult {
	subject := AlertSubject(n.opts.SubjectPrefix, identifier, oldPrice, newPrice)
	body := AlertBody(identifier, oldPrice, newPrice, n.pageURL(identifier))
	return n.alert(ctx, subject, body)
}

// NotifyRunError reports a run that ended with an uncaught error.
func (n *Notifier) NotifyRunError(ctx context.Context, runErr error) NotifyResult {
	return n.push(ctx, TitleError, RunErrorMessage(runErr), RunErrorPriority)
}

// NotifyTest sends a single test message on the push channel.
func (n *Notifier) NotifyTest(ctx context.Context) NotifyResult {
	return n.push(ctx, TitleTest, TestMessage, n.opts.PushPriority)
}

func (n *Notifier) pageURL(identifier string) string {
	if n.opts.PageURL == "" {
		return ""
	}
	return collector.PageURL(n.opts.PageURL, identifier)
}

func (n *Notifier) push(ctx context.Context, title, message string, priority int) NotifyResult {
	res := NotifyResult{Channel: ChannelPush, Policy: n.opts.PushPolicy}
	if n.opts.Push == nil {
		n.logger.Debug("push notifications disabled", zap.String("title", title))
		res.Skipped = true
		return res
	}
	n.logger.Info("sending push notification",
		zap.String("sender", n.opts.Push.Name()),
		zap.String("title", title),
		zap.String("message", message),
		zap.Int("priority", priority),
	)
	if err := n.opts.Push.Send(ctx, title, message, priority); err != nil {
		res.Err = fmt.Errorf("%s: %w", n.opts.Push.Name(), err)
		n.logger.Error("push notification failed", zap.String("title", title), zap.String("policy", string(res.Policy)), zap.Error(err))
		return res
	}
	res.Delivered = true
	return res
}

func (n *Notifier) alert(ctx context.Context, subject, body string) NotifyResult {
	res := NotifyResult{Channel: ChannelEmail, Policy: n.opts.AlertPolicy}
	if n.opts.Alert == nil {
		n.logger.Debug("email alerts disabled", zap.String("subject", subject))
		res.Skipped = true
		return res
	}
	if err := n.opts.Alert.Send(ctx, subject, body); err != nil {
		res.Err = fmt.Errorf("%s: %w", n.opts.Alert.Name(), err)
		n.logger.Error("email alert failed", zap.String("subject", subject), zap.String("policy", string(res.Policy)), zap.Error(err))
		return res
	}
	n.logger.Info("email alert sent", zap.String("subject", subject))
	res.Delivered = true
	return res
}
