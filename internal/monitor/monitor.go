// Package monitor runs one sequential pass over the watched domains:
// fetch, record, classify, notify, and finally persist the history.
package monitor

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"pricewatch/internal/clock"
	"pricewatch/internal/collector"
	"pricewatch/internal/detector"
	"pricewatch/internal/history"
	"pricewatch/internal/metrics"
	"pricewatch/internal/model"
	"pricewatch/internal/notifier"
	"pricewatch/internal/recorder"
)

// PacingDelay separates consecutive domains within a run.
const PacingDelay = 5 * time.Second

// State is the orchestrator's position within a run.
type State string

const (
	StateIdle       State = "idle"
	StateLoading    State = "loading"
	StateFetching   State = "fetching"
	StateRecording  State = "recording"
	StateSkipping   State = "skipping"
	StateNotifying  State = "notifying"
	StatePersisting State = "persisting"
	StateDone       State = "done"
	StateFailed     State = "failed"
)

// PriceFetcher obtains the current price of one domain.
type PriceFetcher interface {
	Fetch(ctx context.Context, identifier string) collector.FetchResult
}

// HistoryStore loads and saves the whole price history.
type HistoryStore interface {
	Load() model.Store
	Save(store model.Store) history.PersistResult
}

// Clock is both a time source and a context-aware sleeper.
type Clock interface {
	clock.Clock
	clock.Sleeper
}

// CheckReport is the per-domain outcome of a run.
type CheckReport struct {
	Identifier string
	Price      decimal.Decimal
	Outcome    model.CheckOutcome
	Attempts   int
	Err        error
}

// RunResult summarizes one pass. Only Err decides whether the run failed.
type RunResult struct {
	RunID     string
	StartedAt time.Time
	Checked   int
	Succeeded int
	Failed    int
	Changed   int
	Checks    []CheckReport
	Persist   history.PersistResult
	Err       error
}

// Deps are the collaborators of a Monitor. Recorder and Metrics are optional.
type Deps struct {
	Fetcher  PriceFetcher
	Store    HistoryStore
	Notifier *notifier.Notifier
	Clock    Clock
	Recorder recorder.Recorder
	Metrics  *metrics.Recorder
}

// Monitor checks a fixed list of domains. It is not safe for concurrent Run calls.
type Monitor struct {
	domains []string
	deps    Deps
	state   State
	logger  *zap.Logger
}

// New creates a Monitor for domains, checked in the given order.
func New(domains []string, deps Deps, logger *zap.Logger) *Monitor {
	if deps.Clock == nil {
		deps.Clock = clock.Real{}
	}
	if deps.Recorder == nil {
		deps.Recorder = recorder.NewNoopRecorder()
	}
	return &Monitor{
		domains: domains,
		deps:    deps,
		state:   StateIdle,
		logger:  logger.With(zap.String("component", "monitor")),
	}
}

// State returns the state reached by the last transition.
func (m *Monitor) State() State { return m.state }

// Run performs one full pass. The history is saved exactly once, including
// when the pass is cut short by a fatal notification error or cancellation.
func (m *Monitor) Run(ctx context.Context) RunResult {
	res := RunResult{RunID: uuid.NewString(), StartedAt: m.deps.Clock.Now()}
	log := m.logger.With(zap.String("run_id", res.RunID))
	log.Info("starting price check run", zap.Int("domains", len(m.domains)))

	m.transition(log, StateLoading)
	store := m.deps.Store.Load()

	for i, id := range m.domains {
		report, err := m.check(ctx, log, &store, id, res.RunID)
		res.Checks = append(res.Checks, report)
		res.Checked++
		if report.Err != nil {
			res.Failed++
		} else {
			res.Succeeded++
			if report.Outcome.Changed() {
				res.Changed++
			}
		}
		if err != nil {
			res.Err = err
			break
		}

		if i < len(m.domains)-1 {
			if err := m.deps.Clock.Sleep(ctx, PacingDelay); err != nil {
				res.Err = fmt.Errorf("pacing wait: %w", err)
				break
			}
		}
	}

	if res.Err == nil && ctx.Err() != nil {
		res.Err = fmt.Errorf("run interrupted: %w", ctx.Err())
	}

	m.transition(log, StatePersisting)
	res.Persist = m.deps.Store.Save(store)
	if res.Persist.Err != nil {
		m.deps.Metrics.RecordPersistError()
	}

	m.finish(log, &res)
	return res
}

// RunAndReport runs a pass and, if it failed, sends a best-effort run error
// notification. The notification is sent even if ctx was cancelled.
func (m *Monitor) RunAndReport(ctx context.Context) RunResult {
	res := m.Run(ctx)
	if res.Err == nil {
		return res
	}

	nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()
	nr := m.deps.Notifier.NotifyRunError(nctx, res.Err)
	m.observeNotification(nr)
	if nr.Err != nil {
		m.logger.Warn("run error notification failed", zap.String("run_id", res.RunID), zap.Error(nr.Err))
	}
	return res
}

func (m *Monitor) check(ctx context.Context, log *zap.Logger, store *model.Store, id string, runID string) (CheckReport, error) {
	log = log.With(zap.String("domain", id))

	m.transition(log, StateFetching)
	fr := m.deps.Fetcher.Fetch(ctx, id)
	report := CheckReport{Identifier: id, Attempts: fr.Attempts}
	now := m.deps.Clock.Now()

	if !fr.OK() {
		m.transition(log, StateSkipping)
		report.Err = fr.Err
		report.Outcome = detector.Failed()
		log.Error("price fetch failed", zap.Int("attempts", fr.Attempts), zap.Error(fr.Err))
		m.journal(log, runID, now, report)
		if err := ctx.Err(); err != nil {
			return report, fmt.Errorf("run interrupted: %w", err)
		}

		m.transition(log, StateNotifying)
		nr := m.deps.Notifier.NotifyFetchFailure(ctx, id)
		m.observeNotification(nr)
		return report, nr.Fatal()
	}

	m.transition(log, StateRecording)
	var prior *model.Observation
	*store, prior = history.RecordObservation(*store, id, fr.Price, now)
	report.Price = fr.Price
	report.Outcome = detector.Classify(fr.Price, prior)
	log.Info("price recorded",
		zap.String("price", fr.Price.StringFixed(2)),
		zap.String("outcome", report.Outcome.Label()),
	)
	m.journal(log, runID, now, report)
	m.deps.Metrics.RecordLastPrice(id, fr.Price.InexactFloat64())

	m.transition(log, StateNotifying)
	nr := m.deps.Notifier.NotifyCheck(ctx, id, fr.Price, report.Outcome)
	m.observeNotification(nr)
	if err := nr.Fatal(); err != nil {
		return report, err
	}

	if report.Outcome.Changed() {
		nr := m.deps.Notifier.NotifyChange(ctx, id, prior.Price, fr.Price)
		m.observeNotification(nr)
		if err := nr.Fatal(); err != nil {
			return report, err
		}
	}
	return report, nil
}

func (m *Monitor) finish(log *zap.Logger, res *RunResult) {
	elapsed := m.deps.Clock.Now().Sub(res.StartedAt)
	status := "ok"
	if res.Err != nil {
		status = "error"
		m.transition(log, StateFailed)
		log.Error("price check run failed", zap.Error(res.Err))
	} else {
		m.transition(log, StateDone)
	}
	m.deps.Metrics.RecordRun(status, elapsed.Seconds())

	evt := &recorder.RunEvent{
		RunID:      res.RunID,
		StartedAt:  res.StartedAt,
		FinishedAt: res.StartedAt.Add(elapsed),
		Checked:    res.Checked,
		Succeeded:  res.Succeeded,
		Failed:     res.Failed,
		Changed:    res.Changed,
		Persisted:  res.Persist.Err == nil,
	}
	if res.Err != nil {
		evt.Error = res.Err.Error()
	}
	if err := m.deps.Recorder.RecordRun(evt); err != nil {
		log.Warn("journal run failed", zap.Error(err))
	}

	log.Info("price check run finished",
		zap.Int("checked", res.Checked),
		zap.Int("succeeded", res.Succeeded),
		zap.Int("failed", res.Failed),
		zap.Int("changed", res.Changed),
		zap.Duration("elapsed", elapsed),
	)
}

func (m *Monitor) journal(log *zap.Logger, runID string, at time.Time, report CheckReport) {
	m.deps.Metrics.RecordCheck(string(report.Outcome.Kind), report.Attempts)

	evt := &recorder.CheckEvent{
		RunID:     runID,
		CheckedAt: at,
		Domain:    report.Identifier,
		Outcome:   string(report.Outcome.Kind),
		Attempts:  report.Attempts,
	}
	if report.Err != nil {
		evt.Error = report.Err.Error()
	} else {
		evt.Price = report.Price.StringFixed(2)
		evt.Delta = report.Outcome.FormattedDelta()
	}
	if err := m.deps.Recorder.RecordCheck(evt); err != nil {
		log.Warn("journal check failed", zap.Error(err))
	}
}

func (m *Monitor) observeNotification(nr notifier.NotifyResult) {
	result := "delivered"
	switch {
	case nr.Skipped:
		result = "skipped"
	case nr.Err != nil:
		result = "failed"
	}
	m.deps.Metrics.RecordNotification(nr.Channel, result)
}

func (m *Monitor) transition(log *zap.Logger, s State) {
	m.state = s
	log.Debug("state transition", zap.String("state", string(s)))
}
