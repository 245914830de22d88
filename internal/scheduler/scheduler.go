package scheduler

import (
	"context"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"pricewatch/internal/monitor"
)

// Runner performs one reported price check pass.
type Runner interface {
	RunAndReport(ctx context.Context) monitor.RunResult
}

// Scheduler triggers price check runs on a cron schedule. Runs never overlap:
// a tick that fires while the previous run is still going is skipped.
type Scheduler struct {
	Cron   *cron.Cron
	Runner Runner
	Ctx    context.Context
	logger *zap.Logger

	running sync.Mutex
}

// NewScheduler creates a new Scheduler with a seconds-resolution cron parser.
func NewScheduler(ctx context.Context, runner Runner, logger *zap.Logger) *Scheduler {
	logger = logger.With(zap.String("component", "scheduler"))
	cronLogger := cron.PrintfLogger(zap.NewStdLog(logger))
	return &Scheduler{
		Cron: cron.New(
			cron.WithSeconds(),
			cron.WithLogger(cronLogger),
			cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
		),
		Runner: runner,
		Ctx:    ctx,
		logger: logger,
	}
}

// Register adds the price check task under spec.
func (s *Scheduler) Register(spec string) error {
	if _, err := s.Cron.AddFunc(spec, s.checkTask); err != nil {
		return fmt.Errorf("register price check task: %w", err)
	}
	s.logger.Info("price check task registered", zap.String("cron", spec))
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	s.logger.Info("scheduler started")
}

// Stop stops the scheduler and waits for a running check to finish.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	s.logger.Info("scheduler stopped")
}

// Run starts the scheduler and blocks until ctx is done.
func (s *Scheduler) Run(ctx context.Context) error {
	s.Start()
	<-ctx.Done()
	s.Stop()
	return nil
}

// RunNow executes the price check immediately (RUN_ON_START), waiting for
// a scheduled run in progress to finish first.
func (s *Scheduler) RunNow() monitor.RunResult {
	s.running.Lock()
	defer s.running.Unlock()
	return s.Runner.RunAndReport(s.Ctx)
}

func (s *Scheduler) checkTask() {
	if err := s.Ctx.Err(); err != nil {
		s.logger.Info("skipping price check, shutting down")
		return
	}
	if !s.running.TryLock() {
		s.logger.Warn("previous price check still running, skipping tick")
		return
	}
	defer s.running.Unlock()

	s.logger.Info("running scheduled price check")
	res := s.Runner.RunAndReport(s.Ctx)
	if res.Err != nil {
		s.logger.Error("scheduled price check failed", zap.String("run_id", res.RunID), zap.Error(res.Err))
	}
}
