// Package trigger fires recurring runs of the configured batch.
//
// The spec string accepts cron expressions, daily HH:MM times, and plain
// intervals; see ParseSpec. A tick while a run is still active is skipped
// with a log line rather than queued.
package trigger

import (
	"context"

	logx "blastbot/pkg/logx"

	"github.com/robfig/cron/v3"
)

// Runner submits a new run of the configured batch. It must reject
// concurrent runs with an error rather than queueing.
type Runner interface {
	StartRun(ctx context.Context) (string, error)
}

type Service struct {
	spec Spec
	run  Runner
	log  logx.Logger

	c   *cron.Cron
	ctx context.Context
}

// New parses rawSpec and prepares the trigger. It does not start firing
// until Start is called.
func New(rawSpec string, run Runner, log logx.Logger) (*Service, error) {
	spec, err := ParseSpec(rawSpec)
	if err != nil {
		return nil, err
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Service{spec: spec, run: run, log: log}, nil
}

// Start registers the schedule and begins firing. ctx is the lifetime
// context handed to each triggered run.
func (s *Service) Start(ctx context.Context) error {
	s.ctx = ctx
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	s.c = cron.New(cron.WithParser(parser))

	switch s.spec.Kind {
	case SpecCron:
		if _, err := s.c.AddFunc(s.spec.Cron, s.fire); err != nil {
			return err
		}
		s.log.Info("trigger armed", logx.String("cron", s.spec.Cron), logx.String("source", s.spec.Source))
	case SpecInterval:
		s.c.Schedule(cron.Every(s.spec.Every), cron.FuncJob(s.fire))
		s.log.Info("trigger armed", logx.Duration("every", s.spec.Every))
	}

	s.c.Start()
	return nil
}

// Stop halts the schedule and waits for an in-flight fire callback. It
// does not stop a run the trigger already started.
func (s *Service) Stop() {
	if s.c == nil {
		return
	}
	<-s.c.Stop().Done()
}

func (s *Service) fire() {
	if s.ctx.Err() != nil {
		return
	}
	runID, err := s.run.StartRun(s.ctx)
	if err != nil {
		s.log.Warn("trigger skipped", logx.Err(err))
		return
	}
	s.log.Info("trigger started run", logx.String("run_id", runID))
}
