package app

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"blastbot/internal/batch"
	"blastbot/internal/config"
	"blastbot/internal/control"
	"blastbot/internal/counters"
	"blastbot/internal/dispatch"
	"blastbot/internal/eventbus"
	"blastbot/internal/executor"
	"blastbot/internal/runtime/supervisor"
	"blastbot/internal/storage"
	logx "blastbot/pkg/logx"

	"github.com/google/uuid"
)

var (
	// ErrRunActive is returned by StartRun while a run is in flight.
	ErrRunActive = errors.New("a run is already active")
	// ErrNoRun is returned by Pause/Resume/StopRun with no run in flight.
	ErrNoRun = errors.New("no active run")
)

// RunStatus is the operator-facing view of the runner.
type RunStatus struct {
	RunID    string            `json:"run_id,omitempty"`
	State    string            `json:"state"`
	Paused   bool              `json:"paused,omitempty"`
	Progress counters.Snapshot `json:"progress"`
	Summary  *dispatch.Summary `json:"summary,omitempty"`
}

// Runner is the control surface over the dispatcher: it enforces one run
// at a time, owns the operator signal of the active run, and remembers
// the last finished summary.
type Runner struct {
	cfgs  *config.Manager
	store storage.Store
	bus   eventbus.Bus
	sup   *supervisor.Supervisor
	log   logx.Logger

	mu      sync.Mutex
	current *activeRun
	lastID  string
	lastSum *dispatch.Summary
}

type activeRun struct {
	id   string
	sig  *control.Signal
	disp *dispatch.Dispatcher
}

func NewRunner(cfgs *config.Manager, store storage.Store, bus eventbus.Bus, sup *supervisor.Supervisor, log logx.Logger) *Runner {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Runner{cfgs: cfgs, store: store, bus: bus, sup: sup, log: log}
}

// StartRun loads the configured batch and launches a dispatcher on a
// supervised goroutine. The run inherits the supervisor's lifetime, not
// the caller's ctx; ctx only bounds the startup work here.
func (r *Runner) StartRun(ctx context.Context) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current != nil {
		return "", ErrRunActive
	}

	cfg := r.cfgs.Get()
	if cfg == nil {
		return "", fmt.Errorf("no configuration loaded")
	}

	jobs, err := batch.Load(cfg.Batch.Path, cfg.Batch.Sheet)
	if err != nil {
		return "", fmt.Errorf("load batch: %w", err)
	}
	if len(jobs) == 0 {
		return "", fmt.Errorf("batch %s has no jobs", cfg.Batch.Path)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	runID := uuid.NewString()
	runLog := r.log.With(logx.String("run_id", runID))

	exec, err := executor.Open(executorConfig(cfg, runLog))
	if err != nil {
		return "", err
	}
	dcfg, err := dispatchConfig(cfg.Dispatch)
	if err != nil {
		_ = exec.Close()
		return "", err
	}

	// A fresh run invalidates the previous run's resume point; otherwise
	// a crash before the first job completes would leave a checkpoint
	// that belongs to another run.
	if !dcfg.Resume && r.store != nil {
		if err := r.store.ClearCheckpoint(ctx); err != nil {
			runLog.Warn("stale checkpoint clear failed", logx.Err(err))
		}
	}

	sig := control.NewSignal()
	disp := dispatch.New(runID, jobs, sig, dispatch.Deps{
		Exec:  exec,
		Store: r.store,
		Bus:   r.bus,
		Log:   runLog,
	}, dcfg)
	r.current = &activeRun{id: runID, sig: sig, disp: disp}

	r.sup.Go("run-"+runID[:8], func(ctx context.Context) error {
		sum, err := disp.Run(ctx)
		r.mu.Lock()
		r.lastID = runID
		r.lastSum = &sum
		r.current = nil
		r.mu.Unlock()
		return err
	})

	r.log.Info("run started", logx.String("run_id", runID), logx.Int("jobs", len(jobs)))
	return runID, nil
}

// Pause suspends delivery before the next job. Idempotent.
func (r *Runner) Pause() error {
	return r.withActive(func(run *activeRun) {
		run.sig.Pause()
		r.log.Info("run paused", logx.String("run_id", run.id))
	})
}

// Resume lifts a pause.
func (r *Runner) Resume() error {
	return r.withActive(func(run *activeRun) {
		run.sig.Resume()
		r.log.Info("run resumed", logx.String("run_id", run.id))
	})
}

// StopRun requests a graceful stop; the run ends before the next job and
// leaves the checkpoint at the first unattempted index.
func (r *Runner) StopRun() error {
	return r.withActive(func(run *activeRun) {
		run.sig.RequestStop()
		r.log.Info("run stop requested", logx.String("run_id", run.id))
	})
}

func (r *Runner) withActive(fn func(run *activeRun)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current == nil {
		return ErrNoRun
	}
	fn(r.current)
	return nil
}

// Status reports the active run, or the last finished one when idle.
func (r *Runner) Status() RunStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	if run := r.current; run != nil {
		return RunStatus{
			RunID:    run.id,
			State:    run.disp.State().String(),
			Paused:   run.sig.IsPaused(),
			Progress: run.disp.Progress(),
		}
	}
	return RunStatus{RunID: r.lastID, State: dispatch.StateIdle.String(), Summary: r.lastSum}
}

// Subscribe taps the run event stream (run.started, job.finished,
// run.finished). Slow consumers drop events.
func (r *Runner) Subscribe(buffer int) (<-chan eventbus.Event, func()) {
	return r.bus.Subscribe(buffer)
}

func dispatchConfig(dc config.DispatchConfig) (dispatch.Config, error) {
	delay, err := config.ParseDurationField("dispatch.delay_between", dc.DelayBetween)
	if err != nil {
		return dispatch.Config{}, err
	}
	base, err := config.ParseDurationField("dispatch.retry_base", dc.RetryBase)
	if err != nil {
		return dispatch.Config{}, err
	}
	maxDelay, err := config.ParseDurationField("dispatch.retry_max_delay", dc.RetryMaxDelay)
	if err != nil {
		return dispatch.Config{}, err
	}
	return dispatch.Config{
		DefaultCountryCode: dc.DefaultCountryCode,
		GlobalSchedule:     dc.GlobalSchedule,
		DelayBetween:       delay,
		MaxRetries:         dc.MaxRetries,
		RetryBase:          base,
		RetryMaxDelay:      maxDelay,
		Resume:             dc.ResumeFromCheckpoint,
	}, nil
}

func executorConfig(cfg *config.Config, log logx.Logger) executor.Config {
	out := executor.Config{Backend: cfg.Executor.Backend}
	if g := cfg.Executor.Gateway; g != nil {
		wait, _ := config.ParseDurationField("executor.gateway.wait_timeout", g.WaitTimeout)
		out.Gateway = executor.GatewayConfig{
			BaseURL:     g.BaseURL,
			Token:       g.Token,
			WaitTimeout: wait,
			RatePerMin:  g.RatePerMin,
		}
	}
	out.Script.Log = log
	if s := cfg.Executor.Script; s != nil {
		delay, _ := config.ParseDurationField("executor.script.send_delay", s.SendDelay)
		out.Script.FailMatching = s.FailMatching
		out.Script.SendDelay = delay
	}
	return out
}
