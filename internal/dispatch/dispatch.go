// Package dispatch turns an ordered job batch into a sequence of timed,
// retried, cancellable delivery attempts.
//
// One run is driven by exactly one worker goroutine. Counters and the
// checkpoint are written only by that goroutine; the control signal is
// written by the operator and only read here. Delivery is strictly
// sequential: the downstream channel is rate-sensitive and stateful.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"blastbot/internal/batch"
	"blastbot/internal/control"
	"blastbot/internal/counters"
	"blastbot/internal/eventbus"
	"blastbot/internal/executor"
	"blastbot/internal/retry"
	"blastbot/internal/schedule"
	"blastbot/internal/storage"
	logx "blastbot/pkg/logx"
)

// State is the dispatcher's coarse lifecycle. Paused is deliberately not a
// State: it is a sub-condition observable on the control signal that never
// loses position.
type State int32

const (
	StateIdle State = iota
	StateAwaitingSchedule
	StateRunning
	StateCompleted
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingSchedule:
		return "awaiting_schedule"
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Config is the per-run configuration.
type Config struct {
	DefaultCountryCode string
	GlobalSchedule     string // optional "HH:MM:SS"; empty starts immediately
	DelayBetween       time.Duration
	MaxRetries         int // delivery attempts per facet
	RetryBase          time.Duration
	RetryMaxDelay      time.Duration
	Resume             bool
}

// Deps are the run's external collaborators. Store and Bus may be nil.
type Deps struct {
	Exec  executor.Executor
	Store storage.Store
	Bus   eventbus.Bus
	Log   logx.Logger
}

// Summary is the final report of a run. It is produced on every exit path:
// completion, operator stop, and fatal session error alike.
type Summary struct {
	Total        int  `json:"total"`
	Sent         int  `json:"sent"`
	Failed       int  `json:"failed"`
	StoppedEarly bool `json:"stopped_early"`
}

// Progress is the payload of job.finished events.
type Progress struct {
	RunID    string            `json:"run_id"`
	JobIndex int               `json:"job_index"`
	Snapshot counters.Snapshot `json:"snapshot"`
}

// Dispatcher executes one batch run.
type Dispatcher struct {
	runID string
	jobs  []batch.Job
	sig   *control.Signal
	deps  Deps
	cfg   Config

	policy retry.Policy
	state  atomic.Int32
	tally  atomic.Pointer[counters.Counters]
}

func New(runID string, jobs []batch.Job, sig *control.Signal, deps Deps, cfg Config) *Dispatcher {
	if deps.Log.IsZero() {
		deps.Log = logx.Nop()
	}
	d := &Dispatcher{
		runID: runID,
		jobs:  jobs,
		sig:   sig,
		deps:  deps,
		cfg:   cfg,
		policy: retry.Policy{
			MaxAttempts: cfg.MaxRetries,
			Base:        cfg.RetryBase,
			MaxDelay:    cfg.RetryMaxDelay,
		},
	}
	d.tally.Store(counters.New(len(jobs)))
	return d
}

func (d *Dispatcher) State() State { return State(d.state.Load()) }

// Progress is safe for concurrent use while the run is in flight.
func (d *Dispatcher) Progress() counters.Snapshot { return d.tally.Load().Snapshot() }

// Jobs exposes the run's job slice for status display. The dispatcher
// goroutine is the only writer of facet statuses.
func (d *Dispatcher) Jobs() []batch.Job { return d.jobs }

// Run drives the whole batch. It always returns a Summary; the error is
// non-nil only for fatal conditions (context cancel, session loss).
func (d *Dispatcher) Run(ctx context.Context) (Summary, error) {
	defer func() {
		if err := d.deps.Exec.Close(); err != nil {
			d.deps.Log.Warn("executor close failed", logx.Err(err))
		}
	}()

	log := d.deps.Log.With(logx.String("run", d.runID))

	batch.NormalizeAll(d.jobs, d.cfg.DefaultCountryCode)

	// Global start time, if any. The wait is interruptible so a stop does
	// not have to ride out the whole countdown.
	if d.cfg.GlobalSchedule != "" {
		d.state.Store(int32(StateAwaitingSchedule))
		delay, err := schedule.WaitUntil(d.cfg.GlobalSchedule, time.Now())
		if err != nil {
			log.Warn("global schedule unparsable, starting now", logx.Err(err))
		} else if delay > 0 {
			log.Info("waiting for global schedule", logx.Duration("delay", delay))
			if err := schedule.Wait(ctx, delay, d.sig); err != nil {
				return d.finish(ctx, log, Summary{Total: len(d.jobs), StoppedEarly: true}, ctxErrOnly(err))
			}
		}
	}

	startIndex := d.resolveStartIndex(ctx, log)
	total := len(d.jobs) - startIndex
	if total < 0 {
		total = 0
	}
	tally := counters.New(total)
	d.tally.Store(tally)

	d.state.Store(int32(StateRunning))
	d.publish(eventbus.TypeRunStarted, Progress{RunID: d.runID, JobIndex: startIndex, Snapshot: tally.Snapshot()})
	log.Info("run started", logx.Int("total", total), logx.Int("start_index", startIndex))

	sum := Summary{Total: total}
	for i := startIndex; i < len(d.jobs); i++ {
		if d.sig.IsStopRequested() {
			log.Info("stop requested, halting before next job", logx.Int("index", i))
			sum.StoppedEarly = true
			break
		}
		d.sig.BlockWhilePaused()
		if d.sig.IsStopRequested() {
			sum.StoppedEarly = true
			break
		}

		job := &d.jobs[i]

		if job.Schedule != "" {
			if stopped, err := d.waitForJobSchedule(ctx, log, job); err != nil {
				sum.StoppedEarly = true
				return d.finish(ctx, log, sum, err)
			} else if stopped {
				sum.StoppedEarly = true
				break
			}
		}

		// Let the backend transparently re-establish a lost session.
		// Failure here is fatal for the run, never retried.
		if err := d.deps.Exec.EnsureSessionReady(ctx); err != nil {
			log.Error("session unavailable, halting run", logx.Int("index", i), logx.Err(err))
			sum.StoppedEarly = true
			return d.finish(ctx, log, sum, fmt.Errorf("job %d: %w", i, err))
		}

		started := time.Now()
		attempts, failedKinds := d.deliverFacets(ctx, log, job)

		success := job.Sent()
		tally.RecordOutcome(success)
		if success {
			sum.Sent++
		} else {
			sum.Failed++
		}

		d.persistOutcome(ctx, log, job, success, attempts, failedKinds, time.Since(started))
		d.publish(eventbus.TypeJobFinished, Progress{RunID: d.runID, JobIndex: i, Snapshot: tally.Snapshot()})

		// Inter-job pacing, same suspension discipline as schedule waits.
		if d.cfg.DelayBetween > 0 && i+1 < len(d.jobs) {
			if err := schedule.Wait(ctx, d.cfg.DelayBetween, d.sig); err != nil {
				if ctxErr := ctxErrOnly(err); ctxErr != nil {
					sum.StoppedEarly = true
					return d.finish(ctx, log, sum, ctxErr)
				}
				sum.StoppedEarly = true
				break
			}
		}
	}

	return d.finish(ctx, log, sum, nil)
}

// waitForJobSchedule blocks until the job's time-of-day arrives.
// Returns stopped=true on an operator stop, err only on context cancel.
// A malformed schedule is logged and the job proceeds immediately.
func (d *Dispatcher) waitForJobSchedule(ctx context.Context, log logx.Logger, job *batch.Job) (stopped bool, err error) {
	delay, perr := schedule.WaitUntil(job.Schedule, time.Now())
	if perr != nil {
		log.Warn("job schedule unparsable, sending now",
			logx.Int("index", job.Index), logx.String("schedule", job.Schedule), logx.Err(perr))
		return false, nil
	}
	if delay <= 0 {
		return false, nil
	}
	log.Info("waiting for job schedule", logx.Int("index", job.Index), logx.Duration("delay", delay))
	werr := schedule.Wait(ctx, delay, d.sig)
	if werr == nil {
		return false, nil
	}
	if ctxErr := ctxErrOnly(werr); ctxErr != nil {
		return false, ctxErr
	}
	return true, nil
}

// deliverFacets attempts every present facet through the retry policy.
// Facet status transitions Pending -> Sent|Failed exactly once.
func (d *Dispatcher) deliverFacets(ctx context.Context, log logx.Logger, job *batch.Job) (attempts int, failedKinds []string) {
	for fi := range job.Facets {
		f := &job.Facets[fi]

		op := func() error {
			if f.Kind == batch.FacetText {
				return d.deps.Exec.SendText(ctx, job.Recipient, f.Content)
			}
			return d.deps.Exec.SendAttachment(ctx, job.Recipient, f.Kind, f.Path)
		}
		obs := func(attempt int, err error) {
			attempts++
			if err != nil {
				log.Warn("delivery attempt failed",
					logx.Int("index", job.Index), logx.String("facet", string(f.Kind)),
					logx.Int("attempt", attempt), logx.Err(err))
			}
		}

		if err := d.policy.Do(ctx, d.sig, op, obs); err != nil {
			f.Status = batch.StatusFailed
			failedKinds = append(failedKinds, string(f.Kind))
			log.Warn("facet failed after retries",
				logx.Int("index", job.Index), logx.String("facet", string(f.Kind)), logx.Err(err))
			continue
		}
		f.Status = batch.StatusSent
	}
	return attempts, failedKinds
}

// persistOutcome finalizes a job: checkpoint first policy is save-after-
// status so a resumed run never re-executes a recorded job. Storage errors
// degrade resume reliability but do not halt the run.
func (d *Dispatcher) persistOutcome(ctx context.Context, log logx.Logger, job *batch.Job, success bool, attempts int, failedKinds []string, took time.Duration) {
	if d.deps.Store == nil {
		return
	}
	if err := d.deps.Store.SaveCheckpoint(ctx, job.Index+1); err != nil {
		log.Warn("checkpoint save failed, resume may be unreliable",
			logx.Int("index", job.Index), logx.Err(err))
	}
	rec := storage.DeliveryRecord{
		RunID:        d.runID,
		JobIndex:     job.Index,
		Recipient:    job.Recipient,
		Sent:         success,
		FailedFacets: failedKinds,
		Attempts:     attempts,
		TookMS:       took.Milliseconds(),
	}
	if err := d.deps.Store.AppendDelivery(ctx, rec); err != nil {
		log.Warn("delivery audit append failed", logx.Int("index", job.Index), logx.Err(err))
	}
}

func (d *Dispatcher) resolveStartIndex(ctx context.Context, log logx.Logger) int {
	if !d.cfg.Resume || d.deps.Store == nil {
		return 0
	}
	next, ok, err := d.deps.Store.LoadCheckpoint(ctx)
	if err != nil {
		log.Warn("checkpoint load failed, starting from beginning", logx.Err(err))
		return 0
	}
	if !ok || next < 0 {
		return 0
	}
	if next > 0 {
		log.Info("resuming from checkpoint", logx.Int("next", next))
	}
	return next
}

func (d *Dispatcher) finish(ctx context.Context, log logx.Logger, sum Summary, err error) (Summary, error) {
	_ = ctx
	if sum.StoppedEarly {
		d.state.Store(int32(StateStopped))
	} else {
		d.state.Store(int32(StateCompleted))
	}
	d.publish(eventbus.TypeRunFinished, sum)

	fields := []logx.Field{
		logx.Int("total", sum.Total), logx.Int("sent", sum.Sent),
		logx.Int("failed", sum.Failed), logx.Bool("stopped_early", sum.StoppedEarly),
	}
	if err != nil {
		log.Warn("run ended", append(fields, logx.Err(err))...)
	} else {
		log.Info("run finished", fields...)
	}
	return sum, err
}

func (d *Dispatcher) publish(typ string, data any) {
	if d.deps.Bus == nil {
		return
	}
	d.deps.Bus.Publish(eventbus.Event{Type: typ, Data: data})
}

// ctxErrOnly filters schedule.Wait errors: context errors pass through,
// an operator stop maps to nil (handled as StoppedEarly, not a failure).
func ctxErrOnly(err error) error {
	if err == nil || errors.Is(err, schedule.ErrStopped) {
		return nil
	}
	return err
}
