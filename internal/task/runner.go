package task

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/PuniCore/Puni/internal/capability"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// ErrRun marks a failed task firing.
var ErrRun = errors.New("scheduled task failed")

// Parser accepts five-field specs, six-field specs with a leading seconds
// field, and descriptors such as @hourly or @every 5m.
var Parser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// Options configures a Runner.
type Options struct {
	Logger *zap.Logger
	// Location defaults to time.Local.
	Location *time.Location
	// OnRun is called after every firing with its outcome.
	OnRun func(name string, err error)
}

// Runner owns a cron scheduler.
type Runner struct {
	cron   *cron.Cron
	log    *zap.Logger
	onRun  func(string, error)
	ctx    context.Context
	cancel context.CancelFunc

	mu    sync.Mutex
	owned map[int][]cron.EntryID
}

// New creates a stopped Runner.
func New(opts Options) *Runner {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Runner{
		cron:   cron.New(cron.WithParser(Parser), cron.WithLocation(loc)),
		log:    log.Named("task"),
		onRun:  opts.OnRun,
		ctx:    ctx,
		cancel: cancel,
		owned:  make(map[int][]cron.EntryID),
	}
}

// Start begins firing schedules in the background.
func (r *Runner) Start() {
	r.cron.Start()
}

// Stop halts the scheduler, cancels the context handed to running tasks and
// waits for them to return or for ctx to end.
func (r *Runner) Stop(ctx context.Context) error {
	done := r.cron.Stop()
	r.cancel()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Schedule binds t to its spec under owner.
func (r *Runner) Schedule(owner int, t *capability.Task) error {
	sched, err := Parser.Parse(t.Spec)
	if err != nil {
		return fmt.Errorf("parsing schedule %q of task %s: %w", t.Spec, t.Name, err)
	}
	id := r.cron.Schedule(sched, r.job(t))

	r.mu.Lock()
	r.owned[owner] = append(r.owned[owner], id)
	r.mu.Unlock()
	r.log.Debug("task scheduled", zap.String("task", t.Name), zap.String("spec", t.Spec), zap.Int("package_id", owner))
	return nil
}

// Cancel removes every schedule of owner and returns how many there were.
// Firings already in progress finish normally.
func (r *Runner) Cancel(owner int) int {
	r.mu.Lock()
	ids := r.owned[owner]
	delete(r.owned, owner)
	r.mu.Unlock()

	for _, id := range ids {
		r.cron.Remove(id)
	}
	return len(ids)
}

// Scheduled returns the number of live schedules of owner.
func (r *Runner) Scheduled(owner int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.owned[owner])
}

// Run fires t once with the same isolation as a scheduled firing.
func (r *Runner) Run(ctx context.Context, t *capability.Task) error {
	return r.fire(ctx, t)
}

func (r *Runner) job(t *capability.Task) cron.Job {
	return cron.FuncJob(func() {
		_ = r.fire(r.ctx, t)
	})
}

func (r *Runner) fire(ctx context.Context, t *capability.Task) (err error) {
	start := time.Now()
	if t.Log {
		r.log.Info("task started", zap.String("task", t.Name))
	}

	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("%w: %s: panic: %v", ErrRun, t.Name, rec)
		}
		if err != nil {
			r.log.Error("task failed", zap.String("task", t.Name), zap.Error(err))
		} else if t.Log {
			r.log.Info("task finished", zap.String("task", t.Name), zap.Duration("took", time.Since(start)))
		}
		if r.onRun != nil {
			r.onRun(t.Name, err)
		}
	}()

	if err := t.Fnc(ctx); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrRun, t.Name, err)
	}
	return nil
}
