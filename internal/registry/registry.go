package registry

import (
	"os"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/PuniCore/Puni/internal/capability"
	"github.com/PuniCore/Puni/internal/discovery"
	"github.com/PuniCore/Puni/internal/report"
	"go.uber.org/zap"
)

// Scheduler binds task records to a recurring schedule. Schedules are
// owned by a package id so a reload can cancel the previous ones.
type Scheduler interface {
	Schedule(owner int, t *capability.Task) error
	Cancel(owner int) int
}

// Registry holds the current snapshot. Reads are lock-free; writes go
// through one Batch at a time.
type Registry struct {
	cur   atomic.Pointer[Snapshot]
	write sync.Mutex

	// nextID is guarded by write.
	nextID int

	sched Scheduler
	log   *zap.Logger
}

// Options configures a Registry.
type Options struct {
	Scheduler Scheduler
	Logger    *zap.Logger
}

// New creates an empty Registry.
func New(opts Options) *Registry {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	r := &Registry{sched: opts.Scheduler, log: log.Named("registry")}
	r.cur.Store(emptySnapshot())
	return r
}

// Snapshot returns the last committed snapshot.
func (r *Registry) Snapshot() *Snapshot {
	return r.cur.Load()
}

// Batch is an in-progress registry update. It holds the registry's write
// lock until Commit or Abort.
type Batch struct {
	r    *Registry
	next *Snapshot
	rep  *report.Report

	removed []int
	added   []int
	done    bool
}

// Begin opens a batch. Issues found while classifying are added to rep.
func (r *Registry) Begin(rep *report.Report) *Batch {
	r.write.Lock()
	return &Batch{r: r, next: r.cur.Load().clone(), rep: rep}
}

// AddPackage assigns d the next package id and registers it.
func (b *Batch) AddPackage(d *discovery.Descriptor) int {
	b.r.nextID++
	d.ID = b.r.nextID
	d.State = discovery.StateLoading
	b.next.Packages[d.ID] = d
	b.added = append(b.added, d.ID)
	return d.ID
}

// MarkLoaded sets the final state of a package registered in this batch.
func (b *Batch) MarkLoaded(d *discovery.Descriptor, failed bool) {
	if failed {
		d.State = discovery.StateFailed
		return
	}
	d.State = discovery.StateLoaded
}

// RecordMissing notes that a file of package name failed to load.
func (b *Batch) RecordMissing(name, reason string) {
	b.next.Missing[name] = reason
}

// RemovePackage drops every record owned by the package registered under
// kind and name and returns its descriptor. The package's task schedules
// are cancelled on commit.
func (b *Batch) RemovePackage(kind discovery.Kind, name string) (*discovery.Descriptor, bool) {
	d, ok := b.next.Package(kind, name)
	if !ok {
		return nil, false
	}
	id := d.ID
	delete(b.next.Packages, id)
	delete(b.next.Missing, name)

	b.next.Commands = withoutPackage(b.next.Commands, id)
	b.next.Accepts = withoutPackage(b.next.Accepts, id)
	b.next.Tasks = withoutPackage(b.next.Tasks, id)
	b.next.Buttons = withoutPackage(b.next.Buttons, id)
	for key, hs := range b.next.Handlers {
		hs = withoutPackage(hs, id)
		if len(hs) == 0 {
			delete(b.next.Handlers, key)
			continue
		}
		b.next.Handlers[key] = hs
	}
	b.removed = append(b.removed, id)
	return d, true
}

func withoutPackage[T capability.Capability](entries []Entry[T], id int) []Entry[T] {
	out := entries[:0:0]
	for _, e := range entries {
		if e.Package.ID != id {
			out = append(out, e)
		}
	}
	return out
}

// Commit sorts every bucket, recomputes counts, publishes the snapshot and
// releases the write lock. Schedules of removed packages are cancelled and
// tasks of added packages scheduled.
func (b *Batch) Commit() *Snapshot {
	if b.done {
		return b.r.cur.Load()
	}
	b.done = true
	defer b.r.write.Unlock()

	s := b.next
	sortBuckets(s)
	s.Counts = countOf(s)
	s.Static = staticDirs(s)
	b.r.cur.Store(s)

	if b.r.sched != nil {
		for _, id := range b.removed {
			if n := b.r.sched.Cancel(id); n > 0 {
				b.r.log.Debug("cancelled schedules", zap.Int("package_id", id), zap.Int("count", n))
			}
		}
		b.schedule(s)
	}
	return s
}

func (b *Batch) schedule(s *Snapshot) {
	added := make(map[int]bool, len(b.added))
	for _, id := range b.added {
		added[id] = true
	}
	for _, e := range s.Tasks {
		if !added[e.Package.ID] {
			continue
		}
		if err := b.r.sched.Schedule(e.Package.ID, e.Cap); err != nil {
			b.rep.Add(report.KindSchedule, e.Package.Name, e.File.AbsPath, err)
			b.r.log.Error("scheduling task failed",
				zap.String("package", e.Package.Name),
				zap.String("task", e.Cap.Name),
				zap.Error(err))
		}
	}
}

// Abort discards the batch and releases the write lock. Package ids handed
// out by the batch are not reused.
func (b *Batch) Abort() {
	if b.done {
		return
	}
	b.done = true
	b.r.write.Unlock()
}

func sortBuckets(s *Snapshot) {
	byPriority(s.Commands)
	byPriority(s.Accepts)
	byPriority(s.Buttons)
	for _, hs := range s.Handlers {
		byPriority(hs)
	}
	// Tasks order by name, not priority.
	sort.SliceStable(s.Tasks, func(i, j int) bool {
		return strings.Compare(s.Tasks[i].Cap.Name, s.Tasks[j].Cap.Name) < 0
	})
}

func byPriority[T interface {
	capability.Capability
	capability.Prioritized
}](entries []Entry[T]) {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Cap.GetPriority() < entries[j].Cap.GetPriority()
	})
}

func countOf(s *Snapshot) Counts {
	c := Counts{
		Packages:    len(s.Packages),
		Commands:    len(s.Commands),
		Accepts:     len(s.Accepts),
		Tasks:       len(s.Tasks),
		Buttons:     len(s.Buttons),
		HandlerKeys: len(s.Handlers),
	}
	for _, hs := range s.Handlers {
		c.HandlerFncs += len(hs)
	}
	return c
}

func staticDirs(s *Snapshot) []string {
	var dirs []string
	for _, id := range s.PackageIDs() {
		for _, dir := range s.Packages[id].StaticDirs() {
			if info, err := os.Stat(dir); err == nil && info.IsDir() {
				dirs = append(dirs, dir)
			}
		}
	}
	return dirs
}
