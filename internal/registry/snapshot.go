package registry

import (
	"path/filepath"
	"sort"

	"github.com/PuniCore/Puni/internal/capability"
	"github.com/PuniCore/Puni/internal/discovery"
)

// Entry is one registered capability together with its owning package and
// the source file that exported it.
type Entry[T capability.Capability] struct {
	Cap     T
	Package *discovery.Descriptor
	File    capability.File
}

// Counts are the per-bucket totals of a snapshot.
type Counts struct {
	Packages    int `json:"packages"`
	Commands    int `json:"command"`
	Accepts     int `json:"accept"`
	Tasks       int `json:"task"`
	Buttons     int `json:"button"`
	HandlerKeys int `json:"handlerKey"`
	HandlerFncs int `json:"handlerFnc"`
}

// Snapshot is an immutable view of the registry between batches. Callers
// must not modify any of its slices or maps.
type Snapshot struct {
	Packages map[int]*discovery.Descriptor
	Commands []Entry[*capability.Command]
	Accepts  []Entry[*capability.Accept]
	Tasks    []Entry[*capability.Task]
	Buttons  []Entry[*capability.Button]
	// Handlers are keyed by handler key, each list in priority order.
	Handlers map[string][]Entry[*capability.Handler]
	Counts   Counts
	// Missing maps a package name to the reason one of its files failed
	// to load.
	Missing map[string]string
	// Static lists existing static asset directories in package id order.
	Static []string
}

func emptySnapshot() *Snapshot {
	return &Snapshot{
		Packages: make(map[int]*discovery.Descriptor),
		Handlers: make(map[string][]Entry[*capability.Handler]),
		Missing:  make(map[string]string),
	}
}

func (s *Snapshot) clone() *Snapshot {
	c := &Snapshot{
		Packages: make(map[int]*discovery.Descriptor, len(s.Packages)),
		Commands: append([]Entry[*capability.Command](nil), s.Commands...),
		Accepts:  append([]Entry[*capability.Accept](nil), s.Accepts...),
		Tasks:    append([]Entry[*capability.Task](nil), s.Tasks...),
		Buttons:  append([]Entry[*capability.Button](nil), s.Buttons...),
		Handlers: make(map[string][]Entry[*capability.Handler], len(s.Handlers)),
		Missing:  make(map[string]string, len(s.Missing)),
		Counts:   s.Counts,
	}
	for id, d := range s.Packages {
		c.Packages[id] = d
	}
	for key, hs := range s.Handlers {
		c.Handlers[key] = append([]Entry[*capability.Handler](nil), hs...)
	}
	for name, reason := range s.Missing {
		c.Missing[name] = reason
	}
	return c
}

// PackageIDs returns the registered package ids in ascending order.
func (s *Snapshot) PackageIDs() []int {
	ids := make([]int, 0, len(s.Packages))
	for id := range s.Packages {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// Package returns the registered descriptor for kind and name.
func (s *Snapshot) Package(kind discovery.Kind, name string) (*discovery.Descriptor, bool) {
	for _, id := range s.PackageIDs() {
		if d := s.Packages[id]; d.Kind == kind && d.Name == name {
			return d, true
		}
	}
	return nil, false
}

// FindPackageByFile returns the package that owns file: an exact app file
// match, a file under one of its app directories, or for scaffold packages
// any file under the package directory.
func (s *Snapshot) FindPackageByFile(file string) (*discovery.Descriptor, bool) {
	if abs, err := filepath.Abs(file); err == nil {
		file = abs
	}
	for _, id := range s.PackageIDs() {
		if d := s.Packages[id]; d.Owns(file) {
			return d, true
		}
	}
	return nil, false
}

// RecordsOf returns how many records of each kind package id owns.
func (s *Snapshot) RecordsOf(id int) map[capability.Kind]int {
	out := make(map[capability.Kind]int)
	for _, e := range s.Commands {
		if e.Package.ID == id {
			out[capability.KindCommand]++
		}
	}
	for _, e := range s.Accepts {
		if e.Package.ID == id {
			out[capability.KindAccept]++
		}
	}
	for _, e := range s.Tasks {
		if e.Package.ID == id {
			out[capability.KindTask]++
		}
	}
	for _, e := range s.Buttons {
		if e.Package.ID == id {
			out[capability.KindButton]++
		}
	}
	for _, hs := range s.Handlers {
		for _, e := range hs {
			if e.Package.ID == id {
				out[capability.KindHandler]++
			}
		}
	}
	return out
}
