package report

import (
	"fmt"
	"io"
	"sort"
	"sync"
)

// Kind classifies an issue by the stage that produced it.
type Kind string

const (
	KindDiscovery     Kind = "discovery"
	KindCompatibility Kind = "compatibility"
	KindLoad          Kind = "load"
	KindDefinition    Kind = "definition"
	KindSchedule      Kind = "schedule"
)

// Issue is one batch-local failure.
type Issue struct {
	Kind    Kind
	Package string
	File    string
	Err     error
}

func (i Issue) String() string {
	loc := i.Package
	if i.File != "" {
		loc += " (" + i.File + ")"
	}
	return fmt.Sprintf("[%s] %s: %v", i.Kind, loc, i.Err)
}

// Report accumulates issues. It is safe for concurrent use.
type Report struct {
	mu     sync.Mutex
	issues []Issue
}

// New returns an empty report.
func New() *Report {
	return &Report{}
}

// Add records an issue. A nil report ignores the call.
func (r *Report) Add(kind Kind, pkg, file string, err error) {
	if r == nil {
		return
	}
	r.mu.Lock()
	r.issues = append(r.issues, Issue{Kind: kind, Package: pkg, File: file, Err: err})
	r.mu.Unlock()
}

// Merge appends every issue of other.
func (r *Report) Merge(other *Report) {
	if r == nil || other == nil {
		return
	}
	for _, i := range other.Issues() {
		r.Add(i.Kind, i.Package, i.File, i.Err)
	}
}

// Issues returns a copy of the recorded issues in insertion order.
func (r *Report) Issues() []Issue {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Issue, len(r.issues))
	copy(out, r.issues)
	return out
}

// Len returns the number of issues.
func (r *Report) Len() int {
	if r == nil {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.issues)
}

// CountByKind returns the number of issues per kind.
func (r *Report) CountByKind() map[Kind]int {
	counts := make(map[Kind]int)
	for _, i := range r.Issues() {
		counts[i.Kind]++
	}
	return counts
}

// Print writes the issues grouped by kind.
func (r *Report) Print(w io.Writer) {
	issues := r.Issues()
	if len(issues) == 0 {
		fmt.Fprintln(w, "No issues.")
		return
	}
	sort.SliceStable(issues, func(a, b int) bool {
		return issues[a].Kind < issues[b].Kind
	})
	fmt.Fprintf(w, "%d issue(s):\n", len(issues))
	for _, i := range issues {
		fmt.Fprintf(w, "  %s\n", i)
	}
}
