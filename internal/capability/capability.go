package capability

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/PuniCore/Puni/internal/event"
)

// ErrDefinition marks an invalid capability definition: a missing name,
// an empty rule list, a nil handler or a pattern that does not compile.
var ErrDefinition = errors.New("invalid capability definition")

// DefaultPriority applies when a capability does not set one.
const DefaultPriority = 10000

// Kind discriminates the capability union.
type Kind string

const (
	KindCommand Kind = "command"
	KindAccept  Kind = "accept"
	KindTask    Kind = "task"
	KindButton  Kind = "button"
	KindHandler Kind = "handler"
)

// Capability is implemented only by the types in this package.
type Capability interface {
	Kind() Kind
	// Err reports a construction error; records with an error are skipped.
	Err() error
	sealed()
}

// Set is an ordered group of capabilities exported under one name.
type Set []Capability

// EventFunc handles a message, notice or request. Returning handled=false
// lets dispatch continue to the next matching record.
type EventFunc func(ctx context.Context, e *event.Event) (handled bool, err error)

// ButtonFunc handles a button press. Calling next passes the press on to
// the next matching button.
type ButtonFunc func(ctx context.Context, e *event.Event, next func()) error

// HandlerFunc serves a keyed handler call. Calling next passes the call on
// to the next handler registered under the same key.
type HandlerFunc func(ctx context.Context, args map[string]any, next func()) (any, error)

// TaskFunc is a scheduled job body.
type TaskFunc func(ctx context.Context) error

// Command matches message text against a pattern.
type Command struct {
	Name         string
	Method       string
	Pattern      *regexp.Regexp
	Fnc          EventFunc
	Priority     int
	Permission   event.Permission
	Event        string
	Adapters     []string
	DenyAdapters []string
	AuthFailMsg  bool
	Log          bool

	err error
}

func (*Command) Kind() Kind { return KindCommand }
func (c *Command) Err() error { return c.err }
func (*Command) sealed() {}

// Accept reacts to every event of a kind, typically notices and requests.
type Accept struct {
	Name         string
	Event        string
	Fnc          EventFunc
	Priority     int
	Adapters     []string
	DenyAdapters []string
	Log          bool

	err error
}

func (*Accept) Kind() Kind { return KindAccept }
func (a *Accept) Err() error { return a.err }
func (*Accept) sealed() {}

// Task runs Fnc on a cron schedule.
type Task struct {
	Name string
	Spec string
	Fnc  TaskFunc
	Log  bool

	err error
}

func (*Task) Kind() Kind { return KindTask }
func (t *Task) Err() error { return t.err }
func (*Task) sealed() {}

// Button reacts to button presses whose payload matches Pattern.
type Button struct {
	Name     string
	Pattern  *regexp.Regexp
	Fnc      ButtonFunc
	Priority int

	err error
}

func (*Button) Kind() Kind { return KindButton }
func (b *Button) Err() error { return b.err }
func (*Button) sealed() {}

// Handler is a function other plugins can call by key.
type Handler struct {
	Name     string
	Key      string
	Fnc      HandlerFunc
	Priority int

	err error
}

func (*Handler) Kind() Kind { return KindHandler }
func (h *Handler) Err() error { return h.err }
func (*Handler) sealed() {}

// Prioritized is implemented by every bucket record type except Task.
type Prioritized interface {
	GetPriority() int
}

func (c *Command) GetPriority() int { return c.Priority }
func (a *Accept) GetPriority() int { return a.Priority }
func (b *Button) GetPriority() int { return b.Priority }
func (h *Handler) GetPriority() int { return h.Priority }

func definitionErr(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrDefinition, fmt.Sprintf(format, args...))
}
