package capability

import (
	"regexp"

	"github.com/PuniCore/Puni/internal/event"
)

// Option customizes a command or accept record.
type Option func(*options)

type options struct {
	name         string
	priority     int
	permission   event.Permission
	event        string
	adapters     []string
	denyAdapters []string
	authFailMsg  bool
	log          bool
}

func defaultOptions() options {
	return options{
		priority:    DefaultPriority,
		permission:  event.PermAll,
		event:       string(event.KindMessage),
		authFailMsg: true,
		log:         true,
	}
}

func applyOptions(opts []Option) options {
	o := defaultOptions()
	for _, fn := range opts {
		if fn != nil {
			fn(&o)
		}
	}
	return o
}

// WithName sets the display name.
func WithName(name string) Option { return func(o *options) { o.name = name } }

// WithPriority sets the ordering priority; lower runs first.
func WithPriority(p int) Option { return func(o *options) { o.priority = p } }

// WithPermission sets the role required to trigger a command.
func WithPermission(p event.Permission) Option { return func(o *options) { o.permission = p } }

// WithEvent restricts matching to an event kind, optionally with a sub-kind
// such as "notice.group_increase".
func WithEvent(ev string) Option { return func(o *options) { o.event = ev } }

// WithAdapters limits the record to the named adapters or protocols.
func WithAdapters(names ...string) Option { return func(o *options) { o.adapters = names } }

// WithDenyAdapters excludes the named adapters or protocols.
func WithDenyAdapters(names ...string) Option { return func(o *options) { o.denyAdapters = names } }

// WithAuthFailMsg controls whether a permission failure sends a notice.
func WithAuthFailMsg(on bool) Option { return func(o *options) { o.authFailMsg = on } }

// WithLog toggles per-call logging.
func WithLog(on bool) Option { return func(o *options) { o.log = on } }

// NewCommand builds a command from a pattern string. A nil handler or an
// invalid pattern is kept on the record as its Err.
func NewCommand(pattern string, fnc EventFunc, opts ...Option) *Command {
	o := applyOptions(opts)
	c := &Command{
		Name:         o.name,
		Fnc:          fnc,
		Priority:     o.priority,
		Permission:   o.permission,
		Event:        o.event,
		Adapters:     o.adapters,
		DenyAdapters: o.denyAdapters,
		AuthFailMsg:  o.authFailMsg,
		Log:          o.log,
	}
	if c.Name == "" {
		c.Name = string(KindCommand)
	}
	re, err := regexp.Compile(pattern)
	switch {
	case err != nil:
		c.err = definitionErr("command %q pattern %q: %v", c.Name, pattern, err)
	case fnc == nil:
		c.err = definitionErr("command %q has no handler", c.Name)
	}
	c.Pattern = re
	return c
}

// NewAccept builds an accept record for events of kind ev (for example
// "notice" or "request.friend").
func NewAccept(ev string, fnc EventFunc, opts ...Option) *Accept {
	o := applyOptions(opts)
	a := &Accept{
		Name:         o.name,
		Event:        ev,
		Fnc:          fnc,
		Priority:     o.priority,
		Adapters:     o.adapters,
		DenyAdapters: o.denyAdapters,
		Log:          o.log,
	}
	if a.Name == "" {
		a.Name = string(KindAccept)
	}
	switch {
	case ev == "":
		a.err = definitionErr("accept %q has no event", a.Name)
	case fnc == nil:
		a.err = definitionErr("accept %q has no handler", a.Name)
	}
	return a
}

// NewTask builds a scheduled task. spec uses the cron syntax with an
// optional leading seconds field.
func NewTask(name, spec string, fnc TaskFunc, opts ...Option) *Task {
	o := applyOptions(opts)
	t := &Task{Name: name, Spec: spec, Fnc: fnc, Log: o.log}
	switch {
	case name == "":
		t.err = definitionErr("task has no name")
	case spec == "":
		t.err = definitionErr("task %q has no schedule", name)
	case fnc == nil:
		t.err = definitionErr("task %q has no handler", name)
	}
	return t
}

// NewButton builds a button record.
func NewButton(pattern string, fnc ButtonFunc, opts ...Option) *Button {
	o := applyOptions(opts)
	b := &Button{Name: o.name, Fnc: fnc, Priority: o.priority}
	if b.Name == "" {
		b.Name = string(KindButton)
	}
	re, err := regexp.Compile(pattern)
	switch {
	case err != nil:
		b.err = definitionErr("button %q pattern %q: %v", b.Name, pattern, err)
	case fnc == nil:
		b.err = definitionErr("button %q has no handler", b.Name)
	}
	b.Pattern = re
	return b
}

// NewHandler builds a keyed handler.
func NewHandler(key string, fnc HandlerFunc, opts ...Option) *Handler {
	o := applyOptions(opts)
	h := &Handler{Name: o.name, Key: key, Fnc: fnc, Priority: o.priority}
	if h.Name == "" {
		h.Name = key
	}
	switch {
	case key == "":
		h.err = definitionErr("handler %q has no key", h.Name)
	case fnc == nil:
		h.err = definitionErr("handler %q has no function", h.Name)
	}
	return h
}
