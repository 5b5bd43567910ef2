package capability

import (
	"fmt"
	"regexp"

	"github.com/PuniCore/Puni/internal/event"
)

// Rule is one command definition inside a Plugin. Fnc references the
// handling function directly.
type Rule struct {
	Pattern      string
	Fnc          EventFunc
	Method       string
	Priority     *int
	Permission   event.Permission
	Event        string
	Adapters     []string
	DenyAdapters []string
	AuthFailMsg  *bool
	Log          *bool
}

// Plugin is a named group of command rules.
type Plugin struct {
	Name string
	// Event is the default event filter for rules that leave theirs empty.
	Event string
	Rules []Rule
}

// Builder constructs a Plugin. Exports of this type (or of the plain
// func() Plugin signature) are invoked exactly once at load time.
type Builder func() Plugin

// Int returns a pointer to v, for Rule.Priority.
func Int(v int) *int { return &v }

// Bool returns a pointer to v, for Rule.AuthFailMsg and Rule.Log.
func Bool(v bool) *bool { return &v }

// Skipped describes a rule that was dropped while building commands.
type Skipped struct {
	Index int
	Err   error
}

// Commands expands a plugin into command records. Rules without a handler
// or with an invalid pattern are reported in skipped and omitted. A plugin
// without a name or rules returns an ErrDefinition error.
func (p Plugin) Commands() (cmds []*Command, skipped []Skipped, err error) {
	if p.Name == "" {
		return nil, nil, definitionErr("plugin name is empty")
	}
	if len(p.Rules) == 0 {
		return nil, nil, definitionErr("plugin %q has no rules", p.Name)
	}

	for i, r := range p.Rules {
		if r.Fnc == nil {
			skipped = append(skipped, Skipped{Index: i, Err: definitionErr("plugin %q rule %d has no handler", p.Name, i)})
			continue
		}
		re, err := regexp.Compile(r.Pattern)
		if err != nil {
			skipped = append(skipped, Skipped{Index: i, Err: definitionErr("plugin %q rule %d pattern %q: %v", p.Name, i, r.Pattern, err)})
			continue
		}

		c := &Command{
			Name:         p.Name,
			Method:       r.MethodName(i),
			Pattern:      re,
			Fnc:          r.Fnc,
			Priority:     DefaultPriority,
			Permission:   r.Permission,
			Event:        r.Event,
			Adapters:     r.Adapters,
			DenyAdapters: r.DenyAdapters,
			AuthFailMsg:  true,
			Log:          true,
		}
		if r.Priority != nil {
			c.Priority = *r.Priority
		}
		if c.Permission == "" {
			c.Permission = event.PermAll
		}
		if c.Event == "" {
			c.Event = p.Event
		}
		if c.Event == "" {
			c.Event = string(event.KindMessage)
		}
		if r.AuthFailMsg != nil {
			c.AuthFailMsg = *r.AuthFailMsg
		}
		if r.Log != nil {
			c.Log = *r.Log
		}
		cmds = append(cmds, c)
	}
	return cmds, skipped, nil
}

// MethodName returns the label used in source-file descriptors for rule i.
func (r Rule) MethodName(i int) string {
	if r.Method != "" {
		return r.Method
	}
	return fmt.Sprintf("rule%d", i)
}
