package dispatch

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/PuniCore/Puni/internal/adapter"
	"github.com/PuniCore/Puni/internal/capability"
	"github.com/PuniCore/Puni/internal/event"
	"github.com/PuniCore/Puni/internal/registry"
	"go.uber.org/zap"
)

// ErrNoHandler is returned by CallHandler when no handler is registered
// under the key.
var ErrNoHandler = errors.New("no handler registered")

// DefaultAuthFailText is sent when a command's permission check fails and
// the command has AuthFailMsg enabled.
const DefaultAuthFailText = "You do not have permission to use this command."

// Source supplies the snapshot to dispatch against.
type Source interface {
	Snapshot() *registry.Snapshot
}

// Options configures a Dispatcher.
type Options struct {
	Logger       *zap.Logger
	AuthFailText string
	// OnMatch is called for every record whose handler is invoked.
	OnMatch func(kind capability.Kind, pkg string, err error)
}

// Dispatcher routes events against the current snapshot.
type Dispatcher struct {
	src          Source
	log          *zap.Logger
	authFailText string
	onMatch      func(capability.Kind, string, error)
}

// New creates a Dispatcher.
func New(src Source, opts Options) *Dispatcher {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	if opts.AuthFailText == "" {
		opts.AuthFailText = DefaultAuthFailText
	}
	return &Dispatcher{src: src, log: log.Named("dispatch"), authFailText: opts.AuthFailText, onMatch: opts.OnMatch}
}

// Dispatch offers e to commands (message events) or accepts (notices and
// requests) in priority order until one reports it handled. A handler
// error is logged and ends dispatch.
func (d *Dispatcher) Dispatch(ctx context.Context, e *event.Event) bool {
	s := d.src.Snapshot()
	if e.Kind() == event.KindMessage {
		return d.dispatchCommands(ctx, s, e)
	}
	return d.dispatchAccepts(ctx, s, e)
}

func (d *Dispatcher) dispatchCommands(ctx context.Context, s *registry.Snapshot, e *event.Event) bool {
	text := e.Text()
	for _, entry := range s.Commands {
		c := entry.Cap
		if !matchesEvent(c.Event, e) || !allowsAdapter(c.Adapters, c.DenyAdapters, e.Bot()) {
			continue
		}
		if !c.Pattern.MatchString(text) {
			continue
		}
		if !e.HasPermission(c.Permission, true) {
			d.log.Debug("permission denied",
				zap.String("package", entry.Package.Name),
				zap.String("command", c.Method),
				zap.String("required", string(c.Permission)))
			if c.AuthFailMsg {
				if _, err := e.ReplyText(ctx, d.authFailText); err != nil {
					d.log.Warn("sending permission notice failed", zap.Error(err))
				}
			}
			return true
		}

		if c.Log {
			d.log.Debug("command matched",
				zap.String("package", entry.Package.Name),
				zap.String("command", c.Name),
				zap.String("method", c.Method),
				zap.String("user", e.UserID()))
		}
		handled, err := invoke(func() (bool, error) { return c.Fnc(ctx, e) })
		d.matched(capability.KindCommand, entry.Package.Name, entry.File, err)
		if err != nil || handled {
			return true
		}
	}
	return false
}

func (d *Dispatcher) dispatchAccepts(ctx context.Context, s *registry.Snapshot, e *event.Event) bool {
	for _, entry := range s.Accepts {
		a := entry.Cap
		if !matchesEvent(a.Event, e) || !allowsAdapter(a.Adapters, a.DenyAdapters, e.Bot()) {
			continue
		}
		if a.Log {
			d.log.Debug("accept matched", zap.String("package", entry.Package.Name), zap.String("accept", a.Name))
		}
		handled, err := invoke(func() (bool, error) { return a.Fnc(ctx, e) })
		d.matched(capability.KindAccept, entry.Package.Name, entry.File, err)
		if err != nil || handled {
			return true
		}
	}
	return false
}

// DispatchButton runs the buttons whose pattern matches payload, in
// priority order, for as long as each calls next.
func (d *Dispatcher) DispatchButton(ctx context.Context, payload string, e *event.Event) bool {
	s := d.src.Snapshot()
	for _, entry := range s.Buttons {
		b := entry.Cap
		if !b.Pattern.MatchString(payload) {
			continue
		}
		passed := false
		_, err := invoke(func() (bool, error) {
			return true, b.Fnc(ctx, e, func() { passed = true })
		})
		d.matched(capability.KindButton, entry.Package.Name, entry.File, err)
		if err != nil || !passed {
			return true
		}
	}
	return false
}

// CallHandler runs the handlers registered under key, in priority order,
// for as long as each calls next. It returns the result of the last
// handler that ran.
func (d *Dispatcher) CallHandler(ctx context.Context, key string, args map[string]any) (any, error) {
	entries := d.src.Snapshot().Handlers[key]
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoHandler, key)
	}

	var result any
	for _, entry := range entries {
		passed := false
		var res any
		_, err := invoke(func() (bool, error) {
			var err error
			res, err = entry.Cap.Fnc(ctx, args, func() { passed = true })
			return true, err
		})
		d.matched(capability.KindHandler, entry.Package.Name, entry.File, err)
		if err != nil {
			return nil, fmt.Errorf("handler %s of %s: %w", key, entry.Package.Name, err)
		}
		result = res
		if !passed {
			break
		}
	}
	return result, nil
}

func (d *Dispatcher) matched(kind capability.Kind, pkg string, file capability.File, err error) {
	if err != nil {
		d.log.Error("handler failed",
			zap.String("kind", string(kind)),
			zap.String("package", pkg),
			zap.String("file", file.AbsPath),
			zap.String("method", file.Method),
			zap.Error(err))
	}
	if d.onMatch != nil {
		d.onMatch(kind, pkg, err)
	}
}

// invoke runs fn and converts a panic into an error.
func invoke(fn func() (bool, error)) (handled bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn()
}

// matchesEvent reports whether filter selects e. A filter names a kind
// ("message") or a kind with sub-kind path ("notice.group_increase").
func matchesEvent(filter string, e *event.Event) bool {
	if filter == "" {
		return true
	}
	kind := string(e.Kind())
	if filter == kind {
		return true
	}
	full := kind
	if sub := e.SubKind(); sub != "" {
		full += "." + sub
	}
	return filter == full || strings.HasPrefix(full, filter+".")
}

// allowsAdapter applies allow and deny lists to the adapter's name and
// protocol. An empty allow list admits every adapter.
func allowsAdapter(allow, deny []string, bot adapter.Adapter) bool {
	if len(allow) == 0 && len(deny) == 0 {
		return true
	}
	var name, proto string
	if bot != nil {
		info := bot.Info()
		name, proto = info.Name, string(info.Protocol)
	}
	hit := func(list []string) bool {
		return slices.Contains(list, name) || slices.Contains(list, proto)
	}
	if len(allow) > 0 && !hit(allow) {
		return false
	}
	return !hit(deny)
}
