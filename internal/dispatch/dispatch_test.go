package dispatch

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/PuniCore/Puni/internal/adapter"
	"github.com/PuniCore/Puni/internal/capability"
	"github.com/PuniCore/Puni/internal/discovery"
	"github.com/PuniCore/Puni/internal/event"
	"github.com/PuniCore/Puni/internal/loader"
	"github.com/PuniCore/Puni/internal/registry"
	"github.com/PuniCore/Puni/internal/report"
	"github.com/PuniCore/Puni/internal/segment"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func setup(t *testing.T, exports ...loader.Export) *registry.Registry {
	t.Helper()
	r := registry.New(registry.Options{})
	b := r.Begin(report.New())
	dir := t.TempDir()
	d := &discovery.Descriptor{Kind: discovery.KindApp, Name: "demo", Dir: dir}
	b.AddPackage(d)
	b.Classify(d, filepath.Join(dir, "index.go"), exports)
	b.Commit()
	return r
}

func message(bot adapter.Adapter, text string, scene adapter.Scene, opts ...func(*event.Options)) *event.Event {
	o := event.Options{
		Kind:     event.KindMessage,
		SubKind:  string(scene),
		Contact:  adapter.Contact{Scene: scene, Peer: "peer"},
		Sender:   event.Sender{UserID: "u1", Role: event.RoleMember},
		Elements: []segment.Element{segment.Text(text)},
		Bot:      bot,
	}
	for _, fn := range opts {
		fn(&o)
	}
	return event.New(o)
}

func console(out *bytes.Buffer) *adapter.Console {
	return adapter.NewConsole("bot", "u1", strings.NewReader(""), out, nil)
}

func TestDispatch_PriorityAndFallthrough(t *testing.T) {
	var calls []string
	record := func(name string, handled bool) capability.EventFunc {
		return func(context.Context, *event.Event) (bool, error) {
			calls = append(calls, name)
			return handled, nil
		}
	}
	r := setup(t,
		loader.Export{Name: "Low", Value: capability.NewCommand("^#ping", record("low", true), capability.WithPriority(100))},
		loader.Export{Name: "Pass", Value: capability.NewCommand("^#ping", record("pass", false), capability.WithPriority(1))},
		loader.Export{Name: "Other", Value: capability.NewCommand("^#other", record("other", true), capability.WithPriority(0))},
		loader.Export{Name: "Never", Value: capability.NewCommand("^#ping", record("never", true), capability.WithPriority(200))},
	)

	var out bytes.Buffer
	d := New(r, Options{Logger: zaptest.NewLogger(t)})
	handled := d.Dispatch(context.Background(), message(console(&out), "#ping", adapter.SceneFriend))

	assert.True(t, handled)
	assert.Equal(t, []string{"pass", "low"}, calls)
}

func TestDispatch_Permission(t *testing.T) {
	var ran bool
	fn := func(context.Context, *event.Event) (bool, error) {
		ran = true
		return true, nil
	}
	r := setup(t,
		loader.Export{Name: "Admin", Value: capability.NewCommand("^#ban", fn, capability.WithPermission(event.PermMaster))},
		loader.Export{Name: "Quiet", Value: capability.NewCommand("^#mute", fn, capability.WithPermission(event.PermMaster), capability.WithAuthFailMsg(false))},
	)

	var out bytes.Buffer
	d := New(r, Options{AuthFailText: "denied"})
	assert.True(t, d.Dispatch(context.Background(), message(console(&out), "#ban", adapter.SceneFriend)))
	assert.False(t, ran)
	assert.Equal(t, "Send private peer: denied\n", out.String())

	out.Reset()
	assert.True(t, d.Dispatch(context.Background(), message(console(&out), "#mute", adapter.SceneFriend)))
	assert.Empty(t, out.String())

	master := func(o *event.Options) { o.IsMaster = true }
	assert.True(t, d.Dispatch(context.Background(), message(console(&out), "#ban", adapter.SceneFriend, master)))
	assert.True(t, ran)
}

func TestDispatch_EventAndAdapterFilters(t *testing.T) {
	var calls []string
	fn := func(name string) capability.EventFunc {
		return func(context.Context, *event.Event) (bool, error) {
			calls = append(calls, name)
			return false, nil
		}
	}
	r := setup(t,
		loader.Export{Name: "GroupOnly", Value: capability.NewCommand("", fn("group"), capability.WithEvent("message.group"))},
		loader.Export{Name: "ConsoleOnly", Value: capability.NewCommand("", fn("console"), capability.WithAdapters("console"))},
		loader.Export{Name: "NoConsole", Value: capability.NewCommand("", fn("noconsole"), capability.WithDenyAdapters(string(adapter.ProtocolConsole)))},
		loader.Export{Name: "Any", Value: capability.NewCommand("", fn("any"))},
	)

	var out bytes.Buffer
	d := New(r, Options{})
	assert.False(t, d.Dispatch(context.Background(), message(console(&out), "hi", adapter.SceneFriend)))
	assert.Equal(t, []string{"console", "any"}, calls)

	calls = nil
	d.Dispatch(context.Background(), message(nil, "hi", adapter.SceneGroup))
	assert.Equal(t, []string{"group", "noconsole", "any"}, calls)
}

func TestDispatch_HandlerFailureStops(t *testing.T) {
	var after bool
	r := setup(t,
		loader.Export{Name: "Boom", Value: capability.NewCommand("", func(context.Context, *event.Event) (bool, error) {
			panic("handler bug")
		}, capability.WithPriority(1))},
		loader.Export{Name: "After", Value: capability.NewCommand("", func(context.Context, *event.Event) (bool, error) {
			after = true
			return true, nil
		}, capability.WithPriority(2))},
	)

	var failures []error
	d := New(r, Options{OnMatch: func(_ capability.Kind, pkg string, err error) {
		assert.Equal(t, "demo", pkg)
		failures = append(failures, err)
	}})
	assert.True(t, d.Dispatch(context.Background(), message(nil, "x", adapter.SceneFriend)))
	assert.False(t, after)
	require.Len(t, failures, 1)
	assert.ErrorContains(t, failures[0], "handler bug")
}

func TestDispatch_Accepts(t *testing.T) {
	var got []string
	r := setup(t,
		loader.Export{Name: "Join", Value: capability.NewAccept("notice.group_increase", func(_ context.Context, e *event.Event) (bool, error) {
			got = append(got, "join:"+e.SubKind())
			return true, nil
		})},
		loader.Export{Name: "Requests", Value: capability.NewAccept("request", func(_ context.Context, e *event.Event) (bool, error) {
			got = append(got, "request:"+e.SubKind())
			return true, nil
		})},
	)
	d := New(r, Options{})

	notice := event.New(event.Options{Kind: event.KindNotice, SubKind: "group_increase"})
	request := event.New(event.Options{Kind: event.KindRequest, SubKind: "friend"})
	other := event.New(event.Options{Kind: event.KindNotice, SubKind: "group_recall"})

	assert.True(t, d.Dispatch(context.Background(), notice))
	assert.True(t, d.Dispatch(context.Background(), request))
	assert.False(t, d.Dispatch(context.Background(), other))
	assert.Equal(t, []string{"join:group_increase", "request:friend"}, got)
}

func TestDispatchButton(t *testing.T) {
	var order []string
	button := func(name string, pass bool) capability.ButtonFunc {
		return func(_ context.Context, _ *event.Event, next func()) error {
			order = append(order, name)
			if pass {
				next()
			}
			return nil
		}
	}
	r := setup(t,
		loader.Export{Name: "First", Value: capability.NewButton("^vote:", button("first", true), capability.WithPriority(1))},
		loader.Export{Name: "Second", Value: capability.NewButton("^vote:", button("second", false), capability.WithPriority(2))},
		loader.Export{Name: "Third", Value: capability.NewButton("^vote:", button("third", false), capability.WithPriority(3))},
	)
	d := New(r, Options{})

	assert.True(t, d.DispatchButton(context.Background(), "vote:yes", nil))
	assert.Equal(t, []string{"first", "second"}, order)
	assert.False(t, d.DispatchButton(context.Background(), "other", nil))
}

func TestCallHandler(t *testing.T) {
	r := setup(t,
		loader.Export{Name: "Skip", Value: capability.NewHandler("greet", func(_ context.Context, args map[string]any, next func()) (any, error) {
			if args["lang"] != "en" {
				next()
			}
			return "hello", nil
		}, capability.WithPriority(1))},
		loader.Export{Name: "Fallback", Value: capability.NewHandler("greet", func(context.Context, map[string]any, func()) (any, error) {
			return "hallo", nil
		}, capability.WithPriority(2))},
		loader.Export{Name: "Broken", Value: capability.NewHandler("broken", func(context.Context, map[string]any, func()) (any, error) {
			return nil, errors.New("nope")
		})},
	)
	d := New(r, Options{})

	got, err := d.CallHandler(context.Background(), "greet", map[string]any{"lang": "en"})
	require.NoError(t, err)
	assert.Equal(t, "hello", got)

	got, err = d.CallHandler(context.Background(), "greet", map[string]any{"lang": "de"})
	require.NoError(t, err)
	assert.Equal(t, "hallo", got)

	_, err = d.CallHandler(context.Background(), "broken", nil)
	assert.ErrorContains(t, err, "nope")

	_, err = d.CallHandler(context.Background(), "missing", nil)
	assert.ErrorIs(t, err, ErrNoHandler)
}
