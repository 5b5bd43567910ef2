package capability

import (
	"context"
	"errors"
	"testing"

	"github.com/PuniCore/Puni/internal/event"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noop(context.Context, *event.Event) (bool, error) { return true, nil }

func TestNewCommand_Defaults(t *testing.T) {
	c := NewCommand(`^#ping$`, noop)
	require.NoError(t, c.Err())
	assert.Equal(t, KindCommand, c.Kind())
	assert.Equal(t, DefaultPriority, c.Priority)
	assert.Equal(t, event.PermAll, c.Permission)
	assert.Equal(t, "message", c.Event)
	assert.True(t, c.AuthFailMsg)
	assert.True(t, c.Pattern.MatchString("#ping"))
}

func TestNewCommand_Options(t *testing.T) {
	c := NewCommand(`^#x`, noop,
		WithName("x"),
		WithPriority(5),
		WithPermission(event.PermMaster),
		WithEvent("message.group"),
		WithAdapters("console"),
		WithDenyAdapters("qq"),
		WithAuthFailMsg(false),
		WithLog(false),
	)
	require.NoError(t, c.Err())
	assert.Equal(t, "x", c.Name)
	assert.Equal(t, 5, c.Priority)
	assert.Equal(t, event.PermMaster, c.Permission)
	assert.Equal(t, "message.group", c.Event)
	assert.Equal(t, []string{"console"}, c.Adapters)
	assert.Equal(t, []string{"qq"}, c.DenyAdapters)
	assert.False(t, c.AuthFailMsg)
	assert.False(t, c.Log)
}

func TestNewCommand_Invalid(t *testing.T) {
	assert.True(t, errors.Is(NewCommand(`(`, noop).Err(), ErrDefinition))
	assert.True(t, errors.Is(NewCommand(`ok`, nil).Err(), ErrDefinition))
}

func TestConstructors_Invalid(t *testing.T) {
	task := func(context.Context) error { return nil }
	btn := func(context.Context, *event.Event, func()) error { return nil }
	h := func(context.Context, map[string]any, func()) (any, error) { return nil, nil }

	assert.ErrorIs(t, NewAccept("", noop).Err(), ErrDefinition)
	assert.ErrorIs(t, NewAccept("notice", nil).Err(), ErrDefinition)
	assert.ErrorIs(t, NewTask("", "* * * * *", task).Err(), ErrDefinition)
	assert.ErrorIs(t, NewTask("t", "", task).Err(), ErrDefinition)
	assert.ErrorIs(t, NewTask("t", "* * * * *", nil).Err(), ErrDefinition)
	assert.ErrorIs(t, NewButton("(", btn).Err(), ErrDefinition)
	assert.ErrorIs(t, NewHandler("", h).Err(), ErrDefinition)

	assert.NoError(t, NewAccept("notice", noop).Err())
	assert.NoError(t, NewTask("t", "@every 1s", task).Err())
	assert.NoError(t, NewButton("^btn", btn).Err())
	hd := NewHandler("k", h, WithPriority(3))
	assert.NoError(t, hd.Err())
	assert.Equal(t, "k", hd.Name)
	assert.Equal(t, 3, hd.GetPriority())
}

func TestPlugin_Commands(t *testing.T) {
	p := Plugin{
		Name:  "demo",
		Event: "message.group",
		Rules: []Rule{
			{Pattern: `^#a`, Fnc: noop, Method: "a"},
			{Pattern: `(`, Fnc: noop},
			{Pattern: `^#c`},
			{Pattern: `^#d`, Fnc: noop, Priority: Int(1), Permission: event.PermAdmin, Event: "message", AuthFailMsg: Bool(false)},
		},
	}

	cmds, skipped, err := p.Commands()
	require.NoError(t, err)
	require.Len(t, cmds, 2)
	require.Len(t, skipped, 2)
	assert.Equal(t, 1, skipped[0].Index)
	assert.Equal(t, 2, skipped[1].Index)

	assert.Equal(t, "a", cmds[0].Method)
	assert.Equal(t, "message.group", cmds[0].Event)
	assert.Equal(t, DefaultPriority, cmds[0].Priority)
	assert.Equal(t, event.PermAll, cmds[0].Permission)
	assert.True(t, cmds[0].AuthFailMsg)

	assert.Equal(t, "rule3", cmds[1].Method)
	assert.Equal(t, 1, cmds[1].Priority)
	assert.Equal(t, "message", cmds[1].Event)
	assert.False(t, cmds[1].AuthFailMsg)
}

func TestPlugin_CommandsInvalid(t *testing.T) {
	_, _, err := Plugin{Rules: []Rule{{Pattern: "x", Fnc: noop}}}.Commands()
	assert.ErrorIs(t, err, ErrDefinition)
	_, _, err = Plugin{Name: "empty"}.Commands()
	assert.ErrorIs(t, err, ErrDefinition)
}

func TestNewFile(t *testing.T) {
	f := NewFile("/plugins/p/apps/hello.go", KindTask, "Nightly", "")
	assert.Equal(t, "task", f.Name)
	assert.Equal(t, "/plugins/p/apps", f.Dirname())
	assert.Equal(t, "hello.go", f.Basename())
}
