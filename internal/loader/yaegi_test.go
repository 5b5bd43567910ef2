package loader

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/PuniCore/Puni/internal/capability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const helloSource = `package hello

import (
	"context"

	"puni"
)

var Ping = puni.NewCommand("^#ping$", func(ctx context.Context, e *puni.Event) (bool, error) {
	return true, nil
}, puni.WithPriority(5))

var unexported = 1

func Demo() puni.Plugin {
	return puni.Plugin{Name: "demo"}
}

func helper() int { return unexported }
`

func TestExportedNames(t *testing.T) {
	pkg, names, err := exportedNames("hello.go", []byte(helloSource))
	require.NoError(t, err)
	assert.Equal(t, "hello", pkg)
	assert.Equal(t, []string{"Ping", "Demo"}, names)

	_, _, err = exportedNames("bad.go", []byte("package"))
	assert.Error(t, err)
}

func TestYaegiImporter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hello.go")
	require.NoError(t, os.WriteFile(path, []byte(helloSource), 0o644))

	y := NewYaegiImporter(YaegiOptions{})
	exports, err := y.Import(context.Background(), path, false)
	require.NoError(t, err)
	require.Len(t, exports, 2)

	v, ok := exports.Lookup("Ping")
	require.True(t, ok)
	cmd, ok := v.(*capability.Command)
	require.True(t, ok, "Ping has type %T", v)
	assert.Equal(t, 5, cmd.Priority)
	assert.NoError(t, cmd.Err())
	assert.True(t, cmd.Pattern.MatchString("#ping"))

	v, ok = exports.Lookup("Demo")
	require.True(t, ok)
	build, ok := v.(func() capability.Plugin)
	require.True(t, ok, "Demo has type %T", v)
	assert.Equal(t, "demo", build().Name)

	// Cached until refreshed.
	require.NoError(t, os.WriteFile(path, []byte("package hello\n\nvar Other = 1\n"), 0o644))
	cached, err := y.Import(context.Background(), path, false)
	require.NoError(t, err)
	assert.Len(t, cached, 2)

	fresh, err := y.Import(context.Background(), path, true)
	require.NoError(t, err)
	require.Len(t, fresh, 1)
	assert.Equal(t, "Other", fresh[0].Name)
}

func TestYaegiImporter_Errors(t *testing.T) {
	dir := t.TempDir()
	y := NewYaegiImporter(YaegiOptions{})

	_, err := y.Import(context.Background(), filepath.Join(dir, "missing.go"), false)
	assert.Error(t, err)

	bad := filepath.Join(dir, "bad.go")
	require.NoError(t, os.WriteFile(bad, []byte("package bad\n\nvar X = undefinedThing\n"), 0o644))
	_, err = y.Import(context.Background(), bad, false)
	assert.Error(t, err)
}
