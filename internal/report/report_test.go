package report

import (
	"bytes"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReport_AddConcurrent(t *testing.T) {
	r := New()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.Add(KindLoad, "pkg", "a.go", errors.New("boom"))
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, r.Len())
	assert.Equal(t, 50, r.CountByKind()[KindLoad])
}

func TestReport_NilSafe(t *testing.T) {
	var r *Report
	r.Add(KindLoad, "pkg", "", errors.New("x"))
	assert.Equal(t, 0, r.Len())
	assert.Nil(t, r.Issues())
}

func TestReport_MergeAndPrint(t *testing.T) {
	a := New()
	a.Add(KindLoad, "puni-plugin-a", "apps/x.go", errors.New("import failed"))
	b := New()
	b.Add(KindCompatibility, "puni-plugin-b", "", errors.New("requires >=9.0.0"))
	a.Merge(b)
	require.Equal(t, 2, a.Len())

	var buf bytes.Buffer
	a.Print(&buf)
	out := buf.String()
	assert.Contains(t, out, "2 issue(s)")
	assert.True(t, strings.Index(out, "[compatibility]") < strings.Index(out, "[load]"))
	assert.Contains(t, out, "puni-plugin-a (apps/x.go): import failed")
}

func TestReport_PrintEmpty(t *testing.T) {
	var buf bytes.Buffer
	New().Print(&buf)
	assert.Equal(t, "No issues.\n", buf.String())
}
