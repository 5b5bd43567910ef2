package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/PuniCore/Puni/internal/capability"
	"github.com/PuniCore/Puni/internal/registry"
	"github.com/PuniCore/Puni/internal/report"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserve(t *testing.T) {
	m := New(nil)

	m.ObserveSnapshot(&registry.Snapshot{Counts: registry.Counts{Packages: 3, Commands: 7, Tasks: 2, HandlerFncs: 4}})
	assert.Equal(t, 3.0, testutil.ToFloat64(m.Packages))
	assert.Equal(t, 7.0, testutil.ToFloat64(m.Capabilities.WithLabelValues("command")))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.Capabilities.WithLabelValues("handler")))

	rep := report.New()
	rep.Add(report.KindLoad, "a", "a.go", errors.New("x"))
	rep.Add(report.KindLoad, "b", "b.go", errors.New("y"))
	rep.Add(report.KindDefinition, "b", "b.go", errors.New("z"))
	m.ObserveReport(rep)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.LoadIssues.WithLabelValues("load")))

	m.ObserveReload(nil)
	m.ObserveReload(errors.New("gone"))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Reloads.WithLabelValues("error")))

	m.ObserveDispatch(capability.KindCommand, "pkg", nil)
	m.ObserveTask("t", errors.New("boom"))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Dispatches.WithLabelValues("command", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TaskRuns.WithLabelValues("error")))

	m.ObserveSend(errors.New("down"), true)
	m.ObserveSend(errors.New("down"), false)
	m.ObserveSend(nil, false)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Sends.WithLabelValues("retry")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Sends.WithLabelValues("error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Sends.WithLabelValues("ok")))

	m.ObserveLoad(120 * time.Millisecond)
	assert.Equal(t, 1, testutil.CollectAndCount(m.LoadDuration))
}

func TestHandler(t *testing.T) {
	m := New(nil)
	m.ObserveReload(nil)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), `puni_reloads_total{status="ok"} 1`))
}
