package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectorRecords(t *testing.T) {
	c := NewCollector()

	c.UpdateObserved(3 * time.Millisecond)
	c.UpdateObserved(time.Millisecond)
	c.MutationApplied("fill")
	c.MutationApplied("fill")
	c.MutationApplied("text")
	c.EvaluationFailed("blink")
	c.RuleRejected()
	c.FetchFailed()
	c.Loaded(7)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.updatesTotal))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.mutationsTotal.WithLabelValues("fill")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.mutationsTotal.WithLabelValues("text")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.evalErrorsTotal.WithLabelValues("blink")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.rulesRejected))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.fetchErrorsTotal))
	assert.Equal(t, 7.0, testutil.ToFloat64(c.bindings))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.initialised))

	c.Unloaded()
	assert.Equal(t, 0.0, testutil.ToFloat64(c.bindings))
	assert.Equal(t, 0.0, testutil.ToFloat64(c.initialised))

	c.ClientConnected()
	c.ClientConnected()
	c.ClientDisconnected()
	assert.Equal(t, 1.0, testutil.ToFloat64(c.wsClients))
}

func TestMiddlewareAndHandler(t *testing.T) {
	c := NewCollector()

	ok := c.Middleware("ok", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("fine"))
	}))
	missing := c.Middleware("missing", http.NotFoundHandler())

	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		ok.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	}
	rec := httptest.NewRecorder()
	missing.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	assert.Equal(t, 3.0, testutil.ToFloat64(c.httpRequests.WithLabelValues("ok", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.httpRequests.WithLabelValues("missing", "404")))
	assert.Equal(t, 0.0, testutil.ToFloat64(c.httpPending))

	srv := httptest.NewServer(c.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Contains(t, string(body), "mimic_http_requests_total")
	assert.Contains(t, string(body), "go_goroutines")
}
