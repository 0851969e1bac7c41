package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector_Counters(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordPostCreated()
	c.RecordPostUpdated()
	c.RecordPostUpdated()
	c.RecordPostDeleted()
	c.RecordPostView()
	c.RecordPostView()
	c.RecordPostView()

	assert.Equal(t, 1.0, testutil.ToFloat64(c.postsCreated))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.postsUpdated))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.postsDeleted))
	assert.Equal(t, 3.0, testutil.ToFloat64(c.postViews))
}

func TestCollector_ImageUploads(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordImageUpload(true, 120*time.Millisecond)
	c.RecordImageUpload(false, 2*time.Second)
	c.RecordImageUpload(false, time.Second)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.imageUploads.WithLabelValues("success")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.imageUploads.WithLabelValues("failure")))
	assert.Equal(t, 1, testutil.CollectAndCount(c.uploadDuration))
}

func TestCollector_AuthFailures(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordAuthFailure("missing_token")
	c.RecordAuthFailure("invalid_token")
	c.RecordAuthFailure("invalid_token")

	assert.Equal(t, 1.0, testutil.ToFloat64(c.authFailures.WithLabelValues("missing_token")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.authFailures.WithLabelValues("invalid_token")))
}

func TestHandler_ExposesMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)
	c.RecordPostCreated()

	srv := httptest.NewServer(Handler(reg))
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, strings.Contains(string(body), "writehub_posts_created_total 1"))
}

func TestNop(t *testing.T) {
	var r Recorder = Nop{}
	r.RecordPostCreated()
	r.RecordImageUpload(false, time.Second)
	r.RecordAuthFailure("x")
}
