package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorderCounts(t *testing.T) {
	r := New()
	r.RecordRows("prepare", 42)
	r.RecordMissing("rolling_3_mean", 3)
	r.RecordError("parse")
	r.RecordError("parse")
	r.RecordAssetRegistered("stock-data", "uri_file")
	r.RecordLatency("transform", 0.25)

	assert.Equal(t, 42.0, testutil.ToFloat64(r.rows.WithLabelValues("prepare")))
	assert.Equal(t, 3.0, testutil.ToFloat64(r.missing.WithLabelValues("rolling_3_mean")))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.errors.WithLabelValues("parse")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.registered.WithLabelValues("stock-data", "uri_file")))
}

func TestRecordersAreIndependent(t *testing.T) {
	a, b := New(), New()
	a.RecordError("io")
	assert.Equal(t, 0.0, testutil.ToFloat64(b.errors.WithLabelValues("io")))
}

func TestPushSendsToGateway(t *testing.T) {
	var body string
	var path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		path = req.URL.Path
		b, _ := io.ReadAll(req.Body)
		body = string(b)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	r := New()
	r.RecordRows("train", 7)
	require.NoError(t, r.Push(srv.URL, "stockml"))

	assert.Equal(t, "/metrics/job/stockml", path)
	assert.True(t, strings.Contains(body, "stockml_rows"))
}

func TestPushNoURL(t *testing.T) {
	assert.NoError(t, New().Push("", "stockml"))
}
