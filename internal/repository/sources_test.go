package repository

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newest first, as AlphaVantage serves it
const dailyCSV = `timestamp,open,high,low,close,adjusted_close,volume
2024-01-04,3,3,3,3,3,300
2024-01-03,2,2,2,2,2,200
2024-01-02,1,1,1,1,1,100
`

func TestFileSourceOrdersChronologically(t *testing.T) {
	path := filepath.Join(t.TempDir(), "daily.csv")
	require.NoError(t, os.WriteFile(path, []byte(dailyCSV), 0o644))

	f, err := NewFileSource(path).Load(context.Background())
	require.NoError(t, err)

	ts, err := f.Series("timestamp")
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-01-02", "2024-01-03", "2024-01-04"}, ts.Strings())

	closes, err := f.Series("close")
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 3}, closes.Floats())
}

func TestFileSourceMissingFile(t *testing.T) {
	_, err := NewFileSource(filepath.Join(t.TempDir(), "nope.csv")).Load(context.Background())
	assert.Error(t, err)
}

func TestHTTPSource(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "csv", r.URL.Query().Get("datatype"))
		w.Header().Set("Content-Type", "text/csv")
		_, _ = w.Write([]byte(dailyCSV))
	}))
	defer srv.Close()

	src := NewHTTPSource(srv.URL+"/query?function=TIME_SERIES_DAILY_ADJUSTED&datatype=csv", 0, 0, 1)
	f, err := src.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, f.Len())
	assert.Contains(t, src.Describe(), "http:")
}

func TestHTTPSourceServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := NewHTTPSource(srv.URL, 0, time.Millisecond, 3).Load(context.Background())
	assert.Error(t, err)
}

func TestHTTPSourceRetriesUnavailable(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, sourceUserAgent, r.Header.Get("User-Agent"))
		if calls.Add(1) == 1 {
			http.Error(w, "busy", http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(dailyCSV))
	}))
	defer srv.Close()

	f, err := NewHTTPSource(srv.URL, 0, time.Millisecond, 3).Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, f.Len())
	assert.EqualValues(t, 2, calls.Load())
}

func TestChronologicalShuffled(t *testing.T) {
	path := filepath.Join(t.TempDir(), "daily.csv")
	require.NoError(t, os.WriteFile(path, []byte("timestamp,close\n2024-01-03,3\n2024-01-01,1\n2024-01-02,2\n"), 0o644))

	f, err := NewFileSource(path).Load(context.Background())
	require.NoError(t, err)
	closes, err := f.Series("close")
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 3}, closes.Floats())
}

func TestChronologicalLeavesBadStamps(t *testing.T) {
	path := filepath.Join(t.TempDir(), "daily.csv")
	require.NoError(t, os.WriteFile(path, []byte("timestamp,close\nlater,3\n2024-01-01,1\n"), 0o644))

	f, err := NewFileSource(path).Load(context.Background())
	require.NoError(t, err)
	closes, err := f.Series("close")
	require.NoError(t, err)
	assert.Equal(t, []float64{3, 1}, closes.Floats())
}
