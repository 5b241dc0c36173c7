package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"StockML/internal/domain/models"
	"StockML/internal/repository"
	"StockML/internal/usecase"
)

type envelope struct {
	Status int             `json:"status"`
	Data   json.RawMessage `json:"data"`
}

func newRegistry(t *testing.T, versions int) (*echo.Echo, *RegistryEchoHandler) {
	t.Helper()
	store, err := repository.NewLocalArtifactStore(t.TempDir())
	require.NoError(t, err)

	payload := filepath.Join(t.TempDir(), "stock-data.csv")
	require.NoError(t, os.WriteFile(payload, []byte("close\n1\n"), 0o644))
	for i := 0; i < versions; i++ {
		_, err := store.Register(context.Background(), models.Asset{
			Name: "stock-data",
			Type: models.AssetTypeURIFile,
			Path: payload,
		})
		require.NoError(t, err)
	}

	h := NewRegistryEchoHandler(nil, usecase.NewAssetsUseCase(store))
	e := echo.New()
	h.RegisterRoutes(e)
	return e, h
}

func get(t *testing.T, e *echo.Echo, path string) (int, envelope) {
	t.Helper()
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return rec.Code, env
}

func TestListVersions(t *testing.T) {
	e, _ := newRegistry(t, 3)

	code, env := get(t, e, "/api/assets?name=stock-data&limit=2&newest=true")
	require.Equal(t, http.StatusOK, code)

	var res struct {
		Rows  []models.AssetVersion `json:"rows"`
		Total int64                 `json:"total"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &res))
	assert.EqualValues(t, 3, res.Total)
	require.Len(t, res.Rows, 2)
	assert.Equal(t, "3", res.Rows[0].Version)
}

func TestListVersionsRejectsBadName(t *testing.T) {
	e, _ := newRegistry(t, 0)

	code, _ := get(t, e, "/api/assets?name=../etc")
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = get(t, e, "/api/assets")
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestLatestAndGet(t *testing.T) {
	e, _ := newRegistry(t, 2)

	code, env := get(t, e, "/api/assets/stock-data/latest")
	require.Equal(t, http.StatusOK, code)
	var v models.AssetVersion
	require.NoError(t, json.Unmarshal(env.Data, &v))
	assert.Equal(t, "2", v.Version)
	assert.Equal(t, models.AssetTypeURIFile, v.Type)

	code, env = get(t, e, "/api/assets/stock-data/versions/1")
	require.Equal(t, http.StatusOK, code)
	require.NoError(t, json.Unmarshal(env.Data, &v))
	assert.Equal(t, "1", v.Version)
}

func TestUnknownAssetIs404(t *testing.T) {
	e, _ := newRegistry(t, 1)

	code, env := get(t, e, "/api/assets/IBM-Model/latest")
	assert.Equal(t, http.StatusNotFound, code)
	assert.Contains(t, string(env.Data), `"code":"ERR_NOT_FOUND"`)

	code, _ = get(t, e, "/api/assets/stock-data/versions/9")
	assert.Equal(t, http.StatusNotFound, code)
}

func TestGetRequiresVersion(t *testing.T) {
	e, _ := newRegistry(t, 1)

	code, env := get(t, e, "/api/assets/stock-data/versions/")
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, string(env.Data), `"code":"ERR_BAD_REQUEST"`)
}

type checkFunc func(context.Context) error

func (f checkFunc) Health(ctx context.Context) error { return f(ctx) }

func TestHealth(t *testing.T) {
	e, h := newRegistry(t, 0)
	h.AddHealthCheck("registry", checkFunc(func(context.Context) error { return nil }))

	code, _ := get(t, e, "/health")
	assert.Equal(t, http.StatusOK, code)

	h.AddHealthCheck("redis", checkFunc(func(context.Context) error { return errors.New("connection refused") }))
	code, env := get(t, e, "/health")
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Contains(t, string(env.Data), "connection refused")
}
