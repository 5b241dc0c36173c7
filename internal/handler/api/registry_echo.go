package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"StockML/internal/domain/models"
	domrepo "StockML/internal/domain/repository"
	"StockML/internal/usecase"
	xhttp "StockML/pkg/http"
	xlogger "StockML/pkg/logger"
)

func init() {
	_ = xhttp.RegisterValidation("assetname", func(fl validator.FieldLevel) bool {
		return models.ValidName(fl.Field().String())
	})
}

// HealthChecker reports whether a backing service is reachable.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// RegistryEchoHandler serves read-only access to registered assets.
type RegistryEchoHandler struct {
	logger *xlogger.Logger
	assets *usecase.AssetsUseCase
	checks map[string]HealthChecker
}

func NewRegistryEchoHandler(logger *xlogger.Logger, assets *usecase.AssetsUseCase) *RegistryEchoHandler {
	if logger == nil {
		logger = xlogger.NewNop()
	}
	return &RegistryEchoHandler{logger: logger, assets: assets, checks: map[string]HealthChecker{}}
}

// AddHealthCheck includes a dependency in /health.
func (h *RegistryEchoHandler) AddHealthCheck(name string, c HealthChecker) {
	h.checks[name] = c
}

func (h *RegistryEchoHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/health", h.Health)
	g := e.Group("/api/assets")
	g.GET("", h.ListVersions)
	g.GET("/:name/latest", h.Latest)
	g.GET("/:name/versions/:version", h.Get)
}

type listVersionsRequest struct {
	Name   string `query:"name" validate:"required,assetname"`
	Limit  int    `query:"limit" default:"100" validate:"gte=1,lte=1000"`
	Newest bool   `query:"newest"`
}

type assetRequest struct {
	Name    string `param:"name" validate:"required,assetname"`
	Version string `param:"version" validate:"omitempty,assetname"`
}

func (h *RegistryEchoHandler) ListVersions(c echo.Context) error {
	req := &listVersionsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	res, err := h.assets.ListVersions(c.Request().Context(), usecase.ListVersionsParams{
		Name:   req.Name,
		Limit:  req.Limit,
		Newest: req.Newest,
	})
	if err != nil {
		h.logger.Error("list versions failed", xlogger.String("asset", req.Name), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.ListResponse(c, res.Versions, int64(res.Total))
}

func (h *RegistryEchoHandler) Latest(c echo.Context) error {
	req := &assetRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	v, err := h.assets.Latest(c.Request().Context(), req.Name)
	if err != nil {
		return h.assetError(c, req.Name, err)
	}
	return xhttp.SuccessResponse(c, v)
}

func (h *RegistryEchoHandler) Get(c echo.Context) error {
	req := &assetRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	if req.Version == "" {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestErrorf("version is required"))
	}

	v, err := h.assets.Get(c.Request().Context(), req.Name, req.Version)
	if err != nil {
		return h.assetError(c, req.Name, err)
	}
	return xhttp.SuccessResponse(c, v)
}

func (h *RegistryEchoHandler) Health(c echo.Context) error {
	status := map[string]string{}
	healthy := true
	for name, chk := range h.checks {
		if err := chk.Health(c.Request().Context()); err != nil {
			h.logger.Warn("health check failed", xlogger.String("dependency", name), xlogger.Error(err))
			status[name] = err.Error()
			healthy = false
			continue
		}
		status[name] = "ok"
	}
	if !healthy {
		return xhttp.DataResponse(c, http.StatusServiceUnavailable, status)
	}
	return xhttp.SuccessResponse(c, status)
}

func (h *RegistryEchoHandler) assetError(c echo.Context, name string, err error) error {
	if errors.Is(err, domrepo.ErrAssetNotFound) {
		return xhttp.NotFoundResponse(c, []*xhttp.AppError{xhttp.NotFoundErrorf("asset %q not found", name)})
	}
	h.logger.Error("registry lookup failed", xlogger.String("asset", name), xlogger.Error(err))
	return xhttp.AppErrorResponse(c, xhttp.InternalError("registry lookup failed").WithError(err))
}
