package training

import (
	"context"
	"fmt"
	"math"
	"time"

	"StockML/internal/domain/models"
	domsvc "StockML/internal/domain/service"
	xhttp "StockML/pkg/http"
)

// HTTPTrainer delegates fitting to a remote training service, e.g. a
// LightGBM worker. The service receives the dataset as JSON and answers
// with the serialized model.
type HTTPTrainer struct {
	baseURL  string
	client   *xhttp.Client
	params   Params
	attempts int
}

// NewHTTPTrainer builds a trainer posting to baseURL + "/train".
func NewHTTPTrainer(baseURL string, timeout time.Duration, attempts int, p Params) *HTTPTrainer {
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	return &HTTPTrainer{
		baseURL:  baseURL,
		client:   xhttp.NewClient(xhttp.WithTimeout(timeout)),
		params:   p,
		attempts: attempts,
	}
}

func (t *HTTPTrainer) Name() string { return "http" }

type trainReq struct {
	Features []string     `json:"features"`
	X        [][]*float64 `json:"x"`
	Y        []float64    `json:"y"`
	Params   Params       `json:"params"`
}

type trainResp struct {
	Format string `json:"format"`
	Model  []byte `json:"model"`
}

func (t *HTTPTrainer) Fit(ctx context.Context, ds models.Dataset) (models.ModelArtifact, error) {
	var out models.ModelArtifact
	if t.baseURL == "" {
		return out, fmt.Errorf("training service url not configured")
	}
	req := trainReq{Features: ds.Features, X: nullable(ds.X), Y: ds.Y, Params: t.params}

	var resp trainResp
	err := t.client.SendWithRetry(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodPost,
		URL:    t.baseURL + "/train",
		Headers: map[string]string{
			"Content-Type": "application/json",
		},
		Body: req,
	}, &resp, t.attempts)
	if err != nil {
		return out, fmt.Errorf("post train: %w", err)
	}
	if len(resp.Model) == 0 {
		return out, fmt.Errorf("post train: empty model in response")
	}
	out.Format = resp.Format
	out.Features = ds.Features
	out.Payload = resp.Model
	return out, nil
}

// nullable maps NaN to JSON null, which encoding/json cannot emit for NaN.
func nullable(x [][]float64) [][]*float64 {
	out := make([][]*float64, len(x))
	for i, row := range x {
		r := make([]*float64, len(row))
		for j := range row {
			if math.IsNaN(row[j]) {
				continue
			}
			v := row[j]
			r[j] = &v
		}
		out[i] = r
	}
	return out
}

var _ domsvc.Trainer = (*HTTPTrainer)(nil)
