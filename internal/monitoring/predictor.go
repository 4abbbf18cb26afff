package monitoring

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/i474232898/energy-price-forecast/internal/transport"
)

// LinearModel is a linear regression exported as JSON by the training job.
type LinearModel struct {
	Name         string    `json:"name"`
	Features     []string  `json:"features"`
	Intercept    float64   `json:"intercept"`
	Coefficients []float64 `json:"coefficients"`
}

// LoadLinearModel decodes a model artifact.
func LoadLinearModel(r io.Reader) (*LinearModel, error) {
	var m LinearModel
	if err := json.NewDecoder(r).Decode(&m); err != nil {
		return nil, fmt.Errorf("failed to decode model: %w", err)
	}
	if len(m.Features) == 0 {
		return nil, fmt.Errorf("model %q has no features", m.Name)
	}
	if len(m.Features) != len(m.Coefficients) {
		return nil, fmt.Errorf("model %q has %d features but %d coefficients", m.Name, len(m.Features), len(m.Coefficients))
	}
	return &m, nil
}

// LoadLinearModelFile reads a model artifact from disk.
func LoadLinearModelFile(path string) (*LinearModel, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open model %s: %w", path, err)
	}
	defer f.Close()
	return LoadLinearModel(f)
}

func (m *LinearModel) FeatureNames() []string {
	return m.Features
}

func (m *LinearModel) Predict(_ context.Context, inputs [][]float64) ([]float64, error) {
	out := make([]float64, len(inputs))
	for i, row := range inputs {
		if len(row) != len(m.Coefficients) {
			return nil, fmt.Errorf("row %d has %d values, model expects %d", i, len(row), len(m.Coefficients))
		}
		y := m.Intercept
		for j, x := range row {
			y += m.Coefficients[j] * x
		}
		out[i] = y
	}
	return out, nil
}

// HTTPPredictor calls a model-serving endpoint. The endpoint receives
// {"features": [...], "instances": [[...], ...]} and answers {"predictions": [...]}.
type HTTPPredictor struct {
	endpoint string
	features []string
	client   *transport.Client
}

func NewHTTPPredictor(endpoint string, features []string, client *transport.Client) *HTTPPredictor {
	return &HTTPPredictor{endpoint: endpoint, features: features, client: client}
}

type predictRequest struct {
	Features  []string    `json:"features"`
	Instances [][]float64 `json:"instances"`
}

type predictResponse struct {
	Predictions []float64 `json:"predictions"`
}

func (p *HTTPPredictor) FeatureNames() []string {
	return p.features
}

func (p *HTTPPredictor) Predict(ctx context.Context, inputs [][]float64) ([]float64, error) {
	body, err := json.Marshal(predictRequest{Features: p.features, Instances: inputs})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal predict request: %w", err)
	}

	resp, err := p.client.Do(ctx, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	})
	if err != nil {
		return nil, err
	}

	var out predictResponse
	if err := json.Unmarshal(resp, &out); err != nil {
		return nil, fmt.Errorf("%w: decode predictions: %w", transport.ErrNetwork, err)
	}
	return out.Predictions, nil
}
