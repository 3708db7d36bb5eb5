// Package scoring loads the trained entry classifier from its exported JSON
// artifact and serves class probabilities. The artifact is produced offline;
// this package never trains.
package scoring

import (
	"encoding/json"
	"fmt"
	"math"
	"os"

	"obpilot/internal/application/port"
)

// artifact is the on-disk export: a standard scaler plus a multinomial
// logistic head. Coefficients is classes x features.
type artifact struct {
	FeatureNames []string    `json:"feature_names"`
	ScalerMean   []float64   `json:"scaler_mean"`
	ScalerScale  []float64   `json:"scaler_scale"`
	Coefficients [][]float64 `json:"coefficients"`
	Intercepts   []float64   `json:"intercepts"`
}

// Model is the loaded classifier. Immutable after Load.
type Model struct {
	features     []string
	scalerMean   []float64
	scalerScale  []float64
	coefficients [][]float64
	intercepts   []float64
}

// Load reads and validates the artifact. A missing or malformed artifact is
// a startup error; the process must not trade without a model.
func Load(path string) (*Model, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model artifact: %w", err)
	}

	var a artifact
	if err := json.Unmarshal(raw, &a); err != nil {
		return nil, fmt.Errorf("parse model artifact: %w", err)
	}

	if err := validateSchema(a.FeatureNames); err != nil {
		return nil, err
	}

	n := len(a.FeatureNames)
	if len(a.ScalerMean) != n || len(a.ScalerScale) != n {
		return nil, fmt.Errorf("scaler dimensions %d/%d do not match %d features",
			len(a.ScalerMean), len(a.ScalerScale), n)
	}
	if len(a.Coefficients) != 3 || len(a.Intercepts) != 3 {
		return nil, fmt.Errorf("expected 3 classes, got %d coefficient rows and %d intercepts",
			len(a.Coefficients), len(a.Intercepts))
	}
	for i, row := range a.Coefficients {
		if len(row) != n {
			return nil, fmt.Errorf("class %d has %d coefficients, want %d", i, len(row), n)
		}
	}
	for i, s := range a.ScalerScale {
		if s == 0 {
			return nil, fmt.Errorf("scaler scale for %q is zero", a.FeatureNames[i])
		}
	}

	return &Model{
		features:     a.FeatureNames,
		scalerMean:   a.ScalerMean,
		scalerScale:  a.ScalerScale,
		coefficients: a.Coefficients,
		intercepts:   a.Intercepts,
	}, nil
}

// validateSchema rejects artifacts whose declared columns are not exactly a
// permutation of the fixed feature schema. Failing here beats a silent
// column misalignment at scoring time.
func validateSchema(names []string) error {
	want := port.FeatureSchema()
	if len(names) != len(want) {
		return fmt.Errorf("artifact declares %d features, schema has %d", len(names), len(want))
	}
	expected := make(map[string]bool, len(want))
	for _, n := range want {
		expected[n] = true
	}
	seen := make(map[string]bool, len(names))
	for _, n := range names {
		if !expected[n] {
			return fmt.Errorf("artifact feature %q not in schema", n)
		}
		if seen[n] {
			return fmt.Errorf("artifact feature %q declared twice", n)
		}
		seen[n] = true
	}
	return nil
}

func (m *Model) FeatureNames() []string {
	out := make([]string, len(m.features))
	copy(out, m.features)
	return out
}

// PredictProba scales each row and applies the softmax head, returning one
// probability triple per row.
func (m *Model) PredictProba(rows [][]float64) ([][]float64, error) {
	out := make([][]float64, len(rows))
	for i, row := range rows {
		if len(row) != len(m.features) {
			return nil, fmt.Errorf("row %d has %d values, want %d", i, len(row), len(m.features))
		}

		scaled := make([]float64, len(row))
		for j, v := range row {
			scaled[j] = (v - m.scalerMean[j]) / m.scalerScale[j]
		}

		logits := make([]float64, len(m.coefficients))
		for c, coefs := range m.coefficients {
			z := m.intercepts[c]
			for j, w := range coefs {
				z += w * scaled[j]
			}
			logits[c] = z
		}
		out[i] = softmax(logits)
	}
	return out, nil
}

func softmax(logits []float64) []float64 {
	maxL := logits[0]
	for _, l := range logits[1:] {
		if l > maxL {
			maxL = l
		}
	}
	var sum float64
	probs := make([]float64, len(logits))
	for i, l := range logits {
		probs[i] = math.Exp(l - maxL)
		sum += probs[i]
	}
	for i := range probs {
		probs[i] /= sum
	}
	return probs
}

var _ port.ScoringModel = (*Model)(nil)
