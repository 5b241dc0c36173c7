package training

import (
	"fmt"
	"math"

	"StockML/internal/domain/models"
	"StockML/pkg/frame"
)

// IndexColumns are row-index columns left behind by CSV exports; they are
// never used as features.
var IndexColumns = []string{"", "Unnamed: 0"}

// DatasetFromFrame splits a prepared frame into a feature matrix and the
// target vector. Features are every numeric column except target, exclude
// and index columns. Rows whose target is missing are skipped.
func DatasetFromFrame(f *frame.Frame, target string, exclude []string) (models.Dataset, error) {
	tcol, err := f.Series(target)
	if err != nil {
		return models.Dataset{}, fmt.Errorf("target: %w", err)
	}
	skip := map[string]struct{}{target: {}}
	for _, name := range exclude {
		skip[name] = struct{}{}
	}
	for _, name := range IndexColumns {
		skip[name] = struct{}{}
	}

	var names []string
	var cols [][]float64
	for _, s := range f.Columns() {
		if _, ok := skip[s.Name()]; ok || !s.IsNumeric() {
			continue
		}
		names = append(names, s.Name())
		cols = append(cols, s.Floats())
	}
	if len(names) == 0 {
		return models.Dataset{}, fmt.Errorf("no numeric feature columns")
	}

	ys := tcol.Floats()
	ds := models.Dataset{Features: names}
	for i, y := range ys {
		if math.IsNaN(y) {
			continue
		}
		row := make([]float64, len(cols))
		for j, c := range cols {
			row[j] = c[i]
		}
		ds.X = append(ds.X, row)
		ds.Y = append(ds.Y, y)
	}
	if ds.Rows() == 0 {
		return models.Dataset{}, fmt.Errorf("no rows with a %s value", target)
	}
	return ds, nil
}
