package frame

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// ReadCSV parses a header-first CSV document. A column becomes Float when
// every non-empty cell parses as a number, Text otherwise. Empty numeric
// cells are NaN.
func ReadCSV(r io.Reader) (*Frame, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("read csv: empty document")
		}
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	cells := make([][]string, len(header))
	line := 1
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv line %d: %w", line+1, err)
		}
		line++
		for i := range header {
			cells[i] = append(cells[i], strings.TrimSpace(rec[i]))
		}
	}

	cols := make([]Series, len(header))
	for i, name := range header {
		cols[i] = inferSeries(strings.TrimSpace(name), cells[i])
	}
	return New(cols...)
}

// WriteCSV writes the frame with a header row. Missing cells are empty.
func WriteCSV(w io.Writer, f *Frame) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(f.Names()); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	rec := make([]string, len(f.cols))
	for row := 0; row < f.rows; row++ {
		for i, c := range f.cols {
			rec[i] = c.Cell(row)
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write csv row %d: %w", row, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func inferSeries(name string, cells []string) Series {
	nums := make([]float64, len(cells))
	for i, c := range cells {
		if c == "" {
			nums[i] = math.NaN()
			continue
		}
		v, err := strconv.ParseFloat(c, 64)
		if err != nil {
			return Series{name: name, kind: Text, text: cells}
		}
		nums[i] = v
	}
	return Series{name: name, kind: Float, nums: nums}
}
