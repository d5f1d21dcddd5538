package storage

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"

	"github.com/san-kum/vrft/internal/iddata"
)

var ErrMalformedExperiment = errors.New("storage: malformed experiment file")

var experimentHeader = []string{"t", "u", "y"}

// SaveExperiment writes data as CSV with columns t,u,y. The output history
// is stored first as rows with negative time and an empty input, oldest
// sample first.
func SaveExperiment(path string, data *iddata.Data) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	if err := WriteExperiment(file, data); err != nil {
		return err
	}
	return file.Close()
}

func WriteExperiment(out io.Writer, data *iddata.Data) error {
	w := csv.NewWriter(out)
	if err := w.Write(experimentHeader); err != nil {
		return err
	}

	dt := data.Dt()
	y0 := data.Y0()
	for i := len(y0) - 1; i >= 0; i-- {
		t := -float64(i+1) * dt
		if err := w.Write([]string{formatFloat(t), "", formatFloat(y0[i])}); err != nil {
			return err
		}
	}

	u, y, times := data.U(), data.Y(), data.Times()
	for k := range y {
		if err := w.Write([]string{formatFloat(times[k]), formatFloat(u[k]), formatFloat(y[k])}); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}

// LoadExperiment reads a file written by SaveExperiment. With dt <= 0 the
// sampling period is taken from the first two samples.
func LoadExperiment(path string, dt float64) (*iddata.Data, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return ReadExperiment(file, dt)
}

func ReadExperiment(in io.Reader, dt float64) (*iddata.Data, error) {
	r := csv.NewReader(in)
	r.FieldsPerRecord = len(experimentHeader)
	r.Comment = '#'
	r.TrimLeadingSpace = true

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedExperiment, err)
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("%w: no samples", ErrMalformedExperiment)
	}
	for i, h := range experimentHeader {
		if records[0][i] != h {
			return nil, fmt.Errorf("%w: expected header %v, got %v", ErrMalformedExperiment, experimentHeader, records[0])
		}
	}

	var history, u, y, times []float64
	for i, record := range records[1:] {
		line := i + 2
		t, err := strconv.ParseFloat(record[0], 64)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrMalformedExperiment, line, err)
		}
		yk, err := strconv.ParseFloat(record[2], 64)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrMalformedExperiment, line, err)
		}
		if t < 0 {
			if len(u) > 0 {
				return nil, fmt.Errorf("%w: line %d: history row after first sample", ErrMalformedExperiment, line)
			}
			history = append(history, yk)
			continue
		}
		uk, err := strconv.ParseFloat(record[1], 64)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrMalformedExperiment, line, err)
		}
		times = append(times, t)
		u = append(u, uk)
		y = append(y, yk)
	}

	if dt <= 0 {
		if len(times) < 2 {
			return nil, fmt.Errorf("%w: cannot infer sampling period from %d samples", ErrMalformedExperiment, len(times))
		}
		dt = times[1] - times[0]
		// undo the rounding of the time column
		dt = math.Round(dt*1e9) / 1e9
	}

	y0 := make([]float64, len(history))
	for i, v := range history {
		y0[len(history)-1-i] = v
	}
	return iddata.New(y, u, dt, y0)
}
