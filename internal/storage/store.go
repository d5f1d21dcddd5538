package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/san-kum/vrft/internal/vrft"
)

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

// RunMetadata summarises one tuning run.
type RunMetadata struct {
	ID            string             `json:"id"`
	Basis         string             `json:"basis"`
	Timestamp     time.Time          `json:"timestamp"`
	Dt            float64            `json:"dt"`
	Method        string             `json:"method"`
	Samples       int                `json:"samples"`
	Warmup        int                `json:"warmup"`
	Theta         []float64          `json:"theta"`
	Loss          float64            `json:"loss"`
	ResidualNorm  float64            `json:"residual_norm"`
	Cond          float64            `json:"cond"`
	Controller    string             `json:"controller"`
	ControllerNum []float64          `json:"controller_num"`
	ControllerDen []float64          `json:"controller_den"`
	Metrics       map[string]float64 `json:"metrics,omitempty"`
}

// Save writes metadata.json, residuals.csv and the full result.json for res
// into a new run directory and returns the run ID.
func (s *Store) Save(basis string, res *vrft.Result, metrics map[string]float64) (string, error) {
	now := time.Now()
	runID := fmt.Sprintf("%s_%d", basis, now.UnixNano())
	runDir := filepath.Join(s.baseDir, runID)

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	rows, _ := res.Problem.Dims()
	meta := RunMetadata{
		ID:            runID,
		Basis:         basis,
		Timestamp:     now,
		Dt:            res.Controller.Dt(),
		Method:        string(res.Estimate.Method),
		Samples:       rows,
		Warmup:        res.Problem.Warmup,
		Theta:         res.Theta,
		Loss:          res.Estimate.Loss,
		ResidualNorm:  res.Estimate.ResidualNorm,
		Cond:          res.Estimate.Cond,
		Controller:    res.Controller.String(),
		ControllerNum: res.Controller.Num(),
		ControllerDen: res.Controller.Den(),
		Metrics:       metrics,
	}

	metaFile, err := os.Create(filepath.Join(runDir, "metadata.json"))
	if err != nil {
		return "", err
	}
	defer metaFile.Close()

	enc := json.NewEncoder(metaFile)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		return "", err
	}

	csvFile, err := os.Create(filepath.Join(runDir, "residuals.csv"))
	if err != nil {
		return "", err
	}
	defer csvFile.Close()

	w := csv.NewWriter(csvFile)
	if err := w.Write([]string{"k", "target", "residual", "virtual_error"}); err != nil {
		return "", err
	}
	for i, r := range res.Estimate.Residuals {
		row := []string{
			strconv.Itoa(res.Problem.Warmup + i),
			formatFloat(res.Problem.Target.AtVec(i)),
			formatFloat(r),
			formatFloat(res.Problem.VirtualError[i]),
		}
		if err := w.Write(row); err != nil {
			return "", err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", err
	}

	if err := ExportJSON(filepath.Join(runDir, "result.json"), basis, res); err != nil {
		return "", err
	}

	return runID, nil
}

// List returns the stored runs, oldest first. Directories without readable
// metadata are skipped.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}

	sort.Slice(runs, func(i, j int) bool { return runs[i].Timestamp.Before(runs[j].Timestamp) })
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, "metadata.json"))
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}

	return &meta, nil
}

// LoadExport reads the result.json written by Save.
func (s *Store) LoadExport(runID string) (*ExportData, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, "result.json"))
	if err != nil {
		return nil, err
	}

	var out ExportData
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// LoadResiduals reads back the residual column of a run together with the
// sample index of each row.
func (s *Store) LoadResiduals(runID string) ([]float64, []int, error) {
	file, err := os.Open(filepath.Join(s.baseDir, runID, "residuals.csv"))
	if err != nil {
		return nil, nil, err
	}
	defer file.Close()

	records, err := csv.NewReader(file).ReadAll()
	if err != nil {
		return nil, nil, err
	}

	if len(records) < 2 {
		return []float64{}, []int{}, nil
	}

	residuals := make([]float64, 0, len(records)-1)
	index := make([]int, 0, len(records)-1)
	for i, record := range records[1:] {
		k, err := strconv.Atoi(record[0])
		if err != nil {
			return nil, nil, fmt.Errorf("residuals.csv line %d: %w", i+2, err)
		}
		r, err := strconv.ParseFloat(record[2], 64)
		if err != nil {
			return nil, nil, fmt.Errorf("residuals.csv line %d: %w", i+2, err)
		}
		index = append(index, k)
		residuals = append(residuals, r)
	}

	return residuals, index, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
