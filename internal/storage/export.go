package storage

import (
	"encoding/json"
	"io"
	"os"

	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/vrft/internal/vrft"
)

type ExportData struct {
	Basis         string      `json:"basis"`
	Method        string      `json:"method"`
	Dt            float64     `json:"dt"`
	Samples       int         `json:"samples"`
	Warmup        int         `json:"warmup"`
	Theta         []float64   `json:"theta"`
	Controller    string      `json:"controller"`
	ControllerNum []float64   `json:"controller_num"`
	ControllerDen []float64   `json:"controller_den"`
	Loss          float64     `json:"loss"`
	ResidualNorm  float64     `json:"residual_norm"`
	Cond          float64     `json:"cond"`
	Covariance    [][]float64 `json:"covariance"`
	Residuals     []float64   `json:"residuals"`
	VirtualError  []float64   `json:"virtual_error"`
	// VirtualReference is M⁻¹·y over the experiment, shorter by the model delay.
	VirtualReference []float64 `json:"virtual_reference"`
}

func NewExportData(basis string, res *vrft.Result) ExportData {
	rows, _ := res.Problem.Dims()
	return ExportData{
		Basis:         basis,
		Method:        string(res.Estimate.Method),
		Dt:            res.Controller.Dt(),
		Samples:       rows,
		Warmup:        res.Problem.Warmup,
		Theta:         res.Theta,
		Controller:    res.Controller.String(),
		ControllerNum: res.Controller.Num(),
		ControllerDen: res.Controller.Den(),
		Loss:          res.Estimate.Loss,
		ResidualNorm:  res.Estimate.ResidualNorm,
		Cond:          res.Estimate.Cond,
		Covariance:    rowsOf(res.Estimate.Covariance),
		Residuals:     res.Estimate.Residuals,
		VirtualError:  res.Problem.VirtualError,

		VirtualReference: res.VirtualReference,
	}
}

func rowsOf(m *mat.Dense) [][]float64 {
	if m == nil {
		return nil
	}
	r, _ := m.Dims()
	out := make([][]float64, r)
	for i := range out {
		out[i] = mat.Row(nil, i, m)
	}
	return out
}

func ExportJSON(path, basis string, res *vrft.Result) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return WriteJSON(file, basis, res)
}

func WriteJSON(w io.Writer, basis string, res *vrft.Result) error {
	data := NewExportData(basis, res)
	return WriteExport(w, &data)
}

// WriteExport encodes data as indented JSON.
func WriteExport(w io.Writer, data *ExportData) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}
