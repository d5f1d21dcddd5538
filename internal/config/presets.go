package config

import "sort"

// Presets are the usual fixed-structure controller bases. With θ = (a, b)
// the PI controller is a/(z-1) + b·z/(z-1); the derivative term is the
// backward difference (z-1)/z.
var Presets = map[string][]TFConfig{
	"p": {
		{Num: []float64{1}, Den: []float64{1}},
	},
	"i": {
		{Num: []float64{1}, Den: []float64{1, -1}},
	},
	"pi": {
		{Num: []float64{1}, Den: []float64{1, -1}},
		{Num: []float64{1, 0}, Den: []float64{1, -1}},
	},
	"pd": {
		{Num: []float64{1}, Den: []float64{1}},
		{Num: []float64{1, -1}, Den: []float64{1, 0}},
	},
	"pid": {
		{Num: []float64{1}, Den: []float64{1}},
		{Num: []float64{1, 0}, Den: []float64{1, -1}},
		{Num: []float64{1, -1}, Den: []float64{1, 0}},
	},
}

func GetPreset(name string) []TFConfig {
	basis, ok := Presets[name]
	if !ok {
		return nil
	}
	return basis
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
