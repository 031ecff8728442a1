package video

import (
	_ "embed"
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"
)

//go:embed models.yaml
var modelsYAML []byte

type Model struct {
	Key           string  `json:"key" yaml:"-"`
	Name          string  `json:"name" yaml:"name"`
	Endpoint      string  `json:"endpoint" yaml:"endpoint"`
	Cost          float64 `json:"cost" yaml:"cost"`
	MinDuration   float64 `json:"min_duration" yaml:"min_duration"`
	MaxDuration   float64 `json:"max_duration" yaml:"max_duration"`
	SupportsAudio bool    `json:"supports_audio" yaml:"supports_audio"`
	Description   string  `json:"description" yaml:"description"`
}

type catalog struct {
	Default string           `yaml:"default"`
	Models  map[string]Model `yaml:"models"`
}

var models catalog

func init() {
	if err := yaml.Unmarshal(modelsYAML, &models); err != nil {
		panic(fmt.Sprintf("video: bad embedded model catalog: %v", err))
	}
	for key, m := range models.Models {
		m.Key = key
		models.Models[key] = m
	}
}

// DefaultModel is the catalog fallback used for unknown model keys.
func DefaultModel() Model { return models.Models[models.Default] }

// Lookup resolves a model key, falling back to the default model.
func Lookup(key string) Model {
	if m, ok := models.Models[key]; ok {
		return m
	}
	return models.Models[models.Default]
}

// ListModels returns the catalog sorted by key.
func ListModels() []Model {
	out := make([]Model, 0, len(models.Models))
	for _, m := range models.Models {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}
