package nn

import (
	"encoding/json"
	"fmt"
	"os"
)

// Package nn holds the geometry, label format and model descriptor of the parking lot dataset.
// To resolve a model by name, use the nnload package.

// DefaultOccupancyThreshold is the IoU that a vehicle must exceed for a spot to be occupied
const DefaultOccupancyThreshold = 0.4

// ModelConfigVersion is the current version of the ModelConfig JSON file
const ModelConfigVersion = 1

// ModelConfig is saved in a JSON file along with the weights of the NN model.
// The file is named <weights>.json, eg "yolov8n.pt.json".
type ModelConfig struct {
	Version       int      `json:"version"`
	Architecture  string   `json:"architecture"`  // eg "yolov8"
	Width         int      `json:"width"`         // eg 640
	Height        int      `json:"height"`        // eg 640
	Classes       []string `json:"classes"`       // eg ["vehicle", "accessible parking spot", "parking spot"]
	NumParameters int64    `json:"numParameters"` // Total number of weights
	Summary       string   `json:"summary"`       // Free-form layer summary, written by the export tool
}

// Returns the path of the JSON descriptor that accompanies a weights file
func ModelConfigPath(weightsPath string) string {
	return weightsPath + ".json"
}

// Load model config from a JSON file
func LoadModelConfig(filename string) (*ModelConfig, error) {
	b, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	config := &ModelConfig{}
	err = json.Unmarshal(b, config)
	if err != nil {
		return nil, fmt.Errorf("Failed to decode model config %v: %w", filename, err)
	}
	if config.Version > ModelConfigVersion {
		return nil, fmt.Errorf("Model config %v has version %v, but we only understand up to version %v", filename, config.Version, ModelConfigVersion)
	}
	return config, nil
}

// Save model config to a JSON file
func (c *ModelConfig) Save(filename string) error {
	if c.Version == 0 {
		c.Version = ModelConfigVersion
	}
	b, err := json.MarshalIndent(c, "", "\t")
	if err != nil {
		return err
	}
	return os.WriteFile(filename, b, 0644)
}
