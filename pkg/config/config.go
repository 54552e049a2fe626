package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"image/color"
	"os"
	"path/filepath"

	"github.com/cyclopcam/parkinglot/pkg/nn"
	"github.com/cyclopcam/parkinglot/pkg/render"
	"github.com/lucasb-eyer/go-colorful"
)

// Palette holds the render colors as hex strings, eg "#ff0000"
type Palette struct {
	Vehicle         string `json:"vehicle"`         // Vehicle outline, when vehicles are highlighted
	Occupied        string `json:"occupied"`        // Occupied spot of either kind
	EmptyAccessible string `json:"emptyAccessible"` // Empty accessible spot
	EmptySpot       string `json:"emptySpot"`       // Empty regular spot
	Unknown         string `json:"unknown"`         // Any class outside of our taxonomy
}

type Config struct {
	Root              string    `json:"root"`              // Repository root. models/, results/ and .temp/ live here.
	ModelsDir         string    `json:"modelsDir"`         // Custom model weights. Default root/models
	ResultsDir        string    `json:"resultsDir"`        // Model predictions. Default root/results
	ScratchDir        string    `json:"scratchDir"`        // Working copy of merged labels. Default root/.temp/labels
	Threshold         float64   `json:"threshold"`         // IoU that a vehicle must exceed for a spot to be occupied
	HighlightVehicles bool      `json:"highlightVehicles"` // Draw vehicle boxes in the rendered images
	TrainFraction     float64   `json:"trainFraction"`     // Fraction of images that go into train.txt
	AugmentAngles     []float64 `json:"augmentAngles"`     // Rotation angles in degrees, counter-clockwise
	ContinueOnError   bool      `json:"continueOnError"`   // Log and skip a failing file, instead of aborting the batch
	ResultsDB         string    `json:"resultsDB"`         // If not empty, render runs are recorded in this SQLite file
	JPEGQuality       int       `json:"jpegQuality"`       // Quality of rendered and augmented JPEG images
	Palette           Palette   `json:"palette"`
}

func DefaultPalette() Palette {
	return Palette{
		Vehicle:         "#ffa500",
		Occupied:        "#ff0000",
		EmptyAccessible: "#0000ff",
		EmptySpot:       "#00ff00",
		Unknown:         "#000000",
	}
}

// Default returns the configuration that is used when no config file is given
func Default(root string) *Config {
	c := &Config{
		Root:              root,
		Threshold:         nn.DefaultOccupancyThreshold,
		HighlightVehicles: true,
		TrainFraction:     0.8,
		AugmentAngles:     []float64{30, 60},
		ContinueOnError:   true,
		JPEGQuality:       95,
		Palette:           DefaultPalette(),
	}
	c.resolvePaths()
	return c
}

// Fill in the directories that were left empty, relative to Root
func (c *Config) resolvePaths() {
	if c.Root == "" {
		return
	}
	if c.ModelsDir == "" {
		c.ModelsDir = filepath.Join(c.Root, "models")
	}
	if c.ResultsDir == "" {
		c.ResultsDir = filepath.Join(c.Root, "results")
	}
	if c.ScratchDir == "" {
		c.ScratchDir = filepath.Join(c.Root, ".temp", "labels")
	}
}

// SetRoot changes the repository root, and re-derives any directories that were derived from the old root
func (c *Config) SetRoot(root string) {
	old := Default(c.Root)
	if c.ModelsDir == old.ModelsDir {
		c.ModelsDir = ""
	}
	if c.ResultsDir == old.ResultsDir {
		c.ResultsDir = ""
	}
	if c.ScratchDir == old.ScratchDir {
		c.ScratchDir = ""
	}
	c.Root = root
	c.resolvePaths()
}

// LoadConfig reads a JSON config file. Fields that are absent from the file keep their default values.
func LoadConfig(filename string) (*Config, error) {
	raw, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("Error loading %v: %w", filename, err)
	}
	cfg := Default("")
	if err := json.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("Error loading as JSON %v: %w", filename, err)
	}
	cfg.resolvePaths()
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Root == "" {
		return errors.New("Repository root is not set")
	}
	if c.Threshold < 0 || c.Threshold > 1 {
		return fmt.Errorf("Threshold %v is outside of [0,1]", c.Threshold)
	}
	if c.TrainFraction < 0 || c.TrainFraction > 1 {
		return fmt.Errorf("Train fraction %v is outside of [0,1]", c.TrainFraction)
	}
	if c.JPEGQuality < 1 || c.JPEGQuality > 100 {
		return fmt.Errorf("JPEG quality %v is outside of [1,100]", c.JPEGQuality)
	}
	if _, err := c.Palette.RenderPalette(); err != nil {
		return err
	}
	return nil
}

func parseColor(name, hex string) (color.Color, error) {
	c, err := colorful.Hex(hex)
	if err != nil {
		return nil, fmt.Errorf("Invalid %v color '%v': %w", name, hex, err)
	}
	r, g, b := c.RGB255()
	return color.RGBA{r, g, b, 255}, nil
}

// Parse the hex colors
func (p *Palette) RenderPalette() (render.Palette, error) {
	var rp render.Palette
	var err error
	if rp.Vehicle, err = parseColor("vehicle", p.Vehicle); err != nil {
		return rp, err
	}
	if rp.Occupied, err = parseColor("occupied", p.Occupied); err != nil {
		return rp, err
	}
	if rp.EmptyAccessible, err = parseColor("emptyAccessible", p.EmptyAccessible); err != nil {
		return rp, err
	}
	if rp.EmptySpot, err = parseColor("emptySpot", p.EmptySpot); err != nil {
		return rp, err
	}
	if rp.Unknown, err = parseColor("unknown", p.Unknown); err != nil {
		return rp, err
	}
	return rp, nil
}
