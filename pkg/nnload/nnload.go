package nnload

// Package nnload resolves model references to weights files, prediction labels
// and model descriptors. A model is referred to either by name, which is looked up
// in the repository's models and results directories, or by an explicit path.

import (
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/cyclopcam/parkinglot/pkg/config"
	"github.com/cyclopcam/parkinglot/pkg/nn"
)

const WeightsExt = ".pt"

// Pretrained weights that the training tools download on demand.
// These are never looked up in the models directory.
var YOLOv5Pretrained = []string{
	"yolov5n.pt",
	"yolov5s.pt",
	"yolov5m.pt",
	"yolov5l.pt",
	"yolov5x.pt",
	"yolov5n6.pt",
	"yolov5s6.pt",
	"yolov5m6.pt",
	"yolov5l6.pt",
	"yolov5x6.pt",
}

var YOLOv8Pretrained = []string{
	"yolov8n.pt",
	"yolov8s.pt",
	"yolov8m.pt",
	"yolov8l.pt",
	"yolov8x.pt",
}

// Returns the pretrained catalog for a YOLO version ("5" or "8")
func Pretrained(yoloVersion string) ([]string, error) {
	switch yoloVersion {
	case "5":
		return YOLOv5Pretrained, nil
	case "8":
		return YOLOv8Pretrained, nil
	}
	return nil, fmt.Errorf("Unknown YOLO version '%v'. Valid versions are 5 and 8", yoloVersion)
}

type RefKind int

const (
	RefNamed RefKind = iota // Model name, resolved inside the repository
	RefPath                 // Explicit filesystem path
)

// ModelRef refers to a model either by name or by path
type ModelRef struct {
	Kind  RefKind
	Value string
}

func Named(name string) ModelRef {
	return ModelRef{Kind: RefNamed, Value: name}
}

func PathRef(path string) ModelRef {
	return ModelRef{Kind: RefPath, Value: path}
}

// ParseModelRef interprets a command line argument.
// Anything with a path separator is a path, and everything else is a name.
func ParseModelRef(s string) ModelRef {
	if strings.ContainsAny(s, `/\`) {
		return PathRef(s)
	}
	return Named(s)
}

func (r ModelRef) IsZero() bool {
	return r.Value == ""
}

func (r ModelRef) String() string {
	return r.Value
}

// Name of the model, without directory.
// Both separators are honored, because paths may come from another OS.
func (r ModelRef) Name() string {
	if r.Kind == RefNamed {
		return r.Value
	}
	v := r.Value
	if i := strings.LastIndexAny(v, `/\`); i != -1 {
		v = v[i+1:]
	}
	return v
}

func withWeightsExt(s string) string {
	if strings.HasSuffix(s, WeightsExt) {
		return s
	}
	return s + WeightsExt
}

// Weights is a resolved model weights file
type Weights struct {
	Name       string // eg "yolov8n.pt" or "best.pt"
	Path       string // For pretrained weights, this is the bare name
	Pretrained bool
}

// ResolveWeights finds the weights file of a model.
// The ".pt" extension is added if it is missing.
func ResolveWeights(cfg *config.Config, ref ModelRef, yoloVersion string) (Weights, error) {
	if ref.IsZero() {
		return Weights{}, errors.New("No model specified")
	}
	catalog, err := Pretrained(yoloVersion)
	if err != nil {
		return Weights{}, err
	}
	switch ref.Kind {
	case RefPath:
		p := withWeightsExt(ref.Value)
		return Weights{
			Name: withWeightsExt(ref.Name()),
			Path: p,
		}, nil
	default:
		name := withWeightsExt(ref.Value)
		if slices.Contains(catalog, name) {
			return Weights{
				Name:       name,
				Path:       name,
				Pretrained: true,
			}, nil
		}
		return Weights{
			Name: name,
			Path: filepath.Join(cfg.ModelsDir, name),
		}, nil
	}
}

// ResultsLabelsDir returns the directory that holds the labels predicted by a model
func ResultsLabelsDir(cfg *config.Config, ref ModelRef) string {
	if ref.Kind == RefPath {
		return ref.Value
	}
	return filepath.Join(cfg.ResultsDir, ref.Value, "labels")
}

// Info summarizes a model
type Info struct {
	Name          string
	Summary       string
	NumParameters int64
	Classes       []string
}

// InfoHeader holds the column names of Info.Record
var InfoHeader = []string{"Model Summary", "Number of Parameters", "Output Classes"}

func (i *Info) Record() []string {
	return []string{
		i.Summary,
		strconv.FormatInt(i.NumParameters, 10),
		strconv.Itoa(len(i.Classes)),
	}
}

// ModelInformation reads the descriptor that accompanies a model's weights.
// Named models are always looked up in the models directory, even if their
// name matches a pretrained model, since that is where the descriptor lives.
func ModelInformation(cfg *config.Config, ref ModelRef) (*Info, error) {
	if ref.IsZero() {
		return nil, errors.New("No model specified")
	}
	weights := withWeightsExt(ref.Value)
	if ref.Kind == RefNamed {
		weights = filepath.Join(cfg.ModelsDir, weights)
	}
	mc, err := nn.LoadModelConfig(nn.ModelConfigPath(weights))
	if err != nil {
		return nil, fmt.Errorf("Failed to load model descriptor for %v: %w", ref, err)
	}
	summary := mc.Summary
	if summary == "" {
		summary = fmt.Sprintf("%v %vx%v", mc.Architecture, mc.Width, mc.Height)
	}
	return &Info{
		Name:          withWeightsExt(ref.Name()),
		Summary:       summary,
		NumParameters: mc.NumParameters,
		Classes:       mc.Classes,
	}, nil
}
