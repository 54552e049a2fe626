package render

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/cyclopcam/logs"
	"github.com/cyclopcam/parkinglot/pkg/dataset"
	"github.com/cyclopcam/parkinglot/pkg/imagefile"
	"github.com/cyclopcam/parkinglot/pkg/nn"
	"github.com/cyclopcam/parkinglot/pkg/occupancy"
	"github.com/cyclopcam/parkinglot/pkg/perfstats"
	"github.com/cyclopcam/parkinglot/pkg/resultsdb"
	"github.com/cyclopcam/parkinglot/pkg/storage"
)

// Name of the CSV file written at the root of the output location
const TallyCSV = "output.csv"

// RunRecorder saves the tallies of a batch. It is satisfied by *resultsdb.ResultsDB.
type RunRecorder interface {
	AddRun(run *resultsdb.Run, tallies []occupancy.Tally) error
}

// BatchOptions for ProcessImages
type BatchOptions struct {
	Options
	Dataset         string          // Dataset root, containing images/ and labels/
	Output          storage.Storage // Rendered images go to images/<file>, and the tally to output.csv
	Quality         int             // JPEG/WebP quality of rendered images
	ContinueOnError bool            // Log and skip an image that fails, instead of aborting

	// If ModelLabelsDir is set, the vehicles in the dataset labels are replaced by the
	// vehicles that a model predicted, which are read from this directory.
	Model          string // Display name of the model, for logs and the results DB
	ModelLabelsDir string
	ScratchDir     string // Working directory for the merged labels. Required when ModelLabelsDir is set.

	Recorder RunRecorder // Optional
}

// BatchResult of ProcessImages
type BatchResult struct {
	Tallies []occupancy.Tally // One per successfully rendered image, in filename order
	Failed  []string          // Images that were skipped because of an error
	RunID   int64             // ID of the run in the results DB, if a Recorder was given
}

// ProcessImages renders every image in the dataset, and writes the tally of all images to output.csv.
//
// If the labels cannot be found, it logs the fact, and returns an empty result along with an error
// that wraps dataset.ErrNoLabels.
func ProcessImages(ctx context.Context, log logs.Log, opts *BatchOptions) (*BatchResult, error) {
	labelsDir, err := resolveLabels(log, opts)
	if err != nil {
		if errors.Is(err, dataset.ErrNoLabels) {
			if opts.Model != "" {
				log.Errorf("No labels found for model %v. Make sure that the model name is correct, or train the model first.", opts.Model)
			} else {
				log.Errorf("No labels found in %v", opts.Dataset)
			}
			return &BatchResult{}, err
		}
		return nil, err
	}

	images, err := dataset.ListImages(opts.Dataset)
	if err != nil {
		return nil, fmt.Errorf("Failed to list images: %w", err)
	}

	log.Infof("Processing %v images", len(images))
	result := &BatchResult{}
	stages := perfstats.NewStages()
	for _, name := range images {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		tally, err := processImage(ctx, log, opts, stages, labelsDir, name)
		if err != nil {
			if !opts.ContinueOnError {
				return result, fmt.Errorf("Failed to process %v: %w", name, err)
			}
			log.Warnf("Skipping %v: %v", name, err)
			result.Failed = append(result.Failed, name)
			continue
		}
		result.Tallies = append(result.Tallies, tally)
	}
	log.Infof("Processed %v images", len(result.Tallies))
	if len(result.Tallies) != 0 {
		log.Infof("Average time per image: %v", stages.Summary())
	}

	if err := writeTallyCSV(ctx, opts.Output, result.Tallies); err != nil {
		return result, fmt.Errorf("Failed to write %v: %w", TallyCSV, err)
	}

	if opts.Recorder != nil {
		run := &resultsdb.Run{
			Dataset:   opts.Dataset,
			Model:     opts.Model,
			Threshold: opts.Threshold,
			Output:    opts.Output.Location(),
		}
		if err := opts.Recorder.AddRun(run, result.Tallies); err != nil {
			return result, fmt.Errorf("Failed to record run: %w", err)
		}
		result.RunID = run.ID
	}
	return result, nil
}

// Returns the directory from which to read the labels of each image
func resolveLabels(log logs.Log, opts *BatchOptions) (string, error) {
	if opts.ModelLabelsDir == "" {
		dir := dataset.LabelsPath(opts.Dataset)
		if st, err := os.Stat(dir); err != nil || !st.IsDir() {
			return "", fmt.Errorf("%w in %v", dataset.ErrNoLabels, dir)
		}
		return dir, nil
	}
	if st, err := os.Stat(opts.ModelLabelsDir); err != nil || !st.IsDir() {
		return "", fmt.Errorf("%w in %v", dataset.ErrNoLabels, opts.ModelLabelsDir)
	}
	log.Infof("Using labels from %v", opts.ModelLabelsDir)
	return dataset.StripVehicles(opts.Dataset, opts.ModelLabelsDir, opts.ScratchDir)
}

func processImage(ctx context.Context, log logs.Log, opts *BatchOptions, stages *perfstats.Stages, labelsDir, name string) (occupancy.Tally, error) {
	start := time.Now()
	img, err := imagefile.Load(filepath.Join(dataset.ImagesPath(opts.Dataset), name))
	if err != nil {
		return occupancy.Tally{}, err
	}
	boxes, err := nn.LoadLabelFile(dataset.LabelFile(labelsDir, name))
	if errors.Is(err, os.ErrNotExist) {
		log.Warnf("No label file for %v", name)
		boxes = nil
	} else if err != nil {
		return occupancy.Tally{}, err
	}

	stages.Since("load", start)

	start = time.Now()
	annotated, tally, err := Annotate(img, boxes, &opts.Options)
	if err != nil {
		return occupancy.Tally{}, err
	}
	tally.ImageFile = name
	stages.Since("draw", start)

	start = time.Now()
	var buf bytes.Buffer
	if err := imagefile.Encode(&buf, annotated, filepath.Ext(name), opts.Quality); err != nil {
		return occupancy.Tally{}, err
	}
	if err := storage.WriteFile(ctx, opts.Output, dataset.ImagesDir+"/"+name, &buf); err != nil {
		return occupancy.Tally{}, err
	}
	stages.Since("write", start)
	return tally, nil
}

func writeTallyCSV(ctx context.Context, out storage.Storage, tallies []occupancy.Tally) error {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(occupancy.TallyHeader); err != nil {
		return err
	}
	for i := range tallies {
		if err := w.Write(tallies[i].Record()); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	return storage.WriteFile(ctx, out, TallyCSV, &buf)
}
