package augment

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/cyclopcam/logs"
	"github.com/cyclopcam/parkinglot/pkg/dataset"
	"github.com/cyclopcam/parkinglot/pkg/imagefile"
	"github.com/cyclopcam/parkinglot/pkg/nn"
)

// Options for AugmentDataset
type Options struct {
	Angles          []float64 // Rotation angles in degrees, counter-clockwise
	Quality         int       // JPEG quality of the rotated images
	ContinueOnError bool      // Log and skip an image that fails, instead of aborting
}

func DefaultOptions() *Options {
	return &Options{
		Angles:          []float64{30, 60},
		Quality:         imagefile.DefaultQuality,
		ContinueOnError: true,
	}
}

// Filename suffix for the i'th angle: "_rotated", "_rotated2", "_rotated3", ...
func Suffix(i int) string {
	if i == 0 {
		return "_rotated"
	}
	return fmt.Sprintf("_rotated%d", i+1)
}

// Result of AugmentDataset
type Result struct {
	Images int      // Number of source images that were augmented
	Failed []string // Source images that were skipped because of an error
}

// AugmentDataset rotates every .jpg image in root/images by each of the angles,
// and writes the rotated image and its labels next to the originals:
//
//	images/a.jpg -> images/a_rotated.jpg, labels/a_rotated.txt  (first angle)
//	             -> images/a_rotated2.jpg, labels/a_rotated2.txt (second angle)
//
// Rotated boxes whose center leaves the image are dropped.
func AugmentDataset(ctx context.Context, log logs.Log, root string, opts *Options) (*Result, error) {
	if opts == nil {
		opts = DefaultOptions()
	}
	files, err := dataset.ListFiles(dataset.ImagesPath(root))
	if err != nil {
		return nil, fmt.Errorf("Failed to list images: %w", err)
	}
	result := &Result{}
	for _, name := range files {
		if !strings.HasSuffix(name, ".jpg") {
			continue
		}
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if err := augmentImage(root, name, opts); err != nil {
			if !opts.ContinueOnError {
				return result, err
			}
			log.Warnf("Skipping %v: %v", name, err)
			result.Failed = append(result.Failed, name)
			continue
		}
		result.Images++
	}
	log.Infof("Augmented %v images with %v rotations each", result.Images, len(opts.Angles))
	return result, nil
}

func augmentImage(root, name string, opts *Options) error {
	img, err := imagefile.Load(filepath.Join(dataset.ImagesPath(root), name))
	if err != nil {
		return err
	}
	labelsDir := dataset.LabelsPath(root)
	boxes, err := nn.LoadLabelFile(dataset.LabelFile(labelsDir, name))
	if err != nil {
		return err
	}
	stem := dataset.Stem(name)
	for i, angle := range opts.Angles {
		rotImg, rotBoxes := Rotate(img, boxes, angle)
		rotBoxes = KeepInside(rotBoxes)
		outStem := stem + Suffix(i)
		if err := nn.SaveLabelFile(filepath.Join(labelsDir, outStem+".txt"), rotBoxes); err != nil {
			return err
		}
		if err := imagefile.Save(rotImg, filepath.Join(dataset.ImagesPath(root), outStem+".jpg"), opts.Quality); err != nil {
			return err
		}
	}
	return nil
}
