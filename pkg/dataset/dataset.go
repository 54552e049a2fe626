// Package dataset manipulates a YOLO dataset on disk.
//
//	root/images/<name>.jpg   raster images
//	root/labels/<name>.txt   one box per line, "class cx cy w h"
//	root/train.txt           manifest written by Split
//	root/val.txt             manifest written by Split
package dataset

import (
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/cyclopcam/parkinglot/pkg/imagefile"
)

const (
	ImagesDir = "images"
	LabelsDir = "labels"
)

// ErrNoLabels is returned when a labels directory does not exist
var ErrNoLabels = errors.New("No labels found")

func ImagesPath(root string) string {
	return filepath.Join(root, ImagesDir)
}

func LabelsPath(root string) string {
	return filepath.Join(root, LabelsDir)
}

// Returns the label file that is paired with an image, eg "a.b.jpg" -> "labelsDir/a.b.txt"
func LabelFile(labelsDir, imageName string) string {
	return filepath.Join(labelsDir, Stem(imageName)+".txt")
}

// Returns the filename without its directory and extension
func Stem(name string) string {
	base := filepath.Base(name)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// List the names of the regular files in dir, sorted
func ListFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	names := []string{}
	for _, e := range entries {
		if e.Type().IsRegular() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// List the names of the image files in root/images, sorted
func ListImages(root string) ([]string, error) {
	all, err := ListFiles(ImagesPath(root))
	if err != nil {
		return nil, err
	}
	images := []string{}
	for _, name := range all {
		if imagefile.IsImage(name) {
			images = append(images, name)
		}
	}
	return images, nil
}

func dirExists(dir string) bool {
	st, err := os.Stat(dir)
	return err == nil && st.IsDir()
}
