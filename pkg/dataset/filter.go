package dataset

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/cyclopcam/parkinglot/pkg/iox"
	"github.com/cyclopcam/parkinglot/pkg/nn"
)

// Split content into lines, keeping the line terminators
func splitLines(content []byte) []string {
	if len(content) == 0 {
		return nil
	}
	return strings.SplitAfter(string(content), "\n")
}

func isVehicleLine(line string) bool {
	cls, ok := nn.LineClass(line)
	return ok && cls == nn.ClassVehicle
}

// Keep only the lines for which keep() returns true. Lines are copied byte for byte.
func filterLines(content []byte, keep func(line string) bool) []byte {
	var out bytes.Buffer
	for _, line := range splitLines(content) {
		if line != "" && keep(line) {
			out.WriteString(line)
		}
	}
	return out.Bytes()
}

// StripVehicles makes a working copy of root/labels in scratchDir, removes all vehicle lines
// from every label file, and appends the same-named file from replacementDir, if it exists.
// This lets us render the spots from the ground truth with the vehicles predicted by a model.
// Any previous content of scratchDir is deleted. Returns scratchDir.
func StripVehicles(root, replacementDir, scratchDir string) (string, error) {
	if scratchDir == "" {
		return "", errors.New("Scratch directory for labels is not set")
	}
	srcDir := LabelsPath(root)
	if !dirExists(srcDir) {
		return "", fmt.Errorf("%w in %v", ErrNoLabels, srcDir)
	}
	if err := os.RemoveAll(scratchDir); err != nil {
		return "", fmt.Errorf("Failed to delete %v: %w", scratchDir, err)
	}
	if err := os.MkdirAll(filepath.Dir(scratchDir), 0755); err != nil {
		return "", err
	}
	if err := iox.CopyDir(scratchDir, srcDir); err != nil {
		return "", fmt.Errorf("Failed to copy labels to %v: %w", scratchDir, err)
	}

	files, err := ListFiles(scratchDir)
	if err != nil {
		return "", err
	}
	for _, name := range files {
		fn := filepath.Join(scratchDir, name)
		content, err := os.ReadFile(fn)
		if err != nil {
			return "", err
		}
		out := filterLines(content, func(line string) bool { return !isVehicleLine(line) })
		if replacementDir == "" {
			if err := os.WriteFile(fn, out, 0644); err != nil {
				return "", err
			}
			continue
		}
		extra, err := os.ReadFile(filepath.Join(replacementDir, name))
		if err == nil {
			if len(out) != 0 && out[len(out)-1] != '\n' {
				out = append(out, '\n')
			}
			out = append(out, extra...)
		} else if !os.IsNotExist(err) {
			return "", err
		}
		if err := os.WriteFile(fn, out, 0644); err != nil {
			return "", err
		}
	}
	return scratchDir, nil
}

// KeepOnlyVehicles rewrites every .txt file in labelsDir, keeping only the vehicle lines.
// Returns the number of files that were rewritten.
func KeepOnlyVehicles(labelsDir string) (int, error) {
	files, err := ListFiles(labelsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, fmt.Errorf("%w in %v", ErrNoLabels, labelsDir)
		}
		return 0, err
	}
	n := 0
	for _, name := range files {
		if filepath.Ext(name) != ".txt" {
			continue
		}
		fn := filepath.Join(labelsDir, name)
		content, err := os.ReadFile(fn)
		if err != nil {
			return n, err
		}
		if err := os.WriteFile(fn, filterLines(content, isVehicleLine), 0644); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}
