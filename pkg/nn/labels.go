package nn

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
)

// ErrMalformedLabel is wrapped by every ParseError
var ErrMalformedLabel = errors.New("Malformed label")

// Box is one line of a YOLO label file.
// CX, CY, W, H are fractions of the image width and height.
type Box struct {
	Class int     `json:"class"`
	CX    float64 `json:"cx"`
	CY    float64 `json:"cy"`
	W     float64 `json:"w"`
	H     float64 `json:"h"`
}

// ToRect converts the normalized box into pixel coordinates for an image of the given size.
// Edges are truncated toward zero.
func (b Box) ToRect(imgWidth, imgHeight int) Rect {
	fw := float64(imgWidth)
	fh := float64(imgHeight)
	left := int((b.CX - b.W/2) * fw)
	top := int((b.CY - b.H/2) * fh)
	right := int((b.CX + b.W/2) * fw)
	bottom := int((b.CY + b.H/2) * fh)
	return MakeRectLTRB(left, top, right, bottom)
}

// String formats the box as a label file line (without the newline)
func (b Box) String() string {
	return fmt.Sprintf("%v %v %v %v %v", b.Class, formatFloat(b.CX), formatFloat(b.CY), formatFloat(b.W), formatFloat(b.H))
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// ParseError describes a label line that could not be parsed
type ParseError struct {
	File string // May be empty if the labels did not come from a file
	Line int    // 1-based
	Text string
	Err  error
}

func (e *ParseError) Error() string {
	if e.File != "" {
		return fmt.Sprintf("%v:%v: %v (%q)", e.File, e.Line, e.Err, e.Text)
	}
	return fmt.Sprintf("line %v: %v (%q)", e.Line, e.Err, e.Text)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// ParseBox parses a single label line of the form "class cx cy w h".
func ParseBox(line string) (Box, error) {
	fields := strings.Fields(line)
	if len(fields) != 5 {
		return Box{}, fmt.Errorf("%w: expected 5 fields, got %v", ErrMalformedLabel, len(fields))
	}
	var v [5]float64
	for i, f := range fields {
		x, err := strconv.ParseFloat(f, 64)
		if err != nil || math.IsNaN(x) || math.IsInf(x, 0) {
			return Box{}, fmt.Errorf("%w: field %v is not a number", ErrMalformedLabel, i+1)
		}
		v[i] = x
	}
	// Class ids are sometimes written as "0.0" by python tooling
	if v[0] != math.Trunc(v[0]) || v[0] < 0 {
		return Box{}, fmt.Errorf("%w: invalid class id %v", ErrMalformedLabel, fields[0])
	}
	if v[3] < 0 || v[4] < 0 {
		return Box{}, fmt.Errorf("%w: negative box size", ErrMalformedLabel)
	}
	return Box{
		Class: int(v[0]),
		CX:    v[1],
		CY:    v[2],
		W:     v[3],
		H:     v[4],
	}, nil
}

// LineClass returns the class id of a label line, without validating the rest of the line.
// Returns false if the first field is not a class id.
func LineClass(line string) (int, bool) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return 0, false
	}
	f, err := strconv.ParseFloat(fields[0], 64)
	if err != nil || f != math.Trunc(f) || f < 0 {
		return 0, false
	}
	return int(f), true
}

// ParseLabels reads all boxes from r. Blank lines are ignored.
// The first malformed line aborts parsing with a *ParseError.
// filename is only used for error reporting.
func ParseLabels(r io.Reader, filename string) ([]Box, error) {
	boxes := []Box{}
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		box, err := ParseBox(line)
		if err != nil {
			return nil, &ParseError{
				File: filename,
				Line: lineNo,
				Text: line,
				Err:  err,
			}
		}
		boxes = append(boxes, box)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("Error reading labels %v: %w", filename, err)
	}
	return boxes, nil
}

// Load a YOLO label file
func LoadLabelFile(filename string) ([]Box, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ParseLabels(f, filename)
}

// Write boxes to w, one per line, each terminated by a newline
func WriteLabels(w io.Writer, boxes []Box) error {
	bw := bufio.NewWriter(w)
	for _, b := range boxes {
		if _, err := bw.WriteString(b.String() + "\n"); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// Save a YOLO label file, replacing any existing file
func SaveLabelFile(filename string, boxes []Box) error {
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	if err := WriteLabels(f, boxes); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
