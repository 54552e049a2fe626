package nn

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseBox(t *testing.T) {
	b, err := ParseBox("2 0.5 0.25 0.1 0.2")
	require.NoError(t, err)
	require.Equal(t, Box{Class: 2, CX: 0.5, CY: 0.25, W: 0.1, H: 0.2}, b)

	b, err = ParseBox("  0.0\t0.5 0.5 0.2 0.2  ")
	require.NoError(t, err)
	require.Equal(t, ClassVehicle, b.Class)

	bad := []string{
		"",
		"0 0.5 0.5 0.2",
		"0 0.5 0.5 0.2 0.2 0.9",
		"x 0.5 0.5 0.2 0.2",
		"0 0.5 abc 0.2 0.2",
		"1.5 0.5 0.5 0.2 0.2",
		"-1 0.5 0.5 0.2 0.2",
		"0 0.5 0.5 -0.2 0.2",
		"0 NaN 0.5 0.2 0.2",
	}
	for _, line := range bad {
		_, err := ParseBox(line)
		require.ErrorIs(t, err, ErrMalformedLabel, "line: %q", line)
	}
}

func TestBoxToRect(t *testing.T) {
	b := Box{Class: 0, CX: 0.5, CY: 0.5, W: 0.2, H: 0.2}
	require.Equal(t, MakeRectLTRB(40, 40, 60, 60), b.ToRect(100, 100))

	// Truncation, not rounding
	b = Box{Class: 1, CX: 0.5, CY: 0.5, W: 0.33, H: 0.33}
	require.Equal(t, MakeRectLTRB(33, 33, 66, 66), b.ToRect(100, 100))
}

func TestParseLabels(t *testing.T) {
	src := "0 0.5 0.5 0.2 0.2\n\n2 0.5 0.5 0.3 0.3\n"
	boxes, err := ParseLabels(strings.NewReader(src), "a.txt")
	require.NoError(t, err)
	require.Len(t, boxes, 2)
	require.Equal(t, ClassSpot, boxes[1].Class)

	_, err = ParseLabels(strings.NewReader("0 0.5 0.5 0.2 0.2\n1 0.5\n"), "b.txt")
	require.ErrorIs(t, err, ErrMalformedLabel)
	var perr *ParseError
	require.True(t, errors.As(err, &perr))
	require.Equal(t, "b.txt", perr.File)
	require.Equal(t, 2, perr.Line)
	require.Equal(t, "1 0.5", perr.Text)
}

func TestLabelFileRoundTrip(t *testing.T) {
	fn := filepath.Join(t.TempDir(), "x.txt")
	boxes := []Box{
		{Class: 0, CX: 0.5, CY: 0.5, W: 0.2, H: 0.2},
		{Class: 1, CX: 0.125, CY: 0.75, W: 1, H: 0.0625},
	}
	require.NoError(t, SaveLabelFile(fn, boxes))
	loaded, err := LoadLabelFile(fn)
	require.NoError(t, err)
	require.Equal(t, boxes, loaded)
	require.Equal(t, "1 0.125 0.75 1 0.0625", boxes[1].String())
}

func TestLineClass(t *testing.T) {
	c, ok := LineClass("10 0.5 0.5 0.1 0.1")
	require.True(t, ok)
	require.Equal(t, 10, c)

	c, ok = LineClass("0 0.5 0.5 0.1 0.1")
	require.True(t, ok)
	require.Equal(t, 0, c)

	_, ok = LineClass("   ")
	require.False(t, ok)
	_, ok = LineClass("car 0.5 0.5 0.1 0.1")
	require.False(t, ok)
}

func TestModelConfig(t *testing.T) {
	fn := filepath.Join(t.TempDir(), "best.pt.json")
	cfg := &ModelConfig{
		Architecture:  "yolov8",
		Width:         640,
		Height:        640,
		Classes:       ParkingClasses,
		NumParameters: 3011043,
	}
	require.NoError(t, cfg.Save(fn))
	loaded, err := LoadModelConfig(fn)
	require.NoError(t, err)
	require.Equal(t, ModelConfigVersion, loaded.Version)
	require.Equal(t, cfg.Classes, loaded.Classes)

	cfg.Version = ModelConfigVersion + 1
	require.NoError(t, cfg.Save(fn))
	_, err = LoadModelConfig(fn)
	require.Error(t, err)
}
