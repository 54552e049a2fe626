package render

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/cyclopcam/logs"
	"github.com/cyclopcam/parkinglot/pkg/dataset"
	"github.com/cyclopcam/parkinglot/pkg/imagefile"
	"github.com/cyclopcam/parkinglot/pkg/occupancy"
	"github.com/cyclopcam/parkinglot/pkg/resultsdb"
	"github.com/cyclopcam/parkinglot/pkg/storage"
	"github.com/stretchr/testify/require"
)

type memRecorder struct {
	runs    []*resultsdb.Run
	tallies [][]occupancy.Tally
}

func (m *memRecorder) AddRun(run *resultsdb.Run, tallies []occupancy.Tally) error {
	run.ID = int64(len(m.runs) + 1)
	m.runs = append(m.runs, run)
	m.tallies = append(m.tallies, tallies)
	return nil
}

func writeFile(t *testing.T, filename, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(filename), 0755))
	require.NoError(t, os.WriteFile(filename, []byte(content), 0644))
}

// Creates a dataset with two good images, one image without labels, and one broken image
func createDataset(t *testing.T, root string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "images"), 0755))
	for _, name := range []string{"a.png", "b.png", "nolabels.png"} {
		require.NoError(t, imagefile.Save(grayImage(200, 100), filepath.Join(root, "images", name), 0))
	}
	writeFile(t, filepath.Join(root, "images", "broken.png"), "not a png")
	writeFile(t, filepath.Join(root, "labels", "a.txt"), "0 0.5 0.5 0.2 0.2\n2 0.5 0.5 0.3 0.3\n")
	writeFile(t, filepath.Join(root, "labels", "b.txt"), "2 0.2 0.2 0.1 0.1\n1 0.8 0.8 0.1 0.1\n0 0.5 0.5 0.1 0.1\n")
	writeFile(t, filepath.Join(root, "labels", "broken.txt"), "")
}

func TestProcessImages(t *testing.T) {
	tmp := t.TempDir()
	root := filepath.Join(tmp, "data")
	createDataset(t, root)
	log := logs.NewTestingLog(t)
	out, err := storage.NewStorageFS(log, filepath.Join(tmp, "out"))
	require.NoError(t, err)
	rec := &memRecorder{}

	opts := &BatchOptions{
		Options:         *DefaultOptions(),
		Dataset:         root,
		Output:          out,
		ContinueOnError: true,
		Recorder:        rec,
	}
	opts.Threshold = 0.1
	res, err := ProcessImages(context.Background(), log, opts)
	require.NoError(t, err)
	require.Equal(t, []string{"broken.png"}, res.Failed)
	require.Len(t, res.Tallies, 3)
	require.Equal(t, int64(1), res.RunID)
	require.Len(t, rec.runs, 1)
	require.Equal(t, root, rec.runs[0].Dataset)

	require.Equal(t, "a.png", res.Tallies[0].ImageFile)
	require.Equal(t, 1, res.Tallies[0].OccupiedSpots)
	require.Equal(t, "b.png", res.Tallies[1].ImageFile)
	require.Equal(t, 1, res.Tallies[1].EmptySpots)
	require.Equal(t, 1, res.Tallies[1].EmptyAccessible)
	require.Equal(t, 1, res.Tallies[1].VehiclesInTransit)
	require.Equal(t, occupancy.Tally{ImageFile: "nolabels.png"}, res.Tallies[2])

	csv, err := os.ReadFile(filepath.Join(tmp, "out", "output.csv"))
	require.NoError(t, err)
	require.Equal(t,
		"Image File,Accessible parking spots,Parking spots,Vehicles,Empty accessible parking spots,Occupied accessible parking spots,Empty parking spots,Occupied parking spots,Vehicles in transit or parked in non-parking spots\n"+
			"a.png,0,1,1,0,0,0,1,0\n"+
			"b.png,1,1,1,1,0,1,0,1\n"+
			"nolabels.png,0,0,0,0,0,0,0,0\n",
		string(csv))

	rendered, err := imagefile.Load(filepath.Join(tmp, "out", "images", "a.png"))
	require.NoError(t, err)
	require.Equal(t, 200, rendered.Bounds().Dx())

	// Abort on the first error
	opts.ContinueOnError = false
	opts.Recorder = nil
	_, err = ProcessImages(context.Background(), log, opts)
	require.Error(t, err)
}

func TestProcessImagesWithModelLabels(t *testing.T) {
	tmp := t.TempDir()
	root := filepath.Join(tmp, "data")
	createDataset(t, root)
	log := logs.NewTestingLog(t)
	out, err := storage.NewStorageFS(log, filepath.Join(tmp, "out"))
	require.NoError(t, err)

	// The model found no vehicle in a.png, and a vehicle on the regular spot in b.png
	modelLabels := filepath.Join(tmp, "results", "best", "labels")
	writeFile(t, filepath.Join(modelLabels, "b.txt"), "0 0.2 0.2 0.1 0.1\n")

	opts := &BatchOptions{
		Options:         *DefaultOptions(),
		Dataset:         root,
		Output:          out,
		ContinueOnError: true,
		Model:           "best",
		ModelLabelsDir:  modelLabels,
		ScratchDir:      filepath.Join(tmp, ".temp", "labels"),
	}
	res, err := ProcessImages(context.Background(), log, opts)
	require.NoError(t, err)
	require.Len(t, res.Tallies, 3)
	require.Equal(t, 0, res.Tallies[0].Vehicles)
	require.Equal(t, 1, res.Tallies[0].EmptySpots)
	require.Equal(t, 1, res.Tallies[1].OccupiedSpots)
	require.Equal(t, 0, res.Tallies[1].VehiclesInTransit)

	// Missing model labels
	opts.ModelLabelsDir = filepath.Join(tmp, "results", "nope", "labels")
	res, err = ProcessImages(context.Background(), log, opts)
	require.ErrorIs(t, err, dataset.ErrNoLabels)
	require.NotNil(t, res)
	require.Empty(t, res.Tallies)
}

func TestProcessImagesCancelled(t *testing.T) {
	tmp := t.TempDir()
	root := filepath.Join(tmp, "data")
	createDataset(t, root)
	log := logs.NewTestingLog(t)
	out, err := storage.NewStorageFS(log, filepath.Join(tmp, "out"))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = ProcessImages(ctx, log, &BatchOptions{Options: *DefaultOptions(), Dataset: root, Output: out})
	require.ErrorIs(t, err, context.Canceled)
}
