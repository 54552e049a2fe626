package dataset

import (
	"fmt"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
)

const (
	TrainManifest = "train.txt"
	ValManifest   = "val.txt"
)

// Split shuffles the files in root/images, and writes the first floor(N * trainFraction)
// of them to root/train.txt, and the rest to root/val.txt.
// Each line is "./images/<file>".
// If rng is nil, the global random source is used.
func Split(root string, trainFraction float64, rng *rand.Rand) (train, val []string, err error) {
	if trainFraction < 0 || trainFraction > 1 || math.IsNaN(trainFraction) {
		return nil, nil, fmt.Errorf("Train fraction %v is outside of [0,1]", trainFraction)
	}
	files, err := ListFiles(ImagesPath(root))
	if err != nil {
		return nil, nil, err
	}
	all := make([]string, len(files))
	for i, f := range files {
		all[i] = "./" + ImagesDir + "/" + f
	}
	swap := func(i, j int) { all[i], all[j] = all[j], all[i] }
	if rng != nil {
		rng.Shuffle(len(all), swap)
	} else {
		rand.Shuffle(len(all), swap)
	}

	nTrain := int(math.Floor(float64(len(all)) * trainFraction))
	train = all[:nTrain]
	val = all[nTrain:]

	if err := writeManifest(filepath.Join(root, TrainManifest), train); err != nil {
		return nil, nil, err
	}
	if err := writeManifest(filepath.Join(root, ValManifest), val); err != nil {
		return nil, nil, err
	}
	return train, val, nil
}

func writeManifest(filename string, lines []string) error {
	var sb strings.Builder
	for _, l := range lines {
		sb.WriteString(l)
		sb.WriteByte('\n')
	}
	return os.WriteFile(filename, []byte(sb.String()), 0644)
}
