package main

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"os/signal"
	"strconv"
	"strings"

	"github.com/akamensky/argparse"
	"github.com/cyclopcam/logs"
	"github.com/cyclopcam/parkinglot/pkg/augment"
	"github.com/cyclopcam/parkinglot/pkg/config"
	"github.com/cyclopcam/parkinglot/pkg/dataset"
	"github.com/cyclopcam/parkinglot/pkg/nnload"
	"github.com/cyclopcam/parkinglot/pkg/render"
	"github.com/cyclopcam/parkinglot/pkg/resultsdb"
	"github.com/cyclopcam/parkinglot/pkg/storage"
)

func check(err error) {
	if err != nil {
		panic(err)
	}
}

func fail(logger logs.Log, format string, args ...any) {
	logger.Errorf(format, args...)
	os.Exit(1)
}

func main() {
	parser := argparse.NewParser("parkinglot", "Parking lot occupancy dataset tools")
	configFile := parser.String("c", "config", &argparse.Options{Help: "JSON config file"})
	rootDir := parser.String("r", "root", &argparse.Options{Help: "Repository root (overrides the config file). Default is the current directory"})

	renderCmd := parser.NewCommand("render", "Draw spot occupancy onto every image of a dataset, and write output.csv")
	renderData := renderCmd.String("d", "data", &argparse.Options{Help: "Dataset directory, containing images/ and labels/", Required: true})
	renderOut := renderCmd.String("o", "output", &argparse.Options{Help: "Output directory, or gs://bucket/prefix", Required: true})
	renderModel := renderCmd.String("m", "model", &argparse.Options{Help: "Replace the dataset's vehicles with those predicted by this model (name or path to labels)"})
	renderThreshold := renderCmd.Float("t", "threshold", &argparse.Options{Help: "IoU that a vehicle must exceed for a spot to be occupied (default from config)", Default: -1.0})
	renderNoVehicles := renderCmd.Flag("", "no-vehicles", &argparse.Options{Help: "Don't draw vehicle boxes"})
	renderDB := renderCmd.String("", "db", &argparse.Options{Help: "Record the run in this SQLite database (default from config)"})

	splitCmd := parser.NewCommand("split", "Write train.txt and val.txt")
	splitData := splitCmd.String("d", "data", &argparse.Options{Help: "Dataset directory", Required: true})
	splitFraction := splitCmd.Float("f", "fraction", &argparse.Options{Help: "Fraction of images used for training (default from config)", Default: -1.0})
	splitSeed := splitCmd.Int("s", "seed", &argparse.Options{Help: "Random seed, for a reproducible split. 0 is random", Default: 0})

	stripCmd := parser.NewCommand("strip-vehicles", "Copy the dataset labels to the scratch directory, replacing the vehicles with a model's predictions")
	stripData := stripCmd.String("d", "data", &argparse.Options{Help: "Dataset directory", Required: true})
	stripModel := stripCmd.String("m", "model", &argparse.Options{Help: "Model name, or path to predicted labels", Required: true})

	onlyCmd := parser.NewCommand("only-vehicles", "Remove every label that is not a vehicle, in place")
	onlyLabels := onlyCmd.String("l", "labels", &argparse.Options{Help: "Labels directory", Required: true})

	augmentCmd := parser.NewCommand("augment", "Add rotated copies of every .jpg image and its labels")
	augmentData := augmentCmd.String("d", "data", &argparse.Options{Help: "Dataset directory", Required: true})
	augmentAngles := augmentCmd.String("a", "angles", &argparse.Options{Help: "Comma-separated rotation angles in degrees (default from config)"})

	weightsCmd := parser.NewCommand("weights", "Show where the weights of a model are found")
	weightsModel := weightsCmd.String("m", "model", &argparse.Options{Help: "Model name or path", Required: true})
	weightsYolo := weightsCmd.Selector("y", "yolo", []string{"5", "8"}, &argparse.Options{Help: "YOLO version", Default: "8"})

	infoCmd := parser.NewCommand("model-info", "Print the summary of a trained model")
	infoModel := infoCmd.String("m", "model", &argparse.Options{Help: "Model name or path", Required: true})

	err := parser.Parse(os.Args)
	if err != nil {
		fmt.Print(parser.Usage(err))
		os.Exit(1)
	}

	logger, err := logs.NewLog()
	check(err)

	var cfg *config.Config
	if *configFile != "" {
		cfg, err = config.LoadConfig(*configFile)
		check(err)
	} else {
		cfg = config.Default("")
	}
	if *rootDir != "" {
		cfg.SetRoot(*rootDir)
	} else if cfg.Root == "" {
		cfg.SetRoot(".")
	}
	if err := cfg.Validate(); err != nil {
		fail(logger, "Invalid configuration: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	switch {
	case renderCmd.Happened():
		palette, err := cfg.Palette.RenderPalette()
		check(err)
		out, err := storage.Open(ctx, logger, *renderOut)
		check(err)
		opts := &render.BatchOptions{
			Options: render.Options{
				Threshold:         cfg.Threshold,
				HighlightVehicles: cfg.HighlightVehicles && !*renderNoVehicles,
				Palette:           palette,
			},
			Dataset:         *renderData,
			Output:          out,
			Quality:         cfg.JPEGQuality,
			ContinueOnError: cfg.ContinueOnError,
			ScratchDir:      cfg.ScratchDir,
		}
		if *renderThreshold >= 0 {
			opts.Threshold = *renderThreshold
		}
		if *renderModel != "" {
			ref := nnload.ParseModelRef(*renderModel)
			opts.Model = ref.Name()
			opts.ModelLabelsDir = nnload.ResultsLabelsDir(cfg, ref)
		}
		dbFile := cfg.ResultsDB
		if *renderDB != "" {
			dbFile = *renderDB
		}
		if dbFile != "" {
			db, err := resultsdb.Open(logger, dbFile)
			check(err)
			defer db.Close()
			opts.Recorder = db
		}
		res, err := render.ProcessImages(ctx, logger, opts)
		if errors.Is(err, dataset.ErrNoLabels) {
			return
		}
		check(err)
		logger.Infof("Rendered %v images to %v (%v failed)", len(res.Tallies), out.Location(), len(res.Failed))
	case splitCmd.Happened():
		fraction := cfg.TrainFraction
		if *splitFraction >= 0 {
			fraction = *splitFraction
		}
		var rng *rand.Rand
		if *splitSeed != 0 {
			rng = rand.New(rand.NewPCG(uint64(*splitSeed), 0))
		}
		train, val, err := dataset.Split(*splitData, fraction, rng)
		check(err)
		logger.Infof("Dataset split into %v training and %v validation images", len(train), len(val))
	case stripCmd.Happened():
		ref := nnload.ParseModelRef(*stripModel)
		dir, err := dataset.StripVehicles(*stripData, nnload.ResultsLabelsDir(cfg, ref), cfg.ScratchDir)
		check(err)
		fmt.Println(dir)
	case onlyCmd.Happened():
		n, err := dataset.KeepOnlyVehicles(*onlyLabels)
		check(err)
		logger.Infof("Only vehicle labels left, in %v files", n)
	case augmentCmd.Happened():
		opts := augment.DefaultOptions()
		opts.Angles = cfg.AugmentAngles
		opts.Quality = cfg.JPEGQuality
		opts.ContinueOnError = cfg.ContinueOnError
		if *augmentAngles != "" {
			opts.Angles, err = parseAngles(*augmentAngles)
			if err != nil {
				fail(logger, "%v", err)
			}
		}
		_, err := augment.AugmentDataset(ctx, logger, *augmentData, opts)
		check(err)
	case weightsCmd.Happened():
		w, err := nnload.ResolveWeights(cfg, nnload.ParseModelRef(*weightsModel), *weightsYolo)
		check(err)
		fmt.Printf("%v\t%v\tpretrained=%v\n", w.Name, w.Path, w.Pretrained)
	case infoCmd.Happened():
		info, err := nnload.ModelInformation(cfg, nnload.ParseModelRef(*infoModel))
		check(err)
		w := csv.NewWriter(os.Stdout)
		check(w.Write(nnload.InfoHeader))
		check(w.Write(info.Record()))
		w.Flush()
		check(w.Error())
	}
}

func parseAngles(s string) ([]float64, error) {
	angles := []float64{}
	for _, part := range strings.Split(s, ",") {
		a, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return nil, fmt.Errorf("Invalid angle '%v'", part)
		}
		angles = append(angles, a)
	}
	return angles, nil
}
