// Package resultsdb keeps a history of render runs and their per-image tallies in SQLite,
// so that occupancy can be compared across models and datasets.
package resultsdb

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/cyclopcam/dbh"
	"github.com/cyclopcam/logs"
	"github.com/cyclopcam/parkinglot/pkg/occupancy"
	"gorm.io/gorm"
)

// BaseModel is our base class for a GORM model.
// The default GORM Model uses int, but we prefer int64
type BaseModel struct {
	ID int64 `gorm:"primaryKey" json:"id"`
}

// One execution of the render batch
type Run struct {
	BaseModel
	CreatedAt dbh.IntTime `json:"createdAt"`
	Dataset   string      `json:"dataset"` // Root of the dataset that was rendered
	Model     string      `json:"model"`   // Empty if the ground truth labels were rendered
	Threshold float64     `json:"threshold"`
	Output    string      `json:"output"` // Storage location of the rendered images
}

// Tally of one image in a run
type ImageTally struct {
	BaseModel
	RunID              int64  `json:"runID"`
	ImageFile          string `json:"imageFile"`
	AccessibleSpots    int    `json:"accessibleSpots"`
	Spots              int    `json:"spots"`
	Vehicles           int    `json:"vehicles"`
	EmptyAccessible    int    `json:"emptyAccessible"`
	OccupiedAccessible int    `json:"occupiedAccessible"`
	EmptySpots         int    `json:"emptySpots"`
	OccupiedSpots      int    `json:"occupiedSpots"`
	VehiclesInTransit  int    `json:"vehiclesInTransit"`
}

func (t *ImageTally) Tally() occupancy.Tally {
	return occupancy.Tally{
		ImageFile:          t.ImageFile,
		AccessibleSpots:    t.AccessibleSpots,
		Spots:              t.Spots,
		Vehicles:           t.Vehicles,
		EmptyAccessible:    t.EmptyAccessible,
		OccupiedAccessible: t.OccupiedAccessible,
		EmptySpots:         t.EmptySpots,
		OccupiedSpots:      t.OccupiedSpots,
		VehiclesInTransit:  t.VehiclesInTransit,
	}
}

func makeImageTally(runID int64, t *occupancy.Tally) *ImageTally {
	return &ImageTally{
		RunID:              runID,
		ImageFile:          t.ImageFile,
		AccessibleSpots:    t.AccessibleSpots,
		Spots:              t.Spots,
		Vehicles:           t.Vehicles,
		EmptyAccessible:    t.EmptyAccessible,
		OccupiedAccessible: t.OccupiedAccessible,
		EmptySpots:         t.EmptySpots,
		OccupiedSpots:      t.OccupiedSpots,
		VehiclesInTransit:  t.VehiclesInTransit,
	}
}

type ResultsDB struct {
	log logs.Log
	db  *gorm.DB
}

// Open or create a results DB
func Open(log logs.Log, dbFilename string) (*ResultsDB, error) {
	if err := os.MkdirAll(filepath.Dir(dbFilename), 0755); err != nil {
		return nil, fmt.Errorf("Failed to create directory for results database %v: %w", dbFilename, err)
	}
	log.Infof("Opening results DB at '%v'", dbFilename)
	db, err := dbh.OpenDB(log, dbh.MakeSqliteConfig(dbFilename), Migrations(log), 0)
	if err != nil {
		return nil, fmt.Errorf("Failed to open results database %v: %w", dbFilename, err)
	}
	return &ResultsDB{
		log: log,
		db:  db,
	}, nil
}

func (r *ResultsDB) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Save a run and all of its tallies in a single transaction.
// run.ID is populated on success.
func (r *ResultsDB) AddRun(run *Run, tallies []occupancy.Tally) error {
	if run.CreatedAt.IsZero() {
		run.CreatedAt = dbh.MakeIntTime(time.Now())
	}
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(run).Error; err != nil {
			return err
		}
		for i := range tallies {
			if err := tx.Create(makeImageTally(run.ID, &tallies[i])).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// Returns all runs, newest first
func (r *ResultsDB) Runs() ([]Run, error) {
	runs := []Run{}
	err := r.db.Order("created_at DESC, id DESC").Find(&runs).Error
	return runs, err
}

// Returns the tallies of a run, in the order in which they were added
func (r *ResultsDB) Tallies(runID int64) ([]occupancy.Tally, error) {
	rows := []ImageTally{}
	if err := r.db.Where("run_id = ?", runID).Order("id").Find(&rows).Error; err != nil {
		return nil, err
	}
	tallies := make([]occupancy.Tally, 0, len(rows))
	for i := range rows {
		tallies = append(tallies, rows[i].Tally())
	}
	return tallies, nil
}
