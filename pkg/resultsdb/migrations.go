package resultsdb

import (
	"github.com/BurntSushi/migration"
	"github.com/cyclopcam/dbh"
	"github.com/cyclopcam/logs"
)

func Migrations(log logs.Log) []migration.Migrator {
	migs := []migration.Migrator{}
	idx := 0

	migs = append(migs, dbh.MakeMigrationFromSQL(log, &idx,
		`
		CREATE TABLE run(
			id INTEGER PRIMARY KEY,
			created_at INT NOT NULL,
			dataset TEXT NOT NULL,
			model TEXT,
			threshold REAL NOT NULL,
			output TEXT NOT NULL
		);

		CREATE TABLE image_tally(
			id INTEGER PRIMARY KEY,
			run_id INT NOT NULL,
			image_file TEXT NOT NULL,
			accessible_spots INT NOT NULL,
			spots INT NOT NULL,
			vehicles INT NOT NULL,
			empty_accessible INT NOT NULL,
			occupied_accessible INT NOT NULL,
			empty_spots INT NOT NULL,
			occupied_spots INT NOT NULL,
			vehicles_in_transit INT NOT NULL
		);

		CREATE INDEX idx_image_tally_run_id ON image_tally (run_id);
	`))

	return migs
}
