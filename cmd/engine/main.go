package main

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/sparecast/sparecast/internal/config"
	"github.com/sparecast/sparecast/internal/domain"
	"github.com/sparecast/sparecast/internal/engine"
	"github.com/sparecast/sparecast/internal/repository/postgres"
	"github.com/sparecast/sparecast/internal/storage"
	"github.com/sparecast/sparecast/pkg/logger"
)

func newDBURLFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:     "db-url",
		Usage:    "Database connection string",
		Required: true,
		EnvVars:  []string{"DATABASE_URL"},
	}
}

func openDB(c *cli.Context) (*postgres.DB, error) {
	return postgres.NewDBFromURL("pgx", c.String("db-url"))
}

func newEngine(db *postgres.DB, withExport bool) (*engine.Engine, error) {
	cfg := config.Load()

	itemRepo := postgres.NewItemRepository(db)

	var exporter engine.Exporter
	if withExport && cfg.Export.Enabled {
		store, err := storage.NewMinioClient(cfg.Export)
		if err != nil {
			return nil, fmt.Errorf("init object storage: %w", err)
		}
		exporter = storage.NewRunExporter(store)
	}

	return engine.New(engine.Deps{
		Items:       itemRepo,
		Consumption: postgres.NewConsumptionRepository(db),
		Ledger:      itemRepo,
		Results:     postgres.NewResultRepository(db),
		Runs:        postgres.NewRunRepository(db),
		Exporter:    exporter,
	}, cfg.Engine), nil
}

func main() {
	if err := godotenv.Load(".env"); err != nil {
		logger.Log.Debug().Err(err).Msg("no .env file loaded")
	}

	app := &cli.App{
		Name:  "engine",
		Usage: "Run the spare-part classification and forecasting pipeline",
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "Execute a full classification and forecasting run",
				Flags: []cli.Flag{newDBURLFlag()},
				Action: func(c *cli.Context) error {
					db, err := openDB(c)
					if err != nil {
						return err
					}
					defer db.Close()

					eng, err := newEngine(db, true)
					if err != nil {
						return err
					}

					run, err := eng.RunOnce(c.Context)
					if err != nil {
						return err
					}

					fmt.Printf("run %s completed: %d items, %d fallback, %d suggestions\n",
						run.ID, run.TotalItems, run.FallbackUsed, run.Suggestions)
					return nil
				},
			},
			{
				Name:  "retry",
				Usage: "Re-execute a failed run",
				Flags: []cli.Flag{
					newDBURLFlag(),
					&cli.StringFlag{
						Name:     "run-id",
						Usage:    "ID of the run to retry",
						Required: true,
					},
				},
				Action: func(c *cli.Context) error {
					db, err := openDB(c)
					if err != nil {
						return err
					}
					defer db.Close()

					runs := postgres.NewRunRepository(db)
					run, err := runs.Get(c.Context, c.String("run-id"))
					if err != nil {
						return err
					}
					if run == nil {
						return fmt.Errorf("run %s not found", c.String("run-id"))
					}
					if run.Status != domain.RunFailed {
						return fmt.Errorf("run %s is %s, only failed runs can be retried", run.ID, run.Status)
					}

					eng, err := newEngine(db, true)
					if err != nil {
						return err
					}

					run.ErrorMessage = ""
					if err := eng.Execute(c.Context, run); err != nil {
						return err
					}

					fmt.Printf("run %s completed: %d items, %d fallback, %d suggestions\n",
						run.ID, run.TotalItems, run.FallbackUsed, run.Suggestions)
					return nil
				},
			},
			{
				Name:  "runs",
				Usage: "List recent runs",
				Flags: []cli.Flag{
					newDBURLFlag(),
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Number of runs to show",
						Value: 20,
					},
				},
				Action: func(c *cli.Context) error {
					db, err := openDB(c)
					if err != nil {
						return err
					}
					defer db.Close()

					runs, err := postgres.NewRunRepository(db).Recent(c.Context, c.Int("limit"))
					if err != nil {
						return err
					}

					for _, run := range runs {
						fmt.Printf("%s  %s  %-9s  items=%d fallback=%d suggestions=%d\n",
							run.ID, run.Period, run.Status, run.TotalItems, run.FallbackUsed, run.Suggestions)
						if run.ErrorMessage != "" {
							fmt.Printf("    error: %s\n", run.ErrorMessage)
						}
					}
					return nil
				},
			},
			{
				Name:  "export",
				Usage: "Re-export a completed run's classification snapshot",
				Flags: []cli.Flag{
					newDBURLFlag(),
					&cli.StringFlag{
						Name:     "run-id",
						Usage:    "ID of the run to export",
						Required: true,
					},
				},
				Action: exportRun,
			},
			{
				Name:  "seed",
				Usage: "Load item master and consumption history from CSV files",
				Flags: []cli.Flag{
					newDBURLFlag(),
					&cli.StringFlag{
						Name:  "items-csv",
						Usage: "CSV file with item master rows",
					},
					&cli.StringFlag{
						Name:  "consumption-csv",
						Usage: "CSV file with consumption records",
					},
				},
				Action: runSeeder,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		logger.Log.Fatal().Err(err).Msg("engine command failed")
	}
}

func exportRun(c *cli.Context) error {
	db, err := openDB(c)
	if err != nil {
		return err
	}
	defer db.Close()

	cfg := config.Load()
	if !cfg.Export.Enabled {
		return fmt.Errorf("export is disabled, set EXPORT_ENABLED=true")
	}
	store, err := storage.NewMinioClient(cfg.Export)
	if err != nil {
		return fmt.Errorf("init object storage: %w", err)
	}

	run, err := postgres.NewRunRepository(db).Get(c.Context, c.String("run-id"))
	if err != nil {
		return err
	}
	if run == nil {
		return fmt.Errorf("run %s not found", c.String("run-id"))
	}
	if run.Status != domain.RunCompleted {
		return fmt.Errorf("run %s is %s, only completed runs can be exported", run.ID, run.Status)
	}

	results, _, err := postgres.NewResultRepository(db).LatestClassifications(c.Context, domain.ClassificationFilter{
		Period:   run.Period,
		PageSize: run.TotalItems + 1,
	})
	if err != nil {
		return err
	}

	return storage.NewRunExporter(store).ExportRun(c.Context, run, results)
}

func runSeeder(c *cli.Context) error {
	db, err := openDB(c)
	if err != nil {
		return err
	}
	defer db.Close()

	if path := c.String("items-csv"); path != "" {
		n, err := seedItems(c, db, path)
		if err != nil {
			return fmt.Errorf("seed items: %w", err)
		}
		fmt.Printf("seeded %d items\n", n)
	}

	if path := c.String("consumption-csv"); path != "" {
		n, err := seedConsumption(c, db, path)
		if err != nil {
			return fmt.Errorf("seed consumption: %w", err)
		}
		fmt.Printf("seeded %d consumption records\n", n)
	}

	return nil
}

// seedItems loads rows of: code,name,unit_price,criticality,lead_time_days,substitution_difficulty
func seedItems(c *cli.Context, db *postgres.DB, path string) (int, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	// Skip header
	if _, err := reader.Read(); err != nil {
		return 0, err
	}

	count := 0
	err = db.WithTx(c.Context, func(tx *sqlx.Tx) error {
		stmt, err := tx.PrepareContext(c.Context, `
			INSERT INTO items (code, name, unit_price, criticality, lead_time_days, substitution_difficulty)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (code) DO UPDATE SET
				name = EXCLUDED.name,
				unit_price = EXCLUDED.unit_price,
				criticality = EXCLUDED.criticality,
				lead_time_days = EXCLUDED.lead_time_days,
				substitution_difficulty = EXCLUDED.substitution_difficulty
		`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for {
			record, err := reader.Read()
			if err == io.EOF {
				break
			}
			if err != nil {
				return err
			}
			if len(record) < 6 {
				return fmt.Errorf("line %d: expected 6 columns, got %d", count+2, len(record))
			}

			leadTime, _ := strconv.Atoi(strings.TrimSpace(record[4]))
			difficulty, _ := strconv.Atoi(strings.TrimSpace(record[5]))

			if _, err := stmt.ExecContext(c.Context,
				strings.TrimSpace(record[0]),
				strings.TrimSpace(record[1]),
				strings.TrimSpace(record[2]),
				strings.ToUpper(strings.TrimSpace(record[3])),
				leadTime,
				difficulty,
			); err != nil {
				return fmt.Errorf("insert item %s: %w", record[0], err)
			}
			count++
		}
		return nil
	})

	return count, err
}

// seedConsumption loads rows of: item_code,consumed_at,quantity
func seedConsumption(c *cli.Context, db *postgres.DB, path string) (int, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	if _, err := reader.Read(); err != nil {
		return 0, err
	}

	count := 0
	err = db.WithTx(c.Context, func(tx *sqlx.Tx) error {
		stmt, err := tx.PrepareContext(c.Context, `
			INSERT INTO consumption_records (item_code, consumed_at, quantity)
			VALUES ($1, $2, $3)
		`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for {
			record, err := reader.Read()
			if err == io.EOF {
				break
			}
			if err != nil {
				return err
			}
			if len(record) < 3 {
				return fmt.Errorf("line %d: expected 3 columns, got %d", count+2, len(record))
			}

			qty, err := strconv.Atoi(strings.TrimSpace(record[2]))
			if err != nil {
				return fmt.Errorf("line %d: invalid quantity %q", count+2, record[2])
			}

			if _, err := stmt.ExecContext(c.Context,
				strings.TrimSpace(record[0]),
				strings.TrimSpace(record[1]),
				qty,
			); err != nil {
				return fmt.Errorf("insert consumption for %s: %w", record[0], err)
			}
			count++
		}
		return nil
	})

	return count, err
}
