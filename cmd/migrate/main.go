package main

import (
	"context"
	"database/sql"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"

	"rewards/internal/container"
	"rewards/internal/datastore"
	"rewards/internal/models"
	"rewards/internal/pkg/caching"
	"rewards/internal/services"

	"github.com/hiendaovinh/toolkit/pkg/env"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/samber/do"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/urfave/cli/v2"
)

func init() {
	// for development
	//nolint:errcheck
	godotenv.Load("../../.env")

	// for production
	//nolint:errcheck
	godotenv.Load("./.env")
}

func main() {
	app := &cli.App{
		Name: "migrate",
		Commands: []*cli.Command{
			commandMigration(),
			commandConfigMigration(),
			commandFlushCache(),
			commandImportPoints(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func commandMigration() *cli.Command {
	return &cli.Command{
		Name: "migrate",
		Action: func(c *cli.Context) error {
			ctx := context.Background()
			db, err := getDb()
			if err != nil {
				log.Fatal(err)
			}

			err = datastore.Migrate(ctx, db)
			if err != nil {
				log.Fatal(err)
			}

			fmt.Println("Migration success")
			return nil
		},
	}
}

func commandConfigMigration() *cli.Command {
	return &cli.Command{
		Name:        "migrate-config",
		Description: "Insert default configs to db",
		Action: func(c *cli.Context) error {
			ctx := context.Background()
			db, err := getDb()
			if err != nil {
				log.Fatal(err)
			}

			configs := []models.Config{
				{Key: services.CONFIG_DEFAULT_REDEMPTION_RATE_CENTS, Value: strconv.Itoa(services.DEFAULT_REDEMPTION_RATE_CENTS)},
				{Key: services.CONFIG_REDEMPTION_POLICY, Value: services.REDEMPTION_POLICY_CLAMP},
				{Key: services.CONFIG_CRONJOB_TIME_OUTBOX, Value: services.DEFAULT_CRONJOB_TIME_OUTBOX},
				{Key: services.CONFIG_CRONJOB_TIME_NOTIFICATION, Value: services.DEFAULT_CRONJOB_TIME_NOTIFICATION},
				{Key: services.CONFIG_CRONJOB_TIME_RECONCILE, Value: services.DEFAULT_CRONJOB_TIME_RECONCILE},
			}

			for _, config := range configs {
				_, err = db.NewInsert().Model(&config).On("CONFLICT (\"key\") DO NOTHING").Exec(ctx)
				if err != nil {
					log.Println(err)
				}
			}

			fmt.Println("Migration success")

			return nil
		},
	}
}

func commandFlushCache() *cli.Command {
	return &cli.Command{
		Name:        "flush-cache",
		Description: "Drop cached program snapshots and config values",
		Action: func(c *cli.Context) error {
			ctx := context.Background()
			injector := container.New(map[string]string{})

			dbRedis, err := do.InvokeNamed[redis.UniversalClient](injector, "redis-cache")
			if err != nil {
				return err
			}

			for _, pattern := range []string{services.DBKeyRewardsProgram("*"), services.DBKeyConfig("*")} {
				deleted, err := caching.DeleteKeys(ctx, dbRedis, pattern)
				if err != nil {
					return err
				}
				fmt.Println("flushed", pattern, deleted)
			}

			return nil
		},
	}
}

// commandImportPoints credits opening balances carried over from another loyalty system.
// Rows are user_id,seller_id,reference,points; the reference keeps re-runs idempotent.
func commandImportPoints() *cli.Command {
	return &cli.Command{
		Name: "import-points",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "input",
				Value: "./points.csv",
			},
		},
		Action: func(c *cli.Context) error {
			ctx := context.Background()

			inputPath := c.String("input")
			if _, err := os.Stat(inputPath); os.IsNotExist(err) {
				return err
			}

			file, err := os.Open(inputPath)
			if err != nil {
				return err
			}
			defer file.Close()

			injector := container.New(map[string]string{})
			servicePointsLedger, err := do.Invoke[*services.ServicePointsLedger](injector)
			if err != nil {
				return err
			}

			r := csv.NewReader(file)
			r.FieldsPerRecord = 4

			imported, skipped := 0, 0
			for {
				row, err := r.Read()
				if errors.Is(err, io.EOF) {
					break
				}
				if err != nil {
					return err
				}

				points, err := strconv.ParseInt(row[3], 10, 64)
				if err != nil {
					log.Println("skip row", row, err)
					skipped++
					continue
				}

				_, err = servicePointsLedger.Credit(ctx, row[0], row[1], "import:"+row[2], points, "Imported balance")
				if errors.Is(err, services.ErrDuplicateCredit) {
					skipped++
					continue
				}
				if err != nil {
					return err
				}
				imported++
			}

			fmt.Println("imported", imported, "skipped", skipped)
			return nil
		},
	}
}

func getDb() (*bun.DB, error) {
	vs, err := env.EnvsRequired("DB_DSN")
	if err != nil {
		return nil, err
	}

	sqldb := sql.OpenDB(pgdriver.NewConnector(
		pgdriver.WithDSN(vs["DB_DSN"]),
		pgdriver.WithPassword(os.Getenv("DB_PASSWORD")),
	))

	db := bun.NewDB(sqldb, pgdialect.New())
	return db, nil
}
