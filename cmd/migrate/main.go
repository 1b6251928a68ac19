package main

import (
	"context"
	"database/sql"
	"encoding/csv"
	"fmt"
	"log"
	"os"
	"strconv"

	"greenloop/internal/datastore"
	"greenloop/internal/models"
	"greenloop/internal/services"

	"github.com/joho/godotenv"
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
			commandSchoolImport(),
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

			err = datastore.CreateTableSchool(ctx, db)
			if err != nil {
				log.Fatal(err)
			}

			err = datastore.CreateTableAvatar(ctx, db)
			if err != nil {
				log.Fatal(err)
			}

			err = datastore.CreateTableUser(ctx, db)
			if err != nil {
				log.Fatal(err)
			}

			err = datastore.CreateTableCheckin(ctx, db)
			if err != nil {
				log.Fatal(err)
			}

			err = datastore.CreateTableActivityRecord(ctx, db)
			if err != nil {
				log.Fatal(err)
			}

			err = datastore.CreateTableConfig(ctx, db)
			if err != nil {
				log.Fatal(err)
			}

			fmt.Println("Migration success")

			return nil
		},
	}
}

// insert default configs to db
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
				{Key: services.CONFIG_SERVER_MODE, Value: services.SERVER_MODE_PRODUCTION},
				{Key: services.CONFIG_TIMEZONE, Value: "UTC"},
				{Key: services.CONFIG_LEADERBOARD_TTL_SECONDS, Value: strconv.Itoa(services.SNAPSHOT_TTL_DEFAULT_SECONDS)},
				{Key: services.CONFIG_GLOBAL_LEADERBOARD_LIMIT, Value: strconv.Itoa(services.GLOBAL_LEADERBOARD_DEFAULT_LIMIT)},
				{Key: services.CONFIG_BUCKET_LEADERBOARD_LIMIT, Value: strconv.Itoa(services.BUCKET_LEADERBOARD_DEFAULT_LIMIT)},
				{Key: services.CONFIG_MAKEUP_QUOTA_PER_MONTH, Value: strconv.Itoa(services.MAKEUP_QUOTA_DEFAULT_MONTHLY)},
				{Key: services.CONFIG_ACTIVITY_BASE_POINTS, Value: strconv.Itoa(services.ACTIVITY_BASE_POINTS_DEFAULT)},
				{Key: services.CONFIG_CRONJOB_TIME_LEADERBOARD, Value: "@every 5m"},
			}

			for _, config := range configs {
				_, err = db.NewInsert().Model(&config).Exec(ctx)
				if err != nil {
					log.Println(err)
				}
			}

			fmt.Println("Migration success")

			return nil
		},
	}
}

// commandSchoolImport seeds the school table from a csv of
// "name,region_code" rows.
func commandSchoolImport() *cli.Command {
	return &cli.Command{
		Name: "import-schools",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "input",
				Value: "./schools.csv",
			},
		},
		Action: func(c *cli.Context) error {
			ctx := context.Background()

			db, err := getDb()
			if err != nil {
				log.Fatal(err)
			}

			inputPath := c.String("input")
			if _, err := os.Stat(inputPath); os.IsNotExist(err) {
				return err
			}

			file, err := os.Open(inputPath)
			if err != nil {
				return err
			}

			r := csv.NewReader(file)

			for {
				row, err := r.Read()
				if err != nil {
					break
				}

				if len(row) < 2 {
					continue
				}

				regionCode := row[1]
				school := &models.School{
					Name:       row[0],
					RegionCode: &regionCode,
				}

				_, err = datastore.CreateSchool(ctx, db, school)
				if err != nil {
					fmt.Println(err)
				}
			}

			fmt.Println("Import success")

			return nil
		},
	}
}

func getDb() (*bun.DB, error) {
	sqldb := sql.OpenDB(pgdriver.NewConnector(
		pgdriver.WithDSN(os.Getenv("DB_DSN")),
		pgdriver.WithPassword(os.Getenv("DB_PASSWORD")),
	))

	db := bun.NewDB(sqldb, pgdialect.New())
	return db, nil
}
