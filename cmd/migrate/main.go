package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/urfave/cli/v2"

	"vouchswap/internal/datastore"
	"vouchswap/internal/models"
	"vouchswap/internal/services"
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
			commandRecount(),
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

			err = datastore.CreateTableUser(ctx, db)
			if err != nil {
				log.Fatal(err)
			}

			err = datastore.CreateTableVoucher(ctx, db)
			if err != nil {
				log.Fatal(err)
			}

			err = datastore.CreateTableReport(ctx, db)
			if err != nil {
				log.Fatal(err)
			}

			err = datastore.CreateTableCoinTransaction(ctx, db)
			if err != nil {
				log.Fatal(err)
			}

			err = datastore.CreateTableExtractionFailure(ctx, db)
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
				{Key: services.CONFIG_TIMEZONE, Value: services.DEFAULT_TIMEZONE},
				{Key: services.CONFIG_SIGNUP_BONUS, Value: "10"},
				{Key: services.CONFIG_HIGH_VOLUME_UPLOAD_COUNT, Value: "50"},
				{Key: services.CONFIG_REMINDER_HORIZON_HOURS, Value: "48"},
				{Key: services.CONFIG_APPEAL_CONTACT, Value: ""},
				{Key: services.CONFIG_ADMIN_CHAT_IDS, Value: ""},
				{Key: services.CONFIG_CRONJOB_TIME_EXPIRY_SWEEP, Value: "5 0 * * *"},
				{Key: services.CONFIG_CRONJOB_TIME_REMINDER, Value: "0 9 * * *"},
				{Key: services.CONFIG_CRONJOB_TIME_SESSION_CLEANUP, Value: "30 * * * *"},
			}

			for _, config := range configs {
				// keep whatever the operators already tuned
				err = datastore.UpsertConfig(ctx, db, config, false)
				if err != nil {
					log.Println(err)
				}
			}

			fmt.Println("Migration success")

			return nil
		},
	}
}

// commandRecount rebuilds the advisory per-user counters from the
// authoritative voucher and report rows.
func commandRecount() *cli.Command {
	return &cli.Command{
		Name: "recount",
		Action: func(c *cli.Context) error {
			ctx := context.Background()
			db, err := getDb()
			if err != nil {
				log.Fatal(err)
			}

			limit := 100
			offset := 0

			for {
				users, err := datastore.GetUsersByLimit(ctx, db, limit, offset)
				if err != nil {
					log.Fatal(err)
				}

				if len(users) == 0 {
					break
				}

				for _, user := range users {
					if err := datastore.RecountUserStats(ctx, db, user.ID); err != nil {
						fmt.Println(err)
					}
				}

				fmt.Println("Done", offset, limit)

				offset += limit
			}

			fmt.Println("Recount success")

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
