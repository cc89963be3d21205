package main

import (
	"context"
	"database/sql"
	"encoding/csv"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/urfave/cli/v2"

	"vouchswap/internal/datastore"
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
		Name: "export",
		Commands: []*cli.Command{
			commandExportLedger(),
			commandExportVouchers(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

// commandExportLedger dumps the coin transactions of a date range to CSV,
// the format the bookkeeping side asked for.
func commandExportLedger() *cli.Command {
	return &cli.Command{
		Name: "ledger",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "from",
				Usage: "start date (inclusive), YYYY-MM-DD",
			},
			&cli.StringFlag{
				Name:  "to",
				Usage: "end date (exclusive), YYYY-MM-DD",
			},
			&cli.StringFlag{
				Name:  "output",
				Value: "./ledger.csv",
			},
		},
		Action: func(c *cli.Context) error {
			from, err := time.Parse("2006-01-02", c.String("from"))
			if err != nil {
				return fmt.Errorf("invalid from date: %w", err)
			}

			to, err := time.Parse("2006-01-02", c.String("to"))
			if err != nil {
				return fmt.Errorf("invalid to date: %w", err)
			}

			db, err := getDb()
			if err != nil {
				return err
			}

			file, err := os.Create(c.String("output"))
			if err != nil {
				return err
			}
			defer file.Close()

			w := csv.NewWriter(file)
			if err := w.Write([]string{"id", "user_id", "kind", "amount", "voucher_id", "created_at"}); err != nil {
				return err
			}

			limit := 100
			offset := 0
			total := 0
			ctx := context.Background()

			for {
				transactions, err := datastore.GetTransactionsBetween(ctx, db, from, to, limit, offset)
				if err != nil {
					return err
				}

				if len(transactions) == 0 {
					break
				}

				for _, transaction := range transactions {
					voucherID := ""
					if transaction.VoucherID != nil {
						voucherID = strconv.FormatInt(*transaction.VoucherID, 10)
					}

					if err := w.Write([]string{
						strconv.FormatInt(transaction.ID, 10),
						strconv.FormatInt(transaction.UserID, 10),
						transaction.Kind,
						strconv.Itoa(transaction.Amount),
						voucherID,
						transaction.CreatedAt.Format(time.RFC3339),
					}); err != nil {
						return err
					}
				}

				total += len(transactions)
				fmt.Println("done", offset, limit)

				offset += limit
			}

			w.Flush()
			if err := w.Error(); err != nil {
				return err
			}

			fmt.Println("Exported", total, "transactions to", c.String("output"))
			return nil
		},
	}
}

// commandExportVouchers dumps the whole voucher book to CSV.
func commandExportVouchers() *cli.Command {
	return &cli.Command{
		Name: "vouchers",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "output",
				Value: "./vouchers.csv",
			},
		},
		Action: func(c *cli.Context) error {
			db, err := getDb()
			if err != nil {
				return err
			}

			file, err := os.Create(c.String("output"))
			if err != nil {
				return err
			}
			defer file.Close()

			w := csv.NewWriter(file)
			if err := w.Write([]string{"id", "denomination", "status", "uploader_id", "claimer_id", "expires_at", "created_at"}); err != nil {
				return err
			}

			limit := 100
			offset := 0
			total := 0
			ctx := context.Background()

			for {
				vouchers, err := datastore.GetVouchersByLimit(ctx, db, limit, offset)
				if err != nil {
					return err
				}

				if len(vouchers) == 0 {
					break
				}

				for _, voucher := range vouchers {
					claimerID := ""
					if voucher.ClaimerID != nil {
						claimerID = strconv.FormatInt(*voucher.ClaimerID, 10)
					}

					if err := w.Write([]string{
						strconv.FormatInt(voucher.ID, 10),
						strconv.Itoa(voucher.Denomination),
						voucher.Status,
						strconv.FormatInt(voucher.UploaderID, 10),
						claimerID,
						voucher.ExpiresAt.Format(time.RFC3339),
						voucher.CreatedAt.Format(time.RFC3339),
					}); err != nil {
						return err
					}
				}

				total += len(vouchers)
				fmt.Println("done", offset, limit)

				offset += limit
			}

			w.Flush()
			if err := w.Error(); err != nil {
				return err
			}

			fmt.Println("Exported", total, "vouchers to", c.String("output"))
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
