package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"math/rand"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/mroth/weightedrand/v2"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/urfave/cli/v2"

	"vouchswap/internal/datastore"
	"vouchswap/internal/models"
	"vouchswap/internal/pkg"
	"vouchswap/internal/services"
)

// seed user ids sit far above real Telegram ids so they are easy to spot
// and easy to wipe
const seedUserBase = int64(900000000)

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
		Name: "seed",
		Commands: []*cli.Command{
			commandSeed(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

// commandSeed fills a development database with users and a weighted
// voucher mix: small denominations are common, twenties are scarce, the
// same shape the live shelf settles into.
func commandSeed() *cli.Command {
	return &cli.Command{
		Name: "seed",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "users",
				Value: 5,
			},
			&cli.IntFlag{
				Name:  "vouchers",
				Value: 50,
			},
		},
		Action: func(c *cli.Context) error {
			ctx := context.Background()
			db, err := getDb()
			if err != nil {
				return err
			}

			chooser, err := weightedrand.NewChooser(
				weightedrand.NewChoice(5, 60),
				weightedrand.NewChoice(10, 30),
				weightedrand.NewChoice(20, 10),
			)
			if err != nil {
				return err
			}

			userCount := c.Int("users")
			userIDs := make([]int64, 0, userCount)

			for i := 0; i < userCount; i++ {
				userID := seedUserBase + int64(i+1)
				user := &models.User{
					ID:        userID,
					Username:  fmt.Sprintf("seed_user_%d", i+1),
					FirstName: "Seed",
					LastName:  fmt.Sprintf("User %d", i+1),
					Balance:   services.SIGNUP_BONUS_DEFAULT,
					CreatedAt: time.Now(),
					UpdatedAt: time.Now(),
				}

				if _, err := datastore.CreateUser(ctx, db, user); err != nil {
					fmt.Println(err)
					continue
				}

				// seed balances still need their ledger rows
				if _, err := datastore.CreateCoinTransaction(ctx, db, &models.CoinTransaction{
					UserID: userID,
					Kind:   models.TransactionKindSignupBonus,
					Amount: services.SIGNUP_BONUS_DEFAULT,
				}); err != nil {
					fmt.Println(err)
				}

				userIDs = append(userIDs, userID)
			}

			if len(userIDs) == 0 {
				return fmt.Errorf("no seed users created")
			}

			now := time.Now()
			created := 0

			for i := 0; i < c.Int("vouchers"); i++ {
				denomination := chooser.Pick()
				validFrom := pkg.StartOfDay(now.AddDate(0, 0, -rand.Intn(7)))
				expiresAt := pkg.EndOfDay(now.AddDate(0, 0, rand.Intn(30)+1))
				barcode := fmt.Sprintf("SEED-%06d", i+1)

				voucher := &models.Voucher{
					Denomination: denomination,
					Status:       models.VoucherStatusAvailable,
					ImageRef:     fmt.Sprintf("seed:%06d", i+1),
					Barcode:      &barcode,
					ValidFrom:    &validFrom,
					ExpiresAt:    expiresAt,
					UploaderID:   userIDs[i%len(userIDs)],
					RawExtraction: map[string]interface{}{
						"denomination": denomination,
						"valid_from":   validFrom.Format("2006-01-02"),
						"expiry_date":  expiresAt.Format("2006-01-02"),
						"barcode":      barcode,
					},
					CreatedAt: now,
					UpdatedAt: now,
				}

				if _, err := datastore.CreateVoucher(ctx, db, voucher); err != nil {
					fmt.Println(err)
					continue
				}

				created++
			}

			for _, userID := range userIDs {
				if err := datastore.RecountUserStats(ctx, db, userID); err != nil {
					fmt.Println(err)
				}
			}

			fmt.Println("Seeded", len(userIDs), "users and", created, "vouchers")

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
