package main

import (
	"log"
	"os"

	"vouchswap/internal/pkg/container"

	"github.com/hiendaovinh/toolkit/pkg/env"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
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
		Name: "cronjob",
		Commands: []*cli.Command{
			commandCronjob(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func commandCronjob() *cli.Command {
	return &cli.Command{
		Name: "cron",
		Action: func(c *cli.Context) error {
			vs, err := env.EnvsRequired(
				"BOT_TOKEN",
				"DB_DSN",
			)
			if err != nil {
				return err
			}

			injector := container.New(vs)

			cronRunner := cron.New()

			NewExpirySweepJob(injector).Start(cronRunner)
			NewReminderJob(injector).Start(cronRunner)
			NewSessionCleanupJob(injector).Start(cronRunner)

			log.Println("Start cronjob")
			cronRunner.Run()
			return nil
		},
	}
}
