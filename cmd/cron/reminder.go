package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/samber/do"
	"github.com/uptrace/bun"

	"vouchswap/internal/datastore"
	"vouchswap/internal/services"
)

// ReminderJob nudges claimers whose vouchers expire within the configured
// horizon. Each voucher is reminded at most once.
type ReminderJob struct {
	Container *do.Injector
}

func NewReminderJob(container *do.Injector) *ReminderJob {
	return &ReminderJob{Container: container}
}

func (j *ReminderJob) Start(cronRunner *cron.Cron) {
	postgresDB, err := do.Invoke[*bun.DB](j.Container)
	if err != nil {
		fmt.Println(err)
		return
	}

	timeline, err := datastore.GetConfigByKey(context.Background(), postgresDB, services.CONFIG_CRONJOB_TIME_REMINDER)
	if err != nil {
		fmt.Println(err)
		return
	}

	if timeline == nil || timeline.Value == "" {
		fmt.Println("No timeline found")
		return
	}

	_, err = cronRunner.AddFunc(timeline.Value, j.run)
	log.Println("Reminder cronjob start at:", time.Now().Format("2006-01-02 15:04:05"), "cron:", timeline.Value, err)
	j.run()
}

func (j *ReminderJob) run() {
	serviceVoucher, err := do.Invoke[*services.ServiceVoucher](j.Container)
	if err != nil {
		log.Println(err)
		return
	}

	reminded, err := serviceVoucher.RemindExpiringClaims(context.Background())
	if err != nil {
		log.Println("expiry reminders failed:", err)
		return
	}

	log.Println("expiry reminders sent:", reminded)
}
