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

// ExpirySweepJob flips overdue vouchers to expired so the shelf never
// offers a voucher past its window.
type ExpirySweepJob struct {
	Container *do.Injector
}

func NewExpirySweepJob(container *do.Injector) *ExpirySweepJob {
	return &ExpirySweepJob{Container: container}
}

func (j *ExpirySweepJob) Start(cronRunner *cron.Cron) {
	postgresDB, err := do.Invoke[*bun.DB](j.Container)
	if err != nil {
		fmt.Println(err)
		return
	}

	timeline, err := datastore.GetConfigByKey(context.Background(), postgresDB, services.CONFIG_CRONJOB_TIME_EXPIRY_SWEEP)
	if err != nil {
		fmt.Println(err)
		return
	}

	if timeline == nil || timeline.Value == "" {
		fmt.Println("No timeline found")
		return
	}

	_, err = cronRunner.AddFunc(timeline.Value, j.run)
	log.Println("Expiry sweep cronjob start at:", time.Now().Format("2006-01-02 15:04:05"), "cron:", timeline.Value, err)
	j.run()
}

func (j *ExpirySweepJob) run() {
	serviceVoucher, err := do.Invoke[*services.ServiceVoucher](j.Container)
	if err != nil {
		log.Println(err)
		return
	}

	if _, err := serviceVoucher.SweepExpired(context.Background()); err != nil {
		log.Println("expiry sweep failed:", err)
	}
}
