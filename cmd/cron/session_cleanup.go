package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"github.com/samber/do"
	"github.com/uptrace/bun"

	"vouchswap/internal/datastore"
	"vouchswap/internal/datastore/redis_store"
	"vouchswap/internal/services"
)

// sessions the photo never arrived for are dropped after a day
const sessionMaxAge = 24 * time.Hour

type SessionCleanupJob struct {
	Container *do.Injector
}

func NewSessionCleanupJob(container *do.Injector) *SessionCleanupJob {
	return &SessionCleanupJob{Container: container}
}

func (j *SessionCleanupJob) Start(cronRunner *cron.Cron) {
	postgresDB, err := do.Invoke[*bun.DB](j.Container)
	if err != nil {
		fmt.Println(err)
		return
	}

	timeline, err := datastore.GetConfigByKey(context.Background(), postgresDB, services.CONFIG_CRONJOB_TIME_SESSION_CLEANUP)
	if err != nil {
		fmt.Println(err)
		return
	}

	if timeline == nil || timeline.Value == "" {
		fmt.Println("No timeline found")
		return
	}

	_, err = cronRunner.AddFunc(timeline.Value, j.run)
	log.Println("Session cleanup cronjob start at:", time.Now().Format("2006-01-02 15:04:05"), "cron:", timeline.Value, err)
	j.run()
}

func (j *SessionCleanupJob) run() {
	dbRedis, err := do.InvokeNamed[redis.UniversalClient](j.Container, "redis-db")
	if err != nil {
		log.Println(err)
		return
	}

	deleted, err := redis_store.CleanupStaleUploadSessions(context.Background(), dbRedis, time.Now().Add(-sessionMaxAge))
	if err != nil {
		log.Println("session cleanup failed:", err)
		return
	}

	if deleted > 0 {
		log.Println("stale upload sessions dropped:", deleted)
	}
}
