package main

import (
	"context"
	"log"
	"time"

	"rewards/internal/services"

	"github.com/robfig/cron/v3"
)

type OutboxJob struct {
	serviceConfig *services.ServiceConfig
	serviceOutbox *services.ServiceOutbox
}

func NewOutboxJob(serviceConfig *services.ServiceConfig, serviceOutbox *services.ServiceOutbox) *OutboxJob {
	return &OutboxJob{serviceConfig, serviceOutbox}
}

func (j *OutboxJob) Start(cronRunner *cron.Cron) error {
	timeline := schedule(j.serviceConfig, services.CONFIG_CRONJOB_TIME_OUTBOX, services.DEFAULT_CRONJOB_TIME_OUTBOX)
	_, err := cronRunner.AddFunc(timeline, j.runScheduledTask)
	log.Println("Outbox Cronjob start at:", time.Now().Format("2006-01-02 15:04:05"), "cron:", timeline, err)
	return err
}

func (j *OutboxJob) runScheduledTask() {
	ctx, cancel := context.WithTimeout(context.Background(), 4*time.Minute)
	defer cancel()

	processed, err := j.serviceOutbox.ProcessPending(ctx, services.OUTBOX_BATCH_SIZE)
	if err != nil {
		log.Println("outbox:", err)
	}
	if processed > 0 {
		log.Println("outbox: processed", processed)
	}
}
