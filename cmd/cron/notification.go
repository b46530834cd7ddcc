package main

import (
	"context"
	"log"
	"time"

	"rewards/internal/services"

	"github.com/go-redsync/redsync/v4"
	"github.com/robfig/cron/v3"
)

type NotificationJob struct {
	serviceConfig       *services.ServiceConfig
	serviceNotification *services.ServiceNotification
	rs                  *redsync.Redsync
}

func NewNotificationJob(serviceConfig *services.ServiceConfig, serviceNotification *services.ServiceNotification, rs *redsync.Redsync) *NotificationJob {
	return &NotificationJob{serviceConfig, serviceNotification, rs}
}

func (j *NotificationJob) Start(cronRunner *cron.Cron) error {
	timeline := schedule(j.serviceConfig, services.CONFIG_CRONJOB_TIME_NOTIFICATION, services.DEFAULT_CRONJOB_TIME_NOTIFICATION)
	_, err := cronRunner.AddFunc(timeline, j.runScheduledTask)
	log.Println("Notification Cronjob start at:", time.Now().Format("2006-01-02 15:04:05"), "cron:", timeline, err)
	if err != nil {
		return err
	}

	// events a previous dispatcher claimed but never acked
	exclusive(context.Background(), j.rs, services.LockKeyNotificationDispatch(), time.Minute, func(ctx context.Context) {
		recovered, err := j.serviceNotification.Recover(ctx)
		if err != nil {
			log.Println("notification recover:", err)
			return
		}
		log.Println("notification recovered", recovered)
	})
	return nil
}

func (j *NotificationJob) runScheduledTask() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	exclusive(ctx, j.rs, services.LockKeyNotificationDispatch(), 2*time.Minute, func(ctx context.Context) {
		delivered, err := j.serviceNotification.Dispatch(ctx, services.NOTIFICATION_BATCH_SIZE)
		if err != nil {
			log.Println("notification dispatch:", err)
		}
		if delivered > 0 {
			log.Println("notification delivered", delivered)
		}
	})
}
