package main

import (
	"context"
	"log"
	"time"

	"rewards/internal/services"

	"github.com/go-redsync/redsync/v4"
	"github.com/robfig/cron/v3"
)

type ReconcileJob struct {
	serviceConfig       *services.ServiceConfig
	servicePointsLedger *services.ServicePointsLedger
	rs                  *redsync.Redsync
}

func NewReconcileJob(serviceConfig *services.ServiceConfig, servicePointsLedger *services.ServicePointsLedger, rs *redsync.Redsync) *ReconcileJob {
	return &ReconcileJob{serviceConfig, servicePointsLedger, rs}
}

func (j *ReconcileJob) Start(cronRunner *cron.Cron) error {
	timeline := schedule(j.serviceConfig, services.CONFIG_CRONJOB_TIME_RECONCILE, services.DEFAULT_CRONJOB_TIME_RECONCILE)
	_, err := cronRunner.AddFunc(timeline, j.runScheduledTask)
	log.Println("Reconcile Cronjob start at:", time.Now().Format("2006-01-02 15:04:05"), "cron:", timeline, err)
	return err
}

func (j *ReconcileJob) runScheduledTask() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Hour)
	defer cancel()

	exclusive(ctx, j.rs, services.LockKeyReconcile(), time.Hour, func(ctx context.Context) {
		log.Println("Start reconciling points balances ...")
		drifts, err := j.servicePointsLedger.ReconcileAll(ctx, services.RECONCILE_BATCH_SIZE)
		if err != nil {
			log.Println("reconcile:", err)
		}
		log.Println("Points balances reconciled, repaired:", len(drifts))
	})
}
