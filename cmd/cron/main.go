package main

import (
	"context"
	"log"
	"os"
	"time"

	"rewards/internal/container"
	"rewards/internal/services"

	"github.com/go-redsync/redsync/v4"
	"github.com/hiendaovinh/toolkit/pkg/env"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/samber/do"
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

type CronJob interface {
	Start(cronRunner *cron.Cron) error
}

func main() {
	vs, err := env.EnvsRequired(
		"DB_DSN",
	)
	if err != nil {
		log.Fatal(err)
	}

	injector := container.New(vs)

	app := &cli.App{
		Name: "cronjob",
		Commands: []*cli.Command{
			commandCronjob(injector),
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func commandCronjob(injector *do.Injector) *cli.Command {
	return &cli.Command{
		Name: "cron",
		Action: func(c *cli.Context) error {
			serviceConfig, err := do.Invoke[*services.ServiceConfig](injector)
			if err != nil {
				return err
			}
			serviceOutbox, err := do.Invoke[*services.ServiceOutbox](injector)
			if err != nil {
				return err
			}
			serviceNotification, err := do.Invoke[*services.ServiceNotification](injector)
			if err != nil {
				return err
			}
			servicePointsLedger, err := do.Invoke[*services.ServicePointsLedger](injector)
			if err != nil {
				return err
			}
			rs, err := do.Invoke[*redsync.Redsync](injector)
			if err != nil {
				return err
			}

			cronRunner := cron.New()
			jobs := []CronJob{
				NewOutboxJob(serviceConfig, serviceOutbox),
				NewNotificationJob(serviceConfig, serviceNotification, rs),
				NewReconcileJob(serviceConfig, servicePointsLedger, rs),
			}
			for _, job := range jobs {
				if err := job.Start(cronRunner); err != nil {
					return err
				}
			}

			log.Println("Start cronjob")
			cronRunner.Run()
			return nil
		},
	}
}

func schedule(serviceConfig *services.ServiceConfig, key string, defaultValue string) string {
	timeline, err := serviceConfig.GetStringConfig(context.Background(), key, defaultValue)
	if err != nil || timeline == "" {
		log.Println("cron: default schedule for", key, err)
		return defaultValue
	}
	return timeline
}

// exclusive runs fn only on the instance holding key; the others skip the tick.
func exclusive(ctx context.Context, rs *redsync.Redsync, key string, ttl time.Duration, fn func(ctx context.Context)) {
	mutex := rs.NewMutex(key, redsync.WithExpiry(ttl))
	if err := mutex.TryLockContext(ctx); err != nil {
		return
	}
	// nolint:errcheck
	defer mutex.Unlock()

	fn(ctx)
}
