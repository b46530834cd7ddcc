package services

import "github.com/samber/do"

// Provide registers the rewards services. Storage, redis clients, caches, redsync,
// the limiter and the notification sink must be provided by the caller.
func Provide(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*ServiceConfig, error) {
		return NewServiceConfig(i)
	})

	do.Provide(injector, func(i *do.Injector) (*ServiceProgram, error) {
		return NewServiceProgram(i)
	})

	do.Provide(injector, func(i *do.Injector) (*ServicePointsLedger, error) {
		return NewServicePointsLedger(i)
	})

	do.Provide(injector, func(i *do.Injector) (*ServiceNotification, error) {
		return NewServiceNotification(i)
	})

	do.Provide(injector, func(i *do.Injector) (*ServiceEarn, error) {
		return NewServiceEarn(i)
	})

	do.Provide(injector, func(i *do.Injector) (*ServiceRedemption, error) {
		return NewServiceRedemption(i)
	})

	do.Provide(injector, func(i *do.Injector) (*ServiceOutbox, error) {
		return NewServiceOutbox(i)
	})
}
