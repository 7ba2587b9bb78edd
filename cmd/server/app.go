package main

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/iliyamo/clinic-booking/internal/config"
	"github.com/iliyamo/clinic-booking/internal/database"
	"github.com/iliyamo/clinic-booking/internal/logger"
	"github.com/iliyamo/clinic-booking/internal/notify"
	"github.com/iliyamo/clinic-booking/internal/queue"
	"github.com/iliyamo/clinic-booking/internal/repository"
	"github.com/iliyamo/clinic-booking/internal/repository/memstore"
	"github.com/iliyamo/clinic-booking/internal/service"
	"github.com/iliyamo/clinic-booking/internal/utils"
)

// app holds the wired services shared by every subcommand.
type app struct {
	cfg config.Config
	log *zap.Logger
	db  *sql.DB // nil with the memory driver

	providers    *service.ProviderService
	inventory    *service.InventoryService
	reservations *service.ReservationService
	dispatcher   *notify.Dispatcher

	// consumer is set only with the amqp queue driver; serve runs it.
	consumer *queue.Consumer
	closers  []func()
}

type stores struct {
	providers service.ProviderStore
	slots     service.SlotStore
	bookings  service.BookingStore
}

// bootstrap loads configuration and builds a logger.
func bootstrap() (config.Config, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return cfg, nil, err
	}
	log, err := logger.New(cfg.Env)
	if err != nil {
		return cfg, nil, err
	}
	return cfg, log, nil
}

// newApp opens storage and wires services.  Close releases everything it
// opened, in reverse order.
func newApp(ctx context.Context, cfg config.Config, log *zap.Logger) (*app, error) {
	a := &app{cfg: cfg, log: log}

	st, err := a.openStores(ctx)
	if err != nil {
		return nil, err
	}

	phones, err := utils.NewPhoneValidator(cfg.PhonePattern)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("PHONE_PATTERN: %w", err)
	}

	a.dispatcher = notify.NewDispatcher(st.bookings, st.providers,
		notify.NewChannels(notify.TwilioConfig{
			AccountSID:   cfg.Notify.TwilioAccountSID,
			AuthToken:    cfg.Notify.TwilioAuthToken,
			SMSFrom:      cfg.Notify.TwilioSMSFrom,
			WhatsAppFrom: cfg.Notify.TwilioWhatsAppFrom,
		}, log),
		notify.Options{CountryCode: cfg.CountryCode, SendsPerSecond: cfg.Notify.RetrySendsPerSec},
		log)

	var jobs queue.Enqueuer
	switch cfg.QueueDriver {
	case config.DriverAMQP:
		pub := queue.NewPublisher(cfg.RabbitURL, log)
		a.closers = append(a.closers, func() { _ = pub.Close() })
		a.consumer = &queue.Consumer{URL: cfg.RabbitURL, Handler: a.dispatcher.HandleJob, Prefetch: cfg.QueueWorkers, Workers: cfg.QueueWorkers, Log: log}
		jobs = pub
	default:
		lq := queue.NewLocalQueue(a.dispatcher.HandleJob, cfg.QueueWorkers, 0, log)
		a.closers = append(a.closers, lq.Close)
		jobs = lq
	}

	a.providers = service.NewProviderService(st.providers, cfg.BcryptCost)
	a.inventory = service.NewInventoryService(st.slots, st.bookings, log)
	a.reservations = service.NewReservationService(st.providers, st.bookings, jobs, phones, log)
	return a, nil
}

func (a *app) openStores(ctx context.Context) (stores, error) {
	if a.cfg.StorageDriver == config.DriverMemory {
		a.log.Warn("using in-memory storage; data is lost on exit")
		m := memstore.New()
		return stores{providers: m.Providers(), slots: m.Slots(), bookings: m.Bookings()}, nil
	}
	db, err := database.Open(ctx, database.Params{
		User:     a.cfg.DBUser,
		Password: a.cfg.DBPass,
		Host:     a.cfg.DBHost,
		Port:     a.cfg.DBPort,
		Name:     a.cfg.DBName,
	})
	if err != nil {
		return stores{}, fmt.Errorf("open database: %w", err)
	}
	a.db = db
	a.closers = append(a.closers, func() { _ = db.Close() })
	return stores{
		providers: repository.NewProviderRepo(db),
		slots:     repository.NewSlotRepo(db),
		bookings:  repository.NewBookingRepo(db),
	}, nil
}

// ping reports storage health for the readiness probe.
func (a *app) ping(ctx context.Context) error {
	if a.db == nil {
		return nil
	}
	return a.db.PingContext(ctx)
}

// Close waits for queued hand-offs and releases resources.
func (a *app) Close() {
	if a.reservations != nil {
		a.reservations.Wait()
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
