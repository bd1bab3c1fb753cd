package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"delivery-ops-service/internal/adapters/cache"
	"delivery-ops-service/internal/adapters/maps"
	"delivery-ops-service/internal/adapters/notify"
	"delivery-ops-service/internal/adapters/ordersource"
	"delivery-ops-service/internal/adapters/repositories"
	"delivery-ops-service/internal/api/handlers"
	"delivery-ops-service/internal/config"
	"delivery-ops-service/internal/platform/db"
	"delivery-ops-service/internal/ports"
	"delivery-ops-service/internal/services"
)

const geocodeCacheTTL = 30 * 24 * time.Hour

type app struct {
	deps     handlers.HandlerDeps
	orders   *services.OrderService
	dispatch *services.Dispatcher
	closers  []func()
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// build wires every adapter selected by cfg. Optional backends left empty in
// the configuration fall back to in-process implementations.
func build(ctx context.Context, cfg *config.Config, log *slog.Logger) (_ *app, err error) {
	a := &app{}
	defer func() {
		if err != nil {
			a.close()
		}
	}()

	orderStore, shiftStore, breakStore, err := a.stores(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	geocoder, matrix, err := mapsProvider(cfg, log)
	if err != nil {
		return nil, err
	}

	var geocodeCache ports.GeocodeCache
	if cfg.RedisURL != "" {
		client, err := cache.OpenRedis(ctx, cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() { _ = client.Close() })
		geocodeCache = cache.NewRedisGeocodeCache(client, geocodeCacheTTL)
	}

	var travelCache ports.TravelCache
	if cfg.CacheDBPath != "" {
		sqlite, err := db.OpenSQLite(ctx, cfg.CacheDBPath)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() { _ = sqlite.Close() })
		if travelCache, err = cache.NewSQLiteTravelCache(ctx, sqlite, log); err != nil {
			return nil, err
		}
	}

	source, err := dataSource(cfg, log)
	if err != nil {
		return nil, err
	}

	notifier, events, receipts, err := a.collaborators(cfg, log)
	if err != nil {
		return nil, err
	}

	a.dispatch = services.NewDispatcher(notifier, receipts, events, cfg.NotifyTimeout, log)
	a.orders = services.NewOrderService(services.OrderServiceDeps{
		Store:         orderStore,
		Source:        source,
		Dispatcher:    a.dispatch,
		SourceTimeout: cfg.OrderSourceTimeout,
	}, log)

	optimizer := services.NewRouteOptimizer(
		services.NewGeocodingService(geocoder, geocodeCache, cfg.GeocodeTimeout, log),
		services.NewTravelTimeService(matrix, travelCache, cfg.MatrixTimeout, log),
		cfg.Location,
		log,
	)

	a.deps = handlers.HandlerDeps{
		Orders:       a.orders,
		Shifts:       services.NewShiftService(shiftStore, breakStore, orderStore, log),
		Optimizer:    optimizer,
		Planner:      services.NewDriverRoutePlanner(a.orders, optimizer, log),
		DefaultStart: cfg.DefaultStart,
	}

	return a, nil
}

func (a *app) stores(ctx context.Context, cfg *config.Config, log *slog.Logger) (ports.OrderStore, ports.ShiftStore, ports.BreakStore, error) {
	if cfg.DatabaseURL == "" {
		log.Warn("DATABASE_URL not set, state is kept in memory")
		shifts := repositories.NewMemoryShiftStore()
		return repositories.NewMemoryOrderStore(), shifts, shifts.Breaks(), nil
	}

	pg, err := db.OpenPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, nil, err
	}
	a.closers = append(a.closers, func() { _ = pg.Close() })

	if err := repositories.InitSchema(ctx, pg); err != nil {
		return nil, nil, nil, err
	}

	return repositories.NewPostgresOrderStore(pg, log),
		repositories.NewPostgresShiftStore(pg, log),
		repositories.NewPostgresBreakStore(pg),
		nil
}

func mapsProvider(cfg *config.Config, log *slog.Logger) (ports.Geocoder, ports.TravelMatrixProvider, error) {
	switch cfg.MapsProvider {
	case config.ProviderORS:
		c, err := maps.NewORSClient(cfg.ORSAPIKey, log)
		if err != nil {
			return nil, nil, err
		}
		return c, c, nil
	case config.ProviderGoogle:
		c, err := maps.NewGoogleClient(cfg.GoogleMapsAPIKey, "", log)
		if err != nil {
			return nil, nil, err
		}
		return c, c, nil
	default:
		// Only literal "lat,lng" addresses resolve offline.
		return nil, maps.NewOfflineMatrix(), nil
	}
}

func dataSource(cfg *config.Config, log *slog.Logger) (ports.DataSource, error) {
	fixture, err := ordersource.LoadFixture(cfg.FixturePath)
	if err != nil {
		log.Warn("fixture unavailable, degraded mode serves no orders", "path", cfg.FixturePath, "error", err)
		fixture = &ordersource.Fixture{}
	}

	var live ports.OrderSource
	if cfg.WooBaseURL != "" {
		woo, err := ordersource.NewWooCommerce(cfg.WooBaseURL, cfg.WooConsumerKey, cfg.WooConsumerSecret, cfg.Location, log)
		if err != nil {
			return nil, fmt.Errorf("order source: %w", err)
		}
		live = woo
	} else {
		log.Warn("WOO_BASE_URL not set, serving fixture orders")
	}

	return ordersource.NewFailover(live, ordersource.NewFixtureSource(fixture), log), nil
}

func (a *app) collaborators(cfg *config.Config, log *slog.Logger) (ports.Notifier, ports.EventPublisher, ports.ReceiptSender, error) {
	var (
		channels notify.Multi
		events   ports.EventPublisher
		receipts ports.ReceiptSender
	)

	if cfg.TwilioAccountSID != "" && cfg.TwilioAuthToken != "" && cfg.TwilioFrom != "" {
		channels = append(channels, notify.NewTwilioSMS(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioFrom, log))
	}

	if cfg.NATSURL != "" {
		conn, err := notify.ConnectNATS(cfg.NATSURL)
		if err != nil {
			return nil, nil, nil, err
		}
		a.closers = append(a.closers, func() { _ = conn.Drain() })
		channels = append(channels, notify.NewNATSPush(conn, log))
		events = notify.NewNATSEvents(conn)
	}

	if cfg.PostmarkToken != "" {
		receipts = notify.NewPostmarkReceipts(cfg.PostmarkToken, cfg.ReceiptSender, log)
	}

	var notifier ports.Notifier = channels
	if len(channels) == 0 {
		notifier = notify.NewLog(log)
	}

	return notifier, events, receipts, nil
}

