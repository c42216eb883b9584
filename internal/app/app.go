package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/appetiteclub/kds/internal/config"
	"github.com/appetiteclub/kds/internal/events"
	"github.com/appetiteclub/kds/internal/kitchen"
	"github.com/appetiteclub/kds/internal/logger"
	"github.com/appetiteclub/kds/internal/mongo"
	"github.com/appetiteclub/kds/internal/web"
	"github.com/appetiteclub/kds/pkg"
	"github.com/appetiteclub/kds/pkg/event"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
)

const (
	AppName    = "kds"
	AppVersion = "0.1.0"

	requestTimeout  = 15 * time.Second
	shutdownTimeout = 10 * time.Second
)

// App encapsulates the kitchen display service.
type App struct {
	config *config.Config
	logger logger.Logger

	engine     *kitchen.Engine
	scheduler  *kitchen.Scheduler
	router     chi.Router
	grpcServer *grpc.Server
	// lifecycles support the engine and outlive the change feed; intake
	// components mutate the queue and stop before the feed closes.
	lifecycles []Lifecycle
	intake     []Lifecycle
}

func New(cfg *config.Config, log logger.Logger) (*App, error) {
	if cfg == nil {
		cfg = config.NewConfig()
	}
	if log == nil {
		log = logger.NewNoop()
	}
	return &App{
		config: cfg,
		logger: log,
	}, nil
}

// Initialize builds the engine, its collaborators and the transports.
func (a *App) Initialize(ctx context.Context) error {
	opts, err := EngineOptions(a.config)
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	engine, err := kitchen.NewEngine(opts, a.logger)
	if err != nil {
		return err
	}
	a.engine = engine

	interval := a.config.GetDuration("scheduler.interval", kitchen.DefaultTickInterval)
	a.scheduler = kitchen.NewScheduler(engine, interval, nil, a.logger)

	if a.config.GetBool("demo.seed") {
		if err := kitchen.ApplyDemoSeeds(engine, engine.Clock().Now(), a.logger); err != nil {
			a.logger.Errorf("Demo seeding failed (non-fatal): %v", err)
		}
	}

	var archive kitchen.TicketArchive
	if a.config.GetStringOrDef("db.mongo.url", "") != "" {
		repo := mongo.NewTicketRepo(a.config, a.logger)
		archive = repo
		a.lifecycles = append(a.lifecycles, repo, kitchen.NewArchiver(engine, repo, a.logger))
	}

	if err := a.initMessaging(ctx); err != nil {
		return err
	}

	if a.config.GetBool("demo.enabled") {
		sim := kitchen.NewSimulator(engine, kitchen.SimulatorOptions{
			Interval: a.config.GetDuration("demo.interval", kitchen.DefaultArrivalInterval),
		}, a.logger)
		a.intake = append(a.intake, LifecycleHooks{
			Name:    "simulator",
			OnStart: sim.Start,
			OnStop:  func(context.Context) error { sim.Stop(); return nil },
		})
	}

	a.intake = append(a.intake, LifecycleHooks{
		Name:    "scheduler",
		OnStart: a.scheduler.Start,
		OnStop:  func(context.Context) error { a.scheduler.Stop(); return nil },
	})

	sse := kitchen.NewSSEHandler(engine, a.config.GetDuration("sse.keepalive", kitchen.DefaultKeepalive), a.logger)
	handler := kitchen.NewHandler(kitchen.HandlerDeps{
		Service: engine,
		Archive: archive,
	}, a.logger)
	a.router = a.newRouter(handler, sse)

	a.grpcServer = grpc.NewServer()
	kitchen.NewEventStreamServer(engine, a.logger).RegisterGRPCService(a.grpcServer)

	return nil
}

// initMessaging wires NATS when nats.url is set: orders arrive on
// orders.kitchen and the change feed is relayed to kitchen.tickets. With
// nats.stream.enabled both go through JetStream, and orders are read from a
// durable consumer so none are lost while the service is down.
func (a *App) initMessaging(ctx context.Context) error {
	natsURL := a.config.GetStringOrDef("nats.url", "")
	if natsURL == "" {
		a.logger.Info("NATS disabled, order intake only over HTTP")
		return nil
	}

	var publisher event.Publisher
	var subscriber event.Subscriber
	var closers []func() error
	closeAll := func() error {
		var errs []error
		for _, c := range closers {
			errs = append(errs, c())
		}
		return errors.Join(errs...)
	}

	if a.config.GetBool("nats.stream.enabled") {
		out, err := pkg.NewNATSStream(ctx, pkg.NATSStreamConfig{
			URL:        natsURL,
			StreamName: "KITCHEN_EVENTS",
			Topic:      event.KitchenTicketsTopic,
			MaxAge:     24 * time.Hour,
		})
		if err != nil {
			return err
		}
		closers = append(closers, out.Close)

		in, err := pkg.NewNATSStream(ctx, pkg.NATSStreamConfig{
			URL:          natsURL,
			StreamName:   "KITCHEN_ORDERS",
			Topic:        event.OrdersKitchenTopic,
			ConsumerName: "kds-orders",
			MaxAge:       24 * time.Hour,
		})
		if err != nil {
			_ = closeAll()
			return err
		}
		closers = append(closers, in.Close)

		a.logger.Info("NATS streams initialized for persistent events")
		publisher, subscriber = out, in
	} else {
		core, err := pkg.NewNATSPublisher(natsURL)
		if err != nil {
			return err
		}
		closers = append(closers, core.Close)

		sub, err := pkg.NewNATSSubscriber(natsURL, func(topic string, err error) {
			a.logger.Error("order handler failed", "topic", topic, "error", err)
		})
		if err != nil {
			_ = closeAll()
			return err
		}
		closers = append(closers, sub.Close)
		publisher, subscriber = core, sub
	}

	a.lifecycles = append(a.lifecycles,
		LifecycleHooks{
			Name:   "nats",
			OnStop: func(context.Context) error { return closeAll() },
		},
		events.NewFeedRelay(a.engine, publisher, a.logger),
	)
	a.intake = append(a.intake, events.NewOrderSubscriber(subscriber, a.engine, publisher, a.logger))
	return nil
}

func (a *App) newRouter(handler *kitchen.Handler, sse http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		web.Respond(w, http.StatusOK, map[string]string{"status": "ok", "app": AppName}, nil)
	})

	// The SSE stream is long-lived, so only the rest of the API gets a
	// request timeout.
	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(requestTimeout))
		handler.RegisterRoutes(r)
	})
	r.Get("/events", sse.ServeHTTP)

	return r
}

// Handler exposes the HTTP router, mainly for tests.
func (a *App) Handler() http.Handler {
	return a.router
}

func (a *App) Engine() *kitchen.Engine {
	return a.engine
}

// Run starts the lifecycle components and serves HTTP and gRPC until ctx is
// done, then shuts everything down. Intake stops first, then the change feed
// drains into its consumers and streaming clients, then the servers and the
// remaining components stop.
func (a *App) Run(ctx context.Context) error {
	a.logger.Infof("Starting %s(%s)", AppName, AppVersion)

	started, err := startAll(ctx, a.lifecycles)
	if err != nil {
		return errors.Join(err, a.stop(a.lifecycles, started))
	}
	intakeStarted, err := startAll(ctx, a.intake)
	if err != nil {
		return errors.Join(err, a.stop(a.intake, intakeStarted), a.stop(a.lifecycles, started))
	}

	webAddr := a.config.GetStringOrDef("web.port", ":8080")
	grpcAddr := a.config.GetStringOrDef("grpc.port", ":9090")

	httpServer := &http.Server{
		Addr:              webAddr,
		Handler:           a.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.logger.Info("HTTP server listening", "addr", webAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		lis, err := net.Listen("tcp", grpcAddr)
		if err != nil {
			return fmt.Errorf("cannot listen on %s: %w", grpcAddr, err)
		}
		a.logger.Info("gRPC server listening", "addr", grpcAddr)
		if err := a.grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			return fmt.Errorf("grpc server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		intakeErr := a.stop(a.intake, intakeStarted)

		// Streaming clients return once the feed has drained, so the
		// servers can stop.
		a.engine.Close()
		a.grpcServer.GracefulStop()

		stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return errors.Join(intakeErr, httpServer.Shutdown(stopCtx))
	})

	runErr := g.Wait()

	if err := a.stop(a.lifecycles, started); err != nil {
		a.logger.Error("shutdown finished with errors", "error", err)
		runErr = errors.Join(runErr, err)
	}

	a.logger.Infof("%s(%s) stopped", AppName, AppVersion)
	return runErr
}

func (a *App) stop(components []Lifecycle, n int) error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return stopAll(ctx, components, n)
}
