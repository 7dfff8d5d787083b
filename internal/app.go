package internal

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"chargersim/internal/controllers"
	"chargersim/internal/protocol"
	"chargersim/internal/providers"
	"chargersim/internal/services"
	"chargersim/internal/storage"
	"chargersim/internal/structures"
	"chargersim/internal/transport"
)

type App struct {
	WebServer *http.Server
	Hub       *transport.Hub
}

// NewApp wires the hub, dispatcher and HTTP mirror together and runs until a
// shutdown signal or a fatal transport error. The broadcast relay is bound
// here, after every service exists, which is what lets the services broadcast
// without depending on the transport package.
func NewApp(
	apiController *controllers.ApiController,
	healthController *controllers.HealthController,
	dispatcher *protocol.Dispatcher,
	hub *transport.Hub,
	relay *services.BroadcastRelay,
	scheduler storage.SchedulerInterface,
	conf *structures.Config,
	logger providers.Logger,
	router providers.RouterProviderInterface,
	metrics providers.MetricsProviderInterface,
) (*App, error) {
	// Inner mux: API routes
	apiMux := http.NewServeMux()
	for _, route := range router.GetRoutes() {
		apiMux.Handle(route.Url, route.Handler)
	}

	// Wrap API routes with metrics middleware
	instrumentedAPI := providers.MetricsMiddleware(metrics, apiMux)

	// Outer mux: infrastructure + instrumented API
	mux := http.NewServeMux()
	mux.HandleFunc("/health", healthController.Health)
	if conf.Metrics.Enabled {
		mux.Handle("/metrics", promhttp.Handler())
	}
	mux.Handle("/", instrumentedAPI)

	logger.Infof(providers.TypeApp, "Starting %s (device %s)", conf.AppName, conf.Device.ID)
	if err := scheduler.Restore(); err != nil {
		logger.Errorf(providers.TypeApp, "Restore error: %s", err)
	}

	relay.Bind(hub)
	hub.SetMessageHandler(dispatcher.Handle)
	if err := hub.Start(); err != nil {
		return nil, err
	}

	app := &App{
		WebServer: &http.Server{
			Addr:         conf.WebServer.Host + ":" + strconv.Itoa(conf.WebServer.Port),
			Handler:      mux,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		Hub: hub,
	}

	scheduler.Init()

	serverErr := make(chan error, 1)
	go func() {
		logger.Infof(providers.TypeApp, "Listening HTTP clients on %s:%d", conf.WebServer.Host, conf.WebServer.Port)
		if err := app.WebServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		logger.Infof(providers.TypeApp, "Shutdown signal received")
	case err := <-serverErr:
		return nil, fmt.Errorf("server error: %w", err)
	case err := <-hub.Errors():
		return nil, fmt.Errorf("websocket error: %w", err)
	}

	scheduler.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := hub.Stop(ctx); err != nil {
		logger.Warnf(providers.TypeApp, "Hub shutdown: %s", err)
	}
	if err := app.WebServer.Shutdown(ctx); err != nil {
		return nil, err
	}
	if err := scheduler.Persist(); err != nil {
		return nil, err
	}
	logger.Infof(providers.TypeApp, "gracefully stopped")
	return app, nil
}
