package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/google/wire"
	"go.uber.org/zap"

	"github.com/televault/televault/internal/adapters/config"
	"github.com/televault/televault/internal/adapters/logger"
	appnats "github.com/televault/televault/internal/adapters/nats"
	"github.com/televault/televault/internal/adapters/sqlite"
	"github.com/televault/televault/internal/adapters/trakt"
	"github.com/televault/televault/internal/application"
	"github.com/televault/televault/internal/domain"
)

// App holds the wired object graph. Run (app.go) drives it.
type App struct {
	configProvider config.Provider
	logger         domain.Logger
	store          *sqlite.Store
	httpServeMux   *http.ServeMux
	httpServer     *http.Server
	authService    *application.AuthService
	revalidator    *application.Revalidator
	calendars      *application.CalendarService
	media          *application.MediaService
	users          *application.UserService
	upNext         *application.UpNextService
	sync           *application.SyncService
}

// NewApp is the constructor Wire assembles the graph into.
func NewApp(
	cfgProvider config.Provider,
	appLogger domain.Logger,
	store *sqlite.Store,
	mux *http.ServeMux,
	server *http.Server,
	authService *application.AuthService,
	revalidator *application.Revalidator,
	calendars *application.CalendarService,
	media *application.MediaService,
	users *application.UserService,
	upNext *application.UpNextService,
	syncService *application.SyncService,
) (*App, func(), error) {
	app := &App{
		configProvider: cfgProvider,
		logger:         appLogger,
		store:          store,
		httpServeMux:   mux,
		httpServer:     server,
		authService:    authService,
		revalidator:    revalidator,
		calendars:      calendars,
		media:          media,
		users:          users,
		upNext:         upNext,
		sync:           syncService,
	}
	cleanup := func() {
		app.logger.Info(context.Background(), "Running app cleanup...")
	}
	return app, cleanup, nil
}

// InitialZapLoggerProvider provides a basic *zap.Logger for config
// initialization, before the structured adapter exists.
func InitialZapLoggerProvider() (*zap.Logger, func(), error) {
	zapLogger, err := zap.NewProduction()
	if err != nil {
		zapLogger, err = zap.NewDevelopment()
		if err != nil {
			zapLogger = zap.NewExample()
			fmt.Fprintf(os.Stderr, "Failed to create initial zap logger, falling back to example: %v\n", err)
		}
	}
	cleanup := func() {
		if syncErr := zapLogger.Sync(); syncErr != nil {
			fmt.Fprintf(os.Stderr, "Failed to sync initial zap logger: %v\n", syncErr)
		}
	}
	return zapLogger, cleanup, nil
}

// ConfigProvider provides the application configuration with hot
// reload bound to the application context.
func ConfigProvider(appCtx context.Context, zapLogger *zap.Logger) (config.Provider, error) {
	return config.NewViperProvider(appCtx, zapLogger)
}

// LoggerProvider provides the application logger.
func LoggerProvider(cfgProvider config.Provider) (domain.Logger, error) {
	appCfg := cfgProvider.Get()
	return logger.NewZapAdapter(cfgProvider, appCfg.App.ServiceName)
}

// StoreProvider opens the local store and returns its close func.
func StoreProvider(appCtx context.Context, cfgProvider config.Provider, appLogger domain.Logger) (*sqlite.Store, func(), error) {
	return sqlite.NewStore(appCtx, cfgProvider, appLogger, func() int64 { return time.Now().UnixMilli() })
}

// CacheStoreProvider exposes the store through its cache port.
func CacheStoreProvider(store *sqlite.Store) domain.CacheStore {
	return store
}

// ConfigStoreProvider exposes the store through its app-config port.
func ConfigStoreProvider(store *sqlite.Store) domain.ConfigStore {
	return store
}

// EndpointsProvider provides the upstream endpoint catalog.
func EndpointsProvider() *trakt.Endpoints {
	return trakt.DefaultEndpoints()
}

// AuthServiceProvider provides the token lifecycle service.
func AuthServiceProvider(cfgProvider config.Provider, configStore domain.ConfigStore, endpoints *trakt.Endpoints, appLogger domain.Logger) *application.AuthService {
	return application.NewAuthService(cfgProvider, configStore, endpoints, appLogger)
}

// TokenProviderProvider exposes the auth service as the token port.
func TokenProviderProvider(authService *application.AuthService) domain.TokenProvider {
	return authService
}

// UpstreamClientProvider provides the authenticated upstream client.
func UpstreamClientProvider(cfgProvider config.Provider, tokens domain.TokenProvider, appLogger domain.Logger) domain.UpstreamClient {
	return trakt.NewClient(cfgProvider, tokens, appLogger)
}

// EventPublisherProvider provides the NATS data-updated publisher and
// its drain func. With no NATS URL configured it is a no-op.
func EventPublisherProvider(appCtx context.Context, cfgProvider config.Provider, appLogger domain.Logger) (domain.EventPublisher, func(), error) {
	return appnats.NewPublisherAdapter(appCtx, cfgProvider, appLogger)
}

// CachePolicyProvider provides the cache policy engine.
func CachePolicyProvider(store domain.CacheStore, cfgProvider config.Provider, appLogger domain.Logger) domain.CachePolicy {
	return application.NewCacheService(store, cfgProvider, appLogger, time.Now)
}

// RevalidatorProvider provides the background refresh scheduler.
func RevalidatorProvider(cfgProvider config.Provider, cache domain.CachePolicy, publisher domain.EventPublisher, appLogger domain.Logger) *application.Revalidator {
	return application.NewRevalidator(cfgProvider, cache, publisher, appLogger)
}

// CalendarServiceProvider provides the range reconciler.
func CalendarServiceProvider(cache domain.CachePolicy, client domain.UpstreamClient, publisher domain.EventPublisher, endpoints *trakt.Endpoints, appLogger domain.Logger) *application.CalendarService {
	return application.NewCalendarService(cache, client, publisher, endpoints, appLogger)
}

// MediaServiceProvider provides the catalog read path.
func MediaServiceProvider(cache domain.CachePolicy, client domain.UpstreamClient, revalidator *application.Revalidator, endpoints *trakt.Endpoints, tokens domain.TokenProvider, appLogger domain.Logger) *application.MediaService {
	return application.NewMediaService(cache, client, revalidator, endpoints, tokens, appLogger)
}

// UserServiceProvider provides the user-data read path.
func UserServiceProvider(cache domain.CachePolicy, client domain.UpstreamClient, revalidator *application.Revalidator, endpoints *trakt.Endpoints, appLogger domain.Logger) *application.UserService {
	return application.NewUserService(cache, client, revalidator, endpoints, appLogger)
}

// UpNextServiceProvider provides the up-next scanner.
func UpNextServiceProvider(users *application.UserService, cache domain.CachePolicy, client domain.UpstreamClient, revalidator *application.Revalidator, endpoints *trakt.Endpoints, cfgProvider config.Provider, appLogger domain.Logger) *application.UpNextService {
	return application.NewUpNextService(users, cache, client, revalidator, endpoints, cfgProvider, appLogger)
}

// SyncServiceProvider provides the upstream write path.
func SyncServiceProvider(cache domain.CachePolicy, client domain.UpstreamClient, endpoints *trakt.Endpoints, appLogger domain.Logger) *application.SyncService {
	return application.NewSyncService(cache, client, endpoints, appLogger)
}

// HTTPServeMuxProvider provides the health/metrics multiplexer.
func HTTPServeMuxProvider() *http.ServeMux {
	return http.NewServeMux()
}

// HTTPGracefulServerProvider provides the HTTP server for the
// health/metrics surface.
func HTTPGracefulServerProvider(cfgProvider config.Provider, mux *http.ServeMux) *http.Server {
	appCfg := cfgProvider.Get()
	return &http.Server{
		Addr:         fmt.Sprintf(":%d", appCfg.Server.HTTPPort),
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

// ProviderSet is the canonical provider set for Wire.
var ProviderSet = wire.NewSet(
	InitialZapLoggerProvider,
	ConfigProvider,
	LoggerProvider,
	StoreProvider,
	CacheStoreProvider,
	ConfigStoreProvider,
	EndpointsProvider,
	AuthServiceProvider,
	TokenProviderProvider,
	UpstreamClientProvider,
	EventPublisherProvider,
	CachePolicyProvider,
	RevalidatorProvider,
	CalendarServiceProvider,
	MediaServiceProvider,
	UserServiceProvider,
	UpNextServiceProvider,
	SyncServiceProvider,
	HTTPServeMuxProvider,
	HTTPGracefulServerProvider,
	NewApp,
)
