package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	_ "github.com/unifiedui/assistant-bot/docs"
	"github.com/unifiedui/assistant-bot/internal/api/handlers"
	"github.com/unifiedui/assistant-bot/internal/api/middleware"
	"github.com/unifiedui/assistant-bot/internal/api/routes"
	"github.com/unifiedui/assistant-bot/internal/config"
	"github.com/unifiedui/assistant-bot/internal/core/docdb"
	"github.com/unifiedui/assistant-bot/internal/core/vault"
	"github.com/unifiedui/assistant-bot/internal/domain/models"
	"github.com/unifiedui/assistant-bot/internal/services/access"
	"github.com/unifiedui/assistant-bot/internal/services/dispatch"
	"github.com/unifiedui/assistant-bot/internal/services/features"
	"github.com/unifiedui/assistant-bot/internal/services/session"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Connect to the home server and answer messages",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	vaultClient, err := createVaultClient(cfg.Vault)
	if err != nil {
		return fmt.Errorf("failed to initialize vault client: %w", err)
	}
	defer vaultClient.Close()

	cacheClient, err := createCacheClient(cfg.Cache)
	if err != nil {
		return fmt.Errorf("failed to initialize cache client: %w", err)
	}
	if cacheClient != nil {
		defer cacheClient.Close()
	} else {
		log.Warn().Msg("Cache disabled, sessions are kept in memory only")
	}

	var docDBClient docdb.Client
	var store docdb.UsersCollection
	if cfg.AllowList.Enabled {
		docDBClient, err = createDocDBClient(ctx, cfg.DocDB)
		if err != nil {
			return fmt.Errorf("failed to initialize document db client: %w", err)
		}
		defer docDBClient.Close(context.Background())

		if err := docDBClient.EnsureIndexes(ctx); err != nil {
			log.Warn().Err(err).Msg("Failed to ensure indexes")
		}
		store = docDBClient.Users()
	}

	gate, err := createAccessGate(cfg.AllowList, store)
	if err != nil {
		return fmt.Errorf("failed to initialize access gate: %w", err)
	}

	encryptor, err := createEncryptor(ctx, cfg.Vault, vaultClient, log)
	if err != nil {
		return fmt.Errorf("failed to initialize encryptor: %w", err)
	}

	sessions, err := session.NewService(&session.Config{
		CacheClient: cacheClient,
		Encryptor:   encryptor,
		TTL:         cfg.Cache.TTL,
		Defaults: models.SessionDefaults{
			Model:       cfg.Albert.Model,
			Mode:        cfg.Albert.Mode,
			WithHistory: cfg.Albert.WithHistory,
		},
	})
	if err != nil {
		return fmt.Errorf("failed to initialize session service: %w", err)
	}

	albertClient, err := createAlbertClient(ctx, cfg.Albert, vaultClient)
	if err != nil {
		return fmt.Errorf("failed to initialize albert client: %w", err)
	}

	matrixClient, err := createMatrixClient(ctx, cfg.Matrix, vaultClient)
	if err != nil {
		return fmt.Errorf("failed to initialize matrix client: %w", err)
	}

	app, err := buildAssistant(cfg, matrixClient, albertClient, gate, log)
	if err != nil {
		return err
	}

	router, err := dispatch.NewRouter(&dispatch.RouterConfig{
		Chat:          matrixClient,
		Registry:      app.registry,
		Sessions:      sessions,
		Access:        gate,
		Prefix:        cfg.Bot.CommandPrefix,
		ErrorsRoomID:  cfg.Bot.ErrorsRoomID,
		Failed:        app.messages.Failed(),
		PendingNotice: app.messages.PendingUser,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize router: %w", err)
	}
	router.Bind()

	log.Info().
		Strs("groups", app.registry.ActiveGroups()).
		Str("model", cfg.Albert.Model).
		Str("mode", cfg.Albert.Mode).
		Bool("allowlist", cfg.AllowList.Enabled).
		Msg("Assistant ready")

	var srv *http.Server
	if cfg.Server.Enabled {
		components := map[string]handlers.Pinger{"vault": vaultClient}
		if cacheClient != nil {
			components["cache"] = cacheClient
		}
		if docDBClient != nil {
			components["docdb"] = docDBClient
		}
		srv = startAdminServer(ctx, cfg, vaultClient, components, app.registry, gate, sessions, log)
	}

	runErr := matrixClient.Run(ctx)
	stop()

	if srv != nil {
		log.Info().Msg("Shutting down admin server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Admin server forced to shutdown")
		}
	}

	if runErr != nil {
		return runErr
	}
	log.Info().Msg("Assistant exited")
	return nil
}

// startAdminServer serves the admin API in the background.
func startAdminServer(ctx context.Context, cfg *config.Config, vaultClient vault.Client, components map[string]handlers.Pinger,
	registry *features.Registry, gate *access.Gate, sessions session.Service, log zerolog.Logger) *http.Server {
	gin.SetMode(cfg.Server.GinMode)

	token := vaultClient.ResolveOptional(ctx, cfg.Server.AdminTokenURI)
	if token == "" {
		log.Warn().Msg("ADMIN_API_TOKEN not set, protected admin routes reject every request")
	}

	engine := gin.New()
	routes.SetupWithMiddleware(engine, &routes.Config{
		HealthHandler:    handlers.NewHealthHandler(components),
		FeaturesHandler:  handlers.NewFeaturesHandler(registry),
		AllowListHandler: handlers.NewAllowListHandler(gate, sessions),
		AuthMiddleware:   middleware.NewAuthMiddleware(token),
	}, middleware.NewLoggingMiddleware(), middleware.NewErrorMiddleware(), middleware.DefaultCORSConfig())

	srv := &http.Server{
		Addr:              cfg.Server.Address(),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("address", cfg.Server.Address()).Msg("Starting admin server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("Admin server failed")
		}
	}()

	return srv
}
