package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/arqioly/arqioly/pkg/auth"
	"github.com/arqioly/arqioly/pkg/handlers"
	"github.com/arqioly/arqioly/pkg/llm"
	"github.com/arqioly/arqioly/pkg/mcp"
	"github.com/arqioly/arqioly/pkg/mcp/tools"
	"github.com/arqioly/arqioly/pkg/middleware"
	"github.com/arqioly/arqioly/pkg/services"
)

const shutdownTimeout = 30 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API and MCP endpoint",
	Long: `Start the arqioly HTTP server.

The server exposes the REST API under /api, the MCP endpoint at /api/mcp and
health checks at /health and /ping. It stops gracefully on Ctrl+C or SIGTERM.`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()
	logger := a.logger

	logger.Info("Configuration loaded",
		zap.String("environment", cfg.Env),
		zap.String("base_url", cfg.BaseURL),
		zap.String("store", cfg.Store.Backend),
		zap.Bool("mcp_enabled", cfg.MCP.Enabled),
		zap.Bool("mcp_api_key", cfg.MCP.APIKey != ""),
		zap.Bool("export_archive", cfg.Export.IsAvailable()),
	)

	if cfg.SeedDefaults {
		result, err := services.NewSeeder(a.repos, a.publisher, logger).InitializeDefaults(ctx)
		if err != nil {
			return fmt.Errorf("failed to seed defaults: %w", err)
		}
		if result.Created() {
			logger.Info("Seeded default catalog",
				zap.Int("projects", result.Projects),
				zap.Int("categories", result.Categories),
				zap.Int("tags", result.Tags),
				zap.Int("system_prompts", result.SystemPrompts))
		}
	}

	archiver, err := a.archiver(ctx)
	if err != nil {
		return err
	}

	llmFactory := llm.NewClientFactory(cfg.LLM, logger)
	logger.Info("LLM providers", zap.Any("available", llmFactory.AvailableProviders()))

	// Services
	promptService := services.NewPromptService(a.repos, a.publisher, logger)
	resolutionService := services.NewResolutionService(a.repos, logger)
	commentService := services.NewCommentService(a.repos, logger)
	shareService := services.NewShareService(a.repos, promptService, a.publisher, logger)
	assistService := services.NewAssistService(a.repos, promptService, resolutionService, llmFactory, a.publisher, logger)
	exportService := services.NewExportService(a.repos, archiver, a.publisher, logger)
	catalogService := services.NewCatalogService(a.repos, a.publisher, logger)
	configService := services.NewScopedConfigService(a.repos, a.publisher, logger)
	teamService := services.NewTeamService(a.repos, a.publisher, logger)
	templateService := services.NewTemplateService(a.repos, promptService, logger)

	authMiddleware := auth.NewMiddleware(cfg.MCP.APIKey, logger)

	mux := http.NewServeMux()
	handlers.NewHealthHandler(cfg, a.store, logger).RegisterRoutes(mux)
	handlers.NewPromptsHandler(promptService, logger).RegisterRoutes(mux)
	handlers.NewCommentsHandler(commentService, logger).RegisterRoutes(mux)
	handlers.NewSharesHandler(shareService, logger).RegisterRoutes(mux)
	handlers.NewAssistHandler(assistService, logger).RegisterRoutes(mux)
	handlers.NewExportHandler(exportService, logger).RegisterRoutes(mux)
	handlers.NewCatalogHandler(catalogService, logger).RegisterRoutes(mux)
	handlers.NewConfigHandler(configService, resolutionService, llmFactory, logger).RegisterRoutes(mux)
	handlers.NewTeamsHandler(teamService, logger).RegisterRoutes(mux)
	handlers.NewTemplatesHandler(templateService, logger).RegisterRoutes(mux)

	if cfg.MCP.Enabled {
		mcpServer := mcp.NewServer(mcp.ServerName, cfg.Version, logger)
		mcp.NewPromptCatalog(mcpServer, promptService, logger)
		mcp.NewCallLogger(a.publisher, logger).Register(mcpServer)
		tools.RegisterHealthTool(mcpServer.MCP(), cfg.Version, promptService)
		handlers.NewMCPHandler(mcpServer, logger, cfg.MCP).RegisterRoutes(mux, authMiddleware)
	}

	srv := &http.Server{
		Addr:              net.JoinHostPort(cfg.BindAddr, cfg.Port),
		Handler:           middleware.RequestLogger(logger)(authMiddleware.WithActor(mux)),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting arqioly",
			zap.String("addr", srv.Addr),
			zap.String("version", cfg.Version))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("HTTP server error: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", zap.Error(err))
	}
	logger.Info("Server stopped")
	return nil
}
