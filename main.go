package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"chatbot/controllers"
	"chatbot/services"
	"chatbot/utils"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

// options holds command line flags
type options struct {
	rulesPath     string
	port          string
	viewsDir      string
	logLevel      string
	enableDiscord bool
	dev           bool
}

// Server owns the HTTP listener
type Server struct {
	router     *mux.Router
	httpServer *http.Server
	logger     *zap.Logger
}

// NewServer creates a new server instance serving the controller's routes
func NewServer(addr string, controller *controllers.Controller, logger *zap.Logger) *Server {
	router := mux.NewRouter()
	controller.RegisterRoutes(router)

	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"*"},
	})

	return &Server{
		router: router,
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           c.Handler(router),
			ReadHeaderTimeout: 10 * time.Second,
		},
		logger: logger,
	}
}

// Start listens until the server is shut down
func (s *Server) Start() error {
	s.logger.Info("Server listening", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting connections and waits for in-flight requests
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func newRootCommand() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:           "chatbot",
		Short:         "Keyword matching chat bot",
		Long:          "Serves a real-time chat bot that answers messages from a static keyword rule table.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.rulesPath, "rules", "r", "", "rule file (JSON or YAML), overrides RULES_PATH")
	cmd.Flags().StringVarP(&opts.port, "port", "p", "", "listen port, overrides PORT")
	cmd.Flags().StringVar(&opts.viewsDir, "views", "", "directory holding HTML views, overrides VIEWS_DIR")
	cmd.Flags().StringVar(&opts.logLevel, "log-level", envOr("LOG_LEVEL", "info"), "log level (debug|info|warn|error)")
	cmd.Flags().BoolVar(&opts.enableDiscord, "enable-discord", false, "start the Discord bot when DISCORD_BOT_TOKEN is set")
	cmd.Flags().BoolVar(&opts.dev, "dev", false, "human-readable development logging")

	return cmd
}

func run(cmd *cobra.Command, opts *options) error {
	logger, err := utils.NewLogger(opts.logLevel, opts.dev)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	if err := utils.LoadEnvWithFallback(logger); err != nil {
		return err
	}

	cfg := resolveConfig(cmd, opts)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	rules, err := services.LoadRules(cfg.RulesPath)
	if err != nil {
		logger.Error("Failed to load rules", zap.String("path", cfg.RulesPath), zap.Error(err))
		return err
	}
	logger.Info("Rules loaded", zap.String("path", cfg.RulesPath), zap.Int("count", rules.Len()))

	controller := controllers.NewController(rules, cfg.Discord, cfg.ViewsDir, logger)
	if err := controller.StartServices(cfg.EnableDiscord); err != nil {
		logger.Warn("Continuing without Discord", zap.Error(err))
	}

	server := NewServer(cfg.Addr(), controller, logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	select {
	case err := <-errCh:
		if stopErr := controller.StopServices(); stopErr != nil {
			logger.Warn("Error stopping services", zap.Error(stopErr))
		}
		return err
	case <-ctx.Done():
		logger.Info("Shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	// Hijacked WebSocket connections are not tracked by Shutdown, close them first.
	if err := controller.StopServices(); err != nil {
		logger.Warn("Error stopping services", zap.Error(err))
	}
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return <-errCh
}

// resolveConfig applies explicitly set flags on top of the environment
func resolveConfig(cmd *cobra.Command, opts *options) utils.Config {
	cfg := utils.ConfigFromEnv()

	if cmd.Flags().Changed("rules") {
		cfg.RulesPath = opts.rulesPath
	}
	if cmd.Flags().Changed("port") {
		cfg.Port = opts.port
	}
	if cmd.Flags().Changed("views") {
		cfg.ViewsDir = opts.viewsDir
	}
	if cmd.Flags().Changed("enable-discord") {
		cfg.EnableDiscord = opts.enableDiscord
	}

	return cfg
}

func envOr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "chatbot: %v\n", err)
		os.Exit(1)
	}
}
