package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kaedefolio/internal/auth"
	"github.com/kaedefolio/internal/config"
	"github.com/kaedefolio/internal/db"
	"github.com/kaedefolio/internal/handler"
	"github.com/kaedefolio/internal/logging"
	"github.com/kaedefolio/internal/router"
	"github.com/kaedefolio/internal/service"
	"github.com/kaedefolio/internal/storage"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const shutdownTimeout = 10 * time.Second

var (
	cfg    config.AppConfig
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "kaedefolio",
	Short: "Portfolio site with an admin console",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if cfg, err = config.Load(); err != nil {
			return err
		}
		logger, err = logging.New(cfg.Debug())
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: runServe,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server",
	RunE:  runServe,
}

var createUserCmd = &cobra.Command{
	Use:   "create-user",
	Short: "Create an admin account if it does not exist yet",
	RunE:  runCreateUser,
}

var staticPathsCmd = &cobra.Command{
	Use:   "static-paths",
	Short: "Print the ids of published works as JSON",
	RunE:  runStaticPaths,
}

func init() {
	createUserCmd.Flags().String("email", "", "admin email")
	createUserCmd.Flags().String("password", "", "admin password")
	_ = createUserCmd.MarkFlagRequired("email")
	_ = createUserCmd.MarkFlagRequired("password")

	rootCmd.AddCommand(serveCmd, createUserCmd, staticPathsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func openDatabase() (*gorm.DB, error) {
	gdb, err := db.Open(cfg.DatabaseDriver, cfg.DatabaseDSN, cfg.Debug())
	if err != nil {
		return nil, err
	}
	return gdb, nil
}

func openBucket() (storage.Bucket, error) {
	return storage.New(storage.Config{
		Type:      cfg.Storage.Type,
		Bucket:    cfg.Storage.Bucket,
		BasePath:  cfg.Storage.Dir,
		BaseURL:   cfg.BackendURL,
		Endpoint:  cfg.Storage.Endpoint,
		Region:    cfg.Storage.Region,
		AccessKey: cfg.Storage.AccessKey,
		SecretKey: cfg.Storage.SecretKey,
		PublicURL: cfg.Storage.PublicURL,
	})
}

func runServe(cmd *cobra.Command, args []string) error {
	gin.SetMode(cfg.GinMode)

	gdb, err := openDatabase()
	if err != nil {
		return err
	}

	if cfg.AdminEmail != "" && cfg.AdminPassword != "" {
		created, err := db.EnsureUser(gdb, cfg.AdminEmail, cfg.AdminPassword)
		if err != nil {
			return fmt.Errorf("failed to provision admin: %w", err)
		}
		if created {
			logger.Info("admin account created", zap.String("email", cfg.AdminEmail))
		}
	}

	bucket, err := openBucket()
	if err != nil {
		return err
	}

	portfolios := service.NewPortfolioService(gdb, bucket, logger, cfg.ThumbnailMaxWidth)
	sessions := auth.NewService(gdb, cfg.SessionTTL, logger)
	defer sessions.Close()

	api := handler.NewAPI(portfolios, sessions, logger, handler.Options{
		ContactFormAction: cfg.ContactFormAction,
	})

	routerOpts := router.Options{
		SessionSecret: cfg.BackendKey,
		SessionTTL:    cfg.SessionTTL,
		SecureCookie:  strings.HasPrefix(cfg.BackendURL, "https://"),
		Bucket:        cfg.Storage.Bucket,
		Logger:        logger,
	}
	if local, ok := bucket.(*storage.LocalBucket); ok {
		routerOpts.StorageDir = local.Dir()
	}

	engine, err := router.SetupRouter(api, routerOpts)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", zap.String("addr", cfg.ListenAddr), zap.String("storage", cfg.Storage.Type))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("failed to run server: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	// 先关闭事件流，避免 SSE 连接拖住 Shutdown
	sessions.Close()
	return srv.Shutdown(shutdownCtx)
}

func runCreateUser(cmd *cobra.Command, args []string) error {
	email, _ := cmd.Flags().GetString("email")
	password, _ := cmd.Flags().GetString("password")

	gdb, err := openDatabase()
	if err != nil {
		return err
	}

	created, err := db.EnsureUser(gdb, email, password)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	if created {
		fmt.Fprintf(cmd.OutOrStdout(), "created admin %s\n", strings.ToLower(strings.TrimSpace(email)))
	} else {
		fmt.Fprintln(cmd.OutOrStdout(), "user already exists, nothing to do")
	}
	return nil
}

type staticPath struct {
	ID string `json:"id"`
}

func runStaticPaths(cmd *cobra.Command, args []string) error {
	gdb, err := openDatabase()
	if err != nil {
		return err
	}
	bucket, err := openBucket()
	if err != nil {
		return err
	}

	ids, err := service.NewPortfolioService(gdb, bucket, logger, cfg.ThumbnailMaxWidth).PublishedIDs(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list published works: %w", err)
	}

	paths := make([]staticPath, 0, len(ids))
	for _, id := range ids {
		paths = append(paths, staticPath{ID: id})
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(map[string][]staticPath{"paths": paths})
}
