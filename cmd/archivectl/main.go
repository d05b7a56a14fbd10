package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"mailgallery/backend/internal/app"
	"mailgallery/backend/internal/config"
	"mailgallery/backend/internal/storage"
)

var version = "0.3.0"

// newRootCmd 运维命令入口
func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "archivectl",
		Short: "Maintenance commands for the mail gallery archive",
		Long: `archivectl runs the offline jobs of the mail gallery:

  - migrate         create or update the database schema
  - create-user     register a login account
  - thumbnails      render thumbnails for imported emails
  - import-brands   load a brand list and fetch favicons`,
		SilenceUsage: true,
		Version:      version,
	}
	root.SetVersionTemplate(`{{printf "archivectl version %s\n" .Version}}`)
	root.AddCommand(newMigrateCmd())
	root.AddCommand(newCreateUserCmd())
	root.AddCommand(newThumbnailsCmd())
	root.AddCommand(newImportBrandsCmd())
	return root
}

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

// env 子命令共享的配置、日志和存储
type env struct {
	cfg   *config.Config
	log   *zap.Logger
	store storage.Store
}

func openEnv() (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	log, err := app.NewLogger(cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	store, err := app.OpenStore(cfg.Database, nil, log)
	if err != nil {
		return nil, err
	}
	return &env{cfg: cfg, log: log, store: store}, nil
}

func (r *env) Close() {
	if err := r.store.Close(); err != nil {
		r.log.Warn("storage close warning", zap.Error(err))
	}
	_ = r.log.Sync()
}

// signalContext 收到 SIGINT/SIGTERM 时取消
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
}
