package cli

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/IYouKnow/davproxy/internal/auth"
	"github.com/IYouKnow/davproxy/internal/backend"
	"github.com/IYouKnow/davproxy/internal/config"
	"github.com/IYouKnow/davproxy/internal/metacache"
	"github.com/IYouKnow/davproxy/internal/provider"
	"github.com/IYouKnow/davproxy/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the proxy",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := configFromViper()
		if err := config.Validate(cfg); err != nil {
			return err
		}

		client, err := backend.New(cfg.BackendURL, cfg.BackendUsername, cfg.BackendPassword)
		if err != nil {
			return fmt.Errorf("backend: %w", err)
		}

		cred, err := auth.NewCredential(cfg.AuthUsername, cfg.AuthPassword)
		if err != nil {
			return fmt.Errorf("auth: %w", err)
		}

		cache := metacache.New(cfg.CacheSize, cfg.CacheTTL, provider.NewLoader(client))
		fs := provider.NewFileSystem(client, cache, cfg.FileMaxSize)
		srv := server.New(cfg.ListenAddr, cfg.MountPath, client, fs, cred)

		stop := make(chan os.Signal, 1)
		signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

		go func() {
			if err := srv.Start(); err != nil {
				log.Fatalf("server failed: %v", err)
			}
		}()

		<-stop
		log.Println("shutting down")

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("shutdown error: %w", err)
		}

		log.Println("stopped gracefully")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	flags := serveCmd.Flags()
	flags.String("listen-addr", config.DefaultListenAddr, "address the proxy listens on")
	flags.String("mount-path", config.DefaultMountPath, "URL path prefix clients must address the proxy under")
	flags.String("backend-url", "", "upstream WebDAV collection URL (required)")
	flags.String("backend-username", "", "username for the upstream backend (required)")
	flags.String("backend-password", "", "password for the upstream backend (required)")
	flags.String("auth-username", "", "front-end username clients must present (required)")
	flags.String("auth-password", "", "front-end password clients must present (required)")
	flags.Int("cache-size", config.DefaultCacheSize, "max number of metadata entries cached")
	flags.Duration("cache-ttl", config.DefaultCacheTTL, "metadata cache entry lifetime")
	flags.Int64("file-max-size", config.DefaultFileMaxSize, "shard uploads past this many bytes into split-file parts (0 disables sharding)")

	for _, name := range []string{
		"listen-addr", "mount-path", "backend-url", "backend-username", "backend-password",
		"auth-username", "auth-password", "cache-size", "cache-ttl", "file-max-size",
	} {
		viper.BindPFlag(name, flags.Lookup(name))
	}
}

func configFromViper() *config.Config {
	cfg := config.New()
	cfg.ListenAddr = viper.GetString("listen-addr")
	cfg.MountPath = viper.GetString("mount-path")
	cfg.BackendURL = viper.GetString("backend-url")
	cfg.BackendUsername = viper.GetString("backend-username")
	cfg.BackendPassword = viper.GetString("backend-password")
	cfg.AuthUsername = viper.GetString("auth-username")
	cfg.AuthPassword = viper.GetString("auth-password")
	cfg.CacheSize = viper.GetInt("cache-size")
	cfg.CacheTTL = viper.GetDuration("cache-ttl")
	cfg.FileMaxSize = viper.GetInt64("file-max-size")
	return cfg
}
