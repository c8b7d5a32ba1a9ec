//	@title			HEIC Bridge API
//	@version		1.0
//	@description	Converts uploaded HEIC/HEIF images to JPEG and stores them in object storage.
//
//	@host		localhost:3000
//	@BasePath	/

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/heicbridge/service/internal/config"
	"github.com/heicbridge/service/internal/convert"
	"github.com/heicbridge/service/internal/logging"
	"github.com/heicbridge/service/internal/scratch"
	"github.com/heicbridge/service/internal/storage"
	"github.com/heicbridge/service/internal/upload"
)

var (
	version  = "dev"
	revision = "none"
	date     = "unknown"
)

// staleAreaAge is how old a leftover request area must be before the
// startup sweep removes it.
const staleAreaAge = time.Hour

func main() {
	c := &cobra.Command{
		Use:     "heicbridge",
		Short:   "HEIC to JPEG upload bridge for object storage",
		Version: fmt.Sprintf("%s - build %.7s @ %s - %s", version, revision, date, runtime.Version()),
		Args:    cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return serve()
		},
	}
	c.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Println(c.Version)
		},
	})
	c.AddCommand(serveCmd)
	c.AddCommand(convertCmd)

	if err := c.Execute(); err != nil {
		os.Exit(1)
	}
}

var (
	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return serve()
		},
	}

	convertCmd = &cobra.Command{
		Use:   "convert <input.heic> <output.jpg>",
		Short: "Convert a local HEIC/HEIF file to JPEG using the configured quality",
		Args:  cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			log := logging.New("info", false)
			cfg := config.Load(log)
			return convertFile(convert.New(cfg.JPEGQuality), args[0], args[1])
		},
	}
)

func convertFile(conv *convert.Converter, in, out string) error {
	src, err := os.ReadFile(in)
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}
	jpg, err := conv.Convert(src)
	if err != nil {
		return err
	}
	if err := os.WriteFile(out, jpg, 0o644); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}

func serve() error {
	bootLog := logging.New("info", false)
	cfg := config.Load(bootLog)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	log := logging.New(cfg.LogLevel, cfg.IsProduction())

	store, err := storage.New(context.Background(), cfg)
	if err != nil {
		return fmt.Errorf("object storage init failed: %w", err)
	}

	scratchStore, err := scratch.NewStore(cfg.UploadDir)
	if err != nil {
		return fmt.Errorf("scratch init failed: %w", err)
	}
	removed, err := scratchStore.Sweep(staleAreaAge)
	if err != nil {
		log.WithError(err).Warn("could not clear every leftover upload")
	}
	if removed > 0 {
		log.WithField("areas", removed).Info("cleared leftover uploads")
	}

	// Wire dependencies: converter + storage → service → handler
	conv := convert.New(cfg.JPEGQuality)
	uploadSvc := upload.NewService(store, conv, log)
	uploadHandler := upload.NewHandler(uploadSvc, scratchStore, upload.Limits{
		MaxFiles:    cfg.MaxFiles,
		MaxFileSize: cfg.MaxFileSize(),
	}, log)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      newRouter(log, uploadHandler, cfg.MaxBodySize()),
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine; wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	errc := make(chan error, 1)
	go func() {
		log.WithFields(logrus.Fields{
			"port":    cfg.Port,
			"env":     cfg.AppEnv,
			"storage": cfg.StorageDriver,
			"quality": conv.Quality(),
		}).Info("server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errc <- err
		}
	}()

	select {
	case err := <-errc:
		return fmt.Errorf("server error: %w", err)
	case <-quit:
	}
	log.Info("shutting down gracefully...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("forced shutdown: %w", err)
	}

	log.Info("server stopped")
	return nil
}
