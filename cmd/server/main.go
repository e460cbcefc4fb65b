package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/eisenbruch/projector/internal/api"
	"github.com/eisenbruch/projector/internal/capture"
	"github.com/eisenbruch/projector/internal/config"
	"github.com/eisenbruch/projector/internal/events"
	"github.com/eisenbruch/projector/pkg/ffmpeg"
)

var (
	flagPort   int
	flagHLSDir string
	flagFFmpeg string
)

var rootCmd = &cobra.Command{
	Use:   "projector",
	Short: "One-click screen sharing for workshops via HLS streaming",
	RunE:  run,
}

func init() {
	rootCmd.Flags().IntVar(&flagPort, "port", 0, "control port (overrides PROJECTOR_PORT)")
	rootCmd.Flags().StringVar(&flagHLSDir, "hls-dir", "", "segment directory (overrides PROJECTOR_HLS_DIR)")
	rootCmd.Flags().StringVar(&flagFFmpeg, "ffmpeg", "", "path to ffmpeg (overrides PROJECTOR_FFMPEG)")
}

func run(cmd *cobra.Command, args []string) error {
	log.Println("Starting Projector...")

	// Load configuration
	cfg := config.New()
	if flagPort != 0 {
		cfg.Port = flagPort
	}
	if flagHLSDir != "" {
		cfg.HLSDir = flagHLSDir
	}
	if flagFFmpeg != "" {
		cfg.FFmpegPath = flagFFmpeg
	}

	if err := ffmpeg.CheckInstallation(cfg.FFmpegPath); err != nil {
		log.Printf("Warning: %v", err)
	}

	// Wire the supervisor, source lister and event hub
	hub := events.NewHub()
	supervisor := capture.NewSupervisor(cfg, capture.WithListener(hub.Publish))
	sources := capture.NewFFmpegSourceLister(cfg.FFmpegPath)

	// Setup HTTP server
	handler := api.NewHandler(supervisor, sources, hub, cfg)
	router := api.SetupRoutes(handler)
	server := api.NewHTTPServer(cfg, router)

	// Start server in goroutine
	go func() {
		log.Printf("Projector control panel -> http://localhost:%d/project", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	// The capture process must not outlive the server.
	supervisor.Stop()
	hub.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return err
	}

	log.Println("Server exited gracefully")
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
