package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"tasfiat-brain/internal/geo"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	syncURL     string
	syncTimeout time.Duration
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Download a prebuilt places file",
	Long: `Downloads places.json from --url (default GEO_PLACES_URL) and replaces
the local file. Any failure keeps the local file and still exits 0 so that
deploy scripts can run it unconditionally.`,
	Args: cobra.NoArgs,
	RunE: runSync,
}

func init() {
	syncCmd.Flags().StringVar(&syncURL, "url", os.Getenv("GEO_PLACES_URL"), "places file URL")
	syncCmd.Flags().DurationVar(&syncTimeout, "timeout", 60*time.Second, "download timeout")
	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, args []string) error {
	if syncURL == "" {
		log.Warn("No places URL configured, keeping local file", zap.String("path", outPath))
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), syncTimeout)
	defer cancel()

	file, err := geo.FetchPlaces(ctx, &http.Client{}, syncURL)
	if err != nil {
		log.Warn("Places download failed, keeping local file", zap.String("path", outPath), zap.Error(err))
		return nil
	}
	if err := geo.WritePlacesFile(outPath, file); err != nil {
		log.Warn("Places write failed, keeping local file", zap.String("path", outPath), zap.Error(err))
		return nil
	}

	log.Info("Places file synced",
		zap.String("path", outPath),
		zap.String("version", file.Meta.Version),
		zap.Int("keys", len(file.Places)),
	)
	return nil
}
