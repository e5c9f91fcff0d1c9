package main

import (
	"fmt"
	"os"

	"tasfiat-brain/pkg/logger"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	outPath   string
	logFormat string
	log       *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "placesbuild",
	Short: "Build or fetch the place index used for shipping zones",
	Long: `placesbuild turns GeoNames dumps into the places.json file the service
loads at startup, or downloads a prebuilt file from GEO_PLACES_URL.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		l, err := logger.New("info", logFormat)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		log = l
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if log != nil {
			_ = log.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&outPath, "out", "o", "data/places.json", "places file to write")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "console", "log format: json or console")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
