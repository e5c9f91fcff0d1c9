package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"tasfiat-brain/internal/geo"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var aliasesPath string

var buildCmd = &cobra.Command{
	Use:   "build PS.txt IL.txt [alternateNamesV2.txt]",
	Short: "Build places.json from GeoNames country dumps",
	Long: `Reads the Palestine (west_bank) dump first and the Israel (inside_1948)
dump second; the first region to claim a name keeps it. The optional
alternate names table adds Arabic, Hebrew and English spellings. Aliases
are applied last and override everything.`,
	Args: cobra.RangeArgs(2, 3),
	RunE: runBuild,
}

func init() {
	buildCmd.Flags().StringVar(&aliasesPath, "aliases", "data/aliases.json", "manual aliases file")
	rootCmd.AddCommand(buildCmd)
}

func runBuild(cmd *cobra.Command, args []string) error {
	b := geo.NewBuilder()

	regions := []struct {
		path string
		zone geo.Zone
	}{
		{args[0], geo.ZoneWestBank},
		{args[1], geo.ZoneInside1948},
	}
	for _, r := range regions {
		n, err := addFile(r.path, func(f io.Reader) (int, error) { return b.AddGeoNames(f, r.zone) })
		if err != nil {
			return err
		}
		log.Info("GeoNames dump read", zap.String("path", r.path), zap.String("zone", string(r.zone)), zap.Int("places", n))
	}

	if len(args) == 3 {
		n, err := addFile(args[2], b.AddAlternateNames)
		if err != nil {
			return err
		}
		log.Info("Alternate names read", zap.String("path", args[2]), zap.Int("names", n))
	}

	aliases, err := geo.ReadAliases(aliasesPath)
	if err != nil {
		return err
	}
	b.ApplyAliases(aliases)

	file := b.Build(time.Now())
	if err := geo.WritePlacesFile(outPath, file); err != nil {
		return err
	}
	log.Info("Places file written",
		zap.String("path", outPath),
		zap.Int("keys", file.Meta.Counts.Keys),
		zap.Int("aliases", len(aliases)),
	)
	return nil
}

func addFile(path string, add func(io.Reader) (int, error)) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()
	return add(f)
}
