package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
)

const maxPlacesBytes = 64 << 20

// FetchPlaces downloads a prebuilt places file and checks that it parses
// and is not empty.
func FetchPlaces(ctx context.Context, client *http.Client, url string) (PlacesFile, error) {
	var file PlacesFile

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return file, fmt.Errorf("failed to create places request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return file, fmt.Errorf("failed to download places: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return file, fmt.Errorf("failed to download places: status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxPlacesBytes))
	if err != nil {
		return file, fmt.Errorf("failed to read places: %w", err)
	}
	if err := json.Unmarshal(data, &file); err != nil {
		return file, fmt.Errorf("%w: %v", ErrInvalidPlaces, err)
	}
	if len(file.Places) == 0 {
		return file, fmt.Errorf("%w: no places", ErrInvalidPlaces)
	}
	return file, nil
}

// WritePlacesFile writes file as JSON through a temporary file so readers
// never see a partial index.
func WritePlacesFile(path string, file PlacesFile) error {
	data, err := json.MarshalIndent(file, "", " ")
	if err != nil {
		return fmt.Errorf("failed to encode places: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create places directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".places-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp places file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write places: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write places: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to replace places file: %w", err)
	}
	return nil
}
