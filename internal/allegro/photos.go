package allegro

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// maxPhotoSize bounds a single photo download.
const maxPhotoSize = 10 << 20

// PhotoLoader reads offer photos from http(s) locations or local files and
// returns them base64 encoded.
type PhotoLoader struct {
	httpClient  *http.Client
	rateLimiter *rate.Limiter
}

// NewPhotoLoader creates a loader issuing at most one download per interval.
func NewPhotoLoader(httpClient *http.Client, interval time.Duration) *PhotoLoader {
	if interval <= 0 {
		interval = 200 * time.Millisecond
	}
	return &PhotoLoader{
		httpClient:  httpClient,
		rateLimiter: rate.NewLimiter(rate.Every(interval), 1),
	}
}

// LoadAll loads up to MaxPhotos locations in order. Relative file paths are
// resolved against baseDir.
func (l *PhotoLoader) LoadAll(ctx context.Context, locations []string, baseDir string) ([]string, error) {
	if len(locations) > MaxPhotos {
		locations = locations[:MaxPhotos]
	}

	images := make([]string, 0, len(locations))
	for _, loc := range locations {
		data, err := l.Load(ctx, loc, baseDir)
		if err != nil {
			return nil, err
		}
		images = append(images, base64.StdEncoding.EncodeToString(data))
	}
	return images, nil
}

// Load returns the raw bytes of one photo.
func (l *PhotoLoader) Load(ctx context.Context, location, baseDir string) ([]byte, error) {
	if isRemote(location) {
		return l.fetch(ctx, location)
	}

	path := location
	if !filepath.IsAbs(path) && baseDir != "" {
		path = filepath.Join(baseDir, path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read photo %s: %w", location, err)
	}
	return data, nil
}

func (l *PhotoLoader) fetch(ctx context.Context, location string) ([]byte, error) {
	if err := l.rateLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter error: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := l.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download photo %s: %w", location, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download photo %s: unexpected status code: %d", location, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxPhotoSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read photo %s: %w", location, err)
	}
	if len(data) > maxPhotoSize {
		return nil, fmt.Errorf("photo %s exceeds %d bytes", location, maxPhotoSize)
	}
	return data, nil
}

func isRemote(location string) bool {
	lower := strings.ToLower(location)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}
