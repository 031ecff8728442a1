package media

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BXLSTNRD/FrePathe/internal/domain"
	"github.com/BXLSTNRD/FrePathe/internal/paths"
	"github.com/BXLSTNRD/FrePathe/internal/pkg/logger"
)

// Downloader pulls generated assets from backend URLs into the project
// renders folder so the state document only references local files.
type Downloader interface {
	// FetchImage downloads a remote image and stores it under the project
	// renders dir as name+ext (ext inferred from the URL). Local URLs pass
	// through untouched. A failed download is logged and the remote URL is
	// returned so the pipeline keeps a usable reference.
	FetchImage(ctx context.Context, state *domain.State, remoteURL, name string) string
	// WriteRenderFile stores raw uploaded bytes under the project renders
	// dir and returns the local URL.
	WriteRenderFile(state *domain.State, filename string, data []byte) (string, error)
}

type downloader struct {
	log   *logger.Logger
	paths paths.PathManager
	http  *http.Client
}

func NewDownloader(log *logger.Logger, pm paths.PathManager) Downloader {
	return &downloader{
		log:   log.With("service", "AssetDownloader"),
		paths: pm,
		http:  &http.Client{Timeout: 60 * time.Second},
	}
}

func extFromURL(url string) string {
	switch {
	case strings.Contains(url, ".jpg"), strings.Contains(url, ".jpeg"):
		return ".jpg"
	case strings.Contains(url, ".webp"):
		return ".webp"
	default:
		return ".png"
	}
}

func (d *downloader) FetchImage(ctx context.Context, state *domain.State, remoteURL, name string) string {
	if remoteURL == "" || strings.HasPrefix(remoteURL, "/files/") {
		return remoteURL
	}
	dir, err := d.paths.RendersDir(state)
	if err != nil {
		d.log.Warn("renders dir unavailable, keeping remote url", "error", err)
		return remoteURL
	}
	dst := filepath.Join(dir, name+extFromURL(remoteURL))
	if err := d.fetch(ctx, remoteURL, dst); err != nil {
		d.log.Warn("image download failed, keeping remote url", "url", remoteURL, "error", err)
		return remoteURL
	}
	localURL, err := d.paths.ToURL(dst)
	if err != nil {
		d.log.Warn("local url mapping failed, keeping remote url", "path", dst, "error", err)
		return remoteURL
	}
	return localURL
}

func (d *downloader) fetch(ctx context.Context, url, dst string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := d.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	return os.WriteFile(dst, body, 0o644)
}

func (d *downloader) WriteRenderFile(state *domain.State, filename string, data []byte) (string, error) {
	dir, err := d.paths.RendersDir(state)
	if err != nil {
		return "", err
	}
	dst := filepath.Join(dir, filename)
	if err := os.WriteFile(dst, data, 0o644); err != nil {
		return "", fmt.Errorf("write render file: %w", err)
	}
	return d.paths.ToURL(dst)
}
