package infra

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/disintegration/imaging"
)

const iconSize = 24

// IconDownloader handles downloading and caching item icons
type IconDownloader struct {
	basePath string
	client   *http.Client
}

// NewIconDownloader creates a new IconDownloader rooted at dir.
// An empty dir resolves to the per-user config directory.
func NewIconDownloader(dir string) (*IconDownloader, error) {
	path := dir
	if path == "" {
		var err error
		path, err = getAssetsPath()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve assets path: %w", err)
		}
	}

	// Ensure directory exists
	if err := os.MkdirAll(path, 0755); err != nil {
		return nil, fmt.Errorf("failed to create assets directory: %w", err)
	}

	// Optimize HTTP Transport to prevent connection leaks
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.MaxIdleConns = 100
	transport.MaxConnsPerHost = 10
	transport.IdleConnTimeout = 30 * time.Second

	return &IconDownloader{
		basePath: path,
		client: &http.Client{
			Timeout:   10 * time.Second,
			Transport: transport,
		},
	}, nil
}

// DownloadIcon fetches url and stores it as the icon of id, unless one is
// already cached. Returns the local file path on success.
// Images are resized to 24x24 pixels for consistent overlay display.
func (d *IconDownloader) DownloadIcon(id, url string) (string, error) {
	filePath, err := d.IconPath(id)
	if err != nil {
		return "", err
	}
	if url == "" {
		return "", errors.New("no icon url")
	}

	// Check if exists
	if _, err := os.Stat(filePath); err == nil {
		return filePath, nil // Already exists (Cache Hit)
	}

	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", DefaultUserAgent)

	resp, err := d.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("bad status: %s", resp.Status)
	}

	// Decode the image
	srcImg, err := imaging.Decode(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to decode image: %w", err)
	}

	// Resize with high-quality Lanczos filter
	resizedImg := imaging.Resize(srcImg, iconSize, iconSize, imaging.Lanczos)

	if err := imaging.Save(resizedImg, filePath); err != nil {
		return "", fmt.Errorf("failed to save resized image: %w", err)
	}

	return filePath, nil
}

// RemoveIcon deletes the cached icon of id. A missing file is not an error.
func (d *IconDownloader) RemoveIcon(id string) error {
	filePath, err := d.IconPath(id)
	if err != nil {
		return err
	}
	if err := os.Remove(filePath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// IconPath returns the local path for an item's icon
func (d *IconDownloader) IconPath(id string) (string, error) {
	// Security: Sanitize id to prevent path traversal
	safe := sanitizeID(id)
	if safe == "" {
		return "", fmt.Errorf("invalid id: %q", id)
	}
	return filepath.Join(d.basePath, strings.ToLower(safe)+".png"), nil
}

func getAssetsPath() (string, error) {
	var configDir string
	var err error

	if runtime.GOOS == "windows" {
		configDir = os.Getenv("LOCALAPPDATA")
		if configDir == "" {
			configDir, err = os.UserConfigDir()
		}
	} else {
		configDir, err = os.UserConfigDir()
	}

	if err != nil {
		return "", err
	}

	return filepath.Join(configDir, "DexWatch", "assets", "icons"), nil
}

func sanitizeID(id string) string {
	res := make([]rune, 0, len(id))
	for _, r := range id {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			res = append(res, r)
		}
	}
	return string(res)
}
