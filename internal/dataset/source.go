package dataset

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"time"
)

// Source opens one named static resource.
type Source interface {
	Open(ctx context.Context, name string) (io.ReadCloser, error)
}

// DirSource reads resources from a file system, typically a data directory.
type DirSource struct {
	fsys fs.FS
}

// NewDirSource creates a Source rooted at dir.
func NewDirSource(dir string) *DirSource {
	return &DirSource{fsys: os.DirFS(dir)}
}

// NewFSSource creates a Source over an arbitrary file system.
func NewFSSource(fsys fs.FS) *DirSource {
	return &DirSource{fsys: fsys}
}

func (s *DirSource) Open(_ context.Context, name string) (io.ReadCloser, error) {
	f, err := s.fsys.Open(name)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	return f, nil
}

// HTTPSource fetches resources relative to a base URL, the way a browser
// loads the dashboard's data files from the static host.
type HTTPSource struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewHTTPSource creates a Source that GETs <baseURL>/<name>.
func NewHTTPSource(baseURL string, timeout time.Duration, logger *slog.Logger) *HTTPSource {
	return &HTTPSource{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

func (s *HTTPSource) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	u, err := url.JoinPath(s.baseURL, name)
	if err != nil {
		return nil, fmt.Errorf("build url for %s: %w", name, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", name, err)
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("get %s: status %d: %s", name, resp.StatusCode, body)
	}

	s.logger.Debug("static resource fetched", "url", u, "content_length", resp.ContentLength)
	return resp.Body, nil
}
