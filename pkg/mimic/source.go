package mimic

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

// Source produces the SVG text of a mimic.
type Source interface {
	Fetch(ctx context.Context) ([]byte, error)
	String() string
}

// SourceFor picks a source by location: http(s) URLs are fetched over HTTP,
// file: URLs and anything else are read from disk.
func SourceFor(location string, maxSize int64) Source {
	switch {
	case strings.HasPrefix(location, "http://"), strings.HasPrefix(location, "https://"):
		return &HTTPSource{URL: location, MaxSize: maxSize}
	default:
		return &FileSource{Path: strings.TrimPrefix(location, "file://"), MaxSize: maxSize}
	}
}

// BytesSource serves an in-memory drawing.
type BytesSource struct {
	Name string
	Data []byte
}

func (b *BytesSource) Fetch(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return b.Data, nil
}

func (b *BytesSource) String() string {
	if b.Name == "" {
		return "bytes"
	}
	return b.Name
}

type FileSource struct {
	Path    string
	MaxSize int64
}

func (f *FileSource) Fetch(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	file, err := os.Open(f.Path)
	if err != nil {
		return nil, fmt.Errorf("open mimic: %w", err)
	}
	defer file.Close()
	return readLimited(file, f.MaxSize)
}

func (f *FileSource) String() string { return f.Path }

type HTTPSource struct {
	URL     string
	Client  *http.Client
	MaxSize int64
}

func (h *HTTPSource) Fetch(ctx context.Context) ([]byte, error) {
	client := h.Client
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "image/svg+xml, application/xml;q=0.9, */*;q=0.1")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch mimic: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s from %s", ErrFetchStatus, resp.Status, h.URL)
	}
	return readLimited(resp.Body, h.MaxSize)
}

func (h *HTTPSource) String() string { return h.URL }

func readLimited(r io.Reader, max int64) ([]byte, error) {
	if max <= 0 {
		return io.ReadAll(r)
	}
	data, err := io.ReadAll(io.LimitReader(r, max+1))
	if err != nil {
		return nil, fmt.Errorf("read mimic: %w", err)
	}
	if int64(len(data)) > max {
		return nil, fmt.Errorf("%w: document larger than %d bytes", ErrLimitExceeded, max)
	}
	return data, nil
}
