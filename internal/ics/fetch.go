package ics

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	appLog "webcal/internal/log"
)

const maxBodyBytes = 16 << 20

// Source is one ICS feed to import, read from a local Path or a remote URL.
type Source struct {
	ID   string
	Name string
	Path string
	URL  string
}

func (s Source) String() string {
	if s.Path != "" {
		return s.Path
	}
	return redactURL(s.URL)
}

type cachedBody struct {
	etag         string
	lastModified string
	body         []byte
}

// Fetcher loads ICS payloads. Remote feeds are revalidated with ETag and
// Last-Modified and the last good body is reused when the server fails.
type Fetcher struct {
	client *http.Client

	mu    sync.Mutex
	cache map[string]cachedBody
}

func NewFetcher(timeout time.Duration) *Fetcher {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Fetcher{
		client: &http.Client{Timeout: timeout},
		cache:  make(map[string]cachedBody),
	}
}

// Load returns the raw ICS body of src.
func (f *Fetcher) Load(ctx context.Context, src Source) ([]byte, error) {
	switch {
	case src.Path != "":
		body, err := os.ReadFile(src.Path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", src.Path, err)
		}
		return body, nil
	case src.URL != "":
		return f.fetch(ctx, src)
	default:
		return nil, errors.New("source has neither path nor url")
	}
}

func (f *Fetcher) fetch(ctx context.Context, src Source) ([]byte, error) {
	if !strings.HasPrefix(src.URL, "http://") && !strings.HasPrefix(src.URL, "https://") {
		return nil, fmt.Errorf("unsupported url scheme: %s", redactURL(src.URL))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src.URL, nil)
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	prev, havePrev := f.cache[src.URL]
	f.mu.Unlock()
	if havePrev {
		if prev.etag != "" {
			req.Header.Set("If-None-Match", prev.etag)
		}
		if prev.lastModified != "" {
			req.Header.Set("If-Modified-Since", prev.lastModified)
		}
	}

	appLog.Info("ics fetch start", "id", src.ID, "url", redactURL(src.URL))

	resp, err := f.client.Do(req)
	if err != nil {
		if havePrev {
			appLog.Error("ics fetch network error, using cached body", err, "id", src.ID)
			return prev.body, nil
		}
		return nil, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
		if err != nil {
			return nil, err
		}
		f.mu.Lock()
		f.cache[src.URL] = cachedBody{
			etag:         resp.Header.Get("ETag"),
			lastModified: resp.Header.Get("Last-Modified"),
			body:         body,
		}
		f.mu.Unlock()
		appLog.Info("ics fetch success", "id", src.ID, "bytes", len(body))
		return body, nil

	case http.StatusNotModified:
		if !havePrev {
			return nil, errors.New("received 304 Not Modified but no cached body available")
		}
		appLog.Info("ics fetch not modified; using cache", "id", src.ID)
		return prev.body, nil

	default:
		if havePrev {
			appLog.Error("ics fetch non-OK, using cached body", errors.New(resp.Status), "id", src.ID)
			return prev.body, nil
		}
		return nil, errors.New(resp.Status)
	}
}

// redactURL keeps scheme and host only; feed URLs often embed tokens.
func redactURL(u string) string {
	i := strings.Index(u, "://")
	if i < 0 {
		return "ics://...(redacted)"
	}
	rest := u[i+3:]
	if j := strings.IndexByte(rest, '/'); j >= 0 {
		rest = rest[:j]
	}
	return u[:i+3] + rest + "/...(redacted)"
}
