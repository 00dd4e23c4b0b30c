package ics

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	appLog "planner/internal/log"
)

// maxBody caps how much of an ICS payload is read.
const maxBody = 8 << 20

// Fetcher reads ICS payloads from local files or http(s) URLs.
type Fetcher struct {
	client *http.Client
}

// NewFetcher creates a Fetcher whose HTTP requests time out after timeout
// (15s when zero).
func NewFetcher(timeout time.Duration) *Fetcher {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Fetcher{client: &http.Client{Timeout: timeout}}
}

// Read returns the payload at src, which is either an http(s) URL or a
// filesystem path.
func (f *Fetcher) Read(ctx context.Context, src string) ([]byte, error) {
	if src == "" {
		return nil, errors.New("ics source is empty")
	}
	if !isRemote(src) {
		body, err := os.ReadFile(src)
		if err != nil {
			return nil, err
		}
		appLog.Info("ics read", "path", src, "bytes", len(body))
		return body, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/calendar")

	appLog.Info("ics fetch start", "url", redactURL(src))
	resp, err := f.client.Do(req)
	if err != nil {
		appLog.Error("ics fetch failed", err, "url", redactURL(src))
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("ics fetch: %s", resp.Status)
		appLog.Error("ics fetch failed", err, "url", redactURL(src), "status", resp.StatusCode)
		return nil, err
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, err
	}
	appLog.Info("ics fetch success", "url", redactURL(src), "bytes", len(body))
	return body, nil
}

func isRemote(src string) bool {
	return strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://")
}

// redactURL keeps only scheme and host, since subscription URLs often carry
// tokens in the path or query.
func redactURL(u string) string {
	parsed, err := url.Parse(u)
	if err != nil || parsed.Host == "" {
		return "ics://...(redacted)"
	}
	return parsed.Scheme + "://" + parsed.Host + "/...(redacted)"
}
