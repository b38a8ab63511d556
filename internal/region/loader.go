package region

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

// DefaultTimeout for HTTP region sources.
const DefaultTimeout = 15 * time.Second

// Loader reads region records from a file or an http(s) URL.
type Loader struct {
	client  *http.Client
	timeout time.Duration
	style   Style
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithTimeout sets the HTTP request timeout.
func WithTimeout(d time.Duration) LoaderOption {
	return func(l *Loader) {
		l.timeout = d
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) LoaderOption {
	return func(l *Loader) {
		l.client = client
	}
}

// WithStyle sets the base style applied to every loaded region.
func WithStyle(s Style) LoaderOption {
	return func(l *Loader) {
		l.style = s
	}
}

// NewLoader creates a region loader.
func NewLoader(opts ...LoaderOption) *Loader {
	l := &Loader{
		timeout: DefaultTimeout,
		style:   DefaultStyle(),
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.client == nil {
		l.client = &http.Client{Timeout: l.timeout}
	}
	return l
}

// Load reads and parses the regions at source.
func (l *Loader) Load(ctx context.Context, source string) (*Set, error) {
	raw, err := l.read(ctx, source)
	if err != nil {
		return nil, err
	}
	set, err := l.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", source, err)
	}
	return set, nil
}

// Parse decodes a JSON array of region records, or a single record.
func (l *Loader) Parse(raw []byte) (*Set, error) {
	records, err := splitRecords(raw)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, ErrNoRegions
	}

	regions := make([]*Region, 0, len(records))
	for i, rec := range records {
		r, err := FromRecord(rec, i, l.style)
		if err != nil {
			return nil, err
		}
		regions = append(regions, r)
	}
	return NewSet(regions), nil
}

func splitRecords(raw []byte) ([]json.RawMessage, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, ErrNoRegions
	}
	if trimmed[0] == '[' {
		var records []json.RawMessage
		if err := json.Unmarshal(trimmed, &records); err != nil {
			return nil, fmt.Errorf("decode region list: %w", err)
		}
		return records, nil
	}
	if !json.Valid(trimmed) {
		return nil, fmt.Errorf("decode region record: invalid JSON")
	}
	return []json.RawMessage{json.RawMessage(trimmed)}, nil
}

func (l *Loader) read(ctx context.Context, source string) ([]byte, error) {
	if !strings.HasPrefix(source, "http://") && !strings.HasPrefix(source, "https://") {
		data, err := os.ReadFile(source)
		if err != nil {
			return nil, fmt.Errorf("read regions: %w", err)
		}
		return data, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch regions: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch regions: unexpected status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	return body, nil
}
