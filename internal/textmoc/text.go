package textmoc

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/net/html"
)

// DefaultFetchTimeout bounds page downloads for SetText.
const DefaultFetchTimeout = 15 * time.Second

// SetText sets the custom text from src: the visible text of an http(s)
// page, the contents of an existing file, or src itself.
func (d *Document) SetText(ctx context.Context, client *http.Client, src string) error {
	var text string
	switch {
	case validURL(src):
		page, err := fetchPageText(ctx, client, src)
		if err != nil {
			return err
		}
		text = page
	case isFile(src):
		data, err := os.ReadFile(src)
		if err != nil {
			return fmt.Errorf("read %s: %w", src, err)
		}
		text = strings.TrimSpace(string(data))
	default:
		text = src
	}
	return d.set(KeyText, text)
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

func fetchPageText(ctx context.Context, client *http.Client, url string) (string, error) {
	if client == nil {
		client = &http.Client{Timeout: DefaultFetchTimeout}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("fetch %s: unexpected status code: %d", url, resp.StatusCode)
	}
	return ExtractText(resp.Body)
}

// ExtractText returns the visible text of an HTML document, one text run
// per line. Script and style contents are skipped.
func ExtractText(r io.Reader) (string, error) {
	z := html.NewTokenizer(r)
	var lines []string
	skip := 0

	for {
		switch z.Next() {
		case html.ErrorToken:
			if err := z.Err(); err != io.EOF {
				return "", fmt.Errorf("parse html: %w", err)
			}
			return strings.Join(lines, "\n"), nil
		case html.StartTagToken:
			if name, _ := z.TagName(); hidden(string(name)) {
				skip++
			}
		case html.EndTagToken:
			if name, _ := z.TagName(); hidden(string(name)) && skip > 0 {
				skip--
			}
		case html.TextToken:
			if skip > 0 {
				continue
			}
			if s := strings.Join(strings.Fields(string(z.Text())), " "); s != "" {
				lines = append(lines, s)
			}
		}
	}
}

func hidden(tag string) bool {
	switch tag {
	case "script", "style", "noscript", "template":
		return true
	}
	return false
}
