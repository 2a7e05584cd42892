// Package cricsheet downloads bulk match archives from cricsheet.org.
package cricsheet

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// DefaultBaseURL is the root of the Cricsheet downloads area.
const DefaultBaseURL = "https://cricsheet.org/downloads"

// Archives lists well-known archive names. Any other name is passed through.
var Archives = map[string]string{
	"all":     "all_json.zip",
	"tests":   "tests_json.zip",
	"odis":    "odis_json.zip",
	"t20s":    "t20s_json.zip",
	"ipl":     "ipl_json.zip",
	"recent":  "recently_added_7_json.zip",
	"recent2": "recently_added_2_json.zip",
}

// Client fetches archives over HTTP.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient returns a client for the given base URL (DefaultBaseURL when empty).
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 10 * time.Minute},
	}
}

// ArchiveFile maps a short archive name to its file name.
func ArchiveFile(name string) string {
	if f, ok := Archives[name]; ok {
		return f
	}
	if !strings.HasSuffix(name, ".zip") {
		return name + "_json.zip"
	}
	return name
}

// Download saves the named archive into dir and returns the file path.
// The file is written under a temporary name and renamed once complete.
func (c *Client) Download(ctx context.Context, archive, dir string) (string, error) {
	file := ArchiveFile(archive)
	url := c.baseURL + "/" + file

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("GET %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("GET %s: HTTP %d", url, resp.StatusCode)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	dest := filepath.Join(dir, file)
	tmp, err := os.CreateTemp(dir, file+".*.part")
	if err != nil {
		return "", err
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		return "", fmt.Errorf("download %s: %w", file, err)
	}
	if err := tmp.Close(); err != nil {
		return "", err
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		return "", err
	}
	return dest, nil
}
