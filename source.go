package smfplay

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/keyfall/smfplay-go/internal/debug"
)

// NetworkError reports a failed score download. Status is the HTTP status
// code when a response was received, zero when the transport itself failed.
type NetworkError struct {
	URL    string
	Status int
	Err    error
}

func (e *NetworkError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("fetch %s: unexpected status %d", e.URL, e.Status)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// LoadFile reads and decodes a Standard MIDI File from disk.
func LoadFile(path string) (*Score, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return Parse(data)
}

const maxScoreBytes = 16 << 20

var fetchClient = &http.Client{Timeout: 30 * time.Second}

// FetchURL downloads and decodes a Standard MIDI File. An empty token
// sends no Authorization header; otherwise it is sent as a bearer token.
// Transport failures and non-200 responses come back as *NetworkError.
func FetchURL(ctx context.Context, url, token string) (*Score, error) {
	data, err := fetchBytes(ctx, url, token)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

func fetchBytes(ctx context.Context, url, token string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &NetworkError{URL: url, Err: err}
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := fetchClient.Do(req)
	if err != nil {
		return nil, &NetworkError{URL: url, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &NetworkError{URL: url, Status: resp.StatusCode}
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxScoreBytes))
	if err != nil {
		return nil, &NetworkError{URL: url, Err: err}
	}
	debug.Logf("source", "fetched %d bytes from %s", len(data), url)
	return data, nil
}
