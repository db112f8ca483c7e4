// Package monitor implements the live status client for the daemon's
// snapshot socket, including the terminal UI.
package monitor

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"codeberg.org/isvind/gpufanctl/internal/errors"
	"codeberg.org/isvind/gpufanctl/internal/state"
)

const (
	// MinRefreshInterval is the fastest allowed probe cadence.
	MinRefreshInterval = 0.1
	// MaxRefreshInterval is the slowest allowed probe cadence.
	MaxRefreshInterval = 10.0

	requestTimeout = 2 * time.Second
)

// Client probes the daemon over its unix socket.
type Client struct {
	http     *http.Client
	endpoint string
}

// NewClient creates a Client talking to the daemon socket at socketPath.
func NewClient(socketPath string) *Client {
	transport := &http.Transport{
		DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
			var d net.Dialer

			return d.DialContext(ctx, "unix", socketPath)
		},
	}

	return &Client{
		http: &http.Client{
			Transport: transport,
			Timeout:   requestTimeout,
		},
		// Host is ignored for unix transports but the URL must parse.
		endpoint: "http://gpufanctl/gpustate",
	}
}

// Probe fetches the current device snapshot and reports how long the
// round trip took.
func (c *Client) Probe(ctx context.Context) (*state.Snapshot, time.Duration, error) {
	errFactory := errors.New()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint, nil)
	if err != nil {
		return nil, 0, errFactory.Wrap(errors.ErrMonitorProbe, err)
	}

	start := time.Now()

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, errFactory.Wrap(errors.ErrMonitorProbe, err).
			WithMessage("Failed to reach the daemon socket. Is the daemon running?")
	}
	defer resp.Body.Close()

	latency := time.Since(start)

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, errFactory.Wrap(errors.ErrMonitorProbe, err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, 0, errFactory.WithMessage(errors.ErrMonitorProbe,
			fmt.Sprintf("daemon reported status %d: %s", resp.StatusCode, string(body)))
	}

	var snapshot state.Snapshot
	if err := json.Unmarshal(body, &snapshot); err != nil {
		return nil, 0, errFactory.Wrap(errors.ErrMonitorProbe, err)
	}

	return &snapshot, latency, nil
}

// ValidateRefreshInterval rejects probe cadences outside (0.1, 10] seconds.
func ValidateRefreshInterval(seconds float64) error {
	errFactory := errors.New()

	if seconds <= MinRefreshInterval || seconds > MaxRefreshInterval {
		return errFactory.WithMessage(errors.ErrInvalidArgument,
			fmt.Sprintf("refresh interval must be within (%.1f, %.1f] seconds, got %.2f",
				MinRefreshInterval, MaxRefreshInterval, seconds))
	}

	return nil
}
