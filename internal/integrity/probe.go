package integrity

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// ClockProbe fetches a trusted reference time by issuing a HEAD request to a
// configured endpoint and reading the Date response header. The probe is
// deliberately cheap: no body, short timeout.
type ClockProbe struct {
	url    string
	client *http.Client
}

// NewClockProbe creates a probe against the given URL. An empty URL disables
// probing; Now will report ErrProbeDisabled.
func NewClockProbe(url string, timeout time.Duration) *ClockProbe {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &ClockProbe{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

// ErrProbeDisabled is returned when no probe URL is configured.
var ErrProbeDisabled = fmt.Errorf("clock probe disabled")

// Now returns the reference time from the probe endpoint's Date header.
func (p *ClockProbe) Now(ctx context.Context) (time.Time, error) {
	if p == nil || p.url == "" {
		return time.Time{}, ErrProbeDisabled
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, p.url, nil)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to build probe request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return time.Time{}, fmt.Errorf("clock probe failed: %w", err)
	}
	defer resp.Body.Close()

	dateHeader := resp.Header.Get("Date")
	if dateHeader == "" {
		return time.Time{}, fmt.Errorf("clock probe response missing Date header")
	}

	ref, err := http.ParseTime(dateHeader)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse Date header: %w", err)
	}

	return ref, nil
}
