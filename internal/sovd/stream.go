package sovd

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"sovdscope/internal/logging"
)

// StreamFaults opens the server's fault push stream (SSE) and delivers
// decoded fault events on the returned channel. The channel is closed when
// the stream ends or ctx is canceled. Malformed events are dropped with a
// logged warning; they do not terminate the stream.
func (c *Client) StreamFaults(ctx context.Context) (<-chan Fault, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/faults/stream", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build stream request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := c.stream.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to open fault stream: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close() //nolint:errcheck // Cleanup, error not critical
		return nil, &StatusError{StatusCode: resp.StatusCode, Status: resp.Status}
	}

	events := make(chan Fault)
	go func() {
		defer close(events)
		defer resp.Body.Close() //nolint:errcheck // Cleanup, error not critical

		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

		var eventType string
		var dataLines []string
		for scanner.Scan() {
			line := scanner.Text()
			switch {
			case line == "":
				dispatchFaultEvent(ctx, events, eventType, dataLines)
				eventType = ""
				dataLines = dataLines[:0]
			case strings.HasPrefix(line, "event:"):
				eventType = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
			case strings.HasPrefix(line, "data:"):
				dataLines = append(dataLines, strings.TrimSpace(strings.TrimPrefix(line, "data:")))
			case strings.HasPrefix(line, ":"):
				// comment/keepalive, ignore
			}
		}
		if err := scanner.Err(); err != nil && ctx.Err() == nil {
			logging.Warning("Fault stream closed: %v", err)
		}
	}()

	return events, nil
}

func dispatchFaultEvent(ctx context.Context, events chan<- Fault, eventType string, dataLines []string) {
	if len(dataLines) == 0 {
		return
	}
	if eventType == "heartbeat" {
		return
	}

	payload := strings.Join(dataLines, "\n")
	var fault Fault
	if err := json.Unmarshal([]byte(payload), &fault); err != nil {
		logging.Warning("Dropping malformed fault event: %v", err)
		return
	}
	if fault.Code == "" {
		logging.Warning("Dropping fault event without code")
		return
	}

	select {
	case events <- fault:
	case <-ctx.Done():
	}
}
