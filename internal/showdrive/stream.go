package showdrive

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// StreamEvent is one parsed frame off a client's event stream.
type StreamEvent struct {
	Name string
	Data json.RawMessage
}

// openStream connects /events with the client's token and returns a
// channel of parsed frames. The channel closes when the stream ends.
func openStream(ctx context.Context, client *HTTPClient, baseURL, token string) (<-chan StreamEvent, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/events", http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("open stream: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "text/event-stream")

	// Streams outlive the request timeout, so use a client without one;
	// cancellation comes from ctx.
	streamClient := &http.Client{Transport: client.client.Transport}
	resp, err := streamClient.Do(req) //nolint:bodyclose // closed by the reader goroutine
	if err != nil {
		return nil, fmt.Errorf("open stream: %w", err)
	}
	if resp.StatusCode != StatusOK {
		body, _ := readResponseBody(resp)
		return nil, fmt.Errorf("open stream: unexpected status %d: %s", resp.StatusCode, body)
	}

	events := make(chan StreamEvent, eventChannelBuffer)
	go func() {
		defer close(events)
		defer resp.Body.Close()

		var name string
		var data strings.Builder
		scanner := bufio.NewScanner(resp.Body)
		for scanner.Scan() {
			line := scanner.Text()
			switch {
			case line == "":
				// Frame boundary
				if name != "" || data.Len() > 0 {
					events <- StreamEvent{Name: name, Data: json.RawMessage(data.String())}
				}
				name = ""
				data.Reset()
			case strings.HasPrefix(line, ":"):
				// Keepalive comment
			case strings.HasPrefix(line, "event:"):
				name = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
			case strings.HasPrefix(line, "data:"):
				data.WriteString(strings.TrimSpace(strings.TrimPrefix(line, "data:")))
			}
		}
	}()
	return events, nil
}
