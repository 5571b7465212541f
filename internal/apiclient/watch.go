package apiclient

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"
)

const dutyChangeEvent = "duty-change"

// Change is a duty-change notification pushed by the server.
type Change struct {
	Action  string  `json:"action"`
	DutyIDs []int64 `json:"dutyIds"`
	Source  string  `json:"source"`
}

// WatchChanges follows the server's change stream and calls onChange for every
// duty-change event. It returns nil once ctx ends and an error if the stream breaks.
func (c *Client) WatchChanges(ctx context.Context, onChange func(Change)) error {
	request, err := c.newRequest(ctx, http.MethodGet, "/duties/stream", nil, nil)
	if err != nil {
		return err
	}
	request.Header.Set("Accept", "text/event-stream")

	response, err := c.stream.Do(request)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return err
	}
	defer response.Body.Close()
	if response.StatusCode != http.StatusOK {
		return decodeStatusError(response)
	}

	scanner := bufio.NewScanner(response.Body)
	var eventName string
	var data strings.Builder
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			if eventName == dutyChangeEvent && data.Len() > 0 {
				var change Change
				if err := json.Unmarshal([]byte(data.String()), &change); err != nil {
					c.logger.Warn("malformed duty change event", zap.Error(err))
				} else {
					onChange(change)
				}
			}
			eventName = ""
			data.Reset()
		case strings.HasPrefix(line, ":"):
		case strings.HasPrefix(line, "event:"):
			eventName = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			if data.Len() > 0 {
				data.WriteByte('\n')
			}
			data.WriteString(strings.TrimSpace(strings.TrimPrefix(line, "data:")))
		}
	}
	if ctx.Err() != nil {
		return nil
	}
	if err := scanner.Err(); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("apiclient: read change stream: %w", err)
	}
	return fmt.Errorf("apiclient: change stream closed")
}
