package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/MarcoPoloResearchLab/raduty/internal/duties"
	"github.com/MarcoPoloResearchLab/raduty/internal/roster"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	defaultTimeout  = 10 * time.Second
	requestIDHeader = "X-Request-ID"
	maxErrorBody    = 64 << 10
)

var errMissingBaseURL = errors.New("apiclient: base url is required")

// StatusError reports a non-2xx response from the duty API.
type StatusError struct {
	StatusCode int
	Code       string
	Message    string
	Fields     []duties.FieldError
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("apiclient: status %d", e.StatusCode)
	}
	return fmt.Sprintf("apiclient: status %d: %s", e.StatusCode, e.Message)
}

// Unwrap maps the response onto the duty sentinels so callers can use errors.Is.
func (e *StatusError) Unwrap() error {
	switch {
	case e.StatusCode == http.StatusNotFound:
		return duties.ErrNotFound
	case e.StatusCode == http.StatusBadRequest && len(e.Fields) > 0:
		return &duties.ValidationError{Fields: e.Fields}
	default:
		return nil
	}
}

type Config struct {
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// Client talks to the duty REST API. It satisfies the sync controller's remote
// store and the engine's roster source.
type Client struct {
	baseURL *url.URL
	http    *http.Client
	stream  *http.Client
	logger  *zap.Logger
}

func New(cfg Config) (*Client, error) {
	raw := strings.TrimSpace(cfg.BaseURL)
	if raw == "" {
		return nil, errMissingBaseURL
	}
	base, err := url.Parse(strings.TrimRight(raw, "/"))
	if err != nil {
		return nil, fmt.Errorf("apiclient: parse base url: %w", err)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	// the change stream stays open indefinitely, so it cannot share the request timeout.
	streamClient := *httpClient
	streamClient.Timeout = 0

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{baseURL: base, http: httpClient, stream: &streamClient, logger: logger}, nil
}

// ListDuties fetches every duty, narrowed by an RA name substring when raFilter is set.
func (c *Client) ListDuties(ctx context.Context, raFilter string) ([]duties.Record, error) {
	query := url.Values{}
	if raFilter != "" {
		query.Set("ra", raFilter)
	}
	var records []duties.Record
	if err := c.do(ctx, http.MethodGet, "/duties", query, nil, &records); err != nil {
		return nil, err
	}
	return records, nil
}

func (c *Client) GetDuty(ctx context.Context, id duties.DutyID) (duties.Record, error) {
	var record duties.Record
	if err := c.do(ctx, http.MethodGet, "/duties/"+id.String(), nil, nil, &record); err != nil {
		return duties.Record{}, err
	}
	return record, nil
}

func (c *Client) CreateDuty(ctx context.Context, draft duties.Draft) (duties.Record, error) {
	var record duties.Record
	if err := c.do(ctx, http.MethodPost, "/duties", nil, draft, &record); err != nil {
		return duties.Record{}, err
	}
	return record, nil
}

func (c *Client) UpdateDuty(ctx context.Context, id duties.DutyID, draft duties.Draft) (duties.Record, error) {
	var record duties.Record
	if err := c.do(ctx, http.MethodPut, "/duties/"+id.String(), nil, draft, &record); err != nil {
		return duties.Record{}, err
	}
	return record, nil
}

func (c *Client) DeleteDuty(ctx context.Context, id duties.DutyID) error {
	return c.do(ctx, http.MethodDelete, "/duties/"+id.String(), nil, nil, nil)
}

// ListRAs returns the active roster as picker entries.
func (c *Client) ListRAs(ctx context.Context) ([]roster.Summary, error) {
	var summaries []roster.Summary
	if err := c.do(ctx, http.MethodGet, "/ras", nil, nil, &summaries); err != nil {
		return nil, err
	}
	return summaries, nil
}

func (c *Client) endpoint(path string, query url.Values) string {
	target := *c.baseURL
	target.Path = strings.TrimRight(target.Path, "/") + path
	if len(query) > 0 {
		target.RawQuery = query.Encode()
	}
	return target.String()
}

func (c *Client) newRequest(ctx context.Context, method, path string, query url.Values, body interface{}) (*http.Request, error) {
	var reader io.Reader = http.NoBody
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("apiclient: encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}
	request, err := http.NewRequestWithContext(ctx, method, c.endpoint(path, query), reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		request.Header.Set("Content-Type", "application/json")
	}
	request.Header.Set("Accept", "application/json")
	request.Header.Set(requestIDHeader, uuid.NewString())
	return request, nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, target interface{}) error {
	request, err := c.newRequest(ctx, method, path, query, body)
	if err != nil {
		return err
	}
	started := time.Now()
	response, err := c.http.Do(request)
	if err != nil {
		c.logger.Warn("duty api request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.String("request_id", request.Header.Get(requestIDHeader)),
			zap.Error(err),
		)
		return err
	}
	defer response.Body.Close()

	c.logger.Debug("duty api request",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", response.StatusCode),
		zap.Duration("latency", time.Since(started)),
		zap.String("request_id", request.Header.Get(requestIDHeader)),
	)

	if response.StatusCode < 200 || response.StatusCode > 299 {
		return decodeStatusError(response)
	}
	if target == nil {
		_, _ = io.Copy(io.Discard, response.Body)
		return nil
	}
	if err := json.NewDecoder(response.Body).Decode(target); err != nil {
		return fmt.Errorf("apiclient: decode %s %s: %w", method, path, err)
	}
	return nil
}

func decodeStatusError(response *http.Response) error {
	statusErr := &StatusError{StatusCode: response.StatusCode}
	var payload struct {
		Error  string              `json:"error"`
		Code   string              `json:"code"`
		Fields []duties.FieldError `json:"fields"`
	}
	data, _ := io.ReadAll(io.LimitReader(response.Body, maxErrorBody))
	if err := json.Unmarshal(data, &payload); err == nil {
		statusErr.Message = payload.Error
		statusErr.Code = payload.Code
		statusErr.Fields = payload.Fields
	} else {
		statusErr.Message = strings.TrimSpace(string(data))
	}
	return statusErr
}
