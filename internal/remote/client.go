// Package remote is the HTTP client for the remote calendar service. The
// engine consumes it through the sync package's Service interface; nothing
// here knows about sync statuses or the local store.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Sentinel errors for common HTTP error classes.
var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not found")
)

// Client is an HTTP client for one account of the remote calendar service.
type Client struct {
	BaseURL string
	Token   string
	HTTP    *http.Client
}

// New creates a new remote client with the given bearer token.
func New(baseURL, token string) *Client {
	return &Client{
		BaseURL: baseURL,
		Token:   token,
		HTTP:    &http.Client{Timeout: 30 * time.Second},
	}
}

// ListEvents fetches one page of events for a calendar whose start time lies
// in [start, end). Pass the previous page's NextPageToken to continue.
func (c *Client) ListEvents(ctx context.Context, calendarID string, start, end time.Time, pageToken string) (*EventPage, error) {
	params := url.Values{}
	params.Set("timeMin", start.UTC().Format(time.RFC3339))
	params.Set("timeMax", end.UTC().Format(time.RFC3339))
	if pageToken != "" {
		params.Set("pageToken", pageToken)
	}

	var page EventPage
	path := fmt.Sprintf("/v1/calendars/%s/events?%s", url.PathEscape(calendarID), params.Encode())
	if err := c.do(ctx, "GET", path, nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// CreateEvent creates an event and returns the server's copy, including the
// assigned remote id.
func (c *Client) CreateEvent(ctx context.Context, calendarID string, ev *Event) (*Event, error) {
	var created Event
	path := fmt.Sprintf("/v1/calendars/%s/events", url.PathEscape(calendarID))
	if err := c.do(ctx, "POST", path, ev, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// UpdateEvent replaces the remote event and returns the server's copy.
func (c *Client) UpdateEvent(ctx context.Context, calendarID, eventID string, ev *Event) (*Event, error) {
	var updated Event
	path := fmt.Sprintf("/v1/calendars/%s/events/%s", url.PathEscape(calendarID), url.PathEscape(eventID))
	if err := c.do(ctx, "PUT", path, ev, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

// DeleteEvent deletes the remote event.
func (c *Client) DeleteEvent(ctx context.Context, calendarID, eventID string) error {
	path := fmt.Sprintf("/v1/calendars/%s/events/%s", url.PathEscape(calendarID), url.PathEscape(eventID))
	return c.do(ctx, "DELETE", path, nil, nil)
}

// ListCalendars fetches one page of the account's calendar list.
func (c *Client) ListCalendars(ctx context.Context, pageToken string) (*CalendarPage, error) {
	params := url.Values{}
	if pageToken != "" {
		params.Set("pageToken", pageToken)
	}
	path := "/v1/calendars"
	if len(params) > 0 {
		path += "?" + params.Encode()
	}

	var page CalendarPage
	if err := c.do(ctx, "GET", path, nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// apiError is the standard error body from the server.
type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *apiError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return e.Code
}

func (c *Client) do(ctx context.Context, method, path string, body, result any) error {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var apiErr apiError
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Code != "" {
			switch resp.StatusCode {
			case http.StatusUnauthorized:
				return fmt.Errorf("%w: %s", ErrUnauthorized, apiErr.Message)
			case http.StatusForbidden:
				return fmt.Errorf("%w: %s", ErrForbidden, apiErr.Message)
			case http.StatusNotFound:
				return fmt.Errorf("%w: %s", ErrNotFound, apiErr.Message)
			default:
				return &apiErr
			}
		}
		switch resp.StatusCode {
		case http.StatusUnauthorized:
			return ErrUnauthorized
		case http.StatusForbidden:
			return ErrForbidden
		case http.StatusNotFound:
			return ErrNotFound
		}
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(respBody))
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
	}

	return nil
}
