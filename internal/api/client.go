// internal/api/client.go
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/fleetlive/tracker/internal/model/core"
)

// ErrUnexpectedStatus is returned when the server answers with a non-200 status.
var ErrUnexpectedStatus = errors.New("unexpected status")

// Client fetches roster and history snapshots from the tracking server's REST API.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// New creates a new API client.
func New(baseURL, token string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Healthcheck checks if the tracking server is reachable.
func (c *Client) Healthcheck(ctx context.Context) error {
	resp, err := c.get(ctx, "/healthcheck")
	if err != nil {
		return fmt.Errorf("healthcheck request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("healthcheck returned %w %d", ErrUnexpectedStatus, resp.StatusCode)
	}
	return nil
}

// Drivers fetches the current roster.
func (c *Client) Drivers(ctx context.Context) ([]core.Driver, error) {
	var drivers []core.Driver
	if err := c.getJSON(ctx, "/api/drivers", &drivers); err != nil {
		return nil, fmt.Errorf("fetching drivers: %w", err)
	}
	if err := core.Validate(drivers); err != nil {
		return nil, fmt.Errorf("fetching drivers: %w", err)
	}
	return drivers, nil
}

// DriverHistory fetches a device's samples from the last hours.
func (c *Client) DriverHistory(ctx context.Context, deviceID string, hours int) ([]core.LocationSample, error) {
	if deviceID == "" {
		return nil, errors.New("device id is required")
	}
	path := "/api/locations/" + url.PathEscape(deviceID) + "?hours=" + strconv.Itoa(hours)

	var samples []core.LocationSample
	if err := c.getJSON(ctx, path, &samples); err != nil {
		return nil, fmt.Errorf("fetching history for %s: %w", deviceID, err)
	}
	return samples, nil
}

func (c *Client) get(ctx context.Context, path string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return c.httpClient.Do(req)
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	resp, err := c.get(ctx, path)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w %d", ErrUnexpectedStatus, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %v", core.ErrInvalidPayload, err)
	}
	return nil
}
