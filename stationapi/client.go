// Package stationapi is the HTTP client for the station backend:
// the consolidated station_data feed plus the submit/status endpoints.
package stationapi

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"stationconsole/station"
)

const (
	DefaultBaseURL = "http://localhost:8000/api/"
	defaultTimeout = 5 * time.Second
	maxErrorBody   = 4 << 10
)

// Client talks to the station backend. It is safe for concurrent use; the
// synchronizer may have several fetches in flight.
type Client struct {
	baseURL string
	http    *http.Client

	mu   sync.Mutex
	etag string
	last *station.Snapshot
}

// New builds a client for baseURL with a per-request timeout.
func New(baseURL string, timeout time.Duration) *Client {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

// BaseURL returns the normalized base URL (always ends in "/").
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Purpose: Fetch the consolidated station snapshot.
// Key aspects: Conditional GET with the last ETag; 304 returns the cached snapshot.
// Non-2xx and transport failures are *FetchError.
// Upstream: stationsync.Synchronizer, cmd/stationdump.
// Downstream: http.Client.Do, station.DecodeSnapshot.
func (c *Client) FetchStationData(ctx context.Context) (*station.Snapshot, error) {
	const op = "station_data"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"station_data/", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	c.mu.Lock()
	etag := c.etag
	cached := c.last
	c.mu.Unlock()
	if etag != "" && cached != nil {
		req.Header.Set("If-None-Match", etag)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &FetchError{Op: op, Kind: KindNetwork, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotModified && cached != nil {
		return cached, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, statusError(op, resp)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &FetchError{Op: op, Kind: KindNetwork, Err: err}
	}
	snap, err := station.DecodeSnapshot(body)
	if err != nil {
		return nil, &FetchError{Op: op, Kind: KindStatus, StatusCode: resp.StatusCode, Status: resp.Status, Err: err}
	}

	c.mu.Lock()
	c.etag = resp.Header.Get("ETag")
	c.last = snap
	c.mu.Unlock()
	return snap, nil
}

// FetchRaw returns the undecoded station_data body for diagnostics.
func (c *Client) FetchRaw(ctx context.Context) ([]byte, error) {
	const op = "station_data"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"station_data/", nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &FetchError{Op: op, Kind: KindNetwork, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, statusError(op, resp)
	}
	return io.ReadAll(resp.Body)
}

type submitRequest struct {
	FrequencyNumber  int                      `json:"frequency_number"`
	Code             string                   `json:"code"`
	TransmissionType station.TransmissionType `json:"transmission_type"`
}

type statusRequest struct {
	Status station.Status `json:"status"`
}

// SubmitTransmission queues a new transmission; the server picks its time and duration.
func (c *Client) SubmitTransmission(ctx context.Context, frequencyNumber int, code string, kind station.TransmissionType) (*station.Transmission, error) {
	if strings.TrimSpace(code) == "" {
		return nil, errors.New("stationapi: code is empty")
	}
	if kind == "" {
		kind = station.TypeNumbers
	}
	if !kind.Valid() {
		return nil, fmt.Errorf("stationapi: invalid transmission type %q", kind)
	}
	payload := submitRequest{FrequencyNumber: frequencyNumber, Code: code, TransmissionType: kind}
	return c.sendTransmission(ctx, "submit_transmission", http.MethodPost, c.baseURL+"submit_transmission/", payload)
}

// UpdateTransmissionStatus patches the status of transmission id.
func (c *Client) UpdateTransmissionStatus(ctx context.Context, id int64, status station.Status) (*station.Transmission, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("stationapi: invalid status %q", status)
	}
	url := fmt.Sprintf("%stransmissions/%d/", c.baseURL, id)
	return c.sendTransmission(ctx, "update_status", http.MethodPatch, url, statusRequest{Status: status})
}

func (c *Client) sendTransmission(ctx context.Context, op, method, url string, payload any) (*station.Transmission, error) {
	data, err := station.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("stationapi: encode %s: %w", op, err)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &FetchError{Op: op, Kind: KindNetwork, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, statusError(op, resp)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &FetchError{Op: op, Kind: KindNetwork, Err: err}
	}
	t, err := station.DecodeTransmission(body)
	if err != nil {
		return nil, &FetchError{Op: op, Kind: KindStatus, StatusCode: resp.StatusCode, Status: resp.Status, Err: err}
	}
	return t, nil
}

func statusError(op string, resp *http.Response) *FetchError {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	kind := KindStatus
	if resp.StatusCode == http.StatusNotFound {
		kind = KindNotFound
	}
	return &FetchError{
		Op:         op,
		Kind:       kind,
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Body:       strings.TrimSpace(string(body)),
	}
}
