// Package pumpclient is a one-shot REST client for a pump's HTTP surface,
// used by the CLI to read status and send commands.
package pumpclient

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/jpalmerr/pumpwatch"
	"github.com/jpalmerr/pumpwatch/internal/pump"
)

// DefaultTimeout bounds each request.
const DefaultTimeout = 5 * time.Second

// Commands accepted by [Client.Command].
var Commands = []string{"pause", "resume", "enable", "disable", "reset", "fault"}

// APIError is a non-2xx answer from the pump.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("pump returned HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("pump returned HTTP %d: %s", e.StatusCode, e.Message)
}

type errorBody struct {
	Message string `json:"message"`
}

// Client talks to one pump.
type Client struct {
	rc *resty.Client
}

// New creates a client for the pump at baseURL (for example
// http://raspberrypi.local:5000). A timeout of zero uses DefaultTimeout.
func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	rc := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")
	return &Client{rc: rc}
}

// Status polls /pump_status once and classifies it the same way the
// watcher does. A failed request yields [pumpwatch.LabelError] and the
// error.
func (c *Client) Status(ctx context.Context) (pumpwatch.Label, pumpwatch.PumpStatus, error) {
	resp, err := c.rc.R().SetContext(ctx).Get("/pump_status")
	if err != nil {
		return pumpwatch.LabelError, pumpwatch.PumpStatus{}, fmt.Errorf("pump status: %w", err)
	}
	return pumpwatch.Interpret(nil, resp.Body(), resp.StatusCode())
}

// Detail fetches the full simulator status, including dispense progress.
func (c *Client) Detail(ctx context.Context) (pump.Status, error) {
	var st pump.Status
	resp, err := c.rc.R().
		SetContext(ctx).
		SetResult(&st).
		SetError(&errorBody{}).
		Get("/pump_status")
	if err := check(resp, err); err != nil {
		return pump.Status{}, err
	}
	return st, nil
}

// Run starts a dispense of volumeML.
func (c *Client) Run(ctx context.Context, volumeML float64) (pump.Status, error) {
	var st pump.Status
	resp, err := c.rc.R().
		SetContext(ctx).
		SetQueryParam("volume", strconv.FormatFloat(volumeML, 'f', -1, 64)).
		SetResult(&st).
		SetError(&errorBody{}).
		Post("/run_pump")
	if err := check(resp, err); err != nil {
		return pump.Status{}, err
	}
	return st, nil
}

// Command sends one of [Commands] and returns the resulting status.
func (c *Client) Command(ctx context.Context, name string) (pump.Status, error) {
	if !slices.Contains(Commands, name) {
		return pump.Status{}, fmt.Errorf("unknown pump command %q (expected one of %s)", name, strings.Join(Commands, ", "))
	}

	var st pump.Status
	resp, err := c.rc.R().
		SetContext(ctx).
		SetResult(&st).
		SetError(&errorBody{}).
		Post("/" + name)
	if err := check(resp, err); err != nil {
		return pump.Status{}, err
	}
	return st, nil
}

func check(resp *resty.Response, err error) error {
	if err != nil {
		return fmt.Errorf("pump request: %w", err)
	}
	if resp.IsError() {
		apiErr := &APIError{StatusCode: resp.StatusCode()}
		if body, ok := resp.Error().(*errorBody); ok && body != nil {
			apiErr.Message = body.Message
		}
		return apiErr
	}
	if resp.StatusCode() < 200 || resp.StatusCode() > 299 {
		return &APIError{StatusCode: resp.StatusCode()}
	}
	return nil
}
