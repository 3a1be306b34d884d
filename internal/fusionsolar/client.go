// Package fusionsolar implements a minimal client for the FusionSolar
// northbound OpenAPI: session login, station listing, and the per-plant
// active-power-control-mode call.
package fusionsolar

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	loginPath       = "/thirdData/login"
	logoutPath      = "/thirdData/logout"
	stationListPath = "/thirdData/getStationList"
	controlModePath = "/rest/openapi/pvms/nbi/v1/configuration/active-power-control-mode"

	// xsrfHeader carries the session token issued at login and required on
	// every subsequent call.
	xsrfHeader = "XSRF-TOKEN"
)

// Client is an authenticated FusionSolar API session. It is not safe for
// concurrent use; the collector holds exactly one for the lifetime of a sweep.
type Client struct {
	httpClient *http.Client
	baseURL    string
	userName   string
	systemCode string
	token      string
	tracer     trace.Tracer
}

// NewClient creates an unauthenticated client for the given API domain
// (e.g. "eu5.fusionsolar.huawei.com"). Call Login before any other operation.
func NewClient(httpClient *http.Client, domain, userName, systemCode string, tracer trace.Tracer) *Client {
	return &Client{
		httpClient: httpClient,
		baseURL:    "https://" + domain,
		userName:   userName,
		systemCode: systemCode,
		tracer:     tracer,
	}
}

// envelope is the common response wrapper used by the thirdData endpoints.
type envelope struct {
	Success  bool   `json:"success"`
	FailCode any    `json:"failCode"`
	Message  string `json:"message"`
}

// Station is one catalog entry from the station listing call.
type Station struct {
	Code string `json:"stationCode"`
	Name string `json:"stationName"`
}

// ControlModeData is the payload of a successful control-mode response.
type ControlModeData struct {
	PlantCode                    string          `json:"plantCode"`
	ControlMode                  string          `json:"controlMode"`
	LimitedPowerGridValueParam   json.RawMessage `json:"limitedPowerGridValueParam"`
	LimitedPowerGridPercentParam json.RawMessage `json:"limitedPowerGridPercentParam"`
	ZeroExportLimitationParam    json.RawMessage `json:"zeroExportLimitationParam"`
}

// ControlModeEnvelope is the full control-mode response body.
type ControlModeEnvelope struct {
	Success bool             `json:"success"`
	Message string           `json:"message"`
	Data    *ControlModeData `json:"data"`
}

// ControlModeResult is the outcome of a single control-mode call that reached
// the server. Envelope is nil when the body could not be decoded.
type ControlModeResult struct {
	StatusCode int
	Envelope   *ControlModeEnvelope
}

// Login establishes the API session and captures the XSRF token for
// subsequent calls.
func (c *Client) Login(ctx context.Context) error {
	ctx, span := c.tracer.Start(ctx, "fusionsolar.login")
	defer span.End()

	body, err := json.Marshal(map[string]string{
		"userName":   c.userName,
		"systemCode": c.systemCode,
	})
	if err != nil {
		return fmt.Errorf("encoding login request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+loginPath, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("login request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("login returned status %d", resp.StatusCode)
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("decoding login response: %w", err)
	}
	if !env.Success {
		return fmt.Errorf("login rejected: %s (failCode %v)", env.Message, env.FailCode)
	}

	token := resp.Header.Get(xsrfHeader)
	if token == "" {
		return fmt.Errorf("login response missing %s header", xsrfHeader)
	}
	c.token = token
	span.AddEvent("session_established")
	return nil
}

// Logout invalidates the session token. Errors are returned for logging only;
// the session expires server-side regardless.
func (c *Client) Logout(ctx context.Context) error {
	if c.token == "" {
		return nil
	}

	resp, err := c.post(ctx, logoutPath, map[string]string{"xsrfToken": c.token})
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	c.token = ""
	return nil
}

// StationList fetches the full ordered plant catalog. Transport failures,
// non-200 responses, and undecodable or rejected envelopes are all errors;
// an empty catalog is returned as-is for the caller to judge.
func (c *Client) StationList(ctx context.Context) ([]Station, error) {
	ctx, span := c.tracer.Start(ctx, "fusionsolar.station_list")
	defer span.End()

	resp, err := c.post(ctx, stationListPath, struct{}{})
	if err != nil {
		return nil, fmt.Errorf("station list request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("station list returned status %d", resp.StatusCode)
	}

	var body struct {
		envelope
		Data []Station `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decoding station list: %w", err)
	}
	if !body.Success {
		return nil, fmt.Errorf("station list rejected: %s", body.Message)
	}

	span.SetAttributes(attribute.Int("station_count", len(body.Data)))
	return body.Data, nil
}

// ActivePowerControlMode performs one authenticated control-mode call for the
// given plant. Only transport-level failures are errors; any response that
// reached the server is returned as a result for the caller to interpret, so
// the retry budget stays reserved for connectivity issues.
func (c *Client) ActivePowerControlMode(ctx context.Context, plantCode string) (*ControlModeResult, error) {
	ctx, span := c.tracer.Start(ctx, "fusionsolar.active_power_control_mode",
		trace.WithAttributes(attribute.String("plant_code", plantCode)))
	defer span.End()

	resp, err := c.post(ctx, controlModePath, map[string]string{"plantCode": plantCode})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	defer resp.Body.Close()

	result := &ControlModeResult{StatusCode: resp.StatusCode}
	span.SetAttributes(attribute.Int("status_code", resp.StatusCode))

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		// The response arrived; a truncated body is treated like an
		// undecodable envelope, not a retryable transport failure.
		return result, nil
	}

	var env ControlModeEnvelope
	if err := json.Unmarshal(raw, &env); err == nil {
		result.Envelope = &env
	}
	return result, nil
}

func (c *Client) post(ctx context.Context, path string, payload any) (*http.Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encoding request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set(xsrfHeader, c.token)
	}

	return c.httpClient.Do(req)
}
