// Package ckan is a thin client for the CKAN action API: one POST per
// action, a JSON envelope, and classified errors. It knows nothing about
// schemas or rows; the loader builds on top of it.
package ckan

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// maxErrorBody caps how much of an error response is read for reporting.
const maxErrorBody = 1 << 20

// Client calls one CKAN instance's action API. It is safe for concurrent
// use.
type Client struct {
	baseURL string
	apiKey  string
	httpc   *http.Client
}

// NewClient returns a client for the CKAN instance at baseURL. The API key
// goes out as the Authorization header on every call; timeout bounds each
// request, zero meaning no bound.
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpc:   &http.Client{Timeout: timeout},
	}
}

// envelope is the wire shape of every action response.
type envelope struct {
	Success bool            `json:"success"`
	Result  json.RawMessage `json:"result"`
}

// Action invokes one API action with JSON-encoded params and returns the
// result member of the response envelope. An HTTP error status comes back
// as an *APIError with a classified kind; transport and decoding problems
// are ordinary errors.
func (c *Client) Action(ctx context.Context, action string, params any) (json.RawMessage, error) {
	body, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("encode %s params: %w", action, err)
	}

	url := c.baseURL + "/api/3/action/" + action
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", action, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", c.apiKey)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", action, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		if err != nil {
			return nil, fmt.Errorf("read %s error response: %w", action, err)
		}
		return nil, classify(action, resp.StatusCode, raw)
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("decode %s response: %w", action, err)
	}
	return env.Result, nil
}

// classify builds an *APIError from a non-200 response. When the body
// carries CKAN's JSON error envelope, the "error" object decides the kind
// and is pretty-printed with sorted keys into the message; otherwise the
// raw body is the message detail.
func classify(action string, status int, body []byte) *APIError {
	apiErr := &APIError{Action: action, StatusCode: status, Kind: KindOther}

	detail := string(bytes.TrimSpace(body))
	var env struct {
		Error json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(body, &env); err == nil && len(env.Error) > 0 {
		apiErr.Detail = env.Error

		var typed struct {
			Type string `json:"__type"`
		}
		if err := json.Unmarshal(env.Error, &typed); err == nil {
			switch typed.Type {
			case "Not Found Error":
				apiErr.Kind = KindNotFound
			case "Validation Error":
				apiErr.Kind = KindValidation
			}
		}

		var obj any
		if err := json.Unmarshal(env.Error, &obj); err == nil {
			if pretty, err := json.MarshalIndent(obj, "", "    "); err == nil {
				detail = string(pretty)
			}
		}
	}

	if status == http.StatusForbidden {
		apiErr.Kind = KindPermissionDenied
		apiErr.message = fmt.Sprintf(
			"Permission denied. CKAN indicated the API key was not valid for modifying the resource. (%s)",
			detail)
		return apiErr
	}
	apiErr.message = "CKAN API call failed: " + detail
	return apiErr
}
