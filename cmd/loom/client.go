package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

var apiClient = &http.Client{Timeout: 30 * time.Second}

// apiGet fetches path from the configured server and decodes the JSON
// response into out.
func apiGet(path string, out any) error {
	resp, err := apiClient.Get(strings.TrimRight(serverURL, "/") + path)
	if err != nil {
		return fmt.Errorf("cannot reach loom server at %s: %w", serverURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return apiError(resp)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// apiPost sends body as JSON to path and decodes the response into out when
// out is non-nil. Non-2xx responses are returned as errors carrying the
// server's error message.
func apiPost(path string, body any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	resp, err := apiClient.Post(strings.TrimRight(serverURL, "/")+path, "application/json", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("cannot reach loom server at %s: %w", serverURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return apiError(resp)
	}
	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func apiError(resp *http.Response) error {
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err == nil && payload.Error != "" {
		return fmt.Errorf("%s", payload.Error)
	}
	return fmt.Errorf("server returned %s", resp.Status)
}
