package internal

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

var httpTimeout = 5 * time.Second

type searchResponse struct {
	Results []SearchResult `json:"results"`
}

func apiCreateRoom(wsURL, videoID string) (*createRoomResponse, error) {
	base, err := httpBaseFromWSURL(wsURL)
	if err != nil {
		return nil, err
	}
	payload := createRoomRequest{VideoID: videoID}
	var resp createRoomResponse
	if err := doJSONRequest(http.MethodPost, base+"/rooms", payload, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func apiRoomExists(wsURL, code string) (bool, error) {
	base, err := httpBaseFromWSURL(wsURL)
	if err != nil {
		return false, err
	}
	endpoint := base + "/exists?room=" + url.QueryEscape(code)
	client := &http.Client{Timeout: httpTimeout}
	resp, err := client.Get(endpoint)
	if err != nil {
		return false, err
	}
	_ = resp.Body.Close()
	return resp.StatusCode == http.StatusOK, nil
}

func apiSearch(wsURL, query string) ([]SearchResult, error) {
	base, err := httpBaseFromWSURL(wsURL)
	if err != nil {
		return nil, err
	}
	endpoint := base + "/search?q=" + url.QueryEscape(query)
	var resp searchResponse
	if err := doJSONRequest(http.MethodGet, endpoint, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Results, nil
}

func doJSONRequest(method, endpoint string, payload interface{}, out interface{}) error {
	var body io.Reader
	if payload != nil {
		buf, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewBuffer(buf)
	}
	req, err := http.NewRequest(method, endpoint, body)
	if err != nil {
		return err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	client := &http.Client{Timeout: httpTimeout}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, readResponseError(resp.Body))
	}
	if out != nil {
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}
		if len(data) > 0 {
			if err := json.Unmarshal(data, out); err != nil {
				return err
			}
		}
	}
	return nil
}

func readResponseError(body io.Reader) string {
	data, err := io.ReadAll(body)
	if err != nil || len(data) == 0 {
		return "request failed"
	}
	var parsed map[string]string
	if err := json.Unmarshal(data, &parsed); err == nil {
		if msg, ok := parsed["error"]; ok {
			return msg
		}
	}
	return strings.TrimSpace(string(data))
}

// httpBaseFromWSURL maps the websocket endpoint back onto the HTTP API it is
// served next to.
func httpBaseFromWSURL(wsURL string) (string, error) {
	parsed, err := url.Parse(wsURL)
	if err != nil {
		return "", err
	}
	switch parsed.Scheme {
	case "ws":
		parsed.Scheme = "http"
	case "wss":
		parsed.Scheme = "https"
	default:
		return "", fmt.Errorf("unsupported scheme %s", parsed.Scheme)
	}
	parsed.Path = ""
	parsed.RawQuery = ""
	parsed.Fragment = ""
	return strings.TrimRight(parsed.String(), "/"), nil
}
