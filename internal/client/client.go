package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"time"
)

const (
	defaultServerURL = "http://127.0.0.1:37788"
	httpTimeout      = 5 * time.Second
)

// Client talks to a running recall server.
type Client struct {
	http      *http.Client
	serverURL string
}

// New creates a recall HTTP client.
// Respects the RECALL_URL env var, falls back to http://127.0.0.1:37788.
func New() *Client {
	u := os.Getenv("RECALL_URL")
	if u == "" {
		u = defaultServerURL
	}
	return NewWithURL(u)
}

// NewWithURL creates a client against an explicit server address.
func NewWithURL(serverURL string) *Client {
	return &Client{
		http:      &http.Client{Timeout: httpTimeout},
		serverURL: serverURL,
	}
}

// Post sends a POST request with JSON body. Returns response body.
func (c *Client) Post(path string, body []byte) ([]byte, error) {
	resp, err := c.http.Post(c.serverURL+path, "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("POST %s: %w", path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response %s: %w", path, err)
	}
	if resp.StatusCode >= 400 {
		return data, fmt.Errorf("POST %s: status %d: %s", path, resp.StatusCode, data)
	}
	return data, nil
}

// Get sends a GET request. Returns response body.
func (c *Client) Get(path string) ([]byte, error) {
	resp, err := c.http.Get(c.serverURL + path)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response %s: %w", path, err)
	}
	if resp.StatusCode >= 400 {
		return data, fmt.Errorf("GET %s: status %d: %s", path, resp.StatusCode, data)
	}
	return data, nil
}

// Healthy checks if the server is reachable.
func (c *Client) Healthy() bool {
	resp, err := c.http.Get(c.serverURL + "/api/health")
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// AddResult is the server's response to a stored interaction.
type AddResult struct {
	ID       string   `json:"id"`
	Seq      int64    `json:"seq"`
	Tier     string   `json:"tier"`
	Concepts []string `json:"concepts"`
	Dims     int      `json:"dims"`
}

// AddInteraction stores one interaction through the server, which fills
// in the embedding and concepts from its own providers.
func (c *Client) AddInteraction(prompt, response string) (*AddResult, error) {
	body, err := json.Marshal(map[string]string{
		"prompt":   prompt,
		"response": response,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal interaction: %w", err)
	}
	data, err := c.Post("/api/interactions", body)
	if err != nil {
		return nil, err
	}
	var result AddResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("decode add response: %w", err)
	}
	return &result, nil
}

// RetrieveResult is one scored record from a server-side retrieval.
type RetrieveResult struct {
	ID          string   `json:"id"`
	Prompt      string   `json:"prompt"`
	Response    string   `json:"response"`
	Concepts    []string `json:"concepts"`
	Tier        string   `json:"tier"`
	Score       float64  `json:"score"`
	Similarity  float64  `json:"similarity"`
	Activation  float64  `json:"activation"`
	AccessCount int      `json:"access_count"`
	DecayFactor float64  `json:"decay_factor"`
}

// Retrieve runs a query through the server and returns the ranked results.
func (c *Client) Retrieve(query string, limit int, threshold float64) ([]RetrieveResult, error) {
	body, err := json.Marshal(map[string]any{
		"query":     query,
		"limit":     limit,
		"threshold": threshold,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal query: %w", err)
	}
	data, err := c.Post("/api/retrieve", body)
	if err != nil {
		return nil, err
	}
	var result struct {
		Count   int              `json:"count"`
		Results []RetrieveResult `json:"results"`
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("decode retrieve response: %w", err)
	}
	return result.Results, nil
}

// RunRetention triggers a retention pass and returns the promotion count.
func (c *Client) RunRetention() (int, error) {
	data, err := c.Post("/api/retention", []byte(`{}`))
	if err != nil {
		return 0, err
	}
	var result struct {
		Promoted int `json:"promoted"`
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return 0, fmt.Errorf("decode retention response: %w", err)
	}
	return result.Promoted, nil
}

// Stats fetches the server's engine statistics as a raw map.
func (c *Client) Stats() (map[string]any, error) {
	data, err := c.Get("/api/stats")
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode stats response: %w", err)
	}
	return out, nil
}

// Context fetches the injection markdown for a query. An empty query
// returns the standing-strength view.
func (c *Client) Context(query string, limit int) (string, error) {
	q := url.Values{}
	if query != "" {
		q.Set("q", query)
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	path := "/api/context"
	if enc := q.Encode(); enc != "" {
		path += "?" + enc
	}
	data, err := c.Get(path)
	if err != nil {
		return "", err
	}
	var result struct {
		Context string `json:"context"`
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return "", fmt.Errorf("decode context response: %w", err)
	}
	return result.Context, nil
}
