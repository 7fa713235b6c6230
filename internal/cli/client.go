package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// --- Response types (дублируются из api/dto.go, CLI не импортирует internal/api) ---

// StatsResponse — счётчики цикла экземпляра.
type StatsResponse struct {
	Iterations     int64 `json:"iterations"`
	Claimed        int64 `json:"claimed"`
	Succeeded      int64 `json:"succeeded"`
	Failed         int64 `json:"failed"`
	Reclaimed      int64 `json:"reclaimed"`
	ClaimConflicts int64 `json:"claim_conflicts"`
	Errors         int64 `json:"errors"`
}

// StatusResponse — статус экземпляра из API.
type StatusResponse struct {
	InstanceIndex  int            `json:"instance_index"`
	StoreTarget    string         `json:"store_target"`
	StoreReachable bool           `json:"store_reachable"`
	StoreError     string         `json:"store_error,omitempty"`
	LoopState      string         `json:"loop_state"`
	Stats          *StatsResponse `json:"stats,omitempty"`
}

// TaskStatsResponse — количество tasks по статусам из API.
type TaskStatsResponse struct {
	Counts map[string]int `json:"counts"`
	Total  int            `json:"total"`
}

// --- API response wrappers ---

type dataResponse struct {
	Data json.RawMessage `json:"data"`
}

type errorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// --- Client ---

// Client — HTTP-клиент статусного API экземпляра.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient создаёт клиент для API.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Status возвращает статус экземпляра.
func (c *Client) Status() (*StatusResponse, error) {
	var status StatusResponse
	if err := c.get("/api/v1/status", &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// TaskStats возвращает количество tasks по статусам.
func (c *Client) TaskStats() (*TaskStatsResponse, error) {
	var stats TaskStatsResponse
	if err := c.get("/api/v1/tasks/stats", &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// Healthz проверяет /healthz. nil — экземпляр видит хранилище.
func (c *Client) Healthz() error {
	resp, err := c.do(http.MethodGet, "/healthz")
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("unhealthy: HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return nil
}

// --- HTTP helpers ---

func (c *Client) get(path string, result any) error {
	resp, err := c.do(http.MethodGet, path)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := c.checkError(resp); err != nil {
		return err
	}

	var dr dataResponse
	if err := json.NewDecoder(resp.Body).Decode(&dr); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	if result != nil {
		return json.Unmarshal(dr.Data, result)
	}
	return nil
}

func (c *Client) do(method, path string) (*http.Response, error) {
	req, err := http.NewRequest(method, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	return c.httpClient.Do(req)
}

func (c *Client) checkError(resp *http.Response) error {
	if resp.StatusCode < 400 {
		return nil
	}

	var er errorResponse
	if err := json.NewDecoder(resp.Body).Decode(&er); err != nil {
		return fmt.Errorf("API error: HTTP %d", resp.StatusCode)
	}

	return fmt.Errorf("%s: %s", er.Error.Code, er.Error.Message)
}
