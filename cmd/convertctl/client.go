package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"converteasy/internal/cleanup"
	"converteasy/internal/deps"
	"converteasy/internal/task"
)

type apiClient struct {
	base string
	http *http.Client
}

func newAPIClient(base string) *apiClient {
	return &apiClient{
		base: strings.TrimRight(base, "/"),
		http: &http.Client{Timeout: 30 * time.Second},
	}
}

type serverStatusResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Server    struct {
		Bind          string `json:"bind"`
		PublicBaseURL string `json:"publicBaseUrl"`
	} `json:"server"`
	Tasks task.Stats `json:"tasks"`
	Files struct {
		Uploads int `json:"uploads"`
		Public  int `json:"public"`
	} `json:"files"`
	Dependencies []deps.Status `json:"dependencies"`
}

type tasksResponse struct {
	Tasks []*task.Task `json:"tasks"`
}

type formatsResponse map[string]struct {
	AllowedExtensions    []string            `json:"allowedExtensions"`
	SupportedConversions map[string][]string `json:"supportedConversions"`
}

type cleanupResponse struct {
	Message string          `json:"message"`
	Summary cleanup.Summary `json:"summary"`
}

func (c *apiClient) serverStatus(ctx context.Context) (serverStatusResponse, error) {
	var resp serverStatusResponse
	err := c.do(ctx, http.MethodGet, "/server-status", &resp)
	return resp, err
}

func (c *apiClient) tasks(ctx context.Context) ([]*task.Task, error) {
	var resp tasksResponse
	if err := c.do(ctx, http.MethodGet, "/tasks", &resp); err != nil {
		return nil, err
	}
	return resp.Tasks, nil
}

func (c *apiClient) formats(ctx context.Context, category string) (formatsResponse, error) {
	path := "/supported-formats"
	if category != "" {
		path += "?category=" + category
	}
	var resp formatsResponse
	err := c.do(ctx, http.MethodGet, path, &resp)
	return resp, err
}

func (c *apiClient) cleanup(ctx context.Context) (cleanupResponse, error) {
	var resp cleanupResponse
	err := c.do(ctx, http.MethodPost, "/cleanup", &resp)
	return resp, err
}

func (c *apiClient) do(ctx context.Context, method, path string, into any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("daemon unreachable at %s: %w", c.base, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("daemon returned %s: %s", resp.Status, apiErrorMessage(resp.Body))
	}
	if into == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(into); err != nil {
		return fmt.Errorf("decode daemon response: %w", err)
	}
	return nil
}

func apiErrorMessage(body io.Reader) string {
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(io.LimitReader(body, 4096)).Decode(&payload); err == nil && payload.Message != "" {
		return payload.Message
	}
	return "no detail"
}
