package deptrack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client bicara ke satu server Dependency-Track-style. API key dikirim
// lewat header X-Api-Key seperti Dependency-Track asli.
type Client struct {
	baseURL string
	apiKey  string
	httpc   *http.Client
}

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpc:   &http.Client{Timeout: 30 * time.Second},
	}
}

type projectResponse struct {
	UUID string `json:"uuid"`
}

type bomStatusResponse struct {
	Processing bool `json:"processing"`
}

type findingResponse struct {
	Component struct {
		Name    string `json:"name"`
		Version string `json:"version"`
		PURL    string `json:"purl"`
	} `json:"component"`
	Vulnerability struct {
		VulnID         string  `json:"vulnId"`
		Source         string  `json:"source"`
		Severity       string  `json:"severity"`
		CVSSV3Score    float64 `json:"cvssV3BaseScore"`
		Description    string  `json:"description"`
		Recommendation string  `json:"recommendation"`
	} `json:"vulnerability"`
	Analysis struct {
		Suppressed bool `json:"isSuppressed"`
	} `json:"analysis"`
}

// CreateProject mendaftarkan project baru di server dan mengembalikan
// UUID eksternalnya.
func (c *Client) CreateProject(ctx context.Context, name, version string) (string, error) {
	body, _ := json.Marshal(map[string]string{"name": name, "version": version})
	var resp projectResponse
	if err := c.do(ctx, http.MethodPut, "/api/v1/project", bytes.NewReader(body), &resp); err != nil {
		return "", fmt.Errorf("creating project %q: %w", name, err)
	}
	if resp.UUID == "" {
		return "", fmt.Errorf("creating project %q: server returned empty uuid", name)
	}
	return resp.UUID, nil
}

// UploadBOM mengirim dokumen SBOM untuk dianalisis. Server memproses
// secara async; cek progres lewat BOMStatus.
func (c *Client) UploadBOM(ctx context.Context, projectUUID string, bom []byte) error {
	payload, _ := json.Marshal(map[string]string{
		"project": projectUUID,
		"bom":     string(bom),
	})
	if err := c.do(ctx, http.MethodPut, "/api/v1/bom", bytes.NewReader(payload), nil); err != nil {
		return fmt.Errorf("uploading bom to project %s: %w", projectUUID, err)
	}
	return nil
}

// BOMStatus melaporkan apakah server masih memproses BOM terakhir.
func (c *Client) BOMStatus(ctx context.Context, projectUUID string) (bool, error) {
	var resp bomStatusResponse
	err := c.do(ctx, http.MethodGet, "/api/v1/bom/project/"+projectUUID+"/status", nil, &resp)
	if err != nil {
		return false, fmt.Errorf("checking bom status for project %s: %w", projectUUID, err)
	}
	return resp.Processing, nil
}

// Findings mengambil hasil analisis vulnerability untuk satu project.
func (c *Client) Findings(ctx context.Context, projectUUID string) ([]findingResponse, error) {
	var resp []findingResponse
	err := c.do(ctx, http.MethodGet, "/api/v1/finding/project/"+projectUUID, nil, &resp)
	if err != nil {
		return nil, fmt.Errorf("fetching findings for project %s: %w", projectUUID, err)
	}
	return resp, nil
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("X-Api-Key", c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, string(snippet))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s response: %w", path, err)
	}
	return nil
}
