package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/edvin/branchvault/internal/model"
)

// Client talks to the catalog API that owns projects and branches. It is a
// thin passthrough; all selection and failure-isolation policy lives in the
// discovery package.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{},
	}
}

func (c *Client) ListProjects(ctx context.Context) ([]model.Project, error) {
	var out struct {
		Projects []model.Project `json:"projects"`
	}
	if err := c.get(ctx, "/projects", &out); err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	return out.Projects, nil
}

func (c *Client) ListBranches(ctx context.Context, projectID string) ([]model.Branch, error) {
	var out struct {
		Branches []model.Branch `json:"branches"`
	}
	path := fmt.Sprintf("/projects/%s/branches", url.PathEscape(projectID))
	if err := c.get(ctx, path, &out); err != nil {
		return nil, fmt.Errorf("list branches for project %s: %w", projectID, err)
	}
	return out.Branches, nil
}

func (c *Client) ListRoles(ctx context.Context, projectID, branchID string) ([]model.Role, error) {
	var out struct {
		Roles []model.Role `json:"roles"`
	}
	path := fmt.Sprintf("/projects/%s/branches/%s/roles", url.PathEscape(projectID), url.PathEscape(branchID))
	if err := c.get(ctx, path, &out); err != nil {
		return nil, fmt.Errorf("list roles for branch %s: %w", branchID, err)
	}
	return out.Roles, nil
}

func (c *Client) ListDatabases(ctx context.Context, projectID, branchID string) ([]model.Database, error) {
	var out struct {
		Databases []model.Database `json:"databases"`
	}
	path := fmt.Sprintf("/projects/%s/branches/%s/databases", url.PathEscape(projectID), url.PathEscape(branchID))
	if err := c.get(ctx, path, &out); err != nil {
		return nil, fmt.Errorf("list databases for branch %s: %w", branchID, err)
	}
	return out.Databases, nil
}

// ConnectionURI returns a short-lived single-role Postgres connection string
// for the given branch database. The catalog forces SSL on these URIs.
func (c *Client) ConnectionURI(ctx context.Context, projectID, branchID, database, role string) (string, error) {
	var out struct {
		URI string `json:"uri"`
	}
	path := fmt.Sprintf("/projects/%s/connection_uri?branch_id=%s&database_name=%s&role_name=%s",
		url.PathEscape(projectID), url.QueryEscape(branchID), url.QueryEscape(database), url.QueryEscape(role))
	if err := c.get(ctx, path, &out); err != nil {
		return "", fmt.Errorf("connection uri for branch %s: %w", branchID, err)
	}
	return out.URI, nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("status %d: %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
