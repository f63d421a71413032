package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// HTTPClient is a Client speaking the registry's JSON REST API.
// Version lookups by exact version are cached: a created version is
// immutable, so the cache never goes stale. Alias resolutions are NOT
// cached — aliases are mutable pointers.
type HTTPClient struct {
	baseURL string
	client  *http.Client
	cache   *lru.Cache[string, *ModelVersion]
}

// NewHTTPClient builds a client against the registry base URL, e.g.
// "http://localhost:5000".
func NewHTTPClient(baseURL string) (*HTTPClient, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("registry base URL is required")
	}
	cache, err := lru.New[string, *ModelVersion](128)
	if err != nil {
		return nil, err
	}
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 30 * time.Second},
		cache:   cache,
	}, nil
}

func (c *HTTPClient) GetModelVersion(ctx context.Context, name, version string) (*ModelVersion, error) {
	key := name + "/" + version
	if mv, ok := c.cache.Get(key); ok {
		return mv, nil
	}

	var mv ModelVersion
	path := fmt.Sprintf("/api/models/%s/versions/%s", url.PathEscape(name), url.PathEscape(version))
	if err := c.getJSON(ctx, path, &mv); err != nil {
		return nil, err
	}
	c.cache.Add(key, &mv)
	return &mv, nil
}

func (c *HTTPClient) GetVersionByAlias(ctx context.Context, name, alias string) (*ModelVersion, error) {
	var mv ModelVersion
	path := fmt.Sprintf("/api/models/%s/aliases/%s", url.PathEscape(name), url.PathEscape(alias))
	if err := c.getJSON(ctx, path, &mv); err != nil {
		if err == ErrVersionNotFound {
			return nil, ErrAliasNotFound
		}
		return nil, err
	}
	return &mv, nil
}

func (c *HTTPClient) SetAlias(ctx context.Context, name, alias, version string) error {
	path := fmt.Sprintf("/api/models/%s/aliases/%s", url.PathEscape(name), url.PathEscape(alias))
	body, _ := json.Marshal(map[string]string{"version": version})
	return c.do(ctx, http.MethodPut, path, body, nil)
}

func (c *HTTPClient) SearchVersions(ctx context.Context, name string) ([]ModelVersion, error) {
	var out struct {
		Versions []ModelVersion `json:"versions"`
	}
	path := fmt.Sprintf("/api/models/%s/versions", url.PathEscape(name))
	if err := c.getJSON(ctx, path, &out); err != nil {
		return nil, err
	}
	return out.Versions, nil
}

func (c *HTTPClient) CreateVersion(ctx context.Context, name string, run RunData, artifact []byte) (*ModelVersion, error) {
	payload, err := json.Marshal(struct {
		Run      RunData `json:"run"`
		Artifact []byte  `json:"artifact"`
	}{Run: run, Artifact: artifact})
	if err != nil {
		return nil, err
	}

	var mv ModelVersion
	path := fmt.Sprintf("/api/models/%s/versions", url.PathEscape(name))
	if err := c.do(ctx, http.MethodPost, path, payload, &mv); err != nil {
		return nil, err
	}
	return &mv, nil
}

func (c *HTTPClient) GetRunData(ctx context.Context, name, version string) (*RunData, error) {
	var run RunData
	path := fmt.Sprintf("/api/models/%s/versions/%s/run", url.PathEscape(name), url.PathEscape(version))
	if err := c.getJSON(ctx, path, &run); err != nil {
		return nil, err
	}
	return &run, nil
}

func (c *HTTPClient) DownloadArtifact(ctx context.Context, name, version string) ([]byte, error) {
	path := fmt.Sprintf("/api/models/%s/versions/%s/artifact", url.PathEscape(name), url.PathEscape(version))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("registry request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrVersionNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("registry returned %d for %s", resp.StatusCode, path)
	}
	return io.ReadAll(resp.Body)
}

func (c *HTTPClient) getJSON(ctx context.Context, path string, out interface{}) error {
	return c.do(ctx, http.MethodGet, path, nil, out)
}

func (c *HTTPClient) do(ctx context.Context, method, path string, body []byte, out interface{}) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("registry request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrVersionNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("registry returned %d for %s: %s", resp.StatusCode, path, strings.TrimSpace(string(payload)))
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
