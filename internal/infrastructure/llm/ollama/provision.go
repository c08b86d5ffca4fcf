package ollama

import (
	"context"
	"fmt"
	"strings"
	"time"
)

const defaultProvisionTimeout = 600 * time.Second

type tagsResponse struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}

// EnsureModel waits for the server, pulls the configured model when it is not
// listed yet and blocks until it shows up or timeout elapses.
func (c *Client) EnsureModel(ctx context.Context, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = defaultProvisionTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	c.logger.Info("ollama_wait_api", "base_url", c.baseURL)
	if err := c.waitForAPI(ctx); err != nil {
		return fmt.Errorf("ollama api at %s did not become reachable: %w", c.baseURL, err)
	}

	present, err := c.hasModel(ctx)
	if err != nil {
		return fmt.Errorf("list ollama models: %w", err)
	}
	if present {
		c.logger.Info("ollama_model_present", "model", c.model)
		return nil
	}

	c.logger.Info("ollama_model_pull", "model", c.model)
	var pullResp struct {
		Status string `json:"status"`
	}
	if err := c.postJSON(ctx, "/api/pull", map[string]any{"name": c.model, "stream": false}, &pullResp, "pull"); err != nil {
		return fmt.Errorf("request ollama pull: %w", err)
	}

	if err := c.waitForModel(ctx); err != nil {
		return fmt.Errorf("timed out waiting for ollama model %s: %w", c.model, err)
	}
	c.logger.Info("ollama_model_ready", "model", c.model)
	return nil
}

func (c *Client) hasModel(ctx context.Context) (bool, error) {
	var tags tagsResponse
	if err := c.getJSON(ctx, "/api/tags", &tags, "tags"); err != nil {
		return false, err
	}
	for _, model := range tags.Models {
		if strings.HasPrefix(model.Name, c.model) {
			return true, nil
		}
	}
	return false, nil
}

func (c *Client) waitForAPI(ctx context.Context) error {
	for {
		var tags tagsResponse
		if err := c.getJSON(ctx, "/api/tags", &tags, "tags"); err == nil {
			return nil
		}
		if err := c.pause(ctx); err != nil {
			return err
		}
	}
}

func (c *Client) waitForModel(ctx context.Context) error {
	for {
		if ok, err := c.hasModel(ctx); err == nil && ok {
			return nil
		}
		if err := c.pause(ctx); err != nil {
			return err
		}
	}
}

func (c *Client) pause(ctx context.Context) error {
	timer := time.NewTimer(c.pollInterval)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
