// Package indexer queries the protocol's GraphQL indexer. A fallback
// endpoint is tried when the primary is unreachable or returns errors.
package indexer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

type Client struct {
	primary  string
	fallback string
	client   *http.Client
}

func NewClient(primary, fallback string) *Client {
	return &Client{
		primary:  primary,
		fallback: fallback,
		client:   &http.Client{Timeout: 15 * time.Second},
	}
}

type graphqlError struct {
	Message string `json:"message"`
}

type envelope struct {
	Data   json.RawMessage `json:"data"`
	Errors []graphqlError  `json:"errors"`
}

// Query posts a GraphQL query and decodes the data envelope into out.
func (c *Client) Query(ctx context.Context, query string, out any) error {
	err := c.post(ctx, c.primary, query, out)
	if err == nil || c.fallback == "" {
		return err
	}
	if ferr := c.post(ctx, c.fallback, query, out); ferr == nil {
		return nil
	}
	return err
}

func (c *Client) post(ctx context.Context, url, query string, out any) error {
	body, _ := json.Marshal(map[string]string{"query": query})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("indexer request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("indexer status: %d", resp.StatusCode)
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("decode indexer response: %w", err)
	}
	if len(env.Errors) > 0 {
		return fmt.Errorf("indexer error: %s", env.Errors[0].Message)
	}
	if env.Data == nil {
		return fmt.Errorf("indexer returned no data")
	}
	return json.Unmarshal(env.Data, out)
}
