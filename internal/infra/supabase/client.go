package supabase

import (
	"fmt"

	"github.com/MattB543/textpress-matt-test/internal/domain"

	"github.com/supabase-community/supabase-go"
)

// Client holds the Supabase connection used by the document store.
type Client struct {
	client *supabase.Client
	logger domain.Logger
}

// NewClient connects to Supabase with the project URL and anon key.
func NewClient(url, key string, logger domain.Logger) (*Client, error) {
	if url == "" || key == "" {
		return nil, fmt.Errorf("supabase URL and key must be provided")
	}

	client, err := supabase.NewClient(url, key, &supabase.ClientOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to create Supabase client: %w", err)
	}

	logger.Info("Supabase client initialized successfully", "url", url)
	return &Client{client: client, logger: logger}, nil
}

// DB returns the underlying Supabase client for PostgREST queries.
func (c *Client) DB() *supabase.Client {
	return c.client
}
