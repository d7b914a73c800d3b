package urlbuilder

import (
	"strings"

	"github.com/dunamismax/pixelprops/internal/domain"
)

const DefaultBaseURL = "https://cdn.sanity.io"

type Config struct {
	ProjectID string
	Dataset   string
	BaseURL   string
}

// Client opens builders for one project and dataset.
type Client struct {
	projectID string
	dataset   string
	baseURL   string
}

func NewClient(cfg Config) *Client {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	return &Client{
		projectID: strings.TrimSpace(cfg.ProjectID),
		dataset:   strings.TrimSpace(cfg.Dataset),
		baseURL:   baseURL,
	}
}

func (c *Client) ProjectID() string {
	return c.projectID
}

func (c *Client) Dataset() string {
	return c.dataset
}

// Image opens a fresh builder for src. Builders never share state, so every
// call is independent of earlier ones.
func (c *Client) Image(src domain.ImageSource) Builder {
	return Builder{
		projectID: c.projectID,
		dataset:   c.dataset,
		baseURL:   c.baseURL,
		source:    src,
	}
}
