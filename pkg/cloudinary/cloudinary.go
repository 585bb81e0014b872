package cloudinary

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/rs/zerolog"
)

// ErrNotFound indicates the asset does not exist remotely.
var ErrNotFound = errors.New("asset not found")

// Config contains credentials required to talk to Cloudinary.
type Config struct {
	CloudName string
	APIKey    string
	APISecret string
	Folder    string
}

// Client stores and retrieves binary assets on Cloudinary.
type Client struct {
	client *cloudinary.Cloudinary
	http   *http.Client
	folder string
	logger zerolog.Logger
}

// New constructs a Cloudinary client instance.
func New(cfg Config, logger zerolog.Logger) (*Client, error) {
	if cfg.CloudName == "" || cfg.APIKey == "" || cfg.APISecret == "" {
		return nil, fmt.Errorf("cloudinary credentials must be provided")
	}

	cld, err := cloudinary.NewFromParams(cfg.CloudName, cfg.APIKey, cfg.APISecret)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cloudinary: %w", err)
	}

	return &Client{
		client: cld,
		http:   http.DefaultClient,
		folder: strings.Trim(cfg.Folder, "/"),
		logger: logger.With().Str("component", "cloudinary").Logger(),
	}, nil
}

// Upload stores the asset under the given public id and returns its secure URL.
func (c *Client) Upload(ctx context.Context, publicID string, data []byte) (string, error) {
	params := uploader.UploadParams{
		Folder:       c.folder,
		PublicID:     publicID,
		ResourceType: "auto",
	}

	result, err := c.client.Upload.Upload(ctx, bytes.NewReader(data), params)
	if err != nil {
		return "", fmt.Errorf("failed to upload asset: %w", err)
	}

	c.logger.Info().Str("public_id", result.PublicID).Msg("asset uploaded to cloudinary")

	return result.SecureURL, nil
}

// Download fetches the asset bytes from its delivery URL.
func (c *Client) Download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build download request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download asset: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download asset: unexpected status %d", resp.StatusCode)
	}

	return io.ReadAll(resp.Body)
}

// Destroy removes the asset identified by public id. Removing an asset that
// is already gone reports ErrNotFound.
func (c *Client) Destroy(ctx context.Context, publicID string) error {
	id := publicID
	if c.folder != "" {
		id = c.folder + "/" + publicID
	}

	result, err := c.client.Upload.Destroy(ctx, uploader.DestroyParams{PublicID: id})
	if err != nil {
		return fmt.Errorf("failed to destroy asset: %w", err)
	}
	if strings.EqualFold(result.Result, "not found") {
		return ErrNotFound
	}

	return nil
}
