package blobstore

import (
	"context"
	"errors"

	"github.com/courseloop/coursework-api/pkg/cloudinary"
)

// Cloudinary adapts the Cloudinary client to the Backend interface. The
// location token is the asset's secure delivery URL.
type Cloudinary struct {
	client *cloudinary.Client
}

// NewCloudinary wraps a Cloudinary client as a storage backend.
func NewCloudinary(client *cloudinary.Client) *Cloudinary {
	return &Cloudinary{client: client}
}

func (c *Cloudinary) Put(ctx context.Context, id string, data []byte) (string, error) {
	return c.client.Upload(ctx, id, data)
}

func (c *Cloudinary) Get(ctx context.Context, id, location string) ([]byte, error) {
	data, err := c.client.Download(ctx, location)
	if err != nil {
		if errors.Is(err, cloudinary.ErrNotFound) {
			return nil, ErrBlobNotFound
		}
		return nil, err
	}
	return data, nil
}

func (c *Cloudinary) Delete(ctx context.Context, id, location string) error {
	if err := c.client.Destroy(ctx, id); err != nil {
		if errors.Is(err, cloudinary.ErrNotFound) {
			return ErrBlobNotFound
		}
		return err
	}
	return nil
}
