package blobstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// Disk is a filesystem backend. Writes go to a temp file that is fsynced and
// renamed into place, so a write cut short by a deadline never leaves a
// retrievable object behind.
type Disk struct {
	root string
}

// NewDisk creates the storage directory if needed and returns a disk backend.
func NewDisk(root string) (*Disk, error) {
	if root == "" {
		return nil, fmt.Errorf("storage directory must not be empty")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create storage directory: %w", err)
	}
	return &Disk{root: root}, nil
}

func (d *Disk) objectPath(id string) string {
	return filepath.Join(d.root, id)
}

// Put writes the object atomically and returns its path relative to the root.
func (d *Disk) Put(ctx context.Context, id string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	tmp, err := os.CreateTemp(d.root, id+".tmp-*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	cleanup := func() {
		tmp.Close()
		os.Remove(tmpName)
	}

	if _, err := tmp.Write(data); err != nil {
		cleanup()
		return "", fmt.Errorf("write object: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return "", fmt.Errorf("sync object: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("close object: %w", err)
	}

	if err := ctx.Err(); err != nil {
		os.Remove(tmpName)
		return "", err
	}

	if err := os.Rename(tmpName, d.objectPath(id)); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("commit object: %w", err)
	}

	return id, nil
}

// Get reads the object bytes.
func (d *Disk) Get(ctx context.Context, id, location string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(d.objectPath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrBlobNotFound
		}
		return nil, fmt.Errorf("read object: %w", err)
	}
	return data, nil
}

// Delete removes the object file, reporting ErrBlobNotFound when absent.
func (d *Disk) Delete(ctx context.Context, id, location string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := os.Remove(d.objectPath(id)); err != nil {
		if os.IsNotExist(err) {
			return ErrBlobNotFound
		}
		return fmt.Errorf("remove object: %w", err)
	}
	return nil
}
