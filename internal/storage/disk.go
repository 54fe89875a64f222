package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/yoockh/sightline/internal/models"
	"github.com/yoockh/sightline/internal/utils"
)

// DiskStore lands images under <root>/talk/<session>/<tag>.jpg.
type DiskStore struct {
	root string
}

func NewDiskStore(root string) (*DiskStore, error) {
	if root == "" {
		return nil, errors.New("landing dir is empty")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, err
	}
	return &DiskStore{root: root}, nil
}

func (d *DiskStore) path(sessionID string, tag models.ImageTag) string {
	return filepath.Join(d.root, filepath.FromSlash(objectName(sessionID, tag)))
}

func (d *DiskStore) Put(_ context.Context, sessionID string, tag models.ImageTag, data []byte) error {
	if !tag.Valid() {
		return fmt.Errorf("invalid image tag %q", tag)
	}
	dst := d.path(sessionID, tag)
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}

	// write-then-rename so a reader never sees a half written image
	tmp, err := os.CreateTemp(filepath.Dir(dst), "."+string(tag)+"-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), dst)
}

func (d *DiskStore) Get(_ context.Context, sessionID string, tag models.ImageTag) ([]byte, error) {
	b, err := os.ReadFile(d.path(sessionID, tag))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, utils.ErrNotFound
	}
	return b, err
}

func (d *DiskStore) DeleteAll(_ context.Context, sessionID string) error {
	var errs []error
	for _, tag := range models.ImageTags {
		if err := os.Remove(d.path(sessionID, tag)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	// best effort; fails harmlessly if a concurrent Put recreated a file
	_ = os.Remove(filepath.Dir(d.path(sessionID, models.TagPrevious)))
	return nil
}
