package file

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
)

// Adapter stores one file per key under a directory. Writes go through a
// temp file and rename so a crash never leaves a half-written snapshot.
type Adapter struct {
	dir string
}

func New(dir string) (*Adapter, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return &Adapter{dir: dir}, nil
}

func (a *Adapter) path(key string) string {
	return filepath.Join(a.dir, url.PathEscape(key)+".json")
}

func (a *Adapter) Save(_ context.Context, key, value string) error {
	target := a.path(key)
	tmp, err := os.CreateTemp(a.dir, ".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.WriteString(value); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, target)
}

func (a *Adapter) Load(_ context.Context, key string) (string, bool, error) {
	data, err := os.ReadFile(a.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return "", false, nil
		}
		return "", false, err
	}
	return string(data), true, nil
}

func (a *Adapter) Remove(_ context.Context, key string) error {
	err := os.Remove(a.path(key))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
