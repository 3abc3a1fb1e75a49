package artifact

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// AzureScheme prefixes locations stored in Azure Blob Storage.
const AzureScheme = "azblob://"

// Store persists artifacts under string keys.
type Store interface {
	Put(ctx context.Context, key string, a *Artifact) error
	// Get returns ErrNotFound if nothing is stored at key.
	Get(ctx context.Context, key string) (*Artifact, error)
	Exists(ctx context.Context, key string) (bool, error)
}

// Open picks a store for location and returns the key within it.
// "azblob://models/svm.json" selects Azure Blob Storage with key
// "models/svm.json"; anything else is a filesystem path.
func Open(location string, az AzureConfig, logger *slog.Logger) (Store, string, error) {
	if key, ok := strings.CutPrefix(location, AzureScheme); ok {
		s, err := NewAzureStore(az, logger)
		if err != nil {
			return nil, "", err
		}
		return s, key, nil
	}
	return FileStore{}, location, nil
}

// FileStore keeps artifacts on the local filesystem. Keys are paths.
type FileStore struct{}

// Put writes the artifact atomically: it is encoded to a temporary file in
// the destination directory and renamed into place.
func (FileStore) Put(_ context.Context, path string, a *Artifact) error {
	var buf bytes.Buffer
	if err := Encode(&buf, a); err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating artifact directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".artifact-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return fmt.Errorf("writing artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing artifact: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("moving artifact into place: %w", err)
	}
	return nil
}

func (FileStore) Get(_ context.Context, path string) (*Artifact, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", path, ErrNotFound)
		}
		return nil, fmt.Errorf("opening artifact: %w", err)
	}
	defer f.Close()
	return Decode(f)
}

func (FileStore) Exists(_ context.Context, path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, err
}
