package artifact

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
)

const (
	// DefaultContainer is used when AzureConfig.ContainerName is empty.
	DefaultContainer = "models"

	// EnvConnectionString is the environment variable read for
	// AzureConfig.ConnectionString.
	EnvConnectionString = "READLEVEL_STORAGE_CONNECTION_STRING"
)

// AzureConfig holds Azure Blob Storage connection parameters.
type AzureConfig struct {
	ContainerName    string `toml:"container_name"`
	ConnectionString string `toml:"connection_string"`
}

var (
	errEmptyKey   = errors.New("artifact key must not be empty")
	errInvalidKey = errors.New("artifact key contains invalid path segment")
)

// AzureStore keeps artifacts as JSON blobs in one container.
type AzureStore struct {
	client    *azblob.Client
	container string
	logger    *slog.Logger

	ensured atomic.Bool
}

// NewAzureStore creates the client. No request is made until first use.
func NewAzureStore(cfg AzureConfig, logger *slog.Logger) (*AzureStore, error) {
	if cfg.ConnectionString == "" {
		return nil, fmt.Errorf("azure storage connection string required (%s)", EnvConnectionString)
	}
	if cfg.ContainerName == "" {
		cfg.ContainerName = DefaultContainer
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	client, err := azblob.NewClientFromConnectionString(cfg.ConnectionString, nil)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}

	return &AzureStore{
		client:    client,
		container: cfg.ContainerName,
		logger:    logger.With("store", "azblob"),
	}, nil
}

// Container returns the container name.
func (s *AzureStore) Container() string { return s.container }

func (s *AzureStore) ensureContainer(ctx context.Context) error {
	if s.ensured.Load() {
		return nil
	}
	_, err := s.client.CreateContainer(ctx, s.container, nil)
	if err != nil && !bloberror.HasCode(err, bloberror.ContainerAlreadyExists) {
		return fmt.Errorf("create container %s: %w", s.container, err)
	}
	s.ensured.Store(true)
	s.logger.Debug("storage container ready", "container", s.container)
	return nil
}

func (s *AzureStore) Put(ctx context.Context, key string, a *Artifact) error {
	if err := validateKey(key); err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := Encode(&buf, a); err != nil {
		return err
	}

	if err := s.ensureContainer(ctx); err != nil {
		return err
	}

	contentType := "application/json"
	opts := &azblob.UploadStreamOptions{
		HTTPHeaders: &blob.HTTPHeaders{
			BlobContentType: &contentType,
		},
		Metadata: map[string]*string{
			"format_version": &a.FormatVersion,
			"run_id":         &a.RunID,
		},
	}

	if _, err := s.client.UploadStream(ctx, s.container, key, &buf, opts); err != nil {
		return fmt.Errorf("upload blob %s: %w", key, err)
	}
	s.logger.Info("artifact uploaded", "container", s.container, "key", key)
	return nil
}

func (s *AzureStore) Get(ctx context.Context, key string) (*Artifact, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}

	resp, err := s.client.DownloadStream(ctx, s.container, key, nil)
	if err != nil {
		if bloberror.HasCode(err, bloberror.BlobNotFound, bloberror.ContainerNotFound) {
			return nil, fmt.Errorf("%s%s: %w", AzureScheme, key, ErrNotFound)
		}
		return nil, fmt.Errorf("download blob %s: %w", key, err)
	}
	defer resp.Body.Close()

	return Decode(resp.Body)
}

func (s *AzureStore) Exists(ctx context.Context, key string) (bool, error) {
	if err := validateKey(key); err != nil {
		return false, err
	}

	blobClient := s.client.
		ServiceClient().
		NewContainerClient(s.container).
		NewBlobClient(key)

	_, err := blobClient.GetProperties(ctx, nil)
	if err != nil {
		if bloberror.HasCode(err, bloberror.BlobNotFound, bloberror.ContainerNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("check blob existence %s: %w", key, err)
	}
	return true, nil
}

func validateKey(key string) error {
	if key == "" {
		return errEmptyKey
	}
	if strings.Contains(key, "..") {
		return errInvalidKey
	}
	return nil
}
