package blob

import (
	"context"
	"fmt"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	azblobblob "github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/sas"
)

type AzureConfig struct {
	AccountName   string
	AccountKey    string
	ServiceURL    string
	ContainerName string
}

// AzureStore writes blobs into one container and signs read-only URLs for them.
type AzureStore struct {
	client    *azblob.Client
	container string
}

// NewAzureStore builds a shared-key client. Call EnsureContainer before the first upload.
func NewAzureStore(cfg AzureConfig) (*AzureStore, error) {
	cred, err := azblob.NewSharedKeyCredential(cfg.AccountName, cfg.AccountKey)
	if err != nil {
		return nil, fmt.Errorf("azure shared key credential: %w", err)
	}
	client, err := azblob.NewClientWithSharedKeyCredential(cfg.ServiceURL, cred, nil)
	if err != nil {
		return nil, fmt.Errorf("azure blob client: %w", err)
	}

	return &AzureStore{client: client, container: cfg.ContainerName}, nil
}

// EnsureContainer creates the container, treating an existing one as success.
func (s *AzureStore) EnsureContainer(ctx context.Context) error {
	_, err := s.client.CreateContainer(ctx, s.container, nil)
	if err != nil && !bloberror.HasCode(err, bloberror.ContainerAlreadyExists) {
		return fmt.Errorf("create container %s: %w", s.container, err)
	}
	return nil
}

// Upload stores data under name, replacing any existing blob.
func (s *AzureStore) Upload(ctx context.Context, name, contentType string, data []byte) error {
	_, err := s.client.UploadBuffer(ctx, s.container, name, data, &azblob.UploadBufferOptions{
		HTTPHeaders: &azblobblob.HTTPHeaders{BlobContentType: &contentType},
	})
	if err != nil {
		return fmt.Errorf("upload blob %s: %w", name, err)
	}
	return nil
}

// SignedURL returns a read-only SAS URL for name valid for expiry.
func (s *AzureStore) SignedURL(name string, expiry time.Duration) (string, error) {
	blobClient := s.client.ServiceClient().NewContainerClient(s.container).NewBlobClient(name)
	url, err := blobClient.GetSASURL(sas.BlobPermissions{Read: true}, time.Now().UTC().Add(expiry), nil)
	if err != nil {
		return "", fmt.Errorf("sign blob %s: %w", name, err)
	}
	return url, nil
}
