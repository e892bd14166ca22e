// Package azureblob keeps audio blobs in an Azure Storage container.
package azureblob

import (
	"context"
	"io"

	"audio-interviewer/internal/errors"
	"audio-interviewer/internal/storage"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
	"github.com/google/uuid"
)

const audioContentType = "audio/webm"

// Options selects how the client authenticates. ConnectionString wins over
// AccountURL, which uses the default Azure credential chain.
type Options struct {
	ConnectionString string
	AccountURL       string
	Container        string
}

// Store implements storage.BlobStore on a blob container.
type Store struct {
	client    *azblob.Client
	container string
}

// New builds a client and makes sure the container exists.
func New(ctx context.Context, opts Options) (*Store, error) {
	if opts.Container == "" {
		return nil, errors.ConfigInvalid("azure container name is required")
	}

	var (
		client *azblob.Client
		err    error
	)
	switch {
	case opts.ConnectionString != "":
		client, err = azblob.NewClientFromConnectionString(opts.ConnectionString, nil)
	case opts.AccountURL != "":
		cred, credErr := azidentity.NewDefaultAzureCredential(nil)
		if credErr != nil {
			return nil, errors.Wrap(credErr, "failed to load azure credentials")
		}
		client, err = azblob.NewClient(opts.AccountURL, cred, nil)
	default:
		return nil, errors.ConfigInvalid("azure connection string or account URL is required")
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to create azure blob client")
	}

	_, err = client.CreateContainer(ctx, opts.Container, nil)
	if err != nil && !bloberror.HasCode(err, bloberror.ContainerAlreadyExists) {
		return nil, errors.Wrapf(err, "failed to create container %s", opts.Container)
	}
	return &Store{client: client, container: opts.Container}, nil
}

func (s *Store) Upload(ctx context.Context, name string, data []byte) (string, error) {
	id := uuid.NewString()
	_, err := s.client.UploadBuffer(ctx, s.container, id, data, &azblob.UploadBufferOptions{
		HTTPHeaders: &blob.HTTPHeaders{BlobContentType: to.Ptr(audioContentType)},
		Metadata:    map[string]*string{"filename": to.Ptr(name)},
	})
	if err != nil {
		return "", errors.Wrap(err, "failed to upload audio blob")
	}
	return id, nil
}

func (s *Store) Download(ctx context.Context, id string) ([]byte, error) {
	if !validID(id) {
		return nil, storage.ErrNotFound
	}
	resp, err := s.client.DownloadStream(ctx, s.container, id, nil)
	if bloberror.HasCode(err, bloberror.BlobNotFound) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to download audio blob")
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read audio blob")
	}
	return data, nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	if !validID(id) {
		return storage.ErrNotFound
	}
	_, err := s.client.DeleteBlob(ctx, s.container, id, nil)
	if bloberror.HasCode(err, bloberror.BlobNotFound) {
		return storage.ErrNotFound
	}
	if err != nil {
		return errors.Wrap(err, "failed to delete audio blob")
	}
	return nil
}

func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
