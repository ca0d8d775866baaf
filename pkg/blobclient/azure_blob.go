package blobclient

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
	"github.com/alphaflow/blobkit/pkg/errors"
	"github.com/alphaflow/blobkit/pkg/logging"
)

var _ Backend = (*AzureBackend)(nil)

// AzureBackend implements Backend using Azure Blob Storage.
type AzureBackend struct {
	client *azblob.Client
	logger logging.Logger
}

// NewAzureBackendFromConnectionString creates a backend from a storage connection string.
// Works against Azurite too, e.g.
// DefaultEndpointsProtocol=http;AccountName=devstoreaccount1;AccountKey=...;BlobEndpoint=http://127.0.0.1:10000/devstoreaccount1;
func NewAzureBackendFromConnectionString(connectionString string, logger logging.Logger) (*AzureBackend, error) {
	client, err := azblob.NewClientFromConnectionString(connectionString, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create Azure blob client: %w", err)
	}
	return newAzureBackend(client, logger), nil
}

// NewAzureBackend creates a backend for a storage account.
// accountName: Azure storage account name
// accountKey: Azure storage account key (optional if using managed identity)
// useManagedIdentity: if true, uses managed identity instead of account key
func NewAzureBackend(accountName, accountKey string, useManagedIdentity bool, logger logging.Logger) (*AzureBackend, error) {
	serviceURL := fmt.Sprintf("https://%s.blob.core.windows.net/", accountName)

	var client *azblob.Client

	if useManagedIdentity || accountKey == "" {
		// Use managed identity (for Azure environments) or default credentials
		cred, err := azidentity.NewDefaultAzureCredential(nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create Azure credential: %w", err)
		}
		client, err = azblob.NewClient(serviceURL, cred, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create Azure blob client: %w", err)
		}
	} else {
		cred, err := azblob.NewSharedKeyCredential(accountName, accountKey)
		if err != nil {
			return nil, fmt.Errorf("failed to create shared key credential: %w", err)
		}
		client, err = azblob.NewClientWithSharedKeyCredential(serviceURL, cred, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create Azure blob client: %w", err)
		}
	}

	return newAzureBackend(client, logger), nil
}

func newAzureBackend(client *azblob.Client, logger logging.Logger) *AzureBackend {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &AzureBackend{client: client, logger: logger}
}

func (a *AzureBackend) opLogger(operation, container, blobName string) logging.Logger {
	fields := []logging.Field{
		logging.NewField("operation", operation),
		logging.NewField("container", container),
	}
	if blobName != "" {
		fields = append(fields, logging.NewField("blob", blobName))
	}
	return a.logger.With(fields...)
}

// CreateContainer creates a container.
func (a *AzureBackend) CreateContainer(ctx context.Context, name string) error {
	logger := a.opLogger("container.create", name, "")
	logger.Debug("Creating container")

	if _, err := a.client.CreateContainer(ctx, name, nil); err != nil {
		logger.Error("Failed to create container", logging.NewField("error", err))
		return translateError(err, "container", name)
	}
	return nil
}

// DeleteContainer deletes a container.
func (a *AzureBackend) DeleteContainer(ctx context.Context, name string) error {
	logger := a.opLogger("container.delete", name, "")
	logger.Debug("Deleting container")

	if _, err := a.client.DeleteContainer(ctx, name, nil); err != nil {
		logger.Error("Failed to delete container", logging.NewField("error", err))
		return translateError(err, "container", name)
	}
	return nil
}

// ListContainers drains the container pager.
func (a *AzureBackend) ListContainers(ctx context.Context) ([]string, error) {
	a.logger.Debug("Listing containers", logging.NewField("operation", "container.list"))

	names := []string{}
	pager := a.client.NewListContainersPager(nil)
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			a.logger.Error("Failed to list containers", logging.NewField("error", err))
			return nil, err
		}
		for _, item := range page.ContainerItems {
			if item.Name != nil {
				names = append(names, *item.Name)
			}
		}
	}
	return names, nil
}

// ContainerStatus checks container existence with a properties lookup.
func (a *AzureBackend) ContainerStatus(ctx context.Context, name string) (Presence, error) {
	a.opLogger("container.exists", name, "").Debug("Checking container")

	_, err := a.client.ServiceClient().NewContainerClient(name).GetProperties(ctx, nil)
	return presenceFromError(err)
}

// ListBlobs lists blobs in a container with optional prefix.
func (a *AzureBackend) ListBlobs(ctx context.Context, container, prefix string) ([]BlobInfo, error) {
	logger := a.opLogger("blob.list", container, "").With(logging.NewField("prefix", prefix))
	logger.Debug("Listing blobs")

	listOptions := &azblob.ListBlobsFlatOptions{}
	if prefix != "" {
		listOptions.Prefix = &prefix
	}

	containerClient := a.client.ServiceClient().NewContainerClient(container)
	pager := a.client.NewListBlobsFlatPager(container, listOptions)

	blobs := []BlobInfo{}
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			logger.Error("Failed to list blobs", logging.NewField("error", err))
			return nil, translateError(err, "container", container)
		}

		for _, item := range page.Segment.BlobItems {
			if item.Name == nil {
				continue
			}
			info := BlobInfo{
				Name: *item.Name,
				URL:  containerClient.NewBlobClient(*item.Name).URL(),
			}
			if props := item.Properties; props != nil {
				if props.ContentLength != nil {
					info.Size = *props.ContentLength
				}
				if props.ContentType != nil {
					info.ContentType = *props.ContentType
				}
				if props.LastModified != nil {
					info.LastModified = props.LastModified.UTC().Format(time.RFC3339)
				}
			}
			blobs = append(blobs, info)
		}
	}

	logger.Debug("Blob listing completed", logging.NewField("count", len(blobs)))
	return blobs, nil
}

// BlobStatus checks blob existence with a properties lookup.
func (a *AzureBackend) BlobStatus(ctx context.Context, container, blobName string) (Presence, error) {
	a.opLogger("blob.exists", container, blobName).Debug("Checking blob")

	_, err := a.client.ServiceClient().NewContainerClient(container).NewBlobClient(blobName).GetProperties(ctx, nil)
	return presenceFromError(err)
}

// UploadBlob uploads a block blob guarded by If-None-Match: * so existing blobs stay untouched.
func (a *AzureBackend) UploadBlob(ctx context.Context, container, blobName string, data []byte) error {
	logger := a.opLogger("blob.upload", container, blobName)
	logger.Debug("Starting blob upload", logging.NewField("size", len(data)))

	opts := &azblob.UploadBufferOptions{
		HTTPHeaders: &blob.HTTPHeaders{
			BlobContentType: to.Ptr(http.DetectContentType(data)),
		},
		AccessConditions: &blob.AccessConditions{
			ModifiedAccessConditions: &blob.ModifiedAccessConditions{
				IfNoneMatch: to.Ptr(azcore.ETagAny),
			},
		},
	}

	if _, err := a.client.UploadBuffer(ctx, container, blobName, data, opts); err != nil {
		logger.Error("Failed to upload blob", logging.NewField("error", err))
		return translateError(err, "blob", blobName)
	}
	return nil
}

// DownloadBlob retrieves a blob's content.
func (a *AzureBackend) DownloadBlob(ctx context.Context, container, blobName string) ([]byte, error) {
	logger := a.opLogger("blob.get", container, blobName)
	logger.Debug("Retrieving blob")

	resp, err := a.client.DownloadStream(ctx, container, blobName, nil)
	if err != nil {
		logger.Error("Failed to download blob", logging.NewField("error", err))
		return nil, translateError(err, "blob", blobName)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read blob body: %w", err)
	}
	return data, nil
}

// DeleteBlob deletes a blob.
func (a *AzureBackend) DeleteBlob(ctx context.Context, container, blobName string) error {
	logger := a.opLogger("blob.delete", container, blobName)
	logger.Debug("Deleting blob")

	if _, err := a.client.DeleteBlob(ctx, container, blobName, nil); err != nil {
		logger.Error("Failed to delete blob", logging.NewField("error", err))
		return translateError(err, "blob", blobName)
	}
	return nil
}

// translateError maps storage error codes onto the error taxonomy.
func translateError(err error, kind, name string) error {
	switch {
	case bloberror.HasCode(err, bloberror.ContainerAlreadyExists, bloberror.BlobAlreadyExists, bloberror.ConditionNotMet):
		return errors.NewAppErrorWithErr(errors.ErrorCodeAlreadyExists,
			fmt.Sprintf("%s '%s' already exists", kind, name), http.StatusConflict, err)
	case bloberror.HasCode(err, bloberror.ContainerNotFound):
		return errors.NewAppErrorWithErr(errors.ErrorCodeNotFound,
			"container not found", http.StatusNotFound, err)
	case bloberror.HasCode(err, bloberror.BlobNotFound):
		return errors.NewAppErrorWithErr(errors.ErrorCodeNotFound,
			fmt.Sprintf("blob '%s' not found", name), http.StatusNotFound, err)
	}
	return err
}

// presenceFromError turns a properties lookup result into a Presence.
// HEAD responses carry no body, so a bare 404 also counts as absent.
func presenceFromError(err error) (Presence, error) {
	if err == nil {
		return Present, nil
	}
	if bloberror.HasCode(err, bloberror.ContainerNotFound, bloberror.BlobNotFound) {
		return Absent, nil
	}
	var respErr *azcore.ResponseError
	if stderrors.As(err, &respErr) && respErr.StatusCode == http.StatusNotFound {
		return Absent, nil
	}
	return Absent, err
}
