package blobclient

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/alphaflow/blobkit/pkg/console"
	"github.com/alphaflow/blobkit/pkg/errors"
	"github.com/alphaflow/blobkit/pkg/events"
	"github.com/alphaflow/blobkit/pkg/logging"
)

// Reporter receives human-readable status lines. *console.Printer implements it.
type Reporter interface {
	Infof(format string, args ...interface{})
	Successf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
	Itemf(format string, args ...interface{})
}

// Recorder receives one measurement per client call. *telemetry.NewRelicClient implements it.
type Recorder interface {
	RecordOperation(operation, container, blob string, duration time.Duration, err error)
}

// Option configures a Client.
type Option func(*Client)

// WithReporter sets where status lines go. Defaults to nowhere.
func WithReporter(r Reporter) Option {
	return func(c *Client) { c.reporter = r }
}

// WithLogger sets the structured logger.
func WithLogger(l logging.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithPublisher publishes lifecycle events after successful mutations.
func WithPublisher(p events.Publisher) Option {
	return func(c *Client) { c.publisher = p }
}

// WithRecorder records per-operation telemetry.
func WithRecorder(r Recorder) Option {
	return func(c *Client) { c.recorder = r }
}

// Client performs container and blob operations on a Backend.
// Results are computed first; reporting, events and telemetry never change them.
type Client struct {
	backend   Backend
	reporter  Reporter
	logger    logging.Logger
	publisher events.Publisher
	recorder  Recorder
}

// NewClient creates a Client over backend.
func NewClient(backend Backend, opts ...Option) *Client {
	c := &Client{
		backend:  backend,
		reporter: console.Discard,
		logger:   logging.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Backend returns the backend the client drives.
func (c *Client) Backend() Backend {
	return c.backend
}

// track starts timing an operation; call the result with the operation's error.
func (c *Client) track(operation, container, blob string) func(*error) {
	start := time.Now()
	return func(errp *error) {
		if c.recorder != nil {
			c.recorder.RecordOperation(operation, container, blob, time.Since(start), *errp)
		}
	}
}

func (c *Client) publish(ctx context.Context, event events.Event) {
	if c.publisher == nil {
		return
	}
	if err := c.publisher.Publish(ctx, event); err != nil {
		c.logger.Warn("Failed to publish storage event",
			logging.NewField("event_type", string(event.Type)),
			logging.NewField("container", event.Container),
			logging.NewField("error", err),
		)
	}
}

func requireName(kind, name string) error {
	if name == "" {
		return errors.NewValidationError(fmt.Sprintf("%s name must not be empty", kind))
	}
	return nil
}

func (c *Client) requireContainer(ctx context.Context, container string) error {
	presence, err := c.backend.ContainerStatus(ctx, container)
	if err != nil {
		return err
	}
	if presence == Absent {
		return errors.NewNotFoundError(fmt.Sprintf("Container '%s' does not exist.", container))
	}
	return nil
}

// CreateContainer creates a container; an existing one fails with AlreadyExists.
func (c *Client) CreateContainer(ctx context.Context, name string) (err error) {
	defer c.track("container.create", name, "")(&err)
	if err = requireName("container", name); err != nil {
		return err
	}

	if err = c.backend.CreateContainer(ctx, name); err != nil {
		if errors.IsAlreadyExists(err) {
			c.reporter.Errorf("Container '%s' already exists.", name)
		} else {
			c.reporter.Errorf("Failed to create container: %v", err)
		}
		return err
	}

	c.reporter.Successf("Container '%s' created.", name)
	c.publish(ctx, events.New(events.ContainerCreated, name, "", 0))
	return nil
}

// DeleteContainer deletes a container and everything in it.
func (c *Client) DeleteContainer(ctx context.Context, name string) (err error) {
	defer c.track("container.delete", name, "")(&err)
	if err = requireName("container", name); err != nil {
		return err
	}

	if err = c.backend.DeleteContainer(ctx, name); err != nil {
		if errors.IsNotFound(err) {
			c.reporter.Errorf("Container '%s' does not exist.", name)
		} else {
			c.reporter.Errorf("Failed to delete container: %v", err)
		}
		return err
	}

	c.reporter.Successf("Container '%s' deleted.", name)
	c.publish(ctx, events.New(events.ContainerDeleted, name, "", 0))
	return nil
}

// ListContainers returns all container names in the account.
func (c *Client) ListContainers(ctx context.Context) (names []string, err error) {
	defer c.track("container.list", "", "")(&err)

	names, err = c.backend.ListContainers(ctx)
	if err != nil {
		return nil, err
	}

	if len(names) == 0 {
		c.reporter.Infof("There are no containers in the storage account.")
		return names, nil
	}
	c.reporter.Infof("List of containers in the storage account:")
	for _, name := range names {
		c.reporter.Itemf("%s", name)
	}
	return names, nil
}

// ContainerExists reports whether a container exists. Only backend failures return an error.
func (c *Client) ContainerExists(ctx context.Context, name string) (exists bool, err error) {
	defer c.track("container.exists", name, "")(&err)

	presence, err := c.backend.ContainerStatus(ctx, name)
	if err != nil {
		return false, err
	}

	exists = presence == Present
	if exists {
		c.reporter.Infof("Container '%s' exists.", name)
	} else {
		c.reporter.Infof("Container '%s' does not exist.", name)
	}
	return exists, nil
}

// ListBlobs returns the names of all blobs in a container.
func (c *Client) ListBlobs(ctx context.Context, container string) ([]string, error) {
	infos, err := c.listBlobInfo(ctx, container, "")
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(infos))
	for _, info := range infos {
		names = append(names, info.Name)
	}

	if len(names) == 0 {
		c.reporter.Infof("There are no blobs in the container.")
		return names, nil
	}
	c.reporter.Infof("List of blobs in the container:")
	for _, name := range names {
		c.reporter.Itemf("%s", name)
	}
	return names, nil
}

// ListBlobInfo returns blob details, optionally restricted to a name prefix.
func (c *Client) ListBlobInfo(ctx context.Context, container, prefix string) ([]BlobInfo, error) {
	return c.listBlobInfo(ctx, container, prefix)
}

func (c *Client) listBlobInfo(ctx context.Context, container, prefix string) (infos []BlobInfo, err error) {
	defer c.track("blob.list", container, "")(&err)

	if err = c.requireContainer(ctx, container); err != nil {
		return nil, err
	}
	return c.backend.ListBlobs(ctx, container, prefix)
}

// DeleteBlob deletes one blob. A missing container or blob fails with NotFound.
func (c *Client) DeleteBlob(ctx context.Context, container, blob string) (err error) {
	defer c.track("blob.delete", container, blob)(&err)

	if err = c.requireContainer(ctx, container); err != nil {
		return err
	}

	presence, err := c.backend.BlobStatus(ctx, container, blob)
	if err != nil {
		return err
	}
	if presence == Absent {
		err = errors.NewNotFoundError(fmt.Sprintf("Blob '%s' does not exist.", blob))
		return err
	}

	if err = c.backend.DeleteBlob(ctx, container, blob); err != nil {
		return err
	}

	c.reporter.Successf("Blob '%s' deleted.", blob)
	c.publish(ctx, events.New(events.BlobDeleted, container, blob, 0))
	return nil
}

// UploadFile uploads one local file to a new blob. Existing blobs are never overwritten.
func (c *Client) UploadFile(ctx context.Context, localPath, container, blobKey string) error {
	if err := c.requireContainer(ctx, container); err != nil {
		return err
	}
	return c.uploadFile(ctx, localPath, container, blobKey)
}

// uploadFile assumes the container was already checked.
func (c *Client) uploadFile(ctx context.Context, localPath, container, blobKey string) error {
	if err := requireName("blob", blobKey); err != nil {
		return err
	}

	data, err := os.ReadFile(localPath)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", localPath, err)
	}

	if err := c.put(ctx, container, blobKey, data); err != nil {
		return err
	}

	c.reporter.Successf("Uploaded file %s to %s/%s", localPath, container, blobKey)
	return nil
}

// UploadBytes uploads data to a new blob with the same contract as UploadFile.
func (c *Client) UploadBytes(ctx context.Context, container, blobKey string, data []byte) error {
	if err := requireName("blob", blobKey); err != nil {
		return err
	}
	if err := c.requireContainer(ctx, container); err != nil {
		return err
	}
	if err := c.put(ctx, container, blobKey, data); err != nil {
		return err
	}

	c.reporter.Successf("Uploaded %d bytes to %s/%s", len(data), container, blobKey)
	return nil
}

func (c *Client) put(ctx context.Context, container, blobKey string, data []byte) (err error) {
	defer c.track("blob.upload", container, blobKey)(&err)

	presence, err := c.backend.BlobStatus(ctx, container, blobKey)
	if err != nil {
		return err
	}
	if presence == Present {
		err = errors.NewAlreadyExistsError(fmt.Sprintf("Blob '%s' already exists.", blobKey))
		return err
	}

	if err = c.backend.UploadBlob(ctx, container, blobKey, data); err != nil {
		return err
	}

	c.publish(ctx, events.New(events.BlobUploaded, container, blobKey, int64(len(data))))
	return nil
}

// DownloadBlob returns the content of a blob.
func (c *Client) DownloadBlob(ctx context.Context, container, blob string) (data []byte, err error) {
	defer c.track("blob.get", container, blob)(&err)

	if err = c.requireContainer(ctx, container); err != nil {
		return nil, err
	}
	return c.backend.DownloadBlob(ctx, container, blob)
}
