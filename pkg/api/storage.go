package api

import (
	"io"
	"net/http"
	"strings"

	"github.com/alphaflow/blobkit/pkg/auth"
	"github.com/alphaflow/blobkit/pkg/blobclient"
	"github.com/alphaflow/blobkit/pkg/errors"
	"github.com/alphaflow/blobkit/pkg/httpservice"
	"github.com/alphaflow/blobkit/pkg/logging"
	"github.com/gin-gonic/gin"
)

// StorageHandler exposes container and blob operations under /api/v1.
type StorageHandler struct {
	client *blobclient.Client
	tokens *auth.TokenService
	logger logging.Logger
}

// NewStorageHandler creates the storage routes. With a nil token service the
// routes are unauthenticated.
func NewStorageHandler(client *blobclient.Client, tokens *auth.TokenService, logger logging.Logger) *StorageHandler {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &StorageHandler{client: client, tokens: tokens, logger: logger}
}

type createContainerRequest struct {
	Name string `json:"name" validate:"required,min=3,max=63"`
}

type listBlobsQuery struct {
	Prefix string `form:"prefix" validate:"max=1024"`
}

func (h *StorageHandler) Register(router *gin.Engine) {
	v1 := apiGroup(router, h.tokens, h.logger)
	read, write := scopes(h.tokens, h.logger)

	v1.GET("/containers", read, httpservice.Wrap("containers.list", h.listContainers))
	v1.POST("/containers", write, httpservice.Wrap("containers.create", h.createContainer))
	v1.GET("/containers/:container", read, httpservice.Wrap("containers.exists", h.containerExists))
	v1.DELETE("/containers/:container", write, httpservice.Wrap("containers.delete", h.deleteContainer))
	v1.GET("/containers/:container/blobs", read, httpservice.Wrap("blobs.list", h.listBlobs))

	v1.PUT("/blobs/:container/*blob", write, httpservice.Wrap("blobs.upload", h.uploadBlob))
	v1.GET("/blobs/:container/*blob", read, httpservice.Wrap("blobs.get", h.getBlob))
	v1.DELETE("/blobs/:container/*blob", write, httpservice.Wrap("blobs.delete", h.deleteBlob))
}

func (h *StorageHandler) listContainers(c *gin.Context) error {
	names, err := h.client.ListContainers(c.Request.Context())
	if err != nil {
		return err
	}
	c.JSON(http.StatusOK, gin.H{"containers": names})
	return nil
}

func (h *StorageHandler) createContainer(c *gin.Context) error {
	var req createContainerRequest
	if !httpservice.BindJSON(c, &req) {
		return nil
	}
	if err := h.client.CreateContainer(c.Request.Context(), req.Name); err != nil {
		return err
	}
	c.JSON(http.StatusCreated, gin.H{"name": req.Name})
	return nil
}

func (h *StorageHandler) containerExists(c *gin.Context) error {
	name := c.Param("container")
	exists, err := h.client.ContainerExists(c.Request.Context(), name)
	if err != nil {
		return err
	}
	c.JSON(http.StatusOK, gin.H{"name": name, "exists": exists})
	return nil
}

func (h *StorageHandler) deleteContainer(c *gin.Context) error {
	if err := h.client.DeleteContainer(c.Request.Context(), c.Param("container")); err != nil {
		return err
	}
	c.Status(http.StatusNoContent)
	return nil
}

func (h *StorageHandler) listBlobs(c *gin.Context) error {
	var q listBlobsQuery
	if !httpservice.BindQuery(c, &q) {
		return nil
	}
	infos, err := h.client.ListBlobInfo(c.Request.Context(), c.Param("container"), q.Prefix)
	if err != nil {
		return err
	}
	c.JSON(http.StatusOK, gin.H{"blobs": infos})
	return nil
}

// blobParam returns the catch-all blob key without gin's leading slash.
func blobParam(c *gin.Context) (string, error) {
	key := strings.TrimPrefix(c.Param("blob"), "/")
	if key == "" {
		return "", errors.NewValidationError("blob name must not be empty")
	}
	return key, nil
}

func (h *StorageHandler) uploadBlob(c *gin.Context) error {
	key, err := blobParam(c)
	if err != nil {
		return err
	}
	data, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return errors.NewAppErrorWithErr(errors.ErrorCodeBadRequest, "Failed to read request body", http.StatusRequestEntityTooLarge, err)
	}

	container := c.Param("container")
	if err := h.client.UploadBytes(c.Request.Context(), container, key, data); err != nil {
		return err
	}
	c.JSON(http.StatusCreated, gin.H{"container": container, "blob": key, "size": len(data)})
	return nil
}

func (h *StorageHandler) getBlob(c *gin.Context) error {
	key, err := blobParam(c)
	if err != nil {
		return err
	}
	data, err := h.client.DownloadBlob(c.Request.Context(), c.Param("container"), key)
	if err != nil {
		return err
	}
	c.Data(http.StatusOK, http.DetectContentType(data), data)
	return nil
}

func (h *StorageHandler) deleteBlob(c *gin.Context) error {
	key, err := blobParam(c)
	if err != nil {
		return err
	}
	if err := h.client.DeleteBlob(c.Request.Context(), c.Param("container"), key); err != nil {
		return err
	}
	c.Status(http.StatusNoContent)
	return nil
}
