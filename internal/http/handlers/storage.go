package handlers

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/transcoderd/internal/http/response"
	"github.com/yungbote/transcoderd/internal/platform/blob"
)

type StorageHandler struct {
	store blob.Store
}

func NewStorageHandler(store blob.Store) *StorageHandler {
	return &StorageHandler{store: store}
}

// POST /upload
func (h *StorageHandler) Upload(c *gin.Context) {
	header, err := c.FormFile("file")
	if err != nil {
		response.Detail(c, http.StatusUnprocessableEntity, err.Error())
		return
	}
	file, err := header.Open()
	if err != nil {
		response.Detail(c, http.StatusInternalServerError, err.Error())
		return
	}
	defer file.Close()
	if err := h.store.Upload(c.Request.Context(), header.Filename, file); err != nil {
		response.Detail(c, http.StatusInternalServerError, err.Error())
		return
	}
	response.OK(c, gin.H{"filename": header.Filename})
}

// GET /download/:filename
func (h *StorageHandler) Download(c *gin.Context) {
	filename := c.Param("filename")
	if err := h.store.Head(c.Request.Context(), filename); err != nil {
		if errors.Is(err, blob.ErrObjectNotFound) {
			response.Detail(c, http.StatusNotFound, "File not found")
			return
		}
		response.Detail(c, http.StatusInternalServerError, err.Error())
		return
	}
	body, err := h.store.Open(c.Request.Context(), filename)
	if err != nil {
		response.Detail(c, http.StatusInternalServerError, err.Error())
		return
	}
	defer body.Close()
	c.Header("Content-Type", "application/octet-stream")
	c.Status(http.StatusOK)
	_, _ = io.Copy(c.Writer, body)
}

// GET /signed_download/*filename
func (h *StorageHandler) SignedDownload(c *gin.Context) {
	filename := strings.TrimPrefix(c.Param("filename"), "/")
	url, err := h.store.PresignGet(c.Request.Context(), filename)
	if err != nil {
		response.Detail(c, http.StatusInternalServerError, err.Error())
		return
	}
	response.OK(c, gin.H{"url": url})
}
