package handlers

import (
	"fmt"
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"ad-studio/internal/storage"
)

// UploadHandler stores product images so a session can reference them
// during clip generation. The returned locator goes into the create-session
// payload as reference_image.
type UploadHandler struct {
	store  storage.Gateway
	bucket string
	prefix string
}

func NewUploadHandler(store storage.Gateway, bucket, prefix string) *UploadHandler {
	return &UploadHandler{store: store, bucket: bucket, prefix: prefix}
}

// POST /api/uploads
func (h *UploadHandler) UploadImage(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	defer file.Close()

	dst := storage.Locator{
		Bucket: h.bucket,
		Key:    fmt.Sprintf("%s/%s_%s", h.prefix, uuid.NewString()[:8], filepath.Base(header.Filename)),
	}
	loc, err := h.store.Put(c.Request.Context(), dst, file)
	if err != nil {
		RespondMapped(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"locator": loc.String()})
}
