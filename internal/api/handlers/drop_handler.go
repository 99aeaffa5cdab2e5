// internal/api/handlers/drop_handler.go
package handlers

import (
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/droplink-app/droplink/internal/config"
	"github.com/droplink-app/droplink/internal/domain"
	"github.com/droplink-app/droplink/internal/service"
)

type DropHandler struct {
	drops *service.DropService
}

func NewDropHandler(drops *service.DropService) *DropHandler {
	return &DropHandler{drops: drops}
}

// CreateDrop accepts a multipart upload, stages the parts on disk and runs
// them through the drop pipeline. The optional "mode" field forces local or
// remote handling.
func (h *DropHandler) CreateDrop(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid form data"})
		return
	}

	files := form.File["files"]
	if len(files) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no files provided"})
		return
	}

	inbox, err := os.MkdirTemp("", "droplink-inbox-*")
	if err != nil {
		log.Error().Err(err).Msg("failed to create inbox directory")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not stage uploaded files"})
		return
	}
	defer os.RemoveAll(inbox)

	// one subdirectory per part keeps duplicate file names distinct
	paths := make([]string, 0, len(files))
	for i, file := range files {
		path := filepath.Join(inbox, strconv.Itoa(i), filepath.Base(file.Filename))
		if err := c.SaveUploadedFile(file, path); err != nil {
			log.Error().Err(err).Str("filename", file.Filename).Msg("failed to save uploaded file")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not stage uploaded files"})
			return
		}
		paths = append(paths, path)
	}

	result, err := h.drops.Drop(c.Request.Context(), paths, service.DropOptions{Mode: c.PostForm("mode")})
	if err != nil {
		var vErr *domain.ValidationError
		switch {
		case errors.As(err, &vErr):
			c.JSON(http.StatusBadRequest, gin.H{"error": vErr.Message, "path": vErr.Path})
		case errors.Is(err, config.ErrNotConfigured):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			log.Error().Err(err).Msg("drop failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	c.JSON(http.StatusOK, result)
}
