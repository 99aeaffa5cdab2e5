// internal/api/handlers/storage_handler.go
package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/droplink-app/droplink/internal/config"
	"github.com/droplink-app/droplink/internal/service"
	"github.com/droplink-app/droplink/internal/storage"
)

type StorageHandler struct {
	drops *service.DropService
	store *config.Store
}

func NewStorageHandler(drops *service.DropService, store *config.Store) *StorageHandler {
	return &StorageHandler{drops: drops, store: store}
}

// SetConfig saves bucket credentials.
func (h *StorageHandler) SetConfig(c *gin.Context) {
	var cfg config.StorageConfig
	if err := c.ShouldBindJSON(&cfg); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid configuration payload"})
		return
	}
	if err := cfg.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.store.SaveStorageConfig(cfg); err != nil {
		log.Error().Err(err).Msg("failed to save storage config")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not save configuration"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "storage configuration saved"})
}

// GetStatus reports whether storage is configured, never the secret itself.
func (h *StorageHandler) GetStatus(c *gin.Context) {
	status, err := h.store.Status()
	if err != nil {
		log.Error().Err(err).Msg("failed to read storage status")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not read configuration"})
		return
	}
	c.JSON(http.StatusOK, status)
}

// ClearConfig removes saved credentials.
func (h *StorageHandler) ClearConfig(c *gin.Context) {
	if err := h.store.ClearStorageConfig(); err != nil {
		log.Error().Err(err).Msg("failed to clear storage config")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not clear configuration"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "storage configuration cleared"})
}

// ValidateCredentials writes and deletes a probe object against the bucket.
// The result is always a 200 so clients can show the outcome inline.
func (h *StorageHandler) ValidateCredentials(c *gin.Context) {
	if err := h.drops.ValidateStorage(c.Request.Context()); err != nil {
		c.JSON(http.StatusOK, gin.H{"valid": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"valid": true})
}

// GetSettings returns user preferences.
func (h *StorageHandler) GetSettings(c *gin.Context) {
	settings, err := h.store.Settings()
	if err != nil {
		log.Error().Err(err).Msg("failed to read settings")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not read settings"})
		return
	}
	c.JSON(http.StatusOK, settings)
}

// SetDemoMode toggles whether drops stay local by default.
func (h *StorageHandler) SetDemoMode(c *gin.Context) {
	var req struct {
		Enabled *bool `json:"enabled"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Enabled == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "enabled is required"})
		return
	}

	if err := h.store.SaveSettings(config.Settings{DemoMode: *req.Enabled}); err != nil {
		log.Error().Err(err).Msg("failed to save settings")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not save settings"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"demo_mode": *req.Enabled})
}

// GetObject reports metadata for an uploaded object.
func (h *StorageHandler) GetObject(c *gin.Context) {
	key := objectKey(c)
	if key == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "object key is required"})
		return
	}

	info, err := h.drops.HeadObject(c.Request.Context(), key)
	if err != nil {
		if errors.Is(err, config.ErrNotConfigured) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		var respErr *storage.ResponseError
		if errors.As(err, &respErr) && respErr.StatusCode == http.StatusNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "object not found"})
			return
		}
		log.Error().Err(err).Str("key", key).Msg("failed to stat object")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, info)
}

// DeleteObject removes an uploaded object by key.
func (h *StorageHandler) DeleteObject(c *gin.Context) {
	key := objectKey(c)
	if key == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "object key is required"})
		return
	}

	if err := h.drops.DeleteObject(c.Request.Context(), key); err != nil {
		if errors.Is(err, config.ErrNotConfigured) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		log.Error().Err(err).Str("key", key).Msg("failed to delete object")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": key})
}

// objectKey extracts the object key from a wildcard route parameter, which
// gin delivers with a leading slash.
func objectKey(c *gin.Context) string {
	return strings.TrimPrefix(c.Param("key"), "/")
}
