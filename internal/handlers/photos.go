package handlers

import (
	"encoding/base64"
	"errors"
	"net/http"
	"regexp"
	"strconv"

	"github.com/gin-gonic/gin"

	"photobucket/internal/catalog"
	"photobucket/internal/middleware"
	"photobucket/internal/models"
)

var dataURIPrefix = regexp.MustCompile(`^data:image/[a-zA-Z+.-]+;base64,`)

type uploadRequest struct {
	ImageData   string `json:"imageData"`
	Filename    string `json:"filename"`
	ContentType string `json:"contentType"`
}

type photoResponse struct {
	PhotoID         string `json:"photoId"`
	LookupKey       string `json:"lookupKey"`
	Status          string `json:"status"`
	CreatedAt       string `json:"createdAt"`
	Title           string `json:"title,omitempty"`
	Description     string `json:"description,omitempty"`
	ProcessingError string `json:"processingError,omitempty"`
}

func toPhotoResponse(photo models.Photo) photoResponse {
	return photoResponse{
		PhotoID:         photo.PhotoID,
		LookupKey:       photo.SortKey,
		Status:          string(photo.Status),
		CreatedAt:       photo.CreatedAt,
		Title:           photo.Title,
		Description:     photo.Description,
		ProcessingError: photo.ProcessingError,
	}
}

// UploadPhoto accepts a JSON body with base64 image data (a data URI
// prefix is tolerated) and runs the direct upload path.
func (h HandlerSet) UploadPhoto(c *gin.Context) {
	owner := middleware.OwnerID(c)

	var req uploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_body"})
		return
	}
	if req.ImageData == "" || req.Filename == "" || req.ContentType == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "image_data_filename_content_type_required"})
		return
	}

	raw := dataURIPrefix.ReplaceAllString(req.ImageData, "")
	data, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_base64_image_data"})
		return
	}

	result, err := h.catalog.UploadDirect(c.Request.Context(), owner, data, req.Filename, req.ContentType)
	if err != nil {
		h.renderError(c, err)
		return
	}

	resp := toPhotoResponse(result.Photo)
	c.JSON(http.StatusOK, gin.H{
		"photo":        resp,
		"presignedUrl": result.ViewURL,
	})
}

type uploadURLRequest struct {
	Filename    string `json:"filename"`
	ContentType string `json:"contentType"`
}

// CreateUploadURL issues a presigned PUT URL for a client-side upload.
// The client must confirm with the complete endpoint once the PUT
// finishes so enrichment gets enqueued.
func (h HandlerSet) CreateUploadURL(c *gin.Context) {
	owner := middleware.OwnerID(c)

	var req uploadURLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_body"})
		return
	}

	result, err := h.catalog.BeginUpload(c.Request.Context(), owner, req.Filename, req.ContentType)
	if err != nil {
		h.renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"photoId":   result.Photo.PhotoID,
		"lookupKey": result.Photo.SortKey,
		"uploadUrl": result.UploadURL,
		"status":    string(models.PhotoStatusPending),
	})
}

func (h HandlerSet) CompleteUpload(c *gin.Context) {
	owner := middleware.OwnerID(c)

	photo, err := h.catalog.CompleteUpload(c.Request.Context(), owner, c.Param("lookupKey"))
	if err != nil {
		h.renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"photo": toPhotoResponse(photo)})
}

func (h HandlerSet) ListPhotos(c *gin.Context) {
	owner := middleware.OwnerID(c)

	pageSize, _ := strconv.Atoi(c.DefaultQuery("pageSize", "20"))
	pageToken := c.Query("nextToken")

	page, err := h.catalog.ListPhotos(c.Request.Context(), owner, pageSize, pageToken)
	if err != nil {
		h.renderError(c, err)
		return
	}

	photos := make([]photoResponse, 0, len(page.Photos))
	for _, photo := range page.Photos {
		photos = append(photos, toPhotoResponse(photo))
	}

	resp := gin.H{"photos": photos}
	if page.NextPageToken != "" {
		resp["nextToken"] = page.NextPageToken
	}
	c.JSON(http.StatusOK, resp)
}

func (h HandlerSet) GetPhotoURL(c *gin.Context) {
	owner := middleware.OwnerID(c)

	viewURL, err := h.catalog.GetPhotoURL(c.Request.Context(), owner, c.Param("lookupKey"))
	if err != nil {
		h.renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"presignedUrl": viewURL})
}

func (h HandlerSet) GetPhotoStatus(c *gin.Context) {
	owner := middleware.OwnerID(c)

	photo, err := h.catalog.GetByLookupKey(c.Request.Context(), owner, c.Param("lookupKey"))
	if err != nil {
		h.renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, toPhotoResponse(photo))
}

func (h HandlerSet) DeletePhoto(c *gin.Context) {
	owner := middleware.OwnerID(c)

	if _, err := h.catalog.DeletePhoto(c.Request.Context(), owner, c.Param("lookupKey")); err != nil {
		h.renderError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h HandlerSet) renderError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, catalog.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, catalog.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "photo_not_found"})
	default:
		h.log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
	}
}
