package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"photobucket/internal/catalog"
	"photobucket/internal/config"
	"photobucket/internal/middleware"
)

type HandlerSet struct {
	log     zerolog.Logger
	cfg     *config.AppConfig
	catalog *catalog.Service
	queue   *redis.Client
}

func NewHandlerSet(log zerolog.Logger, cfg *config.AppConfig, catalogService *catalog.Service, queueClient *redis.Client) HandlerSet {
	return HandlerSet{
		log:     log,
		cfg:     cfg,
		catalog: catalogService,
		queue:   queueClient,
	}
}

func (h HandlerSet) Register(router *gin.RouterGroup) {
	router.GET("/healthz", h.Health)

	v1 := router.Group("/v1")

	photos := v1.Group("/photos")
	photos.Use(middleware.Auth(h.cfg))
	photos.POST("/upload", h.UploadPhoto)
	photos.POST("/upload-url", h.CreateUploadURL)
	photos.POST("/:lookupKey/complete", h.CompleteUpload)
	photos.GET("", h.ListPhotos)
	photos.GET("/:lookupKey/url", h.GetPhotoURL)
	photos.GET("/:lookupKey/status", h.GetPhotoStatus)
	photos.DELETE("/:lookupKey", h.DeletePhoto)
}
