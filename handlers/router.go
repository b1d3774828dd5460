package handlers

import (
	"net/http"
	"strings"
	"time"

	"gallery-backend/logging"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RouterOptions holds the settings the router needs besides the handler
type RouterOptions struct {
	GinMode        string
	AllowedOrigins []string
	EnablePprof    bool
}

// NewRouter wires middlewares and routes
func NewRouter(h *ImageHandler, logger *zap.Logger, opts RouterOptions) *gin.Engine {
	switch strings.ToLower(opts.GinMode) {
	case gin.DebugMode:
		gin.SetMode(gin.DebugMode)
	case gin.TestMode:
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(logging.RequestLogger(logger))
	r.Use(logging.Recovery(logger))

	corsCfg := cors.Config{
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:  []string{"Origin", "Content-Type", "Content-Length", "If-None-Match"},
		ExposeHeaders: []string{"Content-Length", "ETag"},
		MaxAge:        12 * time.Hour,
	}
	if len(opts.AllowedOrigins) == 0 || (len(opts.AllowedOrigins) == 1 && opts.AllowedOrigins[0] == "*") {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = opts.AllowedOrigins
	}
	r.Use(cors.New(corsCfg))

	r.GET("/health", h.Health)
	r.GET("/", h.ListImages)
	r.GET("/categories/:category", h.ListCategory)
	r.POST("/upload", h.UploadImage)
	r.GET("/uploads/:category/:filename", h.GetImage)

	if opts.EnablePprof {
		pprof.Register(r)
	}

	r.NoRoute(notFound)

	return r
}
