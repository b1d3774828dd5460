package handlers

import (
	"fmt"
	"net/http"

	"gallery-backend/models"

	"github.com/gin-gonic/gin"
)

// messages returned for server-side failures; the wrapped error stays in the log
var internalMessages = map[string]string{
	"DIRECTORY_CREATE_ERROR": "Failed to create the category directory",
	"WRITE_ERROR":            "Failed to save the uploaded file",
	"DUPLICATE_FILE":         "Failed to record the uploaded file",
	"INTERNAL_ERROR":         "Internal server error",
}

// respondError writes the error envelope for err
func respondError(c *gin.Context, err error) {
	kind := models.KindOf(err)

	message := err.Error()
	if kind.Status >= http.StatusInternalServerError {
		message = internalMessages[kind.Code]
		if message == "" {
			message = internalMessages["INTERNAL_ERROR"]
		}
		_ = c.Error(err)
	}

	c.JSON(kind.Status, gin.H{
		"success": false,
		"error": gin.H{
			"code":    kind.Code,
			"message": message,
		},
	})
}

// respondData writes a success envelope around data
func respondData(c *gin.Context, data any) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    data,
	})
}

// notFound answers unknown routes with the error envelope
func notFound(c *gin.Context) {
	respondError(c, fmt.Errorf("%w: %s %s", models.ErrNotFound, c.Request.Method, c.Request.URL.Path))
}
