// Package response writes the JSON bodies of the lecture API. Success bodies are
// written as-is; failures use {"detail": "..."}.
package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Error is the failure body.
type Error struct {
	Detail string `json:"detail"`
}

// OK sends a 200 JSON response with data.
func OK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, data)
}

// Status sends a 200 {"status": status} acknowledgement.
func Status(c *gin.Context, status string) {
	c.JSON(http.StatusOK, gin.H{"status": status})
}

// BadRequest sends 400 with detail.
func BadRequest(c *gin.Context, detail string) {
	c.JSON(http.StatusBadRequest, Error{Detail: detail})
}

// NotFound sends 404.
func NotFound(c *gin.Context, detail string) {
	c.JSON(http.StatusNotFound, Error{Detail: detail})
}

// Conflict sends 409.
func Conflict(c *gin.Context, detail string) {
	c.JSON(http.StatusConflict, Error{Detail: detail})
}

// Internal sends 500.
func Internal(c *gin.Context, detail string) {
	c.JSON(http.StatusInternalServerError, Error{Detail: detail})
}

// AbortInternal sends 500 and stops the handler chain.
func AbortInternal(c *gin.Context, detail string) {
	c.AbortWithStatusJSON(http.StatusInternalServerError, Error{Detail: detail})
}
