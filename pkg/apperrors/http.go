package apperrors

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// HandleError writes an error as a JSON response. Unknown errors are masked
// as a generic 500 so internals never leak to clients.
func HandleError(c *gin.Context, err error) {
	appErr := From(err)

	status := appErr.HTTPCode
	if status == 0 {
		status = http.StatusInternalServerError
	}

	c.AbortWithStatusJSON(status, gin.H{"error": appErr})
}
