package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	plagerrors "github.com/standardbeagle/plagscan/internal/errors"
)

// writeError maps the typed error taxonomy onto an HTTP status and a
// uniform JSON error body.
func writeError(c *gin.Context, err error) {
	var (
		inputErr    *plagerrors.InputError
		externalErr *plagerrors.ExternalFailure
		configErr   *plagerrors.ConfigError
	)
	switch {
	case errors.As(err, &inputErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": inputErr.Error()})
	case errors.As(err, &configErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": configErr.Error()})
	case errors.As(err, &externalErr):
		c.JSON(http.StatusBadGateway, gin.H{"error": externalErr.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
