package api

import (
	"net/http"
	"runtime"

	"github.com/gin-gonic/gin"

	"github.com/rmoreas/warcycle/internal/version"
)

// Version returns build and VCS metadata injected at build time.
func Version(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"name":    "warcycle",
		"version": version.Version,
		"commit":  version.Commit,
		"date":    version.Date,
		"dirty":   version.Dirty,
		"go":      runtime.Version(),
	})
}
