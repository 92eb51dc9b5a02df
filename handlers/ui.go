package handlers

import (
	_ "embed"
	"net/http"

	"github.com/gin-gonic/gin"
)

//go:embed ui/index.html
var indexHTML []byte

// RegisterUI serves the single-page bug tracker UI at / and /ui.
func RegisterUI(r gin.IRouter) {
	serve := func(c *gin.Context) {
		c.Header("Cache-Control", "no-cache")
		c.Data(http.StatusOK, "text/html; charset=utf-8", indexHTML)
	}
	r.GET("/", serve)
	r.GET("/ui", serve)
}
