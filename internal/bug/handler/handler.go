package handler

import (
	"bytes"
	"errors"
	"net/http"

	"github.com/bugtracker/bug-service/internal/bug"
	"github.com/bugtracker/bug-service/internal/bug/service"
	"github.com/bugtracker/bug-service/pkg/logger"
	"github.com/bugtracker/bug-service/pkg/middleware"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"go.uber.org/zap"
)

const (
	msgNotFound    = "Bug not found"
	msgDeleted     = "Bug deleted successfully"
	msgServerError = "An error occurred on the server"
	msgInvalidBody = "Invalid request body"
)

// RegisterBugRoutes mounts the bug CRUD endpoints under r (normally the /api
// group). When exposeErrors is set, 500 responses include the underlying error
// text; it should only be enabled in development.
func RegisterBugRoutes(r gin.IRouter, svc service.Service, exposeErrors bool) {
	h := &bugHandler{svc: svc, exposeErrors: exposeErrors}
	g := r.Group("/bugs")
	g.GET("", h.list)
	g.POST("", h.create)
	g.GET("/:id", h.get)
	g.PUT("/:id", h.update)
	g.DELETE("/:id", h.delete)
}

type bugHandler struct {
	svc          service.Service
	exposeErrors bool
}

func (h *bugHandler) list(c *gin.Context) {
	list, err := h.svc.List(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *bugHandler) get(c *gin.Context) {
	b, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

func (h *bugHandler) create(c *gin.Context) {
	in, ok := bindInput(c)
	if !ok {
		return
	}
	b, err := h.svc.Create(c.Request.Context(), in)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, b)
}

func (h *bugHandler) update(c *gin.Context) {
	in, ok := bindInput(c)
	if !ok {
		return
	}
	b, err := h.svc.Update(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

func (h *bugHandler) delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": msgDeleted})
}

// bindInput decodes the JSON body. An empty body is treated as an empty
// object so the caller gets the usual required-field errors.
func bindInput(c *gin.Context) (bug.Input, bool) {
	var in bug.Input
	raw, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": []string{msgInvalidBody}})
		return in, false
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return in, true
	}
	if err := binding.JSON.BindBody(raw, &in); err != nil {
		logger.Debugf("bugs: rejecting body: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"errors": []string{msgInvalidBody}})
		return in, false
	}
	return in, true
}

func (h *bugHandler) fail(c *gin.Context, err error) {
	var ve *service.ValidationError
	switch {
	case errors.As(err, &ve):
		c.JSON(http.StatusBadRequest, gin.H{"errors": ve.Errors})
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"message": msgNotFound})
	default:
		_ = c.Error(err)
		logger.With(
			zap.String("method", c.Request.Method),
			zap.String("route", c.FullPath()),
			zap.String("request_id", middleware.GetRequestID(c)),
			zap.Error(err),
		).Error("bug request failed")
		body := gin.H{"message": msgServerError}
		if h.exposeErrors {
			body["error"] = err.Error()
		}
		c.JSON(http.StatusInternalServerError, body)
	}
}
