// Package v1 provides HTTP API version 1.
package v1

import (
	"github.com/gin-gonic/gin"
)

// DocumentRouteHandler defines the routes every cash document exposes.
type DocumentRouteHandler interface {
	List(c *gin.Context)
	Create(c *gin.Context)
	Get(c *gin.Context)
	Attach(c *gin.Context)
	PDF(c *gin.Context)
	Email(c *gin.Context)
}

// RegisterDocumentRoutes registers the standard document routes.
//
// Usage:
//
//	handler := handlers.NewReceiptHandler(baseHandler, cfg.Receipts)
//	RegisterDocumentRoutes(protected.Group("/receipts"), handler)
func RegisterDocumentRoutes(group *gin.RouterGroup, handler DocumentRouteHandler) {
	group.GET("", handler.List)
	group.POST("", handler.Create)
	group.GET("/:id", handler.Get)
	group.POST("/:id/attachments", handler.Attach)
	group.GET("/:id/pdf", handler.PDF)
	group.POST("/:id/email", handler.Email)
}
