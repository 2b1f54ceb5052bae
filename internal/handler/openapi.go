package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// OpenAPIHandler serves a generated API document and the page that renders it.
type OpenAPIHandler struct {
	document []byte
	page     string
}

func NewOpenAPIHandler(document []byte, page string) *OpenAPIHandler {
	return &OpenAPIHandler{document: document, page: page}
}

// ServeDocument writes the OpenAPI JSON.
func (h *OpenAPIHandler) ServeDocument(c echo.Context) error {
	c.Response().Header().Set("Cache-Control", "no-cache")
	return c.JSONBlob(http.StatusOK, h.document)
}

// ServeUI writes the HTML page. Caching is disabled so document changes show
// up immediately.
func (h *OpenAPIHandler) ServeUI(c echo.Context) error {
	c.Response().Header().Set("Cache-Control", "no-cache")
	return c.HTML(http.StatusOK, h.page)
}
