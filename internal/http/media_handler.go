package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"cityfix-service/internal/http/middleware"
)

const mediaFormField = "file"

func (h *Handler) uploadMedia(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		unauthorized(c)
		return
	}
	ticketID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	header, err := c.FormFile(mediaFormField)
	if err != nil {
		badRequest(c, "multipart field \"file\" is required")
		return
	}
	file, err := header.Open()
	if err != nil {
		badRequest(c, "cannot read uploaded file")
		return
	}
	defer file.Close()

	media, err := h.mediaService.Upload(c.Request.Context(), principal, ticketID, header.Filename, file)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, successResponse(media))
}

func (h *Handler) listMedia(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		unauthorized(c)
		return
	}
	ticketID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	files, err := h.mediaService.List(c.Request.Context(), principal, ticketID)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(files))
}

func (h *Handler) downloadMedia(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		unauthorized(c)
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	media, path, err := h.mediaService.Open(c.Request.Context(), principal, id)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.Header("Content-Type", media.MimeType)
	c.FileAttachment(path, media.Filename)
}
