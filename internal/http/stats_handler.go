package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"cityfix-service/internal/http/middleware"
)

func (h *Handler) dashboard(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		unauthorized(c)
		return
	}
	municipalityID, ok := parseOptionalUUID(c, "municipality_id")
	if !ok {
		return
	}

	stats, err := h.statsService.Dashboard(c.Request.Context(), principal, municipalityID)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(stats))
}

func (h *Handler) consortium(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		unauthorized(c)
		return
	}

	stats, err := h.statsService.Consortium(c.Request.Context(), principal)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(stats))
}

func (h *Handler) overview(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		unauthorized(c)
		return
	}

	overview, err := h.statsService.Overview(c.Request.Context(), principal)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(overview))
}
