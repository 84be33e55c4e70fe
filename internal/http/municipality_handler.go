package http

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"cityfix-service/internal/http/middleware"
	"cityfix-service/internal/service"
)

func (h *Handler) listMunicipalities(c *gin.Context) {
	municipalities, err := h.municipalityService.List(c.Request.Context())
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(municipalities))
}

func (h *Handler) getMunicipality(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	municipality, err := h.municipalityService.Get(c.Request.Context(), id)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(municipality))
}

func (h *Handler) createMunicipality(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		unauthorized(c)
		return
	}

	var req service.MunicipalityInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	municipality, err := h.municipalityService.Create(c.Request.Context(), principal, req)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, successResponse(municipality))
}

func (h *Handler) updateMunicipality(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		unauthorized(c)
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req service.MunicipalityInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	municipality, err := h.municipalityService.Update(c.Request.Context(), principal, id, req)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(municipality))
}

func (h *Handler) deleteMunicipality(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		unauthorized(c)
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.municipalityService.Delete(c.Request.Context(), principal, id); err != nil {
		h.handleError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *Handler) getBoundary(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	boundary, err := h.municipalityService.Boundary(c.Request.Context(), id)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(boundary))
}

func (h *Handler) setBoundary(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		unauthorized(c)
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req struct {
		Geometry json.RawMessage `json:"geometry" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	boundary, err := h.municipalityService.SetBoundary(c.Request.Context(), principal, id, req.Geometry)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(boundary))
}
