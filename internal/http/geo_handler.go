package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (h *Handler) geocode(c *gin.Context) {
	loc, err := h.geoService.Geocode(c.Request.Context(), c.Query("q"))
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(loc))
}

func (h *Handler) reverseGeocode(c *gin.Context) {
	lat, ok := parseFloatQuery(c, "lat")
	if !ok {
		return
	}
	lng, ok := parseFloatQuery(c, "lng")
	if !ok {
		return
	}

	loc, err := h.geoService.Reverse(c.Request.Context(), lat, lng)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(loc))
}
