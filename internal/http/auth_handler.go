package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"cityfix-service/internal/http/middleware"
	"cityfix-service/internal/service"
)

func (h *Handler) register(c *gin.Context) {
	var req service.RegisterInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	user, err := h.userService.Register(c.Request.Context(), req)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, successResponse(user))
}

func (h *Handler) login(c *gin.Context) {
	var req service.LoginInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	result, err := h.userService.Login(c.Request.Context(), req)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(result))
}

func (h *Handler) me(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		unauthorized(c)
		return
	}

	user, err := h.userService.Me(c.Request.Context(), principal)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(user))
}

func (h *Handler) listOperators(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		unauthorized(c)
		return
	}
	municipalityID, ok := parseOptionalUUID(c, "municipality_id")
	if !ok {
		return
	}

	operators, err := h.userService.ListOperators(c.Request.Context(), principal, municipalityID)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(operators))
}

func (h *Handler) createStaff(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		unauthorized(c)
		return
	}

	var req service.CreateStaffInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	user, err := h.userService.CreateStaff(c.Request.Context(), principal, req)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, successResponse(user))
}
