package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"cityfix-service/internal/http/middleware"
	"cityfix-service/internal/model"
	"cityfix-service/internal/repository"
	"cityfix-service/internal/service"
)

func (h *Handler) createTicket(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		unauthorized(c)
		return
	}

	var req service.CreateTicketInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	ticket, err := h.ticketService.Create(c.Request.Context(), principal, req)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, successResponse(ticket))
}

func (h *Handler) createAnonymousTicket(c *gin.Context) {
	var req service.CreateTicketInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	ticket, err := h.ticketService.CreateAnonymous(c.Request.Context(), req)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, successResponse(ticket))
}

func (h *Handler) listTickets(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		unauthorized(c)
		return
	}

	filter := repository.TicketListFilter{}

	if status := strings.TrimSpace(c.Query("status")); status != "" {
		ts := model.TicketStatus(strings.ToLower(status))
		if !ts.Valid() {
			badRequest(c, "invalid status")
			return
		}
		filter.Status = &ts
	}

	if category := strings.TrimSpace(c.Query("category")); category != "" {
		filter.Category = &category
	}

	var valid bool
	if filter.MunicipalityID, valid = parseOptionalUUID(c, "municipality_id"); !valid {
		return
	}
	if filter.CitizenID, valid = parseOptionalUUID(c, "citizen_id"); !valid {
		return
	}
	if filter.AssignedOperatorID, valid = parseOptionalUUID(c, "assigned_operator_id"); !valid {
		return
	}

	if c.Query("lat") != "" || c.Query("lng") != "" {
		lat, ok := parseFloatQuery(c, "lat")
		if !ok {
			return
		}
		lng, ok := parseFloatQuery(c, "lng")
		if !ok {
			return
		}
		radius := 1000.0
		if c.Query("radius_m") != "" {
			if radius, ok = parseFloatQuery(c, "radius_m"); !ok {
				return
			}
		}
		filter.Near = &repository.GeoRadius{Latitude: lat, Longitude: lng, RadiusM: radius}
	}

	if filter.Limit, valid = parseIntQuery(c, "limit"); !valid {
		return
	}
	if filter.Offset, valid = parseIntQuery(c, "offset"); !valid {
		return
	}

	tickets, total, err := h.ticketService.List(c.Request.Context(), principal, filter)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": tickets, "total": total})
}

func (h *Handler) getTicket(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		unauthorized(c)
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	details, err := h.ticketService.Get(c.Request.Context(), principal, id)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(details))
}

func (h *Handler) patchTicket(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		unauthorized(c)
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req service.PatchTicketInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	ticket, err := h.ticketService.UpdateStatus(c.Request.Context(), principal, id, req)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(ticket))
}

func (h *Handler) assignTicket(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		unauthorized(c)
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	// An empty body means the calling operator claims the ticket.
	var req struct {
		OperatorID *uuid.UUID `json:"operator_id"`
	}
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
	}

	ticket, err := h.ticketService.Assign(c.Request.Context(), principal, id, req.OperatorID)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(ticket))
}

func (h *Handler) completeTicket(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		unauthorized(c)
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	ticket, err := h.ticketService.Complete(c.Request.Context(), principal, id)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(ticket))
}

func (h *Handler) rejectTicket(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		unauthorized(c)
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req service.RejectTicketInput
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
	}

	ticket, err := h.ticketService.Reject(c.Request.Context(), principal, id, req)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(ticket))
}

func (h *Handler) listComments(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		unauthorized(c)
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	comments, err := h.ticketService.ListComments(c.Request.Context(), principal, id)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(comments))
}

func (h *Handler) addComment(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		unauthorized(c)
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req service.AddCommentInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	comment, err := h.ticketService.AddComment(c.Request.Context(), principal, id, req)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, successResponse(comment))
}

func (h *Handler) addFeedback(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		unauthorized(c)
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req service.AddFeedbackInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	feedback, err := h.ticketService.AddFeedback(c.Request.Context(), principal, id, req)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, successResponse(feedback))
}
