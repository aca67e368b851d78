package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sevaproject/booking-api/internal/service"
	appErrors "github.com/sevaproject/booking-api/pkg/errors"
	"github.com/sevaproject/booking-api/pkg/response"
)

// ScheduleHandler manages the authenticated provider's weekly schedule
// entries and date exceptions.
type ScheduleHandler struct {
	service *service.ScheduleService
}

// NewScheduleHandler constructs handler.
func NewScheduleHandler(svc *service.ScheduleService) *ScheduleHandler {
	return &ScheduleHandler{service: svc}
}

// ListEntries godoc
// @Summary List weekly schedule entries
// @Tags Schedule
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /schedule/entries [get]
func (h *ScheduleHandler) ListEntries(c *gin.Context) {
	claims := claimsFromContext(c)
	entries, err := h.service.ListEntries(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, nil)
}

// CreateEntry godoc
// @Summary Create weekly schedule entry
// @Tags Schedule
// @Accept json
// @Produce json
// @Param payload body service.UpsertScheduleEntryRequest true "Entry payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /schedule/entries [post]
func (h *ScheduleHandler) CreateEntry(c *gin.Context) {
	var req service.UpsertScheduleEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	claims := claimsFromContext(c)
	entry, err := h.service.CreateEntry(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, entry)
}

// UpdateEntry godoc
// @Summary Update weekly schedule entry
// @Tags Schedule
// @Accept json
// @Produce json
// @Param id path string true "Entry ID"
// @Param payload body service.UpsertScheduleEntryRequest true "Entry payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /schedule/entries/{id} [put]
func (h *ScheduleHandler) UpdateEntry(c *gin.Context) {
	var req service.UpsertScheduleEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	claims := claimsFromContext(c)
	entry, err := h.service.UpdateEntry(c.Request.Context(), claims.UserID, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entry, nil)
}

// DeleteEntry godoc
// @Summary Delete weekly schedule entry
// @Tags Schedule
// @Produce json
// @Param id path string true "Entry ID"
// @Success 204
// @Router /schedule/entries/{id} [delete]
func (h *ScheduleHandler) DeleteEntry(c *gin.Context) {
	claims := claimsFromContext(c)
	if err := h.service.DeleteEntry(c.Request.Context(), claims.UserID, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ListExceptions godoc
// @Summary List schedule exceptions
// @Tags Schedule
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /schedule/exceptions [get]
func (h *ScheduleHandler) ListExceptions(c *gin.Context) {
	claims := claimsFromContext(c)
	exceptions, err := h.service.ListExceptions(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, exceptions, nil)
}

// CreateException godoc
// @Summary Create schedule exception
// @Tags Schedule
// @Accept json
// @Produce json
// @Param payload body service.CreateExceptionRequest true "Exception payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /schedule/exceptions [post]
func (h *ScheduleHandler) CreateException(c *gin.Context) {
	var req service.CreateExceptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	claims := claimsFromContext(c)
	exception, err := h.service.CreateException(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, exception)
}

// DeleteException godoc
// @Summary Delete schedule exception
// @Tags Schedule
// @Produce json
// @Param id path string true "Exception ID"
// @Success 204
// @Router /schedule/exceptions/{id} [delete]
func (h *ScheduleHandler) DeleteException(c *gin.Context) {
	claims := claimsFromContext(c)
	if err := h.service.DeleteException(c.Request.Context(), claims.UserID, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
