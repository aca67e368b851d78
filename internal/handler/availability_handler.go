package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sevaproject/booking-api/internal/service"
	"github.com/sevaproject/booking-api/pkg/response"
)

// AvailabilityHandler exposes resolved day availability.
type AvailabilityHandler struct {
	service *service.AvailabilityService
}

// NewAvailabilityHandler constructs handler.
func NewAvailabilityHandler(svc *service.AvailabilityService) *AvailabilityHandler {
	return &AvailabilityHandler{service: svc}
}

// Resolve godoc
// @Summary Resolve provider availability for a date
// @Description Applies the provider's weekly schedule and any date exception
// @Tags Availability
// @Produce json
// @Param id path string true "Provider ID"
// @Param date query string true "Date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /providers/{id}/availability [get]
func (h *AvailabilityHandler) Resolve(c *gin.Context) {
	availability, err := h.service.Resolve(c.Request.Context(), c.Param("id"), c.Query("date"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, availability, nil)
}
