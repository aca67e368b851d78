package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/sevaproject/booking-api/internal/models"
	"github.com/sevaproject/booking-api/internal/service"
	appErrors "github.com/sevaproject/booking-api/pkg/errors"
	"github.com/sevaproject/booking-api/pkg/response"
)

// BookingHandler manages booking lifecycle endpoints.
type BookingHandler struct {
	bookings *service.BookingService
	view     *service.BookingViewService
	ratings  *service.RatingService
}

// NewBookingHandler constructs handler.
func NewBookingHandler(bookings *service.BookingService, view *service.BookingViewService, ratings *service.RatingService) *BookingHandler {
	return &BookingHandler{bookings: bookings, view: view, ratings: ratings}
}

func bookingFilterFromQuery(c *gin.Context) models.BookingFilter {
	var filter models.BookingFilter
	filter.Search = c.Query("search")
	filter.ServiceName = c.Query("service")
	filter.Counterpart = c.Query("counterpart")
	filter.ContactName = c.Query("contact")
	filter.From = c.Query("from")
	filter.To = c.Query("to")
	filter.State = models.BookingState(strings.ToUpper(c.Query("state")))
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if limit, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = limit
	}
	filter.SortBy = c.Query("sort")
	filter.SortOrder = c.Query("order")
	return filter
}

// List godoc
// @Summary List bookings for the current principal
// @Tags Bookings
// @Produce json
// @Param search query string false "Free text across names"
// @Param service query string false "Filter by service name"
// @Param counterpart query string false "Filter by the other party's name"
// @Param contact query string false "Filter by contact name"
// @Param from query string false "Date range start (YYYY-MM-DD)"
// @Param to query string false "Date range end (YYYY-MM-DD)"
// @Param state query string false "Filter by state"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /bookings [get]
func (h *BookingHandler) List(c *gin.Context) {
	user := currentUser(c)
	bookings, pagination, err := h.view.Load(c.Request.Context(), user, bookingFilterFromQuery(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, bookings, pagination)
}

// Get godoc
// @Summary Get a booking
// @Tags Bookings
// @Produce json
// @Param id path string true "Booking ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /bookings/{id} [get]
func (h *BookingHandler) Get(c *gin.Context) {
	user := currentUser(c)
	booking, err := h.bookings.Get(c.Request.Context(), user, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, booking, nil)
}

// Create godoc
// @Summary Create a booking request
// @Tags Bookings
// @Accept json
// @Produce json
// @Param payload body service.CreateBookingRequest true "Booking payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /bookings [post]
func (h *BookingHandler) Create(c *gin.Context) {
	var req service.CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	user := currentUser(c)
	booking, err := h.bookings.Create(c.Request.Context(), user, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, booking)
}

// Transition godoc
// @Summary Apply a booking state transition
// @Description Applies the transition optimistically and returns the refreshed list with a notice
// @Tags Bookings
// @Accept json
// @Produce json
// @Param id path string true "Booking ID"
// @Param payload body service.TransitionRequest true "Transition payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /bookings/{id}/transition [post]
func (h *BookingHandler) Transition(c *gin.Context) {
	var req service.TransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	user := currentUser(c)
	view, err := h.view.PerformOptimistic(c.Request.Context(), user, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}

// Rate godoc
// @Summary Submit a rating for a completed booking
// @Tags Bookings
// @Accept json
// @Produce json
// @Param id path string true "Booking ID"
// @Param payload body models.Rating true "Rating payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /bookings/{id}/rating [post]
func (h *BookingHandler) Rate(c *gin.Context) {
	var rating models.Rating
	if err := c.ShouldBindJSON(&rating); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	user := currentUser(c)
	booking, err := h.ratings.Submit(c.Request.Context(), user, c.Param("id"), rating)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, booking, nil)
}
