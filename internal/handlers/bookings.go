package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"tutoring-platform/internal/middleware"
	"tutoring-platform/internal/models"
	"tutoring-platform/internal/service"
	"tutoring-platform/pkg/response"
)

// BookingHandler exposes the RPC surface of spec.md §6 over the
// BookingEngine and RecurrenceExpander.
type BookingHandler struct {
	engine     *service.BookingEngine
	recurrence *service.RecurrenceExpander
}

func NewBookingHandler(engine *service.BookingEngine, recurrence *service.RecurrenceExpander) *BookingHandler {
	return &BookingHandler{engine: engine, recurrence: recurrence}
}

type createBookingRequest struct {
	StartTime string    `json:"startTime"`
	ToUserID  uuid.UUID `json:"toUserId"`
}

// Create handles POST /bookings.
func (h *BookingHandler) Create(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}

	var req createBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, response.ErrCodeInvalidInput, "Invalid request body")
		return
	}

	id, err := h.engine.Create(r.Context(), &models.CreateBookingCommand{
		StartTime:   req.StartTime,
		CurrentUser: user,
		ToUserID:    req.ToUserID,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	response.Created(w, map[string]interface{}{"id": id})
}

// Get handles GET /bookings/{id}.
func (h *BookingHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, response.ErrCodeInvalidInput, "Invalid booking ID")
		return
	}

	booking, err := h.engine.GetOne(r.Context(), id, user)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	response.OK(w, booking)
}

// List handles GET /bookings.
func (h *BookingHandler) List(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}

	q := &models.ListBookingsQuery{}
	query := r.URL.Query()

	if page, err := strconv.Atoi(query.Get("page")); err == nil {
		q.Page = page
	}
	if limit, err := strconv.Atoi(query.Get("limit")); err == nil {
		q.Limit = limit
	}
	for _, s := range query["status"] {
		q.Status = append(q.Status, models.BookingStatus(s))
	}
	if typeStr := query.Get("type"); typeStr != "" {
		t := models.BookingType(typeStr)
		q.Type = &t
	}
	if startStr := query.Get("startDate"); startStr != "" {
		if t, err := models.ParseInstant(startStr); err == nil {
			q.StartDate = &t
		}
	}
	if endStr := query.Get("endDate"); endStr != "" {
		if t, err := models.ParseInstant(endStr); err == nil {
			q.EndDate = &t
		}
	}
	q.Search = query.Get("search")
	q.SortField = models.SortField(query.Get("sortField"))
	q.SortDirection = models.SortDirection(query.Get("sortDirection"))

	// A caller sees bookings where they are the host or the participant,
	// never the whole table (spec.md §6).
	if query.Get("role") == "host" {
		q.HostID = uuid.NullUUID{UUID: user.ID, Valid: true}
	} else {
		q.ParticipantID = uuid.NullUUID{UUID: user.ID, Valid: true}
	}
	q.ApplyDefaults()

	if err := validateListQuery(q); err != nil {
		writeDomainError(w, err)
		return
	}

	result, err := h.engine.GetMany(r.Context(), q)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	response.OK(w, result)
}

type rescheduleRequest struct {
	StartTime string `json:"startTime"`
}

// Reschedule handles PATCH /bookings/{id}/reschedule.
func (h *BookingHandler) Reschedule(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, response.ErrCodeInvalidInput, "Invalid booking ID")
		return
	}

	var req rescheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, response.ErrCodeInvalidInput, "Invalid request body")
		return
	}

	err = h.engine.Reschedule(r.Context(), &models.RescheduleBookingCommand{
		BookingID:   id,
		StartTime:   req.StartTime,
		CurrentUser: user,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	response.NoContent(w)
}

// Confirm handles PATCH /bookings/{id}/confirm.
func (h *BookingHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, response.ErrCodeInvalidInput, "Invalid booking ID")
		return
	}

	if err := h.engine.Confirm(r.Context(), &models.ConfirmBookingCommand{BookingID: id, CurrentUser: user}); err != nil {
		writeDomainError(w, err)
		return
	}

	response.NoContent(w)
}

// Cancel handles PATCH /bookings/{id}/cancel.
func (h *BookingHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, response.ErrCodeInvalidInput, "Invalid booking ID")
		return
	}

	if err := h.engine.Cancel(r.Context(), &models.CancelBookingCommand{BookingID: id, CurrentUser: user}); err != nil {
		writeDomainError(w, err)
		return
	}

	response.NoContent(w)
}

// RequestRefund handles PATCH /bookings/{id}/cancel/refund.
func (h *BookingHandler) RequestRefund(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, response.ErrCodeInvalidInput, "Invalid booking ID")
		return
	}

	if err := h.engine.RequestRefund(r.Context(), &models.RequestRefundCommand{BookingID: id, CurrentUser: user}); err != nil {
		writeDomainError(w, err)
		return
	}

	response.NoContent(w)
}

type createRecurringTemplateRequest struct {
	Title             string                      `json:"title"`
	Description       *string                     `json:"description"`
	HostID            uuid.UUID                   `json:"hostId"`
	RecurrencePattern models.RecurrencePattern    `json:"recurrencePattern"`
	TimeSlots         []recurringTimeSlotRequest  `json:"timeSlots"`
	Overrides         []models.RecurrenceOverride `json:"overrides"`
}

type recurringTimeSlotRequest struct {
	Weekday   int    `json:"weekday"`
	TimeOfDay string `json:"timeOfDay"`
}

// CreateRecurring handles POST /bookings/recurring.
func (h *BookingHandler) CreateRecurring(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}

	var req createRecurringTemplateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, response.ErrCodeInvalidInput, "Invalid request body")
		return
	}

	slots := make([]models.TimeSlotInput, 0, len(req.TimeSlots))
	for _, s := range req.TimeSlots {
		slots = append(slots, models.TimeSlotInput{Weekday: time.Weekday(s.Weekday), TimeOfDay: s.TimeOfDay})
	}

	result, err := h.recurrence.Create(r.Context(), &models.CreateRecurringTemplateCommand{
		Title:             req.Title,
		Description:       req.Description,
		HostID:            req.HostID,
		CurrentUser:       user,
		RecurrencePattern: req.RecurrencePattern,
		TimeSlots:         slots,
		Overrides:         req.Overrides,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	if len(result.Conflicts) > 0 {
		conflicts := make([]recurrenceConflictDTO, len(result.Conflicts))
		for i, c := range result.Conflicts {
			conflicts[i] = recurrenceConflictDTO{
				ConflictTime:     models.FormatInstant(c.ConflictTime),
				AlternativeTimes: c.AlternativeTimes,
			}
		}
		response.ConflictWithData(w, "RECURRENCE_CONFLICT", "one or more generated time slots conflict with existing bookings", map[string]interface{}{
			"conflicts": conflicts,
		})
		return
	}

	response.Created(w, result)
}

// recurrenceConflictDTO is the wire shape of spec.md §6's
// `{conflicts:[{conflictTime, alternativeTimes}]}` conflict response.
type recurrenceConflictDTO struct {
	ConflictTime     string   `json:"conflictTime"`
	AlternativeTimes []string `json:"alternativeTimes"`
}

func validateListQuery(q *models.ListBookingsQuery) error {
	if q.StartDate != nil && q.EndDate != nil && q.StartDate.After(*q.EndDate) {
		return models.ErrInvalidInput
	}
	return nil
}

// writeDomainError maps a *models.Error to its transport status (spec.md
// §6's error envelope), or logs and masks an infrastructure fault.
func writeDomainError(w http.ResponseWriter, err error) {
	domainErr, ok := models.IsDomainError(err)
	if !ok {
		log.Error().Err(err).Msg("unhandled booking engine error")
		response.InternalError(w, models.ErrInternal.Message)
		return
	}

	switch domainErr {
	case models.ErrBookingNotFound, models.ErrUserNotFound:
		response.NotFound(w, domainErr.Message)
	case models.ErrUnauthorized:
		response.Forbidden(w, domainErr.Message)
	case models.ErrInvalidHost, models.ErrInvalidParticipant:
		response.Forbidden(w, domainErr.Message)
	case models.ErrBookingConflict, models.ErrOngoingFreeMeeting, models.ErrRecurringTemplateConflict,
		models.ErrOverrideConflict, models.ErrInvalidStatus, models.ErrInvalidStatusTutor, models.ErrInvalidStatusStudent,
		models.ErrNoPaymentInfo, models.ErrNoPriorBooking, models.ErrNoPreviousMeeting:
		response.Conflict(w, domainErr.Code, domainErr.Message)
	case models.ErrPaymentSessionCreationFailed, models.ErrPaymentCancellationFailed, models.ErrRefundProcessingFailed:
		response.Error(w, http.StatusBadGateway, domainErr.Code, domainErr.Message)
	default:
		response.BadRequest(w, domainErr.Code, domainErr.Message)
	}
}
