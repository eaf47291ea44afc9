package service

import (
	"context"
	"fmt"
	"time"

	"tutoring-platform/internal/database"
	"tutoring-platform/internal/gateway"
	"tutoring-platform/internal/models"
	"tutoring-platform/internal/repository"
	"tutoring-platform/internal/validator"

	"github.com/google/uuid"
)

// maxAdvanceBooking is the 30-day look-ahead limit of spec.md §4.2 step 2,
// used by Create. The recurrence horizon in recurrence.go is one calendar
// month (AddDate(0, 1, 0)) and does not use this constant.
const maxAdvanceBooking = 30 * 24 * time.Hour

// serializableTx is the isolation every mutating command runs under
// (spec.md §5), following database.DB.BeginTx(ctx, *TxOptions).
var serializableTx = &database.TxOptions{IsolationLevel: "SERIALIZABLE"}

// BookingEngine owns the collaborators spec.md §9 assembles into a single
// concrete instance at startup: the repository, the clock, and the
// payment gateway port. Command structs carry inputs; every public method
// is a synchronous "load -> validate -> mutate -> commit" unit of work.
type BookingEngine struct {
	db       *database.DB
	bookings *repository.BookingRepository
	payments *repository.PaymentRepository
	users    repository.UserRepository
	gateway  gateway.PaymentGateway
	conflict *ConflictDetector
	clock    Clock
	validate *validator.BookingValidator
	sm       stateMachine
}

func NewBookingEngine(
	db *database.DB,
	bookings *repository.BookingRepository,
	payments *repository.PaymentRepository,
	users repository.UserRepository,
	gw gateway.PaymentGateway,
	clock Clock,
) *BookingEngine {
	return &BookingEngine{
		db:       db,
		bookings: bookings,
		payments: payments,
		users:    users,
		gateway:  gw,
		conflict: NewConflictDetector(bookings),
		clock:    clock,
		validate: validator.NewBookingValidator(),
	}
}

// Create implements spec.md §4.2.
func (e *BookingEngine) Create(ctx context.Context, cmd *models.CreateBookingCommand) (uuid.UUID, error) {
	if err := e.validate.ValidateCreate(cmd); err != nil {
		return uuid.Nil, err
	}

	start, err := models.ParseInstant(cmd.StartTime)
	if err != nil {
		return uuid.Nil, err
	}

	now := e.clock.Now()
	if start.Before(now) {
		return uuid.Nil, models.ErrPastBooking
	}
	if start.After(now.Add(maxAdvanceBooking)) {
		return uuid.Nil, models.ErrAdvanceBookingLimit
	}

	toUser, err := e.users.GetByID(ctx, cmd.ToUserID)
	if err != nil {
		if err == repository.ErrNotFound {
			return uuid.Nil, models.ErrUserNotFound
		}
		return uuid.Nil, fmt.Errorf("load booking target user: %w", err)
	}

	isTutor := cmd.CurrentUser.Roles.Has(models.RoleTutor)
	if isTutor && toUser.Roles.Has(models.RoleTutor) {
		return uuid.Nil, models.ErrInvalidBookingCombination
	}

	tutorID, studentID := cmd.ToUserID, cmd.CurrentUser.ID
	if isTutor {
		tutorID, studentID = cmd.CurrentUser.ID, cmd.ToUserID
	}

	tx, err := e.db.BeginTx(ctx, serializableTx)
	if err != nil {
		return uuid.Nil, fmt.Errorf("begin create booking tx: %w", err)
	}
	defer tx.Rollback(ctx)

	candidateEnd := start.Add(models.BookingTypeLesson.Duration())
	between, err := e.bookings.FindBetweenPair(ctx, tx, tutorID, studentID, start, candidateEnd)
	if err != nil {
		return uuid.Nil, fmt.Errorf("load bookings between pair: %w", err)
	}

	for _, b := range between {
		if b.Status.IsActive() && b.Overlaps(start, candidateEnd) {
			return uuid.Nil, models.ErrBookingConflict
		}
	}
	for _, b := range between {
		if b.Type == models.BookingTypeFreeMeeting && b.Status.IsActive() {
			return uuid.Nil, models.ErrOngoingFreeMeeting
		}
	}

	if isTutor {
		hasPrior := false
		for _, b := range between {
			if b.Status == models.StatusCompleted || b.Status == models.StatusScheduled {
				hasPrior = true
				break
			}
		}
		if !hasPrior {
			return uuid.Nil, models.ErrNoPreviousMeeting
		}
	}

	bookingType := models.BookingTypeFreeMeeting
	for _, b := range between {
		if b.Type == models.BookingTypeFreeMeeting && b.Status == models.StatusCompleted {
			bookingType = models.BookingTypeLesson
			break
		}
	}
	if bookingType == models.BookingTypeFreeMeeting && isTutor {
		return uuid.Nil, models.ErrFreeMeetingTutor
	}

	end := start.Add(bookingType.Duration())
	initialStatus := models.StatusAwaitingTutorConfirmation
	if isTutor {
		initialStatus = models.StatusAwaitingStudentConfirmation
	}

	booking := &models.Booking{
		Title:         titleFor(bookingType),
		StartTime:     start,
		EndTime:       end,
		Type:          bookingType,
		Status:        initialStatus,
		HostID:        tutorID,
		ParticipantID: studentID,
	}
	if err := e.bookings.Create(ctx, tx, booking); err != nil {
		return uuid.Nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return uuid.Nil, fmt.Errorf("commit create booking: %w", err)
	}
	return booking.ID, nil
}

func titleFor(t models.BookingType) string {
	if t == models.BookingTypeLesson {
		return "Lesson"
	}
	return "Free meeting"
}

// Reschedule implements spec.md §4.4.
func (e *BookingEngine) Reschedule(ctx context.Context, cmd *models.RescheduleBookingCommand) error {
	if err := e.validate.ValidateReschedule(cmd); err != nil {
		return err
	}

	start, err := models.ParseInstant(cmd.StartTime)
	if err != nil {
		return err
	}

	tx, err := e.db.BeginTx(ctx, serializableTx)
	if err != nil {
		return fmt.Errorf("begin reschedule tx: %w", err)
	}
	defer tx.Rollback(ctx)

	booking, err := e.bookings.GetByIDForUpdate(ctx, tx, cmd.BookingID)
	if err != nil {
		if err == repository.ErrNotFound {
			return models.ErrBookingNotFound
		}
		return fmt.Errorf("load booking for reschedule: %w", err)
	}

	if err := requireParty(booking, cmd.CurrentUser.ID); err != nil {
		return err
	}

	now := e.clock.Now()
	if start.Before(now) {
		return models.ErrPastTime
	}
	if start.Equal(booking.StartTime) {
		return models.ErrSameTime
	}

	actorIsHost := cmd.CurrentUser.ID == booking.HostID
	newStatus, err := e.sm.rescheduleTarget(booking.Status, actorIsHost)
	if err != nil {
		return err
	}

	end := start.Add(booking.Type.Duration())
	conflicts, err := e.bookings.FindActiveByHost(ctx, tx, booking.HostID, booking.ID, start, end)
	if err != nil {
		return fmt.Errorf("check reschedule conflicts: %w", err)
	}
	if len(conflicts) > 0 {
		return models.ErrBookingConflict
	}

	if err := e.bookings.Reschedule(ctx, tx, booking.ID, start, end, newStatus); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit reschedule: %w", err)
	}
	return nil
}

// Confirm implements spec.md §4.5.
func (e *BookingEngine) Confirm(ctx context.Context, cmd *models.ConfirmBookingCommand) error {
	tx, err := e.db.BeginTx(ctx, serializableTx)
	if err != nil {
		return fmt.Errorf("begin confirm tx: %w", err)
	}
	defer tx.Rollback(ctx)

	booking, err := e.bookings.GetByIDForUpdate(ctx, tx, cmd.BookingID)
	if err != nil {
		if err == repository.ErrNotFound {
			return models.ErrBookingNotFound
		}
		return fmt.Errorf("load booking for confirm: %w", err)
	}

	if err := requireParty(booking, cmd.CurrentUser.ID); err != nil {
		return err
	}

	actorIsHost := cmd.CurrentUser.ID == booking.HostID
	target, err := e.sm.confirmTarget(booking, actorIsHost)
	if err != nil {
		return err
	}

	if target == models.StatusAwaitingPayment {
		session, err := e.gateway.CreateOrRefreshCheckoutSession(ctx, booking)
		if err != nil {
			return models.ErrPaymentSessionCreationFailed
		}
		if _, err := e.payments.UpsertCheckoutSession(ctx, tx, booking.ID, session); err != nil {
			return fmt.Errorf("upsert checkout session: %w", err)
		}
	}

	if err := e.bookings.UpdateStatus(ctx, tx, booking.ID, target); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit confirm: %w", err)
	}
	return nil
}

// Cancel implements spec.md §4.3.
func (e *BookingEngine) Cancel(ctx context.Context, cmd *models.CancelBookingCommand) error {
	tx, err := e.db.BeginTx(ctx, serializableTx)
	if err != nil {
		return fmt.Errorf("begin cancel tx: %w", err)
	}
	defer tx.Rollback(ctx)

	booking, err := e.bookings.GetByIDForUpdate(ctx, tx, cmd.BookingID)
	if err != nil {
		if err == repository.ErrNotFound {
			return models.ErrBookingNotFound
		}
		return fmt.Errorf("load booking for cancel: %w", err)
	}

	if err := requireParty(booking, cmd.CurrentUser.ID); err != nil {
		return err
	}
	if !e.sm.canCancel(booking.Status) {
		return models.ErrInvalidStatus
	}

	if booking.Status == models.StatusAwaitingPayment {
		payment, err := e.payments.GetByBookingID(ctx, tx, booking.ID)
		if err != nil || payment.SessionID == nil {
			return models.ErrNoPaymentInfo
		}
		if err := e.gateway.ExpireCheckoutSession(ctx, *payment.SessionID); err != nil {
			return models.ErrPaymentCancellationFailed
		}
	}

	if err := e.bookings.UpdateStatus(ctx, tx, booking.ID, models.StatusCanceled); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit cancel: %w", err)
	}
	return nil
}

// RequestRefund implements spec.md §4.6.
func (e *BookingEngine) RequestRefund(ctx context.Context, cmd *models.RequestRefundCommand) error {
	tx, err := e.db.BeginTx(ctx, serializableTx)
	if err != nil {
		return fmt.Errorf("begin refund tx: %w", err)
	}
	defer tx.Rollback(ctx)

	booking, err := e.bookings.GetByIDForUpdate(ctx, tx, cmd.BookingID)
	if err != nil {
		if err == repository.ErrNotFound {
			return models.ErrBookingNotFound
		}
		return fmt.Errorf("load booking for refund: %w", err)
	}

	if err := requireParty(booking, cmd.CurrentUser.ID); err != nil {
		return err
	}
	if !e.sm.canRequestRefund(booking.Status) {
		return models.ErrInvalidStatus
	}

	payment, err := e.payments.GetByBookingID(ctx, tx, booking.ID)
	if err != nil || payment.PaymentIntentID == nil {
		return models.ErrNoPaymentInfo
	}

	if _, err := e.gateway.CreateRefund(ctx, *payment.PaymentIntentID, booking.ID.String()); err != nil {
		return models.ErrRefundProcessingFailed
	}

	if err := e.bookings.UpdateStatus(ctx, tx, booking.ID, models.StatusAwaitingRefund); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit refund request: %w", err)
	}
	return nil
}

// GetOne returns a booking with its denormalized host/participant/payment
// shape (spec.md §6 `GET bookings/{id}`).
func (e *BookingEngine) GetOne(ctx context.Context, id uuid.UUID, currentUser *models.User) (*models.BookingWithDetails, error) {
	booking, err := e.bookings.GetByID(ctx, id)
	if err != nil {
		if err == repository.ErrNotFound {
			return nil, models.ErrBookingNotFound
		}
		return nil, fmt.Errorf("load booking: %w", err)
	}
	if err := requireParty(booking, currentUser.ID); err != nil {
		return nil, err
	}

	host, err := e.users.GetParticipantView(ctx, booking.HostID)
	if err != nil {
		return nil, fmt.Errorf("load host view: %w", err)
	}
	participant, err := e.users.GetParticipantView(ctx, booking.ParticipantID)
	if err != nil {
		return nil, fmt.Errorf("load participant view: %w", err)
	}
	payment, err := e.payments.GetByBookingIDRead(ctx, booking.ID)
	if err != nil {
		return nil, fmt.Errorf("load payment: %w", err)
	}

	return &models.BookingWithDetails{
		Booking:     *booking,
		Host:        *host,
		Participant: *participant,
		Payment:     payment,
	}, nil
}

// GetMany implements spec.md §6 `GET bookings`.
func (e *BookingEngine) GetMany(ctx context.Context, q *models.ListBookingsQuery) (*models.ListBookingsResult, error) {
	result, err := e.bookings.List(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}

	for _, item := range result.Items {
		host, err := e.users.GetParticipantView(ctx, item.HostID)
		if err != nil {
			return nil, fmt.Errorf("load host view: %w", err)
		}
		participant, err := e.users.GetParticipantView(ctx, item.ParticipantID)
		if err != nil {
			return nil, fmt.Errorf("load participant view: %w", err)
		}
		item.Host = *host
		item.Participant = *participant
	}

	return result, nil
}

// requireParty rejects actors who are neither the booking's host nor its
// participant, the authorization gate every mutating command and GetOne
// share (spec.md §4.3).
func requireParty(b *models.Booking, userID uuid.UUID) error {
	if userID != b.HostID && userID != b.ParticipantID {
		return models.ErrUnauthorized
	}
	return nil
}
