package repository

// SQL snippet constants so a column addition only touches this file.

const (
	// BookingSelectFields lists the bookings table columns.
	BookingSelectFields = `
		id, title, description, start_time, end_time, type, status,
		host_id, participant_id, service_id, recurring_template_id,
		created_at, updated_at
	`

	// PaymentSelectFields lists the payments table columns.
	PaymentSelectFields = `
		id, booking_id, session_id, session_url, payment_intent_id,
		charge_id, metadata, created_at, updated_at
	`

	// UserSelectFields lists the users table columns the engine reads.
	UserSelectFields = `
		id, name, roles, created_at, updated_at
	`

	// RecurringTemplateSelectFields lists the recurring_templates columns.
	RecurringTemplateSelectFields = `
		id, host_id, title, description, recurrence_pattern,
		duration_minutes, status, created_at, updated_at
	`

	// RecurringTimeSlotSelectFields lists the recurring_time_slots columns.
	RecurringTimeSlotSelectFields = `
		id, template_id, weekday, time_of_day
	`
)
