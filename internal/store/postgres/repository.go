package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"mentorship-service/internal/booking"
)

// Repository implements booking.Repository on Postgres. Writes carry the
// caller's expected version in the WHERE clause.
type Repository struct {
	pool *Pool
}

func NewRepository(pool *Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) GetMentor(ctx context.Context, id string) (booking.Mentor, error) {
	var profile []byte
	err := r.pool.QueryRow(ctx, `SELECT profile FROM mentors WHERE id = $1`, id).Scan(&profile)
	if err != nil {
		return booking.Mentor{}, wrap("get mentor", err)
	}
	var m booking.Mentor
	if err := json.Unmarshal(profile, &m); err != nil {
		return booking.Mentor{}, wrap("decode mentor", err)
	}
	return m, nil
}

func (r *Repository) ListMentors(ctx context.Context) ([]booking.Mentor, error) {
	rows, err := r.pool.Query(ctx, `SELECT profile FROM mentors ORDER BY id`)
	if err != nil {
		return nil, wrap("list mentors", err)
	}
	defer rows.Close()

	out := []booking.Mentor{}
	for rows.Next() {
		var profile []byte
		if err := rows.Scan(&profile); err != nil {
			return nil, wrap("list mentors", err)
		}
		var m booking.Mentor
		if err := json.Unmarshal(profile, &m); err != nil {
			return nil, wrap("decode mentor", err)
		}
		out = append(out, m)
	}
	return out, wrap("list mentors", rows.Err())
}

func (r *Repository) SaveMentor(ctx context.Context, m booking.Mentor) error {
	profile, err := json.Marshal(m)
	if err != nil {
		return wrap("encode mentor", err)
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO mentors (id, industry, is_active, profile, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE
		SET industry = EXCLUDED.industry,
			is_active = EXCLUDED.is_active,
			profile = EXCLUDED.profile,
			updated_at = EXCLUDED.updated_at
	`, m.ID, m.Industry, m.IsActive, profile, m.CreatedAt, m.UpdatedAt)
	return wrap("save mentor", err)
}

func (r *Repository) GetMentee(ctx context.Context, id string) (booking.Mentee, error) {
	var profile []byte
	err := r.pool.QueryRow(ctx, `SELECT profile FROM mentees WHERE id = $1`, id).Scan(&profile)
	if err != nil {
		return booking.Mentee{}, wrap("get mentee", err)
	}
	var m booking.Mentee
	if err := json.Unmarshal(profile, &m); err != nil {
		return booking.Mentee{}, wrap("decode mentee", err)
	}
	return m, nil
}

func (r *Repository) SaveMentee(ctx context.Context, m booking.Mentee) error {
	profile, err := json.Marshal(m)
	if err != nil {
		return wrap("encode mentee", err)
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO mentees (id, profile, created_at, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE
		SET profile = EXCLUDED.profile,
			updated_at = EXCLUDED.updated_at
	`, m.ID, profile, m.CreatedAt, m.UpdatedAt)
	return wrap("save mentee", err)
}

const meetingColumns = `id, mentor_id, mentee_id, service_type, scheduled_date, scheduled_time,
	duration_minutes, status, meeting_link, location, mentee_notes, mentor_notes,
	created_at, updated_at, completed_at, cancelled_at, version`

func scanMeeting(row pgx.Row) (booking.Meeting, error) {
	var (
		m      booking.Meeting
		status string
	)
	err := row.Scan(
		&m.ID,
		&m.MentorID,
		&m.MenteeID,
		&m.ServiceType,
		&m.ScheduledDate,
		&m.ScheduledTime,
		&m.DurationMinutes,
		&status,
		&m.MeetingLink,
		&m.Location,
		&m.MenteeNotes,
		&m.MentorNotes,
		&m.CreatedAt,
		&m.UpdatedAt,
		&m.CompletedAt,
		&m.CancelledAt,
		&m.Version,
	)
	if err != nil {
		return booking.Meeting{}, err
	}
	m.ScheduledDate = scheduledDay(m.ScheduledDate)
	m.CreatedAt = m.CreatedAt.UTC()
	m.UpdatedAt = m.UpdatedAt.UTC()
	return booking.RestoreMeeting(m, booking.Status(status))
}

func (r *Repository) GetMeeting(ctx context.Context, id string) (booking.Meeting, error) {
	m, err := scanMeeting(r.pool.QueryRow(ctx, `SELECT `+meetingColumns+` FROM meetings WHERE id = $1`, id))
	if err != nil {
		return booking.Meeting{}, wrap("get meeting", err)
	}
	return m, nil
}

func (r *Repository) MeetingsForMentor(ctx context.Context, mentorID string) ([]booking.Meeting, error) {
	return r.listMeetings(ctx, `SELECT `+meetingColumns+` FROM meetings WHERE mentor_id = $1 ORDER BY created_at, id`, mentorID)
}

func (r *Repository) MeetingsForMentee(ctx context.Context, menteeID string) ([]booking.Meeting, error) {
	return r.listMeetings(ctx, `SELECT `+meetingColumns+` FROM meetings WHERE mentee_id = $1 ORDER BY created_at, id`, menteeID)
}

func (r *Repository) listMeetings(ctx context.Context, q string, arg string) ([]booking.Meeting, error) {
	rows, err := r.pool.Query(ctx, q, arg)
	if err != nil {
		return nil, wrap("list meetings", err)
	}
	defer rows.Close()

	out := []booking.Meeting{}
	for rows.Next() {
		m, err := scanMeeting(rows)
		if err != nil {
			return nil, wrap("list meetings", err)
		}
		out = append(out, m)
	}
	return out, wrap("list meetings", rows.Err())
}

func (r *Repository) SaveMeeting(ctx context.Context, m booking.Meeting, expectedVersion int64) (booking.Meeting, error) {
	var (
		version int64
		err     error
	)
	if expectedVersion == 0 {
		err = r.pool.QueryRow(ctx, `
			INSERT INTO meetings (`+meetingColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, 1)
			ON CONFLICT (id) DO NOTHING
			RETURNING version
		`, m.ID, m.MentorID, m.MenteeID, m.ServiceType, m.ScheduledDate, m.ScheduledTime,
			m.DurationMinutes, m.Status(), m.MeetingLink, m.Location, m.MenteeNotes, m.MentorNotes,
			m.CreatedAt, m.UpdatedAt, m.CompletedAt, m.CancelledAt).Scan(&version)
	} else {
		err = r.pool.QueryRow(ctx, `
			UPDATE meetings
			SET status = $2,
				meeting_link = $3,
				location = $4,
				mentee_notes = $5,
				mentor_notes = $6,
				updated_at = $7,
				completed_at = $8,
				cancelled_at = $9,
				version = version + 1
			WHERE id = $1 AND version = $10
			RETURNING version
		`, m.ID, m.Status(), m.MeetingLink, m.Location, m.MenteeNotes, m.MentorNotes,
			m.UpdatedAt, m.CompletedAt, m.CancelledAt, expectedVersion).Scan(&version)
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return booking.Meeting{}, &booking.PersistenceError{Op: "save meeting " + m.ID, Err: booking.ErrConflict}
	}
	if err != nil {
		return booking.Meeting{}, wrap("save meeting", err)
	}
	m.Version = version
	return m, nil
}

const requestColumns = `id, mentor_id, mentee_id, type, status, details, created_at, updated_at, completed_at, version`

func scanServiceRequest(row pgx.Row) (booking.ServiceRequest, error) {
	var (
		sr      booking.ServiceRequest
		st      string
		status  string
		details []byte
	)
	err := row.Scan(&sr.ID, &sr.MentorID, &sr.MenteeID, &st, &status, &details,
		&sr.CreatedAt, &sr.UpdatedAt, &sr.CompletedAt, &sr.Version)
	if err != nil {
		return booking.ServiceRequest{}, err
	}
	sr.Details, err = booking.DecodeDetails(booking.ServiceType(st), details)
	if err != nil {
		return booking.ServiceRequest{}, err
	}
	sr.CreatedAt = sr.CreatedAt.UTC()
	sr.UpdatedAt = sr.UpdatedAt.UTC()
	return booking.RestoreServiceRequest(sr, booking.RequestStatus(status))
}

func (r *Repository) GetServiceRequest(ctx context.Context, id string) (booking.ServiceRequest, error) {
	sr, err := scanServiceRequest(r.pool.QueryRow(ctx, `SELECT `+requestColumns+` FROM service_requests WHERE id = $1`, id))
	if err != nil {
		return booking.ServiceRequest{}, wrap("get service request", err)
	}
	return sr, nil
}

func (r *Repository) ServiceRequestsForMentor(ctx context.Context, mentorID string) ([]booking.ServiceRequest, error) {
	return r.listServiceRequests(ctx, `SELECT `+requestColumns+` FROM service_requests WHERE mentor_id = $1 ORDER BY created_at, id`, mentorID)
}

func (r *Repository) ServiceRequestsForMentee(ctx context.Context, menteeID string) ([]booking.ServiceRequest, error) {
	return r.listServiceRequests(ctx, `SELECT `+requestColumns+` FROM service_requests WHERE mentee_id = $1 ORDER BY created_at, id`, menteeID)
}

func (r *Repository) listServiceRequests(ctx context.Context, q string, arg string) ([]booking.ServiceRequest, error) {
	rows, err := r.pool.Query(ctx, q, arg)
	if err != nil {
		return nil, wrap("list service requests", err)
	}
	defer rows.Close()

	out := []booking.ServiceRequest{}
	for rows.Next() {
		sr, err := scanServiceRequest(rows)
		if err != nil {
			return nil, wrap("list service requests", err)
		}
		out = append(out, sr)
	}
	return out, wrap("list service requests", rows.Err())
}

func (r *Repository) SaveServiceRequest(ctx context.Context, sr booking.ServiceRequest, expectedVersion int64) (booking.ServiceRequest, error) {
	details, err := json.Marshal(sr.Details)
	if err != nil {
		return booking.ServiceRequest{}, wrap("encode service request", err)
	}

	var version int64
	if expectedVersion == 0 {
		err = r.pool.QueryRow(ctx, `
			INSERT INTO service_requests (`+requestColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, 1)
			ON CONFLICT (id) DO NOTHING
			RETURNING version
		`, sr.ID, sr.MentorID, sr.MenteeID, sr.Type(), sr.Status(), details,
			sr.CreatedAt, sr.UpdatedAt, sr.CompletedAt).Scan(&version)
	} else {
		err = r.pool.QueryRow(ctx, `
			UPDATE service_requests
			SET status = $2,
				details = $3,
				updated_at = $4,
				completed_at = $5,
				version = version + 1
			WHERE id = $1 AND version = $6
			RETURNING version
		`, sr.ID, sr.Status(), details, sr.UpdatedAt, sr.CompletedAt, expectedVersion).Scan(&version)
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return booking.ServiceRequest{}, &booking.PersistenceError{Op: "save service request " + sr.ID, Err: booking.ErrConflict}
	}
	if err != nil {
		return booking.ServiceRequest{}, wrap("save service request", err)
	}
	sr.Version = version
	return sr, nil
}

// wrap maps pgx.ErrNoRows to booking.ErrNotFound and everything else to a
// PersistenceError. A nil err stays nil.
func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return booking.ErrNotFound
	}
	return &booking.PersistenceError{Op: op, Err: err}
}

var _ booking.Repository = (*Repository)(nil)

// scheduledDay normalises a DATE column read back from Postgres.
func scheduledDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
