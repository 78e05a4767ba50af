package scheduling

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DB is the subset of pgxpool.Pool the store needs. Tests substitute a
// pgxmock pool.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type PgStore struct {
	db DB
}

func NewPgStore(pool *pgxpool.Pool) *PgStore {
	return &PgStore{db: pool}
}

func NewPgStoreWithDB(db DB) *PgStore {
	return &PgStore{db: db}
}

// Helpers

func scanDonor(row pgx.Row) (*Donor, error) {
	var d Donor
	err := row.Scan(
		&d.ID,
		&d.Name,
		&d.Email,
		&d.BirthDate,
		&d.CreatedAt,
		&d.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, NewNotFound("donor not found")
		}
		return nil, NewStorage("load donor", err)
	}
	return &d, nil
}

func scanBranch(row pgx.Row) (*Branch, error) {
	var b Branch
	err := row.Scan(
		&b.ID,
		&b.Name,
		&b.City,
		&b.State,
		&b.Active,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, NewNotFound("branch not found")
		}
		return nil, NewStorage("load branch", err)
	}
	return &b, nil
}

func scanCampaign(row pgx.Row) (*Campaign, error) {
	var c Campaign
	err := row.Scan(
		&c.ID,
		&c.BranchID,
		&c.Name,
		&c.TargetLiters,
		&c.CollectedLiters,
		&c.Active,
		&c.StartDate,
		&c.EndDate,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, NewNotFound("campaign not found")
		}
		return nil, NewStorage("load campaign", err)
	}
	return &c, nil
}

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	err := row.Scan(
		&a.ID,
		&a.DonorID,
		&a.BranchID,
		&a.CampaignID,
		&a.ScheduledAt,
		&a.DonationType,
		&a.Status,
		&a.Notes,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, NewNotFound("appointment not found")
		}
		return nil, NewStorage("load appointment", err)
	}
	return &a, nil
}

func scanDonation(row pgx.Row) (*DonationRecord, error) {
	var r DonationRecord
	err := row.Scan(
		&r.ID,
		&r.DonorID,
		&r.BranchID,
		&r.AppointmentID,
		&r.VolumeML,
		&r.DonationType,
		&r.DonationDate,
		&r.NextEligibleDate,
		&r.Notes,
		&r.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, NewNotFound("donation record not found")
		}
		return nil, NewStorage("load donation record", err)
	}
	return &r, nil
}

const appointmentColumns = `id, donor_id, branch_id, campaign_id, scheduled_at, donation_type, status, notes, created_at, updated_at`

const donationColumns = `id, donor_id, branch_id, appointment_id, volume_ml, donation_type, donation_date, next_eligible_date, notes, created_at`

// Interface methods

func (s *PgStore) GetDonorByID(ctx context.Context, id uuid.UUID) (*Donor, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, name, email, birth_date, created_at, updated_at
		FROM donors
		WHERE id = $1
	`, id)
	return scanDonor(row)
}

func (s *PgStore) GetBranchByID(ctx context.Context, id uuid.UUID) (*Branch, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, name, city, state, active, created_at, updated_at
		FROM branches
		WHERE id = $1
	`, id)
	return scanBranch(row)
}

func (s *PgStore) GetCampaignByID(ctx context.Context, id uuid.UUID) (*Campaign, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, branch_id, name, target_liters, collected_liters, active, start_date, end_date, created_at, updated_at
		FROM campaigns
		WHERE id = $1
	`, id)
	return scanCampaign(row)
}

func (s *PgStore) GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := s.db.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1
	`, id)
	return scanAppointment(row)
}

func (s *PgStore) CreateAppointment(ctx context.Context, p NewAppointmentParams) (*Appointment, error) {
	id := uuid.New()

	row := s.db.QueryRow(ctx, `
		INSERT INTO appointments (id, donor_id, branch_id, campaign_id, scheduled_at, donation_type, status, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, 'pending', $7, now(), now())
		RETURNING `+appointmentColumns+`
	`, id, p.DonorID, p.BranchID, p.CampaignID, p.ScheduledAt.UTC(), p.DonationType, p.Notes)

	return scanAppointment(row)
}

// UpdateAppointmentStatus is the single mutation point of the state
// machine. The WHERE clause makes the check-then-write atomic; a caller
// that lost a concurrent race sees zero rows and gets ErrInvalidState.
func (s *PgStore) UpdateAppointmentStatus(ctx context.Context, id uuid.UUID, from []Status, to Status) (*Appointment, error) {
	fromStr := make([]string, len(from))
	for i, st := range from {
		fromStr[i] = string(st)
	}

	row := s.db.QueryRow(ctx, `
		UPDATE appointments
		SET status = $2,
		    updated_at = now()
		WHERE id = $1
		  AND status = ANY($3)
		RETURNING `+appointmentColumns+`
	`, id, to, fromStr)

	appt, err := scanAppointment(row)
	if err == nil {
		return appt, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	// Zero rows: either the appointment is gone or it is not in a `from`
	// state. Re-read once to tell the two apart.
	current, getErr := s.GetAppointmentByID(ctx, id)
	if getErr != nil {
		return nil, getErr
	}
	return nil, NewInvalidState(fmt.Sprintf("appointment cannot move to %s from %s", to, current.Status))
}

func (s *PgStore) ListAppointmentsByDonor(ctx context.Context, donorID uuid.UUID, f AppointmentFilter) ([]Appointment, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE donor_id = $1
		  AND ($2::text IS NULL OR status = $2)
		  AND ($3::timestamptz IS NULL OR scheduled_at >= $3)
		ORDER BY scheduled_at DESC
	`, donorID, f.Status, f.FromDate)
	if err != nil {
		return nil, NewStorage("list appointments by donor", err)
	}
	return collectAppointments(rows)
}

func (s *PgStore) ListAppointmentsByBranch(ctx context.Context, branchID uuid.UUID, f AppointmentFilter) ([]Appointment, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE branch_id = $1
		  AND ($2::text IS NULL OR status = $2)
		  AND ($3::timestamptz IS NULL OR scheduled_at >= $3)
		ORDER BY scheduled_at
	`, branchID, f.Status, f.FromDate)
	if err != nil {
		return nil, NewStorage("list appointments by branch", err)
	}
	return collectAppointments(rows)
}

func (s *PgStore) FindPendingOnDay(ctx context.Context, donorID, branchID uuid.UUID, day time.Time) ([]Appointment, error) {
	dayStart := time.Date(day.UTC().Year(), day.UTC().Month(), day.UTC().Day(), 0, 0, 0, 0, time.UTC)
	dayEnd := dayStart.AddDate(0, 0, 1)

	rows, err := s.db.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE donor_id = $1
		  AND branch_id = $2
		  AND status = 'pending'
		  AND scheduled_at >= $3
		  AND scheduled_at < $4
	`, donorID, branchID, dayStart, dayEnd)
	if err != nil {
		return nil, NewStorage("find pending appointments on day", err)
	}
	return collectAppointments(rows)
}

func (s *PgStore) FindOverdue(ctx context.Context, cutoff time.Time) ([]Appointment, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE status IN ('pending', 'confirmed')
		  AND scheduled_at < $1
	`, cutoff)
	if err != nil {
		return nil, NewStorage("find overdue appointments", err)
	}
	return collectAppointments(rows)
}

func collectAppointments(rows pgx.Rows) ([]Appointment, error) {
	defer rows.Close()

	var result []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, NewStorage("iterate appointments", err)
	}
	return result, nil
}

func (s *PgStore) GetDonationByAppointment(ctx context.Context, appointmentID uuid.UUID) (*DonationRecord, error) {
	row := s.db.QueryRow(ctx, `
		SELECT `+donationColumns+`
		FROM donation_records
		WHERE appointment_id = $1
	`, appointmentID)
	return scanDonation(row)
}

// InsertDonation relies on the unique index on appointment_id: the insert
// and the "already recorded" check are one statement, so two concurrent
// resolves cannot both insert.
func (s *PgStore) InsertDonation(ctx context.Context, p NewDonationParams) (*DonationRecord, error) {
	id := uuid.New()

	row := s.db.QueryRow(ctx, `
		INSERT INTO donation_records (id, donor_id, branch_id, appointment_id, volume_ml, donation_type, donation_date, next_eligible_date, notes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now())
		ON CONFLICT (appointment_id) DO NOTHING
		RETURNING `+donationColumns+`
	`, id, p.DonorID, p.BranchID, p.AppointmentID, p.VolumeML, p.DonationType, p.DonationDate, p.NextEligibleDate, p.Notes)

	rec, err := scanDonation(row)
	if err == nil {
		return rec, nil
	}
	if errors.Is(err, ErrNotFound) {
		return nil, NewConflict("donation already recorded for this appointment")
	}
	return nil, err
}

func (s *PgStore) ListDonationsByDonor(ctx context.Context, donorID uuid.UUID) ([]DonationRecord, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+donationColumns+`
		FROM donation_records
		WHERE donor_id = $1
		ORDER BY donation_date DESC
	`, donorID)
	if err != nil {
		return nil, NewStorage("list donations by donor", err)
	}
	defer rows.Close()

	var result []DonationRecord
	for rows.Next() {
		r, err := scanDonation(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, NewStorage("iterate donation records", err)
	}
	return result, nil
}

func (s *PgStore) LastFulfilledDonation(ctx context.Context, donorID uuid.UUID) (*DonationRecord, error) {
	row := s.db.QueryRow(ctx, `
		SELECT `+donationColumns+`
		FROM donation_records
		WHERE donor_id = $1
		ORDER BY donation_date DESC, created_at DESC
		LIMIT 1
	`, donorID)
	return scanDonation(row)
}

func (s *PgStore) AddCampaignVolume(ctx context.Context, campaignID uuid.UUID, liters float64) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE campaigns
		SET collected_liters = collected_liters + $2,
		    updated_at = now()
		WHERE id = $1
	`, campaignID, liters)
	if err != nil {
		return NewStorage("increment campaign volume", err)
	}
	if tag.RowsAffected() == 0 {
		return NewNotFound("campaign not found")
	}
	return nil
}

func (s *PgStore) InsertEvent(ctx context.Context, ev EventLog) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO event_logs (event_type, appointment_id, payload, created_at)
		VALUES ($1, $2, $3, COALESCE($4, now()))
	`, ev.EventType, ev.AppointmentID, ev.Payload, nullableTime(ev.CreatedAt))
	if err != nil {
		return NewStorage("insert event log", err)
	}
	return nil
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
