package participant

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when a participant does not exist.
var ErrNotFound = errors.New("participant not found")

// ErrNoOpenPeriod is returned when closing a period that is not open.
var ErrNoOpenPeriod = errors.New("participant has no open program period")

// Store provides database operations for participants.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a participant Store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Create inserts a participant with one open program period starting at the
// arrival date.
func (s *Store) Create(ctx context.Context, name string, arrival time.Time) (Row, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return Row{}, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	id := uuid.New()
	var row Row
	err = tx.QueryRow(ctx,
		`INSERT INTO participants (id, name, arrival_date)
		 VALUES ($1, $2, $3)
		 RETURNING id, name, arrival_date, created_at, updated_at`,
		id, name, arrival,
	).Scan(&row.ID, &row.Name, &row.ArrivalDate, &row.CreatedAt, &row.UpdatedAt)
	if err != nil {
		return Row{}, fmt.Errorf("inserting participant: %w", err)
	}

	var per Period
	err = tx.QueryRow(ctx,
		`INSERT INTO program_periods (id, participant_id, start_date)
		 VALUES ($1, $2, $3)
		 RETURNING id, start_date, end_date, departure_reason`,
		uuid.New(), id, arrival,
	).Scan(&per.ID, &per.Start, &per.End, &per.DepartureReason)
	if err != nil {
		return Row{}, fmt.Errorf("inserting initial program period: %w", err)
	}
	row.Periods = []Period{per}

	if err := tx.Commit(ctx); err != nil {
		return Row{}, fmt.Errorf("committing: %w", err)
	}
	return row, nil
}

// Get loads one participant with periods and mentees.
func (s *Store) Get(ctx context.Context, id uuid.UUID) (Row, error) {
	var row Row
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, arrival_date, created_at, updated_at
		 FROM participants WHERE id = $1`, id,
	).Scan(&row.ID, &row.Name, &row.ArrivalDate, &row.CreatedAt, &row.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Row{}, ErrNotFound
	}
	if err != nil {
		return Row{}, fmt.Errorf("querying participant: %w", err)
	}

	if err := s.loadPeriods(ctx, []*Row{&row}); err != nil {
		return Row{}, err
	}
	if err := s.loadMentees(ctx, []*Row{&row}); err != nil {
		return Row{}, err
	}
	return row, nil
}

// List loads all participants with periods and mentees, ordered by name.
func (s *Store) List(ctx context.Context) ([]Row, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, arrival_date, created_at, updated_at
		 FROM participants ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("querying participants: %w", err)
	}
	defer rows.Close()

	var items []Row
	for rows.Next() {
		var r Row
		if err := rows.Scan(&r.ID, &r.Name, &r.ArrivalDate, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning participant row: %w", err)
		}
		items = append(items, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating participants: %w", err)
	}

	refs := make([]*Row, len(items))
	for i := range items {
		refs[i] = &items[i]
	}
	if err := s.loadPeriods(ctx, refs); err != nil {
		return nil, err
	}
	if err := s.loadMentees(ctx, refs); err != nil {
		return nil, err
	}
	return items, nil
}

// UpdateName renames a participant.
func (s *Store) UpdateName(ctx context.Context, id uuid.UUID, name string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE participants SET name = $2, updated_at = now() WHERE id = $1`, id, name)
	if err != nil {
		return fmt.Errorf("updating participant: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a participant together with periods and mentorships.
func (s *Store) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM participants WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting participant: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ClosePeriod ends the open program period at endDate.
func (s *Store) ClosePeriod(ctx context.Context, id uuid.UUID, endDate time.Time, reason *string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE program_periods
		 SET end_date = $2, departure_reason = $3
		 WHERE participant_id = $1 AND end_date IS NULL`,
		id, endDate, reason)
	if err != nil {
		return fmt.Errorf("closing program period: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNoOpenPeriod
	}
	return nil
}

// OpenPeriod appends a new open program period starting at startDate.
// Fails if one is already open.
func (s *Store) OpenPeriod(ctx context.Context, id uuid.UUID, startDate time.Time) error {
	var open int
	err := s.pool.QueryRow(ctx,
		`SELECT count(*) FROM program_periods WHERE participant_id = $1 AND end_date IS NULL`,
		id).Scan(&open)
	if err != nil {
		return fmt.Errorf("checking open periods: %w", err)
	}
	if open > 0 {
		return fmt.Errorf("participant already has an open program period")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO program_periods (id, participant_id, start_date) VALUES ($1, $2, $3)`,
		uuid.New(), id, startDate)
	if err != nil {
		return fmt.Errorf("inserting program period: %w", err)
	}
	return nil
}

// SetMentees replaces the mentee set for a mentor.
func (s *Store) SetMentees(ctx context.Context, mentorID uuid.UUID, menteeIDs []uuid.UUID) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM mentorships WHERE mentor_id = $1`, mentorID); err != nil {
		return fmt.Errorf("clearing mentorships: %w", err)
	}
	for _, mentee := range menteeIDs {
		if _, err := tx.Exec(ctx,
			`INSERT INTO mentorships (mentor_id, mentee_id) VALUES ($1, $2)`,
			mentorID, mentee); err != nil {
			return fmt.Errorf("inserting mentorship: %w", err)
		}
	}
	return tx.Commit(ctx)
}

// loadPeriods attaches program periods to the given rows.
func (s *Store) loadPeriods(ctx context.Context, items []*Row) error {
	if len(items) == 0 {
		return nil
	}
	byID := make(map[uuid.UUID]*Row, len(items))
	ids := make([]uuid.UUID, 0, len(items))
	for _, r := range items {
		byID[r.ID] = r
		ids = append(ids, r.ID)
	}

	rows, err := s.pool.Query(ctx,
		`SELECT id, participant_id, start_date, end_date, departure_reason
		 FROM program_periods
		 WHERE participant_id = ANY($1)
		 ORDER BY start_date`, ids)
	if err != nil {
		return fmt.Errorf("querying program periods: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var per Period
		var pid uuid.UUID
		if err := rows.Scan(&per.ID, &pid, &per.Start, &per.End, &per.DepartureReason); err != nil {
			return fmt.Errorf("scanning program period: %w", err)
		}
		if r, ok := byID[pid]; ok {
			r.Periods = append(r.Periods, per)
		}
	}
	return rows.Err()
}

// loadMentees attaches mentee ids to the given rows.
func (s *Store) loadMentees(ctx context.Context, items []*Row) error {
	if len(items) == 0 {
		return nil
	}
	byID := make(map[uuid.UUID]*Row, len(items))
	ids := make([]uuid.UUID, 0, len(items))
	for _, r := range items {
		byID[r.ID] = r
		ids = append(ids, r.ID)
	}

	rows, err := s.pool.Query(ctx,
		`SELECT mentor_id, mentee_id FROM mentorships WHERE mentor_id = ANY($1)`, ids)
	if err != nil {
		return fmt.Errorf("querying mentorships: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var mentor, mentee uuid.UUID
		if err := rows.Scan(&mentor, &mentee); err != nil {
			return fmt.Errorf("scanning mentorship: %w", err)
		}
		if r, ok := byID[mentor]; ok {
			r.MenteeIDs = append(r.MenteeIDs, mentee)
		}
	}
	return rows.Err()
}
