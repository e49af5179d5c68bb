package roster

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wisbric/gieplan/pkg/engine"
)

// ErrNotFound is returned when a roster or week does not exist.
var ErrNotFound = errors.New("roster not found")

// Store provides database operations for rosters and week assignments.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a roster Store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

const weekColumns = `id, week_start, main, substitutes, priority_scores, has_mentor, comment, emergency, emergency_reason`

// Create persists a generated roster and its assignments in one transaction.
func (s *Store) Create(ctx context.Context, id uuid.UUID, seed int64, generated engine.Roster) (Row, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return Row{}, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var row Row
	row.Seed = seed
	err = tx.QueryRow(ctx,
		`INSERT INTO rosters (id, start_date, weeks, seed, created_at)
		 VALUES ($1, $2, $3, $4, now())
		 RETURNING id, start_date, weeks, created_at`,
		id, generated.StartDate, generated.Weeks, seed,
	).Scan(&row.ID, &row.StartDate, &row.Weeks, &row.CreatedAt)
	if err != nil {
		return Row{}, fmt.Errorf("inserting roster: %w", err)
	}

	for _, w := range generated.Assignments {
		var wr WeekRow
		err = tx.QueryRow(ctx,
			`INSERT INTO week_assignments (id, roster_id, week_start, main, substitutes, priority_scores, has_mentor)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)
			 RETURNING `+weekColumns,
			uuid.New(), id, w.WeekStart, w.Main, w.Substitutes, w.PriorityScores, w.HasMentor,
		).Scan(&wr.ID, &wr.WeekStart, &wr.Main, &wr.Substitutes, &wr.PriorityScores,
			&wr.HasMentor, &wr.Comment, &wr.Emergency, &wr.EmergencyReason)
		if err != nil {
			return Row{}, fmt.Errorf("inserting week %s: %w", w.WeekStart.Format("2006-01-02"), err)
		}
		row.Assignments = append(row.Assignments, wr)
	}

	if err := tx.Commit(ctx); err != nil {
		return Row{}, fmt.Errorf("committing: %w", err)
	}
	return row, nil
}

// Get loads one roster with its assignments.
func (s *Store) Get(ctx context.Context, id uuid.UUID) (Row, error) {
	var row Row
	err := s.pool.QueryRow(ctx,
		`SELECT id, start_date, weeks, seed, created_at FROM rosters WHERE id = $1`, id,
	).Scan(&row.ID, &row.StartDate, &row.Weeks, &row.Seed, &row.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Row{}, ErrNotFound
	}
	if err != nil {
		return Row{}, fmt.Errorf("querying roster: %w", err)
	}

	if err := s.loadAssignments(ctx, []*Row{&row}); err != nil {
		return Row{}, err
	}
	return row, nil
}

// List loads all rosters with assignments, oldest first.
func (s *Store) List(ctx context.Context) ([]Row, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, start_date, weeks, seed, created_at FROM rosters ORDER BY start_date, id`)
	if err != nil {
		return nil, fmt.Errorf("querying rosters: %w", err)
	}
	defer rows.Close()

	var items []Row
	for rows.Next() {
		var r Row
		if err := rows.Scan(&r.ID, &r.StartDate, &r.Weeks, &r.Seed, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning roster row: %w", err)
		}
		items = append(items, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating rosters: %w", err)
	}

	refs := make([]*Row, len(items))
	for i := range items {
		refs[i] = &items[i]
	}
	if err := s.loadAssignments(ctx, refs); err != nil {
		return nil, err
	}
	return items, nil
}

// Delete removes a roster and its assignments.
func (s *Store) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM rosters WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting roster: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ReplaceAssignments rewrites the member lists of every week of a roster.
// Used after engine-side edits (replace, swap, gap fill).
func (s *Store) ReplaceAssignments(ctx context.Context, rosterID uuid.UUID, weeks []engine.WeekAssignment) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, w := range weeks {
		tag, err := tx.Exec(ctx,
			`UPDATE week_assignments
			 SET main = $3, substitutes = $4, priority_scores = $5, updated_at = now()
			 WHERE roster_id = $1 AND week_start = $2`,
			rosterID, w.WeekStart, w.Main, w.Substitutes, w.PriorityScores)
		if err != nil {
			return fmt.Errorf("updating week %s: %w", w.WeekStart.Format("2006-01-02"), err)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("week %s: %w", w.WeekStart.Format("2006-01-02"), ErrNotFound)
		}
	}

	return tx.Commit(ctx)
}

// AnnotateWeek updates a week's comment and emergency flags.
func (s *Store) AnnotateWeek(ctx context.Context, rosterID uuid.UUID, weekStart time.Time, req AnnotateWeekRequest) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE week_assignments
		 SET comment = COALESCE($3, comment),
		     emergency = COALESCE($4, emergency),
		     emergency_reason = COALESCE($5, emergency_reason),
		     updated_at = now()
		 WHERE roster_id = $1 AND week_start = $2`,
		rosterID, weekStart, req.Comment, req.Emergency, req.EmergencyReason)
	if err != nil {
		return fmt.Errorf("annotating week: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// CountAssignments returns how many times a participant appears in main
// across all stored rosters.
func (s *Store) CountAssignments(ctx context.Context, participantID string) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx,
		`SELECT count(*) FROM week_assignments WHERE $1 = ANY(main)`, participantID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting assignments: %w", err)
	}
	return n, nil
}

// loadAssignments attaches week rows to the given rosters.
func (s *Store) loadAssignments(ctx context.Context, items []*Row) error {
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
		`SELECT roster_id, `+weekColumns+`
		 FROM week_assignments
		 WHERE roster_id = ANY($1)
		 ORDER BY week_start`, ids)
	if err != nil {
		return fmt.Errorf("querying week assignments: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var rosterID uuid.UUID
		var w WeekRow
		if err := rows.Scan(&rosterID, &w.ID, &w.WeekStart, &w.Main, &w.Substitutes,
			&w.PriorityScores, &w.HasMentor, &w.Comment, &w.Emergency, &w.EmergencyReason); err != nil {
			return fmt.Errorf("scanning week assignment: %w", err)
		}
		if r, ok := byID[rosterID]; ok {
			r.Assignments = append(r.Assignments, w)
		}
	}
	return rows.Err()
}
