// Package seed inserts demo data for local development: a small pool of
// participants and one generated roster.
package seed

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wisbric/gieplan/pkg/participant"
	"github.com/wisbric/gieplan/pkg/roster"
)

// demoNames are the participants created by Run, with arrival offsets in
// days relative to one year ago.
var demoNames = []struct {
	name   string
	offset int
}{
	{"Anna", 0},
	{"Bela", 0},
	{"Chris", 30},
	{"Dana", 90},
	{"Emil", 200},
	{"Franzi", 300},
}

// Run creates the demo participants and generates a twelve-week roster.
// Existing data is left untouched; seeding into a non-empty database is an
// error.
func Run(ctx context.Context, pool *pgxpool.Pool, logger *slog.Logger) error {
	var existing int
	if err := pool.QueryRow(ctx, `SELECT count(*) FROM participants`).Scan(&existing); err != nil {
		return fmt.Errorf("checking for existing participants: %w", err)
	}
	if existing > 0 {
		return fmt.Errorf("database already has %d participants, refusing to seed", existing)
	}

	people := participant.NewStore(pool)
	base := time.Now().UTC().AddDate(-1, 0, 0)
	for _, d := range demoNames {
		row, err := people.Create(ctx, d.name, base.AddDate(0, 0, d.offset))
		if err != nil {
			return fmt.Errorf("creating participant %s: %w", d.name, err)
		}
		logger.Info("seeded participant", "name", row.Name, "id", row.ID)
	}

	rosters := roster.NewStore(pool)
	svc := roster.NewService(rosters, people, nil, nil, logger, roster.Defaults{}, time.Minute)

	seed := int64(12345)
	resp, err := svc.Generate(ctx, roster.GenerateRequest{
		StartDate: time.Now().UTC().Format("2006-01-02"),
		Weeks:     12,
		Seed:      &seed,
	})
	if err != nil {
		return fmt.Errorf("generating demo roster: %w", err)
	}

	logger.Info("seeded roster",
		"roster_id", resp.Roster.ID,
		"weeks", resp.Roster.Weeks,
		"gini", resp.Metrics.Gini,
	)
	return nil
}
