package roster

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/wisbric/gieplan/pkg/engine"
)

// TopUp extends roster coverage to weeksAhead weeks from today. Weeks that
// are already covered are skipped by the engine, so running this repeatedly
// is safe.
func TopUp(ctx context.Context, svc *Service, weeksAhead int, logger *slog.Logger) error {
	req := GenerateRequest{
		StartDate: time.Now().UTC().Format("2006-01-02"),
		Weeks:     weeksAhead,
	}

	resp, err := svc.Generate(ctx, req)
	if err != nil {
		if errors.Is(err, engine.ErrAllWeeksCovered) {
			logger.Debug("top-up: coverage already complete", "weeks_ahead", weeksAhead)
			return nil
		}
		if errors.Is(err, engine.ErrNoActiveParticipants) {
			logger.Warn("top-up: no active participants")
			return nil
		}
		return err
	}

	logger.Info("top-up: roster generated",
		"roster_id", resp.Roster.ID,
		"weeks", resp.Roster.Weeks,
		"warnings", len(resp.Warnings),
	)
	return nil
}

// RunTopUpLoop runs TopUp once at start and then on every interval tick
// until the context is cancelled.
func RunTopUpLoop(ctx context.Context, svc *Service, weeksAhead int, interval time.Duration, logger *slog.Logger) {
	logger.Info("top-up loop started", "interval", interval, "weeks_ahead", weeksAhead)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	if err := TopUp(ctx, svc, weeksAhead, logger); err != nil {
		logger.Error("initial top-up", "error", err)
	}

	for {
		select {
		case <-ctx.Done():
			logger.Info("top-up loop stopped")
			return
		case <-ticker.C:
			if err := TopUp(ctx, svc, weeksAhead, logger); err != nil {
				logger.Error("top-up", "error", err)
			}
		}
	}
}
