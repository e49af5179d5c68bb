package roster

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/wisbric/gieplan/internal/telemetry"
	"github.com/wisbric/gieplan/pkg/engine"
	"github.com/wisbric/gieplan/pkg/participant"
)

// Notifier posts roster updates to a chat channel. Implemented by the
// slack package; a disabled notifier is a no-op.
type Notifier interface {
	PostRoster(ctx context.Context, roster Response, warnings []string) error
}

// Defaults carries the configured fallback generation options.
type Defaults struct {
	TeamSize        int
	SubstituteCount int
}

// Service owns the fairness engine instance and bridges it to the stores.
// The engine is single-threaded by design, so every engine call happens
// under the service mutex.
type Service struct {
	store    *Store
	people   *participant.Store
	rdb      *redis.Client
	notifier Notifier
	logger   *slog.Logger
	defaults Defaults
	cacheTTL time.Duration

	mu     sync.Mutex
	engine *engine.Engine
}

// NewService creates a roster Service around a fresh engine.
func NewService(store *Store, people *participant.Store, rdb *redis.Client,
	notifier Notifier, logger *slog.Logger, defaults Defaults, cacheTTL time.Duration) *Service {

	if defaults.TeamSize <= 0 {
		defaults.TeamSize = 2
	}
	if defaults.SubstituteCount < 0 {
		defaults.SubstituteCount = 2
	}
	return &Service{
		store:    store,
		people:   people,
		rdb:      rdb,
		notifier: notifier,
		logger:   logger,
		defaults: defaults,
		cacheTTL: cacheTTL,
		engine:   engine.NewDefault(),
	}
}

const fairnessCachePrefix = "gieplan:fairness:"

// Generate runs the engine over the stored participants and rosters,
// persists the result, and notifies the configured channel.
func (s *Service) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	people, err := s.people.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading participants: %w", err)
	}
	existing, err := s.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading rosters: %w", err)
	}

	seed := time.Now().UnixNano()
	if req.Seed != nil {
		seed = *req.Seed
	}
	teamSize := req.TeamSize
	if teamSize <= 0 {
		teamSize = s.defaults.TeamSize
	}
	subCount := s.defaults.SubstituteCount
	if req.SubstituteCount != nil {
		subCount = *req.SubstituteCount
	}
	enforce := true
	if req.EnforceNoConsecutive != nil {
		enforce = *req.EnforceNoConsecutive
	}
	mentor := true
	if req.RequireMentor != nil {
		mentor = *req.RequireMentor
	}

	opts := engine.Options{
		StartDate:            req.StartDate,
		Weeks:                req.Weeks,
		Participants:         participant.ToEngineParticipants(people),
		ExistingRosters:      ToEngineRosters(existing),
		EnforceNoConsecutive: enforce,
		RequireMentor:        mentor,
		TeamSize:             teamSize,
		SubstituteCount:      subCount,
		Seed:                 uint32(seed),
		Now:                  time.Now().UTC().Format("2006-01-02"),
	}

	start := time.Now()
	s.mu.Lock()
	result, err := s.engine.Generate(opts)
	s.mu.Unlock()
	telemetry.GenerationDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, err
	}

	row, err := s.store.Create(ctx, uuid.New(), seed, result.Roster)
	if err != nil {
		return nil, fmt.Errorf("persisting roster: %w", err)
	}

	telemetry.RostersGeneratedTotal.Inc()
	telemetry.FairnessGini.Set(result.Metrics.Gini)
	telemetry.FairnessCV.Set(result.Metrics.CV)
	for range result.Warnings {
		telemetry.GenerationWarningsTotal.WithLabelValues("generate").Inc()
	}
	s.invalidateFairnessCache(ctx)

	resp := &GenerateResponse{
		Roster:   row.ToResponse(),
		Warnings: result.Warnings,
		Metrics:  metricsToResponse(result.Metrics),
	}
	if resp.Warnings == nil {
		resp.Warnings = []string{}
	}

	if s.notifier != nil {
		if err := s.notifier.PostRoster(ctx, resp.Roster, resp.Warnings); err != nil {
			s.logger.Error("posting roster notification", "error", err)
		}
	}

	return resp, nil
}

// List returns all stored rosters.
func (s *Service) List(ctx context.Context) ([]Row, error) {
	return s.store.List(ctx)
}

// Get returns one roster.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (Row, error) {
	return s.store.Get(ctx, id)
}

// Delete removes a roster. Fairness accounting self-corrects: the next
// engine run recomputes counts and first-eligible dates from the
// surviving rosters.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidateFairnessCache(ctx)
	return nil
}

// ReplaceInWeek substitutes one participant for another in a single week.
func (s *Service) ReplaceInWeek(ctx context.Context, rosterID uuid.UUID, req ReplaceRequest) (Row, error) {
	row, err := s.store.Get(ctx, rosterID)
	if err != nil {
		return Row{}, err
	}
	weekStart, err := time.Parse("2006-01-02", req.WeekStart)
	if err != nil {
		return Row{}, fmt.Errorf("invalid week_start: %w", err)
	}

	edited, err := engine.ReplaceInWeek([]engine.Roster{row.ToEngine()}, weekStart, req.OldID, req.NewID)
	if err != nil {
		return Row{}, err
	}
	if err := s.store.ReplaceAssignments(ctx, rosterID, edited[0].Assignments); err != nil {
		return Row{}, err
	}
	s.invalidateFairnessCache(ctx)
	return s.store.Get(ctx, rosterID)
}

// SwapGlobally exchanges two participants across every stored roster.
func (s *Service) SwapGlobally(ctx context.Context, req SwapRequest) error {
	rows, err := s.store.List(ctx)
	if err != nil {
		return err
	}

	edited := engine.SwapGlobally(ToEngineRosters(rows), req.IDA, req.IDB)
	for i := range rows {
		if err := s.store.ReplaceAssignments(ctx, rows[i].ID, edited[i].Assignments); err != nil {
			return err
		}
	}
	s.invalidateFairnessCache(ctx)
	return nil
}

// FillGapAfterDeletion reassigns every slot the deleted participant held.
// Implements participant.GapFiller.
func (s *Service) FillGapAfterDeletion(ctx context.Context, deletedID uuid.UUID) error {
	rows, err := s.store.List(ctx)
	if err != nil {
		return err
	}
	people, err := s.people.List(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	edited := s.engine.FillGap(ToEngineRosters(rows), deletedID.String(), participant.ToEngineParticipants(people))
	s.mu.Unlock()

	for i := range rows {
		if err := s.store.ReplaceAssignments(ctx, rows[i].ID, edited[i].Assignments); err != nil {
			return err
		}
	}
	s.invalidateFairnessCache(ctx)
	return nil
}

// AnnotateWeek updates comment/emergency annotations on one week.
func (s *Service) AnnotateWeek(ctx context.Context, rosterID uuid.UUID, weekStart string, req AnnotateWeekRequest) error {
	ws, err := time.Parse("2006-01-02", weekStart)
	if err != nil {
		return fmt.Errorf("invalid week start: %w", err)
	}
	return s.store.AnnotateWeek(ctx, rosterID, ws, req)
}

// FairnessReport computes (or serves from cache) the fairness metrics of
// the pool as of evalDate.
func (s *Service) FairnessReport(ctx context.Context, evalDate time.Time) (MetricsResponse, error) {
	key := fairnessCachePrefix + evalDate.Format("2006-01-02")
	if s.rdb != nil {
		if cached, err := s.rdb.Get(ctx, key).Bytes(); err == nil {
			var resp MetricsResponse
			if err := json.Unmarshal(cached, &resp); err == nil {
				return resp, nil
			}
		} else if !errors.Is(err, redis.Nil) {
			s.logger.Warn("fairness cache read failed", "error", err)
		}
	}

	people, err := s.people.List(ctx)
	if err != nil {
		return MetricsResponse{}, fmt.Errorf("loading participants: %w", err)
	}
	rows, err := s.store.List(ctx)
	if err != nil {
		return MetricsResponse{}, fmt.Errorf("loading rosters: %w", err)
	}

	s.mu.Lock()
	metrics := s.engine.FairnessReport(
		participant.ToEngineParticipants(people), ToEngineRosters(rows), evalDate)
	s.mu.Unlock()

	resp := metricsToResponse(metrics)
	if s.rdb != nil {
		if payload, err := json.Marshal(resp); err == nil {
			if err := s.rdb.Set(ctx, key, payload, s.cacheTTL).Err(); err != nil {
				s.logger.Warn("fairness cache write failed", "error", err)
			}
		}
	}
	return resp, nil
}

// ConfidenceInterval returns the tracked rate interval for a participant,
// or nil when the engine has never tracked them.
func (s *Service) ConfidenceInterval(id string, level float64) *IntervalResponse {
	s.mu.Lock()
	ci := s.engine.ConfidenceInterval(id, level)
	s.mu.Unlock()
	if ci == nil {
		return nil
	}
	return &IntervalResponse{Lower: ci.Lower, Upper: ci.Upper, Mean: ci.Mean}
}

// HistoricalCount implements participant.HistoricalCounter.
func (s *Service) HistoricalCount(ctx context.Context, id uuid.UUID) int {
	n, err := s.store.CountAssignments(ctx, id.String())
	if err != nil {
		s.logger.Warn("counting assignments", "participant_id", id, "error", err)
		return 0
	}
	return n
}

// invalidateFairnessCache drops all cached fairness reports.
func (s *Service) invalidateFairnessCache(ctx context.Context) {
	if s.rdb == nil {
		return
	}
	iter := s.rdb.Scan(ctx, 0, fairnessCachePrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		if err := s.rdb.Del(ctx, iter.Val()).Err(); err != nil {
			s.logger.Warn("fairness cache invalidation failed", "key", iter.Val(), "error", err)
			return
		}
	}
	if err := iter.Err(); err != nil {
		s.logger.Warn("fairness cache scan failed", "error", err)
	}
}
