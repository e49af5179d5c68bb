package participant

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// GapFiller fills roster gaps after a participant is deleted. Implemented
// by the roster service; injected here to avoid an import cycle.
type GapFiller interface {
	FillGapAfterDeletion(ctx context.Context, deletedID uuid.UUID) error
}

// Service encapsulates participant business logic.
type Service struct {
	store  *Store
	gaps   GapFiller
	logger *slog.Logger
}

// NewService creates a participant Service. gaps may be nil in contexts
// that never delete (e.g. the worker).
func NewService(store *Store, gaps GapFiller, logger *slog.Logger) *Service {
	return &Service{store: store, gaps: gaps, logger: logger}
}

func (s *Service) Create(ctx context.Context, req CreateRequest) (Row, error) {
	arrival, err := time.Parse("2006-01-02", req.ArrivalDate)
	if err != nil {
		return Row{}, fmt.Errorf("invalid arrival_date: %w", err)
	}
	return s.store.Create(ctx, req.Name, arrival)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (Row, error) {
	return s.store.Get(ctx, id)
}

func (s *Service) List(ctx context.Context) ([]Row, error) {
	return s.store.List(ctx)
}

func (s *Service) Rename(ctx context.Context, id uuid.UUID, req UpdateRequest) error {
	return s.store.UpdateName(ctx, id, req.Name)
}

// Leave closes the participant's open program period. They stay in the
// dataset: their pool history keeps informing fairness, and they can
// rejoin later.
func (s *Service) Leave(ctx context.Context, id uuid.UUID, req LeaveRequest) error {
	end, err := time.Parse("2006-01-02", req.EndDate)
	if err != nil {
		return fmt.Errorf("invalid end_date: %w", err)
	}
	return s.store.ClosePeriod(ctx, id, end, req.Reason)
}

// Rejoin opens a fresh program period for a returning participant.
func (s *Service) Rejoin(ctx context.Context, id uuid.UUID, req RejoinRequest) error {
	start, err := time.Parse("2006-01-02", req.StartDate)
	if err != nil {
		return fmt.Errorf("invalid start_date: %w", err)
	}
	return s.store.OpenPeriod(ctx, id, start)
}

func (s *Service) SetMentees(ctx context.Context, mentorID uuid.UUID, req MentorshipRequest) error {
	return s.store.SetMentees(ctx, mentorID, req.MenteeIDs)
}

// Delete removes the participant and re-runs gap filling over all stored
// rosters so their past slots get reassigned.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	if s.gaps != nil {
		if err := s.gaps.FillGapAfterDeletion(ctx, id); err != nil {
			// The participant is gone; failing the request now would leave
			// the caller unable to retry the deletion itself.
			s.logger.Error("gap filling after participant deletion", "participant_id", id, "error", err)
		}
	}
	return nil
}
