package engine

import (
	"math"
	"testing"
)

func TestKalmanUpdateBounds(t *testing.T) {
	tr := NewRateTracker(DefaultConfig())
	tr.Initialize("p", 0.5, date("2025-01-06"))

	rng := NewMulberry32(1)
	for week := 0; week < 200; week++ {
		assigned := rng.Float64() < 0.3
		tr.Update("p", assigned, 7, 0.3, date("2025-01-06").AddDate(0, 0, 7*week))

		s := tr.State("p")
		if s.PosteriorVariance > s.PriorVariance {
			t.Fatalf("week %d: posterior variance %v exceeds prior %v", week, s.PosteriorVariance, s.PriorVariance)
		}
		if s.PosteriorMean < 0 || math.IsNaN(s.PosteriorMean) || math.IsInf(s.PosteriorMean, 0) {
			t.Fatalf("week %d: posterior mean not finite non-negative: %v", week, s.PosteriorMean)
		}
		if s.PosteriorVariance < minVariance || math.IsNaN(s.PosteriorVariance) {
			t.Fatalf("week %d: posterior variance invalid: %v", week, s.PosteriorVariance)
		}
	}
}

func TestKalmanConvergesTowardObservations(t *testing.T) {
	cfg := DefaultConfig()
	tr := NewRateTracker(cfg)
	tr.Initialize("p", 0, date("2025-01-06"))

	// Assigned every single week: observed rate is 1/7 per day. The
	// posterior should move well above zero.
	ideal := 1.0 / 7.0
	for week := 1; week <= 50; week++ {
		tr.Update("p", true, 7, ideal, date("2025-01-06").AddDate(0, 0, 7*week))
	}
	got := tr.State("p").PosteriorMean
	if got < 0.05 {
		t.Errorf("posterior mean %v did not converge toward 1/7", got)
	}
}

func TestKalmanDriftCorrection(t *testing.T) {
	cfg := DefaultConfig()
	tr := NewRateTracker(cfg)
	tr.Initialize("p", 1.0, date("2025-01-06"))

	// Never assigned, ideal rate 0.1: drift pulls the estimate down by
	// DriftRate per update once outside the threshold band.
	before := tr.State("p").PosteriorMean
	tr.Update("p", false, 7, 0.1, date("2025-01-13"))
	after := tr.State("p").PosteriorMean
	if after >= before {
		t.Errorf("expected drift toward ideal: before %v after %v", before, after)
	}
}

func TestKalmanJoinerInitialization(t *testing.T) {
	cfg := DefaultConfig()
	tr := NewRateTracker(cfg)
	tr.InitializeJoiner("j", 0.25, date("2025-06-02"))

	s := tr.State("j")
	if s.PosteriorMean != 0.25 {
		t.Errorf("joiner mean = %v, want pool average 0.25", s.PosteriorMean)
	}
	if s.PosteriorVariance != cfg.JoinerVariance {
		t.Errorf("joiner variance = %v, want doubled %v", s.PosteriorVariance, cfg.JoinerVariance)
	}
}

func TestKalmanPredict(t *testing.T) {
	cfg := DefaultConfig()
	tr := NewRateTracker(cfg)
	tr.Initialize("p", 0.3, date("2025-01-06"))

	mean, variance, ok := tr.Predict("p", 14)
	if !ok {
		t.Fatal("expected prediction for known id")
	}
	if mean != 0.3 {
		t.Errorf("predicted mean = %v, want 0.3", mean)
	}
	want := cfg.InitialVariance + cfg.ProcessNoise*2
	if math.Abs(variance-want) > 1e-12 {
		t.Errorf("predicted variance = %v, want %v", variance, want)
	}

	if _, _, ok := tr.Predict("nobody", 7); ok {
		t.Error("expected no prediction for unknown id")
	}
}

func TestConfidenceInterval(t *testing.T) {
	cfg := DefaultConfig()
	tr := NewRateTracker(cfg)
	tr.Initialize("p", 0.1, date("2025-01-06"))

	ci95 := tr.ConfidenceInterval("p", 0.95)
	if ci95 == nil {
		t.Fatal("expected interval for known id")
	}
	sd := math.Sqrt(cfg.InitialVariance)
	if math.Abs(ci95.Upper-(0.1+1.96*sd)) > 1e-12 {
		t.Errorf("upper = %v, want %v", ci95.Upper, 0.1+1.96*sd)
	}
	if ci95.Lower != 0 {
		t.Errorf("lower = %v, want clamp at 0", ci95.Lower)
	}

	ci99 := tr.ConfidenceInterval("p", 0.99)
	if ci99.Upper <= ci95.Upper {
		t.Error("99% interval should be wider than 95%")
	}

	if tr.ConfidenceInterval("nobody", 0.95) != nil {
		t.Error("expected nil for unknown id")
	}
}

func TestKalmanRejectsBadSeed(t *testing.T) {
	tr := NewRateTracker(DefaultConfig())
	tr.Initialize("p", math.NaN(), date("2025-01-06"))
	if got := tr.State("p").PosteriorMean; got != 0 {
		t.Errorf("NaN seed should clamp to 0, got %v", got)
	}
	tr.Initialize("q", -3, date("2025-01-06"))
	if got := tr.State("q").PosteriorMean; got != 0 {
		t.Errorf("negative seed should clamp to 0, got %v", got)
	}
}
