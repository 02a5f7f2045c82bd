package learning

import (
	"errors"

	"github.com/grainwise/grainwise/internal/domain"
	"github.com/grainwise/grainwise/internal/modules/signals"
	"github.com/rs/zerolog"
)

// Service records decisions and serves thresholds to the signal engine.
// It implements signals.DecisionRecorder and signals.ThresholdProvider.
type Service struct {
	repo *Repository
	log  zerolog.Logger
}

// NewService creates a learning service.
func NewService(repo *Repository, log zerolog.Logger) *Service {
	return &Service{
		repo: repo,
		log:  log.With().Str("service", "learning").Logger(),
	}
}

// RecordDecision persists a decision and recomputes the user's profile.
// The insert is the primary write; the recompute is best-effort and its
// failures are logged and swallowed.
func (s *Service) RecordDecision(userID, businessID string, commodity domain.Commodity, signalType domain.SignalType, pctAboveBE float64, bushels int64, responseHours *float64) error {
	decision := &Decision{
		UserID:        userID,
		BusinessID:    businessID,
		Commodity:     commodity,
		SignalType:    signalType,
		PctAboveBE:    pctAboveBE,
		Bushels:       bushels,
		ResponseHours: responseHours,
	}
	if err := s.repo.InsertDecision(decision); err != nil {
		return err
	}

	if err := s.recompute(userID, businessID); err != nil {
		s.log.Warn().Err(err).Str("user_id", userID).Msg("Profile recompute failed")
	}
	return nil
}

// recompute rebuilds the profile and learned thresholds. Skipped until
// enough history exists to say anything meaningful.
func (s *Service) recompute(userID, businessID string) error {
	decisions, err := s.repo.DecisionsForUser(userID)
	if err != nil {
		return err
	}
	if len(decisions) < minDecisionsForProfile {
		return nil
	}

	totalSignals, err := s.repo.SignalCountForBusiness(businessID)
	if err != nil {
		return err
	}

	profile := BuildProfile(userID, businessID, decisions, totalSignals)
	if err := s.repo.SaveProfile(profile); err != nil {
		return err
	}

	thresholds := BuildThresholds(userID, decisions)
	if err := s.repo.SaveThresholds(userID, thresholds); err != nil {
		return err
	}

	s.log.Debug().
		Str("user_id", userID).
		Int("decisions", len(decisions)).
		Int("risk_score", profile.LearnedRiskScore).
		Int("thresholds", len(thresholds)).
		Msg("Recomputed marketing profile")
	return nil
}

// ThresholdsFor returns the cutoffs the evaluator should use for one
// triple: the user's learned values when backed by enough history
// (>= 3 commodity decisions and >= 5 overall), the defaults otherwise.
// Lookup failures also fall back to defaults; threshold selection must
// never block signal generation.
func (s *Service) ThresholdsFor(businessID string, commodity domain.Commodity, signalType domain.SignalType) signals.Thresholds {
	defaults := signals.DefaultThresholds()

	userID, err := s.repo.OwnerUserID(businessID)
	if err != nil {
		s.log.Warn().Err(err).Str("business_id", businessID).Msg("Owner lookup failed, using default thresholds")
		return defaults
	}
	if userID == "" {
		return defaults
	}

	profile, err := s.repo.GetProfile(userID)
	if err != nil {
		var notFound *domain.NotFoundError
		if !errors.As(err, &notFound) {
			s.log.Warn().Err(err).Str("user_id", userID).Msg("Profile lookup failed, using default thresholds")
		}
		return defaults
	}
	if profile.DecisionCount < minDecisionsForProfile {
		return defaults
	}

	threshold, err := s.repo.GetThreshold(userID, commodity, signalType)
	if err != nil {
		s.log.Warn().Err(err).Str("user_id", userID).Msg("Threshold lookup failed, using defaults")
		return defaults
	}
	if threshold == nil || threshold.DataPoints < minDecisionsForCommodity {
		return defaults
	}

	return signals.Thresholds{
		Buy:       threshold.BuyThreshold,
		StrongBuy: threshold.StrongBuyThreshold,
	}
}

// GetProfile exposes the stored profile for the API.
func (s *Service) GetProfile(userID string) (*Profile, error) {
	return s.repo.GetProfile(userID)
}
