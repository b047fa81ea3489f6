package services

import (
	"context"

	"github.com/Dosada05/officiation-system/models"
)

// RefereeService — узкая граница, через которую внешняя судейская власть
// вносит обязывающие решения. Сервис не аутентифицирует судью (это
// обязанность внешнего identity-коллаборатора), но отклоняет любой
// мутирующий вызов без идентификатора судьи.
type RefereeService interface {
	ListOpenConflicts(ctx context.Context, matchID int) ([]*models.ConflictCase, error)
	ResolveConflict(ctx context.Context, caseID string, resolution models.Resolution, refereeID int) (*models.ConflictCase, error)
	PauseMatch(ctx context.Context, matchID, refereeID int) (*models.MatchState, error)
	ResumeMatch(ctx context.Context, matchID, refereeID int) (*models.MatchState, error)
	EndRound(ctx context.Context, matchID, refereeID int) (*models.MatchState, error)
	NextRound(ctx context.Context, matchID, refereeID int) (*models.MatchState, error)
	EndMatch(ctx context.Context, matchID, refereeID int) (*models.MatchSummary, []models.RatingRecord, error)
}

type refereeService struct {
	matches MatchService
}

func NewRefereeService(matches MatchService) RefereeService {
	return &refereeService{matches: matches}
}

func (s *refereeService) ListOpenConflicts(ctx context.Context, matchID int) ([]*models.ConflictCase, error) {
	return s.matches.ListOpenConflicts(ctx, matchID)
}

func (s *refereeService) ResolveConflict(ctx context.Context, caseID string, resolution models.Resolution, refereeID int) (*models.ConflictCase, error) {
	if refereeID <= 0 {
		return nil, ErrUnauthorized
	}
	resolution.RefereeID = refereeID
	return s.matches.ResolveConflict(ctx, caseID, resolution)
}

func (s *refereeService) PauseMatch(ctx context.Context, matchID, refereeID int) (*models.MatchState, error) {
	if refereeID <= 0 {
		return nil, ErrUnauthorized
	}
	return s.matches.Pause(ctx, matchID)
}

func (s *refereeService) ResumeMatch(ctx context.Context, matchID, refereeID int) (*models.MatchState, error) {
	if refereeID <= 0 {
		return nil, ErrUnauthorized
	}
	return s.matches.Resume(ctx, matchID)
}

func (s *refereeService) EndRound(ctx context.Context, matchID, refereeID int) (*models.MatchState, error) {
	if refereeID <= 0 {
		return nil, ErrUnauthorized
	}
	return s.matches.EndRound(ctx, matchID)
}

func (s *refereeService) NextRound(ctx context.Context, matchID, refereeID int) (*models.MatchState, error) {
	if refereeID <= 0 {
		return nil, ErrUnauthorized
	}
	return s.matches.NextRound(ctx, matchID)
}

func (s *refereeService) EndMatch(ctx context.Context, matchID, refereeID int) (*models.MatchSummary, []models.RatingRecord, error) {
	if refereeID <= 0 {
		return nil, nil, ErrUnauthorized
	}
	return s.matches.EndMatch(ctx, matchID)
}
