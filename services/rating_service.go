package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/Dosada05/officiation-system/models"
	"github.com/Dosada05/officiation-system/officiating"
	"github.com/Dosada05/officiation-system/repositories"
	"golang.org/x/sync/errgroup"
)

// Elo новых игроков, ещё не имеющих рейтинговой записи.
const baselineElo = 1000

const ratingStripes = 64

// RatingService рассчитывает elo/tier участников по итогам матча.
// Расчёт идемпотентен по matchID: повторный Settle не применяет дельты
// второй раз. Обновления рейтинга игрока сериализуются независимо от
// блокировок матчей: один игрок может почти одновременно закончить два
// матча в разных сетках турнира.
type RatingService interface {
	RatingSettler
	GetRating(ctx context.Context, playerID int) (*models.RatingRecord, error)
}

type ratingService struct {
	db         *sql.DB
	ratingRepo repositories.RatingRepository
	eventRepo  repositories.EventRepository
	logger     *slog.Logger

	stripes [ratingStripes]sync.Mutex

	mu      sync.Mutex
	settled map[int][]models.RatingRecord
}

func NewRatingService(
	db *sql.DB,
	ratingRepo repositories.RatingRepository,
	eventRepo repositories.EventRepository,
	logger *slog.Logger,
) RatingService {
	return &ratingService{
		db:         db,
		ratingRepo: ratingRepo,
		eventRepo:  eventRepo,
		logger:     logger,
		settled:    make(map[int][]models.RatingRecord),
	}
}

func (s *ratingService) GetRating(ctx context.Context, playerID int) (*models.RatingRecord, error) {
	record, err := s.ratingRepo.GetByPlayer(ctx, playerID)
	if err != nil {
		if errors.Is(err, repositories.ErrRatingNotFound) {
			return nil, ErrRatingNotFound
		}
		return nil, fmt.Errorf("failed to load rating for player %d: %w", playerID, err)
	}
	return record, nil
}

func (s *ratingService) Settle(ctx context.Context, summary *models.MatchSummary) ([]models.RatingRecord, error) {
	participants := append(append([]int{}, summary.TeamA...), summary.TeamB...)
	if len(participants) == 0 {
		return nil, fmt.Errorf("match %d has no participants to settle", summary.MatchID)
	}

	unlock := s.lockPlayers(participants)
	defer unlock()

	s.mu.Lock()
	if cached, ok := s.settled[summary.MatchID]; ok {
		s.mu.Unlock()
		return append([]models.RatingRecord{}, cached...), nil
	}
	s.mu.Unlock()

	settled, err := s.ratingRepo.IsSettled(ctx, summary.MatchID)
	if err != nil {
		return nil, fmt.Errorf("failed to check settlement of match %d: %w", summary.MatchID, err)
	}
	if settled {
		// Матч уже рассчитан (например, до перезапуска процесса):
		// возвращаем текущие записи без повторного применения дельт.
		records, err := s.currentRecords(ctx, participants)
		if err != nil {
			return nil, err
		}
		s.cache(summary.MatchID, records)
		return records, nil
	}

	current, err := s.fetchRatings(ctx, participants)
	if err != nil {
		// Недоступный рейтинг любого участника фатален для расчёта:
		// частичное обновление нарушило бы согласованность elo/tier.
		return nil, err
	}

	avgA := averageElo(current, summary.TeamA)
	avgB := averageElo(current, summary.TeamB)

	now := time.Now()
	updated := make([]models.RatingRecord, 0, len(participants))
	for _, playerID := range summary.TeamA {
		updated = append(updated, applyResult(current[playerID], avgB, summary.Winner, models.TeamA, now))
	}
	for _, playerID := range summary.TeamB {
		updated = append(updated, applyResult(current[playerID], avgA, summary.Winner, models.TeamB, now))
	}

	if err := s.persist(ctx, summary.MatchID, updated); err != nil {
		if errors.Is(err, repositories.ErrMatchAlreadySettled) {
			records, recErr := s.currentRecords(ctx, participants)
			if recErr != nil {
				return nil, recErr
			}
			s.cache(summary.MatchID, records)
			return records, nil
		}
		return nil, err
	}

	s.cache(summary.MatchID, updated)
	return append([]models.RatingRecord{}, updated...), nil
}

// lockPlayers берёт страйповые блокировки всех участников в стабильном
// порядке (защита от lost update и от взаимной блокировки при
// одновременном расчёте двух матчей с общими игроками).
func (s *ratingService) lockPlayers(playerIDs []int) func() {
	indexes := make(map[int]bool, len(playerIDs))
	for _, id := range playerIDs {
		indexes[id%ratingStripes] = true
	}
	ordered := make([]int, 0, len(indexes))
	for idx := range indexes {
		ordered = append(ordered, idx)
	}
	sort.Ints(ordered)
	for _, idx := range ordered {
		s.stripes[idx].Lock()
	}
	return func() {
		for i := len(ordered) - 1; i >= 0; i-- {
			s.stripes[ordered[i]].Unlock()
		}
	}
}

func (s *ratingService) fetchRatings(ctx context.Context, playerIDs []int) (map[int]*models.RatingRecord, error) {
	var mu sync.Mutex
	ratings := make(map[int]*models.RatingRecord, len(playerIDs))

	g, gctx := errgroup.WithContext(ctx)
	for _, playerID := range playerIDs {
		g.Go(func() error {
			record, err := s.ratingRepo.GetByPlayer(gctx, playerID)
			if err != nil {
				if errors.Is(err, repositories.ErrRatingNotFound) {
					record = &models.RatingRecord{PlayerID: playerID, Elo: baselineElo}
					record.Normalize()
				} else {
					return fmt.Errorf("failed to load rating for player %d: %w", playerID, err)
				}
			}
			mu.Lock()
			ratings[playerID] = record
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return ratings, nil
}

func (s *ratingService) currentRecords(ctx context.Context, playerIDs []int) ([]models.RatingRecord, error) {
	current, err := s.fetchRatings(ctx, playerIDs)
	if err != nil {
		return nil, err
	}
	records := make([]models.RatingRecord, 0, len(playerIDs))
	for _, id := range playerIDs {
		records = append(records, *current[id])
	}
	return records, nil
}

// persist применяет обновления и помечает матч рассчитанным в одной
// транзакции: либо все рейтинги и пометка, либо ничего.
func (s *ratingService) persist(ctx context.Context, matchID int, records []models.RatingRecord) error {
	var exec repositories.SQLExecutor
	var tx *sql.Tx
	if s.db != nil {
		var err error
		tx, err = s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin settlement transaction: %w", err)
		}
		exec = tx
	}

	commitErr := func() error {
		for i := range records {
			if err := s.ratingRepo.Upsert(ctx, exec, &records[i]); err != nil {
				return err
			}
		}
		return s.ratingRepo.MarkSettled(ctx, exec, matchID)
	}()

	if tx != nil {
		if commitErr != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				s.logger.Error("failed to roll back settlement transaction",
					slog.Int("match_id", matchID), slog.Any("error", rbErr))
			}
			return commitErr
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit settlement for match %d: %w", matchID, err)
		}
	} else if commitErr != nil {
		return commitErr
	}

	for i := range records {
		s.recordRatingEvent(ctx, matchID, &records[i])
	}
	return nil
}

func (s *ratingService) recordRatingEvent(ctx context.Context, matchID int, record *models.RatingRecord) {
	if s.eventRepo == nil {
		return
	}
	raw, err := json.Marshal(record)
	if err != nil {
		return
	}
	event := &models.MatchEvent{
		MatchID:    matchID,
		Type:       models.EventRatingUpdated,
		Payload:    raw,
		RecordedAt: record.UpdatedAt,
	}
	if err := s.eventRepo.Append(ctx, event); err != nil {
		s.logger.Error("failed to append rating event",
			slog.Int("match_id", matchID), slog.Int("player_id", record.PlayerID), slog.Any("error", err))
	}
}

func (s *ratingService) cache(matchID int, records []models.RatingRecord) {
	s.mu.Lock()
	s.settled[matchID] = append([]models.RatingRecord{}, records...)
	s.mu.Unlock()
}

func averageElo(ratings map[int]*models.RatingRecord, playerIDs []int) float64 {
	if len(playerIDs) == 0 {
		return baselineElo
	}
	sum := 0
	for _, id := range playerIDs {
		sum += ratings[id].Elo
	}
	return float64(sum) / float64(len(playerIDs))
}

func applyResult(record *models.RatingRecord, opponentAvg float64, winner models.MatchWinner, side models.TeamSide, now time.Time) models.RatingRecord {
	actual := officiating.ActualScore(winner, side)
	delta := officiating.EloDelta(record.Elo, opponentAvg, actual)

	updated := *record
	updated.Elo = officiating.ApplyDelta(record.Elo, delta)
	updated.Normalize()
	updated.UpdatedAt = now
	return updated
}
