package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Dosada05/officiation-system/models"
	"github.com/lib/pq"
)

var (
	ErrRatingNotFound       = errors.New("rating record not found")
	ErrMatchAlreadySettled  = errors.New("match already settled")
	ErrRatingPlayerConflict = errors.New("rating player conflict")
)

// RatingRepository хранит долгоживущие рейтинги игроков и реестр уже
// рассчитанных матчей (идемпотентность settle).
type RatingRepository interface {
	GetByPlayer(ctx context.Context, playerID int) (*models.RatingRecord, error)
	Upsert(ctx context.Context, exec SQLExecutor, record *models.RatingRecord) error
	IsSettled(ctx context.Context, matchID int) (bool, error)
	// MarkSettled атомарно помечает матч рассчитанным; повторная пометка
	// возвращает ErrMatchAlreadySettled.
	MarkSettled(ctx context.Context, exec SQLExecutor, matchID int) error
}

type postgresRatingRepository struct {
	db *sql.DB
}

func NewPostgresRatingRepository(db *sql.DB) RatingRepository {
	return &postgresRatingRepository{db: db}
}

func (r *postgresRatingRepository) GetByPlayer(ctx context.Context, playerID int) (*models.RatingRecord, error) {
	query := `
		SELECT player_id, elo, tier, tier_level, updated_at
		FROM rating_records
		WHERE player_id = $1`

	record := &models.RatingRecord{}
	err := r.db.QueryRowContext(ctx, query, playerID).Scan(
		&record.PlayerID,
		&record.Elo,
		&record.Tier,
		&record.TierLevel,
		&record.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRatingNotFound
		}
		return nil, fmt.Errorf("failed to scan rating for player %d: %w", playerID, err)
	}
	return record, nil
}

func (r *postgresRatingRepository) Upsert(ctx context.Context, exec SQLExecutor, record *models.RatingRecord) error {
	query := `
		INSERT INTO rating_records (player_id, elo, tier, tier_level, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (player_id) DO UPDATE
		SET elo = EXCLUDED.elo,
		    tier = EXCLUDED.tier,
		    tier_level = EXCLUDED.tier_level,
		    updated_at = EXCLUDED.updated_at`

	_, err := exec.ExecContext(ctx, query,
		record.PlayerID,
		record.Elo,
		record.Tier,
		record.TierLevel,
		record.UpdatedAt,
	)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23503" { // foreign_key_violation
			return ErrRatingPlayerConflict
		}
		return fmt.Errorf("failed to upsert rating for player %d: %w", record.PlayerID, err)
	}
	return nil
}

func (r *postgresRatingRepository) IsSettled(ctx context.Context, matchID int) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM settled_matches WHERE match_id = $1)`

	var settled bool
	if err := r.db.QueryRowContext(ctx, query, matchID).Scan(&settled); err != nil {
		return false, fmt.Errorf("failed to check settlement of match %d: %w", matchID, err)
	}
	return settled, nil
}

func (r *postgresRatingRepository) MarkSettled(ctx context.Context, exec SQLExecutor, matchID int) error {
	query := `INSERT INTO settled_matches (match_id, settled_at) VALUES ($1, NOW())`

	_, err := exec.ExecContext(ctx, query, matchID)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" { // unique_violation
			return ErrMatchAlreadySettled
		}
		return fmt.Errorf("failed to mark match %d settled: %w", matchID, err)
	}
	return nil
}
