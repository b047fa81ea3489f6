package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Dosada05/officiation-system/models"
	"github.com/lib/pq"
)

var ErrEventSeqConflict = errors.New("match event sequence conflict")

// EventRepository — append-only журнал событий матчей. Журнал партицирован
// по match_id; seq монотонно растёт внутри партиции, что гарантирует
// детерминированное восстановление состояния при повторном проигрывании.
type EventRepository interface {
	Append(ctx context.Context, event *models.MatchEvent) error
	ListByMatch(ctx context.Context, matchID int) ([]*models.MatchEvent, error)
}

type postgresEventRepository struct {
	db *sql.DB
}

func NewPostgresEventRepository(db *sql.DB) EventRepository {
	return &postgresEventRepository{db: db}
}

const appendRetries = 3

// Append присваивает событию следующий seq своей партиции и сохраняет его.
// Записи не обновляются и не удаляются. Конкурентные вставки в одну
// партицию разрешаются повтором при нарушении уникальности (match_id, seq).
func (r *postgresEventRepository) Append(ctx context.Context, event *models.MatchEvent) error {
	query := `
		INSERT INTO match_events (match_id, seq, type, payload, recorded_at)
		SELECT $1, COALESCE(MAX(seq), 0) + 1, $2, $3, $4
		FROM match_events
		WHERE match_id = $1
		RETURNING seq`

	var lastErr error
	for attempt := 0; attempt < appendRetries; attempt++ {
		err := r.db.QueryRowContext(ctx, query,
			event.MatchID,
			event.Type,
			[]byte(event.Payload),
			event.RecordedAt,
		).Scan(&event.Seq)
		if err == nil {
			return nil
		}
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" { // unique_violation
			lastErr = fmt.Errorf("%w: match %d", ErrEventSeqConflict, event.MatchID)
			continue
		}
		return fmt.Errorf("failed to append event for match %d: %w", event.MatchID, err)
	}
	return lastErr
}

func (r *postgresEventRepository) ListByMatch(ctx context.Context, matchID int) ([]*models.MatchEvent, error) {
	query := `
		SELECT match_id, seq, type, payload, recorded_at
		FROM match_events
		WHERE match_id = $1
		ORDER BY seq ASC`

	rows, err := r.db.QueryContext(ctx, query, matchID)
	if err != nil {
		return nil, fmt.Errorf("failed to list events for match %d: %w", matchID, err)
	}
	defer rows.Close()

	var events []*models.MatchEvent
	for rows.Next() {
		event := &models.MatchEvent{}
		var payload []byte
		if err := rows.Scan(&event.MatchID, &event.Seq, &event.Type, &payload, &event.RecordedAt); err != nil {
			return nil, fmt.Errorf("failed to scan event for match %d: %w", matchID, err)
		}
		event.Payload = payload
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate events for match %d: %w", matchID, err)
	}
	return events, nil
}
