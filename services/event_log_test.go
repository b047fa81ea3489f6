package services

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/Dosada05/officiation-system/models"
)

type memoryEventRepo struct {
	mu     sync.Mutex
	events []*models.MatchEvent
}

func (r *memoryEventRepo) Append(ctx context.Context, event *models.MatchEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	seq := int64(1)
	for _, e := range r.events {
		if e.MatchID == event.MatchID {
			seq++
		}
	}
	event.Seq = seq
	cp := *event
	r.events = append(r.events, &cp)
	return nil
}

func (r *memoryEventRepo) ListByMatch(ctx context.Context, matchID int) ([]*models.MatchEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.MatchEvent
	for _, e := range r.events {
		if e.MatchID == matchID {
			cp := *e
			out = append(out, &cp)
		}
	}
	return out, nil
}

func TestEventLogRecordsMatchLifecycle(t *testing.T) {
	store := NewClaimStore()
	settler := &fakeSettler{}
	repo := &memoryEventRepo{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := NewMatchService(store, repo, settler, nil, nil, logger, testClaimWindow)
	ctx := context.Background()

	state := startMatch(t, svc, 1)

	claim, err := svc.DeclareKill(ctx, state.MatchID, 10, 20, 7.5)
	if err != nil {
		t.Fatalf("DeclareKill failed: %v", err)
	}
	waitFor(t, "claim auto-confirmation", func() bool {
		got, err := store.Get(claim.ID)
		return err == nil && got.Status == models.ClaimStatusAutoConfirmed
	})

	if _, _, err := svc.EndMatch(ctx, state.MatchID); err != nil {
		t.Fatalf("EndMatch failed: %v", err)
	}

	events, err := repo.ListByMatch(ctx, state.MatchID)
	if err != nil {
		t.Fatalf("ListByMatch failed: %v", err)
	}

	// Seq монотонно растёт внутри партиции матча.
	for i, e := range events {
		if e.Seq != int64(i+1) {
			t.Fatalf("event %d has seq %d, want %d", i, e.Seq, i+1)
		}
	}

	wantOrder := []models.EventType{
		models.EventPhaseChanged,       // матч создан, фаза Live
		models.EventClaimSubmitted,     // заявка подана
		models.EventClaimStatusChanged, // авто-подтверждение
		models.EventScoreChanged,       // очко команде стрелка
		models.EventPhaseChanged,       // MatchEnded
		models.EventMatchSettled,       // итог и расчёт
	}
	if len(events) != len(wantOrder) {
		types := make([]models.EventType, len(events))
		for i, e := range events {
			types[i] = e.Type
		}
		t.Fatalf("got %d events %v, want %d", len(events), types, len(wantOrder))
	}
	for i, want := range wantOrder {
		if events[i].Type != want {
			t.Fatalf("event %d type = %s, want %s", i, events[i].Type, want)
		}
	}

	// Журнал append-only: повторный endMatch не добавляет новых записей.
	if _, _, err := svc.EndMatch(ctx, state.MatchID); err != nil {
		t.Fatalf("second EndMatch failed: %v", err)
	}
	again, err := repo.ListByMatch(ctx, state.MatchID)
	if err != nil {
		t.Fatalf("ListByMatch failed: %v", err)
	}
	if len(again) != len(events) {
		t.Fatalf("idempotent end appended events: %d -> %d", len(events), len(again))
	}
}
