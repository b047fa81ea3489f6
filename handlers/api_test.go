package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/Dosada05/officiation-system/handlers"
	"github.com/Dosada05/officiation-system/live"
	"github.com/Dosada05/officiation-system/models"
	"github.com/Dosada05/officiation-system/repositories"
	"github.com/Dosada05/officiation-system/routes"
	"github.com/Dosada05/officiation-system/services"
	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v4"
)

var apiSecret = []byte("api-test-secret")

type memoryRatingRepo struct {
	mu      sync.Mutex
	records map[int]models.RatingRecord
	settled map[int]bool
}

func newMemoryRatingRepo() *memoryRatingRepo {
	return &memoryRatingRepo{
		records: make(map[int]models.RatingRecord),
		settled: make(map[int]bool),
	}
}

func (r *memoryRatingRepo) GetByPlayer(ctx context.Context, playerID int) (*models.RatingRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	record, ok := r.records[playerID]
	if !ok {
		return nil, repositories.ErrRatingNotFound
	}
	cp := record
	return &cp, nil
}

func (r *memoryRatingRepo) Upsert(ctx context.Context, exec repositories.SQLExecutor, record *models.RatingRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[record.PlayerID] = *record
	return nil
}

func (r *memoryRatingRepo) IsSettled(ctx context.Context, matchID int) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.settled[matchID], nil
}

func (r *memoryRatingRepo) MarkSettled(ctx context.Context, exec repositories.SQLExecutor, matchID int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.settled[matchID] {
		return repositories.ErrMatchAlreadySettled
	}
	r.settled[matchID] = true
	return nil
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	claimStore := services.NewClaimStore()
	ratingService := services.NewRatingService(nil, newMemoryRatingRepo(), nil, logger)
	matchService := services.NewMatchService(claimStore, nil, ratingService, nil, nil, logger, 100*time.Millisecond)
	refereeService := services.NewRefereeService(matchService)

	router := chi.NewRouter()
	routes.SetupRoutes(
		router,
		apiSecret,
		handlers.NewMatchHandler(matchService),
		handlers.NewRefereeHandler(refereeService),
		handlers.NewRatingHandler(ratingService),
		handlers.NewWebSocketHandler(live.NewHub()),
	)

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return server
}

func tokenFor(t *testing.T, userID int, role string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": float64(userID),
		"role":    role,
	})
	signed, err := token.SignedString(apiSecret)
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return signed
}

func doRequest(t *testing.T, server *httptest.Server, method, path, token string, body interface{}) (int, map[string]json.RawMessage) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal request body: %v", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequest(method, server.URL+path, reader)
	if err != nil {
		t.Fatalf("failed to build request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := server.Client().Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read response body: %v", err)
	}
	payload := make(map[string]json.RawMessage)
	if len(raw) > 0 {
		// Некоторые ответы (401/403 из middleware) — не JSON.
		_ = json.Unmarshal(raw, &payload)
	}
	return resp.StatusCode, payload
}

func createMatch(t *testing.T, server *httptest.Server, refereeToken string) int {
	t.Helper()
	status, payload := doRequest(t, server, http.MethodPost, "/matches", refereeToken, map[string]interface{}{
		"mode":         "tdm",
		"total_rounds": 1,
		"team_a":       []int{10, 11},
		"team_b":       []int{20, 21},
	})
	if status != http.StatusCreated {
		t.Fatalf("create match status = %d, want 201", status)
	}
	var match models.MatchState
	if err := json.Unmarshal(payload["match"], &match); err != nil {
		t.Fatalf("failed to decode match: %v", err)
	}
	return match.MatchID
}

func TestMatchLifecycleOverHTTP(t *testing.T) {
	server := newTestServer(t)
	referee := tokenFor(t, 77, "referee")
	shooter := tokenFor(t, 10, "player")

	matchID := createMatch(t, server, referee)

	// Заявка игрока принимается асинхронно.
	status, payload := doRequest(t, server, http.MethodPost,
		fmt.Sprintf("/matches/%d/claims", matchID), shooter,
		map[string]interface{}{"victim_id": 20, "distance_estimate_meters": 7.5})
	if status != http.StatusAccepted {
		t.Fatalf("declare kill status = %d, want 202", status)
	}
	var claim models.KillClaim
	if err := json.Unmarshal(payload["claim"], &claim); err != nil {
		t.Fatalf("failed to decode claim: %v", err)
	}
	if claim.Status != models.ClaimStatusPending {
		t.Fatalf("claim status = %s, want pending", claim.Status)
	}

	// Сетевой повтор той же заявки — success-no-op.
	status, payload = doRequest(t, server, http.MethodPost,
		fmt.Sprintf("/matches/%d/claims", matchID), shooter,
		map[string]interface{}{"victim_id": 20, "distance_estimate_meters": 7.5})
	if status != http.StatusOK {
		t.Fatalf("duplicate declare status = %d, want 200", status)
	}
	var duplicate bool
	if err := json.Unmarshal(payload["duplicate"], &duplicate); err != nil || !duplicate {
		t.Fatalf("duplicate flag = %v (err %v), want true", duplicate, err)
	}
	var dupClaim models.KillClaim
	if err := json.Unmarshal(payload["claim"], &dupClaim); err != nil {
		t.Fatalf("failed to decode duplicate claim: %v", err)
	}
	if dupClaim.ID != claim.ID {
		t.Fatalf("duplicate returned claim %s, want %s", dupClaim.ID, claim.ID)
	}

	// Ждём авто-подтверждение и очко команде A.
	deadline := time.Now().Add(2 * time.Second)
	var state models.MatchState
	for {
		status, payload = doRequest(t, server, http.MethodGet, fmt.Sprintf("/matches/%d", matchID), shooter, nil)
		if status != http.StatusOK {
			t.Fatalf("get match status = %d, want 200", status)
		}
		if err := json.Unmarshal(payload["match"], &state); err != nil {
			t.Fatalf("failed to decode state: %v", err)
		}
		if state.Score.TeamA == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for auto-confirmed score, state %+v", state)
		}
		time.Sleep(10 * time.Millisecond)
	}

	// Завершение матча судьёй: итог и рейтинги в одном ответе.
	status, payload = doRequest(t, server, http.MethodPost, fmt.Sprintf("/matches/%d/end", matchID), referee, nil)
	if status != http.StatusOK {
		t.Fatalf("end match status = %d, want 200", status)
	}
	var summary models.MatchSummary
	if err := json.Unmarshal(payload["summary"], &summary); err != nil {
		t.Fatalf("failed to decode summary: %v", err)
	}
	if summary.Winner != models.WinnerTeamA {
		t.Fatalf("winner = %s, want team_a", summary.Winner)
	}
	var ratings []models.RatingRecord
	if err := json.Unmarshal(payload["ratings"], &ratings); err != nil {
		t.Fatalf("failed to decode ratings: %v", err)
	}
	if len(ratings) != 4 {
		t.Fatalf("got %d rating records, want 4", len(ratings))
	}

	// Рейтинг победителя доступен по своему эндпоинту.
	status, payload = doRequest(t, server, http.MethodGet, "/players/10/rating", shooter, nil)
	if status != http.StatusOK {
		t.Fatalf("get rating status = %d, want 200", status)
	}
	var record models.RatingRecord
	if err := json.Unmarshal(payload["rating"], &record); err != nil {
		t.Fatalf("failed to decode rating: %v", err)
	}
	if record.Elo != 1010 || record.Tier != models.TierSilver {
		t.Fatalf("rating = %d %s, want 1010 silver", record.Elo, record.Tier)
	}
}

func TestConflictResolutionOverHTTP(t *testing.T) {
	server := newTestServer(t)
	referee := tokenFor(t, 77, "referee")
	first := tokenFor(t, 10, "player")
	second := tokenFor(t, 11, "player")

	matchID := createMatch(t, server, referee)

	for label, token := range map[string]string{"first": first, "second": second} {
		status, _ := doRequest(t, server, http.MethodPost,
			fmt.Sprintf("/matches/%d/claims", matchID), token,
			map[string]interface{}{"victim_id": 20, "distance_estimate_meters": 9.0})
		if status != http.StatusAccepted {
			t.Fatalf("%s declare status = %d, want 202", label, status)
		}
	}

	// Окно закрывается таймером: опрашиваем список открытых случаев.
	var cases []models.ConflictCase
	deadline := time.Now().Add(2 * time.Second)
	for {
		status, payload := doRequest(t, server, http.MethodGet,
			fmt.Sprintf("/matches/%d/conflicts", matchID), referee, nil)
		if status != http.StatusOK {
			t.Fatalf("list conflicts status = %d, want 200", status)
		}
		if err := json.Unmarshal(payload["conflicts"], &cases); err != nil {
			t.Fatalf("failed to decode conflicts: %v", err)
		}
		if len(cases) == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for conflict case, got %d", len(cases))
		}
		time.Sleep(10 * time.Millisecond)
	}

	c := cases[0]
	if len(c.ClaimIDs) != 2 {
		t.Fatalf("case has %d claims, want 2", len(c.ClaimIDs))
	}

	// Игроку решение недоступно.
	status, _ := doRequest(t, server, http.MethodPost,
		fmt.Sprintf("/conflicts/%s/resolution", c.ID), first,
		map[string]interface{}{"kind": "assigned_to", "claim_ids": []string{c.ClaimIDs[0]}})
	if status != http.StatusForbidden {
		t.Fatalf("player resolution status = %d, want 403", status)
	}

	status, payload := doRequest(t, server, http.MethodPost,
		fmt.Sprintf("/conflicts/%s/resolution", c.ID), referee,
		map[string]interface{}{"kind": "assigned_to", "claim_ids": []string{c.ClaimIDs[0]}})
	if status != http.StatusOK {
		t.Fatalf("resolution status = %d, want 200", status)
	}
	var resolved models.ConflictCase
	if err := json.Unmarshal(payload["case"], &resolved); err != nil {
		t.Fatalf("failed to decode case: %v", err)
	}
	if resolved.Resolution.Kind != models.ResolutionAssignedTo || resolved.Resolution.RefereeID != 77 {
		t.Fatalf("resolution = %+v, want assigned_to by referee 77", resolved.Resolution)
	}

	// Повторное решение — конфликт состояния.
	status, _ = doRequest(t, server, http.MethodPost,
		fmt.Sprintf("/conflicts/%s/resolution", c.ID), referee,
		map[string]interface{}{"kind": "invalidated"})
	if status != http.StatusConflict {
		t.Fatalf("second resolution status = %d, want 409", status)
	}
}

func TestAccessControlOverHTTP(t *testing.T) {
	server := newTestServer(t)
	referee := tokenFor(t, 77, "referee")
	player := tokenFor(t, 10, "player")

	matchID := createMatch(t, server, referee)

	t.Run("anonymous request is rejected", func(t *testing.T) {
		status, _ := doRequest(t, server, http.MethodGet, fmt.Sprintf("/matches/%d", matchID), "", nil)
		if status != http.StatusUnauthorized {
			t.Fatalf("status = %d, want 401", status)
		}
	})

	t.Run("player cannot create matches", func(t *testing.T) {
		status, _ := doRequest(t, server, http.MethodPost, "/matches", player, map[string]interface{}{
			"mode": "tdm", "total_rounds": 1, "team_a": []int{1}, "team_b": []int{2},
		})
		if status != http.StatusForbidden {
			t.Fatalf("status = %d, want 403", status)
		}
	})

	t.Run("player cannot pause", func(t *testing.T) {
		status, _ := doRequest(t, server, http.MethodPost, fmt.Sprintf("/matches/%d/pause", matchID), player, nil)
		if status != http.StatusForbidden {
			t.Fatalf("status = %d, want 403", status)
		}
	})

	t.Run("unknown match is 404", func(t *testing.T) {
		status, _ := doRequest(t, server, http.MethodGet, "/matches/9999", player, nil)
		if status != http.StatusNotFound {
			t.Fatalf("status = %d, want 404", status)
		}
	})

	t.Run("unknown rating is 404", func(t *testing.T) {
		status, _ := doRequest(t, server, http.MethodGet, "/players/9999/rating", player, nil)
		if status != http.StatusNotFound {
			t.Fatalf("status = %d, want 404", status)
		}
	})

	t.Run("paused match rejects claims with 409", func(t *testing.T) {
		status, _ := doRequest(t, server, http.MethodPost, fmt.Sprintf("/matches/%d/pause", matchID), referee, nil)
		if status != http.StatusOK {
			t.Fatalf("pause status = %d, want 200", status)
		}
		status, _ = doRequest(t, server, http.MethodPost,
			fmt.Sprintf("/matches/%d/claims", matchID), player,
			map[string]interface{}{"victim_id": 20, "distance_estimate_meters": 5.0})
		if status != http.StatusConflict {
			t.Fatalf("claim while paused status = %d, want 409", status)
		}
	})
}
