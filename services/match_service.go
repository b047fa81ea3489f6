package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/Dosada05/officiation-system/live"
	"github.com/Dosada05/officiation-system/models"
	"github.com/Dosada05/officiation-system/officiating"
	"github.com/Dosada05/officiation-system/repositories"
	"github.com/google/uuid"
)

// MatchNotifier рассылает события матча подписчикам (судейская панель,
// экраны игроков). Реализуется live.Hub.
type MatchNotifier interface {
	BroadcastToRoom(roomID string, messageType string, payload interface{})
}

// RatingSettler рассчитывает рейтинги по итогам матча. Реализуется
// RatingService.
type RatingSettler interface {
	Settle(ctx context.Context, summary *models.MatchSummary) ([]models.RatingRecord, error)
}

// AuditArchiver выгружает аудиторский архив завершённого матча во внешнее
// хранилище. Реализуется AuditService; может быть nil.
type AuditArchiver interface {
	ArchiveMatch(ctx context.Context, summary *models.MatchSummary, claims []*models.KillClaim, cases []*models.ConflictCase) error
}

// MatchService владеет состоянием матчей и конечным автоматом фаз.
// Все мутации сериализуются: фазовые переходы — по matchID, обработка
// заявок — по паре (matchID, victimID).
type MatchService interface {
	CreateMatch(ctx context.Context, mode models.MatchMode, totalRounds int, teamA, teamB []int) (*models.MatchState, error)
	GetMatchState(ctx context.Context, matchID int) (*models.MatchState, []models.ParticipantMatchStats, error)

	// DeclareKill регистрирует заявку игрока на поражение. При повторной
	// отправке возвращает существующую заявку и ErrDuplicateClaim.
	DeclareKill(ctx context.Context, matchID, shooterID, victimID int, distanceMeters float64) (*models.KillClaim, error)

	ListOpenConflicts(ctx context.Context, matchID int) ([]*models.ConflictCase, error)
	ResolveConflict(ctx context.Context, caseID string, resolution models.Resolution) (*models.ConflictCase, error)

	Pause(ctx context.Context, matchID int) (*models.MatchState, error)
	Resume(ctx context.Context, matchID int) (*models.MatchState, error)
	EndRound(ctx context.Context, matchID int) (*models.MatchState, error)
	NextRound(ctx context.Context, matchID int) (*models.MatchState, error)

	// EndMatch завершает матч и ровно один раз запускает расчёт рейтингов.
	// Повторный вызов на завершённом матче — no-op, возвращающий тот же
	// summary и те же рейтинговые записи.
	EndMatch(ctx context.Context, matchID int) (*models.MatchSummary, []models.RatingRecord, error)
}

type victimSlot struct {
	mu         sync.Mutex
	windowOpen bool
	timer      *time.Timer
	round      int
}

type liveMatch struct {
	// phaseMu: писатели — фазовые переходы, читатели — обработка заявок.
	// Переход фазы ждёт, пока все начатые обработки заявок завершатся:
	// ни одна заявка не может "зависнуть" поперёк границы паузы.
	phaseMu sync.RWMutex
	state   *models.MatchState
	rule    officiating.ScoringRule

	// scoreMu защищает счёт от конкурентных начислений по разным жертвам.
	scoreMu sync.Mutex

	slotsMu sync.Mutex
	slots   map[int]*victimSlot

	casesMu          sync.Mutex
	cases            map[string]*models.ConflictCase
	openCaseByVictim map[int]string

	summary *models.MatchSummary
	ratings []models.RatingRecord
}

type matchService struct {
	mu          sync.RWMutex
	matches     map[int]*liveMatch
	caseToMatch map[string]int
	nextMatchID int

	claims    ClaimStore
	eventRepo repositories.EventRepository
	settler   RatingSettler
	archiver  AuditArchiver
	notifier  MatchNotifier
	logger    *slog.Logger

	claimWindow time.Duration
	now         func() time.Time
}

// DefaultClaimWindow — окно сбора конкурирующих заявок по одной жертве.
const DefaultClaimWindow = 3 * time.Second

func NewMatchService(
	claims ClaimStore,
	eventRepo repositories.EventRepository,
	settler RatingSettler,
	archiver AuditArchiver,
	notifier MatchNotifier,
	logger *slog.Logger,
	claimWindow time.Duration,
) MatchService {
	if claimWindow <= 0 {
		claimWindow = DefaultClaimWindow
	}
	return &matchService{
		matches:     make(map[int]*liveMatch),
		caseToMatch: make(map[string]int),
		nextMatchID: 1,
		claims:      claims,
		eventRepo:   eventRepo,
		settler:     settler,
		archiver:    archiver,
		notifier:    notifier,
		logger:      logger,
		claimWindow: claimWindow,
		now:         time.Now,
	}
}

func (s *matchService) CreateMatch(ctx context.Context, mode models.MatchMode, totalRounds int, teamA, teamB []int) (*models.MatchState, error) {
	if totalRounds < 1 {
		return nil, fmt.Errorf("%w: total rounds must be positive", ErrValidationFailed)
	}
	if len(teamA) == 0 || len(teamB) == 0 {
		return nil, ErrRosterInvalid
	}
	seen := make(map[int]bool, len(teamA)+len(teamB))
	for _, id := range append(append([]int{}, teamA...), teamB...) {
		if id <= 0 || seen[id] {
			return nil, ErrRosterInvalid
		}
		seen[id] = true
	}

	rule, err := officiating.RuleForMode(mode)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidationFailed, err)
	}

	s.mu.Lock()
	matchID := s.nextMatchID
	s.nextMatchID++
	m := &liveMatch{
		state: &models.MatchState{
			MatchID:     matchID,
			Mode:        mode,
			Phase:       models.PhaseLive,
			Round:       1,
			TotalRounds: totalRounds,
			StartedAt:   s.now(),
			TeamARoster: append([]int{}, teamA...),
			TeamBRoster: append([]int{}, teamB...),
		},
		rule:             rule,
		slots:            make(map[int]*victimSlot),
		cases:            make(map[string]*models.ConflictCase),
		openCaseByVictim: make(map[int]string),
	}
	s.matches[matchID] = m
	s.mu.Unlock()

	s.recordEvent(ctx, matchID, models.EventPhaseChanged, phasePayload{Phase: models.PhaseLive, Round: 1})
	return s.snapshotState(m), nil
}

func (s *matchService) match(matchID int) (*liveMatch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.matches[matchID]
	if !ok {
		return nil, ErrMatchNotFound
	}
	return m, nil
}

func (s *matchService) GetMatchState(ctx context.Context, matchID int) (*models.MatchState, []models.ParticipantMatchStats, error) {
	m, err := s.match(matchID)
	if err != nil {
		return nil, nil, err
	}
	m.phaseMu.RLock()
	defer m.phaseMu.RUnlock()
	return s.snapshotState(m), s.statsForMatch(m), nil
}

func (s *matchService) DeclareKill(ctx context.Context, matchID, shooterID, victimID int, distanceMeters float64) (*models.KillClaim, error) {
	if shooterID == victimID {
		return nil, ErrSelfClaim
	}

	m, err := s.match(matchID)
	if err != nil {
		return nil, err
	}

	m.phaseMu.RLock()
	defer m.phaseMu.RUnlock()

	if m.state.Phase != models.PhaseLive {
		// Заявки в паузе отклоняются, а не ставятся в очередь: после
		// возобновления их порядок был бы неоднозначен.
		return nil, ErrInvalidMatchPhase
	}
	if m.state.TeamOf(shooterID) == "" {
		return nil, ErrShooterNotInMatch
	}
	if m.state.TeamOf(victimID) == "" {
		return nil, ErrVictimNotInMatch
	}

	slot := s.slot(m, victimID)
	slot.mu.Lock()
	defer slot.mu.Unlock()

	round := m.state.Round
	claim, err := s.claims.Submit(&models.KillClaim{
		MatchID:                matchID,
		ShooterID:              shooterID,
		VictimID:               victimID,
		Round:                  round,
		DeclaredAt:             s.now(),
		DistanceEstimateMeters: distanceMeters,
	})
	if err != nil {
		return claim, err
	}

	s.recordEvent(ctx, matchID, models.EventClaimSubmitted, claim)

	if !slot.windowOpen {
		slot.windowOpen = true
		slot.round = round
		slot.timer = time.AfterFunc(s.claimWindow, func() {
			s.closeWindow(matchID, victimID)
		})
	}

	return claim, nil
}

func (s *matchService) slot(m *liveMatch, victimID int) *victimSlot {
	m.slotsMu.Lock()
	defer m.slotsMu.Unlock()
	slot, ok := m.slots[victimID]
	if !ok {
		slot = &victimSlot{}
		m.slots[victimID] = slot
	}
	return slot
}

// closeWindow вызывается таймером окна сбора. Если к этому моменту матч
// уже не Live, окно было отменено фазовым переходом и заявки
// инвалидированы — ничего не делаем.
func (s *matchService) closeWindow(matchID, victimID int) {
	ctx := context.Background()

	m, err := s.match(matchID)
	if err != nil {
		return
	}

	m.phaseMu.RLock()
	defer m.phaseMu.RUnlock()

	slot := s.slot(m, victimID)
	slot.mu.Lock()
	defer slot.mu.Unlock()

	if !slot.windowOpen {
		return
	}
	slot.windowOpen = false

	if m.state.Phase != models.PhaseLive {
		return
	}

	pending := s.claims.PendingForVictim(matchID, victimID, slot.round)
	outcome := officiating.Evaluate(pending)

	switch outcome.Kind {
	case officiating.OutcomeNoClaim:
		return

	case officiating.OutcomeSingleClaim:
		claim := pending[0]
		if err := s.claims.SetStatus(claim.ID, models.ClaimStatusAutoConfirmed); err != nil {
			s.logger.Error("failed to auto-confirm claim",
				slog.String("claim_id", claim.ID), slog.Any("error", err))
			return
		}
		claim.Status = models.ClaimStatusAutoConfirmed
		s.recordEvent(ctx, matchID, models.EventClaimStatusChanged, claim)
		s.applyElimination(ctx, m, claim.ShooterID)
		s.notify(matchID, live.MessageClaimConfirmed, claim)

	case officiating.OutcomeConflict:
		s.openConflict(ctx, m, victimID, slot.round, outcome.Ranked)
	}
}

// openConflict открывает спорный случай по жертве. Если случай по этой
// жертве уже открыт, новые заявки присоединяются к нему: на одну жертву
// одновременно не бывает двух открытых случаев.
func (s *matchService) openConflict(ctx context.Context, m *liveMatch, victimID, round int, ranked []*models.KillClaim) {
	m.casesMu.Lock()

	var c *models.ConflictCase
	if existingID, ok := m.openCaseByVictim[victimID]; ok {
		c = m.cases[existingID]
		known := make(map[string]bool, len(c.ClaimIDs))
		for _, id := range c.ClaimIDs {
			known[id] = true
		}
		for _, claim := range ranked {
			if !known[claim.ID] {
				c.ClaimIDs = append(c.ClaimIDs, claim.ID)
			}
		}
	} else {
		c = &models.ConflictCase{
			ID:       uuid.NewString(),
			MatchID:  m.state.MatchID,
			VictimID: victimID,
			Round:    round,
			OpenedAt: s.now(),
			Resolution: models.Resolution{
				Kind: models.ResolutionUnresolved,
			},
		}
		for _, claim := range ranked {
			c.ClaimIDs = append(c.ClaimIDs, claim.ID)
		}
		m.cases[c.ID] = c
		m.openCaseByVictim[victimID] = c.ID

		s.mu.Lock()
		s.caseToMatch[c.ID] = m.state.MatchID
		s.mu.Unlock()
	}
	snapshot := snapshotCase(c)
	m.casesMu.Unlock()

	s.recordEvent(ctx, m.state.MatchID, models.EventConflictOpened, snapshot)
	s.notify(m.state.MatchID, live.MessageConflictOpened, conflictPayload{
		Case:   snapshot,
		Ranked: ranked,
	})
}

// applyElimination начисляет очко команде стрелка по правилу режима.
// Легально только в фазе Live; вызывающие держат phaseMu.RLock.
func (s *matchService) applyElimination(ctx context.Context, m *liveMatch, shooterID int) {
	side := m.state.TeamOf(shooterID)
	points := m.rule.PointsForElimination(m.state, side)

	m.scoreMu.Lock()
	switch side {
	case models.TeamA:
		m.state.Score.TeamA += points
	case models.TeamB:
		m.state.Score.TeamB += points
	}
	score := m.state.Score
	m.scoreMu.Unlock()

	s.recordEvent(ctx, m.state.MatchID, models.EventScoreChanged, scorePayload{Score: score})
	s.notify(m.state.MatchID, live.MessageScoreUpdated, scorePayload{Score: score})
}

func (s *matchService) ListOpenConflicts(ctx context.Context, matchID int) ([]*models.ConflictCase, error) {
	m, err := s.match(matchID)
	if err != nil {
		return nil, err
	}

	m.casesMu.Lock()
	defer m.casesMu.Unlock()

	open := make([]*models.ConflictCase, 0, len(m.openCaseByVictim))
	for _, caseID := range m.openCaseByVictim {
		open = append(open, snapshotCase(m.cases[caseID]))
	}
	sort.Slice(open, func(i, j int) bool { return open[i].OpenedAt.Before(open[j].OpenedAt) })
	return open, nil
}

func (s *matchService) ResolveConflict(ctx context.Context, caseID string, resolution models.Resolution) (*models.ConflictCase, error) {
	s.mu.RLock()
	matchID, ok := s.caseToMatch[caseID]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrConflictNotFound
	}

	m, err := s.match(matchID)
	if err != nil {
		return nil, err
	}

	m.phaseMu.RLock()
	defer m.phaseMu.RUnlock()

	if m.state.Phase != models.PhaseLive {
		return nil, ErrInvalidMatchPhase
	}

	m.casesMu.Lock()
	c, ok := m.cases[caseID]
	if !ok {
		m.casesMu.Unlock()
		return nil, ErrConflictNotFound
	}
	victimID := c.VictimID
	m.casesMu.Unlock()

	// Сериализация по жертве: решение случая и подача заявок на ту же
	// жертву не пересекаются.
	slot := s.slot(m, victimID)
	slot.mu.Lock()
	defer slot.mu.Unlock()

	m.casesMu.Lock()
	defer m.casesMu.Unlock()

	c, ok = m.cases[caseID]
	if !ok {
		return nil, ErrConflictNotFound
	}
	if !c.Open() {
		return nil, ErrAlreadyResolved
	}

	inCase := make(map[string]bool, len(c.ClaimIDs))
	for _, id := range c.ClaimIDs {
		inCase[id] = true
	}

	switch resolution.Kind {
	case models.ResolutionAssignedTo:
		if len(resolution.ClaimIDs) != 1 || !inCase[resolution.ClaimIDs[0]] {
			return nil, ErrResolutionInvalid
		}
		winnerID := resolution.ClaimIDs[0]
		for _, id := range c.ClaimIDs {
			status := models.ClaimStatusRejected
			if id == winnerID {
				status = models.ClaimStatusRefereeConfirmed
			}
			if err := s.claims.SetStatus(id, status); err != nil {
				return nil, fmt.Errorf("failed to set status of claim %s: %w", id, err)
			}
			s.recordClaimStatus(ctx, matchID, id)
		}
		winner, err := s.claims.Get(winnerID)
		if err != nil {
			return nil, err
		}
		s.applyElimination(ctx, m, winner.ShooterID)

	case models.ResolutionSplitAssist:
		if len(resolution.ClaimIDs) == 0 {
			return nil, ErrResolutionInvalid
		}
		listed := make(map[string]bool, len(resolution.ClaimIDs))
		for _, id := range resolution.ClaimIDs {
			if !inCase[id] {
				return nil, ErrResolutionInvalid
			}
			listed[id] = true
		}
		for _, id := range c.ClaimIDs {
			if listed[id] {
				if err := s.claims.SetAssist(id); err != nil {
					return nil, fmt.Errorf("failed to flag assist on claim %s: %w", id, err)
				}
				if err := s.claims.SetStatus(id, models.ClaimStatusRefereeConfirmed); err != nil {
					return nil, fmt.Errorf("failed to set status of claim %s: %w", id, err)
				}
			} else {
				if err := s.claims.SetStatus(id, models.ClaimStatusRejected); err != nil {
					return nil, fmt.Errorf("failed to set status of claim %s: %w", id, err)
				}
			}
			s.recordClaimStatus(ctx, matchID, id)
		}
		// Командное очко за устранение начисляется, только если все
		// ассистенты с одной стороны: иначе атрибуция неоднозначна.
		if shooterID, ok := s.unanimousSide(m, resolution.ClaimIDs); ok {
			s.applyElimination(ctx, m, shooterID)
		}

	case models.ResolutionInvalidated:
		for _, id := range c.ClaimIDs {
			if err := s.claims.SetStatus(id, models.ClaimStatusInvalidated); err != nil {
				return nil, fmt.Errorf("failed to invalidate claim %s: %w", id, err)
			}
			s.recordClaimStatus(ctx, matchID, id)
		}

	default:
		return nil, ErrResolutionInvalid
	}

	now := s.now()
	c.Resolution = models.Resolution{
		Kind:       resolution.Kind,
		ClaimIDs:   append([]string{}, resolution.ClaimIDs...),
		RefereeID:  resolution.RefereeID,
		ResolvedAt: &now,
	}
	delete(m.openCaseByVictim, victimID)

	snapshot := snapshotCase(c)
	s.recordEvent(ctx, matchID, models.EventConflictResolved, snapshot)
	s.notify(matchID, live.MessageConflictResolved, snapshot)
	return snapshot, nil
}

// unanimousSide возвращает одного из стрелков, если все перечисленные
// заявки принадлежат игрокам одной стороны.
func (s *matchService) unanimousSide(m *liveMatch, claimIDs []string) (int, bool) {
	var side models.TeamSide
	var shooterID int
	for _, id := range claimIDs {
		claim, err := s.claims.Get(id)
		if err != nil {
			return 0, false
		}
		claimSide := m.state.TeamOf(claim.ShooterID)
		if side == "" {
			side = claimSide
			shooterID = claim.ShooterID
		} else if claimSide != side {
			return 0, false
		}
	}
	return shooterID, side != ""
}

func (s *matchService) Pause(ctx context.Context, matchID int) (*models.MatchState, error) {
	m, err := s.match(matchID)
	if err != nil {
		return nil, err
	}

	m.phaseMu.Lock()
	defer m.phaseMu.Unlock()

	if m.state.Phase != models.PhaseLive {
		return nil, ErrInvalidMatchPhase
	}

	s.cancelOpenWindows(ctx, m)
	m.state.Phase = models.PhasePaused
	m.state.PausedIntervals = append(m.state.PausedIntervals, models.PausedInterval{From: s.now()})

	s.recordEvent(ctx, matchID, models.EventPhaseChanged, phasePayload{Phase: m.state.Phase, Round: m.state.Round})
	s.notify(matchID, live.MessagePhaseChanged, phasePayload{Phase: m.state.Phase, Round: m.state.Round})
	return s.snapshotStateLocked(m), nil
}

func (s *matchService) Resume(ctx context.Context, matchID int) (*models.MatchState, error) {
	m, err := s.match(matchID)
	if err != nil {
		return nil, err
	}

	m.phaseMu.Lock()
	defer m.phaseMu.Unlock()

	if m.state.Phase != models.PhasePaused {
		return nil, ErrInvalidMatchPhase
	}

	m.state.Phase = models.PhaseLive
	if n := len(m.state.PausedIntervals); n > 0 && m.state.PausedIntervals[n-1].To == nil {
		to := s.now()
		m.state.PausedIntervals[n-1].To = &to
	}

	s.recordEvent(ctx, matchID, models.EventPhaseChanged, phasePayload{Phase: m.state.Phase, Round: m.state.Round})
	s.notify(matchID, live.MessagePhaseChanged, phasePayload{Phase: m.state.Phase, Round: m.state.Round})
	return s.snapshotStateLocked(m), nil
}

func (s *matchService) EndRound(ctx context.Context, matchID int) (*models.MatchState, error) {
	m, err := s.match(matchID)
	if err != nil {
		return nil, err
	}

	m.phaseMu.Lock()
	defer m.phaseMu.Unlock()

	if m.state.Phase != models.PhaseLive {
		return nil, ErrInvalidMatchPhase
	}

	s.cancelOpenWindows(ctx, m)
	m.state.Phase = models.PhaseRoundEnded

	s.recordEvent(ctx, matchID, models.EventPhaseChanged, phasePayload{Phase: m.state.Phase, Round: m.state.Round})
	s.notify(matchID, live.MessagePhaseChanged, phasePayload{Phase: m.state.Phase, Round: m.state.Round})
	return s.snapshotStateLocked(m), nil
}

func (s *matchService) NextRound(ctx context.Context, matchID int) (*models.MatchState, error) {
	m, err := s.match(matchID)
	if err != nil {
		return nil, err
	}

	m.phaseMu.Lock()
	defer m.phaseMu.Unlock()

	if m.state.Phase != models.PhaseRoundEnded {
		return nil, ErrInvalidMatchPhase
	}
	if m.state.Round >= m.state.TotalRounds {
		return nil, ErrNoRoundsRemaining
	}

	m.state.Round++
	m.state.Phase = models.PhaseLive

	s.recordEvent(ctx, matchID, models.EventRoundAdvanced, phasePayload{Phase: m.state.Phase, Round: m.state.Round})
	s.notify(matchID, live.MessagePhaseChanged, phasePayload{Phase: m.state.Phase, Round: m.state.Round})
	return s.snapshotStateLocked(m), nil
}

func (s *matchService) EndMatch(ctx context.Context, matchID int) (*models.MatchSummary, []models.RatingRecord, error) {
	m, err := s.match(matchID)
	if err != nil {
		return nil, nil, err
	}

	m.phaseMu.Lock()
	defer m.phaseMu.Unlock()

	// Идемпотентность: повторный endMatch возвращает уже готовый итог.
	if m.state.Phase == models.PhaseMatchEnded {
		return m.summary, append([]models.RatingRecord{}, m.ratings...), nil
	}

	prevPhase := m.state.Phase
	s.cancelOpenWindows(ctx, m)

	now := s.now()
	m.state.Phase = models.PhaseMatchEnded
	m.state.EndedAt = &now
	if n := len(m.state.PausedIntervals); n > 0 && m.state.PausedIntervals[n-1].To == nil {
		m.state.PausedIntervals[n-1].To = &now
	}

	summary := s.buildSummary(m, now)

	ratings, err := s.settler.Settle(ctx, summary)
	if err != nil {
		// Ошибка расчёта рейтинга блокирует финализацию: частичное
		// обновление рейтингов нарушило бы инвариант tier(elo).
		m.state.Phase = prevPhase
		m.state.EndedAt = nil
		return nil, nil, fmt.Errorf("%w: %v", ErrSettlementFailed, err)
	}

	m.summary = summary
	m.ratings = append([]models.RatingRecord{}, ratings...)

	s.recordEvent(ctx, matchID, models.EventPhaseChanged, phasePayload{Phase: models.PhaseMatchEnded, Round: m.state.Round})
	s.recordEvent(ctx, matchID, models.EventMatchSettled, summary)
	s.notify(matchID, live.MessagePhaseChanged, phasePayload{Phase: models.PhaseMatchEnded, Round: m.state.Round})
	s.notify(matchID, live.MessageMatchSettled, summary)

	if s.archiver != nil {
		claims := s.claims.ClaimsForMatch(matchID)
		cases := s.casesForMatch(m)
		go func() {
			if err := s.archiver.ArchiveMatch(context.Background(), summary, claims, cases); err != nil {
				s.logger.Error("failed to archive match audit bundle",
					slog.Int("match_id", matchID), slog.Any("error", err))
			}
		}()
	}

	return summary, append([]models.RatingRecord{}, ratings...), nil
}

// cancelOpenWindows отменяет открытые окна сбора и инвалидирует их
// Pending-заявки. Вызывается из фазовых переходов под phaseMu.Lock:
// заявки не остаются в неопределённом состоянии поперёк границы фазы.
func (s *matchService) cancelOpenWindows(ctx context.Context, m *liveMatch) {
	m.slotsMu.Lock()
	slots := make(map[int]*victimSlot, len(m.slots))
	for victimID, slot := range m.slots {
		slots[victimID] = slot
	}
	m.slotsMu.Unlock()

	for victimID, slot := range slots {
		slot.mu.Lock()
		if !slot.windowOpen {
			slot.mu.Unlock()
			continue
		}
		slot.windowOpen = false
		if slot.timer != nil {
			slot.timer.Stop()
		}
		round := slot.round
		slot.mu.Unlock()

		for _, claim := range s.claims.PendingForVictim(m.state.MatchID, victimID, round) {
			if err := s.claims.SetStatus(claim.ID, models.ClaimStatusInvalidated); err != nil {
				s.logger.Error("failed to invalidate claim on window cancel",
					slog.String("claim_id", claim.ID), slog.Any("error", err))
				continue
			}
			claim.Status = models.ClaimStatusInvalidated
			s.recordEvent(ctx, m.state.MatchID, models.EventClaimStatusChanged, claim)
			s.notify(m.state.MatchID, live.MessageClaimInvalidated, claim)
		}
	}
}

func (s *matchService) buildSummary(m *liveMatch, endedAt time.Time) *models.MatchSummary {
	winner := models.WinnerDraw
	switch {
	case m.state.Score.TeamA > m.state.Score.TeamB:
		winner = models.WinnerTeamA
	case m.state.Score.TeamB > m.state.Score.TeamA:
		winner = models.WinnerTeamB
	}

	return &models.MatchSummary{
		MatchID:      m.state.MatchID,
		Mode:         m.state.Mode,
		Score:        m.state.Score,
		Winner:       winner,
		TeamA:        append([]int{}, m.state.TeamARoster...),
		TeamB:        append([]int{}, m.state.TeamBRoster...),
		RoundsPlayed: m.state.Round,
		StartedAt:    m.state.StartedAt,
		EndedAt:      endedAt,
		Stats:        s.statsForMatch(m),
	}
}

// statsForMatch пересчитывает статистику участников из заявок и решённых
// случаев. Смерть от split-assist считается один раз на случай, а не на
// каждую заявку-ассист.
func (s *matchService) statsForMatch(m *liveMatch) []models.ParticipantMatchStats {
	matchID := m.state.MatchID
	byPlayer := make(map[int]*models.ParticipantMatchStats)
	stat := func(playerID int) *models.ParticipantMatchStats {
		if st, ok := byPlayer[playerID]; ok {
			return st
		}
		st := &models.ParticipantMatchStats{PlayerID: playerID, MatchID: matchID}
		byPlayer[playerID] = st
		return st
	}
	for _, id := range m.state.TeamARoster {
		stat(id)
	}
	for _, id := range m.state.TeamBRoster {
		stat(id)
	}

	for _, claim := range s.claims.ClaimsForMatch(matchID) {
		if !claim.Status.Confirmed() {
			continue
		}
		if claim.Assist {
			stat(claim.ShooterID).Assists++
		} else {
			stat(claim.ShooterID).Kills++
			stat(claim.VictimID).Deaths++
		}
	}

	m.casesMu.Lock()
	for _, c := range m.cases {
		if c.Resolution.Kind == models.ResolutionSplitAssist {
			stat(c.VictimID).Deaths++
		}
	}
	m.casesMu.Unlock()

	stats := make([]models.ParticipantMatchStats, 0, len(byPlayer))
	for _, st := range byPlayer {
		stats = append(stats, *st)
	}
	sort.Slice(stats, func(i, j int) bool { return stats[i].PlayerID < stats[j].PlayerID })
	return stats
}

func (s *matchService) casesForMatch(m *liveMatch) []*models.ConflictCase {
	m.casesMu.Lock()
	defer m.casesMu.Unlock()
	cases := make([]*models.ConflictCase, 0, len(m.cases))
	for _, c := range m.cases {
		cases = append(cases, snapshotCase(c))
	}
	sort.Slice(cases, func(i, j int) bool { return cases[i].OpenedAt.Before(cases[j].OpenedAt) })
	return cases
}

// snapshotState копирует состояние матча для выдачи наружу. Вызывающий
// держит phaseMu (любой режим).
func (s *matchService) snapshotState(m *liveMatch) *models.MatchState {
	m.scoreMu.Lock()
	defer m.scoreMu.Unlock()
	return s.copyState(m.state)
}

// snapshotStateLocked — как snapshotState, но для вызова под phaseMu.Lock,
// где конкурентных начислений счёта быть не может.
func (s *matchService) snapshotStateLocked(m *liveMatch) *models.MatchState {
	return s.copyState(m.state)
}

func (s *matchService) copyState(state *models.MatchState) *models.MatchState {
	cp := *state
	cp.TeamARoster = append([]int{}, state.TeamARoster...)
	cp.TeamBRoster = append([]int{}, state.TeamBRoster...)
	cp.PausedIntervals = append([]models.PausedInterval{}, state.PausedIntervals...)
	return &cp
}

func snapshotCase(c *models.ConflictCase) *models.ConflictCase {
	cp := *c
	cp.ClaimIDs = append([]string{}, c.ClaimIDs...)
	cp.Resolution.ClaimIDs = append([]string{}, c.Resolution.ClaimIDs...)
	return &cp
}

type phasePayload struct {
	Phase models.MatchPhase `json:"phase"`
	Round int               `json:"round"`
}

type scorePayload struct {
	Score models.Score `json:"score"`
}

type conflictPayload struct {
	Case *models.ConflictCase `json:"case"`
	// Ranked — совещательное ранжирование для судьи; само по себе оно
	// никогда не назначает победителя.
	Ranked []*models.KillClaim `json:"ranked"`
}

func (s *matchService) recordClaimStatus(ctx context.Context, matchID int, claimID string) {
	claim, err := s.claims.Get(claimID)
	if err != nil {
		return
	}
	s.recordEvent(ctx, matchID, models.EventClaimStatusChanged, claim)
}

// recordEvent добавляет запись в append-only журнал матча. Ошибка журнала
// логируется, но не прерывает операцию: долговечность обеспечивает
// хранилище, движок остаётся источником истины в рамках процесса.
func (s *matchService) recordEvent(ctx context.Context, matchID int, eventType models.EventType, payload interface{}) {
	if s.eventRepo == nil {
		return
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		s.logger.Error("failed to marshal event payload",
			slog.Int("match_id", matchID), slog.String("type", string(eventType)), slog.Any("error", err))
		return
	}
	event := &models.MatchEvent{
		MatchID:    matchID,
		Type:       eventType,
		Payload:    raw,
		RecordedAt: s.now(),
	}
	if err := s.eventRepo.Append(ctx, event); err != nil {
		s.logger.Error("failed to append match event",
			slog.Int("match_id", matchID), slog.String("type", string(eventType)), slog.Any("error", err))
	}
}

func (s *matchService) notify(matchID int, messageType string, payload interface{}) {
	if s.notifier == nil {
		return
	}
	s.notifier.BroadcastToRoom(live.MatchRoom(matchID), messageType, payload)
}
