package services

import (
	"sync"
	"time"

	"github.com/Dosada05/officiation-system/models"
	"github.com/google/uuid"
)

// ClaimStore — реестр заявок на поражение с их жизненным циклом.
// Заявки никогда физически не удаляются (аудиторский след); переход в
// конечный статус необратим. Проверку фазы матча выполняет MatchService,
// хранилище отвечает за дедупликацию и неизменность.
type ClaimStore interface {
	// Submit регистрирует новую заявку и присваивает ей ID. Если у того же
	// стрелка уже есть не-отклонённая заявка на ту же жертву в том же
	// раунде, возвращается существующая заявка и ErrDuplicateClaim —
	// повтор клиента не создаёт дубликат.
	Submit(claim *models.KillClaim) (*models.KillClaim, error)

	Get(claimID string) (*models.KillClaim, error)

	// ClaimsForVictim возвращает все заявки по жертве в матче.
	ClaimsForVictim(matchID, victimID int) []*models.KillClaim

	// PendingForVictim возвращает Pending-заявки по жертве в заданном раунде.
	PendingForVictim(matchID, victimID, round int) []*models.KillClaim

	// ClaimsForMatch возвращает все заявки матча (для вывода статистики и
	// аудиторского архива).
	ClaimsForMatch(matchID int) []*models.KillClaim

	// SetStatus переводит заявку в новый статус. Заявка в конечном статусе
	// не изменяется: повторный перевод возвращает ErrClaimFinal.
	SetStatus(claimID string, status models.ClaimStatus) error

	// SetAssist помечает заявку как ассист (split-assist решение судьи).
	// Допустимо только пока заявка Pending.
	SetAssist(claimID string) error
}

type victimKey struct {
	matchID  int
	victimID int
}

type inMemoryClaimStore struct {
	mu       sync.RWMutex
	claims   map[string]*models.KillClaim
	byVictim map[victimKey][]string
	byMatch  map[int][]string
	now      func() time.Time
}

func NewClaimStore() ClaimStore {
	return &inMemoryClaimStore{
		claims:   make(map[string]*models.KillClaim),
		byVictim: make(map[victimKey][]string),
		byMatch:  make(map[int][]string),
		now:      time.Now,
	}
}

func (s *inMemoryClaimStore) Submit(claim *models.KillClaim) (*models.KillClaim, error) {
	if claim.DistanceEstimateMeters < 0 {
		return nil, ErrDistanceInvalid
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := victimKey{matchID: claim.MatchID, victimID: claim.VictimID}
	for _, id := range s.byVictim[key] {
		existing := s.claims[id]
		if existing.ShooterID == claim.ShooterID &&
			existing.Round == claim.Round &&
			existing.Status != models.ClaimStatusRejected {
			return s.snapshot(existing), ErrDuplicateClaim
		}
	}

	claim.ID = uuid.NewString()
	if claim.DeclaredAt.IsZero() {
		claim.DeclaredAt = s.now()
	}
	claim.Status = models.ClaimStatusPending

	stored := s.snapshot(claim)
	s.claims[stored.ID] = stored
	s.byVictim[key] = append(s.byVictim[key], stored.ID)
	s.byMatch[stored.MatchID] = append(s.byMatch[stored.MatchID], stored.ID)

	return s.snapshot(stored), nil
}

func (s *inMemoryClaimStore) Get(claimID string) (*models.KillClaim, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	claim, ok := s.claims[claimID]
	if !ok {
		return nil, ErrClaimNotFound
	}
	return s.snapshot(claim), nil
}

func (s *inMemoryClaimStore) ClaimsForVictim(matchID, victimID int) []*models.KillClaim {
	s.mu.RLock()
	defer s.mu.RUnlock()

	key := victimKey{matchID: matchID, victimID: victimID}
	claims := make([]*models.KillClaim, 0, len(s.byVictim[key]))
	for _, id := range s.byVictim[key] {
		claims = append(claims, s.snapshot(s.claims[id]))
	}
	return claims
}

func (s *inMemoryClaimStore) PendingForVictim(matchID, victimID, round int) []*models.KillClaim {
	s.mu.RLock()
	defer s.mu.RUnlock()

	key := victimKey{matchID: matchID, victimID: victimID}
	var pending []*models.KillClaim
	for _, id := range s.byVictim[key] {
		claim := s.claims[id]
		if claim.Round == round && claim.Status == models.ClaimStatusPending {
			pending = append(pending, s.snapshot(claim))
		}
	}
	return pending
}

func (s *inMemoryClaimStore) ClaimsForMatch(matchID int) []*models.KillClaim {
	s.mu.RLock()
	defer s.mu.RUnlock()

	claims := make([]*models.KillClaim, 0, len(s.byMatch[matchID]))
	for _, id := range s.byMatch[matchID] {
		claims = append(claims, s.snapshot(s.claims[id]))
	}
	return claims
}

func (s *inMemoryClaimStore) SetStatus(claimID string, status models.ClaimStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	claim, ok := s.claims[claimID]
	if !ok {
		return ErrClaimNotFound
	}
	if claim.Status.IsTerminal() {
		return ErrClaimFinal
	}
	claim.Status = status
	return nil
}

func (s *inMemoryClaimStore) SetAssist(claimID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	claim, ok := s.claims[claimID]
	if !ok {
		return ErrClaimNotFound
	}
	if claim.Status.IsTerminal() {
		return ErrClaimFinal
	}
	claim.Assist = true
	return nil
}

// snapshot копирует заявку, чтобы вызывающие не могли мутировать
// хранилище в обход SetStatus.
func (s *inMemoryClaimStore) snapshot(claim *models.KillClaim) *models.KillClaim {
	cp := *claim
	return &cp
}
