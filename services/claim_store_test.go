package services

import (
	"errors"
	"testing"

	"github.com/Dosada05/officiation-system/models"
)

func newClaim(matchID, shooterID, victimID, round int) *models.KillClaim {
	return &models.KillClaim{
		MatchID:                matchID,
		ShooterID:              shooterID,
		VictimID:               victimID,
		Round:                  round,
		DistanceEstimateMeters: 10,
	}
}

func TestClaimStoreSubmit(t *testing.T) {
	store := NewClaimStore()

	claim, err := store.Submit(newClaim(1, 10, 20, 1))
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if claim.ID == "" {
		t.Fatal("Submit did not assign an ID")
	}
	if claim.Status != models.ClaimStatusPending {
		t.Fatalf("new claim status = %s, want pending", claim.Status)
	}
	if claim.DeclaredAt.IsZero() {
		t.Fatal("Submit did not stamp DeclaredAt")
	}
}

func TestClaimStoreSubmitNegativeDistance(t *testing.T) {
	store := NewClaimStore()
	c := newClaim(1, 10, 20, 1)
	c.DistanceEstimateMeters = -1
	if _, err := store.Submit(c); !errors.Is(err, ErrDistanceInvalid) {
		t.Fatalf("Submit with negative distance: err = %v, want ErrDistanceInvalid", err)
	}
}

func TestClaimStoreDuplicate(t *testing.T) {
	store := NewClaimStore()

	first, err := store.Submit(newClaim(1, 10, 20, 1))
	if err != nil {
		t.Fatalf("first Submit failed: %v", err)
	}

	dup, err := store.Submit(newClaim(1, 10, 20, 1))
	if !errors.Is(err, ErrDuplicateClaim) {
		t.Fatalf("duplicate Submit: err = %v, want ErrDuplicateClaim", err)
	}
	if dup == nil || dup.ID != first.ID {
		t.Fatalf("duplicate Submit must return the existing claim, got %+v", dup)
	}

	// Другой раунд — уже не дубликат.
	if _, err := store.Submit(newClaim(1, 10, 20, 2)); err != nil {
		t.Fatalf("same pair in a new round must be accepted: %v", err)
	}
	// Другой стрелок — тоже не дубликат.
	if _, err := store.Submit(newClaim(1, 11, 20, 1)); err != nil {
		t.Fatalf("different shooter must be accepted: %v", err)
	}
}

func TestClaimStoreResubmitAfterRejection(t *testing.T) {
	store := NewClaimStore()

	first, err := store.Submit(newClaim(1, 10, 20, 1))
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if err := store.SetStatus(first.ID, models.ClaimStatusRejected); err != nil {
		t.Fatalf("SetStatus failed: %v", err)
	}

	second, err := store.Submit(newClaim(1, 10, 20, 1))
	if err != nil {
		t.Fatalf("resubmit after rejection must be accepted: %v", err)
	}
	if second.ID == first.ID {
		t.Fatal("resubmit returned the rejected claim instead of a new one")
	}
}

func TestClaimStoreTerminalStatusIsImmutable(t *testing.T) {
	terminalStatuses := []models.ClaimStatus{
		models.ClaimStatusAutoConfirmed,
		models.ClaimStatusRefereeConfirmed,
		models.ClaimStatusRejected,
		models.ClaimStatusInvalidated,
	}
	for _, status := range terminalStatuses {
		t.Run(string(status), func(t *testing.T) {
			store := NewClaimStore()
			claim, err := store.Submit(newClaim(1, 10, 20, 1))
			if err != nil {
				t.Fatalf("Submit failed: %v", err)
			}
			if err := store.SetStatus(claim.ID, status); err != nil {
				t.Fatalf("SetStatus(%s) failed: %v", status, err)
			}
			if err := store.SetStatus(claim.ID, models.ClaimStatusRejected); !errors.Is(err, ErrClaimFinal) {
				t.Fatalf("second SetStatus: err = %v, want ErrClaimFinal", err)
			}
			if err := store.SetAssist(claim.ID); !errors.Is(err, ErrClaimFinal) {
				t.Fatalf("SetAssist on terminal claim: err = %v, want ErrClaimFinal", err)
			}
			got, err := store.Get(claim.ID)
			if err != nil {
				t.Fatalf("Get failed: %v", err)
			}
			if got.Status != status {
				t.Fatalf("terminal status changed from %s to %s", status, got.Status)
			}
		})
	}
}

func TestClaimStoreSnapshots(t *testing.T) {
	store := NewClaimStore()
	claim, err := store.Submit(newClaim(1, 10, 20, 1))
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	// Мутация выданной копии не должна затрагивать хранилище.
	claim.Status = models.ClaimStatusRejected
	stored, err := store.Get(claim.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if stored.Status != models.ClaimStatusPending {
		t.Fatalf("stored claim mutated through a snapshot: status = %s", stored.Status)
	}
}

func TestClaimStorePendingForVictim(t *testing.T) {
	store := NewClaimStore()

	a, _ := store.Submit(newClaim(1, 10, 20, 1))
	b, _ := store.Submit(newClaim(1, 11, 20, 1))
	store.Submit(newClaim(1, 12, 20, 2)) // другой раунд
	store.Submit(newClaim(1, 10, 21, 1)) // другая жертва
	if err := store.SetStatus(b.ID, models.ClaimStatusInvalidated); err != nil {
		t.Fatalf("SetStatus failed: %v", err)
	}

	pending := store.PendingForVictim(1, 20, 1)
	if len(pending) != 1 || pending[0].ID != a.ID {
		t.Fatalf("PendingForVictim returned %d claims, want exactly the pending one", len(pending))
	}

	all := store.ClaimsForVictim(1, 20)
	if len(all) != 3 {
		t.Fatalf("ClaimsForVictim returned %d claims, want 3", len(all))
	}
	if got := len(store.ClaimsForMatch(1)); got != 4 {
		t.Fatalf("ClaimsForMatch returned %d claims, want 4", got)
	}
}
