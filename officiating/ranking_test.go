package officiating

import (
	"testing"
	"time"

	"github.com/Dosada05/officiation-system/models"
)

func claimAt(id string, distance float64, declaredAt time.Time) *models.KillClaim {
	return &models.KillClaim{
		ID:                     id,
		DistanceEstimateMeters: distance,
		DeclaredAt:             declaredAt,
	}
}

func TestRank(t *testing.T) {
	base := time.Date(2026, 5, 14, 12, 0, 0, 0, time.UTC)

	t.Run("closer distance ranks first", func(t *testing.T) {
		a := claimAt("a", 12.0, base)
		b := claimAt("b", 7.5, base.Add(time.Second))
		ranked := Rank([]*models.KillClaim{a, b})
		if ranked[0].ID != "b" || ranked[1].ID != "a" {
			t.Fatalf("ranked order = [%s, %s], want [b, a]", ranked[0].ID, ranked[1].ID)
		}
	})

	t.Run("equal distance breaks by declared_at", func(t *testing.T) {
		a := claimAt("a", 7.5, base.Add(2*time.Second))
		b := claimAt("b", 7.5, base)
		ranked := Rank([]*models.KillClaim{a, b})
		if ranked[0].ID != "b" {
			t.Fatalf("earlier claim must rank first, got %s", ranked[0].ID)
		}
	})

	t.Run("full tie breaks by id", func(t *testing.T) {
		a := claimAt("zzz", 7.5, base)
		b := claimAt("aaa", 7.5, base)
		ranked := Rank([]*models.KillClaim{a, b})
		if ranked[0].ID != "aaa" {
			t.Fatalf("id tiebreak failed, got %s first", ranked[0].ID)
		}
	})

	t.Run("input slice is not mutated", func(t *testing.T) {
		a := claimAt("a", 12.0, base)
		b := claimAt("b", 7.5, base)
		input := []*models.KillClaim{a, b}
		Rank(input)
		if input[0].ID != "a" {
			t.Fatalf("Rank mutated its input: first element is %s", input[0].ID)
		}
	})
}

func TestEvaluate(t *testing.T) {
	base := time.Date(2026, 5, 14, 12, 0, 0, 0, time.UTC)

	t.Run("no claims", func(t *testing.T) {
		outcome := Evaluate(nil)
		if outcome.Kind != OutcomeNoClaim {
			t.Fatalf("kind = %s, want %s", outcome.Kind, OutcomeNoClaim)
		}
	})

	t.Run("single claim auto-confirms", func(t *testing.T) {
		outcome := Evaluate([]*models.KillClaim{claimAt("only", 9.0, base)})
		if outcome.Kind != OutcomeSingleClaim {
			t.Fatalf("kind = %s, want %s", outcome.Kind, OutcomeSingleClaim)
		}
		if outcome.ClaimID != "only" {
			t.Fatalf("claim id = %s, want only", outcome.ClaimID)
		}
	})

	t.Run("two claims open a conflict", func(t *testing.T) {
		outcome := Evaluate([]*models.KillClaim{
			claimAt("far", 12.0, base),
			claimAt("near", 7.5, base.Add(time.Second)),
		})
		if outcome.Kind != OutcomeConflict {
			t.Fatalf("kind = %s, want %s", outcome.Kind, OutcomeConflict)
		}
		if len(outcome.Ranked) != 2 || outcome.Ranked[0].ID != "near" {
			t.Fatalf("ranked = %v, want near first", outcome.Ranked)
		}
	})
}
