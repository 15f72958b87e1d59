package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectConflicts(t *testing.T) {
	t.Run("single candidate never conflicts", func(t *testing.T) {
		c := pct("solo", SourcePromotional, "10")
		c.Stackable = false
		assert.Empty(t, DetectConflicts([]DiscountCandidate{c}))
	})

	t.Run("different stackable types", func(t *testing.T) {
		got := DetectConflicts([]DiscountCandidate{pct("v", SourceVolume, "15"), pct("c", SourceCategory, "5")})
		assert.Empty(t, got)
	})

	t.Run("duplicate source type", func(t *testing.T) {
		got := DetectConflicts([]DiscountCandidate{
			pct("p-small", SourcePromotional, "5"),
			pct("v", SourceVolume, "15"),
			pct("p-big", SourcePromotional, "10"),
		})
		require.Len(t, got, 1)
		assert.Equal(t, ConflictDuplicateSource, got[0].Kind)
		assert.Equal(t, SourcePromotional, got[0].SourceType)
		assert.Equal(t, []string{"p-big", "p-small"}, got[0].CandidateIDs)
	})

	t.Run("non stackable alongside others", func(t *testing.T) {
		exclusive := pct("x", SourceCategory, "20")
		exclusive.Stackable = false
		got := DetectConflicts([]DiscountCandidate{pct("e", SourceEarlyPayment, "2"), exclusive})
		require.Len(t, got, 1)
		assert.Equal(t, ConflictNonStackable, got[0].Kind)
		assert.Equal(t, []string{"x"}, got[0].CandidateIDs)
	})

	t.Run("order independent", func(t *testing.T) {
		a := pct("a", SourceVolume, "5")
		b := pct("b", SourceVolume, "5")
		b.Stackable = false
		assert.Equal(t,
			DetectConflicts([]DiscountCandidate{a, b}),
			DetectConflicts([]DiscountCandidate{b, a}))
	})
}
