package resolve

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScore_Identical(t *testing.T) {
	assert.Equal(t, 100, Score("ACMEROBOTICS", "ACMEROBOTICS"))
}

func TestScore_Empty(t *testing.T) {
	assert.Equal(t, 0, Score("", "ACME"))
	assert.Equal(t, 0, Score("ACME", ""))
	assert.Equal(t, 0, Score("", ""))
}

func TestScore_EmbeddedNameScoresPartialWeight(t *testing.T) {
	// "ACMEINC" is a perfect window inside "ACMEINCORPORATED", so the
	// weighted partial similarity (0.9) dominates the whole-string one.
	assert.Equal(t, 90, Score("ACMEINCORPORATED", "ACMEINC"))
}

func TestScore_RanksCloserNameHigher(t *testing.T) {
	target := "ACMEINCORPORATED"
	assert.Greater(t, Score(target, "ACMEINC"), Score(target, "ACMECO"))
}

func TestScore_Symmetric(t *testing.T) {
	assert.Equal(t, Score("ACMEINCORPORATED", "ACMEINC"), Score("ACMEINC", "ACMEINCORPORATED"))
	assert.Equal(t, Score("INITECH", "INTECH"), Score("INTECH", "INITECH"))
}

func TestScore_Bounds(t *testing.T) {
	pairs := [][2]string{
		{"A", "ZZZZZZZZZZ"},
		{"GLOBEX", "INITECH"},
		{"ACME", "ACMEROBOTICSINTERNATIONALHOLDINGS"},
	}
	for _, p := range pairs {
		s := Score(p[0], p[1])
		assert.GreaterOrEqual(t, s, 0, "%s vs %s", p[0], p[1])
		assert.LessOrEqual(t, s, 100, "%s vs %s", p[0], p[1])
	}
}

func TestDistance(t *testing.T) {
	assert.Equal(t, 0, Distance("ACME", "ACME"))
	assert.Equal(t, 1, Distance("ACME", "ACMES"))
	assert.Equal(t, 1, Distance("AAAB", "AAAC"))
}
