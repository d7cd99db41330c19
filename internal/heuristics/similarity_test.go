package heuristics

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rawblock/solsecurity/pkg/models"
)

func TestVisualTier(t *testing.T) {
	cases := []struct {
		p, s int
		want int
	}{
		{6, 0, 5}, {0, 6, 5},
		{5, 1, 5}, {1, 5, 5},
		{4, 2, 5}, {2, 4, 5},
		{3, 3, 5},
		{4, 1, 4}, {1, 4, 4},
		{3, 2, 4}, {2, 3, 4},
		{2, 2, 3},
		{3, 0, 3}, {0, 3, 3}, {5, 0, 3},
		{2, 1, 2}, {1, 2, 2},
		{2, 0, 2}, {0, 2, 2},
		{1, 1, 1},
		{1, 0, 1}, {0, 1, 1},
		{0, 0, 0},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, VisualTier(tc.p, tc.s), "p=%d s=%d", tc.p, tc.s)
	}
}

func TestVisualTierSymmetricAndMonotonic(t *testing.T) {
	for p := 0; p <= MaxRunLength; p++ {
		for s := 0; s <= MaxRunLength; s++ {
			tier := VisualTier(p, s)
			assert.Equal(t, tier, VisualTier(s, p), "symmetry p=%d s=%d", p, s)
			if p < MaxRunLength {
				assert.GreaterOrEqual(t, VisualTier(p+1, s), tier, "monotonic in p at p=%d s=%d", p, s)
			}
			if s < MaxRunLength {
				assert.GreaterOrEqual(t, VisualTier(p, s+1), tier, "monotonic in s at p=%d s=%d", p, s)
			}
		}
	}
}

func TestCommonRunsCapped(t *testing.T) {
	a := "abcdefghij1234567890"
	b := "abcdefghXX1234567890"
	assert.Equal(t, MaxRunLength, CommonPrefixLen(a, b))
	assert.Equal(t, MaxRunLength, CommonSuffixLen(a, b))
	assert.Equal(t, 0, CommonPrefixLen("", b))
	assert.Equal(t, 2, CommonSuffixLen("xxab", "ab"))
}

func TestPrefix4Strategy(t *testing.T) {
	s := Prefix4Strategy{}

	tier, ok := s.Match("wxyz9999abcd", "wxyz5678abcd")
	require.True(t, ok)
	assert.Equal(t, 5, tier)

	_, ok = s.Match("wxyq9999abce", "wxyz5678abcd")
	assert.False(t, ok, "3 shared chars on each side is not a prefix4 match")

	_, ok = s.Match("abc", "abcd")
	assert.False(t, ok)
}

func TestTieredStrategy(t *testing.T) {
	s := TieredStrategy{MinTier: 3}

	tier, ok := s.Match("wxq9999abcx", "wxz5678abcd")
	assert.False(t, ok)
	assert.Equal(t, 2, tier)

	tier, ok = s.Match("wxyq999bcd", "wxyz567bcd")
	assert.True(t, ok)
	assert.Equal(t, 5, tier)
}

func TestNewStrategy(t *testing.T) {
	s, err := NewStrategy("", 0)
	require.NoError(t, err)
	assert.Equal(t, StrategyPrefix4, s.Name())

	s, err = NewStrategy("Tiered", 9)
	require.NoError(t, err)
	assert.Equal(t, TieredStrategy{MinTier: DefaultMinTier}, s)

	_, err = NewStrategy("levenshtein", 0)
	assert.Error(t, err)
}

func sender(addr string, amount string) models.SenderRecord {
	return models.SenderRecord{
		Address:    addr,
		Amount:     decimal.RequireFromString(amount),
		AssetClass: models.AssetNative,
	}
}

func TestMatchMimicryExcludesExactMatches(t *testing.T) {
	senders := []models.SenderRecord{
		sender("WXYZ5678abcd", "1"),
		sender("wxyz5678ABCD", "1"),
	}
	recipients := []string{"WXYZ5678abcd"}

	for _, strategy := range []SimilarityStrategy{Prefix4Strategy{}, TieredStrategy{MinTier: 1}} {
		assert.Empty(t, MatchMimicry(senders, recipients, strategy), strategy.Name())
	}
}

func TestMatchMimicryOnePerPair(t *testing.T) {
	senders := []models.SenderRecord{sender("WXYZ9999abcd", "0.000005")}
	recipients := []string{"WXYZ5678abcd", "wxyz1111QQQQ", "Unrelated000"}

	matches := MatchMimicry(senders, recipients, Prefix4Strategy{})
	require.Len(t, matches, 2)
	assert.Equal(t, "WXYZ5678abcd", matches[0].MimickedAddress)
	assert.Equal(t, "wxyz1111QQQQ", matches[1].MimickedAddress)
	assert.Equal(t, "WXYZ9999abcd", matches[0].Sender.Address, "original casing preserved")
}

func TestMatchMimicryParallelMatchesSequential(t *testing.T) {
	var senders []models.SenderRecord
	for i := 0; i < matcherFanOut*2; i++ {
		addr := "WXYZ" + string(rune('a'+i%26)) + "000abcd"
		if i%3 == 0 {
			addr = "QQQQ" + string(rune('a'+i%26)) + "000zzzz"
		}
		senders = append(senders, sender(addr, "0.1"))
	}
	recipients := []string{"WXYZ5678abcd"}

	matches := MatchMimicry(senders, recipients, Prefix4Strategy{})

	var want []string
	for _, s := range senders {
		if s.Address[:4] == "WXYZ" {
			want = append(want, s.Address)
		}
	}
	got := make([]string, 0, len(matches))
	for _, m := range matches {
		got = append(got, m.Sender.Address)
	}
	assert.Equal(t, want, got)
}
