package keys

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestPartitions(t *testing.T) {
	assert.Equal(t, "VOTES#burger-2024", Votes("burger-2024"))
	assert.Equal(t, "SYNTHETIC_VOTES#burger-2024", SyntheticVotes("burger-2024"))
	assert.NotEqual(t, Votes("m"), SyntheticVotes("m"))
}

func TestNormalizeFingerprint(t *testing.T) {
	assert.Equal(t, "anon", NormalizeFingerprint(""))
	assert.Equal(t, "anon", NormalizeFingerprint("   "))
	assert.Equal(t, "u1", NormalizeFingerprint(" u1 "))
	assert.Len(t, NormalizeFingerprint(strings.Repeat("x", 500)), 200)
}

func TestNormalizeFingerprintKeepsWholeRunes(t *testing.T) {
	got := NormalizeFingerprint("x" + strings.Repeat("é", 150))
	assert.True(t, utf8.ValidString(got))
	assert.Len(t, got, 199)
	assert.Equal(t, "x"+strings.Repeat("é", 99), got)
}

func TestVoterPrefixDoesNotOverlap(t *testing.T) {
	plain := VoterPrefix("a")
	nested := VoteEventSort("a#b", "2024-01-01T00:00:00.000000Z")

	assert.Equal(t, "V#a#", plain)
	assert.False(t, strings.HasPrefix(nested, plain))
	assert.Equal(t, "V#a%23b#2024-01-01T00:00:00.000000Z", nested)
	assert.Equal(t, "V#100%25#", VoterPrefix("100%"))
}

func TestIsVoteEventSort(t *testing.T) {
	assert.True(t, IsVoteEventSort(VoteEventSort("u1", "ts")))
	assert.False(t, IsVoteEventSort(TallySort))
}

func TestPairKeyIsUnordered(t *testing.T) {
	assert.Equal(t, PairKey("a", "b"), PairKey("b", "a"))
	assert.NotEqual(t, PairKey("a", "b"), PairKey("a", "c"))
	assert.NotEqual(t, PairKey("ab", "c"), PairKey("a", "bc"))
}
