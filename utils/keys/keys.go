// Package keys builds the composite partition and sort keys of the single-table
// layout shared by every store driver.
package keys

import (
	"strings"
	"unicode/utf8"
)

const (
	EntryPartition   = "ENTRY"
	MatchupPartition = "MATCHUP"
	TallySort        = "TOTAL"

	// LegacyActiveSort is the retired single "active matchup" pointer row.
	// Readers skip it.
	LegacyActiveSort = "ACTIVE"

	AnonymousFingerprint = "anon"

	votesPrefix          = "VOTES#"
	syntheticVotesPrefix = "SYNTHETIC_VOTES#"
	voterPrefix          = "V#"
	maxFingerprintBytes  = 200
)

var fingerprintEscaper = strings.NewReplacer("%", "%25", "#", "%23")

// Votes is the partition holding a matchup's real tally and its vote events.
func Votes(matchupID string) string {
	return votesPrefix + matchupID
}

// SyntheticVotes is the partition holding the load-test tally.
func SyntheticVotes(matchupID string) string {
	return syntheticVotesPrefix + matchupID
}

// NormalizeFingerprint trims the client value, substitutes the anonymous
// default and caps its length.
func NormalizeFingerprint(fingerprint string) string {
	trimmed := strings.TrimSpace(fingerprint)
	if trimmed == "" {
		return AnonymousFingerprint
	}
	if len(trimmed) > maxFingerprintBytes {
		cut := maxFingerprintBytes
		for cut > 0 && !utf8.RuneStart(trimmed[cut]) {
			cut--
		}
		trimmed = trimmed[:cut]
	}
	return trimmed
}

// VoterPrefix scopes a range query to one fingerprint's vote events.
// The separator is escaped inside the fingerprint so "a" never matches "a#b".
func VoterPrefix(fingerprint string) string {
	return voterPrefix + fingerprintEscaper.Replace(NormalizeFingerprint(fingerprint)) + "#"
}

// VoteEventSort is the time-ordered sort key of one vote event. timestamp must
// be in timeutil.Layout.
func VoteEventSort(fingerprint, timestamp string) string {
	return VoterPrefix(fingerprint) + timestamp
}

// IsVoteEventSort reports whether sk names a vote event row.
func IsVoteEventSort(sk string) bool {
	return strings.HasPrefix(sk, voterPrefix)
}

// PairKey identifies the unordered pair of entry ids.
func PairKey(leftEntryID, rightEntryID string) string {
	a, b := leftEntryID, rightEntryID
	if b < a {
		a, b = b, a
	}
	return a + "\x00" + b
}
