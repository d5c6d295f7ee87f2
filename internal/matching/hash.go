package matching

import (
	"crypto/sha1" // #nosec G505 -- cache key, not a security boundary
	"encoding/hex"

	"github.com/Veraticus/longbox/internal/model"
)

// MatchHashLength is the number of hex characters kept from the digest.
const MatchHashLength = 12

// ComputeMatchHash fingerprints a normalized (title, issue, publisher) triple.
func ComputeMatchHash(key model.MatchKey) string {
	issue, publisher := "", ""
	if key.Issue != nil {
		issue = *key.Issue
	}
	if key.Publisher != nil {
		publisher = *key.Publisher
	}

	data := Normalize(key.Title) + "|" + Normalize(issue) + "|" + Normalize(publisher)
	sum := sha1.Sum([]byte(data)) // #nosec G401
	return hex.EncodeToString(sum[:])[:MatchHashLength]
}
