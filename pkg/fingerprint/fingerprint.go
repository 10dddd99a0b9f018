// Package fingerprint derives the dedupe identity of an ingested mention.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/Ramsey-B/sorrel/pkg/models"
)

// Mention computes a deterministic fingerprint over a mention's identity
// fields: document, raw text and entity type, plus the page when present.
// Volatile fields (role, surrounding context, the observation date,
// timestamps) are excluded so a re-extraction of the same document produces
// the same fingerprints even when the extractor's classification drifts.
func Mention(documentID string, rawText string, entityType models.EntityType, page *int) string {
	pagePart := ""
	if page != nil {
		pagePart = fmt.Sprintf("%d", *page)
	}

	canonical := strings.Join([]string{
		documentID,
		collapseWhitespace(rawText),
		string(entityType),
		pagePart,
	}, "\x1f")

	hash := sha256.Sum256([]byte(canonical))
	return hex.EncodeToString(hash[:])
}

// HasChanged compares two fingerprints to detect changes
func HasChanged(oldFingerprint, newFingerprint string) bool {
	return oldFingerprint != newFingerprint
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
