package model

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// EvidenceSourceType classifies where an evidence chunk came from.
type EvidenceSourceType string

const (
	SourceJobPost      EvidenceSourceType = "job_post"
	SourcePressRelease EvidenceSourceType = "press_release"
	SourceSECFiling    EvidenceSourceType = "sec_filing"
	SourceBlog         EvidenceSourceType = "blog"
	SourceNews         EvidenceSourceType = "news"
	SourceCompanySite  EvidenceSourceType = "company_site"
	SourceOther        EvidenceSourceType = "other"
)

// primarySourceTypes are the types the evidence gate treats as
// first-party or authoritative.
var primarySourceTypes = map[EvidenceSourceType]bool{
	SourceCompanySite:  true,
	SourceJobPost:      true,
	SourcePressRelease: true,
	SourceSECFiling:    true,
}

// IsPrimary reports whether t counts as a primary source for gating.
func (t EvidenceSourceType) IsPrimary() bool {
	return primarySourceTypes[t]
}

// EvidenceChunk is a hashed, source-typed snippet of text backing a signal
// judgment. Chunks accumulate per domain and are never mutated once created.
type EvidenceChunk struct {
	URL        string             `json:"url"`
	Title      string             `json:"title"`
	Snippet    string             `json:"snippet"`
	SourceType EvidenceSourceType `json:"source_type"`
	FetchedAt  time.Time          `json:"fetched_at"`
	Hash       string             `json:"hash"`
}

// NewEvidenceChunk builds a chunk with its content hash set.
func NewEvidenceChunk(url, title, snippet string, sourceType EvidenceSourceType, fetchedAt time.Time) EvidenceChunk {
	return EvidenceChunk{
		URL:        url,
		Title:      title,
		Snippet:    snippet,
		SourceType: sourceType,
		FetchedAt:  fetchedAt,
		Hash:       ChunkHash(url, snippet),
	}
}

// ChunkHash is the content-addressed dedup key over "url:snippet".
func ChunkHash(url, snippet string) string {
	sum := sha256.Sum256([]byte(url + ":" + snippet))
	return hex.EncodeToString(sum[:])[:16]
}

// ChunkURLSet returns the set of URLs present in the chunk list; this is the
// ground truth the citation validator checks against.
func ChunkURLSet(chunks []EvidenceChunk) map[string]bool {
	set := make(map[string]bool, len(chunks))
	for _, c := range chunks {
		set[c.URL] = true
	}
	return set
}

// HasPrimarySource reports whether any chunk carries a primary source type.
func HasPrimarySource(chunks []EvidenceChunk) bool {
	for _, c := range chunks {
		if c.SourceType.IsPrimary() {
			return true
		}
	}
	return false
}
