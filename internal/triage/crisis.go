package triage

import "strings"

// CrisisResult carries the outcome of a crisis keyword scan.
type CrisisResult struct {
	Detected bool
	Keywords []string
}

// CrisisDetector scans free text against a configured phrase set.
type CrisisDetector struct {
	keywords []string
}

// NewCrisisDetector builds a detector over the configured phrases.
// Phrases are stored lowercased; empty entries are dropped.
func NewCrisisDetector(keywords []string) *CrisisDetector {
	normalized := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw != "" {
			normalized = append(normalized, kw)
		}
	}
	return &CrisisDetector{keywords: normalized}
}

// Scan lowercases and trims the text, then reports every configured phrase
// it contains. Matching is raw substring, not word-boundary aware; phrases
// ship multi-word to keep false positives down.
func (d *CrisisDetector) Scan(text string) CrisisResult {
	haystack := strings.ToLower(strings.TrimSpace(text))
	if haystack == "" {
		return CrisisResult{}
	}
	var matched []string
	for _, kw := range d.keywords {
		if strings.Contains(haystack, kw) {
			matched = append(matched, kw)
		}
	}
	return CrisisResult{Detected: len(matched) > 0, Keywords: matched}
}
