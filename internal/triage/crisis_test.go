package triage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCrisisDetectorScan(t *testing.T) {
	detector := NewCrisisDetector([]string{"suicide", "end my life", "self harm", "  HURT MYSELF  "})

	tests := []struct {
		name     string
		text     string
		detected bool
		keywords []string
	}{
		{
			name:     "no indicators",
			text:     "I cannot register for classes next semester",
			detected: false,
		},
		{
			name:     "single phrase",
			text:     "sometimes I think about suicide",
			detected: true,
			keywords: []string{"suicide"},
		},
		{
			name:     "case insensitive",
			text:     "I want to END MY LIFE",
			detected: true,
			keywords: []string{"end my life"},
		},
		{
			name:     "multiple phrases all reported",
			text:     "thoughts of self harm, I might hurt myself",
			detected: true,
			keywords: []string{"self harm", "hurt myself"},
		},
		{
			name:     "substring inside larger word still matches",
			text:     "reading about suicideprevention resources",
			detected: true,
			keywords: []string{"suicide"},
		},
		{
			name:     "empty text",
			text:     "   ",
			detected: false,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			result := detector.Scan(tc.text)
			assert.Equal(t, tc.detected, result.Detected)
			assert.Equal(t, tc.keywords, result.Keywords)
		})
	}
}

func TestCrisisDetectorNormalizesConfiguredPhrases(t *testing.T) {
	detector := NewCrisisDetector([]string{"  ", "", "Want To Die"})
	result := detector.Scan("i just want to die")
	assert.True(t, result.Detected)
	assert.Equal(t, []string{"want to die"}, result.Keywords)
}
