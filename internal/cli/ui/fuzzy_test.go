package ui

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLevenshteinDistance(t *testing.T) {
	tests := []struct {
		s1       string
		s2       string
		expected int
	}{
		{"", "", 0},
		{"", "abc", 3},
		{"abc", "", 3},
		{"abc", "abc", 0},
		{"kitten", "sitting", 3},
		{"saturday", "sunday", 3},
		{"Owner", "Onwer", 2},
		{"Pet", "Pets", 1},
		{"café", "cafe", 1},
	}

	for _, tt := range tests {
		t.Run(tt.s1+"_"+tt.s2, func(t *testing.T) {
			assert.Equal(t, tt.expected, LevenshteinDistance(tt.s1, tt.s2))
		})
	}
}

func TestFindSimilar(t *testing.T) {
	candidates := []string{"petclinic.Owner", "petclinic.Pet", "petclinic.Visit", "petclinic.Vet"}

	tests := []struct {
		name     string
		target   string
		opts     *FuzzyMatchOptions
		expected []string
	}{
		{
			name:     "qualified typo",
			target:   "petclinic.Onwer",
			expected: []string{"petclinic.Owner"},
		},
		{
			name:     "type name only",
			target:   "owner",
			expected: []string{"petclinic.Owner"},
		},
		{
			name:     "closest first",
			target:   "Vett",
			expected: []string{"petclinic.Vet", "petclinic.Pet", "petclinic.Visit"},
		},
		{
			name:     "case sensitive",
			target:   "owner",
			opts:     &FuzzyMatchOptions{CaseSensitive: true, MaxDistance: 1},
			expected: []string{"petclinic.Owner"},
		},
		{
			name:     "limited",
			target:   "Pat",
			opts:     &FuzzyMatchOptions{MaxDistance: 1, MaxSuggestions: 1},
			expected: []string{"petclinic.Pet"},
		},
		{
			name:     "nothing close",
			target:   "Invoice",
			opts:     &FuzzyMatchOptions{MaxDistance: 2},
			expected: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, FindSimilar(tt.target, candidates, tt.opts))
		})
	}
}

func TestFindBestMatch(t *testing.T) {
	candidates := []string{"Pets", "FirstName", "LastName"}

	assert.Equal(t, "Pets", FindBestMatch("Pest", candidates, nil))
	assert.Equal(t, "", FindBestMatch("Telephone", candidates, &FuzzyMatchOptions{MaxDistance: 1}))
	assert.Empty(t, FindSimilar("Pets", nil, nil))
}
