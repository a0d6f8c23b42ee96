package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCandidateIDs_Key(t *testing.T) {
	tests := []struct {
		name     string
		ids      CandidateIDs
		expected string
	}{
		{
			name:     "doi wins over everything",
			ids:      CandidateIDs{PrimaryID: "111", SecondaryID: "PMC222", DOI: "10.1000/ABC"},
			expected: "doi:10.1000/abc",
		},
		{
			name:     "doi resolver prefix stripped",
			ids:      CandidateIDs{DOI: "https://doi.org/10.1000/X"},
			expected: "doi:10.1000/x",
		},
		{
			name:     "secondary id when no doi",
			ids:      CandidateIDs{PrimaryID: "111", SecondaryID: "pmc222"},
			expected: "pmcid:PMC222",
		},
		{
			name:     "primary id last",
			ids:      CandidateIDs{PrimaryID: " 111 "},
			expected: "pmid:111",
		},
		{
			name:     "empty set",
			ids:      CandidateIDs{Error: "invalid article id"},
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.ids.Key())
		})
	}
}

func TestCandidateIDs_Keys(t *testing.T) {
	ids := CandidateIDs{PrimaryID: "1", SecondaryID: "PMC2", DOI: "10.1/x"}
	assert.Equal(t, []string{"doi:10.1/x", "pmcid:PMC2", "pmid:1"}, ids.Keys())
	assert.Empty(t, CandidateIDs{}.Keys())
}

func TestCandidateIDs_Empty(t *testing.T) {
	assert.True(t, CandidateIDs{}.Empty())
	assert.True(t, CandidateIDs{PrimaryID: "  ", Error: "boom"}.Empty())
	assert.False(t, CandidateIDs{SecondaryID: "PMC1"}.Empty())
}

func TestCandidateIDs_Merge(t *testing.T) {
	got := CandidateIDs{SecondaryID: "PMC1"}.Merge(CandidateIDs{PrimaryID: "9", SecondaryID: "PMC2", DOI: "10.1/y"})
	assert.Equal(t, CandidateIDs{PrimaryID: "9", SecondaryID: "PMC1", DOI: "10.1/y"}, got)
}

func TestCandidateIDs_String(t *testing.T) {
	ids := CandidateIDs{PrimaryID: "1", DOI: "10.1/x"}
	assert.Equal(t, "PMID:1 DOI:10.1/x", ids.String())
}

func TestNormalizePMCID(t *testing.T) {
	assert.Equal(t, "PMC123", NormalizePMCID("123"))
	assert.Equal(t, "PMC123", NormalizePMCID("pmc123"))
	assert.Equal(t, "", NormalizePMCID(" "))
}

func TestFormatDateIssued(t *testing.T) {
	assert.Equal(t, "2021", FormatDateIssued(2021, 0, 0))
	assert.Equal(t, "2021-03", FormatDateIssued(2021, 3, 0))
	assert.Equal(t, "2021-03-09", FormatDateIssued(2021, 3, 9))
	assert.Equal(t, "", FormatDateIssued(0, 3, 9))
}

func TestCategory(t *testing.T) {
	for _, c := range Categories() {
		assert.True(t, c.IsValid(), c)
	}
	assert.False(t, Category("unknown").IsValid())
	assert.True(t, CategoryAttached.IsSuccess())
	assert.False(t, CategorySkipped.IsSuccess())
	assert.Equal(t, "skipped_non_unc_affiliation", string(CategorySkippedAffiliation))
}

func TestFailedOutcome(t *testing.T) {
	ids := CandidateIDs{PrimaryID: "1"}
	o := Failed(ids, "create", errors.New("boom"))

	assert.Equal(t, CategoryFailed, o.Category)
	assert.Equal(t, "create: boom", o.Message)
	assert.Equal(t, "pmid:1", o.Key())
	assert.False(t, o.Timestamp.IsZero())
}
