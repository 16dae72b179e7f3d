package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerateTipsZeroResultsWithFilters(t *testing.T) {
	req := Request{Query: "foo", Filters: Filters{Repository: "repo-1"}}
	tips := GenerateTips(req, []Scope{ScopeCode}, Counts{Total: 0}, nil)
	assert.Len(t, tips, 2)
	assert.Contains(t, tips[0], "No results found")
	assert.Contains(t, tips[1], "filters")
}

func TestGenerateTipsSuppressesAlreadyShown(t *testing.T) {
	req := Request{Query: "foo"}
	tips := GenerateTips(req, []Scope{ScopeCode}, Counts{Total: 0}, []string{"No results found. Try broader terms."})
	assert.NotContains(t, tips, "No results found. Try broader terms.")
}

func TestGenerateTipsSymbolKeywordSuggestsScope(t *testing.T) {
	req := Request{Query: "find the Authenticate function"}
	tips := GenerateTips(req, []Scope{ScopeCode}, Counts{Total: 5}, nil)
	found := false
	for _, tip := range tips {
		if tip == "Try scope=[symbols] for declarations like this." {
			found = true
		}
	}
	assert.True(t, found)
}

func TestGenerateTipsCapsAtTwo(t *testing.T) {
	req := Request{Query: "why did we choose this error bug fail pattern convention function"}
	tips := GenerateTips(req, []Scope{ScopeCode}, Counts{Total: 50}, nil)
	assert.LessOrEqual(t, len(tips), 2)
}
