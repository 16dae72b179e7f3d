package query

import (
	"regexp"
)

// tip pairs a suggestion string with its priority for sorting (§4.7.4).
type tip struct {
	text     string
	priority int // 0 = high, 1 = low
}

const (
	priorityHigh = 0
	priorityLow  = 1
)

var (
	symbolKeywordRe   = regexp.MustCompile(`(?i)\b(function|class|interface|type|method|component)\b`)
	filePathLikeRe    = regexp.MustCompile(`[./][\w-]+\.[A-Za-z0-9]+$|^[\w-]+/[\w./-]+$`)
	decisionKeywordRe = regexp.MustCompile(`(?i)\b(why|reason|decision|chose|choice)\b`)
	patternKeywordRe  = regexp.MustCompile(`(?i)\b(how|pattern|best practice|convention)\b`)
	failureKeywordRe  = regexp.MustCompile(`(?i)\b(error|bug|fail|issue|problem|fix)\b`)
)

// GenerateTips implements §4.7.4: up to two suggestions, high-priority
// first, excluding any already shown to the same caller in its recent
// history.
func GenerateTips(req Request, scopes []Scope, counts Counts, recentTips []string) []string {
	hasScope := func(s Scope) bool {
		for _, sc := range scopes {
			if sc == s {
				return true
			}
		}
		return false
	}
	hasFilters := req.Filters.Repository != "" || req.Filters.Glob != "" || req.Filters.Language != "" ||
		len(req.Filters.SymbolKinds) > 0 || req.Filters.ExportedOnly

	var tips []tip

	if counts.Total == 0 {
		tips = append(tips, tip{"No results found. Try broader terms.", priorityHigh})
		if hasFilters {
			tips = append(tips, tip{"Active filters may be excluding matches.", priorityHigh})
		}
	}
	if symbolKeywordRe.MatchString(req.Query) && !hasScope(ScopeSymbols) {
		tips = append(tips, tip{"Try scope=[symbols] for declarations like this.", priorityHigh})
	}
	if filePathLikeRe.MatchString(req.Query) && hasScope(ScopeCode) {
		tips = append(tips, tip{"Use search_dependencies to trace imports for this path.", priorityHigh})
	}
	if hasScope(ScopeSymbols) && !req.Filters.ExportedOnly && counts.Symbols > 10 {
		tips = append(tips, tip{"Add exported_only:true to narrow symbol results.", priorityLow})
	}
	if req.Filters.Repository == "" && counts.Total > 20 {
		tips = append(tips, tip{"Add a repository filter to narrow results.", priorityLow})
	}
	if hasScope(ScopeCode) && req.Filters.Glob == "" && req.Filters.Language == "" && counts.Code > 15 {
		tips = append(tips, tip{"Add a glob or language filter to narrow code results.", priorityLow})
	}
	if decisionKeywordRe.MatchString(req.Query) && !hasScope(ScopeDecisions) {
		tips = append(tips, tip{"Try scope=[decisions] for the reasoning behind this.", priorityHigh})
	}
	if patternKeywordRe.MatchString(req.Query) && !hasScope(ScopePatterns) {
		tips = append(tips, tip{"Try scope=[patterns] for established conventions.", priorityHigh})
	}
	if failureKeywordRe.MatchString(req.Query) && !hasScope(ScopeFailures) {
		tips = append(tips, tip{"Try scope=[failures] for recorded prior issues.", priorityHigh})
	}
	if len(scopes) == 1 && scopes[0] == ScopeCode {
		tips = append(tips, tip{"Search multiple scopes at once for broader context.", priorityLow})
	}
	if counts.Total > 30 {
		tips = append(tips, tip{"Use output=compact for a denser result list.", priorityLow})
	}

	shown := make(map[string]bool, len(recentTips))
	for _, t := range recentTips {
		shown[t] = true
	}

	// Stable sort by priority: high before low, ties keep table order.
	var high, low []string
	for _, t := range tips {
		if shown[t.text] {
			continue
		}
		if t.priority == priorityHigh {
			high = append(high, t.text)
		} else {
			low = append(low, t.text)
		}
	}
	ordered := append(high, low...)
	if len(ordered) > 2 {
		ordered = ordered[:2]
	}
	return ordered
}
