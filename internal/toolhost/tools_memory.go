package toolhost

import (
	"github.com/corpusdb/corpusdb/internal/query"
	"github.com/corpusdb/corpusdb/internal/storage"
)

func (s *Server) registerMemoryTools() {
	s.registerTool(Tool{
		Name:        "record_decision",
		Description: "Record an architectural or design decision for future recall",
		InputSchema: objectSchema(map[string]interface{}{
			"scope":      map[string]interface{}{"type": "string"},
			"title":      map[string]interface{}{"type": "string"},
			"body":       map[string]interface{}{"type": "string"},
			"repository": map[string]interface{}{"type": "string"},
		}, "title", "body"),
	}, s.toolRecordDecision)

	s.registerTool(Tool{
		Name:        "record_failure",
		Description: "Record an approach that failed, so future search surfaces it as a warning",
		InputSchema: objectSchema(map[string]interface{}{
			"scope":      map[string]interface{}{"type": "string"},
			"title":      map[string]interface{}{"type": "string"},
			"body":       map[string]interface{}{"type": "string"},
			"repository": map[string]interface{}{"type": "string"},
		}, "title", "body"),
	}, s.toolRecordFailure)

	s.registerTool(Tool{
		Name:        "record_insight",
		Description: "Record a standalone insight or a recurring pattern",
		InputSchema: objectSchema(map[string]interface{}{
			"scope":      map[string]interface{}{"type": "string"},
			"kind":       map[string]interface{}{"type": "string", "enum": []string{"insight", "pattern"}, "default": "insight"},
			"title":      map[string]interface{}{"type": "string"},
			"body":       map[string]interface{}{"type": "string"},
			"repository": map[string]interface{}{"type": "string"},
		}, "title", "body"),
	}, s.toolRecordInsight)

	s.registerTool(Tool{
		Name:        "search_decisions",
		Description: "Search recorded decisions",
		InputSchema: objectSchema(map[string]interface{}{
			"query":      map[string]interface{}{"type": "string"},
			"repository": map[string]interface{}{"type": "string"},
			"limit":      map[string]interface{}{"type": "number", "default": 20},
		}, "query"),
	}, s.toolSearchDecisions)

	s.registerTool(Tool{
		Name:        "search_failures",
		Description: "Search recorded failures",
		InputSchema: objectSchema(map[string]interface{}{
			"query":      map[string]interface{}{"type": "string"},
			"repository": map[string]interface{}{"type": "string"},
			"limit":      map[string]interface{}{"type": "number", "default": 20},
		}, "query"),
	}, s.toolSearchFailures)

	s.registerTool(Tool{
		Name:        "search_patterns",
		Description: "Search recorded patterns",
		InputSchema: objectSchema(map[string]interface{}{
			"query":      map[string]interface{}{"type": "string"},
			"repository": map[string]interface{}{"type": "string"},
			"limit":      map[string]interface{}{"type": "number", "default": 20},
		}, "query"),
	}, s.toolSearchPatterns)
}

func (s *Server) toolRecordDecision(params map[string]interface{}) (interface{}, error) {
	title, err := requiredStringParam(params, "title")
	if err != nil {
		return nil, err
	}
	body, err := requiredStringParam(params, "body")
	if err != nil {
		return nil, err
	}
	repositoryID, err := s.resolveRepositoryID(params)
	if err != nil {
		return nil, err
	}
	return storage.RecordDecision(s.db, repositoryID, stringParam(params, "scope"), title, body)
}

func (s *Server) toolRecordFailure(params map[string]interface{}) (interface{}, error) {
	title, err := requiredStringParam(params, "title")
	if err != nil {
		return nil, err
	}
	body, err := requiredStringParam(params, "body")
	if err != nil {
		return nil, err
	}
	repositoryID, err := s.resolveRepositoryID(params)
	if err != nil {
		return nil, err
	}
	return storage.RecordFailure(s.db, repositoryID, stringParam(params, "scope"), title, body)
}

func (s *Server) toolRecordInsight(params map[string]interface{}) (interface{}, error) {
	title, err := requiredStringParam(params, "title")
	if err != nil {
		return nil, err
	}
	body, err := requiredStringParam(params, "body")
	if err != nil {
		return nil, err
	}
	repositoryID, err := s.resolveRepositoryID(params)
	if err != nil {
		return nil, err
	}
	return storage.RecordInsight(s.db, repositoryID, stringParam(params, "scope"), stringParam(params, "kind"), title, body)
}

func (s *Server) toolSearchDecisions(params map[string]interface{}) (interface{}, error) {
	return s.searchSingleScope(params, query.ScopeDecisions)
}

func (s *Server) toolSearchFailures(params map[string]interface{}) (interface{}, error) {
	return s.searchSingleScope(params, query.ScopeFailures)
}

func (s *Server) toolSearchPatterns(params map[string]interface{}) (interface{}, error) {
	return s.searchSingleScope(params, query.ScopePatterns)
}

func (s *Server) searchSingleScope(params map[string]interface{}, scope query.Scope) (interface{}, error) {
	queryStr, err := requiredStringParam(params, "query")
	if err != nil {
		return nil, err
	}
	repositoryID, err := s.resolveRepositoryID(params)
	if err != nil {
		return nil, err
	}
	return s.engine.Search(query.Request{
		Query:   queryStr,
		Scopes:  []query.Scope{scope},
		Filters: query.Filters{Repository: repositoryID},
		Limit:   intParam(params, "limit", 20),
	})
}
