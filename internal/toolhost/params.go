package toolhost

import cdberrors "github.com/corpusdb/corpusdb/internal/errors"

func stringParam(params map[string]interface{}, name string) string {
	v, _ := params[name].(string)
	return v
}

func requiredStringParam(params map[string]interface{}, name string) (string, error) {
	v, ok := params[name].(string)
	if !ok || v == "" {
		return "", cdberrors.NewValidationError(name, name+" is required")
	}
	return v, nil
}

func intParam(params map[string]interface{}, name string, fallback int) int {
	switch v := params[name].(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return fallback
	}
}

func boolParam(params map[string]interface{}, name string, fallback bool) bool {
	v, ok := params[name].(bool)
	if !ok {
		return fallback
	}
	return v
}

func stringSliceParam(params map[string]interface{}, name string) []string {
	raw, ok := params[name].([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
