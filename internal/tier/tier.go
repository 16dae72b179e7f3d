// Package tier gates the advertised tool surface by a configured level
// (§4.8, §6): core ⊂ default ⊂ memory ⊂ full.
package tier

import cdberrors "github.com/corpusdb/corpusdb/internal/errors"

// Tier is one of the four nested tool-surface levels.
type Tier int

const (
	Core Tier = iota
	Default
	Memory
	Full
)

func (t Tier) String() string {
	switch t {
	case Core:
		return "core"
	case Default:
		return "default"
	case Memory:
		return "memory"
	case Full:
		return "full"
	default:
		return "unknown"
	}
}

// Parse maps a config/CLI string to a Tier; unrecognised values default
// to Core, the most conservative surface.
func Parse(s string) Tier {
	switch s {
	case "default":
		return Default
	case "memory":
		return Memory
	case "full":
		return Full
	default:
		return Core
	}
}

// coreTools, defaultTools, and memoryTools are the incremental additions
// each tier contributes on top of the one below it (§6). Full adds
// expertise/validation tools out of scope here.
var (
	coreTools = []string{
		"search", "index_repository", "list_recent_files", "search_dependencies",
		"analyze_change_impact", "generate_task_context", "get_index_statistics", "find_usages",
	}
	defaultTools = []string{"kota_sync_export", "kota_sync_import"}
	memoryTools  = []string{
		"record_decision", "record_failure", "record_insight",
		"search_decisions", "search_failures", "search_patterns",
	}
)

// ToolSet returns the tool names advertised at t, in nesting order.
func (t Tier) ToolSet() []string {
	tools := append([]string{}, coreTools...)
	if t >= Default {
		tools = append(tools, defaultTools...)
	}
	if t >= Memory {
		tools = append(tools, memoryTools...)
	}
	return tools
}

// Allows reports whether tool is visible at tier t.
func (t Tier) Allows(tool string) bool {
	for _, name := range t.ToolSet() {
		if name == tool {
			return true
		}
	}
	return false
}

// CheckAllowed returns a method-not-found error if tool is not in tier
// t's advertised set (§4.8 — unknown tool names are a transport-layer
// method-not-found, not a validation error).
func (t Tier) CheckAllowed(tool string) error {
	if t.Allows(tool) {
		return nil
	}
	return cdberrors.NewNotFoundError("tool", "unknown tool: "+tool)
}
