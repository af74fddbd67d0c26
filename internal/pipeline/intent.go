package pipeline

import "strings"

// Action is what a request asks the pipeline to do after a cache miss.
type Action int

const (
	ActionModify Action = iota
	ActionModifyAndNarrate
	ActionAutomate
)

const (
	phraseAutomate = "click on the link"
	phraseNarrate  = "read this to me"
)

// Classify inspects the instruction case-insensitively. Automation takes
// priority over narration when both phrases are present.
func Classify(instruction string) Action {
	lower := strings.ToLower(instruction)
	switch {
	case strings.Contains(lower, phraseAutomate):
		return ActionAutomate
	case strings.Contains(lower, phraseNarrate):
		return ActionModifyAndNarrate
	default:
		return ActionModify
	}
}

func (a Action) String() string {
	switch a {
	case ActionModify:
		return "modify"
	case ActionModifyAndNarrate:
		return "modify+narrate"
	case ActionAutomate:
		return "automate"
	default:
		return "unknown"
	}
}
