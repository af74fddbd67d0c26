package pipeline

import "errors"

// Failure kinds. Orchestrator errors wrap exactly one of these alongside the
// underlying cause, so callers can branch with errors.Is.
var (
	ErrFetch      = errors.New("fetch failed")
	ErrStorage    = errors.New("storage failed")
	ErrModify     = errors.New("modification failed")
	ErrAutomation = errors.New("automation failed")
	ErrNarration  = errors.New("narration failed")
)

// User-facing messages for the response envelope.
const (
	MsgFetchFailed      = "Failed to scrape website"
	MsgStorageFailed    = "Failed to query transformation cache"
	MsgModifyFailed     = "AI modification failed"
	MsgAutomationFailed = "Automation failed"
	MsgNarrationFailed  = "Narration failed"

	MsgAutomationRunning = "Automation is running."
	MsgPlayingAudio      = "Playing audio..."
)

// Kind returns a short label for the failure kind wrapped by err, for logging.
func Kind(err error) string {
	switch {
	case errors.Is(err, ErrFetch):
		return "fetch"
	case errors.Is(err, ErrStorage):
		return "storage"
	case errors.Is(err, ErrModify):
		return "modify"
	case errors.Is(err, ErrAutomation):
		return "automation"
	case errors.Is(err, ErrNarration):
		return "narration"
	default:
		return "internal"
	}
}

// Message maps an orchestrator error to the text placed in the envelope's error
// field. Errors outside the taxonomy fall back to their own text.
func Message(err error) string {
	switch {
	case errors.Is(err, ErrFetch):
		return MsgFetchFailed
	case errors.Is(err, ErrStorage):
		return MsgStorageFailed
	case errors.Is(err, ErrModify):
		return MsgModifyFailed
	case errors.Is(err, ErrAutomation):
		return MsgAutomationFailed
	case errors.Is(err, ErrNarration):
		return MsgNarrationFailed
	default:
		return err.Error()
	}
}
