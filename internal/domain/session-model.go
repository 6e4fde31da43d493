package domain

import "time"

// Step is the questionnaire step a session is currently waiting on.
type Step int

const (
	StepAwaitingName Step = iota
	StepAwaitingAddress
	StepAwaitingPhone
	StepDone
)

func (s Step) String() string {
	switch s {
	case StepAwaitingName:
		return "awaiting_name"
	case StepAwaitingAddress:
		return "awaiting_address"
	case StepAwaitingPhone:
		return "awaiting_phone"
	case StepDone:
		return "done"
	default:
		return "unknown"
	}
}

// Session is the in-progress questionnaire for one accepted receipt. Sessions
// are keyed by submitter Telegram ID, one open session per submitter.
type Session struct {
	CheckNumber string
	Step        Step
	CreatedAt   time.Time
}

// StepResult describes the outcome of feeding one text answer into a session:
// the step the session is now waiting on and, once the phone is recorded, a
// copy of the completed record with its issued UIDs.
type StepResult struct {
	Step   Step
	Record *UserRecord
}
