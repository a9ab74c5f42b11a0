package types

// Lifecycle states for a contest. Completed and cancelled are terminal and the
// scheduler never moves a contest out of them. Paused is reserved for operator
// action only; nothing in the system transitions into or out of it.
type ContestStatus string

const (
	ContestStatusDraft              ContestStatus = "draft"
	ContestStatusPublished          ContestStatus = "published"
	ContestStatusRegistrationOpen   ContestStatus = "registration_open"
	ContestStatusRegistrationClosed ContestStatus = "registration_closed"
	ContestStatusOngoing            ContestStatus = "ongoing"
	ContestStatusPaused             ContestStatus = "paused"
	ContestStatusCompleted          ContestStatus = "completed"
	ContestStatusCancelled          ContestStatus = "cancelled"
)

func (s ContestStatus) Terminal() bool {
	return s == ContestStatusCompleted || s == ContestStatusCancelled
}

// Rounds are a pure function of time so only two states exist.
type RoundStatus string

const (
	RoundStatusOpened RoundStatus = "opened"
	RoundStatusClosed RoundStatus = "closed"
)

type GradingKind string

const (
	GradingKindManual GradingKind = "manual"
	GradingKindAuto   GradingKind = "auto"
)

type SubmissionStatus string

const (
	SubmissionStatusPending SubmissionStatus = "pending" // Waiting on a judge or on evaluation
	SubmissionStatusJudged  SubmissionStatus = "judged"  // Scored, manually or by the execution service
	SubmissionStatusErrored SubmissionStatus = "errored" // Server side error while evaluating
)
