package flow

/*
StepStatus represents the lifecycle state of a single plan step.
*/
type StepStatus string

const (
	StepStatusPending    StepStatus = "pending"
	StepStatusInProgress StepStatus = "in-progress"
	StepStatusCompleted  StepStatus = "completed"
	StepStatusFailed     StepStatus = "failed"
)

/*
Terminal reports whether a step in this status will never change again.
*/
func (status StepStatus) Terminal() bool {
	return status == StepStatusCompleted || status == StepStatusFailed
}

/*
CanAdvance reports whether moving from status to next respects the
pending -> in-progress -> (completed | failed) order. Terminal states
accept no further transitions.
*/
func (status StepStatus) CanAdvance(next StepStatus) bool {
	switch status {
	case StepStatusPending:
		return next == StepStatusInProgress
	case StepStatusInProgress:
		return next == StepStatusCompleted || next == StepStatusFailed
	}

	return false
}
