package types

type PingResponse struct {
	Status string `json:"status" validate:"required"`
}

type RoundStatusView struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Status string `json:"status"`
}

// Point in time view of a contest with statuses resolved against the request
// time rather than the last scheduler tick.
type ContestStatusResponse struct {
	ID                string            `json:"id"`
	Name              string            `json:"name"`
	Status            string            `json:"status"`
	ResolvedStatus    string            `json:"resolved_status"`
	RegistrationStart *string           `json:"registration_start,omitempty"`
	RegistrationEnd   *string           `json:"registration_end,omitempty"`
	Rounds            []RoundStatusView `json:"rounds"`
}

type DistributeResponse struct {
	Status string `json:"status"`
}

type EvaluateResponse struct {
	Status string `json:"status"`
}
