package model

import "time"

// Start type codes describe how groups are sent off the first tee.
// Tee-time events start groups sequentially; shotgun events start two
// groups (A/B side) on every hole at once.
const (
	StartTeeTimes = "TT" // sequential tee times
	StartShotgun  = "SG" // dual-sided shotgun start
	StartNone     = "NA" // no start layout (meetings, deadlines, ...)
)

// Registration type codes control who may sign up.  RegistrationNone
// disables signup entirely, which also disables the whole reservation
// window calculation for the event.
const (
	RegistrationMember    = "M"
	RegistrationGuest     = "G"
	RegistrationOpen      = "O"
	RegistrationReturning = "R"
	RegistrationNone      = "N"
)

// Event carries the signup calendar and capacity configuration the
// reservation engine needs.  Events are read-mostly from this package's
// point of view: the engine never mutates them during a signup cycle.
//
// The signup calendar is a sequence of optional timestamps:
// PrioritySignupStart opens the staggered priority phase, SignupStart
// opens general registration, SignupEnd closes it.  SignupWaves divides
// the priority phase into equal sub-windows.
type Event struct {
	ID                  int64      `json:"id"`
	Name                string     `json:"name"`
	StartType           string     `json:"startType"`
	RegistrationType    string     `json:"registrationType"`
	CanChoose           bool       `json:"canChoose"`
	PrioritySignupStart *time.Time `json:"prioritySignupStart"`
	SignupStart         *time.Time `json:"signupStart"`
	SignupEnd           *time.Time `json:"signupEnd"`
	SignupWaves         int        `json:"signupWaves"`
	CourseCount         int        `json:"courseCount"`
	TotalGroups         int        `json:"totalGroups"`
	RegistrationMaximum int        `json:"registrationMaximum"`
	MinimumGroupSize    int        `json:"minimumSignupGroupSize"`
	MaximumGroupSize    int        `json:"maximumSignupGroupSize"`
}

// GroupSize returns the number of slots created for one signup group on
// a non-choosable event.  Events without a configured maximum get a
// group of one.
func (e *Event) GroupSize() int {
	if e.MaximumGroupSize < 1 {
		return 1
	}
	return e.MaximumGroupSize
}
