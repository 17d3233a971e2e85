// Package wave computes registration-window phases and priority-wave
// numbers from an event's signup calendar.  Everything here is pure:
// callers pass the clock in, nothing is cached, nothing touches the
// store.
package wave

import (
	"time"

	"github.com/fairwaylabs/teesheet/internal/model"
)

// Window names the phase of an event's registration calendar.
type Window string

const (
	WindowNA           Window = "n/a"
	WindowFuture       Window = "future"
	WindowPriority     Window = "priority"
	WindowRegistration Window = "registration"
	WindowPast         Window = "past"
)

// Unrestricted is the sentinel wave returned when an event has no wave
// configuration: every slot is claimable as soon as the window opens.
const Unrestricted = 999

// WindowFor returns the registration phase for the event at the given
// time.  Boundaries are half-open on the start side: a time exactly
// equal to a phase's start belongs to that phase.
func WindowFor(ev *model.Event, now time.Time) Window {
	if ev.RegistrationType == model.RegistrationNone {
		return WindowNA
	}
	if ev.SignupStart == nil || ev.SignupEnd == nil {
		return WindowNA
	}
	if ev.PrioritySignupStart != nil &&
		!now.Before(*ev.PrioritySignupStart) && now.Before(*ev.SignupStart) {
		return WindowPriority
	}
	if !now.Before(*ev.SignupStart) && now.Before(*ev.SignupEnd) {
		return WindowRegistration
	}
	if !now.Before(*ev.SignupEnd) {
		return WindowPast
	}
	return WindowFuture
}

// Current returns the wave that is open at the given time.  It returns
// Unrestricted when waves, the priority start or the signup start are
// not configured, 0 before the priority phase opens, and signupWaves+1
// once general registration has started.  Inside the priority phase the
// interval [prioritySignupStart, signupStart) is divided into
// signupWaves equal buckets and the elapsed time selects the wave.
func Current(ev *model.Event, now time.Time) int {
	if ev.SignupWaves == 0 || ev.PrioritySignupStart == nil || ev.SignupStart == nil {
		return Unrestricted
	}
	if now.Before(*ev.PrioritySignupStart) {
		return 0
	}
	if !now.Before(*ev.SignupStart) {
		return ev.SignupWaves + 1
	}
	per := bucketDuration(ev)
	w := int(now.Sub(*ev.PrioritySignupStart)/per) + 1
	if w > ev.SignupWaves {
		w = ev.SignupWaves
	}
	return w
}

// Starting returns the wave in which a slot at the given starting order
// first becomes claimable.  Returns 1 when waves or total groups are
// unconfigured.  Groups are distributed across waves with the remainder
// assigned to the earliest waves: 18 groups over 4 waves yields bucket
// sizes [5,5,4,4].  For shotgun layouts the hole number and A/B order
// combine into an effective linear order first.
func Starting(ev *model.Event, startingOrder, holeNumber int) int {
	if ev.SignupWaves == 0 || ev.TotalGroups == 0 {
		return 1
	}
	order := startingOrder
	if ev.StartType == model.StartShotgun && holeNumber > 0 {
		order = (holeNumber-1)*2 + startingOrder
	}
	base := ev.TotalGroups / ev.SignupWaves
	remainder := ev.TotalGroups % ev.SignupWaves
	cutoff := remainder * (base + 1)
	if order < cutoff {
		return order/(base+1) + 1
	}
	return remainder + (order-cutoff)/base + 1
}

// Info builds the per-slot wave metadata included in snapshots, or nil
// when the event has no wave configuration.
func Info(ev *model.Event, startingOrder, holeNumber int, now time.Time) *model.WaveInfo {
	if ev.SignupWaves == 0 || ev.PrioritySignupStart == nil || ev.SignupStart == nil {
		return nil
	}
	w := Starting(ev, startingOrder, holeNumber)
	opens := ev.PrioritySignupStart.Add(time.Duration(w-1) * bucketDuration(ev))
	return &model.WaveInfo{
		Wave:   w,
		IsOpen: w <= Current(ev, now),
		Opens:  opens,
	}
}

func bucketDuration(ev *model.Event) time.Duration {
	return ev.SignupStart.Sub(*ev.PrioritySignupStart) / time.Duration(ev.SignupWaves)
}
