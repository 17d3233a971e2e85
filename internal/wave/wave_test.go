package wave

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/fairwaylabs/teesheet/internal/model"
)

func ts(s string) *time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return &t
}

func wavedEvent() *model.Event {
	return &model.Event{
		ID:                  1,
		RegistrationType:    model.RegistrationMember,
		PrioritySignupStart: ts("2026-05-01T17:00:00Z"),
		SignupStart:         ts("2026-05-03T17:00:00Z"),
		SignupEnd:           ts("2026-05-06T17:00:00Z"),
		SignupWaves:         4,
		TotalGroups:         18,
	}
}

func TestWindowFor(t *testing.T) {
	ev := wavedEvent()
	tests := []struct {
		name string
		now  string
		want Window
	}{
		{"before priority start", "2026-05-01T16:59:59Z", WindowFuture},
		{"exactly priority start", "2026-05-01T17:00:00Z", WindowPriority},
		{"inside priority phase", "2026-05-02T12:00:00Z", WindowPriority},
		{"one second before signup start", "2026-05-03T16:59:59Z", WindowPriority},
		{"exactly signup start", "2026-05-03T17:00:00Z", WindowRegistration},
		{"inside registration", "2026-05-05T00:00:00Z", WindowRegistration},
		{"exactly signup end", "2026-05-06T17:00:00Z", WindowPast},
		{"after signup end", "2026-05-07T00:00:00Z", WindowPast},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, WindowFor(ev, *ts(tt.now)))
		})
	}
}

func TestWindowForUnconfigured(t *testing.T) {
	t.Run("registration disabled", func(t *testing.T) {
		ev := wavedEvent()
		ev.RegistrationType = model.RegistrationNone
		assert.Equal(t, WindowNA, WindowFor(ev, *ts("2026-05-02T12:00:00Z")))
	})
	t.Run("no signup calendar", func(t *testing.T) {
		ev := wavedEvent()
		ev.SignupStart = nil
		ev.SignupEnd = nil
		assert.Equal(t, WindowNA, WindowFor(ev, *ts("2026-05-02T12:00:00Z")))
	})
	t.Run("no priority start", func(t *testing.T) {
		ev := wavedEvent()
		ev.PrioritySignupStart = nil
		assert.Equal(t, WindowFuture, WindowFor(ev, *ts("2026-05-02T12:00:00Z")))
		assert.Equal(t, WindowRegistration, WindowFor(ev, *ts("2026-05-03T17:00:00Z")))
	})
}

func TestCurrent(t *testing.T) {
	// 48h priority phase over 4 waves: 12h per wave.
	ev := wavedEvent()
	t0 := *ev.PrioritySignupStart
	tests := []struct {
		name   string
		offset time.Duration
		want   int
	}{
		{"at priority start", 0, 1},
		{"end of first bucket", 11*time.Hour + 59*time.Minute, 1},
		{"start of second bucket", 12 * time.Hour, 2},
		{"start of third bucket", 24 * time.Hour, 3},
		{"start of fourth bucket", 36 * time.Hour, 4},
		{"last instant of priority", 48*time.Hour - time.Second, 4},
		{"at signup start", 48 * time.Hour, 5},
		{"long after signup start", 72 * time.Hour, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Current(ev, t0.Add(tt.offset)))
		})
	}
	assert.Equal(t, 0, Current(ev, t0.Add(-time.Second)), "before priority start")
}

func TestCurrentUnconfigured(t *testing.T) {
	ev := wavedEvent()
	ev.SignupWaves = 0
	assert.Equal(t, Unrestricted, Current(ev, *ts("2026-05-02T12:00:00Z")))

	ev = wavedEvent()
	ev.PrioritySignupStart = nil
	assert.Equal(t, Unrestricted, Current(ev, *ts("2026-05-02T12:00:00Z")))
}

func TestStartingRemainderDistribution(t *testing.T) {
	// 18 groups over 4 waves must produce bucket sizes [5,5,4,4]: the
	// remainder goes to the earliest waves.
	ev := wavedEvent()
	tests := []struct {
		order int
		want  int
	}{
		{0, 1}, {4, 1},
		{5, 2}, {9, 2},
		{10, 3}, {13, 3},
		{14, 4}, {17, 4},
	}
	for _, tt := range tests {
		assert.Equalf(t, tt.want, Starting(ev, tt.order, 0),
			"position %d", tt.order)
	}
}

func TestStartingEvenDistribution(t *testing.T) {
	ev := wavedEvent()
	ev.TotalGroups = 16
	for order, want := range map[int]int{0: 1, 3: 1, 4: 2, 7: 2, 8: 3, 12: 4, 15: 4} {
		assert.Equalf(t, want, Starting(ev, order, 0), "position %d", order)
	}
}

func TestStartingShotgun(t *testing.T) {
	// Shotgun slots order by (hole-1)*2 + side before bucketing.
	ev := wavedEvent()
	ev.StartType = model.StartShotgun
	assert.Equal(t, 1, Starting(ev, 0, 1)) // 1A -> position 0
	assert.Equal(t, 1, Starting(ev, 1, 1)) // 1B -> position 1
	assert.Equal(t, 2, Starting(ev, 1, 3)) // 3B -> position 5
	assert.Equal(t, 4, Starting(ev, 1, 9)) // 9B -> position 17
}

func TestStartingUnconfigured(t *testing.T) {
	ev := wavedEvent()
	ev.TotalGroups = 0
	assert.Equal(t, 1, Starting(ev, 12, 0))

	ev = wavedEvent()
	ev.SignupWaves = 0
	assert.Equal(t, 1, Starting(ev, 12, 0))
}

func TestInfo(t *testing.T) {
	ev := wavedEvent()
	now := ev.PrioritySignupStart.Add(13 * time.Hour) // wave 2 open

	info := Info(ev, 5, 0, now) // position 5 -> wave 2
	if assert.NotNil(t, info) {
		assert.Equal(t, 2, info.Wave)
		assert.True(t, info.IsOpen)
		assert.Equal(t, ev.PrioritySignupStart.Add(12*time.Hour), info.Opens)
	}

	info = Info(ev, 14, 0, now) // position 14 -> wave 4, not yet open
	if assert.NotNil(t, info) {
		assert.Equal(t, 4, info.Wave)
		assert.False(t, info.IsOpen)
	}
}

func TestInfoUnconfigured(t *testing.T) {
	ev := wavedEvent()
	ev.SignupWaves = 0
	assert.Nil(t, Info(ev, 0, 0, *ts("2026-05-02T12:00:00Z")))
}
