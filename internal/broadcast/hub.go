// Package broadcast fans slot-state changes out to live grid watchers.
// The hub keeps one stream goroutine per watched event, created lazily
// on first subscription and evicted after a period with no subscribers.
// Change signals are debounced so a burst of concurrent reservations
// costs a single snapshot query.
package broadcast

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/fairwaylabs/teesheet/internal/model"
	"github.com/fairwaylabs/teesheet/internal/wave"
)

// Fixed timing policy.
const (
	debounceWindow   = 2 * time.Second
	wavePollInterval = 30 * time.Second
	idleTimeout      = 5 * time.Minute
)

// Source provides the read side of snapshot computation. The
// repository implements it.
type Source interface {
	Event(ctx context.Context, id int64) (*model.Event, error)
	EventSlots(ctx context.Context, id int64) ([]model.SlotDetail, error)
}

// Update is the message pushed to every subscriber of an event stream.
// Error-shaped updates carry only EventID, Error and Timestamp.
type Update struct {
	EventID     int64            `json:"eventId"`
	Slots       []model.SlotView `json:"slots,omitempty"`
	CurrentWave int              `json:"currentWave"`
	Timestamp   string           `json:"timestamp"`
	Error       string           `json:"error,omitempty"`
}

// IsError reports whether the update signals a failed snapshot.
func (u Update) IsError() bool { return u.Error != "" }

// Subscription is one subscriber's handle on an event stream. Close it
// when the client disconnects.
type Subscription struct {
	hub     *Hub
	eventID int64
	ch      chan Update
	once    sync.Once
}

// Updates returns the channel snapshots arrive on. The channel closes
// when the subscription is closed or the hub shuts down.
func (s *Subscription) Updates() <-chan Update { return s.ch }

// Close unregisters the subscriber.
func (s *Subscription) Close() {
	s.once.Do(func() { s.hub.unsubscribe(s.eventID, s.ch) })
}

// stream is the per-event fan-out state. The run goroutine owns the
// timers; subs and last are guarded by the hub mutex.
type stream struct {
	eventID int64
	signal  chan struct{}
	kick    chan struct{}
	done    chan struct{}

	subs      map[chan Update]struct{}
	idleTimer *time.Timer
	event     *model.Event
	lastWave  int
	last      *Update
}

// Hub is the per-event stream registry. One instance per process.
type Hub struct {
	source Source
	log    *zap.Logger
	now    func() time.Time

	debounce time.Duration
	wavePoll time.Duration
	idle     time.Duration

	mu      sync.Mutex
	streams map[int64]*stream
	closed  bool
}

// New builds a Hub over the given snapshot source.
func New(source Source, log *zap.Logger) *Hub {
	return &Hub{
		source:   source,
		log:      log,
		now:      time.Now,
		debounce: debounceWindow,
		wavePoll: wavePollInterval,
		idle:     idleTimeout,
		streams:  make(map[int64]*stream),
	}
}

// Subscribe registers a watcher for the event's slot grid. The stream
// is created on first subscription; the last published snapshot, if
// any, is delivered immediately so late joiners do not wait for the
// next change.
func (h *Hub) Subscribe(eventID int64) *Subscription {
	ch := make(chan Update, 8)
	sub := &Subscription{hub: h, eventID: eventID, ch: ch}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		close(ch)
		return sub
	}
	st, ok := h.streams[eventID]
	if !ok {
		st = &stream{
			eventID: eventID,
			signal:  make(chan struct{}, 1),
			kick:    make(chan struct{}, 1),
			done:    make(chan struct{}),
			subs:    make(map[chan Update]struct{}),
		}
		h.streams[eventID] = st
		go h.run(st)
		st.kick <- struct{}{}
	}
	if st.idleTimer != nil {
		st.idleTimer.Stop()
		st.idleTimer = nil
	}
	st.subs[ch] = struct{}{}
	if st.last != nil {
		ch <- *st.last
	}
	return sub
}

// NotifyChange signals that the event's slot state changed. A silent
// no-op when nobody is watching: write-side signals never create
// streams.
func (h *Hub) NotifyChange(eventID int64) {
	h.mu.Lock()
	st, ok := h.streams[eventID]
	h.mu.Unlock()
	if !ok {
		return
	}
	select {
	case st.signal <- struct{}{}:
	default:
	}
}

// Shutdown tears down every stream immediately.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	h.closed = true
	streams := make([]*stream, 0, len(h.streams))
	for _, st := range h.streams {
		streams = append(streams, st)
	}
	h.streams = make(map[int64]*stream)
	h.mu.Unlock()

	for _, st := range streams {
		h.teardown(st)
	}
}

func (h *Hub) unsubscribe(eventID int64, ch chan Update) {
	h.mu.Lock()
	defer h.mu.Unlock()
	st, ok := h.streams[eventID]
	if !ok {
		return
	}
	if _, ok := st.subs[ch]; !ok {
		return
	}
	delete(st.subs, ch)
	close(ch)
	if len(st.subs) == 0 {
		st.idleTimer = time.AfterFunc(h.idle, func() { h.evict(eventID) })
	}
}

// evict tears the stream down if it is still idle when the timer
// fires. A resubscription in the meantime stopped the timer, but the
// fire may already be in flight, so the count is re-checked here.
func (h *Hub) evict(eventID int64) {
	h.mu.Lock()
	st, ok := h.streams[eventID]
	if !ok || len(st.subs) > 0 {
		h.mu.Unlock()
		return
	}
	delete(h.streams, eventID)
	h.mu.Unlock()
	h.teardown(st)
	h.log.Debug("stream evicted", zap.Int64("event_id", eventID))
}

func (h *Hub) teardown(st *stream) {
	h.mu.Lock()
	if st.idleTimer != nil {
		st.idleTimer.Stop()
		st.idleTimer = nil
	}
	for ch := range st.subs {
		close(ch)
	}
	st.subs = make(map[chan Update]struct{})
	h.mu.Unlock()
	close(st.done)
}

// run is the stream's event loop. It owns the debounce timer and the
// wave poll ticker; all snapshot computation happens here, never on a
// caller goroutine.
func (h *Hub) run(st *stream) {
	debounce := time.NewTimer(h.debounce)
	if !debounce.Stop() {
		<-debounce.C
	}
	waves := time.NewTicker(h.wavePoll)
	defer waves.Stop()
	armed := false

	for {
		select {
		case <-st.done:
			if armed && !debounce.Stop() {
				<-debounce.C
			}
			return
		case <-st.kick:
			h.publish(st)
		case <-st.signal:
			if armed && !debounce.Stop() {
				select {
				case <-debounce.C:
				default:
				}
			}
			debounce.Reset(h.debounce)
			armed = true
		case <-debounce.C:
			armed = false
			h.publish(st)
		case <-waves.C:
			if h.waveChanged(st) {
				h.publish(st)
			}
		}
	}
}

// waveChanged recomputes the current wave from the cached event config
// and reports whether it moved since the last publish. Only meaningful
// during the priority window.
func (h *Hub) waveChanged(st *stream) bool {
	if st.event == nil {
		return false
	}
	if wave.WindowFor(st.event, h.now()) != wave.WindowPriority {
		return false
	}
	return wave.Current(st.event, h.now()) != st.lastWave
}

func (h *Hub) publish(st *stream) {
	update := h.snapshot(st)

	h.mu.Lock()
	if !update.IsError() {
		st.last = &update
		st.lastWave = update.CurrentWave
	}
	for ch := range st.subs {
		select {
		case ch <- update:
		default:
			// Drop if the subscriber is lagging; the next update
			// catches it up.
		}
	}
	h.mu.Unlock()
}

// snapshot reads the event's slot state and assembles the update. A
// read failure produces an error-shaped update; the stream keeps
// running.
func (h *Hub) snapshot(st *stream) Update {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	now := h.now()

	ev := st.event
	if ev == nil {
		loaded, err := h.source.Event(ctx, st.eventID)
		if err != nil {
			h.log.Error("snapshot event load failed",
				zap.Int64("event_id", st.eventID), zap.Error(err))
			return h.errorUpdate(st, now)
		}
		ev = loaded
		st.event = loaded
	}
	slots, err := h.source.EventSlots(ctx, st.eventID)
	if err != nil {
		h.log.Error("snapshot slot load failed",
			zap.Int64("event_id", st.eventID), zap.Error(err))
		return h.errorUpdate(st, now)
	}

	views := make([]model.SlotView, 0, len(slots))
	for _, s := range slots {
		views = append(views, slotView(ev, s, now))
	}
	return Update{
		EventID:     st.eventID,
		Slots:       views,
		CurrentWave: wave.Current(ev, now),
		Timestamp:   now.UTC().Format(time.RFC3339),
	}
}

func (h *Hub) errorUpdate(st *stream, now time.Time) Update {
	return Update{
		EventID:   st.eventID,
		Error:     "snapshot unavailable",
		Timestamp: now.UTC().Format(time.RFC3339),
	}
}

func slotView(ev *model.Event, s model.SlotDetail, now time.Time) model.SlotView {
	hole := 0
	if s.HoleNumber != nil {
		hole = *s.HoleNumber
	}
	return model.SlotView{
		ID:             s.ID,
		EventID:        s.EventID,
		RegistrationID: s.RegistrationID,
		HoleID:         s.HoleID,
		HoleNumber:     s.HoleNumber,
		Player:         s.Player,
		SlotNumber:     s.SlotNumber,
		StartingOrder:  s.StartingOrder,
		Status:         s.Status,
		Wave:           wave.Info(ev, s.StartingOrder, hole, now),
	}
}
