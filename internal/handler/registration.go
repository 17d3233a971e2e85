package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/fairwaylabs/teesheet/internal/config"
	"github.com/fairwaylabs/teesheet/internal/engine"
	"github.com/fairwaylabs/teesheet/internal/middleware"
	"github.com/fairwaylabs/teesheet/internal/model"
	"github.com/fairwaylabs/teesheet/internal/queue"
	"github.com/fairwaylabs/teesheet/internal/repository"
	queue_publisher "github.com/fairwaylabs/teesheet/internal/service"
	"github.com/fairwaylabs/teesheet/internal/wave"
)

// RegistrationHandler exposes the reservation operations over HTTP.
type RegistrationHandler struct {
	Cfg     config.Config
	Engine  *engine.Engine
	Store   *repository.Store
	Players *repository.PlayerRepo
	Log     *zap.Logger
}

func NewRegistrationHandler(cfg config.Config, eng *engine.Engine, store *repository.Store, players *repository.PlayerRepo, log *zap.Logger) *RegistrationHandler {
	if eng == nil || store == nil || players == nil || log == nil {
		panic("nil dependency passed to NewRegistrationHandler")
	}
	return &RegistrationHandler{Cfg: cfg, Engine: eng, Store: store, Players: players, Log: log}
}

// engineError translates an engine failure into the HTTP response.
// Conflict-class errors get 409 so clients know a refetch-and-retry is
// meaningful; window and validation errors get 400, unknown ids 404.
func engineError(c echo.Context, err error) error {
	switch engine.Classify(err) {
	case engine.KindConflict:
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
	case engine.KindWindow, engine.KindValidation:
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	case engine.KindNotFound:
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
}

func pathID(c echo.Context) (int64, error) {
	return strconv.ParseInt(c.Param("id"), 10, 64)
}

type reserveReq struct {
	SlotIDs  []int64 `json:"slotIds"`
	CourseID *int64  `json:"courseId"`
}

// Reserve handles POST /v1/events/:id/reserve.
func (h *RegistrationHandler) Reserve(c echo.Context) error {
	playerID, ok := middleware.PlayerID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	eventID, err := pathID(c)
	if err != nil || eventID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}
	var req reserveReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}

	reg, err := h.Engine.Reserve(c.Request().Context(), engine.ReserveRequest{
		EventID:    eventID,
		SlotIDs:    req.SlotIDs,
		PlayerID:   playerID,
		CourseID:   req.CourseID,
		SignedUpBy: h.signedUpBy(c.Request().Context(), playerID),
	})
	if err != nil {
		return engineError(c, err)
	}
	h.publishActivity(queue.ActionReserved, reg.EventID, reg.ID, playerID, reg.SlotIDs())
	return c.JSON(http.StatusCreated, reg)
}

type addPlayersReq struct {
	PlayerIDs []int64 `json:"playerIds"`
}

// AddPlayers handles POST /v1/registrations/:id/players.
func (h *RegistrationHandler) AddPlayers(c echo.Context) error {
	playerID, ok := middleware.PlayerID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	regID, err := pathID(c)
	if err != nil || regID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid registration id"})
	}
	var req addPlayersReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if len(req.PlayerIDs) == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "playerIds is required"})
	}

	reg, err := h.Engine.AddPlayers(c.Request().Context(), regID, req.PlayerIDs, playerID)
	if err != nil {
		return engineError(c, err)
	}
	h.publishActivity(queue.ActionAdded, reg.EventID, reg.ID, playerID, reg.SlotIDs())
	return c.JSON(http.StatusOK, reg)
}

type dropPlayersReq struct {
	SlotIDs []int64 `json:"slotIds"`
	Notes   string  `json:"notes"`
}

// DropPlayers handles POST /v1/registrations/:id/drop.
func (h *RegistrationHandler) DropPlayers(c echo.Context) error {
	playerID, ok := middleware.PlayerID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	regID, err := pathID(c)
	if err != nil || regID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid registration id"})
	}
	var req dropPlayersReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if len(req.SlotIDs) == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "slotIds is required"})
	}

	dropped, err := h.Engine.DropPlayers(c.Request().Context(), regID, req.SlotIDs, req.Notes)
	if err != nil {
		return engineError(c, err)
	}
	if reg, err := h.Store.Registration(c.Request().Context(), regID); err == nil {
		h.publishActivity(queue.ActionDropped, reg.EventID, regID, playerID, req.SlotIDs)
	}
	return c.JSON(http.StatusOK, echo.Map{"dropped": dropped})
}

type notesReq struct {
	Notes string `json:"notes"`
}

// UpdateNotes handles PUT /v1/registrations/:id/notes.
func (h *RegistrationHandler) UpdateNotes(c echo.Context) error {
	playerID, ok := middleware.PlayerID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	regID, err := pathID(c)
	if err != nil || regID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid registration id"})
	}
	var req notesReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}

	reg, err := h.Engine.UpdateNotes(c.Request().Context(), regID, playerID, req.Notes)
	if err != nil {
		return engineError(c, err)
	}
	return c.JSON(http.StatusOK, reg)
}

// Cancel handles DELETE /v1/registrations/:id. An optional payment_id
// query parameter names the pending payment to remove first.
func (h *RegistrationHandler) Cancel(c echo.Context) error {
	playerID, ok := middleware.PlayerID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	regID, err := pathID(c)
	if err != nil || regID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid registration id"})
	}
	var paymentID *int64
	if raw := c.QueryParam("payment_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id == 0 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid payment id"})
		}
		paymentID = &id
	}

	// The registration is gone after a successful cancel, so capture
	// what the activity event needs first.
	reg, err := h.Store.Registration(c.Request().Context(), regID)
	if err != nil {
		return engineError(c, err)
	}
	if err := h.Engine.Cancel(c.Request().Context(), regID, playerID, paymentID); err != nil {
		return engineError(c, err)
	}
	h.publishActivity(queue.ActionCancelled, reg.EventID, regID, playerID, reg.SlotIDs())
	return c.NoContent(http.StatusNoContent)
}

// Get handles GET /v1/registrations/:id.
func (h *RegistrationHandler) Get(c echo.Context) error {
	playerID, ok := middleware.PlayerID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	regID, err := pathID(c)
	if err != nil || regID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid registration id"})
	}
	reg, err := h.Store.Registration(c.Request().Context(), regID)
	if err != nil {
		return engineError(c, err)
	}
	if !reg.HasPlayer(playerID) {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}
	return c.JSON(http.StatusOK, reg)
}

// Slots handles GET /v1/events/:id/slots, the authoritative grid fetch
// clients fall back to when the live stream lags.
func (h *RegistrationHandler) Slots(c echo.Context) error {
	eventID, err := pathID(c)
	if err != nil || eventID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}
	ctx := c.Request().Context()
	ev, err := h.Store.Event(ctx, eventID)
	if err != nil {
		return engineError(c, err)
	}
	details, err := h.Store.EventSlots(ctx, eventID)
	if err != nil {
		return engineError(c, err)
	}
	now := time.Now()
	views := make([]model.SlotView, 0, len(details))
	for _, d := range details {
		hole := 0
		if d.HoleNumber != nil {
			hole = *d.HoleNumber
		}
		views = append(views, model.SlotView{
			ID:             d.ID,
			EventID:        d.EventID,
			RegistrationID: d.RegistrationID,
			HoleID:         d.HoleID,
			HoleNumber:     d.HoleNumber,
			Player:         d.Player,
			SlotNumber:     d.SlotNumber,
			StartingOrder:  d.StartingOrder,
			Status:         d.Status,
			Wave:           wave.Info(ev, d.StartingOrder, hole, now),
		})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"eventId":     eventID,
		"slots":       views,
		"currentWave": wave.Current(ev, now),
		"window":      wave.WindowFor(ev, now),
		"timestamp":   now.UTC().Format(time.RFC3339),
	})
}

// publishActivity emits a queue event in the background. Broker
// failures are logged and never surface to the client.
func (h *RegistrationHandler) publishActivity(action string, eventID, regID, playerID int64, slotIDs []int64) {
	if h.Cfg.AMQPURL == "" {
		return
	}
	ev := queue.RegistrationActivityEvent{
		Action:         action,
		EventID:        eventID,
		RegistrationID: regID,
		PlayerID:       playerID,
		SlotCount:      len(slotIDs),
		SlotIDs:        slotIDs,
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if event, err := h.Store.Event(ctx, eventID); err == nil {
			ev.EventName = event.Name
		}
		if err := queue_publisher.PublishRegistrationActivity(ctx, h.Cfg.AMQPURL, h.Cfg.ActivityQueue, ev); err != nil {
			h.Log.Warn("activity publish failed",
				zap.Int64("event_id", eventID), zap.Error(err))
		}
	}()
}

// signedUpBy resolves the display name stored on the registration.
func (h *RegistrationHandler) signedUpBy(ctx context.Context, playerID int64) string {
	player, err := h.Players.FindByID(ctx, playerID)
	if err != nil {
		return "player:" + strconv.FormatInt(playerID, 10)
	}
	return player.Name()
}
