// Package handler exposes the engine over HTTP for thin clients.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/julienschmidt/httprouter"

	"slotkeeper/internal/availability"
	"slotkeeper/internal/offline"
	"slotkeeper/internal/session"
	"slotkeeper/internal/shifts"
	apperrors "slotkeeper/pkg/errors"
	httputil "slotkeeper/pkg/http"
	"slotkeeper/pkg/logger"
	"slotkeeper/pkg/model"
)

type SlotFinder interface {
	GetSlots(ctx context.Context, q availability.Query) availability.Result
}

type Reserver interface {
	Reserve(ctx context.Context, intent model.ReservationIntent) (*model.Reservation, error)
}

type ShiftManager interface {
	OpenShift(ctx context.Context, req model.OpenShiftRequest) (shifts.Outcome, error)
	CloseShift(ctx context.Context, req model.CloseShiftRequest) (shifts.Outcome, error)
	AddItem(ctx context.Context, req model.ItemRequest) (shifts.Outcome, error)
	UpdateItem(ctx context.Context, req model.ItemRequest) (shifts.Outcome, error)
	DeleteItem(ctx context.Context, req model.DeleteItemRequest) (shifts.Outcome, error)
	CurrentShift(ctx context.Context, staffID string) (*model.Shift, bool, error)
}

type OfflineQueue interface {
	Flush(ctx context.Context) (offline.FlushResult, error)
	Pending(ctx context.Context) ([]model.OfflineOperation, error)
}

type EngineHandler struct {
	businessID string
	slots      SlotFinder
	reserver   Reserver
	shifts     ShiftManager
	queue      OfflineQueue
	sessions   *session.Registry
	log        *logger.Logger
}

func NewEngineHandler(
	businessID string,
	slots SlotFinder,
	reserver Reserver,
	shifts ShiftManager,
	queue OfflineQueue,
	sessions *session.Registry,
	log *logger.Logger,
) *EngineHandler {
	return &EngineHandler{
		businessID: businessID,
		slots:      slots,
		reserver:   reserver,
		shifts:     shifts,
		queue:      queue,
		sessions:   sessions,
		log:        log,
	}
}

func (h *EngineHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/api/v1/slots", h.GetSlots)
	router.POST("/api/v1/reservations", h.CreateReservation)

	router.POST("/api/v1/shifts/open", h.OpenShift)
	router.GET("/api/v1/shifts/current", h.CurrentShift)
	router.POST("/api/v1/shifts/id/:id/close", h.CloseShift)
	router.POST("/api/v1/shifts/id/:id/items", h.AddItem)
	router.PATCH("/api/v1/shifts/id/:id/items/:item_id", h.UpdateItem)
	router.DELETE("/api/v1/shifts/id/:id/items/:item_id", h.DeleteItem)

	router.POST("/api/v1/offline/flush", h.FlushQueue)
	router.GET("/api/v1/offline/operations", h.PendingOperations)

	router.POST("/api/v1/sessions", h.CreateSession)
	router.GET("/api/v1/sessions/:id", h.GetSession)
	router.PATCH("/api/v1/sessions/:id", h.UpdateSession)
	router.DELETE("/api/v1/sessions/:id", h.DeleteSession)
	router.PUT("/api/v1/sessions/:id/slot", h.ChooseSlot)
	router.POST("/api/v1/sessions/:id/refresh", h.RefreshSession)
	router.POST("/api/v1/sessions/:id/reserve", h.ReserveSession)
}

func (h *EngineHandler) decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return apperrors.InvalidInput("Request body is empty")
		}
		return apperrors.InvalidInput("Invalid request body")
	}
	return nil
}

func (h *EngineHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}

func (h *EngineHandler) writeSuccess(w http.ResponseWriter, handler string, data any) {
	if err := httputil.WriteSuccess(w, data); err != nil {
		h.log.Error("failed to write success response", "handler", handler, "operation", "WriteSuccess", "error", err)
	}
}

// writeOutcome answers 202 when the mutation was queued for replay.
func (h *EngineHandler) writeOutcome(w http.ResponseWriter, handler string, out shifts.Outcome) {
	write := httputil.WriteSuccess
	if out.Queued {
		write = httputil.WriteAccepted
	}
	if err := write(w, out); err != nil {
		h.log.Error("failed to write outcome response", "handler", handler, "operation", "WriteOutcome", "error", err)
	}
}
