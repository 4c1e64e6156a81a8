package handler

import (
	"net/http"

	"github.com/julienschmidt/httprouter"

	apperrors "slotkeeper/pkg/errors"
	httputil "slotkeeper/pkg/http"
	"slotkeeper/pkg/middleware"
	"slotkeeper/pkg/model"
)

func (h *EngineHandler) CreateReservation(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var intent model.ReservationIntent
	if err := h.decode(r, &intent); err != nil {
		h.writeError(w, "CreateReservation", err)
		return
	}
	intent.BusinessID = h.businessID
	intent.UserID = middleware.UserID(r.Context())

	reservation, err := h.reserver.Reserve(r.Context(), intent)
	h.writeReservation(w, "CreateReservation", reservation, err)
}

// writeReservation answers 201 on success and 202 with the held
// reservation when the hold succeeded but the confirmation did not.
func (h *EngineHandler) writeReservation(w http.ResponseWriter, handler string, reservation *model.Reservation, err error) {
	if err != nil && reservation != nil && apperrors.HasCode(err, apperrors.CodeReservedNotConfirmed) {
		if writeErr := httputil.WriteErrorWithData(w, err, reservation); writeErr != nil {
			h.log.Error("failed to write error response", "handler", handler, "operation", "WriteErrorWithData", "error", writeErr)
		}
		return
	}
	if err != nil {
		h.writeError(w, handler, err)
		return
	}

	if err := httputil.WriteCreated(w, reservation); err != nil {
		h.log.Error("failed to write created response", "handler", handler, "operation", "WriteCreated", "error", err)
	}
}
