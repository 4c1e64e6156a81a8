package handler

import (
	"net/http"

	"github.com/julienschmidt/httprouter"

	apperrors "slotkeeper/pkg/errors"
	"slotkeeper/pkg/model"
)

type currentShiftResponse struct {
	Shift *model.Shift `json:"shift"`
	Stale bool         `json:"stale"`
}

func (h *EngineHandler) OpenShift(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req model.OpenShiftRequest
	if err := h.decode(r, &req); err != nil {
		h.writeError(w, "OpenShift", err)
		return
	}

	out, err := h.shifts.OpenShift(r.Context(), req)
	if err != nil {
		h.writeError(w, "OpenShift", err)
		return
	}
	h.writeOutcome(w, "OpenShift", out)
}

func (h *EngineHandler) CloseShift(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	req := model.CloseShiftRequest{}
	if r.ContentLength != 0 {
		if err := h.decode(r, &req); err != nil {
			h.writeError(w, "CloseShift", err)
			return
		}
	}
	req.ShiftID = ps.ByName("id")

	out, err := h.shifts.CloseShift(r.Context(), req)
	if err != nil {
		h.writeError(w, "CloseShift", err)
		return
	}
	h.writeOutcome(w, "CloseShift", out)
}

func (h *EngineHandler) AddItem(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var item model.WalkInItem
	if err := h.decode(r, &item); err != nil {
		h.writeError(w, "AddItem", err)
		return
	}

	out, err := h.shifts.AddItem(r.Context(), model.ItemRequest{ShiftID: ps.ByName("id"), Item: item})
	if err != nil {
		h.writeError(w, "AddItem", err)
		return
	}
	h.writeOutcome(w, "AddItem", out)
}

func (h *EngineHandler) UpdateItem(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var item model.WalkInItem
	if err := h.decode(r, &item); err != nil {
		h.writeError(w, "UpdateItem", err)
		return
	}
	item.ID = ps.ByName("item_id")

	out, err := h.shifts.UpdateItem(r.Context(), model.ItemRequest{ShiftID: ps.ByName("id"), Item: item})
	if err != nil {
		h.writeError(w, "UpdateItem", err)
		return
	}
	h.writeOutcome(w, "UpdateItem", out)
}

func (h *EngineHandler) DeleteItem(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	out, err := h.shifts.DeleteItem(r.Context(), model.DeleteItemRequest{
		ShiftID: ps.ByName("id"),
		ItemID:  ps.ByName("item_id"),
	})
	if err != nil {
		h.writeError(w, "DeleteItem", err)
		return
	}
	h.writeOutcome(w, "DeleteItem", out)
}

func (h *EngineHandler) CurrentShift(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	staffID := r.URL.Query().Get("staff_id")
	if staffID == "" {
		h.writeError(w, "CurrentShift", apperrors.InvalidInput("staff_id is required"))
		return
	}

	shift, stale, err := h.shifts.CurrentShift(r.Context(), staffID)
	if err != nil {
		h.writeError(w, "CurrentShift", err)
		return
	}
	h.writeSuccess(w, "CurrentShift", currentShiftResponse{Shift: shift, Stale: stale})
}

func (h *EngineHandler) FlushQueue(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	result, err := h.queue.Flush(r.Context())
	if err != nil {
		h.writeError(w, "FlushQueue", apperrors.Internal("Failed to flush offline queue", err))
		return
	}
	h.writeSuccess(w, "FlushQueue", result)
}

func (h *EngineHandler) PendingOperations(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ops, err := h.queue.Pending(r.Context())
	if err != nil {
		h.writeError(w, "PendingOperations", apperrors.Internal("Failed to read offline queue", err))
		return
	}
	h.writeSuccess(w, "PendingOperations", ops)
}
