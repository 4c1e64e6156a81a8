package handler

import (
	"net/http"
	"strconv"

	"github.com/julienschmidt/httprouter"

	"slotkeeper/internal/availability"
	apperrors "slotkeeper/pkg/errors"
	httputil "slotkeeper/pkg/http"
)

func (h *EngineHandler) GetSlots(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	query := r.URL.Query()

	force := false
	if s := query.Get("force"); s != "" {
		v, err := strconv.ParseBool(s)
		if err != nil {
			h.writeError(w, "GetSlots", apperrors.InvalidInput("invalid force parameter: "+s))
			return
		}
		force = v
	}

	res := h.slots.GetSlots(r.Context(), availability.Query{
		Day:          query.Get("day"),
		StaffID:      query.Get("staff_id"),
		ServiceID:    query.Get("service_id"),
		BranchID:     query.Get("branch_id"),
		ForceRefresh: force,
	})
	if res.Err != nil {
		if err := httputil.WriteErrorWithData(w, res.Err, res); err != nil {
			h.log.Error("failed to write error response", "handler", "GetSlots", "operation", "WriteErrorWithData", "error", err)
		}
		return
	}

	h.writeSuccess(w, "GetSlots", res)
}
