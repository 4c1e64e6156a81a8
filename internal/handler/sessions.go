package handler

import (
	"net/http"
	"strconv"

	"github.com/julienschmidt/httprouter"

	"slotkeeper/internal/session"
	apperrors "slotkeeper/pkg/errors"
	httputil "slotkeeper/pkg/http"
	"slotkeeper/pkg/middleware"
	"slotkeeper/pkg/model"
)

func (h *EngineHandler) lookupSession(w http.ResponseWriter, handler string, ps httprouter.Params) (*session.Session, bool) {
	s, ok := h.sessions.Get(ps.ByName("id"))
	if !ok {
		h.writeError(w, handler, apperrors.NotFound("Session"))
		return nil, false
	}
	return s, true
}

func (h *EngineHandler) CreateSession(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	s := h.sessions.Create()
	if r.ContentLength != 0 {
		var change session.Change
		if err := h.decode(r, &change); err != nil {
			h.sessions.Delete(s.ID())
			h.writeError(w, "CreateSession", err)
			return
		}
		s.Apply(change)
	}

	if err := httputil.WriteCreated(w, s.View()); err != nil {
		h.log.Error("failed to write created response", "handler", "CreateSession", "operation", "WriteCreated", "error", err)
	}
}

func (h *EngineHandler) GetSession(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	s, ok := h.lookupSession(w, "GetSession", ps)
	if !ok {
		return
	}
	h.writeSuccess(w, "GetSession", s.View())
}

func (h *EngineHandler) UpdateSession(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	s, ok := h.lookupSession(w, "UpdateSession", ps)
	if !ok {
		return
	}

	var change session.Change
	if err := h.decode(r, &change); err != nil {
		h.writeError(w, "UpdateSession", err)
		return
	}
	s.Apply(change)
	h.writeSuccess(w, "UpdateSession", s.View())
}

func (h *EngineHandler) DeleteSession(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	if !h.sessions.Delete(ps.ByName("id")) {
		h.writeError(w, "DeleteSession", apperrors.NotFound("Session"))
		return
	}
	httputil.WriteNoContent(w)
}

func (h *EngineHandler) ChooseSlot(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	s, ok := h.lookupSession(w, "ChooseSlot", ps)
	if !ok {
		return
	}

	var slot model.AvailabilitySlot
	if err := h.decode(r, &slot); err != nil {
		h.writeError(w, "ChooseSlot", err)
		return
	}
	if err := s.ChooseSlot(slot); err != nil {
		h.writeError(w, "ChooseSlot", err)
		return
	}
	h.writeSuccess(w, "ChooseSlot", s.View())
}

func (h *EngineHandler) RefreshSession(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	s, ok := h.lookupSession(w, "RefreshSession", ps)
	if !ok {
		return
	}

	force := false
	if v := r.URL.Query().Get("force"); v != "" {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			h.writeError(w, "RefreshSession", apperrors.InvalidInput("invalid force parameter: "+v))
			return
		}
		force = parsed
	}

	s.Refresh(r.Context(), force)
	h.writeSuccess(w, "RefreshSession", s.View())
}

func (h *EngineHandler) ReserveSession(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	s, ok := h.lookupSession(w, "ReserveSession", ps)
	if !ok {
		return
	}

	var who session.Requester
	if r.ContentLength != 0 {
		if err := h.decode(r, &who); err != nil {
			h.writeError(w, "ReserveSession", err)
			return
		}
	}
	who.UserID = middleware.UserID(r.Context())

	reservation, err := s.Reserve(r.Context(), who)
	h.writeReservation(w, "ReserveSession", reservation, err)
}
