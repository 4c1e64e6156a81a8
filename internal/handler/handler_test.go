package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/julienschmidt/httprouter"

	"slotkeeper/internal/availability"
	"slotkeeper/internal/offline"
	"slotkeeper/internal/session"
	"slotkeeper/internal/shifts"
	apperrors "slotkeeper/pkg/errors"
	"slotkeeper/pkg/logger"
	"slotkeeper/pkg/middleware"
	"slotkeeper/pkg/model"
)

type mockSlotFinder struct {
	query    availability.Query
	getSlots func(ctx context.Context, q availability.Query) availability.Result
}

func (m *mockSlotFinder) GetSlots(ctx context.Context, q availability.Query) availability.Result {
	m.query = q
	if m.getSlots != nil {
		return m.getSlots(ctx, q)
	}
	return availability.Result{Key: q.Key()}
}

type mockReserver struct {
	intent      model.ReservationIntent
	reserveFunc func(ctx context.Context, intent model.ReservationIntent) (*model.Reservation, error)
}

func (m *mockReserver) Reserve(ctx context.Context, intent model.ReservationIntent) (*model.Reservation, error) {
	m.intent = intent
	if m.reserveFunc != nil {
		return m.reserveFunc(ctx, intent)
	}
	return &model.Reservation{ID: "R1", Status: model.StatusConfirmed}, nil
}

type mockShifts struct {
	outcome      shifts.Outcome
	err          error
	lastItem     model.ItemRequest
	lastClose    model.CloseShiftRequest
	currentShift *model.Shift
	stale        bool
}

func (m *mockShifts) OpenShift(context.Context, model.OpenShiftRequest) (shifts.Outcome, error) {
	return m.outcome, m.err
}

func (m *mockShifts) CloseShift(_ context.Context, req model.CloseShiftRequest) (shifts.Outcome, error) {
	m.lastClose = req
	return m.outcome, m.err
}

func (m *mockShifts) AddItem(_ context.Context, req model.ItemRequest) (shifts.Outcome, error) {
	m.lastItem = req
	return m.outcome, m.err
}

func (m *mockShifts) UpdateItem(_ context.Context, req model.ItemRequest) (shifts.Outcome, error) {
	m.lastItem = req
	return m.outcome, m.err
}

func (m *mockShifts) DeleteItem(context.Context, model.DeleteItemRequest) (shifts.Outcome, error) {
	return m.outcome, m.err
}

func (m *mockShifts) CurrentShift(context.Context, string) (*model.Shift, bool, error) {
	return m.currentShift, m.stale, m.err
}

type mockQueue struct {
	result offline.FlushResult
	err    error
}

func (m *mockQueue) Flush(context.Context) (offline.FlushResult, error) {
	return m.result, m.err
}

func (m *mockQueue) Pending(context.Context) ([]model.OfflineOperation, error) {
	return nil, m.err
}

type stubRoster struct{}

func (stubRoster) Performs(string, string) bool  { return true }
func (stubRoster) Refresh(context.Context) error { return nil }
func (stubRoster) Warning() error                { return nil }

type fixture struct {
	slots    *mockSlotFinder
	reserver *mockReserver
	shifts   *mockShifts
	queue    *mockQueue
	router   http.Handler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	log := logger.Discard()
	f := &fixture{
		slots:    &mockSlotFinder{},
		reserver: &mockReserver{},
		shifts:   &mockShifts{},
		queue:    &mockQueue{},
	}
	registry := session.NewRegistry(func(id string) *session.Session {
		w := availability.NewWatcher(f.slots, time.Millisecond, time.Second, log)
		return session.New(id, "b1", stubRoster{}, w, f.reserver, log)
	}, time.Hour, log)

	router := httprouter.New()
	NewEngineHandler("b1", f.slots, f.reserver, f.shifts, f.queue, registry, log).RegisterRoutes(router)
	f.router = middleware.UserIdentity()(router)
	return f
}

func (f *fixture) do(method, path, body string) *httptest.ResponseRecorder {
	return f.doAs("", method, path, body)
}

func (f *fixture) doAs(userID, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	if userID != "" {
		req.Header.Set(middleware.UserIDHeader, userID)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON body %q: %v", rec.Body.String(), err)
	}
	return body
}

func TestGetSlots(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodGet, "/api/v1/slots?day=2025-03-10&staff_id=s1&service_id=svc&branch_id=br&force=true", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	want := availability.Query{Day: "2025-03-10", StaffID: "s1", ServiceID: "svc", BranchID: "br", ForceRefresh: true}
	if f.slots.query != want {
		t.Errorf("query = %+v, want %+v", f.slots.query, want)
	}

	rec = f.do(http.MethodGet, "/api/v1/slots?force=maybe", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad force status = %d", rec.Code)
	}
}

func TestGetSlots_DomainError(t *testing.T) {
	f := newFixture(t)
	f.slots.getSlots = func(_ context.Context, q availability.Query) availability.Result {
		return availability.Result{Key: q.Key(), Err: apperrors.ServiceNotPerformed("s1", "svc")}
	}

	rec := f.do(http.MethodGet, "/api/v1/slots?day=2025-03-10&staff_id=s1&service_id=svc&branch_id=br", "")
	body := decodeBody(t, rec)
	if body["code"] != apperrors.CodeServiceNotPerformed {
		t.Errorf("code = %v", body["code"])
	}
	if body["category"] != string(apperrors.CategoryDomain) {
		t.Errorf("category = %v", body["category"])
	}
}

func TestCreateReservation(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		reserve    func(context.Context, model.ReservationIntent) (*model.Reservation, error)
		wantStatus int
		wantCode   string
	}{
		{
			name:       "confirmed",
			body:       `{"service_id":"svc","staff_id":"s1","branch_id":"br","start_at":"2025-03-10T09:00:00Z","user_id":"u1"}`,
			wantStatus: http.StatusCreated,
		},
		{
			name: "held not confirmed",
			body: `{"service_id":"svc","staff_id":"s1","branch_id":"br","start_at":"2025-03-10T09:00:00Z","user_id":"u1"}`,
			reserve: func(context.Context, model.ReservationIntent) (*model.Reservation, error) {
				return &model.Reservation{ID: "R9", Status: model.StatusHold}, apperrors.ReservedNotConfirmed("R9", errors.New("timeout"))
			},
			wantStatus: http.StatusAccepted,
			wantCode:   apperrors.CodeReservedNotConfirmed,
		},
		{
			name: "validation",
			body: `{"service_id":"svc"}`,
			reserve: func(context.Context, model.ReservationIntent) (*model.Reservation, error) {
				return nil, apperrors.Validation("Invalid reservation", map[string]any{"staff_id": "is required"})
			},
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   apperrors.CodeValidation,
		},
		{
			name:       "malformed body",
			body:       `{`,
			wantStatus: http.StatusBadRequest,
			wantCode:   apperrors.CodeInvalidInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.reserver.reserveFunc = tt.reserve

			rec := f.do(http.MethodPost, "/api/v1/reservations", tt.body)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d, body = %s", rec.Code, tt.wantStatus, rec.Body.String())
			}
			body := decodeBody(t, rec)
			if tt.wantCode != "" && body["code"] != tt.wantCode {
				t.Errorf("code = %v, want %s", body["code"], tt.wantCode)
			}
			if tt.wantStatus == http.StatusCreated && f.reserver.intent.BusinessID != "b1" {
				t.Errorf("business id defaulted to %q", f.reserver.intent.BusinessID)
			}
			if tt.wantStatus == http.StatusAccepted {
				data, _ := body["data"].(map[string]any)
				if data["id"] != "R9" {
					t.Errorf("held reservation missing from body: %v", body)
				}
			}
		})
	}
}

func TestCreateReservation_IdentityFromHeader(t *testing.T) {
	f := newFixture(t)
	body := `{"business_id":"other","service_id":"svc","staff_id":"s1","branch_id":"br","start_at":"2025-03-10T09:00:00Z","user_id":"spoofed"}`

	rec := f.do(http.MethodPost, "/api/v1/reservations", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d", rec.Code)
	}
	if f.reserver.intent.UserID != "" {
		t.Errorf("user id from body was trusted: %q", f.reserver.intent.UserID)
	}
	if f.reserver.intent.BusinessID != "b1" {
		t.Errorf("business id = %q, want b1", f.reserver.intent.BusinessID)
	}

	f.doAs("u42", http.MethodPost, "/api/v1/reservations", body)
	if f.reserver.intent.UserID != "u42" {
		t.Errorf("user id = %q, want u42 from header", f.reserver.intent.UserID)
	}
}

func TestShiftRoutes(t *testing.T) {
	f := newFixture(t)

	f.shifts.outcome = shifts.Outcome{Queued: true, OperationID: "op1"}
	rec := f.do(http.MethodPost, "/api/v1/shifts/id/sh1/items", `{"service_id":"svc","price":500}`)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("queued add status = %d", rec.Code)
	}
	if f.shifts.lastItem.ShiftID != "sh1" || f.shifts.lastItem.Item.Price != 500 {
		t.Errorf("item request = %+v", f.shifts.lastItem)
	}

	f.shifts.outcome = shifts.Outcome{}
	rec = f.do(http.MethodPatch, "/api/v1/shifts/id/sh1/items/i7", `{"service_id":"svc","price":650}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("update status = %d", rec.Code)
	}
	if f.shifts.lastItem.Item.ID != "i7" {
		t.Errorf("item id = %q, want path value", f.shifts.lastItem.Item.ID)
	}

	rec = f.do(http.MethodPost, "/api/v1/shifts/id/sh1/close", "")
	if rec.Code != http.StatusOK || f.shifts.lastClose.ShiftID != "sh1" {
		t.Errorf("close status = %d, req = %+v", rec.Code, f.shifts.lastClose)
	}

	rec = f.do(http.MethodGet, "/api/v1/shifts/current", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing staff status = %d", rec.Code)
	}

	f.shifts.currentShift = &model.Shift{ID: "sh1"}
	f.shifts.stale = true
	rec = f.do(http.MethodGet, "/api/v1/shifts/current?staff_id=s1", "")
	body := decodeBody(t, rec)
	data, _ := body["data"].(map[string]any)
	if data["stale"] != true {
		t.Errorf("stale flag missing: %v", body)
	}
}

func TestFlushQueue(t *testing.T) {
	f := newFixture(t)
	f.queue.result = offline.FlushResult{Processed: 2, Failed: 1, Remaining: 1}

	rec := f.do(http.MethodPost, "/api/v1/offline/flush", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	data, _ := decodeBody(t, rec)["data"].(map[string]any)
	if data["processed"] != float64(2) || data["failed"] != float64(1) {
		t.Errorf("result = %v", data)
	}

	f.queue.err = errors.New("redis down")
	rec = f.do(http.MethodPost, "/api/v1/offline/flush", "")
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestSessionLifecycle(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodPost, "/api/v1/sessions", `{"branch_id":"br","day":"2025-03-10"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d", rec.Code)
	}
	data, _ := decodeBody(t, rec)["data"].(map[string]any)
	id, _ := data["id"].(string)
	if id == "" {
		t.Fatalf("no session id in %v", data)
	}
	sel, _ := data["selection"].(map[string]any)
	if sel["branch_id"] != "br" || sel["day"] != "2025-03-10" {
		t.Errorf("selection = %v", sel)
	}

	rec = f.do(http.MethodPost, "/api/v1/sessions/"+id+"/reserve", `{"user_id":"u1"}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("reserve without slot status = %d", rec.Code)
	}

	rec = f.do(http.MethodDelete, "/api/v1/sessions/"+id, "")
	if rec.Code != http.StatusNoContent {
		t.Errorf("delete status = %d", rec.Code)
	}
	rec = f.do(http.MethodGet, "/api/v1/sessions/"+id, "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("get after delete status = %d", rec.Code)
	}
}

func TestHealth(t *testing.T) {
	router := httprouter.New()
	NewHealthHandler(map[string]Checker{
		"redis": func(context.Context) error { return errors.New("down") },
		"mongo": func(context.Context) error { return nil },
	}, logger.Discard()).RegisterRoutes(router)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("health status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("ready status = %d", rec.Code)
	}
	var resp HealthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Dependencies["redis"] != "error" || resp.Dependencies["mongo"] != "ok" {
		t.Errorf("dependencies = %v", resp.Dependencies)
	}
}
