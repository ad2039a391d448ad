package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"debatearena/db"
	"debatearena/internal/debate"
	"debatearena/middlewares"
	"debatearena/services"
	"debatearena/structs"

	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeEvents struct {
	after string
	count int64
}

func (f *fakeEvents) Since(_ context.Context, _, afterID string, count int64) ([]*debate.Event, error) {
	f.after, f.count = afterID, count
	e, _ := debate.NewEvent(debate.EventPlayerJoined, nil)
	e.ID = "5-0"
	return []*debate.Event{e}, nil
}

type fakeTicker struct {
	err error
}

func (f fakeTicker) Tick(context.Context) (services.TickReport, error) {
	return services.TickReport{Scanned: 2, Advanced: 1}, f.err
}

func (f fakeTicker) Reevaluate(_ context.Context, roomID string) (bool, error) {
	if roomID == "missing" {
		return false, services.ErrRoomNotFound
	}
	return true, nil
}

func newTestServer(events EventReader) *gin.Engine {
	store := db.NewMemoryStore()
	judges := services.NewJudgeService(store, nil, services.NewOutcome(store))
	machine := services.NewPhaseMachine(store, judges, nil, services.DefaultTimings())
	rooms := services.NewRoomService(store, machine, nil, nil)

	r := gin.New()
	SetupRoomRoutes(r, rooms, events)
	SetupInternalRoutes(r, fakeTicker{}, "secret")
	return r
}

func do(r *gin.Engine, method, path, player string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if player != "" {
		req.Header.Set(middlewares.PlayerIDHeader, player)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeRoom(t *testing.T, w *httptest.ResponseRecorder) structs.RoomResponse {
	t.Helper()
	var room structs.RoomResponse
	if err := json.Unmarshal(w.Body.Bytes(), &room); err != nil {
		t.Fatalf("decode room: %v (%s)", err, w.Body.String())
	}
	return room
}

func TestGetMissingRoom(t *testing.T) {
	r := newTestServer(nil)
	w := do(r, http.MethodGet, "/rooms/nope", "", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d", w.Code)
	}
	var body map[string]string
	json.Unmarshal(w.Body.Bytes(), &body)
	if body["error"] != "Room not found" {
		t.Errorf("body = %s", w.Body.String())
	}
}

func TestRoomLifecycleOverHTTP(t *testing.T) {
	r := newTestServer(nil)

	w := do(r, http.MethodPost, "/rooms", "alice", structs.CreateRoomRequest{Topic: "Remote work beats office work"})
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d: %s", w.Code, w.Body.String())
	}
	id := decodeRoom(t, w).ID

	if w := do(r, http.MethodPost, "/rooms/"+id+"/join", "", nil); w.Code != http.StatusUnauthorized {
		t.Errorf("anonymous join status = %d", w.Code)
	}
	do(r, http.MethodPost, "/rooms/"+id+"/join", "alice", nil)
	w = do(r, http.MethodPost, "/rooms/"+id+"/join", "bob", nil)
	if room := decodeRoom(t, w); room.YourSlot != "b" || room.PlayerA == nil || room.PlayerA.ID != "alice" {
		t.Errorf("after joins: %+v", room)
	}
	if w := do(r, http.MethodPost, "/rooms/"+id+"/join", "carol", nil); w.Code != http.StatusConflict {
		t.Errorf("third join status = %d", w.Code)
	}
	if w := do(r, http.MethodPost, "/rooms/"+id+"/ready", "carol", map[string]bool{"ready": true}); w.Code != http.StatusForbidden {
		t.Errorf("spectator ready status = %d", w.Code)
	}
	if w := do(r, http.MethodPost, "/rooms/"+id+"/ready", "alice", map[string]string{}); w.Code != http.StatusBadRequest {
		t.Errorf("ready without body status = %d", w.Code)
	}

	do(r, http.MethodPost, "/rooms/"+id+"/ready", "alice", map[string]bool{"ready": true})
	w = do(r, http.MethodPost, "/rooms/"+id+"/ready", "bob", map[string]bool{"ready": true})
	if room := decodeRoom(t, w); room.Status != "side_selection" {
		t.Fatalf("status = %s", room.Status)
	}

	if w := do(r, http.MethodPost, "/rooms/"+id+"/vote", "alice", map[string]string{"side": "maybe"}); w.Code != http.StatusBadRequest {
		t.Errorf("bad vote status = %d", w.Code)
	}
	if w := do(r, http.MethodPost, "/rooms/"+id+"/messages", "alice", structs.MessageRequest{Content: "too early"}); w.Code != http.StatusConflict {
		t.Errorf("early message status = %d", w.Code)
	}

	w = do(r, http.MethodGet, "/rooms/"+id+"/turn", "alice", nil)
	var turn structs.TurnResponse
	json.Unmarshal(w.Body.Bytes(), &turn)
	if w.Code != http.StatusOK || turn.Speaker != string(services.SpeakerNone) || turn.YourTurn {
		t.Errorf("turn = %d %+v", w.Code, turn)
	}
}

func TestEventsEndpoint(t *testing.T) {
	events := &fakeEvents{}
	r := newTestServer(events)

	w := do(r, http.MethodGet, "/rooms/r1/events?after=4-0&count=20", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if events.after != "4-0" || events.count != 20 {
		t.Errorf("reader got after=%q count=%d", events.after, events.count)
	}
	if w := do(r, http.MethodGet, "/rooms/r1/events?count=0", "", nil); w.Code != http.StatusBadRequest {
		t.Errorf("zero count status = %d", w.Code)
	}

	empty := newTestServer(nil)
	if w := do(empty, http.MethodGet, "/rooms/r1/events", "", nil); w.Code != http.StatusOK {
		t.Errorf("no stream status = %d", w.Code)
	}
}

func TestInternalRoutesRequireToken(t *testing.T) {
	r := newTestServer(nil)

	if w := do(r, http.MethodPost, "/internal/tick", "", nil); w.Code != http.StatusUnauthorized {
		t.Errorf("tick without token status = %d", w.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/internal/tick", nil)
	req.Header.Set(middlewares.InternalTokenHeader, "secret")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	var report services.TickReport
	json.Unmarshal(w.Body.Bytes(), &report)
	if w.Code != http.StatusOK || report.Advanced != 1 {
		t.Errorf("tick = %d %s", w.Code, w.Body.String())
	}

	req = httptest.NewRequest(http.MethodPost, "/internal/rooms/missing/evaluate", nil)
	req.Header.Set(middlewares.InternalTokenHeader, "secret")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Errorf("evaluate missing room status = %d", w.Code)
	}
}

func TestWriteErrorFallsBackTo500(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	writeError(c, errors.New("boom"))
	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d", w.Code)
	}

	w = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(w)
	writeError(c, services.ErrRateLimited)
	if w.Code != http.StatusTooManyRequests {
		t.Errorf("rate limited status = %d", w.Code)
	}
}
