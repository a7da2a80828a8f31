package orders

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gestionale-app/commesse-backend/pkg/auth"
	"github.com/gestionale-app/commesse-backend/pkg/communication"
	"github.com/gestionale-app/commesse-backend/pkg/date"
	"github.com/gestionale-app/commesse-backend/pkg/locking"
	"github.com/gestionale-app/commesse-backend/pkg/logger"
	"github.com/gestionale-app/commesse-backend/pkg/operators"
	"github.com/gestionale-app/commesse-backend/pkg/scheduling"
	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func timeDate(year int, month time.Month, day int, hour int, minute int) time.Time {
	return time.Date(year, month, day, hour, minute, 0, 0, time.UTC)
}

func newTestHandler(orderRepository *MockOrderRepository) *Handler {
	log := logger.Logger{}

	cache, _ := scheduling.NewBusyCacheMemory()
	availability := scheduling.NewAvailabilityChecker(orderRepository, cache, log)

	return &Handler{
		OrderRepository:    orderRepository,
		OperatorRepository: &operators.MockOperatorRepository{},
		Logger:             log,
		ResponseManager:    &communication.ResponseManager{Logger: log},
		Validator:          scheduling.NewValidator(availability, log),
		Availability:       availability,
		SlotRules:          scheduling.NewSlotRules(scheduling.DefaultConfig()),
		Locker:             locking.NewLockerMemory(),
	}
}

func newTestOrder(name string, responsible string, start time.Time, end time.Time) *Order {
	return &Order{
		Name:       name,
		CustomerID: primitive.NewObjectID(),
		Priority:   PriorityMedium,
		Activities: []Activity{
			{
				Name:        "Taglio",
				Responsible: responsible,
				Date:        date.Timespan{Start: start, End: end},
			},
		},
	}
}

func TestHandler_OrderAdd(t *testing.T) {
	repository := &MockOrderRepository{}
	handler := newTestHandler(repository)

	order := newTestOrder("Commessa 1", "op-x",
		timeDate(2026, 10, 1, 10, 0), timeDate(2026, 10, 1, 12, 0))

	body, _ := json.Marshal(order)
	request := httptest.NewRequest(http.MethodPost, "/v1/orders", bytes.NewReader(body))
	recorder := httptest.NewRecorder()

	handler.OrderAdd(recorder, request)

	if recorder.Code != http.StatusOK {
		t.Fatalf("OrderAdd status = %d, body %s", recorder.Code, recorder.Body.String())
	}

	if len(repository.Orders) != 1 {
		t.Fatalf("expected 1 persisted order, got %d", len(repository.Orders))
	}

	persisted := repository.Orders[0]
	if persisted.Activities[0].ID == "" {
		t.Error("activity should have been assigned an id")
	}
	if persisted.Activities[0].Status != StatusStandby {
		t.Errorf("new activity status = %s, want %s", persisted.Activities[0].Status, StatusStandby)
	}
}

func TestHandler_OrderAddRejectsConflicts(t *testing.T) {
	repository := &MockOrderRepository{}
	handler := newTestHandler(repository)

	committed := newTestOrder("Commessa 1", "op-x",
		timeDate(2026, 10, 1, 10, 0), timeDate(2026, 10, 1, 12, 0))
	err := repository.Add(context.Background(), committed)
	if err != nil {
		t.Fatal(err)
	}

	conflicting := newTestOrder("Commessa 2", "op-x",
		timeDate(2026, 10, 1, 11, 0), timeDate(2026, 10, 1, 13, 0))

	body, _ := json.Marshal(conflicting)
	request := httptest.NewRequest(http.MethodPost, "/v1/orders", bytes.NewReader(body))
	recorder := httptest.NewRecorder()

	handler.OrderAdd(recorder, request)

	if recorder.Code != http.StatusUnprocessableEntity {
		t.Fatalf("OrderAdd status = %d, want %d", recorder.Code, http.StatusUnprocessableEntity)
	}

	if len(repository.Orders) != 1 {
		t.Errorf("conflicting order must not be persisted, got %d orders", len(repository.Orders))
	}
}

func TestHandler_OrderAddAllowsTouchingTimespans(t *testing.T) {
	repository := &MockOrderRepository{}
	handler := newTestHandler(repository)

	committed := newTestOrder("Commessa 1", "op-x",
		timeDate(2026, 10, 1, 10, 0), timeDate(2026, 10, 1, 12, 0))
	err := repository.Add(context.Background(), committed)
	if err != nil {
		t.Fatal(err)
	}

	adjacent := newTestOrder("Commessa 2", "op-x",
		timeDate(2026, 10, 1, 12, 0), timeDate(2026, 10, 1, 13, 0))

	body, _ := json.Marshal(adjacent)
	request := httptest.NewRequest(http.MethodPost, "/v1/orders", bytes.NewReader(body))
	recorder := httptest.NewRecorder()

	handler.OrderAdd(recorder, request)

	if recorder.Code != http.StatusOK {
		t.Fatalf("OrderAdd status = %d, body %s", recorder.Code, recorder.Body.String())
	}
}

func TestHandler_OrderUpdateKeepsOwnTimespan(t *testing.T) {
	repository := &MockOrderRepository{}
	handler := newTestHandler(repository)

	order := newTestOrder("Commessa 1", "op-x",
		timeDate(2026, 10, 1, 10, 0), timeDate(2026, 10, 1, 12, 0))
	err := repository.Add(context.Background(), order)
	if err != nil {
		t.Fatal(err)
	}

	// Saving the order again with its own unchanged timespan must not conflict with itself
	body, _ := json.Marshal(order)
	request := httptest.NewRequest(http.MethodPut,
		fmt.Sprintf("/v1/orders/%s", order.ID.Hex()), bytes.NewReader(body))
	request = mux.SetURLVars(request, map[string]string{"orderID": order.ID.Hex()})
	recorder := httptest.NewRecorder()

	handler.OrderUpdate(recorder, request)

	if recorder.Code != http.StatusOK {
		t.Fatalf("OrderUpdate status = %d, body %s", recorder.Code, recorder.Body.String())
	}
}

func TestHandler_ValidateActivities(t *testing.T) {
	repository := &MockOrderRepository{}
	handler := newTestHandler(repository)

	committed := newTestOrder("Commessa 1", "op-x",
		timeDate(2026, 10, 1, 10, 0), timeDate(2026, 10, 1, 12, 0))
	err := repository.Add(context.Background(), committed)
	if err != nil {
		t.Fatal(err)
	}

	payload := map[string]interface{}{
		"rows": []scheduling.CandidateRow{
			{
				Name:        "Montaggio",
				Responsible: "op-x",
				Date: date.Timespan{
					Start: timeDate(2026, 10, 1, 11, 0),
					End:   timeDate(2026, 10, 1, 13, 0),
				},
			},
		},
	}

	body, _ := json.Marshal(payload)
	request := httptest.NewRequest(http.MethodPost, "/v1/orders/validate", bytes.NewReader(body))
	recorder := httptest.NewRecorder()

	handler.ValidateActivities(recorder, request)

	if recorder.Code != http.StatusOK {
		t.Fatalf("ValidateActivities status = %d", recorder.Code)
	}

	result := scheduling.Result{}
	err = json.Unmarshal(recorder.Body.Bytes(), &result)
	if err != nil {
		t.Fatal(err)
	}

	if result.Valid {
		t.Error("overlapping row should not validate")
	}
}

func TestHandler_OperatorAvailability(t *testing.T) {
	repository := &MockOrderRepository{}
	handler := newTestHandler(repository)

	committed := newTestOrder("Commessa 1", "op-x",
		timeDate(2026, 10, 1, 10, 0), timeDate(2026, 10, 1, 12, 0))
	err := repository.Add(context.Background(), committed)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name          string
		start         string
		end           string
		wantAvailable bool
	}{
		{"overlap", "2026-10-01T11:00:00Z", "2026-10-01T13:00:00Z", false},
		{"free slot", "2026-10-01T14:00:00Z", "2026-10-01T15:00:00Z", true},
		{"touching end", "2026-10-01T12:00:00Z", "2026-10-01T13:00:00Z", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			url := fmt.Sprintf("/v1/operators/op-x/availability?start=%s&end=%s", tt.start, tt.end)
			request := httptest.NewRequest(http.MethodGet, url, nil)
			request = mux.SetURLVars(request, map[string]string{"operatorID": "op-x"})
			recorder := httptest.NewRecorder()

			handler.OperatorAvailability(recorder, request)

			if recorder.Code != http.StatusOK {
				t.Fatalf("OperatorAvailability status = %d", recorder.Code)
			}

			response := map[string]interface{}{}
			err := json.Unmarshal(recorder.Body.Bytes(), &response)
			if err != nil {
				t.Fatal(err)
			}

			if response["available"] != tt.wantAvailable {
				t.Errorf("available = %v, want %v", response["available"], tt.wantAvailable)
			}
		})
	}
}

func TestHandler_ActivityStatusUpdateSetsCompletedOnce(t *testing.T) {
	repository := &MockOrderRepository{}
	handler := newTestHandler(repository)

	order := newTestOrder("Commessa 1", "op-x",
		timeDate(2026, 10, 1, 10, 0), timeDate(2026, 10, 1, 12, 0))
	err := repository.Add(context.Background(), order)
	if err != nil {
		t.Fatal(err)
	}

	activityID := repository.Orders[0].Activities[0].ID

	update := func(status string) {
		body, _ := json.Marshal(map[string]string{"status": status})
		request := httptest.NewRequest(http.MethodPut, "/v1/orders/x/activities/y/status", bytes.NewReader(body))
		request = mux.SetURLVars(request, map[string]string{
			"orderID":    order.ID.Hex(),
			"activityID": activityID,
		})
		recorder := httptest.NewRecorder()

		handler.ActivityStatusUpdate(recorder, request)
		if recorder.Code != http.StatusOK {
			t.Fatalf("ActivityStatusUpdate status = %d, body %s", recorder.Code, recorder.Body.String())
		}
	}

	update(string(StatusCompleted))

	first := repository.Orders[0].Activities[0].Completed
	if first == nil {
		t.Fatal("completed timestamp should have been set")
	}

	update(string(StatusInProgress))
	update(string(StatusCompleted))

	second := repository.Orders[0].Activities[0].Completed
	if second == nil || !second.Equal(*first) {
		t.Errorf("completed timestamp changed from %v to %v", first, second)
	}
}

func TestHandler_ActivityStatusUpdateRejectsUnknownStatus(t *testing.T) {
	repository := &MockOrderRepository{}
	handler := newTestHandler(repository)

	order := newTestOrder("Commessa 1", "op-x",
		timeDate(2026, 10, 1, 10, 0), timeDate(2026, 10, 1, 12, 0))
	err := repository.Add(context.Background(), order)
	if err != nil {
		t.Fatal(err)
	}

	body, _ := json.Marshal(map[string]string{"status": "Fertig"})
	request := httptest.NewRequest(http.MethodPut, "/v1/orders/x/activities/y/status", bytes.NewReader(body))
	request = mux.SetURLVars(request, map[string]string{
		"orderID":    order.ID.Hex(),
		"activityID": repository.Orders[0].Activities[0].ID,
	})
	recorder := httptest.NewRecorder()

	handler.ActivityStatusUpdate(recorder, request)

	if recorder.Code != http.StatusBadRequest {
		t.Errorf("ActivityStatusUpdate status = %d, want %d", recorder.Code, http.StatusBadRequest)
	}
}

func TestHandler_ActivityNoteAdd(t *testing.T) {
	repository := &MockOrderRepository{}
	handler := newTestHandler(repository)

	order := newTestOrder("Commessa 1", "op-x",
		timeDate(2026, 10, 1, 10, 0), timeDate(2026, 10, 1, 12, 0))
	err := repository.Add(context.Background(), order)
	if err != nil {
		t.Fatal(err)
	}

	body, _ := json.Marshal(map[string]string{"content": "Materiale in ritardo"})
	request := httptest.NewRequest(http.MethodPost, "/v1/orders/x/activities/y/notes", bytes.NewReader(body))
	request = request.WithContext(context.WithValue(request.Context(), auth.KeyUserID, "op-sender"))
	request = mux.SetURLVars(request, map[string]string{
		"orderID":    order.ID.Hex(),
		"activityID": repository.Orders[0].Activities[0].ID,
	})
	recorder := httptest.NewRecorder()

	handler.ActivityNoteAdd(recorder, request)

	if recorder.Code != http.StatusOK {
		t.Fatalf("ActivityNoteAdd status = %d, body %s", recorder.Code, recorder.Body.String())
	}

	notes := repository.Orders[0].Activities[0].Notes
	if len(notes) != 1 {
		t.Fatalf("expected 1 note, got %d", len(notes))
	}
	if notes[0].Sender != "op-sender" {
		t.Errorf("note sender = %s, want op-sender", notes[0].Sender)
	}
	if notes[0].Content != "Materiale in ritardo" {
		t.Errorf("note content = %s", notes[0].Content)
	}
}

func TestHandler_OrderArchive(t *testing.T) {
	repository := &MockOrderRepository{}
	handler := newTestHandler(repository)

	order := newTestOrder("Commessa 1", "op-x",
		timeDate(2026, 10, 1, 10, 0), timeDate(2026, 10, 1, 12, 0))
	err := repository.Add(context.Background(), order)
	if err != nil {
		t.Fatal(err)
	}

	request := httptest.NewRequest(http.MethodPost, "/v1/orders/x/archive", nil)
	request = mux.SetURLVars(request, map[string]string{"orderID": order.ID.Hex()})
	recorder := httptest.NewRecorder()

	handler.OrderArchive(recorder, request)

	if recorder.Code != http.StatusNoContent {
		t.Fatalf("OrderArchive status = %d", recorder.Code)
	}

	if len(repository.Orders) != 0 {
		t.Error("archived order should be removed from the active collection")
	}
	if len(repository.ArchivedOrders) != 1 {
		t.Error("archived order should have been copied into the archive")
	}
}
