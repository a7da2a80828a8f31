package orders

import (
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gestionale-app/commesse-backend/pkg/auth"
	"github.com/gestionale-app/commesse-backend/pkg/communication"
	"github.com/gestionale-app/commesse-backend/pkg/date"
	"github.com/gestionale-app/commesse-backend/pkg/email"
	"github.com/gestionale-app/commesse-backend/pkg/locking"
	"github.com/gestionale-app/commesse-backend/pkg/logger"
	"github.com/gestionale-app/commesse-backend/pkg/operators"
	"github.com/gestionale-app/commesse-backend/pkg/scheduling"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const operatorLockTTL = 10 * time.Second

// Handler handles all order related API calls
type Handler struct {
	OrderRepository    OrderRepositoryInterface
	OperatorRepository operators.OperatorRepositoryInterface
	Logger             logger.Interface
	ResponseManager    *communication.ResponseManager
	Validator          *scheduling.Validator
	Availability       *scheduling.AvailabilityChecker
	SlotRules          *scheduling.SlotRules
	Locker             locking.LockerInterface
	EmailService       email.Mailer
}

// OrderAdd is the route for adding an order
func (handler *Handler) OrderAdd(writer http.ResponseWriter, request *http.Request) {
	order := Order{}

	err := json.NewDecoder(request.Body).Decode(&order)
	if err != nil {
		handler.ResponseManager.RespondWithError(writer, http.StatusBadRequest, "Wrong format", err)
		return
	}

	// Activities of a new order are always fresh drafts
	for index := range order.Activities {
		order.Activities[index].ID = ""
	}

	if !handler.validateOrderPayload(writer, &order) {
		return
	}

	rows := order.CandidateRows()
	result := handler.Validator.ValidateRows(request.Context(), rows, "")
	if !result.Valid {
		handler.ResponseManager.RespondWithStatus(writer, map[string]interface{}{"validation": result}, http.StatusUnprocessableEntity)
		return
	}

	locks, err := handler.acquireOperatorLocks(request, order.Responsibles())
	if err != nil {
		handler.ResponseManager.RespondWithError(writer, http.StatusInternalServerError,
			"Could not lock operator schedules", err)
		return
	}
	defer handler.releaseOperatorLocks(request, locks)

	// Another session may have written between validation and locking
	result = handler.Validator.ValidateRows(request.Context(), rows, "")
	if !result.Valid {
		handler.ResponseManager.RespondWithStatus(writer, map[string]interface{}{"validation": result}, http.StatusConflict)
		return
	}

	err = handler.OrderRepository.Add(request.Context(), &order)
	if err != nil {
		handler.ResponseManager.RespondWithError(writer, http.StatusInternalServerError,
			"Persisting order in database did not work", err)
		return
	}

	handler.invalidateBusyCaches(request, order.Responsibles())

	if order.Confirmed {
		handler.sendConfirmationEmail(request, &order)
	}

	handler.ResponseManager.Respond(writer, &order)
}

// OrderUpdate is the route for updating an order
func (handler *Handler) OrderUpdate(writer http.ResponseWriter, request *http.Request) {
	orderID := mux.Vars(request)["orderID"]

	order, err := handler.OrderRepository.FindUpdatableByID(request.Context(), orderID)
	if err != nil {
		handler.ResponseManager.RespondWithError(writer, http.StatusNotFound, "Couldn't find order", err)
		return
	}
	// The decoder writes into the existing activities in place, the snapshot
	// needs its own backing array
	original := *order
	original.Activities = append([]Activity(nil), order.Activities...)

	err = json.NewDecoder(request.Body).Decode(&order)
	if err != nil {
		handler.ResponseManager.RespondWithError(writer, http.StatusBadRequest, "Wrong format", err)
		return
	}

	if !handler.validateOrderPayload(writer, (*Order)(order)) {
		return
	}

	applyCompletionTimestamps(original.Activities, order.Activities)

	rows := (*Order)(order).CandidateRows()
	result := handler.Validator.ValidateRows(request.Context(), rows, orderID)
	if !result.Valid {
		handler.ResponseManager.RespondWithStatus(writer, map[string]interface{}{"validation": result}, http.StatusUnprocessableEntity)
		return
	}

	responsibles := unionResponsibles(original.Activities, order.Activities)

	locks, err := handler.acquireOperatorLocks(request, responsibles)
	if err != nil {
		handler.ResponseManager.RespondWithError(writer, http.StatusInternalServerError,
			"Could not lock operator schedules", err)
		return
	}
	defer handler.releaseOperatorLocks(request, locks)

	result = handler.Validator.ValidateRows(request.Context(), rows, orderID)
	if !result.Valid {
		handler.ResponseManager.RespondWithStatus(writer, map[string]interface{}{"validation": result}, http.StatusConflict)
		return
	}

	err = handler.OrderRepository.Update(request.Context(), order)
	if err != nil {
		handler.ResponseManager.RespondWithError(writer, http.StatusInternalServerError, "Could not persist order", err)
		return
	}

	handler.invalidateBusyCaches(request, responsibles)

	if !original.Confirmed && order.Confirmed {
		handler.sendConfirmationEmail(request, (*Order)(order))
	}

	returnOrder := Order(*order)

	handler.ResponseManager.Respond(writer, &returnOrder)
}

func (handler *Handler) validateOrderPayload(writer http.ResponseWriter, order *Order) bool {
	v := validator.New()
	err := v.Struct(order)
	if err != nil {
		for _, e := range err.(validator.ValidationErrors) {
			handler.ResponseManager.RespondWithError(writer, http.StatusBadRequest, e.Error(), e)
			return false
		}
	}

	if !order.Priority.Valid() {
		handler.ResponseManager.RespondWithError(writer, http.StatusBadRequest,
			fmt.Sprintf("Priority %s does not exist", order.Priority), nil)
		return false
	}

	for _, activity := range order.Activities {
		if activity.Status != "" && !activity.Status.Valid() {
			handler.ResponseManager.RespondWithError(writer, http.StatusBadRequest,
				fmt.Sprintf("Status %s does not exist", activity.Status), nil)
			return false
		}
	}

	return true
}

// applyCompletionTimestamps keeps the completed timestamp write once: it survives
// edits and is set when a status transitions to completed
func applyCompletionTimestamps(original []Activity, updated []Activity) {
	originalByID := map[string]*Activity{}
	for index := range original {
		originalByID[original[index].ID] = &original[index]
	}

	for index := range updated {
		previous, known := originalByID[updated[index].ID]
		if known && previous.Completed != nil {
			updated[index].Completed = previous.Completed
			continue
		}

		if updated[index].Status == StatusCompleted && updated[index].Completed == nil {
			now := time.Now()
			updated[index].Completed = &now
		}
	}
}

func unionResponsibles(original []Activity, updated []Activity) []string {
	combined := make([]Activity, 0, len(original)+len(updated))
	combined = append(combined, original...)
	combined = append(combined, updated...)
	return distinctResponsibles(combined)
}

func (handler *Handler) acquireOperatorLocks(request *http.Request, responsibles []string) ([]locking.LockInterface, error) {
	var locks []locking.LockInterface

	// Responsibles are sorted so concurrent writers can't deadlock on each other
	for _, operatorID := range responsibles {
		lock, err := handler.Locker.Acquire(request.Context(), "operator-schedule:"+operatorID, operatorLockTTL)
		if err != nil {
			handler.releaseOperatorLocks(request, locks)
			return nil, err
		}

		locks = append(locks, lock)
	}

	return locks, nil
}

func (handler *Handler) releaseOperatorLocks(request *http.Request, locks []locking.LockInterface) {
	for _, lock := range locks {
		err := lock.Release(request.Context())
		if err != nil {
			handler.Logger.Error("Could not release lock "+lock.Key(), err)
		}
	}
}

func (handler *Handler) invalidateBusyCaches(request *http.Request, responsibles []string) {
	for _, operatorID := range responsibles {
		handler.Availability.Invalidate(request.Context(), operatorID)
	}
}

func (handler *Handler) sendConfirmationEmail(request *http.Request, order *Order) {
	if handler.EmailService == nil || order.ManagerID.IsZero() {
		return
	}

	manager, err := handler.OperatorRepository.FindByID(request.Context(), order.ManagerID.Hex())
	if err != nil {
		handler.Logger.Error("Could not find manager for confirmation email", err)
		return
	}

	err = handler.EmailService.SendEmail(request.Context(), &email.Email{
		ReceiverName:    fmt.Sprintf("%s %s", manager.Firstname, manager.Lastname),
		ReceiverAddress: manager.Email,
		Template:        email.TemplateOrderConfirmed,
		Parameters: map[string]interface{}{
			"orderName": order.Name,
		},
	})
	if err != nil {
		handler.Logger.Error("Could not send order confirmation email", err)
	}
}

// GetAllOrders is the route for getting all orders
func (handler *Handler) GetAllOrders(writer http.ResponseWriter, request *http.Request) {
	var page = 0
	var pageSize = 10
	var err error

	queryPage := request.URL.Query().Get("page")
	queryPageSize := request.URL.Query().Get("pageSize")
	queryPriority := request.URL.Query().Get("priority")
	queryConfirmed := request.URL.Query().Get("confirmed")
	queryCustomer := request.URL.Query().Get("customerId")
	queryFrom := request.URL.Query().Get("from")

	if queryPage != "" {
		page, err = strconv.Atoi(queryPage)
		if err != nil {
			handler.ResponseManager.RespondWithError(writer, http.StatusBadRequest,
				"Bad query parameter page", err)
			return
		}
	}

	if queryPageSize != "" {
		pageSize, err = strconv.Atoi(queryPageSize)
		if err != nil {
			handler.ResponseManager.RespondWithError(writer, http.StatusBadRequest,
				"Bad query parameter pageSize", err)
			return
		}

		if pageSize > 25 {
			handler.ResponseManager.RespondWithError(writer, http.StatusBadRequest,
				"Page size can't be more than 25", nil)
			return
		}
	}

	var filters []Filter

	if queryPriority != "" {
		if !Priority(queryPriority).Valid() {
			handler.ResponseManager.RespondWithError(writer, http.StatusBadRequest,
				fmt.Sprintf("Priority %s does not exist", queryPriority), nil)
			return
		}
		filters = append(filters, Filter{Field: "priority", Value: queryPriority})
	}

	if queryConfirmed != "" {
		confirmed, err := strconv.ParseBool(queryConfirmed)
		if err != nil {
			handler.ResponseManager.RespondWithError(writer, http.StatusBadRequest,
				"Bad value for confirmed", err)
			return
		}
		filters = append(filters, Filter{Field: "confirmed", Value: confirmed})
	}

	if queryCustomer != "" {
		customerObjectID, err := primitive.ObjectIDFromHex(queryCustomer)
		if err != nil {
			handler.ResponseManager.RespondWithError(writer, http.StatusBadRequest,
				"Bad value for customerId", err)
			return
		}
		filters = append(filters, Filter{Field: "customerId", Value: customerObjectID})
	}

	if queryFrom != "" {
		timeValue, err := time.Parse(time.RFC3339, queryFrom)
		if err != nil {
			handler.ResponseManager.RespondWithError(writer, http.StatusBadRequest, "Wrong date format in query string", err)
			return
		}
		filters = append(filters, Filter{Field: "date.start", Operator: "$gte", Value: timeValue})
	}

	orders, count, err := handler.OrderRepository.FindAll(request.Context(), page, pageSize, filters)
	if err != nil {
		handler.ResponseManager.RespondWithError(writer, http.StatusInternalServerError, "Problem in query", err)
		return
	}

	pages := float64(count) / float64(pageSize)

	var response = map[string]interface{}{
		"results": orders,
		"pagination": map[string]interface{}{
			"resultCount": count,
			"pageSize":    pageSize,
			"pageIndex":   page,
			"pages":       int(math.Ceil(pages)),
		},
	}

	handler.ResponseManager.Respond(writer, response)
}

// OrderGet gets a single order
func (handler *Handler) OrderGet(writer http.ResponseWriter, request *http.Request) {
	orderID := mux.Vars(request)["orderID"]

	order, err := handler.OrderRepository.FindByID(request.Context(), orderID)
	if err != nil {
		handler.ResponseManager.RespondWithError(writer, http.StatusNotFound, "Could not find order", err)
		return
	}

	handler.ResponseManager.Respond(writer, order)
}

// OrderArchive moves an order into the archive collection
func (handler *Handler) OrderArchive(writer http.ResponseWriter, request *http.Request) {
	orderID := mux.Vars(request)["orderID"]

	order, err := handler.OrderRepository.FindByID(request.Context(), orderID)
	if err != nil {
		handler.ResponseManager.RespondWithError(writer, http.StatusNotFound, "Could not find order", err)
		return
	}

	err = handler.OrderRepository.Archive(request.Context(), orderID)
	if err != nil {
		handler.ResponseManager.RespondWithError(writer, http.StatusInternalServerError,
			"Could not archive order", err)
		return
	}

	handler.invalidateBusyCaches(request, order.Responsibles())

	handler.ResponseManager.RespondWithNoContent(writer)
}

// OrderDelete deletes an order
func (handler *Handler) OrderDelete(writer http.ResponseWriter, request *http.Request) {
	orderID := mux.Vars(request)["orderID"]

	order, err := handler.OrderRepository.FindByID(request.Context(), orderID)
	if err != nil {
		handler.ResponseManager.RespondWithError(writer, http.StatusNotFound, "Could not find order", err)
		return
	}

	err = handler.OrderRepository.Delete(request.Context(), orderID)
	if err != nil {
		handler.ResponseManager.RespondWithError(writer, http.StatusInternalServerError,
			"Could not delete order", err)
		return
	}

	handler.invalidateBusyCaches(request, order.Responsibles())

	handler.ResponseManager.RespondWithNoContent(writer)
}

// ActivityStatusUpdate updates the status of a single activity inside an order
func (handler *Handler) ActivityStatusUpdate(writer http.ResponseWriter, request *http.Request) {
	orderID := mux.Vars(request)["orderID"]
	activityID := mux.Vars(request)["activityID"]

	body := map[string]string{}
	err := json.NewDecoder(request.Body).Decode(&body)
	if err != nil {
		handler.ResponseManager.RespondWithError(writer, http.StatusBadRequest, "Wrong format", err)
		return
	}

	status := ActivityStatus(body["status"])
	if !status.Valid() {
		handler.ResponseManager.RespondWithError(writer, http.StatusBadRequest,
			fmt.Sprintf("Status %s does not exist", status), nil)
		return
	}

	order, err := handler.OrderRepository.FindUpdatableByID(request.Context(), orderID)
	if err != nil {
		handler.ResponseManager.RespondWithError(writer, http.StatusNotFound, "Couldn't find order", err)
		return
	}

	activity := findActivity(order.Activities, activityID)
	if activity == nil {
		handler.ResponseManager.RespondWithError(writer, http.StatusNotFound,
			fmt.Sprintf("Activity %s does not exist", activityID), nil)
		return
	}

	activity.Status = status
	if status == StatusCompleted && activity.Completed == nil {
		now := time.Now()
		activity.Completed = &now
	}

	err = handler.OrderRepository.Update(request.Context(), order)
	if err != nil {
		handler.ResponseManager.RespondWithError(writer, http.StatusInternalServerError, "Could not persist order", err)
		return
	}

	handler.ResponseManager.Respond(writer, activity)
}

// ActivityNoteAdd appends a note to an activity
func (handler *Handler) ActivityNoteAdd(writer http.ResponseWriter, request *http.Request) {
	userID := request.Context().Value(auth.KeyUserID).(string)
	orderID := mux.Vars(request)["orderID"]
	activityID := mux.Vars(request)["activityID"]

	body := map[string]string{}
	err := json.NewDecoder(request.Body).Decode(&body)
	if err != nil {
		handler.ResponseManager.RespondWithError(writer, http.StatusBadRequest, "Wrong format", err)
		return
	}

	content := body["content"]
	if content == "" {
		handler.ResponseManager.RespondWithError(writer, http.StatusBadRequest, "Note content is required", nil)
		return
	}

	order, err := handler.OrderRepository.FindUpdatableByID(request.Context(), orderID)
	if err != nil {
		handler.ResponseManager.RespondWithError(writer, http.StatusNotFound, "Couldn't find order", err)
		return
	}

	activity := findActivity(order.Activities, activityID)
	if activity == nil {
		handler.ResponseManager.RespondWithError(writer, http.StatusNotFound,
			fmt.Sprintf("Activity %s does not exist", activityID), nil)
		return
	}

	activity.Notes = append(activity.Notes, NoteMessage{
		Sender:  userID,
		Content: content,
		SentAt:  time.Now(),
	})

	err = handler.OrderRepository.Update(request.Context(), order)
	if err != nil {
		handler.ResponseManager.RespondWithError(writer, http.StatusInternalServerError, "Could not persist order", err)
		return
	}

	handler.ResponseManager.Respond(writer, activity)
}

func findActivity(activities []Activity, activityID string) *Activity {
	for index := range activities {
		if activities[index].ID == activityID {
			return &activities[index]
		}
	}
	return nil
}

// ValidateActivities runs the validation orchestrator on a draft row list without
// persisting anything, so clients can re-validate on every change
func (handler *Handler) ValidateActivities(writer http.ResponseWriter, request *http.Request) {
	payload := struct {
		Rows           []scheduling.CandidateRow `json:"rows"`
		ExcludeOrderID string                    `json:"excludeOrderId"`
	}{}

	err := json.NewDecoder(request.Body).Decode(&payload)
	if err != nil {
		handler.ResponseManager.RespondWithError(writer, http.StatusBadRequest, "Wrong format", err)
		return
	}

	result := handler.Validator.ValidateRows(request.Context(), payload.Rows, payload.ExcludeOrderID)

	handler.ResponseManager.Respond(writer, result)
}

// OperatorAvailability checks a single candidate timespan for an operator
func (handler *Handler) OperatorAvailability(writer http.ResponseWriter, request *http.Request) {
	operatorID := mux.Vars(request)["operatorID"]

	candidate, ok := handler.parseTimespan(writer, request)
	if !ok {
		return
	}

	exclusion := scheduling.Exclusion{
		OrderID:    request.URL.Query().Get("excludeOrder"),
		ActivityID: request.URL.Query().Get("excludeActivity"),
	}

	available, err := handler.Availability.CheckAvailability(request.Context(), operatorID, candidate, exclusion)

	var response = map[string]interface{}{
		"available": available,
	}

	if err != nil {
		handler.Logger.Error("Could not determine availability", err)
		response["available"] = false
		response["availabilityUnknown"] = true
	}

	handler.ResponseManager.Respond(writer, response)
}

// OperatorBusyRanges returns the busy ranges driving the date and time pickers.
// With a check parameter it also applies the disabled slot rules to that value.
func (handler *Handler) OperatorBusyRanges(writer http.ResponseWriter, request *http.Request) {
	operatorID := mux.Vars(request)["operatorID"]

	exclusion := scheduling.Exclusion{
		OrderID:    request.URL.Query().Get("excludeOrder"),
		ActivityID: request.URL.Query().Get("excludeActivity"),
	}

	busy, err := handler.Availability.BusyRanges(request.Context(), operatorID, exclusion)
	if err != nil {
		handler.ResponseManager.RespondWithError(writer, http.StatusInternalServerError,
			"Could not fetch busy ranges", err)
		return
	}

	var response = map[string]interface{}{
		"results": busy,
		"rules": map[string]interface{}{
			"workingHoursStart":     handler.SlotRules.Config.WorkingHoursStart,
			"workingHoursEnd":       handler.SlotRules.Config.WorkingHoursEnd,
			"conflictBufferMinutes": int(handler.SlotRules.Config.ConflictBuffer.Minutes()),
			"earliestStart":         handler.SlotRules.EarliestStart(),
		},
	}

	queryCheck := request.URL.Query().Get("check")
	if queryCheck != "" {
		timeValue, err := time.Parse(time.RFC3339, queryCheck)
		if err != nil {
			handler.ResponseManager.RespondWithError(writer, http.StatusBadRequest, "Wrong date format in query string", err)
			return
		}

		response["check"] = map[string]interface{}{
			"timeDisabled": handler.SlotRules.IsTimeDisabled(timeValue, busy),
			"dateDisabled": handler.SlotRules.IsDateDisabled(timeValue),
		}
	}

	handler.ResponseManager.Respond(writer, response)
}

func (handler *Handler) parseTimespan(writer http.ResponseWriter, request *http.Request) (span date.Timespan, ok bool) {
	queryStart := request.URL.Query().Get("start")
	queryEnd := request.URL.Query().Get("end")

	start, err := time.Parse(time.RFC3339, queryStart)
	if err != nil {
		handler.ResponseManager.RespondWithError(writer, http.StatusBadRequest, "Bad query parameter start", err)
		return span, false
	}

	end, err := time.Parse(time.RFC3339, queryEnd)
	if err != nil {
		handler.ResponseManager.RespondWithError(writer, http.StatusBadRequest, "Bad query parameter end", err)
		return span, false
	}

	span.Start = start
	span.End = end
	return span, true
}
