package orders

import (
	"net/http"
	"time"
)

// CalendarGet returns all calendar visible activities inside a window, joined
// with their parent order
func (handler *Handler) CalendarGet(writer http.ResponseWriter, request *http.Request) {
	queryFrom := request.URL.Query().Get("from")
	queryTo := request.URL.Query().Get("to")

	from, err := time.Parse(time.RFC3339, queryFrom)
	if err != nil {
		handler.ResponseManager.RespondWithError(writer, http.StatusBadRequest, "Bad query parameter from", err)
		return
	}

	to, err := time.Parse(time.RFC3339, queryTo)
	if err != nil {
		handler.ResponseManager.RespondWithError(writer, http.StatusBadRequest, "Bad query parameter to", err)
		return
	}

	if !from.Before(to) {
		handler.ResponseManager.RespondWithError(writer, http.StatusBadRequest, "from has to be before to", nil)
		return
	}

	activities, err := handler.OrderRepository.FindCalendarActivities(request.Context(), from, to)
	if err != nil {
		handler.ResponseManager.RespondWithError(writer, http.StatusInternalServerError, "Problem in query", err)
		return
	}

	handler.ResponseManager.Respond(writer, map[string]interface{}{"results": activities})
}
