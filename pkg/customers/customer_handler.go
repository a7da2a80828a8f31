package customers

import (
	"encoding/json"
	"net/http"

	"github.com/gestionale-app/commesse-backend/pkg/communication"
	"github.com/gestionale-app/commesse-backend/pkg/logger"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
)

// Handler is the handler for customer API calls
type Handler struct {
	CustomerRepository CustomerRepositoryInterface
	Logger             logger.Interface
	ResponseManager    *communication.ResponseManager
}

// CustomerAdd is the route for adding a customer
func (handler *Handler) CustomerAdd(writer http.ResponseWriter, request *http.Request) {
	customer := Customer{}

	err := json.NewDecoder(request.Body).Decode(&customer)
	if err != nil {
		handler.ResponseManager.RespondWithError(writer, http.StatusBadRequest, "Wrong format", err)
		return
	}

	v := validator.New()
	err = v.Struct(customer)
	if err != nil {
		for _, e := range err.(validator.ValidationErrors) {
			handler.ResponseManager.RespondWithError(writer, http.StatusBadRequest, e.Error(), e)
			return
		}
	}

	err = handler.CustomerRepository.Add(request.Context(), &customer)
	if err != nil {
		handler.ResponseManager.RespondWithError(writer, http.StatusInternalServerError,
			"Customer couldn't be persisted in the database", err)
		return
	}

	handler.ResponseManager.Respond(writer, &customer)
}

// CustomerGetAll returns all customers
func (handler *Handler) CustomerGetAll(writer http.ResponseWriter, request *http.Request) {
	customers, err := handler.CustomerRepository.FindAll(request.Context())
	if err != nil {
		handler.ResponseManager.RespondWithError(writer, http.StatusInternalServerError, "Problem in query", err)
		return
	}

	handler.ResponseManager.Respond(writer, map[string]interface{}{"results": customers})
}

// CustomerGet returns a single customer
func (handler *Handler) CustomerGet(writer http.ResponseWriter, request *http.Request) {
	customerID := mux.Vars(request)["customerID"]

	customer, err := handler.CustomerRepository.FindByID(request.Context(), customerID)
	if err != nil {
		handler.ResponseManager.RespondWithError(writer, http.StatusNotFound, "Customer wasn't found", err)
		return
	}

	handler.ResponseManager.Respond(writer, customer)
}

// CustomerUpdate updates a customer
func (handler *Handler) CustomerUpdate(writer http.ResponseWriter, request *http.Request) {
	customerID := mux.Vars(request)["customerID"]

	customer, err := handler.CustomerRepository.FindByID(request.Context(), customerID)
	if err != nil {
		handler.ResponseManager.RespondWithError(writer, http.StatusNotFound, "Customer wasn't found", err)
		return
	}

	err = json.NewDecoder(request.Body).Decode(&customer)
	if err != nil {
		handler.ResponseManager.RespondWithError(writer, http.StatusBadRequest, "Wrong format", err)
		return
	}

	err = handler.CustomerRepository.Update(request.Context(), customer)
	if err != nil {
		handler.ResponseManager.RespondWithError(writer, http.StatusInternalServerError,
			"Could not update customer", err)
		return
	}

	handler.ResponseManager.Respond(writer, customer)
}

// CustomerDelete deletes a customer
func (handler *Handler) CustomerDelete(writer http.ResponseWriter, request *http.Request) {
	customerID := mux.Vars(request)["customerID"]

	err := handler.CustomerRepository.Remove(request.Context(), customerID)
	if err != nil {
		handler.ResponseManager.RespondWithError(writer, http.StatusNotFound, "Customer wasn't found", err)
		return
	}

	handler.ResponseManager.RespondWithNoContent(writer)
}
