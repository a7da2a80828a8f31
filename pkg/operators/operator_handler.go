package operators

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gestionale-app/commesse-backend/pkg/auth"
	"github.com/gestionale-app/commesse-backend/pkg/auth/jwt"
	"github.com/gestionale-app/commesse-backend/pkg/calendar/google"
	"github.com/gestionale-app/commesse-backend/pkg/communication"
	"github.com/gestionale-app/commesse-backend/pkg/logger"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/oauth2"
)

// Handler is the handler for operator API calls
type Handler struct {
	OperatorRepository OperatorRepositoryInterface
	Logger             logger.Interface
	ResponseManager    *communication.ResponseManager
	Secret             string
	FrontendBaseURL    string
}

// OperatorRegister is the route for registering an operator
func (handler *Handler) OperatorRegister(writer http.ResponseWriter, request *http.Request) {
	operator := Operator{}
	body := map[string]string{}

	decoder := json.NewDecoder(request.Body)

	err := decoder.Decode(&body)
	if err != nil {
		handler.ResponseManager.RespondWithError(writer, http.StatusBadRequest,
			"Wrong format", err)
		return
	}

	operator.Firstname = body["firstname"]
	operator.Lastname = body["lastname"]
	operator.Email = body["email"]
	operator.Role = Role(body["role"])

	if operator.Role == "" {
		operator.Role = RoleOperator
	}

	if !operator.Role.Valid() {
		handler.ResponseManager.RespondWithError(writer, http.StatusBadRequest,
			fmt.Sprintf("Role %s does not exist", operator.Role), nil)
		return
	}

	presentOperator, err := handler.OperatorRepository.FindByEmail(request.Context(), operator.Email)
	if presentOperator != nil {
		handler.ResponseManager.RespondWithError(writer, http.StatusConflict,
			"Operator with email "+presentOperator.Email+" already exists", err)
		return
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(body["password"]), bcrypt.DefaultCost)
	if err != nil {
		handler.ResponseManager.RespondWithError(writer, http.StatusInternalServerError,
			"Problem hashing password", err)
		return
	}
	operator.Password = string(hashedPassword)

	v := validator.New()
	err = v.Struct(operator)
	if err != nil {
		for _, e := range err.(validator.ValidationErrors) {
			handler.ResponseManager.RespondWithError(writer, http.StatusBadRequest, e.Error(), e)
			return
		}
	}

	err = handler.OperatorRepository.Add(request.Context(), &operator)
	if err != nil {
		handler.ResponseManager.RespondWithError(writer, http.StatusInternalServerError,
			"Operator couldn't be persisted in the database", err)
		return
	}

	handler.generateAndRespondWithTokens(&operator, writer)
}

// OperatorLogin is the route for operator authentication
func (handler *Handler) OperatorLogin(writer http.ResponseWriter, request *http.Request) {
	login := OperatorLogin{}
	err := json.NewDecoder(request.Body).Decode(&login)
	if err != nil {
		handler.ResponseManager.RespondWithError(writer, http.StatusBadRequest,
			"Wrong format", err)
		return
	}

	v := validator.New()
	err = v.Struct(login)
	if err != nil {
		for _, e := range err.(validator.ValidationErrors) {
			handler.ResponseManager.RespondWithError(writer, http.StatusBadRequest, e.Error(), e)
			return
		}
	}

	operator, err := handler.OperatorRepository.FindByEmail(request.Context(), login.Email)
	if err != nil || operator == nil {
		handler.ResponseManager.RespondWithError(writer, http.StatusBadRequest,
			"Wrong credentials", err)
		return
	}

	err = bcrypt.CompareHashAndPassword([]byte(operator.Password), []byte(login.Password))
	if err != nil {
		handler.ResponseManager.RespondWithError(writer, http.StatusBadRequest,
			"Wrong credentials", err)
		return
	}

	handler.generateAndRespondWithTokens(operator, writer)
}

func (handler *Handler) generateAndRespondWithTokens(operator *Operator, writer http.ResponseWriter) {
	accessClaims := jwt.Claims{
		Subject:        operator.ID.Hex(),
		Issuer:         "commesse",
		IssuedAt:       time.Now().Unix(),
		ExpirationTime: time.Now().AddDate(0, 0, 1).Unix(),
		TokenType:      jwt.TokenTypeAccess,
	}
	accessToken := jwt.New(jwt.AlgHS256, accessClaims)

	refreshTokenClaims := jwt.Claims{
		Subject:   operator.ID.Hex(),
		Issuer:    "commesse",
		IssuedAt:  time.Now().Unix(),
		TokenType: jwt.TokenTypeRefresh,
	}
	refreshToken := jwt.New(jwt.AlgHS256, refreshTokenClaims)

	accessTokenString, err := accessToken.Sign(handler.Secret)
	if err != nil {
		handler.ResponseManager.RespondWithError(writer, http.StatusBadRequest,
			"Problem signing access token", err)
		return
	}

	refreshTokenString, err := refreshToken.Sign(handler.Secret)
	if err != nil {
		handler.ResponseManager.RespondWithError(writer, http.StatusBadRequest,
			"Problem signing refresh token", err)
		return
	}

	var response = map[string]interface{}{
		"result":       operator,
		"accessToken":  accessTokenString,
		"refreshToken": refreshTokenString,
	}

	handler.ResponseManager.Respond(writer, response)
}

// OperatorRefresh refreshes an access token by providing a refresh token
func (handler *Handler) OperatorRefresh(writer http.ResponseWriter, request *http.Request) {
	body := struct {
		RefreshToken string `json:"refreshToken"`
	}{}

	err := json.NewDecoder(request.Body).Decode(&body)
	if err != nil {
		handler.ResponseManager.RespondWithError(writer, http.StatusBadRequest,
			"Wrong format", err)
		return
	}

	if body.RefreshToken == "" {
		handler.ResponseManager.RespondWithError(writer, http.StatusBadRequest,
			"No refresh token specified", err)
		return
	}

	refreshToken, err := jwt.Verify(body.RefreshToken, jwt.TokenTypeRefresh, handler.Secret, jwt.AlgHS256, jwt.Claims{})
	if err != nil {
		handler.ResponseManager.RespondWithError(writer, http.StatusBadRequest, "Token invalid", err)
		return
	}

	operator, err := handler.OperatorRepository.FindByID(request.Context(), refreshToken.Payload.Subject)
	if err != nil {
		handler.ResponseManager.RespondWithError(writer, http.StatusBadRequest, "Operator not found", err)
		return
	}

	accessClaims := jwt.Claims{
		Subject:        operator.ID.Hex(),
		Issuer:         "commesse",
		IssuedAt:       time.Now().Unix(),
		ExpirationTime: time.Now().AddDate(0, 0, 1).Unix(),
		TokenType:      jwt.TokenTypeAccess,
	}
	accessToken := jwt.New(jwt.AlgHS256, accessClaims)

	accessTokenString, err := accessToken.Sign(handler.Secret)
	if err != nil {
		handler.ResponseManager.RespondWithError(writer, http.StatusBadRequest,
			"Problem signing access token", err)
		return
	}

	handler.ResponseManager.Respond(writer, map[string]interface{}{
		"accessToken": accessTokenString,
	})
}

// OperatorGet retrieves a single operator
func (handler *Handler) OperatorGet(writer http.ResponseWriter, request *http.Request) {
	operatorID := mux.Vars(request)["operatorID"]

	operator, err := handler.OperatorRepository.FindByID(request.Context(), operatorID)
	if err != nil {
		handler.ResponseManager.RespondWithError(writer, http.StatusNotFound,
			"Operator wasn't found", err)
		return
	}

	handler.ResponseManager.Respond(writer, operator)
}

// OperatorGetAll retrieves all operators so activities can be assigned
func (handler *Handler) OperatorGetAll(writer http.ResponseWriter, request *http.Request) {
	operators, err := handler.OperatorRepository.FindAll(request.Context())
	if err != nil {
		handler.ResponseManager.RespondWithError(writer, http.StatusInternalServerError,
			"Problem in query", err)
		return
	}

	handler.ResponseManager.Respond(writer, map[string]interface{}{"results": operators})
}

// OperatorAddDevice upserts a DeviceToken
func (handler *Handler) OperatorAddDevice(writer http.ResponseWriter, request *http.Request) {
	operatorID := request.Context().Value(auth.KeyUserID).(string)

	body := map[string]string{}

	err := json.NewDecoder(request.Body).Decode(&body)
	if err != nil {
		handler.ResponseManager.RespondWithError(writer, http.StatusBadRequest,
			"Wrong format", err)
		return
	}

	deviceToken := body["deviceToken"]

	if deviceToken == "" {
		handler.ResponseManager.RespondWithError(writer, http.StatusBadRequest,
			"Must provide deviceToken", nil)
		return
	}

	operator, err := handler.OperatorRepository.FindByID(request.Context(), operatorID)
	if err != nil {
		handler.ResponseManager.RespondWithError(writer, http.StatusNotFound,
			"Operator wasn't found", err)
		return
	}

	found := false
	for i, token := range operator.DeviceTokens {
		if token.Token == deviceToken {
			operator.DeviceTokens[i].LastRegistered = time.Now()
			found = true
			break
		}
	}

	if !found {
		if len(operator.DeviceTokens) >= 10 {
			handler.ResponseManager.RespondWithError(writer, http.StatusTooManyRequests,
				"Too many registered devices", err)
			return
		}

		operator.DeviceTokens = append(operator.DeviceTokens, DeviceToken{Token: deviceToken, LastRegistered: time.Now()})
	}

	err = handler.OperatorRepository.Update(request.Context(), operator)
	if err != nil {
		handler.ResponseManager.RespondWithError(writer, http.StatusInternalServerError,
			"Could not update operator", err)
		return
	}

	handler.ResponseManager.RespondWithNoContent(writer)
}

// OperatorRemoveDevice deletes a DeviceToken
func (handler *Handler) OperatorRemoveDevice(writer http.ResponseWriter, request *http.Request) {
	operatorID := request.Context().Value(auth.KeyUserID).(string)

	deviceToken := mux.Vars(request)["deviceToken"]

	operator, err := handler.OperatorRepository.FindByID(request.Context(), operatorID)
	if err != nil {
		handler.ResponseManager.RespondWithError(writer, http.StatusNotFound,
			"Operator wasn't found", err)
		return
	}

	found := false
	for index, token := range operator.DeviceTokens {
		if token.Token == deviceToken {
			operator.DeviceTokens = append(operator.DeviceTokens[:index], operator.DeviceTokens[index+1:]...)
			found = true
			break
		}
	}

	if !found {
		handler.ResponseManager.RespondWithError(writer, http.StatusBadRequest,
			"device token not registered", err)
		return
	}

	err = handler.OperatorRepository.Update(request.Context(), operator)
	if err != nil {
		handler.ResponseManager.RespondWithError(writer, http.StatusInternalServerError,
			"Could not update operator", err)
		return
	}

	handler.ResponseManager.RespondWithNoContent(writer)
}

// GoogleCalendarConnect starts the oauth flow for connecting a personal calendar
func (handler *Handler) GoogleCalendarConnect(writer http.ResponseWriter, request *http.Request) {
	operatorID := request.Context().Value(auth.KeyUserID).(string)

	operator, err := handler.OperatorRepository.FindByID(request.Context(), operatorID)
	if err != nil {
		handler.ResponseManager.RespondWithError(writer, http.StatusNotFound,
			"Operator wasn't found", err)
		return
	}

	config, err := google.ReadGoogleConfig()
	if err != nil {
		handler.ResponseManager.RespondWithError(writer, http.StatusInternalServerError,
			"Problem reading google config", err)
		return
	}

	operator.GoogleCalendarConnection.StateToken = uuid.New().String()

	err = handler.OperatorRepository.Update(request.Context(), operator)
	if err != nil {
		handler.ResponseManager.RespondWithError(writer, http.StatusInternalServerError,
			"Could not update operator", err)
		return
	}

	url := config.AuthCodeURL(operator.GoogleCalendarConnection.StateToken,
		oauth2.AccessTypeOffline, oauth2.ApprovalForce)

	handler.ResponseManager.Respond(writer, map[string]interface{}{"url": url})
}

// GoogleCalendarCallback gets called by Google after an operator authorized the app
func (handler *Handler) GoogleCalendarCallback(writer http.ResponseWriter, request *http.Request) {
	stateToken := request.URL.Query().Get("state")
	code := request.URL.Query().Get("code")

	operator, err := handler.OperatorRepository.FindByGoogleStateToken(request.Context(), stateToken)
	if err != nil {
		handler.ResponseManager.RespondWithError(writer, http.StatusBadRequest,
			"Invalid oauth state", err)
		return
	}

	config, err := google.ReadGoogleConfig()
	if err != nil {
		handler.ResponseManager.RespondWithError(writer, http.StatusInternalServerError,
			"Problem reading google config", err)
		return
	}

	token, err := config.Exchange(request.Context(), code)
	if err != nil {
		handler.ResponseManager.RespondWithError(writer, http.StatusBadRequest,
			"Problem exchanging authorization code", err)
		return
	}

	operator.GoogleCalendarConnection.Token = *token
	operator.GoogleCalendarConnection.StateToken = ""

	err = handler.OperatorRepository.Update(request.Context(), operator)
	if err != nil {
		handler.ResponseManager.RespondWithError(writer, http.StatusInternalServerError,
			"Could not update operator", err)
		return
	}

	http.Redirect(writer, request, fmt.Sprintf("%s/settings/calendar?connected=true", handler.FrontendBaseURL), http.StatusFound)
}
