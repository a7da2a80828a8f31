package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gestionale-app/commesse-backend/pkg/auth"
	"github.com/gestionale-app/commesse-backend/pkg/calendar"
	"github.com/gestionale-app/commesse-backend/pkg/communication"
	"github.com/gestionale-app/commesse-backend/pkg/customers"
	"github.com/gestionale-app/commesse-backend/pkg/email"
	"github.com/gestionale-app/commesse-backend/pkg/environment"
	"github.com/gestionale-app/commesse-backend/pkg/locking"
	"github.com/gestionale-app/commesse-backend/pkg/logger"
	"github.com/gestionale-app/commesse-backend/pkg/notifications"
	"github.com/gestionale-app/commesse-backend/pkg/operators"
	"github.com/gestionale-app/commesse-backend/pkg/orders"
	"github.com/gestionale-app/commesse-backend/pkg/scheduling"
	"github.com/go-redis/redis/v8"
	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func main() {
	var logging logger.Interface = logger.Logger{}
	fmt.Println("Server is starting up...")

	environment.Initialize()
	env := environment.Global

	client, err := mongo.NewClient(options.Client().ApplyURI(env.DatabaseUrl))
	if err != nil {
		log.Fatal(err)
	}

	var ctx, cancel = context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err = client.Connect(ctx)
	if err != nil {
		log.Panic(err)
	}

	err = client.Ping(ctx, nil)
	if err != nil {
		log.Panic(err)
	}

	defer func() {
		err := client.Disconnect(ctx)
		if err != nil {
			logging.Fatal(err)
		}
	}()

	fmt.Println("Database connected")

	db := client.Database(env.Database)

	orderCollection := db.Collection("Orders")
	archivedOrderCollection := db.Collection("ArchivedOrders")
	operatorCollection := db.Collection("Operators")
	customerCollection := db.Collection("Customers")

	responseManager := communication.ResponseManager{Logger: logging}

	var busyCache scheduling.BusyCacheInterface
	var locker locking.LockerInterface

	if env.Redis != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     env.Redis,
			Password: env.RedisPassword,
		})

		busyCache = scheduling.NewBusyCacheRedis(redisClient)
		locker = locking.NewLockerRedis(redisClient)

		fmt.Println("Redis connected")
	} else {
		memoryCache, err := scheduling.NewBusyCacheMemory()
		if err != nil {
			logging.Fatal(err)
		}

		busyCache = memoryCache
		locker = locking.NewLockerMemory()

		logging.Warning("No redis configured, busy cache and locks are process local")
	}

	var orderRepository orders.OrderRepositoryInterface = &orders.MongoDBOrderRepository{
		DB:        orderCollection,
		ArchiveDB: archivedOrderCollection,
		Logger:    logging,
	}

	var operatorRepository operators.OperatorRepositoryInterface = operators.OperatorRepository{
		DB:     operatorCollection,
		Logger: logging,
	}

	var customerRepository customers.CustomerRepositoryInterface = customers.CustomerRepository{
		DB:     customerCollection,
		Logger: logging,
	}

	availability := scheduling.NewAvailabilityChecker(orderRepository, busyCache, logging)
	rowValidator := scheduling.NewValidator(availability, logging)
	slotRules := scheduling.NewSlotRules(scheduling.NewConfigFromEnvironment(env))

	var emailService email.Mailer
	if env.Sendinblue != "" {
		emailService = email.NewSendInBlueService(env.Sendinblue)
	}

	if env.Firebase != "" {
		notificationController := notifications.NewNotificationController(logging, operatorRepository)
		orderRepository.Subscribe(&notificationController)
	}

	calendarProjector := &orders.CalendarProjector{
		OrderRepository:    orderRepository,
		OperatorRepository: operatorRepository,
		Logger:             logging,
		RepositoryFactory: func(ctx context.Context, operator *operators.Operator) (calendar.RepositoryInterface, error) {
			return calendar.NewGoogleCalendarRepository(ctx, operator, logging)
		},
	}
	orderRepository.Subscribe(calendarProjector)

	orderHandler := orders.Handler{
		OrderRepository:    orderRepository,
		OperatorRepository: operatorRepository,
		Logger:             logging,
		ResponseManager:    &responseManager,
		Validator:          rowValidator,
		Availability:       availability,
		SlotRules:          slotRules,
		Locker:             locker,
		EmailService:       emailService,
	}

	operatorHandler := operators.Handler{
		OperatorRepository: operatorRepository,
		Logger:             logging,
		ResponseManager:    &responseManager,
		Secret:             env.Secret,
		FrontendBaseURL:    env.FrontendBaseUrl,
	}

	customerHandler := customers.Handler{
		CustomerRepository: customerRepository,
		Logger:             logging,
		ResponseManager:    &responseManager,
	}

	authMiddleware := auth.AuthenticationMiddleware{
		ErrorManager: &responseManager,
		Secret:       env.Secret,
	}

	r := mux.NewRouter()
	r.HandleFunc("/", func(writer http.ResponseWriter, request *http.Request) {
		writer.WriteHeader(http.StatusOK)

		_, err := fmt.Fprint(writer, "Welcome to the API! ✔")
		if err != nil {
			log.Printf("Error: %v\n", err)
		}
	})

	unauthenticated := r.PathPrefix("/v1").Subrouter()
	unauthenticated.HandleFunc("/auth/register", operatorHandler.OperatorRegister).Methods(http.MethodPost)
	unauthenticated.HandleFunc("/auth/login", operatorHandler.OperatorLogin).Methods(http.MethodPost)
	unauthenticated.HandleFunc("/auth/refresh", operatorHandler.OperatorRefresh).Methods(http.MethodPost)
	unauthenticated.HandleFunc("/auth/google/callback", operatorHandler.GoogleCalendarCallback).Methods(http.MethodGet)

	authenticated := r.PathPrefix("/v1").Subrouter()
	authenticated.Use(authMiddleware.Middleware)

	authenticated.HandleFunc("/orders", orderHandler.OrderAdd).Methods(http.MethodPost)
	authenticated.HandleFunc("/orders", orderHandler.GetAllOrders).Methods(http.MethodGet)
	authenticated.HandleFunc("/orders/validate", orderHandler.ValidateActivities).Methods(http.MethodPost)
	authenticated.HandleFunc("/orders/{orderID}", orderHandler.OrderGet).Methods(http.MethodGet)
	authenticated.HandleFunc("/orders/{orderID}", orderHandler.OrderUpdate).Methods(http.MethodPut)
	authenticated.HandleFunc("/orders/{orderID}", orderHandler.OrderDelete).Methods(http.MethodDelete)
	authenticated.HandleFunc("/orders/{orderID}/archive", orderHandler.OrderArchive).Methods(http.MethodPost)
	authenticated.HandleFunc("/orders/{orderID}/activities/{activityID}/status", orderHandler.ActivityStatusUpdate).Methods(http.MethodPut)
	authenticated.HandleFunc("/orders/{orderID}/activities/{activityID}/notes", orderHandler.ActivityNoteAdd).Methods(http.MethodPost)

	authenticated.HandleFunc("/operators", operatorHandler.OperatorGetAll).Methods(http.MethodGet)
	authenticated.HandleFunc("/operators/device", operatorHandler.OperatorAddDevice).Methods(http.MethodPost)
	authenticated.HandleFunc("/operators/device/{deviceToken}", operatorHandler.OperatorRemoveDevice).Methods(http.MethodDelete)
	authenticated.HandleFunc("/operators/google/connect", operatorHandler.GoogleCalendarConnect).Methods(http.MethodPost)
	authenticated.HandleFunc("/operators/{operatorID}", operatorHandler.OperatorGet).Methods(http.MethodGet)
	authenticated.HandleFunc("/operators/{operatorID}/availability", orderHandler.OperatorAvailability).Methods(http.MethodGet)
	authenticated.HandleFunc("/operators/{operatorID}/busy", orderHandler.OperatorBusyRanges).Methods(http.MethodGet)

	authenticated.HandleFunc("/calendar", orderHandler.CalendarGet).Methods(http.MethodGet)

	authenticated.HandleFunc("/customers", customerHandler.CustomerAdd).Methods(http.MethodPost)
	authenticated.HandleFunc("/customers", customerHandler.CustomerGetAll).Methods(http.MethodGet)
	authenticated.HandleFunc("/customers/{customerID}", customerHandler.CustomerGet).Methods(http.MethodGet)
	authenticated.HandleFunc("/customers/{customerID}", customerHandler.CustomerUpdate).Methods(http.MethodPut)
	authenticated.HandleFunc("/customers/{customerID}", customerHandler.CustomerDelete).Methods(http.MethodDelete)

	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, request *http.Request) {
			w.Header().Add("Content-Type", "application/json")
			if env.Cors != "" {
				w.Header().Add("Access-Control-Allow-Origin", env.Cors)
				w.Header().Add("Access-Control-Allow-Headers", "Authorization, Content-Type")
				w.Header().Add("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			}

			if request.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, request)
		})
	})

	port := env.Port
	if port == "" {
		port = "80"
	}

	http.Handle("/", r)
	log.Panic(http.ListenAndServe(":"+port, r))
}
