package notifications

import (
	"context"
	"os"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"github.com/gestionale-app/commesse-backend/pkg/logger"
	"github.com/gestionale-app/commesse-backend/pkg/operators"
	"github.com/gestionale-app/commesse-backend/pkg/orders"
	"google.golang.org/api/option"
)

// NotificationController can send Messages to Google Cloud Messaging
type NotificationController struct {
	Logger             logger.Interface
	Client             messaging.Client
	OperatorRepository operators.OperatorRepositoryInterface
}

// NewNotificationController constructs a NotificationController
func NewNotificationController(logger logger.Interface, operatorRepository operators.OperatorRepositoryInterface) NotificationController {
	ctrl := NotificationController{}
	ctx := context.Background()

	key := os.Getenv("FIREBASE")
	projectID := os.Getenv("GCP_PROJECT_ID")

	opt := option.WithAPIKey(key)
	config := &firebase.Config{ProjectID: projectID}
	app, err := firebase.NewApp(ctx, config, opt)
	if err != nil {
		logger.Fatal(err)
	}

	client, err := app.Messaging(ctx)
	if err != nil {
		logger.Fatal(err)
	}

	ctrl.Client = *client
	ctrl.Logger = logger
	ctrl.OperatorRepository = operatorRepository

	return ctrl
}

// OnNotify gets called when an order changes and pings every responsible operator
func (n *NotificationController) OnNotify(order *orders.Order) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var tokens []string
	for _, operatorID := range order.Responsibles() {
		operator, err := n.OperatorRepository.FindByID(ctx, operatorID)
		if err != nil {
			n.Logger.Error("Could not find operator "+operatorID, err)
			continue
		}

		for _, token := range operator.DeviceTokens {
			tokens = append(tokens, token.Token)
		}
	}

	if len(tokens) == 0 {
		return
	}

	message := &messaging.MulticastMessage{
		Data: map[string]string{
			"collapse_key": "sync",
			"orderId":      order.ID.Hex(),
		},
		Tokens: tokens,
	}

	_, err := n.Client.SendMulticast(ctx, message)
	if err != nil {
		n.Logger.Error("Could not send messaging request", err)
	}
}
