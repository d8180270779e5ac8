package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"claims-service/internal/config"
)

type PushNotification struct {
	Token string `json:"token"`
	Title string `json:"title"`
	Body  string `json:"body"`
}

// PushClient entrega notificaciones push del navegador; fire-and-forget,
// no consumimos acuses de entrega.
type PushClient struct {
	baseURL       string
	internalToken string
	httpClient    *http.Client
}

func NewPushClient(cfg *config.Config) *PushClient {
	return &PushClient{
		baseURL:       cfg.Messaging.PushServiceURL,
		internalToken: cfg.Messaging.PushToken,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (c *PushClient) Send(ctx context.Context, registrationToken, title, body string) error {
	if c.baseURL == "" {
		return fmt.Errorf("push service URL is not configured")
	}
	if registrationToken == "" {
		return fmt.Errorf("missing registration token")
	}

	payload, err := json.Marshal(PushNotification{Token: registrationToken, Title: title, Body: body})
	if err != nil {
		return fmt.Errorf("failed to encode notification: %w", err)
	}

	return postWithRetry(ctx, c.httpClient, c.baseURL+"/internal/push", c.internalToken, payload)
}
