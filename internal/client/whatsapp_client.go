package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"claims-service/internal/config"
	"claims-service/internal/utils"
)

type WhatsAppMessage struct {
	Destination string `json:"destination"`
	Body        string `json:"body"`
}

// WhatsAppClient habla con el servicio de mensajería saliente.
type WhatsAppClient struct {
	baseURL       string
	internalToken string
	httpClient    *http.Client
}

func NewWhatsAppClient(cfg *config.Config) *WhatsAppClient {
	return &WhatsAppClient{
		baseURL:       cfg.Messaging.WhatsAppServiceURL,
		internalToken: cfg.Messaging.WhatsAppToken,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Send entrega un mensaje de texto a un número de teléfono.
func (c *WhatsAppClient) Send(ctx context.Context, phone, body string) error {
	if c.baseURL == "" {
		return fmt.Errorf("whatsapp service URL is not configured")
	}

	destination := utils.NormalizePhone(phone)
	if destination == "" {
		return fmt.Errorf("invalid phone number")
	}

	payload, err := json.Marshal(WhatsAppMessage{Destination: destination, Body: body})
	if err != nil {
		return fmt.Errorf("failed to encode message: %w", err)
	}

	return postWithRetry(ctx, c.httpClient, c.baseURL+"/internal/messages", c.internalToken, payload)
}

// postWithRetry ejecuta un POST con reintentos ante errores de red.
func postWithRetry(ctx context.Context, httpClient *http.Client, url, token string, payload []byte) error {
	newRequest := func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		if token != "" {
			req.Header.Set("X-Internal-Token", token)
		}
		return req, nil
	}

	req, err := newRequest()
	if err != nil {
		return err
	}

	var resp *http.Response
	var lastErr error
	maxRetries := 3
	for attempt := 0; attempt < maxRetries; attempt++ {
		resp, lastErr = httpClient.Do(req)
		if lastErr == nil {
			break
		}
		if attempt == maxRetries-1 {
			return fmt.Errorf("failed to execute request after %d attempts: %w", maxRetries, lastErr)
		}
		// backoff lineal antes del reintento
		time.Sleep(time.Duration(attempt+1) * 500 * time.Millisecond)
		req, err = newRequest()
		if err != nil {
			return err
		}
	}
	if resp == nil {
		return fmt.Errorf("failed to execute request: %w", lastErr)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("messaging service returned status %d: %s", resp.StatusCode, string(respBody))
	}

	return nil
}
