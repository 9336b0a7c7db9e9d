package notifier

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// SMSSender delivers a rendered message to a phone number. The transport is
// opaque beyond success/failure.
type SMSSender interface {
	Send(ctx context.Context, phone, message string) error
}

// smsRequest is the provider API payload.
type smsRequest struct {
	To      string `json:"to"`
	Message string `json:"message"`
	APIKey  string `json:"apiKey"`
}

// smsResponse is the provider API response envelope.
type smsResponse struct {
	Status int    `json:"status"`
	Msg    string `json:"msg"`
}

// SMSClient sends messages through the external SMS provider HTTP API.
type SMSClient struct {
	httpClient *resty.Client
	apiKey     string
	logger     *zap.Logger
}

// NewSMSClient creates a provider client.
func NewSMSClient(baseURL, apiKey string, logger *zap.Logger) *SMSClient {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(10 * time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &SMSClient{
		httpClient: client,
		apiKey:     apiKey,
		logger:     logger,
	}
}

// Send posts the message to the provider. Any transport error or non-2xx
// response is a delivery failure.
func (c *SMSClient) Send(ctx context.Context, phone, message string) error {
	if c.apiKey == "" {
		return fmt.Errorf("sms api key not configured")
	}

	request := smsRequest{
		To:      phone,
		Message: message,
		APIKey:  c.apiKey,
	}

	var response smsResponse
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(request).
		SetResult(&response).
		Post("/send")

	if err != nil {
		c.logger.Error("SMS provider call failed",
			zap.String("phone", phone),
			zap.Error(err),
		)
		return fmt.Errorf("failed to call sms provider: %w", err)
	}

	if resp.IsError() {
		c.logger.Error("SMS provider returned error",
			zap.String("phone", phone),
			zap.Int("status_code", resp.StatusCode()),
			zap.String("msg", response.Msg),
		)
		return fmt.Errorf("sms provider returned status %d", resp.StatusCode())
	}

	c.logger.Info("SMS delivered",
		zap.String("phone", phone),
	)

	return nil
}

// LogSender is the offline-mode transport: it logs the message and reports
// success, so the rest of the pipeline behaves as in production.
type LogSender struct {
	logger *zap.Logger
}

// NewLogSender creates the offline-mode sender.
func NewLogSender(logger *zap.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(ctx context.Context, phone, message string) error {
	s.logger.Info("SMS (offline mode)",
		zap.String("phone", phone),
		zap.String("message", message),
	)
	return nil
}
