// Package notification delivers alert pushes to guardian devices.
package notification

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"guard-backend/application/ports"
	appErrors "guard-backend/pkg/errors"
)

// fcmRequest is the legacy FCM HTTP payload.
type fcmRequest struct {
	To           string            `json:"to"`
	Priority     string            `json:"priority"`
	Notification fcmNotification   `json:"notification"`
	Data         map[string]string `json:"data,omitempty"`
}

type fcmNotification struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

type fcmResponse struct {
	Success int `json:"success"`
	Failure int `json:"failure"`
}

// FCMSender delivers pushes over FCM. A circuit breaker sheds load during an
// FCM outage so delivery workers fail fast instead of piling up on timeouts.
type FCMSender struct {
	client    *resty.Client
	endpoint  string
	serverKey string
	breaker   *gobreaker.CircuitBreaker
	logger    *zap.Logger
}

// NewFCMSender creates an FCM-backed notification sender
func NewFCMSender(endpoint, serverKey string, logger *zap.Logger) *FCMSender {
	client := resty.New().
		SetTimeout(5 * time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(200 * time.Millisecond)

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "fcm",
		MaxRequests: 3,
		Interval:    30 * time.Second,
		Timeout:     15 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("push circuit breaker state change",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})

	return &FCMSender{
		client:    client,
		endpoint:  endpoint,
		serverKey: serverKey,
		breaker:   breaker,
		logger:    logger,
	}
}

// Send implements ports.NotificationSender
func (s *FCMSender) Send(ctx context.Context, msg ports.PushMessage) error {
	_, err := s.breaker.Execute(func() (interface{}, error) {
		return nil, s.post(ctx, msg)
	})
	if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
		return appErrors.NewUnavailableError("push delivery temporarily suspended", err)
	}
	return err
}

func (s *FCMSender) post(ctx context.Context, msg ports.PushMessage) error {
	var result fcmResponse
	resp, err := s.client.R().
		SetContext(ctx).
		SetHeader("Authorization", "key="+s.serverKey).
		SetBody(fcmRequest{
			To:       msg.Token,
			Priority: "high",
			Notification: fcmNotification{
				Title: msg.Title,
				Body:  msg.Body,
			},
			Data: msg.Data,
		}).
		SetResult(&result).
		Post(s.endpoint)
	if err != nil {
		return fmt.Errorf("fcm request failed: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("fcm returned status %d", resp.StatusCode())
	}
	if result.Failure > 0 {
		return fmt.Errorf("fcm rejected message for token")
	}
	return nil
}
