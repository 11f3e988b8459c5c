// Package push delivers notifications to devices through Firebase Cloud Messaging.
package push

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"google.golang.org/api/fcm/v1"
	"google.golang.org/api/option"

	"github.com/blissmart/marketplace-backend/pkg/config"
	"github.com/blissmart/marketplace-backend/pkg/logger"
)

var ErrDisabled = errors.New("push delivery disabled")

// Message is the device-facing payload.
type Message struct {
	Title string
	Body  string
	Data  map[string]string
}

// Sender delivers a message to one device token.
type Sender interface {
	Enabled() bool
	Send(ctx context.Context, token string, msg Message) error
}

// FCMSender calls the FCM HTTP v1 API.
type FCMSender struct {
	svc     *fcm.Service
	parent  string
	timeout time.Duration
}

// New returns an FCM sender when push is configured and a Noop sender otherwise.
func New(ctx context.Context, cfg config.PushConfig, logg *logger.Logger) (Sender, error) {
	if !cfg.Enabled() {
		if logg != nil {
			logg.Info(ctx, "push delivery disabled; notifications stay in-app")
		}
		return Noop{}, nil
	}

	var opts []option.ClientOption
	if creds := strings.TrimSpace(cfg.CredentialsJSON); creds != "" {
		opts = append(opts, option.WithCredentialsJSON([]byte(creds)))
	}
	svc, err := fcm.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating fcm service: %w", err)
	}

	if logg != nil {
		logg.Info(logg.WithField(ctx, "fcm_project", cfg.ProjectID), "push delivery enabled")
	}
	return &FCMSender{
		svc:     svc,
		parent:  "projects/" + strings.TrimSpace(cfg.ProjectID),
		timeout: cfg.Timeout,
	}, nil
}

func (s *FCMSender) Enabled() bool { return s != nil && s.svc != nil }

func (s *FCMSender) Send(ctx context.Context, token string, msg Message) error {
	if !s.Enabled() {
		return ErrDisabled
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return errors.New("device token is required")
	}
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	req := &fcm.SendMessageRequest{
		Message: &fcm.Message{
			Token: token,
			Notification: &fcm.Notification{
				Title: msg.Title,
				Body:  msg.Body,
			},
			Data: msg.Data,
		},
	}
	if _, err := s.svc.Projects.Messages.Send(s.parent, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("fcm send: %w", err)
	}
	return nil
}

// Noop drops every message.
type Noop struct{}

func (Noop) Enabled() bool { return false }

func (Noop) Send(context.Context, string, Message) error { return ErrDisabled }
