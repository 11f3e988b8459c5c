package notifications

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/blissmart/marketplace-backend/pkg/db/models"
	"github.com/blissmart/marketplace-backend/pkg/enums"
	pkgerrors "github.com/blissmart/marketplace-backend/pkg/errors"
	"github.com/blissmart/marketplace-backend/pkg/logger"
	"github.com/blissmart/marketplace-backend/pkg/metrics"
	"github.com/blissmart/marketplace-backend/pkg/pagination"
	"github.com/blissmart/marketplace-backend/pkg/push"
	"github.com/blissmart/marketplace-backend/pkg/types"
)

const bulkConcurrency = 8

// Notifier is the write surface other modules use to reach users.
type Notifier interface {
	Send(ctx context.Context, input SendInput) (*NotificationDTO, error)
	SendBulk(ctx context.Context, inputs []SendInput) ([]NotificationDTO, error)
}

// Service defines notification write and read operations.
type Service interface {
	Notifier
	List(ctx context.Context, params ListParams) (*ListResult, error)
	UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error)
	MarkRead(ctx context.Context, userID, notificationID uuid.UUID) error
	MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error)
	SavePushToken(ctx context.Context, userID uuid.UUID, token string) error
}

type userStore interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	SetPushToken(ctx context.Context, id uuid.UUID, token string) error
}

// SendInput describes one notification for one user.
type SendInput struct {
	UserID    uuid.UUID
	Title     string
	Message   string
	Type      enums.NotificationType
	ActionURL *string
	Metadata  map[string]any
}

// ListParams configures pagination for notifications.
type ListParams struct {
	UserID     uuid.UUID
	Limit      int
	Cursor     string
	UnreadOnly bool
}

// ListResult wraps returned notifications and the cursor for the next page.
type ListResult struct {
	Items  []NotificationDTO `json:"items"`
	Cursor string            `json:"cursor"`
}

// NotificationDTO is the client view of a notification.
type NotificationDTO struct {
	ID        uuid.UUID                 `json:"id"`
	UserID    uuid.UUID                 `json:"userId"`
	Title     string                    `json:"title"`
	Message   string                    `json:"message"`
	Type      enums.NotificationType    `json:"type"`
	Read      bool                      `json:"read"`
	Channel   enums.NotificationChannel `json:"channel"`
	ActionURL *string                   `json:"actionUrl,omitempty"`
	Metadata  types.JSON                `json:"metadata,omitempty"`
	CreatedAt time.Time                 `json:"createdAt"`
}

func toDTO(n *models.Notification) NotificationDTO {
	return NotificationDTO{
		ID:        n.ID,
		UserID:    n.UserID,
		Title:     n.Title,
		Message:   n.Message,
		Type:      n.Type,
		Read:      n.Read,
		Channel:   n.Channel,
		ActionURL: n.ActionURL,
		Metadata:  n.Metadata,
		CreatedAt: n.CreatedAt,
	}
}

type service struct {
	repo    Repository
	users   userStore
	push    push.Sender
	metrics *metrics.Marketplace
	logg    *logger.Logger
}

// ServiceParams bundles notification dependencies.
type ServiceParams struct {
	Repo    Repository
	Users   userStore
	Push    push.Sender
	Metrics *metrics.Marketplace
	Logger  *logger.Logger
}

// NewService wires notifications dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "notifications repository required")
	}
	if params.Users == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "users repository required")
	}
	sender := params.Push
	if sender == nil {
		sender = push.Noop{}
	}
	return &service{
		repo:    params.Repo,
		users:   params.Users,
		push:    sender,
		metrics: params.Metrics,
		logg:    params.Logger,
	}, nil
}

func (s *service) Send(ctx context.Context, input SendInput) (*NotificationDTO, error) {
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	title := strings.TrimSpace(input.Title)
	message := strings.TrimSpace(input.Message)
	if title == "" || message == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "title and message are required")
	}
	kind := input.Type
	if kind == "" {
		kind = enums.NotificationTypeGeneral
	}
	if !kind.IsValid() {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "invalid notification type %q", kind)
	}

	var metadata types.JSON
	if len(input.Metadata) > 0 {
		raw, err := types.JSONFrom(input.Metadata)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid metadata")
		}
		metadata = raw
	}

	row := &models.Notification{
		UserID:    input.UserID,
		Title:     title,
		Message:   message,
		Type:      kind,
		Channel:   enums.NotificationChannelInApp,
		ActionURL: input.ActionURL,
		Metadata:  metadata,
	}
	if err := s.repo.Create(ctx, row); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create notification")
	}

	if s.deliverPush(ctx, row) {
		row.Channel = enums.NotificationChannelPush
	}
	dto := toDTO(row)
	return &dto, nil
}

// deliverPush attempts a device push and reports whether it was delivered.
// Failures never propagate to the caller.
func (s *service) deliverPush(ctx context.Context, row *models.Notification) bool {
	if !s.push.Enabled() {
		return false
	}
	user, err := s.users.FindByID(ctx, row.UserID)
	if err != nil {
		s.warn(ctx, row, "push skipped: user lookup failed", err)
		s.metrics.PushResult("failed")
		return false
	}
	if user.PushToken == nil || strings.TrimSpace(*user.PushToken) == "" {
		s.metrics.PushResult("skipped")
		return false
	}

	msg := push.Message{
		Title: row.Title,
		Body:  row.Message,
		Data: map[string]string{
			"notificationId": row.ID.String(),
			"type":           string(row.Type),
		},
	}
	if row.ActionURL != nil {
		msg.Data["actionUrl"] = *row.ActionURL
	}
	if err := s.push.Send(ctx, *user.PushToken, msg); err != nil {
		s.warn(ctx, row, "push delivery failed", err)
		s.metrics.PushResult("failed")
		return false
	}
	if err := s.repo.SetChannel(ctx, row.ID, enums.NotificationChannelPush); err != nil {
		s.warn(ctx, row, "push channel update failed", err)
	}
	s.metrics.PushResult("sent")
	return true
}

func (s *service) SendBulk(ctx context.Context, inputs []SendInput) ([]NotificationDTO, error) {
	var (
		mu       sync.Mutex
		combined error
		sent     = make([]NotificationDTO, 0, len(inputs))
	)

	var g errgroup.Group
	g.SetLimit(bulkConcurrency)
	for _, input := range inputs {
		input := input
		g.Go(func() error {
			dto, err := s.Send(ctx, input)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				combined = multierr.Append(combined, fmt.Errorf("notify %s: %w", input.UserID, err))
				return nil
			}
			sent = append(sent, *dto)
			return nil
		})
	}
	_ = g.Wait()

	if combined != nil && s.logg != nil {
		logCtx := s.logg.WithField(ctx, "failed", len(multierr.Errors(combined)))
		s.logg.Error(logCtx, "bulk notification partially failed", combined)
	}
	return sent, combined
}

func (s *service) List(ctx context.Context, params ListParams) (*ListResult, error) {
	if params.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}

	query := listNotificationsParams{
		UserID:     params.UserID,
		Limit:      pagination.NormalizeLimit(params.Limit),
		UnreadOnly: params.UnreadOnly,
	}
	if params.Cursor != "" {
		cursor, err := pagination.ParseCursor(params.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		query.Cursor = cursor
	}

	rows, next, err := s.repo.List(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list notifications")
	}

	items := make([]NotificationDTO, 0, len(rows))
	for i := range rows {
		items = append(items, toDTO(&rows[i]))
	}
	return &ListResult{Items: items, Cursor: next}, nil
}

func (s *service) UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error) {
	if userID == uuid.Nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	count, err := s.repo.CountUnread(ctx, userID)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count unread notifications")
	}
	return count, nil
}

func (s *service) MarkRead(ctx context.Context, userID, notificationID uuid.UUID) error {
	if userID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if notificationID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "notification id required")
	}

	result, err := s.repo.MarkRead(ctx, userID, notificationID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark notification read")
	}
	if !result.Found {
		return pkgerrors.New(pkgerrors.CodeNotFound, "notification not found")
	}
	return nil
}

func (s *service) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	if userID == uuid.Nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}

	count, err := s.repo.MarkAllRead(ctx, userID)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark notifications read")
	}
	return count, nil
}

func (s *service) SavePushToken(ctx context.Context, userID uuid.UUID, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "token is required")
	}
	if err := s.users.SetPushToken(ctx, userID, token); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "save push token")
	}
	return nil
}

func (s *service) warn(ctx context.Context, row *models.Notification, msg string, err error) {
	if s.logg == nil {
		return
	}
	logCtx := s.logg.WithFields(ctx, map[string]any{
		"notification_id": row.ID.String(),
		"user_id":         row.UserID.String(),
		"error":           err.Error(),
	})
	s.logg.Warn(logCtx, msg)
}
