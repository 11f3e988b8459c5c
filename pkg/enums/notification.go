package enums

import "fmt"

// NotificationType classifies a notification for the client.
type NotificationType string

const (
	NotificationTypeOrderPlaced NotificationType = "ORDER_PLACED"
	NotificationTypeNewOrder    NotificationType = "NEW_ORDER"
	NotificationTypeOrderUpdate NotificationType = "ORDER_UPDATE"
	NotificationTypePayment     NotificationType = "PAYMENT"
	NotificationTypeLowStock    NotificationType = "LOW_STOCK"
	NotificationTypeReview      NotificationType = "REVIEW"
	NotificationTypeSystem      NotificationType = "SYSTEM"
	NotificationTypePromotion   NotificationType = "PROMOTION"
	NotificationTypeAccount     NotificationType = "ACCOUNT"
	NotificationTypeGeneral     NotificationType = "GENERAL"
)

var validNotificationTypes = []NotificationType{
	NotificationTypeOrderPlaced,
	NotificationTypeNewOrder,
	NotificationTypeOrderUpdate,
	NotificationTypePayment,
	NotificationTypeLowStock,
	NotificationTypeReview,
	NotificationTypeSystem,
	NotificationTypePromotion,
	NotificationTypeAccount,
	NotificationTypeGeneral,
}

// IsValid checks whether the given type matches the canonical enum.
func (n NotificationType) IsValid() bool {
	for _, candidate := range validNotificationTypes {
		if candidate == n {
			return true
		}
	}
	return false
}

// ParseNotificationType converts raw strings into NotificationType.
func ParseNotificationType(value string) (NotificationType, error) {
	for _, candidate := range validNotificationTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid notification type %q", value)
}

// NotificationChannel records how a notification reached the user.
type NotificationChannel string

const (
	NotificationChannelInApp NotificationChannel = "IN_APP"
	NotificationChannelPush  NotificationChannel = "FCM_PUSH"
)

func (c NotificationChannel) IsValid() bool {
	return c == NotificationChannelInApp || c == NotificationChannelPush
}
