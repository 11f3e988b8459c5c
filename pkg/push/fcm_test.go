package push

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"google.golang.org/api/fcm/v1"
	"google.golang.org/api/option"

	"github.com/blissmart/marketplace-backend/pkg/config"
)

func TestNewWithoutProjectIsNoop(t *testing.T) {
	sender, err := New(context.Background(), config.PushConfig{}, nil)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if sender.Enabled() {
		t.Fatalf("expected disabled sender")
	}
	if err := sender.Send(context.Background(), "tok", Message{}); !errors.Is(err, ErrDisabled) {
		t.Fatalf("expected ErrDisabled, got %v", err)
	}
}

func TestFCMSenderPostsMessage(t *testing.T) {
	var gotPath string
	var gotBody fcm.SendMessageRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		data, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(data, &gotBody); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"name":"projects/demo/messages/1"}`))
	}))
	defer srv.Close()

	svc, err := fcm.NewService(context.Background(),
		option.WithEndpoint(srv.URL+"/"),
		option.WithoutAuthentication(),
		option.WithHTTPClient(srv.Client()),
	)
	if err != nil {
		t.Fatalf("fcm service: %v", err)
	}
	sender := &FCMSender{svc: svc, parent: "projects/demo"}

	err = sender.Send(context.Background(), "device-1", Message{
		Title: "Order placed",
		Body:  "Your order is confirmed",
		Data:  map[string]string{"orderId": "o-1"},
	})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if gotPath != "/v1/projects/demo/messages:send" {
		t.Fatalf("unexpected path %q", gotPath)
	}
	if gotBody.Message == nil || gotBody.Message.Token != "device-1" || gotBody.Message.Notification.Title != "Order placed" {
		t.Fatalf("unexpected body %+v", gotBody.Message)
	}
	if gotBody.Message.Data["orderId"] != "o-1" {
		t.Fatalf("missing data payload")
	}
}

func TestFCMSenderRejectsEmptyToken(t *testing.T) {
	sender := &FCMSender{svc: &fcm.Service{}, parent: "projects/demo"}
	if err := sender.Send(context.Background(), " ", Message{}); err == nil {
		t.Fatalf("expected error for empty token")
	}
}
