package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/blissmart/marketplace-backend/api/middleware"
	"github.com/blissmart/marketplace-backend/pkg/enums"
)

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

type requestOpts struct {
	body   string
	userID uuid.UUID
	role   enums.UserRole
	params map[string]string
}

func newRequest(method, path string, opts requestOpts) *http.Request {
	var req *http.Request
	if opts.body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(opts.body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}

	ctx := req.Context()
	if opts.userID != uuid.Nil {
		ctx = middleware.WithUserID(ctx, opts.userID.String())
		ctx = middleware.WithRole(ctx, opts.role)
	}
	if len(opts.params) > 0 {
		rctx := chi.NewRouteContext()
		for key, value := range opts.params {
			rctx.URLParams.Add(key, value)
		}
		ctx = context.WithValue(ctx, chi.RouteCtxKey, rctx)
	}
	return req.WithContext(ctx)
}

func decodeEnvelope(t *testing.T, resp *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(resp.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode response %q: %v", resp.Body.String(), err)
	}
	return env
}

func expectErrorCode(t *testing.T, resp *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	if resp.Code != status {
		t.Fatalf("expected status %d got %d: %s", status, resp.Code, resp.Body.String())
	}
	env := decodeEnvelope(t, resp)
	if env.Error == nil || env.Error.Code != code {
		t.Fatalf("expected error code %s got %s", code, resp.Body.String())
	}
}
