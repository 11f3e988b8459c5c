package maps

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"

	pkgerrors "github.com/blissmart/marketplace-backend/pkg/errors"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     http.Header{},
	}
}

func TestGeocodeResolvesFirstSuggestion(t *testing.T) {
	var calls []string
	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		calls = append(calls, req.Method+" "+req.URL.String())
		if req.Header.Get("X-Goog-Api-Key") != "test-key" {
			t.Fatalf("missing api key header")
		}
		switch {
		case strings.HasSuffix(req.URL.Path, "places:autocomplete"):
			var payload map[string]any
			bodyBytes, _ := io.ReadAll(req.Body)
			if err := json.Unmarshal(bodyBytes, &payload); err != nil {
				t.Fatalf("unmarshal request body: %v", err)
			}
			if payload["input"] != "MG Road, Bengaluru" {
				t.Fatalf("unexpected input %v", payload["input"])
			}
			regions, _ := payload["includedRegionCodes"].([]any)
			if len(regions) != 1 || regions[0] != "IN" {
				t.Fatalf("expected IN region bias, got %v", payload["includedRegionCodes"])
			}
			return jsonResponse(http.StatusOK, `{"suggestions":[{"placePrediction":{"placeId":"place_1","text":{"text":"MG Road"}}},{"placePrediction":{"placeId":"place_2","text":{"text":"Other"}}}]}`), nil
		default:
			if req.Header.Get("X-Goog-FieldMask") != placeResolveFieldMask {
				t.Fatalf("unexpected field mask %q", req.Header.Get("X-Goog-FieldMask"))
			}
			return jsonResponse(http.StatusOK, `{"id":"place_1","formattedAddress":"MG Road, Bengaluru, Karnataka","location":{"latitude":12.9756,"longitude":77.6067}}`), nil
		}
	})

	client, err := NewClient("test-key", WithBaseURL("http://maps.test/v1/"), WithHTTPClient(&http.Client{Transport: rt}))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	place, err := client.Geocode(context.Background(), "MG Road, Bengaluru")
	if err != nil {
		t.Fatalf("geocode: %v", err)
	}
	if place.PlaceID != "place_1" || place.Lat != 12.9756 || place.Lng != 77.6067 {
		t.Fatalf("unexpected place %+v", place)
	}
	if len(calls) != 2 || calls[1] != "GET http://maps.test/v1/places/place_1" {
		t.Fatalf("unexpected calls %v", calls)
	}
}

func TestGeocodeNoSuggestions(t *testing.T) {
	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusOK, `{}`), nil
	})
	client, _ := NewClient("k", WithHTTPClient(&http.Client{Transport: rt}))

	_, err := client.Geocode(context.Background(), "nowhere")
	if !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestAutocompleteUpstreamFailure(t *testing.T) {
	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusForbidden, `{"error":"denied"}`), nil
	})
	client, _ := NewClient("k", WithRegion(""), WithHTTPClient(&http.Client{Transport: rt}))

	_, err := client.Autocomplete(context.Background(), "somewhere")
	if !pkgerrors.IsCode(err, pkgerrors.CodeDependency) {
		t.Fatalf("expected dependency error, got %v", err)
	}
	if !strings.Contains(err.Error(), "status 403") {
		t.Fatalf("expected status in error, got %v", err)
	}
}

func TestValidationAndConstruction(t *testing.T) {
	if _, err := NewClient("  "); err != errAPIKeyRequired {
		t.Fatalf("expected api key error, got %v", err)
	}

	client, _ := NewClient("k")
	if _, err := client.Autocomplete(context.Background(), " "); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := client.ResolvePlace(context.Background(), ""); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}

	var nilClient *Client
	if _, err := nilClient.ResolvePlace(context.Background(), "p"); !pkgerrors.IsCode(err, pkgerrors.CodeDependency) {
		t.Fatalf("expected dependency error, got %v", err)
	}
}
