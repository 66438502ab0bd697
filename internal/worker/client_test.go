package worker

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSendMessageRoundTrip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/message" {
			t.Errorf("path = %s", r.URL.Path)
		}
		var req MessageRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.UserID != "u1" || req.Role != "ceo" {
			t.Errorf("request = %+v", req)
		}
		json.NewEncoder(w).Encode(MessageResponse{
			Message:       "budget looks healthy",
			Visualization: &Visualization{Recommended: "bar", Alternatives: []string{"line"}},
		})
	}))
	defer srv.Close()

	c := New(srv.URL)
	resp, err := c.SendMessage(context.Background(), MessageRequest{UserID: "u1", Role: "ceo", Message: "how are budgets?"})
	if err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	if resp.Message != "budget looks healthy" {
		t.Fatalf("message = %q", resp.Message)
	}
	if resp.Visualization == nil || resp.Visualization.Recommended != "bar" {
		t.Fatalf("visualization = %+v", resp.Visualization)
	}
}

func TestSendMessageUnconfigured(t *testing.T) {
	c := New("")
	_, err := c.SendMessage(context.Background(), MessageRequest{Message: "hi"})
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("err = %v, want ErrUnavailable", err)
	}
}

func TestSendMessageUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := New(srv.URL)
	_, err := c.SendMessage(context.Background(), MessageRequest{Message: "hi"})
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("err = %v", err)
	}
}
