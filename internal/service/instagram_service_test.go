package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	config "github.com/glevi2004/organically-sub001/configs"
	"github.com/glevi2004/organically-sub001/internal/transfer"
)

func testGraphConfig(baseURL string) config.Config {
	return config.Config{
		GraphAPIBaseURL: baseURL,
		GraphAPIVersion: "v21.0",
		PollInterval:    5 * time.Millisecond,
		PollTimeout:     50 * time.Millisecond,
	}
}

func TestCreateImageContainer(t *testing.T) {
	var gotPayload map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v21.0/acct-1/media" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotPayload); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		json.NewEncoder(w).Encode(transfer.ContainerResponse{ID: "container-1"})
	}))
	defer srv.Close()

	ig := NewInstagramService(testGraphConfig(srv.URL))

	id, err := ig.CreateImageContainer(context.Background(), "token", "acct-1", "https://x/a.jpg", "hello")
	if err != nil {
		t.Fatalf("create image container: %v", err)
	}
	if id != "container-1" {
		t.Fatalf("expected container-1, got %s", id)
	}
	if gotPayload["image_url"] != "https://x/a.jpg" || gotPayload["caption"] != "hello" {
		t.Fatalf("unexpected payload: %+v", gotPayload)
	}
}

func TestCreateContainerErrorClassification(t *testing.T) {
	tests := []struct {
		name          string
		status        int
		body          string
		wantCode      ErrorCode
		wantRetryable bool
	}{
		{
			name:          "server error is retryable",
			status:        http.StatusInternalServerError,
			body:          `{"error":{"message":"boom"}}`,
			wantCode:      CodeProviderUnavailable,
			wantRetryable: true,
		},
		{
			name:          "transient flag is retryable",
			status:        http.StatusBadRequest,
			body:          `{"error":{"message":"try again","is_transient":true}}`,
			wantCode:      CodeProviderUnavailable,
			wantRetryable: true,
		},
		{
			name:          "oauth error is auth failure",
			status:        http.StatusBadRequest,
			body:          `{"error":{"message":"bad token","type":"OAuthException","code":190}}`,
			wantCode:      CodeAuthFailure,
			wantRetryable: false,
		},
		{
			name:          "other client error is media rejection",
			status:        http.StatusBadRequest,
			body:          `{"error":{"message":"unsupported format"}}`,
			wantCode:      CodeMediaRejected,
			wantRetryable: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			ig := NewInstagramService(testGraphConfig(srv.URL))

			_, err := ig.CreateImageContainer(context.Background(), "token", "acct-1", "https://x/a.jpg", "")
			if err == nil {
				t.Fatalf("expected error")
			}
			if CodeOf(err) != tt.wantCode {
				t.Fatalf("expected code %s, got %s (%v)", tt.wantCode, CodeOf(err), err)
			}
			if IsRetryable(err) != tt.wantRetryable {
				t.Fatalf("expected retryable=%v, got %v", tt.wantRetryable, IsRetryable(err))
			}
		})
	}
}

func TestCreateCarouselContainerRequiresTwoChildren(t *testing.T) {
	ig := NewInstagramService(testGraphConfig("http://unused"))

	_, err := ig.CreateCarouselContainer(context.Background(), "token", "acct-1", []string{"only-one"}, "")
	if CodeOf(err) != CodeInvalidMediaCount {
		t.Fatalf("expected invalid media count, got %v", err)
	}
}

func TestGetContainerStatusErrorClassification(t *testing.T) {
	tests := []struct {
		name          string
		status        int
		body          string
		wantCode      ErrorCode
		wantRetryable bool
	}{
		{
			name:          "server error is retryable",
			status:        http.StatusInternalServerError,
			body:          `{"error":{"message":"boom"}}`,
			wantCode:      CodeProviderUnavailable,
			wantRetryable: true,
		},
		{
			name:          "client error is a terminal processing failure",
			status:        http.StatusBadRequest,
			body:          `{"error":{"message":"unknown container"}}`,
			wantCode:      CodeContainerProcessingFailed,
			wantRetryable: false,
		},
		{
			name:          "oauth error is auth failure",
			status:        http.StatusUnauthorized,
			body:          `{"error":{"message":"bad token","type":"OAuthException"}}`,
			wantCode:      CodeAuthFailure,
			wantRetryable: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			ig := NewInstagramService(testGraphConfig(srv.URL))

			_, err := ig.GetContainerStatus(context.Background(), "token", "c-1")
			if err == nil {
				t.Fatalf("expected error")
			}
			if CodeOf(err) != tt.wantCode {
				t.Fatalf("expected code %s, got %s (%v)", tt.wantCode, CodeOf(err), err)
			}
			if IsRetryable(err) != tt.wantRetryable {
				t.Fatalf("expected retryable=%v, got %v", tt.wantRetryable, IsRetryable(err))
			}
		})
	}
}

func TestWaitForContainerReady(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		status := transfer.ContainerStatusInProgress
		if calls.Add(1) >= 3 {
			status = transfer.ContainerStatusFinished
		}
		json.NewEncoder(w).Encode(transfer.ContainerStatusResponse{ID: "c-1", StatusCode: status})
	}))
	defer srv.Close()

	ig := NewInstagramService(testGraphConfig(srv.URL))

	if err := ig.WaitForContainerReady(context.Background(), "token", "c-1"); err != nil {
		t.Fatalf("wait: %v", err)
	}
	if calls.Load() < 3 {
		t.Fatalf("expected at least 3 polls, got %d", calls.Load())
	}
}

func TestWaitForContainerReadyProcessingError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(transfer.ContainerStatusResponse{ID: "c-1", StatusCode: transfer.ContainerStatusError})
	}))
	defer srv.Close()

	ig := NewInstagramService(testGraphConfig(srv.URL))

	err := ig.WaitForContainerReady(context.Background(), "token", "c-1")
	if CodeOf(err) != CodeContainerProcessingFailed {
		t.Fatalf("expected processing failure, got %v", err)
	}
	if IsRetryable(err) {
		t.Fatalf("processing failure should not be retryable")
	}
}

func TestWaitForContainerReadyTimesOut(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(transfer.ContainerStatusResponse{ID: "c-1", StatusCode: transfer.ContainerStatusInProgress})
	}))
	defer srv.Close()

	ig := NewInstagramService(testGraphConfig(srv.URL))

	err := ig.WaitForContainerReady(context.Background(), "token", "c-1")
	if CodeOf(err) != CodeContainerNotReadyInTime {
		t.Fatalf("expected not-ready-in-time, got %v", err)
	}
	if !IsRetryable(err) {
		t.Fatalf("poll timeout should be retryable")
	}
}

func TestPublishMediaContainer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/media_publish") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var payload map[string]string
		json.NewDecoder(r.Body).Decode(&payload)
		if payload["creation_id"] != "c-9" {
			t.Errorf("unexpected creation_id %s", payload["creation_id"])
		}
		json.NewEncoder(w).Encode(transfer.PublishResponse{ID: "media-9"})
	}))
	defer srv.Close()

	ig := NewInstagramService(testGraphConfig(srv.URL))

	mediaID, err := ig.PublishMediaContainer(context.Background(), "token", "acct-1", "c-9")
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if mediaID != "media-9" {
		t.Fatalf("expected media-9, got %s", mediaID)
	}
}

func TestPublishMediaContainerNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused from here on

	ig := NewInstagramService(testGraphConfig(srv.URL))

	_, err := ig.PublishMediaContainer(context.Background(), "token", "acct-1", "c-9")
	if err == nil {
		t.Fatalf("expected error")
	}
	var pe *PublishError
	if !errors.As(err, &pe) || !pe.Retryable {
		t.Fatalf("network failure should be a retryable publish error, got %v", err)
	}
}
