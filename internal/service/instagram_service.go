package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	config "github.com/glevi2004/organically-sub001/configs"
	"github.com/glevi2004/organically-sub001/internal/transfer"
)

// InstagramService wraps the Graph API endpoints the publish pipeline needs:
// container creation, container status, and media publish. Every call takes
// the decrypted access token explicitly; the service itself holds no
// credential state.
type InstagramService interface {
	CreateImageContainer(ctx context.Context, accessToken, accountID, mediaURL, caption string) (string, error)
	CreateVideoContainer(ctx context.Context, accessToken, accountID, mediaURL, caption string) (string, error)
	CreateCarouselItemContainer(ctx context.Context, accessToken, accountID, mediaURL, mediaType string) (string, error)
	CreateCarouselContainer(ctx context.Context, accessToken, accountID string, childIDs []string, caption string) (string, error)
	GetContainerStatus(ctx context.Context, accessToken, containerID string) (string, error)
	WaitForContainerReady(ctx context.Context, accessToken, containerID string) error
	PublishMediaContainer(ctx context.Context, accessToken, accountID, containerID string) (string, error)
}

type instagramService struct {
	cfg    config.Config
	client *http.Client
}

func NewInstagramService(cfg config.Config) InstagramService {
	return &instagramService{
		cfg:    cfg,
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

func (ig *instagramService) mediaEndpoint(accountID string) string {
	return fmt.Sprintf("%s/%s/%s/media", ig.cfg.GraphAPIBaseURL, ig.cfg.GraphAPIVersion, accountID)
}

func (ig *instagramService) CreateImageContainer(ctx context.Context, accessToken, accountID, mediaURL, caption string) (string, error) {
	payload := map[string]interface{}{
		"image_url":    mediaURL,
		"caption":      caption,
		"access_token": accessToken,
	}
	return ig.createContainer(ctx, ig.mediaEndpoint(accountID), payload)
}

func (ig *instagramService) CreateVideoContainer(ctx context.Context, accessToken, accountID, mediaURL, caption string) (string, error) {
	payload := map[string]interface{}{
		"media_type":   "REELS",
		"video_url":    mediaURL,
		"caption":      caption,
		"access_token": accessToken,
	}
	return ig.createContainer(ctx, ig.mediaEndpoint(accountID), payload)
}

func (ig *instagramService) CreateCarouselItemContainer(ctx context.Context, accessToken, accountID, mediaURL, mediaType string) (string, error) {
	payload := map[string]interface{}{
		"is_carousel_item": true,
		"access_token":     accessToken,
	}
	if mediaType == "video" {
		payload["media_type"] = "VIDEO"
		payload["video_url"] = mediaURL
	} else {
		payload["image_url"] = mediaURL
	}
	return ig.createContainer(ctx, ig.mediaEndpoint(accountID), payload)
}

func (ig *instagramService) CreateCarouselContainer(ctx context.Context, accessToken, accountID string, childIDs []string, caption string) (string, error) {
	if len(childIDs) < 2 {
		return "", newPublishError(CodeInvalidMediaCount, false,
			"carousel requires at least 2 children, got %d", len(childIDs))
	}

	payload := map[string]interface{}{
		"media_type":   "CAROUSEL",
		"caption":      caption,
		"children":     childIDs,
		"access_token": accessToken,
	}
	return ig.createContainer(ctx, ig.mediaEndpoint(accountID), payload)
}

func (ig *instagramService) createContainer(ctx context.Context, url string, payload map[string]interface{}) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("error marshalling payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(body))
	if err != nil {
		return "", fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := ig.client.Do(req)
	if err != nil {
		return "", newPublishError(CodeProviderUnavailable, true, "container request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", newPublishError(CodeProviderUnavailable, true, "error reading response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", classifyGraphError(resp.StatusCode, respBody, CodeMediaRejected)
	}

	var result transfer.ContainerResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("error parsing response: %w", err)
	}

	if result.ID == "" {
		return "", newPublishError(CodeMediaRejected, false, "no container ID returned")
	}

	return result.ID, nil
}

func (ig *instagramService) GetContainerStatus(ctx context.Context, accessToken, containerID string) (string, error) {
	url := fmt.Sprintf("%s/%s/%s?fields=status_code&access_token=%s",
		ig.cfg.GraphAPIBaseURL, ig.cfg.GraphAPIVersion, containerID, accessToken)

	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return "", fmt.Errorf("error creating request: %w", err)
	}

	resp, err := ig.client.Do(req)
	if err != nil {
		return "", newPublishError(CodeProviderUnavailable, true, "status request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", newPublishError(CodeProviderUnavailable, true, "error reading response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", classifyGraphError(resp.StatusCode, respBody, CodeContainerProcessingFailed)
	}

	var result transfer.ContainerStatusResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("error parsing response: %w", err)
	}

	return result.StatusCode, nil
}

// WaitForContainerReady polls the container status at a fixed interval until
// it reaches FINISHED, fails on ERROR/EXPIRED, or gives up after the overall
// poll timeout. Video and carousel processing is asynchronous provider-side,
// so a bounded poll is the only way to know when publish is allowed.
func (ig *instagramService) WaitForContainerReady(ctx context.Context, accessToken, containerID string) error {
	deadline := time.Now().Add(ig.cfg.PollTimeout)
	ticker := time.NewTicker(ig.cfg.PollInterval)
	defer ticker.Stop()

	for {
		status, err := ig.GetContainerStatus(ctx, accessToken, containerID)
		if err != nil {
			return err
		}

		switch status {
		case transfer.ContainerStatusFinished:
			return nil
		case transfer.ContainerStatusError:
			return newPublishError(CodeContainerProcessingFailed, false,
				"container %s failed processing", containerID)
		case transfer.ContainerStatusExpired:
			return newPublishError(CodeContainerProcessingFailed, false,
				"container %s expired before publish", containerID)
		}

		if time.Now().After(deadline) {
			return newPublishError(CodeContainerNotReadyInTime, true,
				"container %s still %s after %s", containerID, status, ig.cfg.PollTimeout)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (ig *instagramService) PublishMediaContainer(ctx context.Context, accessToken, accountID, containerID string) (string, error) {
	url := fmt.Sprintf("%s/%s/%s/media_publish", ig.cfg.GraphAPIBaseURL, ig.cfg.GraphAPIVersion, accountID)
	payload := map[string]string{
		"creation_id":  containerID,
		"access_token": accessToken,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("error marshalling payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(body))
	if err != nil {
		return "", fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := ig.client.Do(req)
	if err != nil {
		return "", newPublishError(CodeProviderUnavailable, true, "publish request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", newPublishError(CodeProviderUnavailable, true, "error reading response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", classifyGraphError(resp.StatusCode, respBody, CodeContainerNotPublishable)
	}

	var result transfer.PublishResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("error parsing response: %w", err)
	}

	if result.ID == "" {
		return "", newPublishError(CodeContainerNotPublishable, false, "no media ID returned from publish")
	}

	slog.Info("published media container", "container_id", containerID, "media_id", result.ID)
	return result.ID, nil
}

// classifyGraphError maps a non-200 Graph API response to the pipeline error
// taxonomy. 5xx and transient errors are retryable; token problems are auth
// failures; anything else gets the caller-supplied terminal code.
func classifyGraphError(statusCode int, body []byte, terminal ErrorCode) error {
	var errResp transfer.InstagramErrorResponse
	_ = json.Unmarshal(body, &errResp)

	if statusCode >= http.StatusInternalServerError || errResp.Error.IsTransient {
		return newPublishError(CodeProviderUnavailable, true,
			"graph api error (status %d): %s", statusCode, errResp.Error.Message)
	}

	if statusCode == http.StatusUnauthorized || errResp.Error.Type == "OAuthException" || errResp.Error.Code == 190 {
		return newPublishError(CodeAuthFailure, false,
			"graph api auth error (status %d): %s", statusCode, errResp.Error.Message)
	}

	return newPublishError(terminal, false,
		"graph api error (status %d): %s", statusCode, errResp.Error.Message)
}
