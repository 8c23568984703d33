package service

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// VisionService generates captions and answers image questions through a
// Moondream-compatible HTTP API.
type VisionService struct {
	client  *resty.Client
	model   string
	baseURL string
}

// VisionConfig holds configuration for the vision service.
type VisionConfig struct {
	Model   string
	APIKey  string
	BaseURL string
}

// NewVisionService creates a new vision service.
// Parameters:
//   - cfg: vision configuration including model, API key and base URL.
//
// Returns:
//   - *VisionService: initialized vision client wrapper.
func NewVisionService(cfg *VisionConfig) *VisionService {
	client := resty.New()
	client.SetHeader("X-Moondream-Auth", cfg.APIKey)
	client.SetHeader("Content-Type", "application/json")
	// Set timeout to prevent hanging requests
	client.SetTimeout(60 * time.Second)

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://api.moondream.ai/v1"
	}

	return &VisionService{
		client:  client,
		model:   cfg.Model,
		baseURL: baseURL,
	}
}

// GetModel returns the model name being used.
// Parameters: none.
// Returns:
//   - string: model identifier.
func (s *VisionService) GetModel() string {
	return s.model
}

// EncodedImage is the opaque image encoding shared across caption and query
// calls. The expensive base64 conversion happens once per image.
type EncodedImage struct {
	dataURL string
}

// EncodeImage encodes raw image bytes for the vision API.
// Parameters:
//   - data: raw image bytes.
//   - format: image format extension (jpg, png, gif, webp).
//
// Returns:
//   - *EncodedImage: reusable encoding for Caption and Query calls.
func (s *VisionService) EncodeImage(data []byte, format string) *EncodedImage {
	mimeType := getMIMEType(format)
	base64Image := base64.StdEncoding.EncodeToString(data)
	return &EncodedImage{
		dataURL: fmt.Sprintf("data:%s;base64,%s", mimeType, base64Image),
	}
}

type captionRequest struct {
	ImageURL string `json:"image_url"`
	Length   string `json:"length,omitempty"`
	Stream   bool   `json:"stream"`
}

type captionResponse struct {
	Caption string `json:"caption"`
	Error   string `json:"error,omitempty"`
}

type queryRequest struct {
	ImageURL string `json:"image_url"`
	Question string `json:"question"`
	Stream   bool   `json:"stream"`
}

type queryResponse struct {
	Answer string `json:"answer"`
	Error  string `json:"error,omitempty"`
}

// Caption generates a caption for a previously encoded image.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - enc: image encoding produced by EncodeImage.
//   - length: caption length hint ("short" or "normal").
//
// Returns:
//   - string: generated caption text.
//   - error: non-nil if the API request fails.
func (s *VisionService) Caption(ctx context.Context, enc *EncodedImage, length string) (string, error) {
	req := captionRequest{
		ImageURL: enc.dataURL,
		Length:   length,
	}

	var resp captionResponse
	httpResp, err := s.client.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&resp).
		Post(s.baseURL + "/caption")

	if err != nil {
		return "", fmt.Errorf("failed to call caption API: %w", err)
	}

	if httpResp.StatusCode() < 200 || httpResp.StatusCode() >= 300 {
		errorMsg := fmt.Sprintf("HTTP %d", httpResp.StatusCode())
		if resp.Error != "" {
			errorMsg = fmt.Sprintf("HTTP %d: %s", httpResp.StatusCode(), resp.Error)
		} else if len(httpResp.Body()) > 0 {
			errorMsg = fmt.Sprintf("HTTP %d: %s", httpResp.StatusCode(), string(httpResp.Body()))
		}
		return "", fmt.Errorf("caption API returned error: %s", errorMsg)
	}

	if resp.Error != "" {
		return "", fmt.Errorf("caption API error: %s", resp.Error)
	}

	return resp.Caption, nil
}

// Query answers a free-form question about a previously encoded image, used
// for tag generation.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - enc: image encoding produced by EncodeImage.
//   - prompt: question to ask about the image.
//
// Returns:
//   - string: the model's answer.
//   - error: non-nil if the API request fails.
func (s *VisionService) Query(ctx context.Context, enc *EncodedImage, prompt string) (string, error) {
	req := queryRequest{
		ImageURL: enc.dataURL,
		Question: prompt,
	}

	var resp queryResponse
	httpResp, err := s.client.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&resp).
		Post(s.baseURL + "/query")

	if err != nil {
		return "", fmt.Errorf("failed to call query API: %w", err)
	}

	if httpResp.StatusCode() < 200 || httpResp.StatusCode() >= 300 {
		errorMsg := fmt.Sprintf("HTTP %d", httpResp.StatusCode())
		if resp.Error != "" {
			errorMsg = fmt.Sprintf("HTTP %d: %s", httpResp.StatusCode(), resp.Error)
		} else if len(httpResp.Body()) > 0 {
			errorMsg = fmt.Sprintf("HTTP %d: %s", httpResp.StatusCode(), string(httpResp.Body()))
		}
		return "", fmt.Errorf("query API returned error: %s", errorMsg)
	}

	if resp.Error != "" {
		return "", fmt.Errorf("query API error: %s", resp.Error)
	}

	return resp.Answer, nil
}

func getMIMEType(format string) string {
	switch format {
	case "jpg", "jpeg":
		return "image/jpeg"
	case "png":
		return "image/png"
	case "gif":
		return "image/gif"
	case "webp":
		return "image/webp"
	default:
		return "image/jpeg"
	}
}
