package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/BXLSTNRD/FrePathe/internal/domain"
	apperr "github.com/BXLSTNRD/FrePathe/internal/pkg/errors"
	"github.com/BXLSTNRD/FrePathe/internal/pkg/logger"
)

const (
	falBase        = "https://fal.run"
	falUploadBase  = "https://rest.alpha.fal.ai"
	falPricingURL  = "https://api.fal.ai/v1/models/pricing"
	falAudioPath   = "/fal-ai/audio-understanding"
	falWhisperPath = "/fal-ai/whisper"
)

var t2iEndpoints = map[domain.ImageModel]string{
	domain.ImageModelNanoBanana: "/fal-ai/nano-banana-pro",
	domain.ImageModelSeedream45: "/fal-ai/bytedance/seedream/v4.5/text-to-image",
	domain.ImageModelFlux2:      "/fal-ai/flux-2",
}

var editEndpoints = map[domain.EditorKey]string{
	domain.EditorNanoBanana: "/fal-ai/nano-banana-pro/edit",
	domain.EditorSeedream45: "/fal-ai/bytedance/seedream/v4.5/edit",
	domain.EditorFlux2:      "/fal-ai/flux-2/edit",
}

// VideoRequest is one image-to-video generation. DurationSec is already
// clamped to the model's range by the caller; the payload encoding of that
// duration is model-specific and handled here.
type VideoRequest struct {
	ModelKey    string
	Endpoint    string
	ImageURL    string
	Prompt      string
	DurationSec float64
	Aspect      domain.Aspect
}

// VideoResult carries the generated clip URL. RequestedSec is the duration
// that was asked for, not measured output; callers needing the real clip
// length probe the downloaded file.
type VideoResult struct {
	VideoURL     string
	RequestedSec float64
}

type ModelPrice struct {
	EndpointID string  `json:"endpoint_id"`
	UnitPrice  float64 `json:"unit_price"`
}

type FALClient interface {
	UploadFile(ctx context.Context, localPath string) (string, error)
	Head(ctx context.Context, url string) error
	TextToImage(ctx context.Context, model domain.ImageModel, prompt string, aspect domain.Aspect) (string, error)
	EditImage(ctx context.Context, editor domain.EditorKey, prompt string, refImages []string, aspect domain.Aspect) (string, error)
	ImageToVideo(ctx context.Context, req VideoRequest) (*VideoResult, error)
	AudioUnderstanding(ctx context.Context, audioURL, prompt string) (map[string]any, error)
	Transcribe(ctx context.Context, audioURL string) (string, error)
	FetchPricing(ctx context.Context) ([]ModelPrice, error)
}

type falClient struct {
	log        *logger.Logger
	apiKey     string
	httpClient *http.Client
}

func NewFALClient(log *logger.Logger) (FALClient, error) {
	apiKey := os.Getenv("FAL_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("missing FAL_KEY")
	}
	return &falClient{
		log:    log.With("service", "FALClient"),
		apiKey: apiKey,
		// Generation calls run up to five minutes.
		httpClient: &http.Client{Timeout: 300 * time.Second},
	}, nil
}

func (c *falClient) postJSON(ctx context.Context, url string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Key "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	raw, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return readErr
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &HTTPError{StatusCode: resp.StatusCode, Body: truncate(string(raw), 500)}
	}
	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("decode response: %w; raw=%s", err, truncate(string(raw), 200))
		}
	}
	return nil
}

// UploadFile pushes a local file to the storage service and returns its
// long-lived CDN URL.
func (c *falClient) UploadFile(ctx context.Context, localPath string) (string, error) {
	data, err := os.ReadFile(localPath)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", localPath, err)
	}
	contentType := mime.TypeByExtension(filepath.Ext(localPath))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	var initiate struct {
		UploadURL string `json:"upload_url"`
		FileURL   string `json:"file_url"`
	}
	initiateURL := falUploadBase + "/storage/upload/initiate"
	err = withRetry(ctx, c.log, "upload.initiate", func() error {
		return c.postJSON(ctx, initiateURL, map[string]any{
			"file_name":    filepath.Base(localPath),
			"content_type": contentType,
		}, &initiate)
	})
	if err != nil {
		return "", err
	}
	if initiate.UploadURL == "" || initiate.FileURL == "" {
		return "", fmt.Errorf("upload initiate returned no urls: %w", apperr.ErrBackendTransient)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, initiate.UploadURL, bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", contentType)
	req.ContentLength = int64(len(data))
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	_ = resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &HTTPError{StatusCode: resp.StatusCode, Body: "upload put failed"}
	}
	c.log.Debug("File uploaded", "file", filepath.Base(localPath), "url", initiate.FileURL)
	return initiate.FileURL, nil
}

func (c *falClient) Head(ctx context.Context, url string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return err
	}
	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return &HTTPError{StatusCode: resp.StatusCode, Body: "head check failed"}
	}
	return nil
}

type imagesResponse struct {
	Images []struct {
		URL string `json:"url"`
	} `json:"images"`
}

func firstImageURL(resp *imagesResponse) (string, error) {
	if len(resp.Images) == 0 || resp.Images[0].URL == "" {
		return "", fmt.Errorf("backend returned no image url: %w", apperr.ErrBackendTransient)
	}
	return resp.Images[0].URL, nil
}

func (c *falClient) TextToImage(ctx context.Context, model domain.ImageModel, prompt string, aspect domain.Aspect) (string, error) {
	endpoint, ok := t2iEndpoints[model]
	if !ok {
		endpoint = t2iEndpoints[domain.ImageModelNanoBanana]
		model = domain.ImageModelNanoBanana
	}
	w, h := aspect.Dimensions()

	var payload map[string]any
	switch model {
	case domain.ImageModelSeedream45:
		payload = map[string]any{
			"prompt":       prompt,
			"aspect_ratio": aspect.Ratio(),
			"image_size":   aspect.ImageSize(),
			"width":        w,
			"height":       h,
			"num_images":   1,
		}
	case domain.ImageModelFlux2:
		payload = map[string]any{
			"prompt":              prompt,
			"aspect_ratio":        aspect.Ratio(),
			"output_format":       "png",
			"num_inference_steps": 28,
			"guidance_scale":      3.5,
		}
	default:
		payload = map[string]any{
			"prompt":        prompt,
			"aspect_ratio":  aspect.Ratio(),
			"image_size":    aspect.ImageSize(),
			"output_format": "png",
			"resolution":    "2K",
		}
	}

	var resp imagesResponse
	err := withRetry(ctx, c.log, "txt2img", func() error {
		return c.postJSON(ctx, falBase+endpoint, payload, &resp)
	})
	if err != nil {
		return "", fmt.Errorf("txt2img %s: %w", model, err)
	}
	return firstImageURL(&resp)
}

func (c *falClient) EditImage(ctx context.Context, editor domain.EditorKey, prompt string, refImages []string, aspect domain.Aspect) (string, error) {
	endpoint, ok := editEndpoints[editor]
	if !ok {
		return "", fmt.Errorf("unknown img2img editor %q: %w", editor, apperr.ErrInvalidArgument)
	}
	if len(refImages) == 0 {
		return "", fmt.Errorf("img2img requires at least one reference image: %w", apperr.ErrInvalidArgument)
	}
	if limit := editor.MaxRefImages(); len(refImages) > limit {
		refImages = refImages[:limit]
	}
	w, h := aspect.Dimensions()

	var payload map[string]any
	switch editor {
	case domain.EditorFlux2:
		payload = map[string]any{
			"prompt":              prompt,
			"image_urls":          refImages,
			"guidance_scale":      2.5,
			"num_inference_steps": 28,
			"output_format":       "png",
			"aspect_ratio":        aspect.Ratio(),
		}
	case domain.EditorSeedream45:
		payload = map[string]any{
			"prompt":       prompt,
			"image_urls":   refImages,
			"num_images":   1,
			"aspect_ratio": aspect.Ratio(),
			"image_size":   aspect.ImageSize(),
			"width":        w,
			"height":       h,
		}
	default:
		payload = map[string]any{
			"prompt":        prompt,
			"image_urls":    refImages,
			"output_format": "png",
			"aspect_ratio":  aspect.Ratio(),
			"image_size":    aspect.ImageSize(),
			"resolution":    "2K",
		}
	}

	var resp imagesResponse
	err := withRetry(ctx, c.log, "img2img", func() error {
		return c.postJSON(ctx, falBase+endpoint, payload, &resp)
	})
	if err != nil {
		return "", fmt.Errorf("img2img %s: %w", editor, err)
	}
	return firstImageURL(&resp)
}

// veoDuration maps seconds onto the enum the Veo endpoint accepts.
func veoDuration(sec float64) string {
	switch {
	case sec <= 5:
		return "4s"
	case sec <= 7:
		return "6s"
	default:
		return "8s"
	}
}

// videoPayload encodes one request into the model-specific wire shape.
func videoPayload(r VideoRequest) map[string]any {
	prompt := r.Prompt
	if prompt == "" {
		prompt = "Natural motion, cinematic quality"
	}
	payload := map[string]any{
		"image_url": r.ImageURL,
		"prompt":    prompt,
	}
	switch r.ModelKey {
	case "ltx2_i2v":
		payload["num_frames"] = int(math.Round(25 * r.DurationSec))
		payload["frame_rate"] = 25
		payload["aspect_ratio"] = r.Aspect.Ratio()
	case "kling_i2v":
		payload["duration"] = int(r.DurationSec)
		payload["aspect_ratio"] = r.Aspect.Ratio()
		payload["creativity"] = 0.7
	case "veo31_i2v":
		payload["duration"] = veoDuration(r.DurationSec)
	case "wan_i2v":
		d := int(r.DurationSec)
		if d < 5 {
			d = 5
		}
		if d > 15 {
			d = 15
		}
		payload["duration"] = strconv.Itoa(d)
		if r.Aspect == domain.AspectHorizontal {
			payload["resolution"] = "1080p"
		} else {
			payload["resolution"] = "720p"
		}
	default:
		payload["duration"] = int(r.DurationSec)
		payload["aspect_ratio"] = r.Aspect.Ratio()
	}
	return payload
}

func (c *falClient) ImageToVideo(ctx context.Context, r VideoRequest) (*VideoResult, error) {
	if r.ImageURL == "" {
		return nil, fmt.Errorf("image url required: %w", apperr.ErrInvalidArgument)
	}
	payload := videoPayload(r)

	var raw map[string]any
	err := withRetry(ctx, c.log, "img2vid", func() error {
		return c.postJSON(ctx, falBase+r.Endpoint, payload, &raw)
	})
	if err != nil {
		return nil, fmt.Errorf("img2vid %s: %w", r.ModelKey, err)
	}

	url := extractVideoURL(raw)
	if url == "" {
		return nil, fmt.Errorf("img2vid %s returned no video url: %w", r.ModelKey, apperr.ErrBackendTransient)
	}
	return &VideoResult{VideoURL: url, RequestedSec: r.DurationSec}, nil
}

// Response shape varies by model: {video:{url}}, {video:"..."}, {video_url},
// or a bare {url}.
func extractVideoURL(raw map[string]any) string {
	switch v := raw["video"].(type) {
	case map[string]any:
		if u, ok := v["url"].(string); ok {
			return u
		}
	case string:
		return v
	}
	if u, ok := raw["video_url"].(string); ok {
		return u
	}
	if u, ok := raw["url"].(string); ok {
		return u
	}
	return ""
}

func (c *falClient) AudioUnderstanding(ctx context.Context, audioURL, prompt string) (map[string]any, error) {
	var raw map[string]any
	err := withRetry(ctx, c.log, "audio-understanding", func() error {
		return c.postJSON(ctx, falBase+falAudioPath, map[string]any{
			"audio_url": audioURL,
			"prompt":    prompt,
		}, &raw)
	})
	if err != nil {
		return nil, fmt.Errorf("audio understanding: %w", err)
	}
	return raw, nil
}

func (c *falClient) Transcribe(ctx context.Context, audioURL string) (string, error) {
	var resp struct {
		Text string `json:"text"`
	}
	err := withRetry(ctx, c.log, "whisper", func() error {
		return c.postJSON(ctx, falBase+falWhisperPath, map[string]any{
			"audio_url":   audioURL,
			"task":        "transcribe",
			"language":    "en",
			"chunk_level": "segment",
			"version":     "3",
		}, &resp)
	})
	if err != nil {
		return "", fmt.Errorf("whisper transcription: %w", err)
	}
	return resp.Text, nil
}

func (c *falClient) FetchPricing(ctx context.Context) ([]ModelPrice, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, falPricingURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Key "+c.apiKey)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &HTTPError{StatusCode: resp.StatusCode, Body: truncate(string(raw), 300)}
	}
	var parsed struct {
		Prices []ModelPrice `json:"prices"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("decode pricing: %w", err)
	}
	// Some deployments return a bare array.
	if len(parsed.Prices) == 0 {
		var list []ModelPrice
		if err := json.Unmarshal(raw, &list); err == nil {
			parsed.Prices = list
		}
	}
	out := parsed.Prices[:0]
	for _, p := range parsed.Prices {
		if p.EndpointID != "" && p.UnitPrice > 0 {
			out = append(out, p)
		}
	}
	return out, nil
}
