package translateapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/klausbr/readium-api/internal/translation"
)

// LibreTranslateGateway translates through a LibreTranslate instance,
// which supports genuine auto-detection and reports the detected
// language alongside the translation.
type LibreTranslateGateway struct {
	baseURL string
	apiKey  string
	client  *http.Client
	logger  *slog.Logger
}

// NewLibreTranslateGateway creates a gateway against the given
// LibreTranslate /translate endpoint. apiKey may be empty for instances
// that do not require one.
func NewLibreTranslateGateway(baseURL, apiKey string, timeout time.Duration, logger *slog.Logger) *LibreTranslateGateway {
	if logger == nil {
		logger = slog.Default()
	}
	return &LibreTranslateGateway{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
		logger:  logger.With(slog.String("component", "libretranslate_gateway")),
	}
}

// Ensure LibreTranslateGateway implements translation.Gateway
var _ translation.Gateway = (*LibreTranslateGateway)(nil)

// Translate implements translation.Gateway.Translate
func (g *LibreTranslateGateway) Translate(ctx context.Context, text, targetLang string) (*translation.AutoResult, error) {
	payload := map[string]any{
		"q":      text,
		"source": "auto",
		"target": targetLang,
		"format": "text",
	}
	if g.apiKey != "" {
		payload["api_key"] = g.apiKey
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", translation.ErrExternalService, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", translation.ErrExternalService, err)
	}
	req.Header.Set("Content-Type", "application/json")

	respBody, err := send(g.client, req)
	if err != nil {
		return nil, err
	}

	var response struct {
		TranslatedText   string `json:"translatedText"`
		DetectedLanguage struct {
			Language string `json:"language"`
		} `json:"detectedLanguage"`
	}
	if err := json.Unmarshal(respBody, &response); err != nil {
		return nil, fmt.Errorf("%w: failed to parse provider response: %v",
			translation.ErrExternalService, err)
	}

	if strings.TrimSpace(response.TranslatedText) == "" {
		return nil, fmt.Errorf("%w: provider returned an empty translation",
			translation.ErrExternalService)
	}

	detected := response.DetectedLanguage.Language
	if detected == "" {
		detected = "unknown"
	}

	return &translation.AutoResult{
		TranslatedText:   response.TranslatedText,
		DetectedLanguage: detected,
	}, nil
}
