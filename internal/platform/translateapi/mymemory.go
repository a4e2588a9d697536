// Package translateapi implements the translation gateway port against
// the MyMemory and LibreTranslate HTTP providers.
package translateapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode"

	"github.com/klausbr/readium-api/internal/translation"
)

// MyMemoryGateway translates through the MyMemory public API.
//
// MyMemory rejects some "auto" source requests and mangles shouty
// all-caps input, so the gateway layers two fallbacks on top of the
// plain call: an English-source retry when auto detection is rejected,
// and a lowercased retry when a mostly-uppercase input comes back
// untranslated.
type MyMemoryGateway struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

// NewMyMemoryGateway creates a gateway against the given MyMemory
// endpoint (typically https://api.mymemory.translated.net/get).
func NewMyMemoryGateway(baseURL string, timeout time.Duration, logger *slog.Logger) *MyMemoryGateway {
	if logger == nil {
		logger = slog.Default()
	}
	return &MyMemoryGateway{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
		logger:  logger.With(slog.String("component", "mymemory_gateway")),
	}
}

// Ensure MyMemoryGateway implements translation.Gateway
var _ translation.Gateway = (*MyMemoryGateway)(nil)

type myMemoryResponse struct {
	translatedText   string
	detectedLanguage string
	statusCode       int
	details          string
}

// Translate implements translation.Gateway.Translate
func (g *MyMemoryGateway) Translate(ctx context.Context, text, targetLang string) (*translation.AutoResult, error) {
	response, err := g.callWithSourceFallback(ctx, text, targetLang)
	if err != nil {
		return nil, err
	}

	if shouldRetryWithNormalizedCase(text, response) {
		response, err = g.call(ctx, text, "en", targetLang)
		if err != nil {
			return nil, err
		}

		if shouldRetryWithNormalizedCase(text, response) {
			normalized := strings.ToLower(strings.TrimSpace(text))
			response, err = g.call(ctx, normalized, "en", targetLang)
			if err != nil {
				return nil, err
			}
		}
	}

	if response.statusCode != 200 {
		details := response.details
		if details == "" {
			details = "unknown error"
		}
		return nil, fmt.Errorf("%w: MyMemory translation failed: %s",
			translation.ErrExternalService, details)
	}
	if strings.TrimSpace(response.translatedText) == "" {
		return nil, fmt.Errorf("%w: provider returned an empty translation",
			translation.ErrExternalService)
	}

	return &translation.AutoResult{
		TranslatedText:   response.translatedText,
		DetectedLanguage: response.detectedLanguage,
	}, nil
}

// callWithSourceFallback asks for auto detection first and falls back to
// an English source when the provider rejects "auto".
func (g *MyMemoryGateway) callWithSourceFallback(ctx context.Context, text, targetLang string) (*myMemoryResponse, error) {
	response, err := g.call(ctx, text, "auto", targetLang)
	if err != nil {
		return nil, err
	}
	if isInvalidSourceLanguage(response) {
		return g.call(ctx, text, "en", targetLang)
	}
	return response, nil
}

func (g *MyMemoryGateway) call(ctx context.Context, text, sourceLang, targetLang string) (*myMemoryResponse, error) {
	query := url.Values{}
	query.Set("q", text)
	query.Set("langpair", sourceLang+"|"+targetLang)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", translation.ErrExternalService, err)
	}

	body, err := send(g.client, req)
	if err != nil {
		return nil, err
	}

	var payload struct {
		ResponseStatus  json.Number `json:"responseStatus"`
		ResponseDetails string      `json:"responseDetails"`
		ResponseData    struct {
			TranslatedText string `json:"translatedText"`
		} `json:"responseData"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("%w: failed to parse provider response: %v",
			translation.ErrExternalService, err)
	}

	// MyMemory reports errors through responseStatus, sometimes as a
	// string, with HTTP 200.
	status := 200
	if s, err := payload.ResponseStatus.Int64(); err == nil && s != 0 {
		status = int(s)
	}

	return &myMemoryResponse{
		translatedText:   payload.ResponseData.TranslatedText,
		detectedLanguage: sourceLang,
		statusCode:       status,
		details:          payload.ResponseDetails,
	}, nil
}

// shouldRetryWithNormalizedCase reports whether the provider echoed a
// mostly-uppercase input back unchanged, which usually means it treated
// the shouting as an untranslatable proper noun.
func shouldRetryWithNormalizedCase(originalText string, response *myMemoryResponse) bool {
	if response.statusCode != 200 {
		return false
	}

	input := strings.TrimSpace(originalText)
	translated := strings.TrimSpace(response.translatedText)
	if input == "" || translated == "" {
		return false
	}
	if !strings.EqualFold(input, translated) {
		return false
	}
	return isMostlyUppercase(input)
}

// isMostlyUppercase reports whether at least 70% of the letters are
// uppercase, requiring at least 3 letters to avoid flagging acronyms of
// one or two characters.
func isMostlyUppercase(text string) bool {
	letters, uppercase := 0, 0
	for _, r := range text {
		if unicode.IsLetter(r) {
			letters++
			if unicode.IsUpper(r) {
				uppercase++
			}
		}
	}
	if letters < 3 {
		return false
	}
	return float64(uppercase)/float64(letters) >= 0.7
}

func isInvalidSourceLanguage(response *myMemoryResponse) bool {
	if response.statusCode == 200 {
		return false
	}
	return strings.Contains(strings.ToLower(response.details), "invalid source language")
}

// send performs the request and returns the body, mapping transport and
// non-2xx failures to ErrExternalService.
func send(client *http.Client, req *http.Request) ([]byte, error) {
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: provider call failed: %v", translation.ErrExternalService, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: provider call failed with status %d",
			translation.ErrExternalService, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read provider response: %v",
			translation.ErrExternalService, err)
	}
	return body, nil
}
