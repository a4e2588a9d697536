// Package translation defines the port for remote machine-translation
// providers. Implementations live under internal/platform.
package translation

import (
	"context"
	"errors"
)

// ErrExternalService indicates the remote translation provider failed or
// returned an unusable response.
var ErrExternalService = errors.New("translation provider failure")

// AutoResult is a provider translation together with the source language
// the provider detected (or was told to assume).
type AutoResult struct {
	TranslatedText   string
	DetectedLanguage string
}

// Gateway translates a piece of text into a target language, detecting
// the source language.
type Gateway interface {
	// Translate returns the translation of text into targetLang. Errors
	// wrap ErrExternalService when the provider is at fault.
	Translate(ctx context.Context, text, targetLang string) (*AutoResult, error)
}
