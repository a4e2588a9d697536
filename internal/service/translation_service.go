package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/klausbr/readium-api/internal/domain"
	"github.com/klausbr/readium-api/internal/platform/logger"
	"github.com/klausbr/readium-api/internal/store"
	"github.com/klausbr/readium-api/internal/translation"
)

// TranslationServiceError is a custom error type for translation service errors.
type TranslationServiceError struct {
	Operation string
	Message   string
	Err       error
}

// Error implements the error interface for TranslationServiceError.
func (e *TranslationServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("translation service %s failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("translation service %s failed: %s", e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *TranslationServiceError) Unwrap() error {
	return e.Err
}

// NewTranslationServiceError creates a new TranslationServiceError.
func NewTranslationServiceError(operation, message string, err error) *TranslationServiceError {
	return &TranslationServiceError{
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}

// TranslationConfig tunes the auto-translation cache and rate limiter.
type TranslationConfig struct {
	CacheTTL        time.Duration
	CacheMaxEntries int
	MinInterval     time.Duration
}

// TranslationService provides saved vocabulary management and cached,
// rate-limited auto-translation through a remote provider.
type TranslationService interface {
	// AutoTranslate translates text into targetLanguage through the
	// provider, serving repeats from the cache. Identical concurrent
	// requests coalesce into a single provider call.
	AutoTranslate(ctx context.Context, text, targetLanguage string) (*translation.AutoResult, error)

	// SaveTranslation upserts a vocabulary entry, keyed by the
	// normalized original text within its scope (book or global).
	SaveTranslation(ctx context.Context, bookID *uuid.UUID, originalText, translatedText, contextSentence string) (*domain.Translation, error)

	// ListForBook returns the book's vocabulary merged with global
	// entries, scoped entries shadowing global ones with the same
	// original text.
	ListForBook(ctx context.Context, bookID uuid.UUID) ([]*domain.Translation, error)

	// ListGlobal returns the vocabulary entries not scoped to any book.
	ListGlobal(ctx context.Context) ([]*domain.Translation, error)
}

// translationServiceImpl implements the TranslationService interface
type translationServiceImpl struct {
	translations store.TranslationStore
	gateway      translation.Gateway
	cache        *autoTranslationCache
	limiter      *translationRateLimiter
	group        singleflight.Group
	logger       *slog.Logger
}

// NewTranslationService creates a new TranslationService.
// It returns an error if any of the required dependencies are nil.
func NewTranslationService(
	translations store.TranslationStore,
	gateway translation.Gateway,
	cfg TranslationConfig,
	logger *slog.Logger,
) (TranslationService, error) {
	if translations == nil {
		return nil, errors.New("translation store cannot be nil")
	}
	if gateway == nil {
		return nil, errors.New("gateway cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &translationServiceImpl{
		translations: translations,
		gateway:      gateway,
		cache:        newAutoTranslationCache(cfg.CacheTTL, cfg.CacheMaxEntries),
		limiter:      newTranslationRateLimiter(cfg.MinInterval),
		logger:       logger.With(slog.String("component", "translation_service")),
	}, nil
}

// AutoTranslate implements TranslationService.AutoTranslate
func (s *translationServiceImpl) AutoTranslate(ctx context.Context, text, targetLanguage string) (*translation.AutoResult, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	inputText := strings.Join(strings.Fields(text), " ")
	if inputText == "" {
		return nil, fmt.Errorf("%w: text is required", domain.ErrInvalidArgument)
	}

	targetLang := resolveTargetLanguage(targetLanguage)
	key := targetLang + "::" + domain.NormalizeTranslationText(inputText)

	if cached, ok := s.cache.Get(key); ok {
		log.Debug("auto-translation cache hit", slog.String("key", key))
		return cached, nil
	}

	// Concurrent requests for the same key share one provider call; the
	// rate limiter then only sees genuinely repeated requests.
	result, err, _ := s.group.Do(key, func() (any, error) {
		if cached, ok := s.cache.Get(key); ok {
			return cached, nil
		}

		if err := s.limiter.Enforce(key); err != nil {
			return nil, err
		}

		translated, err := s.gateway.Translate(ctx, inputText, targetLang)
		if err != nil {
			return nil, err
		}

		s.cache.Put(key, translated)
		return translated, nil
	})
	if err != nil {
		return nil, err
	}

	return result.(*translation.AutoResult), nil
}

// SaveTranslation implements TranslationService.SaveTranslation
func (s *translationServiceImpl) SaveTranslation(
	ctx context.Context,
	bookID *uuid.UUID,
	originalText, translatedText, contextSentence string,
) (*domain.Translation, error) {
	if strings.TrimSpace(originalText) == "" || strings.TrimSpace(translatedText) == "" {
		return nil, fmt.Errorf("%w: originalText and translatedText are required", domain.ErrInvalidArgument)
	}

	entry, err := domain.NewTranslation(bookID, originalText, translatedText, contextSentence)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidArgument, err)
	}

	if err := s.translations.Upsert(ctx, entry); err != nil {
		return nil, NewTranslationServiceError("save", "failed to save translation", err)
	}
	return entry, nil
}

// ListForBook implements TranslationService.ListForBook
func (s *translationServiceImpl) ListForBook(ctx context.Context, bookID uuid.UUID) ([]*domain.Translation, error) {
	scoped, err := s.translations.FindByBookID(ctx, bookID)
	if err != nil {
		return nil, NewTranslationServiceError("list", "failed to load book translations", err)
	}

	global, err := s.translations.FindGlobal(ctx)
	if err != nil {
		return nil, NewTranslationServiceError("list", "failed to load global translations", err)
	}

	shadowed := make(map[string]struct{}, len(scoped))
	for _, entry := range scoped {
		shadowed[entry.OriginalText] = struct{}{}
	}

	merged := make([]*domain.Translation, 0, len(scoped)+len(global))
	merged = append(merged, scoped...)
	for _, entry := range global {
		if _, ok := shadowed[entry.OriginalText]; !ok {
			merged = append(merged, entry)
		}
	}
	return merged, nil
}

// ListGlobal implements TranslationService.ListGlobal
func (s *translationServiceImpl) ListGlobal(ctx context.Context) ([]*domain.Translation, error) {
	global, err := s.translations.FindGlobal(ctx)
	if err != nil {
		return nil, NewTranslationServiceError("list", "failed to load global translations", err)
	}
	return global, nil
}

// resolveTargetLanguage normalizes the requested target language, mapping
// a few regional spellings to their base code and defaulting to
// Portuguese, the reader's primary audience.
func resolveTargetLanguage(targetLanguage string) string {
	normalized := strings.ToLower(strings.TrimSpace(targetLanguage))
	if normalized == "" {
		return "pt"
	}

	switch normalized {
	case "pt-br", "pt_br", "ptbr", "portuguese", "portugues":
		return "pt"
	case "en-us", "en_us", "enus":
		return "en"
	case "es-es", "es_es", "eses":
		return "es"
	default:
		return normalized
	}
}

// Ensure translationServiceImpl implements TranslationService
var _ TranslationService = (*translationServiceImpl)(nil)
