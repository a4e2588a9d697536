package service_test

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/klausbr/readium-api/internal/domain"
	"github.com/klausbr/readium-api/internal/service"
	"github.com/klausbr/readium-api/internal/store"
	"github.com/klausbr/readium-api/internal/translation"
)

// fakeGateway is a scripted translation.Gateway that counts calls.
type fakeGateway struct {
	mu     sync.Mutex
	result *translation.AutoResult
	err    error
	calls  int
}

func (g *fakeGateway) Translate(ctx context.Context, text, targetLang string) (*translation.AutoResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	if g.err != nil {
		return nil, g.err
	}
	return g.result, nil
}

func (g *fakeGateway) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

// fakeTranslationStore keeps vocabulary entries in memory with the same
// per-scope uniqueness the SQL store enforces.
type fakeTranslationStore struct {
	mu      sync.Mutex
	entries []*domain.Translation
	err     error
}

func (s *fakeTranslationStore) Upsert(ctx context.Context, entry *domain.Translation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	for i, existing := range s.entries {
		if sameScope(existing.BookID, entry.BookID) && existing.OriginalText == entry.OriginalText {
			s.entries[i] = entry
			return nil
		}
	}
	s.entries = append(s.entries, entry)
	return nil
}

func sameScope(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func (s *fakeTranslationStore) FindByBookID(ctx context.Context, bookID uuid.UUID) ([]*domain.Translation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	var scoped []*domain.Translation
	for _, entry := range s.entries {
		if entry.BookID != nil && *entry.BookID == bookID {
			scoped = append(scoped, entry)
		}
	}
	return scoped, nil
}

func (s *fakeTranslationStore) FindGlobal(ctx context.Context) ([]*domain.Translation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	var global []*domain.Translation
	for _, entry := range s.entries {
		if entry.BookID == nil {
			global = append(global, entry)
		}
	}
	return global, nil
}

func (s *fakeTranslationStore) DeleteByBookID(ctx context.Context, bookID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.entries[:0]
	for _, entry := range s.entries {
		if entry.BookID == nil || *entry.BookID != bookID {
			kept = append(kept, entry)
		}
	}
	s.entries = kept
	return nil
}

func (s *fakeTranslationStore) WithTx(tx *sql.Tx) store.TranslationStore {
	return s
}

var _ store.TranslationStore = (*fakeTranslationStore)(nil)

func newTranslationService(t *testing.T, translations store.TranslationStore, gateway translation.Gateway) service.TranslationService {
	t.Helper()
	svc, err := service.NewTranslationService(translations, gateway, service.TranslationConfig{
		CacheTTL:        time.Hour,
		CacheMaxEntries: 100,
		MinInterval:     time.Second,
	}, nil)
	require.NoError(t, err)
	return svc
}

func TestAutoTranslate(t *testing.T) {
	t.Parallel()

	t.Run("repeated requests are served from the cache", func(t *testing.T) {
		t.Parallel()

		gateway := &fakeGateway{result: &translation.AutoResult{TranslatedText: "ola", DetectedLanguage: "en"}}
		svc := newTranslationService(t, &fakeTranslationStore{}, gateway)

		first, err := svc.AutoTranslate(context.Background(), "hello", "pt")
		require.NoError(t, err)
		assert.Equal(t, "ola", first.TranslatedText)

		second, err := svc.AutoTranslate(context.Background(), "hello", "pt")
		require.NoError(t, err)
		assert.Equal(t, "ola", second.TranslatedText)

		assert.Equal(t, 1, gateway.callCount())
	})

	t.Run("whitespace and case variants share a cache entry", func(t *testing.T) {
		t.Parallel()

		gateway := &fakeGateway{result: &translation.AutoResult{TranslatedText: "ola mundo"}}
		svc := newTranslationService(t, &fakeTranslationStore{}, gateway)

		_, err := svc.AutoTranslate(context.Background(), "Hello   World", "pt")
		require.NoError(t, err)
		_, err = svc.AutoTranslate(context.Background(), "  hello world  ", "pt")
		require.NoError(t, err)

		assert.Equal(t, 1, gateway.callCount())
	})

	t.Run("empty target language defaults to portuguese", func(t *testing.T) {
		t.Parallel()

		gateway := &fakeGateway{result: &translation.AutoResult{TranslatedText: "ola"}}
		svc := newTranslationService(t, &fakeTranslationStore{}, gateway)

		_, err := svc.AutoTranslate(context.Background(), "hello", "")
		require.NoError(t, err)
		// Same entry as an explicit pt request.
		_, err = svc.AutoTranslate(context.Background(), "hello", "pt-BR")
		require.NoError(t, err)

		assert.Equal(t, 1, gateway.callCount())
	})

	t.Run("blank text is rejected", func(t *testing.T) {
		t.Parallel()

		gateway := &fakeGateway{result: &translation.AutoResult{TranslatedText: "x"}}
		svc := newTranslationService(t, &fakeTranslationStore{}, gateway)

		_, err := svc.AutoTranslate(context.Background(), "   ", "pt")
		assert.ErrorIs(t, err, domain.ErrInvalidArgument)
		assert.Zero(t, gateway.callCount())
	})

	t.Run("fast retry after a provider failure is rate limited", func(t *testing.T) {
		t.Parallel()

		gateway := &fakeGateway{err: errors.New("provider down")}
		svc := newTranslationService(t, &fakeTranslationStore{}, gateway)

		_, err := svc.AutoTranslate(context.Background(), "hello", "pt")
		require.Error(t, err)
		assert.Equal(t, 1, gateway.callCount())

		// Nothing was cached, so the immediate retry reaches the limiter.
		_, err = svc.AutoTranslate(context.Background(), "hello", "pt")
		assert.ErrorIs(t, err, service.ErrRateLimitExceeded)
		assert.Equal(t, 1, gateway.callCount())
	})
}

func TestSaveTranslation(t *testing.T) {
	t.Parallel()

	t.Run("persists a normalized entry", func(t *testing.T) {
		t.Parallel()

		translations := &fakeTranslationStore{}
		svc := newTranslationService(t, translations, &fakeGateway{})

		bookID := uuid.New()
		entry, err := svc.SaveTranslation(context.Background(), &bookID, "  Guten Tag ", "good day", "context")
		require.NoError(t, err)

		assert.Equal(t, "guten tag", entry.OriginalText)
		require.Len(t, translations.entries, 1)
	})

	t.Run("upsert replaces the entry for the same scope and text", func(t *testing.T) {
		t.Parallel()

		translations := &fakeTranslationStore{}
		svc := newTranslationService(t, translations, &fakeGateway{})

		_, err := svc.SaveTranslation(context.Background(), nil, "bonjour", "hello", "")
		require.NoError(t, err)
		_, err = svc.SaveTranslation(context.Background(), nil, "Bonjour", "hi there", "")
		require.NoError(t, err)

		require.Len(t, translations.entries, 1)
		assert.Equal(t, "hi there", translations.entries[0].TranslatedText)
	})

	t.Run("requires both texts", func(t *testing.T) {
		t.Parallel()

		svc := newTranslationService(t, &fakeTranslationStore{}, &fakeGateway{})

		_, err := svc.SaveTranslation(context.Background(), nil, "", "hello", "")
		assert.ErrorIs(t, err, domain.ErrInvalidArgument)

		_, err = svc.SaveTranslation(context.Background(), nil, "bonjour", "  ", "")
		assert.ErrorIs(t, err, domain.ErrInvalidArgument)
	})
}

func TestListForBook(t *testing.T) {
	t.Parallel()

	translations := &fakeTranslationStore{}
	svc := newTranslationService(t, translations, &fakeGateway{})

	bookID := uuid.New()
	_, err := svc.SaveTranslation(context.Background(), &bookID, "chat", "cat (scoped)", "")
	require.NoError(t, err)
	_, err = svc.SaveTranslation(context.Background(), nil, "chat", "cat (global)", "")
	require.NoError(t, err)
	_, err = svc.SaveTranslation(context.Background(), nil, "chien", "dog", "")
	require.NoError(t, err)

	merged, err := svc.ListForBook(context.Background(), bookID)
	require.NoError(t, err)
	require.Len(t, merged, 2)

	byText := make(map[string]string, len(merged))
	for _, entry := range merged {
		byText[entry.OriginalText] = entry.TranslatedText
	}
	assert.Equal(t, "cat (scoped)", byText["chat"], "scoped entry shadows the global one")
	assert.Equal(t, "dog", byText["chien"])

	global, err := svc.ListGlobal(context.Background())
	require.NoError(t, err)
	assert.Len(t, global, 2)
}
