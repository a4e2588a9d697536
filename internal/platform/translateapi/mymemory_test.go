package translateapi_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/klausbr/readium-api/internal/platform/translateapi"
	"github.com/klausbr/readium-api/internal/translation"
)

// myMemoryCall is one recorded request to the fake provider.
type myMemoryCall struct {
	q        string
	langpair string
}

// fakeMyMemory serves canned responses in order and records the calls.
func fakeMyMemory(t *testing.T, responses []string) (*httptest.Server, *[]myMemoryCall) {
	t.Helper()

	var calls []myMemoryCall
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls = append(calls, myMemoryCall{
			q:        r.URL.Query().Get("q"),
			langpair: r.URL.Query().Get("langpair"),
		})
		idx := len(calls) - 1
		require.Less(t, idx, len(responses), "unexpected extra provider call")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(responses[idx]))
	}))
	t.Cleanup(server.Close)
	return server, &calls
}

func myMemoryBody(t *testing.T, status any, details, translated string) string {
	t.Helper()
	body, err := json.Marshal(map[string]any{
		"responseStatus":  status,
		"responseDetails": details,
		"responseData":    map[string]any{"translatedText": translated},
	})
	require.NoError(t, err)
	return string(body)
}

func TestMyMemoryTranslate(t *testing.T) {
	t.Parallel()

	t.Run("happy path uses auto source", func(t *testing.T) {
		t.Parallel()

		server, calls := fakeMyMemory(t, []string{
			myMemoryBody(t, 200, "", "ola"),
		})
		gateway := translateapi.NewMyMemoryGateway(server.URL, time.Second, nil)

		result, err := gateway.Translate(context.Background(), "hello", "pt")
		require.NoError(t, err)

		assert.Equal(t, "ola", result.TranslatedText)
		assert.Equal(t, "auto", result.DetectedLanguage)
		require.Len(t, *calls, 1)
		assert.Equal(t, "auto|pt", (*calls)[0].langpair)
	})

	t.Run("falls back to english source when auto is rejected", func(t *testing.T) {
		t.Parallel()

		server, calls := fakeMyMemory(t, []string{
			myMemoryBody(t, 403, "INVALID SOURCE LANGUAGE auto", ""),
			myMemoryBody(t, 200, "", "ola"),
		})
		gateway := translateapi.NewMyMemoryGateway(server.URL, time.Second, nil)

		result, err := gateway.Translate(context.Background(), "hello", "pt")
		require.NoError(t, err)

		assert.Equal(t, "ola", result.TranslatedText)
		require.Len(t, *calls, 2)
		assert.Equal(t, "auto|pt", (*calls)[0].langpair)
		assert.Equal(t, "en|pt", (*calls)[1].langpair)
	})

	t.Run("retries shouty input with explicit source then lowercased text", func(t *testing.T) {
		t.Parallel()

		// The provider echoes the all-caps input back twice before the
		// lowercased retry finally translates.
		server, calls := fakeMyMemory(t, []string{
			myMemoryBody(t, 200, "", "HELLO WORLD"),
			myMemoryBody(t, 200, "", "hello world"),
			myMemoryBody(t, 200, "", "ola mundo"),
		})
		gateway := translateapi.NewMyMemoryGateway(server.URL, time.Second, nil)

		result, err := gateway.Translate(context.Background(), "HELLO WORLD", "pt")
		require.NoError(t, err)

		assert.Equal(t, "ola mundo", result.TranslatedText)
		require.Len(t, *calls, 3)
		assert.Equal(t, "auto|pt", (*calls)[0].langpair)
		assert.Equal(t, "en|pt", (*calls)[1].langpair)
		assert.Equal(t, "en|pt", (*calls)[2].langpair)
		assert.Equal(t, "hello world", (*calls)[2].q)
	})

	t.Run("mixed case echo is accepted as-is", func(t *testing.T) {
		t.Parallel()

		server, calls := fakeMyMemory(t, []string{
			myMemoryBody(t, 200, "", "Antidisestablishmentarianism"),
		})
		gateway := translateapi.NewMyMemoryGateway(server.URL, time.Second, nil)

		result, err := gateway.Translate(context.Background(), "Antidisestablishmentarianism", "pt")
		require.NoError(t, err)
		assert.Len(t, *calls, 1)
		assert.Equal(t, "Antidisestablishmentarianism", result.TranslatedText)
	})

	t.Run("string status codes are handled", func(t *testing.T) {
		t.Parallel()

		server, _ := fakeMyMemory(t, []string{
			myMemoryBody(t, "200", "", "ola"),
		})
		gateway := translateapi.NewMyMemoryGateway(server.URL, time.Second, nil)

		result, err := gateway.Translate(context.Background(), "hello", "pt")
		require.NoError(t, err)
		assert.Equal(t, "ola", result.TranslatedText)
	})

	t.Run("provider error status maps to external service error", func(t *testing.T) {
		t.Parallel()

		server, _ := fakeMyMemory(t, []string{
			myMemoryBody(t, 429, "TOO MANY REQUESTS", ""),
		})
		gateway := translateapi.NewMyMemoryGateway(server.URL, time.Second, nil)

		_, err := gateway.Translate(context.Background(), "hello", "pt")
		assert.ErrorIs(t, err, translation.ErrExternalService)
	})

	t.Run("empty translation is an error", func(t *testing.T) {
		t.Parallel()

		server, _ := fakeMyMemory(t, []string{
			myMemoryBody(t, 200, "", "   "),
		})
		gateway := translateapi.NewMyMemoryGateway(server.URL, time.Second, nil)

		_, err := gateway.Translate(context.Background(), "hello", "pt")
		assert.ErrorIs(t, err, translation.ErrExternalService)
	})

	t.Run("transport failure maps to external service error", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		t.Cleanup(server.Close)

		gateway := translateapi.NewMyMemoryGateway(server.URL, time.Second, nil)
		_, err := gateway.Translate(context.Background(), "hello", "pt")
		assert.ErrorIs(t, err, translation.ErrExternalService)
	})
}

func TestLibreTranslate(t *testing.T) {
	t.Parallel()

	t.Run("posts auto-detect request and returns detection", func(t *testing.T) {
		t.Parallel()

		var got map[string]any
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"translatedText":"ola","detectedLanguage":{"language":"en"}}`))
		}))
		t.Cleanup(server.Close)

		gateway := translateapi.NewLibreTranslateGateway(server.URL, "secret", time.Second, nil)
		result, err := gateway.Translate(context.Background(), "hello", "pt")
		require.NoError(t, err)

		assert.Equal(t, "ola", result.TranslatedText)
		assert.Equal(t, "en", result.DetectedLanguage)
		assert.Equal(t, "hello", got["q"])
		assert.Equal(t, "auto", got["source"])
		assert.Equal(t, "pt", got["target"])
		assert.Equal(t, "text", got["format"])
		assert.Equal(t, "secret", got["api_key"])
	})

	t.Run("missing detection falls back to unknown", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"translatedText":"ola"}`))
		}))
		t.Cleanup(server.Close)

		gateway := translateapi.NewLibreTranslateGateway(server.URL, "", time.Second, nil)
		result, err := gateway.Translate(context.Background(), "hello", "pt")
		require.NoError(t, err)
		assert.Equal(t, "unknown", result.DetectedLanguage)
	})

	t.Run("empty translation is an error", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"translatedText":""}`))
		}))
		t.Cleanup(server.Close)

		gateway := translateapi.NewLibreTranslateGateway(server.URL, "", time.Second, nil)
		_, err := gateway.Translate(context.Background(), "hello", "pt")
		assert.ErrorIs(t, err, translation.ErrExternalService)
	})
}
