package narrator

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcliao/lorekeeper/internal/config"
)

func TestOllamaComplete(t *testing.T) {
	var got ollamaGenerateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/generate", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		json.NewEncoder(w).Encode(ollamaGenerateResponse{Response: "The door creaks.", Done: true})
	}))
	defer srv.Close()

	o := NewOllama(srv.URL, "llama3", time.Second)
	out, err := o.Complete(context.Background(), Request{System: "sys", Prompt: "open door", Temperature: 0.5, MaxTokens: 40})
	require.NoError(t, err)

	assert.Equal(t, "The door creaks.", out)
	assert.Equal(t, "llama3", got.Model)
	assert.Equal(t, "sys", got.System)
	assert.False(t, got.Stream)
	assert.Equal(t, 40, got.Options.NumPredict)
}

func TestOllamaErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := NewOllama(srv.URL, "nope", time.Second).Complete(context.Background(), Request{Prompt: "x"})
	assert.ErrorContains(t, err, "ollama error 404")
}

func TestOllamaAvailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"models":[{"name":"llama3:latest"},{"name":"mistral"}]}`))
	}))
	defer srv.Close()

	assert.True(t, NewOllama(srv.URL, "llama3", time.Second).Available(context.Background()))
	assert.True(t, NewOllama(srv.URL, "mistral", time.Second).Available(context.Background()))
	assert.False(t, NewOllama(srv.URL, "phi3", time.Second).Available(context.Background()))
}

func TestOllamaDefaultsFromEnv(t *testing.T) {
	t.Setenv("OLLAMA_HOST", "http://ollama.internal:11434")
	o := NewOllama("", "", 0)
	assert.Equal(t, "http://ollama.internal:11434", o.baseURL)
	assert.Equal(t, "llama3", o.Model())
}

func TestOpenAIComplete(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"c1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"A raven lands."},"finish_reason":"stop"}]}`))
	}))
	defer srv.Close()

	o := NewOpenAI(srv.URL+"/v1", "sk-test", "gpt-test")
	out, err := o.Complete(context.Background(), Request{System: "narrate", Prompt: "wait"})
	require.NoError(t, err)

	assert.Equal(t, "A raven lands.", out)
	assert.Equal(t, "gpt-test", body["model"])
	msgs := body["messages"].([]any)
	require.Len(t, msgs, 2)
	assert.Equal(t, "system", msgs[0].(map[string]any)["role"])
}

func TestOpenAINoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"c1","choices":[]}`))
	}))
	defer srv.Close()

	_, err := NewOpenAI(srv.URL+"/v1", "k", "m").Complete(context.Background(), Request{Prompt: "x"})
	assert.ErrorContains(t, err, "no choices")
}

func TestAnthropicComplete(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "sk-ant", r.Header.Get("X-Api-Key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"msg_1","type":"message","role":"assistant","model":"claude-test",
			"content":[{"type":"text","text":"Thunder rolls."}],
			"stop_reason":"end_turn","usage":{"input_tokens":3,"output_tokens":2}}`))
	}))
	defer srv.Close()

	a := NewAnthropic(srv.URL, "sk-ant", "claude-test", time.Second)
	out, err := a.Complete(context.Background(), Request{System: "narrate", Prompt: "listen", MaxTokens: 64})
	require.NoError(t, err)

	assert.Equal(t, "Thunder rolls.", out)
	assert.Equal(t, "claude-test", body["model"])
	assert.EqualValues(t, 64, body["max_tokens"])
}

func TestGuardTripsAfterConsecutiveFailures(t *testing.T) {
	sc := NewScripted("fine")
	sc.Fail(errors.New("boom"))
	g := NewGuard(sc, config.BreakerConfig{MaxFailures: 2, OpenTimeout: time.Minute}, config.RateConfig{})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := g.Complete(ctx, Request{Prompt: "x"})
		assert.ErrorContains(t, err, "boom")
	}
	assert.Equal(t, "open", g.State())
	assert.False(t, g.Available(ctx))

	sc.Fail(nil)
	_, err := g.Complete(ctx, Request{Prompt: "x"})
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.Len(t, sc.Calls(), 2, "open breaker does not reach the backend")
}

func TestGuardRecoversAfterTimeout(t *testing.T) {
	sc := NewScripted("fine")
	sc.Fail(errors.New("boom"))
	g := NewGuard(sc, config.BreakerConfig{MaxFailures: 1, OpenTimeout: 20 * time.Millisecond, HalfOpenSuccess: 1}, config.RateConfig{})
	ctx := context.Background()

	_, err := g.Complete(ctx, Request{Prompt: "x"})
	require.Error(t, err)
	require.Equal(t, "open", g.State())

	sc.Fail(nil)
	time.Sleep(40 * time.Millisecond)
	out, err := g.Complete(ctx, Request{Prompt: "x"})
	require.NoError(t, err)
	assert.Equal(t, "fine", out)
	assert.Equal(t, "closed", g.State())
}

func TestGuardRateLimitHonoursContext(t *testing.T) {
	g := NewGuard(NewScripted("ok"), config.BreakerConfig{}, config.RateConfig{PerSecond: 0.001, Burst: 1})

	_, err := g.Complete(context.Background(), Request{Prompt: "x"})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = g.Complete(ctx, Request{Prompt: "x"})
	assert.ErrorContains(t, err, "rate limit")
}

func TestNewFromConfig(t *testing.T) {
	for _, p := range Providers {
		g, err := NewFromConfig(config.LLMConfig{Provider: p, Model: "m"})
		require.NoError(t, err, p)
		assert.NotEmpty(t, g.Model())
	}

	_, err := NewFromConfig(config.LLMConfig{Provider: "telepathy"})
	assert.ErrorContains(t, err, "unknown llm provider")
}
