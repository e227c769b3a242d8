package tts

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func TestSynthesizeWritesAudio(t *testing.T) {
	var gotBody speechRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "audio/wav")
		w.Write([]byte("RIFF fake audio bytes"))
	}))
	defer server.Close()

	dest := filepath.Join(t.TempDir(), "segment.wav")
	client := NewClient(Config{APIKey: "secret", BaseURL: server.URL, Model: "tts-1", Voice: "alloy"})
	if err := client.Synthesize(context.Background(), "ola mundo", dest); err != nil {
		t.Fatalf("Synthesize: %v", err)
	}

	data, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if string(data) != "RIFF fake audio bytes" {
		t.Errorf("output = %q", data)
	}
	if gotBody.Model != "tts-1" || gotBody.Voice != "alloy" || gotBody.Input != "ola mundo" {
		t.Errorf("request body = %+v", gotBody)
	}
	if gotBody.ResponseFormat != "wav" {
		t.Errorf("response format = %q, want wav", gotBody.ResponseFormat)
	}
}

func TestSynthesizeServerErrorLeavesNoFile(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "voice not found", http.StatusBadRequest)
	}))
	defer server.Close()

	dest := filepath.Join(t.TempDir(), "segment.wav")
	client := NewClient(Config{APIKey: "secret", BaseURL: server.URL, Model: "tts-1", Voice: "ghost"})
	if err := client.Synthesize(context.Background(), "hello", dest); err == nil {
		t.Fatal("expected error for 400 response")
	}
	if _, err := os.Stat(dest); !os.IsNotExist(err) {
		t.Errorf("output file should not exist, stat err = %v", err)
	}
}

func TestSynthesizeEmptyResponseRemovesFile(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	dest := filepath.Join(t.TempDir(), "segment.wav")
	client := NewClient(Config{APIKey: "secret", BaseURL: server.URL, Model: "tts-1", Voice: "alloy"})
	if err := client.Synthesize(context.Background(), "hello", dest); err == nil {
		t.Fatal("expected error for empty body")
	}
	if _, err := os.Stat(dest); !os.IsNotExist(err) {
		t.Errorf("empty output should be removed, stat err = %v", err)
	}
}

func TestSynthesizeRequiresText(t *testing.T) {
	client := NewClient(Config{APIKey: "secret", BaseURL: "http://localhost:9", Model: "tts-1", Voice: "alloy"})
	if err := client.Synthesize(context.Background(), "  ", "out.wav"); err == nil {
		t.Fatal("expected error for empty text")
	}
}
