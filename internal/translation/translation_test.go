package translation

import (
	"context"
	"errors"
	"testing"

	"aivideodub/internal/queue"
	"aivideodub/internal/services"
	"aivideodub/internal/testsupport"
)

type fakeTranslator struct {
	out       string
	err       error
	gotSource string
	gotTarget string
}

func (f *fakeTranslator) Translate(ctx context.Context, transcript, sourceLanguage, targetLanguage string) (string, error) {
	f.gotSource = sourceLanguage
	f.gotTarget = targetLanguage
	if f.err != nil {
		return "", f.err
	}
	return f.out, nil
}

func TestExecuteTranslates(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.NewStore(t, cfg)

	client := &fakeTranslator{out: "ola a todos"}
	handler := NewTranslatorWithClient(cfg, store, nil, client)

	item, err := store.NewURL(context.Background(), "https://example.com/v")
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	item.Transcript = "hello everyone"

	if err := handler.Prepare(context.Background(), item); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if err := handler.Execute(context.Background(), item); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if item.TranslatedText != "ola a todos" {
		t.Errorf("translated text = %q", item.TranslatedText)
	}
	if client.gotSource != "English" || client.gotTarget != "Portuguese" {
		t.Errorf("languages = %q -> %q", client.gotSource, client.gotTarget)
	}
}

func TestExecuteRequiresTranscript(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.NewStore(t, cfg)

	handler := NewTranslatorWithClient(cfg, store, nil, &fakeTranslator{})
	err := handler.Execute(context.Background(), &queue.Item{ID: 3})
	if !errors.Is(err, services.ErrValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestExecuteWrapsClientFailure(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.NewStore(t, cfg)

	handler := NewTranslatorWithClient(cfg, store, nil, &fakeTranslator{err: errors.New("quota exceeded")})
	item := &queue.Item{ID: 3, Transcript: "hello"}
	err := handler.Execute(context.Background(), item)
	if !errors.Is(err, services.ErrExternalTool) {
		t.Errorf("expected external tool error, got %v", err)
	}
}

func TestHealthCheck(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.NewStore(t, cfg)
	handler := NewTranslatorWithClient(cfg, store, nil, &fakeTranslator{})

	if health := handler.HealthCheck(context.Background()); !health.Ready {
		t.Errorf("expected healthy, got %+v", health)
	}

	cfg.Translate.APIKey = ""
	if health := handler.HealthCheck(context.Background()); health.Ready {
		t.Error("missing api key should be unhealthy")
	}
}
