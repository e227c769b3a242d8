// Package translation rewrites the transcript into the target language.
package translation

import (
	"context"
	"log/slog"
	"strings"

	"aivideodub/internal/config"
	"aivideodub/internal/language"
	"aivideodub/internal/logging"
	"aivideodub/internal/queue"
	"aivideodub/internal/services"
	"aivideodub/internal/services/translate"
	"aivideodub/internal/stage"
)

// TextTranslator converts a transcript between two named languages.
type TextTranslator interface {
	Translate(ctx context.Context, transcript, sourceLanguage, targetLanguage string) (string, error)
}

// Translator is the stage handler producing the translated transcript.
type Translator struct {
	cfg    *config.Config
	store  *queue.Store
	logger *slog.Logger
	client TextTranslator
}

// NewTranslator constructs the translation stage with the stock API client.
func NewTranslator(cfg *config.Config, store *queue.Store, logger *slog.Logger) *Translator {
	client := translate.NewClient(translate.Config{
		APIKey:         cfg.Translate.APIKey,
		BaseURL:        cfg.Translate.BaseURL,
		Model:          cfg.Translate.Model,
		TimeoutSeconds: cfg.Translate.TimeoutSeconds,
	})
	return NewTranslatorWithClient(cfg, store, logger, client)
}

// NewTranslatorWithClient allows injecting the translation client (used in tests).
func NewTranslatorWithClient(cfg *config.Config, store *queue.Store, logger *slog.Logger, client TextTranslator) *Translator {
	return &Translator{
		cfg:    cfg,
		store:  store,
		logger: logging.NewComponentLogger(logger, "translation"),
		client: client,
	}
}

func (t *Translator) Prepare(ctx context.Context, item *queue.Item) error {
	item.InitProgress("Translating", "Preparing translation")
	item.ErrorMessage = ""
	return nil
}

func (t *Translator) Execute(ctx context.Context, item *queue.Item) error {
	logger := logging.WithContext(ctx, t.logger)
	transcript := strings.TrimSpace(item.Transcript)
	if transcript == "" {
		return services.Wrap(services.ErrValidation, "translating", "validate inputs",
			"queue item has no transcript; run transcription first", nil)
	}

	source := language.DisplayName(t.cfg.Dubbing.SourceLanguage)
	target := language.DisplayName(t.cfg.Dubbing.TargetLanguage)

	item.SetProgress(20, "Translating transcript")
	if err := t.store.UpdateProgress(ctx, item); err != nil {
		logger.Warn("failed to persist progress", logging.Error(err))
	}

	logger.Info("translating transcript",
		logging.String("source_language", source),
		logging.String("target_language", target),
		logging.Int("transcript_chars", len(transcript)),
	)
	translated, err := t.client.Translate(ctx, transcript, source, target)
	if err != nil {
		return services.Wrap(services.ErrExternalTool, "translating", "translate transcript", "", err)
	}

	item.TranslatedText = translated
	item.SetProgress(100, "Translation complete")
	logger.Info("translation complete", logging.Int("translated_chars", len(translated)))
	return nil
}

func (t *Translator) HealthCheck(ctx context.Context) stage.Health {
	const name = "translation"
	if strings.TrimSpace(t.cfg.Translate.APIKey) == "" {
		return stage.Unhealthy(name, "translation API key missing")
	}
	if !language.Supported(t.cfg.Dubbing.TargetLanguage) {
		return stage.Unhealthy(name, "target language not supported")
	}
	return stage.Healthy(name)
}
