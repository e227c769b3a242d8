// Package workflow coordinates queue processing across the pipeline stages.
// A single lane walks items through download, transcription, translation,
// synthesis, and muxing; each stage transitions its item from a durable
// status through a processing status to the next durable status.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"aivideodub/internal/config"
	"aivideodub/internal/download"
	"aivideodub/internal/logging"
	"aivideodub/internal/muxing"
	"aivideodub/internal/queue"
	"aivideodub/internal/services"
	"aivideodub/internal/stage"
	"aivideodub/internal/synthesis"
	"aivideodub/internal/transcription"
	"aivideodub/internal/translation"
)

type pipelineStage struct {
	name             string
	handler          stage.Handler
	startStatus      queue.Status
	processingStatus queue.Status
	doneStatus       queue.Status
}

// StageSet bundles the concrete handlers the manager orchestrates.
type StageSet struct {
	Downloader  stage.Handler
	Transcriber stage.Handler
	Translator  stage.Handler
	Synthesizer stage.Handler
	Muxer       stage.Handler
}

// Manager coordinates queue processing using the registered stages.
type Manager struct {
	cfg          *config.Config
	store        *queue.Store
	logger       *slog.Logger
	pollInterval time.Duration

	stages       []pipelineStage
	stageByStart map[queue.Status]pipelineStage
	statusOrder  []queue.Status

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	lastErr error
}

// NewManager constructs a workflow manager over the stock stage handlers.
func NewManager(cfg *config.Config, store *queue.Store, logger *slog.Logger) *Manager {
	return NewManagerWithStages(cfg, store, logger, StageSet{
		Downloader:  download.NewDownloader(cfg, store, logger),
		Transcriber: transcription.NewTranscriber(cfg, store, logger),
		Translator:  translation.NewTranslator(cfg, store, logger),
		Synthesizer: synthesis.NewSynthesizer(cfg, store, logger),
		Muxer:       muxing.NewMuxer(cfg, store, logger),
	})
}

// NewManagerWithStages allows injecting stage handlers (used in tests).
func NewManagerWithStages(cfg *config.Config, store *queue.Store, logger *slog.Logger, set StageSet) *Manager {
	m := &Manager{
		cfg:          cfg,
		store:        store,
		logger:       logging.NewComponentLogger(logger, "workflow"),
		pollInterval: time.Duration(cfg.Workflow.QueuePollInterval) * time.Second,
		stages: []pipelineStage{
			{"download", set.Downloader, queue.StatusPending, queue.StatusDownloading, queue.StatusDownloaded},
			{"transcription", set.Transcriber, queue.StatusDownloaded, queue.StatusTranscribing, queue.StatusTranscribed},
			{"translation", set.Translator, queue.StatusTranscribed, queue.StatusTranslating, queue.StatusTranslated},
			{"synthesis", set.Synthesizer, queue.StatusTranslated, queue.StatusSynthesizing, queue.StatusSynthesized},
			{"muxing", set.Muxer, queue.StatusSynthesized, queue.StatusMuxing, queue.StatusCompleted},
		},
	}
	m.stageByStart = make(map[queue.Status]pipelineStage, len(m.stages))
	m.statusOrder = make([]queue.Status, 0, len(m.stages))
	for _, stg := range m.stages {
		m.stageByStart[stg.startStatus] = stg
		m.statusOrder = append(m.statusOrder, stg.startStatus)
	}
	if m.pollInterval <= 0 {
		m.pollInterval = 5 * time.Second
	}
	return m
}

// Start begins background processing. Items left mid-stage by an unclean
// shutdown are rolled back to their last durable status first.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return errors.New("workflow already running")
	}
	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.running = true
	m.wg.Add(1)
	m.mu.Unlock()

	if reset, err := m.store.ResetStuckProcessing(runCtx); err != nil {
		m.logger.Warn("failed to reset stuck items", logging.Error(err))
	} else if reset > 0 {
		m.logger.Info("rolled back interrupted items", logging.Int64("count", reset))
	}

	go m.run(runCtx)
	return nil
}

// Stop terminates background processing and waits for completion.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	cancel := m.cancel
	m.running = false
	m.cancel = nil
	m.mu.Unlock()

	cancel()
	m.wg.Wait()
}

// LastError returns the most recent processing error, for status output.
func (m *Manager) LastError() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastErr
}

// Health reports readiness of every registered stage.
func (m *Manager) Health(ctx context.Context) []stage.Health {
	results := make([]stage.Health, 0, len(m.stages))
	for _, stg := range m.stages {
		if stg.handler == nil {
			results = append(results, stage.Unhealthy(stg.name, "handler not configured"))
			continue
		}
		results = append(results, stg.handler.HealthCheck(ctx))
	}
	return results
}

func (m *Manager) run(ctx context.Context) {
	defer m.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		processed, err := m.RunOnce(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			m.setLastError(err)
		}
		if !processed {
			select {
			case <-ctx.Done():
				return
			case <-time.After(m.pollInterval):
			}
		}
	}
}

// RunOnce picks up at most one ready item and drives it through its stage.
// It reports whether an item was processed.
func (m *Manager) RunOnce(ctx context.Context) (bool, error) {
	item, err := m.store.NextForStatuses(ctx, m.statusOrder...)
	if err != nil {
		return false, fmt.Errorf("fetch next item: %w", err)
	}
	if item == nil {
		return false, nil
	}
	return true, m.processItem(ctx, item)
}

func (m *Manager) processItem(ctx context.Context, item *queue.Item) error {
	stg, ok := m.stageByStart[item.Status]
	if !ok {
		m.logger.Warn("no stage configured for status", logging.String("status", string(item.Status)))
		return nil
	}
	if stg.handler == nil {
		return fmt.Errorf("stage %s has no handler", stg.name)
	}

	stageCtx := services.WithRequestID(
		services.WithStage(services.WithItemID(ctx, item.ID), stg.name),
		uuid.NewString(),
	)
	logger := logging.WithContext(stageCtx, m.logger)

	item.Status = stg.processingStatus
	item.ErrorMessage = ""
	if err := m.store.Update(stageCtx, item); err != nil {
		return fmt.Errorf("persist processing transition: %w", err)
	}

	start := time.Now()
	logger.Info("stage started",
		logging.String(logging.FieldEventType, "stage_start"),
		logging.String("title", item.DisplayTitle()),
	)

	if err := stg.handler.Prepare(stageCtx, item); err != nil {
		return m.failItem(stageCtx, logger, stg, item, err)
	}
	if err := m.store.Update(stageCtx, item); err != nil {
		return fmt.Errorf("persist stage preparation: %w", err)
	}

	if err := stg.handler.Execute(stageCtx, item); err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Debug("stage interrupted by shutdown")
			return err
		}
		return m.failItem(stageCtx, logger, stg, item, err)
	}

	item.Status = stg.doneStatus
	if err := m.store.Update(stageCtx, item); err != nil {
		return fmt.Errorf("persist stage result: %w", err)
	}
	logger.Info("stage completed",
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.String("next_status", string(item.Status)),
		logging.Duration("stage_duration", time.Since(start)),
	)
	return nil
}

// failItem records the stage failure on the item. Validation problems route
// to review for operator attention; everything else is marked failed and can
// be retried.
func (m *Manager) failItem(ctx context.Context, logger *slog.Logger, stg pipelineStage, item *queue.Item, stageErr error) error {
	item.Status = services.FailureStatus(stageErr)
	item.ErrorMessage = stageErr.Error()
	logger.Error("stage failed",
		logging.String(logging.FieldEventType, "stage_failed"),
		logging.String("failure_status", string(item.Status)),
		logging.Error(stageErr),
	)
	if err := m.store.Update(ctx, item); err != nil {
		logger.Error("failed to persist stage failure", logging.Error(err))
	}
	return stageErr
}

func (m *Manager) setLastError(err error) {
	m.mu.Lock()
	m.lastErr = err
	m.mu.Unlock()
}
