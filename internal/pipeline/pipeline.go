// Package pipeline drives conversations through the ingest and enrich stages,
// owning status transitions, error classification, and the audit trail. Each
// public operation is idempotent: repeating a call that already succeeded is
// a no-op, and repeating a failed call retries the stage.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"convocoach/internal/analysis"
	"convocoach/internal/audit"
	"convocoach/internal/catalog"
	"convocoach/internal/enrichment"
	"convocoach/internal/flags"
	"convocoach/internal/logging"
	"convocoach/internal/match"
	"convocoach/internal/objectstore"
	"convocoach/internal/registry"
	"convocoach/internal/services"
)

const (
	stageIngest = "ingest"
	stageEnrich = "enrich"
	stageCoach  = "coach"
)

// Deps collects the collaborators a Pipeline needs.
type Deps struct {
	Registry   *registry.Store
	Enrichment *enrichment.Store
	Artifacts  objectstore.Reader
	Provider   analysis.Provider
	Catalog    *catalog.Catalog
	Audit      audit.Sink
	Logger     *slog.Logger
}

// Pipeline orchestrates the conversation lifecycle.
type Pipeline struct {
	registry   *registry.Store
	enrichment *enrichment.Store
	artifacts  objectstore.Reader
	provider   analysis.Provider
	catalog    *catalog.Catalog
	audit      audit.Sink
	logger     *slog.Logger
}

// New validates the dependency set and builds a Pipeline.
func New(deps Deps) (*Pipeline, error) {
	switch {
	case deps.Registry == nil:
		return nil, errors.New("pipeline: registry store is required")
	case deps.Enrichment == nil:
		return nil, errors.New("pipeline: enrichment store is required")
	case deps.Artifacts == nil:
		return nil, errors.New("pipeline: artifact reader is required")
	case deps.Catalog == nil:
		return nil, errors.New("pipeline: catalog is required")
	case deps.Audit == nil:
		return nil, errors.New("pipeline: audit sink is required")
	}
	provider := deps.Provider
	if provider == nil {
		provider = analysis.Noop{}
	}
	logger := deps.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Pipeline{
		registry:   deps.Registry,
		enrichment: deps.Enrichment,
		artifacts:  deps.Artifacts,
		provider:   provider,
		catalog:    deps.Catalog,
		audit:      deps.Audit,
		logger:     logging.NewComponentLogger(logger, "pipeline"),
	}, nil
}

// Ingest registers the conversation if needed, loads and validates its
// artifacts, and advances it to INGESTED. A conversation already at or past
// INGESTED is left untouched. After a completed call the conversation is
// never left in NEW: it is either INGESTED or FAILED_INGEST.
func (p *Pipeline) Ingest(ctx context.Context, conversationID, sourceURI string) (*registry.ConversationRecord, error) {
	ctx = p.stageContext(ctx, conversationID, stageIngest)
	logger := logging.WithContext(ctx, p.logger)

	record, err := p.registry.Register(ctx, conversationID, sourceURI)
	if err != nil {
		return nil, services.Wrap(services.ErrStorage, stageIngest, "register", conversationID, err)
	}

	if record.Status.AtLeast(registry.StatusIngested) {
		logger.InfoContext(ctx, "ingest already complete",
			logging.String("status", string(record.Status)))
		return record, nil
	}
	if record.Status == registry.StatusFailedIngest {
		return nil, services.Wrap(services.ErrPrecondition, stageIngest, "status-check",
			"conversation is FAILED_INGEST, reset it before retrying", nil)
	}

	transcript, _, err := p.artifacts.ReadConversationArtifacts(ctx, record.SourceURI)
	if err == nil && transcript.ConversationID != conversationID {
		err = services.Wrap(services.ErrValidation, stageIngest, "cross-check",
			"artifacts belong to conversation "+transcript.ConversationID, nil)
	}
	if err != nil {
		if ctxErr := contextError(ctx, err); ctxErr != nil {
			return nil, ctxErr
		}
		p.markFailed(ctx, record, registry.StatusFailedIngest, err)
		return nil, err
	}

	record.MarkIngested(time.Now())
	if err := p.registry.Upsert(ctx, record); err != nil {
		return nil, services.Wrap(services.ErrStorage, stageIngest, "commit", conversationID, err)
	}

	logger.InfoContext(ctx, "conversation ingested",
		logging.Int("turns", len(transcript.Turns)))
	return record, nil
}

// Enrich runs the phrase match engine, flag derivation, and the analysis
// provider for an ingested conversation, committing the results and an audit
// entry. Re-running from ENRICHED replaces the stored enrichment wholesale.
// A COACHED conversation is left untouched and its stored enrichment is
// returned as-is.
func (p *Pipeline) Enrich(ctx context.Context, conversationID string) (*enrichment.Record, error) {
	ctx = p.stageContext(ctx, conversationID, stageEnrich)
	logger := logging.WithContext(ctx, p.logger)

	record, found, err := p.registry.Get(ctx, conversationID)
	if err != nil {
		return nil, services.Wrap(services.ErrStorage, stageEnrich, "lookup", conversationID, err)
	}
	if !found {
		return nil, services.Wrap(services.ErrPrecondition, stageEnrich, "lookup",
			"conversation is not registered", nil)
	}

	switch record.Status {
	case registry.StatusIngested, registry.StatusEnriched:
	case registry.StatusCoached:
		stored, ok, err := p.enrichment.Get(ctx, conversationID)
		if err != nil {
			return nil, services.Wrap(services.ErrStorage, stageEnrich, "lookup", conversationID, err)
		}
		if !ok {
			return nil, services.Wrap(services.ErrPrecondition, stageEnrich, "lookup",
				"conversation is COACHED but has no stored enrichment", nil)
		}
		logger.InfoContext(ctx, "enrich skipped for coached conversation")
		return stored, nil
	default:
		return nil, services.Wrap(services.ErrPrecondition, stageEnrich, "status-check",
			"conversation is "+string(record.Status)+", expected INGESTED or ENRICHED", nil)
	}

	transcript, metadata, err := p.artifacts.ReadConversationArtifacts(ctx, record.SourceURI)
	if err != nil {
		if ctxErr := contextError(ctx, err); ctxErr != nil {
			return nil, ctxErr
		}
		p.markFailed(ctx, record, registry.StatusFailedEnrich, err)
		return nil, err
	}

	summary, err := p.provider.Analyze(ctx, transcript, metadata)
	if err != nil {
		if ctxErr := contextError(ctx, err); ctxErr != nil {
			return nil, ctxErr
		}
		p.markFailed(ctx, record, registry.StatusFailedEnrich, err)
		return nil, err
	}

	records := match.Match(transcript, p.catalog)
	results := match.GroupByMatcher(p.catalog, records)
	flagSet := flags.Derive(results)

	correlationID, _ := services.RequestIDFromContext(ctx)
	entry := &audit.Entry{
		ConversationID: conversationID,
		CatalogVersion: p.catalog.Version(),
		CorrelationID:  correlationID,
		MatchCount:     len(records),
		Matches:        records,
		Flags:          flagSet,
	}
	if err := p.audit.Append(entry); err != nil {
		wrapped := services.Wrap(services.ErrStorage, stageEnrich, "audit", conversationID, err)
		p.markFailed(ctx, record, registry.StatusFailedEnrich, wrapped)
		return nil, wrapped
	}

	enriched := &enrichment.Record{
		ConversationID:    conversationID,
		CatalogVersion:    p.catalog.Version(),
		PhraseMatches:     results,
		Flags:             flagSet,
		AnnotationSummary: summary.Text,
		TurnCount:         len(transcript.Turns),
		ProcessedAt:       time.Now().UTC(),
	}
	if err := p.enrichment.Upsert(ctx, enriched); err != nil {
		wrapped := services.Wrap(services.ErrStorage, stageEnrich, "commit", conversationID, err)
		p.markFailed(ctx, record, registry.StatusFailedEnrich, wrapped)
		return nil, wrapped
	}

	record.MarkEnriched(time.Now())
	if err := p.registry.Upsert(ctx, record); err != nil {
		return nil, services.Wrap(services.ErrStorage, stageEnrich, "commit-status", conversationID, err)
	}

	logger.InfoContext(ctx, "conversation enriched",
		logging.Int("matches", len(records)),
		logging.Int("flags", len(flagSet)),
		logging.String("catalog_version", p.catalog.Version()))
	return enriched, nil
}

// Process runs Ingest followed by Enrich. Steps that already completed are
// skipped, so reprocessing a finished conversation is harmless.
func (p *Pipeline) Process(ctx context.Context, conversationID, sourceURI string) (*enrichment.Record, error) {
	if _, err := p.Ingest(ctx, conversationID, sourceURI); err != nil {
		return nil, err
	}
	return p.Enrich(ctx, conversationID)
}

// Reset moves a failed conversation back to the last good status so the
// failed stage can be retried.
func (p *Pipeline) Reset(ctx context.Context, conversationID string) (*registry.ConversationRecord, error) {
	ctx = p.stageContext(ctx, conversationID, "reset")
	logger := logging.WithContext(ctx, p.logger)

	record, found, err := p.registry.Get(ctx, conversationID)
	if err != nil {
		return nil, services.Wrap(services.ErrStorage, "reset", "lookup", conversationID, err)
	}
	if !found {
		return nil, services.Wrap(services.ErrPrecondition, "reset", "lookup",
			"conversation is not registered", nil)
	}

	target, ok := record.Status.ResetTarget()
	if !ok {
		return nil, services.Wrap(services.ErrPrecondition, "reset", "status-check",
			"conversation is "+string(record.Status)+", only failed conversations can be reset", nil)
	}

	previous := record.Status
	record.Status = target
	record.ErrorDetail = ""
	if err := p.registry.Upsert(ctx, record); err != nil {
		return nil, services.Wrap(services.ErrStorage, "reset", "commit", conversationID, err)
	}

	logger.InfoContext(ctx, "conversation reset",
		logging.String("from", string(previous)),
		logging.String("to", string(target)))
	return record, nil
}

// MarkCoached records that coaching material was delivered for an enriched
// conversation, moving it to the terminal COACHED status.
func (p *Pipeline) MarkCoached(ctx context.Context, conversationID string) (*registry.ConversationRecord, error) {
	ctx = p.stageContext(ctx, conversationID, stageCoach)
	logger := logging.WithContext(ctx, p.logger)

	record, found, err := p.registry.Get(ctx, conversationID)
	if err != nil {
		return nil, services.Wrap(services.ErrStorage, stageCoach, "lookup", conversationID, err)
	}
	if !found {
		return nil, services.Wrap(services.ErrPrecondition, stageCoach, "lookup",
			"conversation is not registered", nil)
	}
	if record.Status == registry.StatusCoached {
		return record, nil
	}
	if record.Status != registry.StatusEnriched {
		return nil, services.Wrap(services.ErrPrecondition, stageCoach, "status-check",
			"conversation is "+string(record.Status)+", expected ENRICHED", nil)
	}

	record.MarkCoached(time.Now())
	if err := p.registry.Upsert(ctx, record); err != nil {
		return nil, services.Wrap(services.ErrStorage, stageCoach, "commit", conversationID, err)
	}

	logger.InfoContext(ctx, "conversation coached")
	return record, nil
}

// stageContext stamps the context with the conversation, stage, and a
// correlation id when the caller did not provide one.
func (p *Pipeline) stageContext(ctx context.Context, conversationID, stage string) context.Context {
	ctx = services.WithConversationID(ctx, conversationID)
	ctx = services.WithStage(ctx, stage)
	if _, ok := services.RequestIDFromContext(ctx); !ok {
		ctx = services.WithRequestID(ctx, uuid.NewString())
	}
	return ctx
}

// markFailed persists the failure status and detail. The original error wins
// even when the status write itself fails; that write failure is only logged.
func (p *Pipeline) markFailed(ctx context.Context, record *registry.ConversationRecord, status registry.Status, cause error) {
	record.MarkFailed(status, cause.Error())
	if err := p.registry.Upsert(ctx, record); err != nil {
		logging.WithContext(ctx, p.logger).ErrorContext(ctx, "failed to persist failure status",
			logging.String("target_status", string(status)),
			logging.Error(err))
		return
	}
	logging.WithContext(ctx, p.logger).WarnContext(ctx, "stage failed",
		logging.String("status", string(status)),
		logging.String("error_kind", services.Kind(cause)),
		logging.Bool("retryable", services.IsRetryable(cause)),
		logging.Error(cause))
}

// contextError reports whether err is the caller abandoning the run. A
// provider HTTP timeout also matches context.DeadlineExceeded, so the check
// requires the caller's context to actually be done; stage errors while the
// context is live are classified and persisted by the caller.
func contextError(ctx context.Context, err error) error {
	if ctx.Err() == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return nil
}
