// Package service provides business logic for the application.
package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/quickai/quickai/internal/document"
	"github.com/quickai/quickai/internal/identity"
	"github.com/quickai/quickai/internal/metrics"
	"github.com/quickai/quickai/internal/model"
	"github.com/quickai/quickai/internal/upstream"
)

// Completer generates text from a prompt.
type Completer interface {
	Complete(ctx context.Context, prompt string, maxTokens int) (string, error)
}

// ImageGenerator renders an image from a text prompt.
type ImageGenerator interface {
	Generate(ctx context.Context, prompt string) ([]byte, error)
}

// ImageEditor applies hosted transformations to an uploaded image and returns
// the resulting URL.
type ImageEditor interface {
	RemoveBackground(ctx context.Context, image io.Reader) (string, error)
	RemoveObject(ctx context.Context, image io.Reader, label string) (string, error)
}

// ObjectStore hosts generated image bytes.
type ObjectStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

// TextExtractor pulls plain text out of an uploaded document.
type TextExtractor interface {
	Extract(ctx context.Context, upload io.Reader) (string, error)
}

// Ledger records completed generations.
type Ledger interface {
	RecordCreation(ctx context.Context, c *model.Creation) error
}

// Entitlements reads and meters per-user plan state.
type Entitlements interface {
	Entitlement(ctx context.Context, userID string) (model.Entitlement, error)
	Consume(ctx context.Context, userID string) (int, error)
	Limit() int
}

// Deps are the collaborators of a Pipeline. Image and resume collaborators
// may be nil, in which case those operations fail as upstream errors.
type Deps struct {
	Completer    Completer
	Generator    ImageGenerator
	Editor       ImageEditor
	Store        ObjectStore
	Extractor    TextExtractor
	Ledger       Ledger
	Entitlements Entitlements
	Metrics      metrics.Recorder
	Logger       *slog.Logger
	Now          func() time.Time
}

// Pipeline runs every AI operation through the same gate, prepare, call,
// record, meter sequence.
type Pipeline struct {
	completer    Completer
	generator    ImageGenerator
	editor       ImageEditor
	store        ObjectStore
	extractor    TextExtractor
	ledger       Ledger
	entitlements Entitlements
	metrics      metrics.Recorder
	logger       *slog.Logger
	now          func() time.Time
}

// NewPipeline creates a Pipeline.
func NewPipeline(d Deps) *Pipeline {
	if d.Metrics == nil {
		d.Metrics = metrics.NewNoop()
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	return &Pipeline{
		completer:    d.Completer,
		generator:    d.Generator,
		editor:       d.Editor,
		store:        d.Store,
		extractor:    d.Extractor,
		ledger:       d.Ledger,
		entitlements: d.Entitlements,
		metrics:      d.Metrics,
		logger:       d.Logger,
		now:          d.Now,
	}
}

// persistTimeout bounds the ledger insert and the usage increment. Both run
// detached from the request deadline once the external call has succeeded.
const persistTimeout = 5 * time.Second

// Gate selects the entitlement check applied before any external call.
type Gate int

// Gates.
const (
	GateNone Gate = iota
	GateFreeQuota
	GatePremium
)

// run is the state threaded through the steps of one request.
type run struct {
	op     Operation
	userID string
	gate   Gate

	ent model.Entitlement

	// ledgerPrompt is persisted; callPrompt is sent upstream.
	ledgerPrompt string
	callPrompt   string
	maxTokens    int
	creation     model.CreationType
	publish      bool

	call    func(ctx context.Context, r *run) error
	content string

	// hosted is set when the external call left a resource behind.
	hosted      bool
	// failMessage replaces every post-gate failure message when set.
	failMessage string
}

type step func(ctx context.Context, r *run) *Failure

// runSteps executes steps in order and stops at the first failure.
func runSteps(ctx context.Context, r *run, steps ...step) *Failure {
	for _, s := range steps {
		if f := s(ctx, r); f != nil {
			return f
		}
	}
	return nil
}

// execute drives r through the full protocol and reports the outcome.
func (p *Pipeline) execute(ctx context.Context, r *run, prepare step) Result {
	start := p.now()

	steps := []step{p.gateStep}
	if prepare != nil {
		steps = append(steps, prepare)
	}
	steps = append(steps, p.callStep, p.recordStep, p.meterStep)

	f := runSteps(ctx, r, steps...)
	if f != nil {
		return p.finishFailure(r, f, start)
	}

	p.metrics.IncGeneration(string(r.op), metrics.OutcomeOK)
	p.logger.Info("generation completed",
		"user_id", r.userID,
		"operation", r.op,
		"duration_ms", p.now().Sub(start).Milliseconds(),
	)
	return Ok(r.content)
}

func (p *Pipeline) finishFailure(r *run, f *Failure, start time.Time) Result {
	if r.failMessage != "" && f.Kind != KindNoFileUploaded && f.Kind != KindUnsupportedFileType && f.Kind != KindInvalidInput {
		f.Message = r.failMessage
	}
	p.metrics.IncGeneration(string(r.op), string(f.Kind))

	attrs := []any{
		"user_id", r.userID,
		"operation", r.op,
		"kind", f.Kind,
		"duration_ms", p.now().Sub(start).Milliseconds(),
	}
	switch f.Kind {
	case KindQuotaExceeded, KindPlanRequired, KindNoFileUploaded, KindUnsupportedFileType, KindInvalidInput:
		p.logger.Info("generation rejected", attrs...)
	default:
		if f.Err != nil {
			attrs = append(attrs, "error", f.Err)
		}
		p.logger.Error("generation failed", attrs...)
	}
	return errResult(f)
}

func (p *Pipeline) gateStep(ctx context.Context, r *run) *Failure {
	if r.userID == "" {
		return fail(KindEntitlementUnavailable, MsgEntitlementUnavailable, identity.ErrUnknownUser)
	}
	if r.gate == GateNone {
		return nil
	}

	ent, err := p.entitlements.Entitlement(ctx, r.userID)
	if err != nil {
		return fail(KindEntitlementUnavailable, MsgEntitlementUnavailable, err)
	}
	r.ent = ent

	switch r.gate {
	case GatePremium:
		if !ent.IsPremium() {
			return fail(KindPlanRequired, MsgPlanRequired, nil)
		}
	case GateFreeQuota:
		if ent.QuotaExhausted(p.entitlements.Limit()) {
			return fail(KindQuotaExceeded, MsgQuotaExceeded, nil)
		}
	}
	return nil
}

func (p *Pipeline) callStep(ctx context.Context, r *run) *Failure {
	start := p.now()
	err := r.call(ctx, r)
	p.metrics.ObserveUpstreamDuration(string(r.op), p.now().Sub(start))
	if err != nil {
		return classify(err)
	}
	return nil
}

func (p *Pipeline) recordStep(ctx context.Context, r *run) *Failure {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()

	c := &model.Creation{
		ID:        ulid.Make().String(),
		UserID:    r.userID,
		Prompt:    r.ledgerPrompt,
		Content:   r.content,
		Type:      r.creation,
		Publish:   r.publish,
		CreatedAt: p.now().UTC(),
	}
	if err := p.ledger.RecordCreation(ctx, c); err != nil {
		if r.hosted {
			p.logger.Error("orphaned hosted image",
				"user_id", r.userID,
				"operation", r.op,
				"url", r.content,
			)
		}
		return fail(KindPersistenceError, MsgPersistenceError, err)
	}
	return nil
}

// meterStep counts free text generations. Losing the race to the limit is
// logged and the persisted content is still returned. Any other failure to
// increment is reported so unmetered generations are never handed out.
func (p *Pipeline) meterStep(ctx context.Context, r *run) *Failure {
	if r.gate != GateFreeQuota || r.ent.IsPremium() {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()

	n, err := p.entitlements.Consume(ctx, r.userID)
	if err != nil {
		if errors.Is(err, identity.ErrQuotaExhausted) {
			p.logger.Warn("free usage limit reached concurrently",
				"user_id", r.userID,
				"operation", r.op,
			)
			return nil
		}
		return fail(KindPersistenceError, MsgUsageNotRecorded, err)
	}
	p.metrics.IncFreeUsageConsumed()
	p.logger.Debug("free usage consumed", "user_id", r.userID, "free_usage", n)
	return nil
}

// classify maps a collaborator error onto a failure kind.
func classify(err error) *Failure {
	switch {
	case errors.Is(err, document.ErrUnsupportedFileType):
		return fail(KindUnsupportedFileType, MsgUnsupportedFileType, err)
	case errors.Is(err, document.ErrEmptyFile):
		return fail(KindNoFileUploaded, MsgNoFileUploaded, err)
	case errors.Is(err, document.ErrFileTooLarge):
		return fail(KindInvalidInput, "File is too large.", err)
	case errors.Is(err, document.ErrExtractionFailed):
		return fail(KindExtractionFailed, MsgExtractionFailed, err)
	case errors.Is(err, context.DeadlineExceeded):
		return fail(KindUpstreamError, MsgTimeout, err)
	case errors.Is(err, upstream.ErrUpstream):
		return fail(KindUpstreamError, upstream.MessageOf(err, MsgUpstreamDefault), err)
	default:
		return fail(KindUpstreamError, MsgUpstreamDefault, err)
	}
}
