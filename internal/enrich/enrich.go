// Package enrich orchestrates AI enrichment of entries and the human review
// workflow for their category.
//
// Every generation follows the same sequence: resolve the entry, honor the
// guardrail (a populated field is left alone unless forced), build a prompt,
// call the model gateway under a timeout, sanitize the reply, and store it
// with provenance through a conditional write that only lands when the field
// is still empty (or the call is forced). Successful changes are pushed to
// the configured Invalidator so derived views stay current.
package enrich

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/pbaille/notebook/internal/classifier"
	"github.com/pbaille/notebook/internal/domain"
	"github.com/pbaille/notebook/internal/llm"
	"github.com/pbaille/notebook/internal/logging"
	"github.com/pbaille/notebook/internal/metrics"
	"github.com/pbaille/notebook/internal/store"
	"github.com/pbaille/notebook/internal/taxonomy"
)

// Derived field names used in logs and metrics.
const (
	FieldSummary  = "summary"
	FieldTags     = "tags"
	FieldCategory = "category"
)

// EmptySummary is stored when an entry has neither title nor content.
const EmptySummary = "No content to summarize."

// stubSummaryLen bounds the summary derived from the source when the model
// replies with blank text.
const stubSummaryLen = 240

// Gateway sends role-structured messages to a generative model.
type Gateway interface {
	Invoke(ctx context.Context, messages []llm.Message, mode llm.OutputMode) (string, error)
}

// Store is the record store used by the service.
type Store interface {
	GetEntry(ctx context.Context, id int64) (*domain.Entry, error)
	ApplySummary(ctx context.Context, id int64, text string, prov domain.Provenance, at time.Time, force bool) (bool, error)
	ApplyTags(ctx context.Context, id int64, tags []string, prov domain.Provenance, at time.Time, force bool) (bool, error)
	ApplyCategory(ctx context.Context, id int64, v store.CategoryValue, prov domain.Provenance, at time.Time, force bool) (bool, error)
	SetCategoryOverride(ctx context.Context, id int64, override taxonomy.Override, reason string, at time.Time) (bool, error)
	ClearCategoryOverride(ctx context.Context, id int64, at time.Time) (bool, error)
	MarkCategoryReviewed(ctx context.Context, id int64, at time.Time) (bool, error)
}

// Invalidator is told about every entry the service changes.
type Invalidator interface {
	EntryChanged(ctx context.Context, entry *domain.Entry) error
}

// FieldVersion is the provenance stamped on one derived field group.
type FieldVersion struct {
	SchemaVersion int
	PromptVersion string
}

// Config is fixed at construction and stamped into provenance.
type Config struct {
	Model       string
	Summary     FieldVersion
	Tags        FieldVersion
	Category    FieldVersion
	CallTimeout time.Duration
}

// DefaultConfig returns schema version 1 with the current prompt versions.
func DefaultConfig(model string) Config {
	return Config{
		Model:       model,
		Summary:     FieldVersion{SchemaVersion: 1, PromptVersion: classifier.SummaryPromptVersion},
		Tags:        FieldVersion{SchemaVersion: 1, PromptVersion: classifier.TagsPromptVersion},
		Category:    FieldVersion{SchemaVersion: 1, PromptVersion: classifier.CategoryPromptVersion},
		CallTimeout: 60 * time.Second,
	}
}

// Result is the outcome of a generation request. Generated is false when the
// guardrail kept the stored value; Entry is the current state either way.
type Result struct {
	Entry     *domain.Entry
	Generated bool
}

// Service runs enrichment and review operations.
type Service struct {
	store       Store
	gateway     Gateway
	cfg         Config
	logger      *slog.Logger
	invalidator Invalidator
	metrics     *metrics.Recorder
	now         func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithInvalidator registers the view to refresh after each change.
func WithInvalidator(inv Invalidator) Option {
	return func(s *Service) {
		s.invalidator = inv
	}
}

// WithMetrics records outcomes on r.
func WithMetrics(r *metrics.Recorder) Option {
	return func(s *Service) {
		s.metrics = r
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// New creates a Service.
func New(st Store, gateway Gateway, cfg Config, opts ...Option) *Service {
	s := &Service{
		store:   st,
		gateway: gateway,
		cfg:     cfg,
		logger:  logging.NewNop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = logging.NewComponentLogger(s.logger, "enrich")
	return s
}

// GenerateSummary writes a summary when the entry has none.
func (s *Service) GenerateSummary(ctx context.Context, id int64) (Result, error) {
	const op = "generate summary"
	log := s.opLogger(FieldSummary, id, false)

	entry, err := s.resolve(ctx, op, id)
	if err != nil {
		return Result{}, err
	}
	if entry.HasSummary() {
		return s.skip(log, FieldSummary, entry), nil
	}

	if blankSource(entry) {
		applied, err := s.store.ApplySummary(ctx, id, EmptySummary, s.fallbackProvenance(s.cfg.Summary), s.now(), false)
		if err != nil {
			return Result{}, fmt.Errorf("%s: %w", op, err)
		}
		return s.finish(ctx, log, op, FieldSummary, id, applied, metrics.OutcomeFallback)
	}

	text, err := s.invoke(ctx, log, op, FieldSummary, []llm.Message{
		llm.System(classifier.SummarySystem),
		llm.User(classifier.SummaryPrompt(entry.Title, entry.Content)),
	}, llm.FreeText)
	if err != nil {
		return Result{}, err
	}

	outcome := metrics.OutcomeGenerated
	prov := s.provenance(s.cfg.Summary)
	summary := strings.TrimSpace(text)
	if summary == "" {
		log.Warn("model returned blank summary, storing source excerpt")
		summary = stubSummary(entry)
		outcome = metrics.OutcomeFallback
		prov = s.fallbackProvenance(s.cfg.Summary)
	}

	applied, err := s.store.ApplySummary(ctx, id, summary, prov, s.now(), false)
	if err != nil {
		return Result{}, fmt.Errorf("%s: %w", op, err)
	}
	return s.finish(ctx, log, op, FieldSummary, id, applied, outcome)
}

// GenerateTags writes a sanitized tag list. With force, existing tags are
// replaced.
func (s *Service) GenerateTags(ctx context.Context, id int64, force bool) (Result, error) {
	const op = "generate tags"
	log := s.opLogger(FieldTags, id, force)

	entry, err := s.resolve(ctx, op, id)
	if err != nil {
		return Result{}, err
	}
	if entry.HasTags() && !force {
		return s.skip(log, FieldTags, entry), nil
	}

	if blankSource(entry) {
		applied, err := s.store.ApplyTags(ctx, id, []string{}, s.fallbackProvenance(s.cfg.Tags), s.now(), force)
		if err != nil {
			return Result{}, fmt.Errorf("%s: %w", op, err)
		}
		return s.finish(ctx, log, op, FieldTags, id, applied, metrics.OutcomeFallback)
	}

	text, err := s.invoke(ctx, log, op, FieldTags, []llm.Message{
		llm.System(classifier.JSONSystem),
		llm.User(classifier.TagsPrompt(entry.Title, entry.Content)),
	}, llm.JSON)
	if err != nil {
		return Result{}, err
	}
	payload, err := classifier.DecodeJSON(text)
	if err != nil {
		return Result{}, s.invalidOutput(log, op, FieldTags, err)
	}
	tags := classifier.TagsFromPayload(payload)
	log.Debug("sanitized tags", slog.Int("count", len(tags)))

	applied, err := s.store.ApplyTags(ctx, id, tags, s.provenance(s.cfg.Tags), s.now(), force)
	if err != nil {
		return Result{}, fmt.Errorf("%s: %w", op, err)
	}
	return s.finish(ctx, log, op, FieldTags, id, applied, metrics.OutcomeGenerated)
}

// GenerateCategory writes a sanitized AI category. Review state is not
// touched.
func (s *Service) GenerateCategory(ctx context.Context, id int64, force bool) (Result, error) {
	const op = "generate category"
	log := s.opLogger(FieldCategory, id, force)

	entry, err := s.resolve(ctx, op, id)
	if err != nil {
		return Result{}, err
	}
	if entry.HasCategory() && !force {
		return s.skip(log, FieldCategory, entry), nil
	}

	if blankSource(entry) {
		v := store.CategoryValue{Category: taxonomy.Fallback, Confidence: classifier.DefaultConfidence}
		applied, err := s.store.ApplyCategory(ctx, id, v, s.fallbackProvenance(s.cfg.Category), s.now(), force)
		if err != nil {
			return Result{}, fmt.Errorf("%s: %w", op, err)
		}
		return s.finish(ctx, log, op, FieldCategory, id, applied, metrics.OutcomeFallback)
	}

	text, err := s.invoke(ctx, log, op, FieldCategory, []llm.Message{
		llm.System(classifier.JSONSystem),
		llm.User(classifier.CategoryPrompt(entry.Title, entry.Content)),
	}, llm.JSON)
	if err != nil {
		return Result{}, err
	}
	payload, err := classifier.DecodeJSON(text)
	if err != nil {
		return Result{}, s.invalidOutput(log, op, FieldCategory, err)
	}
	c := classifier.SanitizeCategoryClassification(payload)
	log.Debug("sanitized category",
		slog.String("category", string(c.Category)),
		slog.Float64("confidence", c.Confidence),
	)

	v := store.CategoryValue{Category: c.Category, Confidence: c.Confidence, Rationale: c.Rationale}
	applied, err := s.store.ApplyCategory(ctx, id, v, s.provenance(s.cfg.Category), s.now(), force)
	if err != nil {
		return Result{}, fmt.Errorf("%s: %w", op, err)
	}
	return s.finish(ctx, log, op, FieldCategory, id, applied, metrics.OutcomeGenerated)
}

func (s *Service) opLogger(field string, id int64, force bool) *slog.Logger {
	return s.logger.With(
		slog.String(logging.FieldRequestID, uuid.NewString()),
		slog.Int64(logging.FieldEntryID, id),
		slog.String(logging.FieldField, field),
		slog.Bool("forced", force),
	)
}

// resolve validates id and loads the entry.
func (s *Service) resolve(ctx context.Context, op string, id int64) (*domain.Entry, error) {
	if id <= 0 {
		return nil, wrap(ErrInvalidID, op, fmt.Sprintf("id %d", id), nil)
	}
	entry, err := s.store.GetEntry(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if entry == nil {
		return nil, wrap(ErrNotFound, op, fmt.Sprintf("entry %d", id), nil)
	}
	return entry, nil
}

func (s *Service) skip(log *slog.Logger, field string, entry *domain.Entry) Result {
	log.Info("field already populated, skipping generation")
	s.metrics.Generation(field, metrics.OutcomeSkipped)
	return Result{Entry: entry}
}

func (s *Service) invoke(ctx context.Context, log *slog.Logger, op, field string, messages []llm.Message, mode llm.OutputMode) (string, error) {
	callCtx := ctx
	if s.cfg.CallTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, s.cfg.CallTimeout)
		defer cancel()
	}

	start := time.Now()
	text, err := s.gateway.Invoke(callCtx, messages, mode)
	elapsed := time.Since(start)
	s.metrics.ModelCall(field, elapsed)
	if err != nil {
		log.Warn("model call failed", logging.Error(err), slog.Duration("elapsed", elapsed))
		s.metrics.Generation(field, metrics.OutcomeModelError)
		return "", wrap(ErrModelCall, op, "", err)
	}
	log.Debug("model call completed", slog.Duration("elapsed", elapsed), slog.String("mode", mode.String()))
	return text, nil
}

func (s *Service) invalidOutput(log *slog.Logger, op, field string, err error) error {
	log.Warn("model output is not valid JSON", logging.Error(err))
	s.metrics.Generation(field, metrics.OutcomeInvalidOutput)
	return wrap(ErrModelOutputInvalid, op, "", err)
}

// finish reloads the entry after a conditional write. A write that did not
// apply lost the race to a concurrent generation; the stored value wins.
func (s *Service) finish(ctx context.Context, log *slog.Logger, op, field string, id int64, applied bool, outcome string) (Result, error) {
	entry, err := s.store.GetEntry(ctx, id)
	if err != nil {
		return Result{}, fmt.Errorf("%s: reload entry: %w", op, err)
	}
	if entry == nil {
		return Result{}, wrap(ErrNotFound, op, fmt.Sprintf("entry %d", id), nil)
	}
	if !applied {
		log.Info("field populated concurrently, keeping stored value")
		s.metrics.Generation(field, metrics.OutcomeRaceLost)
		return Result{Entry: entry}, nil
	}

	log.Info("field generated", slog.String("outcome", outcome))
	s.metrics.Generation(field, outcome)
	s.invalidate(ctx, log, entry)
	return Result{Entry: entry, Generated: true}, nil
}

func (s *Service) invalidate(ctx context.Context, log *slog.Logger, entry *domain.Entry) {
	if s.invalidator == nil {
		return
	}
	if err := s.invalidator.EntryChanged(ctx, entry); err != nil {
		log.Warn("view invalidation failed", logging.Error(err))
	}
}

func (s *Service) provenance(v FieldVersion) domain.Provenance {
	return domain.Provenance{
		Model:         s.cfg.Model,
		SchemaVersion: v.SchemaVersion,
		PromptVersion: v.PromptVersion,
	}
}

func (s *Service) fallbackProvenance(v FieldVersion) domain.Provenance {
	return domain.Provenance{Model: domain.ModelNone, SchemaVersion: v.SchemaVersion}
}

func blankSource(e *domain.Entry) bool {
	return strings.TrimSpace(e.Title) == "" && strings.TrimSpace(e.Content) == ""
}

// stubSummary is the leading excerpt of the content, or the title.
func stubSummary(e *domain.Entry) string {
	source := strings.TrimSpace(e.Content)
	if source == "" {
		source = strings.TrimSpace(e.Title)
	}
	if utf8.RuneCountInString(source) <= stubSummaryLen {
		return source
	}
	runes := []rune(source)
	return strings.TrimSpace(string(runes[:stubSummaryLen]))
}
