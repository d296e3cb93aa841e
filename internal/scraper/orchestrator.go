package scraper

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"cardhub/internal/catalog"
	"cardhub/pkg/models"
)

// ErrRunInProgress is returned when a run is requested while another
// one is still going. Two simultaneous runs against the same storage
// are not supported.
var ErrRunInProgress = errors.New("a scrape run is already in progress")

// Store is the persistence surface the orchestrator needs. The catalog
// repository implements it.
type Store interface {
	UpsertBatch(ctx context.Context, entity models.EntityType, records []models.Record) (*catalog.BatchResult, error)
}

// Notifier receives run progress. It is optional; a nil Notifier
// disables publishing.
type Notifier interface {
	PublishRun(report *models.RunReport)
}

// Orchestrator drives a full scrape run: extractors execute in
// dependency order (factions before cards), each type's records are
// validated and upserted in one batch, and the per-type results are
// folded into a RunReport.
type Orchestrator struct {
	Extractors []Extractor
	Store      Store
	Notifier   Notifier
	RunTimeout time.Duration
	Log        *logrus.Entry

	mu      sync.Mutex
	running bool
	last    *models.RunReport
}

func NewOrchestrator(store Store, notifier Notifier, runTimeout time.Duration, log *logrus.Logger, extractors ...Extractor) *Orchestrator {
	return &Orchestrator{
		Extractors: extractors,
		Store:      store,
		Notifier:   notifier,
		RunTimeout: runTimeout,
		Log:        log.WithField("component", "orchestrator"),
	}
}

// LastReport returns a snapshot of the most recent run, finished or
// in progress, or nil if none has started.
func (o *Orchestrator) LastReport() *models.RunReport {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.last
}

// setLast stores an immutable snapshot for readers; the run keeps
// mutating its own working copy.
func (o *Orchestrator) setLast(report *models.RunReport) {
	o.mu.Lock()
	o.last = report
	o.mu.Unlock()
}

// Run executes one scrape run. With no types it covers every
// registered extractor; with types it runs just those, still in
// dependency order. Only one run may be active at a time; a second
// call while one is in flight returns ErrRunInProgress.
func (o *Orchestrator) Run(ctx context.Context, types ...models.EntityType) (*models.RunReport, error) {
	report, err := o.begin(types)
	if err != nil {
		return nil, err
	}
	o.execute(ctx, report)
	return report, nil
}

// StartAsync admits a run synchronously, so callers get the conflict
// answer right away, then executes it in the background.
func (o *Orchestrator) StartAsync(ctx context.Context, types ...models.EntityType) (*models.RunReport, error) {
	report, err := o.begin(types)
	if err != nil {
		return nil, err
	}
	snapshot := report.Clone()
	go o.execute(ctx, report)
	return snapshot, nil
}

func (o *Orchestrator) begin(types []models.EntityType) (*models.RunReport, error) {
	report := models.NewRunReport(uuid.NewString(), o.entityOrder(types))

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.running {
		return nil, ErrRunInProgress
	}
	o.running = true
	o.last = report.Clone()
	return report, nil
}

func (o *Orchestrator) execute(ctx context.Context, report *models.RunReport) {
	defer func() {
		o.mu.Lock()
		o.running = false
		o.mu.Unlock()
	}()

	if o.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.RunTimeout)
		defer cancel()
	}

	o.Log.WithField("run_id", report.RunID).Info("scrape run started")
	o.publish(report)

	for _, ext := range o.ordered() {
		if ctx.Err() != nil {
			break
		}
		if _, wanted := report.Types[ext.EntityType()]; !wanted {
			continue
		}
		o.runType(ctx, ext, report)
		o.setLast(report.Clone())
		o.publish(report)
	}

	report.FinishedAt = time.Now().UTC()
	report.State = finalState(ctx, report)
	o.setLast(report.Clone())
	o.publish(report)

	o.Log.WithFields(logrus.Fields{
		"run_id": report.RunID,
		"state":  report.State,
	}).Info("scrape run finished")
}

func (o *Orchestrator) runType(ctx context.Context, ext Extractor, report *models.RunReport) {
	entity := ext.EntityType()
	rep := report.Types[entity]

	// Cards cannot resolve their faction references when the faction
	// pass itself failed.
	if entity == models.EntityCard {
		if f, ok := report.Types[models.EntityFaction]; ok && f.State == models.StateFailed {
			rep.State = models.StateBlocked
			rep.Error = "faction extraction failed"
			return
		}
	}

	rep.State = models.StateRunning
	log := o.Log.WithField("entity", entity)
	log.Info("extraction started")

	extraction, err := ext.Extract(ctx)
	if err != nil {
		rep.State = models.StateFailed
		rep.Error = err.Error()
		log.WithError(err).Error("extraction failed")
		return
	}

	records, skipped := validateAll(extraction.Records)
	for _, re := range extraction.Skipped {
		skipped = append(skipped, re.Error())
	}

	res, err := o.Store.UpsertBatch(ctx, entity, records)
	if err != nil {
		rep.State = models.StateFailed
		rep.Error = err.Error()
		log.WithError(err).Error("persist failed")
		return
	}

	rep.Inserted = res.Inserted
	rep.Updated = res.Updated
	rep.Unchanged = res.Unchanged
	rep.Skipped = res.Skipped + len(skipped)
	for _, cause := range res.SkippedCauses {
		skipped = append(skipped, cause.Error())
	}
	rep.SkippedCauses = sampleCauses(skipped, 10)

	if rep.Skipped > 0 {
		rep.State = models.StatePartiallySucceeded
	} else {
		rep.State = models.StateSucceeded
	}

	log.WithFields(logrus.Fields{
		"inserted":  rep.Inserted,
		"updated":   rep.Updated,
		"unchanged": rep.Unchanged,
		"skipped":   rep.Skipped,
	}).Info("extraction finished")
}

// validateAll filters a batch down to records that pass validation,
// describing each rejected one.
func validateAll(records []models.Record) ([]models.Record, []string) {
	valid := make([]models.Record, 0, len(records))
	var causes []string
	for _, r := range records {
		if err := r.Validate(); err != nil {
			causes = append(causes, err.Error())
			continue
		}
		valid = append(valid, r)
	}
	return valid, causes
}

// ordered returns the extractors sorted into dependency order; any
// extractor for an unknown type runs last in registration order.
func (o *Orchestrator) ordered() []Extractor {
	byType := make(map[models.EntityType]Extractor, len(o.Extractors))
	for _, e := range o.Extractors {
		byType[e.EntityType()] = e
	}
	out := make([]Extractor, 0, len(o.Extractors))
	for _, t := range models.ScrapeOrder {
		if e, ok := byType[t]; ok {
			out = append(out, e)
			delete(byType, t)
		}
	}
	for _, e := range o.Extractors {
		if _, ok := byType[e.EntityType()]; ok {
			out = append(out, e)
			delete(byType, e.EntityType())
		}
	}
	return out
}

// entityOrder returns the run's entity types in dependency order,
// narrowed to the requested subset when one is given.
func (o *Orchestrator) entityOrder(requested []models.EntityType) []models.EntityType {
	wanted := make(map[models.EntityType]bool, len(requested))
	for _, t := range requested {
		wanted[t] = true
	}

	ordered := o.ordered()
	types := make([]models.EntityType, 0, len(ordered))
	for _, e := range ordered {
		if len(requested) > 0 && !wanted[e.EntityType()] {
			continue
		}
		types = append(types, e.EntityType())
	}
	return types
}

func (o *Orchestrator) publish(report *models.RunReport) {
	if o.Notifier != nil {
		o.Notifier.PublishRun(report.Clone())
	}
}

// finalState folds the per-type states into a run state. A run cut
// short by its wall-clock ceiling is partial, never silently truncated.
func finalState(ctx context.Context, report *models.RunReport) models.RunState {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return models.StatePartiallySucceeded
	}

	succeeded, degraded := 0, 0
	for _, t := range report.Types {
		switch t.State {
		case models.StateSucceeded:
			succeeded++
		case models.StatePartiallySucceeded:
			succeeded++
			degraded++
		case models.StateFailed, models.StateBlocked, models.StatePending:
			degraded++
		}
	}
	switch {
	case degraded == 0:
		return models.StateSucceeded
	case succeeded > 0:
		return models.StatePartiallySucceeded
	default:
		return models.StateFailed
	}
}

func sampleCauses(causes []string, max int) []string {
	if len(causes) <= max {
		return causes
	}
	return causes[:max]
}
