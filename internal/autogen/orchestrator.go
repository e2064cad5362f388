// Package autogen sweeps the whole catalog unattended, generating every
// missing image one at a time and waiting out rate limits.
package autogen

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/promptmarket/gallery/internal/models"
)

// Status line prefixes published while a sweep runs
const (
	StatusStarting    = "Starting..."
	StatusGenerating  = "Generating..."
	StatusCooldown    = "✅ Cooldown"
	StatusRetrying    = "⚠️ Retrying"
	StatusRateLimited = "⛔ QUOTA HIT - Sleeping"
	StatusErrorPrefix = "❌ Error: "

	// CompletionNotice is published when a full sweep generated nothing
	CompletionNotice = "Gallery check complete! All items checked."

	errorDisplayLength = 10
)

var ErrAlreadyRunning = errors.New("auto-generation already running")

// Generator produces an image for a catalog item. An empty payload with a
// nil error is a soft failure.
type Generator interface {
	GenerateItem(ctx context.Context, item models.CatalogItem) (string, error)
}

// ImageStore is the persistent image collection
type ImageStore interface {
	HasImage(ctx context.Context, id string) bool
	PutImage(ctx context.Context, id, payload string) error
}

// Catalog supplies the items to sweep and receives generated thumbnails
type Catalog interface {
	Snapshot() []models.CatalogItem
	UpdateItemByID(id string, fn func(*models.CatalogItem)) bool
}

// Summary describes a finished sweep
type Summary struct {
	RunID     string `json:"run_id"`
	Total     int    `json:"total"`
	Skipped   int    `json:"skipped"`
	Generated int    `json:"generated"`
	Completed bool   `json:"completed"` // false when stopped
}

// Option configures an Orchestrator
type Option func(*Orchestrator)

func WithPolicy(p Policy) Option {
	return func(o *Orchestrator) { o.policy = p }
}

func WithClassifier(c Classifier) Option {
	return func(o *Orchestrator) { o.classifier = c }
}

// WithOnComplete registers fn to run after every sweep that reaches the end
// of the catalog.
func WithOnComplete(fn func(Summary)) Option {
	return func(o *Orchestrator) { o.onComplete = fn }
}

// Orchestrator owns at most one sweep at a time. Stopping cancels the
// sweep's context; the sweep notices at its next check.
type Orchestrator struct {
	generator  Generator
	images     ImageStore
	catalog    Catalog
	policy     Policy
	classifier Classifier
	onComplete func(Summary)
	sleep      func(ctx context.Context, d time.Duration) error

	mu          sync.Mutex
	progress    models.Progress
	cancel      context.CancelFunc
	sweeps      sync.WaitGroup // every sweep not yet returned, stopped ones included
	subscribers map[int]chan models.Progress
	nextSub     int
}

func New(generator Generator, images ImageStore, catalog Catalog, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		generator:   generator,
		images:      images,
		catalog:     catalog,
		policy:      DefaultPolicy(),
		classifier:  DefaultClassifier(),
		sleep:       sleepContext,
		subscribers: make(map[int]chan models.Progress),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Start launches a sweep in the background
func (o *Orchestrator) Start(ctx context.Context) error {
	runCtx, runID, err := o.begin(ctx)
	if err != nil {
		return err
	}
	go func() {
		defer o.sweeps.Done()
		o.sweep(runCtx, runID)
	}()
	return nil
}

// Run sweeps the catalog in the calling goroutine
func (o *Orchestrator) Run(ctx context.Context) (Summary, error) {
	runCtx, runID, err := o.begin(ctx)
	if err != nil {
		return Summary{}, err
	}
	defer o.sweeps.Done()
	return o.sweep(runCtx, runID), nil
}

// Stop cancels the active sweep and clears progress at once. It is a no-op
// when idle.
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	defer o.mu.Unlock()

	if !o.progress.Running {
		return
	}
	slog.Info("Stopping auto-generation", "run_id", o.progress.RunID)
	o.cancel()
	o.publishLocked(models.Progress{})
}

// Wait blocks until every sweep has returned, including stopped sweeps
// still unwinding from an in-flight call.
func (o *Orchestrator) Wait() {
	o.sweeps.Wait()
}

// Progress returns the current state
func (o *Orchestrator) Progress() models.Progress {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.progress
}

// Subscribe returns a channel holding the latest progress and a function
// that ends the subscription. Slow readers only see the newest state.
func (o *Orchestrator) Subscribe() (<-chan models.Progress, func()) {
	o.mu.Lock()
	defer o.mu.Unlock()

	id := o.nextSub
	o.nextSub++
	ch := make(chan models.Progress, 1)
	ch <- o.progress
	o.subscribers[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			o.mu.Lock()
			defer o.mu.Unlock()
			delete(o.subscribers, id)
			close(ch)
		})
	}
}

func (o *Orchestrator) begin(parent context.Context) (context.Context, string, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.progress.Running {
		return nil, "", ErrAlreadyRunning
	}

	ctx, cancel := context.WithCancel(parent)
	runID := uuid.NewString()
	o.cancel = cancel
	o.sweeps.Add(1)
	o.publishLocked(models.Progress{Running: true, RunID: runID, Status: StatusStarting})

	slog.Info("Auto-generation started", "run_id", runID)
	return ctx, runID, nil
}

// update applies fn to the progress of runID. Updates from a run that has
// been stopped are dropped.
func (o *Orchestrator) update(runID string, fn func(p *models.Progress)) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.progress.RunID != runID || !o.progress.Running {
		return
	}
	p := o.progress
	fn(&p)
	o.publishLocked(p)
}

func (o *Orchestrator) finish(runID string, final models.Progress) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.progress.RunID == runID && o.progress.Running {
		o.cancel()
		o.publishLocked(final)
	}
}

func (o *Orchestrator) publishLocked(p models.Progress) {
	o.progress = p
	for _, ch := range o.subscribers {
		select {
		case ch <- p:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- p:
			default:
			}
		}
	}
}

func (o *Orchestrator) sweep(ctx context.Context, runID string) Summary {
	items := o.catalog.Snapshot()
	summary := Summary{RunID: runID, Total: len(items)}
	log := slog.With("run_id", runID)

	for i := 0; i < len(items); {
		if ctx.Err() != nil {
			log.Info("Auto-generation stopped", "generated", summary.Generated)
			o.finish(runID, models.Progress{})
			return summary
		}

		item := items[i]
		if item.CustomThumbnail != "" || o.images.HasImage(ctx, item.ID) {
			summary.Skipped++
			i++
			continue
		}

		o.update(runID, func(p *models.Progress) {
			p.CurrentItemID = item.ID
			p.CurrentItemTitle = item.Title
			p.Status = StatusGenerating
		})

		payload, err := o.generator.GenerateItem(ctx, item)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			if o.classifier.Classify(err) == ClassRateLimit {
				log.Warn("Rate limit reached, deep sleep", "id", item.ID, "err", err)
				o.wait(ctx, runID, o.policy.RateLimitSleep, StatusRateLimited)
			} else {
				log.Error("Auto-generation error", "id", item.ID, "err", err)
				o.wait(ctx, runID, o.policy.GenericRetry, StatusErrorPrefix+truncate(displayMessage(err), errorDisplayLength)+"...")
			}
			continue
		}

		if payload == "" {
			log.Warn("No image returned, retrying", "id", item.ID)
			o.wait(ctx, runID, o.policy.SoftRetry, StatusRetrying)
			continue
		}

		// a finished generation is kept even if a stop arrived meanwhile
		if err := o.images.PutImage(context.WithoutCancel(ctx), item.ID, payload); err != nil {
			log.Error("Failed to save generated image", "id", item.ID, "err", err)
			o.wait(ctx, runID, o.policy.GenericRetry, StatusErrorPrefix+truncate(err.Error(), errorDisplayLength)+"...")
			continue
		}
		o.catalog.UpdateItemByID(item.ID, func(c *models.CatalogItem) {
			c.CustomThumbnail = payload
		})

		summary.Generated++
		generated := summary.Generated
		o.update(runID, func(p *models.Progress) { p.Generated = generated })
		log.Info("Generated image", "id", item.ID, "title", item.Title, "generated", generated)

		i++
		o.wait(ctx, runID, o.policy.SuccessCooldown, StatusCooldown)
	}

	summary.Completed = true
	final := models.Progress{RunID: runID, Generated: summary.Generated}
	if summary.Generated == 0 {
		final.Status = CompletionNotice
		log.Info(CompletionNotice, "total", summary.Total)
	} else {
		log.Info("Auto-generation finished", "generated", summary.Generated, "skipped", summary.Skipped)
	}

	if o.onComplete != nil {
		o.onComplete(summary)
	}
	o.finish(runID, final)
	return summary
}

// wait sleeps for total in ticks, publishing a countdown and giving up as
// soon as ctx is cancelled.
func (o *Orchestrator) wait(ctx context.Context, runID string, total time.Duration, prefix string) {
	tick := o.policy.Tick
	if tick <= 0 {
		tick = time.Second
	}

	for remaining := total; remaining > 0; remaining -= tick {
		if ctx.Err() != nil {
			return
		}
		status := fmt.Sprintf("%s (%s)", prefix, FormatCountdown(remaining))
		o.update(runID, func(p *models.Progress) { p.Status = status })

		if err := o.sleep(ctx, min(tick, remaining)); err != nil {
			return
		}
	}
}

// FormatCountdown renders d as "Ns", or "Mm Ss" above one minute
func FormatCountdown(d time.Duration) string {
	seconds := int((d + time.Second - 1) / time.Second)
	if seconds > 60 {
		return fmt.Sprintf("%dm %ds", seconds/60, seconds%60)
	}
	return fmt.Sprintf("%ds", seconds)
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
