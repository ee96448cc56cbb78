package app

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"travel_admin/internal/ctxutil"
	"travel_admin/internal/domain"
)

// Audit outcomes reported through AuditConfig.Observe.
const (
	AuditPersisted = "persisted"
	AuditSkipped   = "skipped"
	AuditFailed    = "failed"
	AuditDropped   = "dropped"
)

type AuditConfig struct {
	Workers         int
	WritesPerSecond float64
	WriteTimeout    time.Duration
	Observe         func(outcome string)
}

// AuditRecorder persists one entry per successful audited mutation. Writes
// happen on background goroutines after the response is complete, so a crash
// in that window loses the entry; failures are logged and never reach the
// client.
type AuditRecorder struct {
	repo    domain.AuditRepository
	sem     *semaphore.Weighted
	limiter *rate.Limiter
	timeout time.Duration
	observe func(string)
	now     func() time.Time

	mu     sync.RWMutex // guards closed against wg.Add racing Close
	wg     sync.WaitGroup
	closed bool
}

func NewAuditRecorder(repo domain.AuditRepository, cfg AuditConfig) *AuditRecorder {
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 5 * time.Second
	}
	lim := rate.NewLimiter(rate.Inf, 1)
	if cfg.WritesPerSecond > 0 {
		burst := int(cfg.WritesPerSecond)
		if burst < 1 {
			burst = 1
		}
		lim = rate.NewLimiter(rate.Limit(cfg.WritesPerSecond), burst)
	}
	obs := cfg.Observe
	if obs == nil {
		obs = func(string) {}
	}
	return &AuditRecorder{
		repo:    repo,
		sem:     semaphore.NewWeighted(int64(cfg.Workers)),
		limiter: lim,
		timeout: cfg.WriteTimeout,
		observe: obs,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// ProcessForMethod classifies an HTTP method; ok is false for methods that
// are not audited.
func ProcessForMethod(method string) (domain.Process, bool) {
	switch method {
	case http.MethodPost:
		return domain.ProcessCreate, true
	case http.MethodPut, http.MethodPatch:
		return domain.ProcessUpdate, true
	case http.MethodDelete:
		return domain.ProcessDelete, true
	}
	return "", false
}

// AuditCapture is the per-request audit state between Begin and Finish.
type AuditCapture struct {
	table    string
	process  domain.Process
	actor    domain.Actor
	preImage domain.Row

	mu        sync.Mutex
	handlerID *int64
	routeID   *int64
	bodyID    *int64

	finished sync.Once
	release  func()
}

// SetTarget records the id chosen by the handler; it wins over route and body ids.
func (c *AuditCapture) SetTarget(id int64) {
	c.mu.Lock()
	c.handlerID = &id
	c.mu.Unlock()
}

// SetPreImage replaces the captured pre-image for handlers whose audited
// state is not a single row addressed by the route id.
func (c *AuditCapture) SetPreImage(row domain.Row) {
	c.mu.Lock()
	c.preImage = row
	c.mu.Unlock()
}

func (c *AuditCapture) PreImage() domain.Row {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.preImage
}

func (c *AuditCapture) Process() domain.Process { return c.process }

// TargetID resolves handler id, then route id, then body id.
func (c *AuditCapture) TargetID() (int64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, p := range []*int64{c.handlerID, c.routeID, c.bodyID} {
		if p != nil {
			return *p, true
		}
	}
	return 0, false
}

// Begin captures the actor and, for update/delete, the current live row of
// the target. A missing row is not an error: Finish skips update/delete
// entries without a pre-image. Every capture must reach Finish; Flush and
// Close wait for open captures.
func (r *AuditRecorder) Begin(ctx context.Context, store domain.ResourceStore, process domain.Process, routeID, bodyID *int64) *AuditCapture {
	c := &AuditCapture{
		table:   store.Table(),
		process: process,
		routeID: routeID,
		bodyID:  bodyID,
	}
	r.mu.RLock()
	if !r.closed {
		r.wg.Add(1)
		c.release = r.wg.Done
	}
	r.mu.RUnlock()
	if a, ok := ctxutil.ActorFromContext(ctx); ok {
		c.actor = a
	}
	c.actor.Kind = domain.NormalizeActorKind(c.actor.Kind)

	if process == domain.ProcessCreate {
		return c
	}
	id, ok := c.TargetID()
	if !ok {
		return c
	}
	row, err := store.First(ctx, domain.Filter{"id": id})
	switch {
	case err == nil:
		c.SetPreImage(row)
	case !errors.Is(err, domain.ErrNotFound):
		log.Warn().Err(err).Str("table", c.table).Int64("target", id).Msg("audit pre-image read failed")
	}
	return c
}

// Finish schedules the entry when status is in [200,400) and discards it
// otherwise. Update and delete entries also need a pre-image: a mutation that
// found no live row (for example a repeated delete) leaves no entry. Only the
// first call per capture counts. It never blocks on the audit store.
func (r *AuditRecorder) Finish(c *AuditCapture, status int) {
	first := false
	c.finished.Do(func() { first = true })
	if !first {
		return
	}
	if c.release != nil {
		defer c.release()
	}
	if status < 200 || status >= 400 {
		r.observe(AuditSkipped)
		return
	}
	pre := c.PreImage()
	if c.process != domain.ProcessCreate && pre == nil {
		r.observe(AuditSkipped)
		return
	}
	target, _ := c.TargetID()
	e := domain.AuditEntry{
		ActorID:   c.actor.ID,
		ActorKind: c.actor.Kind,
		Process:   c.process,
		TableName: c.table,
		TargetID:  target,
		CreatedAt: r.now(),
	}
	if c.process != domain.ProcessCreate {
		b, err := json.Marshal(pre)
		if err != nil {
			log.Error().Err(err).Str("table", c.table).Int64("target", target).Msg("audit pre-image marshal failed")
		} else {
			e.Content = b
		}
	}
	r.enqueue(e)
}

func (r *AuditRecorder) enqueue(e domain.AuditEntry) {
	r.mu.RLock()
	if r.closed {
		r.mu.RUnlock()
		r.observe(AuditDropped)
		log.Warn().Str("table", e.TableName).Int64("target", e.TargetID).Msg("audit recorder closed, entry dropped")
		return
	}
	r.wg.Add(1)
	r.mu.RUnlock()
	go func() {
		defer r.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		defer cancel()

		if err := r.sem.Acquire(ctx, 1); err != nil {
			r.observe(AuditDropped)
			log.Warn().Err(err).Str("table", e.TableName).Int64("target", e.TargetID).Msg("audit write slot not acquired")
			return
		}
		defer r.sem.Release(1)

		if err := r.limiter.Wait(ctx); err != nil {
			r.observe(AuditDropped)
			log.Warn().Err(err).Str("table", e.TableName).Int64("target", e.TargetID).Msg("audit write rate wait failed")
			return
		}
		if err := r.repo.Insert(ctx, e); err != nil {
			r.observe(AuditFailed)
			log.Error().Err(err).
				Str("table", e.TableName).
				Int64("target", e.TargetID).
				Str("process", string(e.Process)).
				Msg("audit write failed")
			return
		}
		r.observe(AuditPersisted)
	}()
}

// Close stops accepting entries and waits for in-flight writes or ctx.
func (r *AuditRecorder) Close(ctx context.Context) error {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Flush waits for open captures and the writes scheduled so far; the
// recorder stays open.
func (r *AuditRecorder) Flush() { r.wg.Wait() }

func (r *AuditRecorder) List(ctx context.Context, q domain.AuditQuery) (domain.AuditPage, error) {
	return r.repo.List(ctx, q)
}

type auditCaptureKey struct{}

func WithAuditCapture(ctx context.Context, c *AuditCapture) context.Context {
	return context.WithValue(ctx, auditCaptureKey{}, c)
}

func AuditCaptureFromContext(ctx context.Context) *AuditCapture {
	c, _ := ctx.Value(auditCaptureKey{}).(*AuditCapture)
	return c
}

// SetAuditTarget lets a handler name the audited row (e.g. the id a create
// produced). It is a no-op outside an audited request.
func SetAuditTarget(ctx context.Context, id int64) {
	if c := AuditCaptureFromContext(ctx); c != nil {
		c.SetTarget(id)
	}
}
