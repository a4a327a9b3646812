package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"gleaner/internal/config"
	"gleaner/internal/fetcher"
	"gleaner/internal/logging"
	"gleaner/internal/queue"
	"gleaner/internal/ratelimit"
	"gleaner/internal/testsupport"
)

type stubFetcher struct {
	platform fetcher.Platform
	mu       sync.Mutex
	results  []stubOutcome
	calls    int
}

type stubOutcome struct {
	result *fetcher.Result
	err    error
}

func (s *stubFetcher) Platform() fetcher.Platform { return s.platform }

func (s *stubFetcher) CanHandle(string) bool { return true }

func (s *stubFetcher) FetchContent(ctx context.Context, req fetcher.Request) (*fetcher.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	outcome := s.results[min(s.calls, len(s.results)-1)]
	s.calls++
	return outcome.result, outcome.err
}

func (s *stubFetcher) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type recordingNotifier struct {
	mu        sync.Mutex
	completed []int64
	failed    []int64
}

func (r *recordingNotifier) NotifyJobCompleted(_ context.Context, job *queue.Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.completed = append(r.completed, job.ID)
	return nil
}

func (r *recordingNotifier) NotifyJobFailed(_ context.Context, job *queue.Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failed = append(r.failed, job.ID)
	return nil
}

func (r *recordingNotifier) NotifyQueueDrained(context.Context, int, int, time.Duration) error {
	return nil
}

func (r *recordingNotifier) TestNotification(context.Context) error { return nil }

func videoResult() *fetcher.Result {
	return &fetcher.Result{
		Content:  fetcher.Content{Text: "caption"},
		Media:    &fetcher.Media{Type: fetcher.MediaVideo, URL: "https://cdn.example.com/v.mp4"},
		Metadata: fetcher.Metadata{Platform: fetcher.PlatformTikTok, PlatformID: "1"},
	}
}

func newTestManager(t *testing.T, cfg *config.Config, registry *fetcher.Registry, limiter *ratelimit.Limiter) (*Manager, *queue.Store, *recordingNotifier) {
	t.Helper()
	store := testsupport.MustOpenStore(t, cfg)
	notifier := &recordingNotifier{}
	manager := New(cfg, store, logging.NewNop(), registry, limiter, notifier, nil)
	return manager, store, notifier
}

func immediateRetryConfig(t *testing.T) *config.Config {
	cfg := testsupport.NewConfig(t)
	cfg.Fetch.BackoffBaseSeconds = 0
	cfg.Fetch.BackoffCapSeconds = 0
	return cfg
}

func enabledRegistry(fetchers ...fetcher.Fetcher) *fetcher.Registry {
	registry := fetcher.NewRegistry([]fetcher.Platform{fetcher.PlatformTikTok, fetcher.PlatformGeneric})
	for _, f := range fetchers {
		registry.Register(f)
	}
	return registry
}

func openLimiter() *ratelimit.Limiter {
	return ratelimit.New(nil, 10_000)
}

func TestProcessJobCompletesSuccessfulFetch(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	stub := &stubFetcher{platform: fetcher.PlatformTikTok, results: []stubOutcome{{result: videoResult()}}}
	manager, store, notifier := newTestManager(t, cfg, enabledRegistry(stub), openLimiter())

	ctx := context.Background()
	job, err := store.Enqueue(ctx, "https://www.tiktok.com/@u/video/1", fetcher.PlatformTikTok, 3)
	if err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}
	claimed, err := store.ClaimNext(ctx)
	if err != nil {
		t.Fatalf("ClaimNext failed: %v", err)
	}

	if err := manager.processJob(ctx, manager.logger, claimed); err != nil {
		t.Fatalf("processJob failed: %v", err)
	}

	done, err := store.GetByID(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if done.Status != queue.StatusCompleted {
		t.Fatalf("expected completed, got %s", done.Status)
	}
	if done.Result == nil || done.Result.Media.Type != fetcher.MediaVideo {
		t.Fatalf("result not persisted: %#v", done.Result)
	}
	if len(notifier.completed) != 1 || notifier.completed[0] != job.ID {
		t.Fatalf("expected completion notification, got %v", notifier.completed)
	}
}

func TestProcessJobDisabledPlatformFailsWithoutAttempt(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	registry := fetcher.NewRegistry([]fetcher.Platform{fetcher.PlatformTikTok})
	manager, store, notifier := newTestManager(t, cfg, registry, openLimiter())

	ctx := context.Background()
	job, err := store.Enqueue(ctx, "https://www.instagram.com/p/abc/", fetcher.PlatformInstagram, 3)
	if err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}
	claimed, err := store.ClaimNext(ctx)
	if err != nil {
		t.Fatalf("ClaimNext failed: %v", err)
	}

	if err := manager.processJob(ctx, manager.logger, claimed); err != nil {
		t.Fatalf("processJob failed: %v", err)
	}

	final, err := store.GetByID(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if final.Status != queue.StatusFailed || final.Attempts != 0 {
		t.Fatalf("expected failed with attempts=0, got %#v", final)
	}
	if final.LastError == nil || final.LastError.Code != "PLATFORM_DISABLED" {
		t.Fatalf("unexpected error: %#v", final.LastError)
	}
	if len(notifier.failed) != 1 {
		t.Fatalf("expected failure notification, got %v", notifier.failed)
	}
}

func TestProcessJobRateLimitDenialDefersJob(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	stub := &stubFetcher{platform: fetcher.PlatformTikTok, results: []stubOutcome{{result: videoResult()}}}
	limiter := ratelimit.New(map[string]int{"tiktok": 1}, 1)
	manager, store, _ := newTestManager(t, cfg, enabledRegistry(stub), limiter)

	ctx := context.Background()
	// Drain the single token so the job's claim is denied.
	limiter.Acquire(fetcher.PlatformTikTok)

	job, err := store.Enqueue(ctx, "https://www.tiktok.com/@u/video/1", fetcher.PlatformTikTok, 3)
	if err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}
	claimed, err := store.ClaimNext(ctx)
	if err != nil {
		t.Fatalf("ClaimNext failed: %v", err)
	}

	if err := manager.processJob(ctx, manager.logger, claimed); err != nil {
		t.Fatalf("processJob failed: %v", err)
	}
	if stub.callCount() != 0 {
		t.Fatalf("fetcher invoked despite denial: %d calls", stub.callCount())
	}

	deferred, err := store.GetByID(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if deferred.Status != queue.StatusRetry || deferred.Attempts != 1 {
		t.Fatalf("expected retry with one attempt, got %#v", deferred)
	}
	if deferred.LastError == nil || deferred.LastError.Code != "RATE_LIMIT_EXCEEDED" {
		t.Fatalf("unexpected error: %#v", deferred.LastError)
	}
	if deferred.NotBefore == nil || !deferred.NotBefore.After(time.Now()) {
		t.Fatalf("expected future not_before, got %v", deferred.NotBefore)
	}
}

func TestProcessJobRetryableErrorsExhaustBudget(t *testing.T) {
	cfg := immediateRetryConfig(t)
	netErr := fetcher.NewError(fetcher.CodeNetwork, fetcher.PlatformTikTok, "connection reset")
	stub := &stubFetcher{platform: fetcher.PlatformTikTok, results: []stubOutcome{{err: netErr}}}
	manager, store, notifier := newTestManager(t, cfg, enabledRegistry(stub), openLimiter())

	ctx := context.Background()
	job, err := store.Enqueue(ctx, "https://www.tiktok.com/@u/video/1", fetcher.PlatformTikTok, 3)
	if err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}

	for attempt := 1; attempt <= 3; attempt++ {
		claimed, err := store.ClaimNext(ctx)
		if err != nil {
			t.Fatalf("attempt %d: ClaimNext failed: %v", attempt, err)
		}
		if claimed == nil {
			t.Fatalf("attempt %d: nothing to claim", attempt)
		}
		if err := manager.processJob(ctx, manager.logger, claimed); err != nil {
			t.Fatalf("attempt %d: processJob failed: %v", attempt, err)
		}
	}

	final, err := store.GetByID(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if final.Status != queue.StatusFailed || final.Attempts != 3 {
		t.Fatalf("expected failed after 3 attempts, got %#v", final)
	}
	if stub.callCount() != 3 {
		t.Fatalf("expected 3 fetch calls, got %d", stub.callCount())
	}
	if len(notifier.failed) != 1 {
		t.Fatalf("expected one failure notification, got %v", notifier.failed)
	}
}

func TestProcessJobPermanentErrorSkipsRetry(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	goneErr := fetcher.NewError(fetcher.CodeNotFound, fetcher.PlatformTikTok, "content removed")
	stub := &stubFetcher{platform: fetcher.PlatformTikTok, results: []stubOutcome{{err: goneErr}}}
	manager, store, _ := newTestManager(t, cfg, enabledRegistry(stub), openLimiter())

	ctx := context.Background()
	job, err := store.Enqueue(ctx, "https://www.tiktok.com/@u/video/1", fetcher.PlatformTikTok, 3)
	if err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}
	claimed, err := store.ClaimNext(ctx)
	if err != nil {
		t.Fatalf("ClaimNext failed: %v", err)
	}
	if err := manager.processJob(ctx, manager.logger, claimed); err != nil {
		t.Fatalf("processJob failed: %v", err)
	}

	final, err := store.GetByID(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if final.Status != queue.StatusFailed || final.Attempts != 1 {
		t.Fatalf("expected terminal failure on first attempt, got %#v", final)
	}
}

func TestProcessJobRecoversAfterTransientFailure(t *testing.T) {
	cfg := immediateRetryConfig(t)
	rateErr := fetcher.NewError(fetcher.CodeRateLimited, fetcher.PlatformTikTok, "slow down")
	stub := &stubFetcher{
		platform: fetcher.PlatformTikTok,
		results:  []stubOutcome{{err: rateErr}, {result: videoResult()}},
	}
	manager, store, _ := newTestManager(t, cfg, enabledRegistry(stub), openLimiter())

	ctx := context.Background()
	job, err := store.Enqueue(ctx, "https://www.tiktok.com/@u/video/1", fetcher.PlatformTikTok, 3)
	if err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}

	for i := 0; i < 2; i++ {
		claimed, err := store.ClaimNext(ctx)
		if err != nil {
			t.Fatalf("ClaimNext failed: %v", err)
		}
		if claimed == nil {
			t.Fatal("nothing to claim")
		}
		if err := manager.processJob(ctx, manager.logger, claimed); err != nil {
			t.Fatalf("processJob failed: %v", err)
		}
	}

	final, err := store.GetByID(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if final.Status != queue.StatusCompleted || final.Attempts != 1 {
		t.Fatalf("expected completion after one retry, got %#v", final)
	}
	if final.Result == nil || final.Result.Media.Type != fetcher.MediaVideo {
		t.Fatalf("result not persisted: %#v", final.Result)
	}
}

func TestProcessJobUnclassifiedErrorIsRetried(t *testing.T) {
	cfg := immediateRetryConfig(t)
	stub := &stubFetcher{
		platform: fetcher.PlatformTikTok,
		results:  []stubOutcome{{err: errors.New("boom")}},
	}
	manager, store, _ := newTestManager(t, cfg, enabledRegistry(stub), openLimiter())

	ctx := context.Background()
	job, err := store.Enqueue(ctx, "https://www.tiktok.com/@u/video/1", fetcher.PlatformTikTok, 3)
	if err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}
	claimed, err := store.ClaimNext(ctx)
	if err != nil {
		t.Fatalf("ClaimNext failed: %v", err)
	}
	if err := manager.processJob(ctx, manager.logger, claimed); err != nil {
		t.Fatalf("processJob failed: %v", err)
	}

	final, err := store.GetByID(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if final.Status != queue.StatusRetry {
		t.Fatalf("expected retry for unclassified error, got %#v", final)
	}
	if final.LastError == nil || final.LastError.Code != "EXTERNAL_SERVICE_UNAVAILABLE" {
		t.Fatalf("unexpected classification: %#v", final.LastError)
	}
}

func TestStartStopDrainsQueue(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Workflow.Workers = 2
	cfg.Workflow.QueuePollInterval = 1
	stub := &stubFetcher{platform: fetcher.PlatformTikTok, results: []stubOutcome{{result: videoResult()}}}
	manager, store, _ := newTestManager(t, cfg, enabledRegistry(stub), openLimiter())

	ctx := context.Background()
	const jobs = 4
	for i := 0; i < jobs; i++ {
		if _, err := store.Enqueue(ctx, "https://www.tiktok.com/@u/video/1", fetcher.PlatformTikTok, 3); err != nil {
			t.Fatalf("Enqueue failed: %v", err)
		}
	}

	if err := manager.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := manager.Start(ctx); err == nil {
		t.Fatal("expected second Start to fail while running")
	}
	defer manager.Stop()

	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		stats, err := store.Stats(ctx)
		if err != nil {
			t.Fatalf("Stats failed: %v", err)
		}
		if stats.Completed == jobs {
			manager.Stop()
			if manager.Running() {
				t.Fatal("expected fleet stopped")
			}
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
	t.Fatal("queue did not drain in time")
}
