package scheduler

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"log/slog"

	"github.com/sagenews/sage/internal/ingestion"
)

type fakeDigests struct {
	calls int
	err   error
}

func (f *fakeDigests) Run(ctx context.Context) (ingestion.DigestStats, error) {
	f.calls++
	return ingestion.DigestStats{Processed: 1}, f.err
}

type fakeTweets struct {
	calls int
}

func (f *fakeTweets) Run(ctx context.Context) (ingestion.TweetStats, error) {
	f.calls++
	return ingestion.TweetStats{Fetched: 3}, nil
}

type fakeJunk struct {
	calls int
}

func (f *fakeJunk) Run(ctx context.Context) (ingestion.JunkStats, error) {
	f.calls++
	return ingestion.JunkStats{}, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSchedulerRunsAllStagesOnStart(t *testing.T) {
	digests := &fakeDigests{}
	tweets := &fakeTweets{}
	junk := &fakeJunk{}
	s := NewIngestScheduler(digests, tweets, junk, time.Hour, testLogger())

	done := make(chan struct{})
	go func() {
		s.Start(context.Background())
		close(done)
	}()

	// The first cycle runs before the ticker fires, so stopping right after
	// still observes one call per stage.
	s.Stop()
	<-done

	if digests.calls != 1 || tweets.calls != 1 || junk.calls != 1 {
		t.Fatalf("calls = %d/%d/%d, want 1 each", digests.calls, tweets.calls, junk.calls)
	}
}

func TestSchedulerContinuesPastStageFailure(t *testing.T) {
	digests := &fakeDigests{err: errors.New("mailbox offline")}
	tweets := &fakeTweets{}
	s := NewIngestScheduler(digests, tweets, nil, time.Hour, testLogger())

	done := make(chan struct{})
	go func() {
		s.Start(context.Background())
		close(done)
	}()
	s.Stop()
	<-done

	if tweets.calls != 1 {
		t.Fatalf("tweet stage skipped after digest failure, calls = %d", tweets.calls)
	}
}

func TestSchedulerStopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := NewIngestScheduler(nil, nil, nil, time.Hour, testLogger())

	done := make(chan struct{})
	go func() {
		s.Start(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop after context cancellation")
	}
}
