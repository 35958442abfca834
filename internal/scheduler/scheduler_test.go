package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/codr1/Playfield/internal/testutil"
)

type recordingSweeper struct {
	calls chan time.Time
}

func (s *recordingSweeper) Sweep(_ context.Context, now time.Time) (int, error) {
	s.calls <- now
	return 0, nil
}

func TestAddJob_Validation(t *testing.T) {
	svc, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	svc.Start()
	t.Cleanup(func() { _ = svc.Stop() })

	if _, err := svc.AddJob(" ", "* * * * *", func() {}); !errors.Is(err, ErrEmptyJobName) {
		t.Fatalf("expected ErrEmptyJobName, got %v", err)
	}
	if _, err := svc.AddJob("job", "", func() {}); !errors.Is(err, ErrEmptyCronExpr) {
		t.Fatalf("expected ErrEmptyCronExpr, got %v", err)
	}
	if _, err := svc.AddJob("job", "not a cron", func() {}); err == nil {
		t.Fatalf("expected invalid cron expression to fail")
	}

	var nilService *Service
	if _, err := nilService.AddJob("job", "* * * * *", func() {}); !errors.Is(err, ErrNotInitialized) {
		t.Fatalf("expected ErrNotInitialized, got %v", err)
	}
}

func TestRegisterExpirySweep_RunsWithClockTime(t *testing.T) {
	svc, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = svc.Stop() })

	fakeClock := testutil.NewFakeClock(time.Time{})
	sweeper := &recordingSweeper{calls: make(chan time.Time, 1)}

	job, err := RegisterExpirySweep(svc, sweeper, fakeClock, "* * * * *")
	if err != nil {
		t.Fatalf("RegisterExpirySweep: %v", err)
	}
	if job.Name() != ExpirySweepJobName {
		t.Fatalf("expected job name %q, got %q", ExpirySweepJobName, job.Name())
	}
	if len(svc.Jobs()) != 1 {
		t.Fatalf("expected 1 registered job, got %d", len(svc.Jobs()))
	}

	svc.Start()
	if err := job.RunNow(); err != nil {
		t.Fatalf("RunNow: %v", err)
	}

	select {
	case got := <-sweeper.calls:
		if !got.Equal(fakeClock.Now()) {
			t.Fatalf("expected sweep at %s, got %s", fakeClock.Now(), got)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("sweep did not run")
	}
}

func TestRegisterExpirySweep_RequiresSweeper(t *testing.T) {
	svc, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	svc.Start()
	t.Cleanup(func() { _ = svc.Stop() })

	if _, err := RegisterExpirySweep(svc, nil, nil, "* * * * *"); err == nil {
		t.Fatalf("expected error without sweeper")
	}
}
