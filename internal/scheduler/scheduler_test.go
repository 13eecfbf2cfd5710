package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seenimoa/optiscreen/internal/config"
	"github.com/seenimoa/optiscreen/internal/tasks"
)

type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) Publish(ev Event) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
}

func TestAddSkipsDisabledAndRejectsBadSpecs(t *testing.T) {
	s := New(zerolog.Nop())
	noop := func(context.Context) error { return nil }

	added, err := s.Add(Job{Name: "off", Run: noop})
	require.NoError(t, err)
	assert.False(t, added)

	_, err = s.Add(Job{Name: "bad", Spec: "not a spec", Run: noop})
	require.Error(t, err)

	added, err = s.Add(Job{Name: "daily", Spec: "0 6 * * 1-5", Run: noop})
	require.NoError(t, err)
	assert.True(t, added)

	_, err = s.Add(Job{Name: "daily", Spec: "@hourly", Run: noop})
	require.Error(t, err)

	jobs := s.Jobs()
	require.Len(t, jobs, 1)
	assert.Equal(t, "daily", jobs[0].Name)
}

func TestRunNowPublishesEvents(t *testing.T) {
	rec := &recorder{}
	s := New(zerolog.Nop(), WithPublisher(rec))
	_, err := s.Add(Job{Name: "ok", Spec: "@daily", Run: func(context.Context) error { return nil }})
	require.NoError(t, err)
	_, err = s.Add(Job{Name: "boom", Spec: "@daily", Run: func(context.Context) error { return errors.New("upstream down") }})
	require.NoError(t, err)

	ev, err := s.RunNow(context.Background(), "ok")
	require.NoError(t, err)
	assert.Equal(t, StatusSucceeded, ev.Status)
	_, err = uuid.Parse(ev.RunID)
	assert.NoError(t, err)

	ev, err = s.RunNow(context.Background(), "boom")
	require.Error(t, err)
	assert.Equal(t, StatusFailed, ev.Status)
	assert.Equal(t, "upstream down", ev.Error)

	require.Len(t, rec.events, 4)
	assert.Equal(t, StatusStarted, rec.events[0].Status)
	assert.Equal(t, rec.events[0].RunID, rec.events[1].RunID)
	assert.NotEqual(t, rec.events[1].RunID, rec.events[2].RunID)

	_, err = s.RunNow(context.Background(), "missing")
	assert.Error(t, err)
}

func TestStartStop(t *testing.T) {
	s := New(zerolog.Nop())
	_, err := s.Add(Job{Name: "tick", Spec: "@every 1h", Run: func(context.Context) error { return nil }})
	require.NoError(t, err)
	s.Start()
	assert.False(t, s.Jobs()[0].Next.IsZero())
	s.Stop()
}

func TestTaskJobs(t *testing.T) {
	jobs := TaskJobs(&tasks.Runner{}, config.ScheduleConfig{
		Screeners:    "0 5 * * *",
		PutChecker:   "30 15 * * 1-5",
		ScreenerList: []string{"Stocks by Quant"},
	})
	specs := map[string]string{}
	for _, j := range jobs {
		specs[j.Name] = j.Spec
	}
	assert.Equal(t, map[string]string{
		JobScreeners:    "0 5 * * *",
		JobCboeWeeklies: "",
		JobProfileData:  "",
		JobPutChecker:   "30 15 * * 1-5",
	}, specs)

	s := New(zerolog.Nop())
	var enabled int
	for _, j := range jobs {
		added, err := s.Add(j)
		require.NoError(t, err)
		if added {
			enabled++
		}
	}
	assert.Equal(t, 2, enabled)
}

func TestEachScreenerJoinsErrors(t *testing.T) {
	var seen []string
	err := eachScreener(context.Background(), []string{"a", "b", "c"}, func(name string) error {
		seen = append(seen, name)
		if name == "b" {
			return errors.New("b failed")
		}
		return nil
	})
	assert.Equal(t, []string{"a", "b", "c"}, seen)
	assert.EqualError(t, err, "b failed")
}
