package scheduler

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCronSchedulerScheduleAndRemove(t *testing.T) {
	t.Parallel()

	s := NewCronScheduler(time.UTC, nil)

	first, err := s.Schedule("0 9 * * *", func() {})
	require.NoError(t, err)
	second, err := s.Schedule("0 9 * * 1", func() {})
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
	assert.Equal(t, 2, s.Len())

	s.Remove(first)
	s.Remove(first)
	assert.Equal(t, 1, s.Len())
}

func TestCronSchedulerRejectsBadSpec(t *testing.T) {
	t.Parallel()

	s := NewCronScheduler(nil, nil)
	_, err := s.Schedule("not a spec", func() {})
	assert.Error(t, err)
	assert.Equal(t, 0, s.Len())
}

func TestCronSchedulerNextFireTime(t *testing.T) {
	t.Parallel()

	loc := time.FixedZone("UTC+2", 2*60*60)
	s := NewCronScheduler(loc, nil)
	id, err := s.Schedule("0 9 * * 1", func() {})
	require.NoError(t, err)

	s.Start()
	defer s.Stop()

	require.Eventually(t, func() bool { return !s.Next(id).IsZero() }, time.Second, 10*time.Millisecond)
	next := s.Next(id).In(loc)
	assert.Equal(t, time.Monday, next.Weekday())
	assert.Equal(t, 9, next.Hour())
	assert.Equal(t, 0, next.Minute())
}

func TestCronSchedulerRunsJobs(t *testing.T) {
	t.Parallel()

	s := NewCronScheduler(time.UTC, nil)
	var fired atomic.Int32
	_, err := s.Schedule("@every 1s", func() { fired.Add(1) })
	require.NoError(t, err)

	s.Start()
	require.Eventually(t, func() bool { return fired.Load() > 0 }, 4*time.Second, 5*time.Millisecond)
	<-s.Stop().Done()
}
