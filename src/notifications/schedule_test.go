package notifications

import (
	"testing"
	"time"

	"github.com/TUD-INF-IAI-MCI/matshare/src/models"
	"github.com/stretchr/testify/assert"
)

// 2026-04-15 is a Wednesday.
var wednesdayNoon = time.Date(2026, 4, 15, 12, 0, 0, 0, time.UTC)

func TestNextRunImmediately(t *testing.T) {
	next := NextRun(models.NotifyImmediately, wednesdayNoon)
	assert.Equal(t, wednesdayNoon.Add(5*time.Minute), next)
}

func TestNextRunTwiceDaily(t *testing.T) {
	next := NextRun(models.NotifyTwiceDaily, wednesdayNoon)
	assert.Equal(t, time.Date(2026, 4, 15, 12, 5, 0, 0, time.UTC), next)

	next = NextRun(models.NotifyTwiceDaily, next)
	assert.Equal(t, time.Date(2026, 4, 16, 0, 5, 0, 0, time.UTC), next)
}

func TestNextRunDaily(t *testing.T) {
	next := NextRun(models.NotifyDaily, wednesdayNoon)
	assert.Equal(t, time.Date(2026, 4, 16, 0, 15, 0, 0, time.UTC), next)

	early := time.Date(2026, 4, 15, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 4, 15, 0, 15, 0, 0, time.UTC), NextRun(models.NotifyDaily, early))
}

func TestNextRunMonFri(t *testing.T) {
	// Wednesday noon: next is Friday 00:25.
	next := NextRun(models.NotifyMonFri, wednesdayNoon)
	assert.Equal(t, time.Date(2026, 4, 17, 0, 25, 0, 0, time.UTC), next)
	assert.Equal(t, time.Friday, next.Weekday())

	// From Friday 00:25: next is Monday 00:25.
	next = NextRun(models.NotifyMonFri, next)
	assert.Equal(t, time.Date(2026, 4, 20, 0, 25, 0, 0, time.UTC), next)
	assert.Equal(t, time.Monday, next.Weekday())
}

func TestNextRunWeekly(t *testing.T) {
	next := NextRun(models.NotifyWeekly, wednesdayNoon)
	assert.Equal(t, time.Date(2026, 4, 20, 0, 35, 0, 0, time.UTC), next)
	assert.Equal(t, time.Monday, next.Weekday())

	// A whole week passes between runs.
	following := NextRun(models.NotifyWeekly, next)
	assert.Equal(t, next.AddDate(0, 0, 7), following)
}

func TestNextRunNever(t *testing.T) {
	assert.True(t, NextRun(models.NotifyNever, wednesdayNoon).IsZero())
}
