package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRecurrencePattern_IsValid(t *testing.T) {
	assert.True(t, PatternWeekly.IsValid())
	assert.True(t, PatternBiweekly.IsValid())
	assert.True(t, PatternMonthly.IsValid())
	assert.False(t, RecurrencePattern("DAILY").IsValid())
}

func TestRecurrencePattern_Step(t *testing.T) {
	start := time.Date(2030, 1, 7, 10, 0, 0, 0, time.UTC) // a Monday

	assert.Equal(t, start.AddDate(0, 0, 7), PatternWeekly.Step(start))
	assert.Equal(t, start.AddDate(0, 0, 14), PatternBiweekly.Step(start))
	assert.Equal(t, start.AddDate(0, 1, 0), PatternMonthly.Step(start))
}
