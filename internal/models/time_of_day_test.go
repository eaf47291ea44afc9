package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseTimeOfDay(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    LocalTimeOfDay
		wantErr bool
	}{
		{name: "on grid", input: "09:00", want: LocalTimeOfDay{Hour: 9, Minute: 0}},
		{name: "quarter past", input: "14:15", want: LocalTimeOfDay{Hour: 14, Minute: 15}},
		{name: "off grid minute", input: "09:05", wantErr: true},
		{name: "garbage", input: "not-a-time", wantErr: true},
		{name: "hour out of range", input: "25:00", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseTimeOfDay(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidTimeSlot)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLocalTimeOfDay_FitsDuration(t *testing.T) {
	assert.True(t, LocalTimeOfDay{Hour: 22, Minute: 45}.FitsDuration(15))
	assert.False(t, LocalTimeOfDay{Hour: 23, Minute: 30}.FitsDuration(60))
	assert.True(t, LocalTimeOfDay{Hour: 23, Minute: 0}.FitsDuration(60))
}

func TestLocalTimeOfDay_Add(t *testing.T) {
	shifted := LocalTimeOfDay{Hour: 10, Minute: 0}.Add(-60)
	assert.Equal(t, LocalTimeOfDay{Hour: 9, Minute: 0}, shifted)

	shifted = LocalTimeOfDay{Hour: 10, Minute: 30}.Add(90)
	assert.Equal(t, LocalTimeOfDay{Hour: 12, Minute: 0}, shifted)
}

func TestLocalTimeOfDay_String(t *testing.T) {
	assert.Equal(t, "09:05", LocalTimeOfDay{Hour: 9, Minute: 5}.String())
}

func TestFormatAndParseInstant(t *testing.T) {
	ts := time.Date(2030, 1, 15, 9, 0, 0, 0, time.UTC)
	formatted := FormatInstant(ts)
	assert.Equal(t, "2030-01-15T09:00:00.000Z", formatted)

	parsed, err := ParseInstant(formatted)
	assert.NoError(t, err)
	assert.True(t, ts.Equal(parsed))
}

func TestParseInstant_AcceptsRFC3339(t *testing.T) {
	parsed, err := ParseInstant("2030-01-15T09:00:00Z")
	assert.NoError(t, err)
	assert.Equal(t, 2030, parsed.Year())
}

func TestParseInstant_Invalid(t *testing.T) {
	_, err := ParseInstant("not a date")
	assert.ErrorIs(t, err, ErrInvalidDate)
}
