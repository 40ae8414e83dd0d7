package reltime

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSince(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	day := 24 * time.Hour

	tests := []struct {
		name    string
		elapsed time.Duration
		want    string
	}{
		{"zero", 0, "a few seconds"},
		{"thirty seconds", 30 * time.Second, "a few seconds"},
		{"just under a minute", 59 * time.Second, "a few seconds"},
		{"one minute", time.Minute, "1 minute"},
		{"ninety seconds rounds half to even", 90 * time.Second, "2 minutes"},
		{"150 seconds rounds half to even", 150 * time.Second, "2 minutes"},
		{"exactly one hour", time.Hour, "1 hour"},
		{"two hours", 2 * time.Hour, "2 hours"},
		{"three days", 3 * day, "3 days"},
		{"one week", 7 * day, "1 week"},
		{"two months", 60 * day, "2 months"},
		{"year is 356 days", 356 * day, "1 year"},
		{"360 days is already a year", 360 * day, "1 year"},
		{"future timestamp", -time.Hour, "a few seconds"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Since(now.Add(-tt.elapsed), now))
		})
	}
}

func TestSinceUnix(t *testing.T) {
	now := time.Unix(1_700_007_200, 0)
	assert.Equal(t, "2 hours", SinceUnix(1_700_000_000, now))
}
