package commands

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaultCalcDate(t *testing.T) {
	tests := []struct {
		name string
		now  time.Time
		want time.Time
	}{
		{
			name: "utc midday",
			now:  time.Date(2025, 6, 15, 12, 30, 0, 0, time.UTC),
			want: time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC),
		},
		{
			// Late evening west of UTC: the instant already belongs to
			// the next UTC day, but the user's date must win.
			name: "west of utc keeps local date",
			now:  time.Date(2025, 1, 1, 22, 0, 0, 0, time.FixedZone("BRT", -3*3600)),
			want: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			// Early morning east of UTC: the instant is still on the
			// previous UTC day.
			name: "east of utc keeps local date",
			now:  time.Date(2025, 1, 2, 1, 0, 0, 0, time.FixedZone("JST", 9*3600)),
			want: time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := defaultCalcDate(tt.now)
			assert.True(t, got.Equal(tt.want), "got %s, want %s", got, tt.want)
		})
	}
}
