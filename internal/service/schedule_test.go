package service

import (
	"testing"
	"time"
)

func TestParseSpanishDate(t *testing.T) {
	// Tuesday 10:00
	now := time.Date(2024, 6, 4, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		text string
		want time.Time
		ok   bool
	}{
		{
			name: "tomorrow with hour",
			text: "mañana a las 10",
			want: time.Date(2024, 6, 5, 10, 0, 0, 0, time.UTC),
			ok:   true,
		},
		{
			name: "today with minutes",
			text: "hoy a las 18:30",
			want: time.Date(2024, 6, 4, 18, 30, 0, 0, time.UTC),
			ok:   true,
		},
		{
			name: "day after tomorrow defaults morning",
			text: "pasado mañana",
			want: time.Date(2024, 6, 6, 9, 0, 0, 0, time.UTC),
			ok:   true,
		},
		{
			name: "tomorrow without accent",
			text: "manana a las 14",
			want: time.Date(2024, 6, 5, 14, 0, 0, 0, time.UTC),
			ok:   true,
		},
		{
			name: "bare clock later today",
			text: "15:30",
			want: time.Date(2024, 6, 4, 15, 30, 0, 0, time.UTC),
			ok:   true,
		},
		{
			name: "bare clock already passed rolls to tomorrow",
			text: "08:00",
			want: time.Date(2024, 6, 5, 8, 0, 0, 0, time.UTC),
			ok:   true,
		},
		{
			name: "no date content",
			text: "cuando puedas",
			ok:   false,
		},
		{
			name: "empty",
			text: "   ",
			ok:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseSpanishDate(tt.text, now)
			if ok != tt.ok {
				t.Fatalf("ParseSpanishDate(%q) ok = %v, want %v", tt.text, ok, tt.ok)
			}
			if ok && !got.Equal(tt.want) {
				t.Fatalf("ParseSpanishDate(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}
