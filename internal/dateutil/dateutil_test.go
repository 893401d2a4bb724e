package dateutil

import (
	"errors"
	"strings"
	"testing"
	"time"
)

// ---------------------------------------------------------------------------
// TestParseDateFormat - Token conversion to Go layouts
// ---------------------------------------------------------------------------

func TestParseDateFormat(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		format  string
		want    string
		wantErr error
	}{
		{
			name:   "YYYY converts to Go year format",
			format: "YYYY",
			want:   "2006",
		},
		{
			name:   "MMMM converts to full month name",
			format: "MMMM",
			want:   "January",
		},
		{
			name:   "M converts to non-padded month",
			format: "M",
			want:   "1",
		},
		{
			name:   "footer format YYYY/MM/DD",
			format: "YYYY/MM/DD",
			want:   "2006/01/02",
		},
		{
			name:   "time tokens are case sensitive",
			format: "YYYY-MM-DD HH:mm:ss",
			want:   "2006-01-02 15:04:05",
		},
		{
			name:   "bracket escapes literal text",
			format: "[Date:] YYYY",
			want:   "Date: 2006",
		},
		{
			name:   "Japanese separators pass through",
			format: "YYYY年M月D日",
			want:   "2006年1月2日",
		},
		{
			name:    "empty format",
			format:  "",
			wantErr: ErrInvalidDateFormat,
		},
		{
			name:    "unclosed bracket",
			format:  "[Date YYYY",
			wantErr: ErrInvalidDateFormat,
		},
		{
			name:    "format too long",
			format:  strings.Repeat("Y", MaxDateFormatLength+1),
			wantErr: ErrInvalidDateFormat,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := ParseDateFormat(tt.format)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("ParseDateFormat(%q) error = %v, want %v", tt.format, err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseDateFormat(%q) unexpected error: %v", tt.format, err)
			}
			if got != tt.want {
				t.Errorf("ParseDateFormat(%q) = %q, want %q", tt.format, got, tt.want)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// TestParseTimestamp - Export timestamp layouts
// ---------------------------------------------------------------------------

func TestParseTimestamp(t *testing.T) {
	t.Parallel()

	jst := time.FixedZone("", 9*60*60)

	tests := []struct {
		name    string
		value   string
		want    time.Time
		wantErr bool
	}{
		{
			name:  "RFC 3339 with offset",
			value: "2020-04-01T10:20:30.000+09:00",
			want:  time.Date(2020, time.April, 1, 10, 20, 30, 0, jst),
		},
		{
			name:  "RFC 3339 UTC",
			value: "2020-04-01T01:20:30Z",
			want:  time.Date(2020, time.April, 1, 1, 20, 30, 0, time.UTC),
		},
		{
			name:  "space separated with numeric offset",
			value: "2020-04-01 10:20:30 +0900",
			want:  time.Date(2020, time.April, 1, 10, 20, 30, 0, jst),
		},
		{
			name:  "date only",
			value: "2020-04-01",
			want:  time.Date(2020, time.April, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			name:  "surrounding whitespace is ignored",
			value: "  2020-04-01  ",
			want:  time.Date(2020, time.April, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			name:    "empty value",
			value:   "",
			wantErr: true,
		},
		{
			name:    "not a date",
			value:   "yesterday",
			wantErr: true,
		},
		{
			name:    "impossible month",
			value:   "2020-13-01",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := ParseTimestamp(tt.value)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidTimestamp) {
					t.Fatalf("ParseTimestamp(%q) error = %v, want %v", tt.value, err, ErrInvalidTimestamp)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseTimestamp(%q) unexpected error: %v", tt.value, err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("ParseTimestamp(%q) = %v, want %v", tt.value, got, tt.want)
			}
		})
	}
}
