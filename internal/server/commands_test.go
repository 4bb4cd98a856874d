package server

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		name   string
		line   string
		kind   CommandKind
		millis int64
	}{
		{"interval", "INTERVAL:250", CommandInterval, 250},
		{"interval below floor", "INTERVAL:50", CommandInterval, 50},
		{"interval zero", "INTERVAL:0", CommandInterval, 0},
		{"interval padded", "  INTERVAL: 500 \r", CommandInterval, 500},
		{"interval max int32", "INTERVAL:2147483647", CommandInterval, 2147483647},
		{"interval overflow", "INTERVAL:50000000000", CommandInvalid, 0},
		{"interval negative", "INTERVAL:-5", CommandInvalid, 0},
		{"interval non-numeric", "INTERVAL:fast", CommandInvalid, 0},
		{"interval empty", "INTERVAL:", CommandInvalid, 0},
		{"interval decimal", "INTERVAL:1.5", CommandInvalid, 0},
		{"refresh", "REFRESH", CommandRefresh, 0},
		{"refresh with newline", "REFRESH\n", CommandRefresh, 0},
		{"lowercase", "refresh", CommandUnknown, 0},
		{"garbage", "hello", CommandUnknown, 0},
		{"empty", "", CommandUnknown, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := ParseCommand(tt.line)
			assert.Equal(t, tt.kind, cmd.Kind)
			assert.Equal(t, tt.millis, cmd.Millis)
		})
	}
}

func TestSplitCommands(t *testing.T) {
	assert.Equal(t, []string{"INTERVAL:200", "REFRESH"}, SplitCommands([]byte("INTERVAL:200\r\n\nREFRESH")))
	assert.Equal(t, []string{"REFRESH"}, SplitCommands([]byte("REFRESH")))
	assert.Nil(t, SplitCommands([]byte("\n \n")))
}

func TestApply_Interval(t *testing.T) {
	s := New(&fakeOpener{}, &fakeSnapshotter{}, WithLogger(zerolog.Nop()))
	logger := zerolog.Nop()

	tests := []struct {
		line string
		want time.Duration
	}{
		{"INTERVAL:250", 250 * time.Millisecond},
		{"INTERVAL:50", 100 * time.Millisecond},
		{"INTERVAL:-1", 100 * time.Millisecond},
		{"INTERVAL:1500", 1500 * time.Millisecond},
		{"INTERVAL:50000000000", 1500 * time.Millisecond},
		{"INTERVAL:abc", 1500 * time.Millisecond},
		{"NOPE", 1500 * time.Millisecond},
		{"INTERVAL:0", 100 * time.Millisecond},
	}
	for _, tt := range tests {
		s.apply(ParseCommand(tt.line), logger)
		assert.Equal(t, tt.want, s.Interval(), tt.line)
	}
}

func TestApply_Refresh(t *testing.T) {
	s := New(&fakeOpener{}, &fakeSnapshotter{}, WithLogger(zerolog.Nop()))

	s.apply(ParseCommand("REFRESH"), zerolog.Nop())
	s.apply(ParseCommand("REFRESH"), zerolog.Nop())

	assert.Len(t, s.refresh, 1, "refresh requests coalesce")
}

func TestCommandKind_String(t *testing.T) {
	assert.Equal(t, "interval", CommandInterval.String())
	assert.Equal(t, "refresh", CommandRefresh.String())
	assert.Equal(t, "invalid", CommandInvalid.String())
	assert.Equal(t, "unknown", CommandUnknown.String())
}
