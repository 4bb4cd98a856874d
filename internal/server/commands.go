package server

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"typescope/internal/metrics"
	"typescope/pkg/channel"
)

const (
	intervalPrefix = "INTERVAL:"
	refreshCommand = "REFRESH"

	commandBufferSize = 4096
)

// CommandKind classifies one inbound command line
type CommandKind int

const (
	// CommandUnknown - unrecognized text
	CommandUnknown CommandKind = iota

	// CommandInterval - INTERVAL:<ms> with a usable value
	CommandInterval

	// CommandRefresh - REFRESH
	CommandRefresh

	// CommandInvalid - INTERVAL: with a malformed, negative or out of range value
	CommandInvalid
)

// String returns the string representation of CommandKind
func (k CommandKind) String() string {
	switch k {
	case CommandInterval:
		return "interval"
	case CommandRefresh:
		return "refresh"
	case CommandInvalid:
		return "invalid"
	default:
		return "unknown"
	}
}

// Command is a parsed command line
type Command struct {
	Kind   CommandKind
	Millis int64
	Raw    string
}

// ParseCommand parses one command line. Values must fit in an int32.
func ParseCommand(line string) Command {
	line = strings.TrimSpace(line)
	cmd := Command{Kind: CommandUnknown, Raw: line}

	switch {
	case line == refreshCommand:
		cmd.Kind = CommandRefresh
	case strings.HasPrefix(line, intervalPrefix):
		v, err := strconv.ParseInt(strings.TrimSpace(line[len(intervalPrefix):]), 10, 32)
		if err != nil || v < 0 {
			cmd.Kind = CommandInvalid
			return cmd
		}
		cmd.Kind = CommandInterval
		cmd.Millis = v
	}
	return cmd
}

// SplitCommands splits one read into command lines. Text after the last
// newline counts as a complete command.
func SplitCommands(data []byte) []string {
	var lines []string
	for _, line := range strings.Split(string(data), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

// apply executes cmd against the server. It never fails.
func (s *Server) apply(cmd Command, logger zerolog.Logger) {
	status := "ok"
	switch cmd.Kind {
	case CommandInterval:
		applied := s.SetInterval(cmd.Millis)
		logger.Info().
			Int64("requested_ms", cmd.Millis).
			Int64("interval_ms", applied.Milliseconds()).
			Msg("Streaming interval updated")
	case CommandRefresh:
		s.RequestRefresh()
		logger.Info().Msg("Refresh requested")
	case CommandInvalid:
		status = "ignored"
		logger.Warn().Str("command", cmd.Raw).Msg("Ignoring malformed interval command")
	default:
		status = "ignored"
		logger.Warn().Str("command", cmd.Raw).Msg("Unknown command")
	}
	metrics.CommandsTotal.WithLabelValues(cmd.Kind.String(), status).Inc()
}

// readCommands polls ch for command text until the channel fails. Once ctx
// is done it keeps reading only while buffered bytes remain, so commands a
// peer sent just before hanging up are still applied. A missing read
// capability ends the reader but not the session.
func (s *Server) readCommands(ctx context.Context, ch channel.Channel, logger zerolog.Logger) {
	buf := make([]byte, commandBufferSize)
	logger.Debug().Msg("Command reader started")

	for {
		n, err := ch.ReadAvailable(buf)
		if n > 0 {
			for _, line := range SplitCommands(buf[:n]) {
				s.apply(ParseCommand(line), logger)
			}
		}
		if err != nil {
			switch {
			case channel.IsNotSupported(err):
				logger.Warn().Err(err).Msg("Command reading not supported, continuing send-only")
			case errors.Is(err, channel.ErrClosed), ctx.Err() != nil:
			default:
				logger.Debug().Err(err).Msg("Command reader stopped")
			}
			return
		}
		if n == 0 && ctx.Err() != nil {
			return
		}
	}
}
