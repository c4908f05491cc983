package config

import (
	"io"
	"log/slog"
)

// NewLogger creates the JSON logger handed to devices, filtered at the configured log level
func NewLogger(options Options, w io.Writer) (*slog.Logger, error) {
	level, err := options.SlogLevel()
	if err != nil {
		return nil, err
	}

	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})), nil
}
