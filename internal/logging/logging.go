package logging

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	FormatConsole = "console"
	FormatJSON    = "json"
)

// InitDefault sets up a console logger before flags are parsed.
func InitDefault() {
	Init("info", FormatConsole, false)
}

// Init configures the global logger. An unknown level falls back to info,
// so a typo in configuration never silences logging entirely.
func Init(level, format string, noColor bool) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)

	if format == FormatJSON {
		log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
		return
	}

	writer := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.Kitchen,
		NoColor:    noColor,
	}
	log.Logger = zerolog.New(writer).With().Timestamp().Logger()
}
