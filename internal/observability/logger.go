package observability

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// InitLogger installs the process-wide logger. JSON output is the default;
// HL7CTL_LOG_PRETTY switches to the console writer for interactive runs.
func InitLogger(app string) zerolog.Logger {
	var out = zerolog.LevelWriter(zerolog.MultiLevelWriter(os.Stdout))
	if os.Getenv("HL7CTL_LOG_PRETTY") != "" {
		out = zerolog.MultiLevelWriter(zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		})
	}
	logger := zerolog.New(out).With().Timestamp().Str("app", app).Logger()
	log.Logger = logger
	return logger
}
