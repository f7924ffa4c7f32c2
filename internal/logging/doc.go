// Package logging provides per-module slog loggers for ledsim.
//
// Every record is written to stderr as text or JSON, to the systemd journal
// when journald is reachable, and to an in-memory ring buffer that backs the
// /api/logs/stream endpoint. Stdout is reserved for the terminal display.
//
// Initialize once at startup, then ask for a module logger:
//
//	logging.Initialize(logging.Config{
//		Level:  "info",
//		Format: "text",
//		Modules: map[string]string{
//			"director": "debug",
//		},
//	})
//
//	logger := logging.GetLogger("director")
//	logger.Info("Director started", "leds", 100)
//
// Loggers obtained before Initialize log text to stderr at info and are
// rebuilt with the full handler chain once Initialize runs. Module levels can
// be changed at runtime with SetLevel.
//
// In the config file:
//
//	[logging]
//	level = "info"
//	format = "text"
//
//	[logging.modules]
//	director = "debug"
//	sink = "warn"
//
// Journal entries carry SYSLOG_IDENTIFIER=ledsim and one upper-case field per
// attribute:
//
//	journalctl -t ledsim MODULE=director
//	journalctl -t ledsim -p warning -f
package logging
