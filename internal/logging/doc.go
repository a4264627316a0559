// Package logging gives every vcapture module its own slog logger with an
// independently adjustable level.
//
// Records go to stdout (text or JSON), to the systemd journal when its
// socket is reachable, and to an in-memory ring buffer that backs the
// /api/logs endpoints:
//
//	logging.Initialize(logging.Config{
//		Level:   "info",
//		Format:  "text",
//		Modules: map[string]string{"driver": "debug"},
//	})
//	logger := logging.GetLogger("capture")
//	logger.Info("Video capture initialized", "frames", 3)
//
// Module levels can be changed at runtime with [SetLevel]; the config
// watcher calls it when the [logging] table of the config file changes and
// the API exposes it under /api/logs/levels.
//
// Journal entries carry SYSLOG_IDENTIFIER=vcapture and one upper-cased field
// per attribute, with groups joined by underscores:
//
//	journalctl -t vcapture MODULE=driver -p warning
//	journalctl -t vcapture -f OPERATION=start
package logging
