package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/sse"
	"github.com/smazurov/vcapture/internal/api/models"
	"github.com/smazurov/vcapture/internal/events"
	"github.com/smazurov/vcapture/internal/logging"
)

// registerLogRoutes registers the log streaming SSE endpoint and the
// runtime log level endpoints.
func (s *Server) registerLogRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "get-log-levels",
		Method:      http.MethodGet,
		Path:        "/api/logs/levels",
		Summary:     "Log Levels",
		Description: "Get the effective log level of every module",
		Tags:        []string{"logs"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, func(_ context.Context, _ *struct{}) (*models.LogLevelsResponse, error) {
		return &models.LogLevelsResponse{
			Body: models.LogLevelsData{Levels: logging.Levels()},
		}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "set-log-level",
		Method:      http.MethodPut,
		Path:        "/api/logs/levels",
		Summary:     "Set Log Level",
		Description: "Change the log level of one module, or of all modules when module is empty. Not persisted.",
		Tags:        []string{"logs"},
		Security:    withAuth(),
		Errors:      []int{400, 401},
	}, func(_ context.Context, input *models.LogLevelRequest) (*models.LogLevelsResponse, error) {
		if err := logging.SetLevel(input.Body.Module, input.Body.Level); err != nil {
			return nil, huma.Error400BadRequest("Invalid log level", err)
		}
		s.logger.Info("Log level changed", "module", input.Body.Module, "level", input.Body.Level)
		return &models.LogLevelsResponse{
			Body: models.LogLevelsData{Levels: logging.Levels()},
		}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "get-logs",
		Method:      http.MethodGet,
		Path:        "/api/logs",
		Summary:     "Recent Logs",
		Description: "Newest buffered log entries, optionally filtered by module and minimum level",
		Tags:        []string{"logs"},
		Security:    withAuth(),
		Errors:      []int{400, 401},
	}, func(_ context.Context, input *models.LogQuery) (*models.LogEntriesResponse, error) {
		filter, err := logFilter(input)
		if err != nil {
			return nil, err
		}
		entries := []logging.LogEntry{}
		if buffer := logging.GetBuffer(); buffer != nil {
			if tail := buffer.Tail(input.Limit, filter); tail != nil {
				entries = tail
			}
		}
		return &models.LogEntriesResponse{Body: models.LogEntriesData{Entries: entries}}, nil
	})

	sse.Register(s.api, huma.Operation{
		OperationID: "logs-stream",
		Method:      http.MethodGet,
		Path:        "/api/logs/stream",
		Summary:     "Log Stream",
		Description: "Buffered logs matching the filter followed by new entries as they are logged",
		Tags:        []string{"logs"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, map[string]any{"message": events.LogEntryEvent{}}, func(ctx context.Context, input *models.LogQuery, send sse.Sender) {
		filter, err := logFilter(input)
		if err != nil {
			filter = logging.Filter{Module: input.Module}
		}

		// Subscribe before replaying so nothing logged in between is lost
		eventCh := make(chan any, 100)
		unsubscribe := events.SubscribeToChannel[events.LogEntryEvent](s.eventBus, eventCh)
		defer unsubscribe()

		if buffer := logging.GetBuffer(); buffer != nil {
			for _, entry := range buffer.Tail(input.Limit, filter) {
				if err := send.Data(logEvent(entry)); err != nil {
					return
				}
			}
		}

		for {
			select {
			case <-ctx.Done():
				return
			case e := <-eventCh:
				event := e.(events.LogEntryEvent)
				if !filter.Match(logging.LogEntry{Module: event.Module, Level: event.Level}) {
					continue
				}
				if err := send.Data(event); err != nil {
					return
				}
			}
		}
	})
}

// logFilter validates the level of a log query.
func logFilter(q *models.LogQuery) (logging.Filter, error) {
	if q.Level != "" && !logging.ValidLevel(q.Level) {
		return logging.Filter{}, huma.Error400BadRequest("Unknown log level " + q.Level)
	}
	return logging.Filter{Module: q.Module, MinLevel: q.Level}, nil
}

func logEvent(entry logging.LogEntry) events.LogEntryEvent {
	return events.LogEntryEvent{
		Timestamp:  entry.Timestamp.Format(time.RFC3339Nano),
		Level:      entry.Level,
		Module:     entry.Module,
		Message:    entry.Message,
		Attributes: entry.Attributes,
	}
}
