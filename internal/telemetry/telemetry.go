// Package telemetry is the engine's structured logging facade. It keeps
// the teacher's named-event-logger call convention (LogDebateEvent,
// LogTurnEvent, ...) but delegates formatting, levels, and output to
// logrus instead of a hand-rolled formatter.
package telemetry

import (
	"os"
	"time"

	"github.com/sirupsen/logrus"
)

var defaultLogger = newLogrus()

func newLogrus() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stdout)
	l.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339})
	l.SetLevel(logrus.InfoLevel)
	return l
}

// SetLevel adjusts the default logger's minimum level, e.g. from config.
func SetLevel(level string) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return
	}
	defaultLogger.SetLevel(lvl)
}

// Fields is a convenience alias matching the teacher's
// map[string]interface{} context argument.
type Fields = map[string]interface{}

func entry(fields Fields) *logrus.Entry {
	return defaultLogger.WithFields(logrus.Fields(fields))
}

// LogDebateEvent logs a lifecycle-level debate event.
func LogDebateEvent(event, debateID string, details Fields) {
	f := merge(Fields{"event": event, "debate_id": debateID}, details)
	entry(f).Info("debate event")
}

// LogTurnEvent logs a single turn's progress.
func LogTurnEvent(event, debateID, agentID string, round, turn int, details Fields) {
	f := merge(Fields{
		"event": event, "debate_id": debateID, "agent_id": agentID,
		"round": round, "turn": turn,
	}, details)
	entry(f).Info("turn event")
}

// LogGatewayEvent logs a model-gateway dispatch attempt.
func LogGatewayEvent(event, provider, model string, details Fields) {
	f := merge(Fields{"event": event, "provider": provider, "model": model}, details)
	entry(f).Info("gateway event")
}

// LogJudgeEvent logs judge invocation and parsing outcomes.
func LogJudgeEvent(event, debateID string, details Fields) {
	f := merge(Fields{"event": event, "debate_id": debateID}, details)
	entry(f).Info("judge event")
}

// LogBroadcastEvent logs broadcaster publish/subscribe activity.
func LogBroadcastEvent(event, debateID string, details Fields) {
	f := merge(Fields{"event": event, "debate_id": debateID}, details)
	entry(f).Debug("broadcast event")
}

// LogHTTPRequest mirrors the teacher's transport-level request logging.
func LogHTTPRequest(method, path string, statusCode int, duration time.Duration, details Fields) {
	f := merge(Fields{
		"method": method, "path": path, "status_code": statusCode,
		"duration_ms": duration.Milliseconds(),
	}, details)
	if statusCode >= 500 {
		entry(f).Error("http request")
	} else if statusCode >= 400 {
		entry(f).Warn("http request")
	} else {
		entry(f).Info("http request")
	}
}

// Error logs an unstructured failure outside the named-event helpers.
func Error(msg string, details Fields) {
	entry(details).Error(msg)
}

func merge(base Fields, extra Fields) Fields {
	out := make(Fields, len(base)+len(extra))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range extra {
		out[k] = v
	}
	return out
}
