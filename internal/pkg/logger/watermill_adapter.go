package logger

import (
	"github.com/ThreeDotsLabs/watermill"
)

// WatermillAdapter routes watermill's internal logging through ILogger.
type WatermillAdapter struct {
	log    ILogger
	fields watermill.LogFields
	debug  bool
}

var _ watermill.LoggerAdapter = (*WatermillAdapter)(nil)

func NewWatermillAdapter(log ILogger, debug bool) *WatermillAdapter {
	return &WatermillAdapter{log: log, debug: debug}
}

func (a *WatermillAdapter) Error(msg string, err error, fields watermill.LogFields) {
	details := a.merge(fields)
	details["error"] = err
	a.log.Error("Watermill", msg, details)
}

func (a *WatermillAdapter) Info(msg string, fields watermill.LogFields) {
	a.log.Info("Watermill", msg, a.merge(fields))
}

func (a *WatermillAdapter) Debug(msg string, fields watermill.LogFields) {
	if a.debug {
		a.log.Debug("Watermill", msg, a.merge(fields))
	}
}

func (a *WatermillAdapter) Trace(msg string, fields watermill.LogFields) {
	a.Debug(msg, fields)
}

func (a *WatermillAdapter) With(fields watermill.LogFields) watermill.LoggerAdapter {
	return &WatermillAdapter{log: a.log, fields: a.fields.Add(fields), debug: a.debug}
}

func (a *WatermillAdapter) merge(fields watermill.LogFields) map[string]interface{} {
	out := make(map[string]interface{}, len(a.fields)+len(fields))
	for k, v := range a.fields {
		out[k] = v
	}
	for k, v := range fields {
		out[k] = v
	}
	return out
}
