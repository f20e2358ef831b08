package logging

import (
	"time"

	"go.uber.org/zap"
)

// =============================================================================
// AUDIT EVENT TYPES
// =============================================================================

// AuditEventType names a build event recorded on the audit trail.
type AuditEventType string

const (
	// Pipeline runs
	AuditRunStart    AuditEventType = "run_start"
	AuditRunComplete AuditEventType = "run_complete"
	AuditRunError    AuditEventType = "run_error"

	// External tool invocations
	AuditToolComplete AuditEventType = "tool_complete"
	AuditToolError    AuditEventType = "tool_error"

	// Generated artifacts
	AuditFileWrite AuditEventType = "file_write"
	AuditFileError AuditEventType = "file_error"
)

// AuditEvent is one structured audit record.
type AuditEvent struct {
	EventType   AuditEventType
	RunID       string
	Compartment string
	Target      string // tool binary or artifact path
	Success     bool
	Duration    time.Duration
	Error       string
}

// AuditLogger writes audit events scoped to a pipeline run.
type AuditLogger struct {
	runID string
}

// Audit returns an audit logger for the given run ID.
func Audit(runID string) *AuditLogger {
	return &AuditLogger{runID: runID}
}

// Log writes an audit event under the "audit" logger name.
func (a *AuditLogger) Log(event AuditEvent) {
	if event.RunID == "" {
		event.RunID = a.runID
	}

	fields := []zap.Field{
		zap.String("event", string(event.EventType)),
		zap.String("run", event.RunID),
		zap.Bool("success", event.Success),
	}
	if event.Compartment != "" {
		fields = append(fields, zap.String("compartment", event.Compartment))
	}
	if event.Target != "" {
		fields = append(fields, zap.String("target", event.Target))
	}
	if event.Duration > 0 {
		fields = append(fields, zap.Duration("duration", event.Duration))
	}
	if event.Error != "" {
		fields = append(fields, zap.String("error", event.Error))
	}

	l := Zap().Named("audit")
	if event.Success {
		l.Debug("audit", fields...)
	} else {
		l.Warn("audit", fields...)
	}
}

// RunStart records the start of a pipeline run.
func (a *AuditLogger) RunStart(description string) {
	a.Log(AuditEvent{EventType: AuditRunStart, Target: description, Success: true})
}

// RunComplete records the end of a pipeline run.
func (a *AuditLogger) RunComplete(d time.Duration, err error) {
	ev := AuditEvent{EventType: AuditRunComplete, Duration: d, Success: err == nil}
	if err != nil {
		ev.EventType = AuditRunError
		ev.Error = err.Error()
	}
	a.Log(ev)
}

// ToolExec records one external tool invocation.
func (a *AuditLogger) ToolExec(compartment, tool string, d time.Duration, err error) {
	ev := AuditEvent{EventType: AuditToolComplete, Compartment: compartment, Target: tool, Duration: d, Success: err == nil}
	if err != nil {
		ev.EventType = AuditToolError
		ev.Error = err.Error()
	}
	a.Log(ev)
}

// FileWrite records one generated artifact written to disk.
func (a *AuditLogger) FileWrite(path string, err error) {
	ev := AuditEvent{EventType: AuditFileWrite, Target: path, Success: err == nil}
	if err != nil {
		ev.EventType = AuditFileError
		ev.Error = err.Error()
	}
	a.Log(ev)
}
