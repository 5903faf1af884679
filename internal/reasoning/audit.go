package reasoning

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
)

// AuditLog represents a single reasoning call record.
type AuditLog struct {
	Timestamp time.Time    `json:"timestamp"`
	Provider  ProviderType `json:"provider"`
	Category  string       `json:"category"`
	Success   bool         `json:"success"`
	Error     string       `json:"error,omitempty"`
	DurationMs int64       `json:"durationMs"`
	TokensIn  int          `json:"tokensIn,omitempty"`
	TokensOut int          `json:"tokensOut,omitempty"`
}

// AuditLogger records every reasoner call for later export alongside a run's
// report, so a reviewer can see which provider classified which category and
// how long it took.
type AuditLogger interface {
	LogReasoning(provider ProviderType, category string, success bool, duration time.Duration, err error, tokensIn, tokensOut int) error
	GetLogs(limit int) ([]AuditLog, error)
	ExportToJSON(w io.Writer) error
	Close() error
}

// JSONLAuditLogger appends one JSON object per line to a file. There is no
// database driver in this build's dependency set, so the audit trail is a
// flat append-only file instead of a SQL table.
type JSONLAuditLogger struct {
	mu     sync.Mutex
	path   string
	file   *os.File
	logger arbor.ILogger
}

// NewJSONLAuditLogger opens (creating if necessary) path for append and
// returns a logger backed by it.
func NewJSONLAuditLogger(path string, logger arbor.ILogger) (*JSONLAuditLogger, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit log file %s: %w", path, err)
	}
	return &JSONLAuditLogger{path: path, file: file, logger: logger}, nil
}

// LogReasoning appends a reasoning call record.
func (l *JSONLAuditLogger) LogReasoning(provider ProviderType, category string, success bool, duration time.Duration, opErr error, tokensIn, tokensOut int) error {
	entry := AuditLog{
		Timestamp:  time.Now(),
		Provider:   provider,
		Category:   category,
		Success:    success,
		DurationMs: duration.Milliseconds(),
		TokensIn:   tokensIn,
		TokensOut:  tokensOut,
	}
	if opErr != nil {
		entry.Error = opErr.Error()
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal audit entry: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, err := l.file.Write(append(data, '\n')); err != nil {
		if l.logger != nil {
			l.logger.Error().Err(err).Str("category", category).Msg("Failed to append audit log entry")
		}
		return fmt.Errorf("failed to write audit entry: %w", err)
	}
	return nil
}

// GetLogs returns up to limit of the most recent entries.
func (l *JSONLAuditLogger) GetLogs(limit int) ([]AuditLog, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	logs, err := l.readAll()
	if err != nil {
		return nil, err
	}

	if limit > 0 && len(logs) > limit {
		logs = logs[len(logs)-limit:]
	}
	return logs, nil
}

// ExportToJSON writes the full audit trail as a JSON array.
func (l *JSONLAuditLogger) ExportToJSON(w io.Writer) error {
	l.mu.Lock()
	logs, err := l.readAll()
	l.mu.Unlock()
	if err != nil {
		return err
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(logs); err != nil {
		return fmt.Errorf("failed to encode audit logs to JSON: %w", err)
	}
	return nil
}

// readAll rereads the backing file from the start. Audit trails are small
// relative to a single comparison run, so this is not a hot path.
func (l *JSONLAuditLogger) readAll() ([]AuditLog, error) {
	if _, err := l.file.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("failed to seek audit log file: %w", err)
	}

	var logs []AuditLog
	scanner := bufio.NewScanner(l.file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var entry AuditLog
		if err := json.Unmarshal(line, &entry); err != nil {
			if l.logger != nil {
				l.logger.Warn().Err(err).Msg("Skipping malformed audit log line")
			}
			continue
		}
		logs = append(logs, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan audit log file: %w", err)
	}

	if _, err := l.file.Seek(0, io.SeekEnd); err != nil {
		return nil, fmt.Errorf("failed to seek audit log file back to end: %w", err)
	}

	return logs, nil
}

// Close closes the backing file.
func (l *JSONLAuditLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.file.Close()
}

// NullAuditLogger is a no-op implementation of AuditLogger used when
// auditing is disabled.
type NullAuditLogger struct{}

func NewNullAuditLogger() *NullAuditLogger {
	return &NullAuditLogger{}
}

func (l *NullAuditLogger) LogReasoning(provider ProviderType, category string, success bool, duration time.Duration, err error, tokensIn, tokensOut int) error {
	return nil
}

func (l *NullAuditLogger) GetLogs(limit int) ([]AuditLog, error) {
	return []AuditLog{}, nil
}

func (l *NullAuditLogger) ExportToJSON(w io.Writer) error {
	_, err := w.Write([]byte("[]"))
	return err
}

func (l *NullAuditLogger) Close() error {
	return nil
}
