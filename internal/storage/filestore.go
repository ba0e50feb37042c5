package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/clarity-ai/beacon/internal/telemetry"
)

// Storage namespace keys. Each key maps to one JSON-array file under the data
// directory. The interaction log and the legacy event log are logically
// independent and are never merged.
const (
	KeyInteractions = "beacon_interactions"
	KeyLegacyEvents = "beacon_event_log"
)

// LogStore is the durable, append-only mirror of every recorded interaction
// event. The whole log lives under a single namespace key as one JSON array;
// Append is read-append-rewrite, so the store is not safe for concurrent
// writer processes (last writer wins).
//
// Absent or unparsable content is treated as empty history, never as an
// error.
type LogStore struct {
	path   string
	logger *zap.Logger
}

// NewLogStore creates a store rooted at dir under the interactions key.
func NewLogStore(dir string, logger *zap.Logger) (*LogStore, error) {
	path, err := namespacePath(dir, KeyInteractions)
	if err != nil {
		return nil, fmt.Errorf("NewLogStore: %w", err)
	}
	return &LogStore{path: path, logger: logger}, nil
}

// ReadAll returns every persisted event in append order.
func (s *LogStore) ReadAll() []telemetry.InteractionEvent {
	return readArray[telemetry.InteractionEvent](s.path, s.logger)
}

// Append persists one more event, rewriting the full namespace content.
func (s *LogStore) Append(event telemetry.InteractionEvent) error {
	events := s.ReadAll()
	events = append(events, event)
	if err := writeArray(s.path, events); err != nil {
		return fmt.Errorf("LogStore.Append: %w", err)
	}
	return nil
}

// Clear removes all durable content for this namespace. In-memory state held
// by callers is untouched; a full reset also requires a fresh recorder.
func (s *LogStore) Clear() error {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("LogStore.Clear: %w", err)
	}
	return nil
}

// LegacyRecord is the older, lightweight event shape kept under its own
// namespace key by the secondary logging path.
type LegacyRecord struct {
	EventType string         `json:"eventType"`
	Timestamp string         `json:"timestamp"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// LegacyStore persists LegacyRecords. Same durability contract as LogStore;
// the two namespaces stay independent.
type LegacyStore struct {
	path   string
	logger *zap.Logger
}

// NewLegacyStore creates a store rooted at dir under the legacy key.
func NewLegacyStore(dir string, logger *zap.Logger) (*LegacyStore, error) {
	path, err := namespacePath(dir, KeyLegacyEvents)
	if err != nil {
		return nil, fmt.Errorf("NewLegacyStore: %w", err)
	}
	return &LegacyStore{path: path, logger: logger}, nil
}

// ReadAll returns every persisted legacy record in append order.
func (s *LegacyStore) ReadAll() []LegacyRecord {
	return readArray[LegacyRecord](s.path, s.logger)
}

// Append persists one more legacy record.
func (s *LegacyStore) Append(record LegacyRecord) error {
	records := s.ReadAll()
	records = append(records, record)
	if err := writeArray(s.path, records); err != nil {
		return fmt.Errorf("LegacyStore.Append: %w", err)
	}
	return nil
}

// Clear removes all durable content for this namespace.
func (s *LegacyStore) Clear() error {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("LegacyStore.Clear: %w", err)
	}
	return nil
}

func namespacePath(dir, key string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return filepath.Join(dir, key+".json"), nil
}

// readArray loads a JSON array of records. Missing files and corrupt content
// both yield an empty slice; corruption is logged, not surfaced.
func readArray[T any](path string, logger *zap.Logger) []T {
	raw, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) && logger != nil {
			logger.Warn("durable log unreadable, starting empty",
				zap.String("path", path),
				zap.Error(err),
			)
		}
		return nil
	}
	var records []T
	if err := json.Unmarshal(raw, &records); err != nil {
		if logger != nil {
			logger.Warn("durable log unparsable, starting empty",
				zap.String("path", path),
				zap.Error(err),
			)
		}
		return nil
	}
	return records
}

func writeArray(path string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return os.WriteFile(path, raw, 0o644)
}
