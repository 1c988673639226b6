// Package cluster provides raft-based leader election for stitcher replicas.
// Only the elected leader runs reconciliation cycles; the replicated state
// records the last published cycle so a failover leader knows where the
// window stood.
package cluster

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/hashicorp/raft"
)

func init() {
	gob.Register(RecordCycleCommand{})
}

// CycleRecord is the replicated summary of one published cycle.
type CycleRecord struct {
	// WindowStartKey and WindowEndKey are the HHMM keys bounding the
	// published window.
	WindowStartKey string
	WindowEndKey   string
	// Slots is the window length.
	Slots int
	// RepairedTS and RepairedMP4 count silence segments synthesized.
	RepairedTS  int
	RepairedMP4 int
	// Pruned counts segments deleted by retention.
	Pruned int
	// CompletedAt is when the cycle finished, UTC.
	CompletedAt time.Time
}

// State is the full replicated state.
type State struct {
	// LastCycle is the most recently published cycle.
	LastCycle CycleRecord
	// Cycles counts cycles recorded since the cluster formed.
	Cycles uint64
}

// CommandType identifies the type of raft command.
type CommandType uint8

// CommandRecordCycle records a published cycle.
const CommandRecordCycle CommandType = 1

// Command is one raft log entry.
type Command struct {
	Type CommandType
	Data any
}

// RecordCycleCommand carries a cycle record.
type RecordCycleCommand struct {
	Record CycleRecord
}

// CycleFSM implements raft.FSM over the published-cycle state.
type CycleFSM struct {
	mu     sync.RWMutex
	state  State
	logger *slog.Logger
}

// NewCycleFSM creates an empty FSM.
func NewCycleFSM(logger *slog.Logger) *CycleFSM {
	return &CycleFSM{logger: logger}
}

// Apply applies a raft log entry to the FSM.
func (f *CycleFSM) Apply(log *raft.Log) any {
	var cmd Command
	if err := gob.NewDecoder(bytes.NewReader(log.Data)).Decode(&cmd); err != nil {
		f.logger.Error("failed to decode command", "error", err)
		return fmt.Errorf("decode command: %w", err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	switch cmd.Type {
	case CommandRecordCycle:
		rec, ok := cmd.Data.(RecordCycleCommand)
		if !ok {
			return fmt.Errorf("invalid record cycle command data")
		}
		f.state.LastCycle = rec.Record
		f.state.Cycles++
		f.logger.Debug("recorded cycle",
			"window_end", rec.Record.WindowEndKey,
			"cycles", f.state.Cycles,
		)
		return nil
	default:
		f.logger.Error("unknown command type", "type", cmd.Type)
		return fmt.Errorf("unknown command type: %d", cmd.Type)
	}
}

// Snapshot returns a point-in-time copy of the state.
func (f *CycleFSM) Snapshot() (raft.FSMSnapshot, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return &fsmSnapshot{state: f.state}, nil
}

// Restore replaces the state from a snapshot.
func (f *CycleFSM) Restore(snapshot io.ReadCloser) error {
	defer snapshot.Close()

	var state State
	if err := gob.NewDecoder(snapshot).Decode(&state); err != nil {
		return fmt.Errorf("decode snapshot: %w", err)
	}

	f.mu.Lock()
	f.state = state
	f.mu.Unlock()

	f.logger.Info("restored state from snapshot", "cycles", state.Cycles)
	return nil
}

// GetState returns a copy of the current state.
func (f *CycleFSM) GetState() State {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.state
}

type fsmSnapshot struct {
	state State
}

// Persist writes the snapshot to the sink.
func (s *fsmSnapshot) Persist(sink raft.SnapshotSink) error {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(s.state); err != nil {
		sink.Cancel()
		return fmt.Errorf("encode snapshot: %w", err)
	}

	if _, err := sink.Write(buf.Bytes()); err != nil {
		sink.Cancel()
		return fmt.Errorf("write snapshot: %w", err)
	}

	return sink.Close()
}

// Release releases any resources held by the snapshot.
func (s *fsmSnapshot) Release() {}

// EncodeCommand encodes a command for raft submission.
func EncodeCommand(cmd Command) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(cmd); err != nil {
		return nil, fmt.Errorf("encode command: %w", err)
	}
	return buf.Bytes(), nil
}
