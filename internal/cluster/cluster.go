package cluster

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/hashicorp/raft"
)

const applyTimeout = 5 * time.Second

// Manager owns the raft node for one stitcher replica.
type Manager struct {
	config    Config
	raft      *raft.Raft
	fsm       *CycleFSM
	transport *raft.NetworkTransport
	logger    *slog.Logger
	mu        sync.RWMutex
	shutdown  bool
}

// NewManager creates a cluster manager.
func NewManager(config Config, logger *slog.Logger) (*Manager, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Manager{
		config: config,
		fsm:    NewCycleFSM(logger),
		logger: logger,
	}, nil
}

// Start brings up the raft node with in-memory stores and bootstraps the
// configured peer set (joining an existing cluster is tolerated).
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.raft != nil {
		return fmt.Errorf("cluster already started")
	}

	raftConfig := raft.DefaultConfig()
	// Bind address doubles as the server ID so the bootstrap configuration
	// and the local node always agree.
	raftConfig.LocalID = raft.ServerID(m.config.BindAddr)
	raftConfig.HeartbeatTimeout = m.config.HeartbeatTimeout
	raftConfig.ElectionTimeout = m.config.ElectionTimeout
	raftConfig.LeaderLeaseTimeout = m.config.HeartbeatTimeout
	raftConfig.Logger = newRaftHCLogger()

	logStore := raft.NewInmemStore()
	stableStore := raft.NewInmemStore()
	snapshotStore := raft.NewInmemSnapshotStore()

	addr, err := net.ResolveTCPAddr("tcp", m.config.BindAddr)
	if err != nil {
		return fmt.Errorf("resolve bind address: %w", err)
	}

	transport, err := raft.NewTCPTransport(m.config.BindAddr, addr, 3, 10*time.Second, nil)
	if err != nil {
		return fmt.Errorf("create transport: %w", err)
	}
	m.transport = transport

	r, err := raft.NewRaft(raftConfig, m.fsm, logStore, stableStore, snapshotStore, transport)
	if err != nil {
		transport.Close()
		return fmt.Errorf("create raft: %w", err)
	}
	m.raft = r

	servers := make([]raft.Server, 0, len(m.config.Peers))
	for _, peer := range m.config.Peers {
		servers = append(servers, raft.Server{
			ID:       raft.ServerID(peer),
			Address:  raft.ServerAddress(peer),
			Suffrage: raft.Voter,
		})
	}

	future := m.raft.BootstrapCluster(raft.Configuration{Servers: servers})
	if err := future.Error(); err != nil && err != raft.ErrCantBootstrap {
		m.logger.Error("failed to bootstrap cluster", "error", err)
		// The node may be joining an already-bootstrapped cluster.
	}

	m.logger.Info("cluster started",
		"node_id", m.config.NodeID,
		"bind", m.config.BindAddr,
		"peers", len(m.config.Peers),
	)
	return nil
}

// RecordCycle replicates a published-cycle record. Only the leader can apply;
// followers get raft.ErrNotLeader.
func (m *Manager) RecordCycle(rec CycleRecord) error {
	m.mu.RLock()
	if m.shutdown {
		m.mu.RUnlock()
		return fmt.Errorf("cluster is shut down")
	}
	r := m.raft
	m.mu.RUnlock()

	if r == nil {
		return fmt.Errorf("cluster not started")
	}

	data, err := EncodeCommand(Command{
		Type: CommandRecordCycle,
		Data: RecordCycleCommand{Record: rec},
	})
	if err != nil {
		return fmt.Errorf("encode command: %w", err)
	}

	if err := r.Apply(data, applyTimeout).Error(); err != nil {
		return fmt.Errorf("apply command: %w", err)
	}
	return nil
}

// GetState returns the replicated state.
func (m *Manager) GetState() State {
	return m.fsm.GetState()
}

// IsLeader reports whether this node is the raft leader.
func (m *Manager) IsLeader() bool {
	m.mu.RLock()
	r := m.raft
	m.mu.RUnlock()

	return r != nil && r.State() == raft.Leader
}

// LeaderAddr returns the current leader's address, or "" if unknown.
func (m *Manager) LeaderAddr() string {
	m.mu.RLock()
	r := m.raft
	m.mu.RUnlock()

	if r == nil {
		return ""
	}
	leaderAddr, _ := r.LeaderWithID()
	return string(leaderAddr)
}

// State returns this node's raft role as a string.
func (m *Manager) State() string {
	m.mu.RLock()
	r := m.raft
	m.mu.RUnlock()

	if r == nil {
		return "NotStarted"
	}
	return r.State().String()
}

// NodeID returns this node's configured ID.
func (m *Manager) NodeID() string {
	return m.config.NodeID
}

// WaitForLeader blocks until any leader is elected or the context ends.
func (m *Manager) WaitForLeader(ctx context.Context) error {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if m.LeaderAddr() != "" {
				return nil
			}
		}
	}
}

// Shutdown stops the raft node and closes the transport.
func (m *Manager) Shutdown() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.shutdown {
		return nil
	}
	m.shutdown = true

	if m.raft != nil {
		if err := m.raft.Shutdown().Error(); err != nil {
			m.logger.Error("failed to shutdown raft", "error", err)
			return fmt.Errorf("shutdown raft: %w", err)
		}
	}
	if m.transport != nil {
		if err := m.transport.Close(); err != nil {
			m.logger.Error("failed to close transport", "error", err)
			return fmt.Errorf("close transport: %w", err)
		}
	}

	m.logger.Info("cluster shut down")
	return nil
}
