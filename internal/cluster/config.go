package cluster

import (
	"fmt"
	"net"
	"time"
)

// Config holds the configuration for one cluster node.
type Config struct {
	// NodeID is this replica's unique identifier.
	NodeID string
	// BindAddr is the host:port raft binds for peer communication.
	BindAddr string
	// Peers lists all raft addresses in the cluster, including this node.
	Peers []string
	// HeartbeatTimeout and ElectionTimeout tune failover latency.
	HeartbeatTimeout time.Duration
	ElectionTimeout  time.Duration
}

// Validate checks the configuration and fills in timeout defaults.
func (c *Config) Validate() error {
	if c.NodeID == "" {
		return fmt.Errorf("node id is required")
	}
	if c.BindAddr == "" {
		return fmt.Errorf("bind address is required")
	}
	if _, _, err := net.SplitHostPort(c.BindAddr); err != nil {
		return fmt.Errorf("invalid bind address %q: %w", c.BindAddr, err)
	}
	if len(c.Peers) == 0 {
		return fmt.Errorf("at least one peer is required")
	}
	for i, peer := range c.Peers {
		if _, _, err := net.SplitHostPort(peer); err != nil {
			return fmt.Errorf("invalid peer address %d %q: %w", i, peer, err)
		}
	}

	if c.HeartbeatTimeout == 0 {
		c.HeartbeatTimeout = time.Second
	}
	if c.ElectionTimeout == 0 {
		c.ElectionTimeout = time.Second
	}
	return nil
}
