package cluster

import (
	"io"

	"github.com/hashicorp/go-hclog"
)

// newRaftHCLogger returns a silent hclog.Logger for raft; raft's own logging
// is noisy and everything operators need is surfaced through slog.
func newRaftHCLogger() hclog.Logger {
	return hclog.New(&hclog.LoggerOptions{
		Name:   "raft",
		Level:  hclog.Off,
		Output: io.Discard,
	})
}
