package redisconn

import (
	"sync/atomic"
)

// ConnectionStats contains statistics about a connection.
//
// For Prometheus integration, see PrometheusCollector:
//   - Counters: Connects, Disconnects, Commands, InitCommands
//   - Counters: ConnectionErrors, ProtocolErrors (with kind label)
type ConnectionStats struct {
	Connects         uint64 // Resources created
	Disconnects      uint64 // Resources released
	Commands         uint64 // Replies read
	InitCommands     uint64 // Init commands replayed successfully
	ConnectionErrors uint64 // Failures at the transport boundary
	ProtocolErrors   uint64 // Replies that could not be decoded or parsed
}

// statsCollector provides internal methods for updating connection stats.
// Not exported - the connection updates its own stats.
type statsCollector struct {
	connects         atomic.Uint64
	disconnects      atomic.Uint64
	commands         atomic.Uint64
	initCommands     atomic.Uint64
	connectionErrors atomic.Uint64
	protocolErrors   atomic.Uint64
}

func newStatsCollector() *statsCollector {
	return &statsCollector{}
}

func (c *statsCollector) recordConnect() {
	c.connects.Add(1)
}

func (c *statsCollector) recordDisconnect() {
	c.disconnects.Add(1)
}

func (c *statsCollector) recordCommand() {
	c.commands.Add(1)
}

func (c *statsCollector) recordInitCommand() {
	c.initCommands.Add(1)
}

func (c *statsCollector) recordConnectionError() {
	c.connectionErrors.Add(1)
}

func (c *statsCollector) recordProtocolError() {
	c.protocolErrors.Add(1)
}

func (c *statsCollector) snapshot() ConnectionStats {
	return ConnectionStats{
		Connects:         c.connects.Load(),
		Disconnects:      c.disconnects.Load(),
		Commands:         c.commands.Load(),
		InitCommands:     c.initCommands.Load(),
		ConnectionErrors: c.connectionErrors.Load(),
		ProtocolErrors:   c.protocolErrors.Load(),
	}
}
