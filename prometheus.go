package redisconn

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusCollector exposes the stats of a set of connections.
// Register it once; connections can be added while it is registered.
type PrometheusCollector struct {
	mu    sync.RWMutex
	conns []*Connection

	connected   *prometheus.Desc
	connects    *prometheus.Desc
	disconnects *prometheus.Desc
	commands    *prometheus.Desc
	initCmds    *prometheus.Desc
	failures    *prometheus.Desc
}

var _ prometheus.Collector = (*PrometheusCollector)(nil)

// NewPrometheusCollector creates a collector with metrics under namespace.
func NewPrometheusCollector(namespace string, conns ...*Connection) *PrometheusCollector {
	labels := []string{"conn"}
	return &PrometheusCollector{
		conns: conns,
		connected: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "connection", "connected"),
			"Whether the connection currently holds a transport resource.",
			labels, nil),
		connects: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "connection", "connects_total"),
			"Number of transport resources created.",
			labels, nil),
		disconnects: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "connection", "disconnects_total"),
			"Number of transport resources released.",
			labels, nil),
		commands: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "connection", "commands_total"),
			"Number of replies read.",
			labels, nil),
		initCmds: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "connection", "init_commands_total"),
			"Number of init commands replayed.",
			labels, nil),
		failures: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "connection", "failures_total"),
			"Number of communication failures by kind.",
			[]string{"conn", "kind"}, nil),
	}
}

// Add starts exporting conn.
func (p *PrometheusCollector) Add(conn *Connection) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.conns = append(p.conns, conn)
}

func (p *PrometheusCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- p.connected
	ch <- p.connects
	ch <- p.disconnects
	ch <- p.commands
	ch <- p.initCmds
	ch <- p.failures
}

func (p *PrometheusCollector) Collect(ch chan<- prometheus.Metric) {
	p.mu.RLock()
	conns := append([]*Connection(nil), p.conns...)
	p.mu.RUnlock()

	for _, conn := range conns {
		id := conn.ID()
		s := conn.Stats()

		// Derived from counters so a scrape never waits on a blocked command
		connected := 0.0
		if s.Connects > s.Disconnects {
			connected = 1
		}

		ch <- prometheus.MustNewConstMetric(p.connected, prometheus.GaugeValue, connected, id)
		ch <- prometheus.MustNewConstMetric(p.connects, prometheus.CounterValue, float64(s.Connects), id)
		ch <- prometheus.MustNewConstMetric(p.disconnects, prometheus.CounterValue, float64(s.Disconnects), id)
		ch <- prometheus.MustNewConstMetric(p.commands, prometheus.CounterValue, float64(s.Commands), id)
		ch <- prometheus.MustNewConstMetric(p.initCmds, prometheus.CounterValue, float64(s.InitCommands), id)
		ch <- prometheus.MustNewConstMetric(p.failures, prometheus.CounterValue, float64(s.ConnectionErrors), id, "connection")
		ch <- prometheus.MustNewConstMetric(p.failures, prometheus.CounterValue, float64(s.ProtocolErrors), id, "protocol")
	}
}
