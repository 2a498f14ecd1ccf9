package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	buildInfo = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name:        "voxbridge_build_info",
			Help:        "Build information",
			ConstLabels: prometheus.Labels{"component": "server"},
		},
		[]string{"date", "sha", "version"},
	)

	activeBridges = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "voxbridge_active_bridges",
			Help: "Number of bridges currently running",
		},
	)

	bridgesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "voxbridge_bridges_total",
			Help: "Number of completed bridges by outcome",
		},
		[]string{"outcome"},
	)

	mediaPackets = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "voxbridge_media_packets_total",
			Help: "Media packets received from the telephony side",
		},
	)

	responsePackets = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "voxbridge_response_packets_total",
			Help: "Audio delta packets received from the realtime side",
		},
	)

	toolCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "voxbridge_tool_calls_total",
			Help: "Tool invocations by tool name and outcome",
		},
		[]string{"tool", "outcome"},
	)
)

// Register registers all metrics with the provided registerer.
func Register(r prometheus.Registerer) {
	r.MustRegister(buildInfo, activeBridges, bridgesTotal, mediaPackets, responsePackets, toolCalls)
}

// SetServerBuildInfo sets the build info metric for the server.
func SetServerBuildInfo(version, sha, date string) {
	buildInfo.WithLabelValues(date, sha, version).Set(1)
}

// BridgeStarted records a bridge entering its pump loop.
func BridgeStarted() { activeBridges.Inc() }

// BridgeEnded records a finished bridge.
func BridgeEnded(success bool) {
	activeBridges.Dec()
	outcome := "success"
	if !success {
		outcome = "error"
	}
	bridgesTotal.WithLabelValues(outcome).Inc()
}

// RecordMediaPacket counts one inbound media packet.
func RecordMediaPacket() { mediaPackets.Inc() }

// RecordResponsePacket counts one outbound audio delta.
func RecordResponsePacket() { responsePackets.Inc() }

// RecordToolCall increments the tool call counter.
func RecordToolCall(tool string, success bool) {
	outcome := "success"
	if !success {
		outcome = "error"
	}
	toolCalls.WithLabelValues(tool, outcome).Inc()
}
