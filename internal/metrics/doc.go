// Package metrics defines the agent's Prometheus collectors.
//
// Counters and histograms are updated inline by the server; gauges that
// mirror server state are refreshed by a Collector.
package metrics
