// Package infra contains technical adapters: the zerolog logger, the MQTT
// bridge, the metrics sinks and the WebSocket hub. These packages depend
// only on the interfaces and types defined in the core packages.
package infra
