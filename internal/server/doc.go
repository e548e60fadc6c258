// Package server provides the HTTP sidecar endpoints for long-running watch
// mode: Kubernetes-style liveness and readiness probes and a Prometheus
// metrics endpoint on a dedicated port.
package server
