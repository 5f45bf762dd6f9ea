// Package wiring registers all Graft nodes for the application.
package wiring

import (
	// Register adapter nodes.
	_ "go.trai.ch/spark/internal/adapters/config"
	_ "go.trai.ch/spark/internal/adapters/fs"
	_ "go.trai.ch/spark/internal/adapters/logger"
	_ "go.trai.ch/spark/internal/adapters/metrics"
	_ "go.trai.ch/spark/internal/adapters/plugins"
	_ "go.trai.ch/spark/internal/adapters/scanner"
	_ "go.trai.ch/spark/internal/adapters/telemetry"
	// Register app and engine nodes.
	_ "go.trai.ch/spark/internal/app"
	_ "go.trai.ch/spark/internal/engine/modgraph"
)
