package app

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/spark/internal/adapters/config"    //nolint:depguard // Wired in app layer
	"go.trai.ch/spark/internal/adapters/fs"        //nolint:depguard // Wired in app layer
	"go.trai.ch/spark/internal/adapters/logger"    //nolint:depguard // Wired in app layer
	"go.trai.ch/spark/internal/adapters/metrics"   //nolint:depguard // Wired in app layer
	"go.trai.ch/spark/internal/adapters/plugins"   //nolint:depguard // Wired in app layer
	"go.trai.ch/spark/internal/adapters/scanner"   //nolint:depguard // Wired in app layer
	"go.trai.ch/spark/internal/adapters/telemetry" //nolint:depguard // Wired in app layer
	"go.trai.ch/spark/internal/core/ports"
	"go.trai.ch/spark/internal/engine/modgraph"
)

const (
	// AppNodeID is the unique identifier for the main App Graft node.
	AppNodeID graft.ID = "app.main"
	// ComponentsNodeID is the unique identifier for the App components Graft node.
	ComponentsNodeID graft.ID = "app.components"
)

// Components holds what the command line needs from the dependency graph.
type Components struct {
	App    *App
	Logger ports.Logger
}

func init() {
	// App Node
	graft.Register(graft.Node[*App]{
		ID:        AppNodeID,
		Cacheable: true,
		DependsOn: []graft.ID{
			config.NodeID,
			logger.NodeID,
			fs.HasherNodeID,
			scanner.NodeID,
			plugins.NodeID,
			modgraph.NodeID,
			metrics.NodeID,
			telemetry.TracerNodeID,
		},
		Run: runAppNode,
	})

	// Components Node
	graft.Register(graft.Node[*Components]{
		ID:        ComponentsNodeID,
		Cacheable: true,
		DependsOn: []graft.ID{
			AppNodeID,
			logger.NodeID,
		},
		Run: func(ctx context.Context) (*Components, error) {
			app, err := graft.Dep[*App](ctx)
			if err != nil {
				return nil, err
			}

			log, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}

			return &Components{App: app, Logger: log}, nil
		},
	})
}

func runAppNode(ctx context.Context) (*App, error) {
	loader, err := graft.Dep[ports.ConfigLoader](ctx)
	if err != nil {
		return nil, err
	}

	log, err := graft.Dep[ports.Logger](ctx)
	if err != nil {
		return nil, err
	}

	hasher, err := graft.Dep[ports.Hasher](ctx)
	if err != nil {
		return nil, err
	}

	sc, err := graft.Dep[ports.ImportScanner](ctx)
	if err != nil {
		return nil, err
	}

	pl, err := graft.Dep[[]ports.Plugin](ctx)
	if err != nil {
		return nil, err
	}

	graph, err := graft.Dep[*modgraph.Store](ctx)
	if err != nil {
		return nil, err
	}

	m, err := graft.Dep[*metrics.Prometheus](ctx)
	if err != nil {
		return nil, err
	}

	tracer, err := graft.Dep[ports.Tracer](ctx)
	if err != nil {
		return nil, err
	}

	return New(loader, log, hasher, sc, pl, graph, m, tracer), nil
}
