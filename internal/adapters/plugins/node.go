package plugins

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/spark/internal/core/ports"
)

// NodeID is the unique identifier for the plugin list Graft node.
const NodeID graft.ID = "adapter.plugins"

func init() {
	graft.Register(graft.Node[[]ports.Plugin]{
		ID:        NodeID,
		Cacheable: true,
		Run: func(_ context.Context) ([]ports.Plugin, error) {
			return Defaults(), nil
		},
	})
}
