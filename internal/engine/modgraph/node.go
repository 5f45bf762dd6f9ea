package modgraph

import (
	"context"

	"github.com/grindlemire/graft"
)

// NodeID is the unique identifier for the module graph Graft node.
const NodeID graft.ID = "engine.modgraph"

func init() {
	graft.Register(graft.Node[*Store]{
		ID:        NodeID,
		Cacheable: true,
		Run: func(_ context.Context) (*Store, error) {
			return NewStore(), nil
		},
	})
}
