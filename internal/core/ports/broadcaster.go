package ports

import "go.trai.ch/spark/internal/core/domain"

// Broadcaster publishes hot update messages to every connected client.
// Delivery is best-effort and never blocks on acknowledgement.
//
//go:generate mockgen -source=broadcaster.go -destination=mocks/mock_broadcaster.go -package=mocks
type Broadcaster interface {
	Broadcast(msg domain.Message)
}
