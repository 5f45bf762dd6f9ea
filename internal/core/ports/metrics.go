package ports

import "time"

// Metrics records dev server activity.
//
//go:generate mockgen -source=metrics.go -destination=mocks/mock_metrics.go -package=mocks
type Metrics interface {
	// ObserveBuild records one finished build.
	ObserveBuild(kind string, d time.Duration, err error)
	// ObserveCacheLookup records a lookup against a cache tier.
	ObserveCacheLookup(tier string, hit bool)
	// ObserveBroadcast records one outbound hot update message.
	ObserveBroadcast(msgType string)
	// ObserveInconsistency records a verification mismatch.
	ObserveInconsistency()
}
