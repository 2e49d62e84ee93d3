package health

import (
	"context"
	"time"
)

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates partial failure: search still answers, possibly
	// from stale or incomplete data.
	Degraded Status = "degraded"
	// Unhealthy indicates the record store is unreachable.
	Unhealthy Status = "error"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// Check names.
const (
	CheckStore      = "store"
	CheckIndex      = "index"
	CheckEnrichment = "enrichment"
)

// IndexInfo summarizes the current snapshot.
type IndexInfo struct {
	Generation uint64
	Entries    int
	BuiltAt    time.Time
	Failed     []string
}

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
	Index  IndexInfo
}

// Service coordinates health checks.
type Service struct {
	store      StorePinger
	index      IndexState
	enrichment EnrichmentChecker
}

// New creates a Service. store and enrichment can be nil.
func New(store StorePinger, idx IndexState, enrichment EnrichmentChecker) *Service {
	return &Service{store: store, index: idx, enrichment: enrichment}
}

// Check runs health checks against all components.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult)
	status := Healthy

	if s.store != nil {
		if err := s.store.Ping(ctx); err != nil {
			checks[CheckStore] = CheckError
			status = Unhealthy
		} else {
			checks[CheckStore] = CheckOK
		}
	}

	snap := s.index.Snapshot()
	info := IndexInfo{
		Generation: snap.Generation(),
		Entries:    snap.Len(),
		BuiltAt:    snap.BuiltAt(),
		Failed:     snap.Failed(),
	}
	if !s.index.Built() || len(info.Failed) > 0 {
		checks[CheckIndex] = CheckError
	} else {
		checks[CheckIndex] = CheckOK
	}

	if s.enrichment != nil {
		if err := s.enrichment.HealthCheck(ctx); err != nil {
			checks[CheckEnrichment] = CheckError
		} else {
			checks[CheckEnrichment] = CheckOK
		}
	}

	if status == Healthy {
		for _, v := range checks {
			if v == CheckError {
				status = Degraded
				break
			}
		}
	}

	return Report{Status: status, Checks: checks, Index: info}
}
