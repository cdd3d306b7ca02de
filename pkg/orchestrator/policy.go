package orchestrator

import "time"

// Kind names a class of upstream call. Every model or index call in the
// pipeline goes through one of these, each with its own timeout and retry
// allowance.
type Kind string

const (
	KindAggregation       Kind = "aggregation"
	KindTextAggregation   Kind = "text_aggregation"
	KindDecomposition     Kind = "decomposition"
	KindEvidenceSynthesis Kind = "evidence_synthesis"
	KindAdviceGeneration  Kind = "advice_generation"
	KindAdviceAudit       Kind = "advice_audit"
	KindFormatAudit       Kind = "format_audit"
	KindVarietyLookup     Kind = "variety_lookup"
	KindVarietyAudit      Kind = "variety_audit"
	KindEmbedding         Kind = "embedding"
)

type Policy struct {
	Timeout  time.Duration
	Attempts int
}

// DefaultPolicies reflect how long each call class is worth waiting for.
// Audits get a single attempt: a failed audit falls back to the unaudited
// text rather than burning budget on a retry.
func DefaultPolicies() map[Kind]Policy {
	return map[Kind]Policy{
		KindAggregation:       {Timeout: 40 * time.Second, Attempts: 2},
		KindTextAggregation:   {Timeout: 25 * time.Second, Attempts: 2},
		KindDecomposition:     {Timeout: 20 * time.Second, Attempts: 2},
		KindEvidenceSynthesis: {Timeout: 35 * time.Second, Attempts: 2},
		KindAdviceGeneration:  {Timeout: 35 * time.Second, Attempts: 2},
		KindAdviceAudit:       {Timeout: 25 * time.Second, Attempts: 1},
		KindFormatAudit:       {Timeout: 20 * time.Second, Attempts: 1},
		KindVarietyLookup:     {Timeout: 25 * time.Second, Attempts: 2},
		KindVarietyAudit:      {Timeout: 20 * time.Second, Attempts: 1},
		KindEmbedding:         {Timeout: 15 * time.Second, Attempts: 2},
	}
}

var fallbackPolicy = Policy{Timeout: 30 * time.Second, Attempts: 1}
