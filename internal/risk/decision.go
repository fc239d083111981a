package risk

// Decide maps a risk level to its binding authorization decision.
//
//	LOW      → APPROVE
//	MEDIUM   → REVIEW + additional verification
//	HIGH     → BLOCK + compliance notification
//	CRITICAL → BLOCK + compliance notification + report to authorities
//
// An unrecognized level fails closed: it decides as CRITICAL. Silently
// approving a level the policy does not know about is the one failure mode
// this table must never have.
func Decide(level Level) Decision {
	switch level {
	case LevelLow:
		return Decision{
			Action:         ActionApprove,
			RequiresReview: false,
		}
	case LevelMedium:
		return Decision{
			Action:                 ActionReview,
			RequiresReview:         true,
			AdditionalVerification: true,
		}
	case LevelHigh:
		return Decision{
			Action:           ActionBlock,
			RequiresReview:   true,
			NotifyCompliance: true,
		}
	case LevelCritical:
		return Decision{
			Action:              ActionBlock,
			RequiresReview:      true,
			NotifyCompliance:    true,
			ReportToAuthorities: true,
		}
	default:
		// Fail closed.
		return Decision{
			Action:              ActionBlock,
			RequiresReview:      true,
			NotifyCompliance:    true,
			ReportToAuthorities: true,
		}
	}
}
