package prober

import "net/http"

// Verdict is the classified outcome of one probe attempt.
type Verdict int

// Verdict values. VerdictKnown marks an id skipped by the dedup gate.
const (
	VerdictKnown Verdict = iota
	VerdictFound
	VerdictNotFound
	VerdictTransient
	VerdictRateLimited
	VerdictBanned
	VerdictUnexpected
)

func (v Verdict) String() string {
	switch v {
	case VerdictKnown:
		return "known"
	case VerdictFound:
		return "found"
	case VerdictNotFound:
		return "not_found"
	case VerdictTransient:
		return "transient"
	case VerdictRateLimited:
		return "rate_limited"
	case VerdictBanned:
		return "banned"
	case VerdictUnexpected:
		return "unexpected_status"
	default:
		return "unknown"
	}
}

// Classify maps a probe outcome to a Verdict. Any transport error counts as
// transient; everything else is decided by the status code.
func Classify(resp ProbeResponse, err error) Verdict {
	if err != nil {
		return VerdictTransient
	}
	switch resp.StatusCode {
	case http.StatusOK:
		return VerdictFound
	case http.StatusNotFound:
		return VerdictNotFound
	case http.StatusForbidden:
		return VerdictBanned
	case http.StatusTooManyRequests:
		return VerdictRateLimited
	default:
		return VerdictUnexpected
	}
}
