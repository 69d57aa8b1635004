package robot

// Outcome tags a ConnectionResult.
type Outcome int

const (
	// OutcomeNone is the zero value returned alongside an error.
	OutcomeNone Outcome = iota
	OutcomeConnected
	OutcomeFailed
)

// ConnectionResult is the outcome of one connect attempt: Connected, or
// Failed with a reason.
type ConnectionResult struct {
	Outcome Outcome
	Failure *ConnectionFailedError
}

func connectedResult() ConnectionResult {
	return ConnectionResult{Outcome: OutcomeConnected}
}

func failedResult(f *ConnectionFailedError) ConnectionResult {
	return ConnectionResult{Outcome: OutcomeFailed, Failure: f}
}

func (r ConnectionResult) Connected() bool {
	return r.Outcome == OutcomeConnected
}

// Err returns the failure as an error, or nil when connected.
func (r ConnectionResult) Err() error {
	if r.Outcome != OutcomeFailed || r.Failure == nil {
		return nil
	}
	return r.Failure
}

func (r ConnectionResult) String() string {
	switch r.Outcome {
	case OutcomeConnected:
		return "connected"
	case OutcomeFailed:
		if r.Failure != nil {
			return "failed: " + r.Failure.Reason.String()
		}
		return "failed"
	default:
		return "none"
	}
}
