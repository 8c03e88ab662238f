package ingress

// User-facing replies.
const (
	ReplyRecorded            = "Spesa registrata ✅"
	ReplyAmountNotRecognized = "Importo non riconosciuto ✖️"
	ReplyFailed              = "Errore: spesa non registrata ⚠️"
)

// Reply maps an ingestion result to the single message sent back to the
// user. Failure details stay in the logs.
func Reply(res Result, err error) string {
	if err != nil {
		return ReplyFailed
	}
	switch res.Outcome {
	case OutcomeRecorded:
		return ReplyRecorded
	case OutcomeAmountNotRecognized:
		return ReplyAmountNotRecognized
	default:
		return ReplyFailed
	}
}

// OutcomeOf is the outcome reported to machine clients.
func OutcomeOf(res Result, err error) Outcome {
	if err != nil || res.Outcome == "" {
		return OutcomeFailed
	}
	return res.Outcome
}
