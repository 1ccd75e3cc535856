// Package mailbox supplies newsletter digest candidates to the ingestion
// pipeline. The transport behind it is pluggable; the shipped implementation
// reads RFC 5322 messages exported to a local directory.
package mailbox

import (
	"context"
	"time"
)

// DigestCandidate is one newsletter email that passed the source filters.
type DigestCandidate struct {
	// MessageID is the Message-ID header without angle brackets. Empty when
	// the message carries none; the orchestrator assigns a sequence id then.
	MessageID string
	Subject   string
	Sender    string
	// Date is the parsed Date header, normalized to UTC.
	Date time.Time
	// BodyText is the decoded text/plain part.
	BodyText string
	// BodyHTML is the decoded text/html part, preferred for story splitting.
	BodyHTML string
}

// Body returns the richer of the two body representations.
func (c DigestCandidate) Body() string {
	if c.BodyHTML != "" {
		return c.BodyHTML
	}
	return c.BodyText
}

// Mailbox lists digest candidates, newest first, already filtered by sender
// allowlist, minimum body size, and lookback window.
type Mailbox interface {
	FetchCandidates(ctx context.Context) ([]DigestCandidate, error)
}
