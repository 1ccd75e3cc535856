// Package identity derives the stable identifiers that make ingestion
// idempotent. The same logical item must always map to the same id so that
// re-fetches collide in the tracker and the store's existence check.
package identity

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// DigestID returns the identifier for a digest email. The transport's own
// Message-ID header is preferred because it survives re-fetches. When the
// header is absent the mailbox-local sequence number is used instead; that
// fallback is only stable while the mailbox does not renumber, which is an
// accepted limitation.
func DigestID(messageID string, seq int) string {
	trimmed := strings.TrimSpace(messageID)
	if trimmed != "" {
		return trimmed
	}
	return fmt.Sprintf("digest-%d", seq)
}

// StoryID composes a story identifier from its parent digest and ordinal
// position. Re-splitting the same digest regenerates the identical set.
func StoryID(digestID string, storyNumber int) string {
	return fmt.Sprintf("%s_story_%d", digestID, storyNumber)
}

// TweetID returns the identifier for a tweet. Tweets without a native id
// get a random one; such rows are unique but not idempotent, so callers
// should treat a missing native id as an anomaly worth logging.
func TweetID(nativeID string) string {
	trimmed := strings.TrimSpace(nativeID)
	if trimmed == "" {
		return "tweet_" + uuid.NewString()
	}
	return "tweet_" + trimmed
}
