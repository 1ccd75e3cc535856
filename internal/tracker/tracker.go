// Package tracker remembers which digests, stories, and tweets have already
// been processed so repeated orchestrator runs skip them. It is one durable
// set of identifiers per item kind, consulted before any fetch or enrichment
// work is spent on a candidate.
package tracker

import (
	"fmt"
	"sync"
	"time"

	"github.com/sagenews/sage/internal/timeutil"
)

// Kind selects which identifier set a tracker operation touches.
type Kind string

const (
	KindDigest Kind = "newsbrief_digests"
	KindStory  Kind = "newsbrief_stories"
	KindTweet  Kind = "tweets"
)

// Record is the persisted tracker state. The JSON keys match the historical
// on-disk format so existing tracker files keep working.
type Record struct {
	Digests     []string `json:"newsbrief_digests"`
	Stories     []string `json:"newsbrief_stories"`
	Tweets      []string `json:"tweets"`
	LastUpdated string   `json:"last_updated"`
}

// EmptyRecord returns a valid record with no processed identifiers.
func EmptyRecord() Record {
	return Record{
		Digests:     []string{},
		Stories:     []string{},
		Tweets:      []string{},
		LastUpdated: timeutil.UTCString(time.Now()),
	}
}

func (r *Record) set(kind Kind) *[]string {
	switch kind {
	case KindDigest:
		return &r.Digests
	case KindStory:
		return &r.Stories
	case KindTweet:
		return &r.Tweets
	}
	return nil
}

// Store persists tracker records. Load must return an empty-but-valid record
// when the backing data is missing or corrupt; reprocessing risk is accepted
// over failing the run.
type Store interface {
	Load() (Record, error)
	Save(Record) error
}

// Tracker answers "was this identifier already processed?" and records new
// ones. The record is reloaded from the store on every call; at tens of items
// per run the O(size) cost is irrelevant and the store stays the single
// source of truth. One process-wide mutex serializes read-modify-write
// cycles between threads; cross-process exclusion is out of scope.
type Tracker struct {
	mu    sync.Mutex
	store Store
}

// New creates a tracker backed by the given store.
func New(store Store) *Tracker {
	return &Tracker{store: store}
}

// IsProcessed reports whether the identifier was already marked for the kind.
func (t *Tracker) IsProcessed(kind Kind, id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	record, err := t.store.Load()
	if err != nil {
		return false
	}

	ids := record.set(kind)
	if ids == nil {
		return false
	}
	for _, existing := range *ids {
		if existing == id {
			return true
		}
	}
	return false
}

// MarkProcessed records an identifier for the kind. Marking an identifier
// twice is a no-op. Callers must only mark after a confirmed successful
// store append; a mark without a row means the item is lost forever.
func (t *Tracker) MarkProcessed(kind Kind, id string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	record, err := t.store.Load()
	if err != nil {
		record = EmptyRecord()
	}

	ids := record.set(kind)
	if ids == nil {
		return fmt.Errorf("unknown tracker kind: %q", kind)
	}
	for _, existing := range *ids {
		if existing == id {
			return nil
		}
	}

	*ids = append(*ids, id)
	record.LastUpdated = timeutil.UTCString(time.Now())

	if err := t.store.Save(record); err != nil {
		return fmt.Errorf("save tracker record: %w", err)
	}
	return nil
}

// Counts returns the number of processed identifiers per kind, for run
// start-up logging.
func (t *Tracker) Counts() map[Kind]int {
	t.mu.Lock()
	defer t.mu.Unlock()

	record, err := t.store.Load()
	if err != nil {
		return map[Kind]int{}
	}
	return map[Kind]int{
		KindDigest: len(record.Digests),
		KindStory:  len(record.Stories),
		KindTweet:  len(record.Tweets),
	}
}
