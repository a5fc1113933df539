package greeting

import (
	"hash/fnv"
	"io"
	"sync"
	"time"

	"github.com/lpetrova/mira/internal/content"
)

// Greeting is the line shown when a user opens the companion.
type Greeting struct {
	Bucket string `json:"bucket"`
	Text   string `json:"text"`
}

// Service classifies how long a user has been away and picks a greeting
// line. Visits are tracked in memory; a restart greets everyone as returning
// from a long absence at worst.
type Service struct {
	mu      sync.Mutex
	catalog *content.Catalog
	visits  map[string]time.Time
	now     func() time.Time
}

func NewService(catalog *content.Catalog) *Service {
	if catalog == nil {
		catalog = content.Default()
	}
	return &Service{
		catalog: catalog,
		visits:  make(map[string]time.Time),
		now:     time.Now,
	}
}

// Greet records the visit and returns the greeting for the gap since the
// previous one. The line is deterministic per user per calendar day, so
// reloading the page does not reshuffle the greeting.
func (s *Service) Greet(userID string) Greeting {
	s.mu.Lock()
	now := s.now()
	last := s.visits[userID]
	s.visits[userID] = now
	s.mu.Unlock()

	return s.compose(userID, last, now)
}

// GreetSeen is Greet for clients that keep last-seen locally: the reported
// timestamp wins over the tracked visit, which matters after a restart when
// the in-memory visit log is empty.
func (s *Service) GreetSeen(userID string, lastSeen time.Time) Greeting {
	s.mu.Lock()
	now := s.now()
	s.visits[userID] = now
	s.mu.Unlock()

	return s.compose(userID, lastSeen, now)
}

func (s *Service) compose(userID string, last, now time.Time) Greeting {
	bucket := Bucket(last, now)
	pool := s.catalog.GreetingPool(bucket)
	if len(pool) == 0 {
		return Greeting{Bucket: bucket}
	}
	return Greeting{
		Bucket: bucket,
		Text:   pool[pickIndex(userID, now, len(pool))],
	}
}

// Bucket maps the gap between two visits onto a greeting pool. Day boundaries
// are calendar days, not 24h windows, so 11pm to 7am counts as yesterday.
func Bucket(lastSeen, now time.Time) string {
	if lastSeen.IsZero() {
		return content.BucketFirstVisit
	}
	if sameDay(lastSeen, now) {
		return content.BucketSameDay
	}
	if sameDay(lastSeen, now.AddDate(0, 0, -1)) {
		return content.BucketYesterday
	}
	if now.Sub(lastSeen) <= 7*24*time.Hour {
		return content.BucketThisWeek
	}
	return content.BucketLongAbsence
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func pickIndex(userID string, now time.Time, n int) int {
	if n <= 1 {
		return 0
	}
	h := fnv.New32a()
	io.WriteString(h, userID)
	io.WriteString(h, now.Format("2006-01-02"))
	return int(h.Sum32() % uint32(n))
}
