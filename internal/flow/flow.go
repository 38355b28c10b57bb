// Package flow tracks per-chat conversational state: the flow waiting for
// free text, the last catalog search, the add sheet and the current
// selection context.
package flow

import (
	"sync"
	"time"

	"github.com/hryarih32/mediacatalogbot/internal/clock"
	"github.com/hryarih32/mediacatalogbot/pkg/models"
)

// PendingTTL is how long an armed flow waits for text
const PendingTTL = 10 * time.Minute

// Pending is a flow waiting for the next free text
type Pending struct {
	Kind      models.FlowKind
	CreatedAt time.Time
}

// Results is the last catalog search of a chat
type Results struct {
	Service string
	Term    string
	Items   []models.CatalogItem
}

// Selection is where the chat currently is in a paginated surface
type Selection struct {
	Surface string
	Origin  string
	Page    int
}

// Store holds flow state for every chat
type Store struct {
	clk clock.Clock

	mu        sync.Mutex
	pending   map[int64]Pending
	results   map[int64]Results
	sheets    map[int64]*AddSheet
	selection map[int64]Selection
	targets   map[int64]string
}

// NewStore creates an empty store
func NewStore(clk clock.Clock) *Store {
	return &Store{
		clk:       clk,
		pending:   make(map[int64]Pending),
		results:   make(map[int64]Results),
		sheets:    make(map[int64]*AddSheet),
		selection: make(map[int64]Selection),
		targets:   make(map[int64]string),
	}
}

// Arm makes chatID wait for free text for kind, replacing any armed flow
func (s *Store) Arm(chatID int64, kind models.FlowKind) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending[chatID] = Pending{Kind: kind, CreatedAt: s.clk.Now()}
}

// Consume returns and clears the armed flow. Flows older than PendingTTL
// are dropped and reported as absent.
func (s *Store) Consume(chatID int64) (Pending, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.pending[chatID]
	if !ok {
		return Pending{}, false
	}
	delete(s.pending, chatID)
	if s.clk.Now().Sub(p.CreatedAt) > PendingTTL {
		return Pending{}, false
	}
	return p, true
}

// Armed returns the armed flow without clearing it
func (s *Store) Armed(chatID int64) (Pending, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.pending[chatID]
	if !ok || s.clk.Now().Sub(p.CreatedAt) > PendingTTL {
		return Pending{}, false
	}
	return p, true
}

// Cancel clears the armed flow and reports whether there was one
func (s *Store) Cancel(chatID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.pending[chatID]
	delete(s.pending, chatID)
	return ok
}

// Evict clears all flow state of chatID except the download target
func (s *Store) Evict(chatID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.pending, chatID)
	delete(s.results, chatID)
	delete(s.sheets, chatID)
	delete(s.selection, chatID)
}

// SetResults stores the last catalog search
func (s *Store) SetResults(chatID int64, results Results) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results[chatID] = results
}

// Results returns the last catalog search
func (s *Store) Results(chatID int64) (Results, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.results[chatID]
	return r, ok
}

// SetSelection records the current surface position
func (s *Store) SetSelection(chatID int64, sel Selection) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selection[chatID] = sel
}

// Selection returns the current surface position
func (s *Store) Selection(chatID int64) (Selection, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sel, ok := s.selection[chatID]
	return sel, ok
}

// DownloadTarget returns the manager links are pushed to
func (s *Store) DownloadTarget(chatID int64) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.targets[chatID]; ok {
		return t
	}
	return models.ServiceRadarr
}

// ToggleDownloadTarget switches between the movie and series managers
func (s *Store) ToggleDownloadTarget(chatID int64) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := models.ServiceSonarr
	if t, ok := s.targets[chatID]; ok && t == models.ServiceSonarr {
		next = models.ServiceRadarr
	}
	s.targets[chatID] = next
	return next
}
