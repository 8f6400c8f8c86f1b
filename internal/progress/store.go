package progress

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/notegood/malla/internal/catalog"
)

// Backend persists a progress document.
type Backend interface {
	// LoadProgress returns nil, nil when nothing has been persisted.
	LoadProgress(ctx context.Context) (*Document, error)
	SaveProgress(ctx context.Context, doc Document) error
	DeleteProgress(ctx context.Context) error
}

// ChangeKind names the mutation that produced a Change.
type ChangeKind string

const (
	ChangeApproved ChangeKind = "approved"
	ChangeTaking   ChangeKind = "taking"
	ChangeCleared  ChangeKind = "cleared"
	ChangeReset    ChangeKind = "reset"
	ChangeImported ChangeKind = "imported"
	ChangeSaved    ChangeKind = "saved"
)

// Change is emitted after every mutation.
type Change struct {
	Kind ChangeKind
	ID   string
	// Progress is a snapshot taken right after the mutation.
	Progress Progress
	// Persisted is false when the write to the backend failed. The in-memory
	// progress is still updated.
	Persisted bool
}

// Store owns the session progress and writes it through to a Backend after
// every mutation. Mutations are serialized, so a Store is safe for
// concurrent use.
type Store struct {
	mu          sync.Mutex
	backend     Backend
	logger      *zap.Logger
	now         func() time.Time
	current     Progress
	subscribers map[int]func(Change)
	nextSub     int
}

// NewStore wraps backend. A nil logger discards logs.
func NewStore(backend Backend, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		backend:     backend,
		logger:      logger,
		now:         time.Now,
		subscribers: map[int]func(Change){},
	}
}

// Load reads persisted progress into the store. Absent or unreadable data
// yields an empty Progress; Load never fails.
func (s *Store) Load(ctx context.Context) Progress {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = Progress{}
	doc, err := s.backend.LoadProgress(ctx)
	switch {
	case err != nil:
		s.logger.Debug("persisted progress unreadable, starting empty", zap.Error(err))
	case doc == nil:
		s.logger.Debug("no persisted progress")
	default:
		s.current = doc.Progress()
	}
	return s.current.Clone()
}

// Progress returns a snapshot of the current progress.
func (s *Store) Progress() Progress {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current.Clone()
}

// Subscribe registers fn to receive every Change. The returned func removes
// the subscription.
func (s *Store) Subscribe(fn func(Change)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextSub
	s.nextSub++
	s.subscribers[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subscribers, id)
	}
}

// Save replaces the current progress with p and persists it.
func (s *Store) Save(ctx context.Context, p Progress) Change {
	return s.apply(ctx, ChangeSaved, "", func(cur *Progress) { *cur = p.Clone() })
}

// MarkApproved approves id and persists.
func (s *Store) MarkApproved(ctx context.Context, id string) Change {
	return s.apply(ctx, ChangeApproved, id, func(p *Progress) { p.MarkApproved(id) })
}

// MarkTaking marks id as in progress and persists.
func (s *Store) MarkTaking(ctx context.Context, id string) Change {
	return s.apply(ctx, ChangeTaking, id, func(p *Progress) { p.MarkTaking(id) })
}

// Clear removes id from both sets and persists.
func (s *Store) Clear(ctx context.Context, id string) Change {
	return s.apply(ctx, ChangeCleared, id, func(p *Progress) { p.Clear(id) })
}

// ToggleApproved flips the approved state of id and persists.
func (s *Store) ToggleApproved(ctx context.Context, id string) Change {
	return s.toggle(ctx, id, ChangeApproved, (*Progress).IsApproved, (*Progress).ToggleApproved)
}

// ToggleTaking flips the taking state of id and persists.
func (s *Store) ToggleTaking(ctx context.Context, id string) Change {
	return s.toggle(ctx, id, ChangeTaking, (*Progress).IsTaking, (*Progress).ToggleTaking)
}

func (s *Store) toggle(ctx context.Context, id string, on ChangeKind, is func(*Progress, string) bool, flip func(*Progress, string)) Change {
	kind := on
	return s.applyKind(ctx, id, func(p *Progress) ChangeKind {
		flip(p, id)
		if !is(p, id) {
			kind = ChangeCleared
		}
		return kind
	})
}

// Reset empties both sets and deletes the persisted state.
func (s *Store) Reset(ctx context.Context) Change {
	s.mu.Lock()
	s.current.ClearAll()
	persisted := true
	if err := s.backend.DeleteProgress(ctx); err != nil {
		persisted = false
		s.logger.Warn("failed to delete persisted progress", zap.Error(err))
	}
	change := Change{Kind: ChangeReset, Progress: s.current.Clone(), Persisted: persisted}
	subs := s.subscriberList()
	s.mu.Unlock()
	notify(subs, change)
	return change
}

// Import replaces the progress with the document in data. A malformed
// document leaves the progress unchanged and returns an error wrapping
// ErrImportFormat.
func (s *Store) Import(ctx context.Context, data []byte) (Change, error) {
	doc, err := ParseDocument(data)
	if err != nil {
		return Change{}, err
	}
	next := doc.Progress()
	return s.apply(ctx, ChangeImported, "", func(p *Progress) { *p = next }), nil
}

// Export snapshots the progress with a timestamp.
func (s *Store) Export() Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	when := s.now().UTC()
	return NewDocument(s.current, &when)
}

func (s *Store) apply(ctx context.Context, kind ChangeKind, id string, fn func(*Progress)) Change {
	return s.applyKind(ctx, id, func(p *Progress) ChangeKind {
		fn(p)
		return kind
	})
}

func (s *Store) applyKind(ctx context.Context, id string, fn func(*Progress) ChangeKind) Change {
	s.mu.Lock()
	kind := fn(&s.current)
	change := Change{
		Kind:      kind,
		ID:        catalog.NormalizeID(id),
		Progress:  s.current.Clone(),
		Persisted: s.persist(ctx),
	}
	subs := s.subscriberList()
	s.mu.Unlock()
	notify(subs, change)
	return change
}

// persist must be called with s.mu held.
func (s *Store) persist(ctx context.Context) bool {
	when := s.now().UTC()
	if err := s.backend.SaveProgress(ctx, NewDocument(s.current, &when)); err != nil {
		s.logger.Warn("failed to persist progress",
			zap.Error(err),
			zap.Int("approved", len(s.current.approved)),
			zap.Int("taking", len(s.current.taking)))
		return false
	}
	return true
}

func (s *Store) subscriberList() []func(Change) {
	out := make([]func(Change), 0, len(s.subscribers))
	for i := 0; i < s.nextSub; i++ {
		if fn, ok := s.subscribers[i]; ok {
			out = append(out, fn)
		}
	}
	return out
}

func notify(subs []func(Change), change Change) {
	for _, fn := range subs {
		fn(change)
	}
}
