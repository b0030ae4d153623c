package session

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/sessiond/internal/domain/manifest"
)

// Backend stores opaque records by id. Read and Delete return
// ErrRecordNotFound for unknown ids.
type Backend interface {
	Write(ctx context.Context, id string, data []byte) error
	Read(ctx context.Context, id string) ([]byte, error)
	List(ctx context.Context) ([]string, error)
	Delete(ctx context.Context, id string) error
}

// Summary describes a stored session without its contents.
type Summary struct {
	ID        string                 `json:"id"`
	Timestamp time.Time              `json:"timestamp"`
	Metadata  map[string]interface{} `json:"metadata"`
}

// Stats reports store activity.
type Stats struct {
	HasActive  bool       `json:"has_active"`
	LastSaved  *time.Time `json:"last_saved,omitempty"`
	LastLoaded *time.Time `json:"last_loaded,omitempty"`
}

// Store persists manifests and holds the active one
type Store struct {
	backend Backend
	active  atomic.Pointer[manifest.Manifest]
	logger  *zap.Logger

	// activity timestamps only; the active manifest never takes this lock
	mu         sync.RWMutex
	lastSaved  *time.Time
	lastLoaded *time.Time

	onActivate func(id string, m *manifest.Manifest)
}

// NewStore creates a store with no active session.
func NewStore(backend Backend) *Store {
	return &Store{
		backend: backend,
		logger:  zap.NewNop(),
	}
}

// WithLogger sets the logger used for skipped records.
func (s *Store) WithLogger(logger *zap.Logger) *Store {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// OnActivate registers fn to run after each successful Save or Load.
func (s *Store) OnActivate(fn func(id string, m *manifest.Manifest)) *Store {
	s.onActivate = fn
	return s
}

// ValidateID rejects ids that are empty or could address outside the store.
func ValidateID(id string) error {
	switch {
	case id == "":
		return &manifest.ValidationError{Reason: "session id is empty"}
	case strings.ContainsAny(id, `/\`):
		return &manifest.ValidationError{Reason: fmt.Sprintf("session id %q contains a path separator", id)}
	case strings.Contains(id, ".."):
		return &manifest.ValidationError{Reason: fmt.Sprintf("session id %q contains '..'", id)}
	}
	return nil
}

// Save writes m under id, replacing any existing record, and makes it the
// active session.
func (s *Store) Save(ctx context.Context, id string, m *manifest.Manifest) error {
	if err := ValidateID(id); err != nil {
		return err
	}
	if err := manifest.Validate(m); err != nil {
		return err
	}

	data, err := manifest.Encode(m)
	if err != nil {
		return err
	}

	if err := s.backend.Write(ctx, id, data); err != nil {
		return &StorageError{Op: "write", ID: id, Err: err}
	}

	s.activate(id, m)

	now := time.Now()
	s.mu.Lock()
	s.lastSaved = &now
	s.mu.Unlock()

	return nil
}

// Load reads the session stored under id and makes it active.
func (s *Store) Load(ctx context.Context, id string) (*manifest.Manifest, error) {
	if err := ValidateID(id); err != nil {
		return nil, err
	}

	m, err := s.read(ctx, id)
	if err != nil {
		return nil, err
	}

	s.activate(id, m)

	now := time.Now()
	s.mu.Lock()
	s.lastLoaded = &now
	s.mu.Unlock()

	return m, nil
}

// List summarizes every stored session, sorted by id. Every record is read
// in full; corrupt ones are logged and left out.
func (s *Store) List(ctx context.Context) ([]Summary, error) {
	ids, err := s.backend.List(ctx)
	if err != nil {
		return nil, &StorageError{Op: "list", Err: err}
	}
	sort.Strings(ids)

	summaries := make([]Summary, 0, len(ids))
	for _, id := range ids {
		m, err := s.read(ctx, id)
		if err != nil {
			var corrupt *CorruptDataError
			switch {
			case errors.As(err, &corrupt), errors.Is(err, ErrNotFound):
				s.logger.Warn("Skipping unreadable session", zap.String("session_id", id), zap.Error(err))
				continue
			default:
				return nil, err
			}
		}
		summaries = append(summaries, Summary{
			ID:        id,
			Timestamp: m.Timestamp,
			Metadata:  m.Metadata,
		})
	}

	return summaries, nil
}

// Delete removes the record stored under id. The active session is left as is.
func (s *Store) Delete(ctx context.Context, id string) error {
	if err := ValidateID(id); err != nil {
		return err
	}
	if err := s.backend.Delete(ctx, id); err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			return ErrNotFound
		}
		return &StorageError{Op: "delete", ID: id, Err: err}
	}
	return nil
}

// Active returns the active manifest, or nil before the first Save or Load.
func (s *Store) Active() *manifest.Manifest {
	return s.active.Load()
}

// Stats returns store activity timestamps.
func (s *Store) Stats() Stats {
	s.mu.RLock()
	lastSaved := s.lastSaved
	lastLoaded := s.lastLoaded
	s.mu.RUnlock()

	return Stats{
		HasActive:  s.Active() != nil,
		LastSaved:  lastSaved,
		LastLoaded: lastLoaded,
	}
}

func (s *Store) read(ctx context.Context, id string) (*manifest.Manifest, error) {
	data, err := s.backend.Read(ctx, id)
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, &StorageError{Op: "read", ID: id, Err: err}
	}

	m, err := manifest.Decode(data)
	if err != nil {
		return nil, &CorruptDataError{ID: id, Err: err}
	}
	return m, nil
}

func (s *Store) activate(id string, m *manifest.Manifest) {
	s.active.Store(m)
	if s.onActivate != nil {
		s.onActivate(id, m)
	}
}
