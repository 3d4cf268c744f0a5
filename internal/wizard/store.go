package wizard

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"chandlery/internal"
)

// Session holds the working state of one wizard run. All fields are guarded
// by mu; service actions hold the lock for their whole duration so derived
// state is never observed mid-update.
type Session struct {
	mu sync.Mutex

	ID          string
	CurrentStep Step
	UploadData  *internal.UploadResult
	MatchData   *internal.MatchResult
	Selection   *SelectionSet
	Candidates  *CandidateSet
	Assignments []internal.ProductSupplierAssignment
	EmailGroups []internal.SupplierEmailInfo
	Overlays    map[string]*internal.ExcelModification
	Lock        SendLock
	LastTouched time.Time
}

// Store keeps live sessions in memory and evicts the ones idle past ttl.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*Session
	ttl      time.Duration
	stop     chan struct{}
	stopOnce sync.Once
}

func NewStore(ttl, sweepEvery time.Duration) *Store {
	s := &Store{
		sessions: map[string]*Session{},
		ttl:      ttl,
		stop:     make(chan struct{}),
	}
	if sweepEvery > 0 {
		go s.janitor(sweepEvery)
	}
	return s
}

func (s *Store) janitor(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.evictExpired(time.Now())
		}
	}
}

func (s *Store) evictExpired(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, sess := range s.sessions {
		sess.mu.Lock()
		idle := now.Sub(sess.LastTouched)
		sess.mu.Unlock()
		if idle > s.ttl {
			delete(s.sessions, id)
		}
	}
}

func (s *Store) Create() *Session {
	sess := &Session{
		ID:          uuid.NewString(),
		CurrentStep: StepUpload,
		Overlays:    map[string]*internal.ExcelModification{},
		LastTouched: time.Now(),
	}
	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()
	return sess
}

func (s *Store) Get(id string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

func (s *Store) Delete(id string) {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *Store) Close() {
	s.stopOnce.Do(func() { close(s.stop) })
}
