package signaling

import (
	"sync"
	"time"

	"mentorlink/internal/models"
)

// CallState tracks the lifecycle of a direct call session.
type CallState string

const (
	StateRinging  CallState = "ringing"
	StateAnswered CallState = "answered"
	StateEnded    CallState = "ended"
)

// CallSession is the ephemeral in-memory state of one active call. It is
// owned by the coordinator that created it and never persisted; it only
// drives mutations to the call log record.
type CallSession struct {
	CallID           string
	InitiatorID      string
	RecipientIDs     []string
	CallType         models.CallType
	ConversationType models.ConversationType
	ChatKey          string
	RoomName         string
	GroupID          string
	StartedAt        time.Time

	// Direct call state
	State CallState

	// Group call roster. everJoined keeps everyone observed in the call,
	// for missed detection after members come and go.
	joined     map[string]bool
	everJoined map[string]bool

	timer TimerHandle
	mu    sync.Mutex
}

// SetTimer attaches the session's timeout handle.
func (s *CallSession) SetTimer(h TimerHandle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.timer = h
}

// CancelTimer stops the pending timeout if still armed.
func (s *CallSession) CancelTimer() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer == nil {
		return false
	}
	return s.timer.Cancel()
}

// MarkAnswered transitions a ringing direct call to answered and cancels
// its timeout. Answering twice is a no-op.
func (s *CallSession) MarkAnswered() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.State != StateRinging {
		return
	}
	s.State = StateAnswered
	if s.timer != nil {
		s.timer.Cancel()
	}
}

// AddJoined records a group call join. Reports whether this was the first
// join ever and returns the other currently-joined members.
func (s *CallSession) AddJoined(userID string) (first bool, others []string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.joined == nil {
		s.joined = make(map[string]bool)
	}
	if s.everJoined == nil {
		s.everJoined = make(map[string]bool)
	}

	first = len(s.everJoined) == 0

	for id := range s.joined {
		if id != userID {
			others = append(others, id)
		}
	}

	s.joined[userID] = true
	s.everJoined[userID] = true
	return first, others
}

// RemoveJoined records a group call leave. Reports whether the user was in
// the call and how many members remain.
func (s *CallSession) RemoveJoined(userID string) (present bool, remaining int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.joined[userID] {
		return false, len(s.joined)
	}
	delete(s.joined, userID)
	return true, len(s.joined)
}

// JoinedSnapshot returns the currently joined members.
func (s *CallSession) JoinedSnapshot() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]string, 0, len(s.joined))
	for id := range s.joined {
		out = append(out, id)
	}
	return out
}

// EverJoinedSnapshot returns every member observed in the call so far.
func (s *CallSession) EverJoinedSnapshot() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]string, 0, len(s.everJoined))
	for id := range s.everJoined {
		out = append(out, id)
	}
	return out
}

// Registry is the in-memory store of active call sessions keyed by call ID,
// plus a TTL'd dedupe set of recently ended call IDs. A coordinator owns a
// registry instance; nothing here is a process-wide singleton.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*CallSession
	ended    map[string]time.Time
	ttl      time.Duration
	now      func() time.Time
}

// NewRegistry creates a registry whose ended-call dedupe entries expire
// after dedupeTTL.
func NewRegistry(dedupeTTL time.Duration) *Registry {
	return &Registry{
		sessions: make(map[string]*CallSession),
		ended:    make(map[string]time.Time),
		ttl:      dedupeTTL,
		now:      time.Now,
	}
}

// Insert adds a new session. Duplicate call IDs are rejected.
func (r *Registry) Insert(s *CallSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[s.CallID]; ok {
		return ErrDuplicateCall
	}
	r.sessions[s.CallID] = s
	return nil
}

// Get returns the session for a call ID.
func (r *Registry) Get(callID string) (*CallSession, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[callID]
	return s, ok
}

// GetOrCreate returns the session for callID, creating it with build when
// absent. Reports whether the session was created by this call.
func (r *Registry) GetOrCreate(callID string, build func() *CallSession) (*CallSession, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.sessions[callID]; ok {
		return s, false
	}
	s := build()
	r.sessions[callID] = s
	return s, true
}

// Take atomically removes and returns the session, so a timeout and an
// explicit end cannot both consume it.
func (r *Registry) Take(callID string) (*CallSession, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[callID]
	if ok {
		delete(r.sessions, callID)
	}
	return s, ok
}

// Remove deletes the session if present.
func (r *Registry) Remove(callID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, callID)
}

// FindDirect locates an active direct session by chat key and initiator.
// Kept for clients that do not echo the call ID on answer.
func (r *Registry) FindDirect(chatKey, initiatorID string) (*CallSession, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, s := range r.sessions {
		if s.GroupID == "" && s.ChatKey == chatKey && s.InitiatorID == initiatorID {
			return s, true
		}
	}
	return nil, false
}

// SessionsForRoom returns every session bound to a room name.
func (r *Registry) SessionsForRoom(room string) []*CallSession {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*CallSession
	for _, s := range r.sessions {
		if s.RoomName == room {
			out = append(out, s)
		}
	}
	return out
}

// MarkEnded records that a call ID has been terminated. The first call per
// ID within the TTL returns true; later calls return false, which makes
// duplicate end events no-ops. Expired entries are pruned on each call to
// bound memory.
func (r *Registry) MarkEnded(callID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	for id, at := range r.ended {
		if now.Sub(at) > r.ttl {
			delete(r.ended, id)
		}
	}

	if _, ok := r.ended[callID]; ok {
		return false
	}
	r.ended[callID] = now
	return true
}

// Len returns the number of active sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
