package signaling

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/samber/lo"

	"mentorlink/internal/models"
	"mentorlink/internal/ws"
)

// emission records one broadcast for assertions.
type emission struct {
	Room    string
	UserID  string
	Event   ws.Event
	Payload interface{}
	Exclude string
}

type fakeBroadcaster struct {
	mu        sync.Mutex
	roomSends []emission
	userSends []emission
	joins     []emission
	leaves    []emission
	present   map[string][]string
}

func newFakeBroadcaster() *fakeBroadcaster {
	return &fakeBroadcaster{present: make(map[string][]string)}
}

func (b *fakeBroadcaster) JoinRoom(userID, room string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.joins = append(b.joins, emission{Room: room, UserID: userID})
	b.present[room] = append(b.present[room], userID)
}

func (b *fakeBroadcaster) LeaveRoom(userID, room string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.leaves = append(b.leaves, emission{Room: room, UserID: userID})
	b.present[room] = lo.Without(b.present[room], userID)
}

func (b *fakeBroadcaster) EmitToRoom(room string, event ws.Event, payload interface{}, excludeUserID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.roomSends = append(b.roomSends, emission{Room: room, Event: event, Payload: payload, Exclude: excludeUserID})
}

func (b *fakeBroadcaster) EmitToUser(userID string, event ws.Event, payload interface{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.userSends = append(b.userSends, emission{UserID: userID, Event: event, Payload: payload})
}

func (b *fakeBroadcaster) ConnectedUserIDs(room string) []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.present[room]...)
}

func (b *fakeBroadcaster) setPresent(room string, userIDs ...string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.present[room] = userIDs
}

func (b *fakeBroadcaster) roomEvents(event ws.Event) []emission {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []emission
	for _, e := range b.roomSends {
		if e.Event == event {
			out = append(out, e)
		}
	}
	return out
}

func (b *fakeBroadcaster) userEvents(event ws.Event) []emission {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []emission
	for _, e := range b.userSends {
		if e.Event == event {
			out = append(out, e)
		}
	}
	return out
}

// fakeCallLogStore is an in-memory CallLogStore.
type fakeCallLogStore struct {
	mu        sync.Mutex
	records   map[string]*models.CallLog
	createErr error
	updateErr error
}

func newFakeCallLogStore() *fakeCallLogStore {
	return &fakeCallLogStore{records: make(map[string]*models.CallLog)}
}

func (s *fakeCallLogStore) Create(ctx context.Context, record *models.CallLog) (*models.CallLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return nil, s.createErr
	}
	cp := *record
	s.records[record.CallID] = &cp
	return &cp, nil
}

func (s *fakeCallLogStore) FindByCallID(ctx context.Context, callID string) (*models.CallLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.records[callID]
	if !ok {
		return nil, nil
	}
	cp := *record
	return &cp, nil
}

func (s *fakeCallLogStore) Update(ctx context.Context, callID string, patch CallLogPatch) (*models.CallLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.updateErr != nil {
		return nil, s.updateErr
	}
	record, ok := s.records[callID]
	if !ok {
		return nil, fmt.Errorf("call log not found: %s", callID)
	}
	if patch.Status != nil {
		record.Status = *patch.Status
	}
	if patch.EndTime != nil {
		record.EndTime = patch.EndTime
	}
	if patch.DurationSeconds != nil {
		record.DurationSeconds = patch.DurationSeconds
	}
	cp := *record
	return &cp, nil
}

func (s *fakeCallLogStore) get(callID string) *models.CallLog {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.records[callID]
}

// fakeDirectory serves relationships and groups from maps.
type fakeDirectory struct {
	relationships map[string]*models.Relationship // key: sorted pair
	groups        map[string][]string
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{
		relationships: make(map[string]*models.Relationship),
		groups:        make(map[string][]string),
	}
}

func pairKey(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return a + "|" + b
}

func (d *fakeDirectory) addRelationship(rel *models.Relationship) {
	d.relationships[pairKey(rel.ParticipantIDs[0], rel.ParticipantIDs[1])] = rel
}

func (d *fakeDirectory) ResolveRelationship(ctx context.Context, userA, userB string) (*models.Relationship, error) {
	return d.relationships[pairKey(userA, userB)], nil
}

func (d *fakeDirectory) GroupMembers(ctx context.Context, groupID string) ([]string, error) {
	members, ok := d.groups[groupID]
	if !ok {
		return nil, fmt.Errorf("group not found: %s", groupID)
	}
	return members, nil
}

func (d *fakeDirectory) ConversationMembers(ctx context.Context, convType models.ConversationType, conversationID string) ([]string, error) {
	if convType == models.ConversationGroup {
		return d.GroupMembers(ctx, conversationID)
	}
	for _, rel := range d.relationships {
		if rel.ID.Hex() == conversationID {
			return rel.ParticipantIDs, nil
		}
	}
	return nil, fmt.Errorf("relationship not found: %s", conversationID)
}

// fakeNotifier records notifications.
type fakeNotifier struct {
	mu      sync.Mutex
	sent    []models.NotificationInput
	missed  []string // "recipient|callID"
	sendErr error
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{}
}

func (n *fakeNotifier) Send(ctx context.Context, in models.NotificationInput) (*models.Notification, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.sendErr != nil {
		return nil, n.sendErr
	}
	n.sent = append(n.sent, in)
	return &models.Notification{
		RecipientID: in.RecipientID,
		SenderID:    in.SenderID,
		Kind:        in.Kind,
		CallID:      in.CallID,
		IsRead:      in.Read,
	}, nil
}

func (n *fakeNotifier) MarkMissed(ctx context.Context, recipientID, callID, text string) (*models.Notification, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.missed = append(n.missed, recipientID+"|"+callID)
	return &models.Notification{
		RecipientID: recipientID,
		Kind:        models.NotificationMissedCall,
		CallID:      callID,
		Text:        text,
	}, nil
}

func (n *fakeNotifier) sentOfKind(kind models.NotificationKind) []models.NotificationInput {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []models.NotificationInput
	for _, in := range n.sent {
		if in.Kind == kind {
			out = append(out, in)
		}
	}
	return out
}

// fakeScheduler captures timers for manual firing.
type fakeScheduler struct {
	mu     sync.Mutex
	timers []*fakeTimer
}

type fakeTimer struct {
	fn       func()
	delay    time.Duration
	canceled bool
	fired    bool
	mu       sync.Mutex
}

func newFakeScheduler() *fakeScheduler {
	return &fakeScheduler{}
}

func (s *fakeScheduler) Schedule(delay time.Duration, fn func()) TimerHandle {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &fakeTimer{fn: fn, delay: delay}
	s.timers = append(s.timers, t)
	return t
}

func (t *fakeTimer) Cancel() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.fired || t.canceled {
		return false
	}
	t.canceled = true
	return true
}

// Fire runs the callback unless the timer was canceled.
func (t *fakeTimer) Fire() {
	t.mu.Lock()
	if t.canceled || t.fired {
		t.mu.Unlock()
		return
	}
	t.fired = true
	fn := t.fn
	t.mu.Unlock()
	fn()
}

func (s *fakeScheduler) last() *fakeTimer {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.timers) == 0 {
		return nil
	}
	return s.timers[len(s.timers)-1]
}

// fakeMessageStore is an in-memory MessageStore.
type fakeMessageStore struct {
	mu        sync.Mutex
	messages  []*models.ChatMessage
	nextID    int
	insertErr error
}

func newFakeMessageStore() *fakeMessageStore {
	return &fakeMessageStore{}
}

func (s *fakeMessageStore) Insert(ctx context.Context, msg *models.ChatMessage) (*models.ChatMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.insertErr != nil {
		return nil, s.insertErr
	}
	s.nextID++
	cp := *msg
	s.messages = append(s.messages, &cp)
	return &cp, nil
}

func (s *fakeMessageStore) List(ctx context.Context, chatKey string, limit int64) ([]models.ChatMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.ChatMessage
	for _, m := range s.messages {
		if m.ChatKey == chatKey {
			out = append(out, *m)
		}
	}
	return out, nil
}

func (s *fakeMessageStore) MarkRead(ctx context.Context, chatKey, readerID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []string
	for i, m := range s.messages {
		if m.ChatKey == chatKey && m.SenderID != readerID && !m.IsRead {
			m.IsRead = true
			m.Status = models.MessageStatusRead
			ids = append(ids, fmt.Sprintf("msg_%d", i))
		}
	}
	return ids, nil
}

func (s *fakeMessageStore) UnreadCount(ctx context.Context, chatKey, userID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var count int64
	for _, m := range s.messages {
		if m.ChatKey == chatKey && m.SenderID != userID && !m.IsRead {
			count++
		}
	}
	return count, nil
}
