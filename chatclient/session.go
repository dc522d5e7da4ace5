package chatclient

import (
	"context"
	"log"
	"net/http"
	"sync"
)

// Config wires a Session to one chat service.
type Config struct {
	BaseURL string // e.g. https://api.example.com
	WSURL   string // e.g. wss://api.example.com/ws
	Token   string // bearer token minted by the auth subsystem
	UserID  uint

	// HTTPClient overrides the default REST transport, mainly for tests.
	HTTPClient *http.Client
}

// Session is the top-level chat core for one signed-in user. It owns the
// shared mutable state (unread counts, previews, open conversation) that
// the dashboard's views read through snapshots, and it is the single
// routing point for inbound live events: every message lands in exactly one
// of the open conversation's store or the unread aggregator.
type Session struct {
	userID uint

	api      *Client
	conn     *ConnManager
	store    *MessageStore
	agg      *Aggregator
	readSync *ReadSync
	delivery *Delivery

	mu     sync.Mutex
	active uint // counterpart of the open conversation, 0 when none
}

func NewSession(cfg Config) *Session {
	api := NewClient(cfg.BaseURL, cfg.Token, cfg.HTTPClient)
	conn := NewConnManager(cfg.WSURL, cfg.Token, cfg.UserID)
	store := NewMessageStore(cfg.UserID)
	agg := NewAggregator()

	s := &Session{
		userID:   cfg.UserID,
		api:      api,
		conn:     conn,
		store:    store,
		agg:      agg,
		readSync: NewReadSync(api, agg),
		delivery: NewDelivery(api, conn, store),
	}
	conn.OnReceiveMessage(s.HandleIncoming)
	return s
}

// Start connects the live channel and loads the initial unread and preview
// maps. A failed initial load is returned so the caller can surface it and
// retry; prior (empty) state is left intact.
func (s *Session) Start(ctx context.Context) error {
	if err := s.conn.Start(); err != nil {
		// The manager keeps redialing in the background; starting degraded
		// is fine because history fetches cover the gap.
		return err
	}
	return s.LoadAggregates(ctx)
}

// LoadAggregates fetches the unread-count and last-message maps.
func (s *Session) LoadAggregates(ctx context.Context) error {
	counts, err := s.api.UnreadCounts(ctx, s.userID)
	if err != nil {
		return err
	}
	previews, err := s.api.LastMessages(ctx, s.userID)
	if err != nil {
		return err
	}
	s.agg.Load(counts, previews)
	return nil
}

// Open makes counterpart the active conversation: mark their messages read,
// then load history. The history response is installed only if no newer
// Open has happened while it was in flight.
func (s *Session) Open(ctx context.Context, counterpart uint) error {
	s.mu.Lock()
	s.active = counterpart
	s.mu.Unlock()

	epoch := s.store.Open(counterpart)

	if err := s.readSync.MarkConversationRead(ctx, s.userID, counterpart); err != nil {
		// Unread state stays as-is (it self-heals on the next open) and
		// history is still worth loading.
		log.Printf("chatclient: mark-as-read failed for peer %d: %v", counterpart, err)
	}
	return s.loadHistory(ctx, counterpart, epoch)
}

func (s *Session) loadHistory(ctx context.Context, counterpart uint, epoch uint64) error {
	history, err := s.api.Messages(ctx, s.userID, counterpart)
	if err != nil {
		return err
	}
	s.store.CompleteLoad(epoch, history)
	return nil
}

// CloseConversation leaves the active conversation.
func (s *Session) CloseConversation() {
	s.mu.Lock()
	s.active = 0
	s.mu.Unlock()
	s.store.Close()
}

// ActiveCounterpart returns the open conversation's peer, 0 when none.
func (s *Session) ActiveCounterpart() uint {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// HandleIncoming routes one inbound live message. The active-conversation
// id is read here, at call time, and passed down as an argument; the
// routing decision never depends on state captured when the handler was
// registered.
//
// Exactly one component absorbs the message: the store when the message
// belongs to the open conversation, the aggregator's unread count
// otherwise. The preview always refreshes, since the user-list entry must
// stay current for open and background conversations alike.
func (s *Session) HandleIncoming(msg Message) {
	if !msg.Involves(s.userID) {
		return
	}
	active := s.ActiveCounterpart()

	// Store absorbs the message only when its pair matches the open
	// conversation; the aggregator increments only when it does not. The
	// same active id feeds both decisions, so the message can't fall
	// through or be counted twice.
	s.store.Apply(msg)
	s.agg.OnIncoming(msg, s.userID, active)
}

// Send delivers content to the open conversation.
func (s *Session) Send(ctx context.Context, content string) (Message, error) {
	return s.delivery.Send(ctx, s.userID, s.ActiveCounterpart(), content)
}

// SendTo delivers content to an arbitrary peer, open or not.
func (s *Session) SendTo(ctx context.Context, receiverID uint, content string) (Message, error) {
	return s.delivery.Send(ctx, s.userID, receiverID, content)
}

// Messages returns a snapshot of the open conversation's history.
func (s *Session) Messages() []Message {
	return s.store.Messages()
}

// UnreadCounts returns a snapshot of the per-peer unread map.
func (s *Session) UnreadCounts() map[uint]int64 {
	return s.agg.UnreadCounts()
}

// Previews returns a snapshot of the per-peer last-message map.
func (s *Session) Previews() map[uint]LastMessage {
	return s.agg.Previews()
}

// Close tears down the live connection.
func (s *Session) Close() error {
	return s.conn.Close()
}
