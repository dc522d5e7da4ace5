package chatclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"
)

// fakeChatAPI is an in-memory stand-in for the chat service's REST surface.
type fakeChatAPI struct {
	mu            sync.Mutex
	messages      []Message
	nextID        uint
	markReadCalls int
	failMarkRead  bool
}

func newFakeChatAPI() *fakeChatAPI {
	return &fakeChatAPI{nextID: 1}
}

func (f *fakeChatAPI) seed(msg Message) {
	f.mu.Lock()
	defer f.mu.Unlock()
	msg.ID = f.nextID
	f.nextID++
	f.messages = append(f.messages, msg)
}

func (f *fakeChatAPI) handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/v1/messages", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()

		switch r.Method {
		case http.MethodGet:
			sender, _ := strconv.ParseUint(r.URL.Query().Get("sender"), 10, 32)
			receiver, _ := strconv.ParseUint(r.URL.Query().Get("receiver"), 10, 32)
			out := []Message{}
			for _, m := range f.messages {
				if m.MatchesPair(uint(sender), uint(receiver)) {
					out = append(out, m)
				}
			}
			json.NewEncoder(w).Encode(map[string]interface{}{"messages": out})

		case http.MethodPost:
			var in Message
			json.NewDecoder(r.Body).Decode(&in)
			for _, m := range f.messages {
				if in.ClientID != "" && m.ClientID == in.ClientID && m.Sender == in.Sender {
					json.NewEncoder(w).Encode(m)
					return
				}
			}
			in.ID = f.nextID
			f.nextID++
			f.messages = append(f.messages, in)
			w.WriteHeader(http.StatusCreated)
			json.NewEncoder(w).Encode(in)
		}
	})

	mux.HandleFunc("/api/v1/messages/unread-counts", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		userID, _ := strconv.ParseUint(r.URL.Query().Get("userId"), 10, 32)
		counts := make(map[string]int64)
		for _, m := range f.messages {
			if m.Receiver == uint(userID) && !m.IsRead {
				counts[strconv.FormatUint(uint64(m.Sender), 10)]++
			}
		}
		json.NewEncoder(w).Encode(map[string]interface{}{"unreadCounts": counts})
	})

	mux.HandleFunc("/api/v1/messages/last", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		userID, _ := strconv.ParseUint(r.URL.Query().Get("userId"), 10, 32)
		last := make(map[string]LastMessage)
		newest := make(map[string]time.Time)
		for _, m := range f.messages {
			if !m.Involves(uint(userID)) {
				continue
			}
			peer := strconv.FormatUint(uint64(m.Counterpart(uint(userID))), 10)
			if ts, ok := newest[peer]; !ok || m.Timestamp.After(ts) {
				newest[peer] = m.Timestamp
				last[peer] = LastMessage{Content: m.Content, Timestamp: m.Timestamp}
			}
		}
		json.NewEncoder(w).Encode(map[string]interface{}{"lastMessages": last})
	})

	mux.HandleFunc("/api/v1/messages/mark-read", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.markReadCalls++
		if f.failMarkRead {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte(`{"error": "database unavailable", "code": "INTERNAL"}`))
			return
		}
		var body struct {
			Sender   uint `json:"sender"`
			Receiver uint `json:"receiver"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		var updated int64
		for i := range f.messages {
			m := &f.messages[i]
			if m.Sender == body.Sender && m.Receiver == body.Receiver && !m.IsRead {
				m.IsRead = true
				updated++
			}
		}
		json.NewEncoder(w).Encode(map[string]int64{"updated": updated})
	})

	return mux
}

func newTestSession(t *testing.T, api *fakeChatAPI, userID uint) (*Session, func()) {
	t.Helper()
	srv := httptest.NewServer(api.handler())
	s := NewSession(Config{
		BaseURL: srv.URL,
		WSURL:   "ws://127.0.0.1:1/ws", // never dialed: tests drive HandleIncoming directly
		Token:   "test-token",
		UserID:  userID,
	})
	return s, func() {
		s.Close()
		srv.Close()
	}
}

func TestSessionRoutesExactlyOnce(t *testing.T) {
	ts := time.Date(2024, 5, 1, 11, 0, 0, 0, time.UTC)
	api := newFakeChatAPI()
	s, teardown := newTestSession(t, api, 1)
	defer teardown()

	if err := s.Open(context.Background(), 2); err != nil {
		t.Fatalf("Open: %v", err)
	}

	// Message for the open conversation: history gets it, unread does not.
	s.HandleIncoming(mkMsg(10, "c-10", 2, 1, "for open chat", ts))
	if s.store.Len() != 1 {
		t.Errorf("open-conversation message not in store")
	}
	if got := s.agg.UnreadCount(2); got != 0 {
		t.Errorf("open-conversation message counted as unread: %d", got)
	}

	// Message from a background peer: unread gets it, history does not.
	s.HandleIncoming(mkMsg(11, "c-11", 3, 1, "background", ts))
	if s.store.Len() != 1 {
		t.Errorf("background message leaked into open conversation")
	}
	if got := s.agg.UnreadCount(3); got != 1 {
		t.Errorf("background message not counted: %d", got)
	}

	// Messages between other users are dropped entirely.
	s.HandleIncoming(mkMsg(12, "c-12", 5, 6, "not ours", ts))
	if s.store.Len() != 1 || len(s.agg.UnreadCounts()) != 1 {
		t.Errorf("unrelated message changed state")
	}
}

func TestSessionOpenMarksReadAndLoadsHistory(t *testing.T) {
	ts := time.Date(2024, 5, 1, 11, 0, 0, 0, time.UTC)
	api := newFakeChatAPI()
	api.seed(Message{ClientID: "c-1", Sender: 2, Receiver: 1, Content: "unread one", Timestamp: ts})
	api.seed(Message{ClientID: "c-2", Sender: 2, Receiver: 1, Content: "unread two", Timestamp: ts.Add(time.Minute)})

	s, teardown := newTestSession(t, api, 1)
	defer teardown()

	if err := s.LoadAggregates(context.Background()); err != nil {
		t.Fatalf("LoadAggregates: %v", err)
	}
	if got := s.UnreadCounts()[2]; got != 2 {
		t.Fatalf("initial unread = %d, want 2", got)
	}

	if err := s.Open(context.Background(), 2); err != nil {
		t.Fatalf("Open: %v", err)
	}

	if got := s.UnreadCounts()[2]; got != 0 {
		t.Errorf("unread = %d after open, want 0", got)
	}
	if len(s.Messages()) != 2 {
		t.Errorf("history = %d messages, want 2", len(s.Messages()))
	}

	// Re-opening with nothing unread must behave identically: same calls,
	// same zero count, no error.
	if err := s.Open(context.Background(), 2); err != nil {
		t.Fatalf("second Open: %v", err)
	}
	if got := s.UnreadCounts()[2]; got != 0 {
		t.Errorf("unread = %d after second open, want 0", got)
	}
	if api.markReadCalls != 2 {
		t.Errorf("markReadCalls = %d, want one per open", api.markReadCalls)
	}
}

func TestSessionMarkReadFailureKeepsCount(t *testing.T) {
	ts := time.Date(2024, 5, 1, 11, 0, 0, 0, time.UTC)
	api := newFakeChatAPI()
	api.seed(Message{ClientID: "c-1", Sender: 2, Receiver: 1, Content: "unread", Timestamp: ts})
	api.failMarkRead = true

	s, teardown := newTestSession(t, api, 1)
	defer teardown()

	if err := s.LoadAggregates(context.Background()); err != nil {
		t.Fatalf("LoadAggregates: %v", err)
	}
	if err := s.Open(context.Background(), 2); err != nil {
		t.Fatalf("Open: %v", err)
	}

	// The acknowledgement failed, so the badge must not lie about it.
	if got := s.UnreadCounts()[2]; got != 1 {
		t.Errorf("unread = %d after failed mark-read, want 1", got)
	}
	// History still loads; reading is not blocked by the failed receipt.
	if len(s.Messages()) != 1 {
		t.Errorf("history = %d messages, want 1", len(s.Messages()))
	}
}

func TestSessionSendAppearsExactlyOnce(t *testing.T) {
	api := newFakeChatAPI()
	s, teardown := newTestSession(t, api, 1)
	defer teardown()

	if err := s.Open(context.Background(), 2); err != nil {
		t.Fatalf("Open: %v", err)
	}

	sent, err := s.Send(context.Background(), "status update")
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if sent.ID == 0 || sent.ClientID == "" {
		t.Fatalf("Send returned %+v, want assigned id and client id", sent)
	}
	if len(s.Messages()) != 1 {
		t.Fatalf("history = %d after send, want 1", len(s.Messages()))
	}

	// The server relays the message back to the sender too; the echo must
	// collapse into the optimistic copy.
	s.HandleIncoming(sent)
	if len(s.Messages()) != 1 {
		t.Errorf("relay echo duplicated the message: %d", len(s.Messages()))
	}

	// After a full reload the persisted copy replaces the optimistic one,
	// still exactly once.
	if err := s.Open(context.Background(), 2); err != nil {
		t.Fatalf("re-open: %v", err)
	}
	if len(s.Messages()) != 1 {
		t.Errorf("history = %d after reload, want 1", len(s.Messages()))
	}
	if got := s.Messages()[0]; got.ID != sent.ID {
		t.Errorf("reloaded message id = %d, want %d", got.ID, sent.ID)
	}
}

func TestSessionSendRetrySameClientID(t *testing.T) {
	api := newFakeChatAPI()
	s, teardown := newTestSession(t, api, 1)
	defer teardown()

	if err := s.Open(context.Background(), 2); err != nil {
		t.Fatalf("Open: %v", err)
	}

	sent, err := s.SendTo(context.Background(), 2, "once")
	if err != nil {
		t.Fatalf("SendTo: %v", err)
	}

	// A client retry resends the same payload with the same client id; the
	// server must return the original row instead of inserting again.
	again, err := s.api.Send(context.Background(), Message{
		ClientID: sent.ClientID, Sender: 1, Receiver: 2,
		Content: "once", Timestamp: sent.Timestamp,
	})
	if err != nil {
		t.Fatalf("retry Send: %v", err)
	}
	if again.ID != sent.ID {
		t.Errorf("retry created a new row: %d != %d", again.ID, sent.ID)
	}

	api.mu.Lock()
	stored := len(api.messages)
	api.mu.Unlock()
	if stored != 1 {
		t.Errorf("server holds %d rows, want 1", stored)
	}
}

func TestSessionCloseConversation(t *testing.T) {
	ts := time.Date(2024, 5, 1, 11, 0, 0, 0, time.UTC)
	api := newFakeChatAPI()
	s, teardown := newTestSession(t, api, 1)
	defer teardown()

	if err := s.Open(context.Background(), 2); err != nil {
		t.Fatalf("Open: %v", err)
	}
	s.CloseConversation()

	if s.ActiveCounterpart() != 0 {
		t.Errorf("ActiveCounterpart = %d after close", s.ActiveCounterpart())
	}

	// With nothing open, a message from the former counterpart counts as
	// unread again.
	s.HandleIncoming(mkMsg(20, "c-20", 2, 1, "after close", ts))
	if got := s.agg.UnreadCount(2); got != 1 {
		t.Errorf("unread = %d after close, want 1", got)
	}
	if s.store.Len() != 0 {
		t.Errorf("closed store absorbed a message")
	}
}
