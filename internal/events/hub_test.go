package events

import (
	"testing"
	"time"
)

func TestSendToAbsentParticipant(t *testing.T) {
	h := NewHub()
	if h.Send("nobody", Message{Type: EventError}) {
		t.Fatal("expected send to absent participant to fail")
	}
}

func TestSendDelivers(t *testing.T) {
	h := NewHub()
	c := NewClient("p1")
	h.AddClient(c)

	if !h.Send("p1", Message{Type: EventWelcome, RequestID: "r1"}) {
		t.Fatal("expected delivery")
	}
	select {
	case msg := <-c.Outbound:
		if msg.Type != EventWelcome || msg.RequestID != "r1" {
			t.Fatalf("unexpected message %+v", msg)
		}
	default:
		t.Fatal("expected a buffered message")
	}
}

func TestAddClientSupersedes(t *testing.T) {
	h := NewHub()
	old := NewClient("p1")
	h.AddClient(old)
	fresh := NewClient("p1")
	h.AddClient(fresh)

	select {
	case <-old.Done():
	default:
		t.Fatal("expected old client closed")
	}
	if h.RemoveClient(old) {
		t.Fatal("expected superseded client removal to be ignored")
	}
	if h.ClientCount() != 1 {
		t.Fatalf("expected 1 client, got %d", h.ClientCount())
	}
	if !h.RemoveClient(fresh) {
		t.Fatal("expected current client removal to succeed")
	}
	if h.ClientCount() != 0 {
		t.Fatalf("expected 0 clients, got %d", h.ClientCount())
	}
}

func TestSendFullBufferClosesClient(t *testing.T) {
	h := NewHub()
	c := NewClient("p1")
	h.AddClient(c)
	for range ClientBufferSize {
		if !h.Send("p1", Message{Type: EventFireResult}) {
			t.Fatal("expected buffered delivery")
		}
	}

	start := time.Now()
	if h.Send("p1", Message{Type: EventError}) {
		t.Fatal("expected send to a stuck client to fail")
	}
	if elapsed := time.Since(start); elapsed > 50*time.Millisecond {
		t.Fatalf("expected send not to wait, took %s", elapsed)
	}
	select {
	case <-c.Done():
	default:
		t.Fatal("expected slow client closed")
	}
	if !h.Connected("p1") {
		t.Fatal("expected client to stay registered until its connection removes it")
	}
	h.RemoveClient(c)
	if h.Connected("p1") {
		t.Fatal("expected participant gone after removal")
	}
}

func TestSendToClosedClient(t *testing.T) {
	h := NewHub()
	c := &Client{ParticipantID: "p1", Outbound: make(chan Message), closed: make(chan struct{})}
	h.AddClient(c)
	c.Close()
	c.Close()

	if h.Send("p1", Message{Type: EventError}) {
		t.Fatal("expected send to a closed client to fail")
	}
}

func TestBroadcastPersonalized(t *testing.T) {
	h := NewHub()
	a, b := NewClient("a"), NewClient("b")
	h.AddClient(a)
	h.AddClient(b)

	h.BroadcastPersonalized([]string{"a", "b"}, func(id string) Message {
		return Message{Type: EventSessionStart, Data: id}
	})
	if msg := <-a.Outbound; msg.Data != "a" {
		t.Fatalf("expected a's rendering, got %v", msg.Data)
	}
	if msg := <-b.Outbound; msg.Data != "b" {
		t.Fatalf("expected b's rendering, got %v", msg.Data)
	}
}

func TestCloseAll(t *testing.T) {
	h := NewHub()
	a, b := NewClient("a"), NewClient("b")
	h.AddClient(a)
	h.AddClient(b)

	h.CloseAll()
	for _, c := range []*Client{a, b} {
		select {
		case <-c.Done():
		default:
			t.Fatalf("expected %s closed", c.ParticipantID)
		}
	}
	if h.ClientCount() != 0 {
		t.Fatalf("expected 0 clients, got %d", h.ClientCount())
	}
	if h.RemoveClient(a) {
		t.Fatal("expected removal after CloseAll to be ignored")
	}
}
