package mail

import "testing"

func TestMailWithReceiversDropsInvalidAddresses(t *testing.T) {
	m := New().WithReceivers("valid@example.com", "not-an-email", "also.valid@example.com")

	to := m.To()
	if len(to) != 2 {
		t.Fatalf("expected 2 valid receivers, got %d: %v", len(to), to)
	}
	if to[0] != "valid@example.com" || to[1] != "also.valid@example.com" {
		t.Fatalf("unexpected receivers: %v", to)
	}
}

func TestMailAddReceiverRejectsInvalidAddress(t *testing.T) {
	m := New()
	m.AddReceiver("not-an-email")
	if len(m.To()) != 0 {
		t.Fatalf("expected invalid address to be dropped, got %v", m.To())
	}

	m.AddReceiver("valid@example.com")
	if len(m.To()) != 1 {
		t.Fatalf("expected valid address to be added, got %v", m.To())
	}
}

func TestMailBuilderChaining(t *testing.T) {
	m := New().
		WithSender("noreply@example.com").
		WithReceivers("user@example.com").
		WithSubject("Welcome").
		WithText("hello")

	if m.From() != "noreply@example.com" {
		t.Errorf("expected sender to be set, got %q", m.From())
	}
	if m.Subject() != "Welcome" {
		t.Errorf("expected subject to be set, got %q", m.Subject())
	}
	if string(m.Message()) != "hello" {
		t.Errorf("expected message to be set, got %q", m.Message())
	}
}
