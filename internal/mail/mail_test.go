package mail_test

import (
	"strings"
	"testing"

	"ra-resale/internal/mail"
)

const (
	testTitle = "Resident Advisor Event"
	testURL   = "https://www.residentadvisor.net/events/1234567"
)

func TestBuildAlertPluralWording(t *testing.T) {
	msg, err := mail.BuildAlert("example@example.com", testTitle, testURL, 2)
	if err != nil {
		t.Fatalf("BuildAlert failed: %v", err)
	}

	if msg.To != "example@example.com" {
		t.Errorf("Unexpected recipient %q", msg.To)
	}
	if msg.Subject != "Tickets available for Resident Advisor Event." {
		t.Errorf("Unexpected subject %q", msg.Subject)
	}
	if msg.Text != msg.Subject {
		t.Errorf("Expected the text body to match the subject, got %q", msg.Text)
	}

	want := "Tickets available for <a href='https://www.residentadvisor.net/events/1234567'>Resident Advisor Event</a>. " +
		"You and 2 other people are subscribed to alerts for this event."
	if !strings.Contains(msg.HTML, want) {
		t.Errorf("HTML body %q missing %q", msg.HTML, want)
	}
}

func TestBuildAlertSingularWording(t *testing.T) {
	msg, err := mail.BuildAlert("example@example.com", testTitle, testURL, 1)
	if err != nil {
		t.Fatalf("BuildAlert failed: %v", err)
	}
	if !strings.Contains(msg.HTML, "You and 1 other person is subscribed to alerts for this event.") {
		t.Errorf("Unexpected HTML body %q", msg.HTML)
	}
}

func TestBuildAlertZeroOthers(t *testing.T) {
	msg, err := mail.BuildAlert("example@example.com", testTitle, testURL, 0)
	if err != nil {
		t.Fatalf("BuildAlert failed: %v", err)
	}
	if !strings.Contains(msg.HTML, "You and 0 other people are subscribed to alerts for this event.") {
		t.Errorf("Unexpected HTML body %q", msg.HTML)
	}
}

func TestBuildAlertEmbedsQRCode(t *testing.T) {
	msg, err := mail.BuildAlert("example@example.com", testTitle, testURL, 0)
	if err != nil {
		t.Fatalf("BuildAlert failed: %v", err)
	}
	if len(msg.QRCode) == 0 {
		t.Fatal("Expected a QR code payload")
	}
	if !strings.Contains(msg.HTML, `src="cid:event-qr.png"`) {
		t.Errorf("Expected the HTML body to reference the embedded image, got %q", msg.HTML)
	}
}
