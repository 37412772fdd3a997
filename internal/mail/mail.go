package mail

import (
	"fmt"

	qrcode "github.com/skip2/go-qrcode"
)

// Message is a fully rendered alert, ready for a transport.
type Message struct {
	To      string
	Subject string
	Text    string
	HTML    string
	// QRCode is an optional PNG of the event URL, embedded in the HTML
	// body so the alert can be opened on a phone straight from a laptop
	// screen.
	QRCode []byte
}

// BuildAlert renders the notification for one tracker.
// otherSubscribers is the number of trackers on the same event url
// besides the recipient.
func BuildAlert(to, eventTitle, eventURL string, otherSubscribers int) (Message, error) {
	subject := fmt.Sprintf("Tickets available for %s.", eventTitle)

	html := fmt.Sprintf(
		"Tickets available for <a href='%s'>%s</a>. You and %s to alerts for this event.",
		eventURL, eventTitle, subscriberClause(otherSubscribers),
	)

	png, err := qrcode.Encode(eventURL, qrcode.Medium, 160)
	if err != nil {
		return Message{}, fmt.Errorf("encode event qr: %w", err)
	}
	html += fmt.Sprintf("<p><img src=\"cid:%s\" alt=\"%s\"></p>", qrFilename, eventURL)

	return Message{
		To:      to,
		Subject: subject,
		Text:    subject,
		HTML:    html,
		QRCode:  png,
	}, nil
}

func subscriberClause(n int) string {
	if n == 1 {
		return "1 other person is subscribed"
	}
	return fmt.Sprintf("%d other people are subscribed", n)
}
