package extract

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// ErrExtractionFailed is the single failure mode for every missing or
// unparsable node. The specific field is not preserved; callers only
// need to know the page shape was unexpected.
var ErrExtractionFailed = errors.New("extract: unexpected page markup")

// EventPage is the normalized record extracted from an event page.
type EventPage struct {
	Title        string
	Date         time.Time
	ResaleActive bool
}

// Ticket is one listing extracted from the tickets widget.
type Ticket struct {
	Title     string
	Price     string
	Available bool
}

const dateLayout = "2 Jan 2006"

// availability maps the widget's status class token to an availability
// flag. Closed-world: any token not listed here is unavailable.
var availability = map[string]bool{
	"closed":     false,
	"onsale but": true,
}

// ParseEventPage extracts title, date and the resale-activation marker
// from event page markup.
func ParseEventPage(markup string) (EventPage, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return EventPage{}, fmt.Errorf("%w: %v", ErrExtractionFailed, err)
	}

	title, err := eventTitle(doc)
	if err != nil {
		return EventPage{}, err
	}

	date, err := eventDate(doc)
	if err != nil {
		return EventPage{}, err
	}

	return EventPage{
		Title:        title,
		Date:         date,
		ResaleActive: resaleActive(doc),
	}, nil
}

// ParseTicketsPage extracts the ticket listings from tickets widget
// markup. An empty widget yields an empty slice, not an error.
func ParseTicketsPage(markup string) ([]Ticket, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExtractionFailed, err)
	}

	var parseErr error
	tickets := []Ticket{}
	doc.Find("li#tickets > ul > li").EachWithBreak(func(_ int, node *goquery.Selection) bool {
		ticket, err := parseTicket(node)
		if err != nil {
			parseErr = err
			return false
		}
		tickets = append(tickets, ticket)
		return true
	})
	if parseErr != nil {
		return nil, parseErr
	}

	return tickets, nil
}

// Field accessors. All site coupling lives in these selectors.

func eventTitle(doc *goquery.Document) (string, error) {
	return firstText(doc.Selection, "div#sectionHead h1")
}

func eventDate(doc *goquery.Document) (time.Time, error) {
	raw, err := firstText(doc.Selection, "aside#detail a.cat-rev")
	if err != nil {
		return time.Time{}, err
	}

	// Ranged listings carry several comma-delimited dates; track against
	// the latest one so the event is not considered over while any of
	// its days are still ahead.
	parts := strings.Split(raw, ",")
	last := strings.TrimSpace(parts[len(parts)-1])

	date, err := time.Parse(dateLayout, last)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: bad date %q", ErrExtractionFailed, last)
	}
	return date, nil
}

func resaleActive(doc *goquery.Document) bool {
	value, _ := doc.Find("input#resaleMessage").Attr("value")
	return strings.Contains(value, "Resale active")
}

func parseTicket(node *goquery.Selection) (Ticket, error) {
	class, _ := node.Attr("class")

	span := node.Find("p span").First()
	if span.Length() == 0 {
		return Ticket{}, fmt.Errorf("%w: ticket price node missing", ErrExtractionFailed)
	}
	price := strings.TrimSpace(span.Text())

	title, err := followingText(span)
	if err != nil {
		return Ticket{}, err
	}

	return Ticket{
		Title:     title,
		Price:     price,
		Available: availability[class],
	}, nil
}

// followingText returns the first non-empty text node after the price
// span, which is where the widget puts the ticket tier name.
func followingText(span *goquery.Selection) (string, error) {
	for n := span.Get(0).NextSibling; n != nil; n = n.NextSibling {
		if n.Type == html.TextNode {
			if text := strings.TrimSpace(n.Data); text != "" {
				return text, nil
			}
		}
	}
	return "", fmt.Errorf("%w: ticket title node missing", ErrExtractionFailed)
}

func firstText(root *goquery.Selection, selector string) (string, error) {
	node := root.Find(selector).First()
	if node.Length() == 0 {
		return "", fmt.Errorf("%w: no node for %q", ErrExtractionFailed, selector)
	}
	text := strings.TrimSpace(node.Text())
	if text == "" {
		return "", fmt.Errorf("%w: empty node for %q", ErrExtractionFailed, selector)
	}
	return text, nil
}
