package extract

import (
	"fmt"
	"regexp"
)

var eventIDPattern = regexp.MustCompile(`/events/(\d+)`)

// EventID pulls the numeric event identifier out of an event page URL.
func EventID(eventURL string) (string, bool) {
	match := eventIDPattern.FindStringSubmatch(eventURL)
	if match == nil {
		return "", false
	}
	return match[1], true
}

// WidgetURL derives the tickets-widget endpoint for an event. The widget
// is only reachable while resale is active.
func WidgetURL(baseURL, eventURL string) (string, error) {
	id, ok := EventID(eventURL)
	if !ok {
		return "", fmt.Errorf("no event id in %q", eventURL)
	}
	return fmt.Sprintf("%s/widget/event/%s/embedtickets", baseURL, id), nil
}
