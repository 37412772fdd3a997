package extract_test

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ra-resale/internal/extract"
)

func eventPageMarkup(title, dateText, resaleValue string) string {
	return fmt.Sprintf(`<html><body>
		<div id="sectionHead"><h1>%s</h1></div>
		<aside id="detail"><a class="cat-rev" href="#">%s</a></aside>
		<input id="resaleMessage" type="hidden" value="%s">
	</body></html>`, title, dateText, resaleValue)
}

func TestParseEventPage(t *testing.T) {
	markup := eventPageMarkup("Resident Advisor Event", "2 May 2030", "Resale active")

	page, err := extract.ParseEventPage(markup)
	require.NoError(t, err)

	assert.Equal(t, "Resident Advisor Event", page.Title)
	assert.Equal(t, time.Date(2030, time.May, 2, 0, 0, 0, 0, time.UTC), page.Date)
	assert.True(t, page.ResaleActive)
}

func TestParseEventPageZeroPaddedDate(t *testing.T) {
	markup := eventPageMarkup("Event", "02 May 2030", "Resale active")

	page, err := extract.ParseEventPage(markup)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2030, time.May, 2, 0, 0, 0, 0, time.UTC), page.Date)
}

func TestParseEventPageDateRangeUsesLatest(t *testing.T) {
	markup := eventPageMarkup("Event", "1 May 2030, 3 May 2030", "Resale active")

	page, err := extract.ParseEventPage(markup)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2030, time.May, 3, 0, 0, 0, 0, time.UTC), page.Date)
}

func TestParseEventPageResaleInactive(t *testing.T) {
	markup := eventPageMarkup("Event", "2 May 2030", "Resale coming soon")

	page, err := extract.ParseEventPage(markup)
	require.NoError(t, err)
	assert.False(t, page.ResaleActive)
}

func TestParseEventPageMissingResaleMarker(t *testing.T) {
	markup := `<html><body>
		<div id="sectionHead"><h1>Event</h1></div>
		<aside id="detail"><a class="cat-rev">2 May 2030</a></aside>
	</body></html>`

	page, err := extract.ParseEventPage(markup)
	require.NoError(t, err)
	assert.False(t, page.ResaleActive)
}

func TestParseEventPageMissingTitle(t *testing.T) {
	markup := `<html><body>
		<aside id="detail"><a class="cat-rev">2 May 2030</a></aside>
	</body></html>`

	_, err := extract.ParseEventPage(markup)
	assert.True(t, errors.Is(err, extract.ErrExtractionFailed))
}

func TestParseEventPageBadDate(t *testing.T) {
	markup := eventPageMarkup("Event", "sometime soon", "Resale active")

	_, err := extract.ParseEventPage(markup)
	assert.True(t, errors.Is(err, extract.ErrExtractionFailed))
}

const ticketsMarkup = `<html><body><li id="tickets"><ul>
	<li class="onsale but"><p><span>£25.00</span>General Release</p></li>
	<li class="closed"><p><span>£45.00</span>VIP</p></li>
	<li class="upcoming"><p><span>£15.00</span>Early Bird</p></li>
</ul></li></body></html>`

func TestParseTicketsPage(t *testing.T) {
	tickets, err := extract.ParseTicketsPage(ticketsMarkup)
	require.NoError(t, err)
	require.Len(t, tickets, 3)

	assert.Equal(t, extract.Ticket{Title: "General Release", Price: "£25.00", Available: true}, tickets[0])
	assert.Equal(t, extract.Ticket{Title: "VIP", Price: "£45.00", Available: false}, tickets[1])
	// Unknown status tokens are unavailable by default.
	assert.Equal(t, extract.Ticket{Title: "Early Bird", Price: "£15.00", Available: false}, tickets[2])
}

func TestParseTicketsPageEmptyWidget(t *testing.T) {
	tickets, err := extract.ParseTicketsPage(`<html><body><li id="tickets"><ul></ul></li></body></html>`)
	require.NoError(t, err)
	assert.Empty(t, tickets)
}

func TestParseTicketsPageMissingPrice(t *testing.T) {
	markup := `<html><body><li id="tickets"><ul>
		<li class="closed"><p>General Release</p></li>
	</ul></li></body></html>`

	_, err := extract.ParseTicketsPage(markup)
	assert.True(t, errors.Is(err, extract.ErrExtractionFailed))
}

func TestParseTicketsPageMissingTitle(t *testing.T) {
	markup := `<html><body><li id="tickets"><ul>
		<li class="closed"><p><span>£25.00</span></p></li>
	</ul></li></body></html>`

	_, err := extract.ParseTicketsPage(markup)
	assert.True(t, errors.Is(err, extract.ErrExtractionFailed))
}

func TestEventID(t *testing.T) {
	id, ok := extract.EventID("https://www.residentadvisor.net/events/1234567")
	require.True(t, ok)
	assert.Equal(t, "1234567", id)

	_, ok = extract.EventID("https://www.residentadvisor.net/news")
	assert.False(t, ok)
}

func TestWidgetURL(t *testing.T) {
	url, err := extract.WidgetURL("https://www.residentadvisor.net", "https://www.residentadvisor.net/events/1234567")
	require.NoError(t, err)
	assert.Equal(t, "https://www.residentadvisor.net/widget/event/1234567/embedtickets", url)

	_, err = extract.WidgetURL("https://www.residentadvisor.net", "https://www.residentadvisor.net/news")
	assert.Error(t, err)
}
