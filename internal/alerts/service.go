package alerts

import (
	"context"
	"fmt"
	"time"

	"ra-resale/internal/extract"
	"ra-resale/internal/fetch"
	"ra-resale/internal/logger"
	"ra-resale/internal/mail"
	"ra-resale/internal/models"
)

// DBLayer is the persistence surface the service needs. Implemented by
// alerts/db over bun; mocked in tests.
type DBLayer interface {
	GetOrCreateEvent(ctx context.Context, event models.Event) (*models.Event, bool, error)
	DeleteEvent(ctx context.Context, id string) error
	EventsWithUnsentTrackers(ctx context.Context) ([]models.Event, error)

	GetOrCreateTicket(ctx context.Context, ticket models.Ticket) (*models.Ticket, bool, error)
	SetTicketAvailability(ctx context.Context, id string, available bool) error
	AvailableTickets(ctx context.Context) ([]models.Ticket, error)
	ResetAvailability(ctx context.Context, ids []string) error

	GetOrCreateTracker(ctx context.Context, tracker models.Tracker) (*models.Tracker, bool, error)
	EligibleTrackers(ctx context.Context) ([]models.Tracker, error)
	MarkTrackerSent(ctx context.Context, id string) error
	CountTrackersForURL(ctx context.Context, url string) (int, error)
	ExpiredTrackers(ctx context.Context, cutoff time.Time) ([]models.Tracker, error)
	DeleteTracker(ctx context.Context, id string) error
}

type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

type Mailer interface {
	Send(msg mail.Message) error
}

// Publisher streams reconciliation outcomes. Optional; a nil publisher
// disables streaming.
type Publisher interface {
	PublishAvailabilityChanged(ticket models.Ticket) error
	PublishAlertSent(tracker models.Tracker) error
}

// Service runs the extraction and lifecycle pipeline for tracked
// events. Each batch entry point is an independent invocation; the
// external scheduler is assumed to serialize overlapping runs.
type Service struct {
	DB        DBLayer
	Fetcher   Fetcher
	Mailer    Mailer
	Publisher Publisher
	Logger    *logger.Logger

	// BaseURL is the site root used to derive ticket widget endpoints.
	BaseURL string
}

func NewService(db DBLayer, fetcher Fetcher, mailer Mailer, baseURL string) *Service {
	return &Service{
		DB:      db,
		Fetcher: fetcher,
		Mailer:  mailer,
		BaseURL: baseURL,
	}
}

// UpdateResult is one entry in the update cycle summary.
type UpdateResult struct {
	Event string `json:"event"`
	URL   string `json:"url"`
}

// SendResult is one entry in the send cycle summary.
type SendResult struct {
	Email string `json:"email"`
	Event string `json:"event"`
}

// PruneResult is one entry in the prune cycle summary.
type PruneResult struct {
	Email string `json:"email"`
	Event string `json:"event"`
}

// Subscribe runs the full pipeline for one new URL and attaches a
// tracker for the email address. Admission errors surface typed; no
// partially created rows are left behind.
func (s *Service) Subscribe(ctx context.Context, url, email string) (*models.Tracker, error) {
	page, tickets, err := s.getPage(ctx, url)
	if err != nil {
		return nil, err
	}

	event, err := s.reconcileEvent(ctx, page, url)
	if err != nil {
		return nil, err
	}

	if _, err := s.reconcileTickets(ctx, tickets, event); err != nil {
		return nil, err
	}

	tracker, created, err := s.DB.GetOrCreateTracker(ctx, models.Tracker{
		EventID: event.ID,
		Email:   email,
	})
	if err != nil {
		return nil, err
	}
	if created {
		s.logInfo("SUBSCRIBE", fmt.Sprintf("New tracker for %s on %q", email, event.Title))
	}
	return tracker, nil
}

// UpdateAll refreshes ticket availability for every event that still
// has an unsent tracker. Per-event failures are logged and skipped; the
// cycle always completes.
func (s *Service) UpdateAll(ctx context.Context) ([]UpdateResult, error) {
	events, err := s.DB.EventsWithUnsentTrackers(ctx)
	if err != nil {
		return nil, err
	}

	updated := []UpdateResult{}
	for i := range events {
		event := events[i]

		page, tickets, err := s.getPage(ctx, event.URL)
		if err != nil {
			s.logError("UPDATE", fmt.Sprintf("Error updating %q: %v", event.Title, err))
			continue
		}
		if !page.ResaleActive {
			// Resale closed since admission; tickets keep their last
			// observed availability until the post-send sweep.
			s.logInfo("UPDATE", fmt.Sprintf("Resale no longer active for %q", event.Title))
			continue
		}

		if _, err := s.reconcileTickets(ctx, tickets, &event); err != nil {
			s.logError("UPDATE", fmt.Sprintf("Error updating %q: %v", event.Title, err))
			continue
		}

		updated = append(updated, UpdateResult{Event: event.Title, URL: event.URL})
	}

	s.logCycle("update", fmt.Sprintf("Updated %d of %d tracked events", len(updated), len(events)))
	return updated, nil
}

// SendAlerts notifies every eligible tracker, then resets the
// availability of every ticket that was available when the cycle
// started. A dispatch failure leaves the tracker unsent for the next
// cycle; it never aborts the batch.
func (s *Service) SendAlerts(ctx context.Context) ([]SendResult, error) {
	available, err := s.DB.AvailableTickets(ctx)
	if err != nil {
		return nil, err
	}

	trackers, err := s.DB.EligibleTrackers(ctx)
	if err != nil {
		return nil, err
	}

	sent := []SendResult{}
	for _, tracker := range trackers {
		if tracker.Event == nil {
			s.logError("SEND", fmt.Sprintf("Tracker %s has no event loaded", tracker.ID))
			continue
		}

		total, err := s.DB.CountTrackersForURL(ctx, tracker.Event.URL)
		if err != nil {
			s.logError("SEND", fmt.Sprintf("Counting subscribers for %q: %v", tracker.Event.URL, err))
			continue
		}

		msg, err := mail.BuildAlert(tracker.Email, tracker.Event.Title, tracker.Event.URL, total-1)
		if err != nil {
			s.logError("SEND", fmt.Sprintf("Building alert for %s: %v", tracker.Email, err))
			continue
		}

		if err := s.Mailer.Send(msg); err != nil {
			s.logError("MAIL", fmt.Sprintf("Failed to send email to %s: %v", tracker.Email, err))
			continue
		}

		if err := s.DB.MarkTrackerSent(ctx, tracker.ID); err != nil {
			s.logError("SEND", fmt.Sprintf("Marking tracker %s sent: %v", tracker.ID, err))
			continue
		}

		s.logMail(tracker.Email, fmt.Sprintf("Tickets available for %q", tracker.Event.Title))
		s.publishAlertSent(tracker)
		sent = append(sent, SendResult{Email: tracker.Email, Event: tracker.Event.Title})
	}

	// Force the next update cycle to re-confirm availability before
	// anyone can be notified again.
	ids := make([]string, 0, len(available))
	for _, ticket := range available {
		ids = append(ids, ticket.ID)
	}
	if err := s.DB.ResetAvailability(ctx, ids); err != nil {
		return sent, err
	}

	return sent, nil
}

// PruneExpired deletes every tracker whose event date is more than five
// days in the past. Event and ticket rows stay put for cycles already
// in flight.
func (s *Service) PruneExpired(ctx context.Context) ([]PruneResult, error) {
	cutoff := dateOnly(time.Now()).AddDate(0, 0, -5)

	trackers, err := s.DB.ExpiredTrackers(ctx, cutoff)
	if err != nil {
		return nil, err
	}

	pruned := []PruneResult{}
	for _, tracker := range trackers {
		if err := s.DB.DeleteTracker(ctx, tracker.ID); err != nil {
			s.logError("PRUNE", fmt.Sprintf("Deleting tracker %s: %v", tracker.ID, err))
			continue
		}
		result := PruneResult{Email: tracker.Email}
		if tracker.Event != nil {
			result.Event = tracker.Event.Title
		}
		pruned = append(pruned, result)
	}

	s.logCycle("prune", fmt.Sprintf("Pruned %d trackers", len(pruned)))
	return pruned, nil
}

// getPage fetches and extracts an event page and, when resale is
// active, its tickets widget.
func (s *Service) getPage(ctx context.Context, url string) (extract.EventPage, []extract.Ticket, error) {
	markup, err := s.Fetcher.Fetch(ctx, url)
	if err != nil {
		return extract.EventPage{}, nil, err
	}

	page, err := extract.ParseEventPage(markup)
	if err != nil {
		return extract.EventPage{}, nil, err
	}

	tickets := []extract.Ticket{}
	if page.ResaleActive {
		widgetURL, err := extract.WidgetURL(s.BaseURL, url)
		if err != nil {
			return page, nil, fmt.Errorf("%w: %v", fetch.ErrMalformedURL, err)
		}

		widgetMarkup, err := s.Fetcher.Fetch(ctx, widgetURL)
		if err != nil {
			return page, nil, err
		}

		tickets, err = extract.ParseTicketsPage(widgetMarkup)
		if err != nil {
			return page, nil, err
		}
	}

	return page, tickets, nil
}

// reconcileEvent admits an extracted page into the store: get-or-create
// by the identity tuple, then validate. A rejected row is deleted so no
// invalid event survives admission. Date failure takes precedence over
// the resale flag.
func (s *Service) reconcileEvent(ctx context.Context, page extract.EventPage, url string) (*models.Event, error) {
	event, _, err := s.DB.GetOrCreateEvent(ctx, models.Event{
		Title:        page.Title,
		URL:          url,
		Date:         page.Date,
		ResaleActive: page.ResaleActive,
	})
	if err != nil {
		return nil, err
	}

	if reason := admit(event); reason != nil {
		if delErr := s.DB.DeleteEvent(ctx, event.ID); delErr != nil {
			s.logError("RECONCILE", fmt.Sprintf("Deleting rejected event %s: %v", event.ID, delErr))
		}
		return nil, reason
	}

	return event, nil
}

func admit(event *models.Event) error {
	if event.Date.Before(dateOnly(time.Now())) {
		return ErrEventExpired
	}
	if !event.ResaleActive {
		return ErrResaleInactive
	}
	return nil
}

// reconcileTickets upserts every extracted ticket and overwrites its
// availability with the fresh value. Tickets absent from the extraction
// are left alone; the post-send sweep is their only reset path.
func (s *Service) reconcileTickets(ctx context.Context, tickets []extract.Ticket, event *models.Event) ([]models.Ticket, error) {
	updated := make([]models.Ticket, 0, len(tickets))
	for _, ticket := range tickets {
		row, created, err := s.DB.GetOrCreateTicket(ctx, models.Ticket{
			EventID:   event.ID,
			Title:     ticket.Title,
			Price:     ticket.Price,
			Available: ticket.Available,
		})
		if err != nil {
			return nil, err
		}

		if !created && row.Available != ticket.Available {
			if err := s.DB.SetTicketAvailability(ctx, row.ID, ticket.Available); err != nil {
				return nil, err
			}
			row.Available = ticket.Available
			s.publishAvailability(*row)
		} else if created && row.Available {
			s.publishAvailability(*row)
		}

		updated = append(updated, *row)
	}
	return updated, nil
}

func (s *Service) publishAvailability(ticket models.Ticket) {
	if s.Publisher == nil {
		return
	}
	if err := s.Publisher.PublishAvailabilityChanged(ticket); err != nil {
		s.logError("KAFKA", fmt.Sprintf("Publishing availability for ticket %s: %v", ticket.ID, err))
	}
}

func (s *Service) publishAlertSent(tracker models.Tracker) {
	if s.Publisher == nil {
		return
	}
	if err := s.Publisher.PublishAlertSent(tracker); err != nil {
		s.logError("KAFKA", fmt.Sprintf("Publishing alert sent for tracker %s: %v", tracker.ID, err))
	}
}

func (s *Service) logInfo(category, message string) {
	if s.Logger != nil {
		s.Logger.Info(category, message)
	}
}

func (s *Service) logCycle(cycle, message string) {
	if s.Logger != nil {
		s.Logger.LogCycle(cycle, message)
	}
}

func (s *Service) logMail(recipient, message string) {
	if s.Logger != nil {
		s.Logger.LogMail(recipient, message)
	}
}

func (s *Service) logError(category, message string) {
	if s.Logger != nil {
		s.Logger.Error(category, message)
	}
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
