package gcal

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	googlecal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/adiazny/calalarm-lambda/internal/pkg/alarm"
	"github.com/adiazny/calalarm-lambda/internal/pkg/calendar"
)

const (
	channelType     = "web_hook"
	popupMethod     = "popup"
	cancelledStatus = "cancelled"
)

var scopes = []string{
	googlecal.CalendarReadonlyScope,
	googlecal.CalendarEventsReadonlyScope,
}

type Config struct {
	// Application Default Credentials are used when empty.
	CredentialsJSON string
	Impersonate     string
	Timeout         time.Duration
}

type Info struct {
	TimeZone string
}

type Client struct {
	Log     *logrus.Entry
	Service *googlecal.Service
}

func NewService(ctx context.Context, conf Config) (*googlecal.Service, error) {
	ts, err := tokenSource(ctx, conf)
	if err != nil {
		return nil, err
	}

	httpClient := oauth2.NewClient(ctx, ts)
	httpClient.Timeout = conf.Timeout

	svc, err := googlecal.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("error creating calendar service %w", err)
	}

	return svc, nil
}

func tokenSource(ctx context.Context, conf Config) (oauth2.TokenSource, error) {
	if conf.CredentialsJSON == "" {
		creds, err := google.FindDefaultCredentials(ctx, scopes...)
		if err != nil {
			return nil, fmt.Errorf("error finding default credentials %w", err)
		}
		return creds.TokenSource, nil
	}

	if conf.Impersonate != "" {
		jwtConf, err := google.JWTConfigFromJSON([]byte(conf.CredentialsJSON), scopes...)
		if err != nil {
			return nil, fmt.Errorf("error parsing service account key %w", err)
		}
		jwtConf.Subject = conf.Impersonate
		return jwtConf.TokenSource(ctx), nil
	}

	creds, err := google.CredentialsFromJSON(ctx, []byte(conf.CredentialsJSON), scopes...)
	if err != nil {
		return nil, fmt.Errorf("error parsing credentials %w", err)
	}

	return creds.TokenSource, nil
}

func ChannelID(device string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(device)).String()
}

// Calendar reads the calendar's metadata. Calendars shared with the
// credential need not be in its calendar list.
func (client *Client) Calendar(ctx context.Context, calendarID string) (Info, error) {
	cal, err := client.Service.Calendars.Get(calendarID).Context(ctx).Do()
	if err != nil {
		return Info{}, wrapError(fmt.Sprintf("error reading calendar %s", calendarID), err)
	}

	return Info{TimeZone: cal.TimeZone}, nil
}

func (client *Client) ListEvents(ctx context.Context, calendarID string, from, to time.Time) ([]*calendar.Event, error) {
	call := client.Service.Events.List(calendarID).
		Context(ctx).
		ShowDeleted(false).
		SingleEvents(true).
		OrderBy("startTime").
		TimeMin(from.Format(time.RFC3339)).
		TimeMax(to.Format(time.RFC3339))

	window := alarm.Interval{Start: from, End: to}
	events := make([]*calendar.Event, 0)

	err := call.Pages(ctx, func(page *googlecal.Events) error {
		for _, item := range page.Items {
			event, ok, err := convertEvent(item, page.DefaultReminders)
			if err != nil {
				return err
			}

			if !ok {
				client.Log.WithField("event", item.Summary).Debug("skipping all-day or cancelled event")
				continue
			}

			if !window.Contains(event.Start) {
				client.Log.WithField("event", item.Summary).Debug("skipping event outside window")
				continue
			}

			events = append(events, event)
		}
		return nil
	})
	if err != nil {
		return nil, wrapError(fmt.Sprintf("error listing events of %s", calendarID), err)
	}

	return events, nil
}

func convertEvent(item *googlecal.Event, defaults []*googlecal.EventReminder) (*calendar.Event, bool, error) {
	if item.Status == cancelledStatus || item.Start == nil || item.Start.DateTime == "" {
		return nil, false, nil
	}

	start, err := time.Parse(time.RFC3339, item.Start.DateTime)
	if err != nil {
		return nil, false, fmt.Errorf("error parsing start of %q %w", item.Summary, err)
	}

	var end time.Time
	if item.End != nil && item.End.DateTime != "" {
		end, err = time.Parse(time.RFC3339, item.End.DateTime)
		if err != nil {
			return nil, false, fmt.Errorf("error parsing end of %q %w", item.Summary, err)
		}
	}

	return &calendar.Event{
		Start:           start,
		End:             end,
		Title:           item.Summary,
		Status:          attendance(item),
		ReminderMinutes: reminderMinutes(item.Reminders, defaults),
	}, true, nil
}

func attendance(item *googlecal.Event) calendar.AttendanceStatus {
	if item.Organizer != nil && item.Organizer.Self {
		return calendar.StatusOwner
	}

	for _, attendee := range item.Attendees {
		if !attendee.Self {
			continue
		}

		switch attendee.ResponseStatus {
		case "accepted":
			return calendar.StatusAccepted
		case "tentative":
			return calendar.StatusTentative
		case "declined":
			return calendar.StatusDeclined
		case "needsAction":
			return calendar.StatusNoResponse
		default:
			return calendar.StatusNone
		}
	}

	// Events without guests only exist on the owner's calendar.
	if len(item.Attendees) == 0 {
		return calendar.StatusOwner
	}

	return calendar.StatusNone
}

func reminderMinutes(reminders *googlecal.EventReminders, defaults []*googlecal.EventReminder) []int {
	minutes := make([]int, 0)

	if reminders == nil {
		return minutes
	}

	source := reminders.Overrides
	if reminders.UseDefault {
		source = defaults
	}

	for _, r := range source {
		if r.Method == popupMethod {
			minutes = append(minutes, int(r.Minutes))
		}
	}

	return minutes
}

// An empty resourceID means the device holds no channel.
func (client *Client) StopChannel(ctx context.Context, channelID, resourceID string) error {
	if resourceID == "" {
		return nil
	}

	err := client.Service.Channels.Stop(&googlecal.Channel{
		Id:         channelID,
		ResourceId: resourceID,
	}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("error stopping channel %s %w", channelID, err)
	}

	return nil
}

func (client *Client) StartChannel(ctx context.Context, calendarID, channelID, address string, expiration time.Time, ttl time.Duration) (string, error) {
	channel, err := client.Service.Events.Watch(calendarID, &googlecal.Channel{
		Id:         channelID,
		Type:       channelType,
		Address:    address,
		Expiration: expiration.UnixMilli(),
		Params: map[string]string{
			"ttl": strconv.Itoa(int(ttl / time.Second)),
		},
	}).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("error watching calendar %s %w", calendarID, err)
	}

	return channel.ResourceId, nil
}

func wrapError(msg string, err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusForbidden, http.StatusNotFound:
			return fmt.Errorf("%s: %w: %v", msg, calendar.ErrNoAccess, err)
		}
	}

	return fmt.Errorf("%s %w", msg, err)
}
