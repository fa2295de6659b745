package nextalarm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/adiazny/calalarm-lambda/internal/pkg/alarm"
	"github.com/adiazny/calalarm-lambda/internal/pkg/calendar"
	"github.com/adiazny/calalarm-lambda/internal/pkg/gcal"
)

const (
	timeLayout = "2006-01-02 15:04:05"

	maxPushTTL = time.Hour

	deviceParam = "devName"
	pushIDParam = "pushId"
)

type Config struct {
	CalendarID      string
	PushURLTemplate string
	PushTTL         time.Duration
	DefaultDevice   string
	// Location overrides the calendar's own time zone when set.
	Location    *time.Location
	SNSTopicARN string
}

var ErrInvalidPushURLTemplate = errors.New("push url template must contain exactly one %s verb")

func ValidatePushURLTemplate(template string) error {
	if strings.Count(template, "%s") != 1 || strings.Contains(fmt.Sprintf(template, "device"), "%!") {
		return fmt.Errorf("%w: %q", ErrInvalidPushURLTemplate, template)
	}

	return nil
}

type CalendarService interface {
	calendar.Reader
	Calendar(ctx context.Context, calendarID string) (gcal.Info, error)
}

type PushService interface {
	StopChannel(ctx context.Context, channelID, resourceID string) error
	StartChannel(ctx context.Context, calendarID, channelID, address string, expiration time.Time, ttl time.Duration) (string, error)
}

type SNSPublisher interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

type Client struct {
	Log      *logrus.Entry
	Config   Config
	Calendar CalendarService
	Push     PushService
	SNS      SNSPublisher
	Clock    alarm.Clock
}

type Request struct {
	Device string
	PushID string
}

type Response struct {
	Time string `json:"time"`
	// PushID is null when the channel could not be renewed.
	PushID *string        `json:"pushId"`
	Events []EventSummary `json:"events"`
}

type EventSummary struct {
	Start string `json:"start"`
	End   string `json:"end"`
	Title string `json:"title"`
}

// Devices echo back whatever pushId they were last given, including the
// renderings of a null one.
func ParseRequest(params map[string]string, defaultDevice string) Request {
	req := Request{
		Device: strings.TrimSpace(params[deviceParam]),
		PushID: strings.TrimSpace(params[pushIDParam]),
	}

	if req.Device == "" {
		req.Device = defaultDevice
	}

	switch req.PushID {
	case "null", "NaN", "undefined":
		req.PushID = ""
	}

	return req
}

func (client *Client) Handle(ctx context.Context, req Request) (Response, error) {
	log := client.Log.WithField("device", req.Device)

	pushID := client.renewPush(ctx, log, req)

	info, err := client.Calendar.Calendar(ctx, client.Config.CalendarID)
	if err != nil {
		return Response{}, err
	}

	loc := client.location(log, info)
	now := client.Clock.Now().In(loc)
	window := alarm.NewWindow(now)

	today, tomorrow, err := client.fetchDays(ctx, window)
	if err != nil {
		return Response{}, err
	}

	report := alarm.SelectNext(now, today, tomorrow)

	log.WithFields(logrus.Fields{
		"today":    len(today),
		"tomorrow": len(tomorrow),
		"selected": len(report.Events),
	}).Info("selected next alarm")

	return newResponse(report, pushID, loc), nil
}

func (client *Client) renewPush(ctx context.Context, log *logrus.Entry, req Request) *string {
	channelID := gcal.ChannelID(req.Device)
	log = log.WithField("channel", channelID)

	err := client.Push.StopChannel(ctx, channelID, req.PushID)
	if err != nil {
		log.WithError(err).Warn("error stopping push channel")
	}

	ttl := client.Config.PushTTL
	if ttl <= 0 || ttl > maxPushTTL {
		ttl = maxPushTTL
	}

	address := fmt.Sprintf(client.Config.PushURLTemplate, req.Device)
	expiration := client.Clock.Now().Add(ttl)

	resourceID, err := client.Push.StartChannel(ctx, client.Config.CalendarID, channelID, address, expiration, ttl)
	if err != nil {
		// "channel id not unique" clears once the previous channel expires.
		log.WithError(err).Error("error starting push channel")
		return nil
	}

	return &resourceID
}

func (client *Client) location(log *logrus.Entry, info gcal.Info) *time.Location {
	if client.Config.Location != nil {
		return client.Config.Location
	}

	if info.TimeZone != "" {
		loc, err := time.LoadLocation(info.TimeZone)
		if err == nil {
			return loc
		}
		log.WithError(err).WithField("timezone", info.TimeZone).Warn("unknown calendar time zone")
	}

	return time.UTC
}

func (client *Client) fetchDays(ctx context.Context, window alarm.Window) (today, tomorrow []*calendar.Event, err error) {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var err error
		interval := window.Today()
		today, err = client.Calendar.ListEvents(ctx, client.Config.CalendarID, interval.Start, interval.End)
		return err
	})

	g.Go(func() error {
		var err error
		interval := window.Tomorrow()
		tomorrow, err = client.Calendar.ListEvents(ctx, client.Config.CalendarID, interval.Start, interval.End)
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	return today, tomorrow, nil
}

func newResponse(report alarm.Report, pushID *string, loc *time.Location) Response {
	resp := Response{
		Time:   FormatTime(report.GeneratedAt, loc),
		PushID: pushID,
		Events: make([]EventSummary, 0, len(report.Events)),
	}

	for _, e := range report.Events {
		resp.Events = append(resp.Events, EventSummary{
			Start: FormatTime(e.Start, loc),
			End:   FormatTime(e.End, loc),
			Title: e.Title,
		})
	}

	return resp
}

func FormatTime(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(timeLayout)
}

func (client *Client) PublishSNS(ctx context.Context, resp Response) error {
	if client.Config.SNSTopicARN == "" || client.SNS == nil {
		return nil
	}

	body, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("error marshalling response %w", err)
	}

	topicMsg := string(body)

	input := &sns.PublishInput{
		Message:  &topicMsg,
		TopicArn: &client.Config.SNSTopicARN,
	}

	_, err = client.SNS.Publish(ctx, input)
	if err != nil {
		client.Log.WithError(err).Error()
		return fmt.Errorf("error publishing to AWS SNS topic %s: %w", client.Config.SNSTopicARN, err)
	}

	return nil
}
