package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	cfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/caarlos0/env"
	"github.com/sirupsen/logrus"
	"go.uber.org/automaxprocs/maxprocs"

	"github.com/adiazny/calalarm-lambda/internal/pkg/alarm"
	"github.com/adiazny/calalarm-lambda/internal/pkg/gcal"
	"github.com/adiazny/calalarm-lambda/internal/pkg/nextalarm"
)

type environmentVariables struct {
	CalendarID      string        `env:"CALENDAR_ID" envDefault:"primary"`
	CredentialsJSON string        `env:"GOOGLE_CREDENTIALS_JSON"`
	Impersonate     string        `env:"GOOGLE_IMPERSONATE"`
	PushURLTemplate string        `env:"PUSH_URL_TEMPLATE" envDefault:"https://%s.example.com:4443/api/push"`
	PushTTL         time.Duration `env:"PUSH_TTL" envDefault:"60m"`
	DefaultDevice   string        `env:"DEFAULT_DEVICE" envDefault:"calalarm"`
	Timezone        string        `env:"TIMEZONE"`
	TopicARN        string        `env:"SNS_TOPIC_ARN"`
	HTTPTimeout     time.Duration `env:"HTTP_TIMEOUT" envDefault:"10s"`
}

func setup() (envVars *environmentVariables, err error) {
	_, err = maxprocs.Set()
	if err != nil {
		return nil, fmt.Errorf("error setting GOMAXPROCS %w", err)
	}

	envVars = &environmentVariables{}

	err = env.Parse(envVars)
	if err != nil {
		return nil, fmt.Errorf("error parsing environment variables %w", err)
	}

	return envVars, nil
}

func newClient(ctx context.Context, log *logrus.Entry, envVars *environmentVariables) (*nextalarm.Client, error) {
	if err := nextalarm.ValidatePushURLTemplate(envVars.PushURLTemplate); err != nil {
		return nil, err
	}

	var location *time.Location
	if envVars.Timezone != "" {
		loc, err := time.LoadLocation(envVars.Timezone)
		if err != nil {
			return nil, fmt.Errorf("error loading timezone %s %w", envVars.Timezone, err)
		}
		location = loc
	}

	svc, err := gcal.NewService(ctx, gcal.Config{
		CredentialsJSON: envVars.CredentialsJSON,
		Impersonate:     envVars.Impersonate,
		Timeout:         envVars.HTTPTimeout,
	})
	if err != nil {
		return nil, err
	}

	calendarClient := &gcal.Client{
		Log:     log.WithField("component", "gcal"),
		Service: svc,
	}

	client := &nextalarm.Client{
		Log: log,
		Config: nextalarm.Config{
			CalendarID:      envVars.CalendarID,
			PushURLTemplate: envVars.PushURLTemplate,
			PushTTL:         envVars.PushTTL,
			DefaultDevice:   envVars.DefaultDevice,
			Location:        location,
			SNSTopicARN:     envVars.TopicARN,
		},
		Calendar: calendarClient,
		Push:     calendarClient,
		Clock:    alarm.SystemClock{Location: location},
	}

	if envVars.TopicARN != "" {
		awsConfig, err := cfg.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, fmt.Errorf("error loading AWS config %w", err)
		}
		client.SNS = sns.NewFromConfig(awsConfig)
	}

	return client, nil
}

func HandleRequest(ctx context.Context, req events.LambdaFunctionURLRequest) (events.LambdaFunctionURLResponse, error) {
	logger := logrus.New()
	logger.SetOutput(os.Stdout)
	logger.SetFormatter(&logrus.JSONFormatter{})

	log := logrus.NewEntry(logger).WithField("component", "calalarm")
	log.Info("starting up")

	defer log.Info("shutting down")

	envVars, err := setup()
	if err != nil {
		log.WithError(err).Error()
		return events.LambdaFunctionURLResponse{}, err
	}

	client, err := newClient(ctx, log, envVars)
	if err != nil {
		log.WithError(err).Error()
		return events.LambdaFunctionURLResponse{}, err
	}

	return client.ServeFunctionURL(ctx, req)
}

func main() {
	lambda.Start(HandleRequest)
}
