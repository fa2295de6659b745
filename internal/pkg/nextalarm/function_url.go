package nextalarm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/aws/aws-lambda-go/events"

	"github.com/adiazny/calalarm-lambda/internal/pkg/calendar"
)

const (
	contentTypeHeaderKey = "Content-Type"
	jsonContentType      = "application/json"
	textContentType      = "text/plain; charset=utf-8"
)

// Failures are rendered into the response body.
func (client *Client) ServeFunctionURL(ctx context.Context, req events.LambdaFunctionURLRequest) (events.LambdaFunctionURLResponse, error) {
	resp, err := client.Handle(ctx, ParseRequest(req.QueryStringParameters, client.Config.DefaultDevice))
	if errors.Is(err, calendar.ErrNoAccess) {
		client.Log.WithError(err).Warn("calendar not accessible")
		return textResponse(http.StatusOK, fmt.Sprintf("no access to calendar (%s)", client.Config.CalendarID)), nil
	}
	if err != nil {
		client.Log.WithError(err).Error("error selecting next alarm")
		return textResponse(http.StatusBadGateway, "error reading calendar"), nil
	}

	body, err := json.Marshal(resp)
	if err != nil {
		client.Log.WithError(err).Error()
		return textResponse(http.StatusInternalServerError, "error encoding response"), nil
	}

	if err := client.PublishSNS(ctx, resp); err != nil {
		client.Log.WithError(err).Warn("report not published")
	}

	return events.LambdaFunctionURLResponse{
		StatusCode: http.StatusOK,
		Headers:    map[string]string{contentTypeHeaderKey: jsonContentType},
		Body:       string(body),
	}, nil
}

func textResponse(status int, body string) events.LambdaFunctionURLResponse {
	return events.LambdaFunctionURLResponse{
		StatusCode: status,
		Headers:    map[string]string{contentTypeHeaderKey: textContentType},
		Body:       body,
	}
}
