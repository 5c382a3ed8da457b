package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/theapemachine/taskflow-go/pkg/errors"
	"github.com/theapemachine/taskflow-go/pkg/flow"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	calendar "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

/*
CalendarConfig locates the OAuth client material. Interactive mode is only
safe from a terminal: it prints the authorization URL and reads the code
from stdin.
*/
type CalendarConfig struct {
	CredentialsFile string
	TokenFile       string
	Interactive     bool
}

/*
CalendarAgent inserts events into the user's primary Google calendar. The
calendar service is acquired lazily on first use and cached, refreshing an
expired token through the standard oauth2 token source.
*/
type CalendarAgent struct {
	cfg CalendarConfig

	mu      sync.Mutex
	service *calendar.Service
}

func NewCalendarAgent(cfg CalendarConfig) *CalendarAgent {
	return &CalendarAgent{cfg: cfg}
}

func (agent *CalendarAgent) Kind() flow.AgentKind {
	return flow.AgentCalendar
}

/*
Insert creates a titled event spanning start to end and returns the
provider's view link.
*/
func (agent *CalendarAgent) Insert(
	ctx context.Context, title string, start, end time.Time,
) (string, error) {
	service, err := agent.load(ctx)

	if err != nil {
		return "", err
	}

	event := &calendar.Event{
		Summary: title,
		Start:   &calendar.EventDateTime{DateTime: start.Format(time.RFC3339)},
		End:     &calendar.EventDateTime{DateTime: end.Format(time.RFC3339)},
	}

	created, err := service.Events.Insert("primary", event).Context(ctx).Do()

	if err != nil {
		return "", errors.ErrAdapterCallFailed.Wrap(err)
	}

	return fmt.Sprintf("Successfully created event. View: %s", created.HtmlLink), nil
}

func (agent *CalendarAgent) load(ctx context.Context) (*calendar.Service, error) {
	agent.mu.Lock()
	defer agent.mu.Unlock()

	if agent.service != nil {
		return agent.service, nil
	}

	if agent.cfg.CredentialsFile == "" {
		return nil, errors.ErrAgentNotConfigured.WithMessagef(
			"calendar agent has no credentials file",
		)
	}

	raw, err := os.ReadFile(agent.cfg.CredentialsFile)

	if err != nil {
		return nil, errors.ErrAgentNotConfigured.WithMessagef(
			"calendar credentials unreadable: %v", err,
		)
	}

	config, err := google.ConfigFromJSON(raw, calendar.CalendarEventsScope)

	if err != nil {
		return nil, errors.ErrAgentNotConfigured.WithMessagef(
			"calendar credentials malformed: %v", err,
		)
	}

	token, err := agent.loadToken()

	if err != nil {
		if !agent.cfg.Interactive {
			return nil, errors.ErrAgentNotConfigured.WithMessagef(
				"calendar agent has no cached token and cannot authorize interactively",
			)
		}

		if token, err = agent.authorize(ctx, config); err != nil {
			return nil, err
		}
	}

	// The service outlives this call, so the token source hangs off the
	// background context rather than the request's.
	source := config.TokenSource(context.Background(), token)
	fresh, err := source.Token()

	if err != nil {
		return nil, errors.ErrAgentNotConfigured.WithMessagef(
			"calendar token refresh failed: %v", err,
		)
	}

	if fresh.AccessToken != token.AccessToken {
		if err := agent.saveToken(fresh); err != nil {
			return nil, err
		}
	}

	service, err := calendar.NewService(
		context.Background(),
		option.WithHTTPClient(oauth2.NewClient(context.Background(), source)),
	)

	if err != nil {
		return nil, errors.ErrAdapterCallFailed.Wrap(err)
	}

	agent.service = service
	return service, nil
}

func (agent *CalendarAgent) authorize(
	ctx context.Context, config *oauth2.Config,
) (*oauth2.Token, error) {
	url := config.AuthCodeURL("state-token", oauth2.AccessTypeOffline)
	fmt.Printf("Open the following link in your browser, then paste the authorization code:\n%v\n", url)

	var code string

	if _, err := fmt.Scan(&code); err != nil {
		return nil, errors.ErrAgentNotConfigured.WithMessagef(
			"calendar authorization code not provided: %v", err,
		)
	}

	token, err := config.Exchange(ctx, code)

	if err != nil {
		return nil, errors.ErrAgentNotConfigured.WithMessagef(
			"calendar authorization failed: %v", err,
		)
	}

	if err := agent.saveToken(token); err != nil {
		return nil, err
	}

	return token, nil
}

func (agent *CalendarAgent) loadToken() (*oauth2.Token, error) {
	fh, err := os.Open(agent.cfg.TokenFile)

	if err != nil {
		return nil, err
	}

	defer fh.Close()

	token := &oauth2.Token{}
	return token, json.NewDecoder(fh).Decode(token)
}

func (agent *CalendarAgent) saveToken(token *oauth2.Token) error {
	fh, err := os.Create(agent.cfg.TokenFile)

	if err != nil {
		return errors.ErrAgentNotConfigured.WithMessagef(
			"calendar token not writable: %v", err,
		)
	}

	defer fh.Close()

	return json.NewEncoder(fh).Encode(token)
}
