package calendar

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"basegraph.app/convene/internal/model"
)

const (
	defaultGoogleBaseURL = "https://www.googleapis.com/calendar/v3"
	defaultGoogleTimeout = 15 * time.Second
	maxPages             = 10
)

// TokenFile is an authorized-user credential as written by Google's OAuth tooling.
type TokenFile struct {
	Token        string     `json:"token"`
	RefreshToken string     `json:"refresh_token"`
	TokenURI     string     `json:"token_uri"`
	ClientID     string     `json:"client_id"`
	ClientSecret string     `json:"client_secret"`
	Scopes       []string   `json:"scopes"`
	Expiry       *time.Time `json:"expiry,omitempty"`
}

// TokenPath is where a participant's token lives: <dir>/<local part>.token.
func TokenPath(dir, email string) string {
	username, _, _ := strings.Cut(email, "@")
	return filepath.Join(dir, username+".token")
}

func LoadTokenFile(path string) (*TokenFile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading token file: %w", err)
	}
	var tf TokenFile
	if err := json.Unmarshal(raw, &tf); err != nil {
		return nil, fmt.Errorf("decoding token file %s: %w", path, err)
	}
	if tf.Token == "" && tf.RefreshToken == "" {
		return nil, fmt.Errorf("token file %s has no token", path)
	}
	return &tf, nil
}

// TokenSource refreshes through the token URI once the access token expires.
func (tf *TokenFile) TokenSource(ctx context.Context) oauth2.TokenSource {
	cfg := &oauth2.Config{
		ClientID:     tf.ClientID,
		ClientSecret: tf.ClientSecret,
		Endpoint:     oauth2.Endpoint{TokenURL: tf.TokenURI},
		Scopes:       tf.Scopes,
	}
	token := &oauth2.Token{
		AccessToken:  tf.Token,
		RefreshToken: tf.RefreshToken,
		TokenType:    "Bearer",
	}
	if tf.Expiry != nil {
		token.Expiry = *tf.Expiry
	}
	return cfg.TokenSource(ctx, token)
}

// Google reads the primary calendar through the Calendar v3 REST API.
type Google struct {
	source     oauth2.TokenSource
	baseURL    string
	calendarID string
	client     *http.Client
}

type GoogleOption func(*Google)

func WithBaseURL(baseURL string) GoogleOption {
	return func(g *Google) {
		if baseURL != "" {
			g.baseURL = strings.TrimRight(baseURL, "/")
		}
	}
}

func WithCalendarID(calendarID string) GoogleOption {
	return func(g *Google) {
		if calendarID != "" {
			g.calendarID = calendarID
		}
	}
}

func WithTimeout(d time.Duration) GoogleOption {
	return func(g *Google) {
		if d > 0 {
			g.client.Timeout = d
		}
	}
}

func NewGoogle(source oauth2.TokenSource, opts ...GoogleOption) *Google {
	g := &Google{
		source:     source,
		baseURL:    defaultGoogleBaseURL,
		calendarID: "primary",
	}
	g.client = &http.Client{
		Timeout: defaultGoogleTimeout,
		Transport: &oauthTransport{
			base:   http.DefaultTransport,
			source: source,
		},
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

type googleEvent struct {
	Summary   string `json:"summary"`
	Status    string `json:"status"`
	Attendees []struct {
		Email string `json:"email"`
	} `json:"attendees"`
	Start struct {
		DateTime string `json:"dateTime"`
		Date     string `json:"date"`
	} `json:"start"`
	End struct {
		DateTime string `json:"dateTime"`
		Date     string `json:"date"`
	} `json:"end"`
}

type listResponse struct {
	Items         []googleEvent `json:"items"`
	NextPageToken string        `json:"nextPageToken"`
}

func (g *Google) Events(ctx context.Context, start, end time.Time) ([]model.CalendarEvent, error) {
	var events []model.CalendarEvent
	pageToken := ""

	for page := 0; page < maxPages; page++ {
		resp, err := g.listPage(ctx, start, end, pageToken)
		if err != nil {
			return nil, &ProviderError{Kind: KindGoogle, Err: err}
		}

		for _, item := range resp.Items {
			if item.Status == "cancelled" {
				continue
			}
			ev, err := toCalendarEvent(item)
			if err != nil {
				slog.WarnContext(ctx, "skipping unreadable calendar event", "summary", item.Summary, "error", err)
				continue
			}
			events = append(events, ev)
		}

		if resp.NextPageToken == "" {
			break
		}
		pageToken = resp.NextPageToken
	}

	return events, nil
}

func (g *Google) listPage(ctx context.Context, start, end time.Time, pageToken string) (*listResponse, error) {
	query := url.Values{}
	query.Set("timeMin", start.Format(time.RFC3339))
	query.Set("timeMax", end.Format(time.RFC3339))
	query.Set("singleEvents", "true")
	query.Set("orderBy", "startTime")
	if pageToken != "" {
		query.Set("pageToken", pageToken)
	}

	listURL := fmt.Sprintf("%s/calendars/%s/events?%s", g.baseURL, url.PathEscape(g.calendarID), query.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, listURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, responseError(resp)
	}

	var payload listResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decoding events: %w", err)
	}
	return &payload, nil
}

func toCalendarEvent(item googleEvent) (model.CalendarEvent, error) {
	startRaw, start, err := parseEventTime(item.Start.DateTime, item.Start.Date)
	if err != nil {
		return model.CalendarEvent{}, fmt.Errorf("start: %w", err)
	}
	endRaw, end, err := parseEventTime(item.End.DateTime, item.End.Date)
	if err != nil {
		return model.CalendarEvent{}, fmt.Errorf("end: %w", err)
	}

	var attendees []string
	for _, a := range item.Attendees {
		attendees = append(attendees, a.Email)
	}
	return model.NewCalendarEvent(startRaw, endRaw, start, end, attendees, item.Summary), nil
}

func responseError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return fmt.Errorf("list events failed: status=%d body=%s", resp.StatusCode, strings.TrimSpace(string(body)))
}

type oauthTransport struct {
	base   http.RoundTripper
	source oauth2.TokenSource
}

func (t *oauthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	token, err := t.source.Token()
	if err != nil {
		return nil, fmt.Errorf("oauth token: %w", err)
	}
	req = req.Clone(req.Context())
	token.SetAuthHeader(req)
	return t.base.RoundTrip(req)
}
