package sportsdata

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"
	"github.com/riskibarqy/epl-data-lake/internal/domain/player"
	"github.com/riskibarqy/epl-data-lake/internal/domain/team"
	"github.com/riskibarqy/epl-data-lake/internal/platform/logging"
	"github.com/riskibarqy/epl-data-lake/internal/platform/resilience"
	"github.com/riskibarqy/epl-data-lake/internal/usecase"
)

const (
	defaultBaseURL     = "https://api.sportsdata.io/v4/soccer/scores/json"
	defaultCompetition = "EPL"
	subscriptionHeader = "Ocp-Apim-Subscription-Key"
	maxBodyBytes       = 8 << 20
)

var errProviderTransient = crerr.New("sportsdata transient failure")

type ClientConfig struct {
	HTTPClient  *http.Client
	BaseURL     string
	Competition string
	APIKey      string
	Timeout     time.Duration
	Logger      *logging.Logger
	Breaker     resilience.BreakerConfig
}

// Client talks to the SportsData.io soccer v4 scores API. It issues exactly
// one request per call; failed calls are not retried.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	competition string
	apiKey      string
	logger      *logging.Logger
	breaker     *resilience.Breaker
}

var _ usecase.PlayerFetcher = (*Client)(nil)

func NewClient(cfg ClientConfig) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	if httpClient.Timeout <= 0 {
		httpClient.Timeout = 20 * time.Second
	}

	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	competition := strings.TrimSpace(cfg.Competition)
	if competition == "" {
		competition = defaultCompetition
	}

	return &Client{
		httpClient:  httpClient,
		baseURL:     baseURL,
		competition: competition,
		apiKey:      strings.TrimSpace(cfg.APIKey),
		logger:      logger,
		breaker:     resilience.NewBreaker(cfg.Breaker),
	}
}

// FetchTeams lists the clubs of the configured competition.
func (c *Client) FetchTeams(ctx context.Context) ([]team.Team, error) {
	path := "/Teams/" + url.PathEscape(c.competition)

	var items []teamItem
	if _, err := c.doJSON(ctx, path, &items); err != nil {
		return nil, crerr.Wrapf(err, "fetch teams competition=%s", c.competition)
	}

	out := make([]team.Team, 0, len(items))
	for _, item := range items {
		if item.TeamID <= 0 {
			continue
		}
		out = append(out, team.Team{
			Key:  strconv.FormatInt(item.TeamID, 10),
			Name: firstNonEmpty(item.Name, item.FullName, item.Key),
		})
	}
	return out, nil
}

// FetchPlayers returns the squad of one team. Every failure is reported as a
// *usecase.FetchError so the caller can skip the team and carry on.
func (c *Client) FetchPlayers(ctx context.Context, t team.Team) ([]player.Record, error) {
	path := fmt.Sprintf("/PlayersByTeamBasic/%s/%s", url.PathEscape(c.competition), url.PathEscape(strings.TrimSpace(t.Key)))

	var records []player.Record
	status, err := c.doJSON(ctx, path, &records)
	if err != nil {
		return nil, &usecase.FetchError{TeamKey: t.Key, StatusCode: status, Err: err}
	}

	out := make([]player.Record, 0, len(records))
	for _, record := range records {
		if record == nil {
			continue
		}
		out = append(out, record)
	}
	return out, nil
}

// doJSON performs a GET and decodes the body into target. The returned status
// is zero when no response was received.
func (c *Client) doJSON(ctx context.Context, path string, target any) (int, error) {
	if err := c.breaker.Allow(); err != nil {
		c.logger.WarnContext(ctx, "sportsdata circuit breaker rejected request", "path", path, "state", c.breaker.State())
		return 0, fmt.Errorf("%w: sport data provider is temporarily unavailable", usecase.ErrDependencyUnavailable)
	}

	status, raw, err := c.execute(ctx, c.baseURL+path)
	c.breaker.Record(err != nil && crerr.Is(err, errProviderTransient))
	if err != nil {
		return status, err
	}

	if err := sonic.Unmarshal(raw, target); err != nil {
		return status, crerr.Wrapf(err, "decode provider payload body=%s", sanitizeSensitiveText(abbreviateBody(raw), c.apiKey))
	}
	return status, nil
}

func (c *Client) execute(ctx context.Context, fullURL string) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return 0, nil, crerr.Wrap(err, "build request")
	}
	req.Header.Set("accept", "application/json")
	req.Header.Set(subscriptionHeader, c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return 0, nil, ctxErr
		}
		return 0, nil, crerr.Mark(
			crerr.Newf("send request: %s", sanitizeSensitiveText(err.Error(), c.apiKey)),
			errProviderTransient,
		)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return resp.StatusCode, nil, crerr.Mark(crerr.Wrap(err, "read response body"), errProviderTransient)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		statusErr := crerr.Newf("provider status=%d body=%s", resp.StatusCode, sanitizeSensitiveText(abbreviateBody(raw), c.apiKey))
		if isTransientStatus(resp.StatusCode) {
			statusErr = crerr.Mark(statusErr, errProviderTransient)
		}
		c.logger.WarnContext(ctx, "sportsdata request failed", "url", redactURL(fullURL), "status", resp.StatusCode)
		return resp.StatusCode, nil, statusErr
	}

	return resp.StatusCode, raw, nil
}

func isTransientStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}

func sanitizeSensitiveText(value, secret string) string {
	value = strings.TrimSpace(value)
	if value == "" || secret == "" {
		return value
	}
	return strings.ReplaceAll(value, secret, "REDACTED")
}

func redactURL(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	query := parsed.Query()
	if query.Has("key") {
		query.Set("key", "REDACTED")
		parsed.RawQuery = query.Encode()
	}
	return parsed.String()
}

func abbreviateBody(body []byte) string {
	text := strings.TrimSpace(string(body))
	if len(text) <= 240 {
		return text
	}
	return text[:240] + "..."
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if v := strings.TrimSpace(value); v != "" {
			return v
		}
	}
	return ""
}
