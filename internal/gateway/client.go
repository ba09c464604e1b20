package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/matita/storefront/internal/domain"
	"github.com/matita/storefront/internal/session"
)

// Client talks to the remote store's REST surface: the auth endpoint for
// the current session and the users table for profiles. All failures are
// normalized to the session error taxonomy; a tripped breaker reads as the
// network being unavailable.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	breaker *gobreaker.CircuitBreaker[[]byte]

	mu    sync.Mutex
	token string
}

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		http: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
			Timeout:   10 * time.Second,
		},
		breaker: gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
			Name:        "session-gateway",
			MaxRequests: 3,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
		}),
	}
}

// UseSession installs the access token subsequent session checks
// authenticate with. A nil session drops the token.
func (c *Client) UseSession(sess *domain.Session) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if sess == nil {
		c.token = ""
		return
	}
	c.token = sess.AccessToken
}

type sessionUserDTO struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

type profileDTO struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Points   int    `json:"points"`
	IsAdmin  bool   `json:"is_admin"`
	IsMember bool   `json:"is_socio"`
}

// CurrentSession validates the stored access token against the auth
// endpoint. No token or a rejected token means no session, not an error.
func (c *Client) CurrentSession(ctx context.Context) (*domain.Session, error) {
	c.mu.Lock()
	token := c.token
	c.mu.Unlock()

	if token == "" {
		return nil, nil
	}

	body, status, err := c.get(ctx, c.baseURL+"/auth/v1/user", token)
	if err != nil {
		return nil, err
	}
	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		return nil, nil
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("%w: session check returned status %d", session.ErrNetworkUnavailable, status)
	}

	var dto sessionUserDTO
	if err := json.Unmarshal(body, &dto); err != nil {
		return nil, fmt.Errorf("decode session response failed: %w", err)
	}
	if dto.ID == "" {
		return nil, nil
	}
	return &domain.Session{UserID: dto.ID, AccessToken: token}, nil
}

// FetchProfile loads the users row for the given id. An absent row is
// reported as a nil profile, not an error.
func (c *Client) FetchProfile(ctx context.Context, userID string) (*domain.User, error) {
	endpoint := fmt.Sprintf("%s/rest/v1/users?id=eq.%s&select=*", c.baseURL, url.QueryEscape(userID))

	body, status, err := c.get(ctx, endpoint, "")
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("%w: profile fetch returned status %d", session.ErrNetworkUnavailable, status)
	}

	var rows []profileDTO
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("decode profile response failed: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	row := rows[0]
	return &domain.User{
		ID:       row.ID,
		Name:     row.Name,
		Email:    row.Email,
		Points:   row.Points,
		IsAdmin:  row.IsAdmin,
		IsMember: row.IsMember,
	}, nil
}

// get runs one GET through the circuit breaker and returns the body and
// status code. Transport-level failures and an open breaker map to
// session.ErrNetworkUnavailable.
func (c *Client) get(ctx context.Context, endpoint, bearer string) ([]byte, int, error) {
	var status int
	body, err := c.breaker.Execute(func() ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("apikey", c.apiKey)
		if bearer == "" {
			bearer = c.apiKey
		}
		req.Header.Set("Authorization", "Bearer "+bearer)

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		status = resp.StatusCode
		return io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, 0, fmt.Errorf("%w: circuit breaker open", session.ErrNetworkUnavailable)
		}
		return nil, 0, fmt.Errorf("%w: %v", session.ErrNetworkUnavailable, err)
	}
	return body, status, nil
}
