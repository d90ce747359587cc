package support

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/RichardoC/support-widget/internal/models"
	"github.com/RichardoC/support-widget/internal/session"
)

const (
	endpointChat    = "/support/chat"
	endpointSession = "/support/session/"
	endpointHealth  = "/health"

	DefaultCustomerID = "customer-001"
	DefaultChannel    = "website"
)

// State of the logical session as seen by this client.
type State string

const (
	StateNotStarted State = "not-started"
	StateActive     State = "active"
)

// Client runs request/reply exchanges against the support backend and keeps
// the session store in step with what the backend returns.
type Client struct {
	httpClient *http.Client
	baseURL    string
	customerID string
	channel    string
	store      session.Store
	logger     *zap.Logger

	ordered bool
	seq     atomic.Uint64
	mu      sync.Mutex
	applied uint64
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

func WithCustomerID(id string) Option {
	return func(c *Client) {
		c.customerID = id
	}
}

func WithChannel(channel string) Option {
	return func(c *Client) {
		c.channel = channel
	}
}

// WithOrderedUpdates numbers every send and refuses to let a response for an
// older send overwrite the session id stored by a newer one. Without it the
// last response to arrive wins.
func WithOrderedUpdates() Option {
	return func(c *Client) {
		c.ordered = true
	}
}

func New(baseURL string, store session.Store, opts ...Option) (*Client, error) {
	normalized, err := normalizeBaseURL(baseURL)
	if err != nil {
		return nil, errors.Wrap(err, "invalid backend URL")
	}
	if store == nil {
		return nil, errors.New("session store is required")
	}

	c := &Client{
		httpClient: http.DefaultClient,
		baseURL:    normalized,
		customerID: DefaultCustomerID,
		channel:    DefaultChannel,
		store:      store,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// normalizeBaseURL adds a missing scheme and strips trailing slashes.
func normalizeBaseURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	if u.Host == "" {
		return "", errors.Errorf("missing host in %q", raw)
	}

	return fmt.Sprintf("%s://%s%s", u.Scheme, u.Host, strings.TrimRight(u.Path, "/")), nil
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

// Session reports the stored session id together with the session state.
// The id is empty while the state is StateNotStarted.
func (c *Client) Session() (string, State) {
	id, ok := c.store.Get()
	if !ok {
		return "", StateNotStarted
	}
	return id, StateActive
}

func (c *Client) State() State {
	_, state := c.Session()
	return state
}

// SessionLabel is the session id, or the state name when none is stored.
func (c *Client) SessionLabel() string {
	id, state := c.Session()
	if state == StateNotStarted {
		return string(state)
	}
	return id
}

// Send performs one exchange for userText. Blank input returns Skipped
// without touching the network. Errors never escape: they come back as a
// Failure and leave the session store as it was.
func (c *Client) Send(ctx context.Context, userText string) Outcome {
	text := strings.TrimSpace(userText)
	if text == "" {
		return Skipped{}
	}

	seq := c.seq.Add(1)
	req := ChatRequest{
		CustomerID: c.customerID,
		Message:    text,
		Context:    map[string]string{"channel": c.channel},
	}
	if id, ok := c.store.Get(); ok {
		req.SessionID = &id
	}

	resp, err := c.exchange(ctx, req)
	if err != nil {
		c.logger.Warn("support exchange failed", zap.Uint64("seq", seq), zap.Error(err))
		return failureFrom(err)
	}

	c.apply(seq, resp.SessionID)

	reply := Reply{
		Text:       resp.Reply,
		SessionID:  resp.SessionID,
		Status:     resp.Status,
		MatchScore: resp.MatchScore,
	}
	if resp.MatchedIssueID != nil {
		reply.MatchedIssueID = *resp.MatchedIssueID
	}
	return reply
}

func (c *Client) apply(seq uint64, sessionID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.ordered && seq < c.applied {
		c.logger.Debug("dropping session id from stale response",
			zap.Uint64("seq", seq),
			zap.Uint64("applied", c.applied))
		return
	}
	if seq > c.applied {
		c.applied = seq
	}
	c.store.Set(sessionID)
}

func (c *Client) exchange(ctx context.Context, chatReq ChatRequest) (*ChatResponse, error) {
	// ConfigStd replaces invalid UTF-8 in user text with U+FFFD.
	body, err := sonic.ConfigStd.Marshal(chatReq)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal request")
	}

	raw, err := c.do(ctx, http.MethodPost, endpointChat, body)
	if err != nil {
		return nil, err
	}

	var chatResp ChatResponse
	if err := sonic.Unmarshal(raw, &chatResp); err != nil {
		return nil, transportErr("malformed response", err)
	}
	if chatResp.SessionID == "" {
		return nil, transportErr("malformed response", errors.New("missing session_id"))
	}
	return &chatResp, nil
}

// Health calls the backend liveness endpoint and returns the server time it
// reports.
func (c *Client) Health(ctx context.Context) (string, error) {
	raw, err := c.do(ctx, http.MethodGet, endpointHealth, nil)
	if err != nil {
		return "", err
	}

	var health healthResponse
	if err := sonic.Unmarshal(raw, &health); err != nil {
		return "", transportErr("malformed response", err)
	}
	if !health.OK {
		return "", errors.New("backend reported unhealthy")
	}
	return health.Time, nil
}

// FetchSession asks the backend for its record of a session, history included.
func (c *Client) FetchSession(ctx context.Context, id string) (*models.SessionRecord, error) {
	if strings.TrimSpace(id) == "" {
		return nil, errors.New("session id is required")
	}

	raw, err := c.do(ctx, http.MethodGet, endpointSession+url.PathEscape(id), nil)
	if err != nil {
		return nil, err
	}

	var resp struct {
		OK      bool                  `json:"ok"`
		Error   string                `json:"error"`
		Session *models.SessionRecord `json:"session"`
	}
	if err := sonic.Unmarshal(raw, &resp); err != nil {
		return nil, transportErr("malformed response", err)
	}
	if !resp.OK || resp.Session == nil {
		return nil, errors.Wrapf(ErrSessionNotFound, "%s (%s)", id, resp.Error)
	}
	return resp.Session, nil
}

func (c *Client) do(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build request")
	}
	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, transportErr("request failed", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, transportErr("failed to read response", err)
	}

	c.logger.Debug("support backend responded",
		zap.String("request_id", requestID),
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &BackendError{StatusCode: resp.StatusCode, Body: string(raw)}
	}
	return raw, nil
}
