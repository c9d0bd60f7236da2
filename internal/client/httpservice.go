package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/arasli/duet-chat/internal/queue"
	"github.com/arasli/duet-chat/pkg/apperr"
)

// HTTPService is the production Service implementation: REST against the
// chat server plus an AMQP subscription per conversation for the push
// path. Every call carries the stored session token as a bearer
// credential; a 401-class rejection surfaces as UNAUTHENTICATED so callers
// drop to the signed-out state.
type HTTPService struct {
	baseURL   string
	brokerURL string
	tokens    *TokenStore
	http      *http.Client
}

func NewHTTPService(baseURL, brokerURL string, tokens *TokenStore) *HTTPService {
	return &HTTPService{
		baseURL:   baseURL,
		brokerURL: brokerURL,
		tokens:    tokens,
		http:      &http.Client{Timeout: 15 * time.Second},
	}
}

// ----- wire types (mirror the server handler DTOs) -----

type credentialsBody struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type signUpBody struct {
	ProfileID string `json:"profile_id"`
}

type tokenPairBody struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type profileBody struct {
	ID                string     `json:"id"`
	Username          string     `json:"username"`
	DisplayName       *string    `json:"display_name"`
	AvatarURL         *string    `json:"avatar_url"`
	DailyMessageLimit int        `json:"daily_message_limit"`
	LastSeenAt        *time.Time `json:"last_seen_at"`
}

type memberBody struct {
	UserID   string    `json:"user_id"`
	JoinedAt time.Time `json:"joined_at"`
}

type conversationBody struct {
	ConversationID string `json:"conversation_id"`
}

type messageBody struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	SenderID       string    `json:"sender_id"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"created_at"`
}

type sendMessageBody struct {
	Content string `json:"content"`
}

type quotaBody struct {
	Used  int `json:"used"`
	Limit int `json:"limit"`
}

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// ----- Service implementation -----

func (s *HTTPService) SignUp(ctx context.Context, username, password string) (string, error) {
	var out signUpBody
	err := s.do(ctx, http.MethodPost, "/v1/auth/signup",
		credentialsBody{Username: username, Password: password}, &out)
	if err != nil {
		return "", err
	}
	return out.ProfileID, nil
}

func (s *HTTPService) Login(ctx context.Context, username, password string) (TokenPair, error) {
	var out tokenPairBody
	err := s.do(ctx, http.MethodPost, "/v1/auth/login",
		credentialsBody{Username: username, Password: password}, &out)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{AccessToken: out.AccessToken, RefreshToken: out.RefreshToken}, nil
}

func (s *HTTPService) ListProfiles(ctx context.Context) ([]Profile, error) {
	var out []profileBody
	if err := s.do(ctx, http.MethodGet, "/v1/profiles", nil, &out); err != nil {
		return nil, err
	}
	profiles := make([]Profile, 0, len(out))
	for _, p := range out {
		profiles = append(profiles, toProfile(p))
	}
	return profiles, nil
}

func (s *HTTPService) GetProfile(ctx context.Context, id string) (Profile, error) {
	var out profileBody
	if err := s.do(ctx, http.MethodGet, "/v1/profiles/"+url.PathEscape(id), nil, &out); err != nil {
		return Profile{}, err
	}
	return toProfile(out), nil
}

func (s *HTTPService) Heartbeat(ctx context.Context) error {
	return s.do(ctx, http.MethodPost, "/v1/presence/heartbeat", nil, nil)
}

func (s *HTTPService) GetOrCreateConversation(ctx context.Context, otherUserID string) (string, error) {
	var out conversationBody
	err := s.do(ctx, http.MethodPost, "/v1/conversations/with/"+url.PathEscape(otherUserID), nil, &out)
	if err != nil {
		return "", err
	}
	return out.ConversationID, nil
}

func (s *HTTPService) Members(ctx context.Context, conversationID string, excludeSelf bool) ([]Member, error) {
	path := "/v1/conversations/" + url.PathEscape(conversationID) + "/members"
	if excludeSelf {
		path += "?exclude_self=1"
	}
	var out []memberBody
	if err := s.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	members := make([]Member, 0, len(out))
	for _, m := range out {
		members = append(members, Member{UserID: m.UserID, JoinedAt: m.JoinedAt})
	}
	return members, nil
}

func (s *HTTPService) Messages(ctx context.Context, conversationID string) ([]Message, error) {
	var out []messageBody
	path := "/v1/conversations/" + url.PathEscape(conversationID) + "/messages"
	if err := s.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	msgs := make([]Message, 0, len(out))
	for _, m := range out {
		msgs = append(msgs, toMessage(m))
	}
	return msgs, nil
}

func (s *HTTPService) SendMessage(ctx context.Context, conversationID, content string) (Message, error) {
	var out messageBody
	path := "/v1/conversations/" + url.PathEscape(conversationID) + "/messages"
	if err := s.do(ctx, http.MethodPost, path, sendMessageBody{Content: content}, &out); err != nil {
		return Message{}, err
	}
	return toMessage(out), nil
}

func (s *HTTPService) Quota(ctx context.Context) (Quota, error) {
	var out quotaBody
	if err := s.do(ctx, http.MethodGet, "/v1/quota", nil, &out); err != nil {
		return Quota{}, err
	}
	return Quota{Used: out.Used, Limit: out.Limit}, nil
}

// SubscribeMessages opens the per-conversation push channel over the
// broker and adapts its events to Messages.
func (s *HTTPService) SubscribeMessages(conversationID string) (MessageSubscription, error) {
	sub, err := queue.Subscribe(s.brokerURL, conversationID)
	if err != nil {
		return nil, err
	}
	events := make(chan Message)
	go func() {
		defer close(events)
		for ev := range sub.C {
			created, err := time.Parse(time.RFC3339Nano, ev.CreatedAt)
			if err != nil {
				continue // malformed event; poll path reconciles
			}
			events <- Message{
				ID:             CommittedID(ev.ID),
				ConversationID: ev.ConversationID,
				SenderID:       ev.SenderID,
				Content:        ev.Content,
				CreatedAt:      created,
			}
		}
	}()
	return &amqpSubscription{events: events, sub: sub}, nil
}

type amqpSubscription struct {
	events <-chan Message
	sub    *queue.Subscription
}

func (a *amqpSubscription) Events() <-chan Message { return a.events }
func (a *amqpSubscription) Cancel()                { a.sub.Cancel() }

// ----- plumbing -----

// do issues one request and decodes the response. Error mapping: 401 →
// UNAUTHENTICATED, 409 → ALREADY_EXISTS, 429 with the quota code →
// QUOTA_EXCEEDED, anything else (including malformed bodies) →
// UNAVAILABLE.
func (s *HTTPService) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return apperr.Wrap(apperr.CodeInternal, "encode request", err)
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, body)
	if err != nil {
		return apperr.Wrap(apperr.CodeInternal, "build request", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if tok := s.tokens.Get(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	resp, err := s.http.Do(req)
	if err != nil {
		return apperr.Wrap(apperr.CodeUnavailable, "request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var eb errorBody
		_ = json.NewDecoder(resp.Body).Decode(&eb)
		msg := eb.Error
		if msg == "" {
			msg = fmt.Sprintf("server returned %d", resp.StatusCode)
		}
		switch {
		case resp.StatusCode == http.StatusUnauthorized:
			return apperr.Unauthenticated(msg)
		case resp.StatusCode == http.StatusConflict:
			return apperr.AlreadyExists(msg)
		case eb.Code == "quota_exceeded":
			return apperr.QuotaExceeded(msg)
		case resp.StatusCode == http.StatusNotFound:
			return apperr.NotFound(msg)
		default:
			return apperr.Unavailable(msg)
		}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return apperr.Wrap(apperr.CodeUnavailable, "malformed response", err)
	}
	return nil
}

func toProfile(p profileBody) Profile {
	return Profile{
		ID:                p.ID,
		Username:          p.Username,
		DisplayName:       p.DisplayName,
		AvatarURL:         p.AvatarURL,
		DailyMessageLimit: p.DailyMessageLimit,
		LastSeenAt:        p.LastSeenAt,
	}
}

func toMessage(m messageBody) Message {
	return Message{
		ID:             CommittedID(m.ID),
		ConversationID: m.ConversationID,
		SenderID:       m.SenderID,
		Content:        m.Content,
		CreatedAt:      m.CreatedAt,
	}
}
