package client

import (
	"context"
	"sync"
)

// fakeService is a scriptable Service for tests: each method delegates to
// the corresponding function field when set and returns zero values
// otherwise.
type fakeService struct {
	signUpFn    func(ctx context.Context, username, password string) (string, error)
	loginFn     func(ctx context.Context, username, password string) (TokenPair, error)
	profilesFn  func(ctx context.Context) ([]Profile, error)
	profileFn   func(ctx context.Context, id string) (Profile, error)
	heartbeatFn func(ctx context.Context) error
	convFn      func(ctx context.Context, otherUserID string) (string, error)
	membersFn   func(ctx context.Context, conversationID string, excludeSelf bool) ([]Member, error)
	messagesFn  func(ctx context.Context, conversationID string) ([]Message, error)
	sendFn      func(ctx context.Context, conversationID, content string) (Message, error)
	subscribeFn func(conversationID string) (MessageSubscription, error)
	quotaFn     func(ctx context.Context) (Quota, error)
}

func (f *fakeService) SignUp(ctx context.Context, u, p string) (string, error) {
	if f.signUpFn != nil {
		return f.signUpFn(ctx, u, p)
	}
	return "", nil
}

func (f *fakeService) Login(ctx context.Context, u, p string) (TokenPair, error) {
	if f.loginFn != nil {
		return f.loginFn(ctx, u, p)
	}
	return TokenPair{}, nil
}

func (f *fakeService) ListProfiles(ctx context.Context) ([]Profile, error) {
	if f.profilesFn != nil {
		return f.profilesFn(ctx)
	}
	return nil, nil
}

func (f *fakeService) GetProfile(ctx context.Context, id string) (Profile, error) {
	if f.profileFn != nil {
		return f.profileFn(ctx, id)
	}
	return Profile{}, nil
}

func (f *fakeService) Heartbeat(ctx context.Context) error {
	if f.heartbeatFn != nil {
		return f.heartbeatFn(ctx)
	}
	return nil
}

func (f *fakeService) GetOrCreateConversation(ctx context.Context, other string) (string, error) {
	if f.convFn != nil {
		return f.convFn(ctx, other)
	}
	return "", nil
}

func (f *fakeService) Members(ctx context.Context, convID string, excludeSelf bool) ([]Member, error) {
	if f.membersFn != nil {
		return f.membersFn(ctx, convID, excludeSelf)
	}
	return nil, nil
}

func (f *fakeService) Messages(ctx context.Context, convID string) ([]Message, error) {
	if f.messagesFn != nil {
		return f.messagesFn(ctx, convID)
	}
	return nil, nil
}

func (f *fakeService) SendMessage(ctx context.Context, convID, content string) (Message, error) {
	if f.sendFn != nil {
		return f.sendFn(ctx, convID, content)
	}
	return Message{}, nil
}

func (f *fakeService) SubscribeMessages(convID string) (MessageSubscription, error) {
	if f.subscribeFn != nil {
		return f.subscribeFn(convID)
	}
	return newFakeSubscription(), nil
}

func (f *fakeService) Quota(ctx context.Context) (Quota, error) {
	if f.quotaFn != nil {
		return f.quotaFn(ctx)
	}
	return Quota{}, nil
}

type fakeSubscription struct {
	ch        chan Message
	once      sync.Once
	cancelled bool
	mu        sync.Mutex
}

func newFakeSubscription() *fakeSubscription {
	return &fakeSubscription{ch: make(chan Message)}
}

func (f *fakeSubscription) Events() <-chan Message { return f.ch }

func (f *fakeSubscription) Cancel() {
	f.once.Do(func() {
		f.mu.Lock()
		f.cancelled = true
		f.mu.Unlock()
		close(f.ch)
	})
}

func (f *fakeSubscription) isCancelled() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cancelled
}
