package auth

import (
	"context"
	"testing"
	"time"

	"github.com/LeChatP/RootAsRole-sub001/cookie"
	"github.com/LeChatP/RootAsRole-sub001/policy"
	"github.com/LeChatP/RootAsRole-sub001/policy/optstack"
)

type fakeAuthenticator struct {
	authCalls int
	authErr   error
	mgmtErr   error
}

func (f *fakeAuthenticator) Authenticate(ctx context.Context, user, prompt string) error {
	f.authCalls++
	return f.authErr
}

func (f *fakeAuthenticator) AccountMgmt(ctx context.Context, user string) error {
	return f.mgmtErr
}

func stackWith(block *policy.OptionsBlock) *optstack.Stack {
	return optstack.New(nil, nil, nil, block)
}

func TestGateway_SkipOption_NeverCallsAuthenticator(t *testing.T) {
	fake := &fakeAuthenticator{}
	g := NewGateway(cookie.NewStore(t.TempDir()), fake)
	g.Clock = func() time.Time { return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC) }

	stack := stackWith(&policy.OptionsBlock{Authentication: policy.AuthSkip})

	err := g.Authenticate(context.Background(), 1000, "alice", "", stack, nil)
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if fake.authCalls != 0 {
		t.Error("expected Authenticate not to be called under authentication=skip")
	}
}

func TestGateway_ValidCookieSkipsPrompt(t *testing.T) {
	fake := &fakeAuthenticator{}
	store := cookie.NewStore(t.TempDir())
	g := NewGateway(store, fake)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	g.Clock = func() time.Time { return now }

	ts := &policy.TimestampDescriptor{Type: policy.TimestampUID, Duration: "00:15:00", MaxUsage: 3}
	scope, _ := cookie.ComputeScope(ts.Type)
	if err := store.Issue(1000, scope, now.Add(-time.Minute), 3); err != nil {
		t.Fatalf("Issue: %v", err)
	}

	stack := stackWith(&policy.OptionsBlock{})
	err := g.Authenticate(context.Background(), 1000, "alice", "", stack, ts)
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if fake.authCalls != 0 {
		t.Error("expected a valid cookie to skip the authenticator")
	}
}

func TestGateway_ExpiredCookieFallsBackToAuthenticator(t *testing.T) {
	fake := &fakeAuthenticator{}
	store := cookie.NewStore(t.TempDir())
	g := NewGateway(store, fake)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	g.Clock = func() time.Time { return now }

	ts := &policy.TimestampDescriptor{Type: policy.TimestampUID, Duration: "00:15:00", MaxUsage: 3}
	scope, _ := cookie.ComputeScope(ts.Type)
	if err := store.Issue(1000, scope, now.Add(-time.Hour), 3); err != nil {
		t.Fatalf("Issue: %v", err)
	}

	stack := stackWith(&policy.OptionsBlock{})
	err := g.Authenticate(context.Background(), 1000, "alice", "", stack, ts)
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if fake.authCalls != 1 {
		t.Errorf("authCalls = %d, want 1", fake.authCalls)
	}

	rec, found, _ := store.Lookup(1000, scope)
	if !found || rec.UsesRemaining != 3 {
		t.Errorf("expected a fresh cookie to be issued after re-auth, got %+v found=%v", rec, found)
	}
}

func TestGateway_AuthenticatorFailure(t *testing.T) {
	fake := &fakeAuthenticator{authErr: errTest}
	store := cookie.NewStore(t.TempDir())
	g := NewGateway(store, fake)
	g.Clock = func() time.Time { return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC) }

	stack := stackWith(&policy.OptionsBlock{})
	err := g.Authenticate(context.Background(), 1000, "alice", "", stack, nil)
	if err == nil {
		t.Fatal("expected error when the authenticator rejects the caller")
	}
}

type simpleError string

func (e simpleError) Error() string { return string(e) }

var errTest = simpleError("denied")
