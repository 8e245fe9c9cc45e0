package service

import (
	"context"
	"net/http"
	"net/url"
	"testing"
	"time"
)

func TestAuthService_ExtractToken_BearerFirst(t *testing.T) {
	a := NewAuthService(nil)

	req := &http.Request{Header: make(http.Header), URL: &url.URL{RawQuery: "token=q"}}
	req.Header.Set("Authorization", "Bearer headerToken")

	got := a.ExtractToken(req)
	if got != "headerToken" {
		t.Fatalf("expected headerToken, got %q", got)
	}
}

func TestAuthService_ExtractToken_QueryFallback(t *testing.T) {
	a := NewAuthService(nil)

	u, _ := url.Parse("http://example.com/path?token=queryToken")
	req := &http.Request{Header: make(http.Header), URL: u}

	got := a.ExtractToken(req)
	if got != "queryToken" {
		t.Fatalf("expected queryToken, got %q", got)
	}
}

func TestAuthService_SignOut_LastTokenFiresStateChange(t *testing.T) {
	ts := newTestTokenService(t)
	a := NewAuthService(ts)
	ctx := context.Background()

	type stateChange struct {
		uid      string
		signedIn bool
	}
	var changes []stateChange
	a.OnAuthStateChanged = func(uid string, signedIn bool) {
		changes = append(changes, stateChange{uid, signedIn})
	}

	_ = ts.StoreToken(ctx, "tokA", "u_1", time.Hour)
	_ = ts.StoreToken(ctx, "tokB", "u_1", time.Hour)

	// 还有存活 token，登录态不消失
	if err := a.SignOut(ctx, "tokA"); err != nil {
		t.Fatalf("SignOut tokA: %v", err)
	}
	if len(changes) != 0 {
		t.Fatalf("expected no state change yet, got %v", changes)
	}

	// 最后一个 token 注销才触发 signedIn=false
	if err := a.SignOut(ctx, "tokB"); err != nil {
		t.Fatalf("SignOut tokB: %v", err)
	}
	if len(changes) != 1 || changes[0].uid != "u_1" || changes[0].signedIn {
		t.Fatalf("expected [{u_1 false}], got %v", changes)
	}
}

func TestAuthService_Authenticate_InvalidToken(t *testing.T) {
	ts := newTestTokenService(t)
	a := NewAuthService(ts)

	if _, err := a.Authenticate(context.Background(), "nope"); err == nil {
		t.Fatalf("expected error for unknown token")
	}
	if _, err := a.Authenticate(context.Background(), "  "); err == nil {
		t.Fatalf("expected error for blank token")
	}
}
