package middleware

import (
	"context"
	"testing"
	"time"

	"connectrpc.com/connect"

	"github.com/mmynk/kopa/internal/auth"
)

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header string
		want   string
		ok     bool
	}{
		{"Bearer abc", "abc", true},
		{"bearer abc", "abc", true},
		{"Basic abc", "", false},
		{"Bearer ", "", false},
		{"abc", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		got, ok := bearerToken(tt.header)
		if got != tt.want || ok != tt.ok {
			t.Errorf("bearerToken(%q) = %q, %v; want %q, %v", tt.header, got, ok, tt.want, tt.ok)
		}
	}
}

func TestRequireAuth(t *testing.T) {
	manager := auth.NewJWTManager("0123456789abcdef0123456789abcdef", "")
	token, err := manager.Generate("user-1", "ada@example.com", time.Hour)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	var gotUser, gotEmail string
	next := func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
		gotUser, gotEmail = GetUserID(ctx), GetEmail(ctx)
		return nil, nil
	}
	handler := RequireAuth(manager)(next)

	tests := []struct {
		name     string
		header   string
		wantCode connect.Code
	}{
		{"valid", "Bearer " + token, 0},
		{"missing", "", connect.CodeUnauthenticated},
		{"garbage", "Bearer nope", connect.CodeUnauthenticated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotUser, gotEmail = "", ""
			req := connect.NewRequest(&struct{}{})
			if tt.header != "" {
				req.Header().Set("Authorization", tt.header)
			}

			_, err := handler(context.Background(), req)
			if tt.wantCode == 0 {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if gotUser != "user-1" || gotEmail != "ada@example.com" {
					t.Errorf("context identity = %q, %q", gotUser, gotEmail)
				}
				return
			}
			if connect.CodeOf(err) != tt.wantCode {
				t.Errorf("code = %v, want %v", connect.CodeOf(err), tt.wantCode)
			}
			if gotUser != "" {
				t.Error("next should not run")
			}
		})
	}
}
