package service

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"connectrpc.com/connect"

	"github.com/mmynk/kopa/internal/auth"
	"github.com/mmynk/kopa/internal/events"
	"github.com/mmynk/kopa/internal/ledger"
	"github.com/mmynk/kopa/internal/lock"
	"github.com/mmynk/kopa/internal/middleware"
	"github.com/mmynk/kopa/internal/registry"
	"github.com/mmynk/kopa/internal/rotation"
	"github.com/mmynk/kopa/internal/storage/sqlite"
	pb "github.com/mmynk/kopa/pkg/api"
	"github.com/mmynk/kopa/pkg/api/apiconnect"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type testServer struct {
	url string
	jwt *auth.JWTManager
}

// clients is one user's view of the API.
type clients struct {
	groups apiconnect.GroupServiceClient
	cycles apiconnect.CycleServiceClient
	ledger apiconnect.LedgerServiceClient
	roles  apiconnect.RoleServiceClient
}

func setupTestServer(t *testing.T) *testServer {
	t.Helper()

	store, err := sqlite.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	locks := lock.NewKeyed()
	publisher := events.LogPublisher{}
	reg := registry.New(store, locks)
	engine := rotation.New(store, locks, publisher)
	l := ledger.New(store, locks, publisher)

	jwtManager := auth.NewJWTManager(testSecret, "")
	interceptors := connect.WithInterceptors(
		middleware.RequireAuth(jwtManager),
		middleware.LoggingInterceptor(),
	)

	mux := http.NewServeMux()
	mux.Handle(apiconnect.NewGroupServiceHandler(NewGroupService(store, reg, engine), interceptors))
	mux.Handle(apiconnect.NewCycleServiceHandler(NewCycleService(store, reg, engine, l), interceptors))
	mux.Handle(apiconnect.NewLedgerServiceHandler(NewLedgerService(store, reg, l), interceptors))
	mux.Handle(apiconnect.NewRoleServiceHandler(NewRoleService(store, reg), interceptors))

	server := httptest.NewServer(mux)
	t.Cleanup(func() {
		server.Close()
		store.Close()
	})

	return &testServer{url: server.URL, jwt: jwtManager}
}

// as returns clients authenticated as userID. An empty userID sends no token.
func (s *testServer) as(t *testing.T, userID string) *clients {
	t.Helper()

	var opts []connect.ClientOption
	if userID != "" {
		token, err := s.jwt.Generate(userID, userID+"@example.com", time.Hour)
		if err != nil {
			t.Fatalf("failed to issue token: %v", err)
		}
		opts = append(opts, connect.WithInterceptors(bearer(token)))
	}

	return &clients{
		groups: apiconnect.NewGroupServiceClient(http.DefaultClient, s.url, opts...),
		cycles: apiconnect.NewCycleServiceClient(http.DefaultClient, s.url, opts...),
		ledger: apiconnect.NewLedgerServiceClient(http.DefaultClient, s.url, opts...),
		roles:  apiconnect.NewRoleServiceClient(http.DefaultClient, s.url, opts...),
	}
}

func bearer(token string) connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			req.Header().Set("Authorization", "Bearer "+token)
			return next(ctx, req)
		}
	}
}

// createGroup creates a monthly 50000 group administered by the caller.
// Bola is linked to user "bola"; Chidi has no account.
func createGroup(t *testing.T, c *clients) *pb.CreateGroupResponse {
	t.Helper()

	resp, err := c.groups.CreateGroup(context.Background(), connect.NewRequest(&pb.CreateGroupRequest{
		Name:               "Family Savings",
		ContributionAmount: "50000",
		Frequency:          "monthly",
		StartDate:          "2024-01-31",
		Admin:              &pb.MemberInput{Name: "Ada", Phone: "+2348000000001"},
		Members: []*pb.MemberInput{
			{Name: "Bola", Phone: "+2348000000002", UserId: "bola"},
			{Name: "Chidi", Phone: "+2348000000003"},
		},
	}))
	if err != nil {
		t.Fatalf("CreateGroup failed: %v", err)
	}
	return resp.Msg
}

func assertCode(t *testing.T, err error, want connect.Code) {
	t.Helper()

	if err == nil {
		t.Fatalf("expected %v error, got nil", want)
	}
	var connectErr *connect.Error
	if !errors.As(err, &connectErr) {
		t.Fatalf("expected connect error, got %v", err)
	}
	if connectErr.Code() != want {
		t.Errorf("expected code %v, got %v (%s)", want, connectErr.Code(), connectErr.Message())
	}
}
