package routes

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/tokenomics/internal/fees"
	"github.com/angelmondragon/tokenomics/internal/supply"
	pkgAuth "github.com/angelmondragon/tokenomics/pkg/auth"
	"github.com/angelmondragon/tokenomics/pkg/config"
	"github.com/angelmondragon/tokenomics/pkg/enums"
	"github.com/angelmondragon/tokenomics/pkg/logger"
	"github.com/angelmondragon/tokenomics/pkg/metrics"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error {
	return nil
}

type stubAdmins struct {
	admins map[uuid.UUID]bool
}

func (s stubAdmins) IsAdmin(_ context.Context, id uuid.UUID) (bool, error) {
	return s.admins[id], nil
}

type stubSupply struct {
	supply.Service
}

func (stubSupply) Status(context.Context) (*supply.Status, error) {
	return &supply.Status{}, nil
}

type stubFees struct {
	fees.Service
}

func (stubFees) ListFeeSettings(context.Context) ([]fees.Resolution, error) {
	return nil, nil
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test"},
		JWT: config.JWTConfig{Secret: "secret", Issuer: "issuer", ExpirationMinutes: 60},
	}
}

func newTestRouter(cfg *config.Config, admins stubAdmins) http.Handler {
	logg := logger.New(logger.Options{ServiceName: "test-routing", Level: logger.ParseLevel("debug"), Output: io.Discard})
	reg := prometheus.NewRegistry()
	metrics.NewSettlementMetrics(reg).IncOutcome("settled")
	return NewRouter(RouterParams{
		Config:   cfg,
		Logger:   logg,
		DB:       stubPinger{},
		Gatherer: reg,
		Admins:   admins,
		Supply:   stubSupply{},
		Fees:     stubFees{},
	})
}

func bearer(t *testing.T, cfg *config.Config, accountID uuid.UUID, role enums.AccountRole) string {
	t.Helper()
	token, err := pkgAuth.MintAccessToken(cfg.JWT, time.Now(), pkgAuth.AccessTokenPayload{AccountID: accountID, Role: role})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return "Bearer " + token
}

func TestHealthRoutes(t *testing.T) {
	router := newTestRouter(testConfig(), stubAdmins{})
	for _, path := range []string{"/health/live", "/health/ready"} {
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, path, nil))
		if resp.Code != http.StatusOK {
			t.Fatalf("%s: expected 200 got %d", path, resp.Code)
		}
	}
}

func TestMetricsEndpointExposesSettlementCounter(t *testing.T) {
	router := newTestRouter(testConfig(), stubAdmins{})
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), "stake_settlements_total") {
		t.Fatalf("expected settlement counter in metrics output")
	}
}

func TestUserRoutesRejectMissingJWT(t *testing.T) {
	router := newTestRouter(testConfig(), stubAdmins{})
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/supply", nil))
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestUserRoutesSucceedWithJWT(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg, stubAdmins{})
	req := httptest.NewRequest(http.MethodGet, "/api/v1/supply", nil)
	req.Header.Set("Authorization", bearer(t, cfg, uuid.New(), enums.AccountRoleUser))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

func TestAdminRoutesRequireAdminAccount(t *testing.T) {
	cfg := testConfig()
	admin := uuid.New()
	router := newTestRouter(cfg, stubAdmins{admins: map[uuid.UUID]bool{admin: true}})

	req := httptest.NewRequest(http.MethodGet, "/api/admin/v1/fees", nil)
	req.Header.Set("Authorization", bearer(t, cfg, uuid.New(), enums.AccountRoleAdmin))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for non-admin account, got %d", resp.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/admin/v1/fees", nil)
	req.Header.Set("Authorization", bearer(t, cfg, admin, enums.AccountRoleAdmin))
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for admin, got %d", resp.Code)
	}
}

func TestAdminRoutesRejectMissingJWT(t *testing.T) {
	router := newTestRouter(testConfig(), stubAdmins{})
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/api/admin/v1/stakes/sweep", nil))
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}
