package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/LRZ-BADW/avina/internal/accounting"
	"github.com/LRZ-BADW/avina/internal/accounting/accountingtest"
	"github.com/LRZ-BADW/avina/internal/api"
	"github.com/LRZ-BADW/avina/internal/auth"
	"github.com/LRZ-BADW/avina/internal/clock"
	"github.com/LRZ-BADW/avina/pkg/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const delta = 1e-6

// days is the cost of running n days at a yearly unit price
func days(n, price float64) float64 {
	return n * 86400 * price / 31536000
}

type fakeDB struct {
	mock.Mock
	src *accountingtest.Memory
}

func (f *fakeDB) Read(ctx context.Context, fn func(accounting.Reader) error) error {
	return fn(f.src)
}

func (f *fakeDB) Concurrent() accounting.Reader {
	return f.src
}

func (f *fakeDB) Ping(ctx context.Context) error {
	args := f.Called(ctx)
	return args.Error(0)
}

type testServer struct {
	srv  *api.Server
	db   *fakeDB
	auth *auth.Auth
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	db := &fakeDB{src: accountingtest.Fixture()}
	a := auth.NewAuth("test-secret-0123456789", time.Hour, "")
	clk := clock.NewMock(time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC))
	srv := api.NewServer(api.DefaultServerConfig(), db, a, zerolog.Nop(),
		api.WithClock(clk),
		api.WithRegistry(prometheus.NewRegistry()),
	)
	return &testServer{srv: srv, db: db, auth: a}
}

func (ts *testServer) token(t *testing.T, id uint32) string {
	t.Helper()
	for i := range ts.db.src.UserList {
		if ts.db.src.UserList[i].ID == id {
			tok, err := ts.auth.GenerateAccessToken(&ts.db.src.UserList[i])
			require.NoError(t, err)
			return tok
		}
	}
	t.Fatalf("no fixture user %d", id)
	return ""
}

// get performs a GET as the given user; id 0 sends no token
func (ts *testServer) get(t *testing.T, id uint32, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	if id != 0 {
		req.Header.Set("Authorization", "Bearer "+ts.token(t, id))
	}
	rec := httptest.NewRecorder()
	ts.srv.Echo().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func detail(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	return decode[api.ErrorResponse](t, rec).Detail
}

const year2023 = "begin=2023-01-01T00:00:00Z&end=2024-01-01T00:00:00Z"

func TestHealth(t *testing.T) {
	ts := newTestServer(t)

	t.Run("health needs no token", func(t *testing.T) {
		rec := ts.get(t, 0, "/health")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "healthy", decode[map[string]string](t, rec)["status"])
	})

	t.Run("ready pings the database", func(t *testing.T) {
		ts.db.On("Ping", mock.Anything).Return(nil).Once()
		rec := ts.get(t, 0, "/ready")
		assert.Equal(t, http.StatusOK, rec.Code)

		ts.db.On("Ping", mock.Anything).Return(errors.New("connection refused")).Once()
		rec = ts.get(t, 0, "/ready")
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.NotContains(t, rec.Body.String(), "connection refused")
		ts.db.AssertExpectations(t)
	})

	t.Run("metrics are exposed", func(t *testing.T) {
		ts.get(t, accountingtest.Alice, "/api/accounting/servercost?"+year2023)
		rec := ts.get(t, 0, "/metrics")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "avina_http_request_duration_seconds")
		assert.Contains(t, rec.Body.String(), "avina_accounting_compute_duration_seconds")
	})
}

func TestAuthentication(t *testing.T) {
	ts := newTestServer(t)

	t.Run("missing token", func(t *testing.T) {
		rec := ts.get(t, 0, "/api/accounting/servercost")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "missing authorization header", detail(t, rec))
	})

	t.Run("request id is set", func(t *testing.T) {
		rec := ts.get(t, accountingtest.Alice, "/api/pricing/flavorprices")
		assert.True(t, strings.HasPrefix(rec.Header().Get("X-Request-Id"), "req_"))
	})
}

func TestServerCost(t *testing.T) {
	ts := newTestServer(t)
	alice, bob, carol, admin := accountingtest.Alice, accountingtest.Bob, accountingtest.Carol, accountingtest.Admin

	t.Run("own cost by default", func(t *testing.T) {
		rec := ts.get(t, alice, "/api/accounting/servercost?"+year2023)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		body := decode[map[string]any](t, rec)
		assert.Len(t, body, 1)
		assert.InDelta(t, days(304, 1000), body["total"], delta)
	})

	t.Run("detail carries flavors and servers", func(t *testing.T) {
		rec := ts.get(t, alice, "/api/accounting/servercost?detail=true&"+year2023)
		require.Equal(t, http.StatusOK, rec.Code)
		body := decode[types.ServerCostUser](t, rec)
		assert.InDelta(t, days(304, 1000), body.Total, delta)
		assert.InDelta(t, days(304, 1000), body.Flavors["tiny"], delta)
		assert.Contains(t, body.Servers, accountingtest.ServerAlice)
	})

	t.Run("all needs admin", func(t *testing.T) {
		rec := ts.get(t, alice, "/api/accounting/servercost?all=true")
		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Equal(t, "Forbidden", detail(t, rec))

		rec = ts.get(t, admin, "/api/accounting/servercost?all=true&detail=true&"+year2023)
		require.Equal(t, http.StatusOK, rec.Code)
		body := decode[types.ServerCostAll](t, rec)
		assert.Contains(t, body.Projects, "alpha")
		assert.Contains(t, body.Projects, "beta")
	})

	t.Run("all wins over other selectors", func(t *testing.T) {
		rec := ts.get(t, alice, "/api/accounting/servercost?all=true&user=1")
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("foreign project is not found", func(t *testing.T) {
		rec := ts.get(t, alice, "/api/accounting/servercost?project=1")
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "Resource not found", detail(t, rec))

		rec = ts.get(t, bob, "/api/accounting/servercost?project=1&"+year2023)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.InDelta(t, 2*days(304, 1000), decode[types.ServerCostSimple](t, rec).Total, delta)
	})

	t.Run("users see themselves, masters their project", func(t *testing.T) {
		tests := []struct {
			name   string
			caller uint32
			query  string
			want   int
		}{
			{"self", alice, "user=1", http.StatusOK},
			{"other user", alice, "user=2", http.StatusNotFound},
			{"master of the user's project", bob, "user=1", http.StatusOK},
			{"user of another project", carol, "user=1", http.StatusNotFound},
			{"admin", admin, "user=1", http.StatusOK},
			{"unknown user", admin, "user=99", http.StatusNotFound},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				rec := ts.get(t, tt.caller, "/api/accounting/servercost?"+tt.query)
				assert.Equal(t, tt.want, rec.Code, rec.Body.String())
			})
		}
	})

	t.Run("server needs its owner or master", func(t *testing.T) {
		rec := ts.get(t, alice, "/api/accounting/servercost?server="+accountingtest.ServerBob.String())
		assert.Equal(t, http.StatusNotFound, rec.Code)

		rec = ts.get(t, bob, "/api/accounting/servercost?server="+accountingtest.ServerAlice.String()+"&"+year2023)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.InDelta(t, days(304, 1000), decode[types.ServerCostSimple](t, rec).Total, delta)

		rec = ts.get(t, admin, "/api/accounting/servercost?server=99999999-9999-4999-8999-999999999999")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("malformed parameters", func(t *testing.T) {
		rec := ts.get(t, alice, "/api/accounting/servercost?begin=yesterday")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Invalid query parameter begin.", detail(t, rec))

		rec = ts.get(t, alice, "/api/accounting/servercost?server=not-a-uuid")
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		rec = ts.get(t, alice, "/api/accounting/servercost?user=0")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, detail(t, rec), "user")
	})

	t.Run("internal errors are not leaked", func(t *testing.T) {
		ts := newTestServer(t)
		tok := ts.token(t, alice)
		ts.db.src.Err = errors.New("disk on fire")

		req := httptest.NewRequest(http.MethodGet, "/api/accounting/servercost", nil)
		req.Header.Set("Authorization", "Bearer "+tok)
		rec := httptest.NewRecorder()
		ts.srv.Echo().ServeHTTP(rec, req)

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Equal(t, "Internal server error, contact admin or check logs", detail(t, rec))
	})
}

func TestServerConsumption(t *testing.T) {
	ts := newTestServer(t)

	t.Run("server", func(t *testing.T) {
		rec := ts.get(t, accountingtest.Alice, "/api/accounting/serverconsumption?server="+accountingtest.ServerAlice.String()+"&"+year2023)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		body := decode[map[string]float64](t, rec)
		assert.InDelta(t, 304*86400.0, body["tiny"], delta)
	})

	t.Run("project detail as master", func(t *testing.T) {
		rec := ts.get(t, accountingtest.Bob, "/api/accounting/serverconsumption?project=1&detail=true&"+year2023)
		require.Equal(t, http.StatusOK, rec.Code)
		body := decode[types.ServerConsumptionProject](t, rec)
		assert.InDelta(t, 2*304*86400.0, body.Total["tiny"], delta)
		assert.Contains(t, body.Users, "alice")
		assert.Contains(t, body.Users, "bob")
	})

	t.Run("same authorization as cost", func(t *testing.T) {
		rec := ts.get(t, accountingtest.Carol, "/api/accounting/serverconsumption?user=1")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestBudgetOverTree(t *testing.T) {
	ts := newTestServer(t)
	const end = "end=2023-12-31T00:00:00Z"

	t.Run("own tree", func(t *testing.T) {
		rec := ts.get(t, accountingtest.Alice, "/api/budgeting/budgetovertree?"+end)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		tree := decode[types.BudgetOverTree](t, rec)
		require.Contains(t, tree.Projects, "alpha")
		alpha := tree.Projects["alpha"]
		assert.False(t, alpha.Over)
		require.Contains(t, alpha.Users, "alice")
		assert.NotContains(t, alpha.Users, "bob")
		assert.True(t, alpha.Users["alice"].Over)
		require.NotNil(t, alpha.Users["alice"].Budget)
		assert.Equal(t, uint64(500), *alpha.Users["alice"].Budget)
	})

	t.Run("project as master", func(t *testing.T) {
		rec := ts.get(t, accountingtest.Bob, "/api/budgeting/budgetovertree?project=1&"+end)
		require.Equal(t, http.StatusOK, rec.Code)
		tree := decode[types.BudgetOverTree](t, rec)
		assert.Len(t, tree.Projects["alpha"].Users, 2)
		assert.False(t, tree.Projects["alpha"].Users["bob"].Over)
	})

	t.Run("authorization", func(t *testing.T) {
		assert.Equal(t, http.StatusForbidden, ts.get(t, accountingtest.Bob, "/api/budgeting/budgetovertree?all=true").Code)
		assert.Equal(t, http.StatusNotFound, ts.get(t, accountingtest.Alice, "/api/budgeting/budgetovertree?project=1").Code)
		assert.Equal(t, http.StatusNotFound, ts.get(t, accountingtest.Alice, "/api/budgeting/budgetovertree?user=2").Code)
		assert.Equal(t, http.StatusOK, ts.get(t, accountingtest.Bob, "/api/budgeting/budgetovertree?user=1").Code)
	})

	t.Run("all as admin", func(t *testing.T) {
		rec := ts.get(t, accountingtest.Admin, "/api/budgeting/budgetovertree?all=true&"+end)
		require.Equal(t, http.StatusOK, rec.Code)
		tree := decode[types.BudgetOverTree](t, rec)
		assert.Contains(t, tree.Projects, "alpha")
		assert.Contains(t, tree.Projects, "beta")
		assert.Nil(t, tree.Projects["beta"].Budget)
	})
}

func TestFlavorPrices(t *testing.T) {
	ts := newTestServer(t)
	ids := func(prices []types.FlavorPrice) []uint32 {
		out := make([]uint32, 0, len(prices))
		for _, p := range prices {
			out = append(out, p.ID)
		}
		return out
	}

	t.Run("list", func(t *testing.T) {
		tests := []struct {
			query string
			want  []uint32
		}{
			{"", []uint32{1, 2, 3, 4, 5}},
			{"current=true", []uint32{1, 2, 3, 4}},
			{"user_class=UC2", []uint32{3, 4}},
			{"user_class=1&current=true", []uint32{1, 2}},
		}
		for _, tt := range tests {
			t.Run(tt.query, func(t *testing.T) {
				rec := ts.get(t, accountingtest.Alice, "/api/pricing/flavorprices?"+tt.query)
				require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
				assert.Equal(t, tt.want, ids(decode[[]types.FlavorPrice](t, rec)))
			})
		}
	})

	t.Run("unknown class", func(t *testing.T) {
		rec := ts.get(t, accountingtest.Alice, "/api/pricing/flavorprices?user_class=UC9")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("get", func(t *testing.T) {
		rec := ts.get(t, accountingtest.Alice, "/api/pricing/flavorprices/3")
		require.Equal(t, http.StatusOK, rec.Code)
		price := decode[types.FlavorPrice](t, rec)
		assert.Equal(t, types.UserClassUC2, price.UserClass)
		assert.Equal(t, "tiny", price.FlavorName)

		assert.Equal(t, http.StatusNotFound, ts.get(t, accountingtest.Alice, "/api/pricing/flavorprices/99").Code)
		assert.Equal(t, http.StatusBadRequest, ts.get(t, accountingtest.Alice, "/api/pricing/flavorprices/abc").Code)
	})
}

func TestFlavorQuotaCheck(t *testing.T) {
	ts := newTestServer(t)
	admin := accountingtest.Admin

	t.Run("admin only", func(t *testing.T) {
		rec := ts.get(t, accountingtest.Bob, "/api/quota/flavorquotas/check?user=1&flavor=1")
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	tests := []struct {
		name  string
		query string
		want  bool
	}{
		{"fits exactly", "user=1&flavor=1&flavorcount=3", true},
		{"one too many", "user=1&flavor=1&flavorcount=4", false},
		{"count defaults to one", "user=1&flavor=1", true},
		{"by openstack id", "openstackproject=os-carol&flavor=2", true},
		{"running servers count", "openstackproject=os-carol&flavor=2&flavorcount=2", false},
		{"no quota", "user=2&flavor=1", false},
		{"flavor without group", "user=1&flavor=3", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ts.get(t, admin, "/api/quota/flavorquotas/check?"+tt.query)
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			assert.Equal(t, tt.want, decode[types.FlavorQuotaCheck](t, rec).Underquota)
		})
	}

	t.Run("needs a user", func(t *testing.T) {
		rec := ts.get(t, admin, "/api/quota/flavorquotas/check?flavor=1")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Neither user ID nor Openstack UUID provided.", detail(t, rec))
	})

	t.Run("needs a flavor", func(t *testing.T) {
		rec := ts.get(t, admin, "/api/quota/flavorquotas/check?user=1")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unknown flavor", func(t *testing.T) {
		rec := ts.get(t, admin, "/api/quota/flavorquotas/check?user=1&flavor=42")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestFlavorGroupUsage(t *testing.T) {
	ts := newTestServer(t)

	t.Run("own usage", func(t *testing.T) {
		rec := ts.get(t, accountingtest.Carol, "/api/resources/flavorgroups/usage")
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		usage := decode[[]types.FlavorGroupUsageSimple](t, rec)
		require.Len(t, usage, 1)
		assert.Equal(t, "carol", usage[0].UserName)
		assert.Equal(t, "standard", usage[0].FlavorGroupName)
		assert.Equal(t, uint32(4), usage[0].Usage)
	})

	t.Run("aggregate over all", func(t *testing.T) {
		rec := ts.get(t, accountingtest.Admin, "/api/resources/flavorgroups/usage?all=true&aggregate=true")
		require.Equal(t, http.StatusOK, rec.Code)
		usage := decode[[]types.FlavorGroupUsageAggregate](t, rec)
		require.Len(t, usage, 1)
		assert.Equal(t, uint32(4), usage[0].Usage)
	})

	t.Run("authorization", func(t *testing.T) {
		assert.Equal(t, http.StatusForbidden, ts.get(t, accountingtest.Carol, "/api/resources/flavorgroups/usage?all=true").Code)
		assert.Equal(t, http.StatusNotFound, ts.get(t, accountingtest.Carol, "/api/resources/flavorgroups/usage?project=1").Code)
		assert.Equal(t, http.StatusNotFound, ts.get(t, accountingtest.Carol, "/api/resources/flavorgroups/usage?user=1").Code)
		assert.Equal(t, http.StatusOK, ts.get(t, accountingtest.Bob, "/api/resources/flavorgroups/usage?project=1").Code)
	})
}
