package billing_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/paygate/modules/billing"
	"github.com/dmitrymomot/paygate/pkg/correlation"
	"github.com/dmitrymomot/paygate/pkg/mercadopago"
	"github.com/dmitrymomot/paygate/pkg/subscription"
	"github.com/dmitrymomot/paygate/svc/auth"
)

const (
	webhookSecret = "whsec-test"
	adminToken    = "admin-token"
)

type mockProvider struct {
	mock.Mock
}

func (m *mockProvider) GetPreapproval(ctx context.Context, id string) (*mercadopago.Preapproval, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*mercadopago.Preapproval), args.Error(1)
}

func (m *mockProvider) CancelPreapproval(ctx context.Context, id string) (*mercadopago.Preapproval, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*mercadopago.Preapproval), args.Error(1)
}

func (m *mockProvider) CreatePreapproval(ctx context.Context, req mercadopago.CreatePreapprovalRequest) (*mercadopago.Preapproval, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*mercadopago.Preapproval), args.Error(1)
}

type env struct {
	handler  http.Handler
	module   *billing.Module
	store    *subscription.MemoryStore
	provider *mockProvider
	codec    *correlation.Codec
	verifier *mercadopago.SignatureVerifier
	metrics  *billing.Metrics
}

func newEnv(t *testing.T) *env {
	t.Helper()

	store := subscription.NewMemoryStore()
	store.AddUser(subscription.User{ID: "u1", Email: "u1@test.com", Name: "Ana"})
	for _, p := range []subscription.Plan{
		{ID: "basico", Name: "Basico", Active: true},
		{ID: "pro", Name: "Pro", MonthlyPrice: decimal.NewFromInt(60000), YearlyPrice: decimal.NewFromInt(576000), Active: true},
	} {
		require.NoError(t, store.UpsertPlan(context.Background(), p))
	}

	codec, err := correlation.NewCodec("correlation-secret")
	require.NoError(t, err)

	provider := &mockProvider{}
	svc := subscription.NewService(store, provider, codec)
	verifier := mercadopago.NewSignatureVerifier(webhookSecret, 0)
	metrics := billing.NewMetrics(prometheus.NewRegistry())

	mod := billing.NewModule(billing.Config{
		AppURL:     "https://app.test",
		AdminToken: adminToken,
	}, svc, verifier, billing.WithMetrics(metrics))

	return &env{
		handler:  auth.Middleware()(mod.Handle()),
		module:   mod,
		store:    store,
		provider: provider,
		codec:    codec,
		verifier: verifier,
		metrics:  metrics,
	}
}

func (e *env) ref(t *testing.T, userID, planID string) string {
	t.Helper()
	raw, err := e.codec.Encode(correlation.Key{UserID: userID, PlanID: planID, Cycle: correlation.Monthly})
	require.NoError(t, err)
	return raw
}

func (e *env) webhook(body, dataID string, signed bool) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/mercadopago", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-request-id", "req-1")
	if signed {
		req.Header.Set("x-signature", e.verifier.Sign("req-1", dataID, time.Now()))
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func preapproval(id, status, ref string) *mercadopago.Preapproval {
	created := time.Now().Add(-time.Hour).UTC().Truncate(time.Second)
	return &mercadopago.Preapproval{
		ID:                id,
		Status:            status,
		ExternalReference: ref,
		DateCreated:       &created,
		AutoRecurring: mercadopago.AutoRecurring{
			Frequency: 1, FrequencyType: "months", TransactionAmount: decimal.NewFromInt(60000), CurrencyID: "COP",
		},
	}
}

const preapprovalBody = `{"id":12345,"type":"subscription_preapproval","action":"updated","data":{"id":"pre_1"}}`

func TestWebhookRejections(t *testing.T) {
	t.Parallel()

	t.Run("missing signature", func(t *testing.T) {
		t.Parallel()
		e := newEnv(t)

		rec := e.webhook(preapprovalBody, "pre_1", false)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Missing signature", rec.Body.String())
		assert.Zero(t, e.store.Writes())
		e.provider.AssertNotCalled(t, "GetPreapproval", mock.Anything, mock.Anything)
	})

	t.Run("invalid json", func(t *testing.T) {
		t.Parallel()
		e := newEnv(t)

		rec := e.webhook("{not json", "", true)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "Invalid JSON")
		assert.Zero(t, e.store.Writes())
	})

	t.Run("json that is not an object", func(t *testing.T) {
		t.Parallel()
		e := newEnv(t)

		rec := e.webhook(`[1,2]`, "", true)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("forged signature", func(t *testing.T) {
		t.Parallel()
		e := newEnv(t)

		req := httptest.NewRequest(http.MethodPost, "/api/webhooks/mercadopago", strings.NewReader(preapprovalBody))
		req.Header.Set("x-request-id", "req-1")
		req.Header.Set("x-signature", mercadopago.NewSignatureVerifier("other", 0).Sign("req-1", "pre_1", time.Now()))
		rec := httptest.NewRecorder()
		e.handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Invalid signature", rec.Body.String())
		assert.Zero(t, e.store.Writes())
		assert.Equal(t, float64(1), testutil.ToFloat64(e.metrics.WebhookDeliveries.WithLabelValues("subscription_preapproval", "rejected")))
	})
}

func TestWebhookUnknownTypeAcknowledged(t *testing.T) {
	t.Parallel()
	e := newEnv(t)

	rec := e.webhook(`{"type":"payment","data":{"id":"987"}}`, "987", true)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
	assert.Zero(t, e.store.Writes())
	assert.Equal(t, float64(1), testutil.ToFloat64(e.metrics.WebhookDeliveries.WithLabelValues("payment", "ignored")))
}

func TestWebhookReconciles(t *testing.T) {
	t.Parallel()
	e := newEnv(t)

	e.provider.On("GetPreapproval", mock.Anything, "pre_1").
		Return(preapproval("pre_1", "authorized", e.ref(t, "u1", "pro")), nil)

	rec := e.webhook(preapprovalBody, "pre_1", true)
	require.Equal(t, http.StatusOK, rec.Code)

	subs := e.store.Subscriptions("u1")
	require.Len(t, subs, 1)
	assert.Equal(t, subscription.StatusActive, subs[0].Status)
	writes := e.store.Writes()

	rec = e.webhook(preapprovalBody, "pre_1", true)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, subs, e.store.Subscriptions("u1"))
	assert.Equal(t, writes, e.store.Writes())

	assert.Equal(t, float64(1), testutil.ToFloat64(e.metrics.WebhookDeliveries.WithLabelValues("subscription_preapproval", "created")))
	assert.Equal(t, float64(1), testutil.ToFloat64(e.metrics.WebhookDeliveries.WithLabelValues("subscription_preapproval", "unchanged")))
}

func TestWebhookTopicAndQueryID(t *testing.T) {
	t.Parallel()
	e := newEnv(t)

	e.provider.On("GetPreapproval", mock.Anything, "pre_q").
		Return(preapproval("pre_q", "pending", e.ref(t, "u1", "pro")), nil)

	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/mercadopago?data.id=pre_q&type=preapproval", strings.NewReader(`{"topic":"preapproval"}`))
	req.Header.Set("x-request-id", "req-9")
	req.Header.Set("x-signature", e.verifier.Sign("req-9", "pre_q", time.Now()))
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	e.provider.AssertCalled(t, "GetPreapproval", mock.Anything, "pre_q")
}

func TestWebhookErrorStatuses(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		setup  func(t *testing.T, e *env)
		status int
	}{
		{
			name: "unknown user",
			setup: func(t *testing.T, e *env) {
				e.provider.On("GetPreapproval", mock.Anything, "pre_1").Return(preapproval("pre_1", "authorized", e.ref(t, "ghost", "pro")), nil)
			},
			status: http.StatusNotFound,
		},
		{
			name: "unknown plan",
			setup: func(t *testing.T, e *env) {
				e.provider.On("GetPreapproval", mock.Anything, "pre_1").Return(preapproval("pre_1", "authorized", e.ref(t, "u1", "ghost")), nil)
			},
			status: http.StatusNotFound,
		},
		{
			name: "malformed reference",
			setup: func(_ *testing.T, e *env) {
				e.provider.On("GetPreapproval", mock.Anything, "pre_1").Return(preapproval("pre_1", "authorized", "u1"), nil)
			},
			status: http.StatusBadRequest,
		},
		{
			name: "provider failure",
			setup: func(_ *testing.T, e *env) {
				e.provider.On("GetPreapproval", mock.Anything, "pre_1").Return(nil, mercadopago.ErrUnavailable)
			},
			status: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			e := newEnv(t)
			tt.setup(t, e)

			rec := e.webhook(preapprovalBody, "pre_1", true)
			assert.Equal(t, tt.status, rec.Code)
			assert.Zero(t, e.store.Writes())
			assert.NotContains(t, rec.Body.String(), "mercadopago:")
		})
	}
}

func TestWebhookBodyLimit(t *testing.T) {
	t.Parallel()
	e := newEnv(t)

	body := `{"type":"payment","pad":"` + strings.Repeat("x", 70<<10) + `"}`
	rec := e.webhook(body, "", true)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func get(e *env, target, userID string, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	if userID != "" {
		req.Header.Set(auth.HeaderUserID, userID)
		req.Header.Set(auth.HeaderUserEmail, userID+"@test.com")
	}
	for k, v := range header {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func postForm(e *env, target, userID string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if userID != "" {
		req.Header.Set(auth.HeaderUserID, userID)
		req.Header.Set(auth.HeaderUserEmail, userID+"@test.com")
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func TestCheckout(t *testing.T) {
	t.Parallel()

	t.Run("redirects to provider", func(t *testing.T) {
		t.Parallel()
		e := newEnv(t)
		e.provider.On("CreatePreapproval", mock.Anything, mock.MatchedBy(func(r mercadopago.CreatePreapprovalRequest) bool {
			return r.Frequency == 12 && r.PayerEmail == "u1@test.com"
		})).Return(&mercadopago.Preapproval{ID: "pre_new", InitPoint: "https://mp.test/checkout/pre_new"}, nil)

		rec := postForm(e, "/billing/checkout", "u1", url.Values{"plan": {"pro"}, "cycle": {"yearly"}})
		assert.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Equal(t, "https://mp.test/checkout/pre_new", rec.Header().Get("Location"))
		assert.Equal(t, float64(1), testutil.ToFloat64(e.metrics.Checkouts.WithLabelValues("pro", "yearly", "redirected")))
	})

	t.Run("anonymous", func(t *testing.T) {
		t.Parallel()
		e := newEnv(t)

		rec := postForm(e, "/billing/checkout", "", url.Values{"plan": {"pro"}})
		assert.Equal(t, http.StatusSeeOther, rec.Code)
		assert.True(t, strings.HasPrefix(rec.Header().Get("Location"), "https://app.test/pricing?error="))
	})

	t.Run("free plan", func(t *testing.T) {
		t.Parallel()
		e := newEnv(t)

		rec := postForm(e, "/billing/checkout", "u1", url.Values{"plan": {"basico"}})
		require.Equal(t, http.StatusSeeOther, rec.Code)
		loc, err := url.Parse(rec.Header().Get("Location"))
		require.NoError(t, err)
		assert.Equal(t, "/pricing", loc.Path)
		assert.NotEmpty(t, loc.Query().Get("error"))
	})

	t.Run("provider error hides details", func(t *testing.T) {
		t.Parallel()
		e := newEnv(t)
		e.provider.On("CreatePreapproval", mock.Anything, mock.Anything).Return(nil, &mercadopago.APIError{StatusCode: 500, Message: "boom"})

		rec := postForm(e, "/billing/checkout", "u1", url.Values{"plan": {"pro"}})
		loc, err := url.Parse(rec.Header().Get("Location"))
		require.NoError(t, err)
		assert.Equal(t, "No pudimos iniciar el pago, intenta de nuevo", loc.Query().Get("error"))
	})

	t.Run("already subscribed", func(t *testing.T) {
		t.Parallel()
		e := newEnv(t)
		_, _, err := e.store.CreateOrUpdate(context.Background(), &subscription.Subscription{ProviderID: "cur", UserID: "u1", PlanID: "pro", Status: subscription.StatusActive})
		require.NoError(t, err)

		rec := postForm(e, "/billing/checkout", "u1", url.Values{"plan": {"pro"}})
		assert.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Equal(t, "https://www.mercadopago.com.co/subscriptions", rec.Header().Get("Location"))
	})

	t.Run("get is not allowed", func(t *testing.T) {
		t.Parallel()
		e := newEnv(t)

		rec := get(e, "/billing/checkout?plan=pro", "u1", nil)
		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
		e.provider.AssertNotCalled(t, "CreatePreapproval", mock.Anything, mock.Anything)
	})
}

func TestPortal(t *testing.T) {
	t.Parallel()

	t.Run("redirects to the active subscription", func(t *testing.T) {
		t.Parallel()
		e := newEnv(t)
		_, _, err := e.store.CreateOrUpdate(context.Background(), &subscription.Subscription{ProviderID: "pre_cur", UserID: "u1", PlanID: "pro", Status: subscription.StatusActive})
		require.NoError(t, err)

		rec := get(e, "/billing/portal", "u1", nil)
		assert.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Equal(t, "https://www.mercadopago.com.co/subscriptions/details/pre_cur", rec.Header().Get("Location"))
	})

	t.Run("no active subscription", func(t *testing.T) {
		t.Parallel()
		e := newEnv(t)
		_, _, err := e.store.CreateOrUpdate(context.Background(), &subscription.Subscription{ProviderID: "pre_old", UserID: "u1", PlanID: "pro", Status: subscription.StatusCancelled})
		require.NoError(t, err)

		rec := get(e, "/billing/portal", "u1", nil)
		require.Equal(t, http.StatusSeeOther, rec.Code)
		loc, err := url.Parse(rec.Header().Get("Location"))
		require.NoError(t, err)
		assert.Equal(t, "/pricing", loc.Path)
		assert.Equal(t, "No tienes una suscripcion activa", loc.Query().Get("error"))
	})

	t.Run("anonymous", func(t *testing.T) {
		t.Parallel()
		e := newEnv(t)

		rec := get(e, "/billing/portal", "", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestAccessEndpoint(t *testing.T) {
	t.Parallel()
	e := newEnv(t)

	rec := get(e, "/billing/access", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = get(e, "/billing/access", "u1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"has_access":false,"subscription":null}`, rec.Body.String())

	_, _, err := e.store.CreateOrUpdate(context.Background(), &subscription.Subscription{ProviderID: "cur", UserID: "u1", PlanID: "pro", Status: subscription.StatusActive})
	require.NoError(t, err)

	rec = get(e, "/billing/access", "u1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"has_access":true`)
	assert.Contains(t, rec.Body.String(), `"provider_id":"cur"`)
}

func TestPlansEndpoint(t *testing.T) {
	t.Parallel()
	e := newEnv(t)

	rec := get(e, "/billing/plans", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"id":"basico"`)
	assert.Contains(t, rec.Body.String(), `"id":"pro"`)
}

func TestRequireActiveSubscription(t *testing.T) {
	t.Parallel()
	e := newEnv(t)

	page := auth.Middleware()(e.module.RequireActiveSubscription(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})))
	serve := func(userID string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
		if userID != "" {
			req.Header.Set(auth.HeaderUserID, userID)
		}
		rec := httptest.NewRecorder()
		page.ServeHTTP(rec, req)
		return rec
	}

	rec := serve("u1")
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "https://app.test/pricing?message=subscription_required", rec.Header().Get("Location"))

	rec = serve("")
	assert.Equal(t, http.StatusSeeOther, rec.Code)

	_, _, err := e.store.CreateOrUpdate(context.Background(), &subscription.Subscription{ProviderID: "cur", UserID: "u1", PlanID: "pro", Status: subscription.StatusActive})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, serve("u1").Code)
}

func TestAdmin(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	bearer := http.Header{"Authorization": {"Bearer " + adminToken}}

	assert.Equal(t, http.StatusUnauthorized, get(e, "/billing/admin/stats", "", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, get(e, "/billing/admin/stats", "", http.Header{"Authorization": {"Bearer nope"}}).Code)

	end := time.Now().Add(48 * time.Hour)
	_, _, err := e.store.CreateOrUpdate(context.Background(), &subscription.Subscription{ProviderID: "cur", UserID: "u1", PlanID: "pro", Status: subscription.StatusActive, EndDate: &end})
	require.NoError(t, err)

	rec := get(e, "/billing/admin/stats", "", bearer)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"total":1,"active":1,"pending":0,"cancelled":0}`, rec.Body.String())

	rec = get(e, "/billing/admin/expiring?days=3", "", bearer)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"count":1`)

	rec = get(e, "/billing/admin/expiring?days=1", "", bearer)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"subscriptions":[]`)

	assert.Equal(t, http.StatusBadRequest, get(e, "/billing/admin/expiring?days=abc", "", bearer).Code)
}
