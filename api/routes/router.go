package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dentaldesk/dentaldesk-backend/api/controllers"
	admincontrollers "github.com/dentaldesk/dentaldesk-backend/api/controllers/admin"
	billingcontrollers "github.com/dentaldesk/dentaldesk-backend/api/controllers/billing"
	paymentcontrollers "github.com/dentaldesk/dentaldesk-backend/api/controllers/payments"
	subscriptioncontrollers "github.com/dentaldesk/dentaldesk-backend/api/controllers/subscriptions"
	tenantcontrollers "github.com/dentaldesk/dentaldesk-backend/api/controllers/tenants"
	"github.com/dentaldesk/dentaldesk-backend/api/middleware"
	"github.com/dentaldesk/dentaldesk-backend/api/validators"
	"github.com/dentaldesk/dentaldesk-backend/internal/payments"
	"github.com/dentaldesk/dentaldesk-backend/internal/profiles"
	"github.com/dentaldesk/dentaldesk-backend/internal/subscriptions"
	"github.com/dentaldesk/dentaldesk-backend/internal/tenants"
	"github.com/dentaldesk/dentaldesk-backend/pkg/config"
	"github.com/dentaldesk/dentaldesk-backend/pkg/logger"
	"github.com/dentaldesk/dentaldesk-backend/pkg/metrics"
	pkgredis "github.com/dentaldesk/dentaldesk-backend/pkg/redis"
)

const (
	paymentReplayTTL   = 7 * 24 * time.Hour
	bootstrapReplayTTL = 24 * time.Hour

	jsonBodyLimit = validators.MaxJSONBodyBytes
)

type redisStore interface {
	pkgredis.IdempotencyStore
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

// Dependencies carries everything the HTTP surface needs.
type Dependencies struct {
	Config        *config.Config
	Logger        *logger.Logger
	Readiness     map[string]controllers.Pinger
	Redis         redisStore
	HTTPMetrics   *metrics.HTTPMetrics
	Metrics       http.Handler
	Payments      payments.Service
	Tenants       tenants.Service
	Profiles      profiles.Service
	Subscriptions subscriptions.Resolver
	MaxProofBytes int64
}

func NewRouter(deps Dependencies) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg, deps.HTTPMetrics),
		middleware.CORS(cfg.CORS.AllowedOrigins),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.Readiness))
	})
	if deps.Metrics != nil {
		r.Handle("/metrics", deps.Metrics)
	}

	submissionPolicy := middleware.RateLimitPolicy{
		Name:   "payment_submission",
		Window: cfg.RateLimit.SubmissionWindow,
		Limit:  cfg.RateLimit.SubmissionLimit,
	}

	// idempotent is a no-op unless the flag is on and Redis is wired.
	idempotent := func(scope string, ttl time.Duration, maxBody int64) func(http.Handler) http.Handler {
		if !cfg.FeatureFlags.Idempotency || deps.Redis == nil {
			return func(next http.Handler) http.Handler { return next }
		}
		return middleware.Idempotency(deps.Redis, middleware.IdempotencyPolicy{Scope: scope, TTL: ttl, MaxBodyBytes: maxBody}, logg)
	}

	r.Group(func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))

		r.Route("/api/v1", func(r chi.Router) {
			r.Route("/payments", func(r chi.Router) {
				r.With(
					middleware.UserRateLimit(submissionPolicy, deps.Redis, logg),
					idempotent("payments.submit", paymentReplayTTL, validators.MultipartLimit(deps.MaxProofBytes)),
				).Post("/", paymentcontrollers.PaymentSubmit(deps.Payments, deps.MaxProofBytes, logg))
				r.Get("/", paymentcontrollers.PaymentListMine(deps.Payments, logg))
			})
			r.Get("/entitlement", tenantcontrollers.Entitlement(deps.Tenants, logg))
			r.With(idempotent("clinics.bootstrap", bootstrapReplayTTL, jsonBodyLimit)).
				Post("/clinics/bootstrap", tenantcontrollers.BootstrapClinic(deps.Tenants, logg))
			r.With(idempotent("suppliers.bootstrap", bootstrapReplayTTL, jsonBodyLimit)).
				Post("/suppliers/bootstrap", tenantcontrollers.BootstrapSupplier(deps.Tenants, logg))
			r.Get("/subscriptions/current", subscriptioncontrollers.SubscriptionCurrent(deps.Profiles, deps.Subscriptions, logg))
			r.Get("/plans", billingcontrollers.PlansList(deps.Profiles, deps.Subscriptions, logg))
		})

		r.Route("/api/admin/v1/payments", func(r chi.Router) {
			r.Get("/", admincontrollers.AdminPaymentsList(deps.Payments, logg))
			r.With(idempotent("payments.approve", paymentReplayTTL, jsonBodyLimit)).
				Post("/{paymentId}/approve", admincontrollers.AdminPaymentApprove(deps.Payments, logg))
			r.With(idempotent("payments.reject", paymentReplayTTL, jsonBodyLimit)).
				Post("/{paymentId}/reject", admincontrollers.AdminPaymentReject(deps.Payments, logg))
		})
	})

	return r
}
