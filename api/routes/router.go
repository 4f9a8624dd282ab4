package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/andresvelasquez/ganaderia-backend/api/controllers"
	webhookcontrollers "github.com/andresvelasquez/ganaderia-backend/api/controllers/webhooks"
	"github.com/andresvelasquez/ganaderia-backend/api/middleware"
	"github.com/andresvelasquez/ganaderia-backend/internal/auth"
	"github.com/andresvelasquez/ganaderia-backend/internal/breeds"
	"github.com/andresvelasquez/ganaderia-backend/internal/bulls"
	"github.com/andresvelasquez/ganaderia-backend/internal/invoices"
	"github.com/andresvelasquez/ganaderia-backend/internal/notifications"
	"github.com/andresvelasquez/ganaderia-backend/internal/payments"
	epaycohook "github.com/andresvelasquez/ganaderia-backend/internal/webhooks/epayco"
	"github.com/andresvelasquez/ganaderia-backend/pkg/auth/session"
	"github.com/andresvelasquez/ganaderia-backend/pkg/config"
	"github.com/andresvelasquez/ganaderia-backend/pkg/db"
	"github.com/andresvelasquez/ganaderia-backend/pkg/enums"
	"github.com/andresvelasquez/ganaderia-backend/pkg/logger"
	"github.com/andresvelasquez/ganaderia-backend/pkg/redis"
)

type sessionManager interface {
	session.AccessSessionChecker
	controllers.SessionManager
}

// RouterParams bundles everything the HTTP surface depends on.
type RouterParams struct {
	Config         *config.Config
	Logger         *logger.Logger
	DB             db.Pinger
	Redis          *redis.Client
	SessionManager sessionManager

	AuthService          auth.Service
	RegisterService      auth.RegisterService
	PaymentsService      payments.Service
	InvoicesService      invoices.Service
	BreedsService        breeds.Service
	BullsService         bulls.Service
	NotificationsService notifications.Service
	EpaycoWebhook        *epaycohook.Service
}

func NewRouter(p RouterParams) http.Handler {
	cfg := p.Config
	logg := p.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterEmailLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, p.DB, p.Redis))
	})

	r.Route("/api/public", func(r chi.Router) {
		r.Get("/ping", controllers.PublicPing())
		// Bank redirect return. The browser arrives unauthenticated and
		// the reference alone identifies the payment.
		r.Get("/payments/response", controllers.PaymentRedirectReturn(p.PaymentsService, logg))
	})

	// Provider confirmation callbacks authenticate by signature, not JWT.
	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/epayco", webhookcontrollers.EpaycoConfirmation(p.EpaycoWebhook, logg))
	})

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(loginPolicy, p.Redis, logg)).Post("/login", controllers.Login(p.AuthService, logg))
		r.With(middleware.AuthRateLimit(registerPolicy, p.Redis, logg)).Post("/register", controllers.Register(p.RegisterService, logg))
		r.Post("/refresh", controllers.AuthRefresh(p.SessionManager, cfg.JWT, logg))
		r.Post("/logout", controllers.AuthLogout(p.SessionManager, cfg.JWT, logg))
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, p.SessionManager, logg))
		r.Use(middleware.Idempotency(p.Redis, logg))

		r.Get("/ping", controllers.PrivatePing())

		r.Route("/v1/payments", func(r chi.Router) {
			r.Get("/banks", controllers.ListPSEBanks(p.PaymentsService, logg))
			r.Post("/pse", controllers.InitiatePSEPayment(p.PaymentsService, logg))
			r.Get("/", controllers.ListPayments(p.PaymentsService, logg))
			r.Get("/{paymentId}", controllers.GetPayment(p.PaymentsService, logg))
			r.Post("/{paymentId}/cancel", controllers.CancelPayment(p.PaymentsService, logg))
		})

		r.Route("/v1/invoices", func(r chi.Router) {
			r.Get("/", controllers.ListInvoices(p.InvoicesService, logg))
			r.Get("/{invoiceId}", controllers.GetInvoice(p.InvoicesService, logg))
			r.With(middleware.RequireRole(string(enums.UserRoleAdmin), logg)).
				Post("/", controllers.CreateInvoice(p.InvoicesService, logg))
		})

		r.Route("/v1/breeds", func(r chi.Router) {
			r.Get("/", controllers.ListBreeds(p.BreedsService, logg))
			r.With(middleware.RequireRole(string(enums.UserRoleAdmin), logg)).
				Post("/", controllers.CreateBreed(p.BreedsService, logg))
		})

		r.Route("/v1/bulls", func(r chi.Router) {
			r.Get("/", controllers.ListBulls(p.BullsService, logg))
			r.Get("/{bullId}", controllers.GetBull(p.BullsService, logg))
			r.With(middleware.RequireRole(string(enums.UserRoleAdmin), logg)).
				Post("/", controllers.CreateBull(p.BullsService, logg))
			r.With(middleware.RequireRole(string(enums.UserRoleAdmin), logg)).
				Patch("/{bullId}", controllers.UpdateBull(p.BullsService, logg))
		})

		r.Route("/v1/notifications", func(r chi.Router) {
			r.Get("/", controllers.ListNotifications(p.NotificationsService, logg))
			r.Post("/{notificationId}/read", controllers.MarkNotificationRead(p.NotificationsService, logg))
			r.Post("/read-all", controllers.MarkAllNotificationsRead(p.NotificationsService, logg))
		})
	})

	r.Route("/api/admin", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, p.SessionManager, logg))
		r.Use(middleware.RequireRole(string(enums.UserRoleAdmin), logg))
		r.Get("/ping", controllers.AdminPing())
	})

	return r
}
