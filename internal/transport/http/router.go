package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/shop-auth-api/internal/application/account"
	"github.com/shop-auth-api/internal/application/credential"
	"github.com/shop-auth-api/internal/application/notification"
	"github.com/shop-auth-api/internal/application/otp"
	"github.com/shop-auth-api/internal/application/password"
	"github.com/shop-auth-api/internal/application/session"
	"github.com/shop-auth-api/internal/application/verification"
	"github.com/shop-auth-api/internal/config"
	"github.com/shop-auth-api/internal/transport/http/handler"
	appmiddleware "github.com/shop-auth-api/internal/transport/http/middleware"
)

// NewRouter builds the services on top of deps and returns the application router.
func NewRouter(cfg *config.Config, deps *Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	limit := func(next http.Handler) http.Handler { return next }
	if deps.RateLimiter != nil {
		limit = deps.RateLimiter.Limit
	}

	hasher := credential.NewVerifier(0)
	codes := otp.NewGenerator(deps.VerificationRepo, otp.Config{
		Digits:          cfg.OTPDigits,
		VerificationTTL: cfg.VerificationCodeTTL,
		ResetTTL:        cfg.ResetTokenTTL,
		MaxAttempts:     cfg.OTPMaxAttempts,
		Now:             deps.Now,
	})
	notifier := notification.NewService(deps.Mailer, cfg.AppBaseURL, deps.Now)

	sessionSvc := session.NewService(session.ServiceDeps{
		UserRepo: deps.UserRepo,
		Tokens:   deps.Tokens,
		Revoker:  deps.Revoker,
		TTL:      cfg.JWTExpiry,
		Now:      deps.Now,
	})
	verificationSvc := verification.NewService(verification.ServiceDeps{
		UserRepo: deps.UserRepo,
		Codes:    codes,
		Notifier: notifier,
		Sessions: sessionSvc,
	})
	passwordSvc := password.NewService(password.ServiceDeps{
		UserRepo: deps.UserRepo,
		Codes:    codes,
		Notifier: notifier,
		Hasher:   hasher,
		Now:      deps.Now,
	})
	accountSvc := account.NewService(account.ServiceDeps{
		UserRepo:       deps.UserRepo,
		CartRepo:       deps.CartRepo,
		Artifacts:      codes,
		States:         verificationSvc,
		Sessions:       sessionSvc,
		Hasher:         hasher,
		Avatars:        deps.Avatars,
		AvatarMaxBytes: cfg.AvatarMaxBytes,
		Now:            deps.Now,
	})

	cookie := handler.CookieConfig{
		Name:   cfg.SessionCookieName,
		TTL:    cfg.SessionCookieTTL,
		Secure: cfg.SessionCookieSecure,
	}
	healthH := handler.NewHealthHandler()
	sessionH := handler.NewSessionHandler(accountSvc, sessionSvc, cookie)
	accountH := handler.NewAccountHandler(accountSvc, verificationSvc, sessionSvc, cookie, cfg.AvatarMaxBytes)
	verifyH := handler.NewVerificationHandler(verificationSvc, cookie)
	pwH := handler.NewPasswordHandler(passwordSvc, sessionSvc, cookie)

	gate := appmiddleware.Gate(sessionSvc, cfg.SessionCookieName)

	r.Route("/v1", func(r chi.Router) {
		r.Get("/health-check/{action}", healthH.Ping)

		r.Route("/auth", func(r chi.Router) {
			// Public routes
			r.Get("/logout", sessionH.Logout)

			r.Group(func(r chi.Router) {
				r.Use(limit)
				r.Post("/check_acc_verify/{userID}/{token}", verifyH.Check)
				r.Post("/check_reset_pass/{id}/{token}", pwH.CheckReset)
				r.Post("/register", accountH.Register)
				r.Post("/login", sessionH.Login)
				r.Post("/admin_login", sessionH.AdminLogin)
				r.Post("/forgot-password", pwH.Forgot)
				r.Post("/reset-password/{id}/{token}", pwH.Reset)
			})

			// Authenticated routes
			r.Group(func(r chi.Router) {
				r.Use(gate)
				r.Get("/current_user", sessionH.CurrentUser)
				r.Post("/verify/{userID}/{token}", verifyH.Verify)
				r.Get("/re-verify/{userID}", verifyH.ReVerify)
				r.Patch("/change-password", pwH.Change)
				r.Post("/delete", accountH.Delete)

				r.Group(func(r chi.Router) {
					r.Use(appmiddleware.Require(session.RequireVerified))
					r.Patch("/update", accountH.Update)
					r.Patch("/update_avatar", accountH.UpdateAvatar)
				})
			})
		})
	})

	return r
}
