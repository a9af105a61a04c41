package app

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/joho/godotenv"

	"vendorhub/internal/auth"
	"vendorhub/internal/category"
	"vendorhub/internal/contract"
	"vendorhub/internal/db"
	"vendorhub/internal/document"
	"vendorhub/internal/media"
	"vendorhub/internal/notification"
	"vendorhub/internal/observability"
	"vendorhub/internal/order"
	"vendorhub/internal/product"
	"vendorhub/internal/rating"
	"vendorhub/internal/supplier"
	"vendorhub/internal/user"
	"vendorhub/internal/vendor"
)

type Options struct {
	LoadDotEnv    bool
	RunMigrations bool
}

type Runtime struct {
	Handler http.Handler
	Close   func() error
}

func Build(options Options) (*Runtime, error) {
	if options.LoadDotEnv {
		_ = godotenv.Load()
	}

	logger := observability.NewLogger()
	metrics := observability.NewMetrics()

	databaseURL, err := mustEnv("DATABASE_URL")
	if err != nil {
		return nil, err
	}
	jwtSecret, err := mustEnv("JWT_SECRET")
	if err != nil {
		return nil, err
	}
	cloudinaryURL, err := mustEnv("CLOUDINARY_URL")
	if err != nil {
		return nil, err
	}

	if err := observability.InitSentry(os.Getenv("SENTRY_DSN"), envOrDefault("APP_ENV", "development"), os.Getenv("SENTRY_RELEASE")); err != nil {
		logger.Error("init_sentry_failed", map[string]any{"error": err.Error()})
	}

	database, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	database.SetMaxOpenConns(envIntOrDefault("DB_MAX_OPEN_CONNS", 10))
	database.SetMaxIdleConns(envIntOrDefault("DB_MAX_IDLE_CONNS", 5))
	database.SetConnMaxLifetime(envMinutesOrDefault("DB_CONN_MAX_LIFETIME_MINUTES", 30))
	database.SetConnMaxIdleTime(envMinutesOrDefault("DB_CONN_MAX_IDLE_TIME_MINUTES", 10))

	if err := database.Ping(); err != nil {
		_ = database.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if options.RunMigrations {
		if err := db.RunMigrations(database); err != nil {
			_ = database.Close()
			return nil, fmt.Errorf("run migrations: %w", err)
		}
	}

	issuer := auth.NewTokenIssuer(
		jwtSecret,
		envOrDefault("JWT_ISSUER", "vendorhub"),
		envOrDefault("JWT_AUDIENCE", "vendorhub"),
		envMinutesOrDefault("ACCESS_TOKEN_TTL_MINUTES", 1440),
	)
	authRepo := auth.NewRepository(database)
	authService := auth.NewService(authRepo, issuer)
	authService.WithSecurityConfig(
		envIntOrDefault("LOGIN_MAX_ATTEMPTS", 5),
		envMinutesOrDefault("LOGIN_LOCK_MINUTES", 15),
		envHoursOrDefault("REFRESH_TOKEN_TTL_HOURS", 168),
	)
	authHandler := auth.NewHandler(authService)

	if err := authService.EnsureAdmin(context.Background(), os.Getenv("ADMIN_EMAIL"), os.Getenv("ADMIN_PASSWORD")); err != nil {
		_ = database.Close()
		return nil, fmt.Errorf("bootstrap admin: %w", err)
	}

	cloudinaryClient, err := media.NewCloudinary(cloudinaryURL)
	if err != nil {
		_ = database.Close()
		return nil, fmt.Errorf("init cloudinary: %w", err)
	}

	notificationRepo := notification.NewRepository(database)
	notificationHub := notification.NewHub()
	notifier := notification.NewService(notificationRepo, notificationHub, logger)
	notificationHandler := notification.NewHandler(notificationRepo, notificationHub)

	supplierRepo := supplier.NewRepository(database)
	supplierHandler := supplier.NewHandler(supplierRepo, cloudinaryClient, notifier)

	categoryRepo := category.NewRepository(database)
	categoryHandler := category.NewHandler(categoryRepo)

	productRepo := product.NewRepository(database)
	productHandler := product.NewHandler(productRepo, cloudinaryClient)

	contractRepo := contract.NewRepository(database)
	contractHandler := contract.NewHandler(contractRepo)

	documentRepo := document.NewRepository(database)
	documentHandler := document.NewHandler(documentRepo, cloudinaryClient, notifier)

	ratingRepo := rating.NewRepository(database)
	ratingHandler := rating.NewHandler(ratingRepo)

	orderRepo := order.NewRepository(database)
	orderHandler := order.NewHandler(orderRepo)

	vendorRepo := vendor.NewRepository(database)
	vendorHandler := vendor.NewHandler(vendorRepo, supplierRepo, orderRepo)

	userRepo := user.NewRepository(database)
	userHandler := user.NewHandler(userRepo, supplierRepo)

	loginLimiter := auth.NewLoginRateLimiter(
		envIntOrDefault("LOGIN_RATE_LIMIT_MAX", 10),
		envSecondsOrDefault("LOGIN_RATE_LIMIT_WINDOW_SECONDS", 60),
	)

	sweepCancel := startContractExpirySweep(
		logger,
		notifier,
		contractRepo,
		envHoursOrDefault("CONTRACT_EXPIRY_SWEEP_INTERVAL_HOURS", 24),
		envIntOrDefault("CONTRACT_EXPIRY_WINDOW_DAYS", 30),
	)

	authed := func(h http.HandlerFunc) http.Handler {
		return auth.Middleware(issuer, h)
	}
	roles := func(h http.HandlerFunc, allowed ...auth.Role) http.Handler {
		return auth.Middleware(issuer, auth.RequireRoles(allowed...)(h))
	}

	admin := []auth.Role{auth.RoleAdmin}
	managers := []auth.Role{auth.RoleAdmin, auth.RoleManager}
	uploaders := []auth.Role{auth.RoleAdmin, auth.RoleManager, auth.RoleVendor}

	mux := http.NewServeMux()

	mux.Handle("POST /api/auth/login", loginLimiter.Middleware(http.HandlerFunc(authHandler.Login)))
	mux.HandleFunc("POST /api/auth/register", authHandler.Register)
	mux.HandleFunc("POST /api/auth/refresh-token", authHandler.Refresh)
	mux.Handle("POST /api/auth/logout", authed(authHandler.Logout))
	mux.Handle("GET /api/auth/user-info", authed(authHandler.UserInfo))

	mux.Handle("GET /api/suppliers", authed(supplierHandler.List))
	mux.Handle("GET /api/suppliers/export", authed(supplierHandler.Export))
	mux.Handle("GET /api/suppliers/price-comparison", authed(supplierHandler.PriceComparison))
	mux.Handle("GET /api/suppliers/{id}", authed(supplierHandler.Get))
	mux.Handle("POST /api/suppliers", roles(supplierHandler.Create, managers...))
	mux.Handle("POST /api/suppliers/import", roles(supplierHandler.Import, managers...))
	mux.Handle("PUT /api/suppliers/{id}", roles(supplierHandler.Update, managers...))
	mux.Handle("DELETE /api/suppliers/{id}", roles(supplierHandler.Delete, admin...))
	mux.Handle("POST /api/suppliers/{id}/blacklist", roles(supplierHandler.Blacklist, managers...))
	mux.Handle("POST /api/suppliers/{id}/unblacklist", roles(supplierHandler.Unblacklist, managers...))
	mux.Handle("POST /api/suppliers/{id}/products", roles(supplierHandler.LinkProducts, managers...))
	mux.Handle("GET /api/suppliers/{id}/prices", authed(supplierHandler.PriceHistory))
	mux.Handle("POST /api/suppliers/{id}/prices", roles(supplierHandler.AddPrice, managers...))
	mux.Handle("POST /api/suppliers/{id}/logo", roles(supplierHandler.UploadLogo, managers...))

	mux.Handle("GET /api/suppliers/{supplierId}/documents", authed(documentHandler.ListBySupplier))
	mux.Handle("POST /api/suppliers/{supplierId}/documents", roles(documentHandler.Upload, uploaders...))
	mux.Handle("DELETE /api/documents/{id}", roles(documentHandler.Delete, managers...))

	mux.Handle("GET /api/suppliers/{supplierId}/ratings", authed(ratingHandler.ListBySupplier))
	mux.Handle("POST /api/suppliers/{supplierId}/ratings", roles(ratingHandler.Rate, managers...))
	mux.Handle("GET /api/ratings/criteria", authed(ratingHandler.Criteria))

	mux.Handle("GET /api/categories", authed(categoryHandler.List))
	mux.Handle("POST /api/categories", roles(categoryHandler.Create, managers...))
	mux.Handle("PUT /api/categories/{id}", roles(categoryHandler.Update, managers...))
	mux.Handle("DELETE /api/categories/{id}", roles(categoryHandler.Delete, admin...))

	mux.Handle("GET /api/products", authed(productHandler.List))
	mux.Handle("GET /api/products/{id}", authed(productHandler.Get))
	mux.Handle("POST /api/products", roles(productHandler.Create, managers...))
	mux.Handle("POST /api/products/import", roles(productHandler.Import, managers...))
	mux.Handle("PUT /api/products/{id}", roles(productHandler.Update, managers...))
	mux.Handle("DELETE /api/products/{id}", roles(productHandler.Delete, admin...))
	mux.Handle("POST /api/products/{id}/image", roles(productHandler.UploadImage, managers...))

	mux.Handle("GET /api/contracts", authed(contractHandler.List))
	mux.Handle("GET /api/contracts/expiring", authed(contractHandler.Expiring))
	mux.Handle("GET /api/contracts/{id}", authed(contractHandler.Get))
	mux.Handle("POST /api/contracts", roles(contractHandler.Create, managers...))
	mux.Handle("PUT /api/contracts/{id}", roles(contractHandler.Update, managers...))
	mux.Handle("DELETE /api/contracts/{id}", roles(contractHandler.Delete, admin...))

	mux.Handle("GET /api/orders", authed(orderHandler.List))
	mux.Handle("GET /api/orders/{id}", authed(orderHandler.Get))
	mux.Handle("POST /api/orders", roles(orderHandler.Create, auth.RoleAdmin, auth.RoleManager, auth.RoleStaff))
	mux.Handle("PUT /api/orders/{id}/status", roles(orderHandler.UpdateStatus, managers...))

	mux.Handle("GET /api/vendor/dashboard", roles(vendorHandler.Dashboard, auth.RoleVendor))
	mux.Handle("GET /api/vendor/purchase-orders", roles(vendorHandler.PurchaseOrders, auth.RoleVendor))
	mux.Handle("GET /api/vendor/supplier-info", roles(vendorHandler.SupplierInfo, auth.RoleVendor))

	mux.Handle("GET /api/users", roles(userHandler.List, admin...))
	mux.Handle("GET /api/users/suppliers-lookup", roles(userHandler.SuppliersLookup, admin...))
	mux.Handle("GET /api/users/{id}", roles(userHandler.Get, admin...))
	mux.Handle("POST /api/users", roles(userHandler.Create, admin...))
	mux.Handle("PUT /api/users/{id}", roles(userHandler.Update, admin...))
	mux.Handle("DELETE /api/users/{id}", roles(userHandler.Delete, admin...))

	mux.Handle("GET /api/notifications", authed(notificationHandler.List))
	mux.Handle("GET /api/notifications/unread-count", authed(notificationHandler.UnreadCount))
	mux.Handle("PUT /api/notifications/{id}/read", authed(notificationHandler.MarkRead))
	mux.Handle("PUT /api/notifications/read-all", authed(notificationHandler.MarkAllRead))
	mux.Handle("GET /api/notifications/stream", auth.StreamMiddleware(issuer, http.HandlerFunc(notificationHandler.Stream)))

	mux.HandleFunc("GET /health", healthHandler(database))
	mux.Handle("GET /metrics", metrics.Handler())

	handler := observability.RecoverMiddleware(logger,
		observability.RequestLoggingMiddleware(logger, metrics, mux))

	return &Runtime{
		Handler: handler,
		Close: func() error {
			sweepCancel()
			observability.FlushSentry()
			return database.Close()
		},
	}, nil
}

// startContractExpirySweep periodically flags contracts that expire inside
// the notification window. Returns a stop function.
func startContractExpirySweep(
	logger *observability.Logger,
	notifier *notification.Service,
	contracts *contract.Repository,
	interval time.Duration,
	windowDays int,
) func() {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				expiring, err := contracts.Expiring(ctx, windowDays)
				if err != nil {
					sentry.CaptureException(err)
					logger.Error("contract expiry sweep failed", map[string]any{"error": err.Error()})
					continue
				}
				for _, c := range expiring {
					notifier.SupplierEvent(ctx, c.SupplierID, notification.TypeContractExpiring,
						fmt.Sprintf("Contract %s expires on %s", c.ContractNumber, c.ExpiryDate.Format("2006-01-02")))
				}
				if len(expiring) > 0 {
					logger.Info("contract expiry sweep", map[string]any{"expiring": len(expiring)})
				}
			}
		}
	}()
	return cancel
}

func healthHandler(database *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		body := map[string]any{"status": "ok", "time": time.Now().UTC().Format(time.RFC3339)}
		if err := database.PingContext(ctx); err != nil {
			status = http.StatusServiceUnavailable
			body = map[string]any{"status": "degraded", "time": time.Now().UTC().Format(time.RFC3339)}
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	}
}

func mustEnv(name string) (string, error) {
	value := strings.TrimSpace(os.Getenv(name))
	if value == "" {
		return "", fmt.Errorf("missing required env: %s", name)
	}
	return value, nil
}

func envOrDefault(name, fallback string) string {
	value := strings.TrimSpace(os.Getenv(name))
	if value == "" {
		return fallback
	}
	return value
}

func envIntOrDefault(name string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(name))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

func envMinutesOrDefault(name string, fallback int) time.Duration {
	return time.Duration(envIntOrDefault(name, fallback)) * time.Minute
}

func envHoursOrDefault(name string, fallback int) time.Duration {
	return time.Duration(envIntOrDefault(name, fallback)) * time.Hour
}

func envSecondsOrDefault(name string, fallback int) time.Duration {
	return time.Duration(envIntOrDefault(name, fallback)) * time.Second
}

func EnvBoolOrDefault(name string, fallback bool) bool {
	value := strings.TrimSpace(strings.ToLower(os.Getenv(name)))
	if value == "" {
		return fallback
	}

	switch value {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}
