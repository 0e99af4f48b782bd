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

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"fishing-api/internal/auth"
	"fishing-api/internal/db"
	"fishing-api/internal/game"
	"fishing-api/internal/maintenance"
	"fishing-api/internal/observability"
	"fishing-api/internal/ratelimit"
)

type Options struct {
	LoadDotEnv    bool
	RunMigrations bool
}

type Runtime struct {
	Handler http.Handler
	Close   func() error
}

// Build wires configuration, storage and the guard pipeline into a single
// http.Handler. Per protected route the chain is auth, then the sliding
// window, then (for the cast) the cooldown; the ingress throttle wraps the
// whole mux.
func Build(options Options) (*Runtime, error) {
	if options.LoadDotEnv {
		_ = godotenv.Load()
	}

	logger := observability.NewLogger()

	databaseURL, err := mustEnv("DATABASE_URL")
	if err != nil {
		return nil, err
	}
	tokenIssuer, err := mustEnv("TOKEN_ISSUER")
	if err != nil {
		return nil, err
	}

	jwtSecret := strings.TrimSpace(os.Getenv("JWT_SECRET"))
	if jwtSecret == "" {
		logger.Warn("jwt_secret_missing", map[string]any{
			"detail": "tokens will be accepted without signature verification",
		})
	}

	if err := observability.InitSentry(os.Getenv("SENTRY_DSN"), envOrDefault("APP_ENV", "development"), os.Getenv("APP_RELEASE")); err != nil {
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

	// Guard state: in-memory per instance by default, Redis when REDIS_URL
	// is set so multiple instances share windows and cooldowns.
	var (
		redisClient  *redis.Client
		windowStore  ratelimit.WindowStore
		cooldownStor ratelimit.CooldownStore
		memoryWindow *ratelimit.MemoryWindow
		memoryCd     *ratelimit.MemoryCooldown
	)
	if redisURL := strings.TrimSpace(os.Getenv("REDIS_URL")); redisURL != "" {
		opts, err := redis.ParseURL(redisURL)
		if err != nil {
			_ = database.Close()
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		redisClient = redis.NewClient(opts)
		windowStore = ratelimit.NewRedisWindow(redisClient, "ratelimit")
		cooldownStor = ratelimit.NewRedisCooldown(redisClient, "cooldown")
		logger.Info("guard_state_redis", map[string]any{"addr": opts.Addr})
	} else {
		memoryWindow = ratelimit.NewMemoryWindow()
		memoryCd = ratelimit.NewMemoryCooldown()
		windowStore = memoryWindow
		cooldownStor = memoryCd
	}

	blacklist := auth.NewBlacklist()
	verifier := auth.NewVerifier(jwtSecret, tokenIssuer, blacklist, logger)
	loginGuard := auth.NewLoginGuard(
		envIntOrDefault("LOGIN_MAX_FAILURES", 5),
		envSecondsOrDefault("LOGIN_LOCKOUT_SECONDS", 300),
	)

	authRepo := auth.NewRepository(database)
	authService := auth.NewService(authRepo, jwtSecret, tokenIssuer)
	authService.WithAccessTTL(envMinutesOrDefault("ACCESS_TOKEN_TTL_MINUTES", 60))
	authHandler := auth.NewHandler(authService, loginGuard, blacklist)

	gameRepo := game.NewRepository(database)
	fishing := game.New(gameRepo, logger)
	if err := fishing.LoadSpecies(context.Background()); err != nil {
		// The API stays up with an empty catalog; casts will fail loudly.
		logger.Error("load_fish_species_failed", map[string]any{"error": err.Error()})
	}
	gameHandler := game.NewHandler(fishing, gameRepo)

	castMax := envIntOrDefault("MAX_REQUESTS_PER_MINUTE", 30)
	readMax := envIntOrDefault("READ_RATE_LIMIT_MAX", 100)
	castCooldown := envSecondsOrDefault("CAST_COOLDOWN_SECONDS", 2)

	throttle := ratelimit.NewIPThrottle(
		envFloatOrDefault("INGRESS_RPS", 20),
		envIntOrDefault("INGRESS_BURST", 40),
	)
	janitorCtx, stopJanitor := context.WithCancel(context.Background())
	throttle.StartJanitor(janitorCtx)

	sweepHandler := maintenance.NewSweepHandler(
		logger,
		os.Getenv("CRON_SECRET"),
		blacklist,
		loginGuard,
		memoryWindow,
		memoryCd,
		throttle,
		authService.AccessTTL()+5*time.Minute,
		time.Minute,
		castCooldown,
	)

	identityKey := func(r *http.Request) string {
		if identity, ok := auth.IdentityFrom(r.Context()); ok {
			return identity.Subject
		}
		return ""
	}

	rateLimited := ratelimit.Middleware(windowStore, readMax, time.Minute, identityKey, logger)
	castLimited := ratelimit.Middleware(windowStore, castMax, time.Minute, identityKey, logger)
	castCooled := ratelimit.CooldownMiddleware(cooldownStor, castCooldown, identityKey, logger)

	protectedRead := func(h http.HandlerFunc) http.Handler {
		return auth.Middleware(verifier, logger, rateLimited(h))
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", healthHandler(database))
	mux.HandleFunc("POST /api/auth/signup", authHandler.Signup)
	mux.HandleFunc("POST /api/auth/login", authHandler.Login)
	mux.Handle("POST /api/auth/logout", auth.Middleware(verifier, logger, http.HandlerFunc(authHandler.Logout)))
	mux.Handle("POST /api/cast", auth.Middleware(verifier, logger, castLimited(castCooled(http.HandlerFunc(gameHandler.Cast)))))
	mux.Handle("GET /api/inventory", protectedRead(gameHandler.Inventory))
	mux.Handle("GET /api/player/stats", protectedRead(gameHandler.Stats))
	mux.Handle("GET /api/fish-species", protectedRead(gameHandler.SpeciesCatalog))
	mux.Handle("GET /api/leaderboard/heaviest", protectedRead(gameHandler.LeaderboardHeaviest))
	mux.Handle("GET /api/leaderboard/most-catches", protectedRead(gameHandler.LeaderboardMostCatches))
	mux.Handle("GET /api/leaderboard/rare-catches", protectedRead(gameHandler.LeaderboardRareCatches))
	mux.HandleFunc("GET /internal/maintenance/sweep", sweepHandler.Handle)
	mux.HandleFunc("POST /internal/maintenance/sweep", sweepHandler.Handle)

	handler := observability.RecoverMiddleware(logger, observability.RequestLoggingMiddleware(logger, throttle.Middleware(mux)))

	return &Runtime{
		Handler: handler,
		Close: func() error {
			stopJanitor()
			observability.FlushSentry()
			if redisClient != nil {
				_ = redisClient.Close()
			}
			return database.Close()
		},
	}, nil
}

func healthHandler(database *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		body := map[string]any{"status": "ok", "service": "fishing-game-api", "time": time.Now().UTC().Format(time.RFC3339)}
		if err := database.PingContext(ctx); err != nil {
			status = http.StatusServiceUnavailable
			body = map[string]any{"status": "degraded", "service": "fishing-game-api", "time": time.Now().UTC().Format(time.RFC3339)}
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

func envFloatOrDefault(name string, fallback float64) float64 {
	value := strings.TrimSpace(os.Getenv(name))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

func envMinutesOrDefault(name string, fallback int) time.Duration {
	return time.Duration(envIntOrDefault(name, fallback)) * time.Minute
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
