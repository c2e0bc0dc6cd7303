// Command payforged runs the payment orchestration API daemon. It wires
// the full request pipeline: correlation scope, API key authentication,
// per-tenant rate limiting, tenant-bound database sessions, and the
// Redis-backed response cache.
package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/payforge/payforge/pkg/apikey"
	"github.com/payforge/payforge/pkg/cache"
	"github.com/payforge/payforge/pkg/config"
	"github.com/payforge/payforge/pkg/correlation"
	"github.com/payforge/payforge/pkg/httpserver"
	"github.com/payforge/payforge/pkg/logger"
	"github.com/payforge/payforge/pkg/pg"
	"github.com/payforge/payforge/pkg/ratelimit"
	"github.com/payforge/payforge/pkg/redis"
	"github.com/payforge/payforge/pkg/reqctx"
	"github.com/payforge/payforge/pkg/rls"
)

func main() {
	ctx := context.Background()

	var (
		pgCfg    pg.Config
		redisCfg redis.Config
		rlCfg    ratelimit.Config
		cacheCfg cache.Config
		httpCfg  httpserver.Config
	)
	config.MustLoad(&pgCfg)
	config.MustLoad(&redisCfg)
	config.MustLoad(&rlCfg)
	config.MustLoad(&cacheCfg)
	config.MustLoad(&httpCfg)

	log := logger.New(
		logger.WithProduction("payforged"),
		logger.WithContextExtractors(
			reqctx.CorrelationIDExtractor(),
			reqctx.RequestIDExtractor(),
			reqctx.TenantIDExtractor(),
		),
	)
	logger.SetAsDefault(log)

	rdb, err := redis.Connect(ctx, redisCfg)
	if err != nil {
		log.ErrorContext(ctx, "redis connection failed", logger.Error(err))
		os.Exit(1)
	}
	defer rdb.Close()

	pool, err := pg.Connect(ctx, pgCfg)
	if err != nil {
		log.ErrorContext(ctx, "postgres connection failed", logger.Error(err))
		os.Exit(1)
	}
	defer pool.Close()

	if err := pg.Migrate(ctx, pool, pgCfg, log); err != nil {
		log.ErrorContext(ctx, "migrations failed", logger.Error(err))
		os.Exit(1)
	}

	store, err := ratelimit.NewRedisStore(rdb)
	if err != nil {
		log.ErrorContext(ctx, "rate limit store init failed", logger.Error(err))
		os.Exit(1)
	}
	limiter, err := ratelimit.NewForClass(store, rlCfg, ratelimit.ClassLive, ratelimit.WithLogger(log))
	if err != nil {
		log.ErrorContext(ctx, "rate limiter init failed", logger.Error(err))
		os.Exit(1)
	}

	cch, err := cache.New(rdb, cacheCfg, cache.WithLogger(log))
	if err != nil {
		log.ErrorContext(ctx, "cache init failed", logger.Error(err))
		os.Exit(1)
	}

	keys, err := apikey.NewPgStorage(pool)
	if err != nil {
		log.ErrorContext(ctx, "key storage init failed", logger.Error(err))
		os.Exit(1)
	}
	resolver, err := apikey.NewResolver(keys, apikey.WithLogger(log))
	if err != nil {
		log.ErrorContext(ctx, "key resolver init failed", logger.Error(err))
		os.Exit(1)
	}

	binder := rls.NewBinder(rls.WithLogger(log))

	r := chi.NewRouter()
	r.Use(correlation.Middleware)

	r.Get("/healthz", httpserver.HealthCheckHandler(ctx, log))
	r.Get("/readyz", httpserver.HealthCheckHandler(ctx, log,
		redis.Healthcheck(rdb),
		pg.Healthcheck(pool),
	))

	r.Group(func(r chi.Router) {
		r.Use(apikey.Middleware(resolver))
		r.Use(apikey.RequireTenant(nil))
		r.Use(ratelimit.Middleware(limiter, ratelimit.Identity()))

		r.Get("/v1/payments", listPayments(pool, binder, cch, log))
	})

	srv := httpserver.New(httpCfg, httpserver.WithLogger(log))
	if err := srv.Run(ctx, r); err != nil {
		log.ErrorContext(ctx, "server exited with error", logger.Error(err))
		os.Exit(1)
	}
}

type payment struct {
	ID        string    `json:"id"`
	Amount    int64     `json:"amount"`
	Currency  string    `json:"currency"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// listPayments serves the tenant's recent payments through the cache.
// The fetcher runs on a connection bound to the tenant's session, so row
// security filters the result even if the query itself forgets a WHERE
// clause. Cache entries are tagged per tenant for bulk invalidation on
// writes.
func listPayments(pool *pgxpool.Pool, binder *rls.Binder, cch *cache.Cache, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		tenantID, ok := reqctx.TenantIDFromContext(ctx)
		if !ok {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		var payments []payment
		key := "payments:" + tenantID.String()
		tag := "tenant:" + tenantID.String()

		err := cch.GetOrSetWithLock(ctx, key, &payments, func(ctx context.Context) (any, error) {
			var out []payment
			err := binder.WithTenantConn(ctx, pool, func(ctx context.Context, conn *pgxpool.Conn) error {
				rows, err := conn.Query(ctx, `
					SELECT id, amount, currency, status, created_at
					FROM payments
					ORDER BY created_at DESC
					LIMIT 100`)
				if err != nil {
					return err
				}
				defer rows.Close()

				for rows.Next() {
					var p payment
					if err := rows.Scan(&p.ID, &p.Amount, &p.Currency, &p.Status, &p.CreatedAt); err != nil {
						return err
					}
					out = append(out, p)
				}
				return rows.Err()
			})
			return out, err
		}, cache.WithTTL(30*time.Second), cache.WithTags(tag))
		if err != nil {
			log.ErrorContext(ctx, "payment listing failed", logger.Error(err))
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if payments == nil {
			payments = []payment{}
		}
		if err := json.NewEncoder(w).Encode(payments); err != nil {
			log.ErrorContext(ctx, "response encoding failed", logger.Error(err))
		}
	}
}
