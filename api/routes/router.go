package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/gearstage-backend/api/controllers"
	"github.com/angelmondragon/gearstage-backend/api/middleware"
	"github.com/angelmondragon/gearstage-backend/api/responses"
	"github.com/angelmondragon/gearstage-backend/internal/categories"
	"github.com/angelmondragon/gearstage-backend/internal/equipment"
	"github.com/angelmondragon/gearstage-backend/internal/sites"
	"github.com/angelmondragon/gearstage-backend/pkg/config"
	"github.com/angelmondragon/gearstage-backend/pkg/db"
	pkgerrors "github.com/angelmondragon/gearstage-backend/pkg/errors"
	"github.com/angelmondragon/gearstage-backend/pkg/logger"
	"github.com/angelmondragon/gearstage-backend/pkg/metrics"
	"github.com/angelmondragon/gearstage-backend/pkg/redis"
)

// Services bundles the domain services the API exposes.
type Services struct {
	Equipment  equipment.Service
	Categories categories.Service
	Previewer  controllers.Previewer
	Sites      sites.Service
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	httpMetrics *metrics.HTTPMetrics,
	gatherer prometheus.Gatherer,
	svc Services,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Actor(logg),
		middleware.Logging(logg),
		middleware.Metrics(httpMetrics),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		responses.WriteError(req.Context(), nil, w, pkgerrors.New(pkgerrors.CodeNotFound, "route not found"))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		responses.WriteError(req.Context(), nil, w, pkgerrors.New(pkgerrors.CodeValidation, "method not allowed"))
	})

	// nil *redis.Client must not become a non-nil interface
	deps := map[string]controllers.Pinger{"db": dbP}
	var idempotencyStore redis.IdempotencyStore
	var rateStore *redis.Client
	if redisClient != nil {
		deps["redis"] = redisClient
		idempotencyStore = redisClient
		rateStore = redisClient
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps))
	})

	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	writePolicy := middleware.NewRateLimitPolicy("writes", cfg.RateLimit.Window, cfg.RateLimit.IPLimit, cfg.RateLimit.ActorLimit)

	r.Route("/api/v1", func(r chi.Router) {
		if rateStore != nil {
			r.Use(middleware.RateLimit(writePolicy, rateStore, logg))
		}
		r.Use(middleware.Idempotency(idempotencyStore, cfg.Idempotency.TTL, logg))

		r.Route("/equipment", func(r chi.Router) {
			r.Get("/", controllers.EquipmentList(svc.Equipment, logg))
			r.Post("/", controllers.EquipmentCreate(svc.Equipment, logg))
			r.Route("/{equipmentId}", func(r chi.Router) {
				r.Get("/", controllers.EquipmentGet(svc.Equipment, logg))
				r.Patch("/", controllers.EquipmentUpdate(svc.Equipment, logg))
				r.Delete("/", controllers.EquipmentDelete(svc.Equipment, logg))
				r.Post("/stock-correction", controllers.EquipmentCorrectStock(svc.Equipment, logg))
				r.Get("/movements", controllers.EquipmentMovements(svc.Equipment, logg))
			})
		})

		r.Route("/categories", func(r chi.Router) {
			r.Get("/", controllers.CategoryList(svc.Categories, logg))
			r.Post("/", controllers.CategoryCreate(svc.Categories, logg))
			r.Patch("/{categoryId}", controllers.CategoryUpdate(svc.Categories, logg))
			r.Delete("/{categoryId}", controllers.CategoryDelete(svc.Categories, logg))
		})

		r.Post("/allocations/preview", controllers.AllocationPreview(svc.Previewer, logg))

		r.Route("/sites", func(r chi.Router) {
			r.Get("/", controllers.SiteList(svc.Sites, logg))
			r.Post("/", controllers.SiteCreate(svc.Sites, logg))
			r.Route("/{siteId}", func(r chi.Router) {
				r.Get("/", controllers.SiteGet(svc.Sites, logg))
				r.Put("/", controllers.SiteUpdate(svc.Sites, logg))
				r.Delete("/", controllers.SiteDelete(svc.Sites, logg))
				r.Post("/status", controllers.SiteUpdateStatus(svc.Sites, logg))
			})
		})
	})

	return r
}
