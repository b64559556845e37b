package routes

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/learnsphere/coursemarket-backend/api/controllers"
	"github.com/learnsphere/coursemarket-backend/api/middleware"
	cartsvc "github.com/learnsphere/coursemarket-backend/internal/cart"
	checkoutsvc "github.com/learnsphere/coursemarket-backend/internal/checkout"
	coursesvc "github.com/learnsphere/coursemarket-backend/internal/courses"
	ordersvc "github.com/learnsphere/coursemarket-backend/internal/orders"
	paymentsvc "github.com/learnsphere/coursemarket-backend/internal/payments"
	"github.com/learnsphere/coursemarket-backend/pkg/config"
	"github.com/learnsphere/coursemarket-backend/pkg/enums"
	"github.com/learnsphere/coursemarket-backend/pkg/logger"
	pkgredis "github.com/learnsphere/coursemarket-backend/pkg/redis"
)

type pinger interface {
	Ping(ctx context.Context) error
}

type idempotencyStore interface {
	pkgredis.IdempotencyStore
	pinger
}

// Deps collects everything the router wires into handlers.
type Deps struct {
	Config   *config.Config
	Logger   *logger.Logger
	DB       pinger
	Redis    idempotencyStore
	Courses  coursesvc.Service
	Cart     cartsvc.Service
	Checkout checkoutsvc.Service
	Orders   ordersvc.Service
	Payments paymentsvc.Service
}

func NewRouter(deps Deps) http.Handler {
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive())
		r.Get("/ready", controllers.HealthReady(deps.DB, deps.Redis, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/courses/{courseId}", controllers.CourseGet(deps.Courses, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(deps.Config.JWT, logg))
			r.Use(middleware.Idempotency(deps.Redis, logg))

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", controllers.CartGet(deps.Cart, logg))
				r.Delete("/", controllers.CartClear(deps.Cart, logg))
				r.Post("/items", controllers.CartAddItem(deps.Cart, logg))
				r.Delete("/items/{courseId}", controllers.CartRemoveItem(deps.Cart, logg))
			})

			r.Post("/checkout", controllers.Checkout(deps.Checkout, logg))

			r.Route("/orders", func(r chi.Router) {
				r.Get("/", controllers.OrdersList(deps.Orders, logg))
				r.Get("/{orderId}", controllers.OrderDetail(deps.Orders, logg))
				r.Post("/{orderId}/cancel", controllers.OrderCancel(deps.Orders, logg))
			})

			r.Post("/payments/{attemptId}/receipt", controllers.UploadReceipt(deps.Payments, logg))

			r.Route("/admin", func(r chi.Router) {
				r.Use(middleware.RequireRole(enums.UserRoleAdmin, logg))
				r.Post("/payments/{attemptId}/review", controllers.AdminReviewPayment(deps.Payments, logg))
			})
		})
	})

	return r
}
