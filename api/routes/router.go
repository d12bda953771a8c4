package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/agyemangopoku/farmlink-backend/api/controllers"
	"github.com/agyemangopoku/farmlink-backend/api/middleware"
	"github.com/agyemangopoku/farmlink-backend/internal/fulfillment"
	"github.com/agyemangopoku/farmlink-backend/pkg/config"
	"github.com/agyemangopoku/farmlink-backend/pkg/db"
	"github.com/agyemangopoku/farmlink-backend/pkg/logger"
	"github.com/agyemangopoku/farmlink-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisP redis.Pinger,
	svc *fulfillment.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisP))
	})

	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))

		r.Route("/orders", func(r chi.Router) {
			r.Post("/", controllers.CreateOrder(svc, logg))
			r.Get("/", controllers.ListOrders(svc, logg))
			r.Get("/{orderId}", controllers.GetOrder(svc, logg))
			r.Post("/{orderId}/publish", controllers.PublishOrder(svc, logg))
			r.Post("/{orderId}/auto-assign", controllers.AutoAssign(svc, logg))
			r.Post("/{orderId}/assignments", controllers.AssignFarm(svc, logg))
			r.Post("/{orderId}/cancel", controllers.CancelOrder(svc, logg))
			r.Get("/{orderId}/assignments", controllers.ListOrderAssignments(svc, logg))
			r.Get("/{orderId}/invoices", controllers.ListOrderInvoices(svc, logg))
			r.Get("/{orderId}/recommendations", controllers.RecommendFarms(svc, logg))
		})

		r.Route("/assignments", func(r chi.Router) {
			r.Get("/{assignmentId}", controllers.GetAssignment(svc, logg))
			r.Post("/{assignmentId}/accept", controllers.AcceptAssignment(svc, logg))
			r.Post("/{assignmentId}/reject", controllers.RejectAssignment(svc, logg))
			r.Post("/{assignmentId}/ready", controllers.MarkReady(svc, logg))
			r.Post("/{assignmentId}/dispatch", controllers.Dispatch(svc, logg))
			r.Post("/{assignmentId}/deliveries", controllers.ConfirmDelivery(svc, logg))
			r.Get("/{assignmentId}/deliveries", controllers.ListAssignmentDeliveries(svc, logg))
			r.Post("/{assignmentId}/cancel", controllers.CancelAssignment(svc, logg))
		})

		r.Route("/deliveries", func(r chi.Router) {
			r.Post("/{deliveryId}/verify", controllers.VerifyDelivery(svc, logg))
		})

		r.Route("/invoices", func(r chi.Router) {
			r.Get("/{invoiceId}", controllers.GetInvoice(svc, logg))
			r.Post("/{invoiceId}/approve", controllers.ApproveInvoice(svc, logg))
			r.Post("/{invoiceId}/pay", controllers.ProcessPayment(svc, logg))
		})

		r.Route("/audit", func(r chi.Router) {
			r.Get("/", controllers.AuditTrail(svc, logg))
			r.Get("/actors/{actorId}", controllers.AuditTrailForActor(svc, logg))
		})
	})

	return r
}
