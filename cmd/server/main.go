package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/getSweetSpotcl/flexhub/internal/api"
	"github.com/getSweetSpotcl/flexhub/internal/auth"
	"github.com/getSweetSpotcl/flexhub/internal/repository"
	"github.com/getSweetSpotcl/flexhub/internal/service"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/robfig/cron/v3"
	"github.com/stripe/stripe-go/v82"
)

func main() {
	godotenv.Load()
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL not set")
	}
	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		log.Fatalf("Failed to open DB: %v", err)
	}
	if err := db.Ping(); err != nil {
		log.Fatalf("Failed to connect to DB: %v", err)
	}

	stripe.Key = os.Getenv("STRIPE_SECRET_KEY")

	bookingRepo := repository.NewBookingRepository(db)
	availRepo := repository.NewAvailabilityRepository(db)
	guestRepo := repository.NewGuestRepository(db)
	spaceRepo := repository.NewSpaceRepository(db)

	clock := service.SystemClock()
	bookingSvc := service.NewBookingService(
		bookingRepo, availRepo, guestRepo,
		service.NewStripeService(), service.NewSenderService(),
		clock, paymentWindow(),
	)
	sweepSvc := service.NewSweepService(bookingRepo, bookingSvc, clock)
	hostSvc := service.NewHostService(spaceRepo, availRepo)
	authSvc := service.NewGuestAuthService(guestRepo)

	bookingHandler := api.NewBookingHandler(bookingSvc)
	hostHandler := api.NewHostHandler(hostSvc)
	authHandler := api.NewAuthHandler(authSvc)
	cronHandler := api.NewCronHandler(sweepSvc)
	healthHandler := api.NewHealthHandler(db)
	stripeHandler := api.NewStripeWebhookHandler(os.Getenv("STRIPE_WEBHOOK_SECRET"), bookingSvc)

	r := mux.NewRouter()

	// Public endpoints
	r.HandleFunc("/api/health", healthHandler.Check).Methods("GET")
	r.HandleFunc("/api/auth/register", authHandler.Register).Methods("POST")
	r.HandleFunc("/api/auth/login", authHandler.Login).Methods("POST")
	r.HandleFunc("/api/availability", bookingHandler.CheckAvailability).Methods("POST")
	r.HandleFunc("/api/spaces", hostHandler.ListSpaces).Methods("GET")
	r.HandleFunc("/api/webhooks/stripe", stripeHandler.HandleWebhook).Methods("POST")

	// Scheduler trigger (shared secret)
	cronRouter := r.PathPrefix("/api/cron").Subrouter()
	cronRouter.Use(auth.CronAuthMiddleware(os.Getenv("CRON_SECRET")))
	cronRouter.HandleFunc("/cleanup-expired-bookings", cronHandler.CleanupExpiredBookings).Methods("GET")

	// Session-authenticated endpoints
	session := r.PathPrefix("/api").Subrouter()
	session.Use(auth.SessionAuthMiddleware)
	session.HandleFunc("/bookings", bookingHandler.CreateBooking).Methods("POST")
	session.HandleFunc("/bookings", bookingHandler.ListBookings).Methods("GET")
	session.HandleFunc("/bookings/{code}", bookingHandler.GetBooking).Methods("GET")
	session.HandleFunc("/bookings/{code}", bookingHandler.CancelBooking).Methods("DELETE")
	session.HandleFunc("/spaces/{id}/blackouts", hostHandler.CreateBlackout).Methods("POST")
	session.HandleFunc("/spaces/{id}/blackouts/{entry_id}", hostHandler.DeleteBlackout).Methods("DELETE")
	session.HandleFunc("/spaces/{id}/calendar", hostHandler.SpaceCalendar).Methods("GET")

	// Self-scheduled sweep alongside the HTTP trigger.
	scheduler := cron.New()
	spec := "@every " + sweepInterval().String()
	if _, err := scheduler.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if _, err := sweepSvc.Run(ctx); err != nil {
			log.Printf("scheduled sweep failed: %v", err)
		}
	}); err != nil {
		log.Fatalf("Failed to schedule sweep: %v", err)
	}
	scheduler.Start()
	defer scheduler.Stop()

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	corsHandler := handlers.CORS(
		handlers.AllowedOrigins([]string{os.Getenv("FRONTEND_BASE_URL")}),
		handlers.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
		handlers.AllowedHeaders([]string{"Authorization", "Content-Type"}),
	)

	log.Printf("Server running on port %s", port)
	log.Fatal(http.ListenAndServe(":"+port, handlers.LoggingHandler(os.Stdout, corsHandler(r))))
}

func paymentWindow() time.Duration {
	minutes, err := strconv.Atoi(os.Getenv("PAYMENT_WINDOW_MINUTES"))
	if err != nil || minutes <= 0 {
		minutes = 15
	}
	return time.Duration(minutes) * time.Minute
}

func sweepInterval() time.Duration {
	minutes, err := strconv.Atoi(os.Getenv("SWEEP_INTERVAL_MINUTES"))
	if err != nil || minutes <= 0 {
		minutes = 5
	}
	return time.Duration(minutes) * time.Minute
}
