package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"storefront/address"
	"storefront/auth"
	"storefront/cart"
	"storefront/config"
	"storefront/db"
	"storefront/globals"
	"storefront/live"
	"storefront/middleware"
	"storefront/mq"
	"storefront/notify"
	"storefront/orders"
	"storefront/pay"
	"storefront/products"
	"storefront/ratelim"
	"storefront/rdx"
	"storefront/receipt"
	"storefront/reconcile"
	"storefront/routes"

	"github.com/julienschmidt/httprouter"
	"github.com/rs/cors"
	"github.com/spf13/cobra"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server and the email worker",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			return serve(cfg)
		},
	}
}

// Index is a simple health check handler.
func Index(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	fmt.Fprint(w, "200")
}

func serve(cfg config.Config) error {
	globals.JwtSecret = []byte(cfg.JWTSecret)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := db.Connect(ctx, cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		return err
	}
	defer store.Close(context.Background())
	if err := store.EnsureIndexes(ctx); err != nil {
		return err
	}

	conn, err := rdx.Connect(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		return err
	}
	defer conn.Close()

	productStore := db.NewProductStore(store)
	orderStore := db.NewOrderStore(store)
	events := mq.NewEvents(conn)

	queue := notify.NewQueue(conn, notify.NewSMTPMailer(cfg.SMTP), cfg.MaxMailTries)
	reconciler := reconcile.New(orderStore, rdx.NewLocker(conn, 30*time.Second, 5*time.Second), queue, events)

	productSvc := products.NewService(productStore, rdx.NewJSONCache(conn, "catalog:"))
	orderSvc := orders.NewService(productStore, orderStore)

	var origins []string
	if len(cfg.CORSOrigins) > 0 && cfg.CORSOrigins[0] != "*" {
		origins = cfg.CORSOrigins
	}

	h := routes.Handlers{
		Products:    products.NewHandler(productSvc, cfg.UploadDir),
		Orders:      orders.NewHandler(orderSvc),
		Pay:         pay.NewHandler(pay.NewGateway(cfg.LiqPay), orderSvc, orderStore, orderStore, reconciler, cfg.SessionTTL),
		Address:     address.NewHandler(address.NewClient(cfg.NovaPoshta, rdx.NewJSONCache(conn, "np:"))),
		Cart:        cart.NewHandler(cart.NewService(db.NewCartStore(store), productStore)),
		Receipt:     receipt.NewHandler(orderStore, cfg.PublicBaseURL),
		Live:        live.NewHandler(orderStore, events, origins...),
		Auth:        auth.NewHandler(db.NewAdminStore(store)),
		Notify:      queue,
		Idempotency: db.NewIdempotencyStore(store),
		UploadDir:   cfg.UploadDir,
	}

	rateLimiter := ratelim.NewRateLimiter(5, 10)
	router := httprouter.New()
	router.GET("/health", Index)
	routes.RoutesWrapper(router, h, rateLimiter)

	// apply middleware: CORS → security headers → logging → router
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "Idempotency-Key", cart.TokenHeader},
		ExposedHeaders:   []string{cart.TokenHeader, "Idempotent-Replayed"},
		AllowCredentials: true,
	}).Handler(router)

	server := &http.Server{
		Addr:              cfg.Port,
		Handler:           middleware.Logging(middleware.SecurityHeaders(corsHandler)),
		ReadTimeout:       7 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       120 * time.Second,
		ReadHeaderTimeout: 2 * time.Second,
	}

	workerCtx, stopWorker := context.WithCancel(context.Background())
	workerDone := make(chan struct{})
	go func() {
		defer close(workerDone)
		queue.Run(workerCtx)
	}()

	cleanupStop := make(chan struct{})
	go rateLimiter.RunCleanup(cleanupStop)

	server.RegisterOnShutdown(func() {
		log.Println("Stopping email worker...")
		stopWorker()
		close(cleanupStop)
	})

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Server listening on %s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		stopWorker()
		return fmt.Errorf("listen: %w", err)
	case <-ctx.Done():
	}

	log.Println("Shutdown signal received; shutting down gracefully...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	<-workerDone

	log.Println("Server stopped cleanly")
	return nil
}
