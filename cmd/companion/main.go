package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"github.com/lumofit/companion/internal/config"
	"github.com/lumofit/companion/internal/gateway"
	"github.com/lumofit/companion/internal/handlers"
	"github.com/lumofit/companion/internal/middleware"
	"github.com/lumofit/companion/internal/routes"
	"github.com/lumofit/companion/internal/services"
	"github.com/lumofit/companion/internal/storage"
)

func main() {
	// Load env
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Persistent session store
	log.Printf("Opening %s session store...", cfg.StoreBackend)
	store, err := storage.Open(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to open session store: %v", err)
	}
	defer store.Close()
	if cfg.StoreBackend == "file" && cfg.StorePassphrase == "" {
		log.Println("⚠️  WARNING: STORE_PASSPHRASE not set. The session token is stored unencrypted.")
	}

	// Remote APIs share the session as bearer source
	var session *services.SessionManager
	tokens := gateway.TokenFunc(func() string { return session.Token() })
	authAPI := gateway.NewAuthAPI(gateway.NewClient(cfg.AuthAPIURL, cfg.HTTPTimeout, tokens))
	readingsAPI := gateway.NewReadingsAPI(gateway.NewClient(cfg.ReadingsAPIURL, cfg.HTTPTimeout, tokens))

	// Avatar uploads
	var sessionOpts []services.SessionOption
	var uploads handlers.Uploader
	if cfg.AvatarUploadEnabled() {
		cld, err := services.NewCloudinaryService(cfg.CloudinaryName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret)
		if err != nil {
			log.Printf("Warning: Failed to initialize Cloudinary: %v", err)
			log.Println("Avatar uploads will not be available")
		} else {
			sessionOpts = append(sessionOpts, services.WithAvatarUploader(cld))
			uploads = cld
			log.Println("✅ Cloudinary service initialized")
		}
	} else {
		log.Println("Warning: Cloudinary credentials not found. Avatar uploads will not be available")
	}

	session = services.NewSessionManager(store, authAPI, sessionOpts...)
	session.Bootstrap(ctx)
	if s := session.Snapshot(); s.Authenticated() {
		log.Printf("✅ Session restored for %s", s.User.DisplayName())
	} else {
		log.Println("No stored session; waiting for login")
	}

	patients, err := services.NewPatientCache(ctx, store)
	if err != nil {
		log.Fatalf("Failed to load patient cache: %v", err)
	}
	devices, err := services.NewDeviceList(ctx, store)
	if err != nil {
		log.Fatalf("Failed to load device list: %v", err)
	}
	alerts := services.NewAlertFeed(services.DefaultAlertCapacity)
	live := services.NewLiveFeed()

	pollerOpts := []services.PollerOption{
		services.WithInterval(cfg.PollInterval),
		services.WithRefreshEvery(cfg.RefreshMinInterval),
		services.WithSnapshotHook(services.AlertHook(alerts, patients, live)),
	}

	// Optional MQTT republisher
	if cfg.MQTTBroker != "" {
		client, err := services.InitMQTTClient(cfg.MQTTBroker, cfg.MQTTClientID)
		if err != nil {
			log.Printf("⚠️  WARNING: MQTT broker unreachable: %v", err)
		} else {
			publisher := services.NewVitalsPublisher(client)
			defer publisher.Close()
			pollerOpts = append(pollerOpts, services.WithSnapshotHook(publisher.Hook()))
			log.Printf("✅ Republishing vitals to %s", cfg.MQTTBroker)
		}
	}

	api := &handlers.API{
		Session:  session,
		Readings: readingsAPI,
		Poller:   services.NewPoller(readingsAPI, pollerOpts...),
		Patients: patients,
		Devices:  devices,
		Alerts:   alerts,
		Live:     live,
		Uploads:  uploads,
	}

	// Setup router
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(middleware.CORS(cfg.AllowedOrigins))

	addr := ":" + cfg.Port
	if cfg.IsProduction() {
		for _, mw := range middleware.ProductionSecurity() {
			r.Use(mw)
		}
		addr = "127.0.0.1:" + cfg.Port
		log.Println("✅ Production security enabled (security headers, loopback only, per-IP + login rate limiting)")
	} else {
		r.Use(middleware.GlobalRateLimit)
		r.Use(middleware.LoginRateLimit)
	}

	routes.SetupRoutes(r, api)

	log.Println("📋 Registered routes:")
	for _, route := range routes.Registered {
		log.Printf("  %s", route)
	}

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Printf("🚀 LumoFit companion running on %s", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("🛑 Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("http shutdown error: %v", err)
	}
}
