package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/iprashant14/medimeet-backend/internal/auth"
	"github.com/iprashant14/medimeet-backend/internal/clinic"
	"github.com/iprashant14/medimeet-backend/internal/config"
	"github.com/iprashant14/medimeet-backend/internal/httpapi"
	"github.com/iprashant14/medimeet-backend/internal/obs"
	"github.com/iprashant14/medimeet-backend/internal/store/memory"
	"github.com/iprashant14/medimeet-backend/internal/store/pg"
)

var (
	version = "0.3.1"
	commit  = "dev"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	obs.Init()
	obs.InitBuildInfo(version, commit)

	var (
		users        auth.UserStore
		doctors      clinic.DoctorStore
		appointments clinic.AppointmentStore
		probe        httpapi.ReadyProbe
		pgStore      *pg.Store
	)
	if cfg.PostgresDSN != "" {
		pgStore, err = pg.Open(cfg.PostgresDSN)
		if err != nil {
			log.Fatalf("open db: %v", err)
		}
		users = pgStore.Users()
		doctors = pgStore.Doctors()
		appointments = pgStore.Appointments()
		probe = httpapi.ReadyProbe{DB: pgStore.DB()}
	} else {
		log.Println("MEDIMEET_PG_DSN is not set; using the in-memory store")
		mem := memory.NewStore()
		seedDoctors(mem)
		users = mem.Users()
		doctors = mem.Doctors()
		appointments = mem.Appointments()
	}

	tokens, err := auth.NewTokens(cfg.AccessTokenSecret, cfg.RefreshTokenSecret,
		auth.WithAccessTTL(cfg.AccessTokenTTL),
		auth.WithRefreshTTL(cfg.RefreshTokenTTL),
	)
	if err != nil {
		log.Fatalf("tokens: %v", err)
	}

	var authOpts []auth.ServiceOption
	if cfg.GoogleClientID != "" {
		verifier, err := auth.NewGoogleVerifier(context.Background(), cfg.GoogleClientID)
		if err != nil {
			log.Fatalf("google verifier: %v", err)
		}
		authOpts = append(authOpts, auth.WithGoogleVerifier(verifier))
	} else {
		log.Println("MEDIMEET_GOOGLE_CLIENT_ID is not set; login with Google is disabled")
	}

	authSvc, err := auth.NewService(users, tokens, authOpts...)
	if err != nil {
		log.Fatalf("auth service: %v", err)
	}
	clinicSvc, err := clinic.NewService(doctors, appointments, authSvc)
	if err != nil {
		log.Fatalf("clinic service: %v", err)
	}

	api := httpapi.New(probe, version, authSvc, clinicSvc, httpapi.Options{
		RateLimitBurst:  cfg.RateLimitBurst,
		RateLimitPerSec: cfg.RateLimitPerSec,
		MaxBodyBytes:    cfg.MaxBodyBytes,
	})

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("Starting medimeet-api %s on %s", version, srv.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = srv.Shutdown(ctx)
	if pgStore != nil {
		_ = pgStore.Close()
	}
	log.Println("Stopped")
}

// seedDoctors gives the dev-mode store a browsable catalog.
func seedDoctors(mem *memory.Store) {
	base := time.Now().UTC().Truncate(time.Hour).Add(24 * time.Hour)
	for _, d := range []clinic.Doctor{
		{Name: "Dr. Meredith Grey", Specialty: "Cardiology"},
		{Name: "Dr. Gregory House", Specialty: "Diagnostics"},
		{Name: "Dr. Dana Scully", Specialty: "Pediatrics"},
	} {
		d.AvailableSlots = []time.Time{base, base.Add(time.Hour), base.Add(2 * time.Hour)}
		mem.AddDoctor(d)
	}
}
