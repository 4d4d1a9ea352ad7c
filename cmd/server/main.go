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

	"kasirinaja/checkout/internal/cache"
	"kasirinaja/checkout/internal/checkout"
	"kasirinaja/checkout/internal/config"
	"kasirinaja/checkout/internal/httpapi"
	"kasirinaja/checkout/internal/loyalty"
	"kasirinaja/checkout/internal/store"
	"kasirinaja/checkout/internal/store/memory"
	pgstore "kasirinaja/checkout/internal/store/postgres"
)

func main() {
	cfg := config.Load()
	if err := validateSecurityConfig(cfg); err != nil {
		log.Fatalf("invalid security configuration: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid POS settings: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var repo store.Repository
	closers := make([]func() error, 0, 2)

	if cfg.DatabaseURL != "" {
		pg, err := pgstore.New(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("postgres unavailable (%v) and DATABASE_URL is set; refusing to start with in-memory fallback", err)
		}
		if err := pg.EnsureSchema(ctx); err != nil {
			log.Fatalf("postgres schema: %v", err)
		}
		repo = pg
		closers = append(closers, pg.Close)
		log.Println("repository: postgres")
	} else {
		repo = memory.NewSeeded()
		log.Println("repository: in-memory")
	}

	accountCache := cache.LoyaltyAccountCache(cache.NoopLoyaltyCache{})
	if cfg.RedisAddr != "" {
		redisCache := cache.NewRedisLoyaltyCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err := redisCache.Ping(ctx); err != nil {
			log.Printf("redis unavailable (%v), using noop cache", err)
		} else {
			accountCache = redisCache
			closers = append(closers, redisCache.Close)
			log.Println("cache: redis")
		}
	} else {
		log.Println("cache: noop")
	}

	directory := loyalty.NewDirectory(repo, accountCache, time.Duration(cfg.LoyaltyCacheTTLSeconds)*time.Second)
	manager := checkout.NewManager(checkout.ManagerConfig{
		Store:            repo,
		Loyalty:          directory,
		Settings:         config.NewLiveSettings(cfg.POS.Settings()),
		InvoiceFields:    cfg.POS.InvoiceFields,
		FocusDefaultMode: cfg.POS.SetGrandTotalToDefaultMode,
		PersistTimeout:   time.Duration(cfg.PersistTimeoutSeconds) * time.Second,
	})
	auth := httpapi.NewAuthManager(cfg.AuthSecret, time.Duration(cfg.AccessTokenTTLMinutes)*time.Minute, repo)
	api := httpapi.New(manager, repo, auth, cfg.AllowedOrigin, cfg.StoreID)

	server := &http.Server{
		Addr:              cfg.Address(),
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Printf("POS checkout listening on %s", cfg.Address())
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 8*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown error: %v", err)
	}

	// Open sessions flush their pending amount writes before the store closes.
	manager.CloseAll()

	for _, closeFn := range closers {
		if err := closeFn(); err != nil {
			log.Printf("close error: %v", err)
		}
	}

	log.Println("server stopped")
}

func validateSecurityConfig(cfg config.Config) error {
	if len(cfg.AuthSecret) < 32 {
		return fmt.Errorf("AUTH_SECRET must be set and at least 32 characters")
	}
	if cfg.AllowedOrigin == "*" && cfg.DatabaseURL != "" {
		return fmt.Errorf("ALLOWED_ORIGIN must name the POS frontend when DATABASE_URL is set")
	}
	return nil
}
