package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/example/storefront-engine/internal/api"
	"github.com/example/storefront-engine/internal/catalog"
	"github.com/example/storefront-engine/internal/config"
	"github.com/example/storefront-engine/internal/domain/cart"
	"github.com/example/storefront-engine/internal/infrastructure/storage"
	"github.com/example/storefront-engine/internal/query"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("[Main] no .env file, using system environment")
	}
	cfg := config.Load()

	log.Println("[Main] ========================================")
	log.Println("[Main] Storefront Engine")
	log.Println("[Main] ========================================")
	log.Printf("[Main] Catalog API: %s", cfg.CatalogAPIURL)
	log.Printf("[Main] Data dir:    %s", cfg.DataDir)
	log.Printf("[Main] Debounce:    %s", cfg.Debounce)

	// Durable cart storage; a failed open degrades to a session-only cart.
	var store storage.Store
	store, err := storage.OpenBadger(cfg.DataDir)
	if err != nil {
		log.Printf("[Main] durable storage unavailable, cart is session-only: %v", err)
		store = storage.NewMemory()
	}
	defer store.Close()

	// Leaf stores first, then the composer that depends on the catalog.
	client := catalog.NewClient(cfg.CatalogAPIURL, &http.Client{Timeout: cfg.HTTPTimeout})
	catalogStore := catalog.NewStore(client)
	cartStore := cart.NewStore(store)
	composer := query.NewComposer(catalogStore, cfg.Debounce)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go composer.Run(ctx)

	handlers := api.NewHandlers(catalogStore, composer, cartStore)
	server := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: api.NewRouter(handlers),
	}

	go func() {
		log.Printf("[Main] Server started on %s", cfg.ListenAddr)
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			log.Fatalf("[Main] Server error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("[Main] Shutting down...")
	cancel() // stop the composer

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	server.Shutdown(shutdownCtx)
}
