package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
)

func main() {
	if err := loadEnvFile(".env"); err != nil {
		log.Fatalf("config: %v", err)
	}
	cfg, err := ParseConfig(os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		log.Fatalf("config: %v", err)
	}

	arena := DefaultArena()
	if cfg.MapPath != "" {
		if arena, err = LoadArena(cfg.MapPath); err != nil {
			log.Fatalf("arena: %v", err)
		}
	}

	var db *DB
	if cfg.DBPath != "" {
		if db, err = OpenDB(cfg.DBPath); err != nil {
			log.Fatalf("database: %v", err)
		}
		defer db.Close()
		log.Printf("Event log at %s", cfg.DBPath)
	}
	analytics := NewAnalytics(db)
	defer analytics.Stop()

	rules := DefaultRules()
	rules.MaxHP = cfg.MaxHP
	tokens := NewTokenIssuer(cfg.TokenSecret)
	world := NewWorld(arena, rules, tokens)
	hub := NewHub(cfg.MaxConnsPerIP, cfg.MaxConns)
	srv := NewServer(world, hub, analytics, tokens)
	game := NewGame(world, hub, analytics, cfg.TickRate)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ln, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		log.Fatalf("listen %s: %v", cfg.Addr, err)
	}
	log.Printf("Game server listening on %s (%d Hz)", ln.Addr(), cfg.TickRate)

	go game.Run(ctx)
	go func() {
		if err := srv.ServeTCP(ctx, ln); err != nil {
			log.Printf("accept loop stopped: %v", err)
			stop()
		}
	}()

	var httpServer *http.Server
	if cfg.HTTPAddr != "" {
		joinAddr := cfg.PublicAddr
		if joinAddr == "" {
			joinAddr = ln.Addr().String()
		}
		httpServer = &http.Server{
			Addr:    cfg.HTTPAddr,
			Handler: SetupRoutes(srv, NewAdminAuth(cfg.AdminHash), joinAddr),
		}
		go func() {
			log.Printf("HTTP server starting on %s", cfg.HTTPAddr)
			if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
				log.Fatalf("ListenAndServe: %v", err)
			}
		}()
	}

	<-ctx.Done()
	log.Println("Shutting down...")
	if httpServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		httpServer.Shutdown(shutdownCtx)
	}
}
