package main

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config is the resolved server configuration
type Config struct {
	Addr          string // TCP game listener
	HTTPAddr      string // HTTP listener for /ws, stats and admin; empty disables
	MapPath       string // Tiled .tmx arena; empty uses the built-in arena
	TickRate      int
	MaxHP         int
	DBPath        string // SQLite event log; empty disables
	TokenSecret   string
	AdminHash     string // bcrypt hash of the admin password
	MaxConnsPerIP int
	MaxConns      int
	PublicAddr    string // address advertised in the join QR code
}

// loadEnvFile loads a .env file into the environment if one exists.
// Variables already set take precedence.
func loadEnvFile(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	log.Printf("Loaded environment from %s", path)
	return nil
}

func envString(key, def string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return def
}

func envInt(key string, def int) (int, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

// ParseConfig resolves flags over environment defaults over built-ins
func ParseConfig(args []string) (*Config, error) {
	tickRate, err := envInt("TANKS_TICKRATE", DefaultTickRate)
	if err != nil {
		return nil, err
	}
	maxHP, err := envInt("TANKS_MAX_HP", DefaultRules().MaxHP)
	if err != nil {
		return nil, err
	}

	cfg := &Config{}
	fset := flag.NewFlagSet("tanks-server", flag.ContinueOnError)
	fset.StringVar(&cfg.Addr, "addr", envString("TANKS_ADDR", ":5000"), "TCP game listen address")
	fset.StringVar(&cfg.HTTPAddr, "http", envString("TANKS_HTTP", ":8080"), "HTTP listen address (empty disables)")
	fset.StringVar(&cfg.MapPath, "map", envString("TANKS_MAP", ""), "Path to a Tiled .tmx arena")
	fset.IntVar(&cfg.TickRate, "tickrate", tickRate, "Simulation ticks per second")
	fset.IntVar(&cfg.MaxHP, "max-hp", maxHP, "Tank health")
	fset.StringVar(&cfg.DBPath, "db", envString("TANKS_DB", ""), "SQLite event log path (empty disables)")
	fset.StringVar(&cfg.TokenSecret, "token-secret", envString("TANKS_TOKEN_SECRET", ""), "Identity token signing secret (random if empty)")
	fset.StringVar(&cfg.AdminHash, "admin-hash", envString("TANKS_ADMIN_HASH", ""), "bcrypt hash of the admin password (empty disables admin)")
	fset.IntVar(&cfg.MaxConnsPerIP, "max-conns-per-ip", defaultMaxConnsPerIP, "Connection limit per remote IP")
	fset.IntVar(&cfg.MaxConns, "max-conns", defaultMaxTotalConns, "Total connection limit")
	fset.StringVar(&cfg.PublicAddr, "public-addr", envString("TANKS_PUBLIC_ADDR", ""), "Game address shown in the join QR code")
	if err := fset.Parse(args); err != nil {
		return nil, err
	}

	if cfg.TickRate < 1 || cfg.TickRate > 1000 {
		return nil, fmt.Errorf("tickrate %d out of range 1..1000", cfg.TickRate)
	}
	if cfg.MaxHP < 1 {
		return nil, fmt.Errorf("max-hp %d must be at least 1", cfg.MaxHP)
	}
	return cfg, nil
}
