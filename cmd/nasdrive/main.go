package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-pkgz/lgr"
	"golang.org/x/crypto/bcrypt"

	"nasdrive/internal/config"
	"nasdrive/internal/httpserver"
)

var revision = "unknown"

func main() {
	if len(os.Args) > 1 && os.Args[1] == "passwd" {
		passwdCmd(os.Args[2:])
		return
	}

	var (
		addr     = flag.String("addr", "", "listen address (default "+config.DefaultListen+")")
		root     = flag.String("root", "", "base directory to serve (required if -config is not set)")
		user     = flag.String("user", "", "login username")
		password = flag.String("password", "", "login password (prefer passwordBcrypt in -config)")
		cfgPath  = flag.String("config", "", "path to config file, .json or .yaml (optional)")
		dbg      = flag.Bool("dbg", false, "debug logging")
	)
	flag.Parse()
	setupLog(*dbg)

	var cfg config.Config
	if *cfgPath != "" {
		c, err := config.Load(*cfgPath)
		if err != nil {
			lgr.Fatalf("[ERROR] %v", err)
		}
		cfg = c
	} else if strings.TrimSpace(*root) == "" {
		lgr.Fatalf("[ERROR] missing -root (or provide -config)")
	}
	// flags override the file
	if *root != "" {
		cfg.Root = *root
	}
	if *addr != "" {
		cfg.Listen = *addr
	}
	if *user != "" {
		cfg.Username = *user
	}
	if *password != "" {
		cfg.Password = *password
		cfg.PasswordBcrypt = ""
	}
	if err := cfg.Normalize(); err != nil {
		lgr.Fatalf("[ERROR] %v", err)
	}

	srv, err := httpserver.New(httpserver.Options{Config: cfg, Version: revision})
	if err != nil {
		lgr.Fatalf("[ERROR] server init: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	lgr.Printf("[INFO] nasdrive %s listening on http://%s (root=%s)", revision, cfg.Listen, cfg.Root)
	if !cfg.DisableWebDAV {
		lgr.Printf("[INFO] webdav endpoint: http://%s/.nasdrive/dav/", cfg.Listen)
	}
	if err := run(ctx, cfg.Listen, srv.Handler()); err != nil {
		lgr.Fatalf("[ERROR] %v", err)
	}
}

func run(ctx context.Context, addr string, h http.Handler) error {
	httpSrv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}
	errs := make(chan error, 1)
	go func() { errs <- httpSrv.ListenAndServe() }()

	select {
	case err := <-errs:
		return fmt.Errorf("listen: %w", err)
	case <-ctx.Done():
		lgr.Printf("[INFO] shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	}
}

func setupLog(dbg bool) {
	if dbg {
		lgr.Setup(lgr.Debug, lgr.CallerFile, lgr.Msec, lgr.LevelBraces)
		return
	}
	lgr.Setup(lgr.Msec, lgr.LevelBraces)
}

func passwdCmd(args []string) {
	fs := flag.NewFlagSet("passwd", flag.ExitOnError)
	var (
		password = fs.String("p", "", "password (required)")
		cost     = fs.Int("cost", bcrypt.DefaultCost, "bcrypt cost")
	)
	_ = fs.Parse(args)
	if *password == "" {
		fmt.Fprintln(os.Stderr, "usage: nasdrive passwd -p <password>")
		os.Exit(2)
	}
	if *cost < bcrypt.MinCost || *cost > bcrypt.MaxCost {
		fmt.Fprintf(os.Stderr, "invalid cost %d (min=%d max=%d)\n", *cost, bcrypt.MinCost, bcrypt.MaxCost)
		os.Exit(2)
	}
	h, err := bcrypt.GenerateFromPassword([]byte(*password), *cost)
	if err != nil {
		lgr.Fatalf("[ERROR] bcrypt: %v", err)
	}
	fmt.Println(string(h))
}
