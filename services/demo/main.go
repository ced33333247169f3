package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/fydp-portal/internal/config"
	"github.com/fydp-portal/internal/demo"
	"github.com/fydp-portal/internal/logger"
	"github.com/fydp-portal/internal/model"
)

func main() {
	logger.SetPrefix("demo")
	seedUsers := flag.String("users", "", "comma-separated gsuite_id:password[:role] accounts to register at startup")
	noFailures := flag.Bool("no-failures", false, "disable random failure injection")
	flag.Parse()

	logger.Info("starting demo backend")
	cfg := config.Load()
	if *noFailures {
		cfg.Demo.InviteFailRate = 0
		cfg.Demo.CancelFailRate = 0
		cfg.Demo.FinalizeFailRate = 0
	}

	srvDemo := demo.NewServer(cfg.Demo, cfg.MinGroupInvites)
	if err := registerUsers(srvDemo.Store(), *seedUsers); err != nil {
		logger.Errorf("seed users: %v", err)
		os.Exit(1)
	}

	srv := &http.Server{
		Addr:         cfg.ServerAddr,
		Handler:      srvDemo.Routes(cfg.CORSAllowedOrigins),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	var srvWg sync.WaitGroup
	errCh := make(chan error, 1)
	srvWg.Add(1)
	go func() {
		defer srvWg.Done()
		logger.Infof("server listening on %s", cfg.ServerAddr)
		errCh <- srv.ListenAndServe()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Errorf("server error: %v", err)
			os.Exit(1)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("server shutdown: %v", err)
	}
	srvWg.Wait()
	logger.Info("server stopped")
}

// registerUsers заводит учётные записи из флага -users (по умолчанию роль student).
func registerUsers(store *demo.Store, list string) error {
	for _, item := range strings.Split(list, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		parts := strings.SplitN(item, ":", 3)
		if len(parts) < 2 {
			return errors.New("expected gsuite_id:password[:role], got " + item)
		}
		role := model.UserRoleStudent
		if len(parts) == 3 && parts[2] != "" {
			role = model.UserRole(parts[2])
		}
		if _, err := store.SignUp(parts[0], parts[1], role); err != nil {
			return err
		}
		logger.Infof("registered %s (%s)", parts[0], role)
	}
	return nil
}
