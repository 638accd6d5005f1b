package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/campuskit/go-attendance-engine/attendance"
	"github.com/campuskit/go-attendance-engine/attendance/repofakes"
	"github.com/campuskit/go-attendance-engine/internal/config"
	"github.com/campuskit/go-attendance-engine/ratelimit"
	"github.com/campuskit/go-attendance-engine/server"
	"github.com/campuskit/go-attendance-engine/token"
	"github.com/campuskit/go-attendance-engine/token/codec"
	"github.com/common-nighthawk/go-figure"
)

func main() {
	for {
		if err := run(); err != nil {
			log.Fatalf("Error running server: %s\n", err)
			time.Sleep(1 * time.Second)
		} else {
			break
		}
	}
	log.Printf("Server stopped\n")
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Recovered from panic: %v\n", r)
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	c := config.New()
	displayAppname(c.GetAppName())

	srv, err := buildServer(c)
	if err != nil {
		return err
	}

	httpServer := &http.Server{Addr: c.GetPort(), Handler: srv}
	go listenAndServe(httpServer)
	waitForStopSignal()
	returnError = shutdown(httpServer)
	return returnError
}

func buildServer(c config.Config) (*server.Server, error) {
	// Refuses to start without an explicit secret: there is no fallback key.
	cdc, err := codec.New(c.GetTokenSecret())
	if err != nil {
		return nil, fmt.Errorf("token codec: %w (set TOKEN_SECRET)", err)
	}

	issuer, err := token.NewIssuer(cdc)
	if err != nil {
		return nil, err
	}

	windows := ratelimit.NewInMemoryWindowRepo()
	go evictStaleWindows(windows)

	limiter, err := ratelimit.NewLimiter(windows)
	if err != nil {
		return nil, err
	}

	validator, err := token.NewValidator(cdc, limiter)
	if err != nil {
		return nil, err
	}

	// In-memory stores; the production deployment swaps these for the
	// document-database collaborator.
	repos := attendance.Repos{
		Sessions: repofakes.NewFakeSessionRepo(),
		Records:  repofakes.NewFakeRecordRepo(),
	}

	engine, err := attendance.NewEngine(repos, validator)
	if err != nil {
		return nil, err
	}

	return server.New(c, repos, engine, issuer)
}

// evictStaleWindows drops rate-limit windows whose last attempt fell out of
// the counting window some time ago.
func evictStaleWindows(windows *ratelimit.InMemoryWindowRepo) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for range ticker.C {
		cutoff := time.Now().Add(-2 * ratelimit.DefaultWindow).UnixMilli()
		if err := windows.DeleteExpired(cutoff); err != nil {
			log.Printf("Evicting rate-limit windows: %v\n", err)
		}
	}
}

func listenAndServe(server *http.Server) error {
	log.Printf("Server listening on %s\n", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server.ListenAndServe %w", err)
	}
	return nil
}

func waitForStopSignal() {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
