// Command intersection-server runs the traffic simulation service: an HTTP
// API for starting signal-controlled intersection runs, streaming frames
// over websockets, and computing signal timings from detection counts.
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/handlers"

	"github.com/greenwave-data/intersection.report/internal/api"
	"github.com/greenwave-data/intersection.report/internal/db"
	"github.com/greenwave-data/intersection.report/internal/flow"
	"github.com/greenwave-data/intersection.report/internal/sim"
	"github.com/greenwave-data/intersection.report/internal/timeutil"
	"github.com/greenwave-data/intersection.report/internal/units"
)

var (
	listen     = flag.String("listen", ":8080", "Listen address")
	dbPath     = flag.String("db", "intersection.db", "Path to the SQLite database")
	speedUnits = flag.String("units", units.PXS, "Display speed unit ("+units.GetValidUnitsString()+")")
)

func main() {
	flag.Parse()

	if *listen == "" {
		log.Fatal("Listen address is required")
	}
	if !units.IsValid(*speedUnits) {
		log.Fatalf("invalid units %q (valid: %s)", *speedUnits, units.GetValidUnitsString())
	}

	database, err := db.Open(*dbPath)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer database.Close()
	if err := database.Migrate(); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	clock := timeutil.RealClock{}
	runs := sim.NewManager()
	flows := flow.NewManager(clock)

	server := api.NewServer(runs, flows, database, clock, *speedUnits)
	cors := handlers.CORS(
		handlers.AllowedOrigins([]string{"*"}),
		handlers.AllowedMethods([]string{"GET", "POST", "DELETE", "OPTIONS"}),
		handlers.AllowedHeaders([]string{"Content-Type"}),
	)
	httpServer := &http.Server{
		Addr:    *listen,
		Handler: api.LoggingMiddleware(cors(server.Router())),
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Printf("listening on %s", *listen)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("shutting down HTTP server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}

	runs.StopAll()
	flows.StopAll()
	log.Println("shutdown complete")
}
