package main

import (
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/ridenav/rideengine/pkg/kv"
	"github.com/ridenav/rideengine/pkg/location"
	"github.com/ridenav/rideengine/pkg/matching"
	"github.com/ridenav/rideengine/pkg/server/rest"
	"github.com/ridenav/rideengine/pkg/server/rest/service"
	"github.com/ridenav/rideengine/pkg/tracking"

	"github.com/dgraph-io/badger/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
)

var (
	listenAddr = flag.String("listenaddr", ":5000", "server listen address")
	cacheDir   = flag.String("cachedir", "./rideengine-cache", "snap result cache directory")
	matchURL   = flag.String("matchurl", "https://api.mapbox.com", "map matching service base url")
	profile    = flag.String("profile", "driving", "map matching routing profile")
)

func main() {
	flag.Parse()

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("reading .env: %v", err)
	}
	accessToken := os.Getenv("MATCH_ACCESS_TOKEN")
	if accessToken == "" {
		log.Printf("MATCH_ACCESS_TOKEN not set, routes will not be map matched")
	}

	db, err := badger.Open(badger.DefaultOptions(*cacheDir))
	if err != nil {
		log.Fatal(err)
	}

	snapCache := kv.NewSnapResultCache(db)
	defer snapCache.Close()

	matcher := matching.NewClient(*matchURL, *profile, accessToken)
	controller := tracking.NewController(tracking.DefaultConfig())
	pipeline := location.NewPipeline(location.DefaultConfig())

	navigationSvc := service.NewNavigationService(matcher, snapCache, controller,
		pipeline, *profile)

	reg := prometheus.NewRegistry()
	m := rest.NewMetrics(reg)

	r := chi.NewRouter()

	r.Use(middleware.Logger)

	r.Use(rest.PromeHttpMiddleware(m)) // prometheus http middleware
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	rest.NavigationRouter(r, navigationSvc)

	fmt.Printf("\nserver started at %s\n", *listenAddr)

	log.Fatal(http.ListenAndServe(*listenAddr, r))
}
