package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"livetrack-map/internal/config"
	"livetrack-map/internal/mapview"
)

var (
	configPath      = flag.String("config", "", "YAML config file")
	httpPort        = flag.Int("port", 8080, "HTTP port")
	shutdownTimeout = flag.Duration("shutdown_timeout", 10*time.Second, "HTTP server shutdown timeout")
	staticDir       = flag.String("static_dir", "./static", "Directory served at /")
	peopleURL       = flag.String("people_url", "", "People feed URL (JSON)")
	vehicleURL      = flag.String("vehicle_url", "", "Vehicle state feed URL (JSON)")
	gtfsrtURL       = flag.String("gtfsrt_url", "", "GTFS-RT vehicle positions URL (protobuf)")
	gtfsrtVehicle   = flag.String("gtfsrt_vehicle_id", "", "Vehicle id to follow in the GTFS-RT feed")
	refreshMinSecs  = flag.Int("refresh_min_secs", 10, "Minimum refresh interval in seconds")
	followVehicle   = flag.Bool("follow_vehicle", false, "Recenter the map on every vehicle update")
	logLevel        = flag.String("log_level", "info", "Log level")
)

func main() {
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		logrus.Debug("no .env file found (using environment variables)")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		logrus.WithError(err).Fatal("load config")
	}
	applyFlags(&cfg)
	if err := config.Validate(cfg); err != nil {
		logrus.WithError(err).Fatal("config")
	}

	log, err := newLogger(cfg.Log)
	if err != nil {
		logrus.WithError(err).Fatal("logger")
	}

	hub := newHub(cfg.MapOptions(), cfg.Server.SessionQueue, log)

	mux := http.NewServeMux()
	registerRoutes(mux, hub, cfg.Server.StaticDir, log)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Infof("server starting on http://localhost:%d/", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server error")
		}
	}()

	// start pollers
	pctx, pcancel := context.WithCancel(context.Background())
	for _, p := range buildPollers(cfg.Feeds, hub, log) {
		go p.run(pctx)
	}

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs
	log.Info("shutdown initiated...")

	pcancel()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.WithError(err).Error("HTTP server shutdown error")
	} else {
		log.Info("HTTP server shut down successfully")
	}
	hub.closeAll()
}

// applyFlags lets flags given on the command line win over file and env.
func applyFlags(cfg *config.AppConfig) {
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "port":
			cfg.Server.Port = *httpPort
		case "shutdown_timeout":
			cfg.Server.ShutdownTimeout = *shutdownTimeout
		case "static_dir":
			cfg.Server.StaticDir = *staticDir
		case "people_url":
			cfg.Feeds.PeopleURL = *peopleURL
		case "vehicle_url":
			cfg.Feeds.VehicleURL = *vehicleURL
		case "gtfsrt_url":
			cfg.Feeds.GtfsRtURL = *gtfsrtURL
		case "gtfsrt_vehicle_id":
			cfg.Feeds.GtfsRtVehicleID = *gtfsrtVehicle
		case "refresh_min_secs":
			cfg.Feeds.RefreshMinSecs = *refreshMinSecs
		case "follow_vehicle":
			cfg.Map.FollowVehicle = *followVehicle
		case "log_level":
			cfg.Log.Level = *logLevel
		}
	})
}

func newLogger(c config.LogConfig) (*logrus.Logger, error) {
	log := logrus.New()
	level, err := logrus.ParseLevel(c.Level)
	if err != nil {
		return nil, err
	}
	log.SetLevel(level)
	if c.Format == "json" {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return log, nil
}

// buildPollers returns one poller per configured feed. A GTFS-RT feed and a
// JSON vehicle feed would fight over the single vehicle marker, so the JSON
// feed wins when both are set.
func buildPollers(c config.FeedsConfig, pub publisher, log logrus.FieldLogger) []*poller {
	timeout := time.Duration(c.TimeoutSecs) * time.Second
	var out []*poller
	if c.PeopleURL != "" {
		src := NewJSONEventSource(c.PeopleURL, mapview.EventPerson, timeout)
		out = append(out, newPoller("people", src, pub, c.RefreshMinSecs, timeout, log))
	}
	switch {
	case c.VehicleURL != "":
		if c.GtfsRtURL != "" {
			log.Warn("both vehicle_url and gtfsrt_url set; using vehicle_url")
		}
		src := NewJSONEventSource(c.VehicleURL, mapview.EventVehicle, timeout)
		out = append(out, newPoller("vehicle", src, pub, c.RefreshMinSecs, timeout, log))
	case c.GtfsRtURL != "":
		src := NewGtfsRtVehicleSource(c.GtfsRtURL, c.GtfsRtVehicleID, timeout)
		out = append(out, newPoller("gtfsrt", src, pub, c.RefreshMinSecs, timeout, log))
	}
	return out
}
