package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"livetrack-map/internal/mapview"
)

// Default returns the configuration used when nothing overrides it.
func Default() AppConfig {
	opts := mapview.DefaultOptions()
	return AppConfig{
		Server: ServerConfig{
			Port:            8080,
			ShutdownTimeout: 10 * time.Second,
			StaticDir:       "./static",
			SessionQueue:    64,
		},
		Map: MapConfig{
			TileURL:     opts.Tiles.URL,
			Attribution: opts.Tiles.Attribution,
			MinZoom:     opts.Tiles.MinZoom,
			MaxZoom:     opts.Tiles.MaxZoom,
			CenterLat:   opts.Center.Lat,
			CenterLon:   opts.Center.Lng,
			Zoom:        opts.Zoom,
			VehicleZoom: opts.VehicleZoom,
		},
		Feeds: FeedsConfig{
			RefreshMinSecs: 10,
			TimeoutSecs:    10,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads the YAML file at path over the defaults and applies environment
// overrides. An empty path skips the file. The result is not validated:
// callers apply flag overrides first and then call Validate.
func Load(path string) (AppConfig, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := ApplyEnv(&cfg, os.LookupEnv); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// ApplyEnv overrides cfg from LIVEMAP_* variables.
func ApplyEnv(cfg *AppConfig, lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int) error {
		v, ok := lookup(key)
		if !ok || v == "" {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = n
		return nil
	}

	if err := num("LIVEMAP_PORT", &cfg.Server.Port); err != nil {
		return err
	}
	str("LIVEMAP_STATIC_DIR", &cfg.Server.StaticDir)
	str("LIVEMAP_TILE_URL", &cfg.Map.TileURL)
	str("LIVEMAP_PEOPLE_URL", &cfg.Feeds.PeopleURL)
	str("LIVEMAP_VEHICLE_URL", &cfg.Feeds.VehicleURL)
	str("LIVEMAP_GTFSRT_URL", &cfg.Feeds.GtfsRtURL)
	str("LIVEMAP_GTFSRT_VEHICLE_ID", &cfg.Feeds.GtfsRtVehicleID)
	if err := num("LIVEMAP_REFRESH_MIN_SECS", &cfg.Feeds.RefreshMinSecs); err != nil {
		return err
	}
	str("LIVEMAP_LOG_LEVEL", &cfg.Log.Level)
	str("LIVEMAP_LOG_FORMAT", &cfg.Log.Format)
	if v, ok := lookup("LIVEMAP_FOLLOW_VEHICLE"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("LIVEMAP_FOLLOW_VEHICLE: %w", err)
		}
		cfg.Map.FollowVehicle = b
	}
	return nil
}

// Validate checks every section of cfg.
func Validate(cfg AppConfig) error {
	v := validator.New()
	if err := v.Struct(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// MapOptions converts the map section into view options.
func (c AppConfig) MapOptions() mapview.Options {
	return mapview.Options{
		Tiles: mapview.TileLayer{
			URL:         c.Map.TileURL,
			Attribution: c.Map.Attribution,
			MinZoom:     c.Map.MinZoom,
			MaxZoom:     c.Map.MaxZoom,
		},
		Center:        mapview.LatLng{Lat: c.Map.CenterLat, Lng: c.Map.CenterLon},
		Zoom:          c.Map.Zoom,
		VehicleZoom:   c.Map.VehicleZoom,
		FollowVehicle: c.Map.FollowVehicle,
		Icon:          mapview.IconOptions{ShowBody: c.Map.ShowBody},
	}
}
