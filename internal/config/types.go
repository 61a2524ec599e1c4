package config

import "time"

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port            int           `yaml:"port" validate:"gt=0,lte=65535"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout" validate:"gte=0"`
	StaticDir       string        `yaml:"staticDir"`
	// SessionQueue bounds the pending events per live session
	SessionQueue int `yaml:"sessionQueue" validate:"gt=0"`
}

// MapConfig contains map view configuration
type MapConfig struct {
	TileURL       string  `yaml:"tileURL" validate:"required"`
	Attribution   string  `yaml:"attribution"`
	MinZoom       int     `yaml:"minZoom" validate:"gte=0,ltefield=MaxZoom"`
	MaxZoom       int     `yaml:"maxZoom" validate:"gte=0,lte=22"`
	CenterLat     float64 `yaml:"centerLat" validate:"gte=-90,lte=90"`
	CenterLon     float64 `yaml:"centerLon" validate:"gte=-180,lte=180"`
	Zoom          int     `yaml:"zoom" validate:"gte=0,lte=22"`
	VehicleZoom   int     `yaml:"vehicleZoom" validate:"gte=0,lte=22"`
	FollowVehicle bool    `yaml:"followVehicle"`
	ShowBody      bool    `yaml:"showBody"`
}

// FeedsConfig contains the optional pull feeds
type FeedsConfig struct {
	PeopleURL       string `yaml:"peopleURL" validate:"omitempty,url"`
	VehicleURL      string `yaml:"vehicleURL" validate:"omitempty,url"`
	GtfsRtURL       string `yaml:"gtfsrtURL" validate:"omitempty,url"`
	GtfsRtVehicleID string `yaml:"gtfsrtVehicleID"`
	RefreshMinSecs  int    `yaml:"refreshMinSecs" validate:"gt=0"`
	TimeoutSecs     int    `yaml:"timeoutSecs" validate:"gt=0"`
}

// LogConfig contains logging configuration
type LogConfig struct {
	Level  string `yaml:"level" validate:"oneof=trace debug info warn warning error"`
	Format string `yaml:"format" validate:"oneof=text json"`
}

// AppConfig is the root configuration structure
type AppConfig struct {
	Server ServerConfig `yaml:"server" validate:"required"`
	Map    MapConfig    `yaml:"map" validate:"required"`
	Feeds  FeedsConfig  `yaml:"feeds"`
	Log    LogConfig    `yaml:"log"`
}
