package service

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/freshtrade/freshtrade-app-backend/api"
	"github.com/freshtrade/freshtrade-app-backend/db"
	"github.com/freshtrade/freshtrade-app-backend/geocoding"
)

// Config carries everything the service needs to come up.
type Config struct {
	MongoURI      string
	DatabaseName  string
	JwtSecret     string
	RegisterToken string
	NominatimURL  string
	UserAgent     string
	Metrics       bool
	Debug         bool
}

// Service is the main service struct for the API backend.
type Service struct {
	Database *db.Database
	API      *api.API
	conf     *Config
}

// New creates a new API service. It connects the database, creates the
// indexes and wires the geocoder. It also sets the global log level to
// InfoLevel or DebugLevel if debug is true.
// The service must be started with Service.Start().
// The database must be closed with Service.Close().
func New(conf *Config) (*Service, error) {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout}).With().Caller().Logger()
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if conf.Debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	log.Info().Msg("starting app backend")

	database, err := db.New(conf.MongoURI, conf.DatabaseName)
	if err != nil {
		return nil, err
	}
	if err := database.CreateTables(); err != nil {
		return nil, fmt.Errorf("failed to create indexes: %w", err)
	}

	a, err := api.New(&api.APIConfig{
		DB:            database,
		Geocoder:      geocoding.NewNominatim(conf.NominatimURL, conf.UserAgent),
		JwtSecret:     conf.JwtSecret,
		RegisterToken: conf.RegisterToken,
		Debug:         conf.Debug,
	})
	if err != nil {
		return nil, err
	}
	if conf.Metrics {
		a.EnablePrometheusMetrics("")
	}

	return &Service{
		Database: database,
		API:      a,
		conf:     conf,
	}, nil
}

// Start starts the API service.
func (s *Service) Start(host string, port int) {
	s.API.Start(host, port)
}

// Close closes the API service database.
func (s *Service) Close() {
	if err := s.Database.Close(context.Background()); err != nil {
		log.Warn().Err(err).Msg("failed to close database")
	}
}
