package main

import (
	"crypto/rand"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	flag "github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/rs/zerolog/log"

	"github.com/freshtrade/freshtrade-app-backend/geocoding"
	"github.com/freshtrade/freshtrade-app-backend/service"
)

func main() {
	flag.Bool("debug", false, "sets log level to debug")
	flag.Int("port", 3333, "sets the port to listen on")
	flag.String("host", "0.0.0.0", "sets the host to listen on")
	flag.String("secret", "", "sets the secret for JWT")
	flag.String("mongo", "mongodb://localhost:27017", "sets the mongo URI")
	flag.String("database", "freshtrade", "sets the mongo database name")
	flag.String("registerAuthToken", "", "sets the registerAuthToken new users need to provide")
	flag.String("nominatimURL", geocoding.DefaultNominatimURL, "sets the nominatim base URL")
	flag.String("geocoderUserAgent", "freshtrade-app-backend", "sets the User-Agent sent to the geocoder")
	flag.Bool("metrics", false, "enables prometheus metrics")

	flag.Parse()

	// Initialize Viper
	viper.SetEnvPrefix("FRESHTRADE")
	if err := viper.BindPFlags(flag.CommandLine); err != nil {
		panic(err)
	}
	viper.AutomaticEnv()
	// read the configuration
	host := viper.GetString("host")
	port := viper.GetInt("port")
	secret := viper.GetString("secret")
	mongoURI := viper.GetString("mongo")
	databaseName := viper.GetString("database")
	registerAuthToken := viper.GetString("registerAuthToken")
	nominatimURL := viper.GetString("nominatimURL")
	geocoderUserAgent := viper.GetString("geocoderUserAgent")
	metrics := viper.GetBool("metrics")
	debug := viper.GetBool("debug")

	// if no secret is provided, generate a random one
	if secret == "" {
		sb := make([]byte, 32)
		if _, err := rand.Read(sb); err != nil {
			log.Fatal().Err(err).Msg("failed to generate random secret")
		}
		secret = fmt.Sprintf("%x", sb)
		log.Warn().Msgf("no secret provided, using %s", secret)
	}

	log.Info().Msgf("connecting to database at %s", mongoURI)
	s, err := service.New(&service.Config{
		MongoURI:      mongoURI,
		DatabaseName:  databaseName,
		JwtSecret:     secret,
		RegisterToken: registerAuthToken,
		NominatimURL:  nominatimURL,
		UserAgent:     geocoderUserAgent,
		Metrics:       metrics,
		Debug:         debug,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create service")
	}
	defer s.Close()
	s.Start(host, port)

	log.Info().Msg("startup complete")

	// close if interrupt received
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c
	log.Warn().Msgf("received SIGTERM, exiting at %s", time.Now().Format(time.RFC850))
}
