package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/andresl123/food-rescue-live-sub000/internal/config"
	"github.com/andresl123/food-rescue-live-sub000/server"
	"github.com/andresl123/food-rescue-live-sub000/token"
	"github.com/andresl123/food-rescue-live-sub000/token/keys"
	"github.com/andresl123/food-rescue-live-sub000/token/refresh"
	"github.com/andresl123/food-rescue-live-sub000/users/repofake"
)

func main() {
	_ = godotenv.Load()

	for {
		if err := run(); err != nil {
			log.Fatal().Err(err).Msg("error running auth server")
			time.Sleep(1 * time.Second)
		} else {
			break
		}
	}
	log.Info().Msg("auth server stopped")
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("recovered from panic")
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	c := config.New()
	configureLogging(c)
	displayAppname(c.GetAppName())

	material, err := loadKeyMaterial(c)
	if err != nil {
		// Without signing keys nothing downstream can work
		return fmt.Errorf("key material init: %w", err)
	}

	refreshRegistry := refresh.NewRegistry(refresh.WithSweepInterval(c.GetRefreshSweepInterval()))
	refreshRegistry.StartSweeping()
	defer refreshRegistry.Close()

	revocations := token.NewRevocationRegistry(token.WithRevocationSweepInterval(c.GetRefreshSweepInterval()))
	revocations.StartSweeping()
	defer revocations.Close()

	issuer := token.NewIssuer(keys.NewMaterialSigner(material), refreshRegistry,
		c.GetIssuer(), c.GetAudience(),
		token.WithTokenExpiry(c.GetAccessTokenTTL(), c.GetRefreshTokenTTL()))

	verifier := token.NewVerifier(material, c.GetIssuer(), c.GetAudience(),
		token.WithRevocationChecker(revocations),
		token.WithRefreshChecker(refreshRegistry))

	deps := server.Dependencies{
		Principals:      repofake.NewFakePrincipalRepo(),
		KeyMaterial:     material,
		Issuer:          issuer,
		Verifier:        verifier,
		RefreshRegistry: refreshRegistry,
		Revocations:     revocations,
	}

	if clientID := c.GetGoogleClientID(); clientID != "" {
		google, err := server.NewGoogleVerifier(context.Background(), clientID)
		if err != nil {
			return fmt.Errorf("google verifier init: %w", err)
		}
		deps.Google = google
	}

	srv, err := server.New(c, deps)
	if err != nil {
		return fmt.Errorf("server init: %w", err)
	}

	httpServer := &http.Server{Addr: c.GetPort(), Handler: srv}
	go listenAndServe(httpServer)
	waitForStopSignal()
	returnError = shutdown(httpServer)
	return returnError
}

func configureLogging(c config.Config) {
	if c.GetEnv() == "DEV" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
}

func loadKeyMaterial(c config.Config) (*keys.Material, error) {
	privPEM, pubPEM := c.GetPrivateKeyPEM(), c.GetPublicKeyPEM()
	if privPEM == "" && pubPEM == "" {
		log.Warn().Msg("no signing keys configured, generating an ephemeral pair")
		return keys.Generate()
	}
	return keys.New(privPEM, pubPEM)
}

func listenAndServe(server *http.Server) error {
	log.Info().Str("addr", server.Addr).Msg("auth server listening")
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
