package main

import (
	"context"
	"os"
	"time"

	"github.com/giongto35/cloud-call/pkg/config"
	"github.com/giongto35/cloud-call/pkg/logger"
	cos "github.com/giongto35/cloud-call/pkg/os"
	"github.com/giongto35/cloud-call/pkg/signal"
	flag "github.com/spf13/pflag"
)

var Version = "?"

func main() {
	conf, err := config.NewSignalConfig(config.Path(os.Args))
	if err != nil {
		logger.Default().Fatal().Err(err).Msg("config fail")
	}
	conf.AddFlags(flag.CommandLine)
	flag.Parse()

	log := logger.NewConsole(conf.Signal.Debug, "s", conf.Signal.NoColor)
	log.Info().Msgf("version %s", Version)
	if log.GetLevel() < logger.InfoLevel {
		log.Debug().Msgf("config: %+v", conf)
	}

	s, err := signal.New(conf, log)
	if err != nil {
		log.Fatal().Err(err).Msg("init fail")
	}
	s.Start()
	<-cos.ExpectTermination()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("service shutdown errors")
	}
}
