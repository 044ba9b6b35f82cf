package main

import (
	"bufio"
	"context"
	"errors"
	"os"
	"time"

	"github.com/giongto35/cloud-call/pkg/api"
	"github.com/giongto35/cloud-call/pkg/call"
	"github.com/giongto35/cloud-call/pkg/client"
	"github.com/giongto35/cloud-call/pkg/config"
	"github.com/giongto35/cloud-call/pkg/logger"
	cos "github.com/giongto35/cloud-call/pkg/os"
	"github.com/giongto35/cloud-call/pkg/peer"
	"github.com/pion/webrtc/v3"
	flag "github.com/spf13/pflag"
)

var Version = "?"

func main() {
	conf, err := config.NewPeerConfig(config.Path(os.Args))
	if err != nil {
		logger.Default().Fatal().Err(err).Msg("config fail")
	}
	conf.AddFlags(flag.CommandLine)
	flag.Parse()

	log := logger.NewConsole(conf.Peer.Debug, "p", conf.Peer.NoColor)
	log.Info().Msgf("version %s", Version)
	if log.GetLevel() < logger.InfoLevel {
		log.Debug().Msgf("config: %+v", conf)
	}

	factory, err := peer.NewApiFactory(conf.Webrtc, log, nil)
	if err != nil {
		log.Fatal().Err(err).Msg("WebRTC init fail")
	}

	signaling := client.New(conf.Peer, log)
	engine := peer.NewEngine(factory, peer.NewMedia(conf.Peer.Media, log), signaling, log)
	dir := call.NewDirectory()
	ctrl := call.NewController(engine, dir, log)
	signaling.Bind(ctrl, dir)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	engine.OnTrack(func(id api.Id, track peer.Track) {
		log.Info().Str("from", id.String()).Str("kind", track.Kind().String()).Msg("Remote track")
		ctrl.TrackArrived(id)
	})
	engine.OnState(func(id api.Id, state webrtc.PeerConnectionState) {
		if state == webrtc.PeerConnectionStateFailed {
			log.Warn().Str("peer", id.String()).Msg("Connection has failed, hang up to start over")
		}
	})
	ctrl.OnChange(func(from, to call.State, id api.Id) {
		log.Info().Str("peer", id.String()).Msgf("%v -> %v", from, to)
		if to == call.Ringing && conf.Peer.AutoAccept {
			go func() {
				if err := ctrl.Accept(ctx); err != nil {
					log.Error().Err(err).Msg("auto-accept fail")
				}
			}()
		}
	})

	done := make(chan error, 1)
	go func() { done <- signaling.Run(ctx) }()
	go dir.Watch(ctx, conf.Peer.Poll, func(ids []api.Id) {
		log.Info().Msgf("Peers: %v", ids)
	})
	if target := api.Id(conf.Peer.Call); !target.IsEmpty() {
		go callWhenSeen(ctx, ctrl, dir, target, conf.Peer.Poll, log)
	}

	sh := newShell(ctrl, dir, signaling, os.Stdout)
	quit := make(chan struct{})
	go func() {
		sh.run(ctx, bufio.NewScanner(os.Stdin))
		close(quit)
	}()

	select {
	case <-cos.ExpectTermination():
	case <-quit:
	case err := <-done:
		if err != nil && !errors.Is(err, context.Canceled) {
			log.Error().Err(err).Msg("signaling")
		}
	}
	cancel()
	if err := ctrl.HangUp(); err != nil {
		log.Error().Err(err).Msg("hang up")
	}
}

// callWhenSeen waits until the target shows up and calls it once.
func callWhenSeen(ctx context.Context, ctrl *call.Controller, dir *call.Directory, target api.Id, every time.Duration, log *logger.Logger) {
	if every <= 0 {
		every = time.Second
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		if dir.Has(target) {
			if err := ctrl.Start(ctx, target); err != nil {
				log.Error().Err(err).Msgf("call %v fail", target)
			}
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
