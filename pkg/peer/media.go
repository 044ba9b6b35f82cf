package peer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"sync"
	"time"

	"github.com/giongto35/cloud-call/pkg/config"
	"github.com/giongto35/cloud-call/pkg/logger"
	cos "github.com/giongto35/cloud-call/pkg/os"
	"github.com/pion/webrtc/v3"
	"github.com/pion/webrtc/v3/pkg/media"
	"github.com/pion/webrtc/v3/pkg/media/ivfreader"
	"github.com/pion/webrtc/v3/pkg/media/oggreader"
)

const (
	audioFrame = 20 * time.Millisecond
	streamId   = "cloud-call"
)

// opusSilence is one 20ms Opus frame of silence.
var opusSilence = []byte{0xf8, 0xff, 0xfe}

var ErrNoMediaSource = errors.New("no media source")

// MediaSource captures local media.
type MediaSource interface {
	Capture(ctx context.Context) (*LocalStream, error)
}

// LocalStream is a set of local tracks fed by background writers.
type LocalStream struct {
	tracks []webrtc.TrackLocal
	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
}

func (s *LocalStream) Tracks() []webrtc.TrackLocal { return s.tracks }

// Stop stops all the writers, safe to call many times.
func (s *LocalStream) Stop() {
	s.once.Do(func() {
		if s.cancel != nil {
			s.cancel()
		}
		s.wg.Wait()
	})
}

func (s *LocalStream) start(ctx context.Context, fn func(ctx context.Context)) {
	s.wg.Add(1)
	go func() { defer s.wg.Done(); fn(ctx) }()
}

// Media makes local streams out of config.
type Media struct {
	conf config.Media
	log  *logger.Logger
}

func NewMedia(conf config.Media, log *logger.Logger) *Media { return &Media{conf: conf, log: log} }

func (m *Media) Capture(ctx context.Context) (*LocalStream, error) {
	if m.conf.Audio == "" && m.conf.Video == "" && m.conf.NoSilence {
		return nil, ErrNoMediaSource
	}
	// checked before anything starts
	for _, f := range []string{m.conf.Audio, m.conf.Video} {
		if f == "" {
			continue
		}
		if !cos.Exists(f) {
			return nil, fmt.Errorf("%w: %v", fs.ErrNotExist, f)
		}
	}

	// the stream outlives the capture call
	sctx, cancel := context.WithCancel(context.Background())
	s := &LocalStream{cancel: cancel}

	if m.conf.Audio != "" {
		track, err := webrtc.NewTrackLocalStaticSample(webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeOpus}, "audio", streamId)
		if err != nil {
			cancel()
			return nil, err
		}
		s.tracks = append(s.tracks, track)
		s.start(sctx, func(ctx context.Context) { m.loop(ctx, "audio", func() error { return playOgg(ctx, m.conf.Audio, track) }) })
	} else if !m.conf.NoSilence {
		track, err := webrtc.NewTrackLocalStaticSample(webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeOpus}, "audio", streamId)
		if err != nil {
			cancel()
			return nil, err
		}
		s.tracks = append(s.tracks, track)
		s.start(sctx, func(ctx context.Context) { silence(ctx, track) })
	}

	if m.conf.Video != "" {
		track, err := webrtc.NewTrackLocalStaticSample(webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeVP8}, "video", streamId)
		if err != nil {
			s.Stop()
			return nil, err
		}
		s.tracks = append(s.tracks, track)
		s.start(sctx, func(ctx context.Context) { m.loop(ctx, "video", func() error { return playIvf(ctx, m.conf.Video, track) }) })
	}

	if err := ctx.Err(); err != nil {
		s.Stop()
		return nil, err
	}
	return s, nil
}

// loop replays a file until the stream is stopped.
func (m *Media) loop(ctx context.Context, kind string, play func() error) {
	for {
		err := play()
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			m.log.Error().Err(err).Str("kind", kind).Msg("media file")
			return
		}
		if m.conf.NoLoop {
			return
		}
	}
}

type sampleWriter interface {
	WriteSample(s media.Sample) error
}

func silence(ctx context.Context, track sampleWriter) {
	ticker := time.NewTicker(audioFrame)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := track.WriteSample(media.Sample{Data: opusSilence, Duration: audioFrame}); err != nil {
				return
			}
		}
	}
}

func playOgg(ctx context.Context, path string, track sampleWriter) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer func() { _ = file.Close() }()

	ogg, _, err := oggreader.NewWith(file)
	if err != nil {
		return fmt.Errorf("ogg: %w", err)
	}

	ticker := time.NewTicker(audioFrame)
	defer ticker.Stop()
	var lastGranule uint64
	for {
		page, header, err := ogg.ParseNextPage()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		samples := float64(header.GranulePosition - lastGranule)
		lastGranule = header.GranulePosition
		duration := time.Duration((samples/48000)*1000) * time.Millisecond

		if err = track.WriteSample(media.Sample{Data: page, Duration: duration}); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func playIvf(ctx context.Context, path string, track sampleWriter) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer func() { _ = file.Close() }()

	ivf, header, err := ivfreader.NewWith(file)
	if err != nil {
		return fmt.Errorf("ivf: %w", err)
	}
	if header.TimebaseDenominator == 0 {
		return fmt.Errorf("ivf: bad timebase")
	}
	frame := time.Millisecond * time.Duration((float32(header.TimebaseNumerator)/float32(header.TimebaseDenominator))*1000)
	if frame <= 0 {
		frame = 33 * time.Millisecond
	}

	ticker := time.NewTicker(frame)
	defer ticker.Stop()
	for {
		data, _, err := ivf.ParseNextFrame()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if err = track.WriteSample(media.Sample{Data: data, Duration: frame}); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
