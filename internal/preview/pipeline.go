package preview

import (
	"errors"
	"io"
	"os/exec"
	"strconv"
	"sync"
	"time"

	"github.com/pion/webrtc/v3/pkg/media"
	"github.com/sirupsen/logrus"

	"vsdlisr/internal/rgb"
)

// SampleWriter accepts encoded samples, e.g. *webrtc.TrackLocalStaticSample
// or a SampleBroadcaster.
type SampleWriter interface {
	WriteSample(media.Sample) error
}

// PipelineConfig defines how to produce H.264 and where to send it.
type PipelineConfig struct {
	Width, Height int
	FPS           int
	BitrateKbps   int
	// FFmpeg is the ffmpeg executable; empty means "ffmpeg" on PATH.
	FFmpeg string
	Source Source
	Track  SampleWriter
}

// Stopper is a running pipeline.
type Stopper interface {
	Stop()
}

// Pipeline feeds raw RGB24 frames to ffmpeg and writes the H.264 access
// units it produces to the track.
type Pipeline struct {
	cfg    PipelineConfig
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout io.ReadCloser
	quit   chan struct{}
	once   sync.Once
}

// StartH264Pipeline starts ffmpeg and the pump goroutines.
func StartH264Pipeline(cfg PipelineConfig) (*Pipeline, error) {
	if cfg.Source == nil || cfg.Track == nil {
		return nil, errors.New("pipeline needs a source and a track")
	}
	if cfg.FPS <= 0 {
		cfg.FPS = 30
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, errors.New("pipeline needs a positive frame size")
	}
	if cfg.FFmpeg == "" {
		cfg.FFmpeg = "ffmpeg"
	}
	p := &Pipeline{cfg: cfg}
	if err := p.start(); err != nil {
		return nil, err
	}
	return p, nil
}

func ffmpegArgs(cfg PipelineConfig) []string {
	args := []string{
		"-hide_banner",
		"-f", "rawvideo",
		"-pix_fmt", "rgb24",
		"-s:v", strconv.Itoa(cfg.Width) + "x" + strconv.Itoa(cfg.Height),
		"-r", strconv.Itoa(cfg.FPS),
		"-i", "-",
		"-an",
		"-c:v", "libx264",
		"-preset", "veryfast",
		"-tune", "zerolatency",
		"-pix_fmt", "yuv420p",
	}
	if cfg.BitrateKbps > 0 {
		args = append(args, "-b:v", strconv.Itoa(cfg.BitrateKbps)+"k")
	}
	return append(args, "-f", "h264", "-")
}

func (p *Pipeline) start() error {
	cmd := exec.Command(p.cfg.FFmpeg, ffmpegArgs(p.cfg)...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return err
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return err
	}
	cmd.Stderr = logrus.WithField("component", "ffmpeg").WriterLevel(logrus.DebugLevel)
	if err := cmd.Start(); err != nil {
		return err
	}
	p.cmd, p.stdin, p.stdout = cmd, stdin, stdout
	p.quit = make(chan struct{})

	logrus.WithFields(logrus.Fields{
		"function": "StartH264Pipeline",
		"size":     [2]int{p.cfg.Width, p.cfg.Height},
		"fps":      p.cfg.FPS,
	}).Info("Encoder started")

	go p.pump()
	go p.drain()
	return nil
}

// pump writes one source frame per tick to ffmpeg.
func (p *Pipeline) pump() {
	ticker := time.NewTicker(time.Second / time.Duration(p.cfg.FPS))
	defer ticker.Stop()
	want := rgb.Size(p.cfg.Width, p.cfg.Height)
	for {
		select {
		case <-p.quit:
			return
		case <-ticker.C:
		}
		frame, ok := p.cfg.Source.Next()
		if !ok {
			return
		}
		if len(frame) != want {
			continue
		}
		if _, err := p.stdin.Write(frame); err != nil {
			return
		}
		framesWritten.Add(1)
	}
}

// drain splits ffmpeg's Annex B output into access units.
func (p *Pipeline) drain() {
	r := newAnnexBReader(p.stdout)
	dur := time.Second / time.Duration(p.cfg.FPS)
	for {
		au, err := r.ReadAccessUnit()
		if err != nil {
			return
		}
		if len(au) == 0 {
			continue
		}
		if err := p.cfg.Track.WriteSample(media.Sample{Data: au, Duration: dur}); err == nil {
			samplesSent.Add(1)
		}
	}
}

// Stop terminates ffmpeg and stops the source. It is safe to call twice.
func (p *Pipeline) Stop() {
	p.once.Do(func() {
		close(p.quit)
		_ = p.stdin.Close()
		if p.cmd != nil {
			_ = p.cmd.Process.Kill()
			_ = p.cmd.Wait()
		}
		p.cfg.Source.Stop()
	})
}
