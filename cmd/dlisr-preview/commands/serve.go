package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"vsdlisr/internal/config"
	"vsdlisr/internal/dlisr"
	"vsdlisr/internal/gpu"
	"vsdlisr/internal/logging"
	"vsdlisr/internal/ngx"
	"vsdlisr/internal/ngx/hostfeature"
	"vsdlisr/internal/preview"
	"vsdlisr/internal/version"
	"vsdlisr/internal/vs"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the WHEP preview server",
	Long: `Start an HTTP server that renders a synthetic clip through DLISR and
streams it over WHEP. Open the server's root page in a browser and press Play.

With --device host the NGX feature is replaced by nearest-neighbour
upscaling on host memory, which needs neither CUDA nor the SDK.`,
	RunE: runServe,
}

// flag name -> config key
var serveFlags = map[string]string{
	"addr":    "preview.addr",
	"width":   "preview.width",
	"height":  "preview.height",
	"fps":     "preview.fps",
	"scale":   "preview.scale",
	"bitrate": "preview.bitrate_kbps",
	"ffmpeg":  "preview.ffmpeg",
	"device":  "preview.device",
	"log":     "logging.level",
}

func init() {
	addServeFlags(serveCmd.Flags())
	rootCmd.AddCommand(serveCmd)
}

func addServeFlags(f *pflag.FlagSet) {
	d := config.DefaultConfig()
	f.String("addr", d.Preview.Addr, "listen address")
	f.Int("width", d.Preview.Width, "source clip width")
	f.Int("height", d.Preview.Height, "source clip height")
	f.Int("fps", d.Preview.FPS, "frames per second")
	f.Int("scale", d.Preview.Scale, "upscale factor (rfactor)")
	f.Int("bitrate", d.Preview.Bitrate, "H.264 bitrate in kbit/s")
	f.String("ffmpeg", d.Preview.FFmpeg, "ffmpeg executable")
	f.String("device", d.Preview.Device, "device: cuda or host")
	f.String("log", d.Logging.Level, "log level")
	f.Int("frames", 300, "length of the synthetic clip before it loops")
}

// loadConfig merges defaults, config file, environment and the flags the
// user set, in increasing priority.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	v, err := config.New(cfgFile)
	if err != nil {
		return nil, err
	}
	if err := bindFlags(v, cmd); err != nil {
		return nil, err
	}
	return config.Decode(v)
}

func bindFlags(v *viper.Viper, cmd *cobra.Command) error {
	for name, key := range serveFlags {
		if err := v.BindPFlag(key, cmd.Flags().Lookup(name)); err != nil {
			return fmt.Errorf("binding --%s: %w", name, err)
		}
	}
	return nil
}

// buildEnv picks the device and feature loader for the preview.
func buildEnv(cfg *config.Config) (dlisr.Env, error) {
	env := dlisr.Env{NGX: ngx.Config{AppID: cfg.NGX.AppID, EnginePath: cfg.NGX.EnginePath}}
	switch cfg.Preview.Device {
	case "host":
		dev := gpu.NewHostDevice()
		env.Device = dev
		env.Loader = hostfeature.Loader{Dev: dev}
	case "cuda":
		dev, err := gpu.Default()
		if err != nil {
			return env, err
		}
		env.Device = dev
		env.Loader = ngx.SDK{}
	default:
		return env, fmt.Errorf("unknown device %q", cfg.Preview.Device)
	}
	return env, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := logging.Init(cfg.Logging.Level, cfg.Logging.File, cfg.Logging.Console); err != nil {
		return err
	}
	frames, _ := cmd.Flags().GetInt("frames")

	env, err := buildEnv(cfg)
	if err != nil {
		return err
	}
	p := cfg.Preview
	clip := preview.NewClip(p.Width, p.Height, p.FPS, frames)
	filter, err := dlisr.Create(vs.Args{"clip": clip, "rfactor": p.Scale}, env)
	if err != nil {
		return errors.New(vs.PrefixError(dlisr.FilterName, err))
	}
	defer filter.Free()

	out := filter.VideoInfo()
	host := preview.NewHost(filter, clip)
	whep := preview.NewWhepServer(preview.Config{
		Width:       out.Width,
		Height:      out.Height,
		FPS:         p.FPS,
		BitrateKbps: p.Bitrate,
		FFmpeg:      p.FFmpeg,
	}, func() preview.Source {
		return preview.NewFilterSource(host, out.Width, out.Height, frames)
	}, preview.WithStats(func() any {
		st := filter.Stats()
		return map[string]any{
			"stream":       filter.ID(),
			"frames":       st.Frames,
			"failed":       st.Failed,
			"last_eval_ms": float64(st.LastEval.Microseconds()) / 1000,
			"output":       fmt.Sprintf("%dx%d", out.Width, out.Height),
		}
	}))
	defer whep.Close()

	mux := http.NewServeMux()
	whep.RegisterRoutes(mux)
	srv := &http.Server{
		Addr:              p.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logrus.WithFields(logrus.Fields{
			"function": "runServe",
			"addr":     srv.Addr,
			"version":  version.String(),
			"device":   env.Device.Name(),
		}).Info("WHEP preview listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sig)
	select {
	case err := <-errc:
		return err
	case <-sig:
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	return srv.Shutdown(ctx)
}
