package main

import (
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	cli "github.com/spf13/pflag"

	"emovox/internal/app"
	"emovox/internal/audio"
	"emovox/internal/config"
	"emovox/internal/httpapi"
	"emovox/internal/ipc"
	"emovox/internal/notify"
	"emovox/internal/vox"
	"emovox/pkg/audioconv"
)

type request struct {
	msg  ipc.ControlMessage
	errc chan error
}

func main() {
	configFile := cli.StringP("config", "c", "emovox.yaml", "Config file path")
	envFile := cli.StringP("env", "e", ".env", "Env file path")
	input := cli.StringP("input", "i", "", "Audio file to use instead of the microphone")
	logLevel := cli.StringP("log", "l", "info", "Log level")
	cli.Parse()

	logger := config.NewLogger(os.Stdout, *logLevel)
	log.SetDefault(logger)

	log.Info("Booting up")

	if err := config.LoadEnvFile(*envFile); err != nil {
		log.Error("Failed to load env", "err", err)
		os.Exit(1)
	}
	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Error("Failed to load config", "err", err)
		os.Exit(1)
	}
	cfg.ApplyEnv(os.Getenv)
	if err := cfg.Validate(); err != nil {
		log.Error("Invalid config", "err", err)
		os.Exit(1)
	}

	log.Debug("Loaded config")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var dev audio.Device
	if *input != "" {
		dev = audio.NewFileDevice(*input, cfg.Audio.SampleRate)
		log.Info("Using file input", "path", *input)
	} else {
		rec := audio.NewRecorder(cfg.Audio.SampleRate)
		if err := rec.Init(); err != nil {
			log.Error("Failed to init audio", "err", err)
			os.Exit(1)
		}
		defer rec.Close()
		dev = rec
	}

	log.Debug("Loaded recorder")

	var ducker *audio.Ducker
	if cfg.Audio.Duck {
		ducker = audio.NewDucker(cfg.Audio.DuckSelf, cfg.Audio.DuckMin)
	}
	player := audio.NewPlayer(ducker, logger)
	notifier := notify.New(player, cfg.Audio.CuePath, cfg.Notify.Desktop, logger)

	a, err := app.Build(ctx, cfg, player, logger)
	if err != nil {
		log.Error("Failed to build pipeline", "err", err)
		os.Exit(1)
	}
	defer a.Close()

	runRecording := func(buf audioconv.Buffer) {
		a.Metrics.Recorded()
		go func() {
			if _, err := a.Vox.HandleRecording(ctx, buf); err != nil && !errors.Is(err, context.Canceled) {
				notifier.Failed(ctx, err)
			}
		}()
	}
	ctrl := audio.NewController(dev, cfg.Audio.RecordLimit, runRecording, logger)

	reqs := make(chan request)
	srv, err := ipc.StartServer(cfg.IPC.Socket, func(msg ipc.ControlMessage) error {
		req := request{msg: msg, errc: make(chan error, 1)}
		select {
		case reqs <- req:
			return <-req.errc
		case <-ctx.Done():
			return errors.New("shutting down")
		}
	}, logger)
	if err != nil {
		log.Error("Failed ipc server", "err", err)
		os.Exit(1)
	}
	defer srv.Close()

	if cfg.HTTP.Addr != "" {
		httpSrv := &http.Server{
			Addr: cfg.HTTP.Addr,
			Handler: httpapi.NewRouter(httpapi.Deps{
				Vox:         a.Vox,
				History:     a.Chat.History(),
				Metrics:     a.Metrics,
				BaseContext: ctx,
				Logger:      logger,
			}),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("Status API failed", "err", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			httpSrv.Shutdown(shutdownCtx)
		}()
		log.Info("Status API listening", "addr", cfg.HTTP.Addr)
	}

	log.Info("Boot up - successful", "socket", cfg.IPC.Socket, "limit", ctrl.Limit())

	handle := func(msg ipc.ControlMessage) error {
		switch msg.Cmd {
		case ipc.CmdToggle:
			if ctrl.IsRecording() {
				return ctrl.StopRecording()
			}
			return startRecording(ctx, ctrl, a.Vox, notifier)
		case ipc.CmdStart:
			return startRecording(ctx, ctrl, a.Vox, notifier)
		case ipc.CmdStop:
			return ctrl.StopRecording()
		case ipc.CmdSay:
			if msg.Text == "" {
				return errors.New("say: text is required")
			}
			if a.Vox.Busy() {
				return vox.ErrBusy
			}
			go a.Vox.HandleText(ctx, msg.Text)
			return nil
		default:
			log.Warn("Unknown command", "cmd", msg.Cmd)
			return fmt.Errorf("unknown command %q", msg.Cmd)
		}
	}

	ticker := time.NewTicker(cfg.Audio.TickInterval)
	defer ticker.Stop()
	last := time.Now()

	for {
		select {
		case <-ctx.Done():
			log.Info("Shutting down")
			if ctrl.IsRecording() {
				dev.Discard()
			}
			return
		case req := <-reqs:
			req.errc <- handle(req.msg)
		case now := <-ticker.C:
			dt := now.Sub(last)
			last = now
			if err := ctrl.Tick(dt); err != nil {
				log.Error("Recording failed", "err", err)
				notifier.Failed(ctx, err)
			}
		}
	}
}

func startRecording(ctx context.Context, ctrl *audio.Controller, v *vox.Vox, n *notify.Notifier) error {
	if v.Busy() {
		return vox.ErrBusy
	}
	n.RecordingStarted(ctx)
	return ctrl.StartRecording()
}
