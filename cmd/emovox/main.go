package main

import (
	"context"
	"fmt"
	log "log/slog"
	"os"
	"os/signal"

	cli "github.com/spf13/pflag"

	"emovox/internal/app"
	"emovox/internal/audio"
	"emovox/internal/config"
	"emovox/internal/vox"
	"emovox/pkg/audioconv"
)

// emovox runs a single round trip from typed text or an audio file and prints
// the reply.
func main() {
	configFile := cli.StringP("config", "c", "emovox.yaml", "Config file path")
	envFile := cli.StringP("env", "e", ".env", "Env file path")
	text := cli.StringP("text", "t", "", "Text to send")
	input := cli.StringP("input", "i", "", "Audio file to transcribe and send (wav, mp3, ogg)")
	mute := cli.BoolP("mute", "m", false, "Do not play the reply")
	logLevel := cli.StringP("log", "l", "warn", "Log level")
	cli.Parse()

	logger := config.NewLogger(os.Stderr, *logLevel)
	log.SetDefault(logger)

	if (*text == "") == (*input == "") {
		fmt.Fprintln(os.Stderr, "exactly one of --text or --input is required")
		os.Exit(2)
	}

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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var player vox.Player
	if !*mute {
		player = audio.NewPlayer(nil, logger)
	}

	a, err := app.Build(ctx, cfg, player, logger)
	if err != nil {
		log.Error("Failed to build pipeline", "err", err)
		os.Exit(1)
	}
	defer a.Close()

	var res *vox.Result
	if *input != "" {
		buf, loadErr := audioconv.LoadFile(ctx, *input, audioconv.Options{SampleRate: cfg.Audio.SampleRate})
		if loadErr != nil {
			log.Error("Failed to load audio", "path", *input, "err", loadErr)
			os.Exit(1)
		}
		res, err = a.Vox.HandleRecording(ctx, buf)
	} else {
		res, err = a.Vox.HandleText(ctx, *text)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "emovox:", err)
		os.Exit(1)
	}

	v := res.Reply.Vector
	fmt.Printf("you:     %s\n", res.UserText)
	fmt.Printf("emotion: %s (%d) happy=%d angry=%d sad=%d excited=%d\n",
		res.Dominant, int(res.Dominant), v.Happy, v.Angry, v.Sad, v.Excited)
	fmt.Printf("reply:   %s\n", res.Reply.Text)
}
