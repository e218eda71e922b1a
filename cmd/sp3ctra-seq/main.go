package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv"

	"github.com/Ondulab/Sp3ctra-sub004/internal/config"
	"github.com/Ondulab/Sp3ctra-sub004/internal/control"
	"github.com/Ondulab/Sp3ctra-sub004/internal/engine"
	"github.com/Ondulab/Sp3ctra-sub004/internal/script"
	"github.com/Ondulab/Sp3ctra-sub004/internal/sequencer"
	"github.com/Ondulab/Sp3ctra-sub004/internal/source"
	"github.com/Ondulab/Sp3ctra-sub004/internal/system"
	"github.com/Ondulab/Sp3ctra-sub004/internal/video"
)

var buildVersion = "dev"

func main() {
	// Raise system limits (macOS/Linux)
	system.InitResourceLimits()

	configPtr := flag.String("config", "", "YAML-конфигурация сессии")
	inputPtr := flag.String("input", "", "PDF, изображение или папка (по умолчанию: самый свежий файл в input/)")
	patternPtr := flag.String("pattern", "", "Тестовый QR-паттерн вместо входного файла, страницы через '|'")
	outputPtr := flag.String("output", "", "Выход: .png, видеофайл или пусто для -output=none")
	tracksPtr := flag.Int("tracks", 0, "Количество дорожек (1-10)")
	durationPtr := flag.Float64("duration", 0, "Максимальная длительность записи дорожки (сек)")
	pixelsPtr := flag.Int("pixels", 0, "Пикселей в строке")
	fpsPtr := flag.Int("fps", 0, "FPS выходного видео")
	scriptPtr := flag.String("script", "", "Файл или папка со сценарием (cue sheet)")
	midiPortPtr := flag.String("midi-port", "", "MIDI-вход (имя порта)")
	midiMapPtr := flag.String("midi-map", "", "YAML-раскладка MIDI")
	maxLinesPtr := flag.Int("lines", 0, "Остановиться после N строк (0 - до конца входа)")
	realtimePtr := flag.Bool("realtime", false, "Выдерживать частоту строк в реальном времени")
	statsPtr := flag.Bool("stats", false, "Показать статистику производительности")
	statusPtr := flag.Bool("status", false, "Напечатать состояние секвенсора в конце")
	writeMapPtr := flag.String("write-midi-map", "", "Записать раскладку MIDI по умолчанию и выйти")

	flag.Parse()

	cfg := config.Default()
	if *configPtr != "" {
		loaded, err := config.Load(*configPtr)
		if err != nil {
			log.Fatalf("[-] Ошибка конфигурации: %v", err)
		}
		cfg = loaded
	}
	cfg.BuildVersion = buildVersion

	// Only explicitly set flags override the config
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "input":
			cfg.Input.Path = *inputPtr
		case "pattern":
			cfg.Input.Pattern = *patternPtr
		case "output":
			cfg.Output.Path = *outputPtr
			if cfg.Output.Path == "none" {
				cfg.Output.Path = ""
			}
		case "tracks":
			cfg.Sequencer.Tracks = *tracksPtr
		case "duration":
			cfg.Sequencer.MaxDuration = *durationPtr
		case "pixels":
			cfg.Sequencer.Pixels = *pixelsPtr
		case "fps":
			cfg.Output.FPS = *fpsPtr
		case "script":
			cfg.Script = *scriptPtr
		case "midi-port":
			cfg.MIDI.Port = *midiPortPtr
		case "midi-map":
			cfg.MIDI.Mapping = *midiMapPtr
		case "lines":
			cfg.Input.MaxLines = *maxLinesPtr
		case "realtime":
			cfg.Input.Realtime = *realtimePtr
		case "stats":
			cfg.ShowStats = *statsPtr
		}
	})
	if err := cfg.Validate(); err != nil {
		log.Fatalf("[-] Ошибка конфигурации: %v", err)
	}

	if *writeMapPtr != "" {
		if err := control.WriteMapping(control.DefaultMapping(cfg.Sequencer.Tracks), *writeMapPtr); err != nil {
			log.Fatalf("[-] %v", err)
		}
		fmt.Printf("[+] Раскладка MIDI записана: %s\n", *writeMapPtr)
		return
	}

	if cfg.Input.Path == "" && cfg.Input.Pattern == "" {
		latest, err := system.ResolveInput("input")
		if err != nil {
			log.Fatalf("[-] Ошибка: %v. Положите PDF или изображения в input/ или задайте -pattern", err)
		}
		cfg.Input.Path = latest
		fmt.Printf("[*] Выбран файл: %s\n", latest)
	} else if cfg.Input.Path != "" {
		resolved, err := system.ResolveInput(cfg.Input.Path)
		if err != nil {
			log.Fatalf("[-] Ошибка входа: %v", err)
		}
		cfg.Input.Path = resolved
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg, *statusPtr); err != nil {
		log.Fatalf("[-] Ошибка сессии: %v", err)
	}
}

func run(ctx context.Context, cfg *config.Config, printStatus bool) error {
	src, err := source.Open(cfg.Input.Path, cfg.Input.Pattern)
	if err != nil {
		return fmt.Errorf("ошибка инициализации источника: %w", err)
	}

	scanner, err := source.NewScanner(src, cfg.Sequencer.Pixels, cfg.Input.DPI, cfg.Input.Loop)
	if err != nil {
		src.Close()
		return err
	}
	defer scanner.Close() // Also closes src

	seq, err := sequencer.New(cfg.SequencerOptions())
	if err != nil {
		return err
	}
	defer seq.Close()

	if err := engine.ApplyConfig(seq, cfg); err != nil {
		return err
	}

	dispatcher := control.NewDispatcher(seq, nil)
	mapping := control.DefaultMapping(cfg.Sequencer.Tracks)
	if cfg.MIDI.Mapping != "" {
		if mapping, err = control.LoadMapping(cfg.MIDI.Mapping); err != nil {
			return err
		}
	}
	if err := dispatcher.SetMapping(mapping); err != nil {
		return err
	}

	var cues *script.Script
	if cfg.Script != "" {
		path := cfg.Script
		if fi, err := os.Stat(path); err == nil && fi.IsDir() {
			if path, err = script.FindLatest(path); err != nil {
				return err
			}
		}
		if cues, err = script.Read(path); err != nil {
			return err
		}
		fmt.Printf("[*] Сценарий: %s (%d событий)\n", path, len(cues.Cues))
	}

	// ffmpeg must finish the file even after Ctrl+C
	sink, err := video.Open(context.WithoutCancel(ctx), video.Options{
		Path:          cfg.Output.Path,
		Width:         cfg.Sequencer.Pixels,
		LinesPerFrame: cfg.Output.LinesPerFrame,
		FPS:           cfg.Output.FPS,
		Encoder:       cfg.Output.Encoder,
		Quality:       cfg.Output.Quality,
	})
	if err != nil {
		return err
	}

	session := engine.NewSession(cfg, seq, scanner, sink)
	session.Dispatcher = dispatcher
	session.Script = cues

	runErr := session.Run(ctx)
	if err := sink.Close(); err != nil && runErr == nil {
		runErr = err
	}
	if runErr != nil {
		return runErr
	}

	if printStatus {
		if err := seq.PrintStatus(os.Stdout); err != nil {
			return err
		}
	}
	if cfg.Output.Path != "" {
		fmt.Printf("[+++] Успех! Результат: %s\n", cfg.Output.Path)
	}
	return nil
}
