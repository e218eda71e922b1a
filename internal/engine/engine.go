package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Ondulab/Sp3ctra-sub004/internal/config"
	"github.com/Ondulab/Sp3ctra-sub004/internal/control"
	"github.com/Ondulab/Sp3ctra-sub004/internal/frame"
	"github.com/Ondulab/Sp3ctra-sub004/internal/script"
	"github.com/Ondulab/Sp3ctra-sub004/internal/sequencer"
	"github.com/Ondulab/Sp3ctra-sub004/internal/system"
	"github.com/Ondulab/Sp3ctra-sub004/internal/video"
)

// LineReader yields live scan lines. It returns io.EOF when the input ends.
type LineReader interface {
	Next(dst *frame.Frame) error
}

// Session drives one sequencer from a line input to a sink.
type Session struct {
	Config     *config.Config
	Sequencer  *sequencer.Sequencer
	Input      LineReader
	Sink       video.Sink
	Dispatcher *control.Dispatcher
	Script     *script.Script

	StatsInterval time.Duration
	BenchmarkLog  string
	Report        io.Writer

	lines atomic.Uint64
}

func NewSession(cfg *config.Config, seq *sequencer.Sequencer, in LineReader, sink video.Sink) *Session {
	return &Session{
		Config:        cfg,
		Sequencer:     seq,
		Input:         in,
		Sink:          sink,
		StatsInterval: 2 * time.Second,
		BenchmarkLog:  "benchmark.log",
		Report:        os.Stdout,
	}
}

// Lines returns the number of lines processed so far.
func (s *Session) Lines() uint64 {
	return s.lines.Load()
}

// Run processes lines until the input ends, Config.Input.MaxLines is reached
// or ctx is cancelled. A cancelled context is a normal stop.
func (s *Session) Run(ctx context.Context) error {
	startTime := time.Now()

	fmt.Fprintln(s.Report, "--- [SP3CTRA SEQUENCER] ---")
	fmt.Fprintf(s.Report, "[*] Источник: %s | Пикселей: %d | Дорожек: %d\n",
		inputName(s.Config), s.Sequencer.Pixels(), s.Sequencer.Tracks())
	fmt.Fprintf(s.Report, "[*] Буфер: %d строк на дорожку @ %.0f строк/с\n",
		s.Sequencer.Capacity(), s.Config.Sequencer.FrameRate)
	fmt.Fprintln(s.Report, "-----------------------------")

	g, gctx := errgroup.WithContext(ctx)
	runCtx, stop := context.WithCancel(gctx)
	defer stop()

	g.Go(func() error {
		defer stop()
		return s.produce(runCtx)
	})

	if s.Dispatcher != nil && s.Config.MIDI.Port != "" {
		g.Go(func() error {
			if err := s.Dispatcher.Listen(runCtx, s.Config.MIDI.Port); err != nil {
				log.Printf("[!] MIDI отключен: %v", err)
			}
			return nil
		})
	}

	if s.Config.ShowStats && s.StatsInterval > 0 {
		g.Go(func() error {
			s.logStats(runCtx)
			return nil
		})
	}

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	if err != nil {
		return err
	}

	s.report(time.Since(startTime))
	return nil
}

func (s *Session) produce(ctx context.Context) error {
	live := frame.New(s.Sequencer.Pixels())
	maxLines := uint64(s.Config.Input.MaxLines)

	var pace *time.Ticker
	if s.Config.Input.Realtime && s.Config.Sequencer.FrameRate > 0 {
		pace = time.NewTicker(time.Duration(float64(time.Second) / s.Config.Sequencer.FrameRate))
		defer pace.Stop()
	}

	for line := uint64(0); maxLines == 0 || line < maxLines; line++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := s.Input.Next(live); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("line %d: %w", line, err)
		}

		s.applyCues(line)

		out, err := s.Sequencer.ProcessFrame(live)
		if err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
		if err := s.Sink.WriteLine(out); err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
		s.lines.Add(1)

		if pace != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-pace.C:
			}
		}
	}
	return nil
}

// applyCues runs the script cues for line. A failing cue is logged and skipped.
func (s *Session) applyCues(line uint64) {
	if s.Script == nil || s.Dispatcher == nil {
		return
	}
	for _, cue := range s.Script.Due(line) {
		if err := cue.Apply(s.Dispatcher); err != nil {
			log.Printf("[!] Событие на строке %d (%s): %v", line, cue.Param, err)
		}
	}
}

func (s *Session) logStats(ctx context.Context) {
	ticker := time.NewTicker(s.StatsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			st, err := s.Sequencer.Stats()
			if err != nil {
				return
			}
			usage, _ := system.Snapshot()
			log.Printf("[*] Строк: %d | %.2f мкс/строка | %s", st.FramesProcessed, st.AvgProcessTimeUS, usage)
		}
	}
}

func (s *Session) report(total time.Duration) {
	st, err := s.Sequencer.Stats()
	if err != nil {
		log.Printf("[!] Статистика недоступна: %v", err)
		return
	}
	lps := 0.0
	if total > 0 {
		lps = float64(st.FramesProcessed) / total.Seconds()
	}

	fmt.Fprintf(s.Report, "[+++] Готово: %d строк за %.2fs\n", st.FramesProcessed, total.Seconds())
	if !s.Config.ShowStats {
		return
	}

	usage, err := system.Snapshot()
	if err != nil {
		log.Printf("[!] %v", err)
	}
	fmt.Fprintf(s.Report,
		"--- [PERFORMANCE REPORT] ---\n"+
			"Build: %s\n"+
			"Total Time: %.2fs\n"+
			"Lines: %d\n"+
			"Sequencer: %.2f us/line\n"+
			"Effective Rate: %.1f lines/s\n"+
			"System: %s\n"+
			"----------------------------\n",
		s.Config.BuildVersion, total.Seconds(), st.FramesProcessed, st.AvgProcessTimeUS, lps, usage,
	)

	// Append to the benchmark log
	if s.BenchmarkLog == "" {
		return
	}
	logEntry := fmt.Sprintf("[%s] Build: %s | Input: %s | Tracks: %d | Pixels: %d | Lines: %d | Total: %.2fs | Seq: %.2fus | Rate: %.1f\n",
		time.Now().Format("2006-01-02 15:04:05"),
		s.Config.BuildVersion,
		inputName(s.Config),
		s.Sequencer.Tracks(),
		s.Sequencer.Pixels(),
		st.FramesProcessed,
		total.Seconds(),
		st.AvgProcessTimeUS,
		lps,
	)
	f, err := os.OpenFile(s.BenchmarkLog, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		fmt.Fprintf(s.Report, "[!] Не удалось записать %s: %v\n", s.BenchmarkLog, err)
		return
	}
	defer f.Close()
	if _, err := f.WriteString(logEntry); err != nil {
		fmt.Fprintf(s.Report, "[!] Не удалось записать %s: %v\n", s.BenchmarkLog, err)
	}
}

func inputName(cfg *config.Config) string {
	if cfg.Input.Path != "" {
		return filepath.Base(cfg.Input.Path)
	}
	if cfg.Input.Pattern != "" {
		return "pattern:" + cfg.Input.Pattern
	}
	return "-"
}
