package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/hako/durafmt"
	"golang.org/x/sync/errgroup"

	"github.com/cbegin/musgo"
	"github.com/cbegin/musgo/internal/config"
	"github.com/cbegin/musgo/internal/notation"
	"github.com/cbegin/musgo/internal/score"
	"github.com/cbegin/musgo/internal/smf"
)

const defaultNotation = "@tempo = 120\n(c e g) [c e g]"

type options struct {
	configPath string
	inline     string
	format     string
	sorted     bool
	midiPath   string
	wavPath    string
	seconds    float64
	play       bool
	loops      int
	volume     float64
	checkRange bool
	legacyZero bool
	echo       bool
}

// compiled is one input's result, in argument order.
type compiled struct {
	Source string            `json:"source"`
	Length int               `json:"length"`
	Events []score.NoteEvent `json:"events"`
	expr   score.Expr
}

func main() {
	log.SetFlags(0)
	log.SetPrefix("muscompile: ")

	var opts options
	flag.StringVar(&opts.configPath, "config", "", "path to a YAML config file")
	flag.StringVar(&opts.inline, "notation", "", "inline notation text (instead of input files)")
	flag.StringVar(&opts.format, "format", "json", "event output: json|text|none")
	flag.BoolVar(&opts.sorted, "sort", false, "print events ordered by start time")
	flag.StringVar(&opts.midiPath, "midi", "", "write a Standard MIDI File")
	flag.StringVar(&opts.wavPath, "wav", "", "render to a float32 WAV file")
	flag.Float64Var(&opts.seconds, "seconds", 0, "WAV length in seconds (0 = whole score)")
	flag.BoolVar(&opts.play, "play", false, "play the score on the default audio device")
	flag.IntVar(&opts.loops, "loops", 1, "with -play, number of passes (0 = loop forever)")
	flag.Float64Var(&opts.volume, "volume", 1.0, "with -play, master volume scalar")
	flag.BoolVar(&opts.checkRange, "check-range", false, "reject pitches outside 0-127")
	flag.BoolVar(&opts.legacyZero, "legacy-zero-repeat", false, "end zero-count repeats at time 0")
	flag.BoolVar(&opts.echo, "echo", false, "print each parsed tree in normalized notation")
	flag.Parse()

	if err := run(opts, flag.Args(), os.Stdout); err != nil {
		log.Fatal(err)
	}
}

func run(opts options, files []string, stdout io.Writer) error {
	cfg := config.Default()
	if opts.configPath != "" {
		var err error
		if cfg, err = config.Load(opts.configPath); err != nil {
			return err
		}
	}
	if opts.checkRange {
		cfg.Compile.CheckPitchRange = true
	}
	if opts.legacyZero {
		cfg.Compile.LegacyZeroRepeat = true
	}

	results, err := compileInputs(context.Background(), cfg, opts.inline, files)
	if err != nil {
		return err
	}
	for _, res := range results {
		length := time.Duration(res.Length) * time.Millisecond
		log.Printf("%s: %d events, %s", res.Source, len(res.Events), durafmt.Parse(length).LimitFirstN(2))
		if opts.echo {
			fmt.Fprintln(stdout, score.Format(res.expr))
		}
	}
	if err := printEvents(stdout, results, opts.format, opts.sorted); err != nil {
		return err
	}

	if opts.midiPath == "" && opts.wavPath == "" && !opts.play {
		return nil
	}
	if len(results) != 1 {
		return fmt.Errorf("-midi, -wav and -play need exactly one input, got %d", len(results))
	}
	events := results[0].Events
	if opts.midiPath != "" {
		if err := smf.WriteFile(opts.midiPath, events, cfg.MIDIOptions()); err != nil {
			return fmt.Errorf("write midi: %w", err)
		}
		logWritten(opts.midiPath)
	}
	if opts.wavPath != "" {
		if err := writeWAV(opts.wavPath, events, cfg, opts.seconds); err != nil {
			return fmt.Errorf("write wav: %w", err)
		}
		logWritten(opts.wavPath)
	}
	if opts.play {
		return play(events, cfg, opts.loops, opts.volume)
	}
	return nil
}

// compileInputs compiles every input concurrently. The first failure cancels
// the rest.
func compileInputs(ctx context.Context, cfg config.Config, inline string, files []string) ([]compiled, error) {
	if strings.TrimSpace(inline) != "" && len(files) > 0 {
		return nil, errors.New("use either -notation or input files, not both")
	}
	type input struct{ name, path, text string }
	var inputs []input
	switch {
	case strings.TrimSpace(inline) != "":
		inputs = append(inputs, input{name: "<inline>", text: inline})
	case len(files) == 0:
		inputs = append(inputs, input{name: "<default>", text: defaultNotation})
	default:
		for _, f := range files {
			inputs = append(inputs, input{name: f, path: f})
		}
	}

	parser := notation.NewParser(cfg.NotationConfig())
	compiler := score.NewCompiler(cfg.CompileConfig())
	results := make([]compiled, len(inputs))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	for i, in := range inputs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			text := in.text
			if in.path != "" {
				data, err := os.ReadFile(in.path)
				if err != nil {
					return err
				}
				text = string(data)
			}
			expr, err := parser.Parse(text)
			if err != nil {
				return fmt.Errorf("%s:%w", in.name, err)
			}
			events, err := compiler.Compile(expr)
			if err != nil {
				return fmt.Errorf("%s: %w", in.name, err)
			}
			length, err := compiler.EndTime(0, expr)
			if err != nil {
				return fmt.Errorf("%s: %w", in.name, err)
			}
			results[i] = compiled{Source: in.name, Length: length, Events: events, expr: expr}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func printEvents(w io.Writer, results []compiled, format string, sorted bool) error {
	if sorted {
		for i := range results {
			results[i].Events = score.SortByStart(results[i].Events)
		}
	}
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if len(results) == 1 {
			return enc.Encode(results[0])
		}
		return enc.Encode(results)
	case "text":
		for _, res := range results {
			if len(results) > 1 {
				fmt.Fprintf(w, "# %s\n", res.Source)
			}
			for _, ev := range res.Events {
				fmt.Fprintf(w, "%d\t%d\t%d\n", ev.Start, ev.Dur, ev.Pitch)
			}
		}
		return nil
	case "none":
		return nil
	default:
		return fmt.Errorf("invalid -format %q (expected json|text|none)", format)
	}
}

func writeWAV(path string, events []score.NoteEvent, cfg config.Config, seconds float64) (err error) {
	rate := cfg.Render.SampleRate
	var samples []float32
	if seconds > 0 {
		samples = musgo.RenderSeconds(events, rate, cfg.SynthParams(), seconds)
	} else {
		samples = musgo.RenderSamples(events, rate, cfg.SynthParams())
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, f.Close())
	}()
	return musgo.WriteWAVFloat32LE(f, samples, rate, 2)
}

func play(events []score.NoteEvent, cfg config.Config, loops int, volume float64) error {
	pl, err := musgo.NewPlayer(cfg.Render.SampleRate,
		musgo.WithSynthParams(cfg.SynthParams()),
		musgo.WithLoopPlayback(loops != 1),
	)
	if err != nil {
		return err
	}
	pl.SetMasterVolume(volume)
	ch := pl.Watch()
	if err := pl.Play(events); err != nil {
		return err
	}
	passes := 0
	for event := range ch {
		switch event.Kind {
		case musgo.EventPlaybackEnded:
			log.Print("playback completed")
			pl.Wait()
			return nil
		case musgo.EventLoopCompleted:
			passes++
			log.Printf("pass %d completed", passes)
			if loops > 0 && passes >= loops {
				return pl.Stop()
			}
		}
	}
	return nil
}

func logWritten(path string) {
	info, err := os.Stat(path)
	if err != nil {
		log.Printf("wrote %s", path)
		return
	}
	log.Printf("wrote %s (%s)", path, humanize.Bytes(uint64(info.Size())))
}
