// Command tmsannot distills an annotation record from an XDF
// recording of a TMS session and optionally cuts the per-stimulus
// traces it describes.
//
// Usage:
//
//	tmsannot [flags] recording.xdf
//
// The annotation document is written as JSON to -out, or to stdout
// when -out is omitted. With -traces the cut trace matrix is written
// to the given file as JSON.
//
// Examples:
//
//	tmsannot -channel EDC_L session.xdf
//	tmsannot -channel EDC_L -pre 100 -post 100 -out session.json session.xdf
//	tmsannot -channel APB_R -config pipeline.toml -traces traces.json session.xdf
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/cwbudde/algo-tms/align"
	"github.com/cwbudde/algo-tms/cmep"
)

// fileConfig mirrors the pipeline knobs that make sense to pin per
// study rather than per invocation.
type fileConfig struct {
	EventStream    string  `toml:"event_stream"`
	EventName      string  `toml:"event_name"`
	TrackingStream string  `toml:"tracking_stream"`
	CommentName    string  `toml:"comment_name"`
	ControlHost    string  `toml:"control_host"`
	MarkerCode     string  `toml:"marker_code"`
	DenseSpan      float64 `toml:"dense_span_s"`
	ConstantShift  float64 `toml:"constant_shift_s"`
	SearchSpan     float64 `toml:"search_span_s"`
	SmoothWidth    float64 `toml:"smooth_width_s"`
	OnsetFactor    float64 `toml:"onset_factor"`
}

func main() {
	channel := flag.String("channel", "", "channel of interest (required)")
	pre := flag.Float64("pre", 100, "pre-event window in milliseconds")
	post := flag.Float64("post", 100, "post-event window in milliseconds")
	subject := flag.String("subject", "", "subject identifier stored in the annotation")
	configPath := flag.String("config", "", "TOML pipeline configuration")
	out := flag.String("out", "", "annotation output file (default stdout)")
	tracesOut := flag.String("traces", "", "write cut traces as JSON to this file")
	verbose := flag.Bool("v", false, "verbose diagnostics")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: tmsannot [flags] recording.xdf\n\n")
		fmt.Fprintf(os.Stderr, "Distills an annotation record from a TMS recording.\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  tmsannot -channel EDC_L session.xdf\n")
		fmt.Fprintf(os.Stderr, "  tmsannot -channel EDC_L -out session.json session.xdf\n")
		fmt.Fprintf(os.Stderr, "  tmsannot -channel APB_R -config pipeline.toml session.xdf\n")
	}
	flag.Parse()

	if flag.NArg() != 1 || *channel == "" {
		flag.Usage()
		os.Exit(2)
	}
	path := flag.Arg(0)

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	opts := []cmep.Option{
		cmep.WithSubject(*subject),
		cmep.WithLogger(logger),
	}
	if *configPath != "" {
		fileOpts, err := loadConfig(*configPath)
		if err != nil {
			fatal(err)
		}
		opts = append(opts, fileOpts...)
	}

	a, err := cmep.PrepareAnnotations(path, *channel, *pre, *post, opts...)
	if err != nil {
		fatal(err)
	}

	doc, err := a.Marshal()
	if err != nil {
		fatal(err)
	}
	if err := writeOutput(*out, doc); err != nil {
		fatal(err)
	}

	if *tracesOut != "" {
		traces, err := cmep.CutTraces(path, a)
		if err != nil {
			fatal(err)
		}
		data, err := json.Marshal(traces)
		if err != nil {
			fatal(err)
		}
		if err := os.WriteFile(*tracesOut, data, 0o644); err != nil {
			fatal(err)
		}
	}
}

// loadConfig translates a TOML file into pipeline options. Zero
// values leave the corresponding default untouched.
func loadConfig(path string) ([]cmep.Option, error) {
	var fc fileConfig
	if _, err := toml.DecodeFile(path, &fc); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}

	var opts []cmep.Option
	if fc.EventStream != "" {
		opts = append(opts, cmep.WithEventStream(fc.EventStream))
	}
	if fc.EventName != "" {
		opts = append(opts, cmep.WithEventName(fc.EventName))
	}
	if fc.TrackingStream != "" {
		opts = append(opts, cmep.WithTrackingStream(fc.TrackingStream))
	}
	if fc.CommentName != "" {
		opts = append(opts, cmep.WithCommentName(fc.CommentName))
	}

	cfg := align.DefaultConfig()
	if fc.ControlHost != "" {
		cfg.ControlHost = fc.ControlHost
	}
	if fc.MarkerCode != "" {
		cfg.MarkerCode = fc.MarkerCode
	}
	if fc.DenseSpan > 0 {
		cfg.DenseSpan = fc.DenseSpan
	}
	if fc.ConstantShift != 0 {
		cfg.ConstantShift = fc.ConstantShift
	}
	if fc.SearchSpan > 0 {
		cfg.SearchSpan = fc.SearchSpan
	}
	if fc.SmoothWidth > 0 {
		cfg.SmoothWidth = fc.SmoothWidth
	}
	if fc.OnsetFactor > 0 {
		cfg.OnsetFactor = fc.OnsetFactor
	}
	opts = append(opts, cmep.WithCorrector(cfg))

	return opts, nil
}

func writeOutput(path string, doc []byte) error {
	if path == "" {
		_, err := os.Stdout.Write(append(doc, '\n'))
		return err
	}
	return os.WriteFile(path, doc, 0o644)
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
