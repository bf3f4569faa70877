// Command wiredump prints tagwire payloads as indented text or as a
// member-size breakdown.
//
//	wiredump [-config wiredump.toml] [-schema dir] [-type Msg] [-hex] [-zstd] [-sizes] [-trace] [-j n] files...
//
// A file named "-" is read from stdin.
package main

import (
	"bytes"
	"context"
	"encoding/hex"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/anirudhraja/tagwire/inspect"
	"github.com/anirudhraja/tagwire/registry"
)

type options struct {
	hex   bool
	zstd  bool
	sizes bool
	trace bool
	top   int
}

func main() {
	var (
		configPath = flag.String("config", "", "TOML config file")
		schema     = flag.String("schema", "", "a .proto file or directory used to name members")
		protoPath  = flag.String("proto_path", "", "directory imports are resolved against")
		msgType    = flag.String("type", "", "message type of the top-level struct")
		jobs       = flag.Int("j", 0, "inputs parsed in parallel")
		opts       options
	)
	flag.BoolVar(&opts.hex, "hex", false, "inputs are hex text")
	flag.BoolVar(&opts.zstd, "zstd", false, "inputs are zstd compressed")
	flag.BoolVar(&opts.sizes, "sizes", false, "print member sizes instead of a dump")
	flag.BoolVar(&opts.trace, "trace", false, "log every parse event at debug level")
	flag.IntVar(&opts.top, "top", -1, "with -sizes, only the n largest top-level members")
	flag.Parse()

	cfg := defaultDumpConfig()
	if *configPath != "" {
		var err error
		if cfg, err = loadDumpConfig(*configPath); err != nil {
			initLogger(zerolog.InfoLevel)
			log.Fatal().Err(err).Msg("wiredump: config")
		}
	}
	if *schema != "" {
		cfg.Schemas = []string{*schema}
	}
	if *protoPath != "" {
		cfg.ProtoPaths = []string{*protoPath}
	}
	if *msgType != "" {
		cfg.MessageType = *msgType
	}
	if *jobs > 0 {
		cfg.Jobs = *jobs
	}
	if opts.trace {
		cfg.LogLevel = zerolog.DebugLevel
	}
	initLogger(cfg.LogLevel)

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}
	if err := run(context.Background(), cfg, opts, flag.Args(), os.Stdout); err != nil {
		log.Fatal().Err(err).Msg("wiredump failed")
	}
}

func initLogger(level zerolog.Level) {
	output := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
	}
	log.Logger = zerolog.New(output).Level(level).With().Timestamp().Str("app", "wiredump").Logger()
}

// run renders every input and writes the results to w in input order.
func run(ctx context.Context, cfg dumpConfig, opts options, inputs []string, w io.Writer) error {
	var reg *registry.Registry
	if len(cfg.Schemas) > 0 {
		reg = registry.NewRegistry(cfg.ProtoPaths...)
		for _, path := range cfg.Schemas {
			if err := reg.LoadSchema(path); err != nil {
				return fmt.Errorf("load schema %s: %w", path, err)
			}
		}
		log.Debug().Strs("messages", reg.ListMessages()).Msg("schema loaded")
	}

	var dec *zstd.Decoder
	if opts.zstd {
		var err error
		if dec, err = zstd.NewReader(nil); err != nil {
			return err
		}
		defer dec.Close()
	}

	outputs := make([]bytes.Buffer, len(inputs))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Jobs)
	for i, name := range inputs {
		i, name := i, name
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			data, err := readInput(name, opts, dec)
			if err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
			logger := log.With().Str("input", name).Logger()
			logger.Debug().Int("bytes", len(data)).Msg("parsing")
			if err := render(&outputs[i], data, cfg, opts, reg, logger); err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
			return nil
		})
	}
	err := g.Wait()

	for i, name := range inputs {
		if outputs[i].Len() == 0 {
			continue
		}
		if len(inputs) > 1 {
			fmt.Fprintf(w, "== %s ==\n", name)
		}
		if _, werr := outputs[i].WriteTo(w); werr != nil {
			return werr
		}
	}
	return err
}

func render(w *bytes.Buffer, data []byte, cfg dumpConfig, opts options, reg *registry.Registry, logger zerolog.Logger) error {
	if opts.trace {
		if err := inspect.Trace(data, cfg.Wire, logger); err != nil {
			return err
		}
	}
	if opts.sizes {
		sizes, err := inspect.Sizes(data, cfg.Wire)
		if err != nil {
			return err
		}
		if opts.top >= 0 {
			sizes = inspect.TopMembers(sizes, opts.top)
		}
		for _, s := range sizes {
			fmt.Fprintf(w, "%-24s %-20v %8d\n", s.Path, s.Type, s.Bytes)
		}
		return nil
	}

	// an incomplete dump is discarded on failure
	var out bytes.Buffer
	err := inspect.Dump(&out, data, inspect.Options{
		Config:      cfg.Wire,
		Registry:    reg,
		MessageType: cfg.MessageType,
		Indent:      cfg.Indent,
	})
	if err != nil {
		return err
	}
	_, err = out.WriteTo(w)
	return err
}

func readInput(name string, opts options, dec *zstd.Decoder) ([]byte, error) {
	var (
		data []byte
		err  error
	)
	if name == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(name)
	}
	if err != nil {
		return nil, err
	}
	if opts.hex {
		data, err = hex.DecodeString(strings.Join(strings.Fields(string(data)), ""))
		if err != nil {
			return nil, fmt.Errorf("decode hex: %w", err)
		}
	}
	if dec != nil {
		data, err = dec.DecodeAll(data, nil)
		if err != nil {
			return nil, fmt.Errorf("zstd: %w", err)
		}
	}
	return data, nil
}
