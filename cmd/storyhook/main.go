// Package main is the storyhook host: it loads a Mangle story, wires
// the Lua subscription runtime over it, and drives the story from a
// small line-oriented command loop.
package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"go.uber.org/zap"

	"github.com/dwrance/storyhook/internal/config"
	"github.com/dwrance/storyhook/internal/dispatch"
	"github.com/dwrance/storyhook/internal/integration/mangle"
	"github.com/dwrance/storyhook/internal/logging"
	"github.com/dwrance/storyhook/internal/luabind"
	"github.com/dwrance/storyhook/internal/mem"
	"github.com/dwrance/storyhook/internal/resolve"
	"github.com/dwrance/storyhook/internal/story"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

type options struct {
	configPath string
	storyPath  string
	logLevel   string
	initConfig bool
}

func main() {
	os.Exit(run())
}

func run() int {
	opts := parseFlags()

	if opts.initConfig {
		path := opts.configPath
		if path == "" {
			path = "storyhook.json"
		}
		if err := config.WriteDefault(path); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		fmt.Printf("wrote %s\n", path)
		return 0
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	if opts.logLevel != "" {
		cfg.Logging.Level = opts.logLevel
	}
	if opts.storyPath != "" {
		cfg.Story.Path = opts.storyPath
	}

	log, err := logging.New(cfg.Logging.Level, cfg.Logging.Development)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer func() { _ = log.Sync() }()

	engine := mangle.NewEngine(mangle.WithLogger(log.Named("engine")))

	rt, err := luabind.NewRuntime(luabind.WithLogger(log.Named("lua")))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to create lua runtime: %v\n", err)
		return 1
	}
	defer rt.Close()

	var binder dispatch.Binder = engine
	if !cfg.Features.Interception {
		log.Warn("interception disabled; subscriptions will never fire")
		binder = noopBinder{}
	}

	mgr := dispatch.NewManager(rt, engine, binder, log.Named("dispatch"))
	engine.Attach(mgr)
	rt.OpenModule(mgr)

	for _, script := range cfg.Story.Scripts {
		if err := rt.DoFile(script); err != nil {
			fmt.Fprintf(os.Stderr, "Error: script %s: %v\n", script, err)
			return 1
		}
		log.Info("script loaded", zap.String("path", script))
	}

	if cfg.Story.Path != "" {
		src, err := os.ReadFile(cfg.Story.Path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		if err := engine.LoadStory(string(src)); err != nil {
			fmt.Fprintf(os.Stderr, "Error: load story: %v\n", err)
			return 1
		}
	}

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-signals
		os.Exit(0)
	}()

	return commandLoop(os.Stdin, os.Stdout, &shell{engine: engine, log: log})
}

// shell is the command loop's mutable state: the story engine plus an
// optional host image under inspection.
type shell struct {
	engine   *mangle.Engine
	log      *zap.Logger
	img      *mem.Snapshot
	resolver *resolve.Resolver
}

// commandLoop reads story commands one per line until EOF or quit.
func commandLoop(in io.Reader, out io.Writer, sh *shell) int {
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Fields(line)
		cmd, rest := fields[0], fields[1:]
		if cmd == "quit" || cmd == "exit" {
			break
		}
		if err := runCommand(out, sh, cmd, rest); err != nil {
			fmt.Fprintf(out, "error: %v\n", err)
		}
	}
	if err := scanner.Err(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func runCommand(out io.Writer, sh *shell, cmd string, rest []string) error {
	switch cmd {
	case "help":
		fmt.Fprintln(out, "commands: assert|retract|call|event|query|facts <name> [args...], image <path> [hexbase], scan <symbol> <pattern>, quit")
		return nil
	case "image":
		return loadImage(out, sh, rest)
	case "scan":
		return scanImage(out, sh, rest)
	}

	if len(rest) == 0 {
		return fmt.Errorf("usage: %s <name> [args...]", cmd)
	}
	name, args := rest[0], parseValues(rest[1:])

	switch cmd {
	case "assert":
		return sh.engine.Assert(name, args...)
	case "retract":
		return sh.engine.Retract(name, args...)
	case "call":
		return sh.engine.Call(name, args...)
	case "event":
		return sh.engine.RaiseEvent(name, args...)
	case "query":
		ok, err := sh.engine.Query(name, args...)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, ok)
		return nil
	case "facts":
		rows, err := sh.engine.Facts(name, uint32(len(args)))
		if err != nil {
			return err
		}
		for _, row := range rows {
			parts := make([]string, len(row))
			for i, v := range row {
				parts[i] = v.String()
			}
			fmt.Fprintln(out, strings.Join(parts, " "))
		}
		return nil
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

// loadImage snapshots a file as a host image so symbols can be scanned
// for interactively.
func loadImage(out io.Writer, sh *shell, rest []string) error {
	if len(rest) == 0 {
		return errors.New("usage: image <path> [hexbase]")
	}
	data, err := os.ReadFile(rest[0])
	if err != nil {
		return err
	}
	var base mem.Address
	if len(rest) > 1 {
		b, err := strconv.ParseUint(strings.TrimPrefix(rest[1], "0x"), 16, 64)
		if err != nil {
			return fmt.Errorf("bad base address %q: %w", rest[1], err)
		}
		base = mem.Address(b)
	}
	sh.img = mem.NewSnapshot(base, data)
	sh.resolver = resolve.NewResolver(sh.img, sh.log)
	fmt.Fprintf(out, "image %s: %d bytes at %#x\n", rest[0], sh.img.Size(), uint64(base))
	return nil
}

// scanImage resolves a named symbol in the loaded image by byte
// pattern, following any trampoline chain to the true entry point.
// Results, including failures, stay memoized for the session.
func scanImage(out io.Writer, sh *shell, rest []string) error {
	if sh.resolver == nil {
		return errors.New("no image loaded; use image <path> first")
	}
	if len(rest) < 2 {
		return errors.New("usage: scan <symbol> <pattern>")
	}
	name := rest[0]
	pat, err := resolve.ParsePattern(strings.Join(rest[1:], " "))
	if err != nil {
		return err
	}
	img := sh.img
	sh.resolver.Register(name, func(s *resolve.Scanner) (mem.Address, error) {
		at, err := s.Find(img.Base(), img.Size(), pat)
		if err != nil {
			return 0, err
		}
		return s.FollowJumps(at, 8)
	})
	addr, err := sh.resolver.Resolve(name)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%s = %#x\n", name, uint64(addr))
	return nil
}

// parseValues maps command tokens to argument values: integers and
// floats by syntax, /-prefixed tokens as entity names, the rest as
// strings.
func parseValues(tokens []string) []story.Value {
	values := make([]story.Value, 0, len(tokens))
	for _, tok := range tokens {
		switch {
		case strings.HasPrefix(tok, "/"):
			values = append(values, story.GUIDValue(tok))
		default:
			if n, err := strconv.ParseInt(tok, 10, 64); err == nil {
				values = append(values, story.Int64Value(n))
				break
			}
			if f, err := strconv.ParseFloat(tok, 64); err == nil {
				values = append(values, story.Float64Value(f))
				break
			}
			values = append(values, story.StringValue(tok))
		}
	}
	return values
}

// noopBinder leaves the engine dispatch tables unpatched.
type noopBinder struct{}

func (noopBinder) Bind(dispatch.Events) error { return nil }

func parseFlags() options {
	var opts options
	var showVersion bool
	var showHelp bool

	flag.StringVar(&opts.configPath, "config", "", "Path to configuration file")
	flag.StringVar(&opts.configPath, "c", "", "Path to configuration file (shorthand)")
	flag.StringVar(&opts.storyPath, "story", "", "Mangle story program to load")
	flag.StringVar(&opts.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	flag.BoolVar(&opts.initConfig, "init-config", false, "Write a default configuration file and exit")
	flag.BoolVar(&showVersion, "version", false, "Show version information")
	flag.BoolVar(&showVersion, "v", false, "Show version information (shorthand)")
	flag.BoolVar(&showHelp, "help", false, "Show help message")
	flag.BoolVar(&showHelp, "h", false, "Show help message (shorthand)")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Storyhook - scriptable story engine observation\n\n")
		fmt.Fprintf(os.Stderr, "Usage: storyhook [options]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  storyhook -story world.mg                 Load a story\n")
		fmt.Fprintf(os.Stderr, "  storyhook -c storyhook.json               Use a config file\n")
		fmt.Fprintf(os.Stderr, "  storyhook -init-config -c storyhook.json  Write defaults\n")
	}

	flag.Parse()

	if showHelp {
		flag.Usage()
		os.Exit(0)
	}

	if showVersion {
		fmt.Printf("Storyhook %s\n", version)
		fmt.Printf("Commit: %s\n", commit)
		fmt.Printf("Built: %s\n", date)
		os.Exit(0)
	}

	if opts.logLevel != "" {
		switch opts.logLevel {
		case "debug", "info", "warn", "error":
		default:
			fmt.Fprintf(os.Stderr, "Error: invalid log level %q (must be debug, info, warn, or error)\n", opts.logLevel)
			os.Exit(1)
		}
	}

	return opts
}
