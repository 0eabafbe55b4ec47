package main

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"

	"github.com/bitfsorg/hashstore/config"
	"github.com/bitfsorg/hashstore/index"
	"github.com/bitfsorg/hashstore/storage"
	"github.com/bitfsorg/hashstore/store"
)

var commands = []string{"add", "list", "get", "remove", "check"}

var validCommands = `"` + strings.Join(commands, `", "`) + `"`

// globalFlags are accepted before the command name.
type globalFlags struct {
	dir      string
	config   string
	logLevel string
	help     bool
}

// run parses args, opens the store and dispatches one command.
//
// Usage mistakes and store conditions (key exists, key not found) are
// reported on stderr and return nil. Only configuration and I/O failures
// return an error.
func run(args []string, stdout, stderr io.Writer, env map[string]string) error {
	var flags globalFlags
	flagSet := pflag.NewFlagSet("hashstore", pflag.ContinueOnError)
	flagSet.SetOutput(io.Discard)
	flagSet.SetInterspersed(false)
	flagSet.StringVar(&flags.dir, "dir", "", "storage directory (default: $"+config.EnvDataDir+" or ~/.hashstore)")
	flagSet.StringVar(&flags.config, "config", "", "config file (default: <dir>/config)")
	flagSet.StringVar(&flags.logLevel, "log-level", "", "log level: debug, info, warn, error")
	flagSet.BoolVarP(&flags.help, "help", "h", false, "show help")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			printHelp(stderr, flagSet)
			return nil
		}
		return err
	}
	if flags.help {
		printHelp(stderr, flagSet)
		return nil
	}

	rest := flagSet.Args()
	if len(rest) == 0 {
		fmt.Fprintf(stderr, "You must specify a command. Valid options are: %s.\n", validCommands)
		return nil
	}
	cmd, cmdArgs := rest[0], rest[1:]
	if !isCommand(cmd) {
		fmt.Fprintf(stderr, "\"%s\" is not a valid command. Please use one of %s.\n", cmd, validCommands)
		return nil
	}

	cfg, err := loadConfig(flags, env)
	if err != nil {
		return err
	}

	logger, closeLog, err := newLogger(stderr, cfg.LogLevel, cfg.LogFile)
	if err != nil {
		return err
	}
	defer closeLog()
	logger = logger.With("command", cmd)

	algo, err := storage.ParseAlgorithm(cfg.Hash)
	if err != nil {
		return err
	}
	kind, err := index.ParseKind(cfg.Index)
	if err != nil {
		return err
	}

	s, err := store.Open(cfg.DataDir,
		store.WithLogger(logger),
		store.WithHashAlgorithm(algo),
		store.WithIndexKind(kind),
	)
	if err != nil {
		return err
	}
	defer s.Close()

	switch cmd {
	case "add":
		return runAdd(s, cmdArgs, stderr)
	case "get":
		return runGet(s, cmdArgs, stdout, stderr)
	case "list":
		return runList(s, stdout)
	case "remove":
		return runRemove(s, cmdArgs, stderr)
	default:
		return runCheck(s, stdout)
	}
}

func isCommand(name string) bool {
	for _, c := range commands {
		if c == name {
			return true
		}
	}
	return false
}

// loadConfig layers the config file, HASHSTORE_DIR and the flags.
// A missing config file is fine unless --config named it explicitly.
func loadConfig(flags globalFlags, env map[string]string) (config.Config, error) {
	dir := config.ResolveDataDir(flags.dir, env, config.DefaultDataDir())

	path := flags.config
	if path == "" {
		path = config.ConfigPath(dir)
	}
	cfg, err := config.LoadConfig(path)
	if err != nil && (flags.config != "" || !errors.Is(err, config.ErrConfigNotFound)) {
		return cfg, err
	}

	cfg.DataDir = config.ResolveDataDir(flags.dir, env, cfg.DataDir)
	if flags.logLevel != "" {
		cfg.LogLevel = flags.logLevel
	}
	if err := config.ValidateConfig(cfg); err != nil {
		return cfg, err
	}

	abs, err := filepath.Abs(cfg.DataDir)
	if err != nil {
		return cfg, fmt.Errorf("resolve data directory: %w", err)
	}
	cfg.DataDir = abs
	return cfg, nil
}

func runAdd(s *store.Store, args []string, stderr io.Writer) error {
	var key string
	var values []string
	if len(args) > 0 {
		key, values = args[0], args[1:]
	}

	err := s.Add(key, values...)
	switch {
	case errors.Is(err, store.ErrMissingKeyOrValue):
		fmt.Fprintln(stderr, "You must provide a key and value to add: `store add [KEY] [VALUE]`.")
	case errors.Is(err, store.ErrKeyExists):
		fmt.Fprintf(stderr, "Key '%s' already exists. If you'd like to replace, it, please use `store remove %s` first.\n", key, key)
	case errors.Is(err, store.ErrInvalidKey):
		printInvalidKey(stderr, err)
	case errors.Is(err, store.ErrHashCollision):
		fmt.Fprintf(stderr, "Key '%s' cannot be stored: %v\n", key, err)
	default:
		return err
	}
	return nil
}

func runGet(s *store.Store, keys []string, stdout, stderr io.Writer) error {
	results, err := s.Get(keys...)
	if errors.Is(err, store.ErrMissingKey) {
		fmt.Fprintln(stderr, "You must provide a key to get: `store get [KEY]`.")
		return nil
	}
	if errors.Is(err, store.ErrInvalidKey) {
		printInvalidKey(stderr, err)
		return nil
	}
	if err != nil {
		return err
	}

	for _, r := range results {
		if r.Status == store.Found {
			fmt.Fprintln(stdout, r.Value)
		} else {
			fmt.Fprintf(stderr, "Key '%s' does not exist. Please use `store add %s [VALUE]` first.\n", r.Key, r.Key)
		}
	}
	return nil
}

func runList(s *store.Store, stdout io.Writer) error {
	keys, err := s.List()
	if err != nil {
		return err
	}
	for _, k := range keys {
		fmt.Fprintln(stdout, k)
	}
	return nil
}

func runRemove(s *store.Store, keys []string, stderr io.Writer) error {
	err := s.Remove(keys...)
	if errors.Is(err, store.ErrMissingKey) {
		fmt.Fprintln(stderr, "You must provide keys to remove: `store remove [KEY]`.")
		return nil
	}
	if errors.Is(err, store.ErrInvalidKey) {
		printInvalidKey(stderr, err)
		return nil
	}
	return err
}

func printInvalidKey(stderr io.Writer, err error) {
	fmt.Fprintf(stderr, "Keys must be valid UTF-8 text (%v).\n", err)
}

func runCheck(s *store.Store, stdout io.Writer) error {
	report, err := s.Check()
	if err != nil {
		return err
	}
	if report.Consistent() {
		fmt.Fprintln(stdout, "ok")
		return nil
	}
	for _, k := range report.Missing {
		fmt.Fprintf(stdout, "missing content: %s\n", k)
	}
	for _, h := range report.Orphaned {
		fmt.Fprintf(stdout, "orphaned file: %s\n", h)
	}
	return nil
}

func printHelp(w io.Writer, flagSet *pflag.FlagSet) {
	fmt.Fprint(w, `hashstore stores text values under keys on the local disk.

Usage:
  hashstore [flags] <command> [args...]

Commands:
  add KEY VALUE...   store VALUE... (joined by spaces) under KEY
  get KEY...         print the values of KEY...
  list               print every key
  remove KEY...      delete KEY... and their values
  check              report index entries without values and stray value files

Flags:
`)
	flagSet.SetOutput(w)
	flagSet.PrintDefaults()
}
