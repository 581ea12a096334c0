// Command ryoma runs the tabletop assistant against a local SQLite world
// store. The default command starts an interactive chat loop; `run` handles a
// single command line; `transcript` inspects retained history.
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/PSM90/fuorid20-ryoma-assistant/internal/assemble"
	"github.com/PSM90/fuorid20-ryoma-assistant/internal/config"
	"github.com/PSM90/fuorid20-ryoma-assistant/internal/executor"
	"github.com/PSM90/fuorid20-ryoma-assistant/internal/gate"
	"github.com/PSM90/fuorid20-ryoma-assistant/internal/gateway"
	"github.com/PSM90/fuorid20-ryoma-assistant/internal/host"
	"github.com/PSM90/fuorid20-ryoma-assistant/internal/router"
	"github.com/PSM90/fuorid20-ryoma-assistant/internal/transcript"
)

var (
	verbose    bool
	configPath string
	worldPath  string

	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "ryoma",
	Short: "Ryoma - chat assistant for the virtual table",
	Long: `Ryoma is a chat-driven assistant for tabletop-RPG sessions.

Type prefixed commands (default prefix "!R") to ask for content, or to have
creatures, characters and items prepared. Every proposed change is staged
behind an explicit confirmation before anything touches the world store.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zapCfg := zap.NewProductionConfig()
		if verbose {
			zapCfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zapCfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runInteractive()
	},
}

var runCmd = &cobra.Command{
	Use:   "run [command line]",
	Short: "Process a single chat line and exit",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		session, err := newSession()
		if err != nil {
			return err
		}
		defer session.Close()

		line := strings.Join(args, " ")
		reply, handled := session.router.HandleChat(cmd.Context(), line, "cli")
		if !handled {
			fmt.Fprintf(os.Stderr, "line does not start with the %q prefix\n", session.cfg.Prefix)
			return nil
		}
		fmt.Println(reply)
		return nil
	},
}

var transcriptCmd = &cobra.Command{
	Use:   "transcript",
	Short: "Show the retained transcript",
	RunE: func(cmd *cobra.Command, args []string) error {
		session, err := newSession()
		if err != nil {
			return err
		}
		defer session.Close()

		for _, msg := range session.transcript.Full(0) {
			fmt.Printf("[%s] %s: %s\n", msg.Timestamp.Format(time.TimeOnly), msg.Role, msg.Content)
		}
		return nil
	},
}

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Clear the retained transcript",
	RunE: func(cmd *cobra.Command, args []string) error {
		session, err := newSession()
		if err != nil {
			return err
		}
		defer session.Close()

		session.transcript.Clear()
		fmt.Println("Transcript cleared.")
		return nil
	},
}

// session bundles the wired pipeline for one CLI invocation.
type session struct {
	cfg        config.Config
	world      *host.WorldStore
	transcript *transcript.Store
	router     *router.Router
}

func (s *session) Close() {
	if s.world != nil {
		_ = s.world.Close()
	}
}

func newSession() (*session, error) {
	cfg, err := config.LoadFile(configPath)
	if err != nil {
		return nil, err
	}

	world, err := host.NewWorldStore(worldPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open world store: %w", err)
	}

	ts := transcript.New(world.Settings(), cfg.MaxHistory, logger)
	party := host.NewRefParty(world, cfg.PartyRefs)
	g := gate.New(logger)
	exec := executor.New(world, world, ts, logger)
	llm := gateway.New(gateway.Config{APIKey: cfg.APIKey, BaseURL: cfg.BaseURL}, logger)

	r := router.New(router.Deps{
		Config:     cfg,
		Assembler:  assemble.New(ts, party, cfg, logger),
		LLM:        llm,
		Gate:       g,
		Executor:   exec,
		Transcript: ts,
		Entities:   world,
		Libraries:  world,
		Party:      party,
		Logger:     logger,
	})

	return &session{cfg: cfg, world: world, transcript: ts, router: r}, nil
}

func runInteractive() error {
	session, err := newSession()
	if err != nil {
		return err
	}
	defer session.Close()

	fmt.Printf("Ryoma ready. Prefix: %q. Ctrl+D to exit.\n", session.cfg.Prefix)
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		reply, handled := session.router.HandleChat(context.Background(), line, "cli")
		if !handled {
			fmt.Printf("(commands start with %q)\n", session.cfg.Prefix)
			continue
		}
		fmt.Println(reply)
	}
	return scanner.Err()
}

func main() {
	home, _ := os.UserHomeDir()
	defaultDir := filepath.Join(home, ".ryoma")

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", filepath.Join(defaultDir, "config.yaml"), "path to the YAML config file")
	rootCmd.PersistentFlags().StringVar(&worldPath, "world", filepath.Join(defaultDir, "world.db"), "path to the SQLite world store")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(transcriptCmd)
	rootCmd.AddCommand(clearCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
