package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/sh03m2a5h/filesession-go/internal/app"
	"github.com/sh03m2a5h/filesession-go/internal/config"
	"github.com/sh03m2a5h/filesession-go/internal/session"
	"github.com/sh03m2a5h/filesession-go/pkg/version"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	configFile string
	host       string
	port       int
	store      string
	rootPath   string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "filesession",
	Short: "filesession - cookie-identified per-client session store",
	Long: `filesession assigns each HTTP client a random session id carried in a cookie
and keeps a JSON record of key/value pairs per id. Records live in one file
per session by default; memory and Redis backends are also available.`,
	Version:      version.Version,
	SilenceUsage: true,
	RunE:         runServer,
}

var inspectCmd = &cobra.Command{
	Use:   "inspect <id>",
	Short: "Print the record stored for a session id",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd, func(ctx context.Context, s *session.Store) error {
			rec, err := s.Load(ctx, args[0])
			if err != nil {
				return err
			}
			out, err := json.MarshalIndent(rec, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		})
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the ids of all stored sessions",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd, func(ctx context.Context, s *session.Store) error {
			ids, err := s.Backend().List(ctx)
			if err != nil {
				return err
			}
			for _, id := range ids {
				fmt.Fprintln(cmd.OutOrStdout(), id)
			}
			return nil
		})
	},
}

var removeCmd = &cobra.Command{
	Use:   "remove <id>...",
	Short: "Delete the records stored for one or more session ids",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd, func(ctx context.Context, s *session.Store) error {
			for _, id := range args {
				if err := s.Remove(ctx, id); err != nil {
					return fmt.Errorf("remove %s: %w", id, err)
				}
			}
			return nil
		})
	},
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "config.yaml", "config file path")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&store, "store", "file", "session store (file, memory, redis)")
	rootCmd.PersistentFlags().StringVar(&rootPath, "root-path", ".", "root directory of the file store")

	// Server flags
	rootCmd.Flags().StringVar(&host, "host", "0.0.0.0", "listen address")
	rootCmd.Flags().IntVarP(&port, "port", "p", 8080, "listen port")

	rootCmd.SetVersionTemplate(version.Get().String() + "\n")
	rootCmd.AddCommand(inspectCmd, listCmd, removeCmd)
}

// applyFlags overrides environment variables with command line flags before
// the config is loaded
func applyFlags(cmd *cobra.Command) {
	if cmd.Flags().Changed("host") {
		os.Setenv("FILESESSION_HOST", host)
	}
	if cmd.Flags().Changed("port") {
		os.Setenv("FILESESSION_PORT", strconv.Itoa(port))
	}
	if cmd.Flags().Changed("store") {
		os.Setenv("FILESESSION_SESSION_STORE", store)
	}
	if cmd.Flags().Changed("root-path") {
		os.Setenv("FILESESSION_SESSION_ROOT_PATH", rootPath)
	}
	if cmd.Flags().Changed("log-level") {
		os.Setenv("FILESESSION_LOGGING_LEVEL", logLevel)
	}
}

// configPath returns the config file to load, or "-" when the default file
// does not exist
func configPath() string {
	if configFile == "config.yaml" {
		if _, err := os.Stat(configFile); os.IsNotExist(err) {
			return "-"
		}
	}
	return configFile
}

func runServer(cmd *cobra.Command, args []string) error {
	applyFlags(cmd)

	application, err := app.New(configPath())
	if err != nil {
		return fmt.Errorf("failed to create application: %w", err)
	}

	return application.Run()
}

// withStore opens the configured session store for an offline command
func withStore(cmd *cobra.Command, fn func(context.Context, *session.Store) error) error {
	applyFlags(cmd)

	cfg, err := config.Load(configPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	s, err := session.NewFactory(zap.NewNop()).CreateStore(&cfg.Session)
	if err != nil {
		return fmt.Errorf("failed to open session store: %w", err)
	}
	defer s.Close()

	return fn(cmd.Context(), s)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
