package main

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"time"

	gojson "github.com/goccy/go-json"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ajitpratap0/polybase/pkg/connector"
	"github.com/ajitpratap0/polybase/pkg/dialect"
	"github.com/ajitpratap0/polybase/pkg/driver"
	"github.com/ajitpratap0/polybase/pkg/logger"
	"github.com/ajitpratap0/polybase/pkg/registry"
)

var version = "0.1.0"

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	var logLevel string
	var catalogFile string
	var timeout time.Duration

	root := &cobra.Command{
		Use:   "polybase",
		Short: "Polybase - dialect-agnostic database access layer",
		Long: `Polybase resolves logical service names to driver-specific connection
settings, manages bounded connection pools per service, and translates CRUD
operations into correct, safely-parameterized SQL for the target dialect.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return logger.Init(logger.Config{
				Level:    logLevel,
				Encoding: "console",
			})
		},
	}
	root.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("Polybase v%s\n", version)
			fmt.Printf("Go version: %s\n", runtime.Version())
			fmt.Printf("OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "dialects",
		Short: "List available SQL dialects",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("Available dialects:")
			for _, name := range dialect.List() {
				fmt.Printf("  - %s\n", name)
			}
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "drivers",
		Short: "List registered database drivers",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("Registered drivers:")
			for _, name := range driver.List() {
				fmt.Printf("  - %s\n", name)
			}
		},
	})

	servicesCmd := &cobra.Command{
		Use:   "services",
		Short: "List services resolvable from a catalog file",
		RunE: func(cmd *cobra.Command, args []string) error {
			resolver, err := registry.LoadFile(catalogFile)
			if err != nil {
				return err
			}
			fmt.Println("Resolvable services:")
			for _, key := range resolver.List() {
				fmt.Printf("  - %s\n", key)
			}
			return nil
		},
	}
	servicesCmd.Flags().StringVar(&catalogFile, "catalog", "services.yaml", "Service catalog file")
	root.AddCommand(servicesCmd)

	var serviceName, serviceVersion string

	execCmd := &cobra.Command{
		Use:   "exec [sql]",
		Short: "Execute a write statement against a service",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(catalogFile, serviceName, serviceVersion, timeout,
				func(ctx context.Context, session *connector.Session) error {
					params := make([]interface{}, 0, len(args)-1)
					for _, arg := range args[1:] {
						params = append(params, arg)
					}
					if err := session.Exec(ctx, args[0], params...); err != nil {
						return err
					}
					fmt.Println("OK")
					return nil
				})
		},
	}

	queryCmd := &cobra.Command{
		Use:   "query [sql]",
		Short: "Run a read statement against a service and print rows as JSON",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(catalogFile, serviceName, serviceVersion, timeout,
				func(ctx context.Context, session *connector.Session) error {
					params := make([]interface{}, 0, len(args)-1)
					for _, arg := range args[1:] {
						params = append(params, arg)
					}
					rows, err := session.Query(ctx, args[0], params...)
					if err != nil {
						return err
					}
					for _, tuple := range rows.Values {
						record := make(map[string]interface{}, len(rows.Columns))
						for i, col := range rows.Columns {
							record[col] = tuple[i]
						}
						line, err := gojson.Marshal(record)
						if err != nil {
							return err
						}
						fmt.Println(string(line))
					}
					return nil
				})
		},
	}

	for _, cmd := range []*cobra.Command{execCmd, queryCmd} {
		cmd.Flags().StringVar(&catalogFile, "catalog", "services.yaml", "Service catalog file")
		cmd.Flags().StringVar(&serviceName, "service", "", "Logical service name (required)")
		cmd.Flags().StringVar(&serviceVersion, "service-version", "1.0", "Service configuration version")
		cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "Statement timeout")
		_ = cmd.MarkFlagRequired("service")
		root.AddCommand(cmd)
	}

	if err := root.Execute(); err != nil {
		logger.Error("command failed", zap.Error(err))
		os.Exit(1)
	}
}

// withSession connects to a service from the catalog, runs fn, and tears
// everything down afterwards.
func withSession(catalogFile, serviceName, serviceVersion string, timeout time.Duration,
	fn func(ctx context.Context, session *connector.Session) error) error {

	resolver, err := registry.LoadFile(catalogFile)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	conn := connector.New(resolver)
	defer conn.Close()

	session, err := conn.Connect(ctx, serviceName, serviceVersion)
	if err != nil {
		return err
	}
	defer session.Close()

	return fn(ctx, session)
}
