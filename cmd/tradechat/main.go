package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/usetradechat/tradechat/ai"
	"github.com/usetradechat/tradechat/internal/profile"
	"github.com/usetradechat/tradechat/internal/version"
	"github.com/usetradechat/tradechat/server"
	"github.com/usetradechat/tradechat/store"
	"github.com/usetradechat/tradechat/store/db"
)

var rootCmd = &cobra.Command{
	Use:   "tradechat",
	Short: `A self-hosted trading assistant chat service.`,
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		// Try to load .env file from current directory (ignore error if file doesn't exist)
		_ = godotenv.Load()
		return nil
	},
	Run: func(_ *cobra.Command, _ []string) {
		instanceProfile := &profile.Profile{
			Mode:        viper.GetString("mode"),
			Addr:        viper.GetString("addr"),
			Port:        viper.GetInt("port"),
			UNIXSock:    viper.GetString("unix-sock"),
			Data:        viper.GetString("data"),
			Driver:      viper.GetString("driver"),
			DSN:         viper.GetString("dsn"),
			InstanceURL: viper.GetString("instance-url"),
			Secret:      viper.GetString("secret"),
			Version:     version.GetCurrentVersion(viper.GetString("mode")),
		}
		instanceProfile.FromEnv()
		if err := instanceProfile.Validate(); err != nil {
			slog.Error("invalid configuration", "error", err)
			return
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		dbDriver, err := db.NewDBDriver(instanceProfile)
		if err != nil {
			slog.Error("failed to create db driver", "error", err)
			return
		}

		storeInstance := store.New(dbDriver, instanceProfile)
		if err := storeInstance.Migrate(ctx); err != nil {
			slog.Error("failed to migrate", "error", err)
			return
		}

		responder, err := ai.NewResponderFromProfile(instanceProfile)
		if err != nil {
			slog.Error("failed to create AI responder", "error", err)
			return
		}

		s, err := server.NewServer(ctx, instanceProfile, storeInstance, responder)
		if err != nil {
			slog.Error("failed to create server", "error", err)
			return
		}

		c := make(chan os.Signal, 1)
		// Trigger graceful shutdown on SIGINT or SIGTERM.
		// The default signal sent by the `kill` command is SIGTERM,
		// which is taken as the graceful shutdown signal for many systems, eg., Kubernetes, Gunicorn.
		signal.Notify(c, terminationSignals...)

		if err := s.Start(ctx); err != nil {
			slog.Error("failed to start server", "error", err)
			return
		}

		printGreetings(instanceProfile)

		go func() {
			<-c
			s.Shutdown(ctx)
			cancel()
		}()

		// Wait for CTRL-C.
		<-ctx.Done()
	},
}

func init() {
	viper.SetDefault("mode", "dev")
	viper.SetDefault("driver", "sqlite")
	viper.SetDefault("port", 28084)

	rootCmd.PersistentFlags().String("mode", "dev", `mode of server, can be "prod" or "dev" or "demo"`)
	rootCmd.PersistentFlags().String("addr", "", "address of server")
	rootCmd.PersistentFlags().Int("port", 28084, "port of server")
	rootCmd.PersistentFlags().String("unix-sock", "", "path to the unix socket, overrides --addr and --port")
	rootCmd.PersistentFlags().String("data", "", "data directory")
	rootCmd.PersistentFlags().String("driver", "sqlite", "database driver (sqlite, postgres)")
	rootCmd.PersistentFlags().String("dsn", "", "database source name(aka. DSN)")
	rootCmd.PersistentFlags().String("instance-url", "", "the url of your tradechat instance")
	rootCmd.PersistentFlags().String("secret", "", "secret used to sign session tokens")

	for _, flag := range []string{"mode", "addr", "port", "unix-sock", "data", "driver", "dsn", "instance-url", "secret"} {
		if err := viper.BindPFlag(flag, rootCmd.PersistentFlags().Lookup(flag)); err != nil {
			panic(err)
		}
	}

	viper.SetEnvPrefix("tradechat")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version and build information",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Println(version.StringFull())
		},
	})
}

func printGreetings(profile *profile.Profile) {
	fmt.Printf("tradechat %s started successfully!\n", profile.Version)

	if profile.IsDev() {
		fmt.Fprint(os.Stderr, "Development mode is enabled\n")
		if profile.DSN != "" {
			fmt.Fprintf(os.Stderr, "Database: %s\n", profile.DSN)
		}
	}

	fmt.Printf("Data directory: %s\n", profile.Data)
	fmt.Printf("Database driver: %s\n", profile.Driver)
	fmt.Printf("Mode: %s\n", profile.Mode)

	if len(profile.UNIXSock) == 0 {
		if len(profile.Addr) == 0 {
			fmt.Printf("Server running on port %d\n", profile.Port)
		} else {
			fmt.Printf("Server running on %s:%d\n", profile.Addr, profile.Port)
		}
	} else {
		fmt.Printf("Server running on unix socket: %s\n", profile.UNIXSock)
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		panic(err)
	}
}
