package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/tacmesh/meshnode/transport"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "meshnode",
	Short: "Tactical mesh messaging node",
	Long: `meshnode runs a single tactical mesh messaging node: it maintains a
long-term signing/encryption identity, exchanges signed messages over an
IP-broadcast and/or serial transport, and persists an authoritative local
view of nodes, positions, and messages for query.`,
	RunE: runNode,
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	flags := rootCmd.Flags()
	flags.String("root", "./meshnode-data", "application root directory")
	flags.String("env-file", "", "optional .env file to load before reading flags")

	flags.String("callsign", "", "node callsign")
	flags.String("unit", "", "node unit")
	flags.String("rank", "", "node rank")
	flags.String("role", "", "node role")
	flags.Int("clearance-level", 0, "node clearance level (0-5)")

	flags.Bool("batman-enabled", false, "enable the IP-broadcast transport")
	flags.String("ip-interface", "", "network interface name for the IP-broadcast transport (not used for binding; the socket binds on all interfaces)")
	flags.Int("ip-port", transport.DefaultIPPort, "UDP port for the IP-broadcast transport")

	flags.Bool("lora-enabled", false, "enable the serial transport")
	flags.String("lora-port", "", "serial device path for the serial transport")
	flags.Int("lora-baudrate", 9600, "baud rate for the serial transport")

	flags.Bool("gps-enabled", false, "enable periodic static-position emission")
	flags.Float64("position-lat", 0, "static position latitude")
	flags.Float64("position-lon", 0, "static position longitude")
	flags.Float64("position-alt", 0, "static position altitude")

	flags.Int("active-window-seconds", 300, "liveness window for nodes and positions")
	flags.String("geofence-seed", "", "optional YAML file of geofence zones to load at startup")
}

func runNode(cmd *cobra.Command, args []string) error {
	flags := cmd.Flags()

	envFile, _ := flags.GetString("env-file")
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return fmt.Errorf("loading env file %s: %w", envFile, err)
		}
	}

	cfg, err := loadBootConfig(flags)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	node, cleanup, err := bootstrap(cfg)
	if err != nil {
		return fmt.Errorf("bootstrapping node: %w", err)
	}
	defer cleanup()

	logrus.WithField("root", cfg.root).Info("meshnode running, press ctrl-c to stop")
	waitForShutdownSignal()

	logrus.Info("shutting down")
	return node.Stop()
}
