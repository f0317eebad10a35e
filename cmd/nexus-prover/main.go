// Command nexus-prover is the CLI entry point: it wires every internal
// package into the five user-facing commands (start, register-user,
// register-node, logout, and the hidden prove-fib-subprocess) into one
// process, down to the signal.NotifyContext shutdown.
package main

import (
	"context"
	"crypto/ed25519"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/nexusprover/client/internal/analytics"
	"github.com/nexusprover/client/internal/buildinfo"
	"github.com/nexusprover/client/internal/cache"
	"github.com/nexusprover/client/internal/config"
	"github.com/nexusprover/client/internal/events"
	"github.com/nexusprover/client/internal/fetcher"
	"github.com/nexusprover/client/internal/logging"
	"github.com/nexusprover/client/internal/netclient"
	"github.com/nexusprover/client/internal/orchestrator"
	"github.com/nexusprover/client/internal/prover"
	"github.com/nexusprover/client/internal/ratelimit"
	"github.com/nexusprover/client/internal/submitter"
	"github.com/nexusprover/client/internal/subprocessproto"
	"github.com/nexusprover/client/internal/task"
	"github.com/nexusprover/client/internal/telemetry"
	"github.com/nexusprover/client/internal/versiongate"
	"github.com/nexusprover/client/internal/worker"
)

// versionGateURL and analyticsEndpoint are the fixed external services the
// CLI reports to, matching the shape described for the external interfaces.
const (
	versionGateURL    = "https://nexus.xyz/api/v3/versions"
	analyticsEndpoint = "https://nexus.xyz/api/v3/analytics"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "panic: %v\n", r)
			os.Exit(1)
		}
	}()

	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "nexus-prover",
		Short:         "Prove Nexus network tasks",
		Version:       fmt.Sprintf("%s (build %s)", buildinfo.Version, buildinfo.BuildTimestamp),
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.AddCommand(
		newStartCmd(),
		newRegisterUserCmd(),
		newRegisterNodeCmd(),
		newLogoutCmd(),
		newProveFibSubprocessCmd(),
	)
	return root
}

// newSettings binds env vars via viper and installs the global slog logger
// at the resolved RUST_LOG-style level before returning the settings every
// command reads its environment/log-level knobs from.
func newSettings() *config.Settings {
	settings := config.NewSettings()
	logging.Init("nexus-prover", settings.LogLevel())
	return settings
}

func newStartCmd() *cobra.Command {
	var (
		nodeIDFlag      string
		headless        bool
		maxThreads      int
		orchestratorURL string
		checkMemory     bool
		withBackground  bool
		maxTasks        int
		maxDifficulty   string
	)

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start the prover",
		RunE: func(cmd *cobra.Command, args []string) error {
			_ = headless       // the TUI is out of scope; start always runs headless
			_ = withBackground // no TUI background to color
			_ = checkMemory    // memory-risk heuristics are not reproduced
			if maxThreads != 0 {
				fmt.Fprintln(os.Stderr, "warning: --max-threads is deprecated; it sets the number of workers, clamped to 1-8")
			}

			settings := newSettings()

			difficulty := task.Large
			if maxDifficulty != "" {
				d, err := task.ParseDifficulty(maxDifficulty)
				if err != nil {
					fmt.Fprintf(os.Stderr, "Error: invalid difficulty level %q\n", maxDifficulty)
					return err
				}
				difficulty = d
			}

			env := settings.Environment()
			baseURL := env.OrchestratorURL
			if orchestratorURL != "" {
				baseURL = orchestratorURL
			}

			cfgPath, err := config.Path()
			if err != nil {
				return err
			}
			nodeCfg, err := config.Load(cfgPath)
			if err != nil {
				return err
			}
			nodeID := nodeCfg.NodeID
			if nodeIDFlag != "" {
				nodeID = nodeIDFlag
			}
			if nodeID == "" {
				return fmt.Errorf("no node registered; run 'nexus-prover register-node' first")
			}

			wc := worker.WorkerConfig{
				OrchestratorURL: baseURL,
				ClientID:        nodeCfg.UserID,
				NodeID:          nodeID,
				MaxDifficulty:   difficulty,
				NumWorkers:      maxThreads,
				MaxTasks:        maxTasks,
			}.Clamp()

			orchestratorClient := orchestrator.New(wc.OrchestratorURL)

			ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			if err := runVersionGate(ctx, orchestratorClient); err != nil {
				return err
			}

			selfPath, err := os.Executable()
			if err != nil {
				selfPath = os.Args[0]
			}

			bus := events.NewBus()
			go drainEvents(ctx, bus)

			shutdownTracer := telemetry.InitTracer(ctx, "nexus-prover")
			defer telemetry.Flush(context.Background(), shutdownTracer)
			shutdownMeter, _ := telemetry.InitMeter(ctx, "nexus-prover")
			defer telemetry.Flush(context.Background(), shutdownMeter)

			timer := ratelimit.New(ratelimit.Config{
				MinInterval:       200 * time.Millisecond,
				MaxRequests:       100,
				TimeWindow:        time.Minute,
				DefaultRetryDelay: 2 * time.Minute,
			})
			// Fetch and submit share one RequestTimer so a server-directed
			// wait on one path is honored by the other, but each gets its
			// own Client so published failure events are tagged with the
			// stage that actually hit the network.
			netFetch := netclient.New(timer, bus, events.Fetcher())
			netSubmit := netclient.New(timer, bus, events.Submitter())

			analyticsSink := analytics.New(analyticsEndpoint, wc.ClientID, nil)

			pubKey, signingKey, err := ed25519.GenerateKey(nil)
			if err != nil {
				return fmt.Errorf("generate signing key: %w", err)
			}
			pubKeyHex := hex.EncodeToString(pubKey)

			configs := make([]worker.Config, wc.NumWorkers)
			for i := range configs {
				taskFetcher := fetcher.New(fetcher.Config{
					Client:              orchestratorClient,
					Net:                 netFetch,
					Bus:                 bus,
					Analytics:           analyticsSink,
					Seen:                cache.New(500),
					NodeID:              wc.NodeID,
					Ed25519PublicKeyHex: pubKeyHex,
					CeilingDifficulty:   wc.MaxDifficulty,
					FetchPolicy:         netclient.Policy{MaxAttempts: 5},
				})
				taskProver := prover.New(prover.Config{
					Bus:       bus,
					Analytics: analyticsSink,
					Runner:    prover.SubprocessRunner{},
					SelfPath:  selfPath,
				})
				proofSubmitter := submitter.New(submitter.Config{
					Client:       orchestratorClient,
					Net:          netSubmit,
					Bus:          bus,
					Analytics:    analyticsSink,
					Submitted:    cache.New(500),
					SigningKey:   signingKey,
					SubmitPolicy: netclient.Policy{MaxAttempts: 10},
				})
				configs[i] = worker.Config{
					Fetcher:   taskFetcher,
					Prover:    taskProver,
					Submitter: proofSubmitter,
					Bus:       bus,
					MaxTasks:  wc.MaxTasks,
				}
			}

			pool := worker.NewPool(configs)
			pool.Run(ctx)
			return nil
		},
	}

	cmd.Flags().StringVar(&nodeIDFlag, "node-id", "", "node ID (overrides the saved config)")
	cmd.Flags().BoolVar(&headless, "headless", false, "run without the terminal UI")
	cmd.Flags().IntVar(&maxThreads, "max-threads", 0, "deprecated; number of workers, clamped to 1-8")
	cmd.Flags().StringVar(&orchestratorURL, "orchestrator-url", "", "custom orchestrator URL")
	cmd.Flags().BoolVar(&checkMemory, "check-memory", false, "accepted for compatibility; no memory check is performed")
	cmd.Flags().BoolVar(&withBackground, "with-background", false, "accepted for compatibility; there is no dashboard to color")
	cmd.Flags().IntVar(&maxTasks, "max-tasks", 0, "maximum number of tasks to process before exiting")
	cmd.Flags().StringVar(&maxDifficulty, "max-difficulty", "", "maximum difficulty to request")
	return cmd
}

func newRegisterUserCmd() *cobra.Command {
	var walletAddress string
	cmd := &cobra.Command{
		Use:   "register-user",
		Short: "Register a new user",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !isValidEthAddress(walletAddress) {
				return fmt.Errorf("invalid Ethereum wallet address %q: must be a 42-character hex string starting with '0x'", walletAddress)
			}

			settings := newSettings()
			cfgPath, err := config.Path()
			if err != nil {
				return err
			}
			nodeCfg, err := config.Load(cfgPath)
			if err != nil {
				return err
			}
			if strings.EqualFold(nodeCfg.WalletAddress, walletAddress) && nodeCfg.UserID != "" {
				fmt.Printf("User already registered. User ID: %s, Wallet Address: %s\n", nodeCfg.UserID, nodeCfg.WalletAddress)
				return nil
			}

			env := settings.Environment()
			orchestratorClient := orchestrator.New(env.OrchestratorURL)
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			if userID, err := orchestratorClient.GetUser(ctx, walletAddress); err == nil && userID != "" {
				fmt.Printf("Wallet address is already registered. User ID: %s\n", userID)
				return config.Save(cfgPath, config.NodeConfig{
					UserID: userID, WalletAddress: walletAddress, Environment: env.Name,
				})
			}

			userID := uuid.NewString()
			if err := orchestratorClient.RegisterUser(ctx, userID, walletAddress); err != nil {
				return fmt.Errorf("register user: %w", err)
			}
			fmt.Printf("User %s registered successfully.\n", userID)
			return config.Save(cfgPath, config.NodeConfig{
				UserID: userID, WalletAddress: walletAddress, Environment: env.Name,
			})
		},
	}
	cmd.Flags().StringVar(&walletAddress, "wallet-address", "", "user's public Ethereum wallet address")
	cmd.MarkFlagRequired("wallet-address")
	return cmd
}

func newRegisterNodeCmd() *cobra.Command {
	var nodeID string
	cmd := &cobra.Command{
		Use:   "register-node",
		Short: "Register a new node to an existing user, or link an existing node to a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			settings := newSettings()
			cfgPath, err := config.Path()
			if err != nil {
				return err
			}
			nodeCfg, err := config.Load(cfgPath)
			if err != nil {
				return err
			}
			if nodeCfg.UserID == "" {
				return fmt.Errorf("no registered user; run 'nexus-prover register-user' first")
			}

			env := settings.Environment()
			orchestratorClient := orchestrator.New(env.OrchestratorURL)
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			if nodeID != "" {
				if _, err := orchestratorClient.GetNode(ctx, nodeID); err != nil {
					return fmt.Errorf("verify node %s: %w", nodeID, err)
				}
				nodeCfg.NodeID = nodeID
				fmt.Printf("Node %s linked to user %s.\n", nodeID, nodeCfg.UserID)
			} else {
				newNodeID, err := orchestratorClient.RegisterNode(ctx, nodeCfg.UserID)
				if err != nil {
					return fmt.Errorf("register node: %w", err)
				}
				nodeCfg.NodeID = newNodeID
				fmt.Printf("Node %s registered successfully.\n", newNodeID)
			}
			nodeCfg.Environment = env.Name
			return config.Save(cfgPath, nodeCfg)
		},
	}
	cmd.Flags().StringVar(&nodeID, "node-id", "", "ID of the node to register; if omitted, a new node is created")
	return cmd
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Clear the node configuration and logout",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath, err := config.Path()
			if err != nil {
				return err
			}
			fmt.Println("Logging out: clearing node configuration file...")
			return config.Delete(cfgPath)
		},
	}
}

func newProveFibSubprocessCmd() *cobra.Command {
	var inputs string
	cmd := &cobra.Command{
		Use:    "prove-fib-subprocess",
		Hidden: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := subprocessproto.DecodeRequest(inputs)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(subprocessproto.ExitCodeGuestProgramError)
			}
			out := prover.RunGuestFib(req)
			if _, err := os.Stdout.Write(out); err != nil {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&inputs, "inputs", "", "serialized (n, init_a, init_b) inputs")
	cmd.MarkFlagRequired("inputs")
	return cmd
}

func runVersionGate(ctx context.Context, orchestratorClient *orchestrator.Client) error {
	gate := versiongate.New(versionGateURL)
	country := orchestratorClient.CountryCode(ctx)
	violation, err := gate.Check(ctx, buildinfo.Version, country)
	if err != nil {
		var denied *versiongate.DeniedCountry
		if errors.As(err, &denied) {
			fmt.Fprintf(os.Stderr, "This service is not available in your region (%s).\n", denied.Code)
			return err
		}
		fmt.Fprintln(os.Stderr, err)
		return err
	}
	if violation != nil {
		fmt.Fprintln(os.Stderr, violation.Message)
	}
	return nil
}

func drainEvents(ctx context.Context, bus *events.Bus) {
	ch := bus.Subscribe(100)
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-ch:
			if !ok {
				return
			}
			fmt.Printf("[%s] %s %s\n", e.Worker, e.Level, e.Message)
		}
	}
}

func isValidEthAddress(address string) bool {
	if len(address) != 42 {
		return false
	}
	if !strings.HasPrefix(address, "0x") && !strings.HasPrefix(address, "0X") {
		return false
	}
	for _, r := range address[2:] {
		if !isHexDigit(r) {
			return false
		}
	}
	return true
}

func isHexDigit(r rune) bool {
	return (r >= '0' && r <= '9') || (r >= 'a' && r <= 'f') || (r >= 'A' && r <= 'F')
}
