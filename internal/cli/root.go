package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"auditeval/internal/config"
	"auditeval/internal/correlation"
	"auditeval/internal/display"
	"auditeval/internal/httpapi"
	"auditeval/internal/jobs"
	"auditeval/internal/llm_client"
	"auditeval/internal/logger"
	"auditeval/internal/model"
	"auditeval/internal/orchestrator"
	"auditeval/internal/tasks"
)

var (
	cfgPath  string
	fastPlan bool
)

var rootCmd = &cobra.Command{
	Use:   "auditeval",
	Short: "LLM-driven evaluation engine for internal-control audit items",
	Long:  `Evaluates internal-control audit test items by planning, dispatching, and self-reviewing LLM evaluation strategies over the supplied evidence.`,
}

func buildEngine(cfg *config.Config) (*orchestrator.Orchestrator, *jobs.Manager) {
	inf := tasks.ProviderInference{}
	registry := tasks.NewRegistry(inf)
	orch := orchestrator.New(inf, registry, orchestrator.Options{
		MaxPlanRevisions:     cfg.Engine.MaxPlanRevisions,
		MaxJudgmentRevisions: cfg.Engine.MaxJudgmentRevisions,
		FastPlan:             cfg.Engine.FastPlan,
		TaskConcurrency:      cfg.Engine.TaskConcurrency,
		Model:                cfg.LLM.Model,
	})
	manager := jobs.NewManager(jobs.NewMemoryStore(), orch, cfg.Engine.ItemConcurrency, cfg.ItemTimeout())
	return orch, manager
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the evaluation HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		orch, manager := buildEngine(cfg)
		server := httpapi.NewServer(cfg, orch, manager)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		// Graceful shutdown
		c := make(chan os.Signal, 1)
		signal.Notify(c, os.Interrupt, syscall.SIGTERM)
		go func() {
			<-c
			cancel()
		}()

		manager.Start(ctx)
		logger.Log.Printf("serving on %s (env=%s, backend=%s)", cfg.ListenAddr, cfg.Environment, cfg.LLM.Backend)
		fmt.Printf("auditeval listening on %s\n", cfg.ListenAddr)
		return server.Serve(ctx)
	},
}

var evaluateCmd = &cobra.Command{
	Use:   "evaluate <items.json>",
	Short: "Evaluate audit items from a JSON file and print the results",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if fastPlan {
			cfg.Engine.FastPlan = true
		}
		orch, _ := buildEngine(cfg)

		raw, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("read items file: %w", err)
		}
		var items []model.Item
		if err := json.Unmarshal(raw, &items); err != nil {
			return fmt.Errorf("parse items file: %w", err)
		}
		if len(items) == 0 {
			return fmt.Errorf("no items found in %s", args[0])
		}

		ctx, cid := correlation.EnsureID(context.Background())
		logger.Printf(ctx, "[cli] evaluating %d item(s) from %s", len(items), args[0])
		fmt.Printf("Correlation: %s\n\n", cid)

		for _, item := range items {
			itemCtx, cancel := context.WithTimeout(ctx, cfg.ItemTimeout())
			res := orch.Evaluate(itemCtx, item)
			cancel()

			fmt.Print(display.FormatItemResult(res))
			if res.Debug != nil {
				fmt.Println(display.FormatPlan(res.Debug.ExecutionPlan))
				fmt.Println(display.FormatItemMetrics(res.Debug.Metrics))
			}
			fmt.Println()
		}
		return nil
	},
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := logger.Init(cfg.LogFile); err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	if err := llm_client.Init(llm_client.Config{
		Backend:    cfg.LLM.Backend,
		Model:      cfg.LLM.Model,
		OllamaHost: cfg.LLM.OllamaHost,
	}); err != nil {
		return nil, fmt.Errorf("init LLM client: %w", err)
	}
	return cfg, nil
}

func Execute() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "auditeval.yaml", "path to the YAML config file")
	evaluateCmd.Flags().BoolVar(&fastPlan, "fast", false, "skip plan generation and run the default full plan")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(evaluateCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
