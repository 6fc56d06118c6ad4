package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/8adimka/Go_Weather_Assistant/internal/app"
	"github.com/8adimka/Go_Weather_Assistant/internal/chat/model"
	"github.com/8adimka/Go_Weather_Assistant/internal/config"
	"github.com/8adimka/Go_Weather_Assistant/internal/logging"
)

type flags struct {
	demo    bool
	single  bool
	verbose bool
}

func newRootCmd() *cobra.Command {
	var f flags

	cmd := &cobra.Command{
		Use:   "weather [query...]",
		Short: "智能天气查询",
		Long: "Ask about the weather in plain language. With no arguments an interactive " +
			"prompt is started; otherwise the arguments are joined into a single query.",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), f, args)
		},
	}

	cmd.Flags().BoolVar(&f.demo, "demo", false, "run the built-in demo queries")
	cmd.Flags().BoolVar(&f.single, "single", false, "answer with the single weather_bot agent")
	cmd.Flags().BoolVarP(&f.verbose, "verbose", "v", false, "print routing decisions and debug logs")
	return cmd
}

func run(ctx context.Context, f flags, args []string) error {
	cfg := config.Load()
	cfg.Verbose = cfg.Verbose || f.verbose

	logger := logging.New(os.Stderr, logging.Options{
		Verbose: cfg.Verbose,
		Quiet:   !cfg.Verbose,
		Secrets: []string{cfg.OpenAIApiKey, cfg.CaiyunApiKey, cfg.AmapApiKey},
	})
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("❌ 初始化失败: %w", err)
	}

	out := os.Stdout
	var opts app.Options
	if cfg.Verbose {
		opts.Trace = newTracer(out)
	}

	fmt.Fprintln(out, "🤖 初始化天气查询系统...")
	a, err := app.New(ctx, cfg, nil, opts)
	if err != nil {
		return fmt.Errorf("❌ 初始化失败: %w", err)
	}
	defer a.Close(context.Background())
	fmt.Fprintln(out, "✅ 系统准备就绪！")
	fmt.Fprintln(out)

	mode := model.ModeTeam
	if f.single {
		mode = model.ModeSingle
	}
	cli := &CLI{runner: a.Runner(mode), out: out, demoPause: 2 * time.Second}

	switch {
	case f.demo:
		return cli.Demo(ctx)
	case len(args) > 0:
		cli.Query(ctx, strings.Join(args, " "))
		return nil
	default:
		cli.Interactive(ctx, os.Stdin)
		return nil
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		if ctx.Err() != nil {
			fmt.Println("\n👋 感谢使用，再见！")
			return
		}
		os.Exit(1)
	}
}
