package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/8adimka/Go_Weather_Assistant/internal/team"
)

const rule = "──────────────────────────────────────────────────"

var (
	demoQueries = []string{"今天天气怎么样？", "上海明天天气", "广州未来3天天气"}
	exitWords   = map[string]bool{"exit": true, "quit": true, "退出": true, "q": true}
)

type runner interface {
	Run(ctx context.Context, task string) (*team.Result, error)
}

// CLI prints queries and replies the way an operator reads them.
type CLI struct {
	runner    runner
	out       io.Writer
	demoPause time.Duration
}

// traceLine narrates one coordinator decision.
func traceLine(d team.Decision) string {
	switch {
	case d.Terminated():
		return "✅ 协作流程完成！"
	case d.Next == team.IntentParser:
		return "🔄 协作流程：用户查询 → 意图解析代理"
	case d.Next == team.WeatherAgent:
		return "🔄 协作流程：意图解析完成 → 天气查询代理"
	case d.Next == team.Formatter:
		return "🔄 协作流程：天气查询完成 → 响应格式化代理"
	case d.Next == team.SingleAgent:
		return "🔄 协作流程：用户查询 → 天气助手"
	default:
		return "🔄 协作流程：→ " + d.Next
	}
}

func newTracer(out io.Writer) team.Trace {
	return func(_ []team.Message, d team.Decision) {
		fmt.Fprintln(out, traceLine(d))
	}
}

// Query answers one question and prints the result. Failures are printed,
// not returned, so the interactive loop keeps going.
func (c *CLI) Query(ctx context.Context, q string) {
	fmt.Fprintf(c.out, "🗣️  用户查询: %s\n", q)
	fmt.Fprintln(c.out, rule)

	res, err := c.runner.Run(ctx, q)
	if err != nil {
		fmt.Fprintf(c.out, "❌ 查询失败: %v\n\n", err)
		return
	}

	fmt.Fprintln(c.out, "📋 查询结果:")
	fmt.Fprintln(c.out, rule)
	fmt.Fprintln(c.out, res.Reply)
	fmt.Fprintln(c.out, rule)
	fmt.Fprintln(c.out)
}

// Interactive reads queries from in until an exit word or EOF.
func (c *CLI) Interactive(ctx context.Context, in io.Reader) {
	fmt.Fprintln(c.out, "🌤️  欢迎使用智能天气查询系统")
	fmt.Fprintln(c.out, "💡 支持查询：今天/明天/未来几天的天气")
	fmt.Fprintln(c.out, "💡 支持城市：北京、上海、广州等37个主要城市")
	fmt.Fprintln(c.out, "💡 输入 'exit' 或 'quit' 退出系统")
	fmt.Fprintln(c.out)

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(c.out, "🌟 请输入天气查询: ")
		if !scanner.Scan() {
			fmt.Fprintln(c.out, "\n👋 感谢使用，再见！")
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if exitWords[strings.ToLower(line)] {
			fmt.Fprintln(c.out, "👋 感谢使用，再见！")
			return
		}
		if ctx.Err() != nil {
			return
		}
		c.Query(ctx, line)
	}
}

// Demo runs the canned queries with a pause between them.
func (c *CLI) Demo(ctx context.Context) error {
	fmt.Fprintln(c.out, "🎭 天气查询演示模式")
	fmt.Fprintln(c.out)

	for i, q := range demoQueries {
		fmt.Fprintf(c.out, "📋 演示 %d/%d\n", i+1, len(demoQueries))
		c.Query(ctx, q)

		if i < len(demoQueries)-1 {
			fmt.Fprintln(c.out, "⏳ 准备下一个演示...")
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(c.demoPause):
			}
		}
	}

	fmt.Fprintln(c.out, "🎉 演示完成！")
	return nil
}
