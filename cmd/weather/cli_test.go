package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/8adimka/Go_Weather_Assistant/internal/team"
)

type echoRunner struct {
	tasks []string
	err   error
}

func (e *echoRunner) Run(_ context.Context, task string) (*team.Result, error) {
	e.tasks = append(e.tasks, task)
	if e.err != nil {
		return &team.Result{Reply: team.FailureReply}, e.err
	}
	return &team.Result{Reply: "回复：" + task}, nil
}

func TestTraceLine(t *testing.T) {
	tests := []struct {
		d    team.Decision
		want string
	}{
		{team.RouteTo(team.IntentParser), "🔄 协作流程：用户查询 → 意图解析代理"},
		{team.RouteTo(team.WeatherAgent), "🔄 协作流程：意图解析完成 → 天气查询代理"},
		{team.RouteTo(team.Formatter), "🔄 协作流程：天气查询完成 → 响应格式化代理"},
		{team.RouteTo(team.SingleAgent), "🔄 协作流程：用户查询 → 天气助手"},
		{team.Terminate(team.ReasonNoSuccessor), "✅ 协作流程完成！"},
	}
	for _, tt := range tests {
		if got := traceLine(tt.d); got != tt.want {
			t.Errorf("traceLine(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

func TestInteractiveStopsOnExitWords(t *testing.T) {
	for _, word := range []string{"exit", "QUIT", "退出", "q"} {
		t.Run(word, func(t *testing.T) {
			r := &echoRunner{}
			var out bytes.Buffer
			cli := &CLI{runner: r, out: &out}

			cli.Interactive(context.Background(), strings.NewReader("上海明天天气\n\n"+word+"\n北京\n"))

			if len(r.tasks) != 1 || r.tasks[0] != "上海明天天气" {
				t.Errorf("tasks = %v", r.tasks)
			}
			if !strings.Contains(out.String(), "回复：上海明天天气") {
				t.Errorf("reply missing from output:\n%s", out.String())
			}
			if !strings.Contains(out.String(), "👋 感谢使用，再见！") {
				t.Error("goodbye missing")
			}
		})
	}
}

func TestInteractiveEndsOnEOF(t *testing.T) {
	r := &echoRunner{}
	var out bytes.Buffer
	(&CLI{runner: r, out: &out}).Interactive(context.Background(), strings.NewReader("广州"))

	if len(r.tasks) != 1 {
		t.Errorf("tasks = %v", r.tasks)
	}
}

func TestQueryPrintsFailure(t *testing.T) {
	r := &echoRunner{err: errors.New("stage weather_agent: boom")}
	var out bytes.Buffer
	(&CLI{runner: r, out: &out}).Query(context.Background(), "q")

	if !strings.Contains(out.String(), "❌ 查询失败: stage weather_agent: boom") {
		t.Errorf("unexpected output:\n%s", out.String())
	}
}

func TestDemoRunsCannedQueries(t *testing.T) {
	r := &echoRunner{}
	var out bytes.Buffer
	if err := (&CLI{runner: r, out: &out}).Demo(context.Background()); err != nil {
		t.Fatalf("Demo() error = %v", err)
	}

	if strings.Join(r.tasks, "|") != strings.Join(demoQueries, "|") {
		t.Errorf("tasks = %v", r.tasks)
	}
	if !strings.Contains(out.String(), "📋 演示 3/3") || !strings.Contains(out.String(), "🎉 演示完成！") {
		t.Errorf("unexpected output:\n%s", out.String())
	}
}

func TestDemoStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := &echoRunner{}
	var out bytes.Buffer
	err := (&CLI{runner: r, out: &out, demoPause: time.Hour}).Demo(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Demo() error = %v, want context.Canceled", err)
	}
	if len(r.tasks) != 1 {
		t.Errorf("tasks = %v", r.tasks)
	}
}

func TestRootCommandFlags(t *testing.T) {
	cmd := newRootCmd()
	for _, name := range []string{"demo", "single", "verbose"} {
		if cmd.Flags().Lookup(name) == nil {
			t.Errorf("flag --%s missing", name)
		}
	}
}
