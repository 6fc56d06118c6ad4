package factory

import (
	"log/slog"

	"github.com/8adimka/Go_Weather_Assistant/internal/tools/datetime"
	"github.com/8adimka/Go_Weather_Assistant/internal/tools/registry"
	weathertool "github.com/8adimka/Go_Weather_Assistant/internal/tools/weather"
)

// Factory creates and registers all available tools
type Factory struct {
	registry *registry.ToolRegistry
	surface  *weathertool.Surface
}

// NewFactory creates a tool factory over a weather Surface.
func NewFactory(surface *weathertool.Surface) *Factory {
	return &Factory{
		registry: registry.NewToolRegistry(),
		surface:  surface,
	}
}

// CreateAllTools registers the weather tools followed by the datetime helper.
func (f *Factory) CreateAllTools() *registry.ToolRegistry {
	f.registerWeatherTools()
	f.registerDateTimeTool()

	slog.Info("All tools registered successfully", "count", f.registry.Count(), "names", f.registry.GetToolNames())
	return f.registry
}

func (f *Factory) registerWeatherTools() {
	for _, tool := range weathertool.Tools(f.surface) {
		f.registry.Register(tool)
	}
}

func (f *Factory) registerDateTimeTool() {
	f.registry.Register(datetime.New())
}

// GetRegistry returns the tool registry
func (f *Factory) GetRegistry() *registry.ToolRegistry {
	return f.registry
}
