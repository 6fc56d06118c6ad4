package datetime

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/8adimka/Go_Weather_Assistant/internal/tools/registry"
)

var weekdays = [...]string{"星期日", "星期一", "星期二", "星期三", "星期四", "星期五", "星期六"}

// DateTimeTool reports the current date in China Standard Time so the model
// can resolve relative phrasing such as 今天 or 后天.
type DateTimeTool struct {
	loc *time.Location
	now func() time.Time
}

// New creates a DateTimeTool. If the zone database is unavailable a fixed
// UTC+8 zone is used.
func New() *DateTimeTool {
	loc, err := time.LoadLocation("Asia/Shanghai")
	if err != nil {
		loc = time.FixedZone("CST", 8*60*60)
	}
	return &DateTimeTool{loc: loc, now: time.Now}
}

// Name returns the tool name
func (d *DateTimeTool) Name() string {
	return "get_current_datetime"
}

// Description returns the tool description
func (d *DateTimeTool) Description() string {
	return "获取当前日期、时间和星期（北京时间）"
}

// Parameters returns the JSON schema for parameters
func (d *DateTimeTool) Parameters() map[string]any {
	return map[string]any{
		"type":       "object",
		"properties": map[string]any{},
	}
}

// Execute returns the current date and time
func (d *DateTimeTool) Execute(ctx context.Context, _ json.RawMessage) (string, error) {
	t := d.now().In(d.loc)
	return fmt.Sprintf("当前时间：%s %s（%s）", t.Format("2006-01-02"), t.Format("15:04"), weekdays[t.Weekday()]), nil
}

var _ registry.Tool = (*DateTimeTool)(nil)
