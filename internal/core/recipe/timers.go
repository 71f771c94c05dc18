package recipe

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	timerCuePattern   = regexp.MustCompile(`(?i)(\d+(?:\s*(?:to|-)\s*\d+)?)\s*(hours?|hrs?|minutes?|mins?|seconds?|secs?)`)
	timerRangePattern = regexp.MustCompile(`(?i)(\d+)(?:\s*(?:to|-)\s*(\d+))?\s*(hours?|hrs?|minutes?|mins?|seconds?|secs?)?`)
)

const defaultTimerMinutes = 5

// TimerCue 步驟文字中可以啟動倒數的時間片段
type TimerCue struct {
	Text    string `json:"text"`
	Start   int    `json:"start"`
	End     int    `json:"end"`
	Min     int    `json:"min"`
	Max     int    `json:"max"`
	Unit    string `json:"unit"`
	Seconds int    `json:"seconds"`
	// Label 倒數起點的顯示文字，例如 "25 mins"
	Label string `json:"label"`
}

// FindTimerCues 找出步驟中的所有時間片段，例如 "10-12 minutes"
func FindTimerCues(step string) []TimerCue {
	locs := timerCuePattern.FindAllStringIndex(step, -1)
	cues := make([]TimerCue, 0, len(locs))
	for _, loc := range locs {
		text := step[loc[0]:loc[1]]
		r := ParseTimerRange(text)
		cues = append(cues, TimerCue{
			Text:    text,
			Start:   loc[0],
			End:     loc[1],
			Min:     r.Min,
			Max:     r.Max,
			Unit:    r.Unit,
			Seconds: r.Seconds(r.Min),
			Label:   r.Label(r.Min),
		})
	}
	return cues
}

// TimerRange 解析後的時間範圍，單位為 hr、min 或 sec
type TimerRange struct {
	Min  int
	Max  int
	Unit string
}

// ParseTimerRange 解析 "5 to 7 mins" 之類的文字；無法解析時為 5 分鐘
func ParseTimerRange(text string) TimerRange {
	m := timerRangePattern.FindStringSubmatch(text)
	if m == nil {
		return TimerRange{Min: defaultTimerMinutes, Max: defaultTimerMinutes, Unit: "min"}
	}
	min, _ := strconv.Atoi(m[1])
	max := min
	if m[2] != "" {
		max, _ = strconv.Atoi(m[2])
	}
	return TimerRange{Min: min, Max: max, Unit: shortUnit(m[3])}
}

func shortUnit(unit string) string {
	unit = strings.ToLower(unit)
	switch {
	case strings.HasPrefix(unit, "hour"), strings.HasPrefix(unit, "hr"):
		return "hr"
	case strings.HasPrefix(unit, "sec"):
		return "sec"
	default:
		return "min"
	}
}

// Seconds 將範圍內的某個值換算為秒
func (r TimerRange) Seconds(value int) int {
	switch r.Unit {
	case "hr":
		return value * 3600
	case "sec":
		return value
	default:
		return value * 60
	}
}

// Label 例如 "1 hr"、"12 mins"
func (r TimerRange) Label(value int) string {
	if value == 1 {
		return fmt.Sprintf("%d %s", value, r.Unit)
	}
	return fmt.Sprintf("%d %ss", value, r.Unit)
}

// FormatClock 將秒數轉為 H:MM:SS 或 M:SS
func FormatClock(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	h := seconds / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}
