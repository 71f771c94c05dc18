package recipe

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

var (
	isoHoursMinutes = regexp.MustCompile(`P(?:T(?:(\d+)H)?(?:(\d+)M)?)?`)
	isoFull         = regexp.MustCompile(`P(?:\d+Y)?(?:\d+M)?(?:\d+D)?T(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)S)?`)
	amountPattern   = regexp.MustCompile(`^([\d.]+)\s*(.*)$`)
	leadingFloat    = regexp.MustCompile(`^(?:\d+(?:\.\d*)?|\.\d+)`)
)

// fraction 常見的烹飪分數，依分母由小到大排列
type fraction struct {
	value   float64
	display string
}

var fractions = []fraction{
	{1.0 / 8, "1/8"},
	{1.0 / 4, "1/4"},
	{1.0 / 3, "1/3"},
	{3.0 / 8, "3/8"},
	{1.0 / 2, "1/2"},
	{5.0 / 8, "5/8"},
	{2.0 / 3, "2/3"},
	{3.0 / 4, "3/4"},
	{7.0 / 8, "7/8"},
}

const fractionTolerance = 0.01

// FormatDuration 將 PT1H30M 形式的時間轉為 "1 hour 30 minutes"。
// 非 P 開頭或沒有時、分欄位時原樣回傳。
func FormatDuration(duration string) string {
	if duration == "" {
		return ""
	}
	if !strings.HasPrefix(duration, "P") {
		return duration
	}

	m := isoHoursMinutes.FindStringSubmatch(duration)
	if m == nil {
		return duration
	}

	var parts []string
	if h, _ := strconv.Atoi(m[1]); h > 0 {
		parts = append(parts, plural(h, "hour"))
	}
	if min, _ := strconv.Atoi(m[2]); min > 0 {
		parts = append(parts, plural(min, "minute"))
	}
	if len(parts) == 0 {
		return duration
	}
	return strings.Join(parts, " ")
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}

// CompactDuration 卡片用的精簡格式，例如 P0DT1H30M 轉為 "1h 30m"
func CompactDuration(duration string) string {
	if duration == "" {
		return ""
	}
	m := isoFull.FindStringSubmatch(duration)
	if m == nil {
		return duration
	}

	var parts []string
	for i, unit := range []string{"h", "m", "s"} {
		if v := m[i+1]; v != "" && v != "0" {
			parts = append(parts, v+unit)
		}
	}
	if len(parts) == 0 {
		return duration
	}
	return strings.Join(parts, " ")
}

// FormatAmount 將 "1.5 cups" 這類份量轉為 "1 1/2 cups"。
// 已含 "/" 或非數字開頭的字串原樣回傳（去除前後空白）。
func FormatAmount(amount string) string {
	amount = strings.TrimSpace(amount)
	if amount == "" || strings.Contains(amount, "/") {
		return amount
	}

	m := amountPattern.FindStringSubmatch(amount)
	if m == nil {
		return amount
	}

	lit := leadingFloat.FindString(m[1])
	if lit == "" {
		return amount
	}
	value, err := strconv.ParseFloat(lit, 64)
	if err != nil {
		return amount
	}

	formatted := formatNumber(value)
	if unit := strings.TrimSpace(m[2]); unit != "" {
		return formatted + " " + unit
	}
	return formatted
}

// FormatQuantity 數字份量的格式化；NaN 與無限大回傳 "0"
func FormatQuantity(value float64) string {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return "0"
	}
	return formatNumber(value)
}

func formatNumber(value float64) string {
	if value == math.Trunc(value) {
		return strconv.FormatFloat(value, 'f', -1, 64)
	}

	whole := math.Floor(value)
	decimal := value - whole
	for _, f := range fractions {
		if math.Abs(decimal-f.value) < fractionTolerance {
			if whole > 0 {
				return strconv.FormatFloat(whole, 'f', -1, 64) + " " + f.display
			}
			return f.display
		}
		if whole == 0 && math.Abs(value-f.value) < fractionTolerance {
			return f.display
		}
	}

	if value < 1 {
		rounded := math.Round(value*100) / 100
		if rounded == 0 {
			return "0"
		}
		return strconv.FormatFloat(rounded, 'f', -1, 64)
	}

	return strings.TrimSuffix(strconv.FormatFloat(value, 'f', 2, 64), ".00")
}
