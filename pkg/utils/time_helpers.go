package utils

import (
	"fmt"
	"strings"
	"time"
)

// FormatSecondsToHumanReadable преобразует секунды в строку вида "1д 2ч 3м 4с".
// Отрицательные значения (просрочка) выводятся со знаком минус.
func FormatSecondsToHumanReadable(totalSeconds int64) string {
	if totalSeconds == 0 {
		return "0с"
	}
	sign := ""
	if totalSeconds < 0 {
		sign = "-"
		totalSeconds = -totalSeconds
	}

	days := totalSeconds / (24 * 3600)
	totalSeconds %= 24 * 3600
	hours := totalSeconds / 3600
	totalSeconds %= 3600
	minutes := totalSeconds / 60
	seconds := totalSeconds % 60

	var parts []string
	if days > 0 {
		parts = append(parts, fmt.Sprintf("%dд", days))
	}
	if hours > 0 {
		parts = append(parts, fmt.Sprintf("%dч", hours))
	}
	if minutes > 0 {
		parts = append(parts, fmt.Sprintf("%dм", minutes))
	}
	if seconds > 0 || len(parts) == 0 {
		parts = append(parts, fmt.Sprintf("%dс", seconds))
	}

	return sign + strings.Join(parts, " ")
}

func FormatDuration(d time.Duration) string {
	return FormatSecondsToHumanReadable(int64(d / time.Second))
}
