package pkg

import (
	"fmt"
	"time"
)

// FormatDuration форматирует duration в удобочитаемый формат
func FormatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.2fs", d.Seconds())
	}
	if d < time.Hour {
		return fmt.Sprintf("%.2fm", d.Minutes())
	}
	return fmt.Sprintf("%.2fh", d.Hours())
}

// FormatRate форматирует скорость обработки
func FormatRate(messagesProcessed int64, duration time.Duration) string {
	if duration.Seconds() == 0 {
		return "0 msg/s"
	}
	rate := float64(messagesProcessed) / duration.Seconds()
	return fmt.Sprintf("%.2f msg/s", rate)
}

// FormatDate форматирует дату в виде ДД.ММ.ГГГГ
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("02.01.2006")
}
