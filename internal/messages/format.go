package messages

import "fmt"

// HumanBytes renders a byte count the way the progress surfaces expect:
// integer B/KB, two decimals from MB up, "Unknown" for negative input.
func HumanBytes(size int64) string {
	if size < 0 {
		return "Unknown"
	}
	if size == 0 {
		return "0 B"
	}
	v := float64(size)
	for _, unit := range []string{"B", "KB", "MB", "GB", "TB"} {
		if v < 1024 {
			if unit == "B" || unit == "KB" {
				return fmt.Sprintf("%d %s", int64(v), unit)
			}
			return fmt.Sprintf("%.2f %s", v, unit)
		}
		v /= 1024
	}
	return fmt.Sprintf("%.2f PB", v)
}

// TimeFormat renders a duration in seconds as "1h 2m 3s".
func TimeFormat(seconds int64) string {
	if seconds < 0 {
		seconds = 0
	}
	minutes, sec := seconds/60, seconds%60
	hours, minutes := minutes/60, minutes%60
	if hours > 0 {
		return fmt.Sprintf("%dh %dm %ds", hours, minutes, sec)
	}
	if minutes > 0 {
		return fmt.Sprintf("%dm %ds", minutes, sec)
	}
	return fmt.Sprintf("%ds", sec)
}

// ProgressBar draws the 12-cell text bar used in chat status messages.
func ProgressBar(percentage float64) string {
	const length = 12
	if percentage < 0 {
		percentage = 0
	}
	if percentage > 100 {
		percentage = 100
	}
	filled := int(length * percentage / 100)
	bar := ""
	for i := 0; i < length; i++ {
		if i < filled {
			bar += "█"
		} else {
			bar += "░"
		}
	}
	return fmt.Sprintf("[%s] %.1f%%", bar, percentage)
}
