package collector

import "time"

// MonthWindow 某个自然月的查询区间
type MonthWindow struct {
	Key   string // YYYY-MM
	Start time.Time
	End   time.Time // 含当天，当月截至 now
}

// Contains 判断时间点是否落在窗口内
func (w MonthWindow) Contains(t time.Time) bool {
	return !t.Before(w.Start) && !t.After(w.End)
}

// MonthWindows 生成以当月结尾的 n 个自然月窗口，按时间正序。
// 窗口一律按 UTC 划分，与缓存键、入库日期和时间序列的月份保持一致。
// 月份回退显式处理跨年，不用固定天数偏移。
func MonthWindows(now time.Time, n int) []MonthWindow {
	if n <= 0 {
		return nil
	}
	now = now.UTC()
	loc := time.UTC
	year, month := now.Year(), int(now.Month())

	windows := make([]MonthWindow, n)
	for i := n - 1; i >= 0; i-- {
		nextYear, nextMonth := year, month+1
		if nextMonth > 12 {
			nextMonth = 1
			nextYear++
		}
		start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, loc)
		end := time.Date(nextYear, time.Month(nextMonth), 1, 0, 0, 0, 0, loc).Add(-time.Nanosecond)
		if end.After(now) {
			end = now
		}
		windows[i] = MonthWindow{Key: start.Format("2006-01"), Start: start, End: end}

		month--
		if month < 1 {
			month = 12
			year--
		}
	}
	return windows
}
