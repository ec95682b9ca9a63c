package db

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/CaroLe-prw/zap/internal/model"
)

// DateQuery selects the statistics window. Dates are YYYY-MM-DD; the
// month view also accepts YYYY-MM as a whole-month shorthand.
type DateQuery struct {
	StartDate *string `json:"start_date"`
	EndDate   *string `json:"end_date"`
}

type CategoryStat struct {
	Name       string  `json:"name"`
	Color      string  `json:"color"`
	Seconds    int64   `json:"seconds"`
	Percentage float64 `json:"percentage"`
}

type DailyStat struct {
	DayName    string  `json:"day_name"`
	Date       string  `json:"date"`
	Seconds    int64   `json:"seconds"`
	Percentage float64 `json:"percentage"`
}

type MonthlyDailyStat struct {
	Date    string `json:"date"`
	Seconds int64  `json:"seconds"`
	Active  bool   `json:"active"`
	Level   int    `json:"level"`
}

type TaskStat struct {
	TaskID        int64   `json:"task_id"`
	TaskTitle     string  `json:"task_title"`
	Category      *string `json:"category"`
	CategoryColor *string `json:"category_color"`
	Seconds       int64   `json:"seconds"`
	LastTime      *string `json:"last_time"`
}

type TodayStatsResponse struct {
	TotalSeconds   int64          `json:"total_seconds"`
	FocusedSeconds int64          `json:"focused_seconds"`
	SessionsCount  int64          `json:"sessions_count"`
	Categories     []CategoryStat `json:"categories"`
	DetailedReport []TaskStat     `json:"detailed_report"`
}

type WeekStatsResponse struct {
	TotalSeconds        int64          `json:"total_seconds"`
	DailyAverageSeconds int64          `json:"daily_average_seconds"`
	SessionsCount       int64          `json:"sessions_count"`
	DailyBreakdown      []DailyStat    `json:"daily_breakdown"`
	Categories          []CategoryStat `json:"categories"`
}

type MonthStatsResponse struct {
	TotalSeconds        int64              `json:"total_seconds"`
	DailyAverageSeconds int64              `json:"daily_average_seconds"`
	ActiveDays          int64              `json:"active_days"`
	MonthlyOverview     []MonthlyDailyStat `json:"monthly_overview"`
	Categories          []CategoryStat     `json:"categories"`
	TopTasks            []TaskStat         `json:"top_tasks"`
}

// openSession is an unclosed entry inside the queried window. Its live
// seconds come from the clock at query time, never from a persisted
// field, and are blended into every aggregate that covers its
// day/category/task.
type openSession struct {
	taskID        int64
	taskTitle     string
	taskStatus    model.TaskStatus
	categoryID    int64
	categoryName  *string
	categoryColor *string
	day           string
	liveSeconds   int64
}

// TodayStats aggregates a single day, defaulting to the current date.
func (s *Store) TodayStats(ctx context.Context, query DateQuery) (TodayStatsResponse, error) {
	now := s.nowUTC()
	day := formatDay(now)
	if query.StartDate != nil {
		if parsed, err := parseDay(*query.StartDate); err == nil {
			day = formatDay(parsed)
		}
	}

	opens, err := s.openSessions(ctx, now, day, day)
	if err != nil {
		return TodayStatsResponse{}, err
	}

	total, err := s.closedTotal(ctx, day, day)
	if err != nil {
		return TodayStatsResponse{}, err
	}
	for _, open := range opens {
		total += open.liveSeconds
	}

	focused, err := s.focusedSeconds(ctx, day, day, opens)
	if err != nil {
		return TodayStatsResponse{}, err
	}

	sessions, err := s.sessionsCount(ctx, day, day)
	if err != nil {
		return TodayStatsResponse{}, err
	}

	categories, err := s.categoryStats(ctx, day, day, opens, total)
	if err != nil {
		return TodayStatsResponse{}, err
	}

	detailed, err := s.detailedReport(ctx, day, opens)
	if err != nil {
		return TodayStatsResponse{}, err
	}

	return TodayStatsResponse{
		TotalSeconds:   total,
		FocusedSeconds: focused,
		SessionsCount:  sessions,
		Categories:     categories,
		DetailedReport: detailed,
	}, nil
}

// WeekStats aggregates a date range defaulting to the 7 days ending
// today, inclusive.
func (s *Store) WeekStats(ctx context.Context, query DateQuery) (WeekStatsResponse, error) {
	now := s.nowUTC()

	end := now
	if query.EndDate != nil {
		if parsed, err := parseDay(*query.EndDate); err == nil {
			end = parsed
		}
	}
	start := end.AddDate(0, 0, -6)
	if query.StartDate != nil {
		if parsed, err := parseDay(*query.StartDate); err == nil {
			start = parsed
		}
	}

	startDay, endDay := formatDay(start), formatDay(end)

	dayCount := daySpan(start, end)
	if dayCount <= 0 {
		dayCount = 7
	}

	opens, err := s.openSessions(ctx, now, startDay, endDay)
	if err != nil {
		return WeekStatsResponse{}, err
	}

	total, err := s.closedTotal(ctx, startDay, endDay)
	if err != nil {
		return WeekStatsResponse{}, err
	}
	for _, open := range opens {
		total += open.liveSeconds
	}

	sessions, err := s.sessionsCount(ctx, startDay, endDay)
	if err != nil {
		return WeekStatsResponse{}, err
	}

	var dailyAverage int64
	if total > 0 {
		dailyAverage = total / dayCount
	}

	daySeconds, err := s.dailySeconds(ctx, startDay, endDay, opens)
	if err != nil {
		return WeekStatsResponse{}, err
	}

	breakdown := make([]DailyStat, 0, len(daySeconds))
	for _, day := range sortedDays(daySeconds) {
		breakdown = append(breakdown, DailyStat{
			DayName:    weekdayName(day),
			Date:       day,
			Seconds:    daySeconds[day],
			Percentage: percentage(daySeconds[day], total),
		})
	}

	categories, err := s.categoryStats(ctx, startDay, endDay, opens, total)
	if err != nil {
		return WeekStatsResponse{}, err
	}

	return WeekStatsResponse{
		TotalSeconds:        total,
		DailyAverageSeconds: dailyAverage,
		SessionsCount:       sessions,
		DailyBreakdown:      breakdown,
		Categories:          categories,
	}, nil
}

// MonthStats aggregates a range defaulting to the current calendar
// month. A YYYY-MM start date means the whole month; the overview
// covers every calendar day of the resolved range, active or not.
func (s *Store) MonthStats(ctx context.Context, query DateQuery) (MonthStatsResponse, error) {
	now := s.nowUTC()
	start, end := resolveMonthRange(now, query)
	startDay, endDay := formatDay(start), formatDay(end)

	dayCount := daySpan(start, end)
	if dayCount <= 0 {
		dayCount = 30
	}

	opens, err := s.openSessions(ctx, now, startDay, endDay)
	if err != nil {
		return MonthStatsResponse{}, err
	}

	total, err := s.closedTotal(ctx, startDay, endDay)
	if err != nil {
		return MonthStatsResponse{}, err
	}
	for _, open := range opens {
		total += open.liveSeconds
	}

	var activeDays int64
	if err := s.DB.QueryRowContext(ctx,
		"SELECT COUNT(DISTINCT date(started_at)) FROM time_entries WHERE date(started_at) >= ? AND date(started_at) <= ?",
		startDay, endDay,
	).Scan(&activeDays); err != nil {
		return MonthStatsResponse{}, fmt.Errorf("active days: %w", err)
	}

	var dailyAverage int64
	if total > 0 {
		dailyAverage = total / dayCount
	}

	daySeconds, err := s.dailySeconds(ctx, startDay, endDay, opens)
	if err != nil {
		return MonthStatsResponse{}, err
	}

	var maxDaySeconds int64
	for _, seconds := range daySeconds {
		if seconds > maxDaySeconds {
			maxDaySeconds = seconds
		}
	}

	overview := make([]MonthlyDailyStat, 0, dayCount)
	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		date := formatDay(day)
		seconds := daySeconds[date]
		overview = append(overview, MonthlyDailyStat{
			Date:    date,
			Seconds: seconds,
			Active:  seconds > 0,
			Level:   heatmapLevel(seconds, maxDaySeconds),
		})
	}

	categories, err := s.categoryStats(ctx, startDay, endDay, opens, total)
	if err != nil {
		return MonthStatsResponse{}, err
	}

	topTasks, err := s.topTasks(ctx, startDay, endDay, opens)
	if err != nil {
		return MonthStatsResponse{}, err
	}

	return MonthStatsResponse{
		TotalSeconds:        total,
		DailyAverageSeconds: dailyAverage,
		ActiveDays:          activeDays,
		MonthlyOverview:     overview,
		Categories:          categories,
		TopTasks:            topTasks,
	}, nil
}

func resolveMonthRange(now time.Time, query DateQuery) (time.Time, time.Time) {
	if query.StartDate == nil {
		start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
		return start, now
	}

	raw := *query.StartDate
	if len(raw) == 7 {
		if month, err := time.ParseInLocation("2006-01", raw, time.UTC); err == nil {
			return month, month.AddDate(0, 1, -1)
		}
	}

	start, err := parseDay(raw)
	if err != nil {
		start = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
		return start, now
	}

	end := start
	if query.EndDate != nil {
		if parsed, err := parseDay(*query.EndDate); err == nil {
			end = parsed
		}
	}
	return start, end
}

// openSessions fetches every unclosed entry whose start day falls in
// [startDay, endDay] together with its task and category.
func (s *Store) openSessions(ctx context.Context, now time.Time, startDay, endDay string) ([]openSession, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT te.task_id, te.started_at, t.title, t.done, COALESCE(t.category_id, 0), c.name, c.color
		 FROM time_entries te
		 JOIN tasks t ON te.task_id = t.id
		 LEFT JOIN categories c ON t.category_id = c.id
		 WHERE te.ended_at IS NULL AND date(te.started_at) >= ? AND date(te.started_at) <= ?`,
		startDay, endDay,
	)
	if err != nil {
		return nil, fmt.Errorf("open sessions: %w", err)
	}
	defer rows.Close()

	var opens []openSession
	for rows.Next() {
		var open openSession
		var startedAt string
		if err := rows.Scan(
			&open.taskID, &startedAt, &open.taskTitle, &open.taskStatus,
			&open.categoryID, &open.categoryName, &open.categoryColor,
		); err != nil {
			return nil, err
		}
		open.day = startedAt[:10]
		open.liveSeconds = elapsedSeconds(now, startedAt)
		opens = append(opens, open)
	}
	return opens, rows.Err()
}

func (s *Store) closedTotal(ctx context.Context, startDay, endDay string) (int64, error) {
	var total int64
	err := s.DB.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(duration_seconds), 0) FROM time_entries
		 WHERE ended_at IS NOT NULL AND date(started_at) >= ? AND date(started_at) <= ?`,
		startDay, endDay,
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("total seconds: %w", err)
	}
	return total, nil
}

func (s *Store) sessionsCount(ctx context.Context, startDay, endDay string) (int64, error) {
	var count int64
	err := s.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM time_entries WHERE date(started_at) >= ? AND date(started_at) <= ?",
		startDay, endDay,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("sessions count: %w", err)
	}
	return count, nil
}

// focusedSeconds sums time logged on tasks whose current status is
// finished. Time on a task later reopened drops back out; that follows
// the task's present status, not a historical snapshot.
func (s *Store) focusedSeconds(ctx context.Context, startDay, endDay string, opens []openSession) (int64, error) {
	var focused int64
	err := s.DB.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(te.duration_seconds), 0)
		 FROM time_entries te
		 JOIN tasks t ON te.task_id = t.id
		 WHERE t.done = 2 AND te.ended_at IS NOT NULL
		   AND date(te.started_at) >= ? AND date(te.started_at) <= ?`,
		startDay, endDay,
	).Scan(&focused)
	if err != nil {
		return 0, fmt.Errorf("focused seconds: %w", err)
	}

	for _, open := range opens {
		if open.taskStatus == model.StatusFinished {
			focused += open.liveSeconds
		}
	}
	return focused, nil
}

// categoryStats groups the range's entries by category, with a
// synthetic Other bucket for uncategorized tasks, live time blended.
func (s *Store) categoryStats(ctx context.Context, startDay, endDay string, opens []openSession, total int64) ([]CategoryStat, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT COALESCE(c.id, 0), COALESCE(c.name, 'Other'), COALESCE(c.color, '#9CA3AF'),
		        COALESCE(SUM(te.duration_seconds), 0)
		 FROM time_entries te
		 LEFT JOIN tasks t ON te.task_id = t.id
		 LEFT JOIN categories c ON t.category_id = c.id
		 WHERE date(te.started_at) >= ? AND date(te.started_at) <= ?
		 GROUP BY c.id`,
		startDay, endDay,
	)
	if err != nil {
		return nil, fmt.Errorf("category stats: %w", err)
	}
	defer rows.Close()

	stats := make([]CategoryStat, 0, 8)
	index := make(map[int64]int)
	for rows.Next() {
		var id int64
		var stat CategoryStat
		if err := rows.Scan(&id, &stat.Name, &stat.Color, &stat.Seconds); err != nil {
			return nil, err
		}
		index[id] = len(stats)
		stats = append(stats, stat)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, open := range opens {
		if i, ok := index[open.categoryID]; ok {
			stats[i].Seconds += open.liveSeconds
		}
	}

	sort.SliceStable(stats, func(i, j int) bool { return stats[i].Seconds > stats[j].Seconds })
	for i := range stats {
		stats[i].Percentage = percentage(stats[i].Seconds, total)
	}
	return stats, nil
}

// dailySeconds maps each day with activity in the range to its total
// seconds, closed durations plus live open time.
func (s *Store) dailySeconds(ctx context.Context, startDay, endDay string, opens []openSession) (map[string]int64, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT date(started_at), COALESCE(SUM(duration_seconds), 0)
		 FROM time_entries
		 WHERE date(started_at) >= ? AND date(started_at) <= ?
		 GROUP BY date(started_at)`,
		startDay, endDay,
	)
	if err != nil {
		return nil, fmt.Errorf("daily seconds: %w", err)
	}
	defer rows.Close()

	daySeconds := make(map[string]int64)
	for rows.Next() {
		var day string
		var seconds int64
		if err := rows.Scan(&day, &seconds); err != nil {
			return nil, err
		}
		daySeconds[day] = seconds
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, open := range opens {
		daySeconds[open.day] += open.liveSeconds
	}
	return daySeconds, nil
}

// detailedReport lists each task active on the day with its summed
// seconds and the wall-clock end of its most recent closed session.
func (s *Store) detailedReport(ctx context.Context, day string, opens []openSession) ([]TaskStat, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT t.id, t.title, c.name, c.color,
		        COALESCE(SUM(te.duration_seconds), 0),
		        MAX(te.ended_at)
		 FROM time_entries te
		 JOIN tasks t ON te.task_id = t.id
		 LEFT JOIN categories c ON t.category_id = c.id
		 WHERE date(te.started_at) = ?
		 GROUP BY t.id`,
		day,
	)
	if err != nil {
		return nil, fmt.Errorf("detailed report: %w", err)
	}
	defer rows.Close()

	type reportRow struct {
		stat    TaskStat
		lastRaw string
	}

	report := make([]reportRow, 0, 8)
	index := make(map[int64]int)
	for rows.Next() {
		var row reportRow
		var lastRaw *string
		if err := rows.Scan(
			&row.stat.TaskID, &row.stat.TaskTitle, &row.stat.Category, &row.stat.CategoryColor,
			&row.stat.Seconds, &lastRaw,
		); err != nil {
			return nil, err
		}
		if lastRaw != nil {
			row.lastRaw = *lastRaw
		}
		index[row.stat.TaskID] = len(report)
		report = append(report, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, open := range opens {
		if i, ok := index[open.taskID]; ok {
			report[i].stat.Seconds += open.liveSeconds
		}
	}

	sort.SliceStable(report, func(i, j int) bool {
		if report[i].stat.Seconds != report[j].stat.Seconds {
			return report[i].stat.Seconds > report[j].stat.Seconds
		}
		return report[i].lastRaw > report[j].lastRaw
	})

	stats := make([]TaskStat, 0, len(report))
	for _, row := range report {
		if row.lastRaw != "" {
			formatted := formatClockTime(row.lastRaw)
			row.stat.LastTime = &formatted
		}
		stats = append(stats, row.stat)
	}
	return stats, nil
}

// topTasks ranks the range's tasks by total seconds, top ten.
func (s *Store) topTasks(ctx context.Context, startDay, endDay string, opens []openSession) ([]TaskStat, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT t.id, t.title, c.name, c.color, COALESCE(SUM(te.duration_seconds), 0)
		 FROM time_entries te
		 JOIN tasks t ON te.task_id = t.id
		 LEFT JOIN categories c ON t.category_id = c.id
		 WHERE date(te.started_at) >= ? AND date(te.started_at) <= ?
		 GROUP BY t.id`,
		startDay, endDay,
	)
	if err != nil {
		return nil, fmt.Errorf("top tasks: %w", err)
	}
	defer rows.Close()

	stats := make([]TaskStat, 0, 16)
	index := make(map[int64]int)
	for rows.Next() {
		var stat TaskStat
		if err := rows.Scan(&stat.TaskID, &stat.TaskTitle, &stat.Category, &stat.CategoryColor, &stat.Seconds); err != nil {
			return nil, err
		}
		index[stat.TaskID] = len(stats)
		stats = append(stats, stat)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, open := range opens {
		if i, ok := index[open.taskID]; ok {
			stats[i].Seconds += open.liveSeconds
		}
	}

	sort.SliceStable(stats, func(i, j int) bool { return stats[i].Seconds > stats[j].Seconds })
	if len(stats) > 10 {
		stats = stats[:10]
	}
	return stats, nil
}

func percentage(seconds, total int64) float64 {
	if total <= 0 {
		return 0
	}
	return math.Round(float64(seconds) / float64(total) * 100)
}

// heatmapLevel buckets a day's seconds against the busiest day of the
// range: 0 for idle days, otherwise 1..3.
func heatmapLevel(seconds, maxDaySeconds int64) int {
	if seconds == 0 {
		return 0
	}
	if maxDaySeconds <= 0 {
		return 1
	}
	level := int(math.Ceil(float64(seconds) / float64(maxDaySeconds) * 3))
	if level < 1 {
		level = 1
	}
	if level > 3 {
		level = 3
	}
	return level
}

func daySpan(start, end time.Time) int64 {
	startDay := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
	endDay := time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, time.UTC)
	return int64(endDay.Sub(startDay).Hours()/24) + 1
}

func sortedDays(daySeconds map[string]int64) []string {
	days := make([]string, 0, len(daySeconds))
	for day := range daySeconds {
		days = append(days, day)
	}
	sort.Strings(days)
	return days
}

func weekdayName(day string) string {
	names := [...]string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}
	parsed, err := parseDay(day)
	if err != nil {
		return names[0]
	}
	return names[int(parsed.Weekday())]
}

// formatClockTime renders a stored timestamp as a 12-hour wall-clock
// label, e.g. "3:45 pm".
func formatClockTime(value string) string {
	parsed, err := parseTime(value)
	if err != nil {
		return value
	}
	return parsed.Format("3:04 pm")
}
