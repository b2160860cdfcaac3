package balance

import (
	"fmt"
	"sort"
	"time"

	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/balance"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/justification"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/punch"
)

// The functions in this file are pure: no I/O, no clock, no panics on odd
// input.

// sortPunches orders punches by effective time. The effective time of each
// punch is read once here so a whole computation pass uses the same clock
// source per record.
func sortPunches(punches []punch.Punch) []time.Time {
	type keyed struct {
		at time.Time
		p  punch.Punch
	}
	items := make([]keyed, len(punches))
	for i, p := range punches {
		items[i] = keyed{at: p.EffectiveTime(), p: p}
	}
	sort.SliceStable(items, func(i, j int) bool {
		if !items[i].at.Equal(items[j].at) {
			return items[i].at.Before(items[j].at)
		}
		if !items[i].p.CapturedAt.Equal(items[j].p.CapturedAt) {
			return items[i].p.CapturedAt.Before(items[j].p.CapturedAt)
		}
		return items[i].p.IdempotencyKey < items[j].p.IdempotencyKey
	})
	times := make([]time.Time, len(items))
	for i, it := range items {
		times[i] = it.at
	}
	return times
}

// WorkedMinutes pairs the day's punches strictly by position, (1st,2nd),
// (3rd,4th) and so on, and sums each interval in whole minutes. A trailing
// unpaired punch adds nothing and negative intervals count as zero.
func WorkedMinutes(punches []punch.Punch) int {
	if len(punches) < 2 {
		return 0
	}
	times := sortPunches(punches)

	total := 0
	for i := 0; i+1 < len(times); i += 2 {
		diff := times[i+1].Sub(times[i])
		if diff <= 0 {
			continue
		}
		total += int(diff / time.Minute)
	}
	return total
}

// DailyBalance is worked minus expected. An approved justification forgives
// the shortfall but still credits extra work.
func DailyBalance(log balance.DailyLog, workedMinutes, expectedDailyMinutes int) int {
	diff := workedMinutes - expectedDailyMinutes
	if log.Excused() {
		return max(0, diff)
	}
	return diff
}

// MonthlyBalance sums DailyBalance over the given days. Days absent from
// logs contribute nothing, so callers should pass a complete range built
// with BuildRange.
func MonthlyBalance(logs []balance.DailyLog, expectedDailyMinutes int) int {
	total := 0
	for _, log := range logs {
		total += DailyBalance(log, WorkedMinutes(log.Punches), expectedDailyMinutes)
	}
	return total
}

// FormatSignedDuration renders minutes as "+HHh MMm" or "-HHh MMm".
func FormatSignedDuration(totalMinutes int) string {
	sign := "+"
	if totalMinutes < 0 {
		sign = "-"
		totalMinutes = -totalMinutes
	}
	return fmt.Sprintf("%s%02dh %02dm", sign, totalMinutes/60, totalMinutes%60)
}

// FormatDuration renders a non-negative duration as "HHh MMm".
func FormatDuration(totalMinutes int) string {
	if totalMinutes < 0 {
		totalMinutes = 0
	}
	return fmt.Sprintf("%02dh %02dm", totalMinutes/60, totalMinutes%60)
}

type dayKey struct {
	userID string
	date   string
}

// GroupByDay builds one DailyLog per (user, date) that has any activity,
// ordered by user then date.
func GroupByDay(punches []punch.Punch, justifications []justification.Justification) []balance.DailyLog {
	index := make(map[dayKey]*balance.DailyLog)
	var keys []dayKey

	get := func(k dayKey) *balance.DailyLog {
		if log, ok := index[k]; ok {
			return log
		}
		log := &balance.DailyLog{UserID: k.userID, Date: k.date}
		index[k] = log
		keys = append(keys, k)
		return log
	}

	for _, p := range punches {
		log := get(dayKey{userID: p.UserID, date: p.Date})
		log.Punches = append(log.Punches, p)
	}
	for _, j := range justifications {
		log := get(dayKey{userID: j.UserID, date: j.Date})
		log.Justifications = append(log.Justifications, j)
	}

	sort.Slice(keys, func(i, j int) bool {
		if keys[i].userID != keys[j].userID {
			return keys[i].userID < keys[j].userID
		}
		return keys[i].date < keys[j].date
	})

	logs := make([]balance.DailyLog, 0, len(keys))
	for _, k := range keys {
		logs = append(logs, *index[k])
	}
	return logs
}

type RangeOptions struct {
	// IncludeEmpty adds days with no activity so their shortfall counts.
	IncludeEmpty bool
	// WeekendsOff skips empty Saturdays and Sundays when IncludeEmpty is set.
	// Weekend days with activity are still returned; summarize them with
	// ExpectedMinutes so the work is credited as overtime.
	WeekendsOff bool
	// Until caps the range, typically today, so future days are not
	// charged. Zero means no cap.
	Until time.Time
}

// BuildRange returns one DailyLog per date in [start, end] for a single
// user.
func BuildRange(userID string, start, end time.Time, punches []punch.Punch, justifications []justification.Justification, opts RangeOptions) []balance.DailyLog {
	grouped := make(map[string]balance.DailyLog)
	for _, log := range GroupByDay(punches, justifications) {
		if log.UserID != userID {
			continue
		}
		grouped[log.Date] = log
	}

	last := dateOnly(end)
	if !opts.Until.IsZero() && dateOnly(opts.Until).Before(last) {
		last = dateOnly(opts.Until)
	}

	var logs []balance.DailyLog
	for day := dateOnly(start); !day.After(last); day = day.AddDate(0, 0, 1) {
		key := day.Format(punch.DateLayout)
		if log, ok := grouped[key]; ok {
			logs = append(logs, log)
			continue
		}
		if !opts.IncludeEmpty {
			continue
		}
		if opts.WeekendsOff && (day.Weekday() == time.Saturday || day.Weekday() == time.Sunday) {
			continue
		}
		logs = append(logs, balance.DailyLog{UserID: userID, Date: key})
	}
	return logs
}

// ExpectedMinutes is the target for date. With weekendsOff, Saturdays and
// Sundays expect nothing.
func ExpectedMinutes(date string, expectedDailyMinutes int, weekendsOff bool) int {
	if !weekendsOff {
		return expectedDailyMinutes
	}
	day, err := time.Parse(punch.DateLayout, date)
	if err != nil {
		return expectedDailyMinutes
	}
	if day.Weekday() == time.Saturday || day.Weekday() == time.Sunday {
		return 0
	}
	return expectedDailyMinutes
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Summarize computes the per-day view for one log.
func Summarize(log balance.DailyLog, expectedDailyMinutes int) balance.DayBalanceResponse {
	worked := WorkedMinutes(log.Punches)
	bal := DailyBalance(log, worked, expectedDailyMinutes)
	return balance.DayBalanceResponse{
		UserID:          log.UserID,
		Date:            log.Date,
		PunchCount:      len(log.Punches),
		WorkedMinutes:   worked,
		ExpectedMinutes: expectedDailyMinutes,
		BalanceMinutes:  bal,
		Balance:         FormatSignedDuration(bal),
		Worked:          FormatDuration(worked),
		Excused:         log.Excused(),
	}
}
