// Package quota meters outbound API usage against daily and hourly budgets.
// Windows reset on calendar boundaries in the catalog's local timezone, and
// the governor warns ahead of exhaustion instead of only failing at the cap.
package quota

import (
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Op identifies a billable operation class.
type Op string

// Billable operations, with search priced far above per-item reads.
const (
	OpSearch     Op = "search"
	OpItemDetail Op = "item_detail"
)

// Costs in quota units per call. Search is a fixed cost regardless of how
// many results a page returns, detail reads bill per item.
const (
	CostSearch     = 40
	CostItemDetail = 1
)

// Alert thresholds as fractions of a window's budget.
const (
	warnThreshold     = 0.80
	criticalThreshold = 0.95
)

// Window names the two rolling budgets.
type Window string

const (
	WindowDaily  Window = "daily"
	WindowHourly Window = "hourly"
)

// ExceededError reports which window would be blown and by how much.
type ExceededError struct {
	Window Window
	Op     Op
	Cost   int
	Used   int
	Limit  int
}

func (e *ExceededError) Error() string {
	return fmt.Sprintf("%s quota exceeded: %s costs %d, used %d of %d",
		e.Window, e.Op, e.Cost, e.Used, e.Limit)
}

// Snapshot is a point-in-time view of both windows. PerOperation holds call
// counts per operation class for the current daily window.
type Snapshot struct {
	DailyUsed    int        `json:"daily_used"`
	DailyLimit   int        `json:"daily_limit"`
	HourlyUsed   int        `json:"hourly_used"`
	HourlyLimit  int        `json:"hourly_limit"`
	PerOperation map[Op]int `json:"per_operation"`
	DailyResetAt time.Time  `json:"daily_reset_at"`
	HourResetAt  time.Time  `json:"hour_reset_at"`
}

// Governor tracks usage in two windows and gates operations before they run.
// Safe for concurrent use.
type Governor struct {
	mu sync.Mutex

	loc         *time.Location
	dailyLimit  int
	hourlyLimit int

	dayStart  time.Time
	hourStart time.Time
	dayUsed   int
	hourUsed  int
	dayPerOp  map[Op]int

	dayWarned     bool
	dayCritical   bool
	lastPredictAt time.Time

	Now func() time.Time
}

// New builds a governor. The timezone name decides when the daily window
// rolls over; an unknown name falls back to UTC with a warning.
func New(dailyLimit, hourlyLimit int, timezone string) *Governor {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		slog.Warn("unknown quota timezone, using UTC", slog.String("timezone", timezone))
		loc = time.UTC
	}
	g := &Governor{
		loc:         loc,
		dailyLimit:  dailyLimit,
		hourlyLimit: hourlyLimit,
		dayPerOp:    make(map[Op]int),
		Now:         time.Now,
	}
	return g
}

// CostOf returns the unit cost of one call of the given operation.
func CostOf(op Op) int {
	switch op {
	case OpSearch:
		return CostSearch
	default:
		return CostItemDetail
	}
}

// CanExecute reports whether qty calls of op fit in both windows right now,
// without consuming anything.
func (g *Governor) CanExecute(op Op, qty int) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.roll(g.Now().In(g.loc))

	cost := CostOf(op) * qty
	return g.dayUsed+cost <= g.dailyLimit && g.hourUsed+cost <= g.hourlyLimit
}

// Consume charges qty calls of op against both windows. On refusal nothing
// is charged and the returned error says which window blocked it.
func (g *Governor) Consume(op Op, qty int) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	now := g.Now().In(g.loc)
	g.roll(now)

	cost := CostOf(op) * qty
	if g.dayUsed+cost > g.dailyLimit {
		return &ExceededError{Window: WindowDaily, Op: op, Cost: cost, Used: g.dayUsed, Limit: g.dailyLimit}
	}
	if g.hourUsed+cost > g.hourlyLimit {
		return &ExceededError{Window: WindowHourly, Op: op, Cost: cost, Used: g.hourUsed, Limit: g.hourlyLimit}
	}
	g.dayUsed += cost
	g.hourUsed += cost
	g.dayPerOp[op] += qty
	g.alert(now)
	return nil
}

// Snapshot returns current usage and the next reset instants.
func (g *Governor) Snapshot() Snapshot {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.roll(g.Now().In(g.loc))

	perOp := make(map[Op]int, len(g.dayPerOp))
	for op, count := range g.dayPerOp {
		perOp[op] = count
	}
	return Snapshot{
		DailyUsed:    g.dayUsed,
		DailyLimit:   g.dailyLimit,
		HourlyUsed:   g.hourUsed,
		HourlyLimit:  g.hourlyLimit,
		PerOperation: perOp,
		DailyResetAt: g.dayStart.AddDate(0, 0, 1),
		HourResetAt:  g.hourStart.Add(time.Hour),
	}
}

// roll resets whichever windows the clock has crossed. Caller holds mu.
func (g *Governor) roll(now time.Time) {
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, g.loc)
	if !dayStart.Equal(g.dayStart) {
		g.dayStart = dayStart
		g.dayUsed = 0
		g.dayPerOp = make(map[Op]int)
		g.dayWarned = false
		g.dayCritical = false
	}
	hourStart := time.Date(now.Year(), now.Month(), now.Day(), now.Hour(), 0, 0, 0, g.loc)
	if !hourStart.Equal(g.hourStart) {
		g.hourStart = hourStart
		g.hourUsed = 0
	}
}

// alert fires each daily threshold once per window, and predicts exhaustion
// by linear extrapolation of the burn rate so far today. Caller holds mu.
func (g *Governor) alert(now time.Time) {
	frac := float64(g.dayUsed) / float64(g.dailyLimit)
	switch {
	case frac >= criticalThreshold && !g.dayCritical:
		g.dayCritical = true
		slog.Warn("daily quota critical",
			slog.Int("used", g.dayUsed),
			slog.Int("limit", g.dailyLimit),
		)
	case frac >= warnThreshold && !g.dayWarned:
		g.dayWarned = true
		slog.Warn("daily quota high",
			slog.Int("used", g.dayUsed),
			slog.Int("limit", g.dailyLimit),
		)
	}

	if at, ok := g.predictExhaustion(now); ok && now.Sub(g.lastPredictAt) >= 15*time.Minute {
		g.lastPredictAt = now
		slog.Warn("daily quota projected to run out before reset",
			slog.Time("projected_at", at),
			slog.Int("used", g.dayUsed),
			slog.Int("limit", g.dailyLimit),
		)
	}
}

// predictExhaustion extrapolates today's burn rate forward. It only reports
// when the projected exhaustion lands before the next daily reset.
func (g *Governor) predictExhaustion(now time.Time) (time.Time, bool) {
	elapsed := now.Sub(g.dayStart)
	if elapsed < 10*time.Minute || g.dayUsed == 0 {
		return time.Time{}, false
	}
	rate := float64(g.dayUsed) / elapsed.Seconds()
	remaining := float64(g.dailyLimit - g.dayUsed)
	if remaining <= 0 {
		return now, true
	}
	at := now.Add(time.Duration(remaining/rate) * time.Second)
	reset := g.dayStart.AddDate(0, 0, 1)
	if at.Before(reset) {
		return at, true
	}
	return time.Time{}, false
}
