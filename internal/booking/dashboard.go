package booking

import (
	"sort"
	"time"
)

// Dashboard groups a user's meetings for display. Past is a fallback view,
// so membership does not partition by status: a confirmed meeting whose
// date has passed is listed in Past only.
type Dashboard struct {
	Pending  []Meeting `json:"pending"`
	Upcoming []Meeting `json:"upcoming"`
	Past     []Meeting `json:"past"`
	Stats    Stats     `json:"stats"`
}

type Stats struct {
	Pending   int `json:"pending"`
	Confirmed int `json:"confirmed"`
	Completed int `json:"completed"`
	Cancelled int `json:"cancelled"`
	NoShow    int `json:"no_show"`
}

// Classify derives the dashboard views as of the given date. Only the
// calendar date of asOf and of each meeting is compared.
func Classify(meetings []Meeting, asOf time.Time) Dashboard {
	today := dateOnly(asOf)
	d := Dashboard{
		Pending:  []Meeting{},
		Upcoming: []Meeting{},
		Past:     []Meeting{},
	}

	for _, m := range meetings {
		day := dateOnly(m.ScheduledDate)
		switch m.status {
		case StatusPending:
			d.Stats.Pending++
		case StatusConfirmed:
			d.Stats.Confirmed++
		case StatusCompleted:
			d.Stats.Completed++
		case StatusCancelled:
			d.Stats.Cancelled++
		case StatusNoShow:
			d.Stats.NoShow++
		}

		if m.status == StatusPending {
			d.Pending = append(d.Pending, m)
		}
		if m.status == StatusConfirmed && !day.Before(today) {
			d.Upcoming = append(d.Upcoming, m)
		}
		if m.status == StatusCompleted || day.Before(today) {
			d.Past = append(d.Past, m)
		}
	}

	sort.SliceStable(d.Upcoming, func(i, j int) bool {
		return scheduledBefore(d.Upcoming[i], d.Upcoming[j])
	})
	sort.SliceStable(d.Past, func(i, j int) bool {
		return scheduledBefore(d.Past[j], d.Past[i])
	})
	return d
}

func scheduledBefore(a, b Meeting) bool {
	da, db := dateOnly(a.ScheduledDate), dateOnly(b.ScheduledDate)
	if !da.Equal(db) {
		return da.Before(db)
	}
	return a.ScheduledTime < b.ScheduledTime
}
