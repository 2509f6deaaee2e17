package service

import (
	"time"

	"github.com/capitalize-ai/chat-platform/internal/model"
)

const (
	timeLabelLayout = "3:04 PM"
	dateLabelLayout = "Jan 2"
	yesterdayLabel  = "Yesterday"
	recentDays      = 7
)

// BuildHistory sorts summaries into recency buckets relative to now. Calendar
// dates are taken in now's location. Input order is kept within each
// bucket, and every summary gets its display label.
func BuildHistory(summaries []model.ConversationSummary, now time.Time) model.History {
	history := model.History{
		Today:     []model.ConversationSummary{},
		Yesterday: []model.ConversationSummary{},
		Last7Days: []model.ConversationSummary{},
		Older:     []model.ConversationSummary{},
	}

	for _, s := range summaries {
		s.TimeDisplay = DisplayLabel(s.LastUpdated, now)

		switch days := daysBefore(s.LastUpdated, now); {
		case days == 0:
			history.Today = append(history.Today, s)
		case days == 1:
			history.Yesterday = append(history.Yesterday, s)
		case days <= recentDays:
			history.Last7Days = append(history.Last7Days, s)
		default:
			history.Older = append(history.Older, s)
		}
	}
	return history
}

// DisplayLabel renders the short recency label shown next to a conversation.
func DisplayLabel(t, now time.Time) string {
	local := t.In(now.Location())
	switch days := daysBefore(t, now); {
	case days <= 0:
		return local.Format(timeLabelLayout)
	case days == 1:
		return yesterdayLabel
	case days <= recentDays:
		return local.Weekday().String()
	default:
		return local.Format(dateLabelLayout)
	}
}

// daysBefore counts calendar days from t's date to now's date, both taken in
// now's location.
func daysBefore(t, now time.Time) int {
	loc := now.Location()
	ty, tm, td := t.In(loc).Date()
	ny, nm, nd := now.Date()
	from := time.Date(ty, tm, td, 0, 0, 0, 0, time.UTC)
	to := time.Date(ny, nm, nd, 0, 0, 0, 0, time.UTC)
	return int(to.Sub(from).Hours() / 24)
}
