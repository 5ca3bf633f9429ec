package chat

import (
	"time"

	"github.com/RichardoC/thinkstream/internal/models"
)

// SessionGroups buckets sessions by recency for the sidebar.
type SessionGroups struct {
	Today     []models.Session `json:"today"`
	Yesterday []models.Session `json:"yesterday"`
	LastWeek  []models.Session `json:"lastWeek"`
	LastMonth []models.Session `json:"lastMonth"`
	Older     []models.Session `json:"older"`
}

// GroupSessions assigns each session to a bucket relative to local midnight
// of now. Input order is kept within a bucket.
func GroupSessions(sessions []models.Session, now time.Time) SessionGroups {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	yesterday := today.AddDate(0, 0, -1)
	weekAgo := today.AddDate(0, 0, -7)
	monthAgo := today.AddDate(0, 0, -30)

	g := SessionGroups{
		Today:     []models.Session{},
		Yesterday: []models.Session{},
		LastWeek:  []models.Session{},
		LastMonth: []models.Session{},
		Older:     []models.Session{},
	}
	for _, s := range sessions {
		switch ts := s.Timestamp; {
		case !ts.Before(today):
			g.Today = append(g.Today, s)
		case !ts.Before(yesterday):
			g.Yesterday = append(g.Yesterday, s)
		case !ts.Before(weekAgo):
			g.LastWeek = append(g.LastWeek, s)
		case !ts.Before(monthAgo):
			g.LastMonth = append(g.LastMonth, s)
		default:
			g.Older = append(g.Older, s)
		}
	}
	return g
}
