// Package schedule groups loading lists into the dispatch board shown to
// project managers.
package schedule

import (
	"fmt"
	"sort"
	"time"

	"github.com/erazemk/loadout/internal/model"
)

// PreviousDays is how far back the board looks.
const PreviousDays = 7

// Board holds lists by delivery date relative to Today. Previous covers
// the PreviousDays days before today, newest first. Today and Tomorrow are
// ordered by team.
type Board struct {
	Today    string              `json:"today"`
	Previous []model.LoadingList `json:"previous"`
	Current  []model.LoadingList `json:"today_lists"`
	Tomorrow []model.LoadingList `json:"tomorrow"`
}

// Window returns the first and last delivery dates the board for today
// shows, for narrowing the query that feeds Build.
func Window(today string) (from, to string, err error) {
	t, err := model.ParseDate(today)
	if err != nil {
		return "", "", err
	}
	return t.AddDate(0, 0, -PreviousDays).Format(model.DateLayout),
		t.AddDate(0, 0, 1).Format(model.DateLayout), nil
}

// Build sorts lists into a board for today. Lists outside the window are
// ignored.
func Build(lists []model.LoadingList, today string) (*Board, error) {
	t, err := model.ParseDate(today)
	if err != nil {
		return nil, err
	}
	tomorrow := t.AddDate(0, 0, 1)
	earliest := t.AddDate(0, 0, -PreviousDays)

	b := &Board{
		Today:    today,
		Previous: []model.LoadingList{},
		Current:  []model.LoadingList{},
		Tomorrow: []model.LoadingList{},
	}
	for _, l := range lists {
		d, err := model.ParseDate(l.Date)
		if err != nil {
			return nil, fmt.Errorf("loading list %d: %w", l.ID, err)
		}
		switch {
		case d.Equal(t):
			b.Current = append(b.Current, l)
		case d.Equal(tomorrow):
			b.Tomorrow = append(b.Tomorrow, l)
		case !d.Before(earliest) && d.Before(t):
			b.Previous = append(b.Previous, l)
		}
	}

	sort.SliceStable(b.Previous, func(i, j int) bool {
		return b.Previous[i].Date > b.Previous[j].Date
	})
	sort.SliceStable(b.Current, byTeam(b.Current))
	sort.SliceStable(b.Tomorrow, byTeam(b.Tomorrow))
	return b, nil
}

// byTeam orders lists by team id with unassigned lists last.
func byTeam(lists []model.LoadingList) func(i, j int) bool {
	return func(i, j int) bool {
		a, b := lists[i].TeamID, lists[j].TeamID
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		}
		return *a < *b
	}
}

// Today returns the current date in loc as a board date.
func Today(now time.Time, loc *time.Location) string {
	return now.In(loc).Format(model.DateLayout)
}
