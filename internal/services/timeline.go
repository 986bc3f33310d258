package services

import (
	"sort"
	"time"

	"memory-tracker-backend/internal/models"
)

// TimelineGroup holds the memories of one calendar month
type TimelineGroup struct {
	Label    string           `json:"label"`
	Year     int              `json:"year"`
	Month    time.Month       `json:"month"`
	Memories []*models.Memory `json:"memories"`
}

// GroupByMonth buckets memories by the month of their date. Groups are
// ordered newest month first; memories keep their input order inside a group.
func GroupByMonth(memories []*models.Memory) []TimelineGroup {
	type monthKey struct {
		year  int
		month time.Month
	}

	index := make(map[monthKey]int)
	groups := []TimelineGroup{}
	for _, memory := range memories {
		key := monthKey{year: memory.Date.Year(), month: memory.Date.Month()}
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, TimelineGroup{
				Label: memory.Date.Format("January 2006"),
				Year:  key.year,
				Month: key.month,
			})
		}
		groups[i].Memories = append(groups[i].Memories, memory)
	}

	sort.SliceStable(groups, func(a, b int) bool {
		if groups[a].Year != groups[b].Year {
			return groups[a].Year > groups[b].Year
		}
		return groups[a].Month > groups[b].Month
	})

	return groups
}
