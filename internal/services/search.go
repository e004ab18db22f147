package services

import (
	"sort"
	"strings"

	"github.com/taskcrew/taskbot/internal/store"
)

// Match is a search hit with its relevance score.
type Match struct {
	Entry store.Entry `json:"entry"`
	Score int         `json:"score"`
}

// Search scores every unique task against the query and returns the
// top matches, best first. Ties keep the store's scan order.
func (s *TaskService) Search(query string, limit int) []Match {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return nil
	}

	matches := make([]Match, 0)
	for _, e := range s.tasks.UniqueAll() {
		if score := scoreTask(e, query); score > 0 {
			matches = append(matches, Match{Entry: e, Score: score})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches
}

// scoreTask weighs an exact title match above a title substring above
// a description hit, with a per-character overlap tiebreaker.
func scoreTask(e store.Entry, query string) int {
	title := strings.ToLower(e.Task.Title)
	description := strings.ToLower(e.Task.Description)

	score := 0
	if title == query {
		score += 100
	}
	if strings.Contains(title, query) {
		score += 50
	}
	if strings.Contains(description, query) {
		score += 20
	}

	seen := make(map[rune]struct{})
	for _, r := range query {
		if _, dup := seen[r]; dup {
			continue
		}
		seen[r] = struct{}{}
		if strings.ContainsRune(title, r) {
			score++
		}
	}
	return score
}
