// Package dailymix composes a learner's daily practice session from due reviews and new content.
package dailymix

import (
	"math"
	"sort"
	"time"

	"github.com/at-ishikawa/kioku/internal/catalog"
	"github.com/at-ishikawa/kioku/internal/review"
)

const DefaultReviewShare = 0.6

type Status string

const (
	StatusOK               Status = "OK"
	StatusCatalogExhausted Status = "CatalogExhausted"
	StatusEmpty            Status = "Empty"
)

type Source string

const (
	SourceReview Source = "review"
	SourceNew    Source = "new"
	// SourceAhead marks an item reviewed before it is due to fill an otherwise short session.
	SourceAhead Source = "ahead"
)

type Entry struct {
	ContentItemID string `json:"content_item_id"`
	Source        Source `json:"source"`
	SkillCategory string `json:"skill_category,omitempty"`
}

type Session struct {
	LearnerID   string    `json:"learner_id"`
	Date        time.Time `json:"date"`
	Items       []Entry   `json:"items"`
	ReviewCount int       `json:"review_count"`
	NewCount    int       `json:"new_count"`
	Status      Status    `json:"status"`
}

type Input struct {
	LearnerID string
	Date      time.Time
	// Now is the instant against which due-ness is evaluated.
	Now           time.Time
	Seen          []review.Item
	NewCandidates []catalog.Item
	MaxItems      int
	// ReviewShare is the fraction of MaxItems reserved for due reviews; DefaultReviewShare when zero.
	ReviewShare float64
	// Categories maps seen content item ids to their skill category, for display.
	Categories map[string]string
}

// Compose builds the session. It is deterministic and has no side effects.
func Compose(in Input) Session {
	session := Session{
		LearnerID: in.LearnerID,
		Date:      in.Date,
		Items:     []Entry{},
	}
	if in.MaxItems <= 0 {
		session.Status = StatusEmpty
		return session
	}

	share := in.ReviewShare
	if share <= 0 || share > 1 {
		share = DefaultReviewShare
	}

	due, upcoming := partition(in.Seen, in.Now)
	rankDue(due, in.Now)
	rankUpcoming(upcoming)

	reviewQuota := min(len(due), int(math.Ceil(float64(in.MaxItems)*share)))
	reviews := make([]Entry, 0, in.MaxItems)
	for _, item := range due[:reviewQuota] {
		reviews = append(reviews, in.entry(item, SourceReview))
	}

	news := roundRobin(in.NewCandidates, in.MaxItems-reviewQuota)

	// Slots new content could not use go to the remaining due items first,
	// then to items reviewed ahead of schedule.
	free := in.MaxItems - len(reviews) - len(news)
	for _, item := range due[reviewQuota:] {
		if free == 0 {
			break
		}
		reviews = append(reviews, in.entry(item, SourceReview))
		free--
	}
	for _, item := range upcoming {
		if free == 0 {
			break
		}
		reviews = append(reviews, in.entry(item, SourceAhead))
		free--
	}

	session.Items = interleave(reviews, news)
	session.ReviewCount = len(reviews)
	session.NewCount = len(news)

	switch {
	case len(session.Items) == 0:
		session.Status = StatusEmpty
	case len(session.Items) < in.MaxItems:
		session.Status = StatusCatalogExhausted
	default:
		session.Status = StatusOK
	}
	return session
}

func (in Input) entry(item review.Item, source Source) Entry {
	return Entry{
		ContentItemID: item.ContentItemID,
		Source:        source,
		SkillCategory: in.Categories[item.ContentItemID],
	}
}

func partition(items []review.Item, now time.Time) (due, upcoming []review.Item) {
	for _, item := range items {
		if item.IsDue(now) {
			due = append(due, item)
		} else {
			upcoming = append(upcoming, item)
		}
	}
	return due, upcoming
}

// rankDue orders by most overdue first, then weaker items (lower EF) first.
func rankDue(items []review.Item, now time.Time) {
	sort.SliceStable(items, func(i, j int) bool {
		oi, oj := items[i].Overdue(now), items[j].Overdue(now)
		if oi != oj {
			return oi > oj
		}
		if items[i].EasinessFactor != items[j].EasinessFactor {
			return items[i].EasinessFactor < items[j].EasinessFactor
		}
		return items[i].ContentItemID < items[j].ContentItemID
	})
}

// rankUpcoming orders by soonest due first.
func rankUpcoming(items []review.Item) {
	sort.SliceStable(items, func(i, j int) bool {
		if !items[i].DueAt.Equal(items[j].DueAt) {
			return items[i].DueAt.Before(items[j].DueAt)
		}
		if items[i].EasinessFactor != items[j].EasinessFactor {
			return items[i].EasinessFactor < items[j].EasinessFactor
		}
		return items[i].ContentItemID < items[j].ContentItemID
	})
}

// roundRobin picks up to n candidates cycling through skill categories, so
// consecutive picks differ in category while more than one category remains.
// Within a category, easier items come first.
func roundRobin(candidates []catalog.Item, n int) []Entry {
	if n <= 0 || len(candidates) == 0 {
		return nil
	}

	sorted := make([]catalog.Item, len(candidates))
	copy(sorted, candidates)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Difficulty != sorted[j].Difficulty {
			return sorted[i].Difficulty < sorted[j].Difficulty
		}
		return sorted[i].ID < sorted[j].ID
	})

	var categories []string
	queues := make(map[string][]catalog.Item)
	for _, item := range sorted {
		if _, ok := queues[item.SkillCategory]; !ok {
			categories = append(categories, item.SkillCategory)
		}
		queues[item.SkillCategory] = append(queues[item.SkillCategory], item)
	}

	result := make([]Entry, 0, min(n, len(sorted)))
	for len(result) < n {
		picked := false
		for _, category := range categories {
			if len(result) == n {
				break
			}
			queue := queues[category]
			if len(queue) == 0 {
				continue
			}
			result = append(result, Entry{
				ContentItemID: queue[0].ID,
				Source:        SourceNew,
				SkillCategory: category,
			})
			queues[category] = queue[1:]
			picked = true
		}
		if !picked {
			break
		}
	}
	return result
}

// interleave alternates review and new entries, starting with a review.
func interleave(reviews, news []Entry) []Entry {
	result := make([]Entry, 0, len(reviews)+len(news))
	i, j := 0, 0
	for i < len(reviews) || j < len(news) {
		if i < len(reviews) {
			result = append(result, reviews[i])
			i++
		}
		if j < len(news) {
			result = append(result, news[j])
			j++
		}
	}
	return result
}
