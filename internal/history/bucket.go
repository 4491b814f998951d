package history

import (
	"math"
	"time"
)

const (
	BucketToday     = "Today"
	BucketYesterday = "Yesterday"
	BucketThisWeek  = "This Week"
	BucketEarlier   = "Earlier"
)

// BucketOrder is the fixed emission order of Group.
var BucketOrder = []string{BucketToday, BucketYesterday, BucketThisWeek, BucketEarlier}

type Bucket struct {
	Label    string
	Sessions []Session
}

// DiffDays is the number of whole days between startedAt and now, floored.
// Timestamps in the future yield negative values.
func DiffDays(now, startedAt time.Time) int {
	return int(math.Floor(now.Sub(startedAt).Hours() / 24))
}

func BucketFor(diffDays int) string {
	switch {
	case diffDays == 0:
		return BucketToday
	case diffDays == 1:
		return BucketYesterday
	case diffDays < 7:
		return BucketThisWeek
	default:
		return BucketEarlier
	}
}

// Group partitions sessions into recency buckets. Buckets come out in
// BucketOrder, empty ones are dropped, and each bucket keeps the input order.
func Group(sessions []Session, now time.Time) []Bucket {
	members := make(map[string][]Session, len(BucketOrder))
	for _, s := range sessions {
		label := BucketFor(DiffDays(now, s.StartedAt))
		members[label] = append(members[label], s)
	}

	out := make([]Bucket, 0, len(BucketOrder))
	for _, label := range BucketOrder {
		if len(members[label]) == 0 {
			continue
		}
		out = append(out, Bucket{Label: label, Sessions: members[label]})
	}
	return out
}
