package domain

import (
	"math"
	"time"
)

// Course represents a marketplace course together with its current
// rating snapshot.
type Course struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	AvgRating   float64   `json:"avg_rating"`
	TotalRating int       `json:"total_rating"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// RatingSnapshot is the derived rating state stored on a course.
// AvgRating averages the ratings of approved top-level reviews, rounded
// to one decimal place. TotalRating counts every approved review on the
// course, replies included.
type RatingSnapshot struct {
	AvgRating   float64 `json:"avg_rating"`
	TotalRating int     `json:"total_rating"`
}

// HistogramBucket holds the review count and share for one star value.
type HistogramBucket struct {
	Rating  int     `json:"rating"`
	Count   int     `json:"count"`
	Percent float64 `json:"percent"`
}

// ComputeSnapshot derives a rating snapshot from the ratings of approved
// top-level reviews and the total count of approved reviews. A course
// with no rated reviews snaps back to zero.
func ComputeSnapshot(ratings []int, totalApproved int) RatingSnapshot {
	if len(ratings) == 0 {
		return RatingSnapshot{AvgRating: 0, TotalRating: totalApproved}
	}
	sum := 0
	for _, r := range ratings {
		sum += r
	}
	avg := float64(sum) / float64(len(ratings))
	return RatingSnapshot{
		AvgRating:   math.Round(avg*10) / 10,
		TotalRating: totalApproved,
	}
}

// BuildHistogram turns per-star counts into 5..1 star buckets with each
// bucket's share of the total, rounded to one decimal place.
func BuildHistogram(counts map[int]int) []HistogramBucket {
	total := 0
	for _, c := range counts {
		total += c
	}
	buckets := make([]HistogramBucket, 0, MaxRating)
	for star := MaxRating; star >= MinRating; star-- {
		b := HistogramBucket{Rating: star, Count: counts[star]}
		if total > 0 {
			b.Percent = math.Round(float64(b.Count)/float64(total)*1000) / 10
		}
		buckets = append(buckets, b)
	}
	return buckets
}
