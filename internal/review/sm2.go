package review

import (
	"errors"
	"fmt"
	"math"
	"time"
)

const (
	DefaultEasinessFactor = 2.5
	MinEasinessFactor     = 1.3
)

var ErrInvalidQuality = errors.New("quality must be between 0 and 5")

// Quality is the 0-5 recall grade used by SM-2
type Quality int

const (
	QualityBlackout Quality = iota
	QualityWrong
	QualityWrongFamiliar
	QualityHard
	QualityHesitant
	QualityPerfect
)

func (q Quality) Valid() bool {
	return q >= QualityBlackout && q <= QualityPerfect
}

// QualityFromAccuracy maps a 0-100 accuracy score to a quality grade.
// Callers must validate the accuracy range beforehand.
func QualityFromAccuracy(accuracy int) Quality {
	switch {
	case accuracy >= 90:
		return QualityPerfect
	case accuracy >= 70:
		return QualityHesitant
	case accuracy >= 50:
		return QualityHard
	case accuracy >= 30:
		return QualityWrongFamiliar
	case accuracy >= 10:
		return QualityWrong
	default:
		return QualityBlackout
	}
}

// Params holds the SM-2 constants. They are configurable because the
// learn-mode tuning of the product was never pinned down.
type Params struct {
	InitialEasinessFactor float64
	MinEasinessFactor     float64
	FirstIntervalDays     int
	SecondIntervalDays    int
	LapseIntervalDays     int
	PassQuality           Quality
}

func DefaultParams() Params {
	return Params{
		InitialEasinessFactor: DefaultEasinessFactor,
		MinEasinessFactor:     MinEasinessFactor,
		FirstIntervalDays:     1,
		SecondIntervalDays:    6,
		LapseIntervalDays:     1,
		PassQuality:           QualityHard,
	}
}

// NewItem returns the state of an item on first exposure: immediately due.
func NewItem(learnerID, contentItemID string, now time.Time, params Params) Item {
	return Item{
		LearnerID:      learnerID,
		ContentItemID:  contentItemID,
		EasinessFactor: params.InitialEasinessFactor,
		DueAt:          now,
	}
}

// Schedule applies one review with the given quality and returns the next state.
// A nil item means first exposure; the caller fills in the identifiers.
// The input item is never modified.
func Schedule(item *Item, quality Quality, now time.Time, params Params) (Item, error) {
	if !quality.Valid() {
		return Item{}, fmt.Errorf("%w: got %d", ErrInvalidQuality, quality)
	}

	var next Item
	if item == nil {
		next = NewItem("", "", now, params)
	} else {
		next = *item
	}

	next.EasinessFactor = UpdateEasinessFactor(next.EasinessFactor, quality, params.MinEasinessFactor)

	if quality < params.PassQuality {
		next.RepetitionCount = 0
		next.IntervalDays = params.LapseIntervalDays
	} else {
		next.RepetitionCount++
		next.IntervalDays = CalculateNextInterval(next.IntervalDays, next.EasinessFactor, next.RepetitionCount, params)
	}

	reviewedAt := now
	next.LastReviewedAt = &reviewedAt
	next.DueAt = now.AddDate(0, 0, next.IntervalDays)
	return next, nil
}

// UpdateEasinessFactor calculates new EF based on quality grade
func UpdateEasinessFactor(ef float64, quality Quality, floor float64) float64 {
	if ef == 0 {
		ef = DefaultEasinessFactor
	}
	q := float64(quality)
	delta := 0.1 - (5-q)*(0.08+(5-q)*0.02)
	return math.Max(ef+delta, floor)
}

// CalculateNextInterval calculates the interval after a successful review.
// repetitionCount is the count including the review being applied.
func CalculateNextInterval(lastInterval int, ef float64, repetitionCount int, params Params) int {
	switch repetitionCount {
	case 1:
		return params.FirstIntervalDays
	case 2:
		return params.SecondIntervalDays
	default:
		// Items migrated without an interval continue from the second step
		if lastInterval <= 0 {
			lastInterval = params.SecondIntervalDays
		}
		return int(math.Round(float64(lastInterval) * ef))
	}
}
