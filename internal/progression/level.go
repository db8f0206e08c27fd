package progression

import (
	"fmt"
	"math"
	"sort"
)

// LevelCurve maps total XP to levels with geometrically growing steps.
// The XP needed to go from level L to L+1 is round(BaseXP * Growth^(L-1)).
type LevelCurve struct {
	thresholds []int // thresholds[i] is the total XP needed for level i+1
}

func DefaultLevelCurve() LevelCurve {
	curve, err := NewLevelCurve(100, 1.25, 50)
	if err != nil {
		panic(err)
	}
	return curve
}

func NewLevelCurve(baseXP int, growth float64, maxLevel int) (LevelCurve, error) {
	if baseXP <= 0 {
		return LevelCurve{}, fmt.Errorf("base xp must be positive, got %d", baseXP)
	}
	if growth < 1 {
		return LevelCurve{}, fmt.Errorf("growth must be at least 1, got %v", growth)
	}
	if maxLevel < 1 {
		return LevelCurve{}, fmt.Errorf("max level must be at least 1, got %d", maxLevel)
	}

	thresholds := make([]int, maxLevel)
	for level := 2; level <= maxLevel; level++ {
		step := math.Round(float64(baseXP) * math.Pow(growth, float64(level-2)))
		next := float64(thresholds[level-2]) + step
		if next > math.MaxInt32 {
			return LevelCurve{}, fmt.Errorf("threshold for level %d overflows", level)
		}
		thresholds[level-1] = int(next)
	}
	return LevelCurve{thresholds: thresholds}, nil
}

func (c LevelCurve) MaxLevel() int {
	return len(c.thresholds)
}

// Threshold returns the total XP at which level is reached.
func (c LevelCurve) Threshold(level int) int {
	if level <= 1 || len(c.thresholds) == 0 {
		return 0
	}
	if level > len(c.thresholds) {
		level = len(c.thresholds)
	}
	return c.thresholds[level-1]
}

// Level returns the highest level whose threshold is at most totalXP.
func (c LevelCurve) Level(totalXP int) int {
	if len(c.thresholds) == 0 {
		return 1
	}
	// first index whose threshold exceeds totalXP
	i := sort.Search(len(c.thresholds), func(i int) bool {
		return c.thresholds[i] > totalXP
	})
	if i == 0 {
		return 1
	}
	return i
}

// XPToNextLevel returns the XP still missing to reach the next level, 0 at max level.
func (c LevelCurve) XPToNextLevel(totalXP int) int {
	level := c.Level(totalXP)
	if level >= c.MaxLevel() {
		return 0
	}
	return c.Threshold(level+1) - totalXP
}
