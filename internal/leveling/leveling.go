// Package leveling maps accumulated experience to a level number.
package leveling

import "fmt"

// MaxLevel caps progression; experience keeps accumulating past it but
// the reported level does not grow.
const MaxLevel = 50

// Threshold returns the experience required to reach level. Level n costs
// 100 * (n-1) * n / 2 experience: 0, 100, 300, 600, 1000, ...
func Threshold(level int) int64 {
	if level <= 1 {
		return 0
	}
	if level > MaxLevel {
		level = MaxLevel
	}
	n := int64(level)
	return 100 * (n - 1) * n / 2
}

// LevelOf returns the level for the given experience. It is a monotonic
// step function; negative experience is a programming error.
func LevelOf(experience int64) int {
	if experience < 0 {
		panic(fmt.Sprintf("leveling: negative experience %d", experience))
	}
	level := 1
	for level < MaxLevel && experience >= Threshold(level+1) {
		level++
	}
	return level
}
