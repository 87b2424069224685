package game

// Title table for the dashboard, clamped at both ends.
var levelTitles = []string{
	"Script Kiddie",
	"Code Cadet",
	"Loop Wrangler",
	"Stack Surfer",
	"Bit Flipper",
	"Heap Herder",
	"Thread Tamer",
	"Cache Whisperer",
	"Kernel Hacker",
	"Root of All Eval",
}

func TitleForLevel(level int64) string {
	if level < 1 {
		level = 1
	}
	if level > int64(len(levelTitles)) {
		level = int64(len(levelTitles))
	}
	return levelTitles[level-1]
}

// LevelForExp maps accumulated experience to a level: 100 exp per level,
// clamped to the top tier.
func LevelForExp(exp int64) int64 {
	if exp < 0 {
		exp = 0
	}
	level := exp/100 + 1
	if level > int64(len(levelTitles)) {
		level = int64(len(levelTitles))
	}
	return level
}
