package assets

import "embed"

//go:embed puzzles.json
var FS embed.FS

// PuzzleData returns the bundled daily puzzle content.
func PuzzleData() ([]byte, error) {
	return FS.ReadFile("puzzles.json")
}
