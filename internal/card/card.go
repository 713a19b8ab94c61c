package card

// Card represents one playable unit of a deck
type Card struct {
	Anime  string `json:"anime"`  // Title the card belongs to
	Type   string `json:"type"`   // Card type label
	Visual string `json:"visual"` // Visual asset file name
	Audio  string `json:"audio"`  // Audio asset file name, empty for silent cards
}

// Silent reports whether the card has no audio asset
func (c Card) Silent() bool {
	return c.Audio == ""
}
