package types

// DeckData is the registry entry of one namespace: the stable numeric deck id
// used in exported packages and the display label.
type DeckData struct {
	ID    int64  `json:"id"`
	Label string `json:"label"`
}
