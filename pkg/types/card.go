package types

// Card is the persisted form of a note inside one namespace's cards store.
// ID is derived from the epoch-millisecond clock at creation and is unique
// within the namespace. Type selects the model (see deck.Catalog).
type Card struct {
	ID   int64    `json:"id" validate:"gt=0"`
	Type int      `json:"type" validate:"gte=0"`
	Note CardNote `json:"note"`
}

// CardNote holds the ordered field values of a card.
type CardNote struct {
	Fields []string `json:"fields" validate:"min=1"`
}

// Validate checks the card against its struct constraints.
func (c *Card) Validate() error {
	return validateStruct(c)
}
