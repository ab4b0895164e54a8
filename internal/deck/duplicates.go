package deck

// DuplicateKind classifies a note against the rest of its deck.
type DuplicateKind int

const (
	NotDuplicate DuplicateKind = iota
	// PossibleDuplicate: some field equals another note's field at the same
	// position.
	PossibleDuplicate
	// ExactDuplicate: another note has the same fields element for element.
	ExactDuplicate
)

func (k DuplicateKind) String() string {
	switch k {
	case PossibleDuplicate:
		return "possible"
	case ExactDuplicate:
		return "exact"
	default:
		return "none"
	}
}

// Duplicate is the classification of one note.
type Duplicate struct {
	GUID string
	Kind DuplicateKind
	// Peer is the guid of the first matching note in deck order.
	Peer string
}

// FindDuplicates classifies every note that shares a field with another
// note of the same model. Notes of different models are never compared.
// The result is keyed by guid and depends only on the notes' contents.
func FindDuplicates(notes []*Note) map[string]Duplicate {
	out := make(map[string]Duplicate)
	for i, n := range notes {
		d := Duplicate{GUID: n.guid}
		for j, other := range notes {
			if i == j || other.guid == n.guid || other.model.id != n.model.id {
				continue
			}
			kind := compare(n.fields, other.fields)
			if kind == NotDuplicate {
				continue
			}
			if d.Peer == "" {
				d.Peer = other.guid
			}
			if kind > d.Kind {
				d.Kind = kind
			}
		}
		if d.Kind != NotDuplicate {
			out[n.guid] = d
		}
	}
	return out
}

func compare(a, b []string) DuplicateKind {
	if len(a) != len(b) {
		return NotDuplicate
	}
	shared, equal := false, true
	for i := range a {
		if a[i] == b[i] {
			shared = true
		} else {
			equal = false
		}
	}
	switch {
	case equal:
		return ExactDuplicate
	case shared:
		return PossibleDuplicate
	default:
		return NotDuplicate
	}
}
