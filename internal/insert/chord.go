package insert

// Stroke is one synthetic key transition.
type Stroke struct {
	Key  string
	Down bool
}

// Chord is an ordered key sequence delivered as one batch.
type Chord []Stroke

// PasteChord is Ctrl+V: ctrl down, v down, v up, ctrl up.
func PasteChord() Chord {
	return Chord{
		{Key: "ctrl", Down: true},
		{Key: "v", Down: true},
		{Key: "v"},
		{Key: "ctrl"},
	}
}
