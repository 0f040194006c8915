package insert

import (
	"fmt"
	"slices"
)

// AT-SPI state bits, from AtspiStateType.
const (
	atspiStateEditable = 7
	atspiStateFocused  = 12
	atspiStateReadOnly = 43
)

const atspiEditableText = "org.a11y.atspi.EditableText"

func stateHas(states []uint32, bit uint) bool {
	word := int(bit / 32)
	if word >= len(states) {
		return false
	}
	return states[word]&(1<<(bit%32)) != 0
}

// checkEditable decides whether an accessible may receive SetTextContents.
func checkEditable(interfaces []string, states []uint32, characters int32) error {
	if !slices.Contains(interfaces, atspiEditableText) {
		return fmt.Errorf("%w: focused element has no editable text", ErrNotApplicable)
	}
	if !stateHas(states, atspiStateEditable) {
		return fmt.Errorf("%w: focused element is not editable", ErrNotApplicable)
	}
	if !stateHas(states, atspiStateFocused) {
		return fmt.Errorf("%w: element no longer has focus", ErrNotApplicable)
	}
	if stateHas(states, atspiStateReadOnly) {
		return fmt.Errorf("%w: focused element is read-only", ErrNotApplicable)
	}
	if characters != 0 {
		return fmt.Errorf("%w: focused element already has text", ErrNotApplicable)
	}
	return nil
}
