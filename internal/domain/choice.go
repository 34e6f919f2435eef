package domain

// Choice is one entry of the attach action sheet.
type Choice int

const (
	ChoiceLibrary Choice = iota
	ChoiceCamera
	ChoiceLocation
	ChoiceCancel
)

var choiceNames = map[Choice]string{
	ChoiceLibrary:  "library",
	ChoiceCamera:   "camera",
	ChoiceLocation: "location",
	ChoiceCancel:   "cancel",
}

func (c Choice) String() string {
	if s, ok := choiceNames[c]; ok {
		return s
	}
	return "cancel"
}

// ParseChoice maps a choice name back to a Choice. Unknown names map to
// ChoiceCancel and ok=false.
func ParseChoice(s string) (Choice, bool) {
	for c, name := range choiceNames {
		if name == s {
			return c, true
		}
	}
	return ChoiceCancel, false
}

// ChoiceFromIndex maps a raw menu index to a Choice. Any index outside the
// menu, including the -1 a dismissed sheet reports, is a cancel.
func ChoiceFromIndex(menu []SheetOption, index int) Choice {
	if index < 0 || index >= len(menu) {
		return ChoiceCancel
	}
	return menu[index].Choice
}

// SheetOption is a labelled menu entry.
type SheetOption struct {
	Label  string
	Choice Choice
}

// Sheet describes what an ActionSheet should present.
type Sheet struct {
	Title       string
	Options     []SheetOption
	CancelIndex int
}

// Labels returns the option labels in menu order.
func (s Sheet) Labels() []string {
	labels := make([]string, len(s.Options))
	for i, o := range s.Options {
		labels[i] = o.Label
	}
	return labels
}
