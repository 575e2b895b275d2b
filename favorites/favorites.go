// Package favorites maintains an ordered, duplicate free list of ticker
// symbols and routes add/remove interactions onto it.
package favorites

// List is an ordered set of symbols in insertion order.
type List []string

// Contains reports whether symbol is in the list.
func (l List) Contains(symbol string) bool {
	return l.index(symbol) >= 0
}

func (l List) index(symbol string) int {
	for i, s := range l {
		if s == symbol {
			return i
		}
	}
	return -1
}

// Add appends symbol unless it is empty or already present. The input list
// is never modified.
func Add(symbol string, l List) List {
	if symbol == "" || l.Contains(symbol) {
		return l
	}
	out := make(List, len(l), len(l)+1)
	copy(out, l)
	return append(out, symbol)
}

// Remove drops the first occurrence of symbol, preserving order. Removing a
// symbol that is not present returns the list unchanged.
func Remove(symbol string, l List) List {
	i := l.index(symbol)
	if i < 0 {
		return l
	}
	out := make(List, 0, len(l)-1)
	out = append(out, l[:i]...)
	return append(out, l[i+1:]...)
}

// ControlKind names the kind of control that triggered an interaction.
type ControlKind string

const (
	ControlAdd    ControlKind = "add"
	ControlRemove ControlKind = "remove"
)

// ControlID identifies a control by value. Remove controls are keyed by the
// symbol they remove, never by list position.
type ControlID struct {
	Kind ControlKind `json:"kind"`
	Key  string      `json:"key,omitempty"`
}

// AddControl is the single add button.
var AddControl = ControlID{Kind: ControlAdd}

// RemoveControl returns the remove control for symbol.
func RemoveControl(symbol string) ControlID {
	return ControlID{Kind: ControlRemove, Key: symbol}
}

// Row is one rendered favorite with the control that removes it.
type Row struct {
	Symbol  string    `json:"symbol"`
	Control ControlID `json:"control"`
}

// Render produces one row per favorite, in list order.
func Render(l List) []Row {
	rows := make([]Row, 0, len(l))
	for _, s := range l {
		rows = append(rows, Row{Symbol: s, Control: RemoveControl(s)})
	}
	return rows
}

// Event is a single user interaction against the list.
type Event struct {
	// Trigger is the control that fired, nil when nothing fired (initial render).
	Trigger *ControlID
	// AddClicks is the add button's click counter.
	AddClicks int
	// Symbol is the current, already normalized, ticker input.
	Symbol string
}

// Dispatch applies exactly the one mutation named by the event's trigger.
func Dispatch(ev Event, l List) List {
	if ev.Trigger == nil {
		return l
	}
	switch ev.Trigger.Kind {
	case ControlAdd:
		if ev.AddClicks <= 0 {
			return l
		}
		return Add(ev.Symbol, l)
	case ControlRemove:
		return Remove(ev.Trigger.Key, l)
	default:
		return l
	}
}
