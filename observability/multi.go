package observability

import "context"

// MultiObserver forwards each event to every member observer, in order.
type MultiObserver []Observer

// NewMultiObserver combines observers into a single sink. Nil entries are
// dropped and nested MultiObservers are flattened; zero usable observers
// yield a NoOpObserver and a single one is returned unwrapped.
func NewMultiObserver(observers ...Observer) Observer {
	var flat MultiObserver
	for _, obs := range observers {
		switch o := obs.(type) {
		case nil:
		case MultiObserver:
			flat = append(flat, o...)
		default:
			flat = append(flat, o)
		}
	}

	switch len(flat) {
	case 0:
		return NoOpObserver{}
	case 1:
		return flat[0]
	}
	return flat
}

func (m MultiObserver) OnEvent(ctx context.Context, event Event) {
	for _, obs := range m {
		obs.OnEvent(ctx, event)
	}
}
