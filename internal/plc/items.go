// internal/plc/items.go
package plc

// Item is one parsed tag inside a request.
// Address holds the driver-specific parsed form.
type Item[A any] struct {
	Name    string
	Address A
}

// ItemSet is the common body of driver request builders.
// Later items with the same name replace earlier ones.
type ItemSet[A any] struct {
	items []Item[A]
	index map[string]int
}

// Add parses address with parse and stores the result under name.
func (s *ItemSet[A]) Add(name, address string, parse func(string) (A, error)) error {
	a, err := parse(address)
	if err != nil {
		return err
	}
	if s.index == nil {
		s.index = make(map[string]int)
	}
	if i, ok := s.index[name]; ok {
		s.items[i].Address = a
		return nil
	}
	s.index[name] = len(s.items)
	s.items = append(s.items, Item[A]{Name: name, Address: a})
	return nil
}

// Items returns a copy of the stored items in insertion order.
func (s *ItemSet[A]) Items() []Item[A] {
	out := make([]Item[A], len(s.items))
	copy(out, s.items)
	return out
}

// Names returns the item names in insertion order.
func (s *ItemSet[A]) Names() []string {
	out := make([]string, len(s.items))
	for i, it := range s.items {
		out[i] = it.Name
	}
	return out
}
