package library

import "slices"

// ordered is an id-keyed map that remembers insertion order, so lookups are
// O(1) while listings keep the order records were created in.
type ordered[T any] struct {
	byID  map[string]*T
	order []string
}

func newOrdered[T any]() *ordered[T] {
	return &ordered[T]{byID: make(map[string]*T)}
}

func (o *ordered[T]) get(id string) (*T, bool) {
	v, ok := o.byID[id]
	return v, ok
}

func (o *ordered[T]) has(id string) bool {
	_, ok := o.byID[id]
	return ok
}

func (o *ordered[T]) len() int { return len(o.order) }

func (o *ordered[T]) add(id string, v *T) {
	o.byID[id] = v
	o.order = append(o.order, id)
}

// insertAt puts id back at position i; used to undo a remove.
func (o *ordered[T]) insertAt(i int, id string, v *T) {
	if i < 0 || i > len(o.order) {
		i = len(o.order)
	}
	o.byID[id] = v
	o.order = slices.Insert(o.order, i, id)
}

// remove deletes id and reports the position it held.
func (o *ordered[T]) remove(id string) (int, *T, bool) {
	v, ok := o.byID[id]
	if !ok {
		return -1, nil, false
	}
	i := slices.Index(o.order, id)
	o.order = slices.Delete(o.order, i, i+1)
	delete(o.byID, id)
	return i, v, true
}

// each visits records in insertion order until fn returns false.
func (o *ordered[T]) each(fn func(*T) bool) {
	for _, id := range o.order {
		if !fn(o.byID[id]) {
			return
		}
	}
}
