package set

// ChangeKind names the kind of a mutation.
type ChangeKind uint8

const (
	KindAdded ChangeKind = iota + 1
	KindUpdated
	KindRemoved
)

func (k ChangeKind) String() string {
	switch k {
	case KindAdded:
		return "added"
	case KindUpdated:
		return "updated"
	case KindRemoved:
		return "removed"
	default:
		return "none"
	}
}

// Change describes the outcome of a mutation. Old is the zero value for
// KindAdded, New is the zero value for KindRemoved.
type Change[T any] struct {
	Kind ChangeKind
	Old  T
	New  T
}

// FieldChanged reports whether the field extracted by f differs between Old
// and New. Insertions and removals always count as a change.
func FieldChanged[T any, F comparable](c Change[T], f func(T) F) bool {
	switch c.Kind {
	case KindUpdated:
		return f(c.Old) != f(c.New)
	case KindAdded, KindRemoved:
		return true
	default:
		return false
	}
}
