package poller

// ErrorMemo remembers which failure identities have already been reported.
//
// With max <= 0 it never forgets. With max > 0 the oldest identity is
// evicted first, so a long-gone error can be reported again.
type ErrorMemo struct {
	max   int
	seen  map[string]struct{}
	order []string
}

func NewErrorMemo(max int) *ErrorMemo {
	return &ErrorMemo{max: max, seen: map[string]struct{}{}}
}

// Remember records key and reports whether it was new.
func (m *ErrorMemo) Remember(key string) bool {
	if _, ok := m.seen[key]; ok {
		return false
	}
	m.seen[key] = struct{}{}
	m.order = append(m.order, key)
	if m.max > 0 && len(m.order) > m.max {
		oldest := m.order[0]
		m.order = m.order[1:]
		delete(m.seen, oldest)
	}
	return true
}

func (m *ErrorMemo) Len() int { return len(m.order) }
