package synth

// none marks the end of the active list.
const none = -1

// activeList is a doubly linked list of voice slot indices stored in fixed
// arrays, so insertion and removal never allocate.
type activeList struct {
	head  int
	count int
	next  [NumVoices]int
	prev  [NumVoices]int
}

func (l *activeList) reset() {
	l.head = none
	l.count = 0

	for i := range l.next {
		l.next[i] = none
		l.prev[i] = none
	}
}

// pushFront links idx at the head. idx must not already be linked.
func (l *activeList) pushFront(idx int) {
	l.prev[idx] = none
	l.next[idx] = l.head

	if l.head != none {
		l.prev[l.head] = idx
	}

	l.head = idx
	l.count++
}

// remove unlinks idx. idx must be linked.
func (l *activeList) remove(idx int) {
	p, n := l.prev[idx], l.next[idx]

	if p != none {
		l.next[p] = n
	} else {
		l.head = n
	}

	if n != none {
		l.prev[n] = p
	}

	l.prev[idx] = none
	l.next[idx] = none
	l.count--
}
