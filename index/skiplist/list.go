package skiplist

import (
	"math/rand/v2"

	"github.com/hupe1980/docquery/model"
	"github.com/hupe1980/docquery/value"
)

const (
	maxLevel    = 24
	probability = 4 // 1 in probability nodes gains a level
)

type node struct {
	vals []value.Value
	id   model.RowID
	next []*node
}

// list is a probabilistic skiplist ordered by (vals, id).
type list struct {
	head  *node
	level int
	size  int
	rng   *rand.Rand
}

func newList(seed uint64) *list {
	return &list{
		head:  &node{next: make([]*node, maxLevel)},
		level: 1,
		rng:   rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
}

func compareEntry(vals []value.Value, id model.RowID, n *node) int {
	if c := value.CompareTuples(vals, n.vals); c != 0 {
		return c
	}
	switch {
	case id < n.id:
		return -1
	case id > n.id:
		return 1
	}
	return 0
}

func (l *list) randomLevel() int {
	lvl := 1
	for lvl < maxLevel && l.rng.IntN(probability) == 0 {
		lvl++
	}
	return lvl
}

func (l *list) insert(vals []value.Value, id model.RowID) {
	var update [maxLevel]*node
	x := l.head
	for i := l.level - 1; i >= 0; i-- {
		for x.next[i] != nil && compareEntry(vals, id, x.next[i]) > 0 {
			x = x.next[i]
		}
		update[i] = x
	}

	lvl := l.randomLevel()
	if lvl > l.level {
		for i := l.level; i < lvl; i++ {
			update[i] = l.head
		}
		l.level = lvl
	}

	n := &node{vals: vals, id: id, next: make([]*node, lvl)}
	for i := range lvl {
		n.next[i] = update[i].next[i]
		update[i].next[i] = n
	}
	l.size++
}

func (l *list) delete(vals []value.Value, id model.RowID) bool {
	var update [maxLevel]*node
	x := l.head
	for i := l.level - 1; i >= 0; i-- {
		for x.next[i] != nil && compareEntry(vals, id, x.next[i]) > 0 {
			x = x.next[i]
		}
		update[i] = x
	}

	target := x.next[0]
	if target == nil || compareEntry(vals, id, target) != 0 {
		return false
	}
	for i := range l.level {
		if update[i].next[i] != target {
			break
		}
		update[i].next[i] = target.next[i]
	}
	for l.level > 1 && l.head.next[l.level-1] == nil {
		l.level--
	}
	l.size--
	return true
}

// seek returns the first node after the position p, or the first node when
// p is nil.
func (l *list) seek(p *position) *node {
	if p == nil {
		return l.head.next[0]
	}
	x := l.head
	for i := l.level - 1; i >= 0; i-- {
		for x.next[i] != nil && comparePosition(x.next[i].vals, p) < 0 {
			x = x.next[i]
		}
	}
	return x.next[0]
}

// hasTuple reports whether any entry carries exactly vals.
func (l *list) hasTuple(vals []value.Value) bool {
	n := l.seek(&position{vals: vals, sentinel: -1})
	return n != nil && value.CompareTuples(n.vals, vals) == 0
}
