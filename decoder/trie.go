package decoder

import (
	"github.com/ieee0824/ctcdecode-go/fst"
	"github.com/ieee0824/ctcdecode-go/hotword"
	"github.com/ieee0824/ctcdecode-go/internal/mathutil"
)

// node is a prefix in the search trie. The path from the root spells the
// collapsed token sequence of a hypothesis. Probabilities are kept separately
// for paths ending in blank (b) and in the node's token (nb), for the last
// completed timestep (prev) and the one being computed (cur).
type node struct {
	id       int // token id, -1 at the root
	parent   *node
	children []*node // creation order

	timestep int
	logProbC float64 // log probability of the emission at timestep

	bPrev, nbPrev float64
	bCur, nbCur   float64
	score         float64

	// exists is false for nodes that only remain as ancestors of live
	// prefixes.
	exists bool

	dictState fst.StateID
	hotword   hotword.State
}

func newRoot() *node {
	return &node{
		id:        -1,
		timestep:  -1,
		logProbC:  mathutil.LogZero,
		bPrev:     0,
		nbPrev:    mathutil.LogZero,
		bCur:      mathutil.LogZero,
		nbCur:     mathutil.LogZero,
		score:     0,
		exists:    true,
		dictState: fst.NoState,
	}
}

func (n *node) isRoot() bool { return n.parent == nil }

func (n *node) child(id int) *node {
	for _, c := range n.children {
		if c.id == id {
			return c
		}
	}
	return nil
}

func (n *node) addChild(id, timestep int, logProbC float64) *node {
	c := &node{
		id:        id,
		parent:    n,
		timestep:  timestep,
		logProbC:  logProbC,
		bPrev:     mathutil.LogZero,
		nbPrev:    mathutil.LogZero,
		bCur:      mathutil.LogZero,
		nbCur:     mathutil.LogZero,
		score:     mathutil.LogZero,
		exists:    true,
		dictState: fst.NoState,
	}
	n.children = append(n.children, c)
	return c
}

// revive marks a node that was dropped from the beam live again.
func (n *node) revive() {
	if n.exists {
		return
	}
	n.exists = true
	n.bPrev, n.nbPrev = mathutil.LogZero, mathutil.LogZero
	n.bCur, n.nbCur = mathutil.LogZero, mathutil.LogZero
}

// observe records a new emission of the node's token. The timestep moves to
// the most probable emission unless a child was emitted earlier, so that the
// timesteps along any path never decrease.
func (n *node) observe(timestep int, logProbC float64) {
	if logProbC <= n.logProbC {
		return
	}
	for _, c := range n.children {
		if c.timestep < timestep {
			return
		}
	}
	n.logProbC = logProbC
	n.timestep = timestep
}

// collect rolls the current timestep's probabilities into prev and appends
// every live node in pre-order.
func (n *node) collect(out []*node) []*node {
	if n.exists {
		n.bPrev, n.nbPrev = n.bCur, n.nbCur
		n.bCur, n.nbCur = mathutil.LogZero, mathutil.LogZero
		n.score = mathutil.LogSumExp(n.bPrev, n.nbPrev)
		out = append(out, n)
	}
	for _, c := range n.children {
		out = c.collect(out)
	}
	return out
}

// remove drops the node from the beam and prunes it, and any ancestors left
// without purpose, from the trie.
func (n *node) remove() {
	n.exists = false
	if len(n.children) > 0 || n.isRoot() {
		return
	}
	p := n.parent
	for i, c := range p.children {
		if c == n {
			p.children = append(p.children[:i], p.children[i+1:]...)
			if len(p.children) == 0 && !p.exists {
				p.remove()
			}
			return
		}
	}
}

// path returns the token ids and timesteps from the root to n.
func (n *node) path() (ids, timesteps []int) {
	depth := 0
	for cur := n; !cur.isRoot(); cur = cur.parent {
		depth++
	}
	ids = make([]int, depth)
	timesteps = make([]int, depth)
	for cur := n; !cur.isRoot(); cur = cur.parent {
		depth--
		ids[depth] = cur.id
		timesteps[depth] = cur.timestep
	}
	return ids, timesteps
}
