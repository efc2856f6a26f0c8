package optimizer

import (
	"container/heap"
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/stitts-dev/fpl-optimizer/internal/models"
)

const (
	// DefaultNodeLimit bounds the relaxations solved when the caller sets no limit.
	DefaultNodeLimit = 100_000
	scoreEpsilon     = 1e-9
	numPositions     = 4

	// Prices must sit on a grid of hundredths of a million.
	costScale     = 100
	gridTolerance = 1e-6

	dualIterations = 30

	takePlain   uint8 = 1
	takeCaptain uint8 = 2
)

var negInf = math.Inf(-1)

// SolveStats describes one solve.
type SolveStats struct {
	Nodes      int64 `json:"nodes"`
	Candidates int   `json:"candidates"`
	Pruned     int   `json:"pruned_by_dominance"`
}

// solver is exact in two layers. A relaxation drops the club limit and solves
// positions, budget and captaincy exactly by dynamic programming over integer
// prices. Best-first branch and bound restores the club limit by splitting on
// the club a relaxed roster overfills. Lagrange multipliers on the club limit,
// tuned at the root, tighten the bound of every later node.
type solver struct {
	ctx       context.Context
	nodeLimit int64

	vars   []Variable
	posOf  []int
	teamOf []int
	units  []int
	forced []int
	teams  int

	size    int
	teamCap int
	budget  int
	minPos  [numPositions]int
	maxPos  [numPositions]int
	minUnit [numPositions]int

	mu []float64

	found   bool
	best    float64
	bestSel []int
	nodes   int64
	err     error
}

func newSolver(ctx context.Context, m *Model, nodeLimit int64) (*solver, int) {
	if nodeLimit <= 0 {
		nodeLimit = DefaultNodeLimit
	}
	rc := m.Constraints
	vars, pruned := reduceDominated(m.Variables, rc)

	s := &solver{
		ctx:       ctx,
		nodeLimit: nodeLimit,
		vars:      vars,
		size:      rc.SquadSize,
		teamCap:   rc.MaxPlayersPerTeam,
	}
	for i, pos := range models.Positions {
		pc := rc.PositionConstraints[pos]
		s.minPos[i] = pc.MinRequired
		s.maxPos[i] = pc.MaxAllowed
		s.minUnit[i] = -1
	}

	n := len(vars)
	s.posOf = make([]int, n)
	s.teamOf = make([]int, n)
	s.units = make([]int, n)
	teamIndex := make(map[int]int)
	grid := 0
	for i, v := range vars {
		s.posOf[i] = v.Player.Position.Index()
		t, ok := teamIndex[v.Player.TeamID]
		if !ok {
			t = len(teamIndex)
			teamIndex[v.Player.TeamID] = t
		}
		s.teamOf[i] = t
		if v.Forced {
			s.forced = append(s.forced, i)
		}
		u, err := gridUnits(v.Player)
		if err != nil {
			s.err = err
			return s, pruned
		}
		s.units[i] = u
		grid = gcd(grid, u)
	}
	s.teams = len(teamIndex)

	// Dividing by the common price step keeps the budget axis short.
	if grid == 0 {
		grid = 1
	}
	for i := range s.units {
		s.units[i] /= grid
		p := s.posOf[i]
		if s.minUnit[p] < 0 || s.units[i] < s.minUnit[p] {
			s.minUnit[p] = s.units[i]
		}
	}
	limit := math.Floor((rc.Budget*costScale + gridTolerance) / float64(grid))
	if ceiling := s.costliestSquad(); limit > float64(ceiling) {
		s.budget = ceiling
	} else {
		s.budget = int(limit)
	}

	return s, pruned
}

func gridUnits(p models.Player) (int, error) {
	x := p.Cost * costScale
	u := math.Round(x)
	if u < 0 || math.Abs(x-u) > gridTolerance {
		return 0, fmt.Errorf("%w: player %d costs %v, not a whole multiple of 0.01", models.ErrDegenerateInput, p.ID, p.Cost)
	}
	return int(u), nil
}

func gcd(a, b int) int {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

// costliestSquad is the price of the most expensive squad, the largest budget
// that can ever matter.
func (s *solver) costliestSquad() int {
	units := append([]int(nil), s.units...)
	sort.Sort(sort.Reverse(sort.IntSlice(units)))
	total := 0
	for k := 0; k < s.size && k < len(units); k++ {
		total += units[k]
	}
	return total
}

func (s *solver) solve() ([]Variable, float64, error) {
	if s.err == nil {
		s.search()
	}
	if s.err != nil {
		return nil, 0, s.err
	}
	if !s.found {
		return nil, 0, models.ErrInfeasibleModel
	}
	out := make([]Variable, len(s.bestSel))
	for k, idx := range s.bestSel {
		out[k] = s.vars[idx]
	}
	return out, s.best, nil
}

// node is a subproblem: variables fixed into and out of the roster.
type node struct {
	include []int
	exclude []int
	bound   float64
	seq     int
}

// nodeQueue pops the highest bound first, newest first among equal bounds.
type nodeQueue []*node

func (q nodeQueue) Len() int { return len(q) }
func (q nodeQueue) Less(i, j int) bool {
	if q[i].bound != q[j].bound {
		return q[i].bound > q[j].bound
	}
	return q[i].seq > q[j].seq
}
func (q nodeQueue) Swap(i, j int)       { q[i], q[j] = q[j], q[i] }
func (q *nodeQueue) Push(x interface{}) { *q = append(*q, x.(*node)) }
func (q *nodeQueue) Pop() interface{} {
	old := *q
	n := old[len(old)-1]
	*q = old[:len(old)-1]
	return n
}

func (s *solver) search() {
	queue := &nodeQueue{}
	heap.Push(queue, &node{include: append([]int(nil), s.forced...), bound: math.Inf(1)})
	seq, root := 1, true

	for queue.Len() > 0 {
		nd := heap.Pop(queue).(*node)
		if s.found && nd.bound <= s.best+scoreEpsilon {
			return
		}
		bound, overfull := s.evaluate(nd, root)
		root = false
		if s.err != nil {
			return
		}
		if overfull == nil || (s.found && bound <= s.best+scoreEpsilon) {
			continue
		}
		for _, child := range s.branch(nd, overfull) {
			child.bound, child.seq = bound, seq
			seq++
			heap.Push(queue, child)
		}
	}
}

// evaluate relaxes a node, records any legal roster it uncovers and returns
// the node's bound. The returned roster is the relaxed one to branch on; nil
// means the node is settled.
func (s *solver) evaluate(nd *node, root bool) (float64, []int) {
	plain, ok := s.relax(nd, nil)
	if !ok {
		return 0, nil
	}
	if s.overfullTeam(plain.picks) < 0 {
		s.offer(plain.picks)
		return plain.bound, nil
	}
	s.offer(s.repair(nd, plain.picks))

	bound := plain.bound
	if root {
		bound = math.Min(bound, s.tuneMultipliers(nd, plain))
	} else if s.mu != nil {
		if penalized, ok := s.relax(nd, s.mu); ok {
			bound = math.Min(bound, penalized.bound)
			s.offerRelaxed(nd, penalized.picks)
		}
	}
	return bound, plain.picks
}

// branch splits on the most overfilled club. Its relaxed picks not yet fixed
// are ordered strongest first; child j keeps the first j and drops pick j.
// Every legal roster leaves out at least one of them, so the children cover
// the node. The last child fills the club, which shuts out its other players.
func (s *solver) branch(nd *node, picks []int) []*node {
	t := s.overfullTeam(picks)
	fixed := make(map[int]bool, len(nd.include))
	for _, i := range nd.include {
		fixed[i] = true
	}
	var free []int
	fixedInTeam := 0
	for _, i := range picks {
		if s.teamOf[i] != t {
			continue
		}
		if fixed[i] {
			fixedInTeam++
		} else {
			free = append(free, i)
		}
	}
	sort.Ints(free)

	room := s.teamCap - fixedInTeam
	children := make([]*node, 0, room+1)
	for j := 0; j <= room && j < len(free); j++ {
		children = append(children, &node{
			include: append(append([]int(nil), nd.include...), free[:j]...),
			exclude: append(append([]int(nil), nd.exclude...), free[j]),
		})
	}
	return children
}

// tuneMultipliers runs a projected subgradient descent on the club-limit
// multipliers at the root and keeps the ones giving the lowest bound.
func (s *solver) tuneMultipliers(nd *node, start relaxation) float64 {
	mu := make([]float64, s.teams)
	best, current := start.bound, start
	step := 1.0

	for it := 0; it < dualIterations; it++ {
		if s.found && best <= s.best+scoreEpsilon {
			break
		}
		grad := s.teamLoad(current.picks)
		norm := 0.0
		for t, g := range grad {
			if g < 0 && mu[t] == 0 {
				grad[t] = 0
				continue
			}
			norm += float64(g * g)
		}
		if norm == 0 {
			break
		}
		target := best - math.Max(1, 0.05*math.Abs(best))
		if s.found {
			target = s.best
		}
		gap := current.bound - target
		if gap <= 0 {
			break
		}
		for t, g := range grad {
			mu[t] = math.Max(0, mu[t]+step*gap*float64(g)/norm)
		}

		next, ok := s.relax(nd, mu)
		if !ok {
			break
		}
		s.offerRelaxed(nd, next.picks)
		if next.bound < best-scoreEpsilon {
			best = next.bound
			s.mu = append(s.mu[:0], mu...)
		} else {
			step /= 2
		}
		current = next
	}
	return best
}

type relaxation struct {
	bound float64
	picks []int
}

// relax solves the node without the club limit. With multipliers mu each
// player's value drops by its club's multiplier and mu·cap is added back,
// which still bounds every roster that respects the limit. Clubs already
// filled by fixed players are closed. It reports false when the relaxation
// has no solution or the solve was stopped, in which case s.err is set.
func (s *solver) relax(nd *node, mu []float64) (relaxation, bool) {
	if s.nodes >= s.nodeLimit {
		s.err = fmt.Errorf("%w: solved %d relaxations", models.ErrSolverLimit, s.nodes)
		return relaxation{}, false
	}
	if err := s.ctx.Err(); err != nil {
		s.err = fmt.Errorf("%w: %w", models.ErrSolverLimit, err)
		return relaxation{}, false
	}
	s.nodes++

	penalty := func(i int) float64 {
		if mu == nil {
			return 0
		}
		return mu[s.teamOf[i]]
	}
	value := 0.0
	for _, m := range mu {
		value += m * float64(s.teamCap)
	}

	state := make([]int8, len(s.vars))
	for _, i := range nd.exclude {
		state[i] = -1
	}
	var counts [numPositions]int
	teamCounts := make([]int, s.teams)
	cost, lead := 0, negInf
	for _, i := range nd.include {
		state[i] = 1
		counts[s.posOf[i]]++
		teamCounts[s.teamOf[i]]++
		cost += s.units[i]
		value += s.vars[i].Coefficient - penalty(i)
		lead = math.Max(lead, s.vars[i].Coefficient)
	}
	slots, rem := s.size-len(nd.include), s.budget-cost
	if slots < 0 || rem < 0 {
		return relaxation{}, false
	}
	for _, c := range teamCounts {
		if c > s.teamCap {
			return relaxation{}, false
		}
	}

	var lo, hi [numPositions]int
	for p := 0; p < numPositions; p++ {
		if counts[p] > s.maxPos[p] {
			return relaxation{}, false
		}
		lo[p] = max(0, s.minPos[p]-counts[p])
		hi[p] = min(s.maxPos[p]-counts[p], slots)
		if lo[p] > hi[p] {
			return relaxation{}, false
		}
	}

	var items [numPositions][]int
	for i := range s.vars {
		if state[i] != 0 || teamCounts[s.teamOf[i]] >= s.teamCap {
			continue
		}
		items[s.posOf[i]] = append(items[s.posOf[i]], i)
	}
	var tables [numPositions]*posTable
	for p := range tables {
		tables[p] = s.buildTable(items[p], hi[p], rem, penalty)
	}

	// Positions are combined in two halves over the whole budget axis. The
	// halves only meet at the remaining budget.
	left := newChain(tables[:2], lo[:2], hi[:2], rem)
	right := newChain(tables[2:], lo[2:], hi[2:], rem)
	lastL, lastR := left.last(), right.last()

	best := negInf
	var cL, fL, fR, bL int
	for c := range lastL {
		cr := slots - c
		if cr < 0 || cr >= len(lastR) {
			continue
		}
		for f := 0; f < 2; f++ {
			for g := 0; f+g < 2; g++ {
				a, d := lastL[c][f], lastR[cr][g]
				if a == nil || d == nil {
					continue
				}
				bonus := 0.0
				if f+g == 0 {
					if len(nd.include) == 0 {
						continue
					}
					bonus = lead
				}
				for b1 := 0; b1 <= rem; b1++ {
					if v := a[b1] + d[rem-b1] + bonus; v > best {
						best, cL, fL, fR, bL = v, c, f, g, b1
					}
				}
			}
		}
	}
	if best == negInf {
		return relaxation{}, false
	}

	picks := append(make([]int, 0, s.size), nd.include...)
	picks = append(picks, left.trace(cL, fL, bL, s.units)...)
	picks = append(picks, right.trace(slots-cL, fR, rem-bL, s.units)...)
	return relaxation{bound: value + best, picks: picks}, true
}

// chain combines position tables one after another. stages[p][count][captain]
// is the best value over the first p tables by budget, nil when unreachable.
type chain struct {
	tables []*posTable
	lo, hi []int
	stages [][][2][]float64
}

func newChain(tables []*posTable, lo, hi []int, rem int) *chain {
	c := &chain{tables: tables, lo: lo, hi: hi, stages: make([][][2][]float64, len(tables)+1)}
	c.stages[0] = make([][2][]float64, 1)
	c.stages[0][0][0] = make([]float64, rem+1)
	for p, t := range tables {
		prev := c.stages[p]
		next := make([][2][]float64, len(prev)+hi[p])
		for cnt := range prev {
			for f := 0; f < 2; f++ {
				a := prev[cnt][f]
				if a == nil || a[rem] == negInf {
					continue
				}
				for k := lo[p]; k <= hi[p]; k++ {
					for g := 0; f+g < 2; g++ {
						row := t.row(k, g)
						if row[rem] == negInf {
							continue
						}
						next[cnt+k][f+g] = maxMerge(next[cnt+k][f+g], convolve(a, row))
					}
				}
			}
		}
		c.stages[p+1] = next
	}
	return c
}

func (c *chain) last() [][2][]float64 {
	return c.stages[len(c.tables)]
}

// trace recovers the players behind the final value [cnt][f] at budget b.
func (c *chain) trace(cnt, f, b int, units []int) []int {
	var out []int
	for p := len(c.tables) - 1; p >= 0; p-- {
		t := c.tables[p]
		bk, bg, bb, bv := -1, 0, 0, negInf
		for k := c.lo[p]; k <= c.hi[p] && k <= cnt; k++ {
			if cnt-k >= len(c.stages[p]) {
				continue
			}
			for g := 0; g <= f; g++ {
				prev := c.stages[p][cnt-k][f-g]
				if prev == nil {
					continue
				}
				row := t.row(k, g)
				for b1 := 0; b1 <= b; b1++ {
					if v := prev[b1] + row[b-b1]; v > bv {
						bk, bg, bb, bv = k, g, b1, v
					}
				}
			}
		}
		if bk < 0 {
			return out
		}
		out = append(out, t.trace(bk, bg, b-bb, units)...)
		cnt, f, b = cnt-bk, f-bg, bb
	}
	return out
}

// posTable is a cardinality knapsack over one position's free players. For
// k picks, captain flag g and budget b it holds the best value spending at
// most b, where the captain's coefficient counts twice.
type posTable struct {
	items  []int
	hi     int
	width  int
	best   []float64
	choice [][]uint8
}

func (s *solver) buildTable(items []int, hi, rem int, penalty func(int) float64) *posTable {
	w := rem + 1
	t := &posTable{
		items:  items,
		hi:     hi,
		width:  w,
		best:   make([]float64, (hi+1)*2*w),
		choice: make([][]uint8, len(items)),
	}
	for i := range t.best {
		t.best[i] = negInf
	}
	for b := 0; b < w; b++ {
		t.best[b] = 0
	}

	for j, idx := range items {
		c := s.units[idx]
		if c > rem {
			continue
		}
		coef := s.vars[idx].Coefficient
		v := coef - penalty(idx)
		ch := make([]uint8, len(t.best))
		t.choice[j] = ch
		for k := min(hi, j+1); k >= 1; k-- {
			from0, from1 := (k-1)*2*w, ((k-1)*2+1)*w
			to0, to1 := k*2*w, (k*2+1)*w
			for b := rem; b >= c; b-- {
				if p := t.best[from0+b-c]; p > negInf {
					if cand := p + v; cand > t.best[to0+b] {
						t.best[to0+b], ch[to0+b] = cand, takePlain
					}
					if cand := p + v + coef; cand > t.best[to1+b] {
						t.best[to1+b], ch[to1+b] = cand, takeCaptain
					}
				}
				if p := t.best[from1+b-c]; p > negInf {
					if cand := p + v; cand > t.best[to1+b] {
						t.best[to1+b], ch[to1+b] = cand, takePlain
					}
				}
			}
		}
	}
	return t
}

func (t *posTable) row(k, g int) []float64 {
	start := (k*2 + g) * t.width
	return t.best[start : start+t.width]
}

// trace walks the recorded choices back from the last player.
func (t *posTable) trace(k, g, b int, units []int) []int {
	var out []int
	for j := len(t.items) - 1; j >= 0 && k > 0; j-- {
		ch := t.choice[j]
		if ch == nil {
			continue
		}
		switch ch[(k*2+g)*t.width+b] {
		case takePlain:
		case takeCaptain:
			g = 0
		default:
			continue
		}
		idx := t.items[j]
		out = append(out, idx)
		b -= units[idx]
		k--
	}
	return out
}

// convolve is the max-plus convolution of two non-decreasing arrays. Only the
// points where the sparser array rises can start an optimal split.
func convolve(a, d []float64) []float64 {
	bpA, bpD := breakpoints(a), breakpoints(d)
	if len(bpD) < len(bpA) {
		a, d, bpA = d, a, bpD
	}
	out := make([]float64, len(a))
	for i := range out {
		out[i] = negInf
	}
	for _, x := range bpA {
		ax := a[x]
		for b := x; b < len(out); b++ {
			if v := ax + d[b-x]; v > out[b] {
				out[b] = v
			}
		}
	}
	return out
}

func breakpoints(a []float64) []int {
	var out []int
	last := negInf
	for b, v := range a {
		if v > last {
			out = append(out, b)
			last = v
		}
	}
	return out
}

func maxMerge(dst, src []float64) []float64 {
	if dst == nil {
		return src
	}
	for i, v := range src {
		if v > dst[i] {
			dst[i] = v
		}
	}
	return dst
}

// teamLoad is each club's pick count minus the cap.
func (s *solver) teamLoad(picks []int) []int {
	load := make([]int, s.teams)
	for t := range load {
		load[t] = -s.teamCap
	}
	for _, i := range picks {
		load[s.teamOf[i]]++
	}
	return load
}

// overfullTeam returns the club furthest over the cap, or -1.
func (s *solver) overfullTeam(picks []int) int {
	worst, over := -1, 0
	for t, l := range s.teamLoad(picks) {
		if l > over {
			worst, over = t, l
		}
	}
	return worst
}

func (s *solver) offerRelaxed(nd *node, picks []int) {
	if s.overfullTeam(picks) < 0 {
		s.offer(picks)
		return
	}
	s.offer(s.repair(nd, picks))
}

// offer records picks as the incumbent when they form a legal roster that
// beats it.
func (s *solver) offer(picks []int) {
	if picks == nil || !s.feasible(picks) {
		return
	}
	total, lead := 0.0, negInf
	for _, i := range picks {
		c := s.vars[i].Coefficient
		total += c
		lead = math.Max(lead, c)
	}
	total += lead
	if s.found && total <= s.best+scoreEpsilon {
		return
	}
	s.found, s.best = true, total
	s.bestSel = append(s.bestSel[:0], picks...)
	sort.Ints(s.bestSel)
}

func (s *solver) feasible(picks []int) bool {
	if len(picks) != s.size {
		return false
	}
	seen := make(map[int]bool, len(picks))
	var counts [numPositions]int
	teamCounts := make([]int, s.teams)
	cost := 0
	for _, i := range picks {
		if seen[i] {
			return false
		}
		seen[i] = true
		counts[s.posOf[i]]++
		teamCounts[s.teamOf[i]]++
		if teamCounts[s.teamOf[i]] > s.teamCap {
			return false
		}
		cost += s.units[i]
	}
	if cost > s.budget {
		return false
	}
	for p := 0; p < numPositions; p++ {
		if counts[p] < s.minPos[p] || counts[p] > s.maxPos[p] {
			return false
		}
	}
	for _, i := range s.forced {
		if !seen[i] {
			return false
		}
	}
	return true
}

// repair turns a relaxed roster into a legal one: the weakest unfixed players
// of overfull clubs are dropped and the gaps refilled greedily by coefficient.
// It returns nil when the greedy fill gets stuck.
func (s *solver) repair(nd *node, picks []int) []int {
	fixed := make(map[int]bool, len(nd.include))
	for _, i := range nd.include {
		fixed[i] = true
	}
	blocked := make(map[int]bool, len(nd.exclude))
	for _, i := range nd.exclude {
		blocked[i] = true
	}

	kept := make([]int, 0, s.size)
	chosen := make(map[int]bool, s.size)
	inTeam := make([]int, s.teams)
	var counts [numPositions]int
	cost := 0
	add := func(i int) {
		kept = append(kept, i)
		chosen[i] = true
		inTeam[s.teamOf[i]]++
		counts[s.posOf[i]]++
		cost += s.units[i]
	}
	for _, i := range nd.include {
		add(i)
	}
	sorted := append([]int(nil), picks...)
	sort.Ints(sorted)
	for _, i := range sorted {
		if fixed[i] || inTeam[s.teamOf[i]] >= s.teamCap {
			continue
		}
		add(i)
	}

	for len(kept) < s.size {
		next := -1
		for i := range s.vars {
			if chosen[i] || blocked[i] {
				continue
			}
			p := s.posOf[i]
			if inTeam[s.teamOf[i]] >= s.teamCap || counts[p] >= s.maxPos[p] {
				continue
			}
			if s.canComplete(counts, p, len(kept)+1, cost+s.units[i]) {
				next = i
				break
			}
		}
		if next < 0 {
			return nil
		}
		add(next)
	}
	return kept
}

// canComplete reports whether, after one more pick at position p, the
// remaining minimums still fit in the open slots at the cheapest prices.
func (s *solver) canComplete(counts [numPositions]int, p, filled, cost int) bool {
	counts[p]++
	open := s.size - filled
	need, floor := 0, cost
	cheapest := -1
	for q := 0; q < numPositions; q++ {
		if s.minUnit[q] >= 0 && counts[q] < s.maxPos[q] && (cheapest < 0 || s.minUnit[q] < cheapest) {
			cheapest = s.minUnit[q]
		}
		short := s.minPos[q] - counts[q]
		if short <= 0 {
			continue
		}
		if s.minUnit[q] < 0 {
			return false
		}
		need += short
		floor += short * s.minUnit[q]
	}
	if need > open {
		return false
	}
	if open > need {
		if cheapest < 0 {
			return false
		}
		floor += (open - need) * cheapest
	}
	return floor <= s.budget
}

// reduceDominated drops players that can never be needed in an optimal roster:
// enough same-position players are at least as good and no more expensive that
// one of them can always take the slot, even after accounting for teammates
// already in the roster and for teams that may be at their limit. Forced
// players are always kept. The input order is preserved.
func reduceDominated(vars []Variable, rc *RosterConstraints) ([]Variable, int) {
	blockedTeams := (rc.SquadSize - 1) / rc.MaxPlayersPerTeam

	keep := make([]Variable, 0, len(vars))
	pruned := 0
	for i, x := range vars {
		if x.Forced {
			keep = append(keep, x)
			continue
		}
		pc := rc.PositionConstraints[x.Player.Position]
		byTeam := make(map[int]int)
		total := 0
		for j, y := range vars {
			if i == j || y.Player.Position != x.Player.Position || !dominates(y, x) {
				continue
			}
			total++
			if y.Player.TeamID != x.Player.TeamID {
				byTeam[y.Player.TeamID]++
			}
		}
		if total == 0 {
			keep = append(keep, x)
			continue
		}
		counts := make([]int, 0, len(byTeam))
		for _, c := range byTeam {
			counts = append(counts, c)
		}
		sort.Sort(sort.Reverse(sort.IntSlice(counts)))
		blocked := 0
		for k := 0; k < blockedTeams && k < len(counts); k++ {
			blocked += counts[k]
		}
		if total-blocked-(pc.MaxAllowed-1) >= 1 {
			pruned++
			continue
		}
		keep = append(keep, x)
	}
	return keep, pruned
}

// dominates reports whether y is at least as good as x on score and cost,
// with ties broken by variable order so the relation is strict.
func dominates(y, x Variable) bool {
	if y.Coefficient < x.Coefficient || y.Player.Cost > x.Player.Cost {
		return false
	}
	if y.Coefficient > x.Coefficient || y.Player.Cost < x.Player.Cost {
		return true
	}
	return y.Player.ID < x.Player.ID
}
