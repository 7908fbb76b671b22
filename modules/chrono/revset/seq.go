package revset

import "github.com/chronoscope/chrono/modules/chrono/ids"

// Seq is a lazily-pulled stream of commit ids in the deterministic total
// order spec section 4.5 requires (reverse topo, then committer time
// descending, then commit id descending). Set combinators below merge
// two Seqs without materialising either one beyond what the caller
// actually consumes, satisfying the "x & y must not materialise x or y"
// laziness requirement when the result is only read as an iterator
// prefix.
type Seq interface {
	// Next returns the next id in order, or ok=false at exhaustion.
	Next() (id ids.Hash, ok bool, err error)
}

// ToSlice drains seq fully. Functions that are inherently whole-set
// operations (heads, roots, mutable, author, ...) have no choice but to
// do this; the binary operators (|, &, ~) never do unless their caller
// asks for the full result too.
func ToSlice(seq Seq) ([]ids.Hash, error) {
	var out []ids.Hash
	for {
		id, ok, err := seq.Next()
		if err != nil {
			return nil, err
		}
		if !ok {
			return out, nil
		}
		out = append(out, id)
	}
}

// SliceSeq wraps a pre-ordered slice as a Seq.
type SliceSeq struct {
	items []ids.Hash
	i     int
}

// NewSliceSeq wraps items, which must already be in the revset total
// order, as a Seq.
func NewSliceSeq(items []ids.Hash) *SliceSeq { return &SliceSeq{items: items} }

func (s *SliceSeq) Next() (ids.Hash, bool, error) {
	if s.i >= len(s.items) {
		return ids.Zero, false, nil
	}
	v := s.items[s.i]
	s.i++
	return v, true, nil
}

// Comparator orders two commit ids the same way the underlying index's
// total order does: negative if a sorts before b, positive if after,
// zero if equal.
type Comparator func(a, b ids.Hash) (int, error)

type peeker struct {
	seq     Seq
	cur     ids.Hash
	has     bool
	err     error
	started bool
}

func newPeeker(s Seq) *peeker { return &peeker{seq: s} }

func (p *peeker) peek() (ids.Hash, bool, error) {
	if !p.started {
		p.cur, p.has, p.err = p.seq.Next()
		p.started = true
	}
	return p.cur, p.has, p.err
}

func (p *peeker) advance() { p.cur, p.has, p.err = p.seq.Next() }

type unionSeq struct {
	a, b *peeker
	cmp  Comparator
}

// Union lazily merges a and b, in order, deduplicating equal elements.
func Union(a, b Seq, cmp Comparator) Seq {
	return &unionSeq{a: newPeeker(a), b: newPeeker(b), cmp: cmp}
}

func (u *unionSeq) Next() (ids.Hash, bool, error) {
	av, aok, aerr := u.a.peek()
	if aerr != nil {
		return ids.Zero, false, aerr
	}
	bv, bok, berr := u.b.peek()
	if berr != nil {
		return ids.Zero, false, berr
	}
	switch {
	case !aok && !bok:
		return ids.Zero, false, nil
	case !bok:
		u.a.advance()
		return av, true, nil
	case !aok:
		u.b.advance()
		return bv, true, nil
	default:
		c, err := u.cmp(av, bv)
		if err != nil {
			return ids.Zero, false, err
		}
		switch {
		case c < 0:
			u.a.advance()
			return av, true, nil
		case c > 0:
			u.b.advance()
			return bv, true, nil
		default:
			u.a.advance()
			u.b.advance()
			return av, true, nil
		}
	}
}

type intersectSeq struct {
	a, b *peeker
	cmp  Comparator
}

// Intersect lazily yields elements present in both a and b.
func Intersect(a, b Seq, cmp Comparator) Seq {
	return &intersectSeq{a: newPeeker(a), b: newPeeker(b), cmp: cmp}
}

func (x *intersectSeq) Next() (ids.Hash, bool, error) {
	for {
		av, aok, aerr := x.a.peek()
		if aerr != nil {
			return ids.Zero, false, aerr
		}
		if !aok {
			return ids.Zero, false, nil
		}
		bv, bok, berr := x.b.peek()
		if berr != nil {
			return ids.Zero, false, berr
		}
		if !bok {
			return ids.Zero, false, nil
		}
		c, err := x.cmp(av, bv)
		if err != nil {
			return ids.Zero, false, err
		}
		switch {
		case c == 0:
			x.a.advance()
			x.b.advance()
			return av, true, nil
		case c < 0:
			x.a.advance()
		default:
			x.b.advance()
		}
	}
}

type differenceSeq struct {
	a, b *peeker
	cmp  Comparator
}

// Difference lazily yields elements of a that are not in b.
func Difference(a, b Seq, cmp Comparator) Seq {
	return &differenceSeq{a: newPeeker(a), b: newPeeker(b), cmp: cmp}
}

func (d *differenceSeq) Next() (ids.Hash, bool, error) {
	for {
		av, aok, aerr := d.a.peek()
		if aerr != nil {
			return ids.Zero, false, aerr
		}
		if !aok {
			return ids.Zero, false, nil
		}
		bv, bok, berr := d.b.peek()
		if berr != nil {
			return ids.Zero, false, berr
		}
		if !bok {
			d.a.advance()
			return av, true, nil
		}
		c, err := d.cmp(av, bv)
		if err != nil {
			return ids.Zero, false, err
		}
		switch {
		case c == 0:
			d.a.advance()
			d.b.advance()
		case c < 0:
			d.a.advance()
			return av, true, nil
		default:
			d.b.advance()
		}
	}
}
