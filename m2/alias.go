package m2

import (
	"github.com/pkg/errors"
)

var ErrUnresolvedAlias = errors.New("unresolved alias")

// ResolveAlias follows alias_next from seq to the sequence that owns the keys.
// The alias flag wins over the primary flag.
func (m *Model) ResolveAlias(seq int) (int, error) {
	for hop := 0; hop <= MAX_ALIAS_HOPS; hop++ {
		if seq < 0 || seq >= len(m.Sequences) {
			return -1, errors.Wrapf(ErrUnresolvedAlias, "sequence %d out of %d", seq, len(m.Sequences))
		}
		s := &m.Sequences[seq]
		if !s.IsAlias() {
			return seq, nil
		}
		seq = int(s.AliasNext)
	}
	return -1, errors.Wrapf(ErrUnresolvedAlias, "more than %d hops", MAX_ALIAS_HOPS)
}

// VariationChain lists the sequences reachable through variation_next from seq,
// seq included. It stops at -1 and reports loops and broken links.
func (m *Model) VariationChain(seq int) ([]int, error) {
	var chain []int
	seen := make(map[int]bool)
	for seq != -1 {
		if seq < 0 || seq >= len(m.Sequences) {
			return chain, errors.Errorf("variation link to %d of %d", seq, len(m.Sequences))
		}
		if seen[seq] {
			return chain, errors.Errorf("variation loop at sequence %d", seq)
		}
		seen[seq] = true
		chain = append(chain, seq)
		seq = int(m.Sequences[seq].VariationNext)
	}
	return chain, nil
}
