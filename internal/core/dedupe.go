package core

// dedupe.go resolves duplicate groups among valid records.
//
// Records sharing the same values at every identity field form a group.
// The member with the lowest completeness score wins; among equal scores
// the member seen first wins. Scanning keeps the first minimum with a strict
// comparison and never re-sorts, which is what makes the tie-break stable.

import (
	"fmt"
	"strconv"
	"strings"
)

// Resolution is the outcome of duplicate resolution.
type Resolution struct {
	Final           []Record   // One winner per group, in group-first-seen order
	Demoted         []Rejected // Original invalid records, then losers in valid-set order
	Groups          int        // Number of distinct identity keys
	DuplicateGroups int        // Groups with more than one member
}

// DuplicateResolver selects one winner per identity group.
type DuplicateResolver struct {
	grammar  *Grammar
	identity []string
	indexes  []int
}

// NewDuplicateResolver creates a resolver keyed on identity. Every identity
// field must belong to the grammar's schema.
func NewDuplicateResolver(g *Grammar, identity []string) (*DuplicateResolver, error) {
	if len(identity) == 0 {
		return nil, &IdentityKeyError{Reason: "no identity fields configured"}
	}

	r := &DuplicateResolver{
		grammar:  g,
		identity: append([]string(nil), identity...),
		indexes:  make([]int, len(identity)),
	}
	for i, f := range identity {
		idx, ok := g.Schema().Index(f)
		if !ok {
			return nil, &IdentityKeyError{Field: f, Reason: "not a schema field"}
		}
		r.indexes[i] = idx
	}
	return r, nil
}

type group struct {
	key     string
	members []int // positions in the valid set
	winner  int   // index into members
	best    int   // winner's score
}

// Resolve groups valid by identity key and picks the winners. The invalid
// records from partitioning are carried through to the head of Demoted.
// A record not aligned to the schema is a defect and aborts resolution.
func (r *DuplicateResolver) Resolve(valid []Record, invalid []Rejected) (*Resolution, error) {
	width := r.grammar.Schema().Len()

	groups := make(map[string]*group)
	var order []*group

	for i, rec := range valid {
		if len(rec.Values) != width {
			return nil, &IdentityKeyError{
				Reason: fmt.Sprintf("record %d from %s has %d values, schema has %d", i, rec.Source, len(rec.Values), width),
			}
		}

		key := r.key(rec)
		score := r.grammar.Score(rec)

		g, ok := groups[key]
		if !ok {
			g = &group{key: key, best: score}
			groups[key] = g
			order = append(order, g)
		}
		g.members = append(g.members, i)
		if score < g.best {
			g.best = score
			g.winner = len(g.members) - 1
		}
	}

	res := &Resolution{
		Final:   make([]Record, 0, len(order)),
		Demoted: make([]Rejected, 0, len(invalid)),
		Groups:  len(order),
	}
	res.Demoted = append(res.Demoted, invalid...)

	winners := make(map[int]*group, len(order))
	for _, g := range order {
		res.Final = append(res.Final, valid[g.members[g.winner]])
		winners[g.members[g.winner]] = g
		if len(g.members) > 1 {
			res.DuplicateGroups++
		}
	}

	for i, rec := range valid {
		if _, won := winners[i]; won {
			continue
		}
		g := groups[r.key(rec)]
		res.Demoted = append(res.Demoted, Rejected{
			Record:  rec,
			Reasons: []string{r.reason(rec, g.best)},
		})
	}

	return res, nil
}

// key encodes the identity values as length-prefixed parts, so distinct
// tuples never share a key whatever bytes the values contain.
func (r *DuplicateResolver) key(rec Record) string {
	var b strings.Builder
	for _, idx := range r.indexes {
		v := rec.Values[idx]
		b.WriteString(strconv.Itoa(len(v)))
		b.WriteByte(':')
		b.WriteString(v)
	}
	return b.String()
}

func (r *DuplicateResolver) reason(rec Record, winnerScore int) string {
	pairs := make([]string, len(r.identity))
	for i, f := range r.identity {
		pairs[i] = f + "=" + rec.Values[r.indexes[i]]
	}
	return fmt.Sprintf("duplicate of (%s), lower completeness (score %d, winner %d)",
		strings.Join(pairs, ", "), r.grammar.Score(rec), winnerScore)
}
