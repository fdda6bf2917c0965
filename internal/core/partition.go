package core

// Partitioner splits a dataset into valid and invalid records, preserving
// input order within each set. It holds no state between calls, so
// partitioning the same input twice yields the same output.
type Partitioner struct {
	validator *RowValidator
}

// NewPartitioner creates a partitioner over g.
func NewPartitioner(g *Grammar) *Partitioner {
	return &Partitioner{validator: NewRowValidator(g)}
}

// Partition routes every record through the row validator.
func (p *Partitioner) Partition(records []Record) (valid []Record, invalid []Rejected) {
	valid = make([]Record, 0, len(records))
	for _, r := range records {
		verdict := p.validator.Validate(r)
		if verdict.Valid {
			valid = append(valid, r)
			continue
		}
		invalid = append(invalid, Rejected{Record: r, Reasons: verdict.Reasons()})
	}
	return valid, invalid
}
