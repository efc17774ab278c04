package taxonomy

import (
	"github.com/teranos/capgen/errors"
)

// ErrIncomplete is returned when a tree with an L1 lacking L2 children is
// flattened to the final table.
var ErrIncomplete = errors.New("taxonomy is incomplete: an L1 capability has no L2 capabilities")

// Row is one (L0, L1, L2) triple of a complete taxonomy.
type Row struct {
	Industry            string
	IndustryDescription string
	L0                  string
	L0Description       string
	L1                  string
	L1Description       string
	L2                  string
	L2Description       string
}

// Record returns the 11 CSV fields, level markers included.
func (r Row) Record() []string {
	return []string{
		r.Industry, r.IndustryDescription,
		r.L0, r.L0Description, LevelL0,
		r.L1, r.L1Description, LevelL1,
		r.L2, r.L2Description, LevelL2,
	}
}

// OutlineRow is one (L0, L1) pair, exported before L2 attachment.
type OutlineRow struct {
	Industry            string
	IndustryDescription string
	L0                  string
	L0Description       string
	L1                  string
	L1Description       string
}

// Record returns the 8 outline CSV fields
func (r OutlineRow) Record() []string {
	return []string{
		r.Industry, r.IndustryDescription,
		r.L0, r.L0Description, LevelL0,
		r.L1, r.L1Description, LevelL1,
	}
}

// ToRows flattens a complete tree in document order. L2 entries that are not
// well-formed capabilities are skipped. Incomplete trees are rejected.
func ToRows(ind *Industry) ([]Row, error) {
	if !ind.Complete() {
		return nil, errors.WithStack(ErrIncomplete)
	}

	var rows []Row
	for _, l0 := range ind.L0 {
		for _, l1 := range l0.L1 {
			for _, entry := range l1.L2 {
				l2, ok := entry.Capability()
				if !ok {
					continue
				}
				rows = append(rows, Row{
					Industry:            ind.Name,
					IndustryDescription: ind.Description,
					L0:                  l0.Name,
					L0Description:       l0.Description,
					L1:                  l1.Name,
					L1Description:       l1.Description,
					L2:                  l2.Name,
					L2Description:       l2.Description,
				})
			}
		}
	}
	return rows, nil
}

// OutlineRows yields one row per L0×L1 pair. It does not require L2 data.
func OutlineRows(ind *Industry) []OutlineRow {
	rows := make([]OutlineRow, 0, ind.L1Count())
	for _, l0 := range ind.L0 {
		for _, l1 := range l0.L1 {
			rows = append(rows, OutlineRow{
				Industry:            ind.Name,
				IndustryDescription: ind.Description,
				L0:                  l0.Name,
				L0Description:       l0.Description,
				L1:                  l1.Name,
				L1Description:       l1.Description,
			})
		}
	}
	return rows
}
