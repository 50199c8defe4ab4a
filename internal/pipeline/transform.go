package pipeline

import (
	"fmt"

	"github.com/couchcryptid/covid-severity-etl/internal/domain"
)

// transform turns a fetched dataset into a snapshot for day.
func transform(day domain.Day, ds domain.Dataset) (domain.Snapshot, error) {
	snap, err := domain.NewSnapshot(day, ds)
	if err != nil {
		return domain.Snapshot{}, fmt.Errorf("build snapshot for %s: %w", day, err)
	}
	return snap, nil
}

// nonComputable counts derived cells with no usable population.
func nonComputable(snap domain.Snapshot) int {
	n := 0
	for _, row := range snap.Rows {
		for _, m := range row.Metrics {
			if !m.Computable {
				n++
			}
		}
	}
	return n
}
