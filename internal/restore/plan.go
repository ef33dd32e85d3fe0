package restore

import (
	"github.com/spacemeshos/quicksync/internal/debug"
	"github.com/spacemeshos/quicksync/internal/errors"
)

// ErrTooOld is returned when no published restore point connects to the
// local database's position: the manifest either starts after the database's
// layer or has a coverage gap at it. Retrying cannot help, the database must
// be bootstrapped from a full snapshot instead.
var ErrTooOld = errors.New("no suitable restore point: local database is outside manifest coverage")

// Plan selects the ordered sequence of restore points needed to bring a
// database whose next untrusted layer is layerFrom up to the manifest head.
// jumpBack re-includes up to that many points before the first one actually
// needed, re-verifying recent history defensively.
//
// An empty plan with a nil error means the database is already fully within
// the manifest's applied range and there is nothing to do.
func Plan(layerFrom uint32, points []RestorePoint, jumpBack int) ([]RestorePoint, error) {
	if len(points) == 0 {
		return nil, errors.Wrap(ErrTooOld, "empty manifest")
	}

	for i, p := range points {
		if p.From <= layerFrom && layerFrom < p.To {
			start := i - jumpBack
			if start < 0 {
				start = 0
			}
			debug.Log("layer %d covered by point %d (%v), planning from index %d", layerFrom, i, p, start)
			return points[start:], nil
		}
	}

	// No point covers layerFrom. Either the database is at or beyond the
	// manifest head (fully synced) or it sits below the first point or in a
	// gap, where no diff can attach to it.
	if layerFrom < points[len(points)-1].To {
		return nil, errors.Wrapf(ErrTooOld, "layer %d not covered by any restore point", layerFrom)
	}

	if jumpBack == 0 {
		return nil, nil
	}

	start := len(points) - jumpBack
	if start < 0 {
		start = 0
	}
	return points[start:], nil
}
