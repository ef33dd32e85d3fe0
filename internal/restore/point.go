// Package restore implements the incremental restore planner and executor:
// it selects the hash-chain-verified sequence of published diffs a local
// database needs and applies them transactionally, one fresh connection per
// diff.
package restore

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spacemeshos/quicksync/internal/errors"
)

// hashPrefixLen is the number of hex characters used for chain-continuity
// checks, the published hash must carry at least this many.
const hashPrefixLen = 4

// A RestorePoint is one published diff covering the half-open layer range
// [From, To).
type RestorePoint struct {
	From uint32
	To   uint32
	Hash string
}

func (p RestorePoint) String() string {
	return fmt.Sprintf("%d,%d,%s", p.From, p.To, p.Hash)
}

// ParsePoint parses a single manifest line of the form "{from},{to},{hash}".
func ParsePoint(line string) (RestorePoint, error) {
	parts := strings.Split(line, ",")
	if len(parts) != 3 {
		return RestorePoint{}, errors.Errorf("malformed restore point %q", line)
	}

	from, err := strconv.ParseUint(strings.TrimSpace(parts[0]), 10, 32)
	if err != nil {
		return RestorePoint{}, errors.Wrapf(err, "malformed restore point %q", line)
	}
	to, err := strconv.ParseUint(strings.TrimSpace(parts[1]), 10, 32)
	if err != nil {
		return RestorePoint{}, errors.Wrapf(err, "malformed restore point %q", line)
	}

	hash := strings.TrimSpace(parts[2])
	if to <= from || len(hash) < hashPrefixLen {
		return RestorePoint{}, errors.Errorf("malformed restore point %q", line)
	}

	return RestorePoint{From: uint32(from), To: uint32(to), Hash: hash}, nil
}

// ParseManifest parses the full metadata manifest, one restore point per
// line. Blank lines and surrounding whitespace are tolerated; anything else
// that does not parse is a fatal manifest error, not recovered from.
func ParseManifest(text string) ([]RestorePoint, error) {
	var points []RestorePoint

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		p, err := ParsePoint(line)
		if err != nil {
			return nil, err
		}
		points = append(points, p)
	}

	return points, nil
}
