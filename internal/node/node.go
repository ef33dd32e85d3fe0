// Package node interrogates the locally installed go-spacemesh node: its
// version (which selects the snapshot to download) and the network's layer
// clock.
package node

import (
	"os/exec"
	"strings"
	"time"

	"github.com/spacemeshos/quicksync/internal/errors"
)

// Version runs the node binary at path with the "version" argument and
// returns the reported version, trimmed of whitespace and of any "+"-suffixed
// build metadata.
func Version(path string) (string, error) {
	out, err := exec.Command(path, "version").Output()
	if err != nil {
		return "", errors.Wrapf(err, "run %v version", path)
	}

	return TrimVersion(strings.TrimSpace(string(out))), nil
}

// TrimVersion strips build metadata ("1.2.3+abcdef" -> "1.2.3").
func TrimVersion(version string) string {
	if i := strings.IndexByte(version, '+'); i >= 0 {
		return version[:i]
	}
	return version
}

// CurrentLayer returns the layer the network is at according to the wall
// clock.
func CurrentLayer(genesis time.Time, layerDuration time.Duration, now time.Time) int64 {
	if layerDuration <= 0 {
		return 0
	}
	return int64(now.Sub(genesis) / layerDuration)
}
