package node_test

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/spacemeshos/quicksync/internal/node"
	rtest "github.com/spacemeshos/quicksync/internal/test"
)

func TestTrimVersion(t *testing.T) {
	rtest.Equals(t, "1.5.2", node.TrimVersion("1.5.2+a1b2c3d"))
	rtest.Equals(t, "1.5.2", node.TrimVersion("1.5.2"))
	rtest.Equals(t, "", node.TrimVersion(""))
}

func TestVersion(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell script fake not runnable on windows")
	}

	fake := filepath.Join(t.TempDir(), "go-spacemesh")
	script := "#!/bin/sh\necho '1.5.2+a1b2c3d'\n"
	rtest.OK(t, os.WriteFile(fake, []byte(script), 0700))

	version, err := node.Version(fake)
	rtest.OK(t, err)
	rtest.Equals(t, "1.5.2", version)
}

func TestVersionMissingBinary(t *testing.T) {
	_, err := node.Version(filepath.Join(t.TempDir(), "does-not-exist"))
	rtest.Assert(t, err != nil, "expected error for missing binary")
}

func TestCurrentLayer(t *testing.T) {
	genesis := time.Date(2023, 7, 14, 8, 0, 0, 0, time.UTC)

	rtest.Equals(t, int64(0), node.CurrentLayer(genesis, 5*time.Minute, genesis))
	rtest.Equals(t, int64(1), node.CurrentLayer(genesis, 5*time.Minute, genesis.Add(5*time.Minute)))
	rtest.Equals(t, int64(288), node.CurrentLayer(genesis, 5*time.Minute, genesis.Add(24*time.Hour)))
	rtest.Equals(t, int64(0), node.CurrentLayer(genesis, 0, genesis.Add(time.Hour)))
}
