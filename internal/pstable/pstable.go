package pstable

import (
	"context"
	"errors"
	"os"
	"sort"
	"strings"

	gopsproc "github.com/shirou/gopsutil/v4/process"
)

// Table enumerates the pids of running collector instances.
// Implementations must return pids in ascending order so that the
// duplicate tie-break is deterministic. It must be safe for concurrent use.
type Table interface {
	// Pids returns the matching process ids, possibly empty.
	Pids(ctx context.Context) ([]int, error)
	// Describe returns a human-readable description of the match rule.
	Describe() string
}

// Matcher scans the OS process table and matches Pattern against the
// process name or its full command line (pgrep -f semantics; the
// collector typically runs as an interpreter so the executable name
// alone is not enough). The calling process is always excluded.
type Matcher struct {
	Pattern string
}

var ErrEmptyPattern = errors.New("pstable: empty match pattern")

func (m Matcher) Pids(ctx context.Context) ([]int, error) {
	if strings.TrimSpace(m.Pattern) == "" {
		return nil, ErrEmptyPattern
	}
	procs, err := gopsproc.ProcessesWithContext(ctx)
	if err != nil {
		return nil, err
	}
	self := os.Getpid()
	var pids []int
	for _, p := range procs {
		pid := int(p.Pid)
		if pid == self {
			continue
		}
		name, _ := p.NameWithContext(ctx)
		if name != "" && strings.Contains(name, m.Pattern) {
			pids = append(pids, pid)
			continue
		}
		cmdline, _ := p.CmdlineWithContext(ctx)
		if cmdline != "" && strings.Contains(cmdline, m.Pattern) {
			pids = append(pids, pid)
		}
	}
	sort.Ints(pids)
	return pids, nil
}

func (m Matcher) Describe() string { return "match:" + m.Pattern }
