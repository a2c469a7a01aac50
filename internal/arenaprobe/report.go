package arenaprobe

import (
	"fmt"
	"strings"

	"github.com/shadowheap/monitor/internal/diag"
	"github.com/shadowheap/monitor/internal/layout"
)

// Probe bundles everything resolved once at facade Init. ArenaValid and
// TcacheValid are false when the corresponding probe failed — per spec
// step 1 and the arena probe's closing note, that leaves the record
// invalid and the dependent check modes disabled rather than aborting
// startup.
type Probe struct {
	Version     GlibcVersion
	Arena       layout.Arena
	ArenaValid  bool
	Tcache      TcacheInfo
	TcacheValid bool
}

// Run performs the full resolution sequence: glibc version, main arena,
// tcache struct. The probe fails closed: a failed sub-probe leaves its
// record invalid rather than returning an error, so the facade can still
// construct and run with whatever check modes remain available.
func Run() (Probe, error) {
	ver := DetectGlibcVersion()
	p := Probe{Version: ver}

	arena, err := LeakMainArena(ver)
	if err != nil {
		diag.Warn("arenaprobe: main arena probe failed, leak-dependent checks will be disabled: %s", err)
	} else {
		p.Arena = arena
		p.ArenaValid = true
	}

	tc, err := LeakTcache(ver)
	if err != nil {
		diag.Warn("arenaprobe: tcache probe failed, tcache checks will be disabled: %s", err)
	} else {
		p.Tcache = tc
		p.TcacheValid = true
	}

	return p, nil
}

// Report renders a one-time startup dump of everything this probe
// resolved, grounded on leak.h's print_arenainfo — gated by the caller at
// diag.Info, never printed in the default quiet mode.
func (p Probe) Report() string {
	var b strings.Builder
	fmt.Fprintf(&b, "glibc %d.%d (tcache key field: %v)\n", p.Version.Major, p.Version.Minor, p.Version.AtLeast229())
	if p.ArenaValid {
		fmt.Fprintf(&b, "main arena:     %#x\n", p.Arena.Addr)
		fmt.Fprintf(&b, "  top:          %#x\n", p.Arena.Top())
		fmt.Fprintf(&b, "  last_remain:  %#x\n", p.Arena.LastRemainder())
		fmt.Fprintf(&b, "  unsorted fd:  %#x\n", p.Arena.BinFd(1))
		fmt.Fprintf(&b, "  unsorted bk:  %#x\n", p.Arena.BinBk(1))
	} else {
		fmt.Fprintf(&b, "main arena:     unresolved, running in degraded no-leak mode\n")
	}
	if p.TcacheValid {
		fmt.Fprintf(&b, "tcache struct:  %#x (patched-mallopt: %v, counts width: %d bytes)\n",
			p.Tcache.Addr, p.Tcache.PatchedMallopt, p.Tcache.Layout.CountsWidth)
	} else {
		fmt.Fprintf(&b, "tcache struct:  unresolved, tcache checks disabled\n")
	}
	return b.String()
}
