package wtlock

import (
	"os"

	"go.wsforge.dev/core/internal/sigstack"
)

// signals is the process-wide stack used by every [Token.ReleaseOnSignal]
// call. A stack (rather than a single os/signal registration) matters
// here because a host process embedding this core may have several
// worktrees, and therefore several tokens, with signal guards active
// at once; each guard must be able to come and go without clobbering
// the others' registration.
var signals sigstack.Stack

// ReleaseOnSignal releases t if the process receives one of sigs (it
// defaults to os.Interrupt) while the token is still held, covering
// the case §5 calls out explicitly: a caller-imposed timeout or an
// operator's Ctrl-C can abandon a mutation mid-flight, and release of
// the write token must still be guaranteed so the next operation on
// this worktree isn't left waiting on a lock nobody will ever free.
//
// The returned stop func must be called once the caller's own
// Release path has run (typically via defer, immediately after
// ReleaseOnSignal); it deregisters the handler without itself
// releasing the token.
func (t *Token) ReleaseOnSignal(sigs ...os.Signal) (stop func()) {
	if len(sigs) == 0 {
		sigs = []os.Signal{os.Interrupt}
	}

	ch := make(chan os.Signal, 1)
	signals.Notify(ch, sigs...)

	done := make(chan struct{})
	go func() {
		select {
		case <-ch:
			_ = t.Release()
		case <-done:
		}
	}()

	return func() {
		close(done)
		signals.Stop(ch)
	}
}
