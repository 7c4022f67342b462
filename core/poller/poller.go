package poller

// Interest selects which readiness conditions a registration reports.
type Interest uint32

const (
	Read Interest = 1 << iota
	Write
)

// Ready describes one file descriptor returned from a wait round.
// Hangup and error conditions are reported as readable so that the
// owner's next read observes them.
type Ready struct {
	FD       int
	Readable bool
	Writable bool
}

// Poller is the I/O readiness multiplexing interface. Registrations are
// level-triggered: an fd keeps being reported until the condition is
// drained or its interest changes.
type Poller interface {
	Add(fd int, interest Interest) error
	Modify(fd int, interest Interest) error
	Remove(fd int) error
	Wait(timeoutMillis int) ([]Ready, error)
	Close() error
}
