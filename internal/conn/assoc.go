package conn

import (
	"net"
	"time"

	"github.com/ctmon/cooling-tower/internal/logger"
)

// AssocState is the network association state.
type AssocState int

const (
	Unassociated AssocState = iota
	PortalActive
	Associated
)

func (s AssocState) String() string {
	switch s {
	case PortalActive:
		return "PORTAL"
	case Associated:
		return "ASSOCIATED"
	default:
		return "UNASSOCIATED"
	}
}

// NetLink abstracts the transport below the association FSM. Every method
// must return promptly; association proceeds in the background.
type NetLink interface {
	// Up reports whether the link is currently associated and usable.
	Up() bool
	// Associate begins one association attempt. It must not block; an
	// immediate error means the network is unreachable right now.
	Associate() error
	// StartPortal brings up the local configuration access point.
	// Implementations that cannot host one return an error.
	StartPortal() error
	// StopPortal tears the portal down. Safe to call when not active.
	StopPortal()
}

// AssocConfig holds association FSM tunables. The connect and portal bounds
// are independent.
type AssocConfig struct {
	CheckInterval  time.Duration // how often transitions are evaluated
	ConnectTimeout time.Duration // per-attempt association bound
	PortalTimeout  time.Duration // portal lifetime bound
}

// AssocFSM drives the network association state. It is polled every loop
// iteration but only evaluates transitions on its check cadence; the
// per-attempt and portal timeouts are enforced on every poll. Failures are
// never fatal — the machine retries for the life of the process.
type AssocFSM struct {
	link NetLink
	cfg  AssocConfig
	log  *logger.Logger

	state        AssocState
	lastCheck    time.Time
	attempting   bool
	attemptStart time.Time
	portalStart  time.Time
}

// NewAssocFSM creates an association FSM starting Unassociated.
func NewAssocFSM(link NetLink, cfg AssocConfig, log *logger.Logger) *AssocFSM {
	return &AssocFSM{link: link, cfg: cfg, log: log}
}

// State returns the current association state.
func (f *AssocFSM) State() AssocState {
	return f.state
}

// Service advances the FSM. Call once per loop iteration.
func (f *AssocFSM) Service(now time.Time) AssocState {
	// Elapsed-time bounds are not gated on the check cadence.
	if f.attempting && now.Sub(f.attemptStart) >= f.cfg.ConnectTimeout {
		f.attempting = false
		f.log.Warnw("association attempt timed out", "after", f.cfg.ConnectTimeout)
		f.enterPortal(now)
	}
	if f.state == PortalActive && now.Sub(f.portalStart) >= f.cfg.PortalTimeout {
		f.link.StopPortal()
		f.state = Unassociated
		f.log.Infow("portal lifetime expired, will retry association")
	}

	if !f.lastCheck.IsZero() && now.Sub(f.lastCheck) < f.cfg.CheckInterval {
		return f.state
	}
	f.lastCheck = now

	switch {
	case f.link.Up():
		if f.state == PortalActive {
			f.link.StopPortal()
		}
		if f.state != Associated {
			f.log.Infow("network associated")
		}
		f.state = Associated
		f.attempting = false

	case f.state == Associated:
		f.state = Unassociated
		f.log.Warnw("network association lost")

	case f.state == Unassociated && !f.attempting:
		// Idempotent entry: at most one attempt in flight.
		if err := f.link.Associate(); err != nil {
			f.log.Warnw("association attempt failed to start", "err", err)
			f.enterPortal(now)
		} else {
			f.attempting = true
			f.attemptStart = now
		}
	}
	return f.state
}

func (f *AssocFSM) enterPortal(now time.Time) {
	if f.state == PortalActive {
		return
	}
	if err := f.link.StartPortal(); err != nil {
		// No portal on this platform; stay Unassociated and retry on the
		// next check interval.
		f.log.Debugw("portal unavailable", "err", err)
		return
	}
	f.state = PortalActive
	f.portalStart = now
	f.log.Infow("configuration portal started", "lifetime", f.cfg.PortalTimeout)
}

// InterfaceLink is the Linux NetLink: association state is read from the
// named interface, and the association handshake itself is owned by the OS
// supplicant, so Associate only marks the attempt and Up decides it.
type InterfaceLink struct {
	name string
}

// NewInterfaceLink watches the named network interface (e.g. "wlan0").
func NewInterfaceLink(name string) *InterfaceLink {
	return &InterfaceLink{name: name}
}

// Up reports whether the interface is up and has an address.
func (l *InterfaceLink) Up() bool {
	ifi, err := net.InterfaceByName(l.name)
	if err != nil || ifi.Flags&net.FlagUp == 0 {
		return false
	}
	addrs, err := ifi.Addrs()
	return err == nil && len(addrs) > 0
}

// Associate is a no-op; the supplicant retries on its own and Up observes
// the outcome.
func (l *InterfaceLink) Associate() error { return nil }

// StartPortal is unavailable on a host with an OS supplicant.
func (l *InterfaceLink) StartPortal() error {
	return errPortalUnsupported
}

// StopPortal is a no-op.
func (l *InterfaceLink) StopPortal() {}

var errPortalUnsupported = errNoPortal{}

type errNoPortal struct{}

func (errNoPortal) Error() string { return "conn: configuration portal not supported on this host" }
