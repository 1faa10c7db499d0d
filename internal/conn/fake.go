package conn

import "errors"

// FakeLink is a scripted NetLink for tests.
type FakeLink struct {
	// Link state returned by Up. Mutate between Service calls.
	LinkUp bool

	// AssociateErr, if set, makes Associate fail immediately.
	AssociateErr error
	// PortalErr, if set, makes StartPortal fail.
	PortalErr error

	AssociateCalls int
	PortalActive   bool
	PortalStarts   int
	PortalStops    int
}

// NewFakeLink creates a FakeLink that starts down.
func NewFakeLink() *FakeLink {
	return &FakeLink{}
}

func (l *FakeLink) Up() bool { return l.LinkUp }

func (l *FakeLink) Associate() error {
	l.AssociateCalls++
	return l.AssociateErr
}

func (l *FakeLink) StartPortal() error {
	if l.PortalErr != nil {
		return l.PortalErr
	}
	l.PortalActive = true
	l.PortalStarts++
	return nil
}

func (l *FakeLink) StopPortal() {
	if l.PortalActive {
		l.PortalStops++
	}
	l.PortalActive = false
}

// ErrLinkUnreachable is a ready-made Associate error for tests.
var ErrLinkUnreachable = errors.New("conn: link unreachable")
