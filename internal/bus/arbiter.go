// Package bus arbitrates a peripheral bus shared by two drivers that
// run in different task contexts (the legacy barometric sensor and the
// dataflash peripheral).
package bus

// Arbiter hands out the bus-ownership token. Acquisition never blocks:
// a caller that loses the race simply skips its bus work for that tick,
// so a real-time deadline can never be missed due to contention.
type Arbiter struct {
	permit chan struct{}
}

func NewArbiter() *Arbiter {
	a := &Arbiter{permit: make(chan struct{}, 1)}
	a.permit <- struct{}{}
	return a
}

// Token is temporary ownership of the bus. The zero Token is inert.
type Token struct {
	a *Arbiter
}

// TryAcquire attempts a zero-wait acquire of the bus token. The second
// return value reports whether ownership was granted.
func (a *Arbiter) TryAcquire() (Token, bool) {
	select {
	case <-a.permit:
		return Token{a: a}, true
	default:
		return Token{}, false
	}
}

// Release returns the token. Releasing a zero Token is a no-op.
func (t Token) Release() {
	if t.a != nil {
		t.a.permit <- struct{}{}
	}
}
