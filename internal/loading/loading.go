// Package loading tracks the loading indicator shared by concurrent fetches.
//
// The indicator stays visible until every request that showed it has
// finished, so one call completing cannot hide it under a sibling.
package loading

import "sync"

type Indicator struct {
	mu       sync.Mutex
	inFlight int
	onChange func(visible bool)
}

func New(onChange func(visible bool)) *Indicator {
	return &Indicator{onChange: onChange}
}

// Begin shows the indicator and returns the matching done func. Calling done
// more than once has no further effect.
func (i *Indicator) Begin() (done func()) {
	if i == nil {
		return func() {}
	}

	i.mu.Lock()
	i.inFlight++
	if i.inFlight == 1 {
		i.notify(true)
	}
	i.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(i.end)
	}
}

func (i *Indicator) end() {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.inFlight == 0 {
		return
	}
	i.inFlight--
	if i.inFlight == 0 {
		i.notify(false)
	}
}

// notify runs with i.mu held so callbacks arrive in the order the count
// changed. onChange must not call back into the indicator.
func (i *Indicator) notify(visible bool) {
	if i.onChange != nil {
		i.onChange(visible)
	}
}

func (i *Indicator) Visible() bool {
	if i == nil {
		return false
	}
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.inFlight > 0
}

func (i *Indicator) InFlight() int {
	if i == nil {
		return 0
	}
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.inFlight
}
