package controls

import (
	"sync"

	"findme/map-core/internal/ui"
)

type IconSetter interface {
	SetFullscreenIcon(icon string)
}

type Fullscreen struct {
	icons IconSetter

	mu     sync.Mutex
	active bool
}

func NewFullscreen(icons IconSetter) *Fullscreen {
	return &Fullscreen{icons: icons}
}

// Toggle enters or leaves fullscreen and returns the new state.
func (f *Fullscreen) Toggle() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.active = !f.active
	f.syncIcon()
	return f.active
}

// Exited handles fullscreen being left by other means, such as the
// platform's own exit gesture.
func (f *Fullscreen) Exited() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.active = false
	f.syncIcon()
}

func (f *Fullscreen) Active() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.active
}

func (f *Fullscreen) syncIcon() {
	if f.active {
		f.icons.SetFullscreenIcon(ui.IconCompress)
	} else {
		f.icons.SetFullscreenIcon(ui.IconExpand)
	}
}
