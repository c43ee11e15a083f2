package input

import (
	"time"

	"github.com/kdevbox/pocketcore/pocket/input/action"
	"github.com/kdevbox/pocketcore/pocket/input/event"
)

// InputEvent is a platform-translated input event, ready for debouncing and
// dispatch through a Manager.
type InputEvent struct {
	Action action.Action
	Type   event.Type
}

// Handler manages input processing with debouncing for UI actions
type Handler struct {
	lastActionTime map[action.Action]time.Time
	debounceDelay  time.Duration
}

func NewHandler() *Handler {
	return &Handler{
		lastActionTime: make(map[action.Action]time.Time),
		debounceDelay:  300 * time.Millisecond,
	}
}

// ProcessEvent processes an input event, applying debouncing for Press/Release events
// Returns true if the event should be handled, false if it was debounced
func (h *Handler) ProcessEvent(evt InputEvent) bool {
	if evt.Type == event.Press || evt.Type == event.Release {
		now := time.Now()
		if lastTime, exists := h.lastActionTime[evt.Action]; exists {
			if now.Sub(lastTime) < h.debounceDelay {
				return false
			}
		}
		h.lastActionTime[evt.Action] = now
	}

	return true
}
