package client

import (
	"sync"

	"github.com/anjiri1684/agency_messaging/models"
)

// BottomTolerance is how close, in pixels, the viewport must be to the end
// of the list to count as being at the bottom.
const BottomTolerance = 50.0

type ScrollMode int

const (
	AtBottom ScrollMode = iota
	ScrolledUp
)

func (m ScrollMode) String() string {
	if m == ScrolledUp {
		return "scrolled_up"
	}
	return "at_bottom"
}

type ScrollAction int

const (
	NoScroll ScrollAction = iota
	ScrollInstant
	ScrollSmooth
)

// ScrollState is everything the controller remembers between events.
type ScrollState struct {
	Mode            ScrollMode
	UnreadSinceLeft int
	PreviousCount   int
}

// Effect is what the view should do after an event. Badge is the count on
// the jump-to-bottom button; zero hides it.
type Effect struct {
	Scroll ScrollAction
	Badge  int
}

type Viewport struct {
	ScrollTop    float64
	ClientHeight float64
	ScrollHeight float64
}

func (v Viewport) AtBottom() bool {
	return v.ScrollHeight-(v.ScrollTop+v.ClientHeight) < BottomTolerance
}

// Mount starts at the bottom of the initial list without animation.
func Mount(messages []models.Message) (ScrollState, Effect) {
	state := ScrollState{Mode: AtBottom, PreviousCount: len(messages)}
	if len(messages) == 0 {
		return state, Effect{}
	}
	return state, Effect{Scroll: ScrollInstant}
}

// OnScroll follows the user. Returning to the bottom clears the counter.
func OnScroll(state ScrollState, v Viewport) (ScrollState, Effect) {
	if v.AtBottom() {
		state.Mode = AtBottom
		state.UnreadSinceLeft = 0
		return state, Effect{}
	}
	state.Mode = ScrolledUp
	return state, Effect{Badge: state.UnreadSinceLeft}
}

// OnMessages reacts to a new list. Only growth matters: the viewer's own
// message always brings them to the bottom, someone else's only when they
// are already there. Otherwise the new messages are counted.
func OnMessages(state ScrollState, messages []models.Message, viewerID string) (ScrollState, Effect) {
	added := len(messages) - state.PreviousCount
	if added <= 0 {
		state.PreviousCount = len(messages)
		return state, Effect{Badge: badge(state)}
	}
	state.PreviousCount = len(messages)

	newest := messages[len(messages)-1]
	switch {
	case newest.SenderID == viewerID:
		state.Mode = AtBottom
		state.UnreadSinceLeft = 0
		return state, Effect{Scroll: ScrollSmooth}
	case state.Mode == AtBottom:
		return state, Effect{Scroll: ScrollSmooth}
	default:
		state.UnreadSinceLeft += added
		return state, Effect{Badge: state.UnreadSinceLeft}
	}
}

// ScrollToBottom is the jump-to-bottom button.
func ScrollToBottom(state ScrollState) (ScrollState, Effect) {
	state.Mode = AtBottom
	state.UnreadSinceLeft = 0
	return state, Effect{Scroll: ScrollSmooth}
}

func badge(state ScrollState) int {
	if state.Mode == ScrolledUp {
		return state.UnreadSinceLeft
	}
	return 0
}

// ScrollController holds ScrollState for one open conversation and hands
// every resulting Effect to apply. It can be passed to NewSynchronizer as
// the listener.
type ScrollController struct {
	viewerID string
	apply    func(Effect)

	mu    sync.Mutex
	state ScrollState
}

func NewScrollController(viewerID string, apply func(Effect)) *ScrollController {
	if apply == nil {
		apply = func(Effect) {}
	}
	return &ScrollController{viewerID: viewerID, apply: apply}
}

func (c *ScrollController) Mount(messages []models.Message) {
	c.update(func(ScrollState) (ScrollState, Effect) { return Mount(messages) })
}

func (c *ScrollController) Scrolled(v Viewport) {
	c.update(func(s ScrollState) (ScrollState, Effect) { return OnScroll(s, v) })
}

func (c *ScrollController) ScrollToBottom() {
	c.update(ScrollToBottom)
}

func (c *ScrollController) MessagesChanged(_ string, messages []models.Message) {
	c.update(func(s ScrollState) (ScrollState, Effect) { return OnMessages(s, messages, c.viewerID) })
}

func (c *ScrollController) State() ScrollState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *ScrollController) update(step func(ScrollState) (ScrollState, Effect)) {
	c.mu.Lock()
	next, effect := step(c.state)
	c.state = next
	c.mu.Unlock()
	c.apply(effect)
}
