package dialog

// Action is one labeled menu button. Token round-trips through the transport
// and comes back as the next event (see ParseAction).
type Action struct {
	Label string
	Token string
}

// Link is an external URL button.
type Link struct {
	Label string
	URL   string
}

// Menu is the abstract outbound menu description. The rendering adapter
// turns it into platform-specific markup; the core never formats HTML.
type Menu struct {
	Body    string
	Actions []Action
	Links   []Link
}
