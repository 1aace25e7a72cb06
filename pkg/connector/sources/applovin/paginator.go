package applovin

// paginator owns pagination state for one window's extraction. It starts
// Active with an empty cursor (first page) and reaches Finished when the
// server stops returning a next-page token. Once Finished no further request
// may be sent for the window.
type paginator struct {
	cursor   string
	finished bool
}

func newPaginator() *paginator {
	return &paginator{}
}

// Current returns the cursor to send with the next request. Empty means
// first page.
func (p *paginator) Current() string {
	return p.cursor
}

// Advance consumes the next-page token from a response. An empty token
// terminates pagination.
func (p *paginator) Advance(token string) {
	if token == "" {
		p.finished = true
		return
	}
	p.cursor = token
}

// Finish forces the terminal state, used for defensive termination when a
// page carries a token but no records.
func (p *paginator) Finish() {
	p.finished = true
}

// Finished reports whether pagination has terminated.
func (p *paginator) Finished() bool {
	return p.finished
}
