package advisor

// Generation hands out request tokens so that a reply can be checked against the
// most recent request before it is applied. The zero value is ready to use.
type Generation struct {
	n uint64
}

// Next starts a new request and returns its token
func (g *Generation) Next() uint64 {
	g.n++
	return g.n
}

// IsCurrent reports whether tok belongs to the latest request
func (g *Generation) IsCurrent(tok uint64) bool {
	return tok != 0 && tok == g.n
}

// Invalidate makes every outstanding token stale
func (g *Generation) Invalidate() {
	g.n++
}
