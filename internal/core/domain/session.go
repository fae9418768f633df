package domain

// A Session is the server side state of one storefront visitor.
//
// MaxScroll is the deepest scroll percent reported for ScrollPage.
type Session struct {
	ID         string
	UserID     string
	Cart       Cart
	MaxScroll  int
	ScrollPage string
}

// Clone returns a copy of s safe to hand out of the session store.
func (s Session) Clone() Session {
	s.Cart = s.Cart.Clone()
	return s
}

// PageContext describes the page a visitor acted on.
type PageContext struct {
	URL   string
	Title string
}

// A Visitor identifies who performs a storefront operation and where.
type Visitor struct {
	SessionID string
	Page      PageContext
}

// A SessionActivity is the number of analytics events seen for a session.
type SessionActivity struct {
	SessionID string
	Events    int64
}

// ScrollDepth buckets a scroll percentage into the reported depth label.
//
// Percentages below 25 are not reported.
func ScrollDepth(percent int) (string, bool) {
	switch {
	case percent >= 75:
		return "75%", true
	case percent >= 50:
		return "50%", true
	case percent >= 25:
		return "25%", true
	}
	return "", false
}
