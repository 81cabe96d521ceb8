package dashboard

import "time"

// Session is the authenticated state of one dashboard user. It is created
// at login and dropped at logout or expiry; the token lives only here.
type Session struct {
	Username  string
	CreatedAt time.Time

	token     string
	activeID  int64
	hasActive bool
}

func newSession(username, token string) *Session {
	return &Session{
		Username:  username,
		CreatedAt: time.Now(),
		token:     token,
	}
}

// ActiveDataset returns the id of the dataset on display, if any.
func (s *Session) ActiveDataset() (int64, bool) {
	return s.activeID, s.hasActive
}

func (s *Session) setActive(id int64) {
	s.activeID = id
	s.hasActive = true
}
