package domain

// ChangeSet collects the mutations of a single operation so the store can
// apply them in one atomic commit.
type ChangeSet struct {
	CreatedSessions []*Session
	UpdatedSessions []*Session
	DeletedSessions []*Session
	UpdatedUsers    []*User
}

func (c *ChangeSet) CreateSession(s *Session) { c.CreatedSessions = append(c.CreatedSessions, s) }

func (c *ChangeSet) UpdateSession(s *Session) { c.UpdatedSessions = append(c.UpdatedSessions, s) }

func (c *ChangeSet) DeleteSession(s *Session) { c.DeletedSessions = append(c.DeletedSessions, s) }

func (c *ChangeSet) UpdateUser(u *User) { c.UpdatedUsers = append(c.UpdatedUsers, u) }

// Empty reports whether there is nothing to commit.
func (c *ChangeSet) Empty() bool {
	return len(c.CreatedSessions) == 0 &&
		len(c.UpdatedSessions) == 0 &&
		len(c.DeletedSessions) == 0 &&
		len(c.UpdatedUsers) == 0
}
