package peertalk

// StaticSession is a Session with a fixed user id and token, for tools and
// tests. Real embeddings wire the application's session store instead.
type StaticSession struct {
	ID          string
	AccessToken string
}

func (s StaticSession) UserID() string {
	return s.ID
}

func (s StaticSession) Token() (string, error) {
	return s.AccessToken, nil
}
