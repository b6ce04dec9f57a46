package session

import (
	"net/http"

	"github.com/sh03m2a5h/filesession-go/internal/identity"
)

// Session binds a Store to one request/response pair
type Session struct {
	store *Store
	w     http.ResponseWriter
	r     *http.Request
}

// Bind returns a Session for w and r. The request gets a scoped id cache
// attached if it has none yet, so every call through the Session sees one id.
func Bind(store *Store, w http.ResponseWriter, r *http.Request) *Session {
	return &Session{
		store: store,
		w:     w,
		r:     identity.WithScope(r),
	}
}

// Request returns the bound request, carrying the id scope
func (s *Session) Request() *http.Request {
	return s.r
}

// ID returns the session id, issuing one if the client has none
func (s *Session) ID() (string, error) {
	return s.store.ids.ResolveID(s.w, s.r)
}

// ChangeID issues a new session id. Data stored under the previous id is not
// carried over.
func (s *Session) ChangeID() (string, error) {
	return s.store.ids.IssueID(s.w, s.r)
}

// Values returns the whole record
func (s *Session) Values() (Record, error) {
	return s.store.Read(s.w, s.r)
}

// Get returns the value stored under key and whether it is present
func (s *Session) Get(key string) (any, bool, error) {
	return s.store.ReadField(s.w, s.r, key)
}

// Set stores value under key. A nil value removes the key.
func (s *Session) Set(key string, value any) error {
	return s.store.Write(s.w, s.r, key, value)
}

// Delete removes key
func (s *Session) Delete(key string) error {
	return s.store.Delete(s.w, s.r, key)
}

// Clear removes the whole record
func (s *Session) Clear() error {
	return s.store.Clear(s.w, s.r)
}

// Rotate issues a new session id and moves the record of the previous id, if
// the client had one, to it
func (s *Session) Rotate() (string, error) {
	oldID, hadID := s.store.ids.CurrentID(s.r)

	newID, err := s.ChangeID()
	if err != nil {
		return "", err
	}
	if !hadID {
		return newID, nil
	}

	if err := s.store.Move(s.r.Context(), oldID, newID); err != nil {
		return "", err
	}
	return newID, nil
}
