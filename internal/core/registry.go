package core

import "sync"

// Registry owns the mapping from course to the set of connected sessions
// currently joined to it. A session belongs to at most one room at a
// time. The registry performs no authorization; that is the hub's job.
//
// The zero map states are handled by NewRegistry; tests may construct as
// many independent registries as they need.
type Registry struct {
	mu      sync.Mutex
	rooms   map[int64]map[string]*Session
	current map[string]int64 // session id -> joined course
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		rooms:   make(map[int64]map[string]*Session),
		current: make(map[string]int64),
	}
}

// Join adds the session to the course's member set. If the session was a
// member of a different room it is atomically moved; joining the room it
// is already in is a no-op.
func (r *Registry) Join(s *Session, courseID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cur, ok := r.current[s.ID]; ok {
		if cur == courseID {
			return
		}
		r.removeLocked(s.ID, cur)
	}

	members, ok := r.rooms[courseID]
	if !ok {
		members = make(map[string]*Session)
		r.rooms[courseID] = members
	}
	members[s.ID] = s
	r.current[s.ID] = courseID
}

// Leave removes the session from the course's member set if present.
func (r *Registry) Leave(sessionID string, courseID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cur, ok := r.current[sessionID]; !ok || cur != courseID {
		return
	}
	r.removeLocked(sessionID, courseID)
}

// LeaveAll removes the session from whatever room it currently occupies.
// Used on disconnect.
func (r *Registry) LeaveAll(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cur, ok := r.current[sessionID]; ok {
		r.removeLocked(sessionID, cur)
	}
}

func (r *Registry) removeLocked(sessionID string, courseID int64) {
	delete(r.current, sessionID)
	if members, ok := r.rooms[courseID]; ok {
		delete(members, sessionID)
		if len(members) == 0 {
			delete(r.rooms, courseID)
		}
	}
}

// MembersOf returns a point-in-time snapshot of the course's members.
// The caller may iterate the slice freely; later joins and leaves do not
// affect it.
func (r *Registry) MembersOf(courseID int64) []*Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	members := r.rooms[courseID]
	snapshot := make([]*Session, 0, len(members))
	for _, s := range members {
		snapshot = append(snapshot, s)
	}
	return snapshot
}

// RoomOf returns the course the session is currently joined to, if any.
func (r *Registry) RoomOf(sessionID string) (int64, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	courseID, ok := r.current[sessionID]
	return courseID, ok
}
