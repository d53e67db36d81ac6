package core

// RoomSet is the generic membership tracker shared by chat rooms, video rooms
// and document rooms. Rooms are created lazily on first join and deleted when
// their member set empties. Specialized per-room state (video member records,
// document sessions) lives in side tables keyed by the same room id.
type RoomSet struct {
	rooms map[string]map[*Client]struct{}
}

// NewRoomSet constructs an empty tracker.
func NewRoomSet() *RoomSet {
	return &RoomSet{rooms: make(map[string]map[*Client]struct{})}
}

// Join adds the client to the room, creating it if absent.
// Returns false if the client was already a member.
func (s *RoomSet) Join(roomID string, c *Client) bool {
	members, ok := s.rooms[roomID]
	if !ok {
		members = make(map[*Client]struct{})
		s.rooms[roomID] = members
	}
	if _, exists := members[c]; exists {
		return false
	}
	members[c] = struct{}{}
	c.Rooms[roomID] = struct{}{}
	return true
}

// Leave removes the client from the room and deletes the room when it
// empties. Returns false if the client was not a member.
func (s *RoomSet) Leave(roomID string, c *Client) bool {
	members, ok := s.rooms[roomID]
	if !ok {
		return false
	}
	if _, exists := members[c]; !exists {
		return false
	}
	delete(members, c)
	delete(c.Rooms, roomID)
	if len(members) == 0 {
		delete(s.rooms, roomID)
	}
	return true
}

// LeaveAll removes the client from every room it belongs to and returns the
// ids of the rooms it left. Disconnect cleanup must cover all rooms, not one.
func (s *RoomSet) LeaveAll(c *Client) []string {
	left := make([]string, 0, len(c.Rooms))
	for roomID := range c.Rooms {
		if s.Leave(roomID, c) {
			left = append(left, roomID)
		}
	}
	return left
}

// Members returns a snapshot of the room's current members.
func (s *RoomSet) Members(roomID string) []*Client {
	members := s.rooms[roomID]
	snapshot := make([]*Client, 0, len(members))
	for c := range members {
		snapshot = append(snapshot, c)
	}
	return snapshot
}

// Contains reports whether the client is currently a member of the room.
func (s *RoomSet) Contains(roomID string, c *Client) bool {
	_, ok := s.rooms[roomID][c]
	return ok
}

// Empty reports whether the room has no members (or does not exist).
func (s *RoomSet) Empty(roomID string) bool {
	return len(s.rooms[roomID]) == 0
}

// Broadcast delivers the event to every member of the room except the
// optionally excluded sender. Delivery is fire-and-forget per member; a slow
// member never blocks the others.
func (s *RoomSet) Broadcast(roomID string, ev *Event, exclude *Client) {
	for c := range s.rooms[roomID] {
		if c == exclude {
			continue
		}
		c.Send(ev)
	}
}
