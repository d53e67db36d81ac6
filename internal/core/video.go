package core

import "encoding/json"

// VideoMember records one connection's presence in a video room together
// with the user-supplied identity payload used for UI labeling.
type VideoMember struct {
	Client *Client
	User   json.RawMessage
}

// VideoRooms is the side table of video room member records, keyed by the
// same room id as the generic membership tracker. The relay keeps no media
// state; member records exist only to drive join/leave notifications and
// pairwise mesh establishment.
type VideoRooms struct {
	rooms map[string]map[string]*VideoMember // room id -> connection id -> member
}

// NewVideoRooms constructs an empty side table.
func NewVideoRooms() *VideoRooms {
	return &VideoRooms{rooms: make(map[string]map[string]*VideoMember)}
}

// Add inserts a member record, creating the room if absent.
// Returns false if the connection was already a member.
func (v *VideoRooms) Add(roomID string, c *Client, user json.RawMessage) bool {
	members, ok := v.rooms[roomID]
	if !ok {
		members = make(map[string]*VideoMember)
		v.rooms[roomID] = members
	}
	if _, exists := members[c.ID]; exists {
		return false
	}
	members[c.ID] = &VideoMember{Client: c, User: user}
	return true
}

// Remove deletes a member record and the room itself when it empties.
// Returns false if the connection was not a member.
func (v *VideoRooms) Remove(roomID, connID string) bool {
	members, ok := v.rooms[roomID]
	if !ok {
		return false
	}
	if _, exists := members[connID]; !exists {
		return false
	}
	delete(members, connID)
	if len(members) == 0 {
		delete(v.rooms, roomID)
	}
	return true
}

// Members returns a snapshot of the room's current member records.
func (v *VideoRooms) Members(roomID string) []*VideoMember {
	members := v.rooms[roomID]
	snapshot := make([]*VideoMember, 0, len(members))
	for _, m := range members {
		snapshot = append(snapshot, m)
	}
	return snapshot
}

// RoomsOf returns the ids of every video room the connection is a member of.
// Used by disconnect cleanup to emit user-left to each of them.
func (v *VideoRooms) RoomsOf(connID string) []string {
	var ids []string
	for roomID, members := range v.rooms {
		if _, ok := members[connID]; ok {
			ids = append(ids, roomID)
		}
	}
	return ids
}
