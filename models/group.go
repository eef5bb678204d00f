package models

import "strconv"

// GroupKey scopes players and sessions to the authenticated actor that owns them.
type GroupKey string

const groupKeyPrefix = "usergroup_"

// GroupForUser derives the group key of an authenticated user.
func GroupForUser(userID int) GroupKey {
	return GroupKey(groupKeyPrefix + strconv.Itoa(userID))
}

func (g GroupKey) String() string {
	return string(g)
}
