package teams

import "errors"

var (
	ErrNoName       = errors.New("No team name provided")
	ErrNoSuchTeam   = errors.New("No such team")
	ErrLeaderImmune = errors.New("Team leader cannot be removed from team")
	ErrOnlyLeader   = errors.New("Only the team leader can remove members")
	ErrNotAMember   = errors.New("That agent is not a member")
)
