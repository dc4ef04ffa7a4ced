package server

// Team is one of the four fixed sides.
type Team string

const (
	TeamBlue   Team = "blue"
	TeamPurple Team = "purple"
	TeamRed    Team = "red"
	TeamYellow Team = "yellow"
)

// teamOrder is the iteration order used for seating ties, snapshots and the
// tower sprite rows of the level file.
var teamOrder = [...]Team{TeamBlue, TeamPurple, TeamRed, TeamYellow}

const teamCount = len(teamOrder)

// Teams lists every team in iteration order.
func Teams() []Team {
	return append([]Team(nil), teamOrder[:]...)
}

func teamIndex(t Team) int {
	for i, candidate := range teamOrder {
		if candidate == t {
			return i
		}
	}
	return -1
}

// teamForTowerRow maps a tower sprite row from the level file to a team.
func teamForTowerRow(row int) (Team, bool) {
	if row < 0 || row >= teamCount {
		return "", false
	}
	return teamOrder[row], true
}

type teamState struct {
	members map[string]struct{}
	towers  map[string]struct{}
}

func newTeamState() *teamState {
	return &teamState{
		members: make(map[string]struct{}),
		towers:  make(map[string]struct{}),
	}
}
