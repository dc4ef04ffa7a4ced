package proto

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Client message type identifiers.
const (
	TypeCreateLobby         = "createLobby"
	TypeAddClientToLobby    = "addClientToLobby"
	TypeAddSpectatorToLobby = "addSpectatorToLobby"
	TypeUpdateMovement      = "updateMovement"
	TypeAttack              = "attack"

	// LegacyCreateLobby is the plain-text sentinel older clients send in
	// place of a JSON createLobby message.
	LegacyCreateLobby = "create lobby"
)

// Server message type identifiers.
const (
	TypeWelcome            = "welcome"
	TypeNewClient          = "newClient"
	TypeClientDisconnected = "clientDisconnected"
	TypeJoinedLobby        = "joinedLobby"
	TypeJoinedAsSpectator  = "joinedAsSpectator"
	TypeLobbyCreated       = "lobbyCreated"
	TypeCountdown          = "countdown"
	TypeGameStarted        = "gameStarted"
	TypePerformAttack      = "performAttack"
	TypePlayerHit          = "playerHit"
	TypeCollision          = "collision"
	TypeUpdate             = "update"
	TypeGameOver           = "gameOver"
)

// CreateLobbyRequest asks the server for a fresh lobby.
type CreateLobbyRequest struct {
	Type string `json:"type" jsonschema:"enum=createLobby,required"`
}

// LobbyRequest joins a lobby as a player or as a spectator. Older clients
// send the lobby as a numeric "code"; LobbyID wins when both are present.
type LobbyRequest struct {
	Type    string     `json:"type" jsonschema:"enum=addClientToLobby,enum=addSpectatorToLobby,required"`
	LobbyID *LobbyCode `json:"lobbyId,omitempty" jsonschema:"title=Lobby code,pattern=^[0-9]{6}$"`
	Code    *LobbyCode `json:"code,omitempty" jsonschema:"title=Lobby code (legacy alias),pattern=^[0-9]{6}$"`
}

// LobbyCode is a lobby code that decodes from a JSON string or an integer.
type LobbyCode string

func (c *LobbyCode) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var text string
		if err := json.Unmarshal(data, &text); err != nil {
			return err
		}
		*c = LobbyCode(strings.TrimSpace(text))
		return nil
	}
	var number json.Number
	if err := json.Unmarshal(data, &number); err != nil {
		return fmt.Errorf("lobby code must be a string or integer: %w", err)
	}
	value, err := number.Int64()
	if err != nil {
		return fmt.Errorf("lobby code %s: %w", number, ErrOutOfRange)
	}
	*c = LobbyCode(strconv.FormatInt(value, 10))
	return nil
}

// lobbyCode returns the lobby the request names, preferring lobbyId.
func (r LobbyRequest) lobbyCode() string {
	for _, candidate := range []*LobbyCode{r.LobbyID, r.Code} {
		if candidate != nil && *candidate != "" {
			return string(*candidate)
		}
	}
	return ""
}

// MovementRequest carries one movement step. X and Y are direction
// components in [-1, 1].
type MovementRequest struct {
	Type  string   `json:"type" jsonschema:"enum=updateMovement,required"`
	X     *float64 `json:"x" jsonschema:"minimum=-1,maximum=1,required"`
	Y     *float64 `json:"y" jsonschema:"minimum=-1,maximum=1,required"`
	State string   `json:"state,omitempty" jsonschema:"enum=IDLE,enum=UP,enum=DOWN,enum=LEFT,enum=RIGHT"`
}

// AttackRequest swings in the given view direction.
type AttackRequest struct {
	Type      string `json:"type" jsonschema:"enum=attack,required"`
	ViewState string `json:"viewState" jsonschema:"enum=TOP,enum=BOTTOM,enum=LEFT,enum=RIGHT,required"`
}

// Position is a point in world units.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type Welcome struct {
	Type         string `json:"type"`
	ID           string `json:"id"`
	TotalClients int    `json:"totalClients"`
	Message      string `json:"message,omitempty"`
}

// ClientPresence announces a connection arriving or leaving.
type ClientPresence struct {
	Type         string `json:"type"`
	ID           string `json:"id"`
	TotalClients int    `json:"totalClients"`
	Message      string `json:"message,omitempty"`
}

type JoinedLobby struct {
	Type     string   `json:"type"`
	LobbyID  string   `json:"lobbyId"`
	Position Position `json:"position"`
	State    string   `json:"state"`
	Team     string   `json:"team"`
	HasGold  bool     `json:"hasGold"`
}

type JoinedAsSpectator struct {
	Type    string `json:"type"`
	LobbyID string `json:"lobbyId"`
}

type LobbyCreated struct {
	Type    string `json:"type"`
	LobbyID string `json:"lobbyId"`
}

// Countdown reports the whole seconds left before a match starts.
type Countdown struct {
	Type     string `json:"type"`
	TimeLeft int    `json:"timeLeft"`
}

type GameStarted struct {
	Type string `json:"type"`
}

type PerformAttack struct {
	Type      string `json:"type"`
	Attacker  string `json:"attacker"`
	ViewState string `json:"viewState"`
	Team      string `json:"team"`
}

type PlayerHit struct {
	Type     string `json:"type"`
	Attacker string `json:"attacker"`
	Victim   string `json:"victim"`
}

type Collision struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type GameOver struct {
	Type   string `json:"type"`
	Winner string `json:"winner"`
	Team   string `json:"team"`
}

// Update wraps one published lobby snapshot.
type Update struct {
	Type      string    `json:"type"`
	GameState GameState `json:"gameState"`
}

// GameState is the visible state of a lobby. Field order and slice order are
// fixed so equal states encode to equal bytes.
type GameState struct {
	Phase       string            `json:"phase"`
	Players     []PlayerState     `json:"players"`
	Gold        []GoldState       `json:"gold"`
	Projectiles []ProjectileState `json:"projectiles"`
	Spectators  []string          `json:"spectators"`
}

type PlayerState struct {
	ID        string   `json:"id"`
	Position  Position `json:"position"`
	State     string   `json:"state"`
	Team      string   `json:"team"`
	HasGold   bool     `json:"hasGold"`
	Attacking bool     `json:"attacking,omitempty"`
}

type GoldState struct {
	Type     string   `json:"type"`
	Position Position `json:"position"`
}

type ProjectileState struct {
	Team      string   `json:"team"`
	Position  Position `json:"position"`
	Direction string   `json:"direction"`
}

// Encode renders any server message as JSON.
func Encode(msg any) ([]byte, error) {
	return json.Marshal(msg)
}

func NewWelcome(id string, total int) Welcome {
	return Welcome{Type: TypeWelcome, ID: id, TotalClients: total, Message: "Welcome to the server"}
}

func NewClientJoined(id string, total int) ClientPresence {
	return ClientPresence{Type: TypeNewClient, ID: id, TotalClients: total, Message: "A new client joined the server"}
}

func NewClientDisconnected(id string, total int) ClientPresence {
	return ClientPresence{Type: TypeClientDisconnected, ID: id, TotalClients: total, Message: "A client has left the server"}
}

func NewJoinedLobby(lobbyID string, pos Position, state, team string, hasGold bool) JoinedLobby {
	return JoinedLobby{
		Type:     TypeJoinedLobby,
		LobbyID:  lobbyID,
		Position: pos,
		State:    state,
		Team:     team,
		HasGold:  hasGold,
	}
}

func NewJoinedAsSpectator(lobbyID string) JoinedAsSpectator {
	return JoinedAsSpectator{Type: TypeJoinedAsSpectator, LobbyID: lobbyID}
}

func NewLobbyCreated(lobbyID string) LobbyCreated {
	return LobbyCreated{Type: TypeLobbyCreated, LobbyID: lobbyID}
}

func NewCountdown(timeLeft int) Countdown {
	if timeLeft < 0 {
		timeLeft = 0
	}
	return Countdown{Type: TypeCountdown, TimeLeft: timeLeft}
}

func NewGameStarted() GameStarted {
	return GameStarted{Type: TypeGameStarted}
}

func NewPerformAttack(attacker, viewState, team string) PerformAttack {
	return PerformAttack{Type: TypePerformAttack, Attacker: attacker, ViewState: viewState, Team: team}
}

func NewPlayerHit(attacker, victim string) PlayerHit {
	return PlayerHit{Type: TypePlayerHit, Attacker: attacker, Victim: victim}
}

func NewCollision(message string) Collision {
	return Collision{Type: TypeCollision, Message: message}
}

func NewGameOver(winner, team string) GameOver {
	return GameOver{Type: TypeGameOver, Winner: winner, Team: team}
}

func NewUpdate(state GameState) Update {
	return Update{Type: TypeUpdate, GameState: state}
}
