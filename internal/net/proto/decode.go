package proto

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
)

var (
	// ErrUnknownType is returned for payloads whose type is outside the client action set.
	ErrUnknownType = errors.New("unknown message type")
	// ErrMissingField is returned when a required field is absent.
	ErrMissingField = errors.New("missing required field")
	// ErrOutOfRange is returned when a field value is outside its allowed domain.
	ErrOutOfRange = errors.New("field out of range")
)

// Action is one decoded client request. The concrete type is one of
// CreateLobby, JoinLobby, SpectateLobby, Move or Attack.
type Action interface {
	ActionType() string
}

type CreateLobby struct{}

type JoinLobby struct {
	LobbyID string
}

type SpectateLobby struct {
	LobbyID string
}

// Move is a direction step with components in [-1, 1]. State is the
// normalized movement state, empty when the client sent none or an unknown one.
type Move struct {
	DX    float64
	DY    float64
	State string
}

type Attack struct {
	Facing string
}

func (CreateLobby) ActionType() string   { return TypeCreateLobby }
func (JoinLobby) ActionType() string     { return TypeAddClientToLobby }
func (SpectateLobby) ActionType() string { return TypeAddSpectatorToLobby }
func (Move) ActionType() string          { return TypeUpdateMovement }
func (Attack) ActionType() string        { return TypeAttack }

// Movement states accepted from clients.
var movementStates = map[string]struct{}{
	"IDLE":  {},
	"UP":    {},
	"DOWN":  {},
	"LEFT":  {},
	"RIGHT": {},
}

// Attack view directions accepted from clients.
var viewStates = map[string]struct{}{
	"TOP":    {},
	"BOTTOM": {},
	"LEFT":   {},
	"RIGHT":  {},
}

type envelope struct {
	Type string `json:"type"`
}

// Decode converts a raw websocket payload into an Action.
func Decode(payload []byte) (Action, error) {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("decode: empty payload")
	}
	if string(trimmed) == LegacyCreateLobby {
		return CreateLobby{}, nil
	}

	var env envelope
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}

	switch env.Type {
	case TypeCreateLobby:
		return CreateLobby{}, nil
	case TypeAddClientToLobby, TypeAddSpectatorToLobby:
		var req LobbyRequest
		if err := json.Unmarshal(trimmed, &req); err != nil {
			return nil, fmt.Errorf("decode %s: %w", env.Type, err)
		}
		code := req.lobbyCode()
		if code == "" {
			return nil, fmt.Errorf("decode %s: lobbyId: %w", env.Type, ErrMissingField)
		}
		if env.Type == TypeAddSpectatorToLobby {
			return SpectateLobby{LobbyID: code}, nil
		}
		return JoinLobby{LobbyID: code}, nil
	case TypeUpdateMovement:
		var req MovementRequest
		if err := json.Unmarshal(trimmed, &req); err != nil {
			return nil, fmt.Errorf("decode %s: %w", env.Type, err)
		}
		if req.X == nil {
			return nil, fmt.Errorf("decode %s: x: %w", env.Type, ErrMissingField)
		}
		if req.Y == nil {
			return nil, fmt.Errorf("decode %s: y: %w", env.Type, ErrMissingField)
		}
		if !unitRange(*req.X) {
			return nil, fmt.Errorf("decode %s: x=%v: %w", env.Type, *req.X, ErrOutOfRange)
		}
		if !unitRange(*req.Y) {
			return nil, fmt.Errorf("decode %s: y=%v: %w", env.Type, *req.Y, ErrOutOfRange)
		}
		return Move{DX: *req.X, DY: *req.Y, State: NormalizeMovementState(req.State)}, nil
	case TypeAttack:
		var req AttackRequest
		if err := json.Unmarshal(trimmed, &req); err != nil {
			return nil, fmt.Errorf("decode %s: %w", env.Type, err)
		}
		if strings.TrimSpace(req.ViewState) == "" {
			return nil, fmt.Errorf("decode %s: viewState: %w", env.Type, ErrMissingField)
		}
		facing, ok := NormalizeViewState(req.ViewState)
		if !ok {
			return nil, fmt.Errorf("decode %s: viewState=%q: %w", env.Type, req.ViewState, ErrOutOfRange)
		}
		return Attack{Facing: facing}, nil
	default:
		return nil, fmt.Errorf("decode type %q: %w", env.Type, ErrUnknownType)
	}
}

// NormalizeMovementState upper-cases a movement state and returns "" when it
// is not one of the known states.
func NormalizeMovementState(value string) string {
	state := strings.ToUpper(strings.TrimSpace(value))
	if _, ok := movementStates[state]; !ok {
		return ""
	}
	return state
}

// NormalizeViewState upper-cases an attack direction.
func NormalizeViewState(value string) (string, bool) {
	view := strings.ToUpper(strings.TrimSpace(value))
	_, ok := viewStates[view]
	return view, ok
}

func unitRange(v float64) bool {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return false
	}
	return v >= -1 && v <= 1
}

// PeekType returns the "type" field of a JSON message without decoding the
// rest of it.
func PeekType(payload []byte) (string, error) {
	var env envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return "", fmt.Errorf("peek type: %w", err)
	}
	return env.Type, nil
}
