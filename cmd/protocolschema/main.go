// Command protocolschema writes JSON schemas for the messages clients may
// send, keyed by message type.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/invopop/jsonschema"

	"goldrush/server/internal/net/proto"
)

func main() {
	var outPath string
	flag.StringVar(&outPath, "out", "", "path to write the JSON schema")
	flag.Parse()

	if outPath == "" {
		fmt.Fprintln(os.Stderr, "--out is required")
		os.Exit(1)
	}

	if err := writeSchema(outPath, buildSchemas()); err != nil {
		fmt.Fprintf(os.Stderr, "failed to write schema: %v\n", err)
		os.Exit(1)
	}
}

type requestSchema struct {
	types       []string
	value       any
	description string
}

var requests = []requestSchema{
	{[]string{proto.TypeCreateLobby}, new(proto.CreateLobbyRequest), "Create a lobby and receive its code"},
	{[]string{proto.TypeAddClientToLobby, proto.TypeAddSpectatorToLobby}, new(proto.LobbyRequest), "Join a lobby as a player or spectator"},
	{[]string{proto.TypeUpdateMovement}, new(proto.MovementRequest), "Move one step in a direction"},
	{[]string{proto.TypeAttack}, new(proto.AttackRequest), "Swing toward the given view direction"},
}

func buildSchemas() map[string]*jsonschema.Schema {
	reflector := jsonschema.Reflector{
		RequiredFromJSONSchemaTags: true,
	}
	out := make(map[string]*jsonschema.Schema)
	for _, req := range requests {
		for _, typ := range req.types {
			schema := reflector.Reflect(req.value)
			schema.Title = "Gold Rush " + typ + " message"
			schema.Description = req.description
			out[typ] = schema
		}
	}
	return out
}

func writeSchema(outPath string, schemas map[string]*jsonschema.Schema) error {
	data, err := json.MarshalIndent(schemas, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("create schema directory: %w", err)
	}

	tmpPath := outPath + ".tmp"
	if err := os.WriteFile(tmpPath, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write temp schema: %w", err)
	}
	if err := os.Rename(tmpPath, outPath); err != nil {
		return fmt.Errorf("replace schema: %w", err)
	}
	return nil
}
