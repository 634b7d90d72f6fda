package model

import "encoding/json"

// Command envelope types understood by agents.
const (
	CommandGetInfo         = "get-info"
	CommandLANPrint        = "lan-print"
	CommandLANPrintAll     = "lan-print-all"
	CommandListFiles       = "list-files"
	CommandFileTransfer    = "file-transfer"
	CommandChangeWallpaper = "change-wallpaper"
	CommandSelfDestruct    = "self-destruct"
)

// CommandEnvelope is a typed, opaque command payload addressed to an agent.
// Data is interpreted only by the agent.
type CommandEnvelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// NewCommand builds an envelope, marshaling data into the payload. A nil
// data value yields an empty object.
func NewCommand(typ string, data any) (*CommandEnvelope, error) {
	if data == nil {
		return &CommandEnvelope{Type: typ, Data: EmptyObject}, nil
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return &CommandEnvelope{Type: typ, Data: OrEmpty(raw)}, nil
}

// FileTransfer is the data payload of a file-transfer command.
type FileTransfer struct {
	FileName    string `json:"file_name"`
	FileContent string `json:"file_content"` // base64
	TargetPath  string `json:"target_path"`
}

// PathArg is the data payload of commands that take a single path.
type PathArg struct {
	Path string `json:"path"`
}
