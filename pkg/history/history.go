// Package history owns the ordered turn sequence for one associated
// document, converts it into the wire message array, and persists it to a
// side-car JSON file next to the document.
package history

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/papercomputeco/scribe/pkg/wire"
)

// FileSuffix is appended to the associated document's path to name the
// side-car file.
const FileSuffix = ".chat-history.json"

// formatVersion must match exactly on load; a mismatch means no usable
// history rather than a migration.
const formatVersion = 1

// historyFile is the persisted side-car document.
type historyFile struct {
	Version    int         `json:"version"`
	SourceFile string      `json:"source_file"`
	Messages   []wire.Turn `json:"messages"`
}

// History is the ordered turn sequence for one associated document. Turns
// are mutated only through Append and Clear. Persistence failures are
// absorbed silently: history is a convenience, not a correctness-critical
// store.
//
// History is not safe for concurrent use; the session mutates it only
// between sends.
type History struct {
	documentPath string
	turns        []wire.Turn
	logger       *zap.Logger
}

// New creates an empty History with no associated document.
func New(logger *zap.Logger) *History {
	return &History{logger: logger}
}

// SidecarPath computes the side-car file path for a document path, empty
// when no document is given.
func SidecarPath(documentPath string) string {
	if documentPath == "" {
		return ""
	}
	return documentPath + FileSuffix
}

// DocumentPath returns the associated document path, empty if none.
func (h *History) DocumentPath() string {
	return h.documentPath
}

// FilePath returns the side-car path for the associated document, empty
// when no document is associated.
func (h *History) FilePath() string {
	return SidecarPath(h.documentPath)
}

// Turns returns a copy of the turn sequence.
func (h *History) Turns() []wire.Turn {
	turns := make([]wire.Turn, len(h.turns))
	copy(turns, h.turns)
	return turns
}

// Len returns the number of turns.
func (h *History) Len() int {
	return len(h.turns)
}

// Append adds one turn to the end of the sequence.
func (h *History) Append(turn wire.Turn) {
	h.turns = append(h.turns, turn)
}

// Clear empties the sequence and deletes the side-car file if one exists.
func (h *History) Clear() {
	h.turns = nil

	path := h.FilePath()
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		h.logger.Warn("failed to delete history file",
			zap.String("path", path),
			zap.Error(err),
		)
	}
}

// SetDocument switches the associated document: the current non-empty
// sequence is saved first, in-memory state is cleared, then the new
// document's history is loaded if present.
func (h *History) SetDocument(path string) {
	if h.documentPath == path {
		return
	}

	if h.documentPath != "" && len(h.turns) > 0 {
		h.Save()
	}

	h.documentPath = path
	h.turns = nil

	if h.documentPath != "" {
		h.load()
	}
}

// Save writes the turn sequence to the side-car file. It is a no-op when
// no document is associated; write failures are logged and absorbed.
func (h *History) Save() {
	path := h.FilePath()
	if path == "" {
		return
	}

	doc := historyFile{
		Version:    formatVersion,
		SourceFile: filepath.Base(h.documentPath),
		Messages:   h.turns,
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		h.logger.Warn("failed to encode history", zap.Error(err))
		return
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		h.logger.Warn("failed to write history file",
			zap.String("path", path),
			zap.Error(err),
		)
	}
}

// load replaces the in-memory sequence from the side-car file. A missing
// file, unreadable JSON, or a version mismatch all leave the sequence
// empty.
func (h *History) load() {
	path := h.FilePath()
	if path == "" {
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			h.logger.Warn("failed to read history file",
				zap.String("path", path),
				zap.Error(err),
			)
		}
		return
	}

	var doc historyFile
	if err := json.Unmarshal(data, &doc); err != nil {
		h.logger.Warn("ignoring malformed history file",
			zap.String("path", path),
			zap.Error(err),
		)
		return
	}
	if doc.Version != formatVersion {
		h.logger.Warn("ignoring history file with unknown version",
			zap.String("path", path),
			zap.Int("version", doc.Version),
		)
		return
	}

	h.turns = doc.Messages
	h.logger.Debug("loaded history",
		zap.String("path", path),
		zap.Int("turns", len(h.turns)),
	)
}

// WireMessages converts the turn sequence into the wire message array.
// One model turn is a single wire message with a multi-part content array,
// so adjacent turns merge: an Assistant turn plus the ToolUse turns that
// immediately follow it become one assistant message, and a run of
// consecutive ToolResult turns becomes one user message. No turn is ever
// dropped; a ToolUse or ToolResult without its usual predecessor starts a
// merged message of its own.
func (h *History) WireMessages() []wire.Message {
	var messages []wire.Message

	i := 0
	for i < len(h.turns) {
		switch h.turns[i].Role {
		case wire.RoleAssistant:
			turn := h.turns[i]
			i++

			var blocks []wire.ContentBlock
			for i < len(h.turns) && h.turns[i].Role == wire.RoleToolUse {
				t := h.turns[i]
				blocks = append(blocks, wire.ToolUseBlock(t.ToolID, t.ToolName, t.ToolInput))
				i++
			}
			if len(blocks) == 0 {
				messages = append(messages, turn.ToWire())
				continue
			}
			if turn.Text != "" {
				blocks = append([]wire.ContentBlock{wire.TextBlock(turn.Text)}, blocks...)
			}
			messages = append(messages, wire.Message{Role: string(wire.RoleAssistant), Content: blocks})

		case wire.RoleToolUse:
			var blocks []wire.ContentBlock
			for i < len(h.turns) && h.turns[i].Role == wire.RoleToolUse {
				t := h.turns[i]
				blocks = append(blocks, wire.ToolUseBlock(t.ToolID, t.ToolName, t.ToolInput))
				i++
			}
			messages = append(messages, wire.Message{Role: string(wire.RoleAssistant), Content: blocks})

		case wire.RoleToolResult:
			var blocks []wire.ContentBlock
			for i < len(h.turns) && h.turns[i].Role == wire.RoleToolResult {
				t := h.turns[i]
				blocks = append(blocks, wire.ToolResultBlock(t.ToolID, t.Text, t.IsError))
				i++
			}
			messages = append(messages, wire.Message{Role: string(wire.RoleUser), Content: blocks})

		default:
			messages = append(messages, h.turns[i].ToWire())
			i++
		}
	}

	return messages
}
