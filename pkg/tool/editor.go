package tool

import (
	"strings"

	"github.com/papercomputeco/scribe/pkg/wire"
)

// Host exposes the editor, console and render capabilities the built-in
// tool set operates on. The engine knows nothing about how a host renders
// or compiles; it only relays text in and out.
type Host interface {
	// EditorText returns the full content of the active document.
	EditorText() (string, error)

	// SetEditorText replaces the full content of the active document.
	SetEditorText(content string) error

	// Selection returns the currently selected text, empty if none.
	Selection() (string, error)

	// ReplaceSelection replaces the selection, or inserts at the cursor
	// when nothing is selected.
	ReplaceSelection(content string) error

	// InsertAtCursor inserts text at the cursor without replacing.
	InsertAtCursor(content string) error

	// StartPreview triggers a quick preview compile.
	StartPreview() error

	// StartRender triggers a full render.
	StartRender() error

	// ConsoleText returns the compile console output.
	ConsoleText() (string, error)

	// ErrorLog returns structured error lines from the last compile.
	ErrorLog() ([]string, error)

	// FilePath returns the active document's path, empty if unsaved.
	FilePath() (string, error)
}

func emptyObjectSchema() map[string]any {
	return map[string]any{
		"type":       "object",
		"properties": map[string]any{},
		"required":   []string{},
	}
}

func contentSchema(description string) map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"content": map[string]any{
				"type":        "string",
				"description": description,
			},
		},
		"required": []string{"content"},
	}
}

func wireDef(name, description string, schema map[string]any) wire.ToolDefinition {
	return wire.ToolDefinition{Name: name, Description: description, InputSchema: schema}
}

// EditorTools builds the standard tool set over a host. Each tool is a
// named synchronous operation returning text plus an error flag, matching
// what the model is told in the definitions.
func EditorTools(host Host) *Registry {
	r := NewRegistry()

	r.Register(wireDef("read_editor",
		"Read the current code from the editor. Returns the complete source of the active document.",
		emptyObjectSchema()),
		func(map[string]any) Result {
			text, err := host.EditorText()
			if err != nil {
				return Errorf("%v", err)
			}
			return Text(text)
		})

	r.Register(wireDef("write_editor",
		"Replace the entire editor content with new code. This overwrites all existing code in the active document.",
		contentSchema("The complete code to write to the editor")),
		func(input map[string]any) Result {
			if err := host.SetEditorText(stringInput(input, "content")); err != nil {
				return Errorf("%v", err)
			}
			return Text("Editor content updated successfully")
		})

	r.Register(wireDef("get_selection",
		"Get the currently selected text in the editor. Returns empty string if nothing is selected.",
		emptyObjectSchema()),
		func(map[string]any) Result {
			selection, err := host.Selection()
			if err != nil {
				return Errorf("%v", err)
			}
			if selection == "" {
				return Text("(no text selected)")
			}
			return Text(selection)
		})

	r.Register(wireDef("replace_selection",
		"Replace the currently selected text with new content. If nothing is selected, inserts at the cursor position.",
		contentSchema("The text to replace the selection with")),
		func(input map[string]any) Result {
			if err := host.ReplaceSelection(stringInput(input, "content")); err != nil {
				return Errorf("%v", err)
			}
			return Text("Selection replaced successfully")
		})

	r.Register(wireDef("insert_at_cursor",
		"Insert text at the current cursor position without replacing any existing text.",
		contentSchema("The text to insert at the cursor position")),
		func(input map[string]any) Result {
			if err := host.InsertAtCursor(stringInput(input, "content")); err != nil {
				return Errorf("%v", err)
			}
			return Text("Text inserted successfully")
		})

	r.Register(wireDef("run_preview",
		"Run the quick preview compile. Shows the result faster but may be approximate.",
		emptyObjectSchema()),
		func(map[string]any) Result {
			if err := host.StartPreview(); err != nil {
				return Errorf("%v", err)
			}
			return Text("Preview started. Check console for results.")
		})

	r.Register(wireDef("run_render",
		"Run the full render. Computes the exact result and is required before exporting. Takes longer than preview.",
		emptyObjectSchema()),
		func(map[string]any) Result {
			if err := host.StartRender(); err != nil {
				return Errorf("%v", err)
			}
			return Text("Full render started. Check console for results.")
		})

	r.Register(wire.ToolDefinition{
		Name:        "get_console",
		Description: "Get recent console output including compilation messages and warnings.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"max_lines": map[string]any{
					"type":        "integer",
					"description": "Maximum number of lines to return (default 100)",
				},
			},
			"required": []string{},
		},
	}, func(input map[string]any) Result {
		text, err := host.ConsoleText()
		if err != nil {
			return Errorf("%v", err)
		}
		maxLines := intInput(input, "max_lines", 100)
		if maxLines <= 0 {
			maxLines = 100
		}
		lines := strings.Split(text, "\n")
		if len(lines) > maxLines {
			lines = lines[len(lines)-maxLines:]
		}
		out := strings.Join(lines, "\n")
		if out == "" {
			return Text("(console is empty)")
		}
		return Text(out)
	})

	r.Register(wireDef("get_errors",
		"Get the structured error log from the last compilation.",
		emptyObjectSchema()),
		func(map[string]any) Result {
			entries, err := host.ErrorLog()
			if err != nil {
				return Errorf("%v", err)
			}
			if len(entries) == 0 {
				return Text("(no errors)")
			}
			return Text(strings.Join(entries, "\n"))
		})

	r.Register(wireDef("get_file_path",
		"Get the file path of the currently active document. Returns empty if the file has not been saved.",
		emptyObjectSchema()),
		func(map[string]any) Result {
			path, err := host.FilePath()
			if err != nil {
				return Errorf("%v", err)
			}
			if path == "" {
				return Text("(unsaved file)")
			}
			return Text(path)
		})

	return r
}
