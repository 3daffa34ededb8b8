package chatcmder

import (
	"errors"
	"os"
)

// fileHost backs the editor tool set with a file on disk: the "editor
// content" is the file itself. Selection and compile operations have no
// terminal equivalent and report that to the model as tool errors.
type fileHost struct {
	path string
}

func newFileHost(path string) *fileHost {
	return &fileHost{path: path}
}

func (h *fileHost) EditorText() (string, error) {
	data, err := os.ReadFile(h.path)
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (h *fileHost) SetEditorText(content string) error {
	return os.WriteFile(h.path, []byte(content), 0o644)
}

func (h *fileHost) Selection() (string, error) {
	return "", nil
}

func (h *fileHost) ReplaceSelection(content string) error {
	// Nothing is ever selected, so this inserts at the end of the file.
	return h.InsertAtCursor(content)
}

func (h *fileHost) InsertAtCursor(content string) error {
	f, err := os.OpenFile(h.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.WriteString(content)
	return err
}

func (h *fileHost) StartPreview() error {
	return errors.New("preview is not available in a terminal session")
}

func (h *fileHost) StartRender() error {
	return errors.New("rendering is not available in a terminal session")
}

func (h *fileHost) ConsoleText() (string, error) {
	return "", nil
}

func (h *fileHost) ErrorLog() ([]string, error) {
	return nil, nil
}

func (h *fileHost) FilePath() (string, error) {
	return h.path, nil
}
