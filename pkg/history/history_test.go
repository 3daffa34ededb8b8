package history_test

import (
	"encoding/json"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/papercomputeco/scribe/pkg/history"
	"github.com/papercomputeco/scribe/pkg/wire"
)

var _ = Describe("History", func() {
	var h *history.History

	BeforeEach(func() {
		h = history.New(zap.NewNop())
	})

	Describe("WireMessages", func() {
		It("emits one user message per user turn", func() {
			h.Append(wire.NewUserTurn("make a box"))

			messages := h.WireMessages()
			Expect(messages).To(HaveLen(1))
			Expect(messages[0].Role).To(Equal("user"))
			Expect(messages[0].Content).To(Equal("make a box"))
		})

		It("emits a plain assistant turn as string content", func() {
			h.Append(wire.NewUserTurn("hello"))
			h.Append(wire.NewAssistantTurn("hi there", "test-model"))

			messages := h.WireMessages()
			Expect(messages).To(HaveLen(2))
			Expect(messages[1].Role).To(Equal("assistant"))
			Expect(messages[1].Content).To(Equal("hi there"))
		})

		It("merges an assistant turn with its following tool uses", func() {
			h.Append(wire.NewAssistantTurn("let me check", "test-model"))
			h.Append(wire.NewToolUseTurn("tu_1", "read_editor", map[string]any{}))
			h.Append(wire.NewToolUseTurn("tu_2", "get_console", map[string]any{"max_lines": 10}))

			messages := h.WireMessages()
			Expect(messages).To(HaveLen(1))
			Expect(messages[0].Role).To(Equal("assistant"))

			blocks, ok := messages[0].Content.([]wire.ContentBlock)
			Expect(ok).To(BeTrue())
			Expect(blocks).To(HaveLen(3))
			Expect(blocks[0].Type).To(Equal(wire.BlockTypeText))
			Expect(blocks[0].Text).To(Equal("let me check"))
			Expect(blocks[1].ID).To(Equal("tu_1"))
			Expect(blocks[1].Name).To(Equal("read_editor"))
			Expect(blocks[2].ID).To(Equal("tu_2"))
		})

		It("omits the text block when the assistant text is empty", func() {
			h.Append(wire.NewAssistantTurn("", "test-model"))
			h.Append(wire.NewToolUseTurn("tu_1", "read_editor", nil))

			messages := h.WireMessages()
			Expect(messages).To(HaveLen(1))

			blocks := messages[0].Content.([]wire.ContentBlock)
			Expect(blocks).To(HaveLen(1))
			Expect(blocks[0].Type).To(Equal(wire.BlockTypeToolUse))
		})

		It("merges a run of tool results into one user message", func() {
			h.Append(wire.NewToolUseTurn("tu_1", "read_editor", nil))
			h.Append(wire.NewToolResultTurn("tu_1", "cube(1);", false))
			h.Append(wire.NewToolResultTurn("tu_2", "boom", true))

			messages := h.WireMessages()
			Expect(messages).To(HaveLen(2))
			Expect(messages[1].Role).To(Equal("user"))

			blocks := messages[1].Content.([]wire.ContentBlock)
			Expect(blocks).To(HaveLen(2))
			Expect(blocks[0].ToolUseID).To(Equal("tu_1"))
			Expect(blocks[0].Content).To(Equal("cube(1);"))
			Expect(blocks[0].IsError).To(BeFalse())
			Expect(blocks[1].IsError).To(BeTrue())
		})

		It("groups a tool use without a preceding assistant turn", func() {
			h.Append(wire.NewToolUseTurn("tu_1", "run_preview", nil))

			messages := h.WireMessages()
			Expect(messages).To(HaveLen(1))
			Expect(messages[0].Role).To(Equal("assistant"))

			blocks := messages[0].Content.([]wire.ContentBlock)
			Expect(blocks).To(HaveLen(1))
			Expect(blocks[0].Name).To(Equal("run_preview"))
		})

		It("reconstructs a full multi-step exchange without dropping turns", func() {
			h.Append(wire.NewUserTurn("draw a sphere"))
			h.Append(wire.NewAssistantTurn("reading first", "test-model"))
			h.Append(wire.NewToolUseTurn("tu_1", "read_editor", nil))
			h.Append(wire.NewToolResultTurn("tu_1", "", false))
			h.Append(wire.NewAssistantTurn("done", "test-model"))

			messages := h.WireMessages()
			Expect(messages).To(HaveLen(4))
			Expect(messages[0].Role).To(Equal("user"))
			Expect(messages[1].Role).To(Equal("assistant"))
			Expect(messages[2].Role).To(Equal("user"))
			Expect(messages[3].Role).To(Equal("assistant"))
			Expect(messages[3].Content).To(Equal("done"))
		})

		It("returns nil for an empty history", func() {
			Expect(h.WireMessages()).To(BeEmpty())
		})
	})

	Describe("persistence", func() {
		var docPath string

		BeforeEach(func() {
			dir, err := os.MkdirTemp("", "history")
			Expect(err).NotTo(HaveOccurred())
			DeferCleanup(os.RemoveAll, dir)
			docPath = filepath.Join(dir, "model.scad")
		})

		It("is a no-op when no document is associated", func() {
			h.Append(wire.NewUserTurn("hello"))
			h.Save()
			Expect(h.FilePath()).To(BeEmpty())
		})

		It("writes a versioned side-car file next to the document", func() {
			h.SetDocument(docPath)
			h.Append(wire.NewUserTurn("hello"))
			h.Save()

			data, err := os.ReadFile(docPath + history.FileSuffix)
			Expect(err).NotTo(HaveOccurred())

			var doc map[string]any
			Expect(json.Unmarshal(data, &doc)).To(Succeed())
			Expect(doc["version"]).To(Equal(float64(1)))
			Expect(doc["source_file"]).To(Equal("model.scad"))
			Expect(doc["messages"]).To(HaveLen(1))
		})

		It("round-trips the turn sequence", func() {
			h.SetDocument(docPath)
			h.Append(wire.NewUserTurn("draw a sphere"))
			h.Append(wire.NewAssistantTurn("sure", "test-model"))
			h.Append(wire.NewToolUseTurn("tu_1", "write_editor", map[string]any{"content": "sphere(2);"}))
			h.Append(wire.NewToolResultTurn("tu_1", "Editor content updated successfully", false))
			h.Save()

			restored := history.New(zap.NewNop())
			restored.SetDocument(docPath)

			Expect(restored.Turns()).To(Equal(h.Turns()))
		})

		It("treats a missing file as empty history", func() {
			h.SetDocument(docPath)
			Expect(h.Len()).To(BeZero())
		})

		It("treats malformed JSON as empty history", func() {
			Expect(os.WriteFile(docPath+history.FileSuffix, []byte("{not json"), 0o644)).To(Succeed())

			h.SetDocument(docPath)
			Expect(h.Len()).To(BeZero())
		})

		It("treats a version mismatch as empty history", func() {
			Expect(os.WriteFile(docPath+history.FileSuffix,
				[]byte(`{"version":99,"source_file":"model.scad","messages":[{"role":"user","text":"hi"}]}`),
				0o644)).To(Succeed())

			h.SetDocument(docPath)
			Expect(h.Len()).To(BeZero())
		})

		It("saves the old document's turns when switching documents", func() {
			otherPath := docPath + ".other"

			h.SetDocument(docPath)
			h.Append(wire.NewUserTurn("first document"))
			h.SetDocument(otherPath)

			Expect(h.Len()).To(BeZero())

			h.SetDocument(docPath)
			Expect(h.Len()).To(Equal(1))
			Expect(h.Turns()[0].Text).To(Equal("first document"))
		})

		It("deletes the side-car file on Clear", func() {
			h.SetDocument(docPath)
			h.Append(wire.NewUserTurn("hello"))
			h.Save()

			h.Clear()

			Expect(h.Len()).To(BeZero())
			_, err := os.Stat(docPath + history.FileSuffix)
			Expect(os.IsNotExist(err)).To(BeTrue())
		})
	})
})
