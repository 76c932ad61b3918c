package emit

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// LogEmitter implements Emitter by writing structured log output to a
// writer.
//
// Supports two output modes:
//   - Text mode (default): human-readable key=value lines
//   - JSON mode: one JSON object per line (JSONL)
//
// Example text output:
//
//	[turn] conversationID=conv-001 turn=2 nodeID=welcome
//
// Example JSON output:
//
//	{"conversationID":"conv-001","turn":2,"nodeID":"welcome","msg":"turn","meta":null}
type LogEmitter struct {
	writer   io.Writer
	jsonMode bool
}

// NewLogEmitter creates a new LogEmitter.
//
// Parameters:
//   - writer: where to write (e.g. os.Stdout, a file); nil defaults
//     to os.Stdout
//   - jsonMode: true for JSONL output, false for text
func NewLogEmitter(writer io.Writer, jsonMode bool) *LogEmitter {
	if writer == nil {
		writer = os.Stdout
	}
	return &LogEmitter{
		writer:   writer,
		jsonMode: jsonMode,
	}
}

// Emit writes an event to the configured writer.
func (l *LogEmitter) Emit(event Event) {
	if l.jsonMode {
		l.emitJSON(event)
	} else {
		l.emitText(event)
	}
}

func (l *LogEmitter) emitJSON(event Event) {
	data, err := json.Marshal(struct {
		ConversationID string                 `json:"conversationID"`
		Turn           int                    `json:"turn"`
		NodeID         string                 `json:"nodeID"`
		Msg            string                 `json:"msg"`
		Meta           map[string]interface{} `json:"meta"`
	}{
		ConversationID: event.ConversationID,
		Turn:           event.Turn,
		NodeID:         event.NodeID,
		Msg:            event.Msg,
		Meta:           event.Meta,
	})
	if err != nil {
		fmt.Fprintf(l.writer, "{\"error\":\"failed to marshal event: %v\"}\n", err)
		return
	}

	fmt.Fprintf(l.writer, "%s\n", data)
}

func (l *LogEmitter) emitText(event Event) {
	fmt.Fprintf(l.writer, "[%s] conversationID=%s turn=%d nodeID=%s",
		event.Msg, event.ConversationID, event.Turn, event.NodeID)

	if len(event.Meta) > 0 {
		metaJSON, err := json.Marshal(event.Meta)
		if err == nil {
			fmt.Fprintf(l.writer, " meta=%s", metaJSON)
		} else {
			fmt.Fprintf(l.writer, " meta=%v", event.Meta)
		}
	}

	fmt.Fprint(l.writer, "\n")
}
