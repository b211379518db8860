package extract

import (
	"fmt"
	"strings"

	"github.com/xxxsen/mrecall/internal/model"
)

// systemPrompt is shared by every transport; only the wire differs.
const systemPrompt = `You are a memory extraction assistant.
Read the conversation excerpt and distill durable, reusable facts about the user and their work.

Each fact must use exactly one of these types:
- correction: the user corrected the assistant or themselves
- decision: a choice was made between alternatives
- commitment: someone promised to do something
- insight: a non-obvious realization worth keeping
- learning: new knowledge acquired during the conversation
- confidence: a statement about certainty or trust in something
- pattern_seed: a recurring behavior worth tracking
- cross_agent: a fact about another tool or agent in the workflow
- workflow_note: how the user prefers work to be done
- gap: something unknown or missing that should be filled in later

Output rules:
- Return ONLY a JSON array. No prose, no explanations, no markdown fences.
- Each element is an object with fields:
  "type" (one of the types above), "category" (short free-form grouping),
  "title" (one line), "content" (the fact itself),
  "related_entities" (array of literal names: people, tools, projects),
  "confidence" (integer 0-100, your own certainty),
  "reasoning" (why this is worth keeping), "evidence" (supporting quote).
- Skip chit-chat. If nothing is worth keeping, return [].`

// BuildUserPrompt renders one chunk as a plain transcript.
func BuildUserPrompt(chunk model.ConversationChunk) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Conversation excerpt (session %s, part %d):\n\n", chunk.SessionID, chunk.ChunkIndex+1)
	for _, msg := range chunk.Messages {
		sb.WriteString(msg.Role)
		sb.WriteString(": ")
		sb.WriteString(msg.Content)
		sb.WriteString("\n")
	}
	return sb.String()
}

// ChunkRef identifies a chunk in logs and in Memory.SourceChunkRef.
func ChunkRef(chunk model.ConversationChunk) string {
	return fmt.Sprintf("%s#%d", chunk.SessionID, chunk.ChunkIndex)
}
