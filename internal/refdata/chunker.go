package refdata

import "fmt"

// charsPerToken approximates the tokenizer the agent platform uses for its
// context window; four characters per token is close enough for chunking
// display text.
const charsPerToken = 4

// ChunkRecords splits records into consecutive chunks whose approximate
// token counts stay under maxTokens. Records are never split; a record
// larger than the budget gets a chunk of its own.
func ChunkRecords(records []Record, maxTokens int) [][]Record {
	var chunks [][]Record
	var chunk []Record
	tokens := 0

	for _, rec := range records {
		n := approxTokens(rec)
		if len(chunk) > 0 && tokens+n > maxTokens {
			chunks = append(chunks, chunk)
			chunk = nil
			tokens = 0
		}
		chunk = append(chunk, rec)
		tokens += n
	}

	if len(chunk) > 0 {
		chunks = append(chunks, chunk)
	}
	return chunks
}

func approxTokens(rec Record) int {
	return len(fmt.Sprint(rec))/charsPerToken + 1
}
