package ollama

import "strings"

const summaryInstruction = "Clean sentence structure and summarize in 5 sentences:"

func buildSummaryPrompt(chunks []string) string {
	var sb strings.Builder
	sb.WriteString(summaryInstruction)
	sb.WriteString("\n\n")
	sb.WriteString(strings.Join(chunks, "\n\n"))
	return sb.String()
}
