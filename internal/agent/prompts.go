package agent

import (
	"fmt"
	"strings"
)

// Retrieval tasks select the opening prompt template.
const (
	TaskCode    = "code"
	TaskQA      = "qa"
	TaskDefault = "default"
)

// UpdateContextKeyword asks the proxy for more documents.
const UpdateContextKeyword = "UPDATE CONTEXT"

const promptDefault = `You're a retrieval augmented chatbot. You answer the user's questions based on your own knowledge and the context provided by the user.
If you can't answer the question with or without the current context, reply exactly ` + "`" + UpdateContextKeyword + "`" + `.
Keep your answer as short as possible.

User's question is: %s

Context is: %s
`

const promptCode = `You're a retrieval augmented coding assistant. You answer the user's questions based on your own knowledge and the context provided by the user.
If you can't answer the question with or without the current context, reply exactly ` + "`" + UpdateContextKeyword + "`" + `.
For code generation, you must obey the following rules:
Rule 1. You MUST NOT install any packages because all the packages needed are already installed.
Rule 2. You must follow the formats below to write your code:
` + "```language\n# your code\n```" + `

User's question is: %s

Context is: %s
`

const promptQA = `You're a retrieval augmented chatbot. You answer the user's questions based on your own knowledge and the context provided by the user.
If you can't answer the question with or without the current context, reply exactly ` + "`" + UpdateContextKeyword + "`" + `.
Your answer should be as precise as possible.

User's question is: %s

Context is: %s
`

// ValidTask reports whether task names a known prompt template.
func ValidTask(task string) bool {
	switch strings.ToLower(strings.TrimSpace(task)) {
	case TaskCode, TaskQA, TaskDefault:
		return true
	}
	return false
}

// BuildPrompt fills the template for task with the problem and retrieved context.
func BuildPrompt(task, problem, context string) string {
	template := promptDefault
	switch strings.ToLower(strings.TrimSpace(task)) {
	case TaskCode:
		template = promptCode
	case TaskQA:
		template = promptQA
	}
	return fmt.Sprintf(template, problem, context)
}

// wantsUpdateContext matches the keyword near the start or end of a reply.
func wantsUpdateContext(reply string) bool {
	upper := strings.ToUpper(strings.TrimSpace(reply))
	if len(upper) == 0 {
		return false
	}
	head := upper
	if len(head) > 24 {
		head = head[:24]
	}
	tail := upper
	if len(tail) > 24 {
		tail = tail[len(tail)-24:]
	}
	return strings.Contains(head, UpdateContextKeyword) || strings.Contains(tail, UpdateContextKeyword)
}

func containsCode(reply string) bool {
	return strings.Count(reply, "```") >= 2
}

func isTermination(reply string) bool {
	return strings.Contains(reply, TerminateKeyword)
}
