// Package prompt renders the completion prompt for one question.
package prompt

import (
	"strings"
)

const genericDialect = "SQL"

// Assembler renders prompts for one SQL dialect, e.g. "DuckDB" or
// "PostgreSQL". The zero value targets generic SQL.
type Assembler struct {
	Dialect string
}

// Assemble renders the prompt for generic SQL.
func Assemble(databaseID, schemaText, exampleText, question string) string {
	return Assembler{}.Assemble(databaseID, schemaText, exampleText, question)
}

// Assemble builds four sections in fixed order: role and database, schema,
// examples, then the question with its output rules. Inputs are never
// truncated.
func (a Assembler) Assemble(databaseID, schemaText, exampleText, question string) string {
	dialect := strings.TrimSpace(a.Dialect)
	if dialect == "" {
		dialect = genericDialect
	}

	var b strings.Builder
	b.WriteString("You are a " + dialect + " expert. Given an input question, create a syntactically correct " + dialect + " query for the database '" + databaseID + "'.\n\n")

	b.WriteString("Schema:\n")
	b.WriteString(strings.TrimSpace(schemaText))
	b.WriteString("\n\n")

	b.WriteString("Examples:\n")
	b.WriteString(strings.TrimSpace(exampleText))
	b.WriteString("\n\n")

	b.WriteString("Question: " + strings.TrimSpace(question) + "\n\n")
	b.WriteString("Instructions:\n")
	b.WriteString("- Use only the tables and columns listed in the schema above.\n")
	b.WriteString("- Do not invent table or column names.\n")
	b.WriteString("- Important: Return ONLY the SQL query without markdown, explanations, or code blocks.\n")
	return b.String()
}
