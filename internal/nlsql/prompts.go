package nlsql

import (
	"fmt"
	"strings"

	"bichat/internal/store"
)

func sqlPrompt(d sqlDialect, schema, question string, scope Scope) string {
	return fmt.Sprintf(`You are an AI data analyst helping business users explore their data.

**Database Schema:**

%s
**User Question:** %q

**Task:** Generate one SQL query that answers the question.

**Query Types:**
1. **search** - Find specific records
2. **analysis** - Statistics and aggregations

**Response Format (JSON only):**
{
  "query_type": "analysis",
  "explanation": "What the query computes",
  "sql_query": "SELECT ..."
}

**SQL Guidelines:**
- Database engine is %s
- Use only the tables and columns listed above, spelled exactly as shown
- Quote identifiers that contain spaces or capitals with double quotes
- Summarise with GROUP BY when the question asks for totals or breakdowns
- Return only the columns the question needs
- %s
- A single SELECT statement, no trailing semicolon
%s
Return ONLY JSON, no other text.`, schema, question, d.Name, d.RowLimit, scopeRules(scope))
}

func scopeRules(scope Scope) string {
	if scope.IsZero() {
		return ""
	}
	name := scope.CompanyName
	if name == "" {
		name = scope.CompanyCode
	}
	return fmt.Sprintf(`
**Company Scope:**
- Company Code: %s
- Company: %s
- Always filter on the company code column = %s in the WHERE clause
`, scope.CompanyCode, name, store.QuoteLiteral(scope.CompanyCode))
}

func correctionPrompt(base string, attempt int, previousSQL, sqlError string) string {
	return fmt.Sprintf(`%s

**IMPORTANT - SQL ERROR CORRECTION (Attempt %d):**

Your previous SQL query failed with an error. Analyze the error and generate a corrected query.

Previous SQL Query:
%s

Error Message:
%s

Common issues:
- Column names must match the schema exactly (check capitalization)
- Aggregate functions need a matching GROUP BY
- Functions must exist in this database engine

Return ONLY the corrected JSON with the fixed sql_query field.`, base, attempt, previousSQL, sqlError)
}

func routerPrompt(tables []string, descriptions map[string]string, question string) string {
	var list strings.Builder
	for _, t := range tables {
		d := descriptions[t]
		if d == "" {
			d = "no description"
		}
		fmt.Fprintf(&list, "- %s: %s\n", t, d)
	}
	return fmt.Sprintf(`You are a Table Router Agent. Decide which single table is most appropriate to answer the user's question.

AVAILABLE TABLES:
%s
ROUTING RULES:
1. Identify what type of data the question needs (details, totals, reference data)
2. Choose the table whose content best matches
3. If several tables could help, pick the main one

RESPONSE FORMAT:
Return ONLY a JSON object:
{"selected_table": "table_name", "confidence": "high/medium/low", "reasoning": "brief explanation"}

USER QUESTION: %q`, list.String(), question)
}

func describePrompt(data, sql, question string, rows int) string {
	return fmt.Sprintf(`You are a data analyst assistant. Write a clear, concise markdown description of what the data shows.

IMPORTANT RULES:
- If the data is empty or contains no meaningful information, respond ONLY with: %q
- Use business-friendly language and keep it short
- Mention the number of records analyzed (%d)
- Highlight key metrics, trends or anomalies and actionable insights

DATA TO ANALYZE:
%s

SQL QUERY EXECUTED:
%s

USER QUESTION:
%s`, NoDataMessage, rows, data, sql, question)
}
