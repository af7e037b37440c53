// Package report renders run reports.
//
// Writers exist for three output formats:
//   - SimpleWriter: plain text for the terminal
//   - JSONWriter: JSON for other tools
//   - MarkdownWriter: Markdown with a mermaid pie chart, for sharing
//
// Every writer renders a single *model.RunReport with Write and the reports
// of a multi-site batch with WriteBatch. The report data itself lives in the
// model package.
package report
