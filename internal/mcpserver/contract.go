package mcpserver

// DocumentFormatContract is the canonical format for indexed documents,
// exposed as an MCP resource so agents author compatible files.
const DocumentFormatContract = "# Ansuz Document Format\n\n" +
	"Documents are Markdown files with optional YAML front matter:\n\n" +
	"```markdown\n" +
	"---\n" +
	"description: One-line summary an agent can select the document by\n" +
	"globs: \"**/*.ts, **/*.tsx\"   # string or list; matching open files auto-include this doc\n" +
	"alwaysApply: false            # true includes the doc in every context\n" +
	"---\n" +
	"Body text with optional graph links.\n" +
	"```\n\n" +
	"## Links\n\n" +
	"Standard Markdown links participate in the context graph only when a\n" +
	"query parameter marks them:\n\n" +
	"- `[guide](./guide.md?link=true)` — follow for context, referenced only.\n" +
	"  The `link` value must be exactly `true` or `1`.\n" +
	"- `[setup](./setup.md?embed=true)` — inline the whole target document.\n" +
	"- `[steps](./setup.md?embed=3-10)` — inline lines 3-10 (1-based,\n" +
	"  inclusive). Open forms: `embed=-10`, `embed=3-`, `embed=3-end`.\n" +
	"- `embed=false` (any letter case) disables the link entirely.\n\n" +
	"Links without these parameters are ordinary Markdown and are ignored\n" +
	"by the assembler.\n"
