package pipeline

import (
	"fmt"
	"strings"

	"github.com/helixir/paper-ingest-service/internal/domain"
)

// noteUnavailable is the retrieval note for candidates with no usable
// open-access PDF.
const noteUnavailable = "OA PDF unavailable; stored abstract-only note."

// buildNote renders the abstract-only markdown note: an H1 title, a bullet
// metadata block, and the abstract under its own heading. The format is
// fixed; the knowledge store indexes these notes as markdown documents.
func buildNote(c *domain.Candidate, note string) string {
	var b strings.Builder

	title := c.Title
	if title == "" {
		title = c.ShortID
	}
	fmt.Fprintf(&b, "# %s\n\n", title)

	fmt.Fprintf(&b, "- OpenAlex ID: %s\n", c.ID)
	if c.DOI != "" {
		fmt.Fprintf(&b, "- DOI: %s\n", c.DOI)
	}
	if c.PublicationYear != 0 {
		fmt.Fprintf(&b, "- Year: %d\n", c.PublicationYear)
	}
	fmt.Fprintf(&b, "- Open Access: %s (%s)\n", yesNo(c.IsOpenAccess), c.OAStatus)
	fmt.Fprintf(&b, "- Retrieval mode: %s\n", domain.RetrievalModeAbstractOnly)
	fmt.Fprintf(&b, "- Note: %s\n", note)

	b.WriteString("\n## Abstract\n\n")
	if c.Abstract != "" {
		b.WriteString(c.Abstract)
		b.WriteString("\n")
	} else {
		b.WriteString("No abstract available.\n")
	}

	return b.String()
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}
