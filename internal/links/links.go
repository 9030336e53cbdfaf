// Package links extracts graph-participating links from Markdown text.
//
// A link participates when its query parameters mark it: the link
// indicator (`link`) qualifies only on the exact values "true" or "1",
// while the embed indicator (`embed`) qualifies whenever it is present
// and not (case-insensitively) "false". The asymmetry is deliberate and
// load-bearing; do not unify the two checks.
package links

import (
	"fmt"
	"log/slog"
	"net/url"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/starford/ansuz/internal/apperr"
)

var linkRe = regexp.MustCompile(`\[(.*?)\]\(([^)]*)\)`)

// EmbedKind describes whether a link should later be substituted inline.
type EmbedKind int

const (
	// EmbedNone links are followed for graph discovery but never
	// substituted inline.
	EmbedNone EmbedKind = iota
	// EmbedWhole substitutes the entire target document.
	EmbedWhole
	// EmbedRange substitutes a line-bounded excerpt of the target.
	EmbedRange
)

// String returns the embed kind name.
func (k EmbedKind) String() string {
	switch k {
	case EmbedWhole:
		return "whole"
	case EmbedRange:
		return "range"
	default:
		return "none"
	}
}

// LineRange is a 1-based inclusive line range. From 0 means "from the
// first line"; ToEnd true means "through the last line".
type LineRange struct {
	From  int  `json:"from"`
	To    int  `json:"to"`
	ToEnd bool `json:"toEnd"`
}

// DocumentLink is one qualifying link occurrence in a document.
type DocumentLink struct {
	// AnchorText is the bracketed anchor as written.
	AnchorText string `json:"anchorText"`
	// TargetPath is the absolute path of the linked document.
	TargetPath string `json:"targetPath"`
	// RawTarget is the original target string inside the parentheses,
	// kept so the renderer can re-locate the occurrence in source text.
	RawTarget string `json:"rawTarget"`
	// Embed says whether the link is substituted inline when rendering.
	Embed EmbedKind `json:"embed"`
	// Range is the excerpt bounds; meaningful only when Embed is EmbedRange.
	Range LineRange `json:"range,omitempty"`
}

// Extract scans text for qualifying [anchor](target) links and returns
// them in occurrence order. Non-qualifying links are dropped; a single
// malformed target is skipped and logged without aborting extraction.
func Extract(sourcePath, text string, logger *slog.Logger) []DocumentLink {
	if logger == nil {
		logger = slog.Default()
	}
	sourceDir := filepath.Dir(sourcePath)

	var out []DocumentLink
	for _, m := range linkRe.FindAllStringSubmatch(text, -1) {
		anchor, rawTarget := m[1], m[2]

		pathPart, queryPart, _ := strings.Cut(rawTarget, "?")
		pathPart = strings.ReplaceAll(pathPart, "&amp;", "&")
		queryPart = strings.ReplaceAll(queryPart, "&amp;", "&")

		u, err := url.Parse(pathPart + "?" + queryPart)
		if err != nil {
			logger.Warn("links: malformed target skipped",
				slog.String("source", sourcePath),
				slog.String("target", rawTarget),
				slog.String("error", fmt.Errorf("%w: %v", apperr.ErrLinkResolution, err).Error()))
			continue
		}
		q := u.Query()

		linkVal := q.Get("link")
		_, hasEmbed := q["embed"]
		embedVal := q.Get("embed")

		qualifies := linkVal == "true" || linkVal == "1" ||
			(hasEmbed && !strings.EqualFold(embedVal, "false"))
		if !qualifies {
			continue
		}

		dl := DocumentLink{
			AnchorText: anchor,
			TargetPath: resolveTarget(sourceDir, pathPart),
			RawTarget:  rawTarget,
			Embed:      EmbedNone,
		}
		if hasEmbed && !strings.EqualFold(embedVal, "false") {
			dl.Embed, dl.Range = parseEmbed(sourcePath, rawTarget, embedVal, logger)
		}
		out = append(out, dl)
	}
	return out
}

// resolveTarget resolves a link path against the source document's
// directory and cleans the result.
func resolveTarget(sourceDir, pathPart string) string {
	if filepath.IsAbs(pathPart) {
		return filepath.Clean(pathPart)
	}
	return filepath.Join(sourceDir, pathPart)
}

// parseEmbed interprets an embed indicator value as a "from-to" line
// range. An empty from means line 1 and an empty or "end" to means the
// last line. Anything that does not parse, or an inverted range,
// degrades to embedding the whole document.
func parseEmbed(sourcePath, rawTarget, val string, logger *slog.Logger) (EmbedKind, LineRange) {
	from, to, ok := strings.Cut(val, "-")
	if !ok {
		return EmbedWhole, LineRange{}
	}

	degrade := func(reason string) (EmbedKind, LineRange) {
		logger.Warn("links: embed range degraded to whole",
			slog.String("source", sourcePath),
			slog.String("target", rawTarget),
			slog.String("value", val),
			slog.String("reason", reason))
		return EmbedWhole, LineRange{}
	}

	r := LineRange{}
	if from != "" {
		n, err := strconv.Atoi(from)
		if err != nil || n < 0 {
			return degrade("invalid from")
		}
		r.From = n
	}
	if to == "" || strings.EqualFold(to, "end") {
		r.ToEnd = true
	} else {
		n, err := strconv.Atoi(to)
		if err != nil || n < 0 {
			return degrade("invalid to")
		}
		r.To = n
	}
	if !r.ToEnd && r.From > r.To {
		return degrade("inverted range")
	}
	return EmbedRange, r
}
