// Package canonical extracts authoritative content from heterogeneous post
// payloads. Canonicalize is a pure function: no I/O, no clock, same input
// always yields the same output. All storage decisions (merge policy,
// version counters) live in the store; this package only says what the
// content *is*, not whether it wins.
package canonical

import (
	"crypto/sha256"
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/scrypster/postvault/pkg/types"
)

// Content is the canonicalizer's verdict on a single payload.
type Content struct {
	Type           types.PostType
	ArticleTitle   string
	ArticleContent string
	ContentText    string
	ContentSource  types.ContentSource
	ContentStatus  types.ContentStatus
	ContentHash    string // empty when ContentText is empty
	QualityScore   int
}

// partialBodyThreshold is the minimum stripped-character count for an
// article body fetched by hydration to be trusted as complete. Bodies below
// it are accepted as partial: better than nothing, not trusted as the full
// article. Policy knob, not hard law.
const partialBodyThreshold = 25

// placeholderMinChars mirrors the placeholder rule: a body that held a URL
// and strips down to fewer than this many characters is a placeholder.
const placeholderMinChars = 10

var (
	urlRe        = regexp.MustCompile(`https?://\S+`)
	whitespaceRe = regexp.MustCompile(`\s+`)
)

// Canonicalize derives canonical content from a raw platform payload.
// writeSource labels the ingestion path (types.WriteSource*) and feeds both
// status derivation and the quality score's source-priority bonus.
func Canonicalize(raw *types.RawPost, writeSource string) Content {
	if raw == nil {
		return Content{
			Type:          types.TypePost,
			ContentSource: types.SourceUnknown,
			ContentStatus: types.StatusPending,
		}
	}

	c := Content{Type: detectType(raw)}

	// Whitespace-normalize every candidate text field before choosing.
	baseText := normalizeWhitespace(raw.Text)
	noteText := normalizeWhitespace(raw.NoteText)
	if raw.Article != nil {
		c.ArticleTitle = normalizeWhitespace(raw.Article.Title)
		c.ArticleContent = normalizeWhitespace(raw.Article.Body)
	}

	// Canonical body: article body, else long-form note, else base text.
	switch {
	case c.ArticleContent != "":
		c.ContentText = c.ArticleContent
		c.ContentSource = types.SourceArticle
	case noteText != "":
		c.ContentText = noteText
		c.ContentSource = types.SourceNoteTweet
	case baseText != "":
		c.ContentText = baseText
		c.ContentSource = types.SourceTweet
	default:
		c.ContentSource = types.SourceUnknown
	}

	placeholder := IsPlaceholder(c.ContentText)
	c.ContentStatus = deriveStatus(c, writeSource, placeholder)

	if c.ContentText != "" {
		c.ContentHash = fmt.Sprintf("%x", sha256.Sum256([]byte(c.ContentText)))
	}

	c.QualityScore = qualityScore(c, writeSource, placeholder)
	return c
}

// detectType classifies the payload shape. Article detection takes priority
// over reply/quote detection since an article tweet can itself be a reply;
// presence of the article sub-object is enough, even when it is empty.
func detectType(raw *types.RawPost) types.PostType {
	switch {
	case raw.Article != nil:
		return types.TypeArticle
	case raw.InReplyToID != "":
		return types.TypeReply
	case raw.QuotedID != "":
		return types.TypeQuote
	case raw.ThreadRoot:
		return types.TypeThreadRoot
	default:
		return types.TypePost
	}
}

// deriveStatus implements the status rules of the content state machine for
// a freshly canonicalized payload (never fetching/failed/missing/stale;
// those are worker outcomes, not payload properties).
func deriveStatus(c Content, writeSource string, placeholder bool) types.ContentStatus {
	fromHydration := writeSource == types.WriteSourceHydration || writeSource == types.WriteSourceBackfill

	if c.Type == types.TypeArticle {
		if c.ArticleContent != "" && !placeholder && strippedLen(c.ArticleContent) >= partialBodyThreshold {
			return types.StatusHydrated
		}
		if fromHydration {
			// The fetch tried and got something, however weak.
			return types.StatusPartial
		}
		return types.StatusPending
	}

	if c.ContentText != "" && !placeholder {
		return types.StatusHydrated
	}
	return types.StatusPending
}

// qualityScore computes the monotonic comparison key used by the store's
// merge policy to arbitrate between competing content versions.
func qualityScore(c Content, writeSource string, placeholder bool) int {
	score := 0
	if c.ArticleContent != "" {
		score += 100
	}
	if c.ContentText != "" && !placeholder {
		score += 20
	}
	lengthBonus := len(c.ContentText) / 200
	if lengthBonus > 50 {
		lengthBonus = 50
	}
	score += lengthBonus
	score += sourcePriority(writeSource)
	return score
}

// sourcePriority ranks ingestion paths: a deliberate fetch-by-ID is more
// likely to carry full content than a list/timeline payload.
func sourcePriority(writeSource string) int {
	switch writeSource {
	case types.WriteSourceHydration, types.WriteSourceBackfill:
		return 15
	case types.WriteSourceManual, types.WriteSourceLive:
		return 10
	case types.WriteSourceBookmark:
		return 5
	default:
		return 0
	}
}

// IsPlaceholder reports whether content is effectively just a raw link:
// either the whole body is a URL with only trailing punctuation, or removing
// all URLs and punctuation leaves fewer than placeholderMinChars characters
// while a URL was present. Placeholder content must never be classified
// hydrated.
func IsPlaceholder(text string) bool {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return false
	}

	urls := urlRe.FindAllString(trimmed, -1)
	if len(urls) == 0 {
		return false
	}

	// URL followed by nothing but punctuation.
	if rest := strings.TrimPrefix(trimmed, urls[0]); len(urls) == 1 && strings.HasPrefix(trimmed, urls[0]) {
		if strings.IndexFunc(rest, func(r rune) bool {
			return !unicode.IsPunct(r) && !unicode.IsSpace(r)
		}) == -1 {
			return true
		}
	}

	return strippedLen(trimmed) < placeholderMinChars
}

// strippedLen counts the characters that remain after removing URLs,
// punctuation, and whitespace.
func strippedLen(text string) int {
	withoutURLs := urlRe.ReplaceAllString(text, "")
	n := 0
	for _, r := range withoutURLs {
		if unicode.IsPunct(r) || unicode.IsSpace(r) || unicode.IsSymbol(r) {
			continue
		}
		n++
	}
	return n
}

// normalizeWhitespace collapses runs of whitespace to single spaces and
// trims the result.
func normalizeWhitespace(s string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(s, " "))
}
