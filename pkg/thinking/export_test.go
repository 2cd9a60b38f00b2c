package thinking

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExportChainSummaryTruncatesOnRuneBoundary(t *testing.T) {
	// 100 two-byte runes: the byte cutoff falls inside a rune.
	chain := &Chain{Steps: []Step{{Content: strings.Repeat("é", 100)}}}

	out := exportChain(chain, VisibilitySummary)
	require.Len(t, out.Steps, 1)

	got := out.Steps[0].Content
	assert.True(t, utf8.ValidString(got))
	assert.True(t, strings.HasSuffix(got, "..."))
	assert.LessOrEqual(t, len(got), 160)
}

func TestExportChainSummaryTruncatesASCII(t *testing.T) {
	chain := &Chain{Steps: []Step{{Content: strings.Repeat("x", 200)}}}

	out := exportChain(chain, VisibilitySummary)
	assert.Equal(t, strings.Repeat("x", 157)+"...", out.Steps[0].Content)
}

func TestExportChainSummaryKeepsShortContent(t *testing.T) {
	chain := &Chain{Steps: []Step{{Content: "short"}}}

	out := exportChain(chain, VisibilitySummary)
	assert.Equal(t, "short", out.Steps[0].Content)
}
