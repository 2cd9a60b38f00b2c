package thinking

import (
	"context"
	"sort"
	"strings"

	"github.com/XiaoConstantine/ruminate/pkg/core"
	"github.com/XiaoConstantine/ruminate/pkg/errors"
	"github.com/XiaoConstantine/ruminate/pkg/logging"
)

// SearchDepth selects how thorough a web search should be.
type SearchDepth string

const (
	SearchBasic    SearchDepth = "basic"
	SearchAdvanced SearchDepth = "advanced"
)

// SearchRequest is the input to the injected search capability.
type SearchRequest struct {
	Query      string
	MaxResults int
	Depth      SearchDepth
}

// SearchResult is one hit returned by the search capability.
type SearchResult struct {
	Title   string  `json:"title"`
	URL     string  `json:"url"`
	Snippet string  `json:"snippet"`
	Score   float64 `json:"score,omitempty"` // relevance, filled in by the augmenter
}

// SearchClient is the web-search capability consumed, never implemented,
// by this package.
type SearchClient interface {
	Search(ctx context.Context, req SearchRequest) ([]SearchResult, error)
}

// ContextRetriever is the injected codebase-context capability.
type ContextRetriever func(ctx context.Context, need ContextNeed) (string, error)

// ResearchResult is the synthesized outcome of one research operation.
type ResearchResult struct {
	Need       ResearchNeed   `json:"need"`
	Results    []SearchResult `json:"results,omitempty"`
	Synthesis  string         `json:"synthesis"`
	Confidence float64        `json:"confidence"`

	// Tokens is the generation cost of the synthesis, for budget accounting.
	Tokens int `json:"tokens,omitempty"`
}

// Augmenter detects uncertainty in recent reasoning and resolves it through
// the injected search capability.
type Augmenter struct {
	llm    core.LLM
	search SearchClient
}

// NewAugmenter creates a research augmenter.
func NewAugmenter(llm core.LLM, search SearchClient) *Augmenter {
	return &Augmenter{llm: llm, search: search}
}

// uncertaintyMarkers is the fixed lexicon of phrases treated as uncertainty
// signals in step content.
var uncertaintyMarkers = []string{
	"not sure",
	"unsure",
	"need to verify",
	"need to check",
	"unclear",
	"uncertain",
	"might be",
	"may have changed",
	"latest",
	"don't know",
	"unknown",
	"assuming",
}

// lowConfidenceThreshold marks a step as uncertain regardless of wording.
const lowConfidenceThreshold = 0.6

// DetectUncertainty scans the most recent five steps for uncertainty signals
// and turns each into a concrete research need. Steps that yield no
// extractable question are skipped.
func (a *Augmenter) DetectUncertainty(steps []Step) []ResearchNeed {
	if len(steps) > 5 {
		steps = steps[len(steps)-5:]
	}

	var needs []ResearchNeed
	for _, step := range steps {
		lower := strings.ToLower(step.Content)

		marked := false
		for _, marker := range uncertaintyMarkers {
			if strings.Contains(lower, marker) {
				marked = true
				break
			}
		}
		if !marked && step.Confidence >= lowConfidenceThreshold {
			continue
		}

		question, ok := extractQuestion(step.Content)
		if !ok {
			continue
		}

		urgency := UrgencyMedium
		if step.Confidence < 0.4 {
			urgency = UrgencyHigh
		}
		needs = append(needs, ResearchNeed{
			Question:     question,
			SearchType:   classifyQuestion(question),
			Urgency:      urgency,
			SourceStepID: step.ID,
		})
	}
	return needs
}

// extractQuestion pulls a concrete question from step content by pattern:
// interrogative sentences, "need to X" phrasing, or "uncertain about X"
// phrasing. Returns false when nothing usable is present.
func extractQuestion(content string) (string, bool) {
	// Interrogative sentence ending in a question mark.
	for _, sentence := range strings.Split(content, ".") {
		if idx := strings.Index(sentence, "?"); idx != -1 {
			q := strings.TrimSpace(sentence[:idx+1])
			if len(q) > 8 {
				return q, true
			}
		}
	}

	lower := strings.ToLower(content)
	for _, prefix := range []string{"need to verify ", "need to check ", "need to find out "} {
		if idx := strings.Index(lower, prefix); idx != -1 {
			rest := clipSentence(content[idx+len(prefix):])
			if rest != "" {
				return "What is known about " + rest + "?", true
			}
		}
	}
	for _, prefix := range []string{"uncertain about ", "unsure about ", "not sure about "} {
		if idx := strings.Index(lower, prefix); idx != -1 {
			rest := clipSentence(content[idx+len(prefix):])
			if rest != "" {
				return "What is known about " + rest + "?", true
			}
		}
	}

	return "", false
}

// clipSentence returns text up to the first sentence terminator.
func clipSentence(s string) string {
	if idx := strings.IndexAny(s, ".?!\n"); idx != -1 {
		s = s[:idx]
	}
	return strings.TrimSpace(s)
}

// classifyQuestion assigns a search type based on keyword signals.
func classifyQuestion(question string) SearchType {
	lower := strings.ToLower(question)
	switch {
	case strings.Contains(lower, "api") || strings.Contains(lower, "function") ||
		strings.Contains(lower, "library") || strings.Contains(lower, "code"):
		return SearchCode
	case strings.Contains(lower, "documentation") || strings.Contains(lower, "spec") ||
		strings.Contains(lower, "how to"):
		return SearchDocs
	case strings.Contains(lower, "paper") || strings.Contains(lower, "research") ||
		strings.Contains(lower, "study"):
		return SearchAcademic
	default:
		return SearchGeneral
	}
}

// enhanceQuery tailors the raw question to its search type.
func enhanceQuery(need ResearchNeed) string {
	q := strings.TrimSuffix(strings.TrimSpace(need.Question), "?")
	switch need.SearchType {
	case SearchCode:
		return q + " code example"
	case SearchDocs:
		return q + " official documentation"
	case SearchAcademic:
		return q + " research paper"
	default:
		return q
	}
}

// Research executes one research need end-to-end: query enhancement, search,
// relevance scoring, and synthesis. A failed search degrades to an empty
// result set with a "no information found" synthesis; a provider failure
// during synthesis propagates.
func (a *Augmenter) Research(ctx context.Context, need ResearchNeed) (*ResearchResult, error) {
	logger := logging.GetLogger()

	if err := errors.CheckContext(ctx, "research"); err != nil {
		return nil, err
	}

	results, err := a.search.Search(ctx, SearchRequest{
		Query:      enhanceQuery(need),
		MaxResults: 5,
		Depth:      SearchBasic,
	})
	if err != nil {
		logger.Warn(ctx, "Search failed for %q: %v", need.Question, err)
		return &ResearchResult{
			Need:      need,
			Synthesis: "No information found; the search could not be completed.",
		}, nil
	}
	if len(results) == 0 {
		return &ResearchResult{
			Need:      need,
			Synthesis: "No information found for this question.",
		}, nil
	}

	// Score each result by the fraction of query terms present in its
	// title and snippet, then rank best-first.
	terms := queryTerms(need.Question)
	var relevanceSum float64
	for i := range results {
		results[i].Score = relevance(terms, results[i])
		relevanceSum += results[i].Score
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	resp, err := a.llm.Generate(ctx, buildResearchSynthesisPrompt(need.Question, results),
		core.WithTemperature(0.3))
	if err != nil {
		return nil, errors.Wrap(err, errors.GenerationFailed, "research synthesis failed")
	}

	volumeScore := float64(len(results)) / 5
	if volumeScore > 1 {
		volumeScore = 1
	}
	meanRelevance := relevanceSum / float64(len(results))

	return &ResearchResult{
		Need:       need,
		Results:    results,
		Synthesis:  resp.Content,
		Confidence: 0.3*volumeScore + 0.7*meanRelevance,
		Tokens:     resp.Usage.Total(),
	}, nil
}

// queryTerms tokenizes a question into lowercase terms, dropping short words.
func queryTerms(question string) []string {
	var terms []string
	for _, word := range strings.Fields(strings.ToLower(question)) {
		word = strings.Trim(word, "?,.!\"'()")
		if len(word) > 2 {
			terms = append(terms, word)
		}
	}
	return terms
}

// relevance returns the fraction of query terms found in title+snippet.
func relevance(terms []string, result SearchResult) float64 {
	if len(terms) == 0 {
		return 0
	}
	haystack := strings.ToLower(result.Title + " " + result.Snippet)
	found := 0
	for _, term := range terms {
		if strings.Contains(haystack, term) {
			found++
		}
	}
	return float64(found) / float64(len(terms))
}
