package notes

import (
	"context"
	"log/slog"
	"strings"

	"github.com/giyikalim/smart-notes/internal/ai"
	"github.com/giyikalim/smart-notes/internal/analyzer"
	"github.com/giyikalim/smart-notes/internal/apperr"
)

const (
	fallbackTitleRunes   = 60
	fallbackSummaryRunes = 200
)

// Suggest asks the AI endpoint for a title and summary. When the endpoint
// is unset or fails, a locally derived suggestion is returned instead with
// Fallback set; only blank content is an error.
func (s *Service) Suggest(ctx context.Context, content string) (*ai.Suggestion, error) {
	if strings.TrimSpace(content) == "" {
		return nil, apperr.Invalid("content", "must not be empty")
	}

	if s.ai != nil {
		sug, err := s.ai.Suggest(ctx, content)
		if err == nil {
			s.metrics.Suggestion(false)
			return sug, nil
		}
		s.logger.Warn("ai suggestion failed, using local fallback", slog.Any("error", err))
		out := s.fallback(content)
		out.Error = err.Error()
		return out, nil
	}
	return s.fallback(content), nil
}

func (s *Service) fallback(content string) *ai.Suggestion {
	title := strings.TrimSpace(content)
	if i := strings.IndexAny(title, ".!?"); i >= 0 {
		if head := strings.TrimSpace(title[:i]); head != "" {
			title = head
		}
	}
	s.metrics.Suggestion(true)
	return &ai.Suggestion{
		Title:     analyzer.Truncate(title, fallbackTitleRunes),
		Summary:   analyzer.Truncate(strings.TrimSpace(content), fallbackSummaryRunes),
		Language:  s.analyzer.DetectLanguage(content),
		WordCount: analyzer.WordCount(content),
		Fallback:  true,
		Timestamp: s.now().UTC(),
	}
}
