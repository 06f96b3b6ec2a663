package snapshot

import (
	"cmp"
	"slices"
	"strings"
	"time"

	"github.com/JaimeStill/gradebook/internal/core"
)

func maxScore(a Assignment) float64 {
	switch {
	case a.MaxScore != nil && *a.MaxScore > 0:
		return *a.MaxScore
	case a.MaxPoints != nil && *a.MaxPoints > 0:
		return *a.MaxPoints
	case a.QuizData != nil && a.QuizData.TotalPoints != nil && *a.QuizData.TotalPoints > 0:
		return *a.QuizData.TotalPoints
	}
	return defaultMaxScore
}

func studentName(s Student) string {
	if name := strings.TrimSpace(s.Name); name != "" {
		return name
	}
	return strings.TrimSpace(strings.Join([]string{s.FirstName, s.LastName}, " "))
}

func utc(t *time.Time) *time.Time {
	if t == nil || t.IsZero() {
		return nil
	}
	v := t.UTC()
	return &v
}

// content returns nil when the provider omitted both the text and the attachment
// list. Attachments are put in a canonical order so reordering alone never reads
// as a content change.
func content(s Submission) *core.Content {
	if s.Content == nil && s.Attachments == nil {
		return nil
	}

	c := &core.Content{Attachments: make([]core.Attachment, 0, len(s.Attachments))}
	if s.Content != nil {
		c.Text = *s.Content
	}
	for _, a := range s.Attachments {
		c.Attachments = append(c.Attachments, core.Attachment{
			Kind:  normalize(a.Type),
			ID:    a.ID,
			Title: a.Title,
			URL:   cmp.Or(a.URL, a.AlternateLink),
		})
	}
	slices.SortStableFunc(c.Attachments, func(x, y core.Attachment) int {
		return cmp.Or(
			cmp.Compare(x.ID, y.ID),
			cmp.Compare(x.URL, y.URL),
			cmp.Compare(x.Kind, y.Kind),
			cmp.Compare(x.Title, y.Title),
		)
	})
	return c
}

// embeddedGrade carries a provider grade forward when it has a score. The
// assignment's maximum fills in a missing grade maximum.
func embeddedGrade(g *Grade, assignmentMax float64) *core.EmbeddedGrade {
	if g == nil || g.Score == nil {
		return nil
	}

	limit := assignmentMax
	if g.MaxScore != nil && *g.MaxScore > 0 {
		limit = *g.MaxScore
	}

	return &core.EmbeddedGrade{
		Score:    *g.Score,
		MaxScore: limit,
		Feedback: g.Feedback,
		Origin:   normalize(g.GradedBy),
		GradedAt: utc(g.GradedAt),
	}
}
