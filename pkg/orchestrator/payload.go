package orchestrator

import "github.com/dtnitsch/quote-origin/models"

// TextSource resolves a quote id to its untruncated text.
type TextSource interface {
	FullText(id string) (string, bool)
}

// NewPayloadBuilder returns a builder that sends each quote's full text,
// never its preview, together with the article context. Quotes unknown to
// texts fall back to their own Text.
func NewPayloadBuilder(article models.Article, texts TextSource, keywords []string) PayloadBuilder {
	articleText := article.ToPlainText()
	if keywords == nil {
		keywords = []string{}
	}
	return func(q models.Quote) models.OriginRequest {
		content := q.Text
		if texts != nil {
			if full, ok := texts.FullText(q.ID); ok {
				content = full
			}
		}
		return models.OriginRequest{
			QuoteID:      q.ID,
			QuoteContent: content,
			ArticleText:  articleText,
			ArticleURL:   article.URL,
			ArticleTitle: article.Title,
			Keywords:     keywords,
		}
	}
}
