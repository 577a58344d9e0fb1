package domain

import (
	"strings"
	"time"
)

// Ключи метаданных, которые должны быть у каждого документа знаний.
const (
	MetaLanguage = "language"
	MetaCategory = "category"
	MetaTitle    = "title"
	MetaSeverity = "severity"
)

const LanguageGeneral = "general"

// KnowledgeDocument - документ базы знаний. Иммутабелен после ингеста,
// удаляется только явным Delete.
type KnowledgeDocument struct {
	ID        string
	Text      string
	Embedding []float32
	Metadata  map[string]string
	CreatedAt time.Time
}

func (d KnowledgeDocument) Language() string { return d.Metadata[MetaLanguage] }
func (d KnowledgeDocument) Category() string { return d.Metadata[MetaCategory] }

// MatchesFilters проверяет точное совпадение всех ключей фильтра (конъюнкция).
func (d KnowledgeDocument) MatchesFilters(filters map[string]string) bool {
	for k, v := range filters {
		if d.Metadata[k] != v {
			return false
		}
	}
	return true
}

func ValidateDocument(text string, metadata map[string]string) error {
	if strings.TrimSpace(text) == "" {
		return ErrEmptyDocument
	}
	if strings.TrimSpace(metadata[MetaCategory]) == "" {
		return ErrMissingCategory
	}
	return nil
}

// ScoredDocument - документ с косинусной близостью к запросу.
type ScoredDocument struct {
	Document   KnowledgeDocument
	Similarity float64
}

// RetrievalResult отсортирован по убыванию Similarity, длина <= k.
type RetrievalResult []ScoredDocument

// Texts возвращает тексты документов в порядке убывания релевантности.
func (r RetrievalResult) Texts() []string {
	out := make([]string, len(r))
	for i, sd := range r {
		out[i] = sd.Document.Text
	}
	return out
}
