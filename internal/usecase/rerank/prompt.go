package rerank

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/SPD-BES-2025-3/grupo1/internal/domain/feedback"
	"github.com/SPD-BES-2025-3/grupo1/internal/domain/listing"
)

const (
	feedbackTitleLen  = 60
	candidateTitleLen = 50
	candidateDescLen  = 80
	untitled          = "Sem título"

	// parsedReasoning is used when the model omits decision_reasoning.
	parsedReasoning = "Resposta processada com sucesso pelo LLM"
)

var (
	errNoJSONObject  = errors.New("no JSON object in response")
	errNoSelectedKey = errors.New("response has no selected_properties")
)

const answerTemplate = `{
  "decision_reasoning": "Por que estes imóveis combinam com as preferências",
  "should_show_more": true,
  "selected_properties": [
    {"id": "id_do_imovel", "reason": "Motivo da seleção"}
  ]
}`

func buildPrompt(s feedback.Session) string {
	var b strings.Builder

	b.WriteString("Você é um especialista em recomendação de imóveis. ")
	b.WriteString("Analise as opções e selecione os melhores imóveis.\n\n")
	b.WriteString("BUSCA: " + s.Query + "\n\n")

	b.WriteString("IMÓVEIS CURTIDOS:\n")
	writeFeedback(&b, s.Liked)

	b.WriteString("\nIMÓVEIS REJEITADOS:\n")
	writeFeedback(&b, s.Disliked)

	b.WriteString("\nOPÇÕES RESTANTES:\n")
	for i, h := range s.Remaining {
		b.WriteString(strconv.Itoa(i+1) + ". ID: " + h.ID + "\n")
		b.WriteString("   Título: " + truncate(title(h), candidateTitleLen) + "\n")
		b.WriteString("   Descrição: " + truncate(h.Description, candidateDescLen) + "\n\n")
	}

	b.WriteString("Com base nas preferências demonstradas, selecione os melhores imóveis das opções restantes.\n\n")
	b.WriteString("RESPONDA APENAS COM JSON VÁLIDO:\n")
	b.WriteString(answerTemplate)
	return b.String()
}

func writeFeedback(b *strings.Builder, hits []listing.Hit) {
	if len(hits) == 0 {
		b.WriteString("- Nenhum ainda\n")
		return
	}
	for _, h := range hits {
		b.WriteString("- " + truncate(title(h), feedbackTitleLen) + "\n")
	}
}

func title(h listing.Hit) string {
	if h.Title == "" {
		return untitled
	}
	return h.Title
}

// truncate cuts s to at most n runes.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// parseDecision extracts the decision object from a model response that may
// be wrapped in a markdown code fence or surrounded by prose.
func parseDecision(raw string) (feedback.Decision, error) {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")

	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end < start {
		return feedback.Decision{}, errNoJSONObject
	}

	var parsed struct {
		Reasoning *string           `json:"decision_reasoning"`
		ShowMore  *bool             `json:"should_show_more"`
		Selected  *[]modelSelection `json:"selected_properties"`
	}
	if err := json.Unmarshal([]byte(s[start:end+1]), &parsed); err != nil {
		return feedback.Decision{}, fmt.Errorf("decode decision: %w", err)
	}
	if parsed.Selected == nil {
		return feedback.Decision{}, errNoSelectedKey
	}

	selected := make([]feedback.Selection, len(*parsed.Selected))
	for i, sel := range *parsed.Selected {
		selected[i] = feedback.Selection{ID: scalarText(sel.ID), Reason: scalarText(sel.Reason)}
	}

	d := feedback.Decision{
		Reasoning: parsedReasoning,
		ShowMore:  true,
		Selected:  selected,
	}
	if parsed.Reasoning != nil && *parsed.Reasoning != "" {
		d.Reasoning = *parsed.Reasoning
	}
	if parsed.ShowMore != nil {
		d.ShowMore = *parsed.ShowMore
	}
	return d, nil
}

// modelSelection keeps the raw values: models answer ids as strings or numbers.
type modelSelection struct {
	ID     json.RawMessage `json:"id"`
	Reason json.RawMessage `json:"reason"`
}

// scalarText returns a JSON string unquoted and any other value as its JSON
// text. Absent and null values become "".
func scalarText(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	if t := strings.TrimSpace(string(raw)); t != "null" {
		return t
	}
	return ""
}
