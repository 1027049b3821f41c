// Package services – RAGService
//
// This file implements the retrieval-augmented response pipeline. A user
// message is embedded, the most similar reference documents are retrieved,
// and the generation model is prompted with those examples plus a fixed set
// of guidelines and crisis resources.
//
// Respond never returns an error: any failure anywhere in the pipeline
// (embedding, retrieval, generation) collapses to a fixed response that
// carries the crisis helplines. A broken model must not leave a person in
// distress staring at a stack trace.
package services

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/serenline/go-support-backend/internal/store"
)

// DefaultTopK is how many reference documents are retrieved per query.
const DefaultTopK = 3

// contextSeparator joins retrieved documents inside the prompt.
const contextSeparator = "\n\n---\n\n"

// noContextPlaceholder stands in when retrieval returns nothing.
const noContextPlaceholder = "No specific examples found, but I'm here to help."

// FallbackResponse is returned whenever the pipeline fails. It must always
// carry the crisis contact options.
const FallbackResponse = `I understand you're reaching out for support. While I'm here to help,
I'm experiencing a technical issue right now.

If you're in immediate distress, please:
- Call 111 (Suicide & Crisis Lifeline)
- Text in Whatsapp to +7 708 106 08 10 (Crisis Text Line)
- Contact a mental health professional

I apologize for the inconvenience. Please try again in a moment.`

// supportPromptFormat is the augmented generation prompt. The two format
// arguments are the retrieved context and the user's message.
const supportPromptFormat = `You are a mental health diagnosis assistant. Based on the following examples of mental health Q&A,
provide a compassionate, helpful response to the user's concern. You must ask follow up questions to further deepen understanding of the users situation.

IMPORTANT GUIDELINES:
- Be empathetic and non-judgmental
- Acknowledge the person's feelings
- Provide supportive guidance based on the examples
- Remind them that professional help is valuable for serious concerns
- Never diagnose or prescribe, but share the resources provided below as needed
- In case of depression emphasize getting help from professionals
- In case of suicide thought provide helplines and convince user to use it
- Keep responses concise but caring (2-3 paragraphs)

Resources to share:
- Unified State Contact Center 111 — Amanat. This is a helpline for family, women, and children's rights issues. Primary focus is on: child livelihood at risk, violence or bullying, threat to health or life of a child. However, people of all ages can call this number with their problems and concerns—operators are always available to assist them. The call is anonymous. For internal reporting, the operator may only ask you for the city you called from and your name (a fictitious name is fine—your name is optional). The contact center is open 24 hours a day, seven days a week.
- National Helpline for Children and Youth 150. They are open Monday through Friday, from 9:00 AM to 6:00 PM. The call is anonymous. A WhatsApp chat is available at +7 708 106 08 10. Website https://www.telefon150.kz/ .
- Helpline 1303. This is a helpline operated by the Almaty Center for Mental Health. You can also call it if you need psychological help or support. Age is not a factor. All inquiries are anonymous, but if you require in-depth specialist assistance, you can provide your information and discuss further consultations. Two other helpline numbers are also available: +7 708 983 28 63 and +7 727 376 56 60. You can seek help and advice at any time, day or night.
- Helpline 3580 for any age group.
- A telegram bot @Mental_SupportBot.
- In Astana, Medical Centre of Phychological Wellness 54-46-03.
- More on depression from National Institute of Mental Health of the US https://www.nimh.nih.gov/health/topics/depression .
- More on depression from American Psychiatric Association https://www.psychiatry.org/patients-families/depression .
- More on ways how to treat anxiety and depression from Anxiety & Depression Association of America https://adaa.org/find-help .
- More on anxiety from National Institute of Mental Health of the US https://www.nimh.nih.gov/health/topics/anxiety-disorders .
- More on stress from American Psychological Association https://www.apa.org/topics/stress .
- Stress management recommendations from HELPGUIDE.ORG INTERNATIONAL https://www.helpguide.org/mental-health/stress/stress-management .
- More on Bipolar Disorder from National Institute of Mental Health of the US https://www.nimh.nih.gov/health/topics/bipolar-disorder
- More on Borderline Personality Disorder from National Institute of Mental Health of the US https://www.nimh.nih.gov/health/topics/borderline-personality-disorder
- More on Borderline Personality Disorder from American Psychological Association https://www.psychiatry.org/patients-families/personality-disorders


Reference Examples:
%s

User's Concern: %s

Your Supportive Response:`

// titlePromptFormat asks the model for a short chat title from the first
// user message.
const titlePromptFormat = `Generate a very short title (maximum 4 words) for a mental health support conversation that starts with this:
"%s"

Reply with ONLY the title, nothing else. Keep it concise, empathetic and professional.
Example: "Anxiety and Sleep Issues" or "Depression Support"
Title:`

// Embedder turns text into a vector for similarity search.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Generator produces free-form text from a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// RAGService assembles retrieval-augmented responses.
type RAGService struct {
	Docs      store.DocumentStore
	Embedder  Embedder
	Generator Generator

	// TopK is how many reference documents to retrieve; 0 means DefaultTopK.
	TopK int
}

// NewRAGService constructs a RAGService over the document store and model
// backends.
func NewRAGService(docs store.DocumentStore, emb Embedder, gen Generator) *RAGService {
	return &RAGService{Docs: docs, Embedder: emb, Generator: gen, TopK: DefaultTopK}
}

// Respond produces a supportive reply to the user's message. It never fails;
// every pipeline error degrades to FallbackResponse.
func (s *RAGService) Respond(ctx context.Context, query string) string {
	tr := otel.Tracer("services/RAGService")
	ctx, span := tr.Start(ctx, "Respond")
	defer span.End()

	refContext, err := s.retrieveContext(ctx, query)
	if err != nil {
		span.SetAttributes(attribute.Bool("fallback", true))
		return FallbackResponse
	}
	prompt := fmt.Sprintf(supportPromptFormat, refContext, query)

	reply, err := s.Generator.Generate(ctx, prompt)
	if err != nil || strings.TrimSpace(reply) == "" {
		span.SetAttributes(attribute.Bool("fallback", true))
		return FallbackResponse
	}
	return reply
}

// retrieveContext embeds the query and joins the top-k reference documents.
// An empty result set yields the placeholder and generation proceeds without
// examples; an embedding or store failure is an error, which Respond turns
// into the fixed fallback.
func (s *RAGService) retrieveContext(ctx context.Context, query string) (string, error) {
	vec, err := s.Embedder.Embed(ctx, query)
	if err != nil {
		return "", err
	}
	k := s.TopK
	if k <= 0 {
		k = DefaultTopK
	}
	hits, err := s.Docs.Query(ctx, vec, k, store.Predicate{
		store.AttrType: store.KindReference,
	})
	if err != nil {
		return "", err
	}
	if len(hits) == 0 {
		return noContextPlaceholder, nil
	}
	parts := make([]string, len(hits))
	for i, hit := range hits {
		parts[i] = hit.Record.Document
	}
	return strings.Join(parts, contextSeparator), nil
}

// TitleFor derives a short chat title from the first user message. Model
// output is trimmed of wrapping quotes and truncated to 50 characters; on
// any failure the first words of the message stand in.
func (s *RAGService) TitleFor(ctx context.Context, firstMessage string) string {
	tr := otel.Tracer("services/RAGService")
	ctx, span := tr.Start(ctx, "TitleFor")
	defer span.End()

	prompt := fmt.Sprintf(titlePromptFormat, firstMessage)
	title, err := s.Generator.Generate(ctx, prompt)
	if err != nil {
		span.SetAttributes(attribute.Bool("fallback", true))
		return fallbackTitle(firstMessage)
	}
	title = strings.TrimSpace(title)
	title = strings.Trim(title, `"'`)
	if title == "" {
		return fallbackTitle(firstMessage)
	}
	if runes := []rune(title); len(runes) > 50 {
		title = string(runes[:47]) + "..."
	}
	return title
}

// fallbackTitle builds a title from the message's first four words.
func fallbackTitle(firstMessage string) string {
	words := strings.Fields(firstMessage)
	if len(words) == 0 {
		return "Untitled Chat"
	}
	head := words
	if len(head) > 4 {
		head = head[:4]
	}
	title := cases.Title(language.English).String(strings.Join(head, " "))
	if len(words) > 4 {
		title += "..."
	}
	return title
}
