package handlers

import (
	"context"
	"strings"

	"github.com/veloute/server/internal/router"
)

// faqEntry pairs trigger words with a canned answer.
type faqEntry struct {
	Topic    string
	Keywords []string
	Answer   string
}

var faqEntries = []faqEntry{
	{
		Topic:    "hours",
		Keywords: []string{"hours", "hour", "open", "opening", "close", "closing"},
		Answer:   "We are open from 11:00 AM to 1:00 AM every day.",
	},
	{
		Topic:    "location",
		Keywords: []string{"location", "address", "located", "where are you", "find you"},
		Answer:   "We are located at 1 Avenue des Champs-Élysées, 75008 Paris, France.",
	},
	{
		Topic:    "phone",
		Keywords: []string{"phone", "telephone", "call you"},
		Answer:   "You can reach us at +33 1 23 45 67 89.",
	},
	{
		Topic:    "parking",
		Keywords: []string{"parking", "park"},
		Answer:   "We have valet parking available, and there is also public parking nearby.",
	},
	{
		Topic:    "dress code",
		Keywords: []string{"dress", "wear"},
		Answer:   "We have a smart casual dress code.",
	},
	{
		Topic:    "payment",
		Keywords: []string{"payment", "pay", "card", "cards", "cash"},
		Answer:   "We accept all major credit cards, cash, and contactless payments.",
	},
	{
		Topic:    "wifi",
		Keywords: []string{"wifi", "wi-fi", "internet"},
		Answer:   "Yes, we offer free WiFi for all our guests.",
	},
	{
		Topic:    "takeout",
		Keywords: []string{"takeout", "takeaway", "delivery", "take away"},
		Answer:   "Yes, we offer takeout and delivery services.",
	},
}

// FAQHandler answers common questions about the restaurant from a fixed
// table. It keeps the general model out of the loop for questions we can
// answer exactly.
type FAQHandler struct{}

// NewFAQHandler creates the FAQ handler.
func NewFAQHandler() *FAQHandler {
	return &FAQHandler{}
}

func (h *FAQHandler) Name() string { return "faq" }

func (h *FAQHandler) CanHandle(transcript string) bool {
	_, ok := matchFAQ(transcript)
	return ok
}

func (h *FAQHandler) Execute(ctx context.Context, transcript string, rctx router.Context) (router.Result, error) {
	entry, ok := matchFAQ(transcript)
	if !ok {
		return router.Result{}, router.ErrCannotComplete
	}
	return router.Result{Text: entry.Answer}, nil
}

func matchFAQ(transcript string) (faqEntry, bool) {
	lower := strings.ToLower(transcript)
	words := make(map[string]bool)
	for _, w := range strings.FieldsFunc(lower, func(r rune) bool {
		return !('a' <= r && r <= 'z') && !('0' <= r && r <= '9') && r != '-'
	}) {
		words[w] = true
	}
	for _, entry := range faqEntries {
		for _, kw := range entry.Keywords {
			// Phrases are substring matches, single words match whole
			// words only.
			if strings.Contains(kw, " ") {
				if strings.Contains(lower, kw) {
					return entry, true
				}
			} else if words[kw] {
				return entry, true
			}
		}
	}
	return faqEntry{}, false
}
