package core

import (
	"fmt"
	"strings"

	"github.com/YoussefAbdelmaksod/Beauty-care-app/internal/store"
)

const (
	dermatologistPersona = "You are an experienced dermatologist advising customers in Egypt. " +
		"Account for a hot, dry climate and strong sun, prefer products sold in Egyptian pharmacies, " +
		"and recommend a professional consultation whenever a condition looks medical. " +
		"Answer only with the JSON object requested, no prose and no markdown."

	chatPersona = "You are a friendly skincare expert for an Egyptian beauty-care app. " +
		"You speak Egyptian Arabic and English fluently, you are culturally aware and budget conscious, " +
		"and you only recommend product ids from the catalog excerpt you are given. " +
		"Answer only with the JSON object requested."
)

var budgetDescriptions = map[int]string{
	1: "budget-conscious, essentials only (up to 500 EGP/month)",
	2: "moderate, a complete routine (500-1000 EGP/month)",
	3: "premium, advanced treatments welcome (1000+ EGP/month)",
}

func orNone(items []string) string {
	if len(items) == 0 {
		return "none specified"
	}
	return strings.Join(items, ", ")
}

func orUnknown(s string) string {
	if strings.TrimSpace(s) == "" {
		return "unknown"
	}
	return s
}

const analysisSchema = `{
  "skinType": "dry | oily | combination | sensitive | normal",
  "concerns": ["concern names, most important first"],
  "concernSeverity": {"concern name": 1-10},
  "recommendations": ["immediate, actionable steps"],
  "overallScore": 0-100 (higher is healthier),
  "detectedConditions": ["medical conditions, if any"],
  "riskFactors": ["risk factors"],
  "treatmentPriority": ["treatments in the order to address them"]
}`

func imageAnalysisPrompt(req ImageAnalysisRequest) string {
	return fmt.Sprintf(`Assess the skin in the attached photo.

Determine the skin type, list every visible concern with a 1-10 severity,
note anything that needs a dermatologist, and rate overall skin health.

Concerns reported by the user: %s
Known conditions: %s

Reply with exactly this JSON shape:
%s`, orNone(req.Concerns), orNone(req.ExistingConditions), analysisSchema)
}

func textAnalysisPrompt(req TextAnalysisRequest) string {
	return fmt.Sprintf(`Assess this skincare consultation.

User description: %q
Stated skin type: %s
Stated concerns: %s
Current routine: %s
Budget: %s

Confirm or correct the skin type, prioritize the concerns with a 1-10
severity each, and rate how healthy the skin currently is.

Reply with exactly this JSON shape:
%s`, req.Description, orUnknown(req.SkinType), orNone(req.Concerns),
		orUnknown(req.CurrentRoutine), budgetDescriptions[req.BudgetTier], analysisSchema)
}

func productLine(p store.Product) string {
	return fmt.Sprintf("%d: %s by %s, %.0f EGP (%s) for [%s]", p.ID, p.NameEn, p.Brand, p.Price, p.Category, strings.Join(p.Concerns, ", "))
}

func routinePrompt(req RoutineRequest, candidates []store.Product) string {
	lines := make([]string, 0, len(candidates))
	for _, p := range candidates {
		lines = append(lines, productLine(p))
	}
	complexity := req.Preferences.RoutineComplexity
	if complexity == "" {
		complexity = "moderate"
	}

	return fmt.Sprintf(`Build a skincare routine for this user using ONLY the products listed.

Skin type: %s
Concerns: %s
Budget tier %d: %s
Current routine: %s
Preferred complexity: %s (simple 3-4 products, moderate 5-7, comprehensive 8+)

Available products (id: details):
%s

Order steps correctly, keep sunscreen in the morning, and stay within budget.

Reply with exactly this JSON shape:
{
  "morning": [{"step": 1, "category": "cleanser", "productId": <id from the list>,
               "instructions": "how to use", "arabicInstructions": "طريقة الاستخدام",
               "frequency": "daily", "importance": "essential | recommended | optional"}],
  "evening": [same shape],
  "weekly": [same shape, optional],
  "monthlyBudget": <EGP number>,
  "explanation": "why this routine fits",
  "arabicExplanation": "الشرح بالعربية"
}`, req.SkinType, orNone(req.Concerns), req.BudgetTier, budgetDescriptions[req.BudgetTier],
		orUnknown(req.CurrentRoutine), complexity, strings.Join(lines, "\n"))
}

func productBlock(label string, p store.Product) string {
	return fmt.Sprintf(`%s (id %d): %s
- Brand: %s
- Price: %.0f EGP
- Category: %s
- Ingredients: %s
- Skin types: %s
- Concerns: %s`, label, p.ID, p.NameEn, p.Brand, p.Price, p.Category,
		strings.Join(p.Ingredients, ", "), strings.Join(p.SkinTypes, ", "), strings.Join(p.Concerns, ", "))
}

func comparisonPrompt(a, b store.Product) string {
	return fmt.Sprintf(`Compare these two skincare products.

%s

%s

Score each product from 1 to 10 on effectiveness (ingredient quality and
strength), value (price against effectiveness) and suitability (how many
skin types it serves).

Reply with exactly this JSON shape:
{
  "effectiveness": {"productA": <1-10>, "productB": <1-10>},
  "value": {"productA": <1-10>, "productB": <1-10>},
  "suitability": {"productA": <1-10>, "productB": <1-10>},
  "recommendation": "comparison and advice",
  "arabicRecommendation": "التوصية بالعربية",
  "winnerProductId": %d or %d
}`, productBlock("PRODUCT A", a), productBlock("PRODUCT B", b), a.ID, b.ID)
}

func ingredientPrompt(ingredients []string) string {
	return fmt.Sprintf(`Analyze these skincare ingredients for users in Egypt: %s

For each ingredient give its function, benefits, interactions with the
others, safety notes, and how well it performs in a hot, dry climate.

Reply with exactly this JSON shape:
{
  "ingredientAnalysis": {
    "<ingredient>": {"function": "...", "benefits": ["..."], "interactions": ["..."],
                     "safetyNotes": "...", "climateSuitability": "good | moderate | poor"}
  },
  "overallAssessment": "summary of the combination",
  "recommendations": ["usage advice"]
}`, strings.Join(ingredients, ", "))
}

func chatPrompt(req ChatRequest, lang string, related []store.Product) string {
	var b strings.Builder
	if lang == LangArabic {
		b.WriteString("The user writes in Arabic. Reply primarily in Egyptian Arabic and include an English translation.\n\n")
	} else {
		b.WriteString("The user writes in English. Reply in English and include an Arabic translation.\n\n")
	}

	b.WriteString("User context:\n")
	fmt.Fprintf(&b, "- Skin type: %s\n", orUnknown(req.Context.SkinType))
	fmt.Fprintf(&b, "- Concerns: %s\n", orNone(req.Context.Concerns))
	fmt.Fprintf(&b, "- Current products: %s\n", orNone(req.Context.CurrentProducts))
	if req.Context.PreviousAnalysis != "" {
		fmt.Fprintf(&b, "- Latest analysis: %s\n", req.Context.PreviousAnalysis)
	}
	fmt.Fprintf(&b, "- Message type: %s\n\n", req.MessageType)

	if len(related) > 0 {
		b.WriteString("Catalog products that may be relevant (id: details):\n")
		for _, p := range related {
			b.WriteString(productLine(p))
			b.WriteByte('\n')
		}
		b.WriteByte('\n')
	}

	fmt.Fprintf(&b, "User message: %q\n\n", req.Message)
	b.WriteString(`Reply with exactly this JSON shape:
{
  "response": "answer in the user's language",
  "translation": "the same answer in the other language",
  "recommendations": ["actionable advice"],
  "suggestedProducts": [<catalog product ids>],
  "followUpQuestions": ["useful follow-up questions"],
  "confidence": <0 to 1>,
  "requiresProfessionalConsultation": <true | false>,
  "urgencyLevel": "low | medium | high"
}`)
	return b.String()
}

func sentimentPrompt(messages []string) string {
	return fmt.Sprintf(`These are a user's most recent messages to a skincare assistant:

%s

Judge how satisfied the user seems and what would improve their experience.

Reply with exactly this JSON shape:
{
  "satisfactionScore": <1-10>,
  "sentiment": "positive | neutral | negative",
  "improvementSuggestions": ["..."]
}`, "- "+strings.Join(messages, "\n- "))
}

func tipsPrompt(profile userProfile) string {
	return fmt.Sprintf(`Write 5 personalized skincare tips for this user.

Skin type: %s
Primary concerns: %s
Latest progress score: %d
Topics they ask about: %s
Preferred language: %s
Analyses on record: %d

Tips must be specific, practical, budget conscious, suited to a hot dry
climate, and written in the preferred language.

Reply with exactly this JSON shape:
{"tips": ["tip 1", "tip 2", "tip 3", "tip 4", "tip 5"], "category": "routine | products | lifestyle | prevention"}`,
		profile.SkinType, orNone(profile.PrimaryConcerns), profile.ProgressScore,
		orNone(profile.Topics), profile.PreferredLanguage, profile.AnalysisCount)
}
