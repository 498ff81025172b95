package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/YoussefAbdelmaksod/Beauty-care-app/internal/store"
)

const (
	LangArabic  = "ar"
	LangEnglish = "en"
)

const (
	DefaultHistoryLimit = 20
	MaxHistoryLimit     = 100

	sentimentWindow   = 10
	tipsChatWindow    = 5
	promptExchanges   = 3
	highEngagementMin = 10 // more messages than this is "high"
)

var arabicRune = regexp.MustCompile(`[\x{0600}-\x{06FF}]`)

// DetectArabic reports whether text contains any character from the
// Arabic Unicode block.
func DetectArabic(text string) bool {
	return arabicRune.MatchString(text)
}

// ResponseLanguage picks Arabic when the message contains Arabic script or
// the caller asks for it, English otherwise.
func ResponseLanguage(message, hint string) string {
	if DetectArabic(message) || strings.EqualFold(hint, LangArabic) {
		return LangArabic
	}
	return LangEnglish
}

type ChatContext struct {
	SkinType         string   `json:"skinType,omitempty"`
	Concerns         []string `json:"concerns,omitempty"`
	CurrentProducts  []string `json:"currentProducts,omitempty"`
	PreviousAnalysis string   `json:"previousAnalysis,omitempty"`
}

type ChatRequest struct {
	UserID      int64
	Message     string
	Language    string
	Context     ChatContext
	MessageType string
}

type ChatReply struct {
	MessageID                        int64    `json:"messageId,omitempty"`
	Response                         string   `json:"response"`
	ArabicResponse                   string   `json:"arabicResponse,omitempty"`
	EnglishResponse                  string   `json:"englishResponse,omitempty"`
	Recommendations                  []string `json:"recommendations"`
	SuggestedProducts                []int64  `json:"suggestedProducts"`
	FollowUpQuestions                []string `json:"followUpQuestions"`
	Confidence                       float64  `json:"confidence"`
	RequiresProfessionalConsultation bool     `json:"requiresProfessionalConsultation"`
	UrgencyLevel                     string   `json:"urgencyLevel"`
	Language                         string   `json:"language"`
	Source                           Source   `json:"source"`
}

// chatModelReply is the shape requested from the model.
type chatModelReply struct {
	Response                         string   `json:"response"`
	Translation                      string   `json:"translation"`
	Recommendations                  []string `json:"recommendations"`
	SuggestedProducts                []int64  `json:"suggestedProducts"`
	FollowUpQuestions                []string `json:"followUpQuestions"`
	Confidence                       float64  `json:"confidence"`
	RequiresProfessionalConsultation bool     `json:"requiresProfessionalConsultation"`
	UrgencyLevel                     string   `json:"urgencyLevel"`
}

func (r *chatModelReply) normalize() error {
	if strings.TrimSpace(r.Response) == "" {
		return errors.New("chat reply has no response text")
	}
	if r.Confidence < 0 {
		r.Confidence = 0
	}
	if r.Confidence > 1 {
		r.Confidence = 1
	}
	switch r.UrgencyLevel {
	case "low", "medium", "high":
	default:
		r.UrgencyLevel = "low"
	}
	return nil
}

const (
	fallbackChatEnglish = "I'm here to help with your skincare questions. Could you please rephrase your question?"
	fallbackChatArabic  = "أنا هنا لمساعدتك في أسئلة العناية بالبشرة. هل يمكنك إعادة صياغة سؤالك؟"
)

func fallbackChatReply(lang string) chatModelReply {
	r := chatModelReply{
		Response:    fallbackChatEnglish,
		Translation: fallbackChatArabic,
		Recommendations: []string{
			"Describe your skin type and main concern",
			"Mention the products you currently use",
		},
		SuggestedProducts: []int64{},
		FollowUpQuestions: []string{},
		Confidence:        0.5,
		UrgencyLevel:      "low",
	}
	if lang == LangArabic {
		r.Response, r.Translation = fallbackChatArabic, fallbackChatEnglish
	}
	return r
}

// ChatStore is the storage the chat service reads and writes.
type ChatStore interface {
	store.ChatRepository
	store.ProductRepository
	store.AnalysisRepository
	store.UserRepository
}

type ChatService struct {
	db        ChatStore
	gen       Generator
	retriever ProductRetriever
	log       *zap.Logger
}

// NewChatService wires the service. retriever may be nil, in which case
// prompts carry no catalog context.
func NewChatService(db ChatStore, gen Generator, retriever ProductRetriever, log *zap.Logger) *ChatService {
	return &ChatService{db: db, gen: gen, retriever: retriever, log: log.Named("chat")}
}

// ProcessMessage answers one message and appends the exchange to the
// user's history. The model failing never fails the call.
func (s *ChatService) ProcessMessage(ctx context.Context, req ChatRequest) (ChatReply, error) {
	const op = "core.ChatService.ProcessMessage"
	req.Message = strings.TrimSpace(req.Message)
	if req.Message == "" {
		return ChatReply{}, fmt.Errorf("%s: %w", op, invalidf("message is required"))
	}
	if req.MessageType == "" {
		req.MessageType = "question"
	}
	lang := ResponseLanguage(req.Message, req.Language)

	history, err := s.recentTurns(ctx, req.UserID)
	if err != nil {
		s.log.Warn("failed to load chat history, proceeding without it", zap.String("op", op), zap.Error(err))
	}
	var related []store.Product
	if s.retriever != nil {
		related = s.retriever.Related(ctx, req.Message)
	}

	out := generateJSON(ctx, s.gen, s.log, "chat.message", GenerateRequest{
		System:  chatPersona,
		History: history,
		Prompt:  chatPrompt(req, lang, related),
	}, (*chatModelReply).normalize, func() chatModelReply {
		return fallbackChatReply(lang)
	})

	reply := s.toReply(ctx, out.Value, lang, out.Source)

	if err := s.persist(ctx, req, lang, &reply); err != nil {
		return ChatReply{}, fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("chat message answered",
		zap.String("op", op),
		zap.Int64("user_id", req.UserID),
		zap.String("language", lang),
		zap.String("source", string(out.Source)),
		zap.Int("related_products", len(related)))
	return reply, nil
}

func (s *ChatService) toReply(ctx context.Context, m chatModelReply, lang string, src Source) ChatReply {
	reply := ChatReply{
		Response:                         m.Response,
		Recommendations:                  nonNilStrings(m.Recommendations),
		SuggestedProducts:                s.knownProducts(ctx, m.SuggestedProducts),
		FollowUpQuestions:                nonNilStrings(m.FollowUpQuestions),
		Confidence:                       m.Confidence,
		RequiresProfessionalConsultation: m.RequiresProfessionalConsultation,
		UrgencyLevel:                     m.UrgencyLevel,
		Language:                         lang,
		Source:                           src,
	}
	if lang == LangArabic {
		reply.EnglishResponse = m.Translation
	} else {
		reply.ArabicResponse = m.Translation
	}
	return reply
}

// knownProducts keeps the ids that exist in the catalog, in order.
func (s *ChatService) knownProducts(ctx context.Context, ids []int64) []int64 {
	out := []int64{}
	if len(ids) == 0 {
		return out
	}
	found, err := s.db.GetProductsByIDs(ctx, ids)
	if err != nil {
		s.log.Warn("failed to resolve suggested products", zap.Error(err))
		return out
	}
	known := make(map[int64]bool, len(found))
	for _, p := range found {
		known[p.ID] = true
	}
	for _, id := range ids {
		if known[id] && !slices.Contains(out, id) {
			out = append(out, id)
		}
	}
	return out
}

func (s *ChatService) persist(ctx context.Context, req ChatRequest, lang string, reply *ChatReply) error {
	body, err := json.Marshal(reply)
	if err != nil {
		return err
	}
	rawCtx, err := json.Marshal(req.Context)
	if err != nil {
		return err
	}
	msg := store.ChatMessage{
		UserID:      req.UserID,
		Message:     req.Message,
		Response:    string(body),
		MessageType: req.MessageType,
		Language:    lang,
		Context:     rawCtx,
	}
	if err := s.db.CreateChatMessage(ctx, &msg); err != nil {
		return err
	}
	reply.MessageID = msg.ID
	return nil
}

// recentTurns returns the last few exchanges oldest first, ready to be sent
// as conversation history.
func (s *ChatService) recentTurns(ctx context.Context, userID int64) ([]Turn, error) {
	msgs, err := s.db.ListChatMessages(ctx, userID, promptExchanges)
	if err != nil {
		return nil, err
	}
	turns := make([]Turn, 0, 2*len(msgs))
	for i := len(msgs) - 1; i >= 0; i-- {
		turns = append(turns,
			Turn{Role: RoleUser, Text: msgs[i].Message},
			Turn{Role: RoleModel, Text: storedResponseText(msgs[i].Response)},
		)
	}
	return turns, nil
}

// storedResponseText pulls the reply text out of a persisted response,
// which is normally a serialized ChatReply.
func storedResponseText(raw string) string {
	var r struct {
		Response string `json:"response"`
	}
	if err := json.Unmarshal([]byte(raw), &r); err == nil && r.Response != "" {
		return r.Response
	}
	return raw
}

func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// History returns a user's messages most recent first. limit <= 0 means
// DefaultHistoryLimit and anything above MaxHistoryLimit is capped.
func (s *ChatService) History(ctx context.Context, userID int64, limit int) ([]store.ChatMessage, error) {
	const op = "core.ChatService.History"
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		limit = MaxHistoryLimit
	}
	msgs, err := s.db.ListChatMessages(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return msgs, nil
}

var topicKeywords = []struct {
	topic    string
	keywords []string
}{
	{"acne", []string{"acne", "pimples", "breakouts", "حب الشباب"}},
	{"aging", []string{"wrinkles", "anti-aging", "fine lines", "التجاعيد"}},
	{"pigmentation", []string{"dark spots", "pigmentation", "التصبغات"}},
	{"dryness", []string{"dry skin", "hydration", "moisturizer", "البشرة الجافة"}},
	{"oiliness", []string{"oily skin", "oil control", "البشرة الدهنية"}},
	{"sensitivity", []string{"sensitive skin", "irritation", "البشرة الحساسة"}},
}

// ExtractTopics matches messages against the fixed topic dictionary and
// returns the topics found, in dictionary order.
func ExtractTopics(messages []string) []string {
	text := strings.ToLower(strings.Join(messages, " "))
	topics := []string{}
	for _, t := range topicKeywords {
		for _, kw := range t.keywords {
			if strings.Contains(text, kw) {
				topics = append(topics, t.topic)
				break
			}
		}
	}
	return topics
}

func engagementLevel(messageCount int) string {
	if messageCount > highEngagementMin {
		return "high"
	}
	return "medium"
}

type SentimentSummary struct {
	SatisfactionScore      int      `json:"satisfactionScore"`
	CommonTopics           []string `json:"commonTopics"`
	Sentiment              string   `json:"sentiment"`
	ImprovementSuggestions []string `json:"improvementSuggestions"`
	UserEngagement         string   `json:"userEngagement"`
	Source                 Source   `json:"source"`
}

type sentimentReply struct {
	SatisfactionScore      flexInt  `json:"satisfactionScore"`
	Sentiment              string   `json:"sentiment"`
	ImprovementSuggestions []string `json:"improvementSuggestions"`
}

func (r *sentimentReply) normalize() error {
	r.Sentiment = strings.ToLower(strings.TrimSpace(r.Sentiment))
	switch r.Sentiment {
	case "positive", "neutral", "negative":
	default:
		return fmt.Errorf("unknown sentiment %q", r.Sentiment)
	}
	r.SatisfactionScore = flexInt(clamp(int(r.SatisfactionScore), 1, 10))
	return nil
}

func neutralSentiment() sentimentReply {
	return sentimentReply{
		SatisfactionScore:      7,
		Sentiment:              "neutral",
		ImprovementSuggestions: []string{"Continue providing helpful responses"},
	}
}

// Sentiment summarizes the user's recent messages. Topics and engagement
// are computed locally; the satisfaction judgement comes from the model.
func (s *ChatService) Sentiment(ctx context.Context, userID int64) (SentimentSummary, error) {
	const op = "core.ChatService.Sentiment"
	msgs, err := s.db.ListChatMessages(ctx, userID, sentimentWindow)
	if err != nil {
		return SentimentSummary{}, fmt.Errorf("%s: %w", op, err)
	}
	total, err := s.db.CountChatMessages(ctx, userID)
	if err != nil {
		return SentimentSummary{}, fmt.Errorf("%s: %w", op, err)
	}

	texts := make([]string, 0, len(msgs))
	for _, m := range msgs {
		texts = append(texts, m.Message)
	}
	topics := ExtractTopics(texts)
	if len(topics) == 0 {
		topics = []string{"general skincare"}
	}

	var out Outcome[sentimentReply]
	if len(texts) == 0 {
		out = Outcome[sentimentReply]{Value: neutralSentiment(), Source: SourceFallback}
	} else {
		out = generateJSON(ctx, s.gen, s.log, "chat.sentiment", GenerateRequest{
			Prompt: sentimentPrompt(texts),
		}, (*sentimentReply).normalize, neutralSentiment)
	}

	return SentimentSummary{
		SatisfactionScore:      int(out.Value.SatisfactionScore),
		CommonTopics:           topics,
		Sentiment:              out.Value.Sentiment,
		ImprovementSuggestions: nonNilStrings(out.Value.ImprovementSuggestions),
		UserEngagement:         engagementLevel(total),
		Source:                 out.Source,
	}, nil
}

type userProfile struct {
	SkinType          string
	PrimaryConcerns   []string
	ProgressScore     int
	Topics            []string
	PreferredLanguage string
	AnalysisCount     int
}

type Tips struct {
	Tips     []string `json:"tips"`
	Category string   `json:"category"`
	Source   Source   `json:"source"`
}

func defaultTips() Tips {
	return Tips{
		Tips: []string{
			"Maintain a consistent skincare routine",
			"Always patch test new products",
			"Consider your skin's needs based on Egyptian climate",
			"Consult a dermatologist for persistent issues",
			"Take progress photos to track improvements",
		},
		Category: "general",
	}
}

func (s *ChatService) profile(ctx context.Context, userID int64) (userProfile, error) {
	p := userProfile{SkinType: "unknown", PreferredLanguage: LangArabic}

	u, err := s.db.GetUser(ctx, userID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return p, fmt.Errorf("%w: user %d", ErrNotFound, userID)
	case err != nil:
		return p, err
	}
	if u.PreferredLanguage != "" {
		p.PreferredLanguage = u.PreferredLanguage
	}
	if u.SkinType != "" {
		p.SkinType = u.SkinType
	}
	p.PrimaryConcerns = u.SkinConcerns

	analyses, err := s.db.ListAnalyses(ctx, userID)
	if err != nil {
		return p, err
	}
	p.AnalysisCount = len(analyses)
	if n := len(analyses); n > 0 {
		latest := analyses[n-1]
		if latest.SkinType != "" {
			p.SkinType = latest.SkinType
		}
		if len(latest.Concerns) > 0 {
			p.PrimaryConcerns = latest.Concerns
		}
		p.ProgressScore = latest.ProgressScore
	}

	msgs, err := s.db.ListChatMessages(ctx, userID, tipsChatWindow)
	if err != nil {
		return p, err
	}
	texts := make([]string, 0, len(msgs))
	for _, m := range msgs {
		texts = append(texts, m.Message)
	}
	p.Topics = ExtractTopics(texts)
	return p, nil
}

// PersonalizedTips returns five tips tailored to the user's analyses and
// chat topics, or a fixed general list when the model is unavailable.
func (s *ChatService) PersonalizedTips(ctx context.Context, userID int64) (Tips, error) {
	const op = "core.ChatService.PersonalizedTips"
	profile, err := s.profile(ctx, userID)
	if err != nil {
		return Tips{}, fmt.Errorf("%s: %w", op, err)
	}

	out := generateJSON(ctx, s.gen, s.log, "chat.tips", GenerateRequest{
		System: chatPersona,
		Prompt: tipsPrompt(profile),
	}, func(t *Tips) error {
		if len(t.Tips) == 0 {
			return errors.New("tips reply is empty")
		}
		if len(t.Tips) > 5 {
			t.Tips = t.Tips[:5]
		}
		if t.Category == "" {
			t.Category = "general"
		}
		return nil
	}, defaultTips)

	tips := out.Value
	tips.Source = out.Source
	return tips, nil
}

var popularQuestions = []string{
	"Which routine works best for oily skin in hot, humid summers?",
	"ما أفضل مرطب للبشرة الجافة متوفر في الصيدليات المصرية؟",
	"How can I fade acne marks with local products?",
	"إزاي أحمي بشرتي من الشمس القوية طول اليوم؟",
	"Can I use niacinamide and vitamin C together?",
	"إيه أنسب غسول للبشرة الحساسة؟",
	"How do I build a complete routine on a small budget?",
	"إزاي أقلل البقع الداكنة والتصبغات؟",
}

// PopularQuestions returns the fixed starter questions in both languages.
func (s *ChatService) PopularQuestions() []string {
	return slices.Clone(popularQuestions)
}
