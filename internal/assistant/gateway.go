package assistant

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tickethub/tickethub/internal/domain"
	"github.com/tickethub/tickethub/internal/observability"
)

// Snapshots exposes the read-only ticket and event views the gateway may
// consult for contextual replies. It never mutates anything and runs
// outside every database transaction.
type Snapshots interface {
	ActiveTicketCount(ctx context.Context, userID uuid.UUID) (int, error)
	NextUserEvent(ctx context.Context, userID uuid.UUID) (domain.Event, error)
	EventsAfter(ctx context.Context, now time.Time) ([]domain.Event, error)
}

// Gateway answers support questions. Common intents are answered from
// canned phrase tables; everything else goes to the completion client with
// bounded retries. Reply never returns an error: on permanent failure the
// caller gets a degraded canned message.
type Gateway struct {
	client    CompletionClient
	snapshots Snapshots
	logger    observability.Logger
}

func NewGateway(client CompletionClient, snapshots Snapshots, logger observability.Logger) *Gateway {
	return &Gateway{client: client, snapshots: snapshots, logger: logger}
}

type ReplyRequest struct {
	Message  string
	Language string // optional; auto-detected when empty
	UserID   *uuid.UUID
	History  []Message // optional prior turns, oldest first
}

type Reply struct {
	Text     string
	Language string // language of the reply
	Detected string // language detected from the message
	Source   string // canned, model, or degraded
}

func (g *Gateway) Reply(ctx context.Context, req ReplyRequest) Reply {
	detected := DetectLanguage(req.Message)

	lang := req.Language
	if lang == "" {
		lang = detected
	}
	if !Supported(lang) {
		g.logger.WithField("language", lang).Warn("unsupported language, defaulting to English")
		lang = LangEnglish
	}
	prompts := languagePrompts[lang]

	if strings.TrimSpace(req.Message) == "" {
		return Reply{Text: prompts.Fallback, Language: lang, Detected: detected, Source: "canned"}
	}

	if text, ok := g.canned(ctx, req, lang); ok {
		observability.AssistantRequestsTotal.WithLabelValues("canned").Inc()
		return Reply{Text: text, Language: lang, Detected: detected, Source: "canned"}
	}

	text, err := g.model(ctx, req, lang, prompts)
	if err != nil {
		g.logger.WithError(err).WithField("language", lang).Error("assistant completion failed")
		observability.AssistantRequestsTotal.WithLabelValues("degraded").Inc()
		return Reply{Text: prompts.Error, Language: lang, Detected: detected, Source: "degraded"}
	}
	observability.AssistantRequestsTotal.WithLabelValues("model").Inc()
	return Reply{Text: text, Language: lang, Detected: detected, Source: "model"}
}

// canned answers greeting, expiry, event, help, and thanks intents from
// phrase tables and read-only snapshots, skipping the completion API.
func (g *Gateway) canned(ctx context.Context, req ReplyRequest, lang string) (string, bool) {
	msg := strings.ToLower(strings.TrimSpace(req.Message))

	if containsAny(msg, "hello", "hi", "hey", "hola", "salam", "selam", "kushe", "sannu", "ሰላም") {
		return g.greeting(ctx, req.UserID, lang), true
	}

	if containsAny(msg, "when my ticket expire", "when ticket expire", "ticket expiry", "ticket expir") {
		return g.expiry(ctx, req.UserID, lang), true
	}

	if containsAny(msg, "event", "events", "upcoming", "available") {
		return g.events(ctx, lang), true
	}

	if containsAny(msg, "help", "support", "assist", "እርዳት", "ድጋፍ", "hep", "sapot") {
		switch lang {
		case LangAmharic:
			return "እባክዎ የተወሰነውን ጥያቄዎን ይግለጹ። በቲኬቶች፣ ክስተቶች ወይም ደረሰኞች ላይ እርዳት እችላለሁ።", true
		case LangKrio:
			return "Padi, wetin na ya palava? A kin ɛp yu wit tikit, ivɛnt, ɛn ɛni oda tin we yu nid.", true
		default:
			return "How can I assist you today? I can help with tickets, events, or any other questions you might have.", true
		}
	}

	if containsAny(msg, "thank", "thanks", "appreciate", "አመሰግናለሁ", "tenki", "tank yu") {
		switch lang {
		case LangAmharic:
			return "እናመሰግናለን! ሌላ ማድረግ የሚፈልጉት ነገር አለ?", true
		case LangKrio:
			return "A de kam! A glad se a bin kin ɛp. Yu gɛt ɛni oda kɛsƐn?", true
		default:
			return "You're welcome! Is there anything else I can assist you with?", true
		}
	}

	return "", false
}

func (g *Gateway) greeting(ctx context.Context, userID *uuid.UUID, lang string) string {
	var active int
	if userID != nil {
		if n, err := g.snapshots.ActiveTicketCount(ctx, *userID); err == nil {
			active = n
		}
	}
	switch lang {
	case LangAmharic:
		if active > 0 {
			return fmt.Sprintf("ሰላም! እርስዎ %d አይነት ቲኬቶች አሉዎት። እንዴት ልትረዱኝ እችላለሁ?", active)
		}
		return "ሰላም! በቲኬቶች እና ክስተቶች ላይ እርዳት እችላለሁ። እባክዎ ጥያቄዎን ይግለጹ።"
	case LangKrio:
		if active > 0 {
			return fmt.Sprintf("Kushe! Yu gɛt %d tikit dɛn. Aw a go ɛp yu?", active)
		}
		return "Kushe! A kin ɛp yu wit tikit ɛn ivɛnt. Wetin yu want?"
	default:
		if active > 0 {
			return fmt.Sprintf("Hello! You have %d active tickets. How can I assist you today?", active)
		}
		return "Hello! I can help you with tickets and events. What would you like to know?"
	}
}

func (g *Gateway) expiry(ctx context.Context, userID *uuid.UUID, lang string) string {
	if userID != nil {
		if event, err := g.snapshots.NextUserEvent(ctx, *userID); err == nil {
			date := event.Date.Format("January 2, 2006")
			days := int(time.Until(event.Date).Hours() / 24)
			switch lang {
			case LangAmharic:
				return fmt.Sprintf("የእርስዎ ቲኬት ለ '%s' በ %s ይዘጋል። %d ቀናት ብቻ ቀርቷል!", event.Name, date, days)
			case LangKrio:
				return fmt.Sprintf("Yu tikit fɔ '%s' go don na %s. I rɛmɛn jɔs %d dey!", event.Name, date, days)
			default:
				return fmt.Sprintf("Your ticket for '%s' expires on %s. Only %d days left!", event.Name, date, days)
			}
		}
	}
	switch lang {
	case LangAmharic:
		return "ምንም አይነት ተገቢ ያልሆኑ ቲኬቶች አልተገኙም።"
	case LangKrio:
		return "A nɔ si ɛni valid tikit we yu gɛt."
	default:
		return "You don't have any valid tickets at the moment."
	}
}

func (g *Gateway) events(ctx context.Context, lang string) string {
	events, err := g.snapshots.EventsAfter(ctx, time.Now())
	if err != nil || len(events) == 0 {
		switch lang {
		case LangAmharic:
			return "በአሁኑ ጊዜ ምንም ክስተቶች የሉም። በቅርቡ እንደገና ይመልከቱ።"
		case LangKrio:
			return "Nɔ ivɛnt de na in de now. Chɛk bak lɛta."
		default:
			return "There are no events available at the moment. Please check back later."
		}
	}

	next := events[0]
	date := next.Date.Format("January 2, 2006")
	switch lang {
	case LangAmharic:
		reply := fmt.Sprintf("የሚቀጥለው ክስተት '%s' በ %s በ %s ነው።", next.Name, date, next.Location)
		if len(events) > 1 {
			reply += fmt.Sprintf(" አጠቃላይ %d ክስተቶች አሉ። ለበለጠ መረጃ ይጠይቁኝ።", len(events))
		}
		return reply
	case LangKrio:
		reply := fmt.Sprintf("Di nɛks ivɛnt na '%s' na %s na %s.", next.Name, date, next.Location)
		if len(events) > 1 {
			reply += fmt.Sprintf(" Wi gɛt %d difrɛn ivɛnt. Aks mi if yu want no mɔ.", len(events))
		}
		return reply
	default:
		reply := fmt.Sprintf("The next event is '%s' on %s at %s.", next.Name, date, next.Location)
		if len(events) > 1 {
			reply += fmt.Sprintf(" There are %d total events available. Ask me for more details.", len(events))
		}
		return reply
	}
}

func (g *Gateway) model(ctx context.Context, req ReplyRequest, lang string, prompts languageData) (string, error) {
	system := prompts.System
	if req.UserID != nil {
		if n, err := g.snapshots.ActiveTicketCount(ctx, *req.UserID); err == nil && n > 0 {
			system += fmt.Sprintf(" The user has %d active ticket(s).", n)
		}
	}

	messages := []Message{{Role: "system", Content: system}}
	if len(req.History) > 5 {
		req.History = req.History[len(req.History)-5:]
	}
	messages = append(messages, req.History...)
	messages = append(messages, Message{
		Role:    "user",
		Content: fmt.Sprintf("[%s] %s", strings.ToUpper(lang), req.Message),
	})

	text, err := g.client.Complete(ctx, messages)
	if err != nil {
		return "", err
	}

	// Strip a leading language tag if the model echoed it back.
	for _, tag := range []string{"[EN]", "[AM]", "[KRI]"} {
		if strings.HasPrefix(text, tag) {
			text = strings.TrimSpace(strings.TrimPrefix(text, tag))
		}
	}
	return text, nil
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
