package services

import (
	"math/rand"
	"regexp"
	"strings"
	"time"

	widgetcontext "chatwidget/internal/context"
	"chatwidget/pkg/widgettypes"
)

// CannedResponder produces offline bot answers for test mode: keyword-routed
// replies drawn from fixed message banks, with an optional simulated
// "thinking" delay for interactive demos.
type CannedResponder struct {
	thinkDelay time.Duration
}

// NewCannedResponder creates a responder with no thinking delay. Interactive
// front-ends may set one to make test mode feel like a live backend.
func NewCannedResponder() *CannedResponder {
	return &CannedResponder{}
}

// SetThinkDelay configures the simulated response delay.
func (c *CannedResponder) SetThinkDelay(d time.Duration) {
	c.thinkDelay = d
}

var (
	welcomeBank = []string{
		"¡Hola! 👋 Soy tu asistente virtual. ¿Cómo te llamas?",
		"¡Bienvenido! 😊 Me encantaría conocer tu nombre.",
		"¡Hola! Soy tu bot de ayuda. ¿Cuál es tu nombre?",
		"¡Saludos! 🌟 Para personalizar tu experiencia, ¿podrías decirme tu nombre?",
	}
	greetingBank = []string{
		"¡Hola %s! 👋 ¿En qué puedo ayudarte hoy?",
		"¡Qué gusto verte, %s! 👋 ¿Cómo estás?",
		"¡Bienvenido de nuevo, %s! 🌟 ¿En qué puedo asistirte?",
	}
	curiosityBank = []string{
		"¿Sabías que el primer emoji fue creado en 1999? 😊",
		"El término 'robot' fue acuñado por el escritor checo Karel Čapek en 1920 🤖",
		"El internet fue inventado en 1969, pero la World Wide Web no llegó hasta 1989 🌐",
		"Las abejas pueden reconocer rostros humanos 🐝",
	}
	helpBank = []string{
		"Puedo ayudarte con información general, datos curiosos y responder preguntas básicas 📚",
		"Estoy aquí para charlar, compartir curiosidades y ayudarte con lo que necesites 💬",
	}
	unknownBank = []string{
		"Interesante pregunta 🤔 Déjame pensar en eso...",
		"Hmm, esa es una buena pregunta. ¿Podrías reformularla? 🤷",
		"No estoy seguro de entender. ¿Podrías ser más específico? 🤔",
	}
)

var namePattern = regexp.MustCompile(`(?i)(?:me llamo|soy|mi nombre es)\s+([\p{L}\s]+)`)

// Respond returns a canned answer for the given user message, updating the
// stored user name when the message introduces one.
func (c *CannedResponder) Respond(message string) string {
	if c.thinkDelay > 0 {
		time.Sleep(c.thinkDelay + time.Duration(rand.Int63n(int64(c.thinkDelay))))
	}

	ctx := widgetcontext.GetGlobalContext()
	lower := strings.ToLower(message)

	// Until a real name is known, steer the conversation toward capturing it.
	if ctx.User().Name == "" || ctx.User().Name == widgettypes.DefaultUserName {
		if match := namePattern.FindStringSubmatch(message); match != nil {
			name := strings.TrimSpace(match[1])
			if name != "" {
				ctx.SetUserName(name)
				return pickf(greetingBank, name)
			}
		}
		return pick(welcomeBank)
	}

	name := ctx.User().Name
	switch {
	case containsAny(lower, "hola", "buenos días", "buenas"):
		return pickf(greetingBank, name)
	case containsAny(lower, "ayuda", "qué puedes hacer", "funciones"):
		return pick(helpBank)
	case containsAny(lower, "curiosidad", "dato", "interesante", "sabías"):
		return pick(curiosityBank)
	case containsAny(lower, "gracias", "grax"):
		return "¡De nada, " + name + "! 😊 Me alegra poder ayudarte."
	case containsAny(lower, "adiós", "chao", "hasta luego"):
		return "¡Hasta luego, " + name + "! 👋 Que tengas un excelente día."
	default:
		return pick(unknownBank)
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func pick(bank []string) string {
	return bank[rand.Intn(len(bank))]
}

func pickf(bank []string, name string) string {
	return strings.ReplaceAll(pick(bank), "%s", name)
}
