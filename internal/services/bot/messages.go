package bot

import (
	"fmt"
	"strings"
	"time"

	"github.com/unifiedui/assistant-bot/internal/core/answer"
	"github.com/unifiedui/assistant-bot/internal/domain/models"
)

// Prefixes of the bot notices. History rebuilding skips bot messages
// starting with one of them.
const (
	prefixWelcome = "👋 Bonjour, je suis **Albert**"
	prefixConfig  = "🤖 Configuration actuelle"
	prefixError   = "⚠️ **Erreur**"
	prefixUnknown = "⚠️ **Commande inconnue**"
	prefixReset   = "**La conversation a été remise à zéro**"
	prefixFailed  = "🤖 Albert a échoué"
)

// Messages renders the user-facing texts.
type Messages struct {
	Prefix       string
	Version      string
	APIURL       string
	HomeServer   string
	Contact      string
	Obsolescence time.Duration
}

// NoticePrefixes returns the prefixes identifying bot notices.
func (m Messages) NoticePrefixes() []string {
	return []string{prefixWelcome, prefixConfig, prefixError, prefixUnknown, prefixReset, prefixFailed}
}

func (m Messages) short(command string) string {
	p := m.Prefix
	switch command {
	case "help":
		return fmt.Sprintf("Pour retrouver ce message informatif, tapez `%saide`. Pour les geek tapez `%saide -v`.", p, p)
	case "reset":
		return fmt.Sprintf("Pour ré-initialiser notre conversation, tapez `%sreset`", p)
	case "conversation":
		return fmt.Sprintf("Pour activer/désactiver le mode conversation, tapez `%sconversation`", p)
	case "debug":
		return fmt.Sprintf("Pour afficher des informations sur la configuration actuelle, `%sdebug`", p)
	case "model":
		return fmt.Sprintf("Pour modifier le modèle, tapez `%smodel MODEL_NAME`", p)
	case "mode":
		return fmt.Sprintf("Pour modifier le mode du modèle (c'est-à-dire le modèle de prompt utilisé), tapez `%smode MODE`", p)
	case "sources":
		return fmt.Sprintf("Pour obtenir les sources utilisées pour générer ma dernière réponse, tapez `%ssources`", p)
	case "heure":
		return fmt.Sprintf("Pour obtenir l'heure, tapez `%sheure`", p)
	}
	return ""
}

// Failed is the apology sent when no answer could be produced.
func (m Messages) Failed() string {
	return prefixFailed + " à répondre. Veuillez réessayez dans un moment."
}

// Reset confirms a manual conversation reset.
func (m Messages) Reset() string {
	return prefixReset + ". Vous pouvez néanmoins toujours répondre dans un fil de discussion.\n\n"
}

// ResetNotice announces a reset after inactivity.
func (m Messages) ResetNotice() string {
	minutes := int(m.Obsolescence.Minutes())
	msg := prefixReset + fmt.Sprintf(" car vous n'avez pas continué votre conversation avec Albert depuis plus de %d minutes. ", minutes)
	msg += "Vous pouvez néanmoins toujours répondre dans un fil de discussion.\n\n"
	msg += fmt.Sprintf("Entrez **%saide** pour obtenir plus d'information sur ma paramétrisation.", m.Prefix)
	return msg
}

// ErrorDebug is the detailed failure forwarded to the operators' room.
func (m Messages) ErrorDebug(reason string) string {
	return fmt.Sprintf("⚠️ **Albert API error**\n\n%s\n\n- Albert API URL: %s\n- Matrix server: %s", reason, m.APIURL, m.HomeServer)
}

// PendingUser notifies operators of a new sender waiting for access.
func (m Messages) PendingUser(sender string) string {
	return fmt.Sprintf("🔔 Nouvel utilisateur en attente d'accès : %s", sender)
}

// Help is the welcome message listing the available commands.
func (m Messages) Help(model string, commands []string) string {
	shortName := model
	if i := strings.LastIndex(model, "/"); i >= 0 {
		shortName = model[i+1:]
	}

	var b strings.Builder
	b.WriteString(prefixWelcome + ", votre **assistant automatique dédié aux questions légales et administratives** mis à disposition par la **DINUM**. Je suis actuellement en phase de **test**.\n\n")
	fmt.Fprintf(&b, "J'utilise le modèle de langage _[%s](https://huggingface.co/%s)_ et j'ai été alimenté par des bases de connaissances gouvernementales, comme les fiches pratiques de service-public.fr éditées par la Direction de l'information légale et administrative (DILA).\n\n", shortName, model)
	b.WriteString("Maintenant que nous avons fait plus connaissance, quelques **règles pour m'utiliser** :\n\n")
	b.WriteString("🔮 Ne m'utilisez pas pour élaborer une décision administrative individuelle.\n\n")
	b.WriteString("❌ **Ne me transmettez pas** :\n")
	b.WriteString("- des **fichiers** (pdf, images, etc.) ;\n")
	b.WriteString("- des données permettant de **vous** identifier ou **d'autres personnes** ;\n")
	b.WriteString("- des données **confidentielles** ;\n\n")
	b.WriteString("Enfin, quelques informations pratiques :\n\n")
	b.WriteString("🛠️ **Pour gérer notre conversation** :\n")
	b.WriteString(bullets(commands))
	b.WriteString("\n\n")
	b.WriteString("📁 **Sur l'usage des données**\nLes conversations sont stockées de manière anonyme. Elles me permettent de contextualiser les conversations et l'équipe qui me développe les utilise pour m'évaluer et analyser mes performances.\n\n")
	b.WriteString("📯 Nous contacter : " + m.Contact)
	return b.String()
}

// Commands lists the available commands.
func (m Messages) Commands(commands []string) string {
	return "Les commandes spéciales suivantes sont disponibles :\n\n" + bullets(commands)
}

// UnknownCommand answers a command no feature handles.
func (m Messages) UnknownCommand(commands []string) string {
	return prefixUnknown + "\n\n" + m.Commands(commands)
}

// Debug describes the session configuration.
func (m Messages) Debug(session *models.UserSession) string {
	var b strings.Builder
	b.WriteString(prefixConfig + " :\n\n")
	fmt.Fprintf(&b, "- Version: %s\n", m.Version)
	fmt.Fprintf(&b, "- API: %s\n", m.APIURL)
	fmt.Fprintf(&b, "- Model: %s\n", session.Model)
	fmt.Fprintf(&b, "- Mode: %s\n", session.Mode)
	fmt.Fprintf(&b, "- With history: %t\n", session.WithHistory)
	return b.String()
}

// Conversation confirms the history toggle.
func (m Messages) Conversation(enabled bool) string {
	if enabled {
		return "Le mode conversation est activé."
	}
	return "Le mode conversation est désactivé."
}

// ModelChanged confirms a model change.
func (m Messages) ModelChanged(model string) string {
	return fmt.Sprintf("Le modèle a été modifié : %s", model)
}

// InvalidModel lists the valid models after a rejected change.
func (m Messages) InvalidModel(model string, valid []string) string {
	return prefixError + "\n\n" + fmt.Sprintf("Modèle inconnu : %q. Les modèles disponibles sont :\n\n%s", model, bullets(valid))
}

// ModeChanged confirms a mode change.
func (m Messages) ModeChanged(mode string) string {
	return fmt.Sprintf("Le mode a été modifié : %s", mode)
}

// InvalidMode lists the valid modes after a rejected change.
func (m Messages) InvalidMode(mode string, valid []string) string {
	return prefixError + "\n\n" + fmt.Sprintf("Mode inconnu : %q. Les modes disponibles sont :\n\n%s", mode, bullets(valid))
}

// SourcesDisabled explains that the current mode has no sources.
func (m Messages) SourcesDisabled() string {
	return fmt.Sprintf("Le mode actuel n'utilise pas de sources. Changez de mode avec `%smode MODE`.", m.Prefix)
}

// NoSources answers a sources request before any answer.
func (m Messages) NoSources() string {
	return "Aucune source n'a été utilisée pour ma dernière réponse."
}

// Sources lists the resolved sources of the last answer.
func (m Messages) Sources(sources []answer.Source) string {
	lines := make([]string, 0, len(sources))
	for _, source := range sources {
		title := source.Title
		if title == "" {
			title = source.ID
		}
		if source.URL != "" {
			lines = append(lines, fmt.Sprintf("[%s](%s)", title, source.URL))
		} else {
			lines = append(lines, title)
		}
	}
	return "Voici les sources utilisées pour générer ma dernière réponse :\n\n" + bullets(lines)
}

// Time tells the current time.
func (m Messages) Time(now time.Time) string {
	return "il est " + now.Format("15h04")
}

func bullets(items []string) string {
	if len(items) == 0 {
		return ""
	}
	return "- " + strings.Join(items, "\n- ")
}
