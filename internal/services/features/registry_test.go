package features_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unifiedui/assistant-bot/internal/domain/models"
	"github.com/unifiedui/assistant-bot/internal/services/features"
)

func noop(ctx context.Context, req *features.Request) error { return nil }

func names(descriptors []features.Descriptor) []string {
	out := make([]string, 0, len(descriptors))
	for _, d := range descriptors {
		out = append(out, d.Name)
	}
	return out
}

func newTestRegistry() *features.Registry {
	r := features.NewRegistry()
	r.Register(features.Descriptor{Name: "help", Group: "basic", Kind: models.KindText, Match: features.MatchCommand, Triggers: []string{"aide", "help"}, Help: "**!aide** : aide", Handler: noop})
	r.Register(features.Descriptor{Name: "reset", Group: "albert", Kind: models.KindText, Match: features.MatchCommand, Triggers: []string{"reset"}, Help: "**!reset** : reset", Handler: noop})
	r.Register(features.Descriptor{Name: "answer", Group: "albert", Kind: models.KindText, Match: features.MatchFreeText, Handler: noop})
	r.Register(features.Descriptor{Name: "unknown", Group: "albert", Kind: models.KindText, Match: features.MatchUnknownCommand, Handler: noop})
	r.Register(features.Descriptor{Name: "debug", Group: "albert", Kind: models.KindText, Match: features.MatchCommand, Triggers: []string{"debug"}, Help: "**!debug** : debug", Tier: features.TierAdvanced, Handler: noop})
	r.Register(features.Descriptor{
		Name: "sources", Group: "albert", Kind: models.KindText, Match: features.MatchCommand, Triggers: []string{"sources"},
		Help: "**!sources** : sources", Handler: noop,
		Visible: func(s *models.UserSession) bool { return s.SourcesEnabled() },
	})
	r.Register(features.Descriptor{Name: "heure", Group: "utils", Kind: models.KindText, Match: features.MatchCommand, Triggers: []string{"heure"}, Help: "**!heure** : heure", Handler: noop})
	return r
}

func TestActivateGroup_Idempotent(t *testing.T) {
	r := newTestRegistry()

	first := r.ActivateGroup("albert")
	activeAfterFirst := names(r.Active(models.KindText))
	second := r.ActivateGroup("albert")
	activeAfterSecond := names(r.Active(models.KindText))

	assert.Equal(t, names(first), names(second))
	assert.Equal(t, []string{"reset", "answer", "unknown", "debug", "sources"}, names(first))
	assert.Equal(t, activeAfterFirst, activeAfterSecond)
	assert.Equal(t, []string{"albert"}, r.ActiveGroups())
}

func TestActivateGroup_UnknownGroup(t *testing.T) {
	r := newTestRegistry()

	assert.Empty(t, r.ActivateGroup("missing"))
	assert.Empty(t, r.Active(models.KindText))
}

func TestRegister_LastWriteWins(t *testing.T) {
	r := newTestRegistry()
	r.Register(features.Descriptor{Name: "reset", Group: "albert", Kind: models.KindText, Match: features.MatchCommand, Triggers: []string{"raz"}, Handler: noop})
	r.ActivateGroup("albert")

	d, ok := r.Lookup("reset")
	require.True(t, ok)
	assert.Equal(t, []string{"raz"}, d.Triggers)
	assert.True(t, r.IsKnownCommand("raz"))
	assert.False(t, r.IsKnownCommand("reset"))
	assert.Len(t, r.All(), 7)
}

func TestIsKnownCommand(t *testing.T) {
	r := newTestRegistry()
	assert.False(t, r.IsKnownCommand("aide"), "inactive group")

	r.ActivateGroup("basic")

	assert.True(t, r.IsKnownCommand("aide"))
	assert.True(t, r.IsKnownCommand("help"))
	assert.False(t, r.IsKnownCommand("reset"))
	assert.False(t, r.IsKnownCommand(""))
}

func TestIsKnownCommand_EmptyRegistry(t *testing.T) {
	assert.False(t, features.NewRegistry().IsKnownCommand("aide"))
}

func TestActive_DispatchOrder(t *testing.T) {
	r := newTestRegistry()
	r.ActivateGroup("albert")
	r.ActivateGroup("basic")

	assert.Equal(t, []string{"help", "reset", "debug", "sources", "answer", "unknown"}, names(r.Active(models.KindText)))
	assert.Empty(t, r.Active(models.KindMembership))
}

func TestHelpEntries_Policy(t *testing.T) {
	r := newTestRegistry()
	r.ActivateGroup("basic")
	r.ActivateGroup("albert")
	rag := &models.UserSession{Mode: "rag"}
	norag := &models.UserSession{Mode: models.ModeNoRAG}

	assert.Equal(t, []string{"**!aide** : aide", "**!reset** : reset", "**!sources** : sources"}, r.HelpEntries(rag, false))
	assert.Equal(t, []string{"**!aide** : aide", "**!reset** : reset"}, r.HelpEntries(norag, false))
	assert.Equal(t, []string{"**!aide** : aide", "**!debug** : debug", "**!reset** : reset", "**!sources** : sources"}, r.HelpEntries(rag, true))
}

func TestHelpEntries_Deduplicated(t *testing.T) {
	r := features.NewRegistry()
	r.Register(features.Descriptor{Name: "aide", Group: "basic", Match: features.MatchCommand, Triggers: []string{"aide"}, Help: "same", Handler: noop})
	r.Register(features.Descriptor{Name: "help", Group: "basic", Match: features.MatchCommand, Triggers: []string{"help"}, Help: "same", Handler: noop})
	r.ActivateGroup("basic")

	assert.Equal(t, []string{"same"}, r.HelpEntries(nil, false))
	assert.Equal(t, "- same", r.HelpText(nil, false))
}

func TestHelpText_Empty(t *testing.T) {
	assert.Equal(t, "", features.NewRegistry().HelpText(nil, true))
}
