package access

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"

	domainerrors "github.com/unifiedui/assistant-bot/internal/domain/errors"
	"github.com/unifiedui/assistant-bot/internal/domain/models"
)

// statusAliases maps legacy status names of exported user states.
var statusAliases = map[string]models.UserStatus{
	"active": models.StatusAllowed,
}

// ImportResult summarizes an allow-list import.
type ImportResult struct {
	Added   int
	Skipped int
	// NoDomain lists the users whose domain could not be extracted.
	NoDomain []string
}

// ParseUserState reads a JSON object mapping a status to a list of user ids.
func ParseUserState(r io.Reader) (map[string][]string, error) {
	var state map[string][]string
	if err := json.NewDecoder(r).Decode(&state); err != nil {
		return nil, domainerrors.NewValidationError("invalid user state file", err.Error())
	}
	return state, nil
}

// ImportUsers inserts the users of state that the store does not know yet.
// Domains are derived with the gate's domain pattern.
func (g *Gate) ImportUsers(ctx context.Context, state map[string][]string) (ImportResult, error) {
	var result ImportResult
	if g.store == nil {
		return result, domainerrors.NewServiceUnavailableError("allow-list", nil)
	}

	existing, err := g.store.FetchRecords(ctx, nil)
	if err != nil {
		return result, domainerrors.NewUpstreamError("allow-list", err.Error(), err)
	}
	known := make(map[string]bool, len(existing))
	for _, record := range existing {
		known[record.User] = true
	}

	statuses := make([]string, 0, len(state))
	for status := range state {
		statuses = append(statuses, status)
	}
	sort.Strings(statuses)

	var records []*models.AllowListEntry
	for _, raw := range statuses {
		status, err := parseStatus(raw)
		if err != nil {
			return result, err
		}

		for _, user := range state[raw] {
			if known[user] {
				result.Skipped++
				continue
			}
			known[user] = true

			domain, err := g.ExtractDomain(user)
			if err != nil {
				result.NoDomain = append(result.NoDomain, user)
			}
			records = append(records, &models.AllowListEntry{User: user, Status: status, Domain: domain})
		}
	}

	if len(records) == 0 {
		return result, nil
	}
	if err := g.store.InsertRecords(ctx, records); err != nil {
		return result, domainerrors.NewUpstreamError("allow-list", err.Error(), err)
	}
	result.Added = len(records)

	g.log.Info().Int("added", result.Added).Int("skipped", result.Skipped).Msg("Imported allow-list users")
	return result, nil
}

func parseStatus(raw string) (models.UserStatus, error) {
	if alias, ok := statusAliases[raw]; ok {
		return alias, nil
	}
	switch status := models.UserStatus(raw); status {
	case models.StatusAllowed, models.StatusPending, models.StatusForbidden:
		return status, nil
	}
	return "", domainerrors.NewValidationError("unknown user status", fmt.Sprintf("%q", raw))
}
