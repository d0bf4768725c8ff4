package collector

import (
	"context"

	"riftstats/internal/riot"
)

// PlayerSource resolves a player's recent ranked matches and tier.
type PlayerSource interface {
	GetAccountByRiotID(ctx context.Context, gameName, tagLine string) (*riot.AccountResponse, error)
	GetMatchHistory(ctx context.Context, puuid string, count int) ([]string, error)
	GetSoloTier(ctx context.Context, platform, puuid string) (string, error)
}

// Discover returns refs for a player's most recent ranked matches, all
// bucketed under the player's current solo queue tier. An unranked or
// unreachable league lookup falls back to UNRANKED.
func Discover(ctx context.Context, src PlayerSource, riotID string, count int) (string, []MatchRef, error) {
	gameName, tagLine, err := riot.ParseRiotID(riotID)
	if err != nil {
		return "", nil, err
	}

	account, err := src.GetAccountByRiotID(ctx, gameName, tagLine)
	if err != nil {
		return "", nil, err
	}

	matchIDs, err := src.GetMatchHistory(ctx, account.PUUID, count)
	if err != nil {
		return account.PUUID, nil, err
	}
	if len(matchIDs) == 0 {
		return account.PUUID, nil, nil
	}

	tier := riot.UnrankedTier
	if platform, err := riot.PlatformForMatchID(matchIDs[0]); err == nil {
		if t, err := src.GetSoloTier(ctx, platform, account.PUUID); err == nil {
			tier = t
		}
	}

	refs := make([]MatchRef, len(matchIDs))
	for i, id := range matchIDs {
		refs[i] = MatchRef{MatchID: id, Tier: tier}
	}
	return account.PUUID, refs, nil
}
