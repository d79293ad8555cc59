package testmatches

import (
	"context"
	"fmt"
	"net/url"
	"sync"

	"github.com/LuSo58/billboards-evaluation/internal/domain/types"
	"github.com/LuSo58/billboards-evaluation/pkg/logger"
)

// retrieveRankings fetches the standings entry of every team concurrently.
// Teams the service does not know are skipped.
func retrieveRankings(ctx context.Context, config *Config, teams []string, stats *Stats) map[string]types.Entry {
	client := newHTTPClient(config.Timeout)

	var (
		mu       sync.Mutex
		rankings = make(map[string]types.Entry, len(teams))
		wg       sync.WaitGroup
	)
	jobs := make(chan string, config.Workers*WorkerChannelMultiplier)
	for i := 0; i < config.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for team := range jobs {
				var entry types.Entry
				err := client.getJSON(ctx, config.BaseURL+"/teams/"+url.PathEscape(team), &entry)
				if err != nil {
					if config.Verbose {
						logger.Get().Warn(ctx, "failed to get rank", logger.String("team", team), logger.Error(err))
					}
					continue
				}
				mu.Lock()
				rankings[team] = entry
				mu.Unlock()
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, team := range teams {
			select {
			case <-ctx.Done():
				return
			case jobs <- team:
			}
		}
	}()
	wg.Wait()

	stats.RankingsRetrieved = len(rankings)
	logger.Get().Info(ctx, "ranking retrieval completed", logger.Int("retrieved", len(rankings)))
	return rankings
}

// getLeaderboard retrieves the top N leaderboard entries.
func getLeaderboard(ctx context.Context, config *Config, stats *Stats) ([]types.Entry, error) {
	client := newHTTPClient(config.Timeout)

	var leaderboard []types.Entry
	if err := client.getJSON(ctx, fmt.Sprintf("%s/leaderboard?limit=%d", config.BaseURL, config.TopN), &leaderboard); err != nil {
		return nil, err
	}

	stats.LeaderboardEntries = len(leaderboard)
	logger.Get().Info(ctx, "retrieved leaderboard", logger.Int("entries", len(leaderboard)))
	return leaderboard, nil
}
