package core

import (
	"math"
	"strconv"

	"github.com/dkeye/Poker/internal/domain"
)

// CalculateStatistics derives round statistics from the current votes.
// It is a full recompute on every reveal; rooms hold tens of participants,
// not thousands, so incremental bookkeeping is not worth its complexity.
//
// Tokens that do not parse as numbers still count toward TotalVotes and
// Distribution but are excluded from Average and Highest/LowestVote.
// Mode returns every token at the maximum frequency, in first-cast order.
func CalculateStatistics(participants []*domain.Participant) *domain.Statistics {
	stats := &domain.Statistics{
		Distribution: make(map[string]int),
		Mode:         []string{},
	}

	var (
		order      []string
		numSum     float64
		numCount   int
		highest    float64
		lowest     float64
		hasNumeric bool
	)

	for _, p := range participants {
		if p.CurrentVote == nil {
			continue
		}
		token := *p.CurrentVote
		if stats.Distribution[token] == 0 {
			order = append(order, token)
		}
		stats.Distribution[token]++
		stats.TotalVotes++

		n, err := strconv.ParseFloat(token, 64)
		if err != nil {
			continue
		}
		numSum += n
		numCount++
		if !hasNumeric || n > highest {
			highest = n
		}
		if !hasNumeric || n < lowest {
			lowest = n
		}
		hasNumeric = true
	}

	if numCount > 0 {
		stats.Average = math.Round(numSum/float64(numCount)*100) / 100
	}
	if hasNumeric {
		hi, lo := highest, lowest
		stats.HighestVote = &hi
		stats.LowestVote = &lo
	}

	maxCount := 0
	for _, c := range stats.Distribution {
		if c > maxCount {
			maxCount = c
		}
	}
	for _, token := range order {
		if stats.Distribution[token] == maxCount {
			stats.Mode = append(stats.Mode, token)
		}
	}
	return stats
}
