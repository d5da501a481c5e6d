package services

import (
	"strings"

	"portfoliobackend/types"
	"portfoliobackend/utils/constants"
)

// PortfolioTotalLabel names the portfolio-wide row returned by RollupTotal
const PortfolioTotalLabel = "Total"

// RollupSectors groups holdings by sector in order of first appearance.
// Holdings without a sector land in the "Others" bucket.
func RollupSectors(holdings []types.AggregatedHolding) []types.SectorSummary {
	summaries := []types.SectorSummary{}
	index := make(map[string]int)

	for _, holding := range holdings {
		sector := strings.TrimSpace(holding.Sector)
		if sector == "" {
			sector = constants.DefaultSector
		}
		i, ok := index[sector]
		if !ok {
			i = len(summaries)
			index[sector] = i
			summaries = append(summaries, types.SectorSummary{Sector: sector})
		}
		summaries[i].Holdings++
		summaries[i].TotalInvestment += holding.Investment
		summaries[i].TotalPresentValue += holding.PresentValue
	}

	for i := range summaries {
		finishSummary(&summaries[i])
	}
	return summaries
}

// RollupTotal folds sector summaries into one portfolio-wide summary
func RollupTotal(summaries []types.SectorSummary) types.SectorSummary {
	total := types.SectorSummary{Sector: PortfolioTotalLabel}
	for _, summary := range summaries {
		total.Holdings += summary.Holdings
		total.TotalInvestment += summary.TotalInvestment
		total.TotalPresentValue += summary.TotalPresentValue
	}
	finishSummary(&total)
	return total
}

func finishSummary(summary *types.SectorSummary) {
	summary.TotalGainLoss = summary.TotalPresentValue - summary.TotalInvestment
	summary.GainLossPercent = 0
	if summary.TotalInvestment > 0 {
		summary.GainLossPercent = summary.TotalGainLoss / summary.TotalInvestment * 100
	}
}
